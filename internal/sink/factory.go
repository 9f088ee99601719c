package sink

import (
	"fmt"
	"strings"

	appErrors "glacier-backup/internal/errors"
)

// OutputType identifies an output document format
type OutputType string

const (
	OutputCSV      OutputType = "Csv"
	OutputPhotoSQL OutputType = "PhotoSql"
	OutputVideoSQL OutputType = "VideoSql"
	OutputYAML     OutputType = "Yaml"
)

// OutputTypes returns every supported output type
func OutputTypes() []OutputType {
	return []OutputType{OutputCSV, OutputPhotoSQL, OutputVideoSQL, OutputYAML}
}

// ParseOutputType resolves a command-line output type
func ParseOutputType(s string) (OutputType, error) {
	for _, t := range OutputTypes() {
		if strings.EqualFold(s, string(t)) {
			return t, nil
		}
	}
	return "", fmt.Errorf("unknown output type %q", s)
}

// NewFormat returns a fresh Format for t
func NewFormat(t OutputType) (Format, error) {
	switch t {
	case OutputCSV:
		return CSVFormat{}, nil
	case OutputPhotoSQL:
		return PhotoSQLFormat(), nil
	case OutputVideoSQL:
		return VideoSQLFormat(), nil
	case OutputYAML:
		return &YAMLFormat{}, nil
	default:
		return nil, appErrors.NewConfigurationError(fmt.Sprintf("unsupported output type: %s", t), nil).
			WithUserMessage("Please specify a valid output type: Csv, PhotoSql, VideoSql, or Yaml")
	}
}

// New creates a file sink of the given type at path
func New(t OutputType, path string) (*FileSink, error) {
	format, err := NewFormat(t)
	if err != nil {
		return nil, err
	}
	return NewFileSink(path, format), nil
}
