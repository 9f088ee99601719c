package uploader

import (
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go/service/glacier"
	"github.com/aws/aws-sdk-go/service/s3/s3manager"

	appErrors "glacier-backup/internal/errors"
)

// Backend identifies an archival service
type Backend string

const (
	BackendGlacier Backend = "glacier"
	BackendS3      Backend = "s3"
	BackendGCS     Backend = "gcs"
	BackendAzure   Backend = "azure"
)

// Backends returns every supported backend
func Backends() []Backend {
	return []Backend{BackendGlacier, BackendS3, BackendGCS, BackendAzure}
}

// ParseBackend resolves a configured backend name. Empty selects Glacier.
func ParseBackend(s string) (Backend, error) {
	if s == "" {
		return BackendGlacier, nil
	}
	for _, b := range Backends() {
		if strings.EqualFold(s, string(b)) {
			return b, nil
		}
	}
	return "", appErrors.NewConfigurationError(fmt.Sprintf("unsupported backend: %s", s), nil).
		WithUserMessage("Please specify a valid backend: glacier, s3, gcs, or azure")
}

// UsesAWSCredentials reports whether the backend authenticates with the
// shared AWS credentials profile
func (b Backend) UsesAWSCredentials() bool {
	return b == BackendGlacier || b == BackendS3
}

// Config selects and configures an Uploader
type Config struct {
	Backend            Backend
	Region             string
	Profile            string
	CredentialsFile    string
	PartSize           int64
	MultipartThreshold int64
	GCSProjectID       string
	AzureAccountName   string
	AzureAccountKey    string
}

// NewUploader creates the uploader for the configured backend
func NewUploader(ctx context.Context, cfg Config) (Uploader, error) {
	switch cfg.Backend {
	case BackendGlacier, "":
		if err := ValidateRegion(cfg.Region); err != nil {
			return nil, err
		}
		creds, err := LoadCredentials(cfg.Profile, cfg.CredentialsFile)
		if err != nil {
			return nil, err
		}
		sess, err := newAWSSession(cfg.Region, creds)
		if err != nil {
			return nil, err
		}
		return NewGlacierUploader(glacier.New(sess), GlacierOptions{
			PartSize:           cfg.PartSize,
			MultipartThreshold: cfg.MultipartThreshold,
		})

	case BackendS3:
		if err := ValidateRegion(cfg.Region); err != nil {
			return nil, err
		}
		creds, err := LoadCredentials(cfg.Profile, cfg.CredentialsFile)
		if err != nil {
			return nil, err
		}
		sess, err := newAWSSession(cfg.Region, creds)
		if err != nil {
			return nil, err
		}
		partSize := cfg.PartSize
		if partSize == 0 {
			partSize = DefaultPartSize
		}
		return NewS3Uploader(s3manager.NewUploader(sess, func(u *s3manager.Uploader) {
			u.PartSize = partSize
		})), nil

	case BackendGCS:
		return NewGCSUploader(ctx, cfg.GCSProjectID)

	case BackendAzure:
		return NewAzureUploader(cfg.AzureAccountName, cfg.AzureAccountKey)

	default:
		return nil, appErrors.NewConfigurationError(fmt.Sprintf("unsupported backend: %s", cfg.Backend), nil)
	}
}
