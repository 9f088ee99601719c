// Package sink records upload outcomes in a structured output document.
package sink

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"

	"glacier-backup/internal/backup"
	appErrors "glacier-backup/internal/errors"
)

// Sink receives the outcomes of a run. Initialize is called once before any
// WriteOne, Finalize once after the last, and Close releases the output on
// every path.
type Sink interface {
	Initialize() error
	WriteOne(outcome *backup.UploadOutcome) error
	Finalize() error
	Close() error
}

// Format renders a document: a header, one record per outcome and a trailer
type Format interface {
	Header(w io.Writer) error
	Record(w io.Writer, outcome *backup.UploadOutcome) error
	Trailer(w io.Writer) error
}

// Write frames outcomes into s and always closes it
func Write(s Sink, outcomes []*backup.UploadOutcome) (err error) {
	defer func() {
		if cerr := s.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	if err := s.Initialize(); err != nil {
		return err
	}
	for _, outcome := range outcomes {
		if err := s.WriteOne(outcome); err != nil {
			return err
		}
	}
	return s.Finalize()
}

// FileSink writes a Format to a new file. It refuses to overwrite an
// existing file.
type FileSink struct {
	path   string
	format Format
	file   *os.File
	w      *bufio.Writer
}

// NewFileSink creates a sink for path; nothing is opened until Initialize
func NewFileSink(path string, format Format) *FileSink {
	return &FileSink{path: path, format: format}
}

// Path returns the output file path
func (s *FileSink) Path() string {
	return s.path
}

// Initialize creates the file and writes the header
func (s *FileSink) Initialize() error {
	if s.file != nil {
		return appErrors.NewOutputError("output already initialized", nil)
	}
	f, err := os.OpenFile(s.path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		if errors.Is(err, os.ErrExist) {
			return appErrors.NewOutputError(fmt.Sprintf("output file %s already exists", s.path), err).
				WithUserMessage("Output file already exists - exiting!")
		}
		return appErrors.NewOutputError(fmt.Sprintf("failed to create output file %s", s.path), err)
	}
	s.file = f
	s.w = bufio.NewWriter(f)

	if err := s.format.Header(s.w); err != nil {
		return appErrors.NewOutputError("failed to write output header", err)
	}
	return nil
}

// WriteOne appends the record for outcome
func (s *FileSink) WriteOne(outcome *backup.UploadOutcome) error {
	if s.w == nil {
		return appErrors.NewOutputError("output not initialized", nil)
	}
	if err := s.format.Record(s.w, outcome); err != nil {
		return appErrors.NewOutputError(fmt.Sprintf("failed to write result for %s", outcome.Target.FullPath), err)
	}
	return nil
}

// Finalize writes the trailer and flushes the file to disk
func (s *FileSink) Finalize() error {
	if s.w == nil {
		return appErrors.NewOutputError("output not initialized", nil)
	}
	if err := s.format.Trailer(s.w); err != nil {
		return appErrors.NewOutputError("failed to write output trailer", err)
	}
	if err := s.w.Flush(); err != nil {
		return appErrors.NewOutputError("failed to flush output", err)
	}
	if err := s.file.Sync(); err != nil {
		return appErrors.NewOutputError("failed to sync output", err)
	}
	return nil
}

// Close releases the file. It is safe to call more than once.
func (s *FileSink) Close() error {
	if s.file == nil {
		return nil
	}
	err := s.file.Close()
	s.file = nil
	s.w = nil
	if err != nil {
		return appErrors.NewOutputError("failed to close output", err)
	}
	return nil
}
