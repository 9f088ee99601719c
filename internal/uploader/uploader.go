// Package uploader sends local files to a cold-storage archival service.
//
// Glacier is the primary backend. S3 Deep Archive, GCS Archive and Azure
// Archive tier are offered behind the same contract; whatever the backend,
// the recorded checksum is the Glacier SHA-256 tree hash of the local file so
// that results stay comparable across services.
package uploader

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/aws/aws-sdk-go/service/glacier"
)

// Uploader archives a single local file
type Uploader interface {
	// Upload stores localPath in vault under description
	Upload(ctx context.Context, vault, description, localPath string) (*Result, error)
}

// Result describes an archive created by an Uploader
type Result struct {
	ArchiveID string `json:"archive_id" yaml:"archive_id"`
	Checksum  string `json:"checksum" yaml:"checksum"`
	Location  string `json:"location,omitempty" yaml:"location,omitempty"`
	Size      int64  `json:"size" yaml:"size"`
}

// UploadFunc adapts a function to the Uploader interface
type UploadFunc func(ctx context.Context, vault, description, localPath string) (*Result, error)

// Upload calls f
func (f UploadFunc) Upload(ctx context.Context, vault, description, localPath string) (*Result, error) {
	return f(ctx, vault, description, localPath)
}

// TreeHash returns the hex encoded Glacier tree hash of r. The reader is
// rewound to its starting offset afterwards.
func TreeHash(r io.ReadSeeker) string {
	h := glacier.ComputeHashes(r)
	if len(h.TreeHash) == 0 {
		empty := sha256.Sum256(nil)
		return hex.EncodeToString(empty[:])
	}
	return hex.EncodeToString(h.TreeHash)
}

// openArchive opens localPath for upload and returns it with its size
func openArchive(localPath string) (*os.File, int64, error) {
	f, err := os.Open(localPath)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to open %s: %w", localPath, err)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, 0, fmt.Errorf("failed to stat %s: %w", localPath, err)
	}
	if !info.Mode().IsRegular() {
		f.Close()
		return nil, 0, fmt.Errorf("%s is not a regular file", localPath)
	}
	return f, info.Size(), nil
}

// objectKey maps a description onto an object store key
func objectKey(description string) string {
	key := strings.TrimLeft(strings.ReplaceAll(description, "\\", "/"), "/")
	if key == "" {
		return "archive"
	}
	return key
}
