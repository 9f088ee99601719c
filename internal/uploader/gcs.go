package uploader

import (
	"context"
	"fmt"
	"io"

	"cloud.google.com/go/storage"
	"google.golang.org/api/option"

	appErrors "glacier-backup/internal/errors"
)

const gcsArchiveClass = "ARCHIVE"

// GCSUploader stores archives as Archive class objects in Google Cloud
// Storage. The vault name is used as the bucket.
type GCSUploader struct {
	client *storage.Client
}

// NewGCSUploader creates a client using application default credentials.
// A non-empty projectID is billed for the requests.
func NewGCSUploader(ctx context.Context, projectID string) (*GCSUploader, error) {
	var opts []option.ClientOption
	if projectID != "" {
		opts = append(opts, option.WithQuotaProject(projectID))
	}

	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, appErrors.NewCredentialsError("failed to create GCS client", err).
			WithUserMessage("Unable to get credentials - exiting!")
	}
	return &GCSUploader{client: client}, nil
}

// Upload writes localPath to the bucket
func (g *GCSUploader) Upload(ctx context.Context, vault, description, localPath string) (*Result, error) {
	f, size, err := openArchive(localPath)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	checksum := TreeHash(f)
	name := objectKey(description)

	w := g.client.Bucket(vault).Object(name).NewWriter(ctx)
	w.StorageClass = gcsArchiveClass
	w.Metadata = map[string]string{
		"description": description,
		"treehash":    checksum,
	}

	if _, err := io.Copy(w, f); err != nil {
		w.Close()
		return nil, fmt.Errorf("failed to write %s to GCS: %w", name, err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("failed to upload %s to GCS: %w", name, err)
	}

	attrs := w.Attrs()
	return &Result{
		ArchiveID: fmt.Sprintf("%s#%d", name, attrs.Generation),
		Checksum:  checksum,
		Location:  fmt.Sprintf("gs://%s/%s", vault, name),
		Size:      size,
	}, nil
}

// Close releases the GCS client
func (g *GCSUploader) Close() error {
	return g.client.Close()
}
