package uploader

import (
	"context"
	"fmt"
	"io"
	"strconv"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/service/glacier"
	"github.com/aws/aws-sdk-go/service/glacier/glacieriface"

	appErrors "glacier-backup/internal/errors"
)

// accountID "-" selects the account that owns the credentials
const accountID = "-"

const (
	MiB = 1024 * 1024

	// DefaultPartSize is the multipart chunk size
	DefaultPartSize int64 = 64 * MiB
	// DefaultMultipartThreshold is the file size from which multipart upload is used
	DefaultMultipartThreshold int64 = 128 * MiB

	maxPartSize int64 = 4096 * MiB
)

// GlacierUploader uploads archives to an Amazon Glacier vault
type GlacierUploader struct {
	client    glacieriface.GlacierAPI
	partSize  int64
	threshold int64
}

// GlacierOptions tunes multipart behaviour
type GlacierOptions struct {
	PartSize           int64
	MultipartThreshold int64
}

// ValidatePartSize checks that size is a power-of-two number of MiB between
// 1 MiB and 4 GiB
func ValidatePartSize(size int64) error {
	if size < MiB || size > maxPartSize || size%MiB != 0 {
		return fmt.Errorf("part size must be between 1 MiB and 4 GiB, got %d", size)
	}
	mib := size / MiB
	if mib&(mib-1) != 0 {
		return fmt.Errorf("part size must be a power-of-two number of MiB, got %d", size)
	}
	return nil
}

// NewGlacierUploader creates an uploader around a Glacier client
func NewGlacierUploader(client glacieriface.GlacierAPI, opts GlacierOptions) (*GlacierUploader, error) {
	if client == nil {
		return nil, appErrors.NewConfigurationError("glacier client is required", nil)
	}
	if opts.PartSize == 0 {
		opts.PartSize = DefaultPartSize
	}
	if opts.MultipartThreshold == 0 {
		opts.MultipartThreshold = DefaultMultipartThreshold
	}
	if err := ValidatePartSize(opts.PartSize); err != nil {
		return nil, appErrors.NewConfigurationError("invalid glacier part size", err)
	}
	if opts.MultipartThreshold < opts.PartSize {
		return nil, appErrors.NewConfigurationError(
			fmt.Sprintf("multipart threshold %d is smaller than part size %d", opts.MultipartThreshold, opts.PartSize), nil)
	}

	return &GlacierUploader{
		client:    client,
		partSize:  opts.PartSize,
		threshold: opts.MultipartThreshold,
	}, nil
}

// Upload archives localPath, using multipart upload for large files, and
// verifies the service computed the same tree hash
func (g *GlacierUploader) Upload(ctx context.Context, vault, description, localPath string) (*Result, error) {
	f, size, err := openArchive(localPath)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	checksum := TreeHash(f)

	var out *glacier.ArchiveCreationOutput
	if size >= g.threshold {
		out, err = g.uploadMultipart(ctx, vault, description, f, size, checksum)
	} else {
		out, err = g.client.UploadArchiveWithContext(ctx, &glacier.UploadArchiveInput{
			AccountId:          aws.String(accountID),
			VaultName:          aws.String(vault),
			ArchiveDescription: aws.String(description),
			Body:               f,
			Checksum:           aws.String(checksum),
		})
	}
	if err != nil {
		return nil, err
	}

	if remote := aws.StringValue(out.Checksum); remote != "" && remote != checksum {
		return nil, appErrors.NewRecoverableError(appErrors.ErrorTypeUpload,
			fmt.Sprintf("checksum mismatch for %s: local %s, remote %s", description, checksum, remote), nil)
	}

	return &Result{
		ArchiveID: aws.StringValue(out.ArchiveId),
		Checksum:  checksum,
		Location:  aws.StringValue(out.Location),
		Size:      size,
	}, nil
}

func (g *GlacierUploader) uploadMultipart(ctx context.Context, vault, description string, f io.ReaderAt, size int64, checksum string) (*glacier.ArchiveCreationOutput, error) {
	initiated, err := g.client.InitiateMultipartUploadWithContext(ctx, &glacier.InitiateMultipartUploadInput{
		AccountId:          aws.String(accountID),
		VaultName:          aws.String(vault),
		ArchiveDescription: aws.String(description),
		PartSize:           aws.String(strconv.FormatInt(g.partSize, 10)),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initiate multipart upload: %w", err)
	}
	uploadID := initiated.UploadId

	// The abort must outlive a cancelled run context
	abort := func() {
		_, _ = g.client.AbortMultipartUploadWithContext(context.WithoutCancel(ctx), &glacier.AbortMultipartUploadInput{
			AccountId: aws.String(accountID),
			VaultName: aws.String(vault),
			UploadId:  uploadID,
		})
	}

	for offset := int64(0); offset < size; offset += g.partSize {
		n := min(g.partSize, size-offset)
		part := io.NewSectionReader(f, offset, n)

		_, err := g.client.UploadMultipartPartWithContext(ctx, &glacier.UploadMultipartPartInput{
			AccountId: aws.String(accountID),
			VaultName: aws.String(vault),
			UploadId:  uploadID,
			Range:     aws.String(fmt.Sprintf("bytes %d-%d/*", offset, offset+n-1)),
			Body:      part,
			Checksum:  aws.String(TreeHash(part)),
		})
		if err != nil {
			abort()
			return nil, fmt.Errorf("failed to upload part at offset %d: %w", offset, err)
		}
	}

	out, err := g.client.CompleteMultipartUploadWithContext(ctx, &glacier.CompleteMultipartUploadInput{
		AccountId:   aws.String(accountID),
		VaultName:   aws.String(vault),
		UploadId:    uploadID,
		ArchiveSize: aws.String(strconv.FormatInt(size, 10)),
		Checksum:    aws.String(checksum),
	})
	if err != nil {
		abort()
		return nil, fmt.Errorf("failed to complete multipart upload: %w", err)
	}
	return out, nil
}
