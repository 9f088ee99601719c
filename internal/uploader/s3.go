package uploader

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3manager"
	"github.com/aws/aws-sdk-go/service/s3/s3manager/s3manageriface"
)

// S3Uploader stores archives as S3 objects in the Deep Archive storage
// class. The vault name is used as the bucket.
type S3Uploader struct {
	client s3manageriface.UploaderAPI
}

// NewS3Uploader creates an uploader around an s3manager client
func NewS3Uploader(client s3manageriface.UploaderAPI) *S3Uploader {
	return &S3Uploader{client: client}
}

// Upload stores localPath under a key derived from description
func (s *S3Uploader) Upload(ctx context.Context, vault, description, localPath string) (*Result, error) {
	f, size, err := openArchive(localPath)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	checksum := TreeHash(f)
	key := objectKey(description)

	out, err := s.client.UploadWithContext(ctx, &s3manager.UploadInput{
		Bucket:       aws.String(vault),
		Key:          aws.String(key),
		Body:         f,
		StorageClass: aws.String(s3.StorageClassDeepArchive),
		Metadata: map[string]*string{
			"description": aws.String(description),
			"treehash":    aws.String(checksum),
		},
	})
	if err != nil {
		return nil, err
	}

	archiveID := key
	if v := aws.StringValue(out.VersionID); v != "" {
		archiveID = fmt.Sprintf("%s?versionId=%s", key, v)
	}

	return &Result{
		ArchiveID: archiveID,
		Checksum:  checksum,
		Location:  out.Location,
		Size:      size,
	}, nil
}
