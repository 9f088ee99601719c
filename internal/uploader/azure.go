package uploader

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/Azure/azure-storage-blob-go/azblob"

	appErrors "glacier-backup/internal/errors"
)

const azureBlockSize = 4 * MiB

// AzureUploader stores archives as Archive tier block blobs. The vault name
// is used as the container.
type AzureUploader struct {
	serviceURL azblob.ServiceURL
}

// NewAzureUploader creates an uploader for a storage account
func NewAzureUploader(accountName, accountKey string) (*AzureUploader, error) {
	if accountName == "" || accountKey == "" {
		return nil, appErrors.NewCredentialsError("azure account name and key are required", nil).
			WithUserMessage("Unable to get credentials - exiting!")
	}

	credential, err := azblob.NewSharedKeyCredential(accountName, accountKey)
	if err != nil {
		return nil, appErrors.NewCredentialsError("failed to create Azure credentials", err).
			WithUserMessage("Unable to get credentials - exiting!")
	}

	pipeline := azblob.NewPipeline(credential, azblob.PipelineOptions{})

	serviceURL, err := url.Parse(fmt.Sprintf("https://%s.blob.core.windows.net", accountName))
	if err != nil {
		return nil, appErrors.NewConfigurationError("failed to parse Azure service URL", err)
	}

	return &AzureUploader{serviceURL: azblob.NewServiceURL(*serviceURL, pipeline)}, nil
}

// Upload stores localPath as a block blob
func (a *AzureUploader) Upload(ctx context.Context, vault, description, localPath string) (*Result, error) {
	f, size, err := openArchive(localPath)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	checksum := TreeHash(f)
	name := objectKey(description)

	blobURL := a.serviceURL.NewContainerURL(vault).NewBlockBlobURL(name)
	resp, err := azblob.UploadFileToBlockBlob(ctx, f, blobURL, azblob.UploadToBlockBlobOptions{
		BlockSize:      azureBlockSize,
		Parallelism:    4,
		BlobAccessTier: azblob.AccessTierArchive,
		Metadata: azblob.Metadata{
			"treehash": checksum,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to upload %s to Azure: %w", name, err)
	}

	location := blobURL.URL()
	return &Result{
		ArchiveID: fmt.Sprintf("%s@%s", name, strings.Trim(string(resp.ETag()), `"`)),
		Checksum:  checksum,
		Location:  location.String(),
		Size:      size,
	}, nil
}
