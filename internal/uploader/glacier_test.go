package uploader

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/request"
	"github.com/aws/aws-sdk-go/service/glacier"
	"github.com/aws/aws-sdk-go/service/glacier/glacieriface"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	appErrors "glacier-backup/internal/errors"
)

type mockGlacier struct {
	glacieriface.GlacierAPI
	mock.Mock
}

func (m *mockGlacier) UploadArchiveWithContext(ctx aws.Context, in *glacier.UploadArchiveInput, _ ...request.Option) (*glacier.ArchiveCreationOutput, error) {
	args := m.Called(ctx, in)
	out, _ := args.Get(0).(*glacier.ArchiveCreationOutput)
	return out, args.Error(1)
}

func (m *mockGlacier) InitiateMultipartUploadWithContext(ctx aws.Context, in *glacier.InitiateMultipartUploadInput, _ ...request.Option) (*glacier.InitiateMultipartUploadOutput, error) {
	args := m.Called(ctx, in)
	out, _ := args.Get(0).(*glacier.InitiateMultipartUploadOutput)
	return out, args.Error(1)
}

func (m *mockGlacier) UploadMultipartPartWithContext(ctx aws.Context, in *glacier.UploadMultipartPartInput, _ ...request.Option) (*glacier.UploadMultipartPartOutput, error) {
	args := m.Called(ctx, in)
	out, _ := args.Get(0).(*glacier.UploadMultipartPartOutput)
	return out, args.Error(1)
}

func (m *mockGlacier) CompleteMultipartUploadWithContext(ctx aws.Context, in *glacier.CompleteMultipartUploadInput, _ ...request.Option) (*glacier.ArchiveCreationOutput, error) {
	args := m.Called(ctx, in)
	out, _ := args.Get(0).(*glacier.ArchiveCreationOutput)
	return out, args.Error(1)
}

func (m *mockGlacier) AbortMultipartUploadWithContext(ctx aws.Context, in *glacier.AbortMultipartUploadInput, _ ...request.Option) (*glacier.AbortMultipartUploadOutput, error) {
	args := m.Called(ctx, in)
	return &glacier.AbortMultipartUploadOutput{}, args.Error(1)
}

func writeArchive(t *testing.T, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "archive.bin")
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return path
}

func TestTreeHash(t *testing.T) {
	small := sha256.Sum256([]byte("hello"))
	assert.Equal(t, hex.EncodeToString(small[:]), TreeHash(strings.NewReader("hello")))

	empty := sha256.Sum256(nil)
	assert.Equal(t, hex.EncodeToString(empty[:]), TreeHash(strings.NewReader("")))

	r := bytes.NewReader(bytes.Repeat([]byte("x"), 3*MiB))
	first := TreeHash(r)
	assert.Equal(t, first, TreeHash(r), "reader should be rewound")
}

func TestValidatePartSize(t *testing.T) {
	tests := []struct {
		size    int64
		wantErr bool
	}{
		{MiB, false},
		{64 * MiB, false},
		{4096 * MiB, false},
		{0, true},
		{3 * MiB, true},
		{MiB + 1, true},
		{8192 * MiB, true},
	}

	for _, tt := range tests {
		if err := ValidatePartSize(tt.size); (err != nil) != tt.wantErr {
			t.Errorf("ValidatePartSize(%d) error = %v, wantErr %v", tt.size, err, tt.wantErr)
		}
	}
}

func TestNewGlacierUploaderDefaults(t *testing.T) {
	g, err := NewGlacierUploader(&mockGlacier{}, GlacierOptions{})
	require.NoError(t, err)
	assert.Equal(t, DefaultPartSize, g.partSize)
	assert.Equal(t, DefaultMultipartThreshold, g.threshold)

	_, err = NewGlacierUploader(&mockGlacier{}, GlacierOptions{PartSize: 64 * MiB, MultipartThreshold: MiB})
	assert.Error(t, err)

	_, err = NewGlacierUploader(nil, GlacierOptions{})
	assert.Error(t, err)
}

func TestGlacierUploadSingle(t *testing.T) {
	data := []byte("photo bytes")
	path := writeArchive(t, data)
	sum := sha256.Sum256(data)
	checksum := hex.EncodeToString(sum[:])

	client := &mockGlacier{}
	client.On("UploadArchiveWithContext", mock.Anything, mock.MatchedBy(func(in *glacier.UploadArchiveInput) bool {
		return aws.StringValue(in.AccountId) == "-" &&
			aws.StringValue(in.VaultName) == "photos" &&
			aws.StringValue(in.ArchiveDescription) == "/2020/a.jpg" &&
			aws.StringValue(in.Checksum) == checksum
	})).Return(&glacier.ArchiveCreationOutput{
		ArchiveId: aws.String("archive-1"),
		Checksum:  aws.String(checksum),
		Location:  aws.String("/123/vaults/photos/archives/archive-1"),
	}, nil)

	g, err := NewGlacierUploader(client, GlacierOptions{})
	require.NoError(t, err)

	result, err := g.Upload(context.Background(), "photos", "/2020/a.jpg", path)
	require.NoError(t, err)
	assert.Equal(t, &Result{
		ArchiveID: "archive-1",
		Checksum:  checksum,
		Location:  "/123/vaults/photos/archives/archive-1",
		Size:      int64(len(data)),
	}, result)
	client.AssertExpectations(t)
}

func TestGlacierUploadChecksumMismatch(t *testing.T) {
	path := writeArchive(t, []byte("data"))

	client := &mockGlacier{}
	client.On("UploadArchiveWithContext", mock.Anything, mock.Anything).Return(&glacier.ArchiveCreationOutput{
		ArchiveId: aws.String("archive-1"),
		Checksum:  aws.String("deadbeef"),
	}, nil)

	g, err := NewGlacierUploader(client, GlacierOptions{})
	require.NoError(t, err)

	_, err = g.Upload(context.Background(), "photos", "/a", path)
	require.Error(t, err)
	assert.True(t, appErrors.IsRecoverableError(err))
}

func TestGlacierUploadMissingFile(t *testing.T) {
	client := &mockGlacier{}
	g, err := NewGlacierUploader(client, GlacierOptions{})
	require.NoError(t, err)

	_, err = g.Upload(context.Background(), "photos", "/a", filepath.Join(t.TempDir(), "gone"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, os.ErrNotExist))
	client.AssertNotCalled(t, "UploadArchiveWithContext", mock.Anything, mock.Anything)
}

func TestGlacierUploadMultipart(t *testing.T) {
	data := bytes.Repeat([]byte("abcd"), (5*MiB)/8) // 2.5 MiB
	path := writeArchive(t, data)
	checksum := TreeHash(bytes.NewReader(data))

	client := &mockGlacier{}
	client.On("InitiateMultipartUploadWithContext", mock.Anything, mock.MatchedBy(func(in *glacier.InitiateMultipartUploadInput) bool {
		return aws.StringValue(in.PartSize) == "1048576"
	})).Return(&glacier.InitiateMultipartUploadOutput{UploadId: aws.String("upload-1")}, nil)
	client.On("UploadMultipartPartWithContext", mock.Anything, mock.Anything).
		Return(&glacier.UploadMultipartPartOutput{}, nil).Times(3)
	client.On("CompleteMultipartUploadWithContext", mock.Anything, mock.MatchedBy(func(in *glacier.CompleteMultipartUploadInput) bool {
		return aws.StringValue(in.UploadId) == "upload-1" &&
			aws.StringValue(in.ArchiveSize) == "2621440" &&
			aws.StringValue(in.Checksum) == checksum
	})).Return(&glacier.ArchiveCreationOutput{
		ArchiveId: aws.String("archive-big"),
		Checksum:  aws.String(checksum),
	}, nil)

	g, err := NewGlacierUploader(client, GlacierOptions{PartSize: MiB, MultipartThreshold: 2 * MiB})
	require.NoError(t, err)

	result, err := g.Upload(context.Background(), "videos", "/clip.mov", path)
	require.NoError(t, err)
	assert.Equal(t, "archive-big", result.ArchiveID)
	assert.Equal(t, checksum, result.Checksum)
	client.AssertExpectations(t)

	var ranges []string
	for _, call := range client.Calls {
		if call.Method == "UploadMultipartPartWithContext" {
			in := call.Arguments.Get(1).(*glacier.UploadMultipartPartInput)
			ranges = append(ranges, aws.StringValue(in.Range))
		}
	}
	assert.Equal(t, []string{
		"bytes 0-1048575/*",
		"bytes 1048576-2097151/*",
		"bytes 2097152-2621439/*",
	}, ranges)
	client.AssertNotCalled(t, "AbortMultipartUploadWithContext", mock.Anything, mock.Anything)
}

func TestGlacierUploadMultipartAbortsOnFailure(t *testing.T) {
	path := writeArchive(t, bytes.Repeat([]byte("z"), 2*MiB))

	client := &mockGlacier{}
	client.On("InitiateMultipartUploadWithContext", mock.Anything, mock.Anything).
		Return(&glacier.InitiateMultipartUploadOutput{UploadId: aws.String("upload-2")}, nil)
	client.On("UploadMultipartPartWithContext", mock.Anything, mock.Anything).
		Return(nil, errors.New("connection reset"))
	client.On("AbortMultipartUploadWithContext", mock.Anything, mock.MatchedBy(func(in *glacier.AbortMultipartUploadInput) bool {
		return aws.StringValue(in.UploadId) == "upload-2"
	})).Return(nil, nil)

	g, err := NewGlacierUploader(client, GlacierOptions{PartSize: MiB, MultipartThreshold: MiB})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	_, err = g.Upload(ctx, "videos", "/clip.mov", path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection reset")
	client.AssertCalled(t, "AbortMultipartUploadWithContext", mock.Anything, mock.Anything)
}
