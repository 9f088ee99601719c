package sink

import (
	"encoding/csv"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"glacier-backup/internal/backup"
	appErrors "glacier-backup/internal/errors"
	"glacier-backup/internal/uploader"
)

func succeeded(path, archiveID, checksum string) *backup.UploadOutcome {
	return &backup.UploadOutcome{
		Region:   "us-east-1",
		Vault:    "photos",
		Target:   backup.NewBackupTarget(path, "/data/photos"),
		Result:   &uploader.Result{ArchiveID: archiveID, Checksum: checksum, Size: 3},
		Attempts: 1,
	}
}

func failed(path string) *backup.UploadOutcome {
	return &backup.UploadOutcome{
		Region:   "us-east-1",
		Vault:    "photos",
		Target:   backup.NewBackupTarget(path, "/data/photos"),
		Attempts: 3,
		Err:      errors.New("throttled"),
	}
}

func writeSink(t *testing.T, outputType OutputType, outcomes ...*backup.UploadOutcome) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "out")
	s, err := New(outputType, path)
	require.NoError(t, err)
	require.NoError(t, Write(s, outcomes))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(data)
}

func TestCSVSink(t *testing.T) {
	out := writeSink(t, OutputCSV,
		succeeded("/data/photos/2020/a.jpg", "archive-a", "hash-a"),
		failed("/data/photos/2020/b, c.jpg"),
	)

	records, err := csv.NewReader(strings.NewReader(out)).ReadAll()
	require.NoError(t, err)
	assert.Equal(t, [][]string{
		{"region", "vault_name", "file_path", "glacier_description", "archive_id", "treehash"},
		{"us-east-1", "photos", "/data/photos/2020/a.jpg", "/2020/a.jpg", "archive-a", "hash-a"},
		{"us-east-1", "photos", "/data/photos/2020/b, c.jpg", "/2020/b, c.jpg", "", ""},
	}, records)
}

func TestCSVSinkEmpty(t *testing.T) {
	out := writeSink(t, OutputCSV)
	assert.Equal(t, "region,vault_name,file_path,glacier_description,archive_id,treehash\n", out)
}

func TestPhotoSQLSink(t *testing.T) {
	out := writeSink(t, OutputPhotoSQL,
		succeeded("/data/photos/2020/a.jpg", "archive-a", "hash-a"),
		failed("/data/photos/2020/b.jpg"),
	)

	want := "DO\n$$\nBEGIN\n\n" +
		"    UPDATE photo.photo \n" +
		"       SET aws_glacier_vault_id = (SELECT id FROM aws.glacier_vault WHERE region = 'us-east-1' AND vault_name = 'photos'),\n" +
		"           aws_archive_id = 'archive-a',\n" +
		"           aws_treehash = 'hash-a'\n" +
		"     WHERE src_path = '/images//2020/a.jpg';\n" +
		"\n" +
		"\nEND\n$$\n"
	assert.Equal(t, want, out)
}

func TestVideoSQLSink(t *testing.T) {
	o := succeeded("/data/photos/clips/x.mov", "archive-x", "hash-x")
	o.Vault = "videos"
	out := writeSink(t, OutputVideoSQL, o)

	assert.Contains(t, out, "    UPDATE video.video \n")
	assert.Contains(t, out, "vault_name = 'videos'")
	assert.Contains(t, out, "     WHERE raw_path = '/movies//clips/x.mov';\n")
}

func TestSQLSinkEmptyFraming(t *testing.T) {
	for _, outputType := range []OutputType{OutputPhotoSQL, OutputVideoSQL} {
		t.Run(string(outputType), func(t *testing.T) {
			out := writeSink(t, outputType)
			assert.Equal(t, "DO\n$$\nBEGIN\n\n\nEND\n$$\n", out)
			assert.Equal(t, 2, strings.Count(out, "$$"))
		})
	}
}

func TestYAMLSink(t *testing.T) {
	out := writeSink(t, OutputYAML,
		succeeded("/data/photos/2020/a.jpg", "archive-a", "hash-a"),
		failed("/data/photos/2020/b.jpg"),
	)

	var records []map[string]any
	require.NoError(t, yaml.Unmarshal([]byte(out), &records))
	require.Len(t, records, 2)
	assert.Equal(t, "archive-a", records[0]["archive_id"])
	assert.Equal(t, "/2020/a.jpg", records[0]["glacier_description"])
	assert.Equal(t, "", records[1]["archive_id"])
	assert.Equal(t, "throttled", records[1]["error"])
	assert.Equal(t, 3, records[1]["attempts"])
}

func TestYAMLSinkEmpty(t *testing.T) {
	out := writeSink(t, OutputYAML)
	assert.Equal(t, "[]\n", out)
}

func TestFileSinkRefusesExistingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "results.csv")
	require.NoError(t, os.WriteFile(path, []byte("keep me"), 0o644))

	s, err := New(OutputCSV, path)
	require.NoError(t, err)

	err = Write(s, []*backup.UploadOutcome{succeeded("/data/photos/a", "id", "sum")})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrorTypeOutput, appErrors.GetErrorType(err))
	assert.True(t, errors.Is(err, os.ErrExist))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "keep me", string(data))
}

func TestFileSinkLifecycleErrors(t *testing.T) {
	s := NewFileSink(filepath.Join(t.TempDir(), "out.csv"), CSVFormat{})

	assert.Error(t, s.WriteOne(failed("/a")))
	assert.Error(t, s.Finalize())
	assert.NoError(t, s.Close())

	require.NoError(t, s.Initialize())
	assert.Error(t, s.Initialize())
	require.NoError(t, s.Close())
	assert.NoError(t, s.Close())
}

type recordErrorFormat struct {
	CSVFormat
}

func (recordErrorFormat) Record(io.Writer, *backup.UploadOutcome) error {
	return errors.New("boom")
}

func TestWriteClosesOnRecordError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.csv")
	s := NewFileSink(path, recordErrorFormat{})

	err := Write(s, []*backup.UploadOutcome{failed("/a")})
	require.Error(t, err)
	assert.Nil(t, s.file, "file handle should be released")
}

func TestLockedSinkConcurrentWrites(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.csv")
	fs, err := New(OutputCSV, path)
	require.NoError(t, err)
	l := NewLocked(fs)

	require.NoError(t, l.Initialize())
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, l.WriteOne(succeeded("/data/photos/x.jpg", "id", "sum")))
		}()
	}
	wg.Wait()
	require.NoError(t, l.Finalize())
	require.NoError(t, l.Close())

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	records, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	assert.Len(t, records, 21)
}

func TestLockedSinkAbortRemovesPartialFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.sql")
	fs, err := New(OutputPhotoSQL, path)
	require.NoError(t, err)
	l := NewLocked(fs)

	require.NoError(t, l.Initialize())
	require.NoError(t, l.WriteOne(succeeded("/data/photos/a.jpg", "id", "sum")))
	require.NoError(t, l.Abort())

	assert.NoFileExists(t, path)
}

func TestParseOutputType(t *testing.T) {
	tests := []struct {
		in      string
		want    OutputType
		wantErr bool
	}{
		{"Csv", OutputCSV, false},
		{"csv", OutputCSV, false},
		{"PhotoSql", OutputPhotoSQL, false},
		{"videosql", OutputVideoSQL, false},
		{"YAML", OutputYAML, false},
		{"Json", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseOutputType(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseOutputType() error = %v, wantErr %v", err, tt.wantErr)
			}
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := NewFormat(OutputType("Json"))
	assert.Equal(t, appErrors.ErrorTypeConfiguration, appErrors.GetErrorType(err))
}
