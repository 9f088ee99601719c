package sink

import (
	"fmt"
	"io"

	"glacier-backup/internal/backup"
)

const (
	pgsqlPreamble  = "DO\n$$\nBEGIN\n\n"
	pgsqlPostamble = "\nEND\n$$\n"
)

// PgSQLFormat writes a PL/pgSQL block that links each archived asset to its
// Glacier archive. Values are inlined without escaping, so descriptions
// containing quotes produce invalid SQL.
type PgSQLFormat struct {
	Table      string
	PathColumn string
	PathPrefix string
}

// PhotoSQLFormat updates photo.photo rows by source path
func PhotoSQLFormat() PgSQLFormat {
	return PgSQLFormat{Table: "photo.photo", PathColumn: "src_path", PathPrefix: "/images/"}
}

// VideoSQLFormat updates video.video rows by raw path
func VideoSQLFormat() PgSQLFormat {
	return PgSQLFormat{Table: "video.video", PathColumn: "raw_path", PathPrefix: "/movies/"}
}

func (f PgSQLFormat) Header(w io.Writer) error {
	_, err := io.WriteString(w, pgsqlPreamble)
	return err
}

// Record skips outcomes without an archive
func (f PgSQLFormat) Record(w io.Writer, o *backup.UploadOutcome) error {
	if !o.Succeeded() {
		return nil
	}
	_, err := fmt.Fprintf(w,
		"    UPDATE %s \n"+
			"       SET aws_glacier_vault_id = (SELECT id FROM aws.glacier_vault WHERE region = '%s' AND vault_name = '%s'),\n"+
			"           aws_archive_id = '%s',\n"+
			"           aws_treehash = '%s'\n"+
			"     WHERE %s = '%s%s';\n"+
			"\n",
		f.Table,
		o.Region, o.Vault,
		o.ArchiveID(),
		o.Checksum(),
		f.PathColumn, f.PathPrefix, o.Description(),
	)
	return err
}

func (f PgSQLFormat) Trailer(w io.Writer) error {
	_, err := io.WriteString(w, pgsqlPostamble)
	return err
}
