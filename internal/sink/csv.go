package sink

import (
	"encoding/csv"
	"io"

	"glacier-backup/internal/backup"
)

var csvHeader = []string{"region", "vault_name", "file_path", "glacier_description", "archive_id", "treehash"}

// CSVFormat writes one row per outcome. Failed files have empty archive_id
// and treehash columns.
type CSVFormat struct{}

func (CSVFormat) Header(w io.Writer) error {
	return writeCSV(w, csvHeader)
}

func (CSVFormat) Record(w io.Writer, o *backup.UploadOutcome) error {
	return writeCSV(w, []string{
		o.Region,
		o.Vault,
		o.Target.FullPath,
		o.Description(),
		o.ArchiveID(),
		o.Checksum(),
	})
}

func (CSVFormat) Trailer(io.Writer) error {
	return nil
}

func writeCSV(w io.Writer, record []string) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(record); err != nil {
		return err
	}
	cw.Flush()
	return cw.Error()
}
