package sink

import (
	"io"

	"gopkg.in/yaml.v3"

	"glacier-backup/internal/backup"
)

type yamlRecord struct {
	Region      string `yaml:"region"`
	Vault       string `yaml:"vault_name"`
	FilePath    string `yaml:"file_path"`
	Description string `yaml:"glacier_description"`
	ArchiveID   string `yaml:"archive_id"`
	TreeHash    string `yaml:"treehash"`
	Location    string `yaml:"location,omitempty"`
	Size        int64  `yaml:"size,omitempty"`
	Attempts    int    `yaml:"attempts"`
	Error       string `yaml:"error,omitempty"`
	Interrupted bool   `yaml:"interrupted,omitempty"`
}

// YAMLFormat writes a YAML sequence with one mapping per outcome. A run
// without outcomes produces an empty sequence.
type YAMLFormat struct {
	records int
}

func (f *YAMLFormat) Header(io.Writer) error {
	return nil
}

func (f *YAMLFormat) Record(w io.Writer, o *backup.UploadOutcome) error {
	rec := yamlRecord{
		Region:      o.Region,
		Vault:       o.Vault,
		FilePath:    o.Target.FullPath,
		Description: o.Description(),
		ArchiveID:   o.ArchiveID(),
		TreeHash:    o.Checksum(),
		Attempts:    o.Attempts,
		Interrupted: o.Interrupted,
	}
	if o.Result != nil {
		rec.Location = o.Result.Location
		rec.Size = o.Result.Size
	}
	if o.Err != nil && !o.Succeeded() {
		rec.Error = o.Err.Error()
	}

	data, err := yaml.Marshal([]yamlRecord{rec})
	if err != nil {
		return err
	}
	if _, err := w.Write(data); err != nil {
		return err
	}
	f.records++
	return nil
}

func (f *YAMLFormat) Trailer(w io.Writer) error {
	if f.records > 0 {
		return nil
	}
	_, err := io.WriteString(w, "[]\n")
	return err
}
