package cmd

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"glacier-backup/internal/config"
)

const sampleConfigHeader = `glacier-backup configuration file
Place it at $HOME/.glacier-backup.yaml or pass it with --config.
Flags and GLACIER_BACKUP_* environment variables override these values.
The positional arguments are always given on the command line.`

// createConfigCommand creates the config subcommand for generating sample config
func createConfigCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Generate a sample configuration file",
		Long: `Generate a sample configuration file that can be used with the --config flag.

Examples:
  # Generate a config file in the default location
  glacier-backup config > ~/.glacier-backup.yaml`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return writeSampleConfig(cmd.OutOrStdout(), config.Default())
		},
	}
}

func writeSampleConfig(w io.Writer, cfg *config.Config) error {
	var doc yaml.Node
	if err := doc.Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode sample config: %w", err)
	}
	doc.HeadComment = sampleConfigHeader

	// durations read better in their string form
	setScalar(&doc, "base_wait", cfg.BaseWait.String())
	comment(&doc, "backend", "glacier, s3, gcs or azure")
	comment(&doc, "classify_errors", "stop retrying errors that cannot succeed on retry")
	comment(&doc, "asset_marker", "empty derives it from the vault name: src, or raw for video vaults")
	comment(&doc, "part_size", "Glacier multipart part size, a power of two MiB")

	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(&doc); err != nil {
		return fmt.Errorf("failed to write sample config: %w", err)
	}
	return enc.Close()
}

func lookup(mapping *yaml.Node, key string) (*yaml.Node, *yaml.Node) {
	if mapping.Kind != yaml.MappingNode {
		return nil, nil
	}
	for i := 0; i+1 < len(mapping.Content); i += 2 {
		if mapping.Content[i].Value == key {
			return mapping.Content[i], mapping.Content[i+1]
		}
	}
	return nil, nil
}

func setScalar(mapping *yaml.Node, key, value string) {
	if _, v := lookup(mapping, key); v != nil {
		v.Kind = yaml.ScalarNode
		v.Tag = "!!str"
		v.Value = value
	}
}

func comment(mapping *yaml.Node, key, text string) {
	if _, v := lookup(mapping, key); v != nil {
		v.LineComment = text
	}
}
