package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"glacier-backup/internal/application"
	"glacier-backup/internal/backup"
	"glacier-backup/internal/config"
	appErrors "glacier-backup/internal/errors"
	"glacier-backup/internal/uploader"
)

const envPrefix = "GLACIER_BACKUP"

// rootCmd represents the base command when called without any subcommands
var rootCmd = newRootCmd(viper.New())

// Execute runs the CLI and exits with the code matching the outcome.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	err := rootCmd.ExecuteContext(context.Background())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", appErrors.FormatUserError(err))
	}
	os.Exit(appErrors.ExitCode(err))
}

func newRootCmd(v *viper.Viper) *cobra.Command {
	var (
		cfgFile string
		verbose bool
		quiet   bool
	)

	cmd := &cobra.Command{
		Use:   "glacier-backup <credential-profile> <region> <vault-name> <backup-type> <backup-source> <relative-root> <output-type> <output-file> [<credentials-file>]",
		Short: "Back up local files to cold archival storage and record the archive IDs",
		Long: `glacier-backup discovers local files, uploads each one to an archival vault
under a description derived from its path, and writes the resulting archive IDs
and tree hashes to an output file for reconciliation with a catalogue database.

Examples:
  # Archive every original photo asset and produce a SQL update script
  glacier-backup backup us-east-1 photos Assets /srv/photos /srv PhotoSql photos.sql

  # Archive a single video using a specific credentials file
  glacier-backup backup us-west-2 videos File /srv/videos/2020/trip/raw/a.mp4 /srv VideoSql out.sql ~/.aws/backup-creds

  # Archive the files listed in a manifest to S3 Deep Archive, streaming a CSV
  glacier-backup --backend=s3 --stream backup us-east-1 my-bucket List files.txt "" Csv out.csv`,
		Args: func(cmd *cobra.Command, args []string) error {
			if len(args) != config.PositionalArgs && len(args) != config.PositionalArgs+1 {
				_ = cmd.Usage()
				return appErrors.NewUsageError(fmt.Sprintf("expected %d or %d arguments, got %d",
					config.PositionalArgs, config.PositionalArgs+1, len(args)))
			}
			return nil
		},
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return initConfig(v, cfgFile)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := buildConfig(v, args, verbose, quiet)
			if err != nil {
				return err
			}
			return runBackup(cmd.Context(), cfg, cmd.OutOrStdout())
		},
		SilenceErrors: true,
		SilenceUsage:  true,
	}

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.glacier-backup.yaml)")

	flags := cmd.Flags()
	flags.String("backend", string(uploader.BackendGlacier), "archival backend (glacier, s3, gcs, azure)")
	flags.Int("concurrency", 0, "number of concurrent uploads (default one less than the available CPUs)")
	flags.Int("max-attempts", backup.DefaultMaxAttempts, "upload attempts per file before giving up")
	flags.Duration("base-wait", backup.DefaultBaseWait, "wait after the first failed attempt, multiplied by the attempt number")
	flags.Bool("jitter", false, "randomise the wait between attempts")
	flags.Bool("stream", false, "write each result as soon as its upload finishes")
	flags.Bool("classify-errors", false, "stop retrying errors that cannot succeed on retry")
	flags.String("asset-marker", "", "directory name holding original assets (default derived from the vault name)")
	flags.Int64("part-size", uploader.DefaultPartSize, "Glacier multipart part size in bytes (power of two MiB)")
	flags.Int64("multipart-threshold", uploader.DefaultMultipartThreshold, "file size from which Glacier multipart upload is used")
	flags.String("gcs-project", "", "Google Cloud project billed for GCS requests")
	flags.String("azure-account", "", "Azure storage account name")
	flags.String("azure-key", "", "Azure storage account key")
	flags.String("log-level", "normal", "log level (quiet, normal, verbose, debug)")
	flags.String("log-format", "text", "log format (text, json)")
	flags.String("log-file", "", "also write logs to this file")
	flags.Bool("no-color", false, "disable color output")
	flags.BoolVarP(&verbose, "verbose", "v", false, "enable verbose output")
	flags.BoolVarP(&quiet, "quiet", "q", false, "suppress non-error output")
	cmd.MarkFlagsMutuallyExclusive("verbose", "quiet")

	for key, flag := range map[string]string{
		"backend":             "backend",
		"concurrency":         "concurrency",
		"max_attempts":        "max-attempts",
		"base_wait":           "base-wait",
		"jitter":              "jitter",
		"stream":              "stream",
		"classify_errors":     "classify-errors",
		"asset_marker":        "asset-marker",
		"part_size":           "part-size",
		"multipart_threshold": "multipart-threshold",
		"gcs.project_id":      "gcs-project",
		"azure.account_name":  "azure-account",
		"azure.account_key":   "azure-key",
		"log.level":           "log-level",
		"log.format":          "log-format",
		"log.file":            "log-file",
		"no_color":            "no-color",
	} {
		cobra.CheckErr(v.BindPFlag(key, flags.Lookup(flag)))
	}

	cmd.SetFlagErrorFunc(func(cmd *cobra.Command, err error) error {
		_ = cmd.Usage()
		return appErrors.NewUsageError(err.Error())
	})
	cmd.SetUsageTemplate(getUsageTemplate())

	cmd.AddCommand(createVersionCommand())
	cmd.AddCommand(createConfigCommand())
	return cmd
}

// initConfig reads in config file and ENV variables if set.
func initConfig(v *viper.Viper, cfgFile string) error {
	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err == nil {
			v.AddConfigPath(home)
		}
		v.AddConfigPath(".")
		v.SetConfigType("yaml")
		v.SetConfigName(".glacier-backup")
	}

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok && cfgFile == "" {
			return nil
		}
		return appErrors.NewConfigurationError("failed to read config file", err).
			WithUserMessage(fmt.Sprintf("Unable to read config file: %v", err))
	}
	return nil
}

// buildConfig merges the config file, environment, flags and positional
// arguments into one configuration
func buildConfig(v *viper.Viper, args []string, verbose, quiet bool) (*config.Config, error) {
	cfg := &config.Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, appErrors.NewConfigurationError("failed to unmarshal configuration", err)
	}
	cfg.SetDefaults()

	switch {
	case verbose:
		cfg.Log.Level = "verbose"
	case quiet:
		cfg.Log.Level = "quiet"
	}

	if err := cfg.ApplyArgs(args); err != nil {
		return nil, err
	}
	return cfg, nil
}

func runBackup(ctx context.Context, cfg *config.Config, out io.Writer) (err error) {
	app, err := application.NewApplication(ctx, cfg, application.WithOutput(out))
	if err != nil {
		return err
	}
	defer func() {
		if cerr := app.Close(); cerr != nil && err == nil {
			app.GetLogger().Warnf("Unable to release resources: %v", cerr)
		}
	}()

	return app.Run(ctx)
}

// getUsageTemplate returns a custom usage template describing the arguments
func getUsageTemplate() string {
	return `Usage:{{if .Runnable}}
  {{.UseLine}}{{end}}{{if .HasAvailableSubCommands}}
  {{.CommandPath}} [command]{{end}}{{if .HasExample}}

Examples:
{{.Example}}{{end}}{{if .HasAvailableSubCommands}}

Available Commands:{{range .Commands}}{{if (or .IsAvailableCommand (eq .Name "help"))}}
  {{rpad .Name .NamePadding }} {{.Short}}{{end}}{{end}}{{end}}{{if .Runnable}}

Arguments:
  credential-profile  name of the profile in your AWS credentials file
  region              region of the vault (i.e. us-east-1, us-west-2)
  vault-name          name of the already created vault (or bucket / container)
  backup-type         one of the following:
                        Full:   every file in the specified directory or below
                        Assets: every file inside asset directories ('src' for
                                photos, 'raw' for videos)
                        File:   an individual file
                        List:   every file named in the specified file (1 per line)
  backup-source       file or directory containing the files to back up
  relative-root       starting part of the path removed to build the archive description
  output-type         type of file to generate:
                        PhotoSql: SQL update script for photos
                        VideoSql: SQL update script for videos
                        Csv:      generic CSV file
                        Yaml:     YAML list of results
  output-file         file to write; it must not already exist
  credentials-file    optional AWS shared credentials file{{end}}{{if .HasAvailableLocalFlags}}

Flags:
{{.LocalFlags.FlagUsages | trimTrailingWhitespaces}}{{end}}{{if .HasAvailableInheritedFlags}}

Global Flags:
{{.InheritedFlags.FlagUsages | trimTrailingWhitespaces}}{{end}}{{if .HasAvailableSubCommands}}

Use "{{.CommandPath}} [command] --help" for more information about a command.{{end}}

Environment Variables:
  Every flag can be set with the prefix ` + envPrefix + `_, for example
    ` + envPrefix + `_BACKEND=s3
    ` + envPrefix + `_MAX_ATTEMPTS=5
    ` + envPrefix + `_LOG_LEVEL=verbose

Exit Codes:
  0  success
  1  wrong number of arguments
  2  invalid configuration
  3  the run failed or was interrupted
`
}

// Version information (set by main package)
var (
	version   = "dev"
	buildTime = "unknown"
	gitCommit = "unknown"
	goVersion = "unknown"
)

// SetVersionInfo sets the version information from build flags
func SetVersionInfo(v, bt, gc, gv string) {
	version = v
	buildTime = bt
	gitCommit = gc
	goVersion = gv
}

// createVersionCommand creates the version subcommand
func createVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version information",
		Long:  "Print the version information for glacier-backup",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "glacier-backup version %s\n", version)
			fmt.Fprintf(out, "Built: %s\n", buildTime)
			fmt.Fprintf(out, "Commit: %s\n", gitCommit)
			fmt.Fprintf(out, "Go version: %s\n", goVersion)
		},
	}
}
