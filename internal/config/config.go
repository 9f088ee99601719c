// Package config holds the settings of a backup run and validates them
// before any upload starts.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"glacier-backup/internal/backup"
	"glacier-backup/internal/discovery"
	appErrors "glacier-backup/internal/errors"
	"glacier-backup/internal/logging"
	"glacier-backup/internal/sink"
	"glacier-backup/internal/uploader"
)

// PositionalArgs is the number of required command-line arguments; a ninth,
// the shared credentials file, is optional
const PositionalArgs = 8

// Config is the complete configuration of one run
type Config struct {
	// Run arguments
	Profile         string           `mapstructure:"-" yaml:"-"`
	Region          string           `mapstructure:"-" yaml:"-"`
	Vault           string           `mapstructure:"-" yaml:"-"`
	BackupType      discovery.Kind   `mapstructure:"-" yaml:"-"`
	Source          string           `mapstructure:"-" yaml:"-"`
	RelativeRoot    string           `mapstructure:"-" yaml:"-"`
	OutputType      sink.OutputType  `mapstructure:"-" yaml:"-"`
	OutputPath      string           `mapstructure:"-" yaml:"-"`
	CredentialsFile string           `mapstructure:"-" yaml:"-"`
	BackendType     uploader.Backend `mapstructure:"-" yaml:"-"`

	// Tuning
	Backend            string        `mapstructure:"backend" yaml:"backend"`
	Concurrency        int           `mapstructure:"concurrency" yaml:"concurrency"`
	MaxAttempts        int           `mapstructure:"max_attempts" yaml:"max_attempts"`
	BaseWait           time.Duration `mapstructure:"base_wait" yaml:"base_wait"`
	Jitter             bool          `mapstructure:"jitter" yaml:"jitter"`
	Stream             bool          `mapstructure:"stream" yaml:"stream"`
	ClassifyErrors     bool          `mapstructure:"classify_errors" yaml:"classify_errors"`
	AssetMarker        string        `mapstructure:"asset_marker" yaml:"asset_marker"`
	PartSize           int64         `mapstructure:"part_size" yaml:"part_size"`
	MultipartThreshold int64         `mapstructure:"multipart_threshold" yaml:"multipart_threshold"`
	NoColor            bool          `mapstructure:"no_color" yaml:"no_color"`

	Log   LogConfig   `mapstructure:"log" yaml:"log"`
	GCS   GCSConfig   `mapstructure:"gcs" yaml:"gcs"`
	Azure AzureConfig `mapstructure:"azure" yaml:"azure"`
}

// LogConfig configures logging
type LogConfig struct {
	Level  string `mapstructure:"level" yaml:"level"`
	Format string `mapstructure:"format" yaml:"format"`
	File   string `mapstructure:"file" yaml:"file"`
}

// GCSConfig configures the Google Cloud Storage backend
type GCSConfig struct {
	ProjectID string `mapstructure:"project_id" yaml:"project_id"`
}

// AzureConfig configures the Azure Blob Storage backend
type AzureConfig struct {
	AccountName string `mapstructure:"account_name" yaml:"account_name"`
	AccountKey  string `mapstructure:"account_key" yaml:"account_key"`
}

// Default returns a configuration with every tuning default applied
func Default() *Config {
	c := &Config{}
	c.SetDefaults()
	return c
}

// SetDefaults fills in unset tuning values
func (c *Config) SetDefaults() {
	if c.Backend == "" {
		c.Backend = string(uploader.BackendGlacier)
	}
	if c.Concurrency <= 0 {
		c.Concurrency = backup.DefaultConcurrency()
	}
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = backup.DefaultMaxAttempts
	}
	if c.BaseWait <= 0 {
		c.BaseWait = backup.DefaultBaseWait
	}
	if c.PartSize == 0 {
		c.PartSize = uploader.DefaultPartSize
	}
	if c.MultipartThreshold == 0 {
		c.MultipartThreshold = uploader.DefaultMultipartThreshold
	}
	c.Log.SetDefaults()
}

// SetDefaults sets default values for logging
func (lc *LogConfig) SetDefaults() {
	if lc.Level == "" {
		lc.Level = string(logging.LogLevelNormal)
	}
	if lc.Format == "" {
		lc.Format = "text"
	}
}

// ApplyArgs copies the positional command-line arguments into c
func (c *Config) ApplyArgs(args []string) error {
	if len(args) != PositionalArgs && len(args) != PositionalArgs+1 {
		return appErrors.NewUsageError(fmt.Sprintf("expected %d or %d arguments, got %d", PositionalArgs, PositionalArgs+1, len(args)))
	}

	c.Profile = args[0]
	c.Region = args[1]
	c.Vault = args[2]
	c.BackupType = discovery.Kind(args[3])
	c.Source = args[4]
	c.RelativeRoot = args[5]
	c.OutputType = sink.OutputType(args[6])
	c.OutputPath = args[7]
	if len(args) == PositionalArgs+1 {
		c.CredentialsFile = args[8]
	}
	return nil
}

// Validate checks the configuration in the order an operator would fix it.
// Backup and output types are normalised in place.
func (c *Config) Validate() error {
	backend, err := uploader.ParseBackend(c.Backend)
	if err != nil {
		return err
	}
	c.BackendType = backend

	if backend.UsesAWSCredentials() {
		if _, err := uploader.LoadCredentials(c.Profile, c.CredentialsFile); err != nil {
			return appErrors.NewCredentialsError(
				fmt.Sprintf("unable to obtain credentials for profile [%s]", c.Profile), err).
				WithUserMessage(fmt.Sprintf("Unable to obtain credentials for profile [%s].  Please make sure this is properly configured in ~/.aws/credentials.", c.Profile))
		}
		if err := uploader.ValidateRegion(c.Region); err != nil {
			return appErrors.NewConfigurationError(fmt.Sprintf("unknown region %s", c.Region), err).
				WithUserMessage(fmt.Sprintf("The specified region [%s] was unknown!  Please select a valid region.", c.Region))
		}
	}

	if c.Vault == "" {
		return appErrors.NewConfigurationError("vault name is required", nil).
			WithUserMessage("Please specify the name of the vault to back up to.")
	}

	kind, err := discovery.ParseKind(string(c.BackupType))
	if err != nil {
		return appErrors.NewConfigurationError("invalid backup type", err).
			WithUserMessage("Please specify a valid backup type [Full, Assets, File, List].")
	}
	c.BackupType = kind

	if err := c.validateSource(); err != nil {
		return err
	}
	if err := c.validateRelativeRoot(); err != nil {
		return err
	}

	outputType, err := sink.ParseOutputType(string(c.OutputType))
	if err != nil {
		return appErrors.NewConfigurationError("invalid output type", err).
			WithUserMessage("Please specify a valid output type [PhotoSql, VideoSql, Csv, Yaml].")
	}
	c.OutputType = outputType

	if _, err := os.Stat(c.OutputPath); err == nil {
		return appErrors.NewConfigurationError(fmt.Sprintf("output file %s already exists", c.OutputPath), os.ErrExist).
			WithUserMessage("Output file already exists - exiting!")
	} else if !errors.Is(err, os.ErrNotExist) {
		return appErrors.NewConfigurationError(fmt.Sprintf("unable to check output file %s", c.OutputPath), err)
	}

	return c.validateTuning()
}

func (c *Config) validateSource() error {
	info, err := os.Stat(c.Source)
	exists := err == nil

	switch {
	case c.BackupType == discovery.KindFile && !(exists && info.Mode().IsRegular()):
		return appErrors.NewConfigurationError(fmt.Sprintf("backup file %s does not exist", c.Source), err).
			WithUserMessage(fmt.Sprintf("The specified backup file [%s] does not exist.  Please enter a valid file path to backup.", c.Source))
	case c.BackupType.RequiresDirectory() && !(exists && info.IsDir()):
		return appErrors.NewConfigurationError(fmt.Sprintf("backup directory %s does not exist", c.Source), err).
			WithUserMessage(fmt.Sprintf("The specified backup directory [%s] does not exist.  Please enter a valid directory path to backup.", c.Source))
	case c.BackupType == discovery.KindList && !(exists && info.Mode().IsRegular()):
		return appErrors.NewConfigurationError(fmt.Sprintf("list file %s does not exist", c.Source), err).
			WithUserMessage(fmt.Sprintf("The specified file containing the list of files to backup [%s] does not exist.  Please enter a valid path to the list file.", c.Source))
	}
	return nil
}

func (c *Config) validateRelativeRoot() error {
	if c.BackupType == discovery.KindList {
		return nil
	}
	if len(c.RelativeRoot) > len(c.Source) {
		return appErrors.NewConfigurationError("relative root is longer than the backup source", nil).
			WithUserMessage("The relative_root path should be the starting part of the path to the backup to remove, such that the remaining path is tracked as the archive description.")
	}
	if !strings.HasPrefix(c.Source, c.RelativeRoot) {
		return appErrors.NewConfigurationError("relative root is not a prefix of the backup source", nil).
			WithUserMessage("The relative_root should exactly match the same starting path to the backup_source.")
	}
	return nil
}

func (c *Config) validateTuning() error {
	var errs []error

	if c.Concurrency <= 0 {
		errs = append(errs, fmt.Errorf("concurrency must be positive, got %d", c.Concurrency))
	}
	if c.MaxAttempts <= 0 {
		errs = append(errs, fmt.Errorf("max_attempts must be positive, got %d", c.MaxAttempts))
	}
	if c.BaseWait < 0 {
		errs = append(errs, fmt.Errorf("base_wait must not be negative, got %s", c.BaseWait))
	}
	if c.BackendType == uploader.BackendGlacier {
		if err := uploader.ValidatePartSize(c.PartSize); err != nil {
			errs = append(errs, err)
		}
		if c.MultipartThreshold < c.PartSize {
			errs = append(errs, fmt.Errorf("multipart_threshold must be at least part_size"))
		}
	}
	if _, err := logging.ParseLevel(c.Log.Level); err != nil {
		errs = append(errs, err)
	}
	if c.Log.Format != "text" && c.Log.Format != "json" {
		errs = append(errs, fmt.Errorf("invalid log format '%s', must be text or json", c.Log.Format))
	}

	if len(errs) > 0 {
		return appErrors.NewConfigurationError("invalid settings", errors.Join(errs...)).
			WithUserMessage(fmt.Sprintf("Invalid settings: %v", errors.Join(errs...)))
	}
	return nil
}

// UploaderConfig returns the settings needed to build the uploader
func (c *Config) UploaderConfig() uploader.Config {
	return uploader.Config{
		Backend:            c.BackendType,
		Region:             c.Region,
		Profile:            c.Profile,
		CredentialsFile:    c.CredentialsFile,
		PartSize:           c.PartSize,
		MultipartThreshold: c.MultipartThreshold,
		GCSProjectID:       c.GCS.ProjectID,
		AzureAccountName:   c.Azure.AccountName,
		AzureAccountKey:    c.Azure.AccountKey,
	}
}

// OrchestratorOptions returns the settings of the upload phase
func (c *Config) OrchestratorOptions() backup.Options {
	return backup.Options{
		Region:         c.Region,
		Vault:          c.Vault,
		Concurrency:    c.Concurrency,
		MaxAttempts:    c.MaxAttempts,
		BaseWait:       c.BaseWait,
		Jitter:         c.Jitter,
		ClassifyErrors: c.ClassifyErrors,
	}
}

// LoggerConfig returns the logger settings
func (c *Config) LoggerConfig() (logging.Config, error) {
	level, err := logging.ParseLevel(c.Log.Level)
	if err != nil {
		return logging.Config{}, appErrors.NewConfigurationError("invalid log level", err)
	}
	return logging.Config{
		Level:   level,
		Format:  c.Log.Format,
		LogFile: c.Log.File,
	}, nil
}
