// Package application wires discovery, the upload orchestrator and the
// result sink into a single backup run.
package application

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"glacier-backup/internal/backup"
	"glacier-backup/internal/config"
	"glacier-backup/internal/discovery"
	"glacier-backup/internal/display"
	appErrors "glacier-backup/internal/errors"
	"glacier-backup/internal/logging"
	"glacier-backup/internal/sink"
	"glacier-backup/internal/uploader"
)

// Application represents one configured backup run
type Application struct {
	cfg      *config.Config
	logger   *logging.Logger
	uploader uploader.Uploader
	out      io.Writer
	colors   display.ColorSystem
	stats    backup.StatsSnapshot
}

// Option customises an Application
type Option func(*Application)

// WithUploader replaces the uploader built from the configuration
func WithUploader(up uploader.Uploader) Option {
	return func(app *Application) {
		app.uploader = up
	}
}

// WithLogger replaces the logger built from the configuration
func WithLogger(logger *logging.Logger) Option {
	return func(app *Application) {
		app.logger = logger
	}
}

// WithOutput sets where the run summary is printed
func WithOutput(w io.Writer) Option {
	return func(app *Application) {
		app.out = w
	}
}

// NewApplication validates cfg and builds the services a run needs
func NewApplication(ctx context.Context, cfg *config.Config, opts ...Option) (*Application, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	app := &Application{cfg: cfg, out: os.Stdout}
	for _, opt := range opts {
		opt(app)
	}

	if app.logger == nil {
		logCfg, err := cfg.LoggerConfig()
		if err != nil {
			return nil, err
		}
		logger, err := logging.NewLogger(logCfg)
		if err != nil {
			return nil, appErrors.NewConfigurationError("failed to create logger", err)
		}
		app.logger = logger
	}
	app.logger = app.logger.WithRunID("")

	if app.uploader == nil {
		up, err := uploader.NewUploader(ctx, cfg.UploaderConfig())
		if err != nil {
			return nil, fmt.Errorf("failed to create uploader: %w", err)
		}
		app.uploader = up
	}

	app.colors = display.NewColorSystem(display.DarkColorTheme(), !cfg.NoColor)
	return app, nil
}

// Run performs the backup. SIGINT and SIGTERM cancel it; outcomes gathered
// before the signal are still written.
func (app *Application) Run(ctx context.Context) (err error) {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	ctx = logging.CreateContextWithRunID(ctx, app.logger.RunID())
	done := app.logger.LogOperationStart("backup", map[string]interface{}{
		"vault":       app.cfg.Vault,
		"region":      app.cfg.Region,
		"backup_type": string(app.cfg.BackupType),
		"source":      app.cfg.Source,
		"output":      app.cfg.OutputPath,
	})
	defer func() { done(err) }()

	strategy, err := discovery.New(app.cfg.BackupType, app.cfg.Vault, app.cfg.AssetMarker)
	if err != nil {
		return err
	}
	targets := backup.Targets(strategy.FindFiles(ctx, app.cfg.Source), app.cfg.RelativeRoot)

	opts := app.cfg.OrchestratorOptions()

	var streamed *sink.LockedSink
	if app.cfg.Stream {
		fileSink, err := sink.New(app.cfg.OutputType, app.cfg.OutputPath)
		if err != nil {
			return err
		}
		streamed = sink.NewLocked(fileSink)
		if err := streamed.Initialize(); err != nil {
			// never remove a file this run did not create
			if errors.Is(err, os.ErrExist) {
				_ = streamed.Close()
			} else {
				_ = streamed.Abort()
			}
			return err
		}
		opts.OnOutcome = streamed.WriteOne
	}

	orchestrator, err := backup.NewOrchestrator(app.uploader, app.logger, opts)
	if err != nil {
		if streamed != nil {
			_ = streamed.Abort()
		}
		return err
	}

	app.logger.Infof("Backing up %s to vault %s in %s", app.cfg.Source, app.cfg.Vault, app.cfg.Region)
	outcomes, runErr := orchestrator.Run(ctx, targets)
	app.stats = orchestrator.Stats().Snapshot()

	if runErr != nil && appErrors.GetErrorType(runErr) != appErrors.ErrorTypeInterruption {
		if streamed != nil {
			if abortErr := streamed.Abort(); abortErr != nil {
				app.logger.WithField("error", abortErr.Error()).Warn("Unable to remove partial output")
			}
		}
		return runErr
	}

	if err := app.writeOutput(streamed, outcomes); err != nil {
		return err
	}

	if err := display.NewSummary(app.out, app.colors).Print(app.stats, outcomes); err != nil {
		app.logger.WithField("error", err.Error()).Warn("Unable to print summary")
	}

	if runErr != nil {
		app.logger.Warnf("Run interrupted; %d outcomes written to %s", len(outcomes), app.cfg.OutputPath)
	}
	return runErr
}

func (app *Application) writeOutput(streamed *sink.LockedSink, outcomes []*backup.UploadOutcome) error {
	if streamed != nil {
		finalizeErr := streamed.Finalize()
		closeErr := streamed.Close()
		return errors.Join(finalizeErr, closeErr)
	}

	fileSink, err := sink.New(app.cfg.OutputType, app.cfg.OutputPath)
	if err != nil {
		return err
	}
	return sink.Write(fileSink, outcomes)
}

// Stats returns the counters of the last run
func (app *Application) Stats() backup.StatsSnapshot {
	return app.stats
}

// GetLogger returns the application logger
func (app *Application) GetLogger() *logging.Logger {
	return app.logger
}

// Close releases the uploader and the log file
func (app *Application) Close() error {
	var errs []error
	if c, ok := app.uploader.(io.Closer); ok {
		errs = append(errs, c.Close())
	}
	errs = append(errs, app.logger.Close())
	return errors.Join(errs...)
}
