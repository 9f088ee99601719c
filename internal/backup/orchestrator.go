package backup

import (
	"context"
	"fmt"
	"iter"
	"runtime"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"golang.org/x/sync/errgroup"

	appErrors "glacier-backup/internal/errors"
	"glacier-backup/internal/logging"
	"glacier-backup/internal/uploader"
)

// DefaultMaxAttempts is the number of upload attempts per file
const DefaultMaxAttempts = 3

// DefaultConcurrency leaves one processor for discovery and output
func DefaultConcurrency() int {
	return max(1, runtime.GOMAXPROCS(0)-1)
}

// Options configures an Orchestrator
type Options struct {
	Region         string
	Vault          string
	Concurrency    int
	MaxAttempts    int
	BaseWait       time.Duration
	Jitter         bool
	ClassifyErrors bool

	// OnOutcome, if set, receives every outcome as it completes. Calls are
	// serialised. A returned error aborts the run.
	OnOutcome func(*UploadOutcome) error
}

// Orchestrator uploads backup targets with bounded concurrency and retries
type Orchestrator struct {
	uploader   uploader.Uploader
	logger     *logging.Logger
	opts       Options
	newBackOff func() backoff.BackOff
	classifier *appErrors.ErrorClassifier
	stats      *RunStats
}

// NewOrchestrator validates opts and fills in defaults
func NewOrchestrator(up uploader.Uploader, logger *logging.Logger, opts Options) (*Orchestrator, error) {
	if up == nil {
		return nil, appErrors.NewConfigurationError("uploader is required", nil)
	}
	if opts.Vault == "" {
		return nil, appErrors.NewConfigurationError("vault name is required", nil)
	}
	if opts.BaseWait < 0 {
		return nil, appErrors.NewConfigurationError(fmt.Sprintf("base wait must not be negative, got %s", opts.BaseWait), nil)
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = DefaultConcurrency()
	}
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = DefaultMaxAttempts
	}
	if opts.BaseWait == 0 {
		opts.BaseWait = DefaultBaseWait
	}
	if logger == nil {
		logger = logging.NewDefaultLogger()
	}

	return &Orchestrator{
		uploader:   up,
		logger:     logger,
		opts:       opts,
		newBackOff: newBackOffFunc(opts.BaseWait, opts.Jitter, opts.MaxAttempts),
		classifier: appErrors.NewErrorClassifier(),
		stats:      NewRunStats(),
	}, nil
}

// Stats returns the run counters
func (o *Orchestrator) Stats() *RunStats {
	return o.stats
}

// Options returns the effective options
func (o *Orchestrator) Options() Options {
	return o.opts
}

// Run uploads every target and returns one outcome per processed target, in
// completion order.
//
// A discovery error or an OnOutcome error aborts the run and is returned. If
// ctx is cancelled the outcomes gathered so far are returned together with an
// interruption error.
func (o *Orchestrator) Run(ctx context.Context, targets iter.Seq2[BackupTarget, error]) ([]*UploadOutcome, error) {
	defer o.stats.finish()

	var (
		mu       sync.Mutex
		outcomes []*UploadOutcome
	)
	collect := func(outcome *UploadOutcome) error {
		mu.Lock()
		defer mu.Unlock()
		outcomes = append(outcomes, outcome)
		o.stats.recordOutcome(outcome)
		if o.opts.OnOutcome != nil {
			if err := o.opts.OnOutcome(outcome); err != nil {
				return appErrors.WrapError(err, "failed to record outcome")
			}
		}
		return nil
	}

	g, gctx := errgroup.WithContext(ctx)
	work := make(chan BackupTarget)

	g.Go(func() error {
		defer close(work)
		for target, err := range targets {
			if err != nil {
				if appErrors.GetErrorType(err) != appErrors.ErrorTypeDiscovery {
					err = appErrors.NewDiscoveryError("file discovery failed", err)
				}
				return err
			}
			if gctx.Err() != nil {
				return nil
			}
			select {
			case work <- target:
			case <-gctx.Done():
				return nil
			}
		}
		return nil
	})

	for range o.opts.Concurrency {
		g.Go(func() error {
			for target := range work {
				if gctx.Err() != nil {
					continue
				}
				if err := collect(o.process(gctx, target)); err != nil {
					return err
				}
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return outcomes, err
	}
	if err := ctx.Err(); err != nil {
		return outcomes, appErrors.NewInterruptionError("backup run was interrupted", err)
	}
	return outcomes, nil
}

type uploadState int

const (
	stateAttempting uploadState = iota
	stateBackoff
	stateDone
	stateFailed
)

// process drives one target through the retry state machine
func (o *Orchestrator) process(ctx context.Context, target BackupTarget) *UploadOutcome {
	start := time.Now()
	description := target.Description()
	outcome := &UploadOutcome{
		Region: o.opts.Region,
		Vault:  o.opts.Vault,
		Target: target,
	}
	policy := o.newBackOff()

	attempt := 1
	state := stateAttempting
	for {
		switch state {
		case stateAttempting:
			if err := ctx.Err(); err != nil {
				outcome.Err = err
				outcome.Interrupted = true
				state = stateFailed
				continue
			}

			outcome.Attempts = attempt
			o.stats.recordAttempt(attempt)
			o.logger.LogUploadAttempt(description, attempt)

			result, err := o.uploader.Upload(ctx, o.opts.Vault, description, target.FullPath)
			if err == nil {
				outcome.Result = result
				outcome.Err = nil
				state = stateDone
				continue
			}

			outcome.Err = err
			o.logger.LogUploadFailure(description, attempt, err)

			switch {
			case ctx.Err() != nil:
				outcome.Interrupted = true
				state = stateFailed
			case o.opts.ClassifyErrors && !o.classifier.ClassifyError(err).IsRecoverable():
				state = stateFailed
			default:
				state = stateBackoff
			}

		case stateBackoff:
			delay := policy.NextBackOff()
			if delay == backoff.Stop {
				state = stateFailed
				continue
			}
			if err := sleep(ctx, delay); err != nil {
				outcome.Interrupted = true
				state = stateFailed
				continue
			}
			attempt++
			state = stateAttempting

		case stateDone:
			outcome.Duration = time.Since(start)
			o.logger.LogUploadSucceeded(description, outcome.Result.ArchiveID, outcome.Duration)
			return outcome

		case stateFailed:
			outcome.Duration = time.Since(start)
			o.logger.LogUploadAbandoned(description, outcome.Attempts, outcome.Err)
			return outcome
		}
	}
}
