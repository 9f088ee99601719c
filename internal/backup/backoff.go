package backup

import (
	"context"
	"math/rand/v2"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// DefaultBaseWait is the unit of the retry delay
const DefaultBaseWait = 5 * time.Second

// LinearBackOff waits Base*n before retry n
type LinearBackOff struct {
	Base    time.Duration
	retries int
}

// NextBackOff returns the delay before the next attempt
func (b *LinearBackOff) NextBackOff() time.Duration {
	b.retries++
	return b.Base * time.Duration(b.retries)
}

// Reset restarts the sequence
func (b *LinearBackOff) Reset() {
	b.retries = 0
}

// JitteredBackOff waits a random duration in [0, Base) scaled by the retry
// number, spreading retries of files that failed together
type JitteredBackOff struct {
	Base    time.Duration
	retries int
}

func (b *JitteredBackOff) NextBackOff() time.Duration {
	b.retries++
	if b.Base <= 0 {
		return 0
	}
	return rand.N(b.Base) * time.Duration(b.retries)
}

func (b *JitteredBackOff) Reset() {
	b.retries = 0
}

// newBackOffFunc returns a constructor for per-file policies that stop after
// maxAttempts-1 retries
func newBackOffFunc(base time.Duration, jitter bool, maxAttempts int) func() backoff.BackOff {
	retries := uint64(max(0, maxAttempts-1))
	return func() backoff.BackOff {
		var b backoff.BackOff = &LinearBackOff{Base: base}
		if jitter {
			b = &JitteredBackOff{Base: base}
		}
		return backoff.WithMaxRetries(b, retries)
	}
}

// sleep waits for d or until ctx is done
func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
