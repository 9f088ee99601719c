package backup

import (
	"context"
	"testing"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLinearBackOff(t *testing.T) {
	b := &LinearBackOff{Base: 5 * time.Second}
	assert.Equal(t, 5*time.Second, b.NextBackOff())
	assert.Equal(t, 10*time.Second, b.NextBackOff())
	assert.Equal(t, 15*time.Second, b.NextBackOff())

	b.Reset()
	assert.Equal(t, 5*time.Second, b.NextBackOff())
}

func TestJitteredBackOff(t *testing.T) {
	b := &JitteredBackOff{Base: time.Second}
	for retry := 1; retry <= 5; retry++ {
		d := b.NextBackOff()
		assert.GreaterOrEqual(t, d, time.Duration(0))
		assert.Less(t, d, time.Duration(retry)*time.Second)
	}

	zero := &JitteredBackOff{}
	assert.Equal(t, time.Duration(0), zero.NextBackOff())
}

func TestNewBackOffFuncStopsAfterMaxAttempts(t *testing.T) {
	newBackOff := newBackOffFunc(time.Second, false, 3)

	b := newBackOff()
	assert.Equal(t, time.Second, b.NextBackOff())
	assert.Equal(t, 2*time.Second, b.NextBackOff())
	assert.Equal(t, backoff.Stop, b.NextBackOff())

	// policies are independent per file
	assert.Equal(t, time.Second, newBackOff().NextBackOff())

	single := newBackOffFunc(time.Second, true, 1)()
	assert.Equal(t, backoff.Stop, single.NextBackOff())
}

func TestSleepCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	start := time.Now()
	err := sleep(ctx, time.Hour)
	require.ErrorIs(t, err, context.Canceled)
	assert.Less(t, time.Since(start), time.Second)

	assert.NoError(t, sleep(context.Background(), time.Millisecond))
	assert.ErrorIs(t, sleep(ctx, 0), context.Canceled)
}
