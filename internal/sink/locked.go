package sink

import (
	"errors"
	"os"
	"sync"

	"glacier-backup/internal/backup"
	appErrors "glacier-backup/internal/errors"
)

// LockedSink serialises access to a sink so outcomes can be streamed from
// concurrent workers as they complete
type LockedSink struct {
	mu   sync.Mutex
	sink Sink
}

// NewLocked wraps s
func NewLocked(s Sink) *LockedSink {
	return &LockedSink{sink: s}
}

func (l *LockedSink) Initialize() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.sink.Initialize()
}

func (l *LockedSink) WriteOne(outcome *backup.UploadOutcome) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.sink.WriteOne(outcome)
}

func (l *LockedSink) Finalize() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.sink.Finalize()
}

func (l *LockedSink) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.sink.Close()
}

// Abort closes the sink and removes the partially written file, if the
// wrapped sink is file backed
func (l *LockedSink) Abort() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	closeErr := l.sink.Close()

	p, ok := l.sink.(interface{ Path() string })
	if !ok {
		return closeErr
	}
	if err := os.Remove(p.Path()); err != nil && !errors.Is(err, os.ErrNotExist) {
		return appErrors.NewOutputError("failed to remove partial output", err)
	}
	return closeErr
}
