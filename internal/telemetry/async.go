package telemetry

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/rustpranker/callapp/internal/telemetry/domain"
)

// emitTimeout is the max time allowed for a single async emit.
const emitTimeout = 5 * time.Second

// Async emits events in the background so request handlers are never blocked.
// Drain waits for in-flight emits on shutdown.
type Async struct {
	emitter EventEmitter
	log     *logrus.Entry
	timeout time.Duration
	wg      sync.WaitGroup
}

// NewAsync wraps emitter. A nil emitter makes Emit a no-op.
func NewAsync(emitter EventEmitter, log *logrus.Entry) *Async {
	return &Async{emitter: emitter, log: log, timeout: emitTimeout}
}

// Emit sends event from a goroutine with its own timeout, detached from the caller's context.
// Errors are logged.
func (a *Async) Emit(event *domain.Event) {
	if a == nil || a.emitter == nil || event == nil {
		return
	}
	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), a.timeout)
		defer cancel()
		if err := a.emitter.Emit(ctx, event); err != nil {
			a.log.WithError(err).WithField("event_type", event.Type).Warn("telemetry emit failed")
		}
	}()
}

// Drain blocks until all in-flight emits finish or ctx is done.
func (a *Async) Drain(ctx context.Context) error {
	if a == nil {
		return nil
	}
	done := make(chan struct{})
	go func() {
		a.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
