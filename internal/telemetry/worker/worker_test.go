package worker

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/segmentio/kafka-go"

	"github.com/rustpranker/callapp/internal/logging"
)

// scriptedReader returns queued messages/errors, then cancels the run and blocks until ctx is done.
type scriptedReader struct {
	steps  []step
	cancel context.CancelFunc
}

type step struct {
	msg kafka.Message
	err error
}

func (r *scriptedReader) ReadMessage(ctx context.Context) (kafka.Message, error) {
	if len(r.steps) == 0 {
		r.cancel()
		<-ctx.Done()
		return kafka.Message{}, ctx.Err()
	}
	s := r.steps[0]
	r.steps = r.steps[1:]
	return s.msg, s.err
}

type mockPusher struct {
	mu    sync.Mutex
	lines []string
	fail  map[string]bool
}

func (p *mockPusher) PushEventJSON(ctx context.Context, raw []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.fail[string(raw)] {
		return errors.New("loki unavailable")
	}
	p.lines = append(p.lines, string(raw))
	return nil
}

func TestRun(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	r := &scriptedReader{
		cancel: cancel,
		steps: []step{
			{msg: kafka.Message{Value: []byte(`{"id":"1"}`)}},
			{err: errors.New("rebalance")},
			{msg: kafka.Message{Value: []byte(`{"id":"2"}`)}},
			{msg: kafka.Message{Value: []byte(`{"id":"3"}`)}},
		},
	}
	p := &mockPusher{fail: map[string]bool{`{"id":"2"}`: true}}

	pushed := Run(ctx, r, p, logging.Discard())
	if pushed != 2 {
		t.Errorf("pushed = %d, want 2", pushed)
	}
	if len(p.lines) != 2 || p.lines[0] != `{"id":"1"}` || p.lines[1] != `{"id":"3"}` {
		t.Errorf("lines = %v", p.lines)
	}
}

func TestRun_StopsWhenCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	r := &scriptedReader{cancel: func() {}}
	if pushed := Run(ctx, r, &mockPusher{}, logging.Discard()); pushed != 0 {
		t.Errorf("pushed = %d, want 0", pushed)
	}
}
