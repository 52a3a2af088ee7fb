package bus

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/yungbote/coursegen-backend/internal/domain"
	"github.com/yungbote/coursegen-backend/internal/platform/logger"
)

type recordingBus struct {
	mu     sync.Mutex
	events []StatusEvent
	err    error
}

func (r *recordingBus) Publish(_ context.Context, ev StatusEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
	return r.err
}

func (r *recordingBus) Close() error { return nil }

func TestForwardPublishesOnJobChannel(t *testing.T) {
	rec := &recordingBus{}
	fwd := Forward(logger.Nop(), rec)
	fwd(domain.ProcessingStatus{ID: "abc", Status: domain.JobProcessing, Progress: 20})

	if len(rec.events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(rec.events))
	}
	ev := rec.events[0]
	if ev.Channel != "job:abc" || ev.Status.Progress != 20 || ev.SentAt.IsZero() {
		t.Fatalf("unexpected event: %+v", ev)
	}
}

func TestForwardSwallowsPublishErrors(t *testing.T) {
	rec := &recordingBus{err: errors.New("down")}
	Forward(nil, rec)(domain.ProcessingStatus{ID: "x"})
	if len(rec.events) != 1 {
		t.Fatalf("publish not attempted")
	}
}

func TestLogBus(t *testing.T) {
	b := NewLogBus(nil)
	if err := b.Publish(context.Background(), StatusEvent{Channel: "job:1"}); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if err := b.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
}
