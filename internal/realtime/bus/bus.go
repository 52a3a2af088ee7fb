// Package bus fans job status changes out to other processes.
package bus

import (
	"context"
	"time"

	"github.com/yungbote/coursegen-backend/internal/domain"
	"github.com/yungbote/coursegen-backend/internal/platform/logger"
)

// StatusEvent is the payload published for every job transition.
type StatusEvent struct {
	Channel string                  `json:"channel"`
	Status  domain.ProcessingStatus `json:"status"`
	SentAt  time.Time               `json:"sentAt"`
}

type Bus interface {
	Publish(ctx context.Context, ev StatusEvent) error
	Close() error
}

// JobChannel names the logical channel of one job.
func JobChannel(jobID string) string { return "job:" + jobID }

type logBus struct {
	log *logger.Logger
}

// NewLogBus returns a Bus that only logs.
func NewLogBus(log *logger.Logger) Bus {
	if log == nil {
		log = logger.Nop()
	}
	return &logBus{log: log.With("service", "LogStatusBus")}
}

func (b *logBus) Publish(_ context.Context, ev StatusEvent) error {
	b.log.Debug("job status", "channel", ev.Channel, "status", ev.Status.Status, "progress", ev.Status.Progress)
	return nil
}

func (b *logBus) Close() error { return nil }

// Forward returns a status observer that publishes each status on b. Publish failures are logged and dropped.
func Forward(log *logger.Logger, b Bus) func(domain.ProcessingStatus) {
	if log == nil {
		log = logger.Nop()
	}
	return func(st domain.ProcessingStatus) {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		ev := StatusEvent{Channel: JobChannel(st.ID), Status: st, SentAt: time.Now().UTC()}
		if err := b.Publish(ctx, ev); err != nil {
			log.Warn("publish job status failed", "job_id", st.ID, "error", err)
		}
	}
}
