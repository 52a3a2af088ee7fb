package bus

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/yungbote/coursegen-backend/internal/platform/envutil"
	"github.com/yungbote/coursegen-backend/internal/platform/logger"
)

type redisBus struct {
	log     *logger.Logger
	rdb     goredis.UniversalClient
	channel string
}

func NewRedisBus(log *logger.Logger) (Bus, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	addr := envutil.String("REDIS_ADDR", "")
	if addr == "" {
		return nil, fmt.Errorf("missing REDIS_ADDR")
	}
	rdb := goredis.NewClient(&goredis.Options{
		Addr:        addr,
		Password:    envutil.String("REDIS_PASSWORD", ""),
		DialTimeout: 5 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return newRedisBus(log, rdb, envutil.String("REDIS_CHANNEL", "job-status")), nil
}

func newRedisBus(log *logger.Logger, rdb goredis.UniversalClient, channel string) *redisBus {
	return &redisBus{
		log:     log.With("service", "RedisStatusBus"),
		rdb:     rdb,
		channel: channel,
	}
}

func (b *redisBus) Publish(ctx context.Context, ev StatusEvent) error {
	if b == nil || b.rdb == nil {
		return fmt.Errorf("redis status bus not initialized")
	}
	raw, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	if err := b.rdb.Publish(ctx, b.channel, raw).Err(); err != nil {
		return fmt.Errorf("redis publish %s: %w", ev.Channel, err)
	}
	b.log.Debug("job status published", "channel", ev.Channel, "status", ev.Status.Status)
	return nil
}

func (b *redisBus) Close() error {
	if b == nil || b.rdb == nil {
		return nil
	}
	return b.rdb.Close()
}
