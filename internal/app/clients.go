package app

import (
	"context"
	"fmt"

	"github.com/yungbote/coursegen-backend/internal/data/db"
	"github.com/yungbote/coursegen-backend/internal/data/docstore"
	httpH "github.com/yungbote/coursegen-backend/internal/http/handlers"
	"github.com/yungbote/coursegen-backend/internal/platform/clock"
	"github.com/yungbote/coursegen-backend/internal/platform/envutil"
	"github.com/yungbote/coursegen-backend/internal/platform/gcp"
	"github.com/yungbote/coursegen-backend/internal/platform/llm"
	"github.com/yungbote/coursegen-backend/internal/platform/logger"
	"github.com/yungbote/coursegen-backend/internal/realtime/bus"
)

type Clients struct {
	Store  docstore.Store
	Bucket *gcp.PayloadBucket
	Bus    bus.Bus
	LLM    *llm.Client
	Checks map[string]httpH.HealthCheck

	closers []func() error
}

func (c *Clients) onClose(fn func() error) {
	c.closers = append(c.closers, fn)
}

func (c *Clients) Close(log *logger.Logger) {
	for i := len(c.closers) - 1; i >= 0; i-- {
		if err := c.closers[i](); err != nil && log != nil {
			log.Warn("client close failed", "error", err)
		}
	}
	c.closers = nil
}

func wireClients(ctx context.Context, log *logger.Logger, cfg Config, clk clock.Clock) (*Clients, error) {
	log.Info("Wiring clients...")
	c := &Clients{Checks: map[string]httpH.HealthCheck{}}

	store, err := wireStore(ctx, log, cfg, c)
	if err != nil {
		c.Close(log)
		return nil, err
	}
	c.Store = store

	// Gcs
	bucket, err := gcp.NewPayloadBucket(ctx, log)
	if err != nil {
		c.Close(log)
		return nil, fmt.Errorf("init payload bucket: %w", err)
	}
	if bucket != nil {
		c.Bucket = bucket
		c.onClose(bucket.Close)
	}

	// Redis
	if envutil.String("REDIS_ADDR", "") != "" {
		b, err := bus.NewRedisBus(log)
		if err != nil {
			c.Close(log)
			return nil, fmt.Errorf("init redis status bus: %w", err)
		}
		c.Bus = b
	} else {
		c.Bus = bus.NewLogBus(log)
	}
	c.onClose(c.Bus.Close)

	// Model endpoint
	model, err := llm.New(log, cfg.LLM, clk)
	if err != nil {
		c.Close(log)
		return nil, fmt.Errorf("init model client: %w", err)
	}
	c.LLM = model
	return c, nil
}

func wireStore(ctx context.Context, log *logger.Logger, cfg Config, c *Clients) (docstore.Store, error) {
	switch cfg.DocstoreBackend {
	case BackendMemory, "":
		log.Warn("using in-memory document store; data is lost on restart")
		return docstore.NewMemory(), nil
	case BackendPostgres:
		pg, err := db.NewPostgresService(log)
		if err != nil {
			return nil, fmt.Errorf("init postgres: %w", err)
		}
		c.onClose(pg.Close)
		c.Checks["postgres"] = pg.Ping
		if err := db.AutoMigrateAll(pg.DB()); err != nil {
			return nil, fmt.Errorf("postgres automigrate: %w", err)
		}
		return docstore.NewGorm(pg.DB()), nil
	case BackendSQLite:
		lite, err := db.NewSQLiteService(log, cfg.SQLitePath)
		if err != nil {
			return nil, fmt.Errorf("init sqlite: %w", err)
		}
		c.onClose(lite.Close)
		c.Checks["sqlite"] = lite.Ping
		if err := db.AutoMigrateAll(lite.DB()); err != nil {
			return nil, fmt.Errorf("sqlite automigrate: %w", err)
		}
		return docstore.NewGorm(lite.DB()), nil
	case BackendFirestore:
		if cfg.FirestoreProjectID == "" {
			return nil, fmt.Errorf("missing FIRESTORE_PROJECT_ID")
		}
		client, err := docstore.NewFirestoreClient(ctx, cfg.FirestoreProjectID, gcp.ClientOptionsFromEnv()...)
		if err != nil {
			return nil, fmt.Errorf("init firestore: %w", err)
		}
		c.onClose(client.Close)
		return docstore.NewFirestore(client), nil
	default:
		return nil, fmt.Errorf("unknown DOCSTORE_BACKEND %q", cfg.DocstoreBackend)
	}
}
