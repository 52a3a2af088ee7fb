package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"

	apphttp "github.com/yungbote/coursegen-backend/internal/http"
	"github.com/yungbote/coursegen-backend/internal/platform/clock"
	"github.com/yungbote/coursegen-backend/internal/platform/envutil"
	"github.com/yungbote/coursegen-backend/internal/platform/logger"
	"github.com/yungbote/coursegen-backend/internal/platform/observability"
)

type App struct {
	Log      *logger.Logger
	Cfg      Config
	Clients  *Clients
	Repos    Repos
	Services Services
	Server   *apphttp.Server
	Metrics  *observability.Metrics

	otelShutdown func(context.Context) error
}

func New(ctx context.Context) (*App, error) {
	if err := LoadEnvFiles(); err != nil {
		return nil, fmt.Errorf("load env: %w", err)
	}
	log, err := logger.New(envutil.String("LOG_MODE", "development"))
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	log.Info("Loading environment variables...")
	cfg := LoadConfig(log)

	otelShutdown := observability.InitOTel(ctx, log, observability.OtelConfig{
		ServiceName: "coursegen-backend",
		Environment: cfg.Environment,
		Version:     envutil.String("APP_VERSION", ""),
	})
	metrics := observability.Init(log)

	clk := clock.Real()
	clients, err := wireClients(ctx, log, cfg, clk)
	if err != nil {
		if otelShutdown != nil {
			_ = otelShutdown(ctx)
		}
		log.Sync()
		return nil, err
	}

	reposet := wireRepos(clients.Store, log)
	serviceset := wireServices(log, cfg, clients, reposet, clk)
	handlerset := wireHandlers(log, cfg, clients, serviceset)
	middleware := wireMiddleware(log, cfg)
	server := wireServer(log, cfg, handlerset, middleware, metrics)

	return &App{
		Log:          log,
		Cfg:          cfg,
		Clients:      clients,
		Repos:        reposet,
		Services:     serviceset,
		Server:       server,
		Metrics:      metrics,
		otelShutdown: otelShutdown,
	}, nil
}

// Run serves until ctx is canceled, then drains in-flight HTTP requests and course jobs.
func (a *App) Run(ctx context.Context) error {
	if a == nil || a.Server == nil {
		return fmt.Errorf("app not initialized")
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		a.Log.Info("HTTP server listening", "addr", a.Cfg.Addr())
		return a.Server.Run()
	})

	metricsSrv := a.metricsServer()
	if metricsSrv != nil {
		g.Go(func() error {
			a.Log.Info("metrics server listening", "addr", a.Cfg.MetricsAddr)
			if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		})
	}

	g.Go(func() error {
		<-gctx.Done()
		a.Log.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(gctx), a.Cfg.ShutdownGrace)
		defer cancel()
		if err := a.Server.Shutdown(shutdownCtx); err != nil {
			a.Log.Warn("http shutdown failed", "error", err)
		}
		if metricsSrv != nil {
			if err := observability.Shutdown(shutdownCtx, metricsSrv); err != nil {
				a.Log.Warn("metrics shutdown failed", "error", err)
			}
		}
		a.drainJobs(shutdownCtx)
		return nil
	})

	return g.Wait()
}

func (a *App) metricsServer() *http.Server {
	if a.Metrics == nil || a.Cfg.MetricsAddr == "" {
		return nil
	}
	return a.Metrics.Server(a.Cfg.MetricsAddr)
}

func (a *App) drainJobs(ctx context.Context) {
	if a.Services.Pipeline == nil {
		return
	}
	done := make(chan struct{})
	go func() {
		a.Services.Pipeline.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		a.Log.Warn("course jobs still running at shutdown deadline")
	}
}

func (a *App) Close() {
	if a == nil {
		return
	}
	if a.Clients != nil {
		a.Clients.Close(a.Log)
	}
	if a.otelShutdown != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := a.otelShutdown(ctx); err != nil && a.Log != nil {
			a.Log.Warn("otel shutdown failed", "error", err)
		}
		cancel()
	}
	if a.Log != nil {
		a.Log.Sync()
	}
}
