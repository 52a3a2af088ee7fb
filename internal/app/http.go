package app

import (
	apphttp "github.com/yungbote/coursegen-backend/internal/http"
	httpH "github.com/yungbote/coursegen-backend/internal/http/handlers"
	httpMW "github.com/yungbote/coursegen-backend/internal/http/middleware"
	"github.com/yungbote/coursegen-backend/internal/platform/logger"
	"github.com/yungbote/coursegen-backend/internal/platform/observability"
)

type Middleware struct {
	Auth *httpMW.AuthMiddleware
}

type Handlers struct {
	Health *httpH.HealthHandler
	Upload *httpH.UploadHandler
	Job    *httpH.JobHandler
	Course *httpH.CourseHandler
	Module *httpH.ModuleHandler
}

func wireMiddleware(log *logger.Logger, cfg Config) Middleware {
	log.Info("Wiring middleware...")
	return Middleware{
		Auth: httpMW.NewAuthMiddleware(log, httpMW.AuthConfig{
			JWTSecret:     cfg.JWTSecret,
			DefaultUserID: cfg.DefaultUserID,
		}),
	}
}

func wireHandlers(log *logger.Logger, cfg Config, clients *Clients, svc Services) Handlers {
	log.Info("Wiring handlers...")
	return Handlers{
		Health: httpH.NewHealthHandler(clients.Checks),
		Upload: httpH.NewUploadHandler(log, svc.Upload, cfg.MaxUploadBytes),
		Job:    httpH.NewJobHandler(log, svc.Job),
		Course: httpH.NewCourseHandler(log, svc.Course, svc.Study),
		Module: httpH.NewModuleHandler(log, svc.Study),
	}
}

// wireServer mounts /metrics on the API router unless a separate metrics address is configured.
func wireServer(log *logger.Logger, cfg Config, h Handlers, mw Middleware, metrics *observability.Metrics) *apphttp.Server {
	routerMetrics := metrics
	if cfg.MetricsAddr != "" {
		routerMetrics = nil
	}
	return apphttp.NewServer(apphttp.RouterConfig{
		Log:            log,
		Metrics:        routerMetrics,
		CORSOrigins:    cfg.CORSOrigins,
		AuthMiddleware: mw.Auth,
		UploadHandler:  h.Upload,
		JobHandler:     h.Job,
		CourseHandler:  h.Course,
		ModuleHandler:  h.Module,
		HealthHandler:  h.Health,
	}, cfg.Addr())
}
