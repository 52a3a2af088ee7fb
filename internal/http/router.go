package http

import (
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	httpH "github.com/yungbote/coursegen-backend/internal/http/handlers"
	httpMW "github.com/yungbote/coursegen-backend/internal/http/middleware"
	"github.com/yungbote/coursegen-backend/internal/platform/logger"
	"github.com/yungbote/coursegen-backend/internal/platform/observability"
)

const serviceName = "coursegen-backend"

type RouterConfig struct {
	Log            *logger.Logger
	Metrics        *observability.Metrics
	CORSOrigins    []string
	AuthMiddleware *httpMW.AuthMiddleware

	UploadHandler *httpH.UploadHandler
	JobHandler    *httpH.JobHandler
	CourseHandler *httpH.CourseHandler
	ModuleHandler *httpH.ModuleHandler

	HealthHandler *httpH.HealthHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(otelgin.Middleware(serviceName))
	r.Use(httpMW.AttachTraceContext())
	r.Use(httpMW.RequestLogger(cfg.Log))
	r.Use(httpMW.Metrics(cfg.Metrics, "/healthcheck", "/metrics"))
	r.Use(httpMW.CORS(cfg.CORSOrigins))

	// Health
	if cfg.HealthHandler != nil {
		r.GET("/healthcheck", cfg.HealthHandler.HealthCheck)
	}
	if cfg.Metrics != nil {
		r.GET("/metrics", gin.WrapH(cfg.Metrics.Handler()))
	}

	api := r.Group("/api")
	{
		if cfg.AuthMiddleware != nil {
			api.Use(cfg.AuthMiddleware.Identify())
		}

		// Uploads + processing
		if cfg.UploadHandler != nil {
			api.POST("/upload", cfg.UploadHandler.Upload)
		}
		if cfg.JobHandler != nil {
			api.POST("/design-course/:uploadId", cfg.JobHandler.DesignCourse)
			api.GET("/processing/:jobId", cfg.JobHandler.GetProcessing)
		}

		// Courses
		if cfg.CourseHandler != nil {
			api.GET("/courses", cfg.CourseHandler.ListUserCourses)
			api.GET("/courses/:courseId", cfg.CourseHandler.GetCourse)
			api.GET("/courses/:courseId/export/:format", cfg.CourseHandler.Export)
		}

		// Modules
		if cfg.ModuleHandler != nil {
			mod := api.Group("/courses/:courseId/modules/:moduleId")
			mod.POST("/generate-quiz", cfg.ModuleHandler.GenerateQuiz)
			mod.POST("/generate-flashcards", cfg.ModuleHandler.GenerateFlashcards)
			mod.POST("/quiz", cfg.ModuleHandler.SubmitQuiz)
			mod.POST("/progress", cfg.ModuleHandler.UpdateProgress)
		}
	}

	return r
}
