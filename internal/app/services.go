package app

import (
	"github.com/yungbote/coursegen-backend/internal/ingestion/extractor"
	"github.com/yungbote/coursegen-backend/internal/jobs/pipeline"
	"github.com/yungbote/coursegen-backend/internal/jobs/status"
	"github.com/yungbote/coursegen-backend/internal/learning/synth"
	"github.com/yungbote/coursegen-backend/internal/platform/clock"
	"github.com/yungbote/coursegen-backend/internal/platform/logger"
	"github.com/yungbote/coursegen-backend/internal/realtime/bus"
	"github.com/yungbote/coursegen-backend/internal/services"
)

type Services struct {
	Registry *status.Registry
	Pipeline *pipeline.Pipeline

	Upload services.UploadService
	Job    services.JobService
	Course services.CourseService
	Study  services.StudyService
}

func wireServices(log *logger.Logger, cfg Config, clients *Clients, reposet Repos, clk clock.Clock) Services {
	log.Info("Wiring services...")

	registry := status.NewRegistry(clk)
	registry.Observe(bus.Forward(log, clients.Bus))

	synthesizer := synth.New(log, clients.LLM, clk, cfg.Synth)

	var (
		payloads pipeline.PayloadSource
		sink     services.PayloadSink
	)
	if clients.Bucket != nil {
		payloads = clients.Bucket
		sink = clients.Bucket
	}

	pl := pipeline.New(
		log,
		registry,
		reposet.Upload,
		reposet.Course,
		reposet.Module,
		extractor.New(log),
		synthesizer,
		payloads,
		clk,
		cfg.Pipeline,
	)

	return Services{
		Registry: registry,
		Pipeline: pl,
		Upload:   services.NewUploadService(log, reposet.Upload, registry, sink, clk, cfg.MaxUploadBytes),
		Job:      services.NewJobService(log, pl, registry),
		Course:   services.NewCourseService(log, reposet.Course, reposet.Module),
		Study:    services.NewStudyService(log, reposet.Course, reposet.Module, synthesizer, clk),
	}
}
