// Package pipeline runs the upload-to-course job: extraction, synthesis and persistence, reporting
// every step through the status registry.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"unicode/utf8"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/yungbote/coursegen-backend/internal/data/repos"
	"github.com/yungbote/coursegen-backend/internal/domain"
	"github.com/yungbote/coursegen-backend/internal/ingestion/extractor"
	"github.com/yungbote/coursegen-backend/internal/jobs/status"
	"github.com/yungbote/coursegen-backend/internal/learning/synth"
	"github.com/yungbote/coursegen-backend/internal/platform/clock"
	"github.com/yungbote/coursegen-backend/internal/platform/ctxutil"
	"github.com/yungbote/coursegen-backend/internal/platform/envutil"
	"github.com/yungbote/coursegen-backend/internal/platform/logger"
	"github.com/yungbote/coursegen-backend/internal/platform/observability"
)

type TextExtractor interface {
	Extract(ctx context.Context, doc extractor.Document) (string, error)
}

type CourseSynthesizer interface {
	SynthesizeCourse(ctx context.Context, text, title string) (synth.GeneratedCourse, error)
}

// PayloadSource loads upload payloads kept in object storage.
type PayloadSource interface {
	Get(ctx context.Context, key string) ([]byte, error)
}

type Config struct {
	// MinTextChars is the smallest extracted text, in characters, worth synthesizing.
	MinTextChars int
}

func ConfigFromEnv() Config {
	return Config{MinTextChars: envutil.Int("MIN_TEXT_CHARS", 100)}
}

type Pipeline struct {
	log       *logger.Logger
	registry  *status.Registry
	uploads   repos.UploadRepo
	courses   repos.CourseRepo
	modules   repos.ModuleRepo
	extractor TextExtractor
	synth     CourseSynthesizer
	payloads  PayloadSource
	clock     clock.Clock
	cfg       Config

	wg sync.WaitGroup
}

func New(
	baseLog *logger.Logger,
	registry *status.Registry,
	uploads repos.UploadRepo,
	courses repos.CourseRepo,
	modules repos.ModuleRepo,
	ex TextExtractor,
	sy CourseSynthesizer,
	payloads PayloadSource,
	clk clock.Clock,
	cfg Config,
) *Pipeline {
	if clk == nil {
		clk = clock.Real()
	}
	if cfg.MinTextChars <= 0 {
		cfg.MinTextChars = 100
	}
	return &Pipeline{
		log:       baseLog.With("job", "course_design"),
		registry:  registry,
		uploads:   uploads,
		courses:   courses,
		modules:   modules,
		extractor: ex,
		synth:     sy,
		payloads:  payloads,
		clock:     clk,
		cfg:       cfg,
	}
}

type runContext struct {
	ctx      context.Context
	ownerID  string
	upload   *domain.Upload
	text     string
	course   synth.GeneratedCourse
	courseID string
}

// Trigger starts a job for an upload owned by ownerID. An unknown upload returns domain.ErrNotFound
// without touching the registry; a job already processing returns status.ErrJobActive. The run is
// detached from ctx and reports only through the registry.
func (p *Pipeline) Trigger(ctx context.Context, ownerID, uploadID string) (domain.ProcessingStatus, error) {
	up, err := p.uploads.Get(ctx, ownerID, uploadID)
	if err != nil {
		return domain.ProcessingStatus{}, err
	}
	st, err := p.registry.Begin(up.ID)
	if err != nil {
		return st, err
	}

	runCtx := context.WithoutCancel(ctx)
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		p.run(&runContext{ctx: runCtx, ownerID: ownerID, upload: up})
	}()
	return st, nil
}

// Wait blocks until every started run has reached a terminal state.
func (p *Pipeline) Wait() { p.wg.Wait() }

func (p *Pipeline) run(rc *runContext) {
	ctx, span := observability.Tracer().Start(rc.ctx, "pipeline.course_design",
		trace.WithAttributes(
			attribute.String("upload.id", rc.upload.ID),
			attribute.String("upload.type", string(rc.upload.Type)),
		))
	defer span.End()
	rc.ctx = ctx
	log := p.log.With(append([]any{"job_id", rc.upload.ID, "user_id", rc.ownerID}, ctxutil.LogFields(rc.ctx)...)...)

	defer func() {
		if r := recover(); r != nil {
			err := fmt.Errorf("panic: %v", r)
			log.Error("course design panicked", "error", err)
			span.RecordError(err)
			span.SetStatus(codes.Error, "panic")
			p.registry.Fail(rc.upload.ID, "Processing failed: internal error")
		}
	}()

	stages := []struct {
		name string
		fn   func(*runContext) error
	}{
		{"extract", p.stageExtract},
		{"synthesize", p.stageSynthesize},
		{"persist", p.stagePersist},
	}
	for _, s := range stages {
		if err := p.timed(rc, s.name, s.fn); err != nil {
			log.Warn("course design failed", "stage", s.name, "error", err)
			span.RecordError(err)
			span.SetStatus(codes.Error, s.name)
			p.registry.Fail(rc.upload.ID, failureMessage(rc.upload.Type, err))
			return
		}
	}

	// The course id is only exposed once modules and course are stored.
	p.registry.Complete(rc.upload.ID, rc.courseID, "Course created! ID: "+rc.courseID)
	span.SetAttributes(attribute.String("course.id", rc.courseID))
	log.Info("course design complete", "course_id", rc.courseID, "modules", len(rc.course.Modules))
}

func (p *Pipeline) timed(rc *runContext, stage string, fn func(*runContext) error) error {
	ctx, span := observability.Tracer().Start(rc.ctx, "pipeline."+stage)
	defer span.End()
	parent := rc.ctx
	rc.ctx = ctx
	defer func() { rc.ctx = parent }()

	start := p.clock.Now()
	err := fn(rc)
	result := "ok"
	if err != nil {
		result = "error"
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	observability.Current().ObserveJobStage(stage, result, p.clock.Now().Sub(start))
	return err
}

func (p *Pipeline) stageExtract(rc *runContext) error {
	p.registry.Advance(rc.upload.ID, 20, extractingMessage(rc.upload.Type))

	payload := rc.upload.Payload
	if len(payload) == 0 && rc.upload.StorageKey != "" {
		if p.payloads == nil {
			return fmt.Errorf("upload payload stored at %q but no payload store is configured", rc.upload.StorageKey)
		}
		b, err := p.payloads.Get(rc.ctx, rc.upload.StorageKey)
		if err != nil {
			return fmt.Errorf("load upload payload: %w", err)
		}
		payload = b
	}

	text, err := p.extractor.Extract(rc.ctx, extractor.Document{
		Type:        rc.upload.Type,
		Payload:     payload,
		ContentType: rc.upload.ContentType,
	})
	if err != nil {
		return err
	}
	text = strings.TrimSpace(text)
	if n := utf8.RuneCountInString(text); n < p.cfg.MinTextChars {
		return &tooShortError{chars: n, min: p.cfg.MinTextChars}
	}
	rc.text = text
	p.registry.Advance(rc.upload.ID, 30, "Analyzing document structure...")
	return nil
}

func (p *Pipeline) stageSynthesize(rc *runContext) error {
	course, err := p.synth.SynthesizeCourse(rc.ctx, rc.text, rc.upload.Title)
	if err != nil {
		return err
	}
	if len(course.Modules) == 0 {
		return errors.New("synthesis produced no modules")
	}
	rc.course = course
	p.registry.Advance(rc.upload.ID, 70, fmt.Sprintf("Saving %d modules...", len(course.Modules)))
	return nil
}

func (p *Pipeline) stagePersist(rc *runContext) (err error) {
	course := rc.course.Course
	course.UserID = rc.ownerID
	course.UploadID = rc.upload.ID
	course.Progress = 0

	// Modules written before a failure are removed so a failed run leaves nothing behind.
	var written []string
	defer func() {
		if err != nil {
			p.discardModules(rc, written)
		}
	}()

	for i := range rc.course.Modules {
		m := rc.course.Modules[i]
		m.UserID = rc.ownerID
		m.CourseID = course.ID
		if err := p.modules.Create(rc.ctx, &m); err != nil {
			return fmt.Errorf("save module %d: %w", i+1, err)
		}
		written = append(written, m.ID)
	}
	p.registry.Advance(rc.upload.ID, 90, "Finalizing course...")
	if err := p.courses.Create(rc.ctx, &course); err != nil {
		return fmt.Errorf("save course: %w", err)
	}
	rc.courseID = course.ID
	return nil
}

func (p *Pipeline) discardModules(rc *runContext, ids []string) {
	for _, id := range ids {
		if err := p.modules.Delete(rc.ctx, rc.ownerID, id); err != nil {
			p.log.Warn("discard module failed", "job_id", rc.upload.ID, "module_id", id, "error", err)
		}
	}
}
