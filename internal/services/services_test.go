package services

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/yungbote/coursegen-backend/internal/data/docstore"
	"github.com/yungbote/coursegen-backend/internal/data/repos"
	"github.com/yungbote/coursegen-backend/internal/domain"
	"github.com/yungbote/coursegen-backend/internal/jobs/status"
	"github.com/yungbote/coursegen-backend/internal/platform/apierr"
	"github.com/yungbote/coursegen-backend/internal/platform/clock"
	"github.com/yungbote/coursegen-backend/internal/platform/ctxutil"
	"github.com/yungbote/coursegen-backend/internal/platform/llm"
	"github.com/yungbote/coursegen-backend/internal/platform/logger"
)

const testUser = "demo_user"

func userCtx(id string) context.Context {
	return ctxutil.WithRequestData(context.Background(), &ctxutil.RequestData{UserID: id})
}

type env struct {
	courses repos.CourseRepo
	modules repos.ModuleRepo
	uploads repos.UploadRepo
	clock   *clock.Fake
}

func newEnv() *env {
	store := docstore.NewMemory()
	log := logger.Nop()
	return &env{
		courses: repos.NewCourseRepo(store, log),
		modules: repos.NewModuleRepo(store, log),
		uploads: repos.NewUploadRepo(store, log),
		clock:   clock.NewFake(time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)),
	}
}

// seedCourse stores a course with n modules, each holding a four question quiz.
func (e *env) seedCourse(t *testing.T, owner string, n int) *domain.Course {
	t.Helper()
	ctx := context.Background()
	course := &domain.Course{ID: "course-" + owner, UserID: owner, Title: "C", Objectives: []string{}}
	for i := 0; i < n; i++ {
		id := course.ID + "-m" + string(rune('a'+i))
		m := &domain.Module{
			ID: id, CourseID: course.ID, UserID: owner, Title: "M", Content: "body",
			Quiz: domain.Quiz{ID: "quiz-" + id, Questions: []domain.Question{
				{ID: "q1", Question: "1?", CorrectAnswer: "a"},
				{ID: "q2", Question: "2?", CorrectAnswer: "b"},
				{ID: "q3", Question: "3?", CorrectAnswer: "c"},
				{ID: "q4", Question: "4?", CorrectAnswer: "d"},
			}},
			EstimatedTime: 300,
		}
		if err := e.modules.Create(ctx, m); err != nil {
			t.Fatalf("create module: %v", err)
		}
		course.ModuleIDs = append(course.ModuleIDs, id)
		course.EstimatedTime += m.EstimatedTime
	}
	if err := e.courses.Create(ctx, course); err != nil {
		t.Fatalf("create course: %v", err)
	}
	return course
}

func TestGrade(t *testing.T) {
	qs := []domain.Question{
		{ID: "a", CorrectAnswer: "x"},
		{ID: "b", CorrectAnswer: "y"},
		{ID: "c", CorrectAnswer: "z"},
		{ID: "d", CorrectAnswer: "w"},
	}
	got := Grade(qs, map[string]string{"a": "x", "b": "y", "c": "z", "d": "nope"})
	if got.Score != 75.0 || !got.Passed || got.Correct != 3 || got.Total != 4 {
		t.Fatalf("Grade = %+v", got)
	}

	empty := Grade(nil, map[string]string{"a": "x"})
	if empty.Score != 0 || empty.Passed || empty.Total != 0 {
		t.Fatalf("empty quiz = %+v", empty)
	}

	failing := Grade(qs, map[string]string{"a": "x", "b": "y", "c": "Z"})
	if failing.Score != 50 || failing.Passed {
		t.Fatalf("answers must match exactly: %+v", failing)
	}
}

type fakeSink struct {
	puts map[string][]byte
}

func (f *fakeSink) Key(owner, id string) string { return "uploads/" + owner + "/" + id }

func (f *fakeSink) Put(_ context.Context, key, _ string, data []byte) error {
	if f.puts == nil {
		f.puts = map[string][]byte{}
	}
	f.puts[key] = data
	return nil
}

func TestUploadService(t *testing.T) {
	e := newEnv()
	reg := status.NewRegistry(e.clock)
	svc := NewUploadService(logger.Nop(), e.uploads, reg, nil, e.clock, 1024)

	up, err := svc.Upload(userCtx(testUser), UploadInput{Type: "TEXT", Filename: "notes/paper.txt", Payload: []byte("hello world")})
	if err != nil {
		t.Fatalf("Upload: %v", err)
	}
	if up.Type != domain.DocumentText || up.Title != "paper" || up.UserID != testUser || string(up.Payload) != "hello world" {
		t.Fatalf("unexpected upload: %+v", up)
	}
	if st, ok := reg.Get(up.ID); !ok || st.Status != domain.JobUploaded || st.Progress != 0 {
		t.Fatalf("registry = %+v, %v", st, ok)
	}
	if _, err := e.uploads.Get(context.Background(), testUser, up.ID); err != nil {
		t.Fatalf("upload not stored: %v", err)
	}

	cases := []struct {
		name   string
		in     UploadInput
		status int
	}{
		{name: "bad type", in: UploadInput{Type: "docx", Payload: []byte("x")}, status: 400},
		{name: "empty", in: UploadInput{Type: "pdf"}, status: 400},
		{name: "too large", in: UploadInput{Type: "text", Payload: make([]byte, 2048)}, status: 413},
		{name: "bad url", in: UploadInput{Type: "url", Payload: []byte("ftp://example.com/x")}, status: 400},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Upload(userCtx(testUser), tc.in)
			if got := apierr.From(err).Status; got != tc.status {
				t.Fatalf("status = %d, want %d (%v)", got, tc.status, err)
			}
			if !errors.Is(err, domain.ErrInvalidArgument) {
				t.Fatalf("expected ErrInvalidArgument, got %v", err)
			}
		})
	}

	if _, err := svc.Upload(context.Background(), UploadInput{Type: "text", Payload: []byte("x")}); apierr.From(err).Status != 401 {
		t.Fatalf("missing identity should be 401, got %v", err)
	}
}

func TestUploadServiceDefaultType(t *testing.T) {
	e := newEnv()
	svc := NewUploadService(logger.Nop(), e.uploads, status.NewRegistry(e.clock), nil, e.clock, 0)
	cases := []struct {
		name string
		in   UploadInput
		want domain.DocumentType
	}{
		{name: "body text", in: UploadInput{Payload: []byte("plain notes")}, want: domain.DocumentText},
		{name: "body pdf bytes", in: UploadInput{Payload: []byte("%PDF-1.7 ...")}, want: domain.DocumentPDF},
		{name: "file", in: UploadInput{Filename: "scan.bin", Payload: []byte("\x00\x01")}, want: domain.DocumentPDF},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			up, err := svc.Upload(userCtx(testUser), tc.in)
			if err != nil {
				t.Fatalf("Upload: %v", err)
			}
			if up.Type != tc.want {
				t.Fatalf("type = %q, want %q", up.Type, tc.want)
			}
		})
	}
}

func TestUploadServiceUsesSink(t *testing.T) {
	e := newEnv()
	sink := &fakeSink{}
	svc := NewUploadService(logger.Nop(), e.uploads, status.NewRegistry(e.clock), sink, e.clock, 0)

	up, err := svc.Upload(userCtx(testUser), UploadInput{Type: "pdf", Title: "Paper", Payload: []byte("%PDF-1.4")})
	if err != nil {
		t.Fatalf("Upload: %v", err)
	}
	if up.StorageKey == "" || len(up.Payload) != 0 || string(sink.puts[up.StorageKey]) != "%PDF-1.4" {
		t.Fatalf("payload not externalised: %+v", up)
	}

	link, err := svc.Upload(userCtx(testUser), UploadInput{Type: "url", Payload: []byte(" https://example.com/a ")})
	if err != nil {
		t.Fatalf("Upload url: %v", err)
	}
	if link.StorageKey != "" || string(link.Payload) != "https://example.com/a" {
		t.Fatalf("url uploads stay inline: %+v", link)
	}
}

func TestCourseServiceGet(t *testing.T) {
	e := newEnv()
	course := e.seedCourse(t, testUser, 3)
	svc := NewCourseService(logger.Nop(), e.courses, e.modules)

	detail, err := svc.Get(userCtx(testUser), course.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if len(detail.Modules) != 3 {
		t.Fatalf("modules = %d", len(detail.Modules))
	}
	for i, m := range detail.Modules {
		if m.ID != course.ModuleIDs[i] {
			t.Fatalf("module %d out of order: %s", i, m.ID)
		}
	}

	if _, err := svc.Get(userCtx("intruder"), course.ID); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("foreign course should be not found, got %v", err)
	}
}

func TestCourseServiceGetSkipsDanglingModules(t *testing.T) {
	e := newEnv()
	ctx := context.Background()
	if err := e.modules.Create(ctx, &domain.Module{ID: "kept", CourseID: "dangling", UserID: testUser, Title: "K", Content: "c"}); err != nil {
		t.Fatalf("create module: %v", err)
	}
	if err := e.courses.Create(ctx, &domain.Course{ID: "dangling", UserID: testUser, ModuleIDs: []string{"ghost", "kept"}}); err != nil {
		t.Fatalf("create course: %v", err)
	}
	svc := NewCourseService(logger.Nop(), e.courses, e.modules)

	detail, err := svc.Get(userCtx(testUser), "dangling")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if len(detail.Modules) != 1 || detail.Modules[0].ID != "kept" {
		t.Fatalf("modules = %+v", detail.Modules)
	}
	if detail.Modules[0].Flashcards == nil || detail.Modules[0].Quiz.Questions == nil {
		t.Fatalf("study material should default to empty lists")
	}
}

func TestCourseServiceList(t *testing.T) {
	e := newEnv()
	e.seedCourse(t, testUser, 1)
	e.seedCourse(t, "someone", 1)
	svc := NewCourseService(logger.Nop(), e.courses, e.modules)

	list, err := svc.List(userCtx(testUser))
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(list) != 1 || list[0].UserID != testUser {
		t.Fatalf("List = %+v", list)
	}
}

type stubGenerator struct {
	quiz  domain.Quiz
	cards []domain.Flashcard
	err   error
}

func (s stubGenerator) GenerateQuiz(context.Context, string, string, string) (domain.Quiz, error) {
	return s.quiz, s.err
}

func (s stubGenerator) GenerateFlashcards(context.Context, string, string, string) ([]domain.Flashcard, error) {
	return s.cards, s.err
}

func TestStudySubmitQuiz(t *testing.T) {
	e := newEnv()
	course := e.seedCourse(t, testUser, 1)
	svc := NewStudyService(logger.Nop(), e.courses, e.modules, stubGenerator{}, e.clock)
	moduleID := course.ModuleIDs[0]

	res, err := svc.SubmitQuiz(userCtx(testUser), course.ID, moduleID, map[string]string{"q1": "a", "q2": "b", "q3": "c", "q4": "x"})
	if err != nil {
		t.Fatalf("SubmitQuiz: %v", err)
	}
	if res.Score != 75 || !res.Passed {
		t.Fatalf("result = %+v", res)
	}
	if _, err := svc.SubmitQuiz(userCtx(testUser), course.ID, moduleID, nil); err != nil {
		t.Fatalf("second SubmitQuiz: %v", err)
	}

	m, err := e.modules.Get(context.Background(), testUser, course.ID, moduleID)
	if err != nil {
		t.Fatalf("Get module: %v", err)
	}
	if m.Quiz.Attempts != 2 || m.Quiz.Score == nil || *m.Quiz.Score != 0 {
		t.Fatalf("quiz after attempts: %+v", m.Quiz)
	}

	if _, err := svc.SubmitQuiz(userCtx(testUser), course.ID, "not-in-course", nil); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestStudyGenerateQuizPersists(t *testing.T) {
	e := newEnv()
	course := e.seedCourse(t, testUser, 1)
	quiz := domain.Quiz{ID: "fresh", Questions: []domain.Question{{ID: "n1", Question: "New?", CorrectAnswer: "yes"}}}
	svc := NewStudyService(logger.Nop(), e.courses, e.modules, stubGenerator{quiz: quiz, cards: []domain.Flashcard{{ID: "f", Front: "F", Back: "B", Difficulty: 1}}}, e.clock)
	moduleID := course.ModuleIDs[0]

	got, err := svc.GenerateQuiz(userCtx(testUser), course.ID, moduleID)
	if err != nil {
		t.Fatalf("GenerateQuiz: %v", err)
	}
	if got.ID != "fresh" {
		t.Fatalf("quiz = %+v", got)
	}
	cards, err := svc.GenerateFlashcards(userCtx(testUser), course.ID, moduleID)
	if err != nil || len(cards) != 1 {
		t.Fatalf("GenerateFlashcards = %v, %v", cards, err)
	}

	m, _ := e.modules.Get(context.Background(), testUser, course.ID, moduleID)
	if m.Quiz.ID != "fresh" || len(m.Quiz.Questions) != 1 || len(m.Flashcards) != 1 {
		t.Fatalf("module not updated: %+v", m)
	}
}

func TestStudyGenerateSurfacesErrors(t *testing.T) {
	e := newEnv()
	course := e.seedCourse(t, testUser, 1)
	svc := NewStudyService(logger.Nop(), e.courses, e.modules, stubGenerator{err: context.DeadlineExceeded}, e.clock)
	if _, err := svc.GenerateQuiz(userCtx(testUser), course.ID, course.ModuleIDs[0]); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline error, got %v", err)
	}
}

func TestStudyGenerateRejectedCredentials(t *testing.T) {
	e := newEnv()
	course := e.seedCourse(t, testUser, 1)
	moduleID := course.ModuleIDs[0]
	before, err := e.modules.Get(context.Background(), testUser, course.ID, moduleID)
	if err != nil {
		t.Fatalf("Get module: %v", err)
	}
	svc := NewStudyService(logger.Nop(), e.courses, e.modules, stubGenerator{err: fmt.Errorf("%w: status 401", llm.ErrAuth)}, e.clock)

	_, err = svc.GenerateQuiz(userCtx(testUser), course.ID, moduleID)
	if !errors.Is(err, llm.ErrAuth) {
		t.Fatalf("expected ErrAuth, got %v", err)
	}
	if ae := apierr.From(err); ae.Status != 502 || ae.Code != "model_auth_failed" {
		t.Fatalf("api error = %d %q", ae.Status, ae.Code)
	}
	if _, err := svc.GenerateFlashcards(userCtx(testUser), course.ID, moduleID); apierr.From(err).Status != 502 {
		t.Fatalf("flashcards: %v", err)
	}

	after, _ := e.modules.Get(context.Background(), testUser, course.ID, moduleID)
	if after.Quiz.ID != before.Quiz.ID || len(after.Quiz.Questions) != len(before.Quiz.Questions) {
		t.Fatalf("stored quiz changed: %+v", after.Quiz)
	}
}

func TestStudyUpdateProgress(t *testing.T) {
	e := newEnv()
	course := e.seedCourse(t, testUser, 2)
	svc := NewStudyService(logger.Nop(), e.courses, e.modules, stubGenerator{}, e.clock)

	m, err := svc.UpdateProgress(userCtx(testUser), course.ID, course.ModuleIDs[0], ProgressInput{Completed: true, TimeSpent: 120})
	if err != nil {
		t.Fatalf("UpdateProgress: %v", err)
	}
	if !m.Completed || m.TimeSpent != 120 {
		t.Fatalf("module = %+v", m)
	}
	m, _ = svc.UpdateProgress(userCtx(testUser), course.ID, course.ModuleIDs[0], ProgressInput{Completed: true, TimeSpent: 30})
	if m.TimeSpent != 150 {
		t.Fatalf("time spent should accumulate, got %d", m.TimeSpent)
	}

	c, _ := e.courses.Get(context.Background(), testUser, course.ID)
	if c.Progress != 0.5 || c.UpdatedAt == nil {
		t.Fatalf("course progress = %v, updatedAt = %v", c.Progress, c.UpdatedAt)
	}

	if _, err := svc.UpdateProgress(userCtx(testUser), course.ID, course.ModuleIDs[0], ProgressInput{TimeSpent: -1}); apierr.From(err).Status != 400 {
		t.Fatalf("negative time should be rejected, got %v", err)
	}
}

func TestStudyExport(t *testing.T) {
	e := newEnv()
	course := e.seedCourse(t, testUser, 1)
	svc := NewStudyService(logger.Nop(), e.courses, e.modules, stubGenerator{}, e.clock)

	ack, err := svc.Export(userCtx(testUser), course.ID, "PPTX")
	if err != nil {
		t.Fatalf("Export: %v", err)
	}
	if ack.Format != "pptx" || ack.Message != "Export to pptx will start shortly" {
		t.Fatalf("ack = %+v", ack)
	}
	if _, err := svc.Export(userCtx(testUser), course.ID, "docx"); apierr.From(err).Status != 400 {
		t.Fatalf("unsupported format should be 400, got %v", err)
	}
	if _, err := svc.Export(userCtx(testUser), "missing", "pdf"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

type fakeTrigger struct {
	owner, upload string
}

func (f *fakeTrigger) Trigger(_ context.Context, owner, upload string) (domain.ProcessingStatus, error) {
	f.owner, f.upload = owner, upload
	return domain.ProcessingStatus{ID: upload, Status: domain.JobProcessing, Progress: 10}, nil
}

func TestJobService(t *testing.T) {
	e := newEnv()
	reg := status.NewRegistry(e.clock)
	trig := &fakeTrigger{}
	svc := NewJobService(logger.Nop(), trig, reg)

	st, err := svc.DesignCourse(userCtx(testUser), "u1")
	if err != nil || st.Status != domain.JobProcessing || trig.owner != testUser {
		t.Fatalf("DesignCourse = %+v, %v (owner %q)", st, err, trig.owner)
	}
	if _, err := svc.Status(context.Background(), "unknown"); apierr.From(err).Status != 404 {
		t.Fatalf("unknown job should be 404, got %v", err)
	}
	reg.Init("u2")
	if got, err := svc.Status(context.Background(), "u2"); err != nil || got.Status != domain.JobUploaded {
		t.Fatalf("Status = %+v, %v", got, err)
	}
}

type busyTrigger struct{}

func (busyTrigger) Trigger(context.Context, string, string) (domain.ProcessingStatus, error) {
	return domain.ProcessingStatus{Status: domain.JobProcessing}, status.ErrJobActive
}

func TestJobServiceActiveJobIsConflict(t *testing.T) {
	svc := NewJobService(logger.Nop(), busyTrigger{}, status.NewRegistry(nil))
	_, err := svc.DesignCourse(userCtx(testUser), "u1")
	if apierr.From(err).Status != 409 || !errors.Is(err, status.ErrJobActive) {
		t.Fatalf("expected 409 job_active, got %v", err)
	}
}
