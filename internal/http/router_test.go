package http

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	nethttp "net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/coursegen-backend/internal/data/docstore"
	"github.com/yungbote/coursegen-backend/internal/data/repos"
	"github.com/yungbote/coursegen-backend/internal/domain"
	httpH "github.com/yungbote/coursegen-backend/internal/http/handlers"
	httpMW "github.com/yungbote/coursegen-backend/internal/http/middleware"
	"github.com/yungbote/coursegen-backend/internal/ingestion/extractor"
	"github.com/yungbote/coursegen-backend/internal/jobs/pipeline"
	"github.com/yungbote/coursegen-backend/internal/jobs/status"
	"github.com/yungbote/coursegen-backend/internal/learning/synth"
	"github.com/yungbote/coursegen-backend/internal/platform/clock"
	"github.com/yungbote/coursegen-backend/internal/platform/llm"
	"github.com/yungbote/coursegen-backend/internal/platform/logger"
	"github.com/yungbote/coursegen-backend/internal/services"
)

const courseReply = `Sure, here is the course.
{"title":"Distributed Systems","description":"Replication and consensus.","difficulty":"Intermediate",
 "objectives":["Understand replication","Analyze consensus"],
 "modules":[
  {"title":"Replication","content":"# Replication\n\nCopies of data on many nodes.","estimatedTime":600},
  {"title":"Consensus","content":"# Consensus\n\nNodes agree on one value.","estimatedTime":900}
 ]}`

const quizReply = `{"questions":[
 {"type":"multiple-choice","question":"What is replicated?","options":["Data","Nothing","Time","Users"],"correctAnswer":"Data","explanation":"Replication copies data."},
 {"type":"multiple-choice","question":"What do nodes agree on?","options":["A value","Colors","Nothing","Fonts"],"correctAnswer":"A value","explanation":"Consensus."}
]}`

const flashcardReply = `{"flashcards":[{"front":"Replica","back":"A copy of data","difficulty":1},{"front":"Quorum","back":"A majority","difficulty":2}]}`

// promptModel answers by looking at the system prompt.
type promptModel struct{}

func (promptModel) Complete(_ context.Context, msgs []llm.Message, _ int) (string, error) {
	sys := msgs[0].Content
	switch {
	case strings.Contains(sys, "instructional designer"):
		return courseReply, nil
	case strings.Contains(sys, "assessment questions"):
		return quizReply, nil
	default:
		return flashcardReply, nil
	}
}

type testServer struct {
	engine   *gin.Engine
	pipeline *pipeline.Pipeline
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)
	log := logger.Nop()
	clk := clock.NewFake(time.Date(2024, 7, 1, 9, 0, 0, 0, time.UTC))

	store := docstore.NewMemory()
	uploads := repos.NewUploadRepo(store, log)
	courses := repos.NewCourseRepo(store, log)
	modules := repos.NewModuleRepo(store, log)
	registry := status.NewRegistry(clk)

	sy := synth.New(log, promptModel{}, clk, synth.DefaultConfig())
	pl := pipeline.New(log, registry, uploads, courses, modules, extractor.New(log), sy, nil, clk, pipeline.Config{MinTextChars: 100})

	uploadSvc := services.NewUploadService(log, uploads, registry, nil, clk, 1<<20)
	jobSvc := services.NewJobService(log, pl, registry)
	courseSvc := services.NewCourseService(log, courses, modules)
	studySvc := services.NewStudyService(log, courses, modules, sy, clk)

	engine := NewRouter(RouterConfig{
		Log:            log,
		AuthMiddleware: httpMW.NewAuthMiddleware(log, httpMW.AuthConfig{DefaultUserID: "demo_user"}),
		UploadHandler:  httpH.NewUploadHandler(log, uploadSvc, 1<<20),
		JobHandler:     httpH.NewJobHandler(log, jobSvc),
		CourseHandler:  httpH.NewCourseHandler(log, courseSvc, studySvc),
		ModuleHandler:  httpH.NewModuleHandler(log, studySvc),
		HealthHandler:  httpH.NewHealthHandler(nil),
	})
	return &testServer{engine: engine, pipeline: pl}
}

func (s *testServer) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var rdr *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}
		rdr = bytes.NewReader(raw)
	} else {
		rdr = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, rdr)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	s.engine.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
	return out
}

func (s *testServer) pollUntilTerminal(t *testing.T, jobID string) domain.ProcessingStatus {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		rec := s.do(t, nethttp.MethodGet, "/api/processing/"+jobID, nil)
		if rec.Code != nethttp.StatusOK {
			t.Fatalf("poll status = %d: %s", rec.Code, rec.Body.String())
		}
		st := decode[domain.ProcessingStatus](t, rec)
		if st.Status.Terminal() {
			return st
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("job %s did not finish", jobID)
	return domain.ProcessingStatus{}
}

func TestUploadDesignPollFetch(t *testing.T) {
	s := newTestServer(t)
	// 500 words
	text := strings.TrimSpace(strings.Repeat("replicas agree on values through quorum voting and leader election ", 50))

	rec := s.do(t, nethttp.MethodPost, "/api/upload", map[string]string{"type": "text", "title": "Distributed Systems", "content": text})
	if rec.Code != nethttp.StatusOK {
		t.Fatalf("upload status = %d: %s", rec.Code, rec.Body.String())
	}
	up := decode[map[string]any](t, rec)
	jobID, _ := up["id"].(string)
	if jobID == "" || up["status"] != "uploaded" {
		t.Fatalf("upload response = %v", up)
	}

	st := decode[domain.ProcessingStatus](t, s.do(t, nethttp.MethodGet, "/api/processing/"+jobID, nil))
	if st.Status != domain.JobUploaded || st.Progress != 0 {
		t.Fatalf("initial status = %+v", st)
	}

	rec = s.do(t, nethttp.MethodPost, "/api/design-course/"+jobID, nil)
	if rec.Code != nethttp.StatusOK {
		t.Fatalf("design status = %d: %s", rec.Code, rec.Body.String())
	}
	if started := decode[map[string]any](t, rec); started["status"] != "processing" || started["id"] != jobID {
		t.Fatalf("design response = %v", started)
	}

	final := s.pollUntilTerminal(t, jobID)
	if final.Status != domain.JobCompleted || final.Progress != 100 || final.CourseID == "" {
		t.Fatalf("final status = %+v", final)
	}

	rec = s.do(t, nethttp.MethodGet, "/api/courses/"+final.CourseID, nil)
	if rec.Code != nethttp.StatusOK {
		t.Fatalf("course status = %d: %s", rec.Code, rec.Body.String())
	}
	course := decode[domain.CourseDetail](t, rec)
	if len(course.Modules) == 0 {
		t.Fatalf("course has no modules")
	}
	total := 0
	for _, m := range course.Modules {
		if len(m.Content) == 0 || m.Title == "" {
			t.Fatalf("empty module: %+v", m)
		}
		total += m.EstimatedTime
	}
	if course.EstimatedTime != total || course.UploadID != jobID {
		t.Fatalf("course = %+v", course.Course)
	}

	list := decode[[]domain.Course](t, s.do(t, nethttp.MethodGet, "/api/courses", nil))
	if len(list) != 1 || list[0].ID != final.CourseID {
		t.Fatalf("list = %+v", list)
	}

	moduleBase := "/api/courses/" + course.ID + "/modules/" + course.Modules[0].ID
	rec = s.do(t, nethttp.MethodPost, moduleBase+"/generate-quiz", nil)
	if rec.Code != nethttp.StatusOK {
		t.Fatalf("generate quiz = %d: %s", rec.Code, rec.Body.String())
	}
	quiz := decode[domain.Quiz](t, rec)
	if len(quiz.Questions) != 2 {
		t.Fatalf("quiz = %+v", quiz)
	}

	answers := map[string]string{}
	for _, q := range quiz.Questions {
		answers[q.ID] = q.CorrectAnswer
	}
	answers[quiz.Questions[1].ID] = "Colors"
	rec = s.do(t, nethttp.MethodPost, moduleBase+"/quiz", map[string]any{"answers": answers})
	res := decode[domain.QuizResult](t, rec)
	if rec.Code != nethttp.StatusOK || res.Score != 50 || res.Passed || res.Correct != 1 || res.Total != 2 {
		t.Fatalf("submit = %d %+v", rec.Code, res)
	}

	rec = s.do(t, nethttp.MethodPost, moduleBase+"/generate-flashcards", nil)
	cards := decode[map[string][]domain.Flashcard](t, rec)
	if rec.Code != nethttp.StatusOK || len(cards["flashcards"]) != 2 {
		t.Fatalf("flashcards = %d %v", rec.Code, cards)
	}

	rec = s.do(t, nethttp.MethodPost, moduleBase+"/progress", map[string]any{"completed": true, "timeSpent": 60})
	if m := decode[domain.Module](t, rec); rec.Code != nethttp.StatusOK || !m.Completed || m.TimeSpent != 60 {
		t.Fatalf("progress = %d %+v", rec.Code, m)
	}

	detail := decode[domain.CourseDetail](t, s.do(t, nethttp.MethodGet, "/api/courses/"+course.ID, nil))
	if detail.Modules[0].Quiz.Attempts != 1 || len(detail.Modules[0].Flashcards) != 2 || detail.Progress != 0.5 {
		t.Fatalf("course after study = %+v", detail)
	}

	if rec := s.do(t, nethttp.MethodGet, "/api/courses/"+course.ID+"/export/pdf", nil); rec.Code != nethttp.StatusOK {
		t.Fatalf("export pdf = %d", rec.Code)
	}
	if rec := s.do(t, nethttp.MethodGet, "/api/courses/"+course.ID+"/export/docx", nil); rec.Code != nethttp.StatusBadRequest {
		t.Fatalf("export docx = %d", rec.Code)
	}
}

func TestNotFoundResponses(t *testing.T) {
	s := newTestServer(t)
	paths := []struct {
		method, path string
	}{
		{nethttp.MethodPost, "/api/design-course/nope"},
		{nethttp.MethodGet, "/api/processing/nope"},
		{nethttp.MethodGet, "/api/courses/nope"},
		{nethttp.MethodPost, "/api/courses/nope/modules/nope/generate-quiz"},
	}
	for _, p := range paths {
		rec := s.do(t, p.method, p.path, nil)
		if rec.Code != nethttp.StatusNotFound {
			t.Fatalf("%s %s = %d", p.method, p.path, rec.Code)
		}
		env := decode[map[string]map[string]string](t, rec)
		if env["error"]["message"] == "" || env["error"]["code"] == "" {
			t.Fatalf("%s %s envelope = %v", p.method, p.path, env)
		}
	}
}

func TestShortDocumentFails(t *testing.T) {
	s := newTestServer(t)
	up := decode[map[string]any](t, s.do(t, nethttp.MethodPost, "/api/upload", map[string]string{"type": "text", "content": "too short"}))
	jobID := up["id"].(string)

	if rec := s.do(t, nethttp.MethodPost, "/api/design-course/"+jobID, nil); rec.Code != nethttp.StatusOK {
		t.Fatalf("design = %d", rec.Code)
	}
	final := s.pollUntilTerminal(t, jobID)
	if final.Status != domain.JobFailed || final.Progress != 0 || final.Message == "" || final.CourseID != "" {
		t.Fatalf("final = %+v", final)
	}
}

func TestMultipartUpload(t *testing.T) {
	s := newTestServer(t)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", "paper.txt")
	if err != nil {
		t.Fatalf("CreateFormFile: %v", err)
	}
	fw.Write([]byte(strings.Repeat("word ", 200)))
	mw.WriteField("type", "text")
	mw.Close()

	req := httptest.NewRequest(nethttp.MethodPost, "/api/upload", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	s.engine.ServeHTTP(rec, req)

	if rec.Code != nethttp.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}
	if body := decode[map[string]any](t, rec); body["title"] != "paper" {
		t.Fatalf("title = %v", body["title"])
	}

	if rec := s.do(t, nethttp.MethodPost, "/api/upload", map[string]string{"type": "docx", "content": "x"}); rec.Code != nethttp.StatusBadRequest {
		t.Fatalf("bad type = %d", rec.Code)
	}
}

func TestHealthcheck(t *testing.T) {
	s := newTestServer(t)
	rec := s.do(t, nethttp.MethodGet, "/healthcheck", nil)
	if rec.Code != nethttp.StatusOK || rec.Body.String() != "ok" {
		t.Fatalf("healthcheck = %d %q", rec.Code, rec.Body.String())
	}
}
