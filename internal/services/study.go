package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/yungbote/coursegen-backend/internal/data/repos"
	"github.com/yungbote/coursegen-backend/internal/domain"
	"github.com/yungbote/coursegen-backend/internal/platform/apierr"
	"github.com/yungbote/coursegen-backend/internal/platform/clock"
	"github.com/yungbote/coursegen-backend/internal/platform/llm"
	"github.com/yungbote/coursegen-backend/internal/platform/logger"
)

// StudyMaterialGenerator produces quizzes and flashcards for a module.
type StudyMaterialGenerator interface {
	GenerateQuiz(ctx context.Context, title, content, source string) (domain.Quiz, error)
	GenerateFlashcards(ctx context.Context, title, content, source string) ([]domain.Flashcard, error)
}

type ProgressInput struct {
	Completed bool
	// TimeSpent is added to the module total, in seconds.
	TimeSpent int
}

type ExportAck struct {
	CourseID string `json:"course_id"`
	Format   string `json:"format"`
	Status   string `json:"status"`
	Message  string `json:"message"`
}

var exportFormats = map[string]bool{"pdf": true, "pptx": true, "notion": true}

type StudyService interface {
	GenerateQuiz(ctx context.Context, courseID, moduleID string) (*domain.Quiz, error)
	GenerateFlashcards(ctx context.Context, courseID, moduleID string) ([]domain.Flashcard, error)
	SubmitQuiz(ctx context.Context, courseID, moduleID string, answers map[string]string) (*domain.QuizResult, error)
	UpdateProgress(ctx context.Context, courseID, moduleID string, in ProgressInput) (*domain.Module, error)
	Export(ctx context.Context, courseID, format string) (*ExportAck, error)
}

type studyService struct {
	log       *logger.Logger
	courses   repos.CourseRepo
	modules   repos.ModuleRepo
	generator StudyMaterialGenerator
	clock     clock.Clock
}

func NewStudyService(baseLog *logger.Logger, courses repos.CourseRepo, modules repos.ModuleRepo, generator StudyMaterialGenerator, clk clock.Clock) StudyService {
	if clk == nil {
		clk = clock.Real()
	}
	return &studyService{
		log:       baseLog.With("service", "StudyService"),
		courses:   courses,
		modules:   modules,
		generator: generator,
		clock:     clk,
	}
}

// loadModule resolves a module that belongs to both the caller and the course.
func (s *studyService) loadModule(ctx context.Context, courseID, moduleID string) (string, *domain.Course, *domain.Module, error) {
	ownerID, err := callerID(ctx)
	if err != nil {
		return "", nil, nil, err
	}
	course, err := s.courses.Get(ctx, ownerID, courseID)
	if err != nil {
		return "", nil, nil, err
	}
	member := false
	for _, id := range course.ModuleIDs {
		if id == moduleID {
			member = true
			break
		}
	}
	if !member {
		return "", nil, nil, fmt.Errorf("module %s in course %s: %w", moduleID, courseID, domain.ErrNotFound)
	}
	m, err := s.modules.Get(ctx, ownerID, courseID, moduleID)
	if err != nil {
		return "", nil, nil, err
	}
	return ownerID, course, m, nil
}

func (s *studyService) GenerateQuiz(ctx context.Context, courseID, moduleID string) (*domain.Quiz, error) {
	ownerID, _, m, err := s.loadModule(ctx, courseID, moduleID)
	if err != nil {
		return nil, err
	}
	quiz, err := s.generator.GenerateQuiz(ctx, m.Title, m.Content, m.SourceText)
	if err != nil {
		return nil, generationError("quiz", err)
	}
	// Generation replaces the question set; earlier attempts stay on record.
	quiz.Attempts = m.Quiz.Attempts
	if err := s.modules.SetQuiz(ctx, ownerID, m.ID, quiz); err != nil {
		return nil, err
	}
	s.log.Info("quiz generated", "module_id", m.ID, "questions", len(quiz.Questions))
	return &quiz, nil
}

func (s *studyService) GenerateFlashcards(ctx context.Context, courseID, moduleID string) ([]domain.Flashcard, error) {
	ownerID, _, m, err := s.loadModule(ctx, courseID, moduleID)
	if err != nil {
		return nil, err
	}
	cards, err := s.generator.GenerateFlashcards(ctx, m.Title, m.Content, m.SourceText)
	if err != nil {
		return nil, generationError("flashcard", err)
	}
	if err := s.modules.SetFlashcards(ctx, ownerID, m.ID, cards); err != nil {
		return nil, err
	}
	s.log.Info("flashcards generated", "module_id", m.ID, "cards", len(cards))
	return cards, nil
}

// generationError leaves stored material untouched; a rejected model credential is a 502.
func generationError(what string, err error) error {
	err = fmt.Errorf("%s generation: %w", what, err)
	if errors.Is(err, llm.ErrAuth) {
		return apierr.New(http.StatusBadGateway, "model_auth_failed", err)
	}
	return err
}

func (s *studyService) SubmitQuiz(ctx context.Context, courseID, moduleID string, answers map[string]string) (*domain.QuizResult, error) {
	ownerID, _, m, err := s.loadModule(ctx, courseID, moduleID)
	if err != nil {
		return nil, err
	}
	result := Grade(m.Quiz.Questions, answers)
	if err := s.modules.RecordQuizAttempt(ctx, ownerID, m.ID, result.Score); err != nil {
		return nil, err
	}
	return &result, nil
}

// Grade scores answers keyed by question id. An answer counts only when it equals the correct answer
// exactly. A quiz without questions scores zero.
func Grade(questions []domain.Question, answers map[string]string) domain.QuizResult {
	total := len(questions)
	correct := 0
	for _, q := range questions {
		if a, ok := answers[q.ID]; ok && a == q.CorrectAnswer {
			correct++
		}
	}
	score := 0.0
	if total > 0 {
		score = float64(correct) / float64(total) * 100
	}
	return domain.QuizResult{
		Score:   score,
		Correct: correct,
		Total:   total,
		Passed:  score >= domain.PassingScore,
	}
}

func (s *studyService) UpdateProgress(ctx context.Context, courseID, moduleID string, in ProgressInput) (*domain.Module, error) {
	if in.TimeSpent < 0 {
		return nil, apierr.New(http.StatusBadRequest, "invalid_time_spent", fmt.Errorf("%w: timeSpent must not be negative", domain.ErrInvalidArgument))
	}
	ownerID, course, m, err := s.loadModule(ctx, courseID, moduleID)
	if err != nil {
		return nil, err
	}
	if err := s.modules.RecordProgress(ctx, ownerID, m.ID, in.Completed, in.TimeSpent); err != nil {
		return nil, err
	}

	mods, err := s.modules.ListByCourse(ctx, ownerID, course.ID)
	if err != nil {
		return nil, err
	}
	done := 0
	var updated *domain.Module
	for _, mod := range mods {
		if mod.Completed {
			done++
		}
		if mod.ID == m.ID {
			updated = mod
		}
	}
	progress := 0.0
	if n := len(course.ModuleIDs); n > 0 {
		progress = float64(done) / float64(n)
	}
	if err := s.courses.SetProgress(ctx, ownerID, course.ID, progress, s.clock.Now()); err != nil {
		return nil, err
	}
	if updated == nil {
		return nil, fmt.Errorf("module %s: %w", m.ID, domain.ErrNotFound)
	}
	return updated, nil
}

func (s *studyService) Export(ctx context.Context, courseID, format string) (*ExportAck, error) {
	format = strings.ToLower(strings.TrimSpace(format))
	if !exportFormats[format] {
		return nil, apierr.New(http.StatusBadRequest, "unsupported_format", fmt.Errorf("%w: unsupported export format %q", domain.ErrInvalidArgument, format))
	}
	ownerID, err := callerID(ctx)
	if err != nil {
		return nil, err
	}
	if _, err := s.courses.Get(ctx, ownerID, courseID); err != nil {
		return nil, err
	}
	// Exports are acknowledged only; no file is produced yet.
	return &ExportAck{
		CourseID: courseID,
		Format:   format,
		Status:   "queued",
		Message:  fmt.Sprintf("Export to %s will start shortly", format),
	}, nil
}
