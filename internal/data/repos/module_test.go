package repos

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"

	"github.com/yungbote/coursegen-backend/internal/data/docstore"
	"github.com/yungbote/coursegen-backend/internal/domain"
	"github.com/yungbote/coursegen-backend/internal/platform/logger"
)

func TestModuleRepoQuizAttempts(t *testing.T) {
	ctx := context.Background()
	repo := NewModuleRepo(docstore.NewMemory(), logger.Nop())

	courseID := uuid.NewString()
	m := &domain.Module{ID: uuid.NewString(), CourseID: courseID, UserID: "demo_user", Title: "Intro", Content: "# Intro"}
	if err := repo.Create(ctx, m); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := repo.Create(ctx, m); !errors.Is(err, domain.ErrConflict) {
		t.Fatalf("expected ErrConflict on duplicate, got %v", err)
	}

	for _, score := range []float64{50, 75} {
		if err := repo.RecordQuizAttempt(ctx, "demo_user", m.ID, score); err != nil {
			t.Fatalf("RecordQuizAttempt: %v", err)
		}
	}
	got, err := repo.Get(ctx, "demo_user", courseID, m.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Quiz.Attempts != 2 {
		t.Fatalf("attempts = %d, want 2", got.Quiz.Attempts)
	}
	if got.Quiz.Score == nil || *got.Quiz.Score != 75 {
		t.Fatalf("score = %v, want 75", got.Quiz.Score)
	}
	if got.Flashcards == nil || got.Quiz.Questions == nil {
		t.Fatalf("expected empty collections, got %+v", got)
	}

	if _, err := repo.Get(ctx, "someone_else", courseID, m.ID); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for other owner, got %v", err)
	}
	if err := repo.RecordQuizAttempt(ctx, "demo_user", "missing", 10); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for missing module, got %v", err)
	}
}

func TestModuleRepoProgress(t *testing.T) {
	ctx := context.Background()
	repo := NewModuleRepo(docstore.NewMemory(), logger.Nop())
	m := &domain.Module{ID: uuid.NewString(), CourseID: "c1", UserID: "u1", Title: "T", Content: "C"}
	if err := repo.Create(ctx, m); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := repo.RecordProgress(ctx, "u1", m.ID, false, 30); err != nil {
		t.Fatalf("RecordProgress: %v", err)
	}
	if err := repo.RecordProgress(ctx, "u1", m.ID, true, 45); err != nil {
		t.Fatalf("RecordProgress: %v", err)
	}
	got, err := repo.Get(ctx, "u1", "c1", m.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !got.Completed || got.TimeSpent != 75 {
		t.Fatalf("unexpected module state %+v", got)
	}
}
