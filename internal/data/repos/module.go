package repos

import (
	"context"

	"github.com/yungbote/coursegen-backend/internal/data/docstore"
	"github.com/yungbote/coursegen-backend/internal/domain"
	"github.com/yungbote/coursegen-backend/internal/platform/logger"
)

// ModuleRepo stores modules as standalone documents keyed by id and tagged with their course_id.
// Every quiz, flashcard and progress write targets the module document.
type ModuleRepo interface {
	Create(ctx context.Context, m *domain.Module) error
	Get(ctx context.Context, ownerID, courseID, id string) (*domain.Module, error)
	ListByCourse(ctx context.Context, ownerID, courseID string) ([]*domain.Module, error)
	SetQuiz(ctx context.Context, ownerID, id string, quiz domain.Quiz) error
	SetFlashcards(ctx context.Context, ownerID, id string, cards []domain.Flashcard) error
	RecordQuizAttempt(ctx context.Context, ownerID, id string, score float64) error
	RecordProgress(ctx context.Context, ownerID, id string, completed bool, timeSpent int) error
	Delete(ctx context.Context, ownerID, id string) error
}

type moduleRepo struct {
	store docstore.Store
	log   *logger.Logger
}

func NewModuleRepo(store docstore.Store, baseLog *logger.Logger) ModuleRepo {
	return &moduleRepo{store: store, log: baseLog.With("repo", "ModuleRepo")}
}

func (r *moduleRepo) Create(ctx context.Context, m *domain.Module) error {
	if m.Flashcards == nil {
		m.Flashcards = []domain.Flashcard{}
	}
	if m.Quiz.Questions == nil {
		m.Quiz.Questions = []domain.Question{}
	}
	doc, err := docstore.Encode(m)
	if err != nil {
		return err
	}
	return conflict(r.store.InsertUnique(ctx, CollectionModules, doc), "module", m.ID)
}

func (r *moduleRepo) Get(ctx context.Context, ownerID, courseID, id string) (*domain.Module, error) {
	doc, err := r.store.FindOne(ctx, CollectionModules, docstore.Filter{
		docstore.KeyID:    id,
		docstore.KeyOwner: ownerID,
		"course_id":       courseID,
	})
	if err != nil {
		return nil, notFound(err, "module", id)
	}
	return decodeModule(doc)
}

func (r *moduleRepo) ListByCourse(ctx context.Context, ownerID, courseID string) ([]*domain.Module, error) {
	docs, err := r.store.FindMany(ctx, CollectionModules, docstore.Filter{docstore.KeyOwner: ownerID, "course_id": courseID}, 0)
	if err != nil {
		return nil, err
	}
	out := make([]*domain.Module, 0, len(docs))
	for _, d := range docs {
		m, err := decodeModule(d)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, nil
}

func (r *moduleRepo) SetQuiz(ctx context.Context, ownerID, id string, quiz domain.Quiz) error {
	return r.update(ctx, ownerID, id, docstore.Mutation{Set: map[string]any{"quiz": quiz}})
}

func (r *moduleRepo) SetFlashcards(ctx context.Context, ownerID, id string, cards []domain.Flashcard) error {
	if cards == nil {
		cards = []domain.Flashcard{}
	}
	return r.update(ctx, ownerID, id, docstore.Mutation{Set: map[string]any{"flashcards": cards}})
}

func (r *moduleRepo) RecordQuizAttempt(ctx context.Context, ownerID, id string, score float64) error {
	return r.update(ctx, ownerID, id, docstore.Mutation{
		Set: map[string]any{"quiz.score": score},
		Inc: map[string]float64{"quiz.attempts": 1},
	})
}

func (r *moduleRepo) RecordProgress(ctx context.Context, ownerID, id string, completed bool, timeSpent int) error {
	mut := docstore.Mutation{Set: map[string]any{"completed": completed}}
	if timeSpent > 0 {
		mut.Inc = map[string]float64{"timeSpent": float64(timeSpent)}
	}
	return r.update(ctx, ownerID, id, mut)
}

func (r *moduleRepo) Delete(ctx context.Context, ownerID, id string) error {
	return r.store.Delete(ctx, CollectionModules, id, ownerID)
}

func (r *moduleRepo) update(ctx context.Context, ownerID, id string, mut docstore.Mutation) error {
	n, err := r.store.Update(ctx, CollectionModules, docstore.Filter{docstore.KeyID: id, docstore.KeyOwner: ownerID}, mut)
	if err != nil {
		return err
	}
	if n == 0 {
		return notFound(docstore.ErrNotFound, "module", id)
	}
	return nil
}

// decodeModule fills defaults for documents written before a quiz or flashcards existed.
func decodeModule(doc docstore.Doc) (*domain.Module, error) {
	var m domain.Module
	if err := docstore.Decode(doc, &m); err != nil {
		return nil, err
	}
	if m.Flashcards == nil {
		m.Flashcards = []domain.Flashcard{}
	}
	if m.Quiz.Questions == nil {
		m.Quiz.Questions = []domain.Question{}
	}
	return &m, nil
}
