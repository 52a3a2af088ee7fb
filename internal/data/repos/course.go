package repos

import (
	"context"
	"time"

	"github.com/yungbote/coursegen-backend/internal/data/docstore"
	"github.com/yungbote/coursegen-backend/internal/domain"
	"github.com/yungbote/coursegen-backend/internal/platform/logger"
)

type CourseRepo interface {
	Create(ctx context.Context, c *domain.Course) error
	Get(ctx context.Context, ownerID, id string) (*domain.Course, error)
	ListByOwner(ctx context.Context, ownerID string, limit int) ([]*domain.Course, error)
	SetProgress(ctx context.Context, ownerID, id string, progress float64, at time.Time) error
}

type courseRepo struct {
	store docstore.Store
	log   *logger.Logger
}

func NewCourseRepo(store docstore.Store, baseLog *logger.Logger) CourseRepo {
	return &courseRepo{store: store, log: baseLog.With("repo", "CourseRepo")}
}

func (r *courseRepo) Create(ctx context.Context, c *domain.Course) error {
	doc, err := docstore.Encode(c)
	if err != nil {
		return err
	}
	return conflict(r.store.InsertUnique(ctx, CollectionCourses, doc), "course", c.ID)
}

func (r *courseRepo) Get(ctx context.Context, ownerID, id string) (*domain.Course, error) {
	doc, err := r.store.FindOne(ctx, CollectionCourses, docstore.Filter{docstore.KeyID: id, docstore.KeyOwner: ownerID})
	if err != nil {
		return nil, notFound(err, "course", id)
	}
	var out domain.Course
	if err := docstore.Decode(doc, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *courseRepo) ListByOwner(ctx context.Context, ownerID string, limit int) ([]*domain.Course, error) {
	docs, err := r.store.FindMany(ctx, CollectionCourses, docstore.Filter{docstore.KeyOwner: ownerID}, limit)
	if err != nil {
		return nil, err
	}
	out := make([]*domain.Course, 0, len(docs))
	for _, d := range docs {
		var c domain.Course
		if err := docstore.Decode(d, &c); err != nil {
			return nil, err
		}
		out = append(out, &c)
	}
	return out, nil
}

func (r *courseRepo) SetProgress(ctx context.Context, ownerID, id string, progress float64, at time.Time) error {
	n, err := r.store.Update(ctx, CollectionCourses,
		docstore.Filter{docstore.KeyID: id, docstore.KeyOwner: ownerID},
		docstore.Mutation{Set: map[string]any{"progress": progress, "updatedAt": at.UTC().Format(time.RFC3339Nano)}},
	)
	if err != nil {
		return err
	}
	if n == 0 {
		return notFound(docstore.ErrNotFound, "course", id)
	}
	return nil
}
