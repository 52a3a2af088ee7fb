package repos

import (
	"context"

	"github.com/yungbote/coursegen-backend/internal/data/docstore"
	"github.com/yungbote/coursegen-backend/internal/domain"
	"github.com/yungbote/coursegen-backend/internal/platform/logger"
)

type UploadRepo interface {
	Create(ctx context.Context, u *domain.Upload) error
	// Get returns the upload owned by ownerID.
	Get(ctx context.Context, ownerID, id string) (*domain.Upload, error)
}

type uploadRepo struct {
	store docstore.Store
	log   *logger.Logger
}

func NewUploadRepo(store docstore.Store, baseLog *logger.Logger) UploadRepo {
	return &uploadRepo{store: store, log: baseLog.With("repo", "UploadRepo")}
}

func (r *uploadRepo) Create(ctx context.Context, u *domain.Upload) error {
	doc, err := docstore.Encode(u)
	if err != nil {
		return err
	}
	return conflict(r.store.InsertUnique(ctx, CollectionUploads, doc), "upload", u.ID)
}

func (r *uploadRepo) Get(ctx context.Context, ownerID, id string) (*domain.Upload, error) {
	doc, err := r.store.FindOne(ctx, CollectionUploads, docstore.Filter{docstore.KeyID: id, docstore.KeyOwner: ownerID})
	if err != nil {
		return nil, notFound(err, "upload", id)
	}
	var out domain.Upload
	if err := docstore.Decode(doc, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
