package repos

import (
	"errors"
	"fmt"

	"github.com/yungbote/coursegen-backend/internal/data/docstore"
	"github.com/yungbote/coursegen-backend/internal/domain"
)

const (
	CollectionUploads = "uploads"
	CollectionCourses = "courses"
	CollectionModules = "modules"
)

// notFound maps a store miss onto the domain sentinel.
func notFound(err error, what, id string) error {
	if errors.Is(err, docstore.ErrNotFound) {
		return fmt.Errorf("%s %s: %w", what, id, domain.ErrNotFound)
	}
	return err
}

func conflict(err error, what, id string) error {
	if errors.Is(err, docstore.ErrDuplicate) {
		return fmt.Errorf("%s %s: %w", what, id, domain.ErrConflict)
	}
	return err
}
