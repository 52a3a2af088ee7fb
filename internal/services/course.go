package services

import (
	"context"
	"errors"

	"golang.org/x/sync/errgroup"

	"github.com/yungbote/coursegen-backend/internal/data/repos"
	"github.com/yungbote/coursegen-backend/internal/domain"
	"github.com/yungbote/coursegen-backend/internal/platform/logger"
)

const (
	maxListedCourses = 100
	moduleFetchLimit = 8
)

type CourseService interface {
	// Get returns a course with its modules inline, in course order. Module ids that no longer resolve
	// are skipped.
	Get(ctx context.Context, courseID string) (*domain.CourseDetail, error)
	List(ctx context.Context) ([]*domain.Course, error)
}

type courseService struct {
	log     *logger.Logger
	courses repos.CourseRepo
	modules repos.ModuleRepo
}

func NewCourseService(baseLog *logger.Logger, courses repos.CourseRepo, modules repos.ModuleRepo) CourseService {
	return &courseService{
		log:     baseLog.With("service", "CourseService"),
		courses: courses,
		modules: modules,
	}
}

func (s *courseService) Get(ctx context.Context, courseID string) (*domain.CourseDetail, error) {
	ownerID, err := callerID(ctx)
	if err != nil {
		return nil, err
	}
	course, err := s.courses.Get(ctx, ownerID, courseID)
	if err != nil {
		return nil, err
	}

	slots := make([]*domain.Module, len(course.ModuleIDs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(moduleFetchLimit)
	for i, id := range course.ModuleIDs {
		g.Go(func() error {
			m, err := s.modules.Get(gctx, ownerID, course.ID, id)
			if errors.Is(err, domain.ErrNotFound) {
				s.log.Warn("course references missing module", "course_id", course.ID, "module_id", id)
				return nil
			}
			if err != nil {
				return err
			}
			slots[i] = m
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	detail := &domain.CourseDetail{Course: *course, Modules: make([]domain.Module, 0, len(slots))}
	for _, m := range slots {
		if m == nil {
			continue
		}
		if m.Flashcards == nil {
			m.Flashcards = []domain.Flashcard{}
		}
		if m.Quiz.Questions == nil {
			m.Quiz.Questions = []domain.Question{}
		}
		detail.Modules = append(detail.Modules, *m)
	}
	return detail, nil
}

func (s *courseService) List(ctx context.Context) ([]*domain.Course, error) {
	ownerID, err := callerID(ctx)
	if err != nil {
		return nil, err
	}
	return s.courses.ListByOwner(ctx, ownerID, maxListedCourses)
}
