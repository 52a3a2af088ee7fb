package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/yungbote/coursegen-backend/internal/domain"
	"github.com/yungbote/coursegen-backend/internal/jobs/status"
	"github.com/yungbote/coursegen-backend/internal/platform/apierr"
	"github.com/yungbote/coursegen-backend/internal/platform/logger"
)

// JobTrigger starts a course design run for an upload.
type JobTrigger interface {
	Trigger(ctx context.Context, ownerID, uploadID string) (domain.ProcessingStatus, error)
}

type JobService interface {
	DesignCourse(ctx context.Context, uploadID string) (domain.ProcessingStatus, error)
	Status(ctx context.Context, jobID string) (domain.ProcessingStatus, error)
}

type jobService struct {
	log      *logger.Logger
	trigger  JobTrigger
	registry *status.Registry
}

func NewJobService(baseLog *logger.Logger, trigger JobTrigger, registry *status.Registry) JobService {
	return &jobService{
		log:      baseLog.With("service", "JobService"),
		trigger:  trigger,
		registry: registry,
	}
}

func (s *jobService) DesignCourse(ctx context.Context, uploadID string) (domain.ProcessingStatus, error) {
	ownerID, err := callerID(ctx)
	if err != nil {
		return domain.ProcessingStatus{}, err
	}
	st, err := s.trigger.Trigger(ctx, ownerID, uploadID)
	if errors.Is(err, status.ErrJobActive) {
		return st, apierr.New(http.StatusConflict, "job_active", err)
	}
	if err != nil {
		return st, err
	}
	s.log.Info("course design started", "job_id", uploadID)
	return st, nil
}

// Status is a read-only lookup in the registry.
func (s *jobService) Status(_ context.Context, jobID string) (domain.ProcessingStatus, error) {
	st, ok := s.registry.Get(jobID)
	if !ok {
		return domain.ProcessingStatus{}, apierr.New(http.StatusNotFound, "job_not_found", fmt.Errorf("%w: processing id %s", domain.ErrNotFound, jobID))
	}
	return st, nil
}
