// Package status holds the in-process record of every upload-to-course job.
// Entries live for the life of the process and are never persisted.
package status

import (
	"errors"
	"sync"

	"github.com/yungbote/coursegen-backend/internal/domain"
	"github.com/yungbote/coursegen-backend/internal/platform/clock"
	"github.com/yungbote/coursegen-backend/internal/platform/observability"
)

var ErrJobActive = errors.New("job already processing")

// BeginProgress is the progress reported as soon as a job is accepted.
const BeginProgress = 10

// Observer receives a copy of a status after every transition. It runs outside the registry lock.
type Observer func(domain.ProcessingStatus)

type Registry struct {
	mu        sync.Mutex
	jobs      map[string]domain.ProcessingStatus
	clock     clock.Clock
	observers []Observer
}

func NewRegistry(clk clock.Clock) *Registry {
	if clk == nil {
		clk = clock.Real()
	}
	return &Registry{jobs: make(map[string]domain.ProcessingStatus), clock: clk}
}

// Observe registers fn for every later transition.
func (r *Registry) Observe(fn Observer) {
	if fn == nil {
		return
	}
	r.mu.Lock()
	r.observers = append(r.observers, fn)
	r.mu.Unlock()
}

// Init records a freshly uploaded job, replacing any earlier entry with the same id.
func (r *Registry) Init(id string) domain.ProcessingStatus {
	return r.transition(id, func(_ domain.ProcessingStatus, _ bool) (domain.ProcessingStatus, bool) {
		return domain.ProcessingStatus{ID: id, Status: domain.JobUploaded, Progress: 0, Message: "Upload received"}, true
	})
}

// Begin moves a job into processing. A job already processing is refused with ErrJobActive; a terminal
// or unknown job starts over.
func (r *Registry) Begin(id string) (domain.ProcessingStatus, error) {
	var active bool
	st := r.transition(id, func(cur domain.ProcessingStatus, ok bool) (domain.ProcessingStatus, bool) {
		if ok && cur.Status == domain.JobProcessing {
			active = true
			return cur, false
		}
		return domain.ProcessingStatus{ID: id, Status: domain.JobProcessing, Progress: BeginProgress, Message: "Processing started"}, true
	})
	if active {
		return st, ErrJobActive
	}
	return st, nil
}

// Advance raises the progress of a processing job. Lower values and jobs in any other state are ignored.
func (r *Registry) Advance(id string, progress int, message string) {
	r.transition(id, func(cur domain.ProcessingStatus, ok bool) (domain.ProcessingStatus, bool) {
		if !ok || cur.Status != domain.JobProcessing || progress < cur.Progress {
			return cur, false
		}
		if progress > 99 {
			progress = 99
		}
		cur.Progress = progress
		if message != "" {
			cur.Message = message
		}
		return cur, true
	})
}

// Complete marks a processing job done and attaches the course id.
func (r *Registry) Complete(id, courseID, message string) {
	r.transition(id, func(cur domain.ProcessingStatus, ok bool) (domain.ProcessingStatus, bool) {
		if !ok || cur.Status != domain.JobProcessing {
			return cur, false
		}
		cur.Status = domain.JobCompleted
		cur.Progress = 100
		cur.Message = message
		cur.CourseID = courseID
		return cur, true
	})
}

// Fail marks a processing job failed with progress reset to zero.
func (r *Registry) Fail(id, message string) {
	r.transition(id, func(cur domain.ProcessingStatus, ok bool) (domain.ProcessingStatus, bool) {
		if !ok || cur.Status != domain.JobProcessing {
			return cur, false
		}
		cur.Status = domain.JobFailed
		cur.Progress = 0
		cur.Message = message
		cur.CourseID = ""
		return cur, true
	})
}

func (r *Registry) Get(id string) (domain.ProcessingStatus, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	st, ok := r.jobs[id]
	return st, ok
}

// transition applies fn under the lock and notifies observers when fn reports a change.
func (r *Registry) transition(id string, fn func(cur domain.ProcessingStatus, ok bool) (domain.ProcessingStatus, bool)) domain.ProcessingStatus {
	r.mu.Lock()
	cur, ok := r.jobs[id]
	next, changed := fn(cur, ok)
	if !changed {
		r.mu.Unlock()
		return next
	}
	next.UpdatedAt = r.clock.Now()
	r.jobs[id] = next
	observers := append([]Observer(nil), r.observers...)
	r.mu.Unlock()

	if cur.Status != next.Status || !ok {
		observability.Current().IncJobTransition(string(next.Status))
	}
	for _, fn := range observers {
		fn(next)
	}
	return next
}
