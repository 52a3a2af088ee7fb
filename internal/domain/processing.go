package domain

import "time"

type JobState string

const (
	JobUploaded   JobState = "uploaded"
	JobProcessing JobState = "processing"
	JobCompleted  JobState = "completed"
	JobFailed     JobState = "failed"
)

func (s JobState) Terminal() bool {
	return s == JobCompleted || s == JobFailed
}

// ProcessingStatus is the pollable view of one upload-to-course job. CourseID is only set once the
// job has completed.
type ProcessingStatus struct {
	ID        string    `json:"id"`
	Status    JobState  `json:"status"`
	Progress  int       `json:"progress"`
	Message   string    `json:"message,omitempty"`
	CourseID  string    `json:"course_id,omitempty"`
	UpdatedAt time.Time `json:"updatedAt"`
}
