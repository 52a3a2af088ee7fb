package domain

import "time"

const (
	DifficultyBeginner     = "Beginner"
	DifficultyIntermediate = "Intermediate"
	DifficultyAdvanced     = "Advanced"
)

// Course references its modules by id. EstimatedTime is the sum of the module estimates at creation.
type Course struct {
	ID            string     `json:"id"`
	UserID        string     `json:"user_id"`
	UploadID      string     `json:"upload_id,omitempty"`
	Title         string     `json:"title"`
	Description   string     `json:"description"`
	Objectives    []string   `json:"objectives"`
	ModuleIDs     []string   `json:"modules"`
	EstimatedTime int        `json:"estimatedTime"`
	Difficulty    string     `json:"difficulty"`
	Progress      float64    `json:"progress"`
	CreatedAt     time.Time  `json:"createdAt"`
	UpdatedAt     *time.Time `json:"updatedAt,omitempty"`
}

// CourseDetail is a course with its modules expanded inline, in course order.
type CourseDetail struct {
	Course
	Modules []Module `json:"modules"`
}
