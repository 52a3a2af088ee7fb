package domain

import "time"

type Module struct {
	ID            string      `json:"id"`
	CourseID      string      `json:"course_id"`
	UserID        string      `json:"user_id"`
	Title         string      `json:"title"`
	Content       string      `json:"content"`
	SourceText    string      `json:"source_text"`
	Flashcards    []Flashcard `json:"flashcards"`
	Quiz          Quiz        `json:"quiz"`
	Completed     bool        `json:"completed"`
	TimeSpent     int         `json:"timeSpent"`
	EstimatedTime int         `json:"estimatedTime"`
}

type Quiz struct {
	ID          string     `json:"id"`
	Questions   []Question `json:"questions"`
	Score       *float64   `json:"score"`
	Attempts    int        `json:"attempts"`
	GeneratedAt *time.Time `json:"generated_at,omitempty"`
}

const (
	QuestionMultipleChoice = "multiple-choice"
	QuestionFillBlank      = "fill-blank"
	QuestionShortAnswer    = "short-answer"
)

type Question struct {
	ID            string   `json:"id"`
	Type          string   `json:"type"`
	Question      string   `json:"question"`
	Options       []string `json:"options,omitempty"`
	CorrectAnswer string   `json:"correctAnswer"`
	Explanation   string   `json:"explanation"`
}

type Flashcard struct {
	ID           string     `json:"id"`
	Front        string     `json:"front"`
	Back         string     `json:"back"`
	Difficulty   int        `json:"difficulty"`
	LastReviewed *time.Time `json:"lastReviewed,omitempty"`
	NextReview   *time.Time `json:"nextReview,omitempty"`
}

// QuizResult is the outcome of grading one submission.
type QuizResult struct {
	Score   float64 `json:"score"`
	Correct int     `json:"correct"`
	Total   int     `json:"total"`
	Passed  bool    `json:"passed"`
}

// PassingScore is the minimum score, in percent, for a passed quiz.
const PassingScore = 70.0
