package synth

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/yungbote/coursegen-backend/internal/domain"
	"github.com/yungbote/coursegen-backend/internal/platform/jsonx"
	"github.com/yungbote/coursegen-backend/internal/platform/llm"
	"github.com/yungbote/coursegen-backend/internal/platform/observability"
)

const (
	defaultCourseTitle    = "Whitepaper Course"
	defaultDescription    = "Learn key concepts from this whitepaper."
	fallbackModuleTitle   = "Introduction"
	fallbackModuleSeconds = 600
	minModuleSeconds      = 300
	readingWordsPerMinute = 200
)

var fallbackObjectives = []string{"Understand core concepts", "Analyze key findings"}

// GeneratedCourse is a course and its modules before they are stored. Ids are already assigned;
// owner fields are left for the caller.
type GeneratedCourse struct {
	Course  domain.Course
	Modules []domain.Module
	// Fallback is set when the model output was unusable and deterministic content was substituted.
	Fallback bool
}

// ParseFailure explains why a model response could not be turned into a course.
type ParseFailure struct {
	Reason string
	Err    error
}

func (p *ParseFailure) Error() string {
	if p.Err != nil {
		return p.Reason + ": " + p.Err.Error()
	}
	return p.Reason
}

// SynthesizeCourse asks the model for a course built from text. Only model-call and context failures
// are returned; an unusable reply yields the single-module fallback course.
func (s *Synthesizer) SynthesizeCourse(ctx context.Context, text, title string) (GeneratedCourse, error) {
	source := truncate(strings.TrimSpace(text), s.cfg.MaxSourceChars)
	reply, err := s.model.Complete(ctx, []llm.Message{
		{Role: llm.RoleSystem, Content: courseSystemPrompt},
		{Role: llm.RoleUser, Content: courseUserPrompt(title, source)},
	}, s.cfg.CourseMaxTokens)
	if err != nil {
		return GeneratedCourse{}, fmt.Errorf("course synthesis: %w", err)
	}

	raw, failure := parseCourse(reply, s.cfg.MaxModules)
	if failure != nil {
		s.log.Warn("course output unusable, using fallback", "reason", failure.Error(), "reply_chars", len(reply))
		observability.Current().IncSynthFallback("course")
		return s.fallbackCourse(title, source), nil
	}
	return s.assemble(raw, title, source), nil
}

type rawCourse struct {
	Title       string      `json:"title"`
	Description string      `json:"description"`
	Difficulty  string      `json:"difficulty"`
	Objectives  []string    `json:"objectives"`
	Modules     []rawModule `json:"modules"`
}

type rawModule struct {
	Title         string  `json:"title"`
	Content       string  `json:"content"`
	EstimatedTime flexInt `json:"estimatedTime"`
}

// flexInt accepts a JSON number or a numeric string. Anything else decodes as zero.
type flexInt int

func (f *flexInt) UnmarshalJSON(b []byte) error {
	var n float64
	if err := json.Unmarshal(b, &n); err == nil {
		*f = flexInt(math.Round(n))
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		if v, err := strconv.ParseFloat(strings.TrimSpace(s), 64); err == nil {
			*f = flexInt(math.Round(v))
			return nil
		}
	}
	*f = 0
	return nil
}

// parseCourse extracts and repairs a course from a model reply. Modules without content are dropped,
// untitled modules are named by position, at most maxModules are kept and missing estimates are
// derived from word count. A reply with no usable module is a failure.
func parseCourse(reply string, maxModules int) (rawCourse, *ParseFailure) {
	var rc rawCourse
	if err := jsonx.Decode(reply, &rc); err != nil {
		return rawCourse{}, &ParseFailure{Reason: "invalid course json", Err: err}
	}

	kept := make([]rawModule, 0, len(rc.Modules))
	for _, m := range rc.Modules {
		m.Content = strings.TrimSpace(m.Content)
		if m.Content == "" {
			continue
		}
		m.Title = strings.TrimSpace(m.Title)
		if m.Title == "" {
			m.Title = fmt.Sprintf("Module %d", len(kept)+1)
		}
		if m.EstimatedTime <= 0 {
			m.EstimatedTime = flexInt(estimateSeconds(m.Content))
		}
		kept = append(kept, m)
		if maxModules > 0 && len(kept) == maxModules {
			break
		}
	}
	if len(kept) == 0 {
		return rawCourse{}, &ParseFailure{Reason: "no module with content"}
	}
	rc.Modules = kept

	objectives := make([]string, 0, len(rc.Objectives))
	for _, o := range rc.Objectives {
		if o = strings.TrimSpace(o); o != "" {
			objectives = append(objectives, o)
		}
	}
	rc.Objectives = objectives
	rc.Title = strings.TrimSpace(rc.Title)
	rc.Description = strings.TrimSpace(rc.Description)
	rc.Difficulty = normalizeDifficulty(rc.Difficulty)
	return rc, nil
}

func estimateSeconds(content string) int {
	words := len(strings.Fields(content))
	secs := words * 60 / readingWordsPerMinute
	if secs < minModuleSeconds {
		return minModuleSeconds
	}
	return secs
}

func normalizeDifficulty(d string) string {
	switch strings.ToLower(strings.TrimSpace(d)) {
	case "beginner":
		return domain.DifficultyBeginner
	case "advanced":
		return domain.DifficultyAdvanced
	default:
		return domain.DifficultyIntermediate
	}
}

func (s *Synthesizer) assemble(rc rawCourse, title, source string) GeneratedCourse {
	courseTitle := rc.Title
	if courseTitle == "" {
		courseTitle = defaultTitle(title)
	}
	description := rc.Description
	if description == "" {
		description = defaultDescription
	}

	course := domain.Course{
		ID:          uuid.NewString(),
		Title:       courseTitle,
		Description: description,
		Objectives:  rc.Objectives,
		Difficulty:  rc.Difficulty,
		CreatedAt:   s.clock.Now(),
	}
	modules := make([]domain.Module, 0, len(rc.Modules))
	for _, m := range rc.Modules {
		modules = append(modules, s.newModule(course.ID, m.Title, m.Content, source, int(m.EstimatedTime)))
	}
	return finish(course, modules, false)
}

func (s *Synthesizer) fallbackCourse(title, source string) GeneratedCourse {
	course := domain.Course{
		ID:          uuid.NewString(),
		Title:       defaultTitle(title),
		Description: defaultDescription,
		Objectives:  append([]string(nil), fallbackObjectives...),
		Difficulty:  domain.DifficultyIntermediate,
		CreatedAt:   s.clock.Now(),
	}
	content := "# " + fallbackModuleTitle + "\n\n" + source
	module := s.newModule(course.ID, fallbackModuleTitle, content, source, fallbackModuleSeconds)
	return finish(course, []domain.Module{module}, true)
}

func (s *Synthesizer) newModule(courseID, title, content, source string, seconds int) domain.Module {
	return domain.Module{
		ID:            uuid.NewString(),
		CourseID:      courseID,
		Title:         title,
		Content:       content,
		SourceText:    source,
		Flashcards:    []domain.Flashcard{},
		Quiz:          emptyQuiz(),
		Completed:     false,
		TimeSpent:     0,
		EstimatedTime: seconds,
	}
}

func emptyQuiz() domain.Quiz {
	return domain.Quiz{ID: uuid.NewString(), Questions: []domain.Question{}}
}

// finish links modules to the course and sets the total estimate.
func finish(course domain.Course, modules []domain.Module, fallback bool) GeneratedCourse {
	course.ModuleIDs = make([]string, 0, len(modules))
	total := 0
	for _, m := range modules {
		course.ModuleIDs = append(course.ModuleIDs, m.ID)
		total += m.EstimatedTime
	}
	course.EstimatedTime = total
	if course.Objectives == nil {
		course.Objectives = []string{}
	}
	return GeneratedCourse{Course: course, Modules: modules, Fallback: fallback}
}

func defaultTitle(title string) string {
	if t := strings.TrimSpace(title); t != "" {
		return t
	}
	return defaultCourseTitle
}
