// Package synth turns extracted document text into courses, quizzes and flashcards with a chat model.
// Malformed model output never reaches callers: it is replaced by deterministic fallback content.
package synth

import (
	"time"
	"unicode/utf8"

	"github.com/yungbote/coursegen-backend/internal/platform/clock"
	"github.com/yungbote/coursegen-backend/internal/platform/envutil"
	"github.com/yungbote/coursegen-backend/internal/platform/llm"
	"github.com/yungbote/coursegen-backend/internal/platform/logger"
)

type Config struct {
	// MaxSourceChars bounds the document excerpt sent with the course prompt.
	MaxSourceChars  int
	CourseMaxTokens int
	MaxModules      int

	QuizMaxTokens    int
	QuizContentChars int

	FlashcardMaxTokens    int
	FlashcardContentChars int

	// SourceExcerptChars bounds the original document excerpt attached to quiz and flashcard prompts.
	SourceExcerptChars int

	// OnDemandDelay is the minimum wait before each quiz or flashcard model call.
	OnDemandDelay time.Duration
}

func DefaultConfig() Config {
	return Config{
		MaxSourceChars:        12000,
		CourseMaxTokens:       6000,
		MaxModules:            5,
		QuizMaxTokens:         1500,
		QuizContentChars:      1500,
		FlashcardMaxTokens:    1000,
		FlashcardContentChars: 1200,
		SourceExcerptChars:    600,
		OnDemandDelay:         3 * time.Second,
	}
}

func ConfigFromEnv() Config {
	cfg := DefaultConfig()
	cfg.OnDemandDelay = envutil.Seconds("AI_ON_DEMAND_DELAY_SECONDS", cfg.OnDemandDelay)
	return cfg
}

type Synthesizer struct {
	log   *logger.Logger
	model llm.Completer
	clock clock.Clock
	cfg   Config
}

func New(log *logger.Logger, model llm.Completer, clk clock.Clock, cfg Config) *Synthesizer {
	if log == nil {
		log = logger.Nop()
	}
	if clk == nil {
		clk = clock.Real()
	}
	def := DefaultConfig()
	if cfg.MaxSourceChars <= 0 {
		cfg.MaxSourceChars = def.MaxSourceChars
	}
	if cfg.CourseMaxTokens <= 0 {
		cfg.CourseMaxTokens = def.CourseMaxTokens
	}
	if cfg.MaxModules <= 0 {
		cfg.MaxModules = def.MaxModules
	}
	if cfg.QuizMaxTokens <= 0 {
		cfg.QuizMaxTokens = def.QuizMaxTokens
	}
	if cfg.QuizContentChars <= 0 {
		cfg.QuizContentChars = def.QuizContentChars
	}
	if cfg.FlashcardMaxTokens <= 0 {
		cfg.FlashcardMaxTokens = def.FlashcardMaxTokens
	}
	if cfg.FlashcardContentChars <= 0 {
		cfg.FlashcardContentChars = def.FlashcardContentChars
	}
	if cfg.SourceExcerptChars <= 0 {
		cfg.SourceExcerptChars = def.SourceExcerptChars
	}
	if cfg.OnDemandDelay < 0 {
		cfg.OnDemandDelay = 0
	}
	return &Synthesizer{
		log:   log.With("service", "CourseSynthesizer"),
		model: model,
		clock: clk,
		cfg:   cfg,
	}
}

// truncate keeps the first n runes of s.
func truncate(s string, n int) string {
	if n <= 0 || utf8.RuneCountInString(s) <= n {
		return s
	}
	i := 0
	for pos := range s {
		if i == n {
			return s[:pos]
		}
		i++
	}
	return s
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
