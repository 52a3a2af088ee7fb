package synth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/yungbote/coursegen-backend/internal/domain"
	"github.com/yungbote/coursegen-backend/internal/platform/jsonx"
	"github.com/yungbote/coursegen-backend/internal/platform/llm"
	"github.com/yungbote/coursegen-backend/internal/platform/observability"
)

type rawQuestion struct {
	Type          string   `json:"type"`
	Question      string   `json:"question"`
	Options       []string `json:"options"`
	CorrectAnswer string   `json:"correctAnswer"`
	Explanation   string   `json:"explanation"`
}

// GenerateQuiz produces a quiz for one module. source is the document excerpt the module was built
// from and may be empty. It always waits OnDemandDelay first. Model and parse failures yield a single
// canned question; context errors and llm.ErrAuth are returned.
func (s *Synthesizer) GenerateQuiz(ctx context.Context, title, content, source string) (domain.Quiz, error) {
	if err := s.clock.Sleep(ctx, s.cfg.OnDemandDelay); err != nil {
		return domain.Quiz{}, err
	}
	count := clamp(len(strings.Fields(content))/300, 2, 5)

	reply, err := s.model.Complete(ctx, []llm.Message{
		{Role: llm.RoleSystem, Content: quizSystemPrompt},
		{Role: llm.RoleUser, Content: quizUserPrompt(title, truncate(content, s.cfg.QuizContentChars), truncate(source, s.cfg.SourceExcerptChars), count)},
	}, s.cfg.QuizMaxTokens)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return domain.Quiz{}, ctxErr
		}
		if errors.Is(err, llm.ErrAuth) {
			return domain.Quiz{}, err
		}
		s.log.Warn("quiz generation failed, using fallback", "error", err)
		return s.fallbackQuiz(title), nil
	}

	questions, perr := parseQuestions(reply, count)
	if perr != nil {
		s.log.Warn("quiz output unusable, using fallback", "reason", perr.Error())
		return s.fallbackQuiz(title), nil
	}
	return s.newQuiz(questions), nil
}

func parseQuestions(reply string, count int) ([]domain.Question, *ParseFailure) {
	var payload struct {
		Questions []rawQuestion `json:"questions"`
	}
	if err := jsonx.Decode(reply, &payload); err != nil {
		return nil, &ParseFailure{Reason: "invalid quiz json", Err: err}
	}
	out := make([]domain.Question, 0, len(payload.Questions))
	for _, q := range payload.Questions {
		question, ok := validQuestion(q)
		if !ok {
			continue
		}
		out = append(out, question)
		if len(out) == count {
			break
		}
	}
	if len(out) == 0 {
		return nil, &ParseFailure{Reason: "no valid question"}
	}
	return out, nil
}

func validQuestion(q rawQuestion) (domain.Question, bool) {
	text := strings.TrimSpace(q.Question)
	answer := strings.TrimSpace(q.CorrectAnswer)
	if text == "" || answer == "" {
		return domain.Question{}, false
	}
	options := make([]string, 0, len(q.Options))
	found := false
	for _, o := range q.Options {
		o = strings.TrimSpace(o)
		if o == "" {
			continue
		}
		if o == answer {
			found = true
		}
		options = append(options, o)
	}
	if len(options) > 0 && !found {
		return domain.Question{}, false
	}
	kind := strings.TrimSpace(q.Type)
	switch kind {
	case domain.QuestionMultipleChoice, domain.QuestionFillBlank, domain.QuestionShortAnswer:
	default:
		kind = domain.QuestionMultipleChoice
	}
	return domain.Question{
		ID:            uuid.NewString(),
		Type:          kind,
		Question:      text,
		Options:       options,
		CorrectAnswer: answer,
		Explanation:   strings.TrimSpace(q.Explanation),
	}, true
}

func (s *Synthesizer) newQuiz(questions []domain.Question) domain.Quiz {
	now := s.clock.Now()
	return domain.Quiz{
		ID:          uuid.NewString(),
		Questions:   questions,
		GeneratedAt: &now,
	}
}

func (s *Synthesizer) fallbackQuiz(title string) domain.Quiz {
	observability.Current().IncSynthFallback("quiz")
	return s.newQuiz([]domain.Question{{
		ID:            uuid.NewString(),
		Type:          domain.QuestionMultipleChoice,
		Question:      fmt.Sprintf("Main focus of %s?", title),
		Options:       []string{"Key concepts", "Details", "Applications", "All"},
		CorrectAnswer: "All",
		Explanation:   "Covers multiple aspects.",
	}})
}
