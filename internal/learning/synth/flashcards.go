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

type rawFlashcard struct {
	Front      string  `json:"front"`
	Back       string  `json:"back"`
	Difficulty flexInt `json:"difficulty"`
}

// GenerateFlashcards mirrors GenerateQuiz: same delay floor, canned card on parse or transient model
// failure, llm.ErrAuth returned.
func (s *Synthesizer) GenerateFlashcards(ctx context.Context, title, content, source string) ([]domain.Flashcard, error) {
	if err := s.clock.Sleep(ctx, s.cfg.OnDemandDelay); err != nil {
		return nil, err
	}
	count := clamp(len(strings.Fields(content))/200, 3, 6)

	reply, err := s.model.Complete(ctx, []llm.Message{
		{Role: llm.RoleSystem, Content: flashcardSystemPrompt},
		{Role: llm.RoleUser, Content: flashcardUserPrompt(title, truncate(content, s.cfg.FlashcardContentChars), truncate(source, s.cfg.SourceExcerptChars), count)},
	}, s.cfg.FlashcardMaxTokens)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		if errors.Is(err, llm.ErrAuth) {
			return nil, err
		}
		s.log.Warn("flashcard generation failed, using fallback", "error", err)
		return fallbackFlashcards(title), nil
	}

	cards, perr := parseFlashcards(reply, count)
	if perr != nil {
		s.log.Warn("flashcard output unusable, using fallback", "reason", perr.Error())
		return fallbackFlashcards(title), nil
	}
	return cards, nil
}

func parseFlashcards(reply string, count int) ([]domain.Flashcard, *ParseFailure) {
	var payload struct {
		Flashcards []rawFlashcard `json:"flashcards"`
	}
	if err := jsonx.Decode(reply, &payload); err != nil {
		return nil, &ParseFailure{Reason: "invalid flashcard json", Err: err}
	}
	out := make([]domain.Flashcard, 0, len(payload.Flashcards))
	for _, fc := range payload.Flashcards {
		front, back := strings.TrimSpace(fc.Front), strings.TrimSpace(fc.Back)
		if front == "" || back == "" {
			continue
		}
		difficulty := int(fc.Difficulty)
		if difficulty <= 0 {
			difficulty = 1
		}
		out = append(out, domain.Flashcard{
			ID:         uuid.NewString(),
			Front:      front,
			Back:       back,
			Difficulty: clamp(difficulty, 1, 5),
		})
		if len(out) == count {
			break
		}
	}
	if len(out) == 0 {
		return nil, &ParseFailure{Reason: "no valid flashcard"}
	}
	return out, nil
}

func fallbackFlashcards(title string) []domain.Flashcard {
	observability.Current().IncSynthFallback("flashcards")
	return []domain.Flashcard{{
		ID:         uuid.NewString(),
		Front:      fmt.Sprintf("Key concept from %s", title),
		Back:       "Important information",
		Difficulty: 1,
	}}
}
