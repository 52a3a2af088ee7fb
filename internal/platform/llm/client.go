// Package llm is the chat-completion client used for course, quiz and flashcard synthesis.
package llm

import (
	"context"
	"fmt"
	"math"
	"net/http"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/yungbote/coursegen-backend/internal/platform/clock"
	"github.com/yungbote/coursegen-backend/internal/platform/envutil"
	"github.com/yungbote/coursegen-backend/internal/platform/logger"
	"github.com/yungbote/coursegen-backend/internal/platform/observability"
)

const (
	RoleSystem = openai.ChatMessageRoleSystem
	RoleUser   = openai.ChatMessageRoleUser
)

type Message struct {
	Role    string
	Content string
}

// Completer turns a conversation into the assistant's reply text.
type Completer interface {
	Complete(ctx context.Context, messages []Message, maxTokens int) (string, error)
}

type Config struct {
	Endpoint    string
	Token       string
	Model       string
	Timeout     time.Duration
	MaxAttempts int
	Temperature float32
}

func ConfigFromEnv() Config {
	return Config{
		Endpoint:    envutil.String("AI_ENDPOINT", ""),
		Token:       envutil.String("AI_TOKEN", ""),
		Model:       envutil.String("AI_MODEL_NAME", "gpt-4o"),
		Timeout:     envutil.Seconds("AI_TIMEOUT_SECONDS", 180*time.Second),
		MaxAttempts: envutil.Int("AI_MAX_ATTEMPTS", 5),
		Temperature: 0.3,
	}
}

type Client struct {
	log   *logger.Logger
	clock clock.Clock
	api   *openai.Client
	cfg   Config
}

func New(log *logger.Logger, cfg Config, clk clock.Clock) (*Client, error) {
	cfg.Endpoint = strings.TrimRight(strings.TrimSpace(cfg.Endpoint), "/")
	if cfg.Endpoint == "" {
		return nil, fmt.Errorf("missing AI_ENDPOINT")
	}
	if strings.TrimSpace(cfg.Token) == "" {
		return nil, fmt.Errorf("missing AI_TOKEN")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 180 * time.Second
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 5
	}
	if log == nil {
		log = logger.Nop()
	}
	if clk == nil {
		clk = clock.Real()
	}

	oc := openai.DefaultConfig(cfg.Token)
	oc.BaseURL = cfg.Endpoint
	oc.HTTPClient = &http.Client{Timeout: cfg.Timeout}

	return &Client{
		log:   log.With("client", "llm", "model", cfg.Model),
		clock: clk,
		api:   openai.NewClientWithConfig(oc),
		cfg:   cfg,
	}, nil
}

// Complete sends messages to {endpoint}/chat/completions.
//
// Before attempt n>0 it waits 2^n seconds. A 401 fails at once with ErrAuth. A 429 or 503 waits
// min(60, 10*2^n) seconds before the next attempt. Any other failure, including a reply without
// choices, is retried until MaxAttempts is spent, after which ErrUpstream wraps the last cause.
func (c *Client) Complete(ctx context.Context, messages []Message, maxTokens int) (string, error) {
	req := openai.ChatCompletionRequest{
		Model:       c.cfg.Model,
		Messages:    toWire(messages),
		MaxTokens:   maxTokens,
		Temperature: c.cfg.Temperature,
	}

	var last error
	for attempt := 0; attempt < c.cfg.MaxAttempts; attempt++ {
		if attempt > 0 {
			if err := c.clock.Sleep(ctx, backoff(attempt)); err != nil {
				return "", err
			}
		}

		text, code, err := c.once(ctx, req)
		if err == nil {
			return text, nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", ctxErr
		}

		switch code {
		case http.StatusUnauthorized:
			c.log.Error("model endpoint rejected credentials", "attempt", attempt+1)
			return "", fmt.Errorf("%w: %w", ErrAuth, err)
		case http.StatusTooManyRequests, http.StatusServiceUnavailable:
			last = fmt.Errorf("%w: %w", ErrRateLimited, err)
			if attempt == c.cfg.MaxAttempts-1 {
				continue
			}
			wait := rateLimitWait(attempt)
			c.log.Warn("model endpoint throttled",
				"attempt", attempt+1,
				"max_attempts", c.cfg.MaxAttempts,
				"status", code,
				"sleep", wait.String(),
			)
			if err := c.clock.Sleep(ctx, wait); err != nil {
				return "", err
			}
		default:
			last = err
			c.log.Warn("model request failed",
				"attempt", attempt+1,
				"max_attempts", c.cfg.MaxAttempts,
				"status", code,
				"error", err.Error(),
			)
		}
	}
	return "", fmt.Errorf("%w after %d attempts: %w", ErrUpstream, c.cfg.MaxAttempts, last)
}

func (c *Client) once(ctx context.Context, req openai.ChatCompletionRequest) (string, int, error) {
	attemptCtx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	start := time.Now()
	resp, err := c.api.CreateChatCompletion(attemptCtx, req)
	if err == nil && len(resp.Choices) == 0 {
		err = ErrEmptyCompletion
	}
	code := statusCode(err)
	if metrics := observability.Current(); metrics != nil {
		metrics.ObserveLLMRequest(c.cfg.Model, statusLabel(code, err), time.Since(start))
	}
	if err != nil {
		if code > 0 {
			err = &StatusError{StatusCode: code, Err: err}
		}
		return "", code, err
	}
	return resp.Choices[0].Message.Content, http.StatusOK, nil
}

func backoff(attempt int) time.Duration {
	return time.Duration(math.Pow(2, float64(attempt))) * time.Second
}

func rateLimitWait(attempt int) time.Duration {
	wait := 10 * time.Duration(math.Pow(2, float64(attempt))) * time.Second
	if wait > 60*time.Second {
		wait = 60 * time.Second
	}
	return wait
}

func toWire(messages []Message) []openai.ChatCompletionMessage {
	out := make([]openai.ChatCompletionMessage, 0, len(messages))
	for _, m := range messages {
		out = append(out, openai.ChatCompletionMessage{Role: m.Role, Content: m.Content})
	}
	return out
}
