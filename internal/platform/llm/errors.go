package llm

import (
	"context"
	"errors"
	"regexp"
	"strconv"

	openai "github.com/sashabaranov/go-openai"
)

var (
	// ErrAuth means the endpoint rejected the credential. It is never retried.
	ErrAuth = errors.New("model endpoint rejected credentials")
	// ErrRateLimited marks a 429/503 response.
	ErrRateLimited = errors.New("model endpoint rate limited")
	// ErrUpstream is returned once every attempt has failed. It wraps the last cause.
	ErrUpstream = errors.New("model endpoint unavailable")
	// ErrEmptyCompletion is a 2xx response carrying no choices.
	ErrEmptyCompletion = errors.New("model returned no choices")
)

// StatusError is a non-2xx response from the endpoint.
type StatusError struct {
	StatusCode int
	Err        error
}

func (e *StatusError) Error() string {
	if e.Err == nil {
		return "model http " + strconv.Itoa(e.StatusCode)
	}
	return "model http " + strconv.Itoa(e.StatusCode) + ": " + e.Err.Error()
}

func (e *StatusError) Unwrap() error { return e.Err }

func (e *StatusError) HTTPStatusCode() int {
	if e == nil {
		return 0
	}
	return e.StatusCode
}

var statusInMessage = regexp.MustCompile(`status code: (\d{3})`)

// statusCode recovers the HTTP status from a go-openai error. Zero means the request never got a
// response (network failure, timeout, decode error).
func statusCode(err error) int {
	if err == nil {
		return 0
	}
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.HTTPStatusCode
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return reqErr.HTTPStatusCode
	}
	if m := statusInMessage.FindStringSubmatch(err.Error()); len(m) == 2 {
		n, _ := strconv.Atoi(m[1])
		return n
	}
	return 0
}

func statusLabel(code int, err error) string {
	switch {
	case err == nil:
		return "200"
	case code > 0:
		return strconv.Itoa(code)
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case errors.Is(err, context.Canceled):
		return "canceled"
	case errors.Is(err, ErrEmptyCompletion):
		return "empty"
	default:
		return "error"
	}
}
