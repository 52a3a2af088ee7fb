// Package extractor turns uploaded documents into cleaned plain text.
package extractor

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/yungbote/coursegen-backend/internal/domain"
	"github.com/yungbote/coursegen-backend/internal/platform/logger"
)

type Reason string

const (
	ReasonEmptyInput      Reason = "empty-input"
	ReasonNoTextFound     Reason = "no-text-found"
	ReasonCorruptDocument Reason = "corrupt-document"
	ReasonUnsupportedType Reason = "unsupported-type"
)

// ExtractionError reports why a document produced no usable text.
type ExtractionError struct {
	Reason Reason
	Err    error
}

func (e *ExtractionError) Error() string {
	if e.Err == nil {
		return "extraction failed: " + string(e.Reason)
	}
	return fmt.Sprintf("extraction failed: %s: %v", e.Reason, e.Err)
}

func (e *ExtractionError) Unwrap() error { return e.Err }

// IsReason reports whether err is an ExtractionError with reason r.
func IsReason(err error, r Reason) bool {
	var ee *ExtractionError
	return errors.As(err, &ee) && ee.Reason == r
}

func fail(r Reason, err error) error {
	return &ExtractionError{Reason: r, Err: err}
}

// Document is the raw input. For DocumentURL the payload holds the URL.
type Document struct {
	Type        domain.DocumentType
	Payload     []byte
	ContentType string
}

type Extractor struct {
	log           *logger.Logger
	http          *http.Client
	maxFetchBytes int64
}

type Option func(*Extractor)

func WithHTTPClient(c *http.Client) Option {
	return func(e *Extractor) {
		if c != nil {
			e.http = c
		}
	}
}

func WithMaxFetchBytes(n int64) Option {
	return func(e *Extractor) {
		if n > 0 {
			e.maxFetchBytes = n
		}
	}
}

func New(log *logger.Logger, opts ...Option) *Extractor {
	if log == nil {
		log = logger.Nop()
	}
	e := &Extractor{
		log:           log.With("service", "Extractor"),
		http:          newFetchClient(30 * time.Second),
		maxFetchBytes: 20 << 20,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Extract returns cleaned text. It fails only when nothing readable remains; length policy belongs
// to the caller.
func (e *Extractor) Extract(ctx context.Context, doc Document) (string, error) {
	if len(doc.Payload) == 0 {
		return "", fail(ReasonEmptyInput, nil)
	}

	var (
		raw string
		err error
	)
	switch doc.Type {
	case domain.DocumentPDF:
		raw, err = extractPDF(doc.Payload)
	case domain.DocumentText:
		raw = sanitizeUTF8(string(doc.Payload))
	case domain.DocumentURL:
		raw, err = e.extractURL(ctx, strings.TrimSpace(string(doc.Payload)))
	default:
		return "", fail(ReasonUnsupportedType, fmt.Errorf("document type %q", doc.Type))
	}
	if err != nil {
		return "", err
	}

	text := Clean(raw)
	if text == "" {
		return "", fail(ReasonNoTextFound, nil)
	}
	e.log.Debug("document extracted", "type", doc.Type, "bytes", len(doc.Payload), "chars", utf8.RuneCountInString(text))
	return text, nil
}

func sanitizeUTF8(s string) string {
	if utf8.ValidString(s) {
		return s
	}
	return strings.ToValidUTF8(s, " ")
}
