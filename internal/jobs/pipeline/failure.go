package pipeline

import (
	"errors"
	"fmt"

	"github.com/yungbote/coursegen-backend/internal/domain"
	"github.com/yungbote/coursegen-backend/internal/ingestion/extractor"
	"github.com/yungbote/coursegen-backend/internal/platform/llm"
)

type tooShortError struct {
	chars int
	min   int
}

func (e *tooShortError) Error() string {
	return fmt.Sprintf("extracted text is too short (%d < %d characters)", e.chars, e.min)
}

func extractingMessage(t domain.DocumentType) string {
	switch t {
	case domain.DocumentPDF:
		return "Extracting text from PDF..."
	case domain.DocumentURL:
		return "Fetching document..."
	default:
		return "Extracting text..."
	}
}

// failureMessage turns a run error into the message shown to polling clients.
func failureMessage(t domain.DocumentType, err error) string {
	var short *tooShortError
	unreadable := errors.As(err, &short) || extractor.IsReason(err, extractor.ReasonNoTextFound)
	empty := extractor.IsReason(err, extractor.ReasonEmptyInput) || extractor.IsReason(err, extractor.ReasonCorruptDocument)

	switch {
	case unreadable && t == domain.DocumentPDF:
		return "PDF appears to be image-based. Text extraction failed."
	case unreadable:
		return "Document contains too little readable text."
	case empty && t == domain.DocumentPDF:
		return "Uploaded PDF is empty or corrupted."
	case empty:
		return "Uploaded document is empty or corrupted."
	case extractor.IsReason(err, extractor.ReasonUnsupportedType):
		return "Unsupported document type."
	case errors.Is(err, llm.ErrAuth):
		return "AI service credentials are invalid. Please contact the administrator."
	default:
		return "Processing failed: " + err.Error()
	}
}
