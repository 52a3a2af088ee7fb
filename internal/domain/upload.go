package domain

import "time"

type DocumentType string

const (
	DocumentPDF  DocumentType = "pdf"
	DocumentText DocumentType = "text"
	DocumentURL  DocumentType = "url"
)

func (t DocumentType) Valid() bool {
	switch t {
	case DocumentPDF, DocumentText, DocumentURL:
		return true
	default:
		return false
	}
}

// Upload is a stored source document. Payload is written once at upload time and never changed.
// When the payload lives in object storage only StorageKey is set.
type Upload struct {
	ID          string       `json:"id"`
	UserID      string       `json:"user_id"`
	Type        DocumentType `json:"type"`
	Title       string       `json:"title"`
	Filename    string       `json:"filename,omitempty"`
	ContentType string       `json:"content_type,omitempty"`
	Payload     []byte       `json:"payload,omitempty"`
	StorageKey  string       `json:"storage_key,omitempty"`
	Size        int64        `json:"size"`
	Status      string       `json:"status"`
	CreatedAt   time.Time    `json:"createdAt"`
}
