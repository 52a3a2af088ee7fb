// Package docstore is a small document database abstraction: JSON-shaped documents grouped into
// collections, looked up by equality filters on (possibly nested) fields.
package docstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
)

const (
	// KeyID and KeyOwner form the uniqueness key of a document inside its collection.
	KeyID    = "id"
	KeyOwner = "user_id"
)

var (
	ErrDuplicate = errors.New("document already exists")
	ErrNotFound  = errors.New("document not found")
	ErrNoID      = errors.New("document has no id")
)

// Doc is a decoded JSON object.
type Doc map[string]any

// Filter maps dotted field paths to the value they must equal. An empty filter matches every document.
// A path that crosses an array matches when any element matches.
type Filter map[string]any

// Mutation is applied to the first document matching a filter. Set replaces the value at each
// dotted path, creating intermediate objects. Inc adds to the numeric value at each path; a missing
// value counts as zero.
type Mutation struct {
	Set map[string]any
	Inc map[string]float64
}

func (m Mutation) Empty() bool {
	return len(m.Set) == 0 && len(m.Inc) == 0
}

type Store interface {
	// InsertUnique stores doc unless a document with the same id and owner already exists in collection.
	InsertUnique(ctx context.Context, collection string, doc Doc) error
	FindOne(ctx context.Context, collection string, filter Filter) (Doc, error)
	// FindMany returns matches in insertion order. limit <= 0 means no cap.
	FindMany(ctx context.Context, collection string, filter Filter, limit int) ([]Doc, error)
	// Update mutates the first match and reports how many documents it changed (0 or 1).
	Update(ctx context.Context, collection string, filter Filter, mut Mutation) (int, error)
	// Delete removes the document keyed by id and owner. Deleting a missing document is not an error.
	Delete(ctx context.Context, collection, id, owner string) error
}

// Encode converts a JSON-tagged struct into a Doc.
func Encode(v any) (Doc, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode document: %w", err)
	}
	return decodeDoc(raw)
}

// Decode fills v from d using the same JSON mapping as Encode.
func Decode(d Doc, v any) error {
	raw, err := json.Marshal(d)
	if err != nil {
		return fmt.Errorf("decode document: %w", err)
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("decode document: %w", err)
	}
	return nil
}

func marshalBody(d Doc) ([]byte, error) {
	raw, err := json.Marshal(d)
	if err != nil {
		return nil, fmt.Errorf("encode document: %w", err)
	}
	return raw, nil
}

func decodeDoc(raw []byte) (Doc, error) {
	var d Doc
	if err := json.Unmarshal(raw, &d); err != nil {
		return nil, fmt.Errorf("decode document: %w", err)
	}
	if d == nil {
		d = Doc{}
	}
	return d, nil
}

// clone returns a deep copy through the JSON representation so stored documents never alias caller data.
func clone(d Doc) (Doc, error) {
	raw, err := json.Marshal(d)
	if err != nil {
		return nil, err
	}
	return decodeDoc(raw)
}

func keyOf(d Doc) (id string, owner string, err error) {
	id, _ = d[KeyID].(string)
	if id == "" {
		return "", "", ErrNoID
	}
	owner, _ = d[KeyOwner].(string)
	return id, owner, nil
}
