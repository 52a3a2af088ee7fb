package docstore

import (
	"context"
	"sync"
)

// Memory keeps collections in process. It is the reference implementation the other backends are
// tested against.
type Memory struct {
	mu          sync.RWMutex
	collections map[string][]Doc
}

func NewMemory() *Memory {
	return &Memory{collections: map[string][]Doc{}}
}

func (m *Memory) InsertUnique(ctx context.Context, collection string, doc Doc) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	id, owner, err := keyOf(doc)
	if err != nil {
		return err
	}
	stored, err := clone(doc)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.collections[collection] {
		eid, eowner, _ := keyOf(existing)
		if eid == id && eowner == owner {
			return ErrDuplicate
		}
	}
	m.collections[collection] = append(m.collections[collection], stored)
	return nil
}

func (m *Memory) FindOne(ctx context.Context, collection string, filter Filter) (Doc, error) {
	docs, err := m.FindMany(ctx, collection, filter, 1)
	if err != nil {
		return nil, err
	}
	if len(docs) == 0 {
		return nil, ErrNotFound
	}
	return docs[0], nil
}

func (m *Memory) FindMany(ctx context.Context, collection string, filter Filter, limit int) ([]Doc, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := []Doc{}
	for _, d := range m.collections[collection] {
		if !Matches(d, filter) {
			continue
		}
		c, err := clone(d)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}

func (m *Memory) Update(ctx context.Context, collection string, filter Filter, mut Mutation) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	for i, d := range m.collections[collection] {
		if !Matches(d, filter) {
			continue
		}
		next, err := clone(d)
		if err != nil {
			return 0, err
		}
		if err := apply(next, mut); err != nil {
			return 0, err
		}
		m.collections[collection][i] = next
		return 1, nil
	}
	return 0, nil
}

func (m *Memory) Delete(ctx context.Context, collection, id, owner string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	docs := m.collections[collection]
	for i, d := range docs {
		eid, eowner, _ := keyOf(d)
		if eid == id && eowner == owner {
			m.collections[collection] = append(docs[:i:i], docs[i+1:]...)
			return nil
		}
	}
	return nil
}
