package docstore

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const fieldSeq = "_seq"

// Firestore maps each collection onto a Firestore collection. The document name is derived from the
// owner and id so Create enforces uniqueness server side.
type Firestore struct {
	client *firestore.Client
}

func NewFirestoreClient(ctx context.Context, projectID string, opts ...option.ClientOption) (*firestore.Client, error) {
	if projectID == "" {
		return nil, fmt.Errorf("projectID must be provided to create a firestore client")
	}
	client, err := firestore.NewClient(ctx, projectID, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create Firestore client: %w", err)
	}
	return client, nil
}

func NewFirestore(client *firestore.Client) *Firestore {
	return &Firestore{client: client}
}

func docName(id, owner string) string {
	if owner == "" {
		return id
	}
	return owner + "~" + id
}

func (f *Firestore) InsertUnique(ctx context.Context, collection string, doc Doc) error {
	id, owner, err := keyOf(doc)
	if err != nil {
		return err
	}
	body, err := clone(doc)
	if err != nil {
		return err
	}
	body[fieldSeq] = time.Now().UTC().UnixNano()
	_, err = f.client.Collection(collection).Doc(docName(id, owner)).Create(ctx, map[string]any(body))
	if status.Code(err) == codes.AlreadyExists {
		return ErrDuplicate
	}
	if err != nil {
		return fmt.Errorf("firestore create %s/%s: %w", collection, id, err)
	}
	return nil
}

func (f *Firestore) FindOne(ctx context.Context, collection string, filter Filter) (Doc, error) {
	docs, err := f.FindMany(ctx, collection, filter, 1)
	if err != nil {
		return nil, err
	}
	if len(docs) == 0 {
		return nil, ErrNotFound
	}
	return docs[0], nil
}

func (f *Firestore) FindMany(ctx context.Context, collection string, filter Filter, limit int) ([]Doc, error) {
	snaps, err := f.query(ctx, collection, filter, limit)
	if err != nil {
		return nil, err
	}
	out := make([]Doc, 0, len(snaps))
	for _, s := range snaps {
		d := Doc(s.Data())
		delete(d, fieldSeq)
		n, err := clone(d)
		if err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, nil
}

func (f *Firestore) Update(ctx context.Context, collection string, filter Filter, mut Mutation) (int, error) {
	snaps, err := f.query(ctx, collection, filter, 1)
	if err != nil {
		return 0, err
	}
	if len(snaps) == 0 {
		return 0, nil
	}
	if mut.Empty() {
		return 1, nil
	}
	updates := make([]firestore.Update, 0, len(mut.Set)+len(mut.Inc))
	for path, v := range mut.Set {
		updates = append(updates, firestore.Update{Path: path, Value: normalize(v)})
	}
	for path, delta := range mut.Inc {
		updates = append(updates, firestore.Update{Path: path, Value: firestore.Increment(delta)})
	}
	if _, err := snaps[0].Ref.Update(ctx, updates); err != nil {
		return 0, fmt.Errorf("firestore update %s/%s: %w", collection, snaps[0].Ref.ID, err)
	}
	return 1, nil
}

func (f *Firestore) Delete(ctx context.Context, collection, id, owner string) error {
	if _, err := f.client.Collection(collection).Doc(docName(id, owner)).Delete(ctx); err != nil {
		return fmt.Errorf("firestore delete %s/%s: %w", collection, id, err)
	}
	return nil
}

func (f *Firestore) query(ctx context.Context, collection string, filter Filter, limit int) ([]*firestore.DocumentSnapshot, error) {
	q := f.client.Collection(collection).Query
	for path, want := range filter {
		q = q.Where(path, "==", normalize(want))
	}
	// Ordering on _seq would need a composite index per filter shape; sort client side instead.
	iter := q.Documents(ctx)
	defer iter.Stop()

	var out []*firestore.DocumentSnapshot
	for {
		snap, err := iter.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("firestore query %s: %w", collection, err)
		}
		out = append(out, snap)
	}
	sortBySeq(out)
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func sortBySeq(snaps []*firestore.DocumentSnapshot) {
	seq := func(s *firestore.DocumentSnapshot) int64 {
		v, err := s.DataAt(fieldSeq)
		if err != nil {
			return 0
		}
		n, _ := v.(int64)
		return n
	}
	sort.SliceStable(snaps, func(i, j int) bool { return seq(snaps[i]) < seq(snaps[j]) })
}
