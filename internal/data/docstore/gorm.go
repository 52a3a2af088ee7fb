package docstore

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Row is one stored document in the SQL backend.
type Row struct {
	Seq        uint64         `gorm:"primaryKey;autoIncrement"`
	Collection string         `gorm:"size:64;not null;uniqueIndex:idx_document_key,priority:1"`
	DocID      string         `gorm:"size:128;not null;uniqueIndex:idx_document_key,priority:2"`
	OwnerID    string         `gorm:"size:128;not null;default:'';uniqueIndex:idx_document_key,priority:3"`
	Body       datatypes.JSON `gorm:"not null"`
	CreatedAt  time.Time      `gorm:"not null"`
	UpdatedAt  time.Time      `gorm:"not null"`
}

func (Row) TableName() string { return "document" }

// Gorm stores documents in a single table with a JSON body column. String-valued filters on top-level
// fields are pushed down with datatypes.JSONQuery; everything else is checked in process with Matches.
type Gorm struct {
	db *gorm.DB
}

func NewGorm(db *gorm.DB) *Gorm {
	return &Gorm{db: db}
}

func (g *Gorm) InsertUnique(ctx context.Context, collection string, doc Doc) error {
	id, owner, err := keyOf(doc)
	if err != nil {
		return err
	}
	raw, err := marshalBody(doc)
	if err != nil {
		return err
	}
	err = g.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var n int64
		if err := tx.Model(&Row{}).
			Where("collection = ? AND doc_id = ? AND owner_id = ?", collection, id, owner).
			Count(&n).Error; err != nil {
			return err
		}
		if n > 0 {
			return ErrDuplicate
		}
		return tx.Create(&Row{
			Collection: collection,
			DocID:      id,
			OwnerID:    owner,
			Body:       datatypes.JSON(raw),
		}).Error
	})
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return ErrDuplicate
	}
	return err
}

func (g *Gorm) FindOne(ctx context.Context, collection string, filter Filter) (Doc, error) {
	docs, err := g.FindMany(ctx, collection, filter, 1)
	if err != nil {
		return nil, err
	}
	if len(docs) == 0 {
		return nil, ErrNotFound
	}
	return docs[0], nil
}

func (g *Gorm) FindMany(ctx context.Context, collection string, filter Filter, limit int) ([]Doc, error) {
	rows, err := g.scan(g.db.WithContext(ctx), collection, filter, limit, false)
	if err != nil {
		return nil, err
	}
	out := make([]Doc, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.doc)
	}
	return out, nil
}

func (g *Gorm) Update(ctx context.Context, collection string, filter Filter, mut Mutation) (int, error) {
	matched := 0
	err := g.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		rows, err := g.scan(tx, collection, filter, 1, true)
		if err != nil || len(rows) == 0 {
			return err
		}
		target := rows[0]
		if err := apply(target.doc, mut); err != nil {
			return err
		}
		raw, err := marshalBody(target.doc)
		if err != nil {
			return err
		}
		if err := tx.Model(&Row{}).
			Where("seq = ?", target.seq).
			Updates(map[string]any{"body": datatypes.JSON(raw), "updated_at": time.Now().UTC()}).Error; err != nil {
			return err
		}
		matched = 1
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("update %s: %w", collection, err)
	}
	return matched, nil
}

func (g *Gorm) Delete(ctx context.Context, collection, id, owner string) error {
	err := g.db.WithContext(ctx).
		Where("collection = ? AND doc_id = ? AND owner_id = ?", collection, id, owner).
		Delete(&Row{}).Error
	if err != nil {
		return fmt.Errorf("delete %s/%s: %w", collection, id, err)
	}
	return nil
}

type decodedRow struct {
	seq uint64
	doc Doc
}

func (g *Gorm) scan(tx *gorm.DB, collection string, filter Filter, limit int, lock bool) ([]decodedRow, error) {
	q := tx.Model(&Row{}).Where("collection = ?", collection).Order("seq ASC")
	pushedAll := true
	for path, want := range filter {
		s, ok := want.(string)
		if !ok || path == "" || strings.Contains(path, ".") {
			pushedAll = false
			continue
		}
		q = q.Where(datatypes.JSONQuery("body").Equals(s, path))
	}
	if pushedAll && limit > 0 {
		q = q.Limit(limit)
	}
	if lock && tx.Dialector.Name() == "postgres" {
		q = q.Clauses(clause.Locking{Strength: "UPDATE"})
	}

	var rows []Row
	if err := q.Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]decodedRow, 0, len(rows))
	for _, r := range rows {
		d, err := decodeDoc(r.Body)
		if err != nil {
			return nil, err
		}
		if !Matches(d, filter) {
			continue
		}
		out = append(out, decodedRow{seq: r.Seq, doc: d})
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}
