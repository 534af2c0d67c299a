package docstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// DocumentRow is the table layout shared with the Postgres backend.
type DocumentRow struct {
	Collection string         `gorm:"primaryKey;size:512"`
	ID         string         `gorm:"primaryKey;size:128"`
	Data       datatypes.JSON `gorm:"not null"`
	Seq        int64          `gorm:"not null;default:0;index"`
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

func (DocumentRow) TableName() string {
	return "documents"
}

// GormStore is the document store over any gorm dialect. It backs the
// sqlite driver used for local development.
type GormStore struct {
	db *gorm.DB
}

func NewGormStore(db *gorm.DB) (*GormStore, error) {
	if err := db.AutoMigrate(&DocumentRow{}); err != nil {
		return nil, fmt.Errorf("migrate documents: %w", err)
	}
	return &GormStore{db: db}, nil
}

func (s *GormStore) Get(ctx context.Context, collection, id string) (Doc, error) {
	var row DocumentRow
	err := s.db.WithContext(ctx).
		Where("collection = ? AND id = ?", collection, id).
		First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%s/%s: %w", collection, id, ErrNotFound)
		}
		return nil, err
	}
	return decodeRow(row)
}

func (s *GormStore) List(ctx context.Context, collection string) ([]Snapshot, error) {
	var rows []DocumentRow
	err := s.db.WithContext(ctx).
		Where("collection = ?", collection).
		Order("seq ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}

	out := make([]Snapshot, 0, len(rows))
	for _, row := range rows {
		doc, err := decodeRow(row)
		if err != nil {
			return nil, err
		}
		out = append(out, Snapshot{ID: row.ID, Data: doc})
	}
	return out, nil
}

func (s *GormStore) Add(ctx context.Context, collection string, data Doc) (string, error) {
	id := uuid.NewString()
	return id, s.Commit(ctx, []Write{{Kind: WriteSet, Collection: collection, ID: id, Data: data}})
}

func (s *GormStore) Set(ctx context.Context, collection, id string, data Doc, merge bool) error {
	kind := WriteSet
	if merge {
		kind = WriteMerge
	}
	return s.Commit(ctx, []Write{{Kind: kind, Collection: collection, ID: id, Data: data}})
}

func (s *GormStore) Update(ctx context.Context, collection, id string, data Doc) error {
	return s.Commit(ctx, []Write{{Kind: WriteUpdate, Collection: collection, ID: id, Data: data}})
}

func (s *GormStore) Delete(ctx context.Context, collection, id string) error {
	return s.Commit(ctx, []Write{{Kind: WriteDelete, Collection: collection, ID: id}})
}

func (s *GormStore) Commit(ctx context.Context, writes []Write) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, w := range writes {
			if err := applyGorm(tx, w); err != nil {
				return err
			}
		}
		return nil
	})
}

func applyGorm(tx *gorm.DB, w Write) error {
	if w.Kind == WriteDelete {
		return tx.Where("collection = ? AND id = ?", w.Collection, w.ID).
			Delete(&DocumentRow{}).Error
	}

	var (
		existing Doc
		found    bool
	)
	if w.Kind != WriteSet {
		var row DocumentRow
		err := tx.Where("collection = ? AND id = ?", w.Collection, w.ID).First(&row).Error
		switch {
		case err == nil:
			found = true
			doc, err := decodeRow(row)
			if err != nil {
				return err
			}
			existing = doc
		case errors.Is(err, gorm.ErrRecordNotFound):
		default:
			return err
		}
	}

	result, _, err := Apply(existing, found, w)
	if err != nil {
		return err
	}
	data, err := json.Marshal(result)
	if err != nil {
		return err
	}

	// seq is only taken on insert. The upsert below never rewrites it.
	var next int64
	if err := tx.Model(&DocumentRow{}).Select("COALESCE(MAX(seq), 0) + 1").Scan(&next).Error; err != nil {
		return err
	}

	row := DocumentRow{Collection: w.Collection, ID: w.ID, Data: datatypes.JSON(data), Seq: next}
	return tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "collection"}, {Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"data", "updated_at"}),
	}).Create(&row).Error
}

func decodeRow(row DocumentRow) (Doc, error) {
	doc := Doc{}
	if err := json.Unmarshal(row.Data, &doc); err != nil {
		return nil, fmt.Errorf("decode %s/%s: %w", row.Collection, row.ID, err)
	}
	return doc, nil
}
