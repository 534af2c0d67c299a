package docstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore keeps every document as a JSONB row in the documents table.
type PostgresStore struct {
	db *pgxpool.Pool
}

func NewPostgresStore(db *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{db: db}
}

// --------------------------------------------------
// Reads
// --------------------------------------------------

func (s *PostgresStore) Get(ctx context.Context, collection, id string) (Doc, error) {
	var raw []byte
	err := s.db.QueryRow(ctx, `
		SELECT data
		FROM documents
		WHERE collection = $1 AND id = $2
	`, collection, id).Scan(&raw)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%s/%s: %w", collection, id, ErrNotFound)
		}
		return nil, err
	}

	doc := Doc{}
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, err
	}
	return doc, nil
}

func (s *PostgresStore) List(ctx context.Context, collection string) ([]Snapshot, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id, data
		FROM documents
		WHERE collection = $1
		ORDER BY seq ASC
	`, collection)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Snapshot
	for rows.Next() {
		var (
			id  string
			raw []byte
		)
		if err := rows.Scan(&id, &raw); err != nil {
			return nil, err
		}
		doc := Doc{}
		if err := json.Unmarshal(raw, &doc); err != nil {
			return nil, fmt.Errorf("decode %s/%s: %w", collection, id, err)
		}
		out = append(out, Snapshot{ID: id, Data: doc})
	}
	return out, rows.Err()
}

// --------------------------------------------------
// Writes
// --------------------------------------------------

func (s *PostgresStore) Add(ctx context.Context, collection string, data Doc) (string, error) {
	id := uuid.NewString()
	return id, s.Commit(ctx, []Write{{Kind: WriteSet, Collection: collection, ID: id, Data: data}})
}

func (s *PostgresStore) Set(ctx context.Context, collection, id string, data Doc, merge bool) error {
	kind := WriteSet
	if merge {
		kind = WriteMerge
	}
	return s.Commit(ctx, []Write{{Kind: kind, Collection: collection, ID: id, Data: data}})
}

func (s *PostgresStore) Update(ctx context.Context, collection, id string, data Doc) error {
	return s.Commit(ctx, []Write{{Kind: WriteUpdate, Collection: collection, ID: id, Data: data}})
}

func (s *PostgresStore) Delete(ctx context.Context, collection, id string) error {
	return s.Commit(ctx, []Write{{Kind: WriteDelete, Collection: collection, ID: id}})
}

// Commit runs the whole batch in one transaction. Rows are locked with
// FOR UPDATE so merges are read-modify-write safe.
func (s *PostgresStore) Commit(ctx context.Context, writes []Write) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	for _, w := range writes {
		if err := applyPostgres(ctx, tx, w); err != nil {
			return err
		}
	}

	return tx.Commit(ctx)
}

func applyPostgres(ctx context.Context, tx pgx.Tx, w Write) error {
	if w.Kind == WriteDelete {
		_, err := tx.Exec(ctx, `
			DELETE FROM documents
			WHERE collection = $1 AND id = $2
		`, w.Collection, w.ID)
		return err
	}

	var (
		existing Doc
		found    bool
	)
	if w.Kind != WriteSet {
		var raw []byte
		err := tx.QueryRow(ctx, `
			SELECT data
			FROM documents
			WHERE collection = $1 AND id = $2
			FOR UPDATE
		`, w.Collection, w.ID).Scan(&raw)
		switch {
		case err == nil:
			found = true
			existing = Doc{}
			if err := json.Unmarshal(raw, &existing); err != nil {
				return err
			}
		case errors.Is(err, pgx.ErrNoRows):
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

	_, err = tx.Exec(ctx, `
		INSERT INTO documents (collection, id, data, created_at, updated_at)
		VALUES ($1, $2, $3, now(), now())
		ON CONFLICT (collection, id)
		DO UPDATE SET data = EXCLUDED.data, updated_at = now()
	`, w.Collection, w.ID, data)
	return err
}
