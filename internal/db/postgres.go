package db

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sirupsen/logrus"
)

func ConnectPostgres(ctx context.Context, dsn string, log logrus.FieldLogger) (*pgxpool.Pool, error) {
	if dsn == "" {
		return nil, fmt.Errorf("DATABASE_URL not set")
	}

	config, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}

	config.MaxConns = 10
	config.MinConns = 2
	config.MaxConnLifetime = time.Hour

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, err
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres connection failed: %w", err)
	}

	log.Info("connected to postgres")

	if err := initSchema(ctx, pool); err != nil {
		pool.Close()
		return nil, fmt.Errorf("initialize schema: %w", err)
	}

	log.Info("schema initialized")
	return pool, nil
}

// initSchema creates the documents table and its indexes.
func initSchema(ctx context.Context, pool *pgxpool.Pool) error {
	// -------------------------------
	// DOCUMENTS
	// -------------------------------
	documentsSQL := `
		CREATE TABLE IF NOT EXISTS documents (
			collection TEXT NOT NULL,
			id TEXT NOT NULL,
			data JSONB NOT NULL,
			seq BIGSERIAL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			PRIMARY KEY (collection, id)
		)
	`
	if _, err := pool.Exec(ctx, documentsSQL); err != nil {
		return err
	}

	// Tables created before seq existed pick it up here.
	seqSQL := `
		ALTER TABLE documents ADD COLUMN IF NOT EXISTS seq BIGSERIAL
	`
	if _, err := pool.Exec(ctx, seqSQL); err != nil {
		return err
	}

	// List orders by insertion sequence inside a collection. Rows written in
	// one transaction share created_at, so the timestamp cannot order them.
	orderIndexSQL := `
		CREATE INDEX IF NOT EXISTS documents_collection_seq_idx
		ON documents (collection, seq)
	`
	_, err := pool.Exec(ctx, orderIndexSQL)
	return err
}
