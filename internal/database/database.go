package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"
	"go.uber.org/zap"
)

func NewConnection(ctx context.Context, connectStr string, log *zap.Logger) (*sql.DB, error) {
	db, err := sql.Open("postgres", connectStr)
	if err != nil {
		return nil, fmt.Errorf("error opening database: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetConnMaxIdleTime(5 * time.Minute)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("error connecting to database: %w", err)
	}

	log.Info("database connection established")
	return db, nil
}

const schema = `
CREATE TABLE IF NOT EXISTS conversions (
	id          UUID PRIMARY KEY,
	filename    TEXT NOT NULL,
	format      TEXT NOT NULL,
	checksum    TEXT NOT NULL,
	page_count  INTEGER NOT NULL,
	width       INTEGER NOT NULL,
	height      INTEGER NOT NULL,
	theme       JSONB NOT NULL DEFAULT '{}',
	fonts       JSONB NOT NULL DEFAULT '{}',
	object_url  TEXT NOT NULL DEFAULT '',
	created_at  TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS conversions_checksum_idx ON conversions (checksum);
`

// EnsureSchema creates the conversions table if it does not exist.
func EnsureSchema(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}
