package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"
)

// ErrNotFound is returned when no conversion matches a lookup.
var ErrNotFound = errors.New("conversion not found")

type Conversion struct {
	ID        string          `json:"id"`
	Filename  string          `json:"filename"`
	Format    string          `json:"format"`
	Checksum  string          `json:"checksum"`
	PageCount int             `json:"page_count"`
	Width     int             `json:"width"`
	Height    int             `json:"height"`
	Theme     json.RawMessage `json:"theme"`
	Fonts     json.RawMessage `json:"fonts"`
	ObjectURL string          `json:"object_url"`
	CreatedAt time.Time       `json:"created_at"`
}

const selectColumns = "SELECT id, filename, format, checksum, page_count, width, height, theme, fonts, object_url, created_at FROM conversions"

func SaveConversion(ctx context.Context, db *sql.DB, c *Conversion) error {
	query := `
		INSERT INTO conversions (id, filename, format, checksum, page_count, width, height, theme, fonts, object_url)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING created_at
	`
	theme, fonts := orEmpty(c.Theme), orEmpty(c.Fonts)
	return db.QueryRowContext(ctx, query, c.ID, c.Filename, c.Format, c.Checksum, c.PageCount, c.Width, c.Height, theme, fonts, c.ObjectURL).Scan(&c.CreatedAt)
}

// GetConversionByChecksum returns the latest conversion of an identical input.
func GetConversionByChecksum(ctx context.Context, db *sql.DB, checksum string) (*Conversion, error) {
	row := db.QueryRowContext(ctx, selectColumns+" WHERE checksum = $1 ORDER BY created_at DESC LIMIT 1", checksum)
	c, err := scanConversion(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return c, nil
}

// ListConversions returns the newest conversions first.
func ListConversions(ctx context.Context, db *sql.DB, limit int) ([]Conversion, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := db.QueryContext(ctx, selectColumns+" ORDER BY created_at DESC LIMIT $1", limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	conversions := []Conversion{}
	for rows.Next() {
		c, err := scanConversion(rows)
		if err != nil {
			return nil, err
		}
		conversions = append(conversions, *c)
	}
	return conversions, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanConversion(s scanner) (*Conversion, error) {
	var c Conversion
	var theme, fonts []byte
	err := s.Scan(&c.ID, &c.Filename, &c.Format, &c.Checksum, &c.PageCount, &c.Width, &c.Height, &theme, &fonts, &c.ObjectURL, &c.CreatedAt)
	if err != nil {
		return nil, err
	}
	c.Theme, c.Fonts = theme, fonts
	return &c, nil
}

// orEmpty passes JSON as text; lib/pq would send a []byte as bytea.
func orEmpty(raw json.RawMessage) string {
	if len(raw) == 0 {
		return "{}"
	}
	return string(raw)
}
