// Package history publishes finished conversions to object storage and
// records them in the database. Both backends are optional.
package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/gnemet/SlideLens/internal/database"
	"github.com/gnemet/SlideLens/internal/pipeline"
	"github.com/gnemet/SlideLens/internal/storage"
)

// ObjectStore is satisfied by *storage.S3Store.
type ObjectStore interface {
	Put(ctx context.Context, key string, data []byte, contentType string) (string, error)
}

type Recorder struct {
	db    *sql.DB
	store ObjectStore
	log   *zap.Logger
}

// NewRecorder accepts a nil db or store; the matching step is then skipped.
func NewRecorder(db *sql.DB, store ObjectStore, log *zap.Logger) *Recorder {
	if log == nil {
		log = zap.NewNop()
	}
	return &Recorder{db: db, store: store, log: log}
}

// HasDatabase reports whether conversions are persisted.
func (r *Recorder) HasDatabase() bool { return r != nil && r.db != nil }

// Record stores res for the input data. A conversion already recorded under
// the same checksum is returned as is, without a second upload or row.
func (r *Recorder) Record(ctx context.Context, filename string, data []byte, res *pipeline.Result) (*database.Conversion, error) {
	checksum := pipeline.Checksum(data)

	if r.db != nil {
		existing, err := database.GetConversionByChecksum(ctx, r.db, checksum)
		if err == nil {
			r.log.Info("conversion already recorded", zap.String("id", existing.ID), zap.String("checksum", checksum))
			return existing, nil
		}
		if !errors.Is(err, database.ErrNotFound) {
			return nil, fmt.Errorf("lookup checksum: %w", err)
		}
	}

	theme, err := json.Marshal(res.Theme)
	if err != nil {
		return nil, err
	}
	fonts := []byte("{}")
	if res.Fonts != nil {
		if fonts, err = json.Marshal(res.Fonts); err != nil {
			return nil, err
		}
	}

	c := &database.Conversion{
		ID:        uuid.NewString(),
		Filename:  filename,
		Format:    res.Format.String(),
		Checksum:  checksum,
		PageCount: len(res.Pages),
		Width:     res.Width,
		Height:    res.Height,
		Theme:     theme,
		Fonts:     fonts,
	}

	if r.store != nil && res.Encoded != nil {
		key := storage.ObjectKey(checksum, filename)
		url, err := r.store.Put(ctx, key, res.Encoded.Bytes(), "image/jpeg")
		if err != nil {
			return nil, fmt.Errorf("upload composite: %w", err)
		}
		c.ObjectURL = url
	}

	if r.db != nil {
		if err := database.SaveConversion(ctx, r.db, c); err != nil {
			return nil, fmt.Errorf("save conversion: %w", err)
		}
	}

	r.log.Info("conversion recorded", zap.String("id", c.ID), zap.String("file", filename), zap.String("object_url", c.ObjectURL))
	return c, nil
}

// List returns recent conversions, or nil when there is no database.
func (r *Recorder) List(ctx context.Context, limit int) ([]database.Conversion, error) {
	if !r.HasDatabase() {
		return nil, nil
	}
	return database.ListConversions(ctx, r.db, limit)
}
