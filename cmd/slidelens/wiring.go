package main

import (
	"context"
	"database/sql"
	"fmt"

	"go.uber.org/zap"

	"github.com/gnemet/SlideLens/internal/config"
	"github.com/gnemet/SlideLens/internal/convert"
	"github.com/gnemet/SlideLens/internal/database"
	"github.com/gnemet/SlideLens/internal/history"
	"github.com/gnemet/SlideLens/internal/pipeline"
	"github.com/gnemet/SlideLens/internal/raster"
	"github.com/gnemet/SlideLens/internal/storage"
)

// newPipeline builds the conversion pipeline. A missing office install only
// disables deck input, so PDFs still convert.
func newPipeline(cfg config.ConversionConfig, log *zap.Logger) (*pipeline.Pipeline, error) {
	r, err := raster.New(raster.Backend(cfg.RasterBackend), raster.Options{
		DPI:     cfg.DPI,
		TempDir: cfg.TempDir,
		Log:     log,
	})
	if err != nil {
		return nil, err
	}

	var office pipeline.DeckConverter
	oc, err := convert.NewOfficeConverter(cfg.OfficeBinary, cfg.Timeout, log)
	if err != nil {
		log.Warn("deck conversion unavailable", zap.Error(err))
	} else {
		oc.TempDir = cfg.TempDir
		office = oc
	}

	return pipeline.New(office, r, log), nil
}

// newRecorder connects whichever of the database and object store are
// configured. The returned cleanup closes the database.
func newRecorder(ctx context.Context, cfg *config.Config, log *zap.Logger) (*history.Recorder, func(), error) {
	var db *sql.DB
	cleanup := func() {}

	if cfg.Database.Enabled() {
		var err error
		db, err = database.NewConnection(ctx, cfg.Database.GetConnectStr(), log)
		if err != nil {
			return nil, cleanup, err
		}
		cleanup = func() { db.Close() }
		if err := database.EnsureSchema(ctx, db); err != nil {
			cleanup()
			return nil, func() {}, err
		}
	}

	var store history.ObjectStore
	if cfg.Storage.Enabled() {
		s3, err := storage.NewS3Store(ctx, cfg.Storage, log)
		if err != nil {
			cleanup()
			return nil, func() {}, fmt.Errorf("object storage: %w", err)
		}
		store = s3
	}

	return history.NewRecorder(db, store, log), cleanup, nil
}
