package raster

import (
	"context"
	"fmt"
	"image"

	"github.com/gen2brain/go-fitz"
	"go.uber.org/zap"
)

// Fitz renders pages in-process with MuPDF.
type Fitz struct {
	dpi float64
	log *zap.Logger
}

func NewFitz(opts Options) *Fitz {
	log := opts.Log
	if log == nil {
		log = zap.NewNop()
	}
	return &Fitz{dpi: opts.DPI, log: log}
}

func (f *Fitz) Rasterize(ctx context.Context, pdf []byte) ([]Page, error) {
	doc, err := fitz.NewFromMemory(pdf)
	if err != nil {
		return nil, fmt.Errorf("failed to open pdf: %w", err)
	}
	defer doc.Close()

	count := doc.NumPage()
	if count == 0 {
		return nil, ErrEmptyDocument
	}

	pages := make([]Page, 0, count)
	for i := 0; i < count; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		var img image.Image
		if f.dpi > 0 {
			img, err = doc.ImageDPI(i, f.dpi)
		} else {
			img, err = doc.Image(i)
		}
		if err != nil {
			return nil, fmt.Errorf("failed to render page %d: %w", i+1, err)
		}
		pages = append(pages, NewPage(img))
	}

	f.log.Debug("pdf rasterized", zap.String("backend", string(BackendFitz)), zap.Int("pages", len(pages)))
	return pages, nil
}
