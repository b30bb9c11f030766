// Package raster turns PDF bytes into one bitmap per page.
package raster

import (
	"context"
	"errors"
	"fmt"
	"image"

	"go.uber.org/zap"
)

// ErrEmptyDocument is returned when a document has no pages to render.
var ErrEmptyDocument = errors.New("document has no pages")

// Page is one rendered page.
type Page struct {
	Image  image.Image
	Width  int
	Height int
}

// NewPage wraps an image, taking its size from the bounds.
func NewPage(img image.Image) Page {
	b := img.Bounds()
	return Page{Image: img, Width: b.Dx(), Height: b.Dy()}
}

// Rasterizer renders every page of a PDF in page order.
type Rasterizer interface {
	Rasterize(ctx context.Context, pdf []byte) ([]Page, error)
}

// Backend names a Rasterizer implementation.
type Backend string

const (
	BackendFitz    Backend = "fitz"
	BackendPoppler Backend = "poppler"
)

// Options configures a backend. DPI 0 keeps the backend's default resolution.
type Options struct {
	DPI     float64
	TempDir string
	Log     *zap.Logger
}

// New returns the rasterizer for backend. An empty backend selects fitz.
func New(backend Backend, opts Options) (Rasterizer, error) {
	if opts.Log == nil {
		opts.Log = zap.NewNop()
	}
	switch backend {
	case BackendFitz, "":
		return NewFitz(opts), nil
	case BackendPoppler:
		return NewPoppler(opts)
	default:
		return nil, fmt.Errorf("unknown raster backend: %s", backend)
	}
}
