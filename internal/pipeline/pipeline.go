// Package pipeline drives a document from raw bytes to one composite JPEG.
package pipeline

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"image"
	"time"

	"github.com/dustin/go-humanize"
	"go.uber.org/zap"

	"github.com/gnemet/SlideLens/internal/compose"
	"github.com/gnemet/SlideLens/internal/convert"
	"github.com/gnemet/SlideLens/internal/pptx"
	"github.com/gnemet/SlideLens/internal/raster"
)

// Converter turns document bytes tagged with a format into a Result. Servers
// and the inbox observer depend on this rather than on *Pipeline.
type Converter interface {
	Convert(ctx context.Context, data []byte, tag string) (*Result, error)
}

var _ Converter = (*Pipeline)(nil)

// ErrNoDeckConverter is returned for deck input when no office suite is
// available. It wraps convert.ErrConversionFailed.
var ErrNoDeckConverter = fmt.Errorf("%w: no office converter configured", convert.ErrConversionFailed)

// DeckConverter turns presentation bytes into PDF bytes.
type DeckConverter interface {
	ToPDF(ctx context.Context, deck []byte) ([]byte, error)
}

// PageSize is the pixel size of one rendered page.
type PageSize struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// Result is everything produced for one input document.
type Result struct {
	Format  Format
	Theme   pptx.ThemeFonts
	Fonts   pptx.SlideFontReport
	Pages   []PageSize
	Width   int
	Height  int
	Image   *image.NRGBA
	Encoded *compose.Encoded
}

type Pipeline struct {
	office DeckConverter
	raster raster.Rasterizer
	log    *zap.Logger
}

func New(office DeckConverter, r raster.Rasterizer, log *zap.Logger) *Pipeline {
	if log == nil {
		log = zap.NewNop()
	}
	return &Pipeline{office: office, raster: r, log: log}
}

// Convert dispatches on tag. Decks go through font extraction and office
// conversion first; PDFs are rasterized directly. No partial result is
// returned on error.
func (p *Pipeline) Convert(ctx context.Context, data []byte, tag string) (*Result, error) {
	format, err := ParseFormat(tag)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	log := p.log.With(zap.Stringer("format", format), zap.String("size", humanize.Bytes(uint64(len(data)))))
	log.Info("conversion started")

	res := &Result{Format: format}
	pdf := data
	if format == FormatPPTX {
		theme, fonts, err := pptx.ExtractFonts(data)
		if err != nil {
			return nil, fmt.Errorf("read fonts: %w", err)
		}
		res.Theme, res.Fonts = theme, fonts
		log.Debug("fonts extracted", zap.Int("slides", len(fonts)), zap.String("major", theme.Major), zap.String("minor", theme.Minor))

		if p.office == nil {
			return nil, ErrNoDeckConverter
		}
		pdf, err = p.office.ToPDF(ctx, data)
		if err != nil {
			return nil, err
		}
		log.Debug("deck converted", zap.String("pdf_size", humanize.Bytes(uint64(len(pdf)))))
	}

	pages, err := p.raster.Rasterize(ctx, pdf)
	if err != nil {
		return nil, err
	}

	img, err := compose.Compose(pages)
	if err != nil {
		return nil, err
	}
	enc, err := compose.Encode(img)
	if err != nil {
		return nil, err
	}

	res.Pages = make([]PageSize, len(pages))
	for i, pg := range pages {
		res.Pages[i] = PageSize{Width: pg.Width, Height: pg.Height}
	}
	b := img.Bounds()
	res.Width, res.Height = b.Dx(), b.Dy()
	res.Image, res.Encoded = img, enc

	log.Info("conversion finished",
		zap.Int("pages", len(pages)),
		zap.String("image", fmt.Sprintf("%dx%d", res.Width, res.Height)),
		zap.String("jpeg_size", humanize.Bytes(uint64(enc.Len()))),
		zap.Duration("elapsed", time.Since(start)),
	)
	return res, nil
}

// Checksum is the hex sha256 of an input, used to key stored conversions.
func Checksum(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
