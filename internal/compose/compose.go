// Package compose lays rendered pages side by side and encodes the result.
package compose

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"image/color"
	"math"

	"github.com/disintegration/imaging"

	"github.com/gnemet/SlideLens/internal/raster"
)

var background = color.NRGBA{R: 255, G: 255, B: 255, A: 255}

// MaxDimension is the largest width or height a JPEG can carry.
const MaxDimension = 1<<16 - 1

// Compose lays pages left to right on a white canvas whose width is the sum
// of page widths and whose height is the tallest page. Pages are top aligned.
// A canvas that would exceed MaxDimension is avoided by scaling every page by
// the same factor first.
func Compose(pages []raster.Page) (*image.NRGBA, error) {
	if len(pages) == 0 {
		return nil, raster.ErrEmptyDocument
	}

	sumWidth, maxHeight := 0, 0
	for _, p := range pages {
		sumWidth += p.Width
		if p.Height > maxHeight {
			maxHeight = p.Height
		}
	}
	if sumWidth == 0 || maxHeight == 0 {
		return nil, fmt.Errorf("%w: pages have zero size", raster.ErrEmptyDocument)
	}

	scale := 1.0
	if sumWidth > MaxDimension {
		scale = float64(MaxDimension) / float64(sumWidth)
	}
	if maxHeight > MaxDimension {
		scale = math.Min(scale, float64(MaxDimension)/float64(maxHeight))
	}

	tiles := make([]*image.NRGBA, len(pages))
	sumWidth, maxHeight = 0, 0
	for i, p := range pages {
		var tile *image.NRGBA
		if scale < 1 && p.Width > 0 && p.Height > 0 {
			w := max(int(float64(p.Width)*scale), 1)
			h := max(int(float64(p.Height)*scale), 1)
			tile = imaging.Resize(p.Image, w, h, imaging.Lanczos)
		} else {
			tile = toNRGBA(p.Image)
		}
		tiles[i] = tile
		b := tile.Bounds()
		sumWidth += b.Dx()
		maxHeight = max(maxHeight, b.Dy())
	}

	canvas := imaging.New(sumWidth, maxHeight, background)
	x := 0
	for _, tile := range tiles {
		b := tile.Bounds()
		rowLen := b.Dx() * 4
		for y := 0; y < b.Dy(); y++ {
			dst := canvas.PixOffset(x, y)
			src := tile.PixOffset(b.Min.X, b.Min.Y+y)
			copy(canvas.Pix[dst:dst+rowLen], tile.Pix[src:src+rowLen])
		}
		x += b.Dx()
	}
	return canvas, nil
}

// toNRGBA returns img as NRGBA, copying only when it is some other type.
func toNRGBA(img image.Image) *image.NRGBA {
	if n, ok := img.(*image.NRGBA); ok {
		return n
	}
	return imaging.Clone(img)
}

// Encoded is a JPEG held in memory.
type Encoded struct {
	buf bytes.Buffer
}

// Encode writes img as JPEG at the library's default quality.
func Encode(img image.Image) (*Encoded, error) {
	e := &Encoded{}
	if err := imaging.Encode(&e.buf, img, imaging.JPEG); err != nil {
		return nil, fmt.Errorf("jpeg encode: %w", err)
	}
	return e, nil
}

func (e *Encoded) Bytes() []byte { return e.buf.Bytes() }

func (e *Encoded) Len() int { return e.buf.Len() }

// Base64 returns the standard base64 text of the JPEG.
func (e *Encoded) Base64() string {
	return base64.StdEncoding.EncodeToString(e.buf.Bytes())
}

// DataURL returns the JPEG as a data URL for image attachments.
func (e *Encoded) DataURL() string {
	return "data:image/jpeg;base64," + e.Base64()
}
