package compose

import (
	"bytes"
	"encoding/base64"
	"errors"
	"image"
	"image/color"
	"image/draw"
	"image/jpeg"
	"runtime"
	"strings"
	"testing"

	"github.com/gnemet/SlideLens/internal/raster"
)

func solidPage(w, h int, c color.RGBA) raster.Page {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(img, img.Bounds(), &image.Uniform{c}, image.Point{}, draw.Src)
	return raster.NewPage(img)
}

var (
	red  = color.RGBA{R: 200, A: 255}
	blue = color.RGBA{B: 200, A: 255}
)

func TestCompose_Geometry(t *testing.T) {
	tests := []struct {
		name  string
		pages []raster.Page
		w, h  int
	}{
		{"single page", []raster.Page{solidPage(120, 90, red)}, 120, 90},
		{"equal pages", []raster.Page{solidPage(100, 50, red), solidPage(100, 50, blue), solidPage(100, 50, red)}, 300, 50},
		{"mixed heights", []raster.Page{solidPage(100, 50, red), solidPage(200, 80, blue)}, 300, 80},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			img, err := Compose(tt.pages)
			if err != nil {
				t.Fatalf("Compose: %v", err)
			}
			b := img.Bounds()
			if b.Dx() != tt.w || b.Dy() != tt.h {
				t.Errorf("canvas = %dx%d, want %dx%d", b.Dx(), b.Dy(), tt.w, tt.h)
			}
		})
	}
}

func TestCompose_Placement(t *testing.T) {
	img, err := Compose([]raster.Page{solidPage(100, 50, red), solidPage(200, 80, blue)})
	if err != nil {
		t.Fatalf("Compose: %v", err)
	}

	check := func(x, y int, want color.NRGBA) {
		t.Helper()
		if got := img.NRGBAAt(x, y); got != want {
			t.Errorf("pixel (%d,%d) = %v, want %v", x, y, got, want)
		}
	}
	check(0, 0, color.NRGBA{R: 200, A: 255})
	check(99, 49, color.NRGBA{R: 200, A: 255})
	// Below the shorter first page the canvas stays white.
	check(50, 70, color.NRGBA{R: 255, G: 255, B: 255, A: 255})
	// Second page starts right after the first, at the top.
	check(100, 0, color.NRGBA{B: 200, A: 255})
	check(299, 79, color.NRGBA{B: 200, A: 255})
}

func TestCompose_Empty(t *testing.T) {
	if _, err := Compose(nil); !errors.Is(err, raster.ErrEmptyDocument) {
		t.Fatalf("expected ErrEmptyDocument, got %v", err)
	}
	if _, err := Compose([]raster.Page{{Image: image.NewRGBA(image.Rect(0, 0, 0, 0))}}); !errors.Is(err, raster.ErrEmptyDocument) {
		t.Fatalf("expected ErrEmptyDocument for zero-size page, got %v", err)
	}
}

func TestCompose_WideDeckIsScaledToFit(t *testing.T) {
	// 17 widescreen slides at 300 DPI are wider than a JPEG allows.
	pages := make([]raster.Page, 17)
	for i := range pages {
		pages[i] = solidPage(4000, 20, red)
	}

	img, err := Compose(pages)
	if err != nil {
		t.Fatalf("Compose: %v", err)
	}
	b := img.Bounds()
	if b.Dx() > MaxDimension || b.Dx() < MaxDimension-len(pages) {
		t.Errorf("canvas width = %d, want just under %d", b.Dx(), MaxDimension)
	}
	if b.Dy() != 19 {
		t.Errorf("canvas height = %d, want 19", b.Dy())
	}

	enc, err := Encode(img)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	cfg, err := jpeg.DecodeConfig(bytes.NewReader(enc.Bytes()))
	if err != nil {
		t.Fatalf("decode jpeg: %v", err)
	}
	if cfg.Width != b.Dx() {
		t.Errorf("jpeg width = %d, want %d", cfg.Width, b.Dx())
	}
}

func TestCompose_SingleCanvasAllocation(t *testing.T) {
	pages := make([]raster.Page, 16)
	for i := range pages {
		pages[i] = solidPage(1000, 500, blue)
	}
	canvasBytes := uint64(16 * 1000 * 500 * 4)

	var before, after runtime.MemStats
	runtime.GC()
	runtime.ReadMemStats(&before)
	if _, err := Compose(pages); err != nil {
		t.Fatalf("Compose: %v", err)
	}
	runtime.ReadMemStats(&after)

	// One canvas plus one NRGBA copy of each page.
	if got := after.TotalAlloc - before.TotalAlloc; got > 3*canvasBytes {
		t.Errorf("Compose allocated %d bytes for a %d byte canvas", got, canvasBytes)
	}
}

func TestEncode(t *testing.T) {
	img, err := Compose([]raster.Page{solidPage(64, 32, red), solidPage(32, 48, blue)})
	if err != nil {
		t.Fatalf("Compose: %v", err)
	}
	enc, err := Encode(img)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}

	raw := enc.Bytes()
	if len(raw) < 2 || raw[0] != 0xFF || raw[1] != 0xD8 {
		t.Fatal("missing JPEG SOI marker")
	}
	if enc.Len() != len(raw) {
		t.Errorf("Len() = %d, want %d", enc.Len(), len(raw))
	}

	decoded, err := base64.StdEncoding.DecodeString(enc.Base64())
	if err != nil {
		t.Fatalf("base64: %v", err)
	}
	if !bytes.Equal(decoded, raw) {
		t.Error("base64 text does not decode to the JPEG bytes")
	}

	cfg, err := jpeg.DecodeConfig(bytes.NewReader(decoded))
	if err != nil {
		t.Fatalf("decode jpeg: %v", err)
	}
	if cfg.Width != 96 || cfg.Height != 48 {
		t.Errorf("jpeg size = %dx%d, want 96x48", cfg.Width, cfg.Height)
	}

	if !strings.HasPrefix(enc.DataURL(), "data:image/jpeg;base64,/9j/") {
		t.Errorf("unexpected data URL prefix: %.40s", enc.DataURL())
	}
}
