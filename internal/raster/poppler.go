package raster

import (
	"bytes"
	"context"
	"fmt"
	"image/png"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"go.uber.org/zap"
	rpdf "rsc.io/pdf"
)

// Poppler renders pages with the pdftoppm command line tool.
type Poppler struct {
	bin     string
	dpi     float64
	tempDir string
	log     *zap.Logger
}

func NewPoppler(opts Options) (*Poppler, error) {
	bin, err := exec.LookPath("pdftoppm")
	if err != nil {
		return nil, fmt.Errorf("pdftoppm not found: %w", err)
	}
	log := opts.Log
	if log == nil {
		log = zap.NewNop()
	}
	return &Poppler{bin: bin, dpi: opts.DPI, tempDir: opts.TempDir, log: log}, nil
}

func (p *Poppler) Rasterize(ctx context.Context, pdf []byte) ([]Page, error) {
	if n, ok := countPages(pdf); ok && n == 0 {
		return nil, ErrEmptyDocument
	}

	tmpDir, err := os.MkdirTemp(p.tempDir, "pdfraster-*")
	if err != nil {
		return nil, fmt.Errorf("create temp dir: %w", err)
	}
	defer os.RemoveAll(tmpDir)

	input := filepath.Join(tmpDir, "input.pdf")
	if err := os.WriteFile(input, pdf, 0600); err != nil {
		return nil, fmt.Errorf("write %s: %w", input, err)
	}

	outBase := filepath.Join(tmpDir, "page")
	args := []string{"-png"}
	if p.dpi > 0 {
		res := strconv.FormatFloat(p.dpi, 'f', -1, 64)
		args = append(args, "-rx", res, "-ry", res)
	}
	args = append(args, input, outBase)

	cmd := exec.CommandContext(ctx, p.bin, args...)
	if output, err := cmd.CombinedOutput(); err != nil {
		return nil, fmt.Errorf("pdftoppm: %w (output: %s)", err, string(output))
	}

	files, err := pageFiles(tmpDir)
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, ErrEmptyDocument
	}

	pages := make([]Page, 0, len(files))
	for _, f := range files {
		data, err := os.ReadFile(f)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", f, err)
		}
		img, err := png.Decode(bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("decode %s: %w", filepath.Base(f), err)
		}
		pages = append(pages, NewPage(img))
	}

	p.log.Debug("pdf rasterized", zap.String("backend", string(BackendPoppler)), zap.Int("pages", len(pages)))
	return pages, nil
}

// pageFiles returns page-N.png files sorted by N. pdftoppm zero-pads N to the
// width of the page count, so lexical order is not enough.
func pageFiles(dir string) ([]string, error) {
	matches, err := filepath.Glob(filepath.Join(dir, "page-*.png"))
	if err != nil {
		return nil, err
	}
	sort.Slice(matches, func(i, j int) bool {
		return pageNumber(matches[i]) < pageNumber(matches[j])
	})
	return matches, nil
}

func pageNumber(path string) int {
	name := strings.TrimSuffix(filepath.Base(path), ".png")
	n, err := strconv.Atoi(name[strings.LastIndex(name, "-")+1:])
	if err != nil {
		return 0
	}
	return n
}

// countPages reads the page tree. ok is false when the parser cannot handle the
// file, in which case pdftoppm gets to decide.
func countPages(pdf []byte) (n int, ok bool) {
	defer func() {
		if recover() != nil {
			n, ok = 0, false
		}
	}()
	doc, err := rpdf.NewReader(bytes.NewReader(pdf), int64(len(pdf)))
	if err != nil {
		return 0, false
	}
	return doc.NumPage(), true
}
