// Package convert runs the external office suite that turns a deck into a PDF.
package convert

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"go.uber.org/zap"
)

// ErrConversionFailed marks a failed or timed out office conversion.
var ErrConversionFailed = errors.New("document conversion failed")

// IOError is a staging failure on the local filesystem.
type IOError struct {
	Op   string
	Path string
	Err  error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

func (e *IOError) Unwrap() error { return e.Err }

// DefaultTimeout bounds a single office conversion.
const DefaultTimeout = 2 * time.Minute

// waitDelay bounds how long Wait keeps reading output after the process
// group was killed.
const waitDelay = 2 * time.Second

const macOSOffice = "/Applications/LibreOffice.app/Contents/MacOS/soffice"

// OfficeConverter converts decks to PDF with a headless LibreOffice.
type OfficeConverter struct {
	Binary  string
	Timeout time.Duration
	TempDir string // parent of per-call work dirs, "" means os.TempDir()
	log     *zap.Logger
}

// NewOfficeConverter locates the office binary. An empty binary name tries
// soffice, libreoffice and the macOS application bundle in that order.
func NewOfficeConverter(binary string, timeout time.Duration, log *zap.Logger) (*OfficeConverter, error) {
	if log == nil {
		log = zap.NewNop()
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	bin, err := lookupOffice(binary)
	if err != nil {
		return nil, err
	}
	return &OfficeConverter{Binary: bin, Timeout: timeout, log: log}, nil
}

func lookupOffice(binary string) (string, error) {
	candidates := []string{"soffice", "libreoffice"}
	if binary != "" {
		candidates = []string{binary}
	}
	for _, c := range candidates {
		if p, err := exec.LookPath(c); err == nil {
			return p, nil
		}
	}
	if binary == "" {
		if _, err := os.Stat(macOSOffice); err == nil {
			return macOSOffice, nil
		}
	}
	return "", fmt.Errorf("libreoffice not found (tried %v)", candidates)
}

// ToPDF converts deck bytes to PDF bytes. Every call works in its own temp
// directory, which is removed on return whatever the outcome.
func (c *OfficeConverter) ToPDF(ctx context.Context, deck []byte) ([]byte, error) {
	workDir, err := os.MkdirTemp(c.TempDir, "slidelens-*")
	if err != nil {
		return nil, &IOError{Op: "create temp dir", Path: c.TempDir, Err: err}
	}
	defer os.RemoveAll(workDir)

	input := filepath.Join(workDir, "presentation.pptx")
	if err := os.WriteFile(input, deck, 0600); err != nil {
		return nil, &IOError{Op: "write", Path: input, Err: err}
	}

	ctx, cancel := context.WithTimeout(ctx, c.Timeout)
	defer cancel()

	// A private profile dir lets concurrent conversions run side by side.
	profile := "-env:UserInstallation=file://" + filepath.ToSlash(filepath.Join(workDir, "profile"))
	cmd := exec.CommandContext(ctx, c.Binary, profile, "--headless", "--convert-to", "pdf", "--outdir", workDir, input)
	killGroup(cmd)
	cmd.WaitDelay = waitDelay

	start := time.Now()
	output, err := cmd.CombinedOutput()
	if ctx.Err() == context.DeadlineExceeded {
		return nil, fmt.Errorf("%w: timed out after %s", ErrConversionFailed, c.Timeout)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v (output: %s)", ErrConversionFailed, err, string(output))
	}

	pdfPath := filepath.Join(workDir, "presentation.pdf")
	pdf, err := os.ReadFile(pdfPath)
	if os.IsNotExist(err) {
		var found []string
		if entries, err := os.ReadDir(workDir); err == nil {
			for _, e := range entries {
				found = append(found, e.Name())
			}
		}
		return nil, fmt.Errorf("%w: pdf not found after conversion (found: %v, output: %s)", ErrConversionFailed, found, string(output))
	}
	if err != nil {
		return nil, &IOError{Op: "read", Path: pdfPath, Err: err}
	}

	c.log.Debug("office conversion finished",
		zap.Duration("elapsed", time.Since(start)),
		zap.Int("pdf_bytes", len(pdf)))
	return pdf, nil
}
