// Package pptx reads the parts of a slide deck package that matter for font
// reporting: the theme font scheme and the text runs of every slide.
package pptx

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"path"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
)

// ErrInvalidPackage is returned when the input bytes are not a readable deck archive.
var ErrInvalidPackage = errors.New("invalid pptx package")

// maxPartSize caps a single extracted part so a crafted archive cannot exhaust memory.
const maxPartSize = 50 << 20

// Package is an opened deck archive.
type Package struct {
	zr    *zip.Reader
	files map[string]*zip.File
}

// OpenPackage opens a deck from its raw bytes. Nothing is staged on disk.
func OpenPackage(data []byte) (*Package, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPackage, err)
	}
	files := make(map[string]*zip.File, len(zr.File))
	for _, f := range zr.File {
		files[f.Name] = f
	}
	return &Package{zr: zr, files: files}, nil
}

// Names returns the archive entry names in archive order.
func (p *Package) Names() []string {
	names := make([]string, 0, len(p.zr.File))
	for _, f := range p.zr.File {
		names = append(names, f.Name)
	}
	return names
}

func (p *Package) readPart(name string) ([]byte, error) {
	f, ok := p.files[name]
	if !ok {
		return nil, fmt.Errorf("part not found: %s", name)
	}
	if f.UncompressedSize64 > maxPartSize {
		return nil, fmt.Errorf("part %s exceeds %d bytes", name, maxPartSize)
	}
	rc, err := f.Open()
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", name, err)
	}
	defer rc.Close()

	data, err := io.ReadAll(io.LimitReader(rc, maxPartSize+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", name, err)
	}
	if len(data) > maxPartSize {
		return nil, fmt.Errorf("part %s exceeds %d bytes", name, maxPartSize)
	}
	return data, nil
}

type xmlPresentation struct {
	SlideIDs []struct {
		RelID string `xml:"http://schemas.openxmlformats.org/officeDocument/2006/relationships id,attr"`
	} `xml:"sldIdLst>sldId"`
}

type xmlRelationships struct {
	Relationships []struct {
		ID     string `xml:"Id,attr"`
		Type   string `xml:"Type,attr"`
		Target string `xml:"Target,attr"`
	} `xml:"Relationship"`
}

// SlideParts returns the slide part names in presentation order.
// Decks without a usable presentation part fall back to slide file numbering.
func (p *Package) SlideParts() []string {
	parts, err := p.orderedSlideParts()
	if err == nil && len(parts) > 0 {
		return parts
	}
	return p.numberedSlideParts()
}

func (p *Package) orderedSlideParts() ([]string, error) {
	data, err := p.readPart("ppt/presentation.xml")
	if err != nil {
		return nil, err
	}
	var pres xmlPresentation
	if err := xml.Unmarshal(data, &pres); err != nil {
		return nil, fmt.Errorf("failed to parse presentation.xml: %w", err)
	}

	relData, err := p.readPart("ppt/_rels/presentation.xml.rels")
	if err != nil {
		return nil, err
	}
	var rels xmlRelationships
	if err := xml.Unmarshal(relData, &rels); err != nil {
		return nil, fmt.Errorf("failed to parse presentation relationships: %w", err)
	}
	targets := make(map[string]string, len(rels.Relationships))
	for _, r := range rels.Relationships {
		targets[r.ID] = r.Target
	}

	var parts []string
	for _, id := range pres.SlideIDs {
		target, ok := targets[id.RelID]
		if !ok {
			continue
		}
		name := resolveTarget("ppt", target)
		if _, ok := p.files[name]; ok {
			parts = append(parts, name)
		}
	}
	return parts, nil
}

// numberedSlideParts lists ppt/slides/slideN.xml sorted by N.
func (p *Package) numberedSlideParts() []string {
	type numbered struct {
		name string
		num  int
	}
	var found []numbered
	for name := range p.files {
		if !strings.HasPrefix(name, "ppt/slides/slide") || !strings.HasSuffix(name, ".xml") {
			continue
		}
		numStr := strings.TrimSuffix(strings.TrimPrefix(filepath.Base(name), "slide"), ".xml")
		num, err := strconv.Atoi(numStr)
		if err != nil {
			continue
		}
		found = append(found, numbered{name: name, num: num})
	}
	sort.Slice(found, func(i, j int) bool { return found[i].num < found[j].num })

	parts := make([]string, len(found))
	for i, f := range found {
		parts[i] = f.name
	}
	return parts
}

// resolveTarget turns a relationship target into an archive entry name.
func resolveTarget(baseDir, target string) string {
	if strings.HasPrefix(target, "/") {
		return strings.TrimPrefix(path.Clean(target), "/")
	}
	return path.Clean(path.Join(baseDir, target))
}
