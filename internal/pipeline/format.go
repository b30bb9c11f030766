package pipeline

import (
	"path/filepath"
	"strings"
)

// Format is an input document type the pipeline accepts.
type Format int

const (
	FormatPPTX Format = iota + 1
	FormatPDF
)

func (f Format) String() string {
	switch f {
	case FormatPPTX:
		return "pptx"
	case FormatPDF:
		return "pdf"
	default:
		return "unknown"
	}
}

func (f Format) MarshalText() ([]byte, error) {
	return []byte(f.String()), nil
}

// UnsupportedFormatError reports a format tag the pipeline cannot handle.
type UnsupportedFormatError struct {
	Tag string
}

func (e *UnsupportedFormatError) Error() string {
	return "format not supported: " + e.Tag
}

// ParseFormat maps a tag such as "PPTX" or " pdf " to a Format. Matching is
// case-insensitive and ignores surrounding whitespace; any other deviation is
// an *UnsupportedFormatError carrying the tag as given.
func ParseFormat(tag string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(tag)) {
	case "pptx":
		return FormatPPTX, nil
	case "pdf":
		return FormatPDF, nil
	default:
		return 0, &UnsupportedFormatError{Tag: tag}
	}
}

// DetectFormat returns the format tag implied by a file name's extension, or
// "" when there is none.
func DetectFormat(filename string) string {
	return strings.ToLower(strings.TrimPrefix(filepath.Ext(filename), "."))
}
