package pptx

import (
	"bytes"
	"encoding/xml"
	"strings"
)

// ThemeFonts holds the default fonts declared by a deck theme.
// An empty field means the theme declares no font for that role.
type ThemeFonts struct {
	Major string `json:"major,omitempty"` // titles
	Minor string `json:"minor,omitempty"` // body text
}

// ReadThemeFonts opens a deck from raw bytes and returns its theme fonts.
func ReadThemeFonts(data []byte) (ThemeFonts, error) {
	pkg, err := OpenPackage(data)
	if err != nil {
		return ThemeFonts{}, err
	}
	return pkg.ThemeFonts(), nil
}

// ThemeFonts reads the first ppt/theme/*.xml entry in archive order. Decks with
// several slide masters carry several themes; only that first one is consulted.
// A missing theme or missing font declarations yield empty fields, never an error.
func (p *Package) ThemeFonts() ThemeFonts {
	for _, name := range p.Names() {
		if !strings.HasPrefix(name, "ppt/theme/") || !strings.HasSuffix(name, ".xml") {
			continue
		}
		data, err := p.readPart(name)
		if err != nil {
			return ThemeFonts{}
		}
		return parseThemeFonts(data)
	}
	return ThemeFonts{}
}

// parseThemeFonts takes the typeface of the first latin element inside the first
// majorFont and minorFont elements. Decoding stops quietly at malformed XML,
// keeping what was found.
func parseThemeFonts(data []byte) ThemeFonts {
	var fonts ThemeFonts
	dec := xml.NewDecoder(bytes.NewReader(data))

	var current *string
	depth := 0
	found := false
	seenMajor, seenMinor := false, false

	for {
		tok, err := dec.Token()
		if err != nil {
			break
		}

		switch el := tok.(type) {
		case xml.StartElement:
			if current != nil {
				depth++
				if el.Name.Local == "latin" && !found {
					*current = attr(el, "typeface")
					found = true
				}
				continue
			}
			switch el.Name.Local {
			case "majorFont":
				if !seenMajor {
					seenMajor = true
					current, depth, found = &fonts.Major, 0, false
				}
			case "minorFont":
				if !seenMinor {
					seenMinor = true
					current, depth, found = &fonts.Minor, 0, false
				}
			}

		case xml.EndElement:
			if current == nil {
				continue
			}
			if depth == 0 {
				current = nil
				continue
			}
			depth--
		}
	}
	return fonts
}

func attr(el xml.StartElement, local string) string {
	for _, a := range el.Attr {
		if a.Name.Local == local {
			return a.Value
		}
	}
	return ""
}
