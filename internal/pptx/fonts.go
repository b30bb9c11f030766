package pptx

import (
	"encoding/json"
	"encoding/xml"
	"fmt"
	"sort"
	"strings"
)

// PlaceholderRole is the semantic slot a shape occupies on its slide layout.
type PlaceholderRole int

const (
	RoleNone PlaceholderRole = iota // not a placeholder
	RoleTitle
	RoleBody
	RoleOther
)

func (r PlaceholderRole) String() string {
	switch r {
	case RoleTitle:
		return "title"
	case RoleBody:
		return "body"
	case RoleOther:
		return "other"
	default:
		return "none"
	}
}

// roleFromPlaceholder maps a p:ph type attribute to a role.
// A placeholder without a type is an object placeholder and counts as body.
// Only "title" is a title; a centred title ("ctrTitle") falls back to the
// minor font like any other placeholder.
func roleFromPlaceholder(phType string) PlaceholderRole {
	switch phType {
	case "title":
		return RoleTitle
	case "", "body", "subTitle", "obj":
		return RoleBody
	default:
		return RoleOther
	}
}

// ResolveFont returns the effective font of a text run. The explicit run font
// wins; otherwise title shapes use the theme major font and every other role
// uses the minor font. ok is false when nothing determines the font.
//
// Symbolic theme typefaces ("+mj-lt", "+mn-ea" and the like) are resolved to
// the theme's major or minor font instead of being reported verbatim.
func ResolveFont(explicit string, role PlaceholderRole, theme ThemeFonts) (name string, ok bool) {
	if explicit != "" {
		if ref, isRef := themeReference(explicit, theme); isRef {
			return ref, ref != ""
		}
		return explicit, true
	}
	if role == RoleTitle {
		return theme.Major, theme.Major != ""
	}
	return theme.Minor, theme.Minor != ""
}

// themeReference resolves symbolic theme fonts such as "+mj-lt" and "+mn-ea".
func themeReference(typeface string, theme ThemeFonts) (string, bool) {
	switch {
	case strings.HasPrefix(typeface, "+mj-"):
		return theme.Major, true
	case strings.HasPrefix(typeface, "+mn-"):
		return theme.Minor, true
	}
	return "", false
}

// FontName is a resolved font. The empty value means the font could not be
// determined and marshals to JSON null.
type FontName string

func (f FontName) MarshalJSON() ([]byte, error) {
	if f == "" {
		return []byte("null"), nil
	}
	return json.Marshal(string(f))
}

func (f *FontName) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*f = ""
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	*f = FontName(s)
	return nil
}

// SlideFontReport maps a 1-based slide number to the fonts of its text runs in
// document order. Slides without any run are not present.
type SlideFontReport map[int][]FontName

// Slides returns the recorded slide numbers in ascending order.
func (r SlideFontReport) Slides() []int {
	nums := make([]int, 0, len(r))
	for n := range r {
		nums = append(nums, n)
	}
	sort.Ints(nums)
	return nums
}

// String renders one line per slide, e.g. "Slide 2: Arial, unknown".
func (r SlideFontReport) String() string {
	var b strings.Builder
	for i, n := range r.Slides() {
		if i > 0 {
			b.WriteByte('\n')
		}
		names := make([]string, len(r[n]))
		for j, f := range r[n] {
			if f == "" {
				names[j] = "unknown"
				continue
			}
			names[j] = string(f)
		}
		fmt.Fprintf(&b, "Slide %d: %s", n, strings.Join(names, ", "))
	}
	return b.String()
}

type xmlSlide struct {
	Shapes []xmlShape `xml:"cSld>spTree>sp"`
}

type xmlShape struct {
	Placeholder *struct {
		Type string `xml:"type,attr"`
	} `xml:"nvSpPr>nvPr>ph"`
	TextBody *struct {
		Paragraphs []struct {
			Runs []struct {
				Props *struct {
					Latin *struct {
						Typeface string `xml:"typeface,attr"`
					} `xml:"latin"`
				} `xml:"rPr"`
			} `xml:"r"`
		} `xml:"p"`
	} `xml:"txBody"`
}

func (s xmlShape) role() PlaceholderRole {
	if s.Placeholder == nil {
		return RoleNone
	}
	return roleFromPlaceholder(s.Placeholder.Type)
}

// ExtractFonts opens a deck from raw bytes and builds its font report.
func ExtractFonts(data []byte) (ThemeFonts, SlideFontReport, error) {
	pkg, err := OpenPackage(data)
	if err != nil {
		return ThemeFonts{}, nil, err
	}
	theme := pkg.ThemeFonts()
	report, err := pkg.WalkSlideFonts(theme)
	if err != nil {
		return theme, nil, err
	}
	return theme, report, nil
}

// WalkSlideFonts resolves the font of every run on every slide.
func (p *Package) WalkSlideFonts(theme ThemeFonts) (SlideFontReport, error) {
	report := make(SlideFontReport)

	for i, part := range p.SlideParts() {
		data, err := p.readPart(part)
		if err != nil {
			return nil, err
		}
		fonts, err := slideFonts(data, theme)
		if err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", part, err)
		}
		if len(fonts) > 0 {
			report[i+1] = fonts
		}
	}
	return report, nil
}

func slideFonts(data []byte, theme ThemeFonts) ([]FontName, error) {
	var slide xmlSlide
	if err := xml.Unmarshal(data, &slide); err != nil {
		return nil, err
	}

	var fonts []FontName
	for _, shape := range slide.Shapes {
		if shape.TextBody == nil {
			continue
		}
		role := shape.role()
		for _, para := range shape.TextBody.Paragraphs {
			for _, run := range para.Runs {
				explicit := ""
				if run.Props != nil && run.Props.Latin != nil {
					explicit = run.Props.Latin.Typeface
				}
				name, _ := ResolveFont(explicit, role, theme)
				fonts = append(fonts, FontName(name))
			}
		}
	}
	return fonts, nil
}
