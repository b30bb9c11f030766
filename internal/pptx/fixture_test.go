package pptx

import (
	"archive/zip"
	"bytes"
	"fmt"
	"strings"
	"testing"
)

type part struct {
	name string
	body string
}

func buildArchive(t *testing.T, parts ...part) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, p := range parts {
		w, err := zw.Create(p.name)
		if err != nil {
			t.Fatalf("create %s: %v", p.name, err)
		}
		if _, err := w.Write([]byte(p.body)); err != nil {
			t.Fatalf("write %s: %v", p.name, err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("close zip: %v", err)
	}
	return buf.Bytes()
}

const nsDecl = `xmlns:a="http://schemas.openxmlformats.org/drawingml/2006/main" ` +
	`xmlns:r="http://schemas.openxmlformats.org/officeDocument/2006/relationships" ` +
	`xmlns:p="http://schemas.openxmlformats.org/presentationml/2006/main"`

func themeXML(major, minor string) string {
	font := func(tag, face string) string {
		if face == "" {
			return fmt.Sprintf(`<a:%s><a:ea typeface=""/></a:%s>`, tag, tag)
		}
		return fmt.Sprintf(`<a:%s><a:latin typeface="%s"/><a:ea typeface=""/></a:%s>`, tag, face, tag)
	}
	return `<?xml version="1.0" encoding="UTF-8"?><a:theme ` + nsDecl + ` name="Office"><a:themeElements>` +
		`<a:fontScheme name="Office">` + font("majorFont", major) + font("minorFont", minor) +
		`</a:fontScheme></a:themeElements></a:theme>`
}

// run describes one a:r element; an empty font omits a:latin.
type run struct {
	text string
	font string
}

// shape describes one p:sp; phType "-" means not a placeholder.
type shape struct {
	phType string
	noText bool
	paras  [][]run
}

func slideXML(shapes ...shape) string {
	var b strings.Builder
	b.WriteString(`<?xml version="1.0" encoding="UTF-8"?><p:sld ` + nsDecl + `><p:cSld><p:spTree>`)
	b.WriteString(`<p:nvGrpSpPr><p:cNvPr id="1" name=""/><p:cNvGrpSpPr/><p:nvPr/></p:nvGrpSpPr>`)
	for i, s := range shapes {
		fmt.Fprintf(&b, `<p:sp><p:nvSpPr><p:cNvPr id="%d" name="Shape %d"/><p:cNvSpPr/><p:nvPr>`, i+2, i+1)
		switch s.phType {
		case "-":
		case "":
			b.WriteString(`<p:ph idx="1"/>`)
		default:
			fmt.Fprintf(&b, `<p:ph type="%s"/>`, s.phType)
		}
		b.WriteString(`</p:nvPr></p:nvSpPr><p:spPr/>`)
		if !s.noText {
			b.WriteString(`<p:txBody><a:bodyPr/><a:lstStyle/>`)
			for _, para := range s.paras {
				b.WriteString(`<a:p>`)
				for _, r := range para {
					b.WriteString(`<a:r>`)
					if r.font != "" {
						fmt.Fprintf(&b, `<a:rPr lang="en-US"><a:latin typeface="%s"/></a:rPr>`, r.font)
					} else {
						b.WriteString(`<a:rPr lang="en-US"/>`)
					}
					fmt.Fprintf(&b, `<a:t>%s</a:t></a:r>`, r.text)
				}
				b.WriteString(`<a:endParaRPr lang="en-US"/></a:p>`)
			}
			b.WriteString(`</p:txBody>`)
		}
		b.WriteString(`</p:sp>`)
	}
	b.WriteString(`</p:spTree></p:cSld></p:sld>`)
	return b.String()
}

// presentationParts lists slides in the given order through presentation.xml
// and its relationships.
func presentationParts(slideFiles ...string) []part {
	var ids, rels strings.Builder
	for i, f := range slideFiles {
		fmt.Fprintf(&ids, `<p:sldId id="%d" r:id="rId%d"/>`, 256+i, i+10)
		fmt.Fprintf(&rels, `<Relationship Id="rId%d" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/slide" Target="slides/%s"/>`, i+10, f)
	}
	return []part{
		{
			name: "ppt/presentation.xml",
			body: `<?xml version="1.0" encoding="UTF-8"?><p:presentation ` + nsDecl + `><p:sldIdLst>` + ids.String() + `</p:sldIdLst></p:presentation>`,
		},
		{
			name: "ppt/_rels/presentation.xml.rels",
			body: `<?xml version="1.0" encoding="UTF-8"?><Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">` + rels.String() + `</Relationships>`,
		},
	}
}
