package loader

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"path"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

func extractDOCX(_ context.Context, data []byte) (Extracted, error) {
	zr, err := openZip(data)
	if err != nil {
		return Extracted{}, err
	}
	body, err := readZipFile(zr, "word/document.xml")
	if err != nil {
		return Extracted{}, err
	}
	paras, err := xmlParagraphs(body, "t", "p")
	if err != nil {
		return Extracted{}, err
	}
	return Extracted{Text: strings.Join(paras, "\n")}, nil
}

type presentationXML struct {
	Slides []struct {
		RID string `xml:"http://schemas.openxmlformats.org/officeDocument/2006/relationships id,attr"`
	} `xml:"sldIdLst>sldId"`
}

var slidePath = regexp.MustCompile(`^ppt/slides/slide(\d+)\.xml$`)

// extractPPTX reads slides in presentation order, one block per slide.
func extractPPTX(_ context.Context, data []byte) (Extracted, error) {
	zr, err := openZip(data)
	if err != nil {
		return Extracted{}, err
	}

	var order []string
	if raw, err := readZipFile(zr, "ppt/presentation.xml"); err == nil {
		var pres presentationXML
		if err := xml.Unmarshal(raw, &pres); err == nil {
			rels := readRelationships(zr, "ppt/_rels/presentation.xml.rels", "ppt")
			for _, s := range pres.Slides {
				if target, ok := rels[s.RID]; ok {
					order = append(order, target)
				}
			}
		}
	}
	if len(order) == 0 {
		order = numberedParts(zr, slidePath)
	}
	if len(order) == 0 {
		return Extracted{}, fmt.Errorf("no slides found")
	}

	slides := make([]string, 0, len(order))
	for _, name := range order {
		raw, err := readZipFile(zr, name)
		if err != nil {
			return Extracted{}, err
		}
		paras, err := xmlParagraphs(raw, "t", "p")
		if err != nil {
			return Extracted{}, fmt.Errorf("%s: %w", name, err)
		}
		if len(paras) > 0 {
			slides = append(slides, strings.Join(paras, "\n"))
		}
	}
	return Extracted{Text: strings.Join(slides, "\n\n"), Sections: len(order)}, nil
}

type workbookXML struct {
	Sheets []struct {
		Name string `xml:"name,attr"`
		RID  string `xml:"http://schemas.openxmlformats.org/officeDocument/2006/relationships id,attr"`
	} `xml:"sheets>sheet"`
}

type richText struct {
	T    string `xml:"t"`
	Runs []struct {
		T string `xml:"t"`
	} `xml:"r"`
}

func (r richText) String() string {
	if len(r.Runs) == 0 {
		return r.T
	}
	var b strings.Builder
	for _, run := range r.Runs {
		b.WriteString(run.T)
	}
	return b.String()
}

type sharedStringsXML struct {
	Items []richText `xml:"si"`
}

type worksheetXML struct {
	Rows []struct {
		Cells []struct {
			Type   string   `xml:"t,attr"`
			Value  string   `xml:"v"`
			Inline richText `xml:"is"`
		} `xml:"c"`
	} `xml:"sheetData>row"`
}

var sheetPath = regexp.MustCompile(`^xl/worksheets/sheet(\d+)\.xml$`)

// extractXLSX renders each sheet in workbook order as tab-separated rows.
func extractXLSX(_ context.Context, data []byte) (Extracted, error) {
	zr, err := openZip(data)
	if err != nil {
		return Extracted{}, err
	}

	var shared []string
	if raw, err := readZipFile(zr, "xl/sharedStrings.xml"); err == nil {
		var sst sharedStringsXML
		if err := xml.Unmarshal(raw, &sst); err != nil {
			return Extracted{}, fmt.Errorf("shared strings: %w", err)
		}
		shared = make([]string, len(sst.Items))
		for i, si := range sst.Items {
			shared[i] = si.String()
		}
	}

	type sheet struct{ name, part string }
	var sheets []sheet
	if raw, err := readZipFile(zr, "xl/workbook.xml"); err == nil {
		var wb workbookXML
		if err := xml.Unmarshal(raw, &wb); err != nil {
			return Extracted{}, fmt.Errorf("workbook: %w", err)
		}
		rels := readRelationships(zr, "xl/_rels/workbook.xml.rels", "xl")
		for i, s := range wb.Sheets {
			part, ok := rels[s.RID]
			if !ok {
				part = fmt.Sprintf("xl/worksheets/sheet%d.xml", i+1)
			}
			sheets = append(sheets, sheet{name: s.Name, part: part})
		}
	}
	if len(sheets) == 0 {
		for i, part := range numberedParts(zr, sheetPath) {
			sheets = append(sheets, sheet{name: fmt.Sprintf("Sheet%d", i+1), part: part})
		}
	}
	if len(sheets) == 0 {
		return Extracted{}, fmt.Errorf("no worksheets found")
	}

	blocks := make([]string, 0, len(sheets))
	for _, s := range sheets {
		raw, err := readZipFile(zr, s.part)
		if err != nil {
			return Extracted{}, err
		}
		var ws worksheetXML
		if err := xml.Unmarshal(raw, &ws); err != nil {
			return Extracted{}, fmt.Errorf("%s: %w", s.part, err)
		}
		lines := []string{"Sheet: " + s.name}
		for _, row := range ws.Rows {
			var cells []string
			for _, c := range row.Cells {
				v := c.Value
				switch c.Type {
				case "s":
					idx, err := strconv.Atoi(strings.TrimSpace(c.Value))
					if err != nil || idx < 0 || idx >= len(shared) {
						return Extracted{}, fmt.Errorf("%s: bad shared string index %q", s.part, c.Value)
					}
					v = shared[idx]
				case "inlineStr":
					v = c.Inline.String()
				}
				if v = strings.TrimSpace(v); v != "" {
					cells = append(cells, v)
				}
			}
			if len(cells) > 0 {
				lines = append(lines, strings.Join(cells, "\t"))
			}
		}
		blocks = append(blocks, strings.Join(lines, "\n"))
	}
	return Extracted{Text: strings.Join(blocks, "\n\n"), Sections: len(sheets)}, nil
}

func openZip(data []byte) (*zip.Reader, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("open archive: %w", err)
	}
	return zr, nil
}

func readZipFile(zr *zip.Reader, name string) ([]byte, error) {
	for _, f := range zr.File {
		if f.Name != name {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return nil, fmt.Errorf("open %s: %w", name, err)
		}
		defer rc.Close()
		return io.ReadAll(rc)
	}
	return nil, fmt.Errorf("%s not found in archive", name)
}

type relationshipsXML struct {
	Items []struct {
		ID     string `xml:"Id,attr"`
		Target string `xml:"Target,attr"`
	} `xml:"Relationship"`
}

// readRelationships maps relationship IDs to archive paths. Relative targets
// are resolved against dir.
func readRelationships(zr *zip.Reader, name, dir string) map[string]string {
	out := map[string]string{}
	raw, err := readZipFile(zr, name)
	if err != nil {
		return out
	}
	var rels relationshipsXML
	if err := xml.Unmarshal(raw, &rels); err != nil {
		return out
	}
	for _, r := range rels.Items {
		target := r.Target
		if strings.HasPrefix(target, "/") {
			target = strings.TrimPrefix(target, "/")
		} else {
			target = path.Join(dir, target)
		}
		out[r.ID] = target
	}
	return out
}

// numberedParts lists archive entries matching re sorted by their number.
func numberedParts(zr *zip.Reader, re *regexp.Regexp) []string {
	type part struct {
		name string
		n    int
	}
	var parts []part
	for _, f := range zr.File {
		m := re.FindStringSubmatch(f.Name)
		if m == nil {
			continue
		}
		n, _ := strconv.Atoi(m[1])
		parts = append(parts, part{f.Name, n})
	}
	sort.Slice(parts, func(i, j int) bool { return parts[i].n < parts[j].n })
	names := make([]string, len(parts))
	for i, p := range parts {
		names[i] = p.name
	}
	return names
}

// xmlParagraphs streams an OOXML part and returns the non-empty text of each
// paragraph element, in document order.
func xmlParagraphs(data []byte, textTag, paraTag string) ([]string, error) {
	dec := xml.NewDecoder(bytes.NewReader(data))
	var (
		paras  []string
		cur    strings.Builder
		inText bool
	)
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case textTag:
				inText = true
			case "tab":
				cur.WriteString("\t")
			case "br", "cr":
				cur.WriteString("\n")
			}
		case xml.EndElement:
			switch t.Name.Local {
			case textTag:
				inText = false
			case paraTag:
				if s := strings.TrimSpace(cur.String()); s != "" {
					paras = append(paras, s)
				}
				cur.Reset()
			}
		case xml.CharData:
			if inText {
				cur.Write(t)
			}
		}
	}
	if s := strings.TrimSpace(cur.String()); s != "" {
		paras = append(paras, s)
	}
	return paras, nil
}
