package transcript

import (
	"bytes"
	"fmt"

	"github.com/jung-kurt/gofpdf"
)

const (
	pdfContentType   = "application/pdf"
	pdfFileExtension = ".pdf"
)

// PDFFormatter renders with the core Helvetica font; text outside
// cp1252 is replaced.
type PDFFormatter struct{}

func NewPDFFormatter() *PDFFormatter {
	return &PDFFormatter{}
}

func (pf *PDFFormatter) Format(t Transcript) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 18)
	pdf.MultiCell(0, 9, tr(title(t)), "", "", false)
	pdf.Ln(4)

	if len(t.Turns) == 0 {
		pdf.SetFont("Helvetica", "I", 12)
		pdf.Cell(0, 8, "No questions yet.")
	}
	for i, turn := range t.Turns {
		pdf.SetFont("Helvetica", "B", 13)
		heading := fmt.Sprintf("Question %d", i+1)
		if ts := stamp(turn.AskedAt); ts != "" {
			heading += "  (" + ts + ")"
		}
		pdf.Cell(0, 8, heading)
		pdf.Ln(9)

		pdf.SetFont("Helvetica", "B", 11)
		pdf.MultiCell(0, 6, tr("Q: "+turn.Question), "", "", false)
		pdf.SetFont("Helvetica", "", 11)
		pdf.MultiCell(0, 6, tr("A: "+turn.Answer), "", "", false)
		pdf.Ln(4)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("render pdf: %w", err)
	}
	return buf.Bytes(), nil
}

func (pf *PDFFormatter) ContentType() string {
	return pdfContentType
}

func (pf *PDFFormatter) FileExtension() string {
	return pdfFileExtension
}
