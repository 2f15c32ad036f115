// Package transcript exports a session's conversation as a downloadable
// document.
package transcript

import (
	"fmt"
	"time"

	"docqa/internal/domain"
)

// Transcript is the conversation about one document.
type Transcript struct {
	Document string
	Turns    []domain.Turn
}

type Formatter interface {
	Format(t Transcript) ([]byte, error)
	ContentType() string
	FileExtension() string
}

// Format names an export format.
type Format string

const (
	FormatMarkdown Format = "md"
	FormatPDF      Format = "pdf"
)

// New returns the formatter for format.
func New(format Format) (Formatter, error) {
	switch format {
	case FormatMarkdown, "markdown", "":
		return NewMarkdownFormatter(), nil
	case FormatPDF:
		return NewPDFFormatter(), nil
	default:
		return nil, fmt.Errorf("unsupported transcript format: %s", format)
	}
}

func title(t Transcript) string {
	if t.Document == "" {
		return "Conversation"
	}
	return "Conversation about " + t.Document
}

func stamp(ts time.Time) string {
	if ts.IsZero() {
		return ""
	}
	return ts.UTC().Format("2006-01-02 15:04 UTC")
}
