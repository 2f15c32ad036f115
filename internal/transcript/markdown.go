package transcript

import (
	"bytes"
	"fmt"
)

const (
	markdownContentType   = "text/markdown; charset=utf-8"
	markdownFileExtension = ".md"
)

type MarkdownFormatter struct{}

func NewMarkdownFormatter() *MarkdownFormatter {
	return &MarkdownFormatter{}
}

func (mf *MarkdownFormatter) Format(t Transcript) ([]byte, error) {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "# %s\n", title(t))
	if len(t.Turns) == 0 {
		buf.WriteString("\nNo questions yet.\n")
	}
	for i, turn := range t.Turns {
		fmt.Fprintf(&buf, "\n## Question %d\n\n", i+1)
		if ts := stamp(turn.AskedAt); ts != "" {
			fmt.Fprintf(&buf, "_%s_\n\n", ts)
		}
		fmt.Fprintf(&buf, "**Q:** %s\n\n**A:** %s\n", turn.Question, turn.Answer)
		if len(turn.Sources) > 0 {
			buf.WriteString("\nSources:\n\n")
			for _, src := range turn.Sources {
				fmt.Fprintf(&buf, "- chunk %d (score %.3f)\n", src.Chunk.Index, src.Score)
			}
		}
	}
	return buf.Bytes(), nil
}

func (mf *MarkdownFormatter) ContentType() string {
	return markdownContentType
}

func (mf *MarkdownFormatter) FileExtension() string {
	return markdownFileExtension
}
