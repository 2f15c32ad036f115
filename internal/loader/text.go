package loader

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strings"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// extractText is the identity transform apart from a leading byte order mark.
func extractText(_ context.Context, data []byte) (Extracted, error) {
	return Extracted{Text: string(bytes.TrimPrefix(data, utf8BOM))}, nil
}

// extractCSV renders each record as "column: value" lines, with records
// separated by a blank line. The first record names the columns.
func extractCSV(_ context.Context, data []byte) (Extracted, error) {
	r := csv.NewReader(bytes.NewReader(bytes.TrimPrefix(data, utf8BOM)))
	r.FieldsPerRecord = -1
	r.LazyQuotes = true
	r.TrimLeadingSpace = true

	header, err := r.Read()
	if err == io.EOF {
		return Extracted{}, nil
	}
	if err != nil {
		return Extracted{}, err
	}

	var records []string
	for {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return Extracted{}, err
		}
		lines := make([]string, 0, len(rec))
		for i, v := range rec {
			col := fmt.Sprintf("column %d", i+1)
			if i < len(header) && strings.TrimSpace(header[i]) != "" {
				col = strings.TrimSpace(header[i])
			}
			lines = append(lines, col+": "+strings.TrimSpace(v))
		}
		records = append(records, strings.Join(lines, "\n"))
	}
	if len(records) == 0 {
		return Extracted{Text: strings.Join(header, ", ")}, nil
	}
	return Extracted{Text: strings.Join(records, "\n\n")}, nil
}
