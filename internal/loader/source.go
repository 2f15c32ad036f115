package loader

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"docqa/internal/domain"
)

// SourceFor interprets a command-line argument: an http(s) URL, or a path
// to a local file.
func SourceFor(arg string) (domain.Source, error) {
	arg = strings.TrimSpace(arg)
	lower := strings.ToLower(arg)
	if strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://") {
		return domain.Source{Kind: domain.SourceURL, URL: arg}, nil
	}
	data, err := os.ReadFile(arg)
	if err != nil {
		return domain.Source{}, fmt.Errorf("read %s: %w", arg, err)
	}
	return domain.Source{Kind: domain.SourceFile, Name: filepath.Base(arg), Data: data}, nil
}
