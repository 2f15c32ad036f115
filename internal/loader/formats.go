package loader

import (
	"mime"
	"path"
	"strings"
)

// Format tags a registered extraction path.
type Format string

const (
	FormatPDF  Format = "pdf"
	FormatDOCX Format = "docx"
	FormatPPTX Format = "pptx"
	FormatXLSX Format = "xlsx"
	FormatHTML Format = "html"
	FormatText Format = "text"
	FormatCSV  Format = "csv"
)

var byExtension = map[string]Format{
	".pdf":      FormatPDF,
	".docx":     FormatDOCX,
	".pptx":     FormatPPTX,
	".xlsx":     FormatXLSX,
	".html":     FormatHTML,
	".htm":      FormatHTML,
	".xhtml":    FormatHTML,
	".txt":      FormatText,
	".text":     FormatText,
	".md":       FormatText,
	".markdown": FormatText,
	".csv":      FormatCSV,
}

var byMIME = map[string]Format{
	"application/pdf": FormatPDF,
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document":   FormatDOCX,
	"application/vnd.openxmlformats-officedocument.presentationml.presentation": FormatPPTX,
	"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet":         FormatXLSX,
	"text/html":             FormatHTML,
	"application/xhtml+xml": FormatHTML,
	"text/plain":            FormatText,
	"text/markdown":         FormatText,
	"text/csv":              FormatCSV,
}

// FormatForMIME resolves a MIME type, ignoring parameters such as charset.
func FormatForMIME(mimeType string) (Format, bool) {
	if mimeType == "" {
		return "", false
	}
	mt, _, err := mime.ParseMediaType(mimeType)
	if err != nil {
		mt = strings.ToLower(strings.TrimSpace(strings.Split(mimeType, ";")[0]))
	}
	f, ok := byMIME[mt]
	return f, ok
}

// FormatForName resolves a file name or URL path by its extension.
func FormatForName(name string) (Format, bool) {
	ext := strings.ToLower(path.Ext(name))
	if ext == "" {
		return "", false
	}
	f, ok := byExtension[ext]
	return f, ok
}

// DetectFormat prefers the declared MIME type and falls back to the extension.
func DetectFormat(name, mimeType string) (Format, bool) {
	if f, ok := FormatForMIME(mimeType); ok {
		return f, true
	}
	return FormatForName(name)
}
