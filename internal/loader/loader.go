// Package loader turns uploaded files, URLs and pasted text into normalized
// document text.
package loader

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/grpc-ecosystem/go-grpc-middleware/logging/zap/ctxzap"
	"go.uber.org/zap"

	"docqa/internal/domain"
	"docqa/internal/pkg/httpclient"
)

// Extracted is the text pulled out of one document plus its section count
// (pages, slides or sheets).
type Extracted struct {
	Text     string
	Sections int
	Title    string
}

// Extractor converts raw bytes of one format into text.
type Extractor interface {
	Extract(ctx context.Context, data []byte) (Extracted, error)
}

// ExtractorFunc adapts a function to Extractor.
type ExtractorFunc func(ctx context.Context, data []byte) (Extracted, error)

func (f ExtractorFunc) Extract(ctx context.Context, data []byte) (Extracted, error) {
	return f(ctx, data)
}

// Config holds URL fetching limits.
type Config struct {
	FetchTimeout time.Duration
	MaxBytes     int64
	UserAgent    string
}

// Loader dispatches sources to the extractor registered for their format.
type Loader struct {
	extractors   map[Format]Extractor
	client       *http.Client
	fetchTimeout time.Duration
	maxBytes     int64
}

type Option func(*Loader)

// WithHTTPClient replaces the client used for URL sources.
func WithHTTPClient(c *http.Client) Option {
	return func(l *Loader) {
		l.client = c
	}
}

// WithExtractor registers or replaces the extractor for a format.
func WithExtractor(f Format, ex Extractor) Option {
	return func(l *Loader) {
		l.extractors[f] = ex
	}
}

func New(cfg Config, opts ...Option) *Loader {
	l := &Loader{
		extractors: map[Format]Extractor{
			FormatPDF:  ExtractorFunc(extractPDF),
			FormatDOCX: ExtractorFunc(extractDOCX),
			FormatPPTX: ExtractorFunc(extractPPTX),
			FormatXLSX: ExtractorFunc(extractXLSX),
			FormatHTML: ExtractorFunc(extractHTML),
			FormatText: ExtractorFunc(extractText),
			FormatCSV:  ExtractorFunc(extractCSV),
		},
		fetchTimeout: cfg.FetchTimeout,
		maxBytes:     cfg.MaxBytes,
	}
	for _, opt := range opts {
		opt(l)
	}
	if l.client == nil {
		ua := cfg.UserAgent
		if ua == "" {
			ua = "docqa/1.0"
		}
		l.client = httpclient.New(
			httpclient.WithRequestTimeout(cfg.FetchTimeout),
			httpclient.WithUserAgent(ua),
			httpclient.WithRequestLogging(),
		)
	}
	return l
}

// Load produces the normalized document for src.
func (l *Loader) Load(ctx context.Context, src domain.Source) (domain.Document, error) {
	switch src.Kind {
	case domain.SourceText:
		name := src.Name
		if name == "" {
			name = "pasted text"
		}
		return newDocument(name, FormatText, Extracted{Text: src.Text}), nil
	case domain.SourceFile:
		format, ok := DetectFormat(src.Name, src.MIMEType)
		if !ok {
			return domain.Document{}, fmt.Errorf("%w: %s", domain.ErrUnsupportedFormat, describe(src.Name, src.MIMEType))
		}
		return l.extract(ctx, format, src.Name, src.Data)
	case domain.SourceURL:
		return l.fetch(ctx, src.URL)
	}
	return domain.Document{}, fmt.Errorf("%w: unknown source kind %q", domain.ErrUnsupportedFormat, src.Kind)
}

func (l *Loader) extract(ctx context.Context, format Format, name string, data []byte) (domain.Document, error) {
	ex, ok := l.extractors[format]
	if !ok {
		return domain.Document{}, fmt.Errorf("%w: %s", domain.ErrUnsupportedFormat, format)
	}
	out, err := ex.Extract(ctx, data)
	if err != nil {
		return domain.Document{}, fmt.Errorf("%w: %s %s: %w", domain.ErrExtraction, format, name, err)
	}
	if format != FormatText && strings.TrimSpace(out.Text) == "" {
		return domain.Document{}, fmt.Errorf("%w: %s %s: no text found", domain.ErrExtraction, format, name)
	}
	ctxzap.Debug(ctx, "document extracted",
		zap.String("format", string(format)),
		zap.Int("bytes", len(data)),
		zap.Int("sections", out.Sections),
	)
	return newDocument(name, format, out), nil
}

func (l *Loader) fetch(ctx context.Context, raw string) (domain.Document, error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return domain.Document{}, &domain.FetchError{URL: raw, Err: errors.New("invalid http(s) url")}
	}

	if l.fetchTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, l.fetchTimeout)
		defer cancel()
	}

	resp, err := httpclient.Get(ctx, l.client, u.String(), l.maxBytes)
	if err != nil {
		var httpErr *httpclient.HTTPError
		if errors.As(err, &httpErr) {
			return domain.Document{}, &domain.FetchError{URL: raw, StatusCode: httpErr.StatusCode}
		}
		return domain.Document{}, &domain.FetchError{URL: raw, Err: err}
	}

	format, ok := FormatForMIME(resp.ContentType)
	if !ok {
		if format, ok = FormatForName(u.Path); !ok {
			format = FormatHTML
		}
	}

	name := path.Base(u.Path)
	if name == "/" || name == "." || name == "" {
		name = u.Host
	}
	doc, err := l.extract(ctx, format, name, resp.Body)
	if err != nil {
		return domain.Document{}, err
	}
	if format == FormatHTML && doc.Name == u.Host {
		if title := htmlTitle(string(resp.Body)); title != "" {
			doc.Name = title
		}
	}
	return doc, nil
}

func newDocument(name string, format Format, out Extracted) domain.Document {
	if out.Title != "" && name == "" {
		name = out.Title
	}
	return domain.Document{
		ID:       hashString(out.Text),
		Name:     name,
		Format:   string(format),
		Content:  out.Text,
		Sections: out.Sections,
	}
}

func describe(name, mimeType string) string {
	switch {
	case name != "" && mimeType != "":
		return fmt.Sprintf("%s (%s)", name, mimeType)
	case name != "":
		return name
	case mimeType != "":
		return mimeType
	}
	return "unnamed source"
}

func hashString(s string) string {
	h := sha1.Sum([]byte(s))
	return hex.EncodeToString(h[:8])
}
