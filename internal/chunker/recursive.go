// Package chunker splits normalized document text into overlapping chunks.
package chunker

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"docqa/internal/domain"
)

// DefaultChunkSize is the default maximum number of characters per chunk.
const DefaultChunkSize = 1000

// DefaultChunkOverlap is the default number of characters shared by neighbours.
const DefaultChunkOverlap = 200

// DefaultSeparators are tried in order, from paragraph breaks down to single runes.
var DefaultSeparators = []string{"\n\n", "\n", ". ", "! ", "? ", "; ", ", ", " ", ""}

// Span is a half-open byte range [Start, End) of the input text.
type Span struct {
	Start int
	End   int
}

// Recursive splits text on the largest available boundary and merges the
// pieces into chunks of at most size characters. Separators stay attached to
// the piece they end, so the pieces always tile the input.
type Recursive struct {
	size       int
	overlap    int
	separators []string
}

// Option configures the recursive chunker.
type Option func(*Recursive)

// WithChunkSize sets the maximum chunk length in characters.
func WithChunkSize(size int) Option {
	return func(r *Recursive) {
		if size > 0 {
			r.size = size
		}
	}
}

// WithOverlap sets the number of characters repeated between neighbouring chunks.
func WithOverlap(overlap int) Option {
	return func(r *Recursive) {
		if overlap >= 0 {
			r.overlap = overlap
		}
	}
}

// WithSeparators replaces the separator hierarchy. An empty separator is
// always appended so that any piece can be cut down to size.
func WithSeparators(seps ...string) Option {
	return func(r *Recursive) {
		if len(seps) == 0 {
			return
		}
		out := make([]string, 0, len(seps)+1)
		for _, s := range seps {
			if s != "" {
				out = append(out, s)
			}
		}
		r.separators = append(out, "")
	}
}

// New creates a recursive chunker with the given options.
func New(opts ...Option) *Recursive {
	r := &Recursive{
		size:       DefaultChunkSize,
		overlap:    DefaultChunkOverlap,
		separators: DefaultSeparators,
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.overlap >= r.size {
		r.overlap = r.size / 4
	}
	return r
}

// Size returns the configured maximum chunk length.
func (r *Recursive) Size() int { return r.size }

// Overlap returns the configured overlap.
func (r *Recursive) Overlap() int { return r.overlap }

// Chunk splits the document content into ordered chunks.
func (r *Recursive) Chunk(doc domain.Document) ([]domain.Chunk, error) {
	spans := r.Split(doc.Content)
	if len(spans) == 0 {
		return nil, nil
	}
	chunks := make([]domain.Chunk, len(spans))
	for i, sp := range spans {
		chunks[i] = domain.Chunk{
			DocumentID: doc.ID,
			ChunkID:    fmt.Sprintf("%s:%d", doc.ID, i),
			Text:       doc.Content[sp.Start:sp.End],
			Index:      i,
			Start:      sp.Start,
			End:        sp.End,
		}
	}
	return chunks, nil
}

// Split returns the chunk boundaries for text. Consecutive spans either touch
// or overlap; the first starts at 0 and the last ends at len(text).
func (r *Recursive) Split(text string) []Span {
	if text == "" {
		return nil
	}
	pieces := r.pieces(text, Span{0, len(text)}, r.separators)
	return r.merge(text, pieces)
}

func (r *Recursive) pieces(text string, sp Span, seps []string) []Span {
	if runeLen(text, sp) <= r.size {
		return []Span{sp}
	}
	for i, sep := range seps {
		if sep == "" {
			return splitRunes(text, sp, r.size)
		}
		if !strings.Contains(text[sp.Start:sp.End], sep) {
			continue
		}
		var out []Span
		for _, p := range splitKeep(text, sp, sep) {
			if runeLen(text, p) <= r.size {
				out = append(out, p)
				continue
			}
			out = append(out, r.pieces(text, p, seps[i+1:])...)
		}
		return out
	}
	return splitRunes(text, sp, r.size)
}

func (r *Recursive) merge(text string, pieces []Span) []Span {
	var (
		chunks []Span
		window []Span
		length int
	)
	for _, p := range pieces {
		n := runeLen(text, p)
		if length+n > r.size && len(window) > 0 {
			chunks = append(chunks, Span{window[0].Start, window[len(window)-1].End})
			for len(window) > 0 && (length > r.overlap || length+n > r.size) {
				length -= runeLen(text, window[0])
				window = window[1:]
			}
		}
		window = append(window, p)
		length += n
	}
	if len(window) > 0 {
		chunks = append(chunks, Span{window[0].Start, window[len(window)-1].End})
	}
	return chunks
}

// splitKeep cuts sp after every occurrence of sep.
func splitKeep(text string, sp Span, sep string) []Span {
	var out []Span
	pos := sp.Start
	for pos < sp.End {
		i := strings.Index(text[pos:sp.End], sep)
		if i < 0 {
			break
		}
		end := pos + i + len(sep)
		out = append(out, Span{pos, end})
		pos = end
	}
	if pos < sp.End {
		out = append(out, Span{pos, sp.End})
	}
	return out
}

func splitRunes(text string, sp Span, size int) []Span {
	var out []Span
	start, count := sp.Start, 0
	for i := sp.Start; i < sp.End; {
		_, w := utf8.DecodeRuneInString(text[i:sp.End])
		if count == size {
			out = append(out, Span{start, i})
			start, count = i, 0
		}
		i += w
		count++
	}
	if start < sp.End {
		out = append(out, Span{start, sp.End})
	}
	return out
}

func runeLen(text string, sp Span) int {
	return utf8.RuneCountInString(text[sp.Start:sp.End])
}
