package chunker

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docqa/internal/domain"
)

func rebuild(text string, spans []Span) string {
	if len(spans) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString(text[spans[0].Start:spans[0].End])
	for i := 1; i < len(spans); i++ {
		b.WriteString(text[spans[i-1].End:spans[i].End])
	}
	return b.String()
}

func TestNew(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		r := New()
		assert.Equal(t, DefaultChunkSize, r.Size())
		assert.Equal(t, DefaultChunkOverlap, r.Overlap())
	})

	t.Run("invalid values ignored", func(t *testing.T) {
		r := New(WithChunkSize(0), WithOverlap(-1))
		assert.Equal(t, DefaultChunkSize, r.Size())
		assert.Equal(t, DefaultChunkOverlap, r.Overlap())
	})

	t.Run("overlap reduced when not smaller than size", func(t *testing.T) {
		r := New(WithChunkSize(100), WithOverlap(150))
		assert.Equal(t, 25, r.Overlap())
	})
}

func TestSplit_Properties(t *testing.T) {
	long := strings.Repeat("The quick brown fox jumps over the lazy dog. ", 60)
	paragraphs := strings.Repeat("First paragraph line one.\nLine two of it.\n\n", 40)
	unicode := strings.Repeat("Ünïcödé wörds spread acröss a sëntence, ", 50)
	noSpaces := strings.Repeat("x", 2500)

	tests := []struct {
		name    string
		text    string
		size    int
		overlap int
	}{
		{"prose", long, 200, 40},
		{"paragraphs", paragraphs, 120, 30},
		{"unicode", unicode, 64, 16},
		{"no separators", noSpaces, 300, 50},
		{"no overlap", long, 150, 0},
		{"tiny chunks", "a b c d e f g h i j k l m n o p", 3, 1},
		{"leading whitespace", "\n\n  " + long, 250, 50},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := New(WithChunkSize(tt.size), WithOverlap(tt.overlap))
			spans := r.Split(tt.text)
			require.NotEmpty(t, spans)

			assert.Equal(t, tt.text, rebuild(tt.text, spans))
			assert.Equal(t, 0, spans[0].Start)
			assert.Equal(t, len(tt.text), spans[len(spans)-1].End)

			for i, sp := range spans {
				n := utf8.RuneCountInString(tt.text[sp.Start:sp.End])
				assert.LessOrEqual(t, n, tt.size, "chunk %d too long", i)
				if i > 0 {
					prev := spans[i-1]
					assert.LessOrEqual(t, sp.Start, prev.End, "gap before chunk %d", i)
					assert.Greater(t, sp.End, prev.End, "chunk %d adds nothing", i)
					shared := utf8.RuneCountInString(tt.text[sp.Start:prev.End])
					assert.LessOrEqual(t, shared, tt.overlap, "chunk %d overlap too large", i)
				}
			}
		})
	}
}

func TestSplit_ShortTextSingleChunk(t *testing.T) {
	text := "The sky is blue. Water boils at 100 degrees Celsius at sea level."
	spans := New().Split(text)
	require.Len(t, spans, 1)
	assert.Equal(t, Span{0, len(text)}, spans[0])
}

func TestSplit_EmptyText(t *testing.T) {
	assert.Empty(t, New().Split(""))
}

func TestSplit_Deterministic(t *testing.T) {
	text := strings.Repeat("Alpha beta gamma. Delta epsilon!\n", 100)
	r := New(WithChunkSize(90), WithOverlap(20))
	assert.Equal(t, r.Split(text), r.Split(text))
}

func TestSplit_PrefersParagraphBoundaries(t *testing.T) {
	p1 := strings.Repeat("a", 40) + "\n\n"
	p2 := strings.Repeat("b", 40) + "\n\n"
	p3 := strings.Repeat("c", 40)
	text := p1 + p2 + p3
	spans := New(WithChunkSize(50), WithOverlap(0)).Split(text)
	require.Len(t, spans, 3)
	assert.Equal(t, p1, text[spans[0].Start:spans[0].End])
	assert.Equal(t, p2, text[spans[1].Start:spans[1].End])
	assert.Equal(t, p3, text[spans[2].Start:spans[2].End])
}

func TestSplit_OverlapRepeatsTail(t *testing.T) {
	text := "one two three four five six seven eight nine ten"
	spans := New(WithChunkSize(20), WithOverlap(10)).Split(text)
	require.Greater(t, len(spans), 1)
	for i := 1; i < len(spans); i++ {
		assert.Less(t, spans[i].Start, spans[i-1].End, "chunk %d should overlap its predecessor", i)
	}
}

func TestChunk(t *testing.T) {
	doc := domain.Document{ID: "doc1", Content: strings.Repeat("word ", 100)}
	chunks, err := New(WithChunkSize(50), WithOverlap(10)).Chunk(doc)
	require.NoError(t, err)
	require.NotEmpty(t, chunks)
	for i, c := range chunks {
		assert.Equal(t, i, c.Index)
		assert.Equal(t, "doc1", c.DocumentID)
		assert.Equal(t, doc.Content[c.Start:c.End], c.Text)
	}
	assert.Equal(t, "doc1:0", chunks[0].ChunkID)

	none, err := New().Chunk(domain.Document{ID: "empty"})
	require.NoError(t, err)
	assert.Empty(t, none)
}
