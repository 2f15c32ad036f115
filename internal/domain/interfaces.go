package domain

import (
	"context"
	"time"
)

// SourceKind tells the loader how to interpret a Source.
type SourceKind string

const (
	SourceFile SourceKind = "file"
	SourceURL  SourceKind = "url"
	SourceText SourceKind = "text"
)

// Source is the raw input for one ingest: uploaded bytes, a URL or pasted text.
type Source struct {
	Kind     SourceKind
	Name     string
	MIMEType string
	Data     []byte
	URL      string
	Text     string
}

// Document is the normalized text extracted from a Source.
type Document struct {
	ID       string
	Name     string
	Format   string
	Content  string
	Sections int
}

// Chunk is a bounded substring of a document used as the unit of retrieval.
// Start and End are byte offsets into Document.Content.
type Chunk struct {
	DocumentID string
	ChunkID    string
	Text       string
	Index      int
	Start      int
	End        int
}

// SearchResult represents a matching chunk with a relevance score.
type SearchResult struct {
	Chunk Chunk
	Score float64
}

// Role tags a chat message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one role-tagged entry of a chat-completion request.
type Message struct {
	Role    Role
	Content string
}

// Turn is a question with its answer and the chunks it was grounded on.
type Turn struct {
	Question string
	Answer   string
	Sources  []SearchResult
	AskedAt  time.Time
}

// Answer is the result of one question.
type Answer struct {
	Text    string
	Sources []SearchResult
}

// IngestReport describes a freshly indexed document.
type IngestReport struct {
	DocumentID string
	Name       string
	Format     string
	Sections   int
	Characters int
	Chunks     int
	Preview    string
	Summary    string
	Embedder   string
}

// Embedder converts free text into a numeric vector representation.
// Implementations may require a preparation phase over the corpus.
type Embedder interface {
	Name() string
	Prepare(ctx context.Context, corpus []string) error
	Dimension() int
	EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error)
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

// ChatModel produces a completion for an ordered list of messages.
type ChatModel interface {
	Name() string
	Complete(ctx context.Context, messages []Message) (string, error)
}

// Loader turns a Source into a Document.
type Loader interface {
	Load(ctx context.Context, src Source) (Document, error)
}

// Chunker splits documents into chunks suitable for retrieval indexing.
type Chunker interface {
	Chunk(document Document) ([]Chunk, error)
}

// VectorStore holds chunk vectors and supports similarity search.
type VectorStore interface {
	Init(ctx context.Context, dimension int) error
	Upsert(ctx context.Context, chunks []Chunk, vectors [][]float32) error
	Search(ctx context.Context, vector []float32, topK int) ([]SearchResult, error)
	Clear(ctx context.Context) error
}

// Summarizer produces a brief summary of the provided text.
type Summarizer interface {
	Summarize(text string, maxSentences int) (string, error)
}
