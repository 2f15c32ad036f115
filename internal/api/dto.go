package api

import (
	"time"

	"docqa/internal/domain"
)

type ErrorResponse struct {
	Error string `json:"error"`
}

type CreateSessionResponse struct {
	ID string `json:"id"`
}

// DocumentRequest is the JSON form of an ingest: either a URL or pasted text.
type DocumentRequest struct {
	URL  string `json:"url,omitempty"`
	Text string `json:"text,omitempty"`
	Name string `json:"name,omitempty"`
}

type IngestReportDTO struct {
	DocumentID string `json:"document_id"`
	Name       string `json:"name"`
	Format     string `json:"format"`
	Sections   int    `json:"sections"`
	Characters int    `json:"characters"`
	Chunks     int    `json:"chunks"`
	Preview    string `json:"preview"`
	Summary    string `json:"summary"`
	Embedder   string `json:"embedder"`
}

type QuestionRequest struct {
	Question string `json:"question"`
}

type SourceDTO struct {
	ChunkID string  `json:"chunk_id"`
	Index   int     `json:"index"`
	Score   float64 `json:"score"`
	Text    string  `json:"text"`
}

type AnswerDTO struct {
	Answer  string      `json:"answer"`
	Sources []SourceDTO `json:"sources"`
}

type TurnDTO struct {
	Question string      `json:"question"`
	Answer   string      `json:"answer"`
	Sources  []SourceDTO `json:"sources"`
	AskedAt  time.Time   `json:"asked_at"`
}

func toIngestReportDTO(r domain.IngestReport) IngestReportDTO {
	return IngestReportDTO{
		DocumentID: r.DocumentID,
		Name:       r.Name,
		Format:     r.Format,
		Sections:   r.Sections,
		Characters: r.Characters,
		Chunks:     r.Chunks,
		Preview:    r.Preview,
		Summary:    r.Summary,
		Embedder:   r.Embedder,
	}
}

func toSourceDTOs(results []domain.SearchResult) []SourceDTO {
	out := make([]SourceDTO, len(results))
	for i, r := range results {
		out[i] = SourceDTO{ChunkID: r.Chunk.ChunkID, Index: r.Chunk.Index, Score: r.Score, Text: r.Chunk.Text}
	}
	return out
}

func toTurnDTOs(turns []domain.Turn) []TurnDTO {
	out := make([]TurnDTO, len(turns))
	for i, t := range turns {
		out[i] = TurnDTO{Question: t.Question, Answer: t.Answer, Sources: toSourceDTOs(t.Sources), AskedAt: t.AskedAt}
	}
	return out
}
