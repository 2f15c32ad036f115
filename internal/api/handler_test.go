package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"docqa/internal/chunker"
	"docqa/internal/domain"
	"docqa/internal/embedding/tfidf"
	"docqa/internal/loader"
	"docqa/internal/service"
	"docqa/internal/summarizer"
	"docqa/internal/vectorstore/memory"
)

type fakeChat struct {
	err error
}

func (c *fakeChat) Name() string { return "fake" }

func (c *fakeChat) Complete(_ context.Context, messages []domain.Message) (string, error) {
	if c.err != nil {
		return "", c.err
	}
	last := messages[len(messages)-1].Content
	if strings.Contains(last, "100 degrees Celsius") {
		return "Water boils at 100 degrees Celsius at sea level.", nil
	}
	return "The document does not cover it.", nil
}

func newTestServer(t *testing.T, chat *fakeChat) *httptest.Server {
	t.Helper()
	registry := service.NewRegistry(func(string) (*service.Session, error) {
		return service.NewSession(service.Components{
			Loader:     loader.New(loader.Config{}),
			Chunker:    chunker.New(),
			Embedder:   tfidf.NewEmbedder(),
			Store:      memory.NewStorage(),
			Chat:       chat,
			Summarizer: summarizer.NewFrequency(),
		}, service.Config{TopK: 4, HistoryTurns: 5, SummarySentences: 2}), nil
	}, time.Hour)
	srv := httptest.NewServer(SetupRouter(NewHandler(registry, 1<<20), zap.NewNop(), time.Minute))
	t.Cleanup(srv.Close)
	return srv
}

func doJSON(t *testing.T, method, url string, body any, out any) int {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}
	req, err := http.NewRequest(method, url, reader)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	if out != nil {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp.StatusCode
}

func createSession(t *testing.T, srv *httptest.Server) string {
	t.Helper()
	var created CreateSessionResponse
	require.Equal(t, http.StatusCreated, doJSON(t, http.MethodPost, srv.URL+"/sessions", nil, &created))
	require.NotEmpty(t, created.ID)
	return created.ID
}

const facts = "The sky is blue. Water boils at 100 degrees Celsius at sea level."

func TestAPI_Conversation(t *testing.T) {
	srv := newTestServer(t, &fakeChat{})

	var health map[string]string
	require.Equal(t, http.StatusOK, doJSON(t, http.MethodGet, srv.URL+"/health", nil, &health))
	assert.Equal(t, "ok", health["status"])

	id := createSession(t, srv)
	base := srv.URL + "/sessions/" + id

	var report IngestReportDTO
	require.Equal(t, http.StatusOK, doJSON(t, http.MethodPost, base+"/documents", DocumentRequest{Text: facts, Name: "facts"}, &report))
	assert.Equal(t, "facts", report.Name)
	assert.Equal(t, 1, report.Chunks)
	assert.Equal(t, "tfidf", report.Embedder)

	var answer AnswerDTO
	require.Equal(t, http.StatusOK, doJSON(t, http.MethodPost, base+"/questions", QuestionRequest{Question: "At what temperature does water boil at sea level?"}, &answer))
	assert.Contains(t, answer.Answer, "100 degrees Celsius")
	require.Len(t, answer.Sources, 1)
	assert.Equal(t, facts, answer.Sources[0].Text)

	var history []TurnDTO
	require.Equal(t, http.StatusOK, doJSON(t, http.MethodGet, base+"/history", nil, &history))
	require.Len(t, history, 1)
	assert.Equal(t, answer.Answer, history[0].Answer)

	resp, err := http.Get(base + "/transcript?format=md")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/markdown; charset=utf-8", resp.Header.Get("Content-Type"))
	assert.Contains(t, resp.Header.Get("Content-Disposition"), "transcript-"+id+".md")

	require.Equal(t, http.StatusNoContent, doJSON(t, http.MethodDelete, base, nil, nil))
	var errResp ErrorResponse
	assert.Equal(t, http.StatusNotFound, doJSON(t, http.MethodGet, base+"/history", nil, &errResp))
	assert.NotEmpty(t, errResp.Error)
}

func TestAPI_MultipartUpload(t *testing.T) {
	srv := newTestServer(t, &fakeChat{})
	id := createSession(t, srv)

	upload := func(name, content string) (int, IngestReportDTO) {
		var body bytes.Buffer
		mw := multipart.NewWriter(&body)
		part, err := mw.CreateFormFile("file", name)
		require.NoError(t, err)
		_, err = part.Write([]byte(content))
		require.NoError(t, err)
		require.NoError(t, mw.Close())

		resp, err := http.Post(srv.URL+"/sessions/"+id+"/documents", mw.FormDataContentType(), &body)
		require.NoError(t, err)
		defer resp.Body.Close()
		var report IngestReportDTO
		if resp.StatusCode == http.StatusOK {
			require.NoError(t, json.NewDecoder(resp.Body).Decode(&report))
		}
		return resp.StatusCode, report
	}

	status, report := upload("facts.md", facts)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "facts.md", report.Name)
	assert.Equal(t, "text", report.Format)

	status, _ = upload("legacy.doc", "binary")
	assert.Equal(t, http.StatusUnsupportedMediaType, status)
}

func TestAPI_UploadTooLarge(t *testing.T) {
	registry := service.NewRegistry(func(string) (*service.Session, error) {
		return service.NewSession(service.Components{Store: memory.NewStorage()}, service.Config{}), nil
	}, time.Hour)
	id, _, err := registry.Create()
	require.NoError(t, err)
	router := SetupRouter(NewHandler(registry, 1024), zap.NewNop(), 0)

	body, err := json.Marshal(DocumentRequest{Text: strings.Repeat("x", 4096)})
	require.NoError(t, err)
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/sessions/"+id+"/documents", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
}

func TestAPI_ErrorStatuses(t *testing.T) {
	chat := &fakeChat{}
	srv := newTestServer(t, chat)
	id := createSession(t, srv)
	base := srv.URL + "/sessions/" + id

	assert.Equal(t, http.StatusConflict, doJSON(t, http.MethodPost, base+"/questions", QuestionRequest{Question: "anything?"}, nil))
	assert.Equal(t, http.StatusBadRequest, doJSON(t, http.MethodPost, base+"/questions", QuestionRequest{Question: " "}, nil))
	assert.Equal(t, http.StatusBadRequest, doJSON(t, http.MethodPost, base+"/documents", DocumentRequest{}, nil))
	assert.Equal(t, http.StatusUnprocessableEntity, doJSON(t, http.MethodPost, base+"/documents", DocumentRequest{Text: "   ", Name: "blank"}, nil))
	assert.Equal(t, http.StatusBadRequest, doJSON(t, http.MethodGet, base+"/transcript?format=docx", nil, nil))
	assert.Equal(t, http.StatusNotFound, doJSON(t, http.MethodPost, srv.URL+"/sessions/unknown/questions", QuestionRequest{Question: "q"}, nil))

	require.Equal(t, http.StatusOK, doJSON(t, http.MethodPost, base+"/documents", DocumentRequest{Text: facts}, nil))
	chat.err = &domain.APIError{Kind: domain.ErrCompletionAPI, Provider: "openai", StatusCode: http.StatusUnauthorized, Err: errors.New("invalid api key")}
	var errResp ErrorResponse
	assert.Equal(t, http.StatusBadGateway, doJSON(t, http.MethodPost, base+"/questions", QuestionRequest{Question: "What color is the sky?"}, &errResp))
	assert.Contains(t, errResp.Error, "status 401")
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{fmt.Errorf("x: %w", domain.ErrSessionNotFound), http.StatusNotFound},
		{domain.ErrEmptyQuestion, http.StatusBadRequest},
		{fmt.Errorf("%w: .doc", domain.ErrUnsupportedFormat), http.StatusUnsupportedMediaType},
		{domain.ErrExtraction, http.StatusUnprocessableEntity},
		{domain.ErrNoContent, http.StatusUnprocessableEntity},
		{domain.ErrRetrievalEmpty, http.StatusConflict},
		{domain.ErrEmptyIndex, http.StatusConflict},
		{&domain.FetchError{URL: "http://x", StatusCode: 404}, http.StatusBadGateway},
		{&domain.APIError{Kind: domain.ErrEmbeddingAPI, StatusCode: 429}, http.StatusBadGateway},
		{&domain.APIError{Kind: domain.ErrCompletionAPI}, http.StatusBadGateway},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			assert.Equal(t, tt.want, statusFor(tt.err))
		})
	}
}
