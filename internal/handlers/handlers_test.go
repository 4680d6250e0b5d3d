package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/perquire/internal/common"
	"github.com/ternarybob/perquire/internal/models"
)

type fakeAnswerer struct {
	answer *models.Answer
	err    error
	gotQ   string
}

func (f *fakeAnswerer) Ask(ctx context.Context, question string) (*models.Answer, error) {
	f.gotQ = question
	if f.err != nil {
		return nil, f.err
	}
	return f.answer, nil
}

type fakeManager struct {
	mu       sync.Mutex
	ingested int
	err      error
	size     int
}

func (f *fakeManager) Ingest(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ingested++
	return f.err
}

func (f *fakeManager) IndexSize() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.size
}

func TestAskHandler_ReturnsAnswer(t *testing.T) {
	answerer := &fakeAnswerer{answer: &models.Answer{
		Text:     "forty-two",
		Sources:  []string{"src-a"},
		Provider: "gemini",
		Model:    "gemini-2.0-flash",
	}}
	h := NewAskHandler(answerer, common.GetLogger())

	req := httptest.NewRequest(http.MethodPost, "/api/ask", strings.NewReader(`{"question":"what is the answer?"}`))
	rec := httptest.NewRecorder()
	h.AskHandler(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "what is the answer?", answerer.gotQ)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, true, body["success"])
	assert.Equal(t, "forty-two", body["answer"])
	assert.Equal(t, "gemini", body["provider"])
}

func TestAskHandler_RejectsEmptyQuestion(t *testing.T) {
	h := NewAskHandler(&fakeAnswerer{}, common.GetLogger())

	req := httptest.NewRequest(http.MethodPost, "/api/ask", strings.NewReader(`{"question":"  "}`))
	rec := httptest.NewRecorder()
	h.AskHandler(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAskHandler_RejectsInvalidBody(t *testing.T) {
	h := NewAskHandler(&fakeAnswerer{}, common.GetLogger())

	req := httptest.NewRequest(http.MethodPost, "/api/ask", strings.NewReader(`{not json`))
	rec := httptest.NewRecorder()
	h.AskHandler(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAskHandler_RejectsGet(t *testing.T) {
	h := NewAskHandler(&fakeAnswerer{}, common.GetLogger())

	req := httptest.NewRequest(http.MethodGet, "/api/ask", nil)
	rec := httptest.NewRecorder()
	h.AskHandler(rec, req)

	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestAskHandler_PipelineFailureReturns500(t *testing.T) {
	h := NewAskHandler(&fakeAnswerer{err: errors.New("provider down")}, common.GetLogger())

	req := httptest.NewRequest(http.MethodPost, "/api/ask", strings.NewReader(`{"question":"q"}`))
	rec := httptest.NewRecorder()
	h.AskHandler(rec, req)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestHealthHandler_ReportsChunkCount(t *testing.T) {
	h := NewIndexHandler(&fakeManager{size: 7}, common.GetLogger())

	req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	rec := httptest.NewRecorder()
	h.HealthHandler(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, float64(7), body["chunks"])
}

func TestReindexHandler_StartsRebuild(t *testing.T) {
	mgr := &fakeManager{}
	h := NewIndexHandler(mgr, common.GetLogger())

	req := httptest.NewRequest(http.MethodPost, "/api/reindex", nil)
	rec := httptest.NewRecorder()
	h.ReindexHandler(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "started", body["status"])
}

func TestReindexHandler_RejectsGet(t *testing.T) {
	h := NewIndexHandler(&fakeManager{}, common.GetLogger())

	req := httptest.NewRequest(http.MethodGet, "/api/reindex", nil)
	rec := httptest.NewRecorder()
	h.ReindexHandler(rec, req)

	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}
