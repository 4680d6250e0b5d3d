package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/perquire/internal/models"
)

// QuestionAnswerer answers a single question against the active index
type QuestionAnswerer interface {
	Ask(ctx context.Context, question string) (*models.Answer, error)
}

// AskRequest is the POST /api/ask request body
type AskRequest struct {
	Question string `json:"question"`
}

// AskHandler handles question-answering HTTP requests
type AskHandler struct {
	answerer QuestionAnswerer
	logger   arbor.ILogger
}

// NewAskHandler creates a new ask handler
func NewAskHandler(answerer QuestionAnswerer, logger arbor.ILogger) *AskHandler {
	return &AskHandler{
		answerer: answerer,
		logger:   logger,
	}
}

// AskHandler handles POST /api/ask requests
func (h *AskHandler) AskHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}

	var req AskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Warn().Err(err).Msg("Failed to decode ask request")
		WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if strings.TrimSpace(req.Question) == "" {
		WriteError(w, http.StatusBadRequest, "Question field is required")
		return
	}

	h.logger.Info().
		Int("question_length", len(req.Question)).
		Msg("Processing question")

	answer, err := h.answerer.Ask(r.Context(), req.Question)
	if err != nil {
		h.logger.Error().Err(err).Msg("Failed to answer question")
		WriteError(w, http.StatusInternalServerError, "Failed to generate answer: "+err.Error())
		return
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"success":  true,
		"answer":   answer.Text,
		"sources":  answer.Sources,
		"provider": answer.Provider,
		"model":    answer.Model,
	})
}
