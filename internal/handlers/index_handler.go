package handlers

import (
	"context"
	"net/http"
	"sync/atomic"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/perquire/internal/common"
)

// IndexManager exposes the index lifecycle operations the HTTP layer needs
type IndexManager interface {
	Ingest(ctx context.Context) error
	IndexSize() int
}

// IndexHandler handles health and reindex HTTP requests
type IndexHandler struct {
	manager IndexManager
	logger  arbor.ILogger

	reindexing atomic.Bool
}

// NewIndexHandler creates a new index handler
func NewIndexHandler(manager IndexManager, logger arbor.ILogger) *IndexHandler {
	return &IndexHandler{
		manager: manager,
		logger:  logger,
	}
}

// HealthHandler handles GET /api/health requests
func (h *IndexHandler) HealthHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"status":  "ok",
		"version": common.Version,
		"chunks":  h.manager.IndexSize(),
	})
}

// ReindexHandler handles POST /api/reindex requests. The rebuild runs in the
// background; the previous index keeps serving queries until the swap.
func (h *IndexHandler) ReindexHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}

	if !h.reindexing.CompareAndSwap(false, true) {
		WriteError(w, http.StatusConflict, "Reindex already in progress")
		return
	}

	go func() {
		defer h.reindexing.Store(false)

		h.logger.Info().Msg("Reindex requested")
		if err := h.manager.Ingest(context.Background()); err != nil {
			h.logger.Error().Err(err).Msg("Reindex failed, previous index retained")
			return
		}
		h.logger.Info().Int("chunks", h.manager.IndexSize()).Msg("Reindex complete")
	}()

	WriteStarted(w, "Reindex started")
}
