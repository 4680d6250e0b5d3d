package server

import (
	"net/http"
)

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes() *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("/api/health", s.indexHandler.HealthHandler)
	mux.HandleFunc("/api/ask", s.askHandler.AskHandler)
	mux.HandleFunc("/api/reindex", s.indexHandler.ReindexHandler)

	return mux
}
