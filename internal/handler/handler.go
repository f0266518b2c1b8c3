// Package handler provides the HTTP surface of the storefront MCP server.
package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"storefront/internal/adapter"
)

// Handler holds dependencies for HTTP handlers.
type Handler struct {
	api    adapter.Storefront
	logger *slog.Logger
}

// New creates a new Handler backed by api.
// Every tool call mounts fresh pages on api, so all callers share its session.
func New(api adapter.Storefront, logger *slog.Logger) *Handler {
	return &Handler{
		api:    api,
		logger: logger,
	}
}

// RegisterRoutes registers all HTTP routes with the given ServeMux.
// Uses Go 1.22+ method routing patterns.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	// MCP transport - JSON-RPC endpoint using official MCP SDK
	mux.Handle("/mcp", h.NewMCPHandler())

	// Health check
	mux.HandleFunc("GET /health", h.handleHealth)
	mux.HandleFunc("GET /healthz", h.handleHealth)
}

// handleHealth returns a simple health check response.
// GET /health, GET /healthz
func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, healthResponse{Status: "ok"})
}

type healthResponse struct {
	Status string `json:"status"`
}

// writeJSON sends a JSON response with the given status code.
func (h *Handler) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to encode response", slog.String("error", err.Error()))
	}
}
