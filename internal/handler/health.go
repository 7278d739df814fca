package handler

import (
	"net/http"

	"github.com/xueqianLu/dscgateway/internal/chain"
	"github.com/xueqianLu/dscgateway/internal/response"
)

// HealthHandler handles health checks. The gateway is healthy when the node
// answers.
type HealthHandler struct {
	backend chain.Backend
}

// NewHealthHandler creates a new HealthHandler.
func NewHealthHandler(backend chain.Backend) *HealthHandler {
	return &HealthHandler{backend: backend}
}

// ServeHTTP implements the http.Handler interface.
func (h *HealthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	head, err := h.backend.BlockNumber(r.Context())
	if err != nil {
		response.WriteJSON(w, http.StatusServiceUnavailable, HealthResponse{Status: "unavailable", Error: err.Error()})
		return
	}
	response.WriteJSON(w, http.StatusOK, HealthResponse{Status: "ok", BlockNumber: head})
}
