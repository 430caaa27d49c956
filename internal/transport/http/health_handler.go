package http

import (
	"net/http"

	"github.com/IgorGrieder/encurtador-live/internal/constants"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// HealthHandler handles health and metrics endpoints
type HealthHandler struct {
	metrics http.Handler
}

// NewHealthHandler creates a new health handler
func NewHealthHandler() *HealthHandler {
	return &HealthHandler{metrics: promhttp.Handler()}
}

// Health answers the liveness probe with a plain "OK".
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) error {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(constants.MsgOK))
	return nil
}

// Metrics returns Prometheus metrics
func (h *HealthHandler) Metrics(w http.ResponseWriter, r *http.Request) error {
	h.metrics.ServeHTTP(w, r)
	return nil
}
