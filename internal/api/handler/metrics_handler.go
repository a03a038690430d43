package handler

import (
	"net/http"

	"github.com/lexops/notify/internal/queue"
	"github.com/lexops/notify/internal/service"
)

// MetricsHandler serves a human-readable JSON queue and job snapshot.
// Raw Prometheus metrics are available at /metrics via promhttp and are
// separate from this endpoint.
type MetricsHandler struct {
	q   *queue.PriorityQueue
	svc *service.NotificationService
}

func NewMetricsHandler(q *queue.PriorityQueue, svc *service.NotificationService) *MetricsHandler {
	return &MetricsHandler{q: q, svc: svc}
}

// GetMetrics handles GET /api/v1/metrics
//
// @Summary  Real-time queue depth and job status snapshot
// @Tags     metrics
// @Produce  json
// @Success  200  {object}  map[string]any
// @Router   /api/v1/metrics [get]
func (h *MetricsHandler) GetMetrics(w http.ResponseWriter, r *http.Request) {
	critical, high, medium, low := h.q.Depths()
	body := map[string]any{
		"queue_depth": map[string]int{
			"critical": critical,
			"high":     high,
			"medium":   medium,
			"low":      low,
			"total":    critical + high + medium + low,
		},
		"paused": h.q.Paused(),
	}

	if counts, err := h.svc.Counts(r.Context()); err == nil {
		body["jobs"] = counts
	}
	respondJSON(w, http.StatusOK, body)
}
