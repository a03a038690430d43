package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"go.uber.org/zap"

	apimw "github.com/lexops/notify/internal/api/middleware"
	"github.com/lexops/notify/internal/domain"
	"github.com/lexops/notify/internal/repository"
	"github.com/lexops/notify/internal/service"
)

// Publisher is the dispatch entry point the API feeds. In production it
// is the hybrid publisher, so API events dual-write during migration.
type Publisher interface {
	Publish(
		ctx context.Context,
		eventType, tenantID, userID string,
		payload domain.Payload,
		opts *service.PublishOptions,
	) (*domain.Job, bool, error)
}

// EventHandler accepts publish requests from producers.
type EventHandler struct {
	pub    Publisher
	dir    repository.DirectoryRepository
	logger *zap.Logger
}

func NewEventHandler(pub Publisher, dir repository.DirectoryRepository, logger *zap.Logger) *EventHandler {
	return &EventHandler{pub: pub, dir: dir, logger: logger}
}

type publishRequest struct {
	Type     string           `json:"type"`
	TenantID string           `json:"tenantId"`
	UserID   string           `json:"userId"`
	Role     string           `json:"role"`
	Payload  domain.Payload   `json:"payload"`
	Urgency  domain.Urgency   `json:"urgency,omitempty"`
	Channels []domain.Channel `json:"channels,omitempty"`
	DelayMs  int64            `json:"delayMs,omitempty"`
	Repeat   string           `json:"repeat,omitempty"`
}

func (req *publishRequest) options() *service.PublishOptions {
	if req.Urgency == "" && req.Channels == nil && req.DelayMs == 0 && req.Repeat == "" {
		return nil
	}
	return &service.PublishOptions{
		Urgency:  req.Urgency,
		Channels: req.Channels,
		Delay:    time.Duration(req.DelayMs) * time.Millisecond,
		Repeat:   req.Repeat,
	}
}

// Publish handles POST /api/v1/events
//
// @Summary     Publish a notification event
// @Tags        events
// @Accept      json
// @Produce     json
// @Param       body  body      publishRequest  true  "Event"
// @Success     202   {object}  domain.Job
// @Success     200   {object}  map[string]any  "Duplicate suppressed inside the publish window"
// @Failure     422   {object}  map[string]string
// @Failure     503   {object}  map[string]string
// @Router      /api/v1/events [post]
func (h *EventHandler) Publish(w http.ResponseWriter, r *http.Request) {
	var req publishRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	job, suppressed, err := h.pub.Publish(r.Context(), req.Type, req.TenantID, req.UserID, req.Payload, req.options())
	if err != nil {
		h.logger.Warn("event publish failed",
			zap.String("event_type", req.Type),
			zap.String("correlation_id", apimw.GetCorrelationID(r.Context())),
			zap.Error(err))
		mapError(w, err)
		return
	}
	if suppressed {
		respondJSON(w, http.StatusOK, map[string]any{"suppressed": true})
		return
	}
	respondJSON(w, http.StatusAccepted, job)
}

// PublishToRole handles POST /api/v1/events/role
//
// @Summary     Publish an event to every active user holding a role
// @Tags        events
// @Accept      json
// @Produce     json
// @Param       body  body      publishRequest  true  "Event with role instead of userId"
// @Success     202   {object}  map[string]any
// @Failure     422   {object}  map[string]string
// @Router      /api/v1/events/role [post]
func (h *EventHandler) PublishToRole(w http.ResponseWriter, r *http.Request) {
	var req publishRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.Role == "" {
		respondError(w, http.StatusBadRequest, "role is required")
		return
	}

	users, err := h.dir.FindByRole(r.Context(), req.TenantID, req.Role)
	if err != nil {
		h.logger.Error("role expansion failed",
			zap.String("role", req.Role),
			zap.Error(err))
		mapError(w, err)
		return
	}

	var (
		jobs     []*domain.Job
		firstErr error
	)
	for _, u := range users {
		job, suppressed, err := h.pub.Publish(r.Context(), req.Type, req.TenantID, u.ID, req.Payload, req.options())
		if err != nil {
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		if !suppressed {
			jobs = append(jobs, job)
		}
	}
	if firstErr != nil && len(jobs) == 0 {
		mapError(w, firstErr)
		return
	}

	respondJSON(w, http.StatusAccepted, map[string]any{
		"recipients": len(users),
		"jobs":       jobs,
	})
}
