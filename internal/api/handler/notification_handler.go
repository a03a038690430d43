package handler

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/lexops/notify/internal/domain"
	"github.com/lexops/notify/internal/service"
)

// NotificationHandler serves the per-user notification feed.
type NotificationHandler struct {
	svc    *service.NotificationService
	logger *zap.Logger
}

func NewNotificationHandler(svc *service.NotificationService, logger *zap.Logger) *NotificationHandler {
	return &NotificationHandler{svc: svc, logger: logger}
}

// List handles GET /api/v1/notifications
//
// @Summary  List a user's notifications with filtering and pagination
// @Tags     notifications
// @Produce  json
// @Param    tenantId  query     string  true   "Tenant"
// @Param    userId    query     string  true   "User"
// @Param    type      query     string  false  "Filter by event type"
// @Param    unread    query     bool    false  "Unread only"
// @Param    page      query     int     false  "Page number (default 1)"
// @Param    limit     query     int     false  "Items per page (default 20, max 100)"
// @Success  200       {object}  map[string]any
// @Router   /api/v1/notifications [get]
func (h *NotificationHandler) List(w http.ResponseWriter, r *http.Request) {
	filter := parseListFilter(r)
	if filter.TenantID == "" || filter.UserID == "" {
		respondError(w, http.StatusBadRequest, "tenantId and userId are required")
		return
	}

	notifications, total, err := h.svc.List(r.Context(), filter)
	if err != nil {
		h.logger.Error("list notifications failed", zap.Error(err))
		respondError(w, http.StatusInternalServerError, "failed to list notifications")
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"data":  notifications,
		"total": total,
		"page":  filter.Page,
		"limit": filter.Limit,
	})
}

// MarkRead handles POST /api/v1/notifications/{id}/read
//
// @Summary  Mark a notification as read
// @Tags     notifications
// @Param    id        path   string  true  "Notification UUID"
// @Param    tenantId  query  string  true  "Tenant"
// @Success  204
// @Failure  404  {object}  map[string]string
// @Router   /api/v1/notifications/{id}/read [post]
func (h *NotificationHandler) MarkRead(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	tenantID := r.URL.Query().Get("tenantId")
	if tenantID == "" {
		respondError(w, http.StatusBadRequest, "tenantId is required")
		return
	}
	if err := h.svc.MarkRead(r.Context(), tenantID, id); err != nil {
		mapError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func parseListFilter(r *http.Request) domain.ListFilter {
	q := r.URL.Query()
	filter := domain.ListFilter{
		TenantID: q.Get("tenantId"),
		UserID:   q.Get("userId"),
		Page:     1,
		Limit:    20,
	}

	if p, err := strconv.Atoi(q.Get("page")); err == nil && p > 0 {
		filter.Page = p
	}
	if l, err := strconv.Atoi(q.Get("limit")); err == nil && l > 0 && l <= 100 {
		filter.Limit = l
	}
	if t := q.Get("type"); t != "" {
		filter.Type = &t
	}
	if unread, err := strconv.ParseBool(q.Get("unread")); err == nil {
		filter.UnreadOnly = unread
	}
	return filter
}
