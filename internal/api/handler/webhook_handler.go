package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/lexops/notify/internal/webhook"
)

// WebhookHandler receives payment-provider callbacks.
type WebhookHandler struct {
	payments *webhook.PaymentAdapter
	logger   *zap.Logger
}

func NewWebhookHandler(payments *webhook.PaymentAdapter, logger *zap.Logger) *WebhookHandler {
	return &WebhookHandler{payments: payments, logger: logger}
}

// Payments handles POST /webhooks/payments/{tenantID}
//
// Unmapped provider events return 200 so the provider stops
// redelivering; only infrastructure failures return 5xx.
//
// @Summary  Payment provider webhook
// @Tags     webhooks
// @Accept   json
// @Param    tenantID  path  string                true  "Tenant"
// @Param    body      body  webhook.PaymentEvent  true  "Provider event"
// @Success  200
// @Failure  400  {object}  map[string]string
// @Router   /webhooks/payments/{tenantID} [post]
func (h *WebhookHandler) Payments(w http.ResponseWriter, r *http.Request) {
	tenantID := chi.URLParam(r, "tenantID")

	var evt webhook.PaymentEvent
	if err := json.NewDecoder(r.Body).Decode(&evt); err != nil {
		respondError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	if err := h.payments.Process(r.Context(), tenantID, evt); err != nil {
		h.logger.Error("payment webhook processing failed",
			zap.String("tenant_id", tenantID),
			zap.String("provider_event", evt.Event),
			zap.Error(err))
		respondError(w, http.StatusInternalServerError, "webhook processing failed")
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "processed"})
}
