package channel

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/lexops/notify/internal/domain"
)

// realtimePush is the JSON body posted to the realtime gateway, which
// forwards it to the user's open sessions.
type realtimePush struct {
	TenantID       string         `json:"tenantId"`
	UserID         string         `json:"userId"`
	NotificationID string         `json:"notificationId"`
	Type           string         `json:"type"`
	Title          string         `json:"title"`
	Message        string         `json:"message"`
	Urgency        domain.Urgency `json:"urgency"`
	Payload        domain.Payload `json:"payload,omitempty"`
}

// RealtimeSender delivers in-app notifications by POSTing to the
// realtime gateway. The base URL is injected from config so tests can
// point to a local mock.
type RealtimeSender struct {
	baseURL    string
	httpClient *http.Client
}

func NewRealtimeSender(baseURL string, timeout time.Duration) *RealtimeSender {
	return &RealtimeSender{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

func (s *RealtimeSender) Name() domain.Channel { return domain.ChannelRealtime }

// Send posts the notification to the gateway and expects 2xx.
func (s *RealtimeSender) Send(ctx context.Context, _ *domain.User, n *domain.Notification) error {
	body, err := json.Marshal(realtimePush{
		TenantID:       n.TenantID,
		UserID:         n.UserID,
		NotificationID: n.ID,
		Type:           n.Type,
		Title:          n.Title,
		Message:        n.Message,
		Urgency:        n.Urgency,
		Payload:        n.Payload,
	})
	if err != nil {
		return fmt.Errorf("marshal realtime push: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/push", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("push to realtime gateway: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("unexpected gateway status: %d", resp.StatusCode)
	}
	return nil
}

var _ Sender = (*RealtimeSender)(nil)
