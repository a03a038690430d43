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

type emailRequest struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

// EmailSender delivers notifications through the transactional email
// provider's HTTP API.
type EmailSender struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

func NewEmailSender(baseURL, apiKey string, timeout time.Duration) *EmailSender {
	return &EmailSender{
		baseURL: baseURL,
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

func (s *EmailSender) Name() domain.Channel { return domain.ChannelEmail }

// Send mails the rendered notification to the recipient's directory
// address. A recipient without an address is an error; the worker logs
// it as a per-channel failure without affecting the other channels.
func (s *EmailSender) Send(ctx context.Context, user *domain.User, n *domain.Notification) error {
	if user == nil || user.Email == "" {
		return fmt.Errorf("no email address for user %s", n.UserID)
	}

	body, err := json.Marshal(emailRequest{
		To:      user.Email,
		Subject: n.Title,
		Body:    n.Message,
	})
	if err != nil {
		return fmt.Errorf("marshal email request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/send", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+s.apiKey)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("send email: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("unexpected email provider status: %d", resp.StatusCode)
	}
	return nil
}

var _ Sender = (*EmailSender)(nil)
