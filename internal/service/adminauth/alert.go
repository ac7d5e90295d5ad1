package adminauth

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// WebhookAlerter posts lockout alerts as JSON to a chat or incident webhook.
type WebhookAlerter struct {
	url  string
	http *http.Client
}

func NewWebhookAlerter(url string, httpClient *http.Client) *WebhookAlerter {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 5 * time.Second}
	}
	return &WebhookAlerter{url: url, http: httpClient}
}

type alertBody struct {
	Text     string `json:"text"`
	IP       string `json:"ip"`
	Email    string `json:"email"`
	Attempts int64  `json:"attempts"`
	LockMs   int64  `json:"lock_ms"`
}

func (w *WebhookAlerter) Alert(ctx context.Context, a LockoutAlert) error {
	if w.url == "" {
		return nil
	}

	body, err := json.Marshal(alertBody{
		Text: fmt.Sprintf("[admin-login] Lockout: ip=%s email=%s attempts=%d lock=%dm",
			a.IP, a.Email, a.Attempts, int(a.Lock.Round(time.Minute).Minutes())),
		IP:       a.IP,
		Email:    a.Email,
		Attempts: a.Attempts,
		LockMs:   a.Lock.Milliseconds(),
	})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := w.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("alert webhook: status %d", resp.StatusCode)
	}

	return nil
}
