// Package brevo sends transactional email through the Brevo SMTP API.
package brevo

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/sony/gobreaker/v2"
)

const DefaultAPIURL = "https://api.brevo.com/v3/smtp/email"

var ErrNoMessageID = errors.New("brevo: response carried no messageId")

type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("brevo: status %d: %s", e.StatusCode, e.Body)
}

type Config struct {
	APIKey    string
	APIURL    string
	FromEmail string
	FromName  string
	Timeout   time.Duration
}

type Attachment struct {
	Name    string
	Content []byte
}

type Message struct {
	ToEmail     string
	ToName      string
	Subject     string
	HTML        string
	Attachments []Attachment
}

type Client struct {
	cfg  Config
	http *http.Client
	cb   *gobreaker.CircuitBreaker[string]
}

func NewClient(cfg Config, httpClient *http.Client) *Client {
	if cfg.APIURL == "" {
		cfg.APIURL = DefaultAPIURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 20 * time.Second
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}

	cb := gobreaker.NewCircuitBreaker[string](gobreaker.Settings{
		Name:        "brevo",
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     time.Minute,
		ReadyToTrip: func(c gobreaker.Counts) bool {
			return c.ConsecutiveFailures >= 5
		},
	})

	return &Client{cfg: cfg, http: httpClient, cb: cb}
}

type address struct {
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
}

type attachment struct {
	Name    string `json:"name"`
	Content string `json:"content"`
}

type sendBody struct {
	Sender      address      `json:"sender"`
	To          []address    `json:"to"`
	Subject     string       `json:"subject"`
	HTMLContent string       `json:"htmlContent"`
	Attachment  []attachment `json:"attachment,omitempty"`
}

// Send delivers msg and returns the provider's message id.
func (c *Client) Send(ctx context.Context, msg Message) (string, error) {
	const op = "brevo.Client.Send"

	if strings.TrimSpace(msg.ToEmail) == "" {
		return "", fmt.Errorf("%s: missing recipient", op)
	}

	body := sendBody{
		Sender:      address{Email: c.cfg.FromEmail, Name: c.cfg.FromName},
		To:          []address{{Email: msg.ToEmail, Name: msg.ToName}},
		Subject:     msg.Subject,
		HTMLContent: msg.HTML,
	}
	for _, a := range msg.Attachments {
		body.Attachment = append(body.Attachment, attachment{
			Name:    a.Name,
			Content: base64.StdEncoding.EncodeToString(a.Content),
		})
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return "", fmt.Errorf("%s:%w", op, err)
	}

	id, err := c.cb.Execute(func() (string, error) {
		return c.post(ctx, payload)
	})
	if err != nil {
		return "", fmt.Errorf("%s:%w", op, err)
	}

	return id, nil
}

func (c *Client) post(ctx context.Context, payload []byte) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.APIURL, bytes.NewReader(payload))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("api-key", c.cfg.APIKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", err
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", &APIError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(raw))}
	}

	var out struct {
		MessageID string `json:"messageId"`
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return "", err
	}
	if out.MessageID == "" {
		return "", ErrNoMessageID
	}

	return out.MessageID, nil
}
