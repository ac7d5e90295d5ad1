// Package nowpayments talks to the NOWPayments hosted-invoice API and
// verifies its payment notifications.
package nowpayments

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sony/gobreaker/v2"
)

const DefaultInvoiceURL = "https://api.nowpayments.io/v1/invoice"

var ErrMissingInvoiceURL = errors.New("payment processor returned no invoice url")

// APIError is a non-2xx answer from the processor.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("nowpayments: status %d: %s", e.StatusCode, e.Message)
}

type Config struct {
	APIKey     string
	InvoiceURL string
	Timeout    time.Duration
}

type InvoiceRequest struct {
	PriceAmount      decimal.Decimal
	PriceCurrency    string
	OrderID          string
	OrderDescription string
	SuccessURL       string
	CancelURL        string
	IPNCallbackURL   string
	CustomerEmail    string
}

type Invoice struct {
	ID  string
	URL string
}

type Client struct {
	cfg  Config
	http *http.Client
	cb   *gobreaker.CircuitBreaker[*Invoice]
}

func NewClient(cfg Config, httpClient *http.Client) *Client {
	if cfg.InvoiceURL == "" {
		cfg.InvoiceURL = DefaultInvoiceURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}

	cb := gobreaker.NewCircuitBreaker[*Invoice](gobreaker.Settings{
		Name:        "nowpayments",
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(c gobreaker.Counts) bool {
			return c.ConsecutiveFailures >= 5
		},
		// Rejections carry a processor message and say nothing about its
		// health.
		IsSuccessful: func(err error) bool {
			var apiErr *APIError
			if errors.As(err, &apiErr) {
				return apiErr.StatusCode < 500
			}
			return err == nil || errors.Is(err, ErrMissingInvoiceURL)
		},
	})

	return &Client{cfg: cfg, http: httpClient, cb: cb}
}

type invoiceBody struct {
	PriceAmount      json.Number `json:"price_amount"`
	PriceCurrency    string      `json:"price_currency"`
	OrderID          string      `json:"order_id"`
	OrderDescription string      `json:"order_description"`
	SuccessURL       string      `json:"success_url"`
	CancelURL        string      `json:"cancel_url"`
	IPNCallbackURL   string      `json:"ipn_callback_url"`
	CustomerEmail    string      `json:"customer_email,omitempty"`
}

// CreateInvoice asks the processor for a hosted invoice. The amount is sent
// with exactly two decimals.
func (c *Client) CreateInvoice(ctx context.Context, req InvoiceRequest) (*Invoice, error) {
	const op = "nowpayments.Client.CreateInvoice"

	currency := req.PriceCurrency
	if currency == "" {
		currency = "usd"
	}

	body, err := json.Marshal(invoiceBody{
		PriceAmount:      json.Number(req.PriceAmount.StringFixed(2)),
		PriceCurrency:    currency,
		OrderID:          req.OrderID,
		OrderDescription: req.OrderDescription,
		SuccessURL:       req.SuccessURL,
		CancelURL:        req.CancelURL,
		IPNCallbackURL:   req.IPNCallbackURL,
		CustomerEmail:    req.CustomerEmail,
	})
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	inv, err := c.cb.Execute(func() (*Invoice, error) {
		return c.post(ctx, body)
	})
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	return inv, nil
}

func (c *Client) post(ctx context.Context, body []byte) (*Invoice, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.InvoiceURL, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-api-key", c.cfg.APIKey)

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, err
	}

	data, _ := decodeObject(raw)
	p := Payload(data)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg := p.String("message", "error")
		if msg == "" {
			msg = strings.TrimSpace(string(raw))
		}
		if msg == "" {
			msg = http.StatusText(resp.StatusCode)
		}
		return nil, &APIError{StatusCode: resp.StatusCode, Message: msg}
	}

	inv := &Invoice{
		ID:  p.String("id", "invoice_id"),
		URL: p.String("invoice_url", "url"),
	}
	if inv.URL == "" {
		return nil, ErrMissingInvoiceURL
	}

	return inv, nil
}
