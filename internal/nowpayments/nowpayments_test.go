package nowpayments

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVerifySignature(t *testing.T) {
	body := []byte(`{"order_id":"o-1","payment_status":"finished"}`)
	secret := "ipn-secret"
	sig := Sign(body, secret)

	tests := []struct {
		name    string
		body    []byte
		sig     string
		secret  string
		wantErr bool
	}{
		{"valid", body, sig, secret, false},
		{"uppercase hex", body, strings.ToUpper(sig), secret, false},
		{"prefixed and padded", body, "  sha512=" + sig + " ", secret, false},
		{"missing", body, "", secret, true},
		{"not hex", body, "zz", secret, true},
		{"wrong secret", body, sig, "other", true},
		{"tampered body", []byte(`{"order_id":"o-2","payment_status":"finished"}`), sig, secret, true},
		{"no secret configured", body, sig, "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := VerifySignature(tt.body, tt.sig, tt.secret)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidSignature)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestParsePayload(t *testing.T) {
	tests := []struct {
		name   string
		raw    string
		order  string
		status string
	}{
		{"json", `{"order_id":"abc","payment_status":"Finished","price_amount":10}`, "abc", "finished"},
		{"json camel case fallback", `{"orderId":"abc","status":"waiting"}`, "abc", "waiting"},
		{"numeric order id", `{"order_id":12345,"payment_status":"paid"}`, "12345", "paid"},
		{"form", "order_id=abc&payment_status=expired", "abc", "expired"},
		{"key colon lines", "order_id: abc\npayment_status: confirming", "abc", "confirming"},
		{"comma pairs", "order_id=abc, payment_status=failed", "abc", "failed"},
		{
			"form with comma in a value",
			"order_id=4b0c2f7e-0000-4000-8000-000000000001&payment_status=finished&order_description=VA order for 1 listing(s) by Ann, Smith",
			"4b0c2f7e-0000-4000-8000-000000000001", "finished",
		},
		{"form with newline in a value", "payment_status=partially_paid&order_id=abc&note=line1%0Aline2\nx", "abc", "partially_paid"},
		{"garbage", "\x00\x01not a payload", "", ""},
		{"empty", "", "", ""},
		{"json array", `[1,2,3]`, "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := ParsePayload([]byte(tt.raw))
			require.NotNil(t, p)
			assert.Equal(t, tt.order, p.OrderID())
			assert.Equal(t, tt.status, p.Status())
		})
	}
}

func TestParsePayloadKeepsLargeNumbers(t *testing.T) {
	p := ParsePayload([]byte(`{"payment_id":12345678901234567890,"order_id":"abc","payment_status":"finished","price_amount":89.10}`))

	assert.Equal(t, "12345678901234567890", p.String("payment_id"))
	assert.JSONEq(t,
		`{"payment_id":12345678901234567890,"order_id":"abc","payment_status":"finished","price_amount":89.10}`,
		string(p.JSON()),
	)
	assert.Contains(t, string(p.JSON()), "12345678901234567890")
}

func TestCreateInvoice(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "key-1", r.Header.Get("x-api-key"))
		b, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(b, &got))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":5077125051,"invoice_url":"https://nowpayments.io/payment/?iid=5077125051"}`))
	}))
	defer srv.Close()

	c := NewClient(Config{APIKey: "key-1", InvoiceURL: srv.URL}, srv.Client())
	inv, err := c.CreateInvoice(context.Background(), InvoiceRequest{
		PriceAmount:      decimal.RequireFromString("89.1"),
		OrderID:          "o-1",
		OrderDescription: "VA order for 1 listing(s)",
		SuccessURL:       "https://shop.example/checkout/success",
		CancelURL:        "https://shop.example/checkout/cancel",
		IPNCallbackURL:   "https://shop.example/api/checkout/nowpayments/ipn",
	})
	require.NoError(t, err)
	assert.Equal(t, "5077125051", inv.ID)
	assert.Equal(t, "https://nowpayments.io/payment/?iid=5077125051", inv.URL)

	assert.Equal(t, 89.10, got["price_amount"])
	assert.Equal(t, "usd", got["price_currency"])
	assert.Equal(t, "o-1", got["order_id"])
	_, hasEmail := got["customer_email"]
	assert.False(t, hasEmail)
}

func TestCreateInvoiceErrors(t *testing.T) {
	t.Run("processor message is surfaced", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"message":"price_amount is too small"}`))
		}))
		defer srv.Close()

		c := NewClient(Config{APIKey: "k", InvoiceURL: srv.URL}, srv.Client())
		_, err := c.CreateInvoice(context.Background(), InvoiceRequest{PriceAmount: decimal.NewFromInt(1)})

		var apiErr *APIError
		require.True(t, errors.As(err, &apiErr))
		assert.Equal(t, http.StatusBadRequest, apiErr.StatusCode)
		assert.Equal(t, "price_amount is too small", apiErr.Message)
	})

	t.Run("missing url", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"id":"1"}`))
		}))
		defer srv.Close()

		c := NewClient(Config{APIKey: "k", InvoiceURL: srv.URL}, srv.Client())
		_, err := c.CreateInvoice(context.Background(), InvoiceRequest{PriceAmount: decimal.NewFromInt(1)})
		assert.ErrorIs(t, err, ErrMissingInvoiceURL)
	})
}
