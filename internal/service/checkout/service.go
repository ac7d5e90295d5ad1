// Package checkout turns a reserved cart into a hosted crypto invoice.
package checkout

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/kirinyoku/vastore/internal/domain"
	"github.com/kirinyoku/vastore/internal/metrics"
	"github.com/kirinyoku/vastore/internal/nowpayments"
	"github.com/kirinyoku/vastore/internal/repository"
	"github.com/kirinyoku/vastore/internal/service/reservation"
)

// ErrPaymentProvider wraps every failure of the invoice call itself.
var ErrPaymentProvider = errors.New("payment provider error")

const noteLimit = 140

type Reserver interface {
	Reserve(ctx context.Context, in reservation.ReserveInput) (*domain.Order, error)
}

type InvoiceCreator interface {
	CreateInvoice(ctx context.Context, req nowpayments.InvoiceRequest) (*nowpayments.Invoice, error)
}

type Service struct {
	reserver Reserver
	orders   repository.OrderRepository
	invoices InvoiceCreator
	log      *slog.Logger
}

func New(reserver Reserver, store repository.Store, invoices InvoiceCreator, log *slog.Logger) *Service {
	if log == nil {
		log = slog.Default()
	}
	return &Service{
		reserver: reserver,
		orders:   store.Orders(),
		invoices: invoices,
		log:      log,
	}
}

type CreateInvoiceInput struct {
	CartToken    string
	DiscountCode string
	Contact      domain.Contact
	// BaseURL is the public origin used for the processor callbacks,
	// e.g. https://shop.example.com.
	BaseURL string
}

type Invoice struct {
	OrderID    uuid.UUID       `json:"order_id"`
	InvoiceID  string          `json:"invoice_id,omitempty"`
	InvoiceURL string          `json:"invoice_url"`
	Total      decimal.Decimal `json:"total"`
}

// CreateInvoice reserves the cart's listings and opens a hosted invoice for
// the resulting pending order.
//
// Parameters:
//   - ctx: request-scoped context.
//   - in: cart token, buyer contact, optional discount code and callback origin.
//
// Returns:
//   - *Invoice: the order id and the hosted invoice url.
//   - error: any reservation error (see reservation.Service.Reserve).
//   - error: checkout.ErrPaymentProvider if the processor rejected the request,
//     answered without an invoice url or is unreachable. The reservation is
//     kept in that case.
func (s *Service) CreateInvoice(ctx context.Context, in CreateInvoiceInput) (*Invoice, error) {
	const op = "service.checkout.CreateInvoice"

	order, err := s.reserver.Reserve(ctx, reservation.ReserveInput{
		CartToken:    in.CartToken,
		DiscountCode: in.DiscountCode,
		Contact:      in.Contact,
	})
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	log := s.log.With(slog.String("order_id", order.ID.String()))
	base := strings.TrimRight(strings.TrimSpace(in.BaseURL), "/")

	started := time.Now()
	inv, err := s.invoices.CreateInvoice(ctx, nowpayments.InvoiceRequest{
		PriceAmount:      order.Total,
		PriceCurrency:    "usd",
		OrderID:          order.ID.String(),
		OrderDescription: Description(order.ItemCount, order.Contact),
		SuccessURL:       base + "/checkout/success",
		CancelURL:        base + "/checkout/cancel",
		IPNCallbackURL:   base + "/api/checkout/nowpayments/ipn",
		CustomerEmail:    order.Email,
	})
	metrics.InvoiceLatency.Observe(time.Since(started).Seconds())
	if err != nil {
		metrics.InvoicesTotal.WithLabelValues("provider_error").Inc()
		log.WarnContext(ctx, "invoice creation failed", slog.Any("err", err))
		return nil, fmt.Errorf("%s:%w:%w", op, ErrPaymentProvider, err)
	}

	if err := s.orders.SetInvoice(ctx, order.ID, inv.ID, inv.URL); err != nil {
		metrics.InvoicesTotal.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	metrics.InvoicesTotal.WithLabelValues("ok").Inc()
	log.InfoContext(ctx, "invoice created",
		slog.String("invoice_id", inv.ID),
		slog.String("total", order.Total.StringFixed(2)),
	)

	return &Invoice{
		OrderID:    order.ID,
		InvoiceID:  inv.ID,
		InvoiceURL: inv.URL,
		Total:      order.Total,
	}, nil
}

// Description builds the order description shown on the hosted invoice.
func Description(count int, c domain.Contact) string {
	var b strings.Builder
	fmt.Fprintf(&b, "VA order for %d listing(s)", count)
	if name := strings.TrimSpace(c.FullName); name != "" {
		b.WriteString(" by " + name)
	}
	if tg := strings.TrimSpace(c.Telegram); tg != "" {
		b.WriteString(" (tg: " + tg + ")")
	}
	if note := strings.TrimSpace(c.Note); note != "" {
		b.WriteString(" | note: " + truncateRunes(note, noteLimit))
	}
	return b.String()
}

func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}
