package httpgin

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/kirinyoku/vastore/internal/nowpayments"
	redisx "github.com/kirinyoku/vastore/internal/redis"
	redisrepo "github.com/kirinyoku/vastore/internal/repository/redis"
	"github.com/kirinyoku/vastore/internal/service/checkout"
	"github.com/kirinyoku/vastore/internal/service/reservation"
)

const (
	idemLockTTL = 60 * time.Second
	maxIPNBody  = 1 << 20
)

// idempotent runs fn once per Idempotency-Key and cart, replaying the stored
// response to repeats. Requests without the header run unguarded.
func (h *handlers) idempotent(c *gin.Context, scope string, fn func() (any, error)) {
	ctx := c.Request.Context()
	key := strings.TrimSpace(c.GetHeader("Idempotency-Key"))

	if h.idem == nil || key == "" {
		out, err := fn()
		if err != nil {
			respondErr(c, err)
			return
		}
		c.JSON(http.StatusOK, out)
		return
	}

	storageKey := redisx.KeyIdempotency(scope, cartToken(c)+":"+key)

	outcome, payload, err := h.idem.Begin(ctx, storageKey, idemLockTTL)
	if err != nil {
		respondErr(c, err)
		return
	}

	c.Header("Idempotency-Key", key)

	switch outcome {
	case redisrepo.IdemReplay:
		c.Data(http.StatusOK, "application/json; charset=utf-8", []byte(payload))
		return
	case redisrepo.IdemInFlight:
		c.Header("Retry-After", "1")
		c.JSON(http.StatusConflict, ErrorResponse{Error: "idempotency_key_in_progress"})
		return
	}

	out, err := fn()
	if err != nil {
		if rerr := h.idem.Release(ctx, storageKey); rerr != nil {
			h.log.WarnContext(ctx, "idempotency release failed", slog.Any("err", rerr))
		}
		respondErr(c, err)
		return
	}

	b, err := json.Marshal(out)
	if err != nil {
		respondErr(c, err)
		return
	}
	if err := h.idem.SaveResult(ctx, storageKey, string(b)); err != nil {
		h.log.WarnContext(ctx, "idempotency save failed", slog.Any("err", err))
	}

	c.Data(http.StatusOK, "application/json; charset=utf-8", b)
}

// @Summary  Reserve the cart's listings
// @Param    req body  CheckoutRequest false "buyer details"
// @Header   200 {string} Idempotency-Key "echo"
// @Success  200 {object} ReserveResponse
// @Failure  404 {object} ErrorResponse "cart_not_found"
// @Failure  400 {object} ErrorResponse "cart_empty / invalid_code"
// @Failure  409 {object} ErrorResponse "items_unavailable"
// @Failure  429 {object} ErrorResponse "rate limited"
// @Router   /api/checkout/reserve [post]
func (h *handlers) reserve(c *gin.Context) {
	var req CheckoutRequest
	if err := bindOptionalJSON(c, &req); err != nil {
		badRequest(c, err.Error())
		return
	}

	h.idempotent(c, "reserve", func() (any, error) {
		o, err := h.svcs.Reservation.Reserve(c.Request.Context(), reservation.ReserveInput{
			CartToken:    cartToken(c),
			DiscountCode: req.DiscountCode,
			Contact:      req.contact(),
		})
		if err != nil {
			return nil, err
		}
		return ReserveResponse{OK: true, OrderID: o.ID.String(), Total: o.Total.StringFixed(2)}, nil
	})
}

// @Summary  Create a hosted crypto invoice
// @Param    req body  CheckoutRequest true "buyer details"
// @Header   200 {string} Idempotency-Key "echo"
// @Success  200 {object} InvoiceResponse
// @Failure  409 {object} ErrorResponse "items_unavailable"
// @Failure  502 {object} ErrorResponse "payment provider error"
// @Router   /api/checkout/nowpayments/create [post]
func (h *handlers) createInvoice(c *gin.Context) {
	var req CheckoutRequest
	if err := bindOptionalJSON(c, &req); err != nil {
		badRequest(c, err.Error())
		return
	}

	h.idempotent(c, "invoice", func() (any, error) {
		inv, err := h.svcs.Checkout.CreateInvoice(c.Request.Context(), checkout.CreateInvoiceInput{
			CartToken:    cartToken(c),
			DiscountCode: req.DiscountCode,
			Contact:      req.contact(),
			BaseURL:      h.publicBaseURL(c),
		})
		if err != nil {
			return nil, err
		}
		return InvoiceResponse{
			InvoiceURL: inv.InvoiceURL,
			InvoiceID:  inv.InvoiceID,
			OrderID:    inv.OrderID.String(),
		}, nil
	})
}

// @Summary  Payment notification webhook
// @Param    x-nowpayments-sig  header  string  true  "HMAC-SHA512 of the raw body"
// @Success  200 {object} OKResponse
// @Failure  400 {object} OKResponse "invalid_signature"
// @Failure  500 {object} OKResponse "processing_failed"
// @Router   /api/checkout/nowpayments/ipn [post]
func (h *handlers) ipn(c *gin.Context) {
	ctx := c.Request.Context()

	raw, err := io.ReadAll(io.LimitReader(c.Request.Body, maxIPNBody))
	if err != nil {
		c.JSON(http.StatusBadRequest, OKResponse{OK: false, Error: "unreadable_body"})
		return
	}

	_, err = h.svcs.Webhook.HandleIPN(ctx, raw, c.GetHeader(nowpayments.SignatureHeader))
	switch {
	case err == nil:
		c.JSON(http.StatusOK, OKResponse{OK: true})
	case errors.Is(err, nowpayments.ErrInvalidSignature):
		c.JSON(http.StatusBadRequest, OKResponse{OK: false, Error: "invalid_signature"})
	default:
		reqID, _ := c.Get("request_id")
		h.log.ErrorContext(ctx, "payment notification failed",
			slog.Any("request_id", reqID),
			slog.Any("err", err),
		)
		c.JSON(http.StatusInternalServerError, OKResponse{OK: false, Error: "processing_failed"})
	}
}

func (h *handlers) ipnAlive(c *gin.Context) {
	if c.Request.Method == http.MethodHead {
		c.Status(http.StatusOK)
		return
	}
	c.JSON(http.StatusOK, OKResponse{OK: true})
}

func providerMessage(err error) string {
	var apiErr *nowpayments.APIError
	switch {
	case errors.As(err, &apiErr) && apiErr.Message != "":
		return apiErr.Message
	case errors.Is(err, nowpayments.ErrMissingInvoiceURL):
		return "missing_invoice_url"
	default:
		return "payment_provider_unavailable"
	}
}

// bindOptionalJSON decodes a JSON body when one is present.
func bindOptionalJSON(c *gin.Context, dst any) error {
	if c.Request.ContentLength == 0 {
		return nil
	}
	if err := c.ShouldBindJSON(dst); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}
