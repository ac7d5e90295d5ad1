package httpgin

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	redisrepo "github.com/kirinyoku/vastore/internal/repository/redis"
	"github.com/kirinyoku/vastore/internal/service"
	"github.com/kirinyoku/vastore/internal/service/admin"
	"github.com/kirinyoku/vastore/internal/service/adminauth"
	"github.com/kirinyoku/vastore/internal/service/cart"
	"github.com/kirinyoku/vastore/internal/service/catalog"
	"github.com/kirinyoku/vastore/internal/service/checkout"
	"github.com/kirinyoku/vastore/internal/service/discount"
	"github.com/kirinyoku/vastore/internal/service/orders"
	"github.com/kirinyoku/vastore/internal/service/reservation"
)

type RouterConfig struct {
	// PublicBaseURL overrides the origin derived from request headers for
	// payment callbacks.
	PublicBaseURL string
	CORSOrigins   []string
}

type RouterDeps struct {
	Services    *service.Services
	Idempotency *redisrepo.IdempotencyStore
	Limiter     RateLimiter
	Feed        *Feed
	Logger      *slog.Logger
}

type handlers struct {
	svcs *service.Services
	idem *redisrepo.IdempotencyStore
	log  *slog.Logger
	cfg  RouterConfig
}

func NewRouter(deps RouterDeps, cfg RouterConfig, middlewares ...gin.HandlerFunc) *gin.Engine {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	r := gin.New()

	r.Use(gin.Recovery(), RequestIDMiddleware(), LoggingMiddleware(logger), MetricsMiddleware(), CORS(cfg.CORSOrigins))
	for _, m := range middlewares {
		if m != nil {
			r.Use(m)
		}
	}

	h := &handlers{svcs: deps.Services, idem: deps.Idempotency, log: logger, cfg: cfg}

	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := r.Group("/api")

	// Catalog
	api.GET("/listings", h.listListings)
	api.GET("/listings/stream", handleListingsStream(deps.Feed))
	api.GET("/listings/:id", h.getListing)

	// Cart
	cartAPI := api.Group("/cart", NoStore())
	{
		cartAPI.GET("", h.getCart)
		cartAPI.POST("", h.ensureCart)
		cartAPI.POST("/items", h.addCartItem)
		cartAPI.DELETE("/items", h.removeCartItem)
		cartAPI.POST("/clear", h.clearCart)
	}

	api.GET("/discount-codes/validate", NoStore(), h.validateDiscount)

	// Checkout
	co := api.Group("/checkout", NoStore())
	{
		limited := RateLimit(deps.Limiter, logger)
		co.POST("/reserve", limited, h.reserve)
		co.POST("/nowpayments/create", limited, h.createInvoice)
		co.POST("/nowpayments/ipn", h.ipn)
		co.GET("/nowpayments/ipn", h.ipnAlive)
		co.HEAD("/nowpayments/ipn", h.ipnAlive)
	}

	// Admin
	adm := api.Group("/admin", NoStore())
	{
		adm.POST("/login", RateLimit(deps.Limiter, logger), h.adminLogin)

		authed := adm.Group("", AdminAuth(deps.Services.AdminAuth.Verify))
		authed.GET("/orders", h.adminListOrders)
		authed.GET("/orders/:id", h.adminGetOrder)
		authed.POST("/listings", h.adminCreateListing)
		authed.PUT("/listings/:id", h.adminUpdateListing)
		authed.GET("/discount-codes", h.adminListDiscounts)
		authed.POST("/discount-codes", h.adminCreateDiscount)
		authed.DELETE("/discount-codes", h.adminDeleteDiscount)
		authed.DELETE("/discount-codes/:code", h.adminDeleteDiscount)
	}

	return r
}

// --- Helpers ---

func parseIntDefault(s string, def int) int {
	if s == "" {
		return def
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return v
}

func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, ErrorResponse{Error: msg})
}

// publicBaseURL is the origin the payment processor should call back. A
// configured PUBLIC_BASE_URL wins over request headers.
func (h *handlers) publicBaseURL(c *gin.Context) string {
	if h.cfg.PublicBaseURL != "" {
		return strings.TrimRight(h.cfg.PublicBaseURL, "/")
	}

	host := strings.TrimSpace(strings.Split(c.GetHeader("X-Forwarded-Host"), ",")[0])
	if host == "" {
		host = c.Request.Host
	}

	proto := strings.TrimSpace(strings.Split(c.GetHeader("X-Forwarded-Proto"), ",")[0])
	if proto == "" {
		proto = "https"
	}

	return proto + "://" + host
}

func respondErr(c *gin.Context, err error) {
	if err == nil {
		c.Status(http.StatusNoContent)
		return
	}

	var (
		unavailable *reservation.UnavailableError
		invalid     *admin.ValidationError
	)

	switch {
	// reservation
	case errors.As(err, &unavailable):
		ids := make([]string, 0, len(unavailable.ListingIDs))
		for _, id := range unavailable.ListingIDs {
			ids = append(ids, id.String())
		}
		c.JSON(http.StatusConflict, ErrorResponse{Error: "items_unavailable", ListingIDs: ids})
	case errors.Is(err, reservation.ErrItemsUnavailable):
		c.JSON(http.StatusConflict, ErrorResponse{Error: "items_unavailable"})
	case errors.Is(err, reservation.ErrCartNotFound), errors.Is(err, cart.ErrCartNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "cart_not_found"})
	case errors.Is(err, reservation.ErrCartEmpty):
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "cart_empty"})
	case errors.Is(err, reservation.ErrInvalidDiscountCode), errors.Is(err, discount.ErrInvalidCode):
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid_code"})

	// checkout
	case errors.Is(err, checkout.ErrPaymentProvider):
		c.JSON(http.StatusBadGateway, ErrorResponse{Error: providerMessage(err)})

	// cart and catalog
	case errors.Is(err, cart.ErrListingNotFound),
		errors.Is(err, catalog.ErrListingNotFound),
		errors.Is(err, admin.ErrListingNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "listing_not_found"})
	case errors.Is(err, cart.ErrListingUnavailable):
		c.JSON(http.StatusConflict, ErrorResponse{Error: "listing_unavailable"})
	case errors.Is(err, cart.ErrInvalidListingID):
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid listing_id"})

	// admin
	case errors.Is(err, discount.ErrCodeExists):
		c.JSON(http.StatusConflict, ErrorResponse{Error: "code_exists"})
	case errors.Is(err, discount.ErrNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "code_not_found"})
	case errors.As(err, &invalid):
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: invalid.Error()})
	case errors.Is(err, admin.ErrListingConflict):
		c.JSON(http.StatusConflict, ErrorResponse{Error: "listing_exists"})
	case errors.Is(err, orders.ErrOrderNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "order_not_found"})
	case errors.Is(err, adminauth.ErrInvalidCredentials):
		c.JSON(http.StatusBadRequest, OKResponse{OK: false, Error: "Invalid credentials"})
	case errors.Is(err, adminauth.ErrNotConfigured):
		c.JSON(http.StatusInternalServerError, OKResponse{OK: false, Error: "Server not configured"})

	default:
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal_error"})
	}
}
