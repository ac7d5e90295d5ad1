package service

import (
	"log/slog"

	redisx "github.com/kirinyoku/vastore/internal/redis"
	"github.com/kirinyoku/vastore/internal/repository"
	redisrepo "github.com/kirinyoku/vastore/internal/repository/redis"
	"github.com/kirinyoku/vastore/internal/service/admin"
	"github.com/kirinyoku/vastore/internal/service/adminauth"
	"github.com/kirinyoku/vastore/internal/service/cart"
	"github.com/kirinyoku/vastore/internal/service/catalog"
	"github.com/kirinyoku/vastore/internal/service/checkout"
	"github.com/kirinyoku/vastore/internal/service/discount"
	"github.com/kirinyoku/vastore/internal/service/orders"
	"github.com/kirinyoku/vastore/internal/service/reservation"
	"github.com/kirinyoku/vastore/internal/service/webhook"
)

type Services struct {
	Catalog     *catalog.Service
	Cart        *cart.Service
	Discount    *discount.Service
	Reservation *reservation.Service
	Checkout    *checkout.Service
	Webhook     *webhook.Service
	Orders      *orders.Service
	Admin       *admin.Service
	AdminAuth   *adminauth.Service
}

type Config struct {
	Catalog     catalog.Config
	Reservation reservation.Config
	Webhook     webhook.Config
	AdminAuth   adminauth.Config
}

// Deps are the outer collaborators the services talk to. Cache, PubSub and
// Lockout may be nil when Redis is not available.
type Deps struct {
	Store    repository.Store
	Cache    *redisrepo.Cache
	PubSub   *redisx.ListingsPubSub
	Lockout  adminauth.Lockout
	Alerter  adminauth.Alerter
	Invoices checkout.InvoiceCreator
	Guides   webhook.GuideSender
}

func NewServices(deps Deps, cfg Config, log *slog.Logger) *Services {
	cat := catalog.New(deps.Store, deps.Cache, deps.PubSub, log, cfg.Catalog)
	res := reservation.New(deps.Store, cat, log, cfg.Reservation)

	return &Services{
		Catalog:     cat,
		Cart:        cart.New(deps.Store),
		Discount:    discount.New(deps.Store),
		Reservation: res,
		Checkout:    checkout.New(res, deps.Store, deps.Invoices, log),
		Webhook:     webhook.New(deps.Store, deps.Guides, cat, log, cfg.Webhook),
		Orders:      orders.New(deps.Store),
		Admin:       admin.New(deps.Store, cat),
		AdminAuth:   adminauth.New(cfg.AdminAuth, deps.Lockout, deps.Alerter, log),
	}
}
