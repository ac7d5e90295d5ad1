package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"github.com/kirinyoku/vastore/internal/brevo"
	"github.com/kirinyoku/vastore/internal/config"
	"github.com/kirinyoku/vastore/internal/notify"
	"github.com/kirinyoku/vastore/internal/nowpayments"
	"github.com/kirinyoku/vastore/internal/postgres"
	redisx "github.com/kirinyoku/vastore/internal/redis"
	"github.com/kirinyoku/vastore/internal/repository"
	"github.com/kirinyoku/vastore/internal/repository/memory"
	postgresrepo "github.com/kirinyoku/vastore/internal/repository/postgres"
	redisrepo "github.com/kirinyoku/vastore/internal/repository/redis"
	"github.com/kirinyoku/vastore/internal/service"
	"github.com/kirinyoku/vastore/internal/service/adminauth"
	"github.com/kirinyoku/vastore/internal/service/reservation"
	"github.com/kirinyoku/vastore/internal/service/webhook"
	httpgin "github.com/kirinyoku/vastore/internal/transport/http/gin"
)

type App struct {
	cfg        *config.Config
	logger     *slog.Logger
	httpServer *http.Server
	pubsub     *redisx.ListingsPubSub
	feed       *httpgin.Feed
	pool       *pgxpool.Pool
	rdb        *redis.Client
}

func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	const op = "app.New"

	var (
		store repository.Store
		pool  *pgxpool.Pool
	)

	switch cfg.Store {
	case config.StoreMemory:
		logger.Warn("using in-memory store; data is lost on restart")
		store = memory.NewStore()
	default:
		p, err := postgres.New(ctx, postgres.Config{DSN: cfg.Postgres.DSN(), Migrate: true})
		if err != nil {
			return nil, fmt.Errorf("%s: failed to initialize postgres: %w", op, err)
		}
		pool = p
		store = postgresrepo.NewStore(pool)
	}

	rdb, err := redisx.New(ctx, redisx.Config{Addr: cfg.Redis.Addr, Password: cfg.Redis.Password, DB: cfg.Redis.DB})
	if err != nil {
		if pool != nil {
			pool.Close()
		}
		return nil, fmt.Errorf("%s: failed to initialize redis: %w", op, err)
	}

	// Redis-backed infrastructure
	cache := redisrepo.NewCache(rdb)
	pubsub := redisx.NewListingsPubSub(rdb)
	limiter := redisrepo.NewSlidingWindowLimiter(rdb, "rl", cfg.Checkout.RateLimitPerMinute, time.Minute)
	lockout := redisrepo.NewLoginLockout(rdb, redisrepo.LockoutConfig{})
	idempotencyStore := redisrepo.NewIdempotencyStore(rdb, 2*time.Hour)

	// Outbound providers
	invoices := nowpayments.NewClient(nowpayments.Config{
		APIKey:     cfg.NowPayments.APIKey,
		InvoiceURL: cfg.NowPayments.InvoiceURL,
	}, nil)
	mailer := brevo.NewClient(brevo.Config{
		APIKey:    cfg.Brevo.APIKey,
		APIURL:    cfg.Brevo.APIURL,
		FromEmail: cfg.Brevo.FromEmail,
		FromName:  cfg.Brevo.FromName,
	}, nil)

	services := service.NewServices(service.Deps{
		Store:    store,
		Cache:    cache,
		PubSub:   pubsub,
		Lockout:  lockout,
		Alerter:  adminauth.NewWebhookAlerter(cfg.Admin.AlertWebhookURL, nil),
		Invoices: invoices,
		Guides:   notify.NewDispatcher(mailer, logger),
	}, service.Config{
		Reservation: reservation.Config{HoldTTL: cfg.Checkout.HoldTTL},
		Webhook: webhook.Config{
			IPNSecret:  cfg.NowPayments.IPNSecret,
			HoldExtend: cfg.Checkout.PaymentExtend,
		},
		AdminAuth: adminauth.Config{
			AdminEmail: cfg.Admin.Email,
			TOTPSecret: cfg.Admin.TOTPSecret,
			JWTSecret:  cfg.Admin.JWTSecret,
		},
	}, logger)

	if cfg.Admin.TOTPSecret == "" {
		logger.Warn("ADMIN_TOTP_SECRET is empty; admin login checks the email only")
	}

	feed := httpgin.NewFeed()

	router := httpgin.NewRouter(httpgin.RouterDeps{
		Services:    services,
		Idempotency: idempotencyStore,
		Limiter:     limiter,
		Feed:        feed,
		Logger:      logger,
	}, httpgin.RouterConfig{
		PublicBaseURL: cfg.Server.PublicBaseURL,
		CORSOrigins:   cfg.Server.CORSOrigins,
	})

	httpServer := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	httpServer.RegisterOnShutdown(feed.Close)

	return &App{
		cfg:        cfg,
		logger:     logger,
		httpServer: httpServer,
		pubsub:     pubsub,
		feed:       feed,
		pool:       pool,
		rdb:        rdb,
	}, nil
}

func (a *App) Run(ctx context.Context) error {
	ctx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	defer a.close()

	g, gCtx := errgroup.WithContext(ctx)

	// Start HTTP server
	g.Go(func() error {
		a.logger.Info("HTTP server listening", "host", a.cfg.Server.Host, "port", a.cfg.Server.Port)
		if err := a.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("failed to start HTTP server: %w", err)
		}
		return nil
	})

	// Relay catalog changes from every instance to local SSE clients
	g.Go(func() error {
		for {
			err := a.pubsub.Subscribe(gCtx, a.feed.Publish)
			if gCtx.Err() != nil {
				return nil
			}
			a.logger.Warn("listings subscription dropped, retrying", slog.Any("err", err))

			select {
			case <-gCtx.Done():
				return nil
			case <-time.After(time.Second):
			}
		}
	})

	// Graceful shutdown
	g.Go(func() error {
		<-gCtx.Done()
		a.logger.Info("shutting down HTTP server")
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return a.httpServer.Shutdown(ctx)
	})

	return g.Wait()
}

func (a *App) close() {
	if a.rdb != nil {
		_ = a.rdb.Close()
	}
	if a.pool != nil {
		a.pool.Close()
	}
}
