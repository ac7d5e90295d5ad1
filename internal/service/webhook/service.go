// Package webhook reconciles orders and listings with the payment
// processor's notifications.
package webhook

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/kirinyoku/vastore/internal/domain"
	"github.com/kirinyoku/vastore/internal/metrics"
	"github.com/kirinyoku/vastore/internal/nowpayments"
	"github.com/kirinyoku/vastore/internal/repository"
	"github.com/kirinyoku/vastore/internal/service/cart"
	"github.com/kirinyoku/vastore/internal/uow"
)

// GuideSender delivers the welcome guide for a paid order.
type GuideSender interface {
	Send(ctx context.Context, order domain.Order, listings []domain.Listing) (string, error)
}

type ChangeNotifier interface {
	ListingsChanged(ctx context.Context, reason string, ids []uuid.UUID)
}

type Config struct {
	IPNSecret  string
	HoldExtend time.Duration
}

type Service struct {
	store    repository.Store
	uow      *uow.UoW
	sender   GuideSender
	notifier ChangeNotifier
	log      *slog.Logger
	cfg      Config
	now      func() time.Time
}

type Option func(*Service)

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func New(
	store repository.Store,
	sender GuideSender,
	notifier ChangeNotifier,
	log *slog.Logger,
	cfg Config,
	opts ...Option,
) *Service {
	if cfg.HoldExtend <= 0 {
		cfg.HoldExtend = 20 * time.Minute
	}
	if log == nil {
		log = slog.Default()
	}

	s := &Service{
		store:    store,
		uow:      uow.NewUoW(store),
		sender:   sender,
		notifier: notifier,
		log:      log,
		cfg:      cfg,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Result describes what a delivery was recognised as.
type Result struct {
	OrderID uuid.UUID
	Status  string
	Class   domain.PaymentClass
	// Matched is false when the delivery named no known order.
	Matched bool
}

// HandleIPN authenticates and applies one payment notification.
//
// Parameters:
//   - ctx: request-scoped context.
//   - raw: the request body exactly as received.
//   - signature: the x-nowpayments-sig header value.
//
// Returns:
//   - *Result: what the delivery was recognised as. Deliveries that name no
//     known order are acknowledged with Matched=false.
//   - error: nowpayments.ErrInvalidSignature if the signature does not match;
//     nothing is written in that case.
//   - error: any storage error while applying the state transition. Guide
//     email failures are logged and never returned.
func (s *Service) HandleIPN(ctx context.Context, raw []byte, signature string) (*Result, error) {
	const op = "service.webhook.HandleIPN"

	if err := nowpayments.VerifySignature(raw, signature, s.cfg.IPNSecret); err != nil {
		metrics.IPNRejectedTotal.WithLabelValues("signature").Inc()
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	p := nowpayments.ParsePayload(raw)
	status := domain.NormalizePaymentStatus(p.Status())
	class := domain.ClassifyPaymentStatus(status)
	res := &Result{Status: status, Class: class}

	orderID, err := uuid.Parse(p.OrderID())
	if err != nil {
		metrics.IPNRejectedTotal.WithLabelValues("no_order").Inc()
		s.log.WarnContext(ctx, "payment notification without a usable order id",
			slog.String("order_ref", p.OrderID()),
			slog.String("status", status),
		)
		return res, nil
	}
	res.OrderID = orderID

	log := s.log.With(slog.String("order_id", orderID.String()), slog.String("status", status))

	if err := s.store.Orders().RecordIPN(ctx, orderID, status, p.JSON()); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			metrics.IPNRejectedTotal.WithLabelValues("unknown_order").Inc()
			log.WarnContext(ctx, "payment notification for unknown order")
			return res, nil
		}
		return nil, fmt.Errorf("%s:%w", op, err)
	}
	res.Matched = true
	metrics.IPNTotal.WithLabelValues(class.String()).Inc()

	switch class {
	case domain.PaymentPaid:
		err = s.settle(ctx, log, orderID)
	case domain.PaymentInFlight:
		err = s.extend(ctx, log, orderID)
	case domain.PaymentFailed:
		err = s.fail(ctx, log, orderID)
	default:
		log.InfoContext(ctx, "payment notification recorded")
	}
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	return res, nil
}

// settle marks the order paid and sells its listings in one transaction,
// then clears the cart and sends the guide.
func (s *Service) settle(ctx context.Context, log *slog.Logger, orderID uuid.UUID) error {
	now := s.now()

	var order *domain.Order
	err := s.uow.Do(ctx, func(ctx context.Context, tx repository.Store, after func(uow.AfterCommit)) error {
		order = nil

		if _, err := tx.Orders().MarkPaid(ctx, orderID, now); err != nil {
			return err
		}

		o, err := tx.Orders().Get(ctx, orderID)
		if err != nil {
			return err
		}
		if o.Status != domain.OrderPaid {
			return nil
		}
		order = o

		ids := o.ListingIDs()
		if len(ids) == 0 {
			return nil
		}

		sold, err := tx.Listings().Sell(ctx, o.ID, ids)
		if err != nil {
			return err
		}

		listings, err := tx.Listings().GetMany(ctx, ids)
		if err != nil {
			return err
		}
		var lost []string
		for _, l := range listings {
			if l.SoldByOrder != nil && *l.SoldByOrder != o.ID {
				lost = append(lost, l.ID.String())
			}
		}

		after(func(ctx context.Context) {
			if sold > 0 {
				metrics.ListingsSoldTotal.Add(float64(sold))
				if s.notifier != nil {
					s.notifier.ListingsChanged(ctx, "sold", ids)
				}
			}
			if len(lost) > 0 {
				metrics.OversellConflictsTotal.Inc()
				log.ErrorContext(ctx, "paid order includes listings sold to another order",
					slog.Any("listing_ids", lost),
				)
			}
		})

		return nil
	})
	if err != nil {
		return err
	}

	if order == nil {
		log.WarnContext(ctx, "paid notification for an order that is no longer pending")
		return nil
	}

	log.InfoContext(ctx, "order paid", slog.Int("items", order.ItemCount))

	if err := cart.ClearCart(ctx, s.store, order.CartID); err != nil {
		log.WarnContext(ctx, "clear cart after payment", slog.Any("err", err))
	}

	s.sendGuide(ctx, log, orderID)

	return nil
}

// sendGuide delivers the guide at most once per order. Whoever wins the
// claim sends; a failed send gives the claim back so a later delivery can
// retry.
func (s *Service) sendGuide(ctx context.Context, log *slog.Logger, orderID uuid.UUID) {
	orders := s.store.Orders()

	order, err := orders.ClaimGuideEmail(ctx, orderID)
	if err != nil {
		if !errors.Is(err, repository.ErrNotClaimed) {
			log.ErrorContext(ctx, "claim guide email", slog.Any("err", err))
		}
		return
	}

	if order.Email == "" {
		metrics.GuideEmailsTotal.WithLabelValues("no_email").Inc()
		log.WarnContext(ctx, "paid order has no email, guide not sent")
		return
	}

	listings, err := s.purchased(ctx, order)
	if err == nil && len(listings) == 0 {
		metrics.GuideEmailsTotal.WithLabelValues("nothing_sold").Inc()
		log.WarnContext(ctx, "paid order owns none of its listings, guide not sent")
		return
	}
	if err == nil {
		var msgID string
		msgID, err = s.sender.Send(ctx, *order, listings)
		if err == nil {
			if err := orders.RecordGuideEmailSent(ctx, orderID, msgID); err != nil {
				log.ErrorContext(ctx, "record guide email", slog.Any("err", err))
			}
			metrics.GuideEmailsTotal.WithLabelValues("sent").Inc()
			return
		}
	}

	metrics.GuideEmailsTotal.WithLabelValues("failed").Inc()
	log.ErrorContext(ctx, "guide email failed", slog.Any("err", err))

	if rerr := orders.RevertGuideEmailClaim(ctx, orderID, err.Error()); rerr != nil {
		log.ErrorContext(ctx, "revert guide email claim", slog.Any("err", rerr))
	}
}

// purchased returns the listings sold to the order, in snapshot order.
// Listings that went to another order are left out so their contacts are
// never mailed to the losing buyer.
func (s *Service) purchased(ctx context.Context, order *domain.Order) ([]domain.Listing, error) {
	ids := order.ListingIDs()
	if len(ids) == 0 {
		return nil, nil
	}

	listings, err := s.store.Listings().GetMany(ctx, ids)
	if err != nil {
		return nil, err
	}

	byID := make(map[uuid.UUID]domain.Listing, len(listings))
	for _, l := range listings {
		byID[l.ID] = l
	}

	out := make([]domain.Listing, 0, len(ids))
	for _, id := range ids {
		l, ok := byID[id]
		if !ok || l.SoldByOrder == nil || *l.SoldByOrder != order.ID {
			continue
		}
		out = append(out, l)
	}

	return out, nil
}

func (s *Service) extend(ctx context.Context, log *slog.Logger, orderID uuid.UUID) error {
	order, err := s.store.Orders().Get(ctx, orderID)
	if err != nil {
		return err
	}
	if order.Status != domain.OrderPending {
		return nil
	}

	ids := order.ListingIDs()
	if len(ids) == 0 {
		return nil
	}

	n, err := s.store.Listings().ExtendHold(ctx, orderID, ids, s.now().Add(s.cfg.HoldExtend))
	if err != nil {
		return err
	}

	log.InfoContext(ctx, "hold extended", slog.Int64("listings", n))

	return nil
}

func (s *Service) fail(ctx context.Context, log *slog.Logger, orderID uuid.UUID) error {
	var released int64
	err := s.uow.Do(ctx, func(ctx context.Context, tx repository.Store, after func(uow.AfterCommit)) error {
		if _, err := tx.Orders().MarkFailed(ctx, orderID); err != nil {
			return err
		}

		n, err := tx.Listings().ReleaseHolds(ctx, orderID)
		if err != nil {
			return err
		}
		released = n

		if n > 0 {
			after(func(ctx context.Context) {
				if s.notifier == nil {
					return
				}
				o, err := s.store.Orders().Get(ctx, orderID)
				if err != nil {
					return
				}
				s.notifier.ListingsChanged(ctx, "released", o.ListingIDs())
			})
		}

		return nil
	})
	if err != nil {
		return err
	}

	log.InfoContext(ctx, "order failed", slog.Int64("released", released))

	return nil
}
