package reservation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/kirinyoku/vastore/internal/domain"
	"github.com/kirinyoku/vastore/internal/metrics"
	"github.com/kirinyoku/vastore/internal/repository"
	"github.com/kirinyoku/vastore/internal/service/discount"
	"github.com/kirinyoku/vastore/internal/uow"
)

// ChangeNotifier is told about listings whose availability changed.
type ChangeNotifier interface {
	ListingsChanged(ctx context.Context, reason string, ids []uuid.UUID)
}

type Config struct {
	HoldTTL time.Duration
}

type Service struct {
	store    repository.Store
	uow      *uow.UoW
	notifier ChangeNotifier
	log      *slog.Logger
	cfg      Config
	now      func() time.Time
}

type Option func(*Service)

// WithClock overrides the time source used for hold expiry.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func New(
	store repository.Store,
	notifier ChangeNotifier,
	log *slog.Logger,
	cfg Config,
	opts ...Option,
) *Service {
	if cfg.HoldTTL <= 0 {
		cfg.HoldTTL = 10 * time.Minute
	}

	if log == nil {
		log = slog.Default()
	}

	s := &Service{
		store:    store,
		uow:      uow.NewUoW(store),
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

type ReserveInput struct {
	CartToken    string
	DiscountCode string
	Contact      domain.Contact
}

// Reserve turns the cart behind in.CartToken into a pending order and holds
// its listings for the configured window.
//
// Parameters:
//   - ctx: request-scoped context.
//   - in: cart token, optional discount code and buyer contact.
//
// Returns:
//   - *domain.Order: the pending order. Repeated calls for the same cart
//     return the same order until it is invoiced.
//   - error: reservation.ErrCartNotFound if the token names no cart.
//   - error: reservation.ErrCartEmpty if the cart has no items.
//   - error: reservation.ErrInvalidDiscountCode if the code is malformed.
//   - error: reservation.ErrItemsUnavailable if any listing is missing, sold,
//     inactive or held by another order. The pending order is kept.
func (s *Service) Reserve(ctx context.Context, in ReserveInput) (*domain.Order, error) {
	const op = "service.reservation.Reserve"

	started := time.Now()
	defer func() { metrics.ReserveLatency.Observe(time.Since(started).Seconds()) }()

	draft, err := s.buildDraft(ctx, in)
	if err != nil {
		metrics.ReservationsTotal.WithLabelValues(outcome(err)).Inc()
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	order, err := s.upsertOrder(ctx, draft)
	if err != nil {
		metrics.ReservationsTotal.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	if err := s.hold(ctx, order); err != nil {
		metrics.ReservationsTotal.WithLabelValues(outcome(err)).Inc()
		s.log.InfoContext(ctx, "reservation rejected",
			slog.String("order_id", order.ID.String()),
			slog.Any("err", err),
		)
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	metrics.ReservationsTotal.WithLabelValues("ok").Inc()
	s.log.InfoContext(ctx, "listings reserved",
		slog.String("order_id", order.ID.String()),
		slog.Int("items", order.ItemCount),
		slog.String("total", order.Total.StringFixed(2)),
	)

	return order, nil
}

func (s *Service) buildDraft(ctx context.Context, in ReserveInput) (domain.OrderDraft, error) {
	c, err := s.store.Carts().GetByToken(ctx, strings.TrimSpace(in.CartToken))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return domain.OrderDraft{}, ErrCartNotFound
		}
		return domain.OrderDraft{}, err
	}

	items, err := s.store.Carts().Items(ctx, c.ID)
	if err != nil {
		return domain.OrderDraft{}, err
	}
	if len(items) == 0 {
		return domain.OrderDraft{}, ErrCartEmpty
	}

	var (
		code *string
		pct  = decimal.Zero
	)
	if strings.TrimSpace(in.DiscountCode) != "" {
		d, err := discount.Lookup(ctx, s.store.Discounts(), in.DiscountCode)
		if err != nil {
			if errors.Is(err, discount.ErrInvalidCode) {
				return domain.OrderDraft{}, ErrInvalidDiscountCode
			}
			return domain.OrderDraft{}, err
		}
		// A well-formed but unknown code is checked out at full price.
		if d != nil {
			code = &d.Code
			pct = d.DiscountPct
		}
	}

	seen := make(map[uuid.UUID]struct{}, len(items))
	snapshot := make([]domain.OrderItem, 0, len(items))
	for _, it := range items {
		if _, dup := seen[it.ListingID]; dup {
			continue
		}
		seen[it.ListingID] = struct{}{}
		snapshot = append(snapshot, domain.OrderItem{
			ListingID: it.ListingID,
			Name:      it.Name,
			Price:     it.Price,
		})
	}

	totals := domain.ComputeTotals(snapshot, pct)
	if code == nil {
		totals.DiscountPct = decimal.Zero
	}

	return domain.OrderDraft{
		CartID:         c.ID,
		Contact:        in.Contact,
		Items:          snapshot,
		Total:          totals.Total,
		DiscountCode:   code,
		DiscountPct:    totals.DiscountPct,
		DiscountAmount: totals.DiscountAmount,
	}, nil
}

// upsertOrder refreshes the cart's reusable pending order or creates one.
// Each statement commits on its own so a later reservation failure leaves
// the order pending. Losing a create race to a concurrent request for the
// same cart is retried, which then finds the winner's order.
func (s *Service) upsertOrder(ctx context.Context, d domain.OrderDraft) (*domain.Order, error) {
	var err error
	for attempt := 0; attempt < 3; attempt++ {
		var order *domain.Order
		order, err = s.tryUpsertOrder(ctx, d)
		if err == nil {
			return order, nil
		}
		if !errors.Is(err, repository.ErrConflict) {
			return nil, err
		}
	}

	return nil, err
}

func (s *Service) tryUpsertOrder(ctx context.Context, d domain.OrderDraft) (*domain.Order, error) {
	orders := s.store.Orders()

	existing, err := orders.FindReusablePending(ctx, d.CartID)
	switch {
	case err == nil:
		order, err := orders.UpdateDraft(ctx, existing.ID, d)
		if err == nil {
			return order, nil
		}
		// Invoiced in the meantime; fall through to a fresh order.
		if !errors.Is(err, repository.ErrNotFound) {
			return nil, err
		}
	case !errors.Is(err, repository.ErrNotFound):
		return nil, err
	}

	return orders.Create(ctx, d)
}

func (s *Service) hold(ctx context.Context, order *domain.Order) error {
	ids := order.ListingIDs()
	now := s.now()

	return s.uow.Do(ctx, func(ctx context.Context, tx repository.Store, after func(uow.AfterCommit)) error {
		listings, err := tx.Listings().GetMany(ctx, ids)
		if err != nil {
			return err
		}

		byID := make(map[uuid.UUID]domain.Listing, len(listings))
		for _, l := range listings {
			byID[l.ID] = l
		}

		var (
			blocked []uuid.UUID
			allHeld = true
		)
		for _, id := range ids {
			l, ok := byID[id]
			if !ok {
				blocked = append(blocked, id)
				continue
			}

			st, err := l.State()
			if err != nil {
				s.log.WarnContext(ctx, "listing has inconsistent state",
					slog.String("listing_id", id.String()),
					slog.Any("err", err),
				)
				blocked = append(blocked, id)
				continue
			}

			heldByUs := st.HeldBy(order.ID, now)
			if !st.AvailableFor(order.ID, now) || (!l.IsActive && !heldByUs) {
				blocked = append(blocked, id)
				continue
			}
			if !heldByUs {
				allHeld = false
			}
		}

		if len(blocked) > 0 {
			return &UnavailableError{ListingIDs: blocked}
		}

		if allHeld {
			return nil
		}

		if err := tx.Listings().Reserve(ctx, order.ID, ids, now.Add(s.cfg.HoldTTL)); err != nil {
			if errors.Is(err, repository.ErrListingsUnavailable) {
				return ErrItemsUnavailable
			}
			return err
		}

		after(func(ctx context.Context) {
			if s.notifier != nil {
				s.notifier.ListingsChanged(ctx, "reserved", ids)
			}
		})

		return nil
	})
}

func outcome(err error) string {
	switch {
	case errors.Is(err, ErrItemsUnavailable):
		return "unavailable"
	case errors.Is(err, ErrCartNotFound), errors.Is(err, ErrCartEmpty), errors.Is(err, ErrInvalidDiscountCode):
		return "rejected"
	default:
		return "error"
	}
}
