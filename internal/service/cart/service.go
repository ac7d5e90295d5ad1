package cart

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/kirinyoku/vastore/internal/domain"
	"github.com/kirinyoku/vastore/internal/repository"
)

var (
	ErrCartNotFound       = errors.New("cart not found")
	ErrListingNotFound    = errors.New("listing not found")
	ErrListingUnavailable = errors.New("listing unavailable")
	ErrInvalidListingID   = errors.New("invalid listing id")
)

type Service struct {
	store repository.Store
	now   func() time.Time
}

func New(store repository.Store) *Service {
	return &Service{store: store, now: time.Now}
}

// Ensure returns the cart behind token, creating one with a fresh token when
// token is empty or unknown.
func (s *Service) Ensure(ctx context.Context, token string) (*domain.Cart, error) {
	const op = "service.cart.Ensure"

	token = strings.TrimSpace(token)
	if token != "" {
		c, err := s.store.Carts().GetByToken(ctx, token)
		if err == nil {
			return c, nil
		}
		if !errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("%s:%w", op, err)
		}
	}

	c, err := s.store.Carts().Create(ctx, uuid.NewString())
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	return c, nil
}

// Get returns the cart and its items, or nil when token names no cart.
func (s *Service) Get(ctx context.Context, token string) (*domain.CartWithItems, error) {
	const op = "service.cart.Get"

	if strings.TrimSpace(token) == "" {
		return nil, nil
	}

	c, err := s.store.Carts().GetByToken(ctx, token)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	items, err := s.store.Carts().Items(ctx, c.ID)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	return &domain.CartWithItems{Cart: *c, Items: items}, nil
}

type AddItemResult struct {
	Cart       *domain.Cart
	Item       *domain.CartItem
	Duplicated bool
}

// AddItem puts a listing into the cart at its current purchase price. Name
// and headline fall back to the listing's own values.
//
// Returns:
//   - error: cart.ErrListingNotFound if the listing does not exist.
//   - error: cart.ErrListingUnavailable if it is sold, inactive or held by
//     an order.
func (s *Service) AddItem(ctx context.Context, token string, listingID uuid.UUID, name, headline string) (*AddItemResult, error) {
	const op = "service.cart.AddItem"

	if listingID == uuid.Nil {
		return nil, fmt.Errorf("%s:%w", op, ErrInvalidListingID)
	}

	c, err := s.Ensure(ctx, token)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	l, err := s.store.Listings().Get(ctx, listingID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("%s:%w", op, ErrListingNotFound)
		}
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	st, err := l.State()
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}
	now := s.now()
	if !l.IsActive || st.Kind() == domain.ListingSold ||
		(st.Kind() == domain.ListingReserved && st.Until().After(now)) {
		return nil, fmt.Errorf("%s:%w", op, ErrListingUnavailable)
	}

	if strings.TrimSpace(name) == "" {
		name = l.Name
	}
	if strings.TrimSpace(headline) == "" {
		headline = l.Headline
	}

	item, dup, err := s.store.Carts().AddItem(ctx, domain.CartItem{
		CartID:    c.ID,
		ListingID: l.ID,
		Name:      name,
		Headline:  headline,
		Price:     domain.PriceOrDefault(l.PurchasePrice),
	})
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	if c.Status != domain.CartActive {
		if err := s.store.Carts().SetStatus(ctx, c.ID, domain.CartActive); err != nil {
			return nil, fmt.Errorf("%s:%w", op, err)
		}
		c.Status = domain.CartActive
	}

	return &AddItemResult{Cart: c, Item: item, Duplicated: dup}, nil
}

func (s *Service) RemoveItem(ctx context.Context, token string, listingID uuid.UUID) error {
	const op = "service.cart.RemoveItem"

	c, err := s.store.Carts().GetByToken(ctx, token)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return fmt.Errorf("%s:%w", op, ErrCartNotFound)
		}
		return fmt.Errorf("%s:%w", op, err)
	}

	if err := s.store.Carts().RemoveItem(ctx, c.ID, listingID); err != nil {
		return fmt.Errorf("%s:%w", op, err)
	}

	return nil
}

// Clear removes every item and marks the cart cleared. The token stays valid.
func (s *Service) Clear(ctx context.Context, token string) error {
	const op = "service.cart.Clear"

	c, err := s.store.Carts().GetByToken(ctx, token)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return fmt.Errorf("%s:%w", op, ErrCartNotFound)
		}
		return fmt.Errorf("%s:%w", op, err)
	}

	if err := ClearCart(ctx, s.store, c.ID); err != nil {
		return fmt.Errorf("%s:%w", op, err)
	}

	return nil
}

// ClearCart empties a cart by id inside one transaction.
func ClearCart(ctx context.Context, store repository.Store, cartID uuid.UUID) error {
	return store.RunTx(ctx, func(ctx context.Context, tx repository.Store) error {
		if err := tx.Carts().ClearItems(ctx, cartID); err != nil {
			return err
		}
		return tx.Carts().SetStatus(ctx, cartID, domain.CartCleared)
	})
}
