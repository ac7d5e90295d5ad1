package memory

import (
	"context"

	"github.com/google/uuid"

	"github.com/kirinyoku/vastore/internal/domain"
	"github.com/kirinyoku/vastore/internal/repository"
)

type CartRepo struct {
	s *Store
}

func (r *CartRepo) GetByToken(ctx context.Context, token string) (*domain.Cart, error) {
	defer r.s.lock()()

	for _, c := range r.s.st.carts {
		if c.GuestToken == token {
			out := c
			return &out, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *CartRepo) Create(ctx context.Context, token string) (*domain.Cart, error) {
	defer r.s.lock()()

	for _, c := range r.s.st.carts {
		if c.GuestToken == token {
			return nil, repository.ErrConflict
		}
	}

	c := domain.Cart{
		ID:         uuid.New(),
		GuestToken: token,
		Status:     domain.CartActive,
		CreatedAt:  r.s.st.now(),
	}
	r.s.st.carts[c.ID] = c
	return &c, nil
}

func (r *CartRepo) SetStatus(ctx context.Context, cartID uuid.UUID, status domain.CartStatus) error {
	defer r.s.lock()()

	c, ok := r.s.st.carts[cartID]
	if !ok {
		return repository.ErrNotFound
	}
	c.Status = status
	r.s.st.carts[cartID] = c
	return nil
}

func (r *CartRepo) Items(ctx context.Context, cartID uuid.UUID) ([]domain.CartItem, error) {
	defer r.s.lock()()

	return append([]domain.CartItem{}, r.s.st.cartItems[cartID]...), nil
}

func (r *CartRepo) AddItem(ctx context.Context, item domain.CartItem) (*domain.CartItem, bool, error) {
	defer r.s.lock()()

	if _, ok := r.s.st.carts[item.CartID]; !ok {
		return nil, false, repository.ErrNotFound
	}

	for _, it := range r.s.st.cartItems[item.CartID] {
		if it.ListingID == item.ListingID {
			out := it
			return &out, true, nil
		}
	}

	if item.ID == uuid.Nil {
		item.ID = uuid.New()
	}
	item.CreatedAt = r.s.st.now()
	r.s.st.cartItems[item.CartID] = append(r.s.st.cartItems[item.CartID], item)
	return &item, false, nil
}

func (r *CartRepo) RemoveItem(ctx context.Context, cartID, listingID uuid.UUID) error {
	defer r.s.lock()()

	items := r.s.st.cartItems[cartID]
	kept := items[:0:0]
	for _, it := range items {
		if it.ListingID != listingID {
			kept = append(kept, it)
		}
	}
	r.s.st.cartItems[cartID] = kept
	return nil
}

func (r *CartRepo) ClearItems(ctx context.Context, cartID uuid.UUID) error {
	defer r.s.lock()()

	delete(r.s.st.cartItems, cartID)
	return nil
}
