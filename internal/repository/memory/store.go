// Package memory is an in-process implementation of the repository
// interfaces. It honours the same conditional-write rules as the Postgres
// store and is used for local runs and service tests.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/kirinyoku/vastore/internal/domain"
	"github.com/kirinyoku/vastore/internal/repository"
)

type state struct {
	mu  sync.Mutex
	now func() time.Time

	listings  map[uuid.UUID]domain.Listing
	carts     map[uuid.UUID]domain.Cart
	cartItems map[uuid.UUID][]domain.CartItem
	orders    map[uuid.UUID]domain.Order
	discounts map[string]domain.DiscountCode
}

// Store implements repository.Store. A Store returned inside RunTx already
// holds the lock and runs its operations without re-locking.
type Store struct {
	st     *state
	locked bool
}

var _ repository.Store = (*Store)(nil)

type Option func(*state)

// WithClock overrides the time source used for hold expiry.
func WithClock(now func() time.Time) Option {
	return func(s *state) { s.now = now }
}

func NewStore(opts ...Option) *Store {
	st := &state{
		now:       time.Now,
		listings:  make(map[uuid.UUID]domain.Listing),
		carts:     make(map[uuid.UUID]domain.Cart),
		cartItems: make(map[uuid.UUID][]domain.CartItem),
		orders:    make(map[uuid.UUID]domain.Order),
		discounts: make(map[string]domain.DiscountCode),
	}
	for _, opt := range opts {
		opt(st)
	}
	return &Store{st: st}
}

func (s *Store) lock() func() {
	if s.locked {
		return func() {}
	}
	s.st.mu.Lock()
	return s.st.mu.Unlock
}

func (s *Store) Listings() repository.ListingRepository   { return &ListingRepo{s} }
func (s *Store) Carts() repository.CartRepository         { return &CartRepo{s} }
func (s *Store) Orders() repository.OrderRepository       { return &OrderRepo{s} }
func (s *Store) Discounts() repository.DiscountRepository { return &DiscountRepo{s} }

// RunTx serialises fn against every other operation and restores the prior
// state when fn fails.
func (s *Store) RunTx(ctx context.Context, fn func(ctx context.Context, tx repository.Store) error) error {
	if s.locked {
		return fn(ctx, s)
	}

	s.st.mu.Lock()
	defer s.st.mu.Unlock()

	snap := s.st.snapshot()
	if err := fn(ctx, &Store{st: s.st, locked: true}); err != nil {
		s.st.restore(snap)
		return err
	}

	return nil
}

type snapshot struct {
	listings  map[uuid.UUID]domain.Listing
	carts     map[uuid.UUID]domain.Cart
	cartItems map[uuid.UUID][]domain.CartItem
	orders    map[uuid.UUID]domain.Order
	discounts map[string]domain.DiscountCode
}

func (st *state) snapshot() snapshot {
	snap := snapshot{
		listings:  make(map[uuid.UUID]domain.Listing, len(st.listings)),
		carts:     make(map[uuid.UUID]domain.Cart, len(st.carts)),
		cartItems: make(map[uuid.UUID][]domain.CartItem, len(st.cartItems)),
		orders:    make(map[uuid.UUID]domain.Order, len(st.orders)),
		discounts: make(map[string]domain.DiscountCode, len(st.discounts)),
	}
	for k, v := range st.listings {
		snap.listings[k] = cloneListing(v)
	}
	for k, v := range st.carts {
		snap.carts[k] = v
	}
	for k, v := range st.cartItems {
		snap.cartItems[k] = append([]domain.CartItem(nil), v...)
	}
	for k, v := range st.orders {
		snap.orders[k] = cloneOrder(v)
	}
	for k, v := range st.discounts {
		snap.discounts[k] = v
	}
	return snap
}

func (st *state) restore(snap snapshot) {
	st.listings = snap.listings
	st.carts = snap.carts
	st.cartItems = snap.cartItems
	st.orders = snap.orders
	st.discounts = snap.discounts
}

func ptr[T any](v T) *T { return &v }

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

func cloneListing(l domain.Listing) domain.Listing {
	l.Categories = append([]string(nil), l.Categories...)
	l.Languages = append([]string(nil), l.Languages...)
	l.Skills = append([]string(nil), l.Skills...)
	l.ContactEmail = clonePtr(l.ContactEmail)
	l.ContactTelegram = clonePtr(l.ContactTelegram)
	l.ContactPhone = clonePtr(l.ContactPhone)
	l.ReservedByOrder = clonePtr(l.ReservedByOrder)
	l.ReservedUntil = clonePtr(l.ReservedUntil)
	l.SoldByOrder = clonePtr(l.SoldByOrder)
	l.SoldAt = clonePtr(l.SoldAt)
	return l
}

func cloneOrder(o domain.Order) domain.Order {
	o.Items = append([]domain.OrderItem(nil), o.Items...)
	o.IPNPayload = append([]byte(nil), o.IPNPayload...)
	o.DiscountCode = clonePtr(o.DiscountCode)
	o.PaidAt = clonePtr(o.PaidAt)
	o.NowInvoiceID = clonePtr(o.NowInvoiceID)
	o.NowInvoiceURL = clonePtr(o.NowInvoiceURL)
	o.IPNStatus = clonePtr(o.IPNStatus)
	o.GuideEmailSentAt = clonePtr(o.GuideEmailSentAt)
	o.GuideEmailMessageID = clonePtr(o.GuideEmailMessageID)
	o.GuideEmailError = clonePtr(o.GuideEmailError)
	return o
}
