package memory

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/kirinyoku/vastore/internal/domain"
	"github.com/kirinyoku/vastore/internal/repository"
)

type ListingRepo struct {
	s *Store
}

func (r *ListingRepo) Get(ctx context.Context, id uuid.UUID) (*domain.Listing, error) {
	defer r.s.lock()()

	l, ok := r.s.st.listings[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	out := cloneListing(l)
	return &out, nil
}

func (r *ListingRepo) GetMany(ctx context.Context, ids []uuid.UUID) ([]domain.Listing, error) {
	defer r.s.lock()()

	out := make([]domain.Listing, 0, len(ids))
	for _, id := range ids {
		if l, ok := r.s.st.listings[id]; ok {
			out = append(out, cloneListing(l))
		}
	}
	return out, nil
}

func (r *ListingRepo) ListActive(ctx context.Context, limit int) ([]domain.Listing, error) {
	defer r.s.lock()()

	out := make([]domain.Listing, 0, len(r.s.st.listings))
	for _, l := range r.s.st.listings {
		if l.IsActive && l.SoldByOrder == nil {
			out = append(out, cloneListing(l))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })

	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *ListingRepo) Create(ctx context.Context, l *domain.Listing) error {
	defer r.s.lock()()

	if l.ID == uuid.Nil {
		l.ID = uuid.New()
	}
	if _, ok := r.s.st.listings[l.ID]; ok {
		return repository.ErrConflict
	}

	now := r.s.st.now()
	if l.CreatedAt.IsZero() {
		l.CreatedAt = now
	}
	l.UpdatedAt = now

	r.s.st.listings[l.ID] = cloneListing(*l)
	return nil
}

// Update replaces catalog fields only; reservation and sale columns are
// owned by the checkout flow.
func (r *ListingRepo) Update(ctx context.Context, l *domain.Listing) error {
	defer r.s.lock()()

	cur, ok := r.s.st.listings[l.ID]
	if !ok {
		return repository.ErrNotFound
	}

	next := cloneListing(*l)
	next.ReservedByOrder = cur.ReservedByOrder
	next.ReservedUntil = cur.ReservedUntil
	next.SoldByOrder = cur.SoldByOrder
	next.SoldAt = cur.SoldAt
	next.CreatedAt = cur.CreatedAt
	next.UpdatedAt = r.s.st.now()

	r.s.st.listings[l.ID] = next
	*l = cloneListing(next)
	return nil
}

func (r *ListingRepo) Reserve(ctx context.Context, orderID uuid.UUID, ids []uuid.UUID, until time.Time) error {
	defer r.s.lock()()

	now := r.s.st.now()
	for _, id := range ids {
		l, ok := r.s.st.listings[id]
		if !ok || !reservable(l, orderID, now) {
			return repository.ErrListingsUnavailable
		}
	}

	for _, id := range ids {
		l := r.s.st.listings[id]
		l.ReservedByOrder = ptr(orderID)
		l.ReservedUntil = ptr(until)
		l.UpdatedAt = now
		r.s.st.listings[id] = l
	}
	return nil
}

func (r *ListingRepo) Sell(ctx context.Context, orderID uuid.UUID, ids []uuid.UUID) (int64, error) {
	defer r.s.lock()()

	now := r.s.st.now()
	var n int64
	for _, id := range ids {
		l, ok := r.s.st.listings[id]
		if !ok || l.SoldByOrder != nil {
			continue
		}
		l.SoldByOrder = ptr(orderID)
		l.SoldAt = ptr(now)
		l.ReservedByOrder = nil
		l.ReservedUntil = nil
		l.IsActive = false
		l.UpdatedAt = now
		r.s.st.listings[id] = l
		n++
	}
	return n, nil
}

func (r *ListingRepo) ExtendHold(ctx context.Context, orderID uuid.UUID, ids []uuid.UUID, until time.Time) (int64, error) {
	defer r.s.lock()()

	now := r.s.st.now()
	var n int64
	for _, id := range ids {
		l, ok := r.s.st.listings[id]
		if !ok || !reservable(l, orderID, now) {
			continue
		}
		l.ReservedByOrder = ptr(orderID)
		l.ReservedUntil = ptr(until)
		l.UpdatedAt = now
		r.s.st.listings[id] = l
		n++
	}
	return n, nil
}

func (r *ListingRepo) ReleaseHolds(ctx context.Context, orderID uuid.UUID) (int64, error) {
	defer r.s.lock()()

	now := r.s.st.now()
	var n int64
	for id, l := range r.s.st.listings {
		if l.SoldByOrder != nil || l.ReservedByOrder == nil || *l.ReservedByOrder != orderID {
			continue
		}
		l.ReservedByOrder = nil
		l.ReservedUntil = nil
		l.UpdatedAt = now
		r.s.st.listings[id] = l
		n++
	}
	return n, nil
}

// reservable mirrors the WHERE clause of the Postgres reserve statement.
func reservable(l domain.Listing, orderID uuid.UUID, now time.Time) bool {
	if l.SoldByOrder != nil {
		return false
	}
	if l.ReservedByOrder == nil || *l.ReservedByOrder == orderID {
		return true
	}
	return l.ReservedUntil == nil || !l.ReservedUntil.After(now)
}
