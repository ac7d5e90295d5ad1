package memory

import (
	"context"
	"encoding/json"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/kirinyoku/vastore/internal/domain"
	"github.com/kirinyoku/vastore/internal/repository"
)

type OrderRepo struct {
	s *Store
}

func (r *OrderRepo) Get(ctx context.Context, id uuid.UUID) (*domain.Order, error) {
	defer r.s.lock()()

	o, ok := r.s.st.orders[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	out := cloneOrder(o)
	return &out, nil
}

func (r *OrderRepo) List(ctx context.Context, limit int) ([]domain.Order, error) {
	defer r.s.lock()()

	out := make([]domain.Order, 0, len(r.s.st.orders))
	for _, o := range r.s.st.orders {
		out = append(out, cloneOrder(o))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *OrderRepo) FindReusablePending(ctx context.Context, cartID uuid.UUID) (*domain.Order, error) {
	defer r.s.lock()()

	o, ok := r.s.reusable(cartID)
	if !ok {
		return nil, repository.ErrNotFound
	}
	out := cloneOrder(o)
	return &out, nil
}

func (s *Store) reusable(cartID uuid.UUID) (domain.Order, bool) {
	var (
		best  domain.Order
		found bool
	)
	for _, o := range s.st.orders {
		if o.CartID != cartID || o.Status != domain.OrderPending || o.NowInvoiceURL != nil {
			continue
		}
		if !found || o.CreatedAt.After(best.CreatedAt) {
			best, found = o, true
		}
	}
	return best, found
}

// Create enforces the one-reusable-pending-order-per-cart rule that the
// Postgres schema expresses as a partial unique index.
func (r *OrderRepo) Create(ctx context.Context, d domain.OrderDraft) (*domain.Order, error) {
	defer r.s.lock()()

	if _, ok := r.s.reusable(d.CartID); ok {
		return nil, repository.ErrConflict
	}

	o := domain.Order{
		ID:        uuid.New(),
		CartID:    d.CartID,
		Status:    domain.OrderPending,
		CreatedAt: r.s.st.now(),
	}
	applyDraft(&o, d)

	r.s.st.orders[o.ID] = cloneOrder(o)
	return &o, nil
}

func (r *OrderRepo) UpdateDraft(ctx context.Context, id uuid.UUID, d domain.OrderDraft) (*domain.Order, error) {
	defer r.s.lock()()

	o, ok := r.s.st.orders[id]
	if !ok || o.Status != domain.OrderPending || o.NowInvoiceURL != nil {
		return nil, repository.ErrNotFound
	}
	applyDraft(&o, d)

	r.s.st.orders[id] = cloneOrder(o)
	return &o, nil
}

func applyDraft(o *domain.Order, d domain.OrderDraft) {
	o.Contact = d.Contact
	o.Items = append([]domain.OrderItem(nil), d.Items...)
	o.ItemCount = len(d.Items)
	o.Total = d.Total
	o.FiatAmountUSD = d.Total
	o.DiscountCode = clonePtr(d.DiscountCode)
	o.DiscountPct = d.DiscountPct
	o.DiscountAmount = d.DiscountAmount
}

func (r *OrderRepo) SetInvoice(ctx context.Context, id uuid.UUID, invoiceID, invoiceURL string) error {
	return r.update(id, func(o *domain.Order) bool {
		if invoiceID != "" {
			o.NowInvoiceID = ptr(invoiceID)
		}
		o.NowInvoiceURL = ptr(invoiceURL)
		return true
	})
}

func (r *OrderRepo) RecordIPN(ctx context.Context, id uuid.UUID, status string, payload json.RawMessage) error {
	return r.update(id, func(o *domain.Order) bool {
		o.IPNStatus = ptr(status)
		o.IPNPayload = append(json.RawMessage(nil), payload...)
		return true
	})
}

func (r *OrderRepo) MarkPaid(ctx context.Context, id uuid.UUID, at time.Time) (bool, error) {
	changed := false
	err := r.update(id, func(o *domain.Order) bool {
		if o.Status != domain.OrderPending {
			return false
		}
		o.Status = domain.OrderPaid
		o.PaidAt = ptr(at)
		changed = true
		return true
	})
	return changed, err
}

func (r *OrderRepo) MarkFailed(ctx context.Context, id uuid.UUID) (bool, error) {
	changed := false
	err := r.update(id, func(o *domain.Order) bool {
		if o.Status != domain.OrderPending {
			return false
		}
		o.Status = domain.OrderFailed
		changed = true
		return true
	})
	return changed, err
}

func (r *OrderRepo) ClaimGuideEmail(ctx context.Context, id uuid.UUID) (*domain.Order, error) {
	defer r.s.lock()()

	o, ok := r.s.st.orders[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	if o.Status != domain.OrderPaid || o.GuideEmailSentAt != nil {
		return nil, repository.ErrNotClaimed
	}

	o.GuideEmailSentAt = ptr(r.s.st.now())
	r.s.st.orders[id] = o

	out := cloneOrder(o)
	return &out, nil
}

func (r *OrderRepo) RecordGuideEmailSent(ctx context.Context, id uuid.UUID, messageID string) error {
	return r.update(id, func(o *domain.Order) bool {
		o.GuideEmailMessageID = ptr(messageID)
		o.GuideEmailError = nil
		return true
	})
}

func (r *OrderRepo) RevertGuideEmailClaim(ctx context.Context, id uuid.UUID, reason string) error {
	return r.update(id, func(o *domain.Order) bool {
		if o.GuideEmailMessageID != nil {
			return false
		}
		o.GuideEmailSentAt = nil
		o.GuideEmailError = ptr(reason)
		return true
	})
}

func (r *OrderRepo) update(id uuid.UUID, fn func(o *domain.Order) bool) error {
	defer r.s.lock()()

	o, ok := r.s.st.orders[id]
	if !ok {
		return repository.ErrNotFound
	}
	if fn(&o) {
		r.s.st.orders[id] = o
	}
	return nil
}
