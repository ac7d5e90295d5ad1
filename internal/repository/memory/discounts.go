package memory

import (
	"context"
	"sort"

	"github.com/shopspring/decimal"

	"github.com/kirinyoku/vastore/internal/domain"
	"github.com/kirinyoku/vastore/internal/repository"
)

type DiscountRepo struct {
	s *Store
}

func (r *DiscountRepo) Get(ctx context.Context, code string) (*domain.DiscountCode, error) {
	defer r.s.lock()()

	d, ok := r.s.st.discounts[code]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &d, nil
}

func (r *DiscountRepo) List(ctx context.Context) ([]domain.DiscountCode, error) {
	defer r.s.lock()()

	out := make([]domain.DiscountCode, 0, len(r.s.st.discounts))
	for _, d := range r.s.st.discounts {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (r *DiscountRepo) Create(ctx context.Context, code string, pct decimal.Decimal) (*domain.DiscountCode, error) {
	defer r.s.lock()()

	if _, ok := r.s.st.discounts[code]; ok {
		return nil, repository.ErrConflict
	}
	d := domain.DiscountCode{Code: code, DiscountPct: pct, CreatedAt: r.s.st.now()}
	r.s.st.discounts[code] = d
	return &d, nil
}

func (r *DiscountRepo) Delete(ctx context.Context, code string) error {
	defer r.s.lock()()

	if _, ok := r.s.st.discounts[code]; !ok {
		return repository.ErrNotFound
	}
	delete(r.s.st.discounts, code)
	return nil
}
