package discount

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/kirinyoku/vastore/internal/domain"
	"github.com/kirinyoku/vastore/internal/repository"
)

var (
	ErrInvalidCode = errors.New("invalid discount code")
	ErrCodeExists  = errors.New("discount code already exists")
	ErrNotFound    = errors.New("discount code not found")
)

// Service validates and manages discount codes. The persisted table is the
// only source of codes.
type Service struct {
	store repository.Store
}

func New(store repository.Store) *Service {
	return &Service{store: store}
}

// Lookup resolves raw against the store using repo, which may be bound to a
// transaction. It returns ErrInvalidCode for malformed input and nil for a
// well-formed code that does not exist.
func Lookup(ctx context.Context, repo repository.DiscountRepository, raw string) (*domain.DiscountCode, error) {
	code, ok := domain.NormalizeDiscountCode(raw)
	if !ok {
		return nil, ErrInvalidCode
	}

	d, err := repo.Get(ctx, code)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	if !d.DiscountPct.IsPositive() {
		d.DiscountPct = domain.DefaultDiscountPct
	}

	return d, nil
}

// Validate reports whether raw names an existing code and its percentage.
func (s *Service) Validate(ctx context.Context, raw string) (string, decimal.Decimal, bool, error) {
	const op = "service.discount.Validate"

	d, err := Lookup(ctx, s.store.Discounts(), raw)
	if errors.Is(err, ErrInvalidCode) {
		code, _ := domain.NormalizeDiscountCode(raw)
		return code, decimal.Zero, false, nil
	}
	if err != nil {
		return "", decimal.Zero, false, fmt.Errorf("%s:%w", op, err)
	}
	if d == nil {
		code, _ := domain.NormalizeDiscountCode(raw)
		return code, decimal.Zero, false, nil
	}

	return d.Code, d.DiscountPct, true, nil
}

func (s *Service) List(ctx context.Context) ([]domain.DiscountCode, error) {
	const op = "service.discount.List"

	out, err := s.store.Discounts().List(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	return out, nil
}

// Create adds a code with the default percentage.
func (s *Service) Create(ctx context.Context, raw string) (*domain.DiscountCode, error) {
	const op = "service.discount.Create"

	code, ok := domain.NormalizeDiscountCode(raw)
	if !ok {
		return nil, fmt.Errorf("%s:%w", op, ErrInvalidCode)
	}

	d, err := s.store.Discounts().Create(ctx, code, domain.DefaultDiscountPct)
	if err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return nil, fmt.Errorf("%s:%w", op, ErrCodeExists)
		}
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	return d, nil
}

func (s *Service) Delete(ctx context.Context, raw string) error {
	const op = "service.discount.Delete"

	code, ok := domain.NormalizeDiscountCode(raw)
	if !ok {
		return fmt.Errorf("%s:%w", op, ErrInvalidCode)
	}

	if err := s.store.Discounts().Delete(ctx, code); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return fmt.Errorf("%s:%w", op, ErrNotFound)
		}
		return fmt.Errorf("%s:%w", op, err)
	}

	return nil
}
