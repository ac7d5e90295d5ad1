package orders

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/kirinyoku/vastore/internal/domain"
	"github.com/kirinyoku/vastore/internal/repository"
)

var ErrOrderNotFound = errors.New("order not found")

// ListLimit caps the back-office order list.
const ListLimit = 200

type Service struct {
	store repository.Store
}

func New(store repository.Store) *Service {
	return &Service{store: store}
}

// List returns the most recent orders, newest first.
func (s *Service) List(ctx context.Context) ([]domain.Order, error) {
	const op = "service.orders.List"

	out, err := s.store.Orders().List(ctx, ListLimit)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	return out, nil
}

// Get retrieves a single order with its snapshot and payment audit fields.
//
// Parameters:
//   - ctx: request-scoped context.
//   - id: the order id.
//
// Returns:
//   - *domain.Order: the order.
//   - error: orders.ErrOrderNotFound if the order does not exist.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*domain.Order, error) {
	const op = "service.orders.Get"

	o, err := s.store.Orders().Get(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("%s:%w", op, ErrOrderNotFound)
		}

		return nil, fmt.Errorf("%s:%w", op, err)
	}

	return o, nil
}
