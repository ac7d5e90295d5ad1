package reservation

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

var (
	ErrCartNotFound        = errors.New("cart not found")
	ErrCartEmpty           = errors.New("cart is empty")
	ErrItemsUnavailable    = errors.New("some items are no longer available")
	ErrInvalidDiscountCode = errors.New("invalid discount code")
)

// UnavailableError names the listings that blocked a reservation.
type UnavailableError struct {
	ListingIDs []uuid.UUID
}

func (e *UnavailableError) Error() string {
	return fmt.Sprintf("listings unavailable: %v", e.ListingIDs)
}

func (e *UnavailableError) Unwrap() error {
	return ErrItemsUnavailable
}
