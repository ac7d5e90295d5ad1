package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

var ErrInvalidListingState = errors.New("invalid listing state")

type ListingStateKind int

const (
	ListingAvailable ListingStateKind = iota
	ListingReserved
	ListingSold
)

func (k ListingStateKind) String() string {
	switch k {
	case ListingReserved:
		return "reserved"
	case ListingSold:
		return "sold"
	default:
		return "available"
	}
}

// ListingState is the decoded form of a listing's reservation/sale columns:
// Available, Reserved{Order, Until} or Sold{Order, At}.
type ListingState struct {
	kind  ListingStateKind
	order uuid.UUID
	at    time.Time
}

// NewListingState is the only way to build a ListingState from persisted
// columns. A sold listing must not carry a reservation, and a reservation
// needs both an order and an expiry.
func NewListingState(
	reservedBy *uuid.UUID,
	reservedUntil *time.Time,
	soldBy *uuid.UUID,
	soldAt *time.Time,
) (ListingState, error) {
	if soldBy != nil {
		if reservedBy != nil || reservedUntil != nil {
			return ListingState{}, ErrInvalidListingState
		}
		var at time.Time
		if soldAt != nil {
			at = *soldAt
		}
		return ListingState{kind: ListingSold, order: *soldBy, at: at}, nil
	}

	switch {
	case reservedBy == nil && reservedUntil == nil:
		return ListingState{kind: ListingAvailable}, nil
	case reservedBy != nil && reservedUntil != nil:
		return ListingState{kind: ListingReserved, order: *reservedBy, at: *reservedUntil}, nil
	default:
		return ListingState{}, ErrInvalidListingState
	}
}

func Available() ListingState { return ListingState{kind: ListingAvailable} }

func Reserved(order uuid.UUID, until time.Time) ListingState {
	return ListingState{kind: ListingReserved, order: order, at: until}
}

func Sold(order uuid.UUID, at time.Time) ListingState {
	return ListingState{kind: ListingSold, order: order, at: at}
}

func (s ListingState) Kind() ListingStateKind { return s.kind }

// Order returns the reserving or buying order. It is uuid.Nil for Available.
func (s ListingState) Order() uuid.UUID { return s.order }

// Until is the hold expiry for Reserved.
func (s ListingState) Until() time.Time {
	if s.kind != ListingReserved {
		return time.Time{}
	}
	return s.at
}

// SoldAt is the sale time for Sold.
func (s ListingState) SoldAt() time.Time {
	if s.kind != ListingSold {
		return time.Time{}
	}
	return s.at
}

// HeldBy reports whether order holds an unexpired reservation at now.
func (s ListingState) HeldBy(order uuid.UUID, now time.Time) bool {
	return s.kind == ListingReserved && s.order == order && s.at.After(now)
}

// AvailableFor reports whether order may reserve the listing at now.
// Expired holds do not block anyone.
func (s ListingState) AvailableFor(order uuid.UUID, now time.Time) bool {
	switch s.kind {
	case ListingSold:
		return false
	case ListingReserved:
		return s.order == order || !s.at.After(now)
	default:
		return true
	}
}

// Columns encodes the state back to the flat persisted form.
func (s ListingState) Columns() (reservedBy *uuid.UUID, reservedUntil *time.Time, soldBy *uuid.UUID, soldAt *time.Time) {
	order, at := s.order, s.at
	switch s.kind {
	case ListingReserved:
		return &order, &at, nil, nil
	case ListingSold:
		return nil, nil, &order, &at
	default:
		return nil, nil, nil, nil
	}
}
