package admin

import (
	"errors"
)

var (
	ErrListingConflict = errors.New("listing already exists")
	ErrListingNotFound = errors.New("listing not found")
	ErrInvalidListing  = errors.New("invalid listing")
)

// ValidationError says which listing field was rejected.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string { return ErrInvalidListing.Error() + ": " + e.Msg }

func (e *ValidationError) Unwrap() error { return ErrInvalidListing }
