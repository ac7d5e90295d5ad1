package repository

import "errors"

var (
	ErrNotFound            = errors.New("not found")
	ErrConflict            = errors.New("conflict")
	ErrListingsUnavailable = errors.New("some listings unavailable")
	ErrNotClaimed          = errors.New("notification already claimed")
)
