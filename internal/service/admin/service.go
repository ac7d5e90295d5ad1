package admin

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/kirinyoku/vastore/internal/domain"
	"github.com/kirinyoku/vastore/internal/repository"
	"github.com/kirinyoku/vastore/internal/uow"
)

type ChangeNotifier interface {
	ListingsChanged(ctx context.Context, reason string, ids []uuid.UUID)
}

type Service struct {
	store    repository.Store
	uow      *uow.UoW
	notifier ChangeNotifier
}

func New(store repository.Store, notifier ChangeNotifier) *Service {
	return &Service{
		store:    store,
		uow:      uow.NewUoW(store),
		notifier: notifier,
	}
}

// ListingInput carries the catalog fields an operator may set.
type ListingInput struct {
	Name            string          `json:"name"`
	Headline        string          `json:"headline"`
	Description     string          `json:"description"`
	Categories      []string        `json:"categories"`
	Languages       []string        `json:"languages"`
	Skills          []string        `json:"skills"`
	HourlyRate      decimal.Decimal `json:"hourly_rate"`
	PurchasePrice   decimal.Decimal `json:"purchase_price"`
	Rating          decimal.Decimal `json:"rating"`
	ReviewsCount    int             `json:"reviews_count"`
	IsActive        *bool           `json:"is_active"`
	ContactEmail    *string         `json:"contact_email"`
	ContactTelegram *string         `json:"contact_telegram"`
	ContactPhone    *string         `json:"contact_phone"`
}

var maxRating = decimal.NewFromInt(5)

func (in ListingInput) validate() error {
	switch {
	case strings.TrimSpace(in.Name) == "":
		return &ValidationError{Msg: "name is required"}
	case in.PurchasePrice.IsNegative(), in.HourlyRate.IsNegative():
		return &ValidationError{Msg: "prices must not be negative"}
	case in.Rating.IsNegative(), in.Rating.GreaterThan(maxRating):
		return &ValidationError{Msg: "rating must be between 0 and 5"}
	case in.ReviewsCount < 0:
		return &ValidationError{Msg: "reviews_count must not be negative"}
	}
	return nil
}

func (in ListingInput) apply(l *domain.Listing) {
	l.Name = strings.TrimSpace(in.Name)
	l.Headline = strings.TrimSpace(in.Headline)
	l.Description = in.Description
	l.Categories = in.Categories
	l.Languages = in.Languages
	l.Skills = in.Skills
	l.HourlyRate = in.HourlyRate
	l.PurchasePrice = domain.PriceOrDefault(in.PurchasePrice)
	l.Rating = in.Rating
	l.ReviewsCount = in.ReviewsCount
	if in.IsActive != nil {
		l.IsActive = *in.IsActive
	}
	l.ContactEmail = blankToNil(in.ContactEmail)
	l.ContactTelegram = blankToNil(in.ContactTelegram)
	l.ContactPhone = blankToNil(in.ContactPhone)
}

// CreateListing adds a listing to the catalog. New listings are active
// unless the input says otherwise.
//
// Parameters:
//   - ctx: request-scoped context.
//   - in: catalog fields; a zero purchase price falls back to the default.
//
// Returns:
//   - *domain.Listing: the stored listing.
//   - error: admin.ErrInvalidListing if the input fails validation.
//   - error: admin.ErrListingConflict if the id is already taken.
func (s *Service) CreateListing(ctx context.Context, in ListingInput) (*domain.Listing, error) {
	const op = "service.admin.CreateListing"

	if err := in.validate(); err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	l := &domain.Listing{IsActive: true}
	in.apply(l)

	err := s.uow.Do(ctx, func(ctx context.Context, tx repository.Store, after func(uow.AfterCommit)) error {
		if err := tx.Listings().Create(ctx, l); err != nil {
			if errors.Is(err, repository.ErrConflict) {
				return ErrListingConflict
			}
			return err
		}

		after(s.changed("created", l.ID))
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	return l, nil
}

// UpdateListing replaces the catalog fields of a listing. Reservation and
// sale state are left alone.
//
// Returns:
//   - error: admin.ErrListingNotFound if there is no such listing.
//   - error: admin.ErrInvalidListing if the input fails validation.
func (s *Service) UpdateListing(ctx context.Context, id uuid.UUID, in ListingInput) (*domain.Listing, error) {
	const op = "service.admin.UpdateListing"

	if err := in.validate(); err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	var out *domain.Listing
	err := s.uow.Do(ctx, func(ctx context.Context, tx repository.Store, after func(uow.AfterCommit)) error {
		l, err := tx.Listings().Get(ctx, id)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return ErrListingNotFound
			}
			return err
		}

		in.apply(l)
		if err := tx.Listings().Update(ctx, l); err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return ErrListingNotFound
			}
			return err
		}
		out = l

		after(s.changed("updated", id))
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	return out, nil
}

func (s *Service) changed(reason string, id uuid.UUID) uow.AfterCommit {
	return func(ctx context.Context) {
		if s.notifier != nil {
			s.notifier.ListingsChanged(ctx, reason, []uuid.UUID{id})
		}
	}
}

func blankToNil(p *string) *string {
	if p == nil {
		return nil
	}
	v := strings.TrimSpace(*p)
	if v == "" {
		return nil
	}
	return &v
}
