package admin

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kirinyoku/vastore/internal/repository/memory"
)

type recorder struct {
	reasons []string
}

func (r *recorder) ListingsChanged(ctx context.Context, reason string, ids []uuid.UUID) {
	r.reasons = append(r.reasons, reason)
}

func TestCreateAndUpdateListing(t *testing.T) {
	store := memory.NewStore()
	notes := &recorder{}
	svc := New(store, notes)
	ctx := context.Background()

	email := " ana@example.com "
	l, err := svc.CreateListing(ctx, ListingInput{
		Name:         " Ana ",
		Skills:       []string{"support"},
		Rating:       decimal.RequireFromString("4.8"),
		ContactEmail: &email,
	})
	require.NoError(t, err)
	assert.Equal(t, "Ana", l.Name)
	assert.True(t, l.IsActive)
	assert.True(t, l.PurchasePrice.Equal(decimal.NewFromInt(99)), "zero price falls back to the default")
	require.NotNil(t, l.ContactEmail)
	assert.Equal(t, "ana@example.com", *l.ContactEmail)

	// Holds survive catalog edits.
	until := time.Now().Add(time.Hour)
	order := uuid.New()
	require.NoError(t, store.Listings().Reserve(ctx, order, []uuid.UUID{l.ID}, until))

	inactive := false
	updated, err := svc.UpdateListing(ctx, l.ID, ListingInput{
		Name:          "Ana B",
		PurchasePrice: decimal.NewFromInt(120),
		IsActive:      &inactive,
	})
	require.NoError(t, err)
	assert.Equal(t, "Ana B", updated.Name)
	assert.False(t, updated.IsActive)
	assert.Nil(t, updated.ContactEmail)
	require.NotNil(t, updated.ReservedByOrder)
	assert.Equal(t, order, *updated.ReservedByOrder)

	assert.Equal(t, []string{"created", "updated"}, notes.reasons)
}

func TestListingValidation(t *testing.T) {
	svc := New(memory.NewStore(), nil)
	ctx := context.Background()

	for name, in := range map[string]ListingInput{
		"blank name":     {Name: "  "},
		"negative price": {Name: "a", PurchasePrice: decimal.NewFromInt(-1)},
		"rating above 5": {Name: "a", Rating: decimal.RequireFromString("5.1")},
	} {
		t.Run(name, func(t *testing.T) {
			_, err := svc.CreateListing(ctx, in)
			assert.ErrorIs(t, err, ErrInvalidListing)
		})
	}

	_, err := svc.UpdateListing(ctx, uuid.New(), ListingInput{Name: "a"})
	assert.ErrorIs(t, err, ErrListingNotFound)
}
