package domain

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewListingState(t *testing.T) {
	order := uuid.New()
	other := uuid.New()
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	future := now.Add(10 * time.Minute)
	past := now.Add(-time.Minute)

	t.Run("available", func(t *testing.T) {
		st, err := NewListingState(nil, nil, nil, nil)
		require.NoError(t, err)
		assert.Equal(t, ListingAvailable, st.Kind())
		assert.True(t, st.AvailableFor(order, now))
	})

	t.Run("reserved by other order blocks until expiry", func(t *testing.T) {
		st, err := NewListingState(&other, &future, nil, nil)
		require.NoError(t, err)
		assert.Equal(t, ListingReserved, st.Kind())
		assert.False(t, st.AvailableFor(order, now))
		assert.True(t, st.AvailableFor(other, now))
		assert.True(t, st.HeldBy(other, now))
		assert.True(t, st.AvailableFor(order, future))
	})

	t.Run("expired hold is void", func(t *testing.T) {
		st, err := NewListingState(&other, &past, nil, nil)
		require.NoError(t, err)
		assert.True(t, st.AvailableFor(order, now))
		assert.False(t, st.HeldBy(other, now))
	})

	t.Run("sold is terminal", func(t *testing.T) {
		st, err := NewListingState(nil, nil, &order, &now)
		require.NoError(t, err)
		assert.Equal(t, ListingSold, st.Kind())
		assert.False(t, st.AvailableFor(order, now))
		assert.Equal(t, now, st.SoldAt())
	})

	t.Run("sold and reserved is rejected", func(t *testing.T) {
		_, err := NewListingState(&other, &future, &order, &now)
		assert.ErrorIs(t, err, ErrInvalidListingState)
	})

	t.Run("reservation without expiry is rejected", func(t *testing.T) {
		_, err := NewListingState(&other, nil, nil, nil)
		assert.ErrorIs(t, err, ErrInvalidListingState)
	})
}

func TestListingStateColumnsRoundTrip(t *testing.T) {
	order := uuid.New()
	until := time.Now().Add(time.Hour)

	rb, ru, sb, sa := Reserved(order, until).Columns()
	st, err := NewListingState(rb, ru, sb, sa)
	require.NoError(t, err)
	assert.Equal(t, order, st.Order())
	assert.Equal(t, until, st.Until())
}
