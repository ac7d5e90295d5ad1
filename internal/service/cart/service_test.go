package cart

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kirinyoku/vastore/internal/domain"
	"github.com/kirinyoku/vastore/internal/repository/memory"
)

func seed(t *testing.T, s *memory.Store, l domain.Listing) uuid.UUID {
	t.Helper()
	require.NoError(t, s.Listings().Create(context.Background(), &l))
	return l.ID
}

func TestAddItem(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	svc := New(store)

	priced := seed(t, store, domain.Listing{Name: "Ana", PurchasePrice: decimal.NewFromInt(149), IsActive: true})
	unpriced := seed(t, store, domain.Listing{Name: "Ben", IsActive: true})
	inactive := seed(t, store, domain.Listing{Name: "Cy", IsActive: false})

	res, err := svc.AddItem(ctx, "", priced, "", "")
	require.NoError(t, err)
	token := res.Cart.GuestToken
	assert.NotEmpty(t, token)
	assert.True(t, res.Item.Price.Equal(decimal.NewFromInt(149)), "price comes from the listing")
	assert.Equal(t, "Ana", res.Item.Name)

	res, err = svc.AddItem(ctx, token, unpriced, "Ben", "")
	require.NoError(t, err)
	assert.True(t, res.Item.Price.Equal(domain.DefaultListingPrice))

	res, err = svc.AddItem(ctx, token, priced, "", "")
	require.NoError(t, err)
	assert.True(t, res.Duplicated)

	_, err = svc.AddItem(ctx, token, inactive, "", "")
	assert.ErrorIs(t, err, ErrListingUnavailable)

	_, err = svc.AddItem(ctx, token, uuid.New(), "", "")
	assert.ErrorIs(t, err, ErrListingNotFound)

	got, err := svc.Get(ctx, token)
	require.NoError(t, err)
	assert.Len(t, got.Items, 2)
}

func TestAddItemRejectsHeldListing(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	svc := New(store)

	id := seed(t, store, domain.Listing{Name: "Ana", IsActive: true})
	require.NoError(t, store.Listings().Reserve(ctx, uuid.New(), []uuid.UUID{id}, time.Now().Add(time.Hour)))

	_, err := svc.AddItem(ctx, "", id, "", "")
	assert.ErrorIs(t, err, ErrListingUnavailable)
}

func TestClearKeepsToken(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	svc := New(store)

	id := seed(t, store, domain.Listing{Name: "Ana", IsActive: true})
	res, err := svc.AddItem(ctx, "", id, "", "")
	require.NoError(t, err)
	token := res.Cart.GuestToken

	require.NoError(t, svc.Clear(ctx, token))

	got, err := svc.Get(ctx, token)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Empty(t, got.Items)
	assert.Equal(t, domain.CartCleared, got.Cart.Status)

	res, err = svc.AddItem(ctx, token, id, "", "")
	require.NoError(t, err)
	assert.Equal(t, domain.CartActive, res.Cart.Status)

	assert.ErrorIs(t, svc.Clear(ctx, "unknown"), ErrCartNotFound)
}
