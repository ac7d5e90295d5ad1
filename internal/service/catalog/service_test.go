package catalog

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kirinyoku/vastore/internal/domain"
	redisx "github.com/kirinyoku/vastore/internal/redis"
	"github.com/kirinyoku/vastore/internal/repository/memory"
	redisrepo "github.com/kirinyoku/vastore/internal/repository/redis"
)

func setup(t *testing.T) (*Service, *memory.Store, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	store := memory.NewStore()
	svc := New(store, redisrepo.NewCache(rdb), redisx.NewListingsPubSub(rdb), nil, Config{})
	return svc, store, rdb
}

func addListing(t *testing.T, store *memory.Store, name string) *domain.Listing {
	t.Helper()
	email := name + "@example.com"
	l := &domain.Listing{
		Name:          name,
		PurchasePrice: decimal.NewFromInt(99),
		IsActive:      true,
		ContactEmail:  &email,
	}
	require.NoError(t, store.Listings().Create(context.Background(), l))
	return l
}

func TestListActiveIsCachedUntilChanged(t *testing.T) {
	svc, store, _ := setup(t)
	ctx := context.Background()

	addListing(t, store, "ana")

	first, err := svc.ListActive(ctx, 0)
	require.NoError(t, err)
	require.Len(t, first, 1)

	added := addListing(t, store, "ben")

	cached, err := svc.ListActive(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, cached, 1, "served from cache")

	svc.ListingsChanged(ctx, "created", []uuid.UUID{added.ID})

	fresh, err := svc.ListActive(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, fresh, 2)
}

func TestPublicViewHidesContacts(t *testing.T) {
	svc, store, _ := setup(t)
	ctx := context.Background()
	l := addListing(t, store, "ana")

	v, err := svc.Get(ctx, l.ID)
	require.NoError(t, err)

	b, err := json.Marshal(v)
	require.NoError(t, err)
	assert.NotContains(t, string(b), "ana@example.com")
	assert.Contains(t, string(b), `"status":"available"`)

	_, err = svc.Get(ctx, uuid.New())
	assert.ErrorIs(t, err, ErrListingNotFound)
}

func TestViewStatus(t *testing.T) {
	svc, _, _ := setup(t)
	now := time.Now()
	svc.now = func() time.Time { return now }

	order := uuid.New()
	live := now.Add(time.Minute)
	gone := now.Add(-time.Minute)

	assert.Equal(t, "reserved", svc.view(domain.Listing{ReservedByOrder: &order, ReservedUntil: &live}).Status)
	assert.Equal(t, "available", svc.view(domain.Listing{ReservedByOrder: &order, ReservedUntil: &gone}).Status)
	assert.Equal(t, "sold", svc.view(domain.Listing{SoldByOrder: &order, SoldAt: &now}).Status)
}

func TestListingsChangedPublishes(t *testing.T) {
	svc, _, rdb := setup(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	sub := rdb.Subscribe(ctx, redisx.ChannelListingsChanged())
	defer sub.Close()
	_, err := sub.Receive(ctx)
	require.NoError(t, err)

	id := uuid.New()
	svc.ListingsChanged(ctx, "sold", []uuid.UUID{id})

	msg, err := sub.ReceiveMessage(ctx)
	require.NoError(t, err)

	var got redisx.ListingsChanged
	require.NoError(t, json.Unmarshal([]byte(msg.Payload), &got))
	assert.Equal(t, "listings_changed", got.Type)
	assert.Equal(t, "sold", got.Reason)
	assert.Equal(t, []string{id.String()}, got.ListingIDs)
}
