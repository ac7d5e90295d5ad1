package postgresrepo

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/kirinyoku/vastore/internal/domain"
	pg "github.com/kirinyoku/vastore/internal/postgres"
	"github.com/kirinyoku/vastore/internal/repository"
)

func setupStore(t *testing.T) *Store {
	t.Helper()

	if testing.Short() {
		t.Skip("skipping postgres integration test in short mode")
	}

	ctx := context.Background()

	container, err := tcpostgres.Run(ctx,
		"postgres:16-alpine",
		tcpostgres.WithDatabase("vastore"),
		tcpostgres.WithUsername("vastore"),
		tcpostgres.WithPassword("vastore"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	require.NoError(t, err)
	t.Cleanup(func() {
		if err := container.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %s", err)
		}
	})

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	pool, err := pg.New(ctx, pg.Config{DSN: dsn, MaxConns: 8, Migrate: true})
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	return NewStore(pool)
}

func createListing(t *testing.T, s *Store, name string) uuid.UUID {
	t.Helper()
	l := &domain.Listing{
		Name:          name,
		PurchasePrice: decimal.NewFromInt(99),
		IsActive:      true,
		ContactEmail:  ptr(name + "@example.com"),
	}
	require.NoError(t, s.Listings().Create(context.Background(), l))
	return l.ID
}

func ptr[T any](v T) *T { return &v }

func TestStoreIntegration(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()

	a := createListing(t, s, "ana")
	b := createListing(t, s, "ben")

	cart, err := s.Carts().Create(ctx, uuid.NewString())
	require.NoError(t, err)

	t.Run("cart items are unique per listing", func(t *testing.T) {
		item := domain.CartItem{CartID: cart.ID, ListingID: a, Name: "ana", Price: decimal.NewFromInt(99)}
		first, dup, err := s.Carts().AddItem(ctx, item)
		require.NoError(t, err)
		assert.False(t, dup)

		again, dup, err := s.Carts().AddItem(ctx, item)
		require.NoError(t, err)
		assert.True(t, dup)
		assert.Equal(t, first.ID, again.ID)
	})

	t.Run("one reusable pending order per cart", func(t *testing.T) {
		draft := domain.OrderDraft{
			CartID: cart.ID,
			Items:  []domain.OrderItem{{ListingID: a, Name: "ana", Price: decimal.NewFromInt(99)}},
			Total:  decimal.NewFromInt(99),
		}
		o, err := s.Orders().Create(ctx, draft)
		require.NoError(t, err)
		assert.Equal(t, domain.OrderPending, o.Status)
		require.Len(t, o.Items, 1)

		_, err = s.Orders().Create(ctx, draft)
		require.ErrorIs(t, err, repository.ErrConflict)

		found, err := s.Orders().FindReusablePending(ctx, cart.ID)
		require.NoError(t, err)
		assert.Equal(t, o.ID, found.ID)
	})

	t.Run("concurrent reservations are mutually exclusive", func(t *testing.T) {
		var (
			wg   sync.WaitGroup
			mu   sync.Mutex
			wins int
		)
		until := time.Now().Add(10 * time.Minute)
		for i := 0; i < 6; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				err := s.RunTx(ctx, func(ctx context.Context, tx repository.Store) error {
					return tx.Listings().Reserve(ctx, uuid.New(), []uuid.UUID{a, b}, until)
				})
				if err == nil {
					mu.Lock()
					wins++
					mu.Unlock()
				}
			}()
		}
		wg.Wait()
		assert.Equal(t, 1, wins)
	})

	t.Run("sell is guarded against a second buyer", func(t *testing.T) {
		first, second := uuid.New(), uuid.New()

		n, err := s.Listings().Sell(ctx, first, []uuid.UUID{b})
		require.NoError(t, err)
		assert.EqualValues(t, 1, n)

		n, err = s.Listings().Sell(ctx, second, []uuid.UUID{b})
		require.NoError(t, err)
		assert.EqualValues(t, 0, n)

		l, err := s.Listings().Get(ctx, b)
		require.NoError(t, err)
		st, err := l.State()
		require.NoError(t, err)
		assert.Equal(t, domain.ListingSold, st.Kind())
		assert.Equal(t, first, st.Order())
	})

	t.Run("guide email claim is exclusive", func(t *testing.T) {
		o, err := s.Orders().FindReusablePending(ctx, cart.ID)
		require.NoError(t, err)

		paid, err := s.Orders().MarkPaid(ctx, o.ID, time.Now())
		require.NoError(t, err)
		require.True(t, paid)

		paid, err = s.Orders().MarkPaid(ctx, o.ID, time.Now())
		require.NoError(t, err)
		assert.False(t, paid)

		_, err = s.Orders().ClaimGuideEmail(ctx, o.ID)
		require.NoError(t, err)
		_, err = s.Orders().ClaimGuideEmail(ctx, o.ID)
		require.ErrorIs(t, err, repository.ErrNotClaimed)

		require.NoError(t, s.Orders().RevertGuideEmailClaim(ctx, o.ID, "provider down"))
		_, err = s.Orders().ClaimGuideEmail(ctx, o.ID)
		require.NoError(t, err)
	})
}
