package catalog

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/kirinyoku/vastore/internal/domain"
	redisx "github.com/kirinyoku/vastore/internal/redis"
	"github.com/kirinyoku/vastore/internal/repository"
	redisrepo "github.com/kirinyoku/vastore/internal/repository/redis"
)

var ErrListingNotFound = errors.New("listing not found")

type Config struct {
	ListTTL      time.Duration
	ListingTTL   time.Duration
	DefaultLimit int
	MaxLimit     int
}

// ListingView is the public shape of a listing. Contact details never leave
// the back office.
type ListingView struct {
	domain.Listing
	Status string `json:"status"`
}

type Service struct {
	store  repository.Store
	cache  *redisrepo.Cache
	pubsub *redisx.ListingsPubSub
	log    *slog.Logger
	cfg    Config
	now    func() time.Time
}

func New(
	store repository.Store,
	cache *redisrepo.Cache,
	pubsub *redisx.ListingsPubSub,
	log *slog.Logger,
	cfg Config,
) *Service {
	if cfg.ListTTL <= 0 {
		cfg.ListTTL = 30 * time.Second
	}

	if cfg.ListingTTL <= 0 {
		cfg.ListingTTL = 60 * time.Second
	}

	if cfg.DefaultLimit <= 0 {
		cfg.DefaultLimit = 50
	}

	if cfg.MaxLimit <= 0 {
		cfg.MaxLimit = 200
	}

	if log == nil {
		log = slog.Default()
	}

	return &Service{
		store:  store,
		cache:  cache,
		pubsub: pubsub,
		log:    log,
		cfg:    cfg,
		now:    time.Now,
	}
}

func (s *Service) view(l domain.Listing) ListingView {
	v := ListingView{Listing: l, Status: domain.ListingAvailable.String()}
	if st, err := l.State(); err == nil {
		v.Status = st.Kind().String()
		if st.Kind() == domain.ListingReserved && !st.Until().After(s.now()) {
			v.Status = domain.ListingAvailable.String()
		}
	}
	return v
}

// ListActive returns active unsold listings, newest first.
//
// Parameters:
//   - ctx: request-scoped context.
//   - limit: page size; zero selects the default and values above the
//     maximum are clamped.
//
// Returns:
//   - []ListingView: public listing views.
//   - error: any storage error.
func (s *Service) ListActive(ctx context.Context, limit int) ([]ListingView, error) {
	const op = "service.catalog.ListActive"

	if limit <= 0 {
		limit = s.cfg.DefaultLimit
	}
	if limit > s.cfg.MaxLimit {
		limit = s.cfg.MaxLimit
	}

	load := func(ctx context.Context) ([]ListingView, error) {
		ls, err := s.store.Listings().ListActive(ctx, limit)
		if err != nil {
			return nil, err
		}
		out := make([]ListingView, 0, len(ls))
		for _, l := range ls {
			out = append(out, s.view(l))
		}
		return out, nil
	}

	if s.cache == nil {
		out, err := load(ctx)
		if err != nil {
			return nil, fmt.Errorf("%s:%w", op, err)
		}
		return out, nil
	}

	out, err := redisrepo.GetOrSetJSON(ctx, s.cache, redisx.KeyCatalogActive(limit), s.cfg.ListTTL, load)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	return out, nil
}

// Get returns one listing, cached.
//
// Returns:
//   - error: catalog.ErrListingNotFound if the listing does not exist.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*ListingView, error) {
	const op = "service.catalog.Get"

	load := func(ctx context.Context) (ListingView, error) {
		l, err := s.store.Listings().Get(ctx, id)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return ListingView{}, ErrListingNotFound
			}
			return ListingView{}, err
		}
		return s.view(*l), nil
	}

	var (
		v   ListingView
		err error
	)
	if s.cache == nil {
		v, err = load(ctx)
	} else {
		v, err = redisrepo.GetOrSetJSON(ctx, s.cache, redisx.KeyListing(id.String()), s.cfg.ListingTTL, load)
	}
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	return &v, nil
}

// ListingsChanged drops cached catalog reads and tells subscribers which
// listings moved. Failures are logged; the change itself already committed.
func (s *Service) ListingsChanged(ctx context.Context, reason string, ids []uuid.UUID) {
	if s.cache != nil {
		if err := s.cache.InvalidateCatalog(ctx); err != nil {
			s.log.WarnContext(ctx, "catalog cache invalidation failed", slog.Any("err", err))
		}
	}

	if s.pubsub != nil {
		strIDs := make([]string, 0, len(ids))
		for _, id := range ids {
			strIDs = append(strIDs, id.String())
		}
		if err := s.pubsub.PublishListingsChanged(ctx, reason, strIDs); err != nil {
			s.log.WarnContext(ctx, "listings change publish failed", slog.Any("err", err))
		}
	}
}
