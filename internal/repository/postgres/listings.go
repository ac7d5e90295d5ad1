package postgresrepo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/kirinyoku/vastore/internal/domain"
	"github.com/kirinyoku/vastore/internal/repository"
)

const listingCols = `id, name, headline, description, categories, languages, skills,
	hourly_rate, purchase_price, rating, reviews_count, is_active,
	contact_email, contact_telegram, contact_phone,
	reserved_by_order, reserved_until, sold_by_order, sold_at,
	created_at, updated_at`

type ListingRepo struct {
	db DB
}

func scanListing(row pgx.Row) (*domain.Listing, error) {
	var l domain.Listing
	err := row.Scan(
		&l.ID, &l.Name, &l.Headline, &l.Description, &l.Categories, &l.Languages, &l.Skills,
		&l.HourlyRate, &l.PurchasePrice, &l.Rating, &l.ReviewsCount, &l.IsActive,
		&l.ContactEmail, &l.ContactTelegram, &l.ContactPhone,
		&l.ReservedByOrder, &l.ReservedUntil, &l.SoldByOrder, &l.SoldAt,
		&l.CreatedAt, &l.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &l, nil
}

func collectListings(rows pgx.Rows) ([]domain.Listing, error) {
	defer rows.Close()

	var out []domain.Listing
	for rows.Next() {
		l, err := scanListing(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *l)
	}

	return out, rows.Err()
}

func (r *ListingRepo) Get(ctx context.Context, id uuid.UUID) (*domain.Listing, error) {
	const op = "postgresrepo.ListingRepo.Get"

	l, err := scanListing(r.db.QueryRow(ctx,
		`SELECT `+listingCols+` FROM listings WHERE id = $1`, id))
	if err != nil {
		return nil, wrapDBErr(op, err)
	}

	return l, nil
}

func (r *ListingRepo) GetMany(ctx context.Context, ids []uuid.UUID) ([]domain.Listing, error) {
	const op = "postgresrepo.ListingRepo.GetMany"

	rows, err := r.db.Query(ctx,
		`SELECT `+listingCols+` FROM listings WHERE id = ANY($1)`, ids)
	if err != nil {
		return nil, wrapDBErr(op, err)
	}

	out, err := collectListings(rows)
	if err != nil {
		return nil, wrapDBErr(op, err)
	}

	return out, nil
}

func (r *ListingRepo) ListActive(ctx context.Context, limit int) ([]domain.Listing, error) {
	const op = "postgresrepo.ListingRepo.ListActive"

	rows, err := r.db.Query(ctx,
		`SELECT `+listingCols+`
		 FROM listings
		 WHERE is_active AND sold_by_order IS NULL
		 ORDER BY created_at DESC
		 LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, wrapDBErr(op, err)
	}

	out, err := collectListings(rows)
	if err != nil {
		return nil, wrapDBErr(op, err)
	}

	return out, nil
}

func (r *ListingRepo) Create(ctx context.Context, l *domain.Listing) error {
	const op = "postgresrepo.ListingRepo.Create"

	if l.ID == uuid.Nil {
		l.ID = uuid.New()
	}

	err := r.db.QueryRow(ctx,
		`INSERT INTO listings (
			id, name, headline, description, categories, languages, skills,
			hourly_rate, purchase_price, rating, reviews_count, is_active,
			contact_email, contact_telegram, contact_phone
		 ) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15)
		 RETURNING created_at, updated_at`,
		l.ID, l.Name, l.Headline, l.Description, nonNil(l.Categories), nonNil(l.Languages), nonNil(l.Skills),
		l.HourlyRate, domain.PriceOrDefault(l.PurchasePrice), l.Rating, l.ReviewsCount, l.IsActive,
		l.ContactEmail, l.ContactTelegram, l.ContactPhone,
	).Scan(&l.CreatedAt, &l.UpdatedAt)
	if err != nil {
		return wrapDBErr(op, err)
	}

	return nil
}

func (r *ListingRepo) Update(ctx context.Context, l *domain.Listing) error {
	const op = "postgresrepo.ListingRepo.Update"

	updated, err := scanListing(r.db.QueryRow(ctx,
		`UPDATE listings SET
			name = $2, headline = $3, description = $4,
			categories = $5, languages = $6, skills = $7,
			hourly_rate = $8, purchase_price = $9, rating = $10, reviews_count = $11,
			is_active = $12,
			contact_email = $13, contact_telegram = $14, contact_phone = $15,
			updated_at = now()
		 WHERE id = $1
		 RETURNING `+listingCols,
		l.ID, l.Name, l.Headline, l.Description, nonNil(l.Categories), nonNil(l.Languages), nonNil(l.Skills),
		l.HourlyRate, domain.PriceOrDefault(l.PurchasePrice), l.Rating, l.ReviewsCount, l.IsActive,
		l.ContactEmail, l.ContactTelegram, l.ContactPhone,
	))
	if err != nil {
		return wrapDBErr(op, err)
	}

	*l = *updated
	return nil
}

// Reserve holds listings for an order.
//
// Parameters:
//   - ctx: request-scoped context for cancellation and timeouts.
//   - orderID: the pending order taking the hold.
//   - ids: listings to hold.
//   - until: hold expiry.
//
// Returns:
//   - error: repository.ErrListingsUnavailable if any listing is sold or held
//     by another order with an unexpired hold. Callers must roll back.
func (r *ListingRepo) Reserve(ctx context.Context, orderID uuid.UUID, ids []uuid.UUID, until time.Time) error {
	const op = "postgresrepo.ListingRepo.Reserve"

	tag, err := r.db.Exec(ctx,
		`UPDATE listings
		    SET reserved_by_order = $2, reserved_until = $3, updated_at = now()
		  WHERE id = ANY($1)
		    AND sold_by_order IS NULL
		    AND (reserved_by_order IS NULL
		         OR reserved_by_order = $2
		         OR reserved_until <= now())`,
		ids, orderID, until,
	)
	if err != nil {
		return wrapDBErr(op, err)
	}

	if int(tag.RowsAffected()) != len(ids) {
		return wrapDBErr(op, repository.ErrListingsUnavailable)
	}

	return nil
}

func (r *ListingRepo) Sell(ctx context.Context, orderID uuid.UUID, ids []uuid.UUID) (int64, error) {
	const op = "postgresrepo.ListingRepo.Sell"

	tag, err := r.db.Exec(ctx,
		`UPDATE listings
		    SET sold_by_order = $2, sold_at = now(),
		        reserved_by_order = NULL, reserved_until = NULL,
		        is_active = false, updated_at = now()
		  WHERE id = ANY($1)
		    AND sold_by_order IS NULL`,
		ids, orderID,
	)
	if err != nil {
		return 0, wrapDBErr(op, err)
	}

	return tag.RowsAffected(), nil
}

func (r *ListingRepo) ExtendHold(ctx context.Context, orderID uuid.UUID, ids []uuid.UUID, until time.Time) (int64, error) {
	const op = "postgresrepo.ListingRepo.ExtendHold"

	tag, err := r.db.Exec(ctx,
		`UPDATE listings
		    SET reserved_by_order = $2, reserved_until = $3, updated_at = now()
		  WHERE id = ANY($1)
		    AND sold_by_order IS NULL
		    AND (reserved_by_order IS NULL
		         OR reserved_by_order = $2
		         OR reserved_until <= now())`,
		ids, orderID, until,
	)
	if err != nil {
		return 0, wrapDBErr(op, err)
	}

	return tag.RowsAffected(), nil
}

func (r *ListingRepo) ReleaseHolds(ctx context.Context, orderID uuid.UUID) (int64, error) {
	const op = "postgresrepo.ListingRepo.ReleaseHolds"

	tag, err := r.db.Exec(ctx,
		`UPDATE listings
		    SET reserved_by_order = NULL, reserved_until = NULL, updated_at = now()
		  WHERE reserved_by_order = $1
		    AND sold_by_order IS NULL`,
		orderID,
	)
	if err != nil {
		return 0, wrapDBErr(op, err)
	}

	return tag.RowsAffected(), nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
