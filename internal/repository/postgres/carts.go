package postgresrepo

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/kirinyoku/vastore/internal/domain"
	"github.com/kirinyoku/vastore/internal/repository"
)

type CartRepo struct {
	db DB
}

func (r *CartRepo) GetByToken(ctx context.Context, token string) (*domain.Cart, error) {
	const op = "postgresrepo.CartRepo.GetByToken"

	var c domain.Cart
	err := r.db.QueryRow(ctx,
		`SELECT id, guest_token, status, created_at FROM carts WHERE guest_token = $1`,
		token,
	).Scan(&c.ID, &c.GuestToken, &c.Status, &c.CreatedAt)
	if err != nil {
		return nil, wrapDBErr(op, err)
	}

	return &c, nil
}

func (r *CartRepo) Create(ctx context.Context, token string) (*domain.Cart, error) {
	const op = "postgresrepo.CartRepo.Create"

	c := domain.Cart{ID: uuid.New(), GuestToken: token, Status: domain.CartActive}
	err := r.db.QueryRow(ctx,
		`INSERT INTO carts (id, guest_token, status) VALUES ($1, $2, $3)
		 RETURNING created_at`,
		c.ID, c.GuestToken, c.Status,
	).Scan(&c.CreatedAt)
	if err != nil {
		return nil, wrapDBErr(op, err)
	}

	return &c, nil
}

func (r *CartRepo) SetStatus(ctx context.Context, cartID uuid.UUID, status domain.CartStatus) error {
	const op = "postgresrepo.CartRepo.SetStatus"

	tag, err := r.db.Exec(ctx, `UPDATE carts SET status = $2 WHERE id = $1`, cartID, status)
	if err != nil {
		return wrapDBErr(op, err)
	}
	if tag.RowsAffected() == 0 {
		return wrapDBErr(op, repository.ErrNotFound)
	}

	return nil
}

func (r *CartRepo) Items(ctx context.Context, cartID uuid.UUID) ([]domain.CartItem, error) {
	const op = "postgresrepo.CartRepo.Items"

	rows, err := r.db.Query(ctx,
		`SELECT id, cart_id, listing_id, name, headline, price, created_at
		 FROM cart_items
		 WHERE cart_id = $1
		 ORDER BY created_at`,
		cartID,
	)
	if err != nil {
		return nil, wrapDBErr(op, err)
	}
	defer rows.Close()

	items := []domain.CartItem{}
	for rows.Next() {
		var it domain.CartItem
		if err := rows.Scan(&it.ID, &it.CartID, &it.ListingID, &it.Name, &it.Headline, &it.Price, &it.CreatedAt); err != nil {
			return nil, wrapDBErr(op, err)
		}
		items = append(items, it)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapDBErr(op, err)
	}

	return items, nil
}

// AddItem relies on the (cart_id, listing_id) unique key: a conflicting
// insert returns nothing and the existing row is read back instead.
func (r *CartRepo) AddItem(ctx context.Context, item domain.CartItem) (*domain.CartItem, bool, error) {
	const op = "postgresrepo.CartRepo.AddItem"

	if item.ID == uuid.Nil {
		item.ID = uuid.New()
	}

	err := r.db.QueryRow(ctx,
		`INSERT INTO cart_items (id, cart_id, listing_id, name, headline, price)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 ON CONFLICT (cart_id, listing_id) DO NOTHING
		 RETURNING created_at`,
		item.ID, item.CartID, item.ListingID, item.Name, item.Headline, item.Price,
	).Scan(&item.CreatedAt)
	if err == nil {
		return &item, false, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, false, wrapDBErr(op, err)
	}

	var existing domain.CartItem
	err = r.db.QueryRow(ctx,
		`SELECT id, cart_id, listing_id, name, headline, price, created_at
		 FROM cart_items
		 WHERE cart_id = $1 AND listing_id = $2`,
		item.CartID, item.ListingID,
	).Scan(&existing.ID, &existing.CartID, &existing.ListingID, &existing.Name, &existing.Headline, &existing.Price, &existing.CreatedAt)
	if err != nil {
		return nil, false, wrapDBErr(op, err)
	}

	return &existing, true, nil
}

func (r *CartRepo) RemoveItem(ctx context.Context, cartID, listingID uuid.UUID) error {
	const op = "postgresrepo.CartRepo.RemoveItem"

	if _, err := r.db.Exec(ctx,
		`DELETE FROM cart_items WHERE cart_id = $1 AND listing_id = $2`,
		cartID, listingID,
	); err != nil {
		return wrapDBErr(op, err)
	}

	return nil
}

func (r *CartRepo) ClearItems(ctx context.Context, cartID uuid.UUID) error {
	const op = "postgresrepo.CartRepo.ClearItems"

	if _, err := r.db.Exec(ctx, `DELETE FROM cart_items WHERE cart_id = $1`, cartID); err != nil {
		return wrapDBErr(op, err)
	}

	return nil
}
