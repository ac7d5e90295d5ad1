package postgresrepo

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/kirinyoku/vastore/internal/domain"
	"github.com/kirinyoku/vastore/internal/repository"
)

type DiscountRepo struct {
	db DB
}

func (r *DiscountRepo) Get(ctx context.Context, code string) (*domain.DiscountCode, error) {
	const op = "postgresrepo.DiscountRepo.Get"

	var d domain.DiscountCode
	err := r.db.QueryRow(ctx,
		`SELECT code, discount_pct, created_at FROM discount_codes WHERE code = $1`,
		code,
	).Scan(&d.Code, &d.DiscountPct, &d.CreatedAt)
	if err != nil {
		return nil, wrapDBErr(op, err)
	}

	return &d, nil
}

func (r *DiscountRepo) List(ctx context.Context) ([]domain.DiscountCode, error) {
	const op = "postgresrepo.DiscountRepo.List"

	rows, err := r.db.Query(ctx,
		`SELECT code, discount_pct, created_at FROM discount_codes ORDER BY created_at DESC`)
	if err != nil {
		return nil, wrapDBErr(op, err)
	}
	defer rows.Close()

	out := []domain.DiscountCode{}
	for rows.Next() {
		var d domain.DiscountCode
		if err := rows.Scan(&d.Code, &d.DiscountPct, &d.CreatedAt); err != nil {
			return nil, wrapDBErr(op, err)
		}
		out = append(out, d)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapDBErr(op, err)
	}

	return out, nil
}

func (r *DiscountRepo) Create(ctx context.Context, code string, pct decimal.Decimal) (*domain.DiscountCode, error) {
	const op = "postgresrepo.DiscountRepo.Create"

	d := domain.DiscountCode{Code: code, DiscountPct: pct}
	err := r.db.QueryRow(ctx,
		`INSERT INTO discount_codes (code, discount_pct) VALUES ($1, $2) RETURNING created_at`,
		code, pct,
	).Scan(&d.CreatedAt)
	if err != nil {
		return nil, wrapDBErr(op, err)
	}

	return &d, nil
}

func (r *DiscountRepo) Delete(ctx context.Context, code string) error {
	const op = "postgresrepo.DiscountRepo.Delete"

	tag, err := r.db.Exec(ctx, `DELETE FROM discount_codes WHERE code = $1`, code)
	if err != nil {
		return wrapDBErr(op, err)
	}
	if tag.RowsAffected() == 0 {
		return wrapDBErr(op, repository.ErrNotFound)
	}

	return nil
}
