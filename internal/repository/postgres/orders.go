package postgresrepo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/kirinyoku/vastore/internal/domain"
	"github.com/kirinyoku/vastore/internal/repository"
)

const orderCols = `id, cart_id, status,
	email, full_name, telegram, note, address, city, country, region, zip,
	item_count, items, total, fiat_amount_usd,
	discount_code, discount_pct, discount_amount,
	paid_at, now_invoice_id, now_invoice_url, ipn_status, ipn_payload,
	guide_email_sent_at, guide_email_message_id, guide_email_error,
	created_at`

type OrderRepo struct {
	db DB
}

func scanOrder(row pgx.Row) (*domain.Order, error) {
	var (
		o     domain.Order
		items []byte
		ipn   []byte
	)
	err := row.Scan(
		&o.ID, &o.CartID, &o.Status,
		&o.Email, &o.FullName, &o.Telegram, &o.Note, &o.Address, &o.City, &o.Country, &o.Region, &o.Zip,
		&o.ItemCount, &items, &o.Total, &o.FiatAmountUSD,
		&o.DiscountCode, &o.DiscountPct, &o.DiscountAmount,
		&o.PaidAt, &o.NowInvoiceID, &o.NowInvoiceURL, &o.IPNStatus, &ipn,
		&o.GuideEmailSentAt, &o.GuideEmailMessageID, &o.GuideEmailError,
		&o.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	if len(items) > 0 {
		if err := json.Unmarshal(items, &o.Items); err != nil {
			return nil, fmt.Errorf("decode items: %w", err)
		}
	}
	if len(ipn) > 0 {
		o.IPNPayload = json.RawMessage(ipn)
	}

	return &o, nil
}

func (r *OrderRepo) Get(ctx context.Context, id uuid.UUID) (*domain.Order, error) {
	const op = "postgresrepo.OrderRepo.Get"

	o, err := scanOrder(r.db.QueryRow(ctx, `SELECT `+orderCols+` FROM orders WHERE id = $1`, id))
	if err != nil {
		return nil, wrapDBErr(op, err)
	}

	return o, nil
}

func (r *OrderRepo) List(ctx context.Context, limit int) ([]domain.Order, error) {
	const op = "postgresrepo.OrderRepo.List"

	rows, err := r.db.Query(ctx,
		`SELECT `+orderCols+` FROM orders ORDER BY created_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, wrapDBErr(op, err)
	}
	defer rows.Close()

	out := []domain.Order{}
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, wrapDBErr(op, err)
		}
		out = append(out, *o)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapDBErr(op, err)
	}

	return out, nil
}

func (r *OrderRepo) FindReusablePending(ctx context.Context, cartID uuid.UUID) (*domain.Order, error) {
	const op = "postgresrepo.OrderRepo.FindReusablePending"

	o, err := scanOrder(r.db.QueryRow(ctx,
		`SELECT `+orderCols+`
		 FROM orders
		 WHERE cart_id = $1 AND status = 'pending' AND now_invoice_url IS NULL
		 ORDER BY created_at DESC
		 LIMIT 1`,
		cartID,
	))
	if err != nil {
		return nil, wrapDBErr(op, err)
	}

	return o, nil
}

// Create inserts a pending order. A second reusable pending order for the
// same cart violates orders_one_reusable_pending_per_cart and is reported as
// repository.ErrConflict.
func (r *OrderRepo) Create(ctx context.Context, d domain.OrderDraft) (*domain.Order, error) {
	const op = "postgresrepo.OrderRepo.Create"

	items, err := json.Marshal(d.Items)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	c := d.Contact
	o, err := scanOrder(r.db.QueryRow(ctx,
		`INSERT INTO orders (
			id, cart_id, status,
			email, full_name, telegram, note, address, city, country, region, zip,
			item_count, items, total, fiat_amount_usd,
			discount_code, discount_pct, discount_amount
		 ) VALUES ($1, $2, 'pending', $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $14, $15, $16, $17)
		 RETURNING `+orderCols,
		uuid.New(), d.CartID,
		c.Email, c.FullName, c.Telegram, c.Note, c.Address, c.City, c.Country, c.Region, c.Zip,
		len(d.Items), items, d.Total,
		d.DiscountCode, d.DiscountPct, d.DiscountAmount,
	))
	if err != nil {
		return nil, wrapDBErr(op, err)
	}

	return o, nil
}

// UpdateDraft refreshes snapshot, totals and contact of a reusable pending
// order. It returns repository.ErrNotFound once the order was invoiced or
// left pending.
func (r *OrderRepo) UpdateDraft(ctx context.Context, id uuid.UUID, d domain.OrderDraft) (*domain.Order, error) {
	const op = "postgresrepo.OrderRepo.UpdateDraft"

	items, err := json.Marshal(d.Items)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	c := d.Contact
	o, err := scanOrder(r.db.QueryRow(ctx,
		`UPDATE orders SET
			email = $2, full_name = $3, telegram = $4, note = $5, address = $6,
			city = $7, country = $8, region = $9, zip = $10,
			item_count = $11, items = $12, total = $13, fiat_amount_usd = $13,
			discount_code = $14, discount_pct = $15, discount_amount = $16
		 WHERE id = $1 AND status = 'pending' AND now_invoice_url IS NULL
		 RETURNING `+orderCols,
		id,
		c.Email, c.FullName, c.Telegram, c.Note, c.Address, c.City, c.Country, c.Region, c.Zip,
		len(d.Items), items, d.Total,
		d.DiscountCode, d.DiscountPct, d.DiscountAmount,
	))
	if err != nil {
		return nil, wrapDBErr(op, err)
	}

	return o, nil
}

func (r *OrderRepo) SetInvoice(ctx context.Context, id uuid.UUID, invoiceID, invoiceURL string) error {
	const op = "postgresrepo.OrderRepo.SetInvoice"

	tag, err := r.db.Exec(ctx,
		`UPDATE orders
		    SET now_invoice_id = COALESCE(NULLIF($2, ''), now_invoice_id),
		        now_invoice_url = $3
		  WHERE id = $1`,
		id, invoiceID, invoiceURL,
	)
	if err != nil {
		return wrapDBErr(op, err)
	}
	if tag.RowsAffected() == 0 {
		return wrapDBErr(op, repository.ErrNotFound)
	}

	return nil
}

func (r *OrderRepo) RecordIPN(ctx context.Context, id uuid.UUID, status string, payload json.RawMessage) error {
	const op = "postgresrepo.OrderRepo.RecordIPN"

	var body any
	if len(payload) > 0 {
		body = []byte(payload)
	}

	tag, err := r.db.Exec(ctx,
		`UPDATE orders SET ipn_status = $2, ipn_payload = $3 WHERE id = $1`,
		id, status, body,
	)
	if err != nil {
		return wrapDBErr(op, err)
	}
	if tag.RowsAffected() == 0 {
		return wrapDBErr(op, repository.ErrNotFound)
	}

	return nil
}

func (r *OrderRepo) MarkPaid(ctx context.Context, id uuid.UUID, at time.Time) (bool, error) {
	const op = "postgresrepo.OrderRepo.MarkPaid"

	tag, err := r.db.Exec(ctx,
		`UPDATE orders SET status = 'paid', paid_at = $2 WHERE id = $1 AND status = 'pending'`,
		id, at,
	)
	if err != nil {
		return false, wrapDBErr(op, err)
	}

	return tag.RowsAffected() == 1, nil
}

func (r *OrderRepo) MarkFailed(ctx context.Context, id uuid.UUID) (bool, error) {
	const op = "postgresrepo.OrderRepo.MarkFailed"

	tag, err := r.db.Exec(ctx,
		`UPDATE orders SET status = 'failed' WHERE id = $1 AND status = 'pending'`,
		id,
	)
	if err != nil {
		return false, wrapDBErr(op, err)
	}

	return tag.RowsAffected() == 1, nil
}

// ClaimGuideEmail is the exactly-once gate for the welcome email: only one
// caller can move guide_email_sent_at from NULL.
func (r *OrderRepo) ClaimGuideEmail(ctx context.Context, id uuid.UUID) (*domain.Order, error) {
	const op = "postgresrepo.OrderRepo.ClaimGuideEmail"

	o, err := scanOrder(r.db.QueryRow(ctx,
		`UPDATE orders
		    SET guide_email_sent_at = now()
		  WHERE id = $1
		    AND guide_email_sent_at IS NULL
		    AND status = 'paid'
		  RETURNING `+orderCols,
		id,
	))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%s:%w", op, repository.ErrNotClaimed)
	}
	if err != nil {
		return nil, wrapDBErr(op, err)
	}

	return o, nil
}

func (r *OrderRepo) RecordGuideEmailSent(ctx context.Context, id uuid.UUID, messageID string) error {
	const op = "postgresrepo.OrderRepo.RecordGuideEmailSent"

	if _, err := r.db.Exec(ctx,
		`UPDATE orders
		    SET guide_email_message_id = $2, guide_email_error = NULL
		  WHERE id = $1`,
		id, messageID,
	); err != nil {
		return wrapDBErr(op, err)
	}

	return nil
}

func (r *OrderRepo) RevertGuideEmailClaim(ctx context.Context, id uuid.UUID, reason string) error {
	const op = "postgresrepo.OrderRepo.RevertGuideEmailClaim"

	if _, err := r.db.Exec(ctx,
		`UPDATE orders
		    SET guide_email_sent_at = NULL, guide_email_error = $2
		  WHERE id = $1 AND guide_email_message_id IS NULL`,
		id, reason,
	); err != nil {
		return wrapDBErr(op, err)
	}

	return nil
}
