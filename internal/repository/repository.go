package repository

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/kirinyoku/vastore/internal/domain"
)

// Store groups the repositories and runs work in a transaction. The Store
// passed to RunTx's callback is bound to that transaction.
type Store interface {
	Listings() ListingRepository
	Carts() CartRepository
	Orders() OrderRepository
	Discounts() DiscountRepository

	RunTx(ctx context.Context, fn func(ctx context.Context, tx Store) error) error
}

type ListingRepository interface {
	Get(ctx context.Context, id uuid.UUID) (*domain.Listing, error)
	GetMany(ctx context.Context, ids []uuid.UUID) ([]domain.Listing, error)
	ListActive(ctx context.Context, limit int) ([]domain.Listing, error)
	Create(ctx context.Context, l *domain.Listing) error
	Update(ctx context.Context, l *domain.Listing) error

	// Reserve holds every listing in ids for orderID until the given time.
	// It fails with ErrListingsUnavailable unless all of them could be held.
	Reserve(ctx context.Context, orderID uuid.UUID, ids []uuid.UUID, until time.Time) error
	// Sell marks unsold listings as sold to orderID and returns how many
	// rows changed.
	Sell(ctx context.Context, orderID uuid.UUID, ids []uuid.UUID) (int64, error)
	// ExtendHold pushes the hold of orderID forward, taking over empty or
	// expired holds.
	ExtendHold(ctx context.Context, orderID uuid.UUID, ids []uuid.UUID, until time.Time) (int64, error)
	// ReleaseHolds clears every unsold hold of orderID.
	ReleaseHolds(ctx context.Context, orderID uuid.UUID) (int64, error)
}

type CartRepository interface {
	GetByToken(ctx context.Context, token string) (*domain.Cart, error)
	Create(ctx context.Context, token string) (*domain.Cart, error)
	SetStatus(ctx context.Context, cartID uuid.UUID, status domain.CartStatus) error
	Items(ctx context.Context, cartID uuid.UUID) ([]domain.CartItem, error)
	// AddItem inserts item; when the listing is already in the cart it
	// returns the existing row and duplicated=true.
	AddItem(ctx context.Context, item domain.CartItem) (*domain.CartItem, bool, error)
	RemoveItem(ctx context.Context, cartID, listingID uuid.UUID) error
	ClearItems(ctx context.Context, cartID uuid.UUID) error
}

type OrderRepository interface {
	Get(ctx context.Context, id uuid.UUID) (*domain.Order, error)
	List(ctx context.Context, limit int) ([]domain.Order, error)

	// FindReusablePending returns the latest pending order of the cart that
	// has no invoice yet.
	FindReusablePending(ctx context.Context, cartID uuid.UUID) (*domain.Order, error)
	Create(ctx context.Context, d domain.OrderDraft) (*domain.Order, error)
	UpdateDraft(ctx context.Context, id uuid.UUID, d domain.OrderDraft) (*domain.Order, error)
	SetInvoice(ctx context.Context, id uuid.UUID, invoiceID, invoiceURL string) error

	RecordIPN(ctx context.Context, id uuid.UUID, status string, payload json.RawMessage) error
	// MarkPaid and MarkFailed only move pending orders and report whether
	// they did.
	MarkPaid(ctx context.Context, id uuid.UUID, at time.Time) (bool, error)
	MarkFailed(ctx context.Context, id uuid.UUID) (bool, error)

	// ClaimGuideEmail stamps guide_email_sent_at on a paid, unclaimed order.
	// It returns ErrNotClaimed when another delivery got there first.
	ClaimGuideEmail(ctx context.Context, id uuid.UUID) (*domain.Order, error)
	RecordGuideEmailSent(ctx context.Context, id uuid.UUID, messageID string) error
	RevertGuideEmailClaim(ctx context.Context, id uuid.UUID, reason string) error
}

type DiscountRepository interface {
	Get(ctx context.Context, code string) (*domain.DiscountCode, error)
	List(ctx context.Context) ([]domain.DiscountCode, error)
	Create(ctx context.Context, code string, pct decimal.Decimal) (*domain.DiscountCode, error)
	Delete(ctx context.Context, code string) error
}
