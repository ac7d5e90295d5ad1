package domain

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type CartStatus string

const (
	CartActive  CartStatus = "active"
	CartCleared CartStatus = "cleared"
)

type OrderStatus string

const (
	OrderPending OrderStatus = "pending"
	OrderPaid    OrderStatus = "paid"
	OrderFailed  OrderStatus = "failed"
)

// Listing is a sellable VA profile. The reservation and sale columns are kept
// flat for persistence; use State to reason about them.
type Listing struct {
	ID            uuid.UUID       `json:"id"`
	Name          string          `json:"name"`
	Headline      string          `json:"headline,omitempty"`
	Description   string          `json:"description,omitempty"`
	Categories    []string        `json:"categories,omitempty"`
	Languages     []string        `json:"languages,omitempty"`
	Skills        []string        `json:"skills,omitempty"`
	HourlyRate    decimal.Decimal `json:"hourly_rate"`
	PurchasePrice decimal.Decimal `json:"purchase_price"`
	Rating        decimal.Decimal `json:"rating"`
	ReviewsCount  int             `json:"reviews_count"`
	IsActive      bool            `json:"is_active"`

	ContactEmail    *string `json:"-"`
	ContactTelegram *string `json:"-"`
	ContactPhone    *string `json:"-"`

	ReservedByOrder *uuid.UUID `json:"-"`
	ReservedUntil   *time.Time `json:"-"`
	SoldByOrder     *uuid.UUID `json:"-"`
	SoldAt          *time.Time `json:"-"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// State decodes the flat reservation/sale columns.
func (l *Listing) State() (ListingState, error) {
	return NewListingState(l.ReservedByOrder, l.ReservedUntil, l.SoldByOrder, l.SoldAt)
}

type Cart struct {
	ID         uuid.UUID  `json:"id"`
	GuestToken string     `json:"-"`
	Status     CartStatus `json:"status"`
	CreatedAt  time.Time  `json:"created_at"`
}

type CartItem struct {
	ID        uuid.UUID       `json:"id"`
	CartID    uuid.UUID       `json:"cart_id"`
	ListingID uuid.UUID       `json:"listing_id"`
	Name      string          `json:"name"`
	Headline  string          `json:"headline,omitempty"`
	Price     decimal.Decimal `json:"price"`
	CreatedAt time.Time       `json:"created_at"`
}

type CartWithItems struct {
	Cart  Cart       `json:"cart"`
	Items []CartItem `json:"items"`
}

// OrderItem is one line of the immutable purchase snapshot.
type OrderItem struct {
	ListingID uuid.UUID       `json:"listing_id"`
	Name      string          `json:"name"`
	Price     decimal.Decimal `json:"price"`
}

type Contact struct {
	Email    string `json:"email,omitempty"`
	FullName string `json:"full_name,omitempty"`
	Telegram string `json:"telegram,omitempty"`
	Note     string `json:"note,omitempty"`
	Address  string `json:"address,omitempty"`
	City     string `json:"city,omitempty"`
	Country  string `json:"country,omitempty"`
	Region   string `json:"region,omitempty"`
	Zip      string `json:"zip,omitempty"`
}

type Order struct {
	ID     uuid.UUID   `json:"id"`
	CartID uuid.UUID   `json:"cart_id"`
	Status OrderStatus `json:"status"`

	Contact

	ItemCount      int             `json:"item_count"`
	Items          []OrderItem     `json:"items"`
	Total          decimal.Decimal `json:"total"`
	FiatAmountUSD  decimal.Decimal `json:"fiat_amount_usd"`
	DiscountCode   *string         `json:"discount_code,omitempty"`
	DiscountPct    decimal.Decimal `json:"discount_pct"`
	DiscountAmount decimal.Decimal `json:"discount_amount"`

	PaidAt        *time.Time `json:"paid_at,omitempty"`
	NowInvoiceID  *string    `json:"now_invoice_id,omitempty"`
	NowInvoiceURL *string    `json:"now_invoice_url,omitempty"`

	IPNStatus  *string         `json:"ipn_status,omitempty"`
	IPNPayload json.RawMessage `json:"ipn_payload,omitempty"`

	GuideEmailSentAt    *time.Time `json:"guide_email_sent_at,omitempty"`
	GuideEmailMessageID *string    `json:"guide_email_message_id,omitempty"`
	GuideEmailError     *string    `json:"guide_email_error,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}

// ListingIDs returns the listing ids named by the order snapshot.
func (o *Order) ListingIDs() []uuid.UUID {
	ids := make([]uuid.UUID, 0, len(o.Items))
	for _, it := range o.Items {
		if it.ListingID != uuid.Nil {
			ids = append(ids, it.ListingID)
		}
	}
	return ids
}

// OrderDraft carries the fields written when a pending order is created or
// refreshed from the cart.
type OrderDraft struct {
	CartID         uuid.UUID
	Contact        Contact
	Items          []OrderItem
	Total          decimal.Decimal
	DiscountCode   *string
	DiscountPct    decimal.Decimal
	DiscountAmount decimal.Decimal
}

type DiscountCode struct {
	Code        string          `json:"code"`
	DiscountPct decimal.Decimal `json:"discount_pct"`
	CreatedAt   time.Time       `json:"created_at"`
}
