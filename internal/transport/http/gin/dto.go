package httpgin

import (
	"github.com/kirinyoku/vastore/internal/domain"
)

type ErrorResponse struct {
	Error      string   `json:"error"`
	ListingIDs []string `json:"listing_ids,omitempty"`
}

type OKResponse struct {
	OK    bool   `json:"ok"`
	Error string `json:"error,omitempty"`
}

type CartResponse struct {
	Cart *CartView `json:"cart"`
}

type CartView struct {
	ID     string            `json:"id"`
	Status domain.CartStatus `json:"status"`
	Items  []domain.CartItem `json:"items"`
}

type AddCartItemRequest struct {
	ListingID string `json:"listing_id" binding:"required,uuid"`
	Name      string `json:"name"`
	Headline  string `json:"headline"`
}

type AddCartItemResponse struct {
	Item       *domain.CartItem `json:"item"`
	Duplicated bool             `json:"duplicated,omitempty"`
}

type RemoveCartItemRequest struct {
	ListingID string `json:"listing_id" binding:"required,uuid"`
}

// CheckoutRequest is the buyer form shared by the reserve and invoice
// endpoints.
type CheckoutRequest struct {
	Email        string `json:"email" binding:"omitempty,email"`
	FullName     string `json:"fullName"`
	Telegram     string `json:"telegram"`
	Note         string `json:"note"`
	Address      string `json:"address"`
	City         string `json:"city"`
	Country      string `json:"country"`
	Region       string `json:"region"`
	Zip          string `json:"zip"`
	DiscountCode string `json:"discount_code"`
}

func (r CheckoutRequest) contact() domain.Contact {
	return domain.Contact{
		Email:    r.Email,
		FullName: r.FullName,
		Telegram: r.Telegram,
		Note:     r.Note,
		Address:  r.Address,
		City:     r.City,
		Country:  r.Country,
		Region:   r.Region,
		Zip:      r.Zip,
	}
}

type ReserveResponse struct {
	OK      bool   `json:"ok"`
	OrderID string `json:"order_id"`
	Total   string `json:"total"`
}

type InvoiceResponse struct {
	InvoiceURL string `json:"invoice_url"`
	InvoiceID  string `json:"invoice_id,omitempty"`
	OrderID    string `json:"order_id"`
}

type DiscountValidateResponse struct {
	Valid bool   `json:"valid"`
	Code  string `json:"code,omitempty"`
	Pct   string `json:"pct,omitempty"`
}

type AdminLoginRequest struct {
	Email    string `json:"email" binding:"required"`
	TOTPCode string `json:"totp_code"`
}

type CreateDiscountRequest struct {
	Code string `json:"code" binding:"required"`
}

type OrdersResponse struct {
	Orders []domain.Order `json:"orders"`
}

type DiscountCodesResponse struct {
	Codes []domain.DiscountCode `json:"codes"`
}
