package httpgin

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/kirinyoku/vastore/internal/domain"
)

const (
	cartCookie    = "cart_token"
	cartCookieAge = 90 * 24 * 60 * 60
)

func cartToken(c *gin.Context) string {
	v, err := c.Cookie(cartCookie)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(v)
}

func setCartCookie(c *gin.Context, token string) {
	secure := c.Request.TLS != nil ||
		strings.EqualFold(strings.TrimSpace(strings.Split(c.GetHeader("X-Forwarded-Proto"), ",")[0]), "https")

	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(cartCookie, token, cartCookieAge, "/", "", secure, true)
}

func cartView(cw *domain.CartWithItems) *CartView {
	items := cw.Items
	if items == nil {
		items = []domain.CartItem{}
	}
	return &CartView{ID: cw.Cart.ID.String(), Status: cw.Cart.Status, Items: items}
}

// @Summary  Get the guest cart
// @Success  200  {object}  CartResponse
// @Router   /api/cart [get]
func (h *handlers) getCart(c *gin.Context) {
	cw, err := h.svcs.Cart.Get(c.Request.Context(), cartToken(c))
	if err != nil {
		respondErr(c, err)
		return
	}
	if cw == nil {
		c.JSON(http.StatusOK, CartResponse{})
		return
	}
	c.JSON(http.StatusOK, CartResponse{Cart: cartView(cw)})
}

// @Summary  Ensure a guest cart exists
// @Success  200  {object}  CartResponse
// @Router   /api/cart [post]
func (h *handlers) ensureCart(c *gin.Context) {
	ctx := c.Request.Context()

	cr, err := h.svcs.Cart.Ensure(ctx, cartToken(c))
	if err != nil {
		respondErr(c, err)
		return
	}
	setCartCookie(c, cr.GuestToken)

	cw, err := h.svcs.Cart.Get(ctx, cr.GuestToken)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, CartResponse{Cart: cartView(cw)})
}

// @Summary  Add a listing to the cart
// @Param    req body  AddCartItemRequest true "payload"
// @Success  200 {object} AddCartItemResponse
// @Failure  404 {object} ErrorResponse "listing not found"
// @Failure  409 {object} ErrorResponse "listing unavailable"
// @Router   /api/cart/items [post]
func (h *handlers) addCartItem(c *gin.Context) {
	var req AddCartItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "listing_id required")
		return
	}

	res, err := h.svcs.Cart.AddItem(c.Request.Context(), cartToken(c), uuid.MustParse(req.ListingID), req.Name, req.Headline)
	if err != nil {
		respondErr(c, err)
		return
	}
	setCartCookie(c, res.Cart.GuestToken)

	c.JSON(http.StatusOK, AddCartItemResponse{Item: res.Item, Duplicated: res.Duplicated})
}

// @Summary  Remove a listing from the cart
// @Param    req body  RemoveCartItemRequest true "payload"
// @Success  200 {object} OKResponse
// @Router   /api/cart/items [delete]
func (h *handlers) removeCartItem(c *gin.Context) {
	raw := c.Query("listing_id")
	if raw == "" {
		var req RemoveCartItemRequest
		if err := c.ShouldBindJSON(&req); err == nil {
			raw = req.ListingID
		}
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		badRequest(c, "listing_id required")
		return
	}

	if err := h.svcs.Cart.RemoveItem(c.Request.Context(), cartToken(c), id); err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, OKResponse{OK: true})
}

// @Summary  Clear the cart
// @Success  200 {object} OKResponse
// @Router   /api/cart/clear [post]
func (h *handlers) clearCart(c *gin.Context) {
	if err := h.svcs.Cart.Clear(c.Request.Context(), cartToken(c)); err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, OKResponse{OK: true})
}

// @Summary  Validate a discount code
// @Param    code  query  string  true  "code"
// @Success  200 {object} DiscountValidateResponse
// @Router   /api/discount-codes/validate [get]
func (h *handlers) validateDiscount(c *gin.Context) {
	if strings.TrimSpace(c.Query("code")) == "" {
		c.JSON(http.StatusOK, DiscountValidateResponse{})
		return
	}

	code, pct, ok, err := h.svcs.Discount.Validate(c.Request.Context(), c.Query("code"))
	if err != nil {
		respondErr(c, err)
		return
	}
	if !ok {
		c.JSON(http.StatusOK, DiscountValidateResponse{})
		return
	}
	c.JSON(http.StatusOK, DiscountValidateResponse{Valid: true, Code: code, Pct: pct.String()})
}
