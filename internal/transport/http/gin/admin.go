package httpgin

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/kirinyoku/vastore/internal/domain"
	"github.com/kirinyoku/vastore/internal/service/admin"
)

// @Summary  Operator login
// @Param    req body  AdminLoginRequest true "email and current TOTP code"
// @Success  200 {object} adminauth.Session
// @Failure  400 {object} OKResponse "Invalid credentials"
// @Failure  429 {object} ErrorResponse "rate limited"
// @Router   /api/admin/login [post]
func (h *handlers) adminLogin(c *gin.Context) {
	var req AdminLoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, OKResponse{OK: false, Error: "Invalid credentials"})
		return
	}

	sess, err := h.svcs.AdminAuth.Login(c.Request.Context(), req.Email, req.TOTPCode, c.ClientIP())
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, sess)
}

// @Summary  Recent orders
// @Security AdminBearer
// @Success  200 {object} OrdersResponse
// @Router   /api/admin/orders [get]
func (h *handlers) adminListOrders(c *gin.Context) {
	list, err := h.svcs.Orders.List(c.Request.Context())
	if err != nil {
		respondErr(c, err)
		return
	}
	if list == nil {
		list = []domain.Order{}
	}
	c.JSON(http.StatusOK, OrdersResponse{Orders: list})
}

// @Summary  One order with its payment and email audit fields
// @Security AdminBearer
// @Param    id  path  string  true  "order uuid"
// @Success  200 {object} domain.Order
// @Failure  404 {object} ErrorResponse
// @Router   /api/admin/orders/{id} [get]
func (h *handlers) adminGetOrder(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		badRequest(c, "invalid order id")
		return
	}

	o, err := h.svcs.Orders.Get(c.Request.Context(), id)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, o)
}

// @Summary  Create a listing
// @Security AdminBearer
// @Param    req body  admin.ListingInput true "listing fields"
// @Success  201 {object} domain.Listing
// @Failure  400 {object} ErrorResponse
// @Router   /api/admin/listings [post]
func (h *handlers) adminCreateListing(c *gin.Context) {
	var in admin.ListingInput
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, err.Error())
		return
	}

	l, err := h.svcs.Admin.CreateListing(c.Request.Context(), in)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusCreated, l)
}

// @Summary  Update a listing's catalog fields
// @Security AdminBearer
// @Param    id  path  string  true  "listing uuid"
// @Param    req body  admin.ListingInput true "listing fields"
// @Success  200 {object} domain.Listing
// @Failure  404 {object} ErrorResponse
// @Router   /api/admin/listings/{id} [put]
func (h *handlers) adminUpdateListing(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		badRequest(c, "invalid listing id")
		return
	}

	var in admin.ListingInput
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, err.Error())
		return
	}

	l, err := h.svcs.Admin.UpdateListing(c.Request.Context(), id, in)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, l)
}

// @Summary  List discount codes
// @Security AdminBearer
// @Success  200 {object} DiscountCodesResponse
// @Router   /api/admin/discount-codes [get]
func (h *handlers) adminListDiscounts(c *gin.Context) {
	codes, err := h.svcs.Discount.List(c.Request.Context())
	if err != nil {
		respondErr(c, err)
		return
	}
	if codes == nil {
		codes = []domain.DiscountCode{}
	}
	c.JSON(http.StatusOK, DiscountCodesResponse{Codes: codes})
}

// @Summary  Create a discount code at the default rate
// @Security AdminBearer
// @Param    req body  CreateDiscountRequest true "code"
// @Success  201 {object} domain.DiscountCode
// @Failure  400 {object} ErrorResponse "invalid_code"
// @Failure  409 {object} ErrorResponse "code_exists"
// @Router   /api/admin/discount-codes [post]
func (h *handlers) adminCreateDiscount(c *gin.Context) {
	var req CreateDiscountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid_code")
		return
	}

	dc, err := h.svcs.Discount.Create(c.Request.Context(), req.Code)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusCreated, dc)
}

// adminDeleteDiscount takes the code from the path, the query string or a
// JSON body, in that order.
//
// @Summary  Delete a discount code
// @Security AdminBearer
// @Param    code  path  string  false  "code"
// @Success  200 {object} OKResponse
// @Failure  404 {object} ErrorResponse "code_not_found"
// @Router   /api/admin/discount-codes/{code} [delete]
func (h *handlers) adminDeleteDiscount(c *gin.Context) {
	code := strings.TrimSpace(c.Param("code"))
	if code == "" {
		code = strings.TrimSpace(c.Query("code"))
	}
	if code == "" {
		var req CreateDiscountRequest
		if err := bindOptionalJSON(c, &req); err == nil {
			code = strings.TrimSpace(req.Code)
		}
	}
	if code == "" {
		badRequest(c, "invalid_code")
		return
	}

	if err := h.svcs.Discount.Delete(c.Request.Context(), code); err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, OKResponse{OK: true})
}
