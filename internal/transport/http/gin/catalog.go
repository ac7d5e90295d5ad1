package httpgin

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const catalogCacheControl = "public, max-age=60, stale-while-revalidate=300"

// @Summary  List active listings
// @Param    limit  query  int  false  "page size"
// @Success  200  {object}  map[string][]catalog.ListingView
// @Router   /api/listings [get]
func (h *handlers) listListings(c *gin.Context) {
	out, err := h.svcs.Catalog.ListActive(c.Request.Context(), parseIntDefault(c.Query("limit"), 0))
	if err != nil {
		respondErr(c, err)
		return
	}
	writeCachedJSON(c, http.StatusOK, gin.H{"data": out}, catalogCacheControl)
}

// @Summary  Get listing
// @Param    id  path  string  true  "Listing ID (uuid)"
// @Success  200  {object}  map[string]catalog.ListingView
// @Failure  404  {object}  ErrorResponse
// @Router   /api/listings/{id} [get]
func (h *handlers) getListing(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		badRequest(c, "invalid id")
		return
	}

	v, err := h.svcs.Catalog.Get(c.Request.Context(), id)
	if err != nil {
		respondErr(c, err)
		return
	}
	writeCachedJSON(c, http.StatusOK, gin.H{"data": v}, catalogCacheControl)
}
