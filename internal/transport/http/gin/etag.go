package httpgin

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// writeCachedJSON writes v with a weak ETag and the given Cache-Control and
// answers 304 when any If-None-Match tag matches.
func writeCachedJSON(c *gin.Context, status int, v any, cacheControl string) {
	b, err := json.Marshal(v)
	if err != nil {
		_ = c.Error(err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, ErrorResponse{Error: "internal_error"})
		return
	}

	sum := sha256.Sum256(b)
	tag := `W/"` + hex.EncodeToString(sum[:16]) + `"`

	c.Header("ETag", tag)
	if cacheControl != "" {
		c.Header("Cache-Control", cacheControl)
	}

	for _, cand := range strings.Split(c.GetHeader("If-None-Match"), ",") {
		cand = strings.TrimSpace(cand)
		if cand == tag || cand == "*" {
			c.Status(http.StatusNotModified)
			return
		}
	}

	c.Data(status, "application/json; charset=utf-8", b)
}
