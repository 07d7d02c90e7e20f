// Tag resolution HTTP handlers.
//
// This file exposes the substitution-variable endpoints:
//   - GET /tags/dictionary     (full vocabulary, grouped by category)
//   - GET /tags/:folio         (resolved values for one sale)
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/casaluz/go-notify-backend/internal/tags"
)

// TagDictionary handles GET /tags/dictionary. It returns the complete tag
// vocabulary with empty values, grouped the way the template editor shows it.
func (h *Handlers) TagDictionary(c *gin.Context) {
	ok(c, http.StatusOK, gin.H{"categorias": tags.Catalog(nil)})
}

// InspectFolio handles GET /tags/:folio. It resolves every tag of one sale
// and returns only the populated values, grouped by category. An unknown
// folio returns a 404 rather than an empty catalog.
func (h *Handlers) InspectFolio(c *gin.Context) {
	folio := c.Param("folio")
	values, err := h.tagSvc.Resolve(c.Request.Context(), folio)
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeInternal, "tag resolution failed")
		return
	}
	if len(values) == 0 {
		fail(c, http.StatusNotFound, ErrCodeNotFound, "folio not found")
		return
	}
	ok(c, http.StatusOK, gin.H{
		"folio":      folio,
		"categorias": tags.Catalog(values),
	})
}
