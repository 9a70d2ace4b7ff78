// README: Customer cart handlers.
package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"skyeats/internal/http/middleware"
	"skyeats/internal/modules/cart"
	"skyeats/internal/modules/catalog"
	"skyeats/internal/types"
)

type CartHandler struct {
	carts   *cart.Store
	catalog *catalog.Store
}

func NewCartHandler(carts *cart.Store, cat *catalog.Store) *CartHandler {
	return &CartHandler{carts: carts, catalog: cat}
}

func (h *CartHandler) Get(c *gin.Context) {
	crt, err := h.carts.Get(c.Request.Context(), types.ID(middleware.CallerUID(c)))
	if err != nil {
		writeError(c, http.StatusInternalServerError, "internal error")
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"customer_id":  crt.CustomerID,
		"lines":        crt.Lines,
		"total_amount": crt.TotalAmount,
	})
}

type putCartReq struct {
	Lines []struct {
		ItemID   string `json:"item_id"`
		Quantity int    `json:"quantity"`
		Note     string `json:"note"`
	} `json:"lines"`
}

// Put replaces the cart. Prices are resolved from the catalog, never taken
// from the client.
func (h *CartHandler) Put(c *gin.Context) {
	var req putCartReq
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid json")
		return
	}
	ctx := c.Request.Context()
	crt := &cart.Cart{CustomerID: types.ID(middleware.CallerUID(c))}
	for _, ln := range req.Lines {
		if ln.Quantity < 1 {
			writeError(c, http.StatusBadRequest, "line quantity must be at least 1")
			return
		}
		item, err := h.catalog.GetItem(ctx, types.ID(ln.ItemID))
		if err != nil {
			if errors.Is(err, catalog.ErrNotFound) {
				writeError(c, http.StatusBadRequest, "unknown item "+ln.ItemID)
				return
			}
			writeError(c, http.StatusInternalServerError, "internal error")
			return
		}
		crt.Lines = append(crt.Lines, cart.Line{
			ItemID:   item.ID,
			Quantity: ln.Quantity,
			Price:    item.Price,
			Note:     ln.Note,
		})
	}
	if err := h.carts.Put(ctx, crt); err != nil {
		writeError(c, http.StatusInternalServerError, "internal error")
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"customer_id":  crt.CustomerID,
		"lines":        crt.Lines,
		"total_amount": crt.TotalAmount,
	})
}

func (h *CartHandler) Clear(c *gin.Context) {
	if err := h.carts.Clear(c.Request.Context(), types.ID(middleware.CallerUID(c))); err != nil {
		writeError(c, http.StatusInternalServerError, "internal error")
		return
	}
	c.Status(http.StatusNoContent)
}
