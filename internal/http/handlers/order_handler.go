// README: Customer-facing order handlers.
package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"skyeats/internal/http/middleware"
	"skyeats/internal/modules/dispatch"
	"skyeats/internal/modules/order"
	"skyeats/internal/types"
)

type OrderHandler struct {
	orders   *order.Service
	dispatch *dispatch.Service
}

func NewOrderHandler(orders *order.Service, dispatch *dispatch.Service) *OrderHandler {
	return &OrderHandler{orders: orders, dispatch: dispatch}
}

type createOrderReq struct {
	Lines []struct {
		ItemID   string `json:"item_id"`
		Quantity int    `json:"quantity"`
		Note     string `json:"note"`
	} `json:"lines"`
	Target struct {
		Address string  `json:"address"`
		City    string  `json:"city"`
		State   string  `json:"state"`
		Lat     float64 `json:"lat"`
		Lng     float64 `json:"lng"`
		Note    string  `json:"note"`
	} `json:"target"`
	Contact struct {
		Name  string `json:"name"`
		Phone string `json:"phone"`
		Email string `json:"email"`
	} `json:"contact"`
}

func (h *OrderHandler) Create(c *gin.Context) {
	var req createOrderReq
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid json")
		return
	}
	cmd := order.CreateCommand{
		CustomerID: types.ID(middleware.CallerUID(c)),
		Target: order.DeliveryTarget{
			Address:     req.Target.Address,
			City:        req.Target.City,
			State:       req.Target.State,
			Coordinates: types.Point{Lat: req.Target.Lat, Lng: req.Target.Lng},
			Note:        req.Target.Note,
		},
		Contact: order.Contact{
			Name:  req.Contact.Name,
			Phone: req.Contact.Phone,
			Email: req.Contact.Email,
		},
	}
	for _, ln := range req.Lines {
		cmd.Lines = append(cmd.Lines, order.LineInput{
			ItemID:   types.ID(ln.ItemID),
			Quantity: ln.Quantity,
			Note:     ln.Note,
		})
	}
	o, err := h.orders.Create(c.Request.Context(), cmd)
	if err != nil {
		writeOrderError(c, err)
		return
	}
	c.JSON(http.StatusCreated, newOrderResponse(o))
}

func (h *OrderHandler) Get(c *gin.Context) {
	o, err := h.orders.Get(c.Request.Context(), types.ID(c.Param("id")), order.Actor{
		Type: "customer",
		ID:   types.ID(middleware.CallerUID(c)),
	})
	if err != nil {
		writeOrderError(c, err)
		return
	}
	c.JSON(http.StatusOK, newOrderResponse(o))
}

func (h *OrderHandler) List(c *gin.Context) {
	status, limit, offset := listParams(c)
	orders, err := h.orders.ListByCustomer(c.Request.Context(),
		types.ID(middleware.CallerUID(c)), status, limit, offset)
	if err != nil {
		writeOrderError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"orders": newOrderList(orders)})
}

func (h *OrderHandler) Cancel(c *gin.Context) {
	var req struct {
		Reason string `json:"reason"`
	}
	_ = c.ShouldBindJSON(&req) // body optional
	o, err := h.orders.CancelByCustomer(c.Request.Context(),
		types.ID(c.Param("id")), types.ID(middleware.CallerUID(c)), req.Reason)
	if err != nil {
		writeOrderError(c, err)
		return
	}
	c.JSON(http.StatusOK, newOrderResponse(o))
}

// Verify completes the delivery with the code handed over at the door.
func (h *OrderHandler) Verify(c *gin.Context) {
	var req struct {
		Code string `json:"code"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid json")
		return
	}
	o, err := h.dispatch.VerifyCompletion(c.Request.Context(),
		types.ID(c.Param("id")), types.ID(middleware.CallerUID(c)), req.Code)
	if err != nil {
		writeDispatchError(c, err)
		return
	}
	c.JSON(http.StatusOK, newOrderResponse(o))
}

func listParams(c *gin.Context) (order.Status, int, int) {
	status := order.Status(c.Query("status"))
	limit, _ := strconv.Atoi(c.Query("limit"))
	offset, _ := strconv.Atoi(c.Query("offset"))
	if offset < 0 {
		offset = 0
	}
	return status, limit, offset
}
