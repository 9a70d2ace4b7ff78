// README: Shop operator handlers: order pipeline, drone assignment, battery reports.
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"skyeats/internal/http/middleware"
	"skyeats/internal/modules/dispatch"
	"skyeats/internal/modules/drone"
	"skyeats/internal/modules/order"
	"skyeats/internal/types"
)

type ShopHandler struct {
	orders   *order.Service
	dispatch *dispatch.Service
	drones   *drone.Service
}

func NewShopHandler(orders *order.Service, dispatch *dispatch.Service, drones *drone.Service) *ShopHandler {
	return &ShopHandler{orders: orders, dispatch: dispatch, drones: drones}
}

func (h *ShopHandler) operator(c *gin.Context) types.ID {
	return types.ID(middleware.CallerUID(c))
}

func (h *ShopHandler) List(c *gin.Context) {
	status, limit, offset := listParams(c)
	orders, err := h.orders.ListByShopOwner(c.Request.Context(), h.operator(c), status, limit, offset)
	if err != nil {
		writeOrderError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"orders": newOrderList(orders)})
}

func (h *ShopHandler) Get(c *gin.Context) {
	o, err := h.orders.Get(c.Request.Context(), types.ID(c.Param("id")), order.Actor{
		Type: "operator",
		ID:   h.operator(c),
	})
	if err != nil {
		writeOrderError(c, err)
		return
	}
	c.JSON(http.StatusOK, newOrderResponse(o))
}

func (h *ShopHandler) UpdateStatus(c *gin.Context) {
	var req struct {
		Status string `json:"status"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || req.Status == "" {
		writeError(c, http.StatusBadRequest, "missing status")
		return
	}
	o, err := h.orders.UpdateStatusByOperator(c.Request.Context(),
		types.ID(c.Param("id")), h.operator(c), order.Status(req.Status))
	if err != nil {
		writeOrderError(c, err)
		return
	}
	c.JSON(http.StatusOK, newOrderResponse(o))
}

// EligibleDrones lists assignable drones of the shop that owns the order's
// lines: available and above the battery floor, best battery first.
func (h *ShopHandler) EligibleDrones(c *gin.Context) {
	ctx := c.Request.Context()
	o, err := h.orders.Get(ctx, types.ID(c.Param("id")), order.Actor{Type: "operator", ID: h.operator(c)})
	if err != nil {
		writeOrderError(c, err)
		return
	}
	shopID := shopIDForOperator(o, h.operator(c))
	drones, err := h.drones.ListEligible(ctx, shopID)
	if err != nil {
		writeDroneError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"drones": newDroneList(drones)})
}

func (h *ShopHandler) Assign(c *gin.Context) {
	var req struct {
		DroneID string `json:"drone_id"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || req.DroneID == "" {
		writeError(c, http.StatusBadRequest, "missing drone_id")
		return
	}
	res, err := h.dispatch.Assign(c.Request.Context(),
		types.ID(c.Param("id")), types.ID(req.DroneID), h.operator(c))
	if err != nil {
		writeDispatchError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"confirm_code":         res.ConfirmCode,
		"delivery_distance_km": res.DeliveryDistanceKm,
	})
}

func (h *ShopHandler) UpdateBattery(c *gin.Context) {
	var req struct {
		BatteryPercent int `json:"battery_percent"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid json")
		return
	}
	o, err := h.dispatch.UpdateBattery(c.Request.Context(),
		types.ID(c.Param("id")), h.operator(c), req.BatteryPercent)
	if err != nil {
		writeDispatchError(c, err)
		return
	}
	c.JSON(http.StatusOK, newOrderResponse(o))
}

// shopIDForOperator picks the shop the caller owns out of the order lines.
// Orders are single-shop in practice, so this is normally just the first line.
func shopIDForOperator(o *order.Order, operatorID types.ID) types.ID {
	for _, ln := range o.Lines {
		if ln.ShopOwnerID == operatorID {
			return ln.ShopID
		}
	}
	if len(o.Lines) > 0 {
		return o.Lines[0].ShopID
	}
	return ""
}
