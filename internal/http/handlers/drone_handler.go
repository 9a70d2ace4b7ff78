// README: Drone registry handlers: registration, status, position reports, recovery.
package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"skyeats/internal/modules/drone"
	"skyeats/internal/modules/order"
	"skyeats/internal/modules/tracking"
	"skyeats/internal/types"
)

type DroneHandler struct {
	drones *drone.Service
	orders *order.Service
	hub    *tracking.Hub
}

func NewDroneHandler(drones *drone.Service, orders *order.Service, hub *tracking.Hub) *DroneHandler {
	return &DroneHandler{drones: drones, orders: orders, hub: hub}
}

type registerDroneReq struct {
	ShopID       string      `json:"shop_id"`
	Model        string      `json:"model"`
	SerialNumber string      `json:"serial_number"`
	Specs        drone.Specs `json:"specs"`
}

func (h *DroneHandler) Register(c *gin.Context) {
	var req registerDroneReq
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid json")
		return
	}
	d, err := h.drones.Register(c.Request.Context(), drone.RegisterCommand{
		ShopID:       types.ID(req.ShopID),
		Model:        req.Model,
		SerialNumber: req.SerialNumber,
		Specs:        req.Specs,
	})
	if err != nil {
		writeDroneError(c, err)
		return
	}
	c.JSON(http.StatusCreated, newDroneResponse(d))
}

func (h *DroneHandler) SetStatus(c *gin.Context) {
	var req struct {
		Status string `json:"status"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || req.Status == "" {
		writeError(c, http.StatusBadRequest, "missing status")
		return
	}
	id := types.ID(c.Param("id"))
	if err := h.drones.SetStatus(c.Request.Context(), id, drone.Status(req.Status)); err != nil {
		writeDroneError(c, err)
		return
	}
	d, err := h.drones.Get(c.Request.Context(), id)
	if err != nil {
		writeDroneError(c, err)
		return
	}
	c.JSON(http.StatusOK, newDroneResponse(d))
}

type positionReq struct {
	Lat            float64 `json:"lat"`
	Lng            float64 `json:"lng"`
	BatteryPercent *int    `json:"battery_percent"`
}

// UpdatePosition is the REST fallback for drones without a live socket. The
// report lands in the registry and, when the drone is mid-delivery, is relayed
// to the order's tracking channel as well.
func (h *DroneHandler) UpdatePosition(c *gin.Context) {
	var req positionReq
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid json")
		return
	}
	battery := -1
	if req.BatteryPercent != nil {
		battery = *req.BatteryPercent
	}
	ctx := c.Request.Context()
	id := types.ID(c.Param("id"))
	pos := types.Point{Lat: req.Lat, Lng: req.Lng}
	if err := h.drones.UpdatePosition(ctx, id, pos, battery); err != nil {
		writeDroneError(c, err)
		return
	}

	if o, err := h.orders.ActiveByDrone(ctx, id); err == nil {
		h.hub.PublishPosition(o.ID, tracking.Position{
			Lat:       pos.Lat,
			Lng:       pos.Lng,
			Timestamp: time.Now(),
		})
	}
	c.Status(http.StatusNoContent)
}

// ActiveOrder lets a rebooted drone recover the delivery it was flying.
func (h *DroneHandler) ActiveOrder(c *gin.Context) {
	o, err := h.orders.ActiveByDrone(c.Request.Context(), types.ID(c.Param("id")))
	if err != nil {
		writeOrderError(c, err)
		return
	}
	c.JSON(http.StatusOK, newOrderResponse(o))
}
