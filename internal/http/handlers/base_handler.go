// README: Base handler utilities (JSON helpers, error mapping).
package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"skyeats/internal/modules/dispatch"
	"skyeats/internal/modules/drone"
	"skyeats/internal/modules/order"
	"skyeats/internal/modules/payment"
)

type errorResponse struct {
	Error string `json:"error"`
}

func writeError(c *gin.Context, status int, msg string) {
	c.JSON(status, errorResponse{Error: msg})
}

func writeOrderError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, order.ErrBadRequest):
		writeError(c, http.StatusBadRequest, err.Error())
	case errors.Is(err, order.ErrNotFound):
		writeError(c, http.StatusNotFound, err.Error())
	case errors.Is(err, order.ErrInvalidTransition), errors.Is(err, order.ErrConflict):
		writeError(c, http.StatusConflict, err.Error())
	default:
		writeError(c, http.StatusInternalServerError, "internal error")
	}
}

func writeDroneError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, drone.ErrBadRequest):
		writeError(c, http.StatusBadRequest, err.Error())
	case errors.Is(err, drone.ErrNotFound):
		writeError(c, http.StatusNotFound, err.Error())
	case errors.Is(err, drone.ErrBusy):
		writeError(c, http.StatusConflict, err.Error())
	default:
		writeError(c, http.StatusInternalServerError, "internal error")
	}
}

func writeDispatchError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, dispatch.ErrBadRequest), errors.Is(err, dispatch.ErrWrongConfirmationCode):
		writeError(c, http.StatusBadRequest, err.Error())
	case errors.Is(err, dispatch.ErrOrderNotPreparing),
		errors.Is(err, dispatch.ErrDroneUnavailable),
		errors.Is(err, dispatch.ErrOrderNotDelivering):
		writeError(c, http.StatusConflict, err.Error())
	case errors.Is(err, drone.ErrNotFound):
		writeError(c, http.StatusNotFound, err.Error())
	default:
		writeOrderError(c, err)
	}
}

func writePaymentError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, payment.ErrBadRequest), errors.Is(err, payment.ErrSignatureInvalid):
		writeError(c, http.StatusBadRequest, err.Error())
	case errors.Is(err, payment.ErrForbidden):
		writeError(c, http.StatusForbidden, err.Error())
	case errors.Is(err, payment.ErrNotFound):
		writeError(c, http.StatusNotFound, err.Error())
	case errors.Is(err, payment.ErrNotRefundable):
		writeError(c, http.StatusConflict, err.Error())
	default:
		writeOrderError(c, err)
	}
}
