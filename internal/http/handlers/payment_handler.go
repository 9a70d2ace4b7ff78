// README: Payment handlers: checkout initiation and the two gateway callbacks.
package handlers

import (
	"net/http"
	"net/url"
	"strconv"

	"github.com/gin-gonic/gin"

	"skyeats/internal/http/middleware"
	"skyeats/internal/modules/payment"
	"skyeats/internal/types"
)

type PaymentHandler struct {
	payments    *payment.Service
	frontendURL string
}

func NewPaymentHandler(payments *payment.Service, frontendURL string) *PaymentHandler {
	return &PaymentHandler{payments: payments, frontendURL: frontendURL}
}

type initiatePaymentReq struct {
	OrderID  string `json:"order_id"`
	Amount   int64  `json:"amount"`
	BankCode string `json:"bank_code"`
}

func (h *PaymentHandler) Initiate(c *gin.Context) {
	var req initiatePaymentReq
	if err := c.ShouldBindJSON(&req); err != nil || req.OrderID == "" {
		writeError(c, http.StatusBadRequest, "missing order_id")
		return
	}
	payURL, p, err := h.payments.Initiate(c.Request.Context(),
		types.ID(req.OrderID), types.ID(middleware.CallerUID(c)),
		req.Amount, c.ClientIP(), req.BankCode)
	if err != nil {
		writePaymentError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"payment_url": payURL, "payment_id": p.ID})
}

// Return handles the browser redirect back from the gateway. Whatever the
// outcome, the customer ends up on the frontend result page.
func (h *PaymentHandler) Return(c *gin.Context) {
	res, err := h.payments.ConfirmReturn(c.Request.Context(), queryParams(c))
	if err != nil {
		h.redirectResult(c, url.Values{
			"status":  {"error"},
			"message": {"payment could not be verified"},
		})
		return
	}
	h.redirectResult(c, url.Values{
		"status":   {res.Status},
		"order_id": {string(res.OrderID)},
		"amount":   {strconv.FormatInt(res.Amount, 10)},
		"message":  {res.Message},
	})
}

// IPN handles the server-to-server webhook. The gateway retries until it gets
// an acknowledgement, so this always answers 200 with a gateway result code.
func (h *PaymentHandler) IPN(c *gin.Context) {
	res := h.payments.ConfirmIPN(c.Request.Context(), queryParams(c))
	c.JSON(http.StatusOK, res)
}

func (h *PaymentHandler) Get(c *gin.Context) {
	p, err := h.payments.Get(c.Request.Context(),
		types.ID(c.Param("id")), types.ID(middleware.CallerUID(c)))
	if err != nil {
		writePaymentError(c, err)
		return
	}
	c.JSON(http.StatusOK, newPaymentResponse(p))
}

func (h *PaymentHandler) List(c *gin.Context) {
	limit, _ := strconv.Atoi(c.Query("limit"))
	offset, _ := strconv.Atoi(c.Query("offset"))
	payments, err := h.payments.ListByCustomer(c.Request.Context(),
		types.ID(middleware.CallerUID(c)), limit, offset)
	if err != nil {
		writePaymentError(c, err)
		return
	}
	out := make([]paymentResponse, 0, len(payments))
	for _, p := range payments {
		out = append(out, newPaymentResponse(p))
	}
	c.JSON(http.StatusOK, gin.H{"payments": out})
}

func (h *PaymentHandler) Refund(c *gin.Context) {
	p, err := h.payments.Refund(c.Request.Context(),
		types.ID(c.Param("id")), types.ID(middleware.CallerUID(c)))
	if err != nil {
		writePaymentError(c, err)
		return
	}
	c.JSON(http.StatusOK, newPaymentResponse(p))
}

func (h *PaymentHandler) redirectResult(c *gin.Context, q url.Values) {
	c.Redirect(http.StatusFound, h.frontendURL+"/payment/result?"+q.Encode())
}

func queryParams(c *gin.Context) map[string]string {
	q := c.Request.URL.Query()
	params := make(map[string]string, len(q))
	for k := range q {
		params[k] = q.Get(k)
	}
	return params
}
