package handlers

import (
	"net/http"
	"time"

	"github.com/pocketbase/pocketbase/apis"
	"github.com/pocketbase/pocketbase/core"

	"ticket-wallet/internal/services/payment"
	"ticket-wallet/models"
)

type PaymentHandler struct {
	payments *payment.Service
}

func NewPaymentHandler(payments *payment.Service) *PaymentHandler {
	return &PaymentHandler{payments: payments}
}

// SimulatePayment - POST /api/v1/test/simulate-payment (development only)
func (h *PaymentHandler) SimulatePayment(e *core.RequestEvent) error {
	var req struct {
		PaymentID string `json:"payment_id"`
		Status    string `json:"status"`
		Message   string `json:"message"`
	}
	if err := e.BindBody(&req); err != nil {
		return apis.NewBadRequestError("Invalid request", err)
	}
	if req.PaymentID == "" {
		return apis.NewBadRequestError("payment_id is required", nil)
	}

	err := h.payments.Resolve(e.Request.Context(), models.PaymentNotification{
		PaymentID: req.PaymentID,
		Status:    req.Status,
		Message:   req.Message,
		Timestamp: time.Now(),
	})
	if err != nil {
		return apiError(err)
	}

	return e.JSON(http.StatusOK, map[string]any{"message": "Payment simulation sent"})
}
