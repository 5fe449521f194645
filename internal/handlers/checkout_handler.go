package handlers

import (
	"net/http"
	"time"

	"github.com/pocketbase/pocketbase/apis"
	"github.com/pocketbase/pocketbase/core"

	"ticket-wallet/internal/services/checkout"
	"ticket-wallet/models"
)

type CheckoutHandler struct {
	manager *checkout.Manager
}

func NewCheckoutHandler(manager *checkout.Manager) *CheckoutHandler {
	return &CheckoutHandler{manager: manager}
}

type checkoutView struct {
	ID         string               `json:"id"`
	EventID    string               `json:"event_id"`
	Step       checkout.Step        `json:"step"`
	Attempt    uint64               `json:"attempt"`
	PaymentID  string               `json:"payment_id,omitempty"`
	Ticket     *models.SignedTicket `json:"ticket,omitempty"`
	Error      string               `json:"error,omitempty"`
	Retryable  bool                 `json:"retryable"`
	Unrecorded bool                 `json:"unrecorded,omitempty"`
	CreatedAt  time.Time            `json:"created_at"`
}

func newCheckoutView(s *checkout.Session) checkoutView {
	st := s.Orchestrator.State()
	return checkoutView{
		ID:         s.ID,
		EventID:    s.EventID,
		Step:       st.Step,
		Attempt:    st.Attempt,
		PaymentID:  st.PaymentID,
		Ticket:     st.Ticket,
		Error:      st.Message,
		Retryable:  st.Retryable,
		Unrecorded: st.Unrecorded,
		CreatedAt:  s.CreatedAt,
	}
}

// BeginCheckout - POST /api/v1/checkout
func (h *CheckoutHandler) BeginCheckout(e *core.RequestEvent) error {
	var req struct {
		EventID string `json:"event_id"`
	}
	if err := e.BindBody(&req); err != nil {
		return apis.NewBadRequestError("Invalid request", err)
	}
	if req.EventID == "" {
		return apis.NewBadRequestError("event_id is required", nil)
	}

	s, err := h.manager.Begin(e.Request.Context(), req.EventID)
	if err != nil {
		return apiError(err)
	}
	return e.JSON(http.StatusAccepted, newCheckoutView(s))
}

// GetCheckout - GET /api/v1/checkout/{checkoutId}
func (h *CheckoutHandler) GetCheckout(e *core.RequestEvent) error {
	s, err := h.manager.Get(e.Request.PathValue("checkoutId"))
	if err != nil {
		return apiError(err)
	}
	return e.JSON(http.StatusOK, newCheckoutView(s))
}

// RetryCheckout - POST /api/v1/checkout/{checkoutId}/retry
func (h *CheckoutHandler) RetryCheckout(e *core.RequestEvent) error {
	s, err := h.manager.Retry(e.Request.Context(), e.Request.PathValue("checkoutId"))
	if err != nil {
		return apiError(err)
	}
	return e.JSON(http.StatusAccepted, newCheckoutView(s))
}

// CancelCheckout - POST /api/v1/checkout/{checkoutId}/cancel
func (h *CheckoutHandler) CancelCheckout(e *core.RequestEvent) error {
	s, err := h.manager.Cancel(e.Request.PathValue("checkoutId"))
	if err != nil {
		return apiError(err)
	}
	return e.JSON(http.StatusOK, newCheckoutView(s))
}
