package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/pocketbase/pocketbase/apis"
	"github.com/pocketbase/pocketbase/core"
	"golang.org/x/crypto/bcrypt"

	"ticket-wallet/internal/services/ticket"
	"ticket-wallet/internal/status"
	"ticket-wallet/monitoring"
)

const ScannerKeyHeader = "X-Scanner-Key"

type TicketHandler struct {
	store          *ticket.Store
	scannerKeyHash []byte
	monitor        *monitoring.Monitor
}

// NewTicketHandler builds the ticket endpoints. An empty scannerKeyHash
// disables redemption.
func NewTicketHandler(store *ticket.Store, scannerKeyHash string, monitor *monitoring.Monitor) *TicketHandler {
	return &TicketHandler{
		store:          store,
		scannerKeyHash: []byte(scannerKeyHash),
		monitor:        monitor,
	}
}

type codeRequest struct {
	Code string `json:"code"`
}

// ListTickets - GET /api/v1/tickets
func (h *TicketHandler) ListTickets(e *core.RequestEvent) error {
	return e.JSON(http.StatusOK, map[string]any{"tickets": h.store.All()})
}

// GetTicket - GET /api/v1/tickets/{ticketId}
func (h *TicketHandler) GetTicket(e *core.RequestEvent) error {
	t, ok := h.store.GetByTicketID(e.Request.PathValue("ticketId"))
	if !ok {
		return apis.NewNotFoundError("Ticket not found", nil)
	}
	return e.JSON(http.StatusOK, t)
}

// GetTicketCode - GET /api/v1/tickets/{ticketId}/code
// Returns the string a QR code should carry.
func (h *TicketHandler) GetTicketCode(e *core.RequestEvent) error {
	t, ok := h.store.GetByTicketID(e.Request.PathValue("ticketId"))
	if !ok {
		return apis.NewNotFoundError("Ticket not found", nil)
	}

	code, err := ticket.EncodeCode(t.Code())
	if err != nil {
		return apiError(err)
	}
	return e.JSON(http.StatusOK, map[string]any{
		"ticket_id": t.Payload.TicketID,
		"code":      code,
	})
}

// VerifyTicket - POST /api/v1/tickets/verify
func (h *TicketHandler) VerifyTicket(e *core.RequestEvent) error {
	var req codeRequest
	if err := e.BindBody(&req); err != nil {
		return apis.NewBadRequestError("Invalid request", err)
	}

	code, err := ticket.DecodeCode(req.Code)
	if err != nil {
		return apiError(err)
	}

	if err := ticket.Verify(code); err != nil {
		return e.JSON(http.StatusOK, map[string]any{
			"valid":     false,
			"ticket_id": code.Payload.TicketID,
			"error":     err.Error(),
		})
	}

	return e.JSON(http.StatusOK, map[string]any{
		"valid":   true,
		"payload": code.Payload,
	})
}

// RedeemTicket - POST /api/v1/tickets/redeem
// Called by door scanners holding the scanner key.
func (h *TicketHandler) RedeemTicket(e *core.RequestEvent) error {
	if err := h.authorizeScanner(e); err != nil {
		return err
	}

	var req codeRequest
	if err := e.BindBody(&req); err != nil {
		return apis.NewBadRequestError("Invalid request", err)
	}

	code, err := ticket.DecodeCode(req.Code)
	if err != nil {
		h.monitor.TrackRedemption("invalid")
		return apiError(err)
	}

	if err := ticket.Verify(code); err != nil {
		h.monitor.TrackRedemption("invalid")
		return apiError(err)
	}

	result, err := h.store.RedeemCode(e.Request.Context(), code)
	if err != nil {
		if errors.Is(err, status.ErrTicketNotFound) {
			h.monitor.TrackRedemption("not_found")
			return apis.NewNotFoundError("Ticket not found", nil)
		}
		return apiError(err)
	}

	if result.AlreadyRedeemed {
		h.monitor.TrackRedemption("already_redeemed")
		return e.JSON(http.StatusConflict, map[string]any{
			"redeemed":    false,
			"message":     "Ticket already redeemed",
			"redeemed_at": result.Ticket.RedeemedAt,
			"ticket_id":   result.Ticket.Payload.TicketID,
		})
	}

	h.monitor.TrackRedemption("redeemed")
	slog.Info("Ticket redeemed", "ticket_id", result.Ticket.Payload.TicketID, "event_id", result.Ticket.Payload.EventID)
	return e.JSON(http.StatusOK, map[string]any{
		"redeemed":    true,
		"redeemed_at": result.Ticket.RedeemedAt,
		"ticket_id":   result.Ticket.Payload.TicketID,
		"event_name":  result.Ticket.Payload.EventName,
	})
}

// ClearTickets - DELETE /api/v1/tickets
func (h *TicketHandler) ClearTickets(e *core.RequestEvent) error {
	if err := h.store.Clear(e.Request.Context()); err != nil {
		return apiError(err)
	}
	return e.JSON(http.StatusOK, map[string]any{"message": "Tickets cleared"})
}

func (h *TicketHandler) authorizeScanner(e *core.RequestEvent) error {
	if len(h.scannerKeyHash) == 0 {
		return apis.NewForbiddenError("Redemption is disabled", nil)
	}

	key := e.Request.Header.Get(ScannerKeyHeader)
	if key == "" {
		return apis.NewUnauthorizedError("Missing scanner key", nil)
	}

	if err := bcrypt.CompareHashAndPassword(h.scannerKeyHash, []byte(key)); err != nil {
		return apis.NewUnauthorizedError("Invalid scanner key", nil)
	}
	return nil
}
