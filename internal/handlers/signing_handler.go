package handlers

import (
	"net/http"

	"github.com/pocketbase/pocketbase/core"

	"ticket-wallet/internal/services/signing"
)

// SigningHandler lets the wallet owner answer pending sign requests.
type SigningHandler struct {
	prompt *signing.Prompt
}

func NewSigningHandler(prompt *signing.Prompt) *SigningHandler {
	return &SigningHandler{prompt: prompt}
}

// ListPending - GET /api/v1/signing/pending
func (h *SigningHandler) ListPending(e *core.RequestEvent) error {
	return e.JSON(http.StatusOK, map[string]any{"requests": h.prompt.Pending()})
}

// Approve - POST /api/v1/signing/{requestId}/approve
func (h *SigningHandler) Approve(e *core.RequestEvent) error {
	if err := h.prompt.Approve(e.Request.PathValue("requestId")); err != nil {
		return apiError(err)
	}
	return e.JSON(http.StatusOK, map[string]any{"message": "Request approved"})
}

// Reject - POST /api/v1/signing/{requestId}/reject
func (h *SigningHandler) Reject(e *core.RequestEvent) error {
	if err := h.prompt.Reject(e.Request.PathValue("requestId")); err != nil {
		return apiError(err)
	}
	return e.JSON(http.StatusOK, map[string]any{"message": "Request rejected"})
}
