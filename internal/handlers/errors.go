package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/pocketbase/pocketbase/apis"

	"ticket-wallet/internal/status"
)

// apiError maps service errors onto HTTP errors. Provider messages are
// passed through unchanged.
func apiError(err error) error {
	switch {
	case errors.Is(err, status.ErrEventNotFound),
		errors.Is(err, status.ErrTicketNotFound),
		errors.Is(err, status.ErrCheckoutNotFound),
		errors.Is(err, status.ErrSignRequestNotFound),
		errors.Is(err, status.ErrChargeNotFound):
		return apis.NewNotFoundError(err.Error(), nil)

	case errors.Is(err, status.ErrSigningInProgress),
		errors.Is(err, status.ErrInvalidTransition),
		errors.Is(err, status.ErrCheckoutClosed):
		return apis.NewApiError(http.StatusConflict, err.Error(), nil)

	case errors.Is(err, status.ErrSignerUnavailable):
		return apis.NewApiError(http.StatusPreconditionFailed, err.Error(), nil)

	case errors.Is(err, status.ErrInvalidTicketCode),
		errors.Is(err, status.ErrInvalidPayload):
		return apis.NewBadRequestError(err.Error(), nil)

	case errors.Is(err, status.ErrInvalidSignature):
		return apis.NewApiError(http.StatusUnprocessableEntity, err.Error(), nil)

	case errors.Is(err, status.ErrStorageFailure):
		slog.Error("Storage failure", "error", err)
		return apis.NewApiError(http.StatusServiceUnavailable, "Ticket storage unavailable", nil)

	default:
		slog.Error("Unhandled error", "error", err)
		return apis.NewInternalServerError("internal error", nil)
	}
}
