package status

import (
	"errors"

	"ticket-wallet/models"
)

var (
	ErrSignerUnavailable = errors.New("signer: wallet not connected")
	ErrUserRejected      = errors.New("signer: user rejected the request")
	ErrSignerFailure     = errors.New("signer: signing failed")

	ErrPaymentFailed  = errors.New("payment: payment failed")
	ErrChargeNotFound = errors.New("payment: charge not found")

	ErrStorageFailure    = errors.New("storage: persisted tickets unavailable")
	ErrTicketNotRecorded = errors.New("ticket: signed ticket was not recorded")
	ErrAssemblyInvariant = errors.New("ticket: public key does not match owner wallet")
	ErrInvalidPayload    = errors.New("ticket: invalid payload")
	ErrTicketNotFound    = errors.New("ticket: ticket not found")
	ErrInvalidSignature  = errors.New("ticket: signature verification failed")
	ErrInvalidTicketCode = errors.New("ticket: malformed ticket code")

	ErrSigningInProgress = errors.New("checkout: signing already in progress")
	ErrInvalidTransition = errors.New("checkout: invalid state transition")
	ErrCheckoutClosed    = errors.New("checkout: checkout closed")
	ErrCheckoutNotFound  = errors.New("checkout: checkout not found")
	ErrEventNotFound     = errors.New("event: event not found")

	ErrSignRequestNotFound = errors.New("signer: sign request not found")
)

// SignerErrorKind classifies a signing failure.
type SignerErrorKind string

const (
	SignerUnavailable SignerErrorKind = "signer_unavailable"
	UserRejected      SignerErrorKind = "user_rejected"
	SignerError       SignerErrorKind = "signer_error"
)

// SigningError is returned by the signing gateway. Error() keeps the
// provider's message so the UI can show it unchanged.
type SigningError struct {
	Kind SignerErrorKind
	Err  error
}

func (e *SigningError) Error() string {
	if e.Err == nil {
		return e.sentinel().Error()
	}
	return e.Err.Error()
}

func (e *SigningError) Unwrap() error { return e.Err }

func (e *SigningError) Is(target error) bool {
	return target == e.sentinel()
}

func (e *SigningError) sentinel() error {
	switch e.Kind {
	case SignerUnavailable:
		return ErrSignerUnavailable
	case UserRejected:
		return ErrUserRejected
	default:
		return ErrSignerFailure
	}
}

// Retryable reports whether the user can simply try again.
func (e *SigningError) Retryable() bool {
	return e.Kind != SignerError
}

// PaymentError carries the payment provider's message verbatim.
type PaymentError struct {
	Message string
}

func (e *PaymentError) Error() string {
	if e.Message == "" {
		return ErrPaymentFailed.Error()
	}
	return e.Message
}

func (e *PaymentError) Is(target error) bool { return target == ErrPaymentFailed }

// TicketNotRecordedError means a ticket was paid for and signed but could
// not be persisted. Ticket holds the signed artifact for recovery.
type TicketNotRecordedError struct {
	Ticket models.SignedTicket
	Err    error
}

func (e *TicketNotRecordedError) Error() string {
	return "ticket " + e.Ticket.Payload.TicketID + " was paid but not recorded: " + e.Err.Error()
}

func (e *TicketNotRecordedError) Unwrap() error { return e.Err }

func (e *TicketNotRecordedError) Is(target error) bool { return target == ErrTicketNotRecorded }
