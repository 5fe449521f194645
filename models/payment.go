package models

import (
	"time"
)

// Charge is a pending payment collected for one checkout attempt.
type Charge struct {
	ID              string    `json:"payment_id"`
	EventID         string    `json:"event_id"`
	Owner           string    `json:"owner"`
	Amount          int64     `json:"amount"` // smallest currency unit
	Currency        string    `json:"currency"`
	MerchantContext string    `json:"merchant_context"`
	Description     string    `json:"description,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
	ExpiresAt       time.Time `json:"expires_at"`
}

type PaymentNotification struct {
	PaymentID     string    `json:"payment_id"`
	Status        string    `json:"status"` // success, failed
	Message       string    `json:"message,omitempty"`
	TransactionID string    `json:"transaction_id,omitempty"`
	Timestamp     time.Time `json:"timestamp"`
}

const (
	PaymentStatusPending   = "pending"
	PaymentStatusCompleted = "completed"
	PaymentStatusFailed    = "failed"
	PaymentStatusExpired   = "expired"
)
