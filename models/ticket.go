package models

import (
	"time"
)

// TicketPayload is the signed content of a ticket. Field order is the
// canonical serialization order and must not change.
type TicketPayload struct {
	EventID     string `json:"eventId"`
	EventName   string `json:"eventName"`
	EventDate   string `json:"eventDate"`
	TicketID    string `json:"ticketId"`
	PurchasedAt string `json:"purchasedAt"`
	OwnerWallet string `json:"ownerWallet"`
}

// SignedTicket is the redeemable artifact kept by the ticket store.
// RedeemedAt is only set when Redeemed is true.
type SignedTicket struct {
	Payload    TicketPayload `json:"payload"`
	Signature  string        `json:"signature"` // base58
	PublicKey  string        `json:"publicKey"` // base58
	Redeemed   bool          `json:"redeemed"`
	RedeemedAt *time.Time    `json:"redeemedAt,omitempty"`
}

// Code returns the scanner-facing part of the ticket.
func (t SignedTicket) Code() TicketCode {
	return TicketCode{
		Payload:   t.Payload,
		Signature: t.Signature,
		PublicKey: t.PublicKey,
	}
}

// TicketCode is what a QR code carries: exactly payload, signature and
// public key, independent of redemption state.
type TicketCode struct {
	Payload   TicketPayload `json:"payload"`
	Signature string        `json:"signature"`
	PublicKey string        `json:"publicKey"`
}
