package models

import (
	"github.com/shopspring/decimal"
)

type Event struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Date        string `json:"date"` // ISO-8601
	Venue       string `json:"venue"`
	Description string `json:"description"`
	PriceCents  int64  `json:"price_cents"`
	ImageURL    string `json:"image_url,omitempty"`
}

// Price returns the ticket price in major currency units.
func (e Event) Price() decimal.Decimal {
	return decimal.New(e.PriceCents, -2)
}
