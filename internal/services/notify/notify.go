// Package notify pushes checkout results to the buyer's channel.
package notify

import (
	"fmt"
	"log/slog"
	"time"

	pubnub "github.com/pubnub/go/v7"
)

const (
	TypeTicketIssued   = "ticket_issued"
	TypeCheckoutFailed = "checkout_failed"
)

type Message struct {
	Type       string    `json:"type"`
	CheckoutID string    `json:"checkout_id"`
	EventID    string    `json:"event_id"`
	TicketID   string    `json:"ticket_id,omitempty"`
	Error      string    `json:"error,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
}

type Publisher interface {
	Publish(wallet string, msg Message) error
}

// UserChannel is the per-buyer channel name.
func UserChannel(wallet string) string {
	return fmt.Sprintf("user-%s", wallet)
}

type PubNubPublisher struct {
	PubNub *pubnub.PubNub
}

func NewPubNubPublisher(pn *pubnub.PubNub) *PubNubPublisher {
	return &PubNubPublisher{PubNub: pn}
}

func (p *PubNubPublisher) Publish(wallet string, msg Message) error {
	_, st, err := p.PubNub.Publish().
		Channel(UserChannel(wallet)).
		Message(msg).
		Execute()
	if err != nil {
		return fmt.Errorf("publish %s: %w", msg.Type, err)
	}
	if st.Error != nil {
		return fmt.Errorf("publish %s: %w", msg.Type, st.Error)
	}
	return nil
}

// Noop logs messages instead of sending them.
type Noop struct {
	Log *slog.Logger
}

func (n Noop) Publish(wallet string, msg Message) error {
	if n.Log != nil {
		n.Log.Debug("Notification not sent", "channel", UserChannel(wallet), "type", msg.Type)
	}
	return nil
}
