package ticket

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"ticket-wallet/internal/status"
	"ticket-wallet/models"
	"ticket-wallet/utils"
)

const (
	ticketIDPrefix       = "TKT"
	ticketIDRandomLength = 8

	// TimestampLayout matches JavaScript's Date.toISOString.
	TimestampLayout = "2006-01-02T15:04:05.000Z"
)

var ticketIDPattern = regexp.MustCompile(`^TKT-[0-9A-Z]+-[0-9A-Z]+$`)

// Builder creates unsigned ticket payloads.
type Builder struct {
	now    func() time.Time
	random func(int) (string, error)
}

func NewBuilder() *Builder {
	return &Builder{
		now:    time.Now,
		random: utils.GenerateBase36,
	}
}

// WithClock replaces the time source used for ticket ids and purchase
// timestamps.
func (b *Builder) WithClock(now func() time.Time) *Builder {
	b.now = now
	return b
}

// Build snapshots the event data and buyer identity into a new payload
// with a fresh ticket id.
func (b *Builder) Build(eventID, eventName, eventDate, ownerWallet string) (models.TicketPayload, error) {
	fields := []struct{ name, value string }{
		{"eventId", eventID},
		{"eventName", eventName},
		{"eventDate", eventDate},
		{"ownerWallet", ownerWallet},
	}
	for _, f := range fields {
		if strings.TrimSpace(f.value) == "" {
			return models.TicketPayload{}, fmt.Errorf("%w: %s is empty", status.ErrInvalidPayload, f.name)
		}
	}

	now := b.now().UTC()
	ticketID, err := b.newTicketID(now)
	if err != nil {
		return models.TicketPayload{}, err
	}

	return models.TicketPayload{
		EventID:     eventID,
		EventName:   eventName,
		EventDate:   eventDate,
		TicketID:    ticketID,
		PurchasedAt: FormatTimestamp(now),
		OwnerWallet: ownerWallet,
	}, nil
}

// newTicketID returns TKT-<base36 millis>-<base36 random>, uppercased.
func (b *Builder) newTicketID(now time.Time) (string, error) {
	suffix, err := b.random(ticketIDRandomLength)
	if err != nil {
		return "", fmt.Errorf("generate ticket id: %w", err)
	}

	id := fmt.Sprintf("%s-%s-%s", ticketIDPrefix, strconv.FormatInt(now.UnixMilli(), 36), suffix)
	return strings.ToUpper(id), nil
}

// IsTicketID reports whether id has the ticket id shape.
func IsTicketID(id string) bool {
	return ticketIDPattern.MatchString(id)
}

func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(TimestampLayout)
}
