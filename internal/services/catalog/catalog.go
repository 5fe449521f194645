// Package catalog provides the events tickets can be bought for.
package catalog

import (
	"context"
	"fmt"

	"ticket-wallet/internal/status"
	"ticket-wallet/models"
)

type Catalog interface {
	// Lookup returns status.ErrEventNotFound for unknown events.
	Lookup(ctx context.Context, eventID string) (models.Event, error)
	List(ctx context.Context) ([]models.Event, error)
}

// Static serves a fixed list of events in the given order.
type Static struct {
	events []models.Event
	byID   map[string]int
}

func NewStatic(events []models.Event) *Static {
	s := &Static{
		events: append([]models.Event(nil), events...),
		byID:   make(map[string]int, len(events)),
	}
	for i, e := range s.events {
		if _, dup := s.byID[e.ID]; !dup {
			s.byID[e.ID] = i
		}
	}
	return s
}

func (s *Static) Lookup(_ context.Context, eventID string) (models.Event, error) {
	i, ok := s.byID[eventID]
	if !ok {
		return models.Event{}, fmt.Errorf("%w: %s", status.ErrEventNotFound, eventID)
	}
	return s.events[i], nil
}

func (s *Static) List(_ context.Context) ([]models.Event, error) {
	return append([]models.Event(nil), s.events...), nil
}

// DefaultEvents is the built-in event lineup used when no event
// collection is configured.
func DefaultEvents() []models.Event {
	return []models.Event{
		{
			ID:          "1",
			Name:        "Porch Possums + The Basement Dwellers",
			Date:        "2025-01-18T20:00:00Z",
			Venue:       "The Rusty Nail (backyard stage)",
			Description: "Two local favorites sharing a bill. BYOB, $5 suggested donation for touring acts. Dogs welcome.",
			PriceCents:  1000,
		},
		{
			ID:          "2",
			Name:        "Funeral Fog",
			Date:        "2025-01-24T21:00:00Z",
			Venue:       "Hex House DIY Space",
			Description: "Blackened doom from right here in town. Fog machines, candles, the whole deal. All ages, no jerks.",
			PriceCents:  800,
		},
		{
			ID:          "3",
			Name:        "Sunnyside Jammers Open Mic",
			Date:        "2025-01-31T19:00:00Z",
			Venue:       "Bearded Goat Coffee",
			Description: "Weekly open mic night. Sign up starts at 6:30. Acoustic acts only. Free coffee for performers.",
			PriceCents:  500,
		},
		{
			ID:          "4",
			Name:        "Trash Panda Syndicate + Guests",
			Date:        "2025-02-07T22:00:00Z",
			Venue:       "The Void (behind the laundromat)",
			Description: "Garage punk chaos. Ear protection recommended. Cash only at the door but you can grab tix here.",
			PriceCents:  1200,
		},
		{
			ID:          "5",
			Name:        "Velvet Moth Record Release",
			Date:        "2025-02-14T20:00:00Z",
			Venue:       "Strange Brew Taproom",
			Description: `Celebrating the release of "Soft Disasters" on cassette and digital. Dreampop for lonely hearts.`,
			PriceCents:  1500,
		},
		{
			ID:          "6",
			Name:        "Southside Hardcore Matinee",
			Date:        "2025-02-22T14:00:00Z",
			Venue:       "VFW Hall Post 412",
			Description: "Four bands, all ages, done by 6pm. Mosaic Minds, xClearx, Bite Back, and headliners No Quarter.",
			PriceCents:  1000,
		},
		{
			ID:          "7",
			Name:        "Crooked River String Band",
			Date:        "2025-03-01T19:30:00Z",
			Venue:       "Old Mill Barn",
			Description: "Appalachian folk and bluegrass. Square dancing after the set. Potluck dinner, bring a dish to share.",
			PriceCents:  800,
		},
		{
			ID:          "8",
			Name:        "DJ Night w/ locals",
			Date:        "2025-03-08T22:00:00Z",
			Venue:       "Neon Tiger",
			Description: "Rotating local DJs all night. House, techno, whatever. No cover before 11pm with ticket.",
			PriceCents:  500,
		},
		{
			ID:          "9",
			Name:        "Mondo Cane + Bitter Almonds",
			Date:        "2025-03-15T21:00:00Z",
			Venue:       "The Owl's Nest",
			Description: "Post-punk double header. Wear black. Smoke machine. Existential dread. Good times.",
			PriceCents:  1200,
		},
		{
			ID:          "10",
			Name:        "Spring Thaw Fest",
			Date:        "2025-03-29T12:00:00Z",
			Venue:       "Riverside Park Pavilion",
			Description: "All-day outdoor fest featuring 8 local bands. Food trucks, craft vendors, kids area. Rain or shine.",
			PriceCents:  2500,
		},
	}
}
