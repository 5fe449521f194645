package handlers

import (
	"net/http"

	"github.com/pocketbase/pocketbase/core"

	"ticket-wallet/internal/services/catalog"
	"ticket-wallet/internal/services/ticket"
	"ticket-wallet/models"
)

type EventHandler struct {
	catalog catalog.Catalog
	store   *ticket.Store
}

func NewEventHandler(cat catalog.Catalog, store *ticket.Store) *EventHandler {
	return &EventHandler{
		catalog: cat,
		store:   store,
	}
}

type eventView struct {
	models.Event
	Price string `json:"price"`
}

func newEventView(e models.Event) eventView {
	return eventView{Event: e, Price: e.Price().StringFixed(2)}
}

// ListEvents - GET /api/v1/events
func (h *EventHandler) ListEvents(e *core.RequestEvent) error {
	events, err := h.catalog.List(e.Request.Context())
	if err != nil {
		return apiError(err)
	}

	views := make([]eventView, 0, len(events))
	for _, ev := range events {
		views = append(views, newEventView(ev))
	}
	return e.JSON(http.StatusOK, map[string]any{"events": views})
}

// GetEvent - GET /api/v1/events/{eventId}
func (h *EventHandler) GetEvent(e *core.RequestEvent) error {
	ev, err := h.catalog.Lookup(e.Request.Context(), e.Request.PathValue("eventId"))
	if err != nil {
		return apiError(err)
	}
	return e.JSON(http.StatusOK, newEventView(ev))
}

// GetEventTickets - GET /api/v1/events/{eventId}/tickets
func (h *EventHandler) GetEventTickets(e *core.RequestEvent) error {
	eventID := e.Request.PathValue("eventId")
	return e.JSON(http.StatusOK, map[string]any{
		"event_id": eventID,
		"tickets":  h.store.GetByEventID(eventID),
	})
}
