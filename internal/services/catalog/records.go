package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/pocketbase/dbx"
	"github.com/pocketbase/pocketbase/core"

	"ticket-wallet/internal/status"
	"ticket-wallet/models"
)

const (
	EventsCollection = "events"
	statusPublished  = "publish"
)

// Records reads published events from the PocketBase events collection.
type Records struct {
	app core.App
}

func NewRecords(app core.App) *Records {
	return &Records{app: app}
}

func (r *Records) Lookup(_ context.Context, eventID string) (models.Event, error) {
	record, err := r.app.FindRecordById(EventsCollection, eventID, func(q *dbx.SelectQuery) error {
		q.AndWhere(dbx.HashExp{"status": statusPublished})
		return nil
	})
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Event{}, fmt.Errorf("%w: %s", status.ErrEventNotFound, eventID)
		}
		return models.Event{}, fmt.Errorf("find event %s: %w", eventID, err)
	}
	return recordToEvent(record), nil
}

func (r *Records) List(_ context.Context) ([]models.Event, error) {
	records, err := r.app.FindAllRecords(EventsCollection, dbx.HashExp{"status": statusPublished})
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}

	events := make([]models.Event, 0, len(records))
	for _, record := range records {
		events = append(events, recordToEvent(record))
	}
	return events, nil
}

func recordToEvent(record *core.Record) models.Event {
	return models.Event{
		ID:          record.Id,
		Name:        record.GetString("name"),
		Date:        record.GetDateTime("date").Time().UTC().Format(time.RFC3339),
		Venue:       record.GetString("venue"),
		Description: record.GetString("description"),
		PriceCents:  int64(record.GetInt("price_cents")),
		ImageURL:    record.GetString("image_url"),
	}
}
