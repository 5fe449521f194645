package migrations

import (
	"github.com/pocketbase/dbx"
	"github.com/pocketbase/pocketbase/core"
	m "github.com/pocketbase/pocketbase/migrations"

	"ticket-wallet/internal/services/catalog"
)

// Seeds the events collection with the built-in lineup so the records
// catalog starts with the same events as the static one.
func init() {
	m.Register(func(app core.App) error {
		collection, err := app.FindCollectionByNameOrId(catalog.EventsCollection)
		if err != nil {
			return err
		}

		for _, ev := range catalog.DefaultEvents() {
			record := core.NewRecord(collection)
			record.Set("name", ev.Name)
			record.Set("description", ev.Description)
			record.Set("date", ev.Date)
			record.Set("venue", ev.Venue)
			record.Set("price_cents", ev.PriceCents)
			record.Set("image_url", ev.ImageURL)
			record.Set("status", "publish")

			if err := app.Save(record); err != nil {
				return err
			}
		}
		return nil
	}, func(app core.App) error {
		_, err := app.DB().Delete(catalog.EventsCollection, dbx.HashExp{"status": "publish"}).Execute()
		return err
	})
}
