package migrations

import (
	"github.com/pocketbase/pocketbase/core"
	m "github.com/pocketbase/pocketbase/migrations"
	"github.com/pocketbase/pocketbase/tools/types"
)

func init() {
	m.Register(func(app core.App) error {
		collection := core.NewBaseCollection("events")

		collection.ListRule = types.Pointer("status = 'publish'")
		collection.ViewRule = types.Pointer("status = 'publish'")

		collection.Fields.Add(
			&core.TextField{Name: "name", Required: true, Max: 200},
			&core.EditorField{Name: "description"},
			&core.DateField{Name: "date", Required: true},
			&core.TextField{Name: "venue", Required: true, Max: 200},
			&core.NumberField{Name: "price_cents", OnlyInt: true, Min: types.Pointer(0.0)},
			&core.URLField{Name: "image_url"},
			&core.SelectField{Name: "status", Required: true, MaxSelect: 1, Values: []string{"draft", "publish"}},
			&core.AutodateField{Name: "created", OnCreate: true},
			&core.AutodateField{Name: "updated", OnCreate: true, OnUpdate: true},
		)

		collection.AddIndex("idx_events_status_date", false, "status, date", "")

		return app.Save(collection)
	}, func(app core.App) error {
		collection, err := app.FindCollectionByNameOrId("events")
		if err != nil {
			return err
		}

		return app.Delete(collection)
	})
}
