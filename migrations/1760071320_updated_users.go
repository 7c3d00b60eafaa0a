package migrations

import (
	"github.com/pocketbase/pocketbase/core"
	m "github.com/pocketbase/pocketbase/migrations"
)

// Staff fields on the built-in users collection.
var staffFields = []string{"role", "isActive", "isFirstLogin", "createdBy", "createdAt", "lastLoginAt"}

func init() {
	m.Register(func(app core.App) error {
		users, err := app.FindCollectionByNameOrId("users")
		if err != nil {
			return err
		}

		users.Fields.Add(
			&core.SelectField{
				Name:      "role",
				Values:    []string{"admin", "desk"},
				MaxSelect: 1,
				Required:  true,
			},
			&core.BoolField{Name: "isActive"},
			&core.BoolField{Name: "isFirstLogin"},
			&core.TextField{Name: "createdBy", Max: 15},
			&core.NumberField{Name: "createdAt", OnlyInt: true},
			&core.NumberField{Name: "lastLoginAt", OnlyInt: true},
		)

		return app.Save(users)
	}, func(app core.App) error {
		users, err := app.FindCollectionByNameOrId("users")
		if err != nil {
			return err
		}

		for _, name := range staffFields {
			users.Fields.RemoveByName(name)
		}

		return app.Save(users)
	})
}
