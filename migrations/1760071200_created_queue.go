package migrations

import (
	"encoding/json"

	"github.com/pocketbase/pocketbase/core"
	m "github.com/pocketbase/pocketbase/migrations"
)

func init() {
	m.Register(func(app core.App) error {
		jsonData := `{
			"createRule": null,
			"deleteRule": null,
			"fields": [
				{
					"autogeneratePattern": "[a-z0-9]{15}",
					"hidden": false,
					"id": "text3208210256",
					"max": 15,
					"min": 15,
					"name": "id",
					"pattern": "^[a-z0-9]+$",
					"presentable": false,
					"primaryKey": true,
					"required": true,
					"system": true,
					"type": "text"
				},
				{
					"hidden": false,
					"id": "number1976363797",
					"max": null,
					"min": 0,
					"name": "queueNumber",
					"onlyInt": true,
					"presentable": false,
					"required": false,
					"system": false,
					"type": "number"
				},
				{
					"autogeneratePattern": "",
					"hidden": false,
					"id": "text1579384326",
					"max": 0,
					"min": 0,
					"name": "name",
					"pattern": "",
					"presentable": true,
					"primaryKey": false,
					"required": true,
					"system": false,
					"type": "text"
				},
				{
					"autogeneratePattern": "",
					"hidden": false,
					"id": "text2008568337",
					"max": 0,
					"min": 0,
					"name": "studentId",
					"pattern": "",
					"presentable": false,
					"primaryKey": false,
					"required": true,
					"system": false,
					"type": "text"
				},
				{
					"hidden": false,
					"id": "select2063623452",
					"maxSelect": 1,
					"name": "status",
					"presentable": false,
					"required": true,
					"system": false,
					"type": "select",
					"values": [
						"waiting",
						"serving",
						"completed"
					]
				},
				{
					"hidden": false,
					"id": "select3575325839",
					"maxSelect": 1,
					"name": "desk",
					"presentable": false,
					"required": false,
					"system": false,
					"type": "select",
					"values": [
						"desk1",
						"desk2"
					]
				},
				{
					"hidden": false,
					"id": "number2782324286",
					"max": null,
					"min": 0,
					"name": "timestamp",
					"onlyInt": true,
					"presentable": false,
					"required": false,
					"system": false,
					"type": "number"
				},
				{
					"hidden": false,
					"id": "number1105325443",
					"max": null,
					"min": 0,
					"name": "serviceStartTime",
					"onlyInt": true,
					"presentable": false,
					"required": false,
					"system": false,
					"type": "number"
				},
				{
					"hidden": false,
					"id": "number3954207495",
					"max": null,
					"min": 0,
					"name": "completionTime",
					"onlyInt": true,
					"presentable": false,
					"required": false,
					"system": false,
					"type": "number"
				},
				{
					"hidden": false,
					"id": "number2302185291",
					"max": null,
					"min": 0,
					"name": "waitTime",
					"onlyInt": true,
					"presentable": false,
					"required": false,
					"system": false,
					"type": "number"
				},
				{
					"hidden": false,
					"id": "autodate2990389176",
					"name": "created",
					"onCreate": true,
					"onUpdate": false,
					"presentable": false,
					"system": false,
					"type": "autodate"
				},
				{
					"hidden": false,
					"id": "autodate3332085495",
					"name": "updated",
					"onCreate": true,
					"onUpdate": true,
					"presentable": false,
					"system": false,
					"type": "autodate"
				}
			],
			"id": "pbc_2406443830",
			"indexes": [
				"CREATE INDEX `+"`"+`idx_queue_status_desk`+"`"+` ON `+"`"+`queue`+"`"+` (`+"`"+`status`+"`"+`, `+"`"+`desk`+"`"+`)",
				"CREATE INDEX `+"`"+`idx_queue_timestamp`+"`"+` ON `+"`"+`queue`+"`"+` (`+"`"+`timestamp`+"`"+`)"
			],
			"listRule": null,
			"name": "queue",
			"system": false,
			"type": "base",
			"updateRule": null,
			"viewRule": null
		}`

		collection := &core.Collection{}
		if err := json.Unmarshal([]byte(jsonData), &collection); err != nil {
			return err
		}

		return app.Save(collection)
	}, func(app core.App) error {
		collection, err := app.FindCollectionByNameOrId("pbc_2406443830")
		if err != nil {
			return err
		}

		return app.Delete(collection)
	})
}
