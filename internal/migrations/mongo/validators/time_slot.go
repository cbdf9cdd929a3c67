package validators

import "go.mongodb.org/mongo-driver/bson"

const clockPattern = `^(([01][0-9]|2[0-3]):[0-5][0-9]|24:00)$`

var TimeSlotValidator = bson.M{
	"$jsonSchema": bson.M{
		"bsonType": "object",
		"required": []string{
			"doctor_id",
			"day_of_week",
			"start_time",
			"end_time",
			"status",
			"created_at",
		},
		"additionalProperties": true,

		"properties": bson.M{
			"_id": bson.M{
				"bsonType": "objectId",
			},

			"doctor_id": bson.M{
				"bsonType":  "string",
				"minLength": 24,
				"maxLength": 24,
			},

			"day_of_week": bson.M{
				"bsonType": []string{"int", "long"},
				"minimum":  0,
				"maximum":  6,
			},

			"slot_label": bson.M{
				"bsonType": "string",
				"enum":     []string{"8-12", "12-4", "4-8", "20-00"},
			},

			"start_time": bson.M{
				"bsonType": "string",
				"pattern":  clockPattern,
			},

			"end_time": bson.M{
				"bsonType": "string",
				"pattern":  clockPattern,
			},

			"status": bson.M{
				"bsonType": "string",
				"enum":     []string{"requested", "available", "unavailable"},
			},

			"valid_from": bson.M{
				"bsonType": "date",
			},

			"valid_to": bson.M{
				"bsonType": "date",
			},

			"created_at": bson.M{
				"bsonType": "date",
			},
		},
	},
}
