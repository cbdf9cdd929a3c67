package validators

import "go.mongodb.org/mongo-driver/bson"

var AppointmentValidator = bson.M{
	"$jsonSchema": bson.M{
		"bsonType": "object",
		"required": []string{
			"patient_id",
			"doctor_id",
			"booked_date",
			"day_of_week",
			"time_slot",
			"reason",
			"status",
			"active",
			"created_at",
		},
		"additionalProperties": true,

		"properties": bson.M{
			"_id": bson.M{
				"bsonType": "objectId",
			},

			"patient_id": bson.M{
				"bsonType":  "string",
				"minLength": 1,
			},

			"doctor_id": bson.M{
				"bsonType":  "string",
				"minLength": 24,
				"maxLength": 24,
			},

			"booked_date": bson.M{
				"bsonType": "date",
			},

			"day_of_week": bson.M{
				"bsonType": []string{"int", "long"},
				"minimum":  0,
				"maximum":  6,
			},

			"time_slot": bson.M{
				"bsonType": "string",
				"enum":     []string{"8-12", "12-4", "4-8", "20-00"},
			},

			"reason": bson.M{
				"bsonType":  "string",
				"minLength": 2,
				"maxLength": 500,
			},

			"urgency": bson.M{
				"bsonType": "string",
				"enum":     []string{"low", "normal", "high", "emergency"},
			},

			"status": bson.M{
				"bsonType": "string",
				"enum": []string{
					"booked",
					"confirmed",
					"completed",
					"cancelled",
					"no-show",
				},
			},

			"active": bson.M{
				"bsonType": "bool",
			},

			"payment_status": bson.M{
				"bsonType": "string",
				"enum":     []string{"pending", "paid", "waived"},
			},

			"consultation_fee": bson.M{
				"bsonType": []string{"double", "int", "long"},
				"minimum":  0,
			},

			"status_history": bson.M{
				"bsonType": "array",
				"items": bson.M{
					"bsonType": "object",
					"required": []string{"to", "at"},
				},
			},

			"created_at": bson.M{
				"bsonType": "date",
			},
		},
	},
}
