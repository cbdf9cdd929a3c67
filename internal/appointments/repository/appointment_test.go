package repository

import (
	"medisched/pkg/model"
	"reflect"
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/bson"
)

func TestBuildFilter(t *testing.T) {
	day := time.Date(2030, 3, 4, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name   string
		filter model.AppointmentFilter
		expect bson.M
	}{
		{"empty", model.AppointmentFilter{}, bson.M{}},
		{
			name:   "doctor day",
			filter: model.AppointmentFilter{DoctorID: "d1", Date: &day},
			expect: bson.M{"doctor_id": "d1", "booked_date": day},
		},
		{
			name:   "patient active",
			filter: model.AppointmentFilter{PatientID: "p1", Statuses: model.ActiveStatuses},
			expect: bson.M{"patient_id": "p1", "status": bson.M{"$in": model.ActiveStatuses}},
		},
		{
			name:   "single status",
			filter: model.AppointmentFilter{Statuses: []string{model.StatusCancelled}},
			expect: bson.M{"status": model.StatusCancelled},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := buildFilter(tt.filter); !reflect.DeepEqual(got, tt.expect) {
				t.Errorf("buildFilter() = %v, want %v", got, tt.expect)
			}
		})
	}
}

func TestDisplayStages(t *testing.T) {
	stages := displayStages()
	if len(stages) != 4 {
		t.Fatalf("expected 4 stages, got %d", len(stages))
	}

	wantOps := []string{"$lookup", "$unwind", "$lookup", "$unwind"}
	for i, stage := range stages {
		if stage[0].Key != wantOps[i] {
			t.Errorf("stage %d = %s, want %s", i, stage[0].Key, wantOps[i])
		}
	}

	lookup := stages[0][0].Value.(bson.D)
	if lookup.Map()["from"] != DoctorsCollectionName || lookup.Map()["as"] != "doctor" {
		t.Errorf("unexpected doctor lookup: %v", lookup)
	}
	lookup = stages[2][0].Value.(bson.D)
	if lookup.Map()["from"] != UsersCollectionName || lookup.Map()["as"] != "patient" {
		t.Errorf("unexpected patient lookup: %v", lookup)
	}

	if _, err := bson.Marshal(bson.D{{Key: "pipeline", Value: stages}}); err != nil {
		t.Fatalf("stages do not marshal: %v", err)
	}
}
