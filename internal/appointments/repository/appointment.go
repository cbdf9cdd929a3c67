package repository

import (
	"context"
	"errors"
	"fmt"
	appointmenterrors "medisched/internal/appointments/errors"
	"medisched/pkg/config"
	mongodb "medisched/pkg/db/mongo"
	"medisched/pkg/model"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	CollectionName        = "Appointments"
	DoctorsCollectionName = "Doctors"
	UsersCollectionName   = "Users"
)

type AppointmentRepository interface {
	Create(ctx context.Context, a *model.Appointment) error
	FindByID(ctx context.Context, id string) (*model.Appointment, error)
	FindView(ctx context.Context, id string) (*model.AppointmentView, error)
	FindViews(ctx context.Context, filter model.AppointmentFilter, limit int, offset int64) ([]*model.AppointmentView, error)
	Count(ctx context.Context, filter model.AppointmentFilter) (int64, error)
	ExistsActive(ctx context.Context, doctorID string, date time.Time, slot string, excludeID string) (bool, error)
	UpdateDetails(ctx context.Context, a *model.Appointment, expectedStatus string) error
	UpdateStatus(ctx context.Context, id string, change model.StatusChange, prescriptionID string) (*model.Appointment, error)
	CountByStatus(ctx context.Context, doctorID string) ([]model.StatusCount, error)
}

type mongoAppointmentRepository struct {
	cfg        *config.Config
	collection *mongo.Collection
}

func NewMongoAppointmentRepository(cfg *config.Config) AppointmentRepository {
	db := cfg.Client.Mongo.Database(cfg.MongoDatabaseName)
	return &mongoAppointmentRepository{
		cfg:        cfg,
		collection: db.Collection(CollectionName),
	}
}

func (r *mongoAppointmentRepository) Create(ctx context.Context, a *model.Appointment) error {
	ctx, cancel := mongodb.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	now := time.Now().UTC().Truncate(time.Millisecond)
	a.CreatedAt = now
	a.UpdatedAt = now
	a.StampDerived()

	result, err := r.collection.InsertOne(ctx, a)
	if err != nil {
		if mongodb.IsDuplicateKey(err) {
			return appointmenterrors.ErrSlotTaken
		}
		return fmt.Errorf("failed to create appointment: %w", err)
	}

	a.ID = mongodb.InsertedHex(result)
	return nil
}

func (r *mongoAppointmentRepository) FindByID(ctx context.Context, id string) (*model.Appointment, error) {
	ctx, cancel := mongodb.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	objectID, err := mongodb.ObjectID(id)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", appointmenterrors.ErrInvalidID, id)
	}

	var a model.Appointment
	if err := r.collection.FindOne(ctx, bson.M{"_id": objectID}).Decode(&a); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, appointmenterrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to find appointment: %w", err)
	}
	return &a, nil
}

func (r *mongoAppointmentRepository) FindView(ctx context.Context, id string) (*model.AppointmentView, error) {
	ctx, cancel := mongodb.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	objectID, err := mongodb.ObjectID(id)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", appointmenterrors.ErrInvalidID, id)
	}

	pipeline := append(mongo.Pipeline{
		{{Key: "$match", Value: bson.D{{Key: "_id", Value: objectID}}}},
		{{Key: "$limit", Value: 1}},
	}, displayStages()...)

	views, err := r.aggregateViews(ctx, pipeline)
	if err != nil {
		return nil, err
	}
	if len(views) == 0 {
		return nil, appointmenterrors.ErrNotFound
	}
	return views[0], nil
}

// FindViews lists matching appointments, most recent date first, with doctor
// and patient display data attached.
func (r *mongoAppointmentRepository) FindViews(ctx context.Context, filter model.AppointmentFilter, limit int, offset int64) ([]*model.AppointmentView, error) {
	ctx, cancel := mongodb.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: buildFilter(filter)}},
		{{Key: "$sort", Value: bson.D{{Key: "booked_date", Value: -1}, {Key: "time_slot", Value: 1}}}},
		{{Key: "$skip", Value: offset}},
		{{Key: "$limit", Value: int64(limit)}},
	}
	pipeline = append(pipeline, displayStages()...)

	return r.aggregateViews(ctx, pipeline)
}

func (r *mongoAppointmentRepository) Count(ctx context.Context, filter model.AppointmentFilter) (int64, error) {
	ctx, cancel := mongodb.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	count, err := r.collection.CountDocuments(ctx, buildFilter(filter))
	if err != nil {
		return 0, fmt.Errorf("failed to count appointments: %w", err)
	}
	return count, nil
}

// ExistsActive reports whether another booked or confirmed appointment holds
// the doctor's slot on date.
func (r *mongoAppointmentRepository) ExistsActive(ctx context.Context, doctorID string, date time.Time, slot string, excludeID string) (bool, error) {
	ctx, cancel := mongodb.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	filter := bson.M{
		"doctor_id":   doctorID,
		"booked_date": date,
		"time_slot":   slot,
		"active":      true,
	}
	if excludeID != "" {
		objectID, err := mongodb.ObjectID(excludeID)
		if err != nil {
			return false, fmt.Errorf("%w: %s", appointmenterrors.ErrInvalidID, excludeID)
		}
		filter["_id"] = bson.M{"$ne": objectID}
	}

	count, err := r.collection.CountDocuments(ctx, filter, options.Count().SetLimit(1))
	if err != nil {
		return false, fmt.Errorf("failed to check slot occupancy: %w", err)
	}
	return count > 0, nil
}

// UpdateDetails rewrites the editable fields of a while it is still in
// expectedStatus.
func (r *mongoAppointmentRepository) UpdateDetails(ctx context.Context, a *model.Appointment, expectedStatus string) error {
	ctx, cancel := mongodb.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	objectID, err := mongodb.ObjectID(a.ID)
	if err != nil {
		return fmt.Errorf("%w: %s", appointmenterrors.ErrInvalidID, a.ID)
	}

	a.UpdatedAt = time.Now().UTC().Truncate(time.Millisecond)
	a.StampDerived()

	update := bson.M{"$set": bson.M{
		"booked_date": a.BookedDate,
		"day_of_week": a.DayOfWeek,
		"time_slot":   a.TimeSlot,
		"reason":      a.Reason,
		"urgency":     a.Urgency,
		"notes":       a.Notes,
		"updated_at":  a.UpdatedAt,
	}}

	result, err := r.collection.UpdateOne(ctx, bson.M{"_id": objectID, "status": expectedStatus}, update)
	if err != nil {
		if mongodb.IsDuplicateKey(err) {
			return appointmenterrors.ErrSlotTaken
		}
		return fmt.Errorf("failed to update appointment: %w", err)
	}
	if result.MatchedCount == 0 {
		return r.missOrChanged(ctx, objectID)
	}
	return nil
}

// UpdateStatus applies change only if the appointment is still in change.From,
// appends it to the status history and keeps the active flag in step.
func (r *mongoAppointmentRepository) UpdateStatus(ctx context.Context, id string, change model.StatusChange, prescriptionID string) (*model.Appointment, error) {
	ctx, cancel := mongodb.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	objectID, err := mongodb.ObjectID(id)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", appointmenterrors.ErrInvalidID, id)
	}

	change.At = time.Now().UTC().Truncate(time.Millisecond)
	set := bson.M{
		"status":     change.To,
		"active":     model.IsActiveStatus(change.To),
		"updated_at": change.At,
	}
	if prescriptionID != "" {
		set["prescription_id"] = prescriptionID
	}
	update := bson.M{
		"$set":  set,
		"$push": bson.M{"status_history": change},
	}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var a model.Appointment
	err = r.collection.FindOneAndUpdate(ctx, bson.M{"_id": objectID, "status": change.From}, update, opts).Decode(&a)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, r.missOrChanged(ctx, objectID)
		}
		if mongodb.IsDuplicateKey(err) {
			return nil, appointmenterrors.ErrSlotTaken
		}
		return nil, fmt.Errorf("failed to update appointment status: %w", err)
	}
	return &a, nil
}

func (r *mongoAppointmentRepository) CountByStatus(ctx context.Context, doctorID string) ([]model.StatusCount, error) {
	ctx, cancel := mongodb.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	match := bson.D{}
	if doctorID != "" {
		match = append(match, bson.E{Key: "doctor_id", Value: doctorID})
	}
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: match}},
		{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: "$status"},
			{Key: "count", Value: bson.D{{Key: "$sum", Value: 1}}},
		}}},
		{{Key: "$sort", Value: bson.D{{Key: "_id", Value: 1}}}},
	}

	cursor, err := r.collection.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate appointment stats: %w", err)
	}
	defer cursor.Close(ctx)

	counts := []model.StatusCount{}
	if err := cursor.All(ctx, &counts); err != nil {
		return nil, fmt.Errorf("failed to decode appointment stats: %w", err)
	}
	return counts, nil
}

func (r *mongoAppointmentRepository) aggregateViews(ctx context.Context, pipeline mongo.Pipeline) ([]*model.AppointmentView, error) {
	cursor, err := r.collection.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("failed to load appointments: %w", err)
	}
	defer cursor.Close(ctx)

	views := []*model.AppointmentView{}
	if err := cursor.All(ctx, &views); err != nil {
		return nil, fmt.Errorf("failed to decode appointments: %w", err)
	}
	return views, nil
}

func (r *mongoAppointmentRepository) missOrChanged(ctx context.Context, objectID any) error {
	count, err := r.collection.CountDocuments(ctx, bson.M{"_id": objectID}, options.Count().SetLimit(1))
	if err != nil {
		return fmt.Errorf("failed to check appointment: %w", err)
	}
	if count == 0 {
		return appointmenterrors.ErrNotFound
	}
	return appointmenterrors.ErrStatusChanged
}

func buildFilter(f model.AppointmentFilter) bson.M {
	filter := bson.M{}
	if f.DoctorID != "" {
		filter["doctor_id"] = f.DoctorID
	}
	if f.PatientID != "" {
		filter["patient_id"] = f.PatientID
	}
	if f.Date != nil {
		filter["booked_date"] = *f.Date
	}
	switch len(f.Statuses) {
	case 0:
	case 1:
		filter["status"] = f.Statuses[0]
	default:
		filter["status"] = bson.M{"$in": f.Statuses}
	}
	return filter
}

// displayStages attach doctor and patient summaries. References are stored as
// hex strings, so they are converted before matching; malformed ones match nothing.
func displayStages() mongo.Pipeline {
	return mongo.Pipeline{
		lookupSummary(DoctorsCollectionName, "$doctor_id", "doctor", bson.D{
			{Key: "name", Value: 1},
			{Key: "email", Value: 1},
			{Key: "specialty", Value: 1},
		}),
		unwind("$doctor"),
		lookupSummary(UsersCollectionName, "$patient_id", "patient", bson.D{
			{Key: "name", Value: 1},
			{Key: "email", Value: 1},
		}),
		unwind("$patient"),
	}
}

func lookupSummary(from, localField, as string, projection bson.D) bson.D {
	return bson.D{{Key: "$lookup", Value: bson.D{
		{Key: "from", Value: from},
		{Key: "let", Value: bson.D{{Key: "ref", Value: bson.D{{Key: "$convert", Value: bson.D{
			{Key: "input", Value: localField},
			{Key: "to", Value: "objectId"},
			{Key: "onError", Value: nil},
			{Key: "onNull", Value: nil},
		}}}}}},
		{Key: "pipeline", Value: bson.A{
			bson.D{{Key: "$match", Value: bson.D{{Key: "$expr", Value: bson.D{
				{Key: "$eq", Value: bson.A{"$_id", "$$ref"}},
			}}}}},
			bson.D{{Key: "$project", Value: projection}},
		}},
		{Key: "as", Value: as},
	}}}
}

func unwind(path string) bson.D {
	return bson.D{{Key: "$unwind", Value: bson.D{
		{Key: "path", Value: path},
		{Key: "preserveNullAndEmptyArrays", Value: true},
	}}}
}
