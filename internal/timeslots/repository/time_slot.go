package repository

import (
	"context"
	"errors"
	"fmt"
	timesloterrors "medisched/internal/timeslots/errors"
	"medisched/pkg/config"
	mongodb "medisched/pkg/db/mongo"
	"medisched/pkg/model"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	CollectionName = "Time_slots"
)

type TimeSlotRepository interface {
	CreateMany(ctx context.Context, slots []*model.TimeSlot) error
	FindByID(ctx context.Context, id string) (*model.TimeSlot, error)
	Find(ctx context.Context, filter model.SlotFilter, limit int, offset int64) ([]*model.TimeSlot, error)
	Count(ctx context.Context, filter model.SlotFilter) (int64, error)
	FindReviewed(ctx context.Context, doctorID string, dayOfWeek int, excludeID string) ([]*model.TimeSlot, error)
	UpdateStatus(ctx context.Context, id, from, to string) (*model.TimeSlot, error)
	DeleteWithStatus(ctx context.Context, id, status string) error
	ExecuteTransaction(ctx context.Context, fn mongodb.TransactionFunc) error
}

type mongoTimeSlotRepository struct {
	cfg        *config.Config
	collection *mongo.Collection
	txManager  mongodb.TransactionManager
}

func NewMongoTimeSlotRepository(cfg *config.Config) TimeSlotRepository {
	db := cfg.Client.Mongo.Database(cfg.MongoDatabaseName)
	return &mongoTimeSlotRepository{
		cfg:        cfg,
		collection: db.Collection(CollectionName),
		txManager:  mongodb.NewTransactionManager(cfg.Client.Mongo),
	}
}

func (r *mongoTimeSlotRepository) CreateMany(ctx context.Context, slots []*model.TimeSlot) error {
	if len(slots) == 0 {
		return nil
	}
	ctx, cancel := mongodb.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	now := time.Now().UTC().Truncate(time.Millisecond)
	docs := make([]any, len(slots))
	for i, s := range slots {
		s.CreatedAt = now
		s.UpdatedAt = now
		docs[i] = s
	}

	result, err := r.collection.InsertMany(ctx, docs)
	if err != nil {
		return fmt.Errorf("failed to create time slots: %w", err)
	}
	for i, id := range result.InsertedIDs {
		slots[i].ID = mongodb.InsertedHex(&mongo.InsertOneResult{InsertedID: id})
	}
	return nil
}

func (r *mongoTimeSlotRepository) FindByID(ctx context.Context, id string) (*model.TimeSlot, error) {
	ctx, cancel := mongodb.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	objectID, err := mongodb.ObjectID(id)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", timesloterrors.ErrInvalidID, id)
	}

	var slot model.TimeSlot
	err = r.collection.FindOne(ctx, bson.M{"_id": objectID}).Decode(&slot)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, timesloterrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to find time slot: %w", err)
	}
	return &slot, nil
}

// Find returns entries matching filter ordered by weekday then start time.
// A limit of zero returns every match.
func (r *mongoTimeSlotRepository) Find(ctx context.Context, filter model.SlotFilter, limit int, offset int64) ([]*model.TimeSlot, error) {
	ctx, cancel := mongodb.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	opts := options.Find().SetSort(bson.D{
		{Key: "doctor_id", Value: 1},
		{Key: "day_of_week", Value: 1},
		{Key: "start_time", Value: 1},
	})
	if limit > 0 {
		opts.SetLimit(int64(limit)).SetSkip(offset)
	}

	cursor, err := r.collection.Find(ctx, buildFilter(filter), opts)
	if err != nil {
		return nil, fmt.Errorf("failed to find time slots: %w", err)
	}
	defer cursor.Close(ctx)

	slots := []*model.TimeSlot{}
	if err = cursor.All(ctx, &slots); err != nil {
		return nil, fmt.Errorf("failed to decode time slots: %w", err)
	}
	return slots, nil
}

func (r *mongoTimeSlotRepository) Count(ctx context.Context, filter model.SlotFilter) (int64, error) {
	ctx, cancel := mongodb.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	count, err := r.collection.CountDocuments(ctx, buildFilter(filter))
	if err != nil {
		return 0, fmt.Errorf("failed to count time slots: %w", err)
	}
	return count, nil
}

// FindReviewed returns the doctor's available and unavailable entries on a
// weekday, the set an approval must not overlap.
func (r *mongoTimeSlotRepository) FindReviewed(ctx context.Context, doctorID string, dayOfWeek int, excludeID string) ([]*model.TimeSlot, error) {
	day := dayOfWeek
	slots, err := r.Find(ctx, model.SlotFilter{
		DoctorID:  doctorID,
		DayOfWeek: &day,
		Statuses:  []string{model.SlotAvailable, model.SlotUnavailable},
	}, 0, 0)
	if err != nil {
		return nil, err
	}

	filtered := slots[:0]
	for _, s := range slots {
		if s.ID != excludeID {
			filtered = append(filtered, s)
		}
	}
	return filtered, nil
}

// UpdateStatus moves an entry from one status to another only if it is still in
// the expected status, and returns the updated entry.
func (r *mongoTimeSlotRepository) UpdateStatus(ctx context.Context, id, from, to string) (*model.TimeSlot, error) {
	ctx, cancel := mongodb.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	objectID, err := mongodb.ObjectID(id)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", timesloterrors.ErrInvalidID, id)
	}

	update := bson.M{"$set": bson.M{
		"status":     to,
		"updated_at": time.Now().UTC().Truncate(time.Millisecond),
	}}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var slot model.TimeSlot
	err = r.collection.FindOneAndUpdate(ctx, bson.M{"_id": objectID, "status": from}, update, opts).Decode(&slot)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, r.missOrChanged(ctx, objectID)
		}
		return nil, fmt.Errorf("failed to update time slot status: %w", err)
	}
	return &slot, nil
}

func (r *mongoTimeSlotRepository) DeleteWithStatus(ctx context.Context, id, status string) error {
	ctx, cancel := mongodb.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	objectID, err := mongodb.ObjectID(id)
	if err != nil {
		return fmt.Errorf("%w: %s", timesloterrors.ErrInvalidID, id)
	}

	result, err := r.collection.DeleteOne(ctx, bson.M{"_id": objectID, "status": status})
	if err != nil {
		return fmt.Errorf("failed to delete time slot: %w", err)
	}
	if result.DeletedCount == 0 {
		return r.missOrChanged(ctx, objectID)
	}
	return nil
}

func (r *mongoTimeSlotRepository) ExecuteTransaction(ctx context.Context, fn mongodb.TransactionFunc) error {
	return r.txManager.ExecuteTransaction(ctx, fn)
}

func (r *mongoTimeSlotRepository) missOrChanged(ctx context.Context, objectID any) error {
	count, err := r.collection.CountDocuments(ctx, bson.M{"_id": objectID}, options.Count().SetLimit(1))
	if err != nil {
		return fmt.Errorf("failed to check time slot: %w", err)
	}
	if count == 0 {
		return timesloterrors.ErrNotFound
	}
	return timesloterrors.ErrStatusChanged
}

func buildFilter(f model.SlotFilter) bson.M {
	filter := bson.M{}
	if f.DoctorID != "" {
		filter["doctor_id"] = f.DoctorID
	}
	if f.DayOfWeek != nil {
		filter["day_of_week"] = *f.DayOfWeek
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
