package mongo

import (
	"context"
	"errors"
	"fmt"
	"medisched/pkg/model"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

const LockCollectionName = "Slot_locks"

var ErrLockHeld = errors.New("lock is held by another owner")

// LockStore hands out advisory locks backed by a unique _id. A TTL index on
// expires_at removes locks whose holder never released them.
type LockStore interface {
	Acquire(ctx context.Context, key, owner string, ttl time.Duration) (*model.Lock, error)
	Release(ctx context.Context, key, owner string) error
}

type mongoLockStore struct {
	collection *mongo.Collection
	now        func() time.Time
}

func NewLockStore(db *mongo.Database) LockStore {
	return &mongoLockStore{
		collection: db.Collection(LockCollectionName),
		now:        time.Now,
	}
}

func (s *mongoLockStore) Acquire(ctx context.Context, key, owner string, ttl time.Duration) (*model.Lock, error) {
	now := s.now().UTC()

	// A lock past its expiry may linger until the TTL monitor runs; reclaim it.
	if _, err := s.collection.DeleteOne(ctx, bson.M{"_id": key, "expires_at": bson.M{"$lte": now}}); err != nil {
		return nil, fmt.Errorf("failed to clear expired lock: %w", err)
	}

	lock := &model.Lock{
		ID:        key,
		Owner:     owner,
		ExpiresAt: now.Add(ttl),
		CreatedAt: now,
	}
	if _, err := s.collection.InsertOne(ctx, lock); err != nil {
		if IsDuplicateKey(err) {
			return nil, ErrLockHeld
		}
		return nil, fmt.Errorf("failed to acquire lock: %w", err)
	}
	return lock, nil
}

func (s *mongoLockStore) Release(ctx context.Context, key, owner string) error {
	_, err := s.collection.DeleteOne(ctx, bson.M{"_id": key, "owner": owner})
	if err != nil {
		return fmt.Errorf("failed to release lock: %w", err)
	}
	return nil
}
