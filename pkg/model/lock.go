package model

import "time"

// Lock is an advisory lock document. Its id encodes the guarded resource and a
// TTL index on expires_at reaps locks left behind by crashed holders.
type Lock struct {
	ID        string    `bson:"_id" json:"id"`
	Owner     string    `bson:"owner" json:"owner"`
	ExpiresAt time.Time `bson:"expires_at" json:"expires_at"`
	CreatedAt time.Time `bson:"created_at" json:"created_at"`
}
