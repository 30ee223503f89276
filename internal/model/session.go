package model

import (
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
)

// Session represents a signed-in device. A session stays valid until its
// document is deleted; there is no expiry beyond explicit sign-out or
// revocation. SudoAt records the last successful password re-entry and is
// refreshed only through sudo confirmation.
type Session struct {
	ID        bson.ObjectID `bson:"_id,omitempty"`
	UserID    string        `bson:"user_id"`
	IPAddress *string       `bson:"ip_address"`
	UserAgent *string       `bson:"user_agent"`
	SudoAt    time.Time     `bson:"sudo_at"`
	CreatedAt time.Time     `bson:"created_at"`
	UpdatedAt time.Time     `bson:"updated_at"`
}
