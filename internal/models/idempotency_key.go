package models

import "time"

// IdempotencyKey records a client-supplied request key. It is written once, in the same
// transaction as the order it protects.
type IdempotencyKey struct {
	Key       string    `json:"key" db:"key"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}
