package models

import (
	"time"

	"github.com/google/uuid"
)

type Customer struct {
	ID        uuid.UUID `json:"id" db:"id"`
	Name      string    `json:"name" db:"name"`
	Email     string    `json:"email" db:"email"`
	Document  string    `json:"document" db:"document"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}
