package models

import (
	"time"

	"github.com/google/uuid"
)

type UserToken struct {
	UserID            uuid.UUID `json:"user_id"`
	ApolloAccessToken string    `json:"-"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}
