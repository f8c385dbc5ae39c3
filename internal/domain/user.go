package domain

import (
	"time"

	"github.com/google/uuid"
)

type User struct {
	ID           uuid.UUID `json:"id" gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	FullName     string    `json:"fullName" gorm:"not null"`
	Email        string    `json:"email" gorm:"uniqueIndex;not null"`
	PasswordHash string    `json:"-" gorm:"not null"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// AuthContext is the identity resolved by the session guard for one admitted request.
type AuthContext struct {
	UserID    uuid.UUID
	SessionID uuid.UUID
}

// IdentityClaims is the verified payload of an identity token.
// SessionID is nil for tokens that are not bound to a session.
type IdentityClaims struct {
	UserID    uuid.UUID
	SessionID *uuid.UUID
	ExpiresAt time.Time
}
