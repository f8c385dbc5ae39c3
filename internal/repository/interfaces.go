package repository

import (
	"context"

	"github.com/dom/learnplay/internal/domain"
	"github.com/google/uuid"
)

type UserRepository interface {
	Create(ctx context.Context, user *domain.User) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
}

// SessionStore persists session records.
//
// Save is a conditional write: it succeeds only when the stored Version equals
// session.Version, and on success increments both. A stale write returns
// domain.ErrVersionConflict and changes nothing. Get returns domain.ErrNotFound
// for unknown ids.
type SessionStore interface {
	Create(ctx context.Context, userID uuid.UUID, budgetMinutes int) (*domain.Session, error)
	Get(ctx context.Context, id uuid.UUID) (*domain.Session, error)
	Save(ctx context.Context, session *domain.Session) error
	Deactivate(ctx context.Context, id uuid.UUID) error
	DeactivateByUser(ctx context.Context, userID uuid.UUID) error
	ListActive(ctx context.Context) ([]*domain.Session, error)
}

type PlayedGameRepository interface {
	Create(ctx context.Context, game *domain.PlayedGame) error
	// ListByUser returns the user's records ordered by timestamp.
	ListByUser(ctx context.Context, userID uuid.UUID, newestFirst bool) ([]*domain.PlayedGame, error)
}

type Repositories struct {
	User       UserRepository
	Session    SessionStore
	PlayedGame PlayedGameRepository
}
