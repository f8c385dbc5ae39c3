package postgres

import (
	"context"
	"errors"

	"github.com/dom/learnplay/internal/domain"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"gorm.io/gorm"
)

type sessionStore struct {
	db    *gorm.DB
	clock clockwork.Clock
}

func NewSessionStore(db *gorm.DB, clock clockwork.Clock) *sessionStore {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &sessionStore{db: db, clock: clock}
}

func (r *sessionStore) Create(ctx context.Context, userID uuid.UUID, budgetMinutes int) (*domain.Session, error) {
	now := r.clock.Now()
	session := &domain.Session{
		ID:                uuid.New(),
		UserID:            userID,
		LoginTime:         now,
		ActiveTimeMinutes: budgetMinutes,
		LastActivity:      now,
		IsActive:          true,
	}
	if err := r.db.WithContext(ctx).Create(session).Error; err != nil {
		return nil, err
	}
	return session, nil
}

func (r *sessionStore) Get(ctx context.Context, id uuid.UUID) (*domain.Session, error) {
	var session domain.Session
	err := r.db.WithContext(ctx).First(&session, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &session, nil
}

// Save writes the accounting fields only if nobody has written since the
// session was read and the stored row is still active.
func (r *sessionStore) Save(ctx context.Context, session *domain.Session) error {
	result := r.db.WithContext(ctx).
		Model(&domain.Session{}).
		Where("id = ? AND version = ? AND is_active = ?", session.ID, session.Version, true).
		Updates(map[string]interface{}{
			"used_active_time": session.UsedActiveTime,
			"last_activity":    session.LastActivity,
			"is_active":        session.IsActive,
			"ended_at":         session.EndedAt,
			"version":          gorm.Expr("version + 1"),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return r.missOrConflict(ctx, session.ID)
	}
	session.Version++
	return nil
}

func (r *sessionStore) Deactivate(ctx context.Context, id uuid.UUID) error {
	result := r.deactivate(ctx, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		if err := r.missOrConflict(ctx, id); errors.Is(err, domain.ErrNotFound) {
			return err
		}
	}
	return nil
}

func (r *sessionStore) DeactivateByUser(ctx context.Context, userID uuid.UUID) error {
	return r.deactivate(ctx, "user_id = ?", userID).Error
}

func (r *sessionStore) deactivate(ctx context.Context, query string, arg uuid.UUID) *gorm.DB {
	return r.db.WithContext(ctx).
		Model(&domain.Session{}).
		Where(query, arg).
		Where("is_active = ?", true).
		Updates(map[string]interface{}{
			"is_active": false,
			"ended_at":  r.clock.Now(),
			"version":   gorm.Expr("version + 1"),
		})
}

func (r *sessionStore) ListActive(ctx context.Context) ([]*domain.Session, error) {
	var sessions []*domain.Session
	err := r.db.WithContext(ctx).
		Where("is_active = ?", true).
		Order("last_activity ASC").
		Find(&sessions).Error
	return sessions, err
}

func (r *sessionStore) missOrConflict(ctx context.Context, id uuid.UUID) error {
	var count int64
	if err := r.db.WithContext(ctx).Model(&domain.Session{}).Where("id = ?", id).Count(&count).Error; err != nil {
		return err
	}
	if count == 0 {
		return domain.ErrNotFound
	}
	return domain.ErrVersionConflict
}
