// Package memory holds in-process repository implementations used for local
// development and unit tests.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/dom/learnplay/internal/domain"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
)

type SessionStore struct {
	mu       sync.Mutex
	sessions map[uuid.UUID]domain.Session
	clock    clockwork.Clock
}

func NewSessionStore(clock clockwork.Clock) *SessionStore {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &SessionStore{
		sessions: make(map[uuid.UUID]domain.Session),
		clock:    clock,
	}
}

func (s *SessionStore) Create(ctx context.Context, userID uuid.UUID, budgetMinutes int) (*domain.Session, error) {
	now := s.clock.Now()
	session := domain.Session{
		ID:                uuid.New(),
		UserID:            userID,
		LoginTime:         now,
		ActiveTimeMinutes: budgetMinutes,
		LastActivity:      now,
		IsActive:          true,
	}

	s.mu.Lock()
	s.sessions[session.ID] = session
	s.mu.Unlock()

	return &session, nil
}

func (s *SessionStore) Get(ctx context.Context, id uuid.UUID) (*domain.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, ok := s.sessions[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &session, nil
}

func (s *SessionStore) Save(ctx context.Context, session *domain.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.sessions[session.ID]
	if !ok {
		return domain.ErrNotFound
	}
	if stored.Version != session.Version || !stored.IsActive {
		return domain.ErrVersionConflict
	}

	session.Version++
	s.sessions[session.ID] = *session
	return nil
}

func (s *SessionStore) Deactivate(ctx context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.sessions[id]
	if !ok {
		return domain.ErrNotFound
	}
	s.end(&stored, s.clock.Now())
	return nil
}

func (s *SessionStore) DeactivateByUser(ctx context.Context, userID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.clock.Now()
	for _, stored := range s.sessions {
		if stored.UserID == userID {
			s.end(&stored, now)
		}
	}
	return nil
}

// end marks an active session terminal. Inactive sessions are left untouched.
// Caller holds mu.
func (s *SessionStore) end(stored *domain.Session, now time.Time) {
	if !stored.IsActive {
		return
	}
	stored.IsActive = false
	stored.EndedAt = &now
	stored.Version++
	s.sessions[stored.ID] = *stored
}

func (s *SessionStore) ListActive(ctx context.Context) ([]*domain.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]*domain.Session, 0)
	for _, stored := range s.sessions {
		if stored.IsActive {
			session := stored
			out = append(out, &session)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].LastActivity.Before(out[j].LastActivity) })
	return out, nil
}
