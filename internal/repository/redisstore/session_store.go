// Package redisstore keeps session records in Redis. Conditional writes use
// WATCH/MULTI so concurrent guards on the same session cannot lose updates.
package redisstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/dom/learnplay/internal/domain"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/redis/go-redis/v9"
)

const (
	activeSetKey = "sessions:active"

	// endedRetention is how long a terminal session stays readable.
	endedRetention = 7 * 24 * time.Hour

	maxDeactivateAttempts = 5
)

func sessionKey(id uuid.UUID) string {
	return "session:" + id.String()
}

func userSessionsKey(userID uuid.UUID) string {
	return "user_sessions:" + userID.String()
}

// Connect parses a redis:// URL and checks the server is reachable.
func Connect(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis url: %w", err)
	}
	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}
	return client, nil
}

type SessionStore struct {
	client *redis.Client
	clock  clockwork.Clock
}

func NewSessionStore(client *redis.Client, clock clockwork.Clock) *SessionStore {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &SessionStore{client: client, clock: clock}
}

func (s *SessionStore) Create(ctx context.Context, userID uuid.UUID, budgetMinutes int) (*domain.Session, error) {
	now := s.clock.Now()
	session := &domain.Session{
		ID:                uuid.New(),
		UserID:            userID,
		LoginTime:         now,
		ActiveTimeMinutes: budgetMinutes,
		LastActivity:      now,
		IsActive:          true,
	}

	data, err := json.Marshal(session)
	if err != nil {
		return nil, err
	}

	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, sessionKey(session.ID), data, 0)
		pipe.SAdd(ctx, userSessionsKey(userID), session.ID.String())
		pipe.SAdd(ctx, activeSetKey, session.ID.String())
		return nil
	})
	if err != nil {
		return nil, err
	}
	return session, nil
}

func (s *SessionStore) Get(ctx context.Context, id uuid.UUID) (*domain.Session, error) {
	return load(ctx, s.client, id)
}

func (s *SessionStore) Save(ctx context.Context, session *domain.Session) error {
	key := sessionKey(session.ID)

	err := s.client.Watch(ctx, func(tx *redis.Tx) error {
		stored, err := load(ctx, tx, session.ID)
		if err != nil {
			return err
		}
		if stored.Version != session.Version || !stored.IsActive {
			return domain.ErrVersionConflict
		}

		next := *session
		next.Version++
		return s.write(ctx, tx, &next)
	}, key)

	if errors.Is(err, redis.TxFailedErr) {
		return domain.ErrVersionConflict
	}
	if err != nil {
		return err
	}
	session.Version++
	return nil
}

func (s *SessionStore) Deactivate(ctx context.Context, id uuid.UUID) error {
	key := sessionKey(id)

	for attempt := 0; attempt < maxDeactivateAttempts; attempt++ {
		err := s.client.Watch(ctx, func(tx *redis.Tx) error {
			stored, err := load(ctx, tx, id)
			if err != nil {
				return err
			}
			if !stored.IsActive {
				return nil
			}

			now := s.clock.Now()
			stored.IsActive = false
			stored.EndedAt = &now
			stored.Version++
			return s.write(ctx, tx, stored)
		}, key)

		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		return err
	}
	return domain.ErrSessionContention
}

func (s *SessionStore) DeactivateByUser(ctx context.Context, userID uuid.UUID) error {
	ids, err := s.client.SMembers(ctx, userSessionsKey(userID)).Result()
	if err != nil {
		return err
	}
	for _, raw := range ids {
		id, err := uuid.Parse(raw)
		if err != nil {
			continue
		}
		if err := s.Deactivate(ctx, id); err != nil && !errors.Is(err, domain.ErrNotFound) {
			return err
		}
	}
	return nil
}

func (s *SessionStore) ListActive(ctx context.Context) ([]*domain.Session, error) {
	ids, err := s.client.SMembers(ctx, activeSetKey).Result()
	if err != nil {
		return nil, err
	}

	out := make([]*domain.Session, 0, len(ids))
	for _, raw := range ids {
		id, err := uuid.Parse(raw)
		if err != nil {
			continue
		}
		session, err := load(ctx, s.client, id)
		if errors.Is(err, domain.ErrNotFound) {
			s.client.SRem(ctx, activeSetKey, raw)
			continue
		}
		if err != nil {
			return nil, err
		}
		if session.IsActive {
			out = append(out, session)
		}
	}
	return out, nil
}

// write queues the session update in a MULTI block on the watched transaction.
func (s *SessionStore) write(ctx context.Context, tx *redis.Tx, session *domain.Session) error {
	data, err := json.Marshal(session)
	if err != nil {
		return err
	}

	_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		if session.IsActive {
			pipe.Set(ctx, sessionKey(session.ID), data, 0)
			return nil
		}
		pipe.Set(ctx, sessionKey(session.ID), data, endedRetention)
		pipe.SRem(ctx, activeSetKey, session.ID.String())
		return nil
	})
	return err
}

func load(ctx context.Context, c redis.Cmdable, id uuid.UUID) (*domain.Session, error) {
	data, err := c.Get(ctx, sessionKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	var session domain.Session
	if err := json.Unmarshal(data, &session); err != nil {
		return nil, fmt.Errorf("failed to decode session %s: %w", id, err)
	}
	return &session, nil
}
