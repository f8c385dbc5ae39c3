package session

import (
	"context"
	"errors"
	"fmt"

	"github.com/dom/learnplay/internal/domain"
	"github.com/dom/learnplay/internal/repository"
	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"
)

// maxAdmitAttempts bounds reload-and-retry when concurrent requests race on one session.
const maxAdmitAttempts = 8

// TokenVerifier verifies identity tokens.
type TokenVerifier interface {
	Verify(token string) (domain.IdentityClaims, error)
}

// Guard admits or rejects protected calls.
type Guard struct {
	tokens TokenVerifier
	store  repository.SessionStore
	clock  clockwork.Clock
	log    *zap.Logger
}

func NewGuard(tokens TokenVerifier, store repository.SessionStore, clock clockwork.Clock, log *zap.Logger) *Guard {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Guard{tokens: tokens, store: store, clock: clock, log: log}
}

// Admit resolves rawToken to an identity and charges the elapsed time to its
// session. The returned session reflects the persisted state after the charge.
//
// Errors are domain.ErrUnauthenticated, domain.ErrInvalidToken,
// domain.ErrMalformedToken, domain.ErrSessionExpired,
// domain.ErrActiveTimeExceeded, domain.ErrSessionContention, or a wrapped store error.
func (g *Guard) Admit(ctx context.Context, rawToken string) (domain.AuthContext, *domain.Session, error) {
	if rawToken == "" {
		return domain.AuthContext{}, nil, domain.ErrUnauthenticated
	}

	claims, err := g.tokens.Verify(rawToken)
	if err != nil {
		return domain.AuthContext{}, nil, err
	}
	if claims.SessionID == nil {
		// identity-only tokens carry no budget to account against
		return domain.AuthContext{}, nil, domain.ErrSessionExpired
	}

	for attempt := 0; attempt < maxAdmitAttempts; attempt++ {
		s, err := g.store.Get(ctx, *claims.SessionID)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return domain.AuthContext{}, nil, domain.ErrSessionExpired
			}
			return domain.AuthContext{}, nil, fmt.Errorf("failed to load session: %w", err)
		}
		if s.UserID != claims.UserID {
			g.log.Warn("[session.Guard] token subject does not own session",
				zap.String("session_id", s.ID.String()),
				zap.String("user_id", claims.UserID.String()))
			return domain.AuthContext{}, nil, domain.ErrInvalidToken
		}

		outcome := Accumulate(*s, g.clock.Now())
		if outcome.Decision == AlreadyInactive {
			return domain.AuthContext{}, nil, domain.ErrSessionExpired
		}

		next := outcome.Session
		if err := g.store.Save(ctx, &next); err != nil {
			if errors.Is(err, domain.ErrVersionConflict) {
				continue
			}
			if errors.Is(err, domain.ErrNotFound) {
				return domain.AuthContext{}, nil, domain.ErrSessionExpired
			}
			return domain.AuthContext{}, nil, fmt.Errorf("failed to save session: %w", err)
		}

		if outcome.Decision == Exhausted {
			g.log.Info("[session.Guard] active time exceeded",
				zap.String("session_id", next.ID.String()),
				zap.Float64("used_seconds", next.UsedActiveTime),
				zap.Int("budget_minutes", next.ActiveTimeMinutes))
			return domain.AuthContext{}, &next, domain.ErrActiveTimeExceeded
		}

		return domain.AuthContext{UserID: claims.UserID, SessionID: next.ID}, &next, nil
	}

	g.log.Warn("[session.Guard] gave up after repeated version conflicts",
		zap.String("session_id", claims.SessionID.String()))
	return domain.AuthContext{}, nil, domain.ErrSessionContention
}
