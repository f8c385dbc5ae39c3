// Package token issues and verifies the signed identity tokens carried in the auth cookie.
package token

import (
	"errors"
	"fmt"
	"time"

	"github.com/dom/learnplay/internal/domain"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
)

// DefaultTTL is the lifetime of an identity token.
const DefaultTTL = 7 * 24 * time.Hour

// Claims is the JWT payload. SessionID is empty for tokens not bound to a session.
type Claims struct {
	jwt.RegisteredClaims
	SessionID string `json:"session_id,omitempty"`
}

// Service signs tokens with HS256.
type Service struct {
	secret []byte
	ttl    time.Duration
	clock  clockwork.Clock
}

func NewService(secret string, ttl time.Duration, clock clockwork.Clock) *Service {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Service{secret: []byte(secret), ttl: ttl, clock: clock}
}

// TTL is the lifetime given to newly issued tokens.
func (s *Service) TTL() time.Duration {
	return s.ttl
}

// Issue signs a token for userID, bound to sessionID when it is non-nil.
func (s *Service) Issue(userID uuid.UUID, sessionID *uuid.UUID) (string, time.Time, error) {
	now := s.clock.Now()
	expiresAt := now.Add(s.ttl)

	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   userID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}
	if sessionID != nil {
		claims.SessionID = sessionID.String()
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, expiresAt, nil
}

// Verify checks the signature and expiry and decodes the identity.
// Anything that is not a validly signed, unexpired JWT returns
// domain.ErrInvalidToken; missing or unparseable required claims return
// domain.ErrMalformedToken.
func (s *Service) Verify(tokenString string) (domain.IdentityClaims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return s.secret, nil
	},
		jwt.WithTimeFunc(s.clock.Now),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenRequiredClaimMissing) {
			return domain.IdentityClaims{}, fmt.Errorf("%w: %v", domain.ErrMalformedToken, err)
		}
		return domain.IdentityClaims{}, fmt.Errorf("%w: %v", domain.ErrInvalidToken, err)
	}
	if !token.Valid {
		return domain.IdentityClaims{}, domain.ErrInvalidToken
	}

	if claims.Subject == "" {
		return domain.IdentityClaims{}, fmt.Errorf("%w: missing subject", domain.ErrMalformedToken)
	}
	userID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return domain.IdentityClaims{}, fmt.Errorf("%w: subject is not a user id", domain.ErrMalformedToken)
	}

	out := domain.IdentityClaims{UserID: userID, ExpiresAt: claims.ExpiresAt.Time}
	if claims.SessionID != "" {
		sessionID, err := uuid.Parse(claims.SessionID)
		if err != nil {
			return domain.IdentityClaims{}, fmt.Errorf("%w: session_id is not a session id", domain.ErrMalformedToken)
		}
		out.SessionID = &sessionID
	}
	return out, nil
}
