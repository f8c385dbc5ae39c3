package token_test

import (
	"testing"
	"time"

	"github.com/dom/learnplay/internal/domain"
	"github.com/dom/learnplay/internal/token"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const secret = "test-jwt-secret-key-for-testing-only"

func TestService_IssueAndVerify(t *testing.T) {
	clock := clockwork.NewFakeClock()
	svc := token.NewService(secret, 0, clock)
	userID := uuid.New()
	sessionID := uuid.New()

	t.Run("session bound", func(t *testing.T) {
		tok, expiresAt, err := svc.Issue(userID, &sessionID)
		require.NoError(t, err)
		assert.Equal(t, clock.Now().Add(token.DefaultTTL), expiresAt)

		claims, err := svc.Verify(tok)
		require.NoError(t, err)
		assert.Equal(t, userID, claims.UserID)
		require.NotNil(t, claims.SessionID)
		assert.Equal(t, sessionID, *claims.SessionID)
	})

	t.Run("identity only", func(t *testing.T) {
		tok, _, err := svc.Issue(userID, nil)
		require.NoError(t, err)

		claims, err := svc.Verify(tok)
		require.NoError(t, err)
		assert.Equal(t, userID, claims.UserID)
		assert.Nil(t, claims.SessionID)
	})
}

func TestService_VerifyExpired(t *testing.T) {
	clock := clockwork.NewFakeClock()
	svc := token.NewService(secret, time.Hour, clock)

	tok, _, err := svc.Issue(uuid.New(), nil)
	require.NoError(t, err)

	clock.Advance(59 * time.Minute)
	_, err = svc.Verify(tok)
	require.NoError(t, err)

	clock.Advance(2 * time.Minute)
	_, err = svc.Verify(tok)
	assert.ErrorIs(t, err, domain.ErrInvalidToken)
}

func TestService_VerifyFailures(t *testing.T) {
	clock := clockwork.NewFakeClock()
	svc := token.NewService(secret, time.Hour, clock)
	userID := uuid.New()

	sign := func(t *testing.T, claims jwt.Claims, key string) string {
		t.Helper()
		s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(key))
		require.NoError(t, err)
		return s
	}
	future := jwt.NewNumericDate(clock.Now().Add(time.Hour))

	tests := []struct {
		name    string
		token   func(t *testing.T) string
		wantErr error
	}{
		{
			name: "wrong signature",
			token: func(t *testing.T) string {
				return sign(t, token.Claims{RegisteredClaims: jwt.RegisteredClaims{
					Subject: userID.String(), ExpiresAt: future,
				}}, "another-secret")
			},
			wantErr: domain.ErrInvalidToken,
		},
		{
			name:    "garbage",
			token:   func(t *testing.T) string { return "not-a-token" },
			wantErr: domain.ErrInvalidToken,
		},
		{
			name:    "three garbage segments",
			token:   func(t *testing.T) string { return "not.a.jwt" },
			wantErr: domain.ErrInvalidToken,
		},
		{
			name: "missing subject",
			token: func(t *testing.T) string {
				return sign(t, token.Claims{RegisteredClaims: jwt.RegisteredClaims{ExpiresAt: future}}, secret)
			},
			wantErr: domain.ErrMalformedToken,
		},
		{
			name: "subject is not a uuid",
			token: func(t *testing.T) string {
				return sign(t, token.Claims{RegisteredClaims: jwt.RegisteredClaims{
					Subject: "42", ExpiresAt: future,
				}}, secret)
			},
			wantErr: domain.ErrMalformedToken,
		},
		{
			name: "bad session id",
			token: func(t *testing.T) string {
				return sign(t, token.Claims{
					RegisteredClaims: jwt.RegisteredClaims{Subject: userID.String(), ExpiresAt: future},
					SessionID:        "abc",
				}, secret)
			},
			wantErr: domain.ErrMalformedToken,
		},
		{
			name: "missing expiry",
			token: func(t *testing.T) string {
				return sign(t, token.Claims{RegisteredClaims: jwt.RegisteredClaims{Subject: userID.String()}}, secret)
			},
			wantErr: domain.ErrMalformedToken,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Verify(tt.token(t))
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}
