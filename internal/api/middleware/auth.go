package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/dom/learnplay/internal/api/response"
	"github.com/dom/learnplay/internal/domain"
	"go.uber.org/zap"
)

type contextKey string

const (
	authKey    contextKey = "auth"
	sessionKey contextKey = "session"
)

// Admitter decides whether a request may proceed.
type Admitter interface {
	Admit(ctx context.Context, rawToken string) (domain.AuthContext, *domain.Session, error)
}

// TokenFromRequest returns the credential from the token cookie, falling back
// to an Authorization: Bearer header.
func TokenFromRequest(r *http.Request) string {
	if c, err := r.Cookie(TokenCookieName); err == nil && c.Value != "" {
		return c.Value
	}
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return ""
	}
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

// Session admits the request through the guard and attaches the resolved
// identity to its context. Rejections never reach next.
func Session(guard Admitter, cookies CookieConfig, log *zap.Logger) func(http.Handler) http.Handler {
	if log == nil {
		log = zap.NewNop()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			auth, session, err := guard.Admit(r.Context(), TokenFromRequest(r))
			if err != nil {
				writeRejection(w, r, err, cookies, log)
				return
			}

			ctx := context.WithValue(r.Context(), authKey, auth)
			ctx = context.WithValue(ctx, sessionKey, session)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func writeRejection(w http.ResponseWriter, r *http.Request, err error, cookies CookieConfig, log *zap.Logger) {
	reason, ok := domain.AuthReason(err)
	if !ok {
		log.Error("[middleware.Session] session check failed",
			zap.String("path", r.URL.Path),
			zap.Error(err))
		response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to check session")
		return
	}

	if errors.Is(err, domain.ErrSessionContention) {
		w.Header().Set("Retry-After", "1")
		response.Error(w, http.StatusServiceUnavailable, reason, err.Error())
		return
	}

	if errors.Is(err, domain.ErrActiveTimeExceeded) || errors.Is(err, domain.ErrSessionExpired) {
		ClearTokenCookie(w, cookies)
	}

	log.Debug("[middleware.Session] request rejected",
		zap.String("path", r.URL.Path),
		zap.String("reason", reason))
	response.Error(w, http.StatusUnauthorized, reason, rejectionMessage(reason))
}

func rejectionMessage(reason string) string {
	switch reason {
	case domain.ReasonUnauthenticated:
		return "Not authenticated"
	case domain.ReasonInvalidToken:
		return "Invalid token"
	case domain.ReasonMalformedToken:
		return "Malformed token"
	case domain.ReasonSessionExpired:
		return "Session expired"
	case domain.ReasonActiveTimeExceeded:
		return "Active time exceeded"
	}
	return "Unauthorized"
}

// AuthFrom returns the identity the Session middleware resolved.
func AuthFrom(ctx context.Context) (domain.AuthContext, bool) {
	auth, ok := ctx.Value(authKey).(domain.AuthContext)
	return auth, ok
}

// SessionFrom returns the session state as persisted by the admitting guard call.
func SessionFrom(ctx context.Context) (*domain.Session, bool) {
	s, ok := ctx.Value(sessionKey).(*domain.Session)
	return s, ok && s != nil
}

// QueryToken copies a ?token= query parameter into the Authorization header
// when the request carries no other credential. Browsers cannot set headers
// on WebSocket upgrades.
func QueryToken(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if TokenFromRequest(r) == "" {
			if tok := r.URL.Query().Get("token"); tok != "" {
				r.Header.Set("Authorization", "Bearer "+tok)
			}
		}
		next.ServeHTTP(w, r)
	})
}
