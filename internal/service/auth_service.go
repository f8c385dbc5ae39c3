package service

import (
	"context"
	"errors"
	"net/mail"
	"strings"

	"github.com/dom/learnplay/internal/domain"
	"github.com/dom/learnplay/internal/repository"
	"github.com/dom/learnplay/internal/token"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

const minPasswordLength = 6

type AuthService struct {
	userRepo      repository.UserRepository
	sessionStore  repository.SessionStore
	tokens        *token.Service
	budgetMinutes int
	clock         clockwork.Clock
	logger        *zap.Logger
}

func NewAuthService(userRepo repository.UserRepository, sessionStore repository.SessionStore, tokens *token.Service, budgetMinutes int, clock clockwork.Clock, logger *zap.Logger) *AuthService {
	if budgetMinutes <= 0 {
		budgetMinutes = domain.DefaultActiveTimeMinutes
	}
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuthService{
		userRepo:      userRepo,
		sessionStore:  sessionStore,
		tokens:        tokens,
		budgetMinutes: budgetMinutes,
		clock:         clock,
		logger:        logger,
	}
}

type SignupInput struct {
	FullName string
	Email    string
	Password string
}

type LoginInput struct {
	Email    string
	Password string
}

type AuthResult struct {
	User    *domain.User
	Session *domain.Session
	Token   string
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (s *AuthService) Signup(ctx context.Context, input SignupInput) (*AuthResult, error) {
	fullName := strings.TrimSpace(input.FullName)
	email := normalizeEmail(input.Email)

	if fullName == "" {
		return nil, &domain.ValidationError{Field: "fullName", Reason: "is required"}
	}
	if _, err := mail.ParseAddress(email); err != nil || email == "" {
		return nil, &domain.ValidationError{Field: "email", Reason: "must be a valid email address"}
	}
	if len(input.Password) < minPasswordLength {
		return nil, &domain.ValidationError{Field: "password", Reason: "must be at least 6 characters"}
	}

	existing, err := s.userRepo.GetByEmail(ctx, email)
	if err == nil && existing != nil {
		return nil, domain.ErrEmailExists
	}
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	user := &domain.User{
		ID:           uuid.New(),
		FullName:     fullName,
		Email:        email,
		PasswordHash: string(hashedPassword),
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, err
	}

	s.logger.Info("[service.Auth] user signed up", zap.String("user_id", user.ID.String()))
	return s.startSession(ctx, user)
}

func (s *AuthService) Login(ctx context.Context, input LoginInput) (*AuthResult, error) {
	user, err := s.userRepo.GetByEmail(ctx, normalizeEmail(input.Email))
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrInvalidCredentials
		}
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(input.Password)); err != nil {
		return nil, domain.ErrInvalidCredentials
	}

	return s.startSession(ctx, user)
}

// startSession is the only place sessions are created: previous sessions of
// the user are ended, then a fresh budget is opened and bound into the token.
func (s *AuthService) startSession(ctx context.Context, user *domain.User) (*AuthResult, error) {
	if err := s.sessionStore.DeactivateByUser(ctx, user.ID); err != nil {
		s.logger.Warn("[service.Auth] failed to end previous sessions",
			zap.String("user_id", user.ID.String()),
			zap.Error(err))
	}

	session, err := s.sessionStore.Create(ctx, user.ID, s.budgetMinutes)
	if err != nil {
		return nil, err
	}

	tok, _, err := s.tokens.Issue(user.ID, &session.ID)
	if err != nil {
		return nil, err
	}

	s.logger.Info("[service.Auth] session started",
		zap.String("user_id", user.ID.String()),
		zap.String("session_id", session.ID.String()),
		zap.Int("budget_minutes", session.ActiveTimeMinutes))

	return &AuthResult{User: user, Session: session, Token: tok}, nil
}

// Logout ends the caller's session. Failures are logged only.
func (s *AuthService) Logout(ctx context.Context, auth domain.AuthContext) {
	if err := s.sessionStore.Deactivate(ctx, auth.SessionID); err != nil && !errors.Is(err, domain.ErrNotFound) {
		s.logger.Warn("[service.Auth] failed to end session on logout",
			zap.String("session_id", auth.SessionID.String()),
			zap.Error(err))
	}
}

// LogoutToken ends the session behind rawToken without charging it. It
// reports the ended session, or false when the token does not resolve to a
// session owned by its subject.
func (s *AuthService) LogoutToken(ctx context.Context, rawToken string) (domain.AuthContext, bool) {
	if rawToken == "" {
		return domain.AuthContext{}, false
	}

	claims, err := s.tokens.Verify(rawToken)
	if err != nil || claims.SessionID == nil {
		return domain.AuthContext{}, false
	}

	session, err := s.sessionStore.Get(ctx, *claims.SessionID)
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			s.logger.Warn("[service.Auth] failed to load session on logout",
				zap.String("session_id", claims.SessionID.String()),
				zap.Error(err))
		}
		return domain.AuthContext{}, false
	}
	if session.UserID != claims.UserID {
		return domain.AuthContext{}, false
	}

	auth := domain.AuthContext{UserID: claims.UserID, SessionID: session.ID}
	s.Logout(ctx, auth)
	return auth, true
}

func (s *AuthService) GetUser(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	return s.userRepo.GetByID(ctx, id)
}
