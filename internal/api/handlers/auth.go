package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/dom/learnplay/internal/api/middleware"
	"github.com/dom/learnplay/internal/api/response"
	"github.com/dom/learnplay/internal/domain"
	"github.com/dom/learnplay/internal/service"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// SessionNotifier is told when a session ends so live connections can be closed.
type SessionNotifier interface {
	EndSession(sessionID uuid.UUID, reason string)
}

type AuthHandler struct {
	authService *service.AuthService
	notifier    SessionNotifier
	cookies     middleware.CookieConfig
	log         *zap.Logger
}

func NewAuthHandler(authService *service.AuthService, notifier SessionNotifier, cookies middleware.CookieConfig, log *zap.Logger) *AuthHandler {
	return &AuthHandler{
		authService: authService,
		notifier:    notifier,
		cookies:     cookies,
		log:         log,
	}
}

type SignupRequest struct {
	FullName string `json:"fullName"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type AuthResponse struct {
	Message string          `json:"message"`
	User    UserResponse    `json:"user"`
	Token   string          `json:"token"`
	Session SessionResponse `json:"session"`
}

type UserResponse struct {
	ID       string `json:"id"`
	FullName string `json:"fullName"`
	Email    string `json:"email"`
}

type SessionResponse struct {
	ID               string  `json:"id"`
	BudgetMinutes    int     `json:"budgetMinutes"`
	UsedSeconds      float64 `json:"usedSeconds"`
	RemainingSeconds float64 `json:"remainingSeconds"`
}

func newUserResponse(u *domain.User) UserResponse {
	return UserResponse{ID: u.ID.String(), FullName: u.FullName, Email: u.Email}
}

func newSessionResponse(s *domain.Session) SessionResponse {
	return SessionResponse{
		ID:               s.ID.String(),
		BudgetMinutes:    s.ActiveTimeMinutes,
		UsedSeconds:      s.UsedActiveTime,
		RemainingSeconds: s.RemainingSeconds(),
	}
}

func (h *AuthHandler) Signup(w http.ResponseWriter, r *http.Request) {
	var req SignupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, http.StatusBadRequest, domain.ReasonValidation, "Invalid request body")
		return
	}

	result, err := h.authService.Signup(r.Context(), service.SignupInput{
		FullName: req.FullName,
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		writeError(w, h.log, "handlers.Signup", err)
		return
	}

	h.respondWithSession(w, http.StatusCreated, "Signup successful", result)
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, http.StatusBadRequest, domain.ReasonValidation, "Invalid request body")
		return
	}

	if req.Email == "" || req.Password == "" {
		response.Error(w, http.StatusBadRequest, domain.ReasonValidation, "Email and password are required")
		return
	}

	result, err := h.authService.Login(r.Context(), service.LoginInput{
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		writeError(w, h.log, "handlers.Login", err)
		return
	}

	h.respondWithSession(w, http.StatusOK, "Login successful", result)
}

func (h *AuthHandler) respondWithSession(w http.ResponseWriter, status int, message string, result *service.AuthResult) {
	middleware.SetTokenCookie(w, result.Token, h.cookies)
	response.JSON(w, status, AuthResponse{
		Message: message,
		User:    newUserResponse(result.User),
		Token:   result.Token,
		Session: newSessionResponse(result.Session),
	})
}

func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	auth, ok := middleware.AuthFrom(r.Context())
	if !ok {
		authRequired(w)
		return
	}

	user, err := h.authService.GetUser(r.Context(), auth.UserID)
	if err != nil {
		writeError(w, h.log, "handlers.Me", err)
		return
	}

	response.JSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"user":    newUserResponse(user),
	})
}

// Logout always clears the credential cookie. The session, when the token
// still resolves to one, is ended without being charged.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	auth, ok := h.authService.LogoutToken(r.Context(), middleware.TokenFromRequest(r))
	if ok && h.notifier != nil {
		h.notifier.EndSession(auth.SessionID, "LOGGED_OUT")
	}

	middleware.ClearTokenCookie(w, h.cookies)
	response.JSON(w, http.StatusOK, map[string]bool{"success": true})
}
