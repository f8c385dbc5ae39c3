package api

import (
	"net/http"

	"github.com/dom/learnplay/internal/api/handlers"
	"github.com/dom/learnplay/internal/api/middleware"
	"github.com/dom/learnplay/internal/config"
	"github.com/dom/learnplay/internal/logger"
	"github.com/dom/learnplay/internal/service"
	"github.com/dom/learnplay/internal/session"
	"github.com/dom/learnplay/internal/websocket"
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

func NewRouter(services *service.Services, guard *session.Guard, hub *websocket.Hub, cfg *config.Config, log *zap.Logger) http.Handler {
	if log == nil {
		log = zap.NewNop()
	}

	r := chi.NewRouter()

	// Global middleware
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(logger.RequestLogger(log))
	r.Use(chiMiddleware.Recoverer)
	r.Use(middleware.CORS(cfg.AllowedOriginsList()))

	// Health check
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("OK"))
	})

	cookies := middleware.CookieConfig{Secure: cfg.CookieSecure, MaxAge: cfg.TokenTTL}
	requireSession := middleware.Session(guard, cookies, log)

	// Initialize handlers
	authHandler := handlers.NewAuthHandler(services.Auth, hub, cookies, log)
	resultHandler := handlers.NewResultHandler(services.Result, log)
	dashboardHandler := handlers.NewDashboardHandler(services.Report, log)
	storyHandler := handlers.NewStoryHandler(services.Story, log)
	wsHandler := handlers.NewWebSocketHandler(hub, guard, cfg.AllowedOriginsList(), log)

	// API v1 routes
	r.Route("/api/v1", func(r chi.Router) {
		// Public auth routes
		r.Route("/auth", func(r chi.Router) {
			r.Post("/signup", authHandler.Signup)
			r.Post("/login", authHandler.Login)
			r.Post("/logout", authHandler.Logout)

			// Protected auth routes
			r.With(requireSession).Get("/me", authHandler.Me)
		})

		// Protected routes
		r.Group(func(r chi.Router) {
			r.Use(requireSession)

			r.Get("/session/ping", handlers.Ping)

			r.Route("/results", func(r chi.Router) {
				r.Post("/", resultHandler.Create)
				r.Get("/", resultHandler.List)
			})

			r.Route("/dashboard/report", func(r chi.Router) {
				r.Get("/", dashboardHandler.Report)
				r.Get("/summary", dashboardHandler.Summary)
				r.Get("/data", resultHandler.Dataset)
			})

			r.Get("/stories", storyHandler.Get)
		})

		// WebSocket endpoint
		r.With(middleware.QueryToken, requireSession).Get("/ws", wsHandler.Handle)
	})

	return r
}
