package testutil

import (
	"context"
	"fmt"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/dom/learnplay/internal/api"
	"github.com/dom/learnplay/internal/config"
	"github.com/dom/learnplay/internal/genai"
	"github.com/dom/learnplay/internal/repository"
	"github.com/dom/learnplay/internal/repository/memory"
	repoPostgres "github.com/dom/learnplay/internal/repository/postgres"
	"github.com/dom/learnplay/internal/service"
	"github.com/dom/learnplay/internal/session"
	"github.com/dom/learnplay/internal/token"
	"github.com/dom/learnplay/internal/websocket"
	"github.com/jonboulle/clockwork"
	"github.com/testcontainers/testcontainers-go"
	tcPostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	gormPostgres "gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// TestDB manages a testcontainers PostgreSQL instance
type TestDB struct {
	Container testcontainers.Container
	DB        *gorm.DB
	DSN       string
}

// NewTestDB creates a new PostgreSQL testcontainer and returns a migrated connection
func NewTestDB(t *testing.T) *TestDB {
	t.Helper()

	ctx := context.Background()

	container, err := tcPostgres.Run(ctx,
		"postgres:15-alpine",
		tcPostgres.WithDatabase("test_learnplay"),
		tcPostgres.WithUsername("test"),
		tcPostgres.WithPassword("test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	if err != nil {
		t.Fatalf("failed to start postgres container: %v", err)
	}

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		t.Fatalf("failed to get connection string: %v", err)
	}

	db, err := gorm.Open(gormPostgres.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		t.Fatalf("failed to connect to database: %v", err)
	}

	if err := repoPostgres.Migrate(db); err != nil {
		t.Fatalf("failed to run migrations: %v", err)
	}

	testDB := &TestDB{
		Container: container,
		DB:        db,
		DSN:       dsn,
	}

	t.Cleanup(func() {
		testDB.Cleanup()
	})

	return testDB
}

// Cleanup terminates the container
func (tdb *TestDB) Cleanup() {
	if tdb.Container != nil {
		ctx := context.Background()
		tdb.Container.Terminate(ctx)
	}
}

// Truncate clears all tables for test isolation
func (tdb *TestDB) Truncate(t *testing.T) {
	t.Helper()

	tables := []string{
		"played_games",
		"sessions",
		"users",
	}

	for _, table := range tables {
		if err := tdb.DB.Exec(fmt.Sprintf("TRUNCATE TABLE %s CASCADE", table)).Error; err != nil {
			t.Logf("warning: failed to truncate %s: %v", table, err)
		}
	}
}

// TestConfig returns a configuration suitable for testing
func TestConfig() *config.Config {
	return &config.Config{
		Port:                 "0", // Random port
		Environment:          "test",
		LogLevel:             "error",
		SessionStore:         config.SessionStoreMemory,
		JWTSecret:            "test-jwt-secret-key-for-testing-only",
		TokenTTL:             token.DefaultTTL,
		SessionBudgetMinutes: 10,
		SessionSweepInterval: time.Minute,
		AIModel:              genai.DefaultModel,
		AIAPIKey:             "test-key",
		AITimeout:            2 * time.Second,
	}
}

// TestServer holds all components for integration testing
type TestServer struct {
	Server   *httptest.Server
	DB       *TestDB
	Repos    *repository.Repositories
	Services *service.Services
	Guard    *session.Guard
	Tokens   *token.Service
	Hub      *websocket.Hub
	Config   *config.Config
	Clock    *clockwork.FakeClock
	AI       *FakeGemini
}

type serverOptions struct {
	postgres bool
	cfg      func(*config.Config)
}

type ServerOption func(*serverOptions)

// WithPostgres backs the server with a PostgreSQL testcontainer instead of
// the in-memory stores.
func WithPostgres() ServerOption {
	return func(o *serverOptions) { o.postgres = true }
}

// WithConfig adjusts the test configuration before anything is built.
func WithConfig(fn func(*config.Config)) ServerOption {
	return func(o *serverOptions) { o.cfg = fn }
}

// NewTestServer creates a complete test server with all dependencies. Time is
// driven by ts.Clock and the text-generation service is ts.AI.
func NewTestServer(t *testing.T, opts ...ServerOption) *TestServer {
	t.Helper()

	var o serverOptions
	for _, opt := range opts {
		opt(&o)
	}

	cfg := TestConfig()
	if o.cfg != nil {
		o.cfg(cfg)
	}

	clock := clockwork.NewFakeClockAt(time.Date(2025, 1, 6, 9, 0, 0, 0, time.UTC))
	ai := NewFakeGemini(t)
	cfg.AIBaseURL = ai.URL()

	ts := &TestServer{
		Config: cfg,
		Clock:  clock,
		AI:     ai,
	}

	if o.postgres {
		ts.DB = NewTestDB(t)
		ts.Repos = repoPostgres.NewRepositories(ts.DB.DB, clock)
	} else {
		ts.Repos = memory.NewRepositories(clock)
	}

	ts.Tokens = token.NewService(cfg.JWTSecret, cfg.TokenTTL, clock)
	ts.Guard = session.NewGuard(ts.Tokens, ts.Repos.Session, clock, nil)
	ts.Hub = websocket.NewHub(nil)
	go ts.Hub.Run()

	generator := genai.NewGeminiClient(cfg.AIBaseURL, cfg.AIModel, cfg.AIAPIKey, ai.Server.Client(), nil)
	ts.Services = service.NewServices(ts.Repos, ts.Tokens, generator, cfg, clock, nil)

	router := api.NewRouter(ts.Services, ts.Guard, ts.Hub, cfg, nil)
	ts.Server = httptest.NewServer(router)

	t.Cleanup(func() {
		ts.Server.Close()
		ts.Hub.Stop()
	})

	return ts
}

// BaseURL returns the test server's base URL
func (ts *TestServer) BaseURL() string {
	return ts.Server.URL
}

// APIURL returns the full API URL for a given path
func (ts *TestServer) APIURL(path string) string {
	return fmt.Sprintf("%s/api/v1%s", ts.Server.URL, path)
}

// WebSocketURL returns the liveness WebSocket URL with token
func (ts *TestServer) WebSocketURL(token string) string {
	wsURL := "ws" + ts.Server.URL[4:] // Replace "http" with "ws"
	return fmt.Sprintf("%s/api/v1/ws?token=%s", wsURL, token)
}
