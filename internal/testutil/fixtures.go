package testutil

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/dom/learnplay/internal/domain"
	"github.com/dom/learnplay/internal/repository"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// UserBuilder creates test users with a builder pattern
type UserBuilder struct {
	fullName string
	email    string
	password string
}

// NewUserBuilder creates a new UserBuilder with default values
func NewUserBuilder() *UserBuilder {
	suffix := uuid.New().String()[:8]
	return &UserBuilder{
		fullName: fmt.Sprintf("Test Learner %s", suffix),
		email:    fmt.Sprintf("learner_%s@example.com", suffix),
		password: "testpassword123",
	}
}

// WithFullName sets the full name
func (b *UserBuilder) WithFullName(name string) *UserBuilder {
	b.fullName = name
	return b
}

// WithEmail sets the email
func (b *UserBuilder) WithEmail(email string) *UserBuilder {
	b.email = email
	return b
}

// WithPassword sets the password
func (b *UserBuilder) WithPassword(password string) *UserBuilder {
	b.password = password
	return b
}

func (b *UserBuilder) newUser(t *testing.T) *domain.User {
	t.Helper()

	// MinCost keeps fixtures fast
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(b.password), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("failed to hash password: %v", err)
	}

	return &domain.User{
		ID:           uuid.New(),
		FullName:     b.fullName,
		Email:        b.email,
		PasswordHash: string(hashedPassword),
		CreatedAt:    time.Now(),
		UpdatedAt:    time.Now(),
	}
}

// Build creates the user in the database and returns the user with the raw password
func (b *UserBuilder) Build(t *testing.T, db *gorm.DB) (*domain.User, string) {
	t.Helper()

	user := b.newUser(t)
	if err := db.Create(user).Error; err != nil {
		t.Fatalf("failed to create user: %v", err)
	}
	return user, b.password
}

// Save creates the user through a repository and returns the user with the raw password
func (b *UserBuilder) Save(t *testing.T, repo repository.UserRepository) (*domain.User, string) {
	t.Helper()

	user := b.newUser(t)
	if err := repo.Create(context.Background(), user); err != nil {
		t.Fatalf("failed to create user: %v", err)
	}
	return user, b.password
}

// AuthResponse matches the API auth response
type AuthResponse struct {
	Message string `json:"message"`
	User    struct {
		ID       string `json:"id"`
		FullName string `json:"fullName"`
		Email    string `json:"email"`
	} `json:"user"`
	Token   string `json:"token"`
	Session struct {
		ID               string  `json:"id"`
		BudgetMinutes    int     `json:"budgetMinutes"`
		UsedSeconds      float64 `json:"usedSeconds"`
		RemainingSeconds float64 `json:"remainingSeconds"`
	} `json:"session"`
}

// BuildAndAuthenticate signs the user up via the API and returns the user and token
func (b *UserBuilder) BuildAndAuthenticate(t *testing.T, ts *TestServer) (*domain.User, string) {
	t.Helper()

	reqBody := map[string]string{
		"fullName": b.fullName,
		"email":    b.email,
		"password": b.password,
	}
	body, _ := json.Marshal(reqBody)

	resp, err := http.Post(ts.APIURL("/auth/signup"), "application/json", bytes.NewBuffer(body))
	if err != nil {
		t.Fatalf("failed to sign up user: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("unexpected status code: %d", resp.StatusCode)
	}

	var authResp AuthResponse
	if err := json.NewDecoder(resp.Body).Decode(&authResp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}

	userID, _ := uuid.Parse(authResp.User.ID)
	user := &domain.User{
		ID:       userID,
		FullName: authResp.User.FullName,
		Email:    authResp.User.Email,
	}

	return user, authResp.Token
}

// GameBuilder creates played-game records
type GameBuilder struct {
	game domain.PlayedGame
}

func NewGameBuilder(userID uuid.UUID) *GameBuilder {
	return &GameBuilder{game: domain.PlayedGame{
		UserID:     userID,
		GameName:   "Alphabet Match",
		World:      domain.DefaultWorld,
		Score:      50,
		TimePlayed: 60,
		GameData:   datatypes.JSON(`{}`),
		Timestamp:  time.Date(2025, 1, 1, 10, 0, 0, 0, time.UTC),
	}}
}

func (b *GameBuilder) WithName(name string) *GameBuilder {
	b.game.GameName = name
	return b
}

func (b *GameBuilder) WithWorld(world string) *GameBuilder {
	b.game.World = world
	return b
}

func (b *GameBuilder) WithScore(score float64) *GameBuilder {
	b.game.Score = score
	return b
}

// WithAccuracy sets gameData.accuracy
func (b *GameBuilder) WithAccuracy(accuracy float64) *GameBuilder {
	b.game.GameData = datatypes.JSON(fmt.Sprintf(`{"accuracy":%v}`, accuracy))
	return b
}

func (b *GameBuilder) At(ts time.Time) *GameBuilder {
	b.game.Timestamp = ts
	return b
}

// Save stores the record and returns it
func (b *GameBuilder) Save(t *testing.T, repo repository.PlayedGameRepository) *domain.PlayedGame {
	t.Helper()

	game := b.game
	game.ID = uuid.New()
	if err := repo.Create(context.Background(), &game); err != nil {
		t.Fatalf("failed to create played game: %v", err)
	}
	return &game
}
