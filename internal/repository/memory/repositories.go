package memory

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/dom/learnplay/internal/domain"
	"github.com/dom/learnplay/internal/repository"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
)

func NewRepositories(clock clockwork.Clock) *repository.Repositories {
	return &repository.Repositories{
		User:       NewUserRepository(),
		Session:    NewSessionStore(clock),
		PlayedGame: NewPlayedGameRepository(),
	}
}

type UserRepository struct {
	mu    sync.RWMutex
	users map[uuid.UUID]domain.User
}

func NewUserRepository() *UserRepository {
	return &UserRepository{users: make(map[uuid.UUID]domain.User)}
}

func (r *UserRepository) Create(ctx context.Context, user *domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.users {
		if strings.EqualFold(existing.Email, user.Email) {
			return domain.ErrEmailExists
		}
	}
	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}
	r.users[user.ID] = *user
	return nil
}

func (r *UserRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	user, ok := r.users[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &user, nil
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, user := range r.users {
		if strings.EqualFold(user.Email, email) {
			u := user
			return &u, nil
		}
	}
	return nil, domain.ErrNotFound
}

type PlayedGameRepository struct {
	mu    sync.RWMutex
	games []domain.PlayedGame
}

func NewPlayedGameRepository() *PlayedGameRepository {
	return &PlayedGameRepository{}
}

func (r *PlayedGameRepository) Create(ctx context.Context, game *domain.PlayedGame) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if game.ID == uuid.Nil {
		game.ID = uuid.New()
	}
	stored := *game
	stored.GameData = append([]byte(nil), game.GameData...)
	r.games = append(r.games, stored)
	return nil
}

func (r *PlayedGameRepository) ListByUser(ctx context.Context, userID uuid.UUID, newestFirst bool) ([]*domain.PlayedGame, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*domain.PlayedGame, 0)
	for _, game := range r.games {
		if game.UserID == userID {
			g := game
			out = append(out, &g)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if newestFirst {
			return out[i].Timestamp.After(out[j].Timestamp)
		}
		return out[i].Timestamp.Before(out[j].Timestamp)
	})
	return out, nil
}
