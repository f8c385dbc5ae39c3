package postgres

import (
	"context"

	"github.com/dom/learnplay/internal/domain"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type playedGameRepository struct {
	db *gorm.DB
}

func NewPlayedGameRepository(db *gorm.DB) *playedGameRepository {
	return &playedGameRepository{db: db}
}

func (r *playedGameRepository) Create(ctx context.Context, game *domain.PlayedGame) error {
	return r.db.WithContext(ctx).Create(game).Error
}

func (r *playedGameRepository) ListByUser(ctx context.Context, userID uuid.UUID, newestFirst bool) ([]*domain.PlayedGame, error) {
	order := "timestamp ASC"
	if newestFirst {
		order = "timestamp DESC"
	}

	var games []*domain.PlayedGame
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order(order).
		Find(&games).Error
	if err != nil {
		return nil, err
	}
	return games, nil
}
