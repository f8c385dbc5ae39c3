package service

import (
	"bytes"
	"context"
	"encoding/json"
	"math"
	"strings"

	"github.com/dom/learnplay/internal/domain"
	"github.com/dom/learnplay/internal/report"
	"github.com/dom/learnplay/internal/repository"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"gorm.io/datatypes"
)

type ResultService struct {
	gameRepo repository.PlayedGameRepository
	clock    clockwork.Clock
}

func NewResultService(gameRepo repository.PlayedGameRepository, clock clockwork.Clock) *ResultService {
	return &ResultService{gameRepo: gameRepo, clock: clock}
}

// ResultInput is a submitted game result. The owner is never part of it.
type ResultInput struct {
	GameName   string
	World      string
	Score      *float64
	TimePlayed *float64
	GameData   json.RawMessage
}

func (in ResultInput) validate() error {
	if strings.TrimSpace(in.GameName) == "" {
		return &domain.ValidationError{Field: "gameName", Reason: "is required"}
	}
	if in.Score == nil || math.IsNaN(*in.Score) || math.IsInf(*in.Score, 0) {
		return &domain.ValidationError{Field: "score", Reason: "must be a number"}
	}
	if in.TimePlayed == nil || math.IsNaN(*in.TimePlayed) || math.IsInf(*in.TimePlayed, 0) {
		return &domain.ValidationError{Field: "timePlayed", Reason: "must be a number"}
	}
	if *in.TimePlayed < 0 {
		return &domain.ValidationError{Field: "timePlayed", Reason: "must not be negative"}
	}
	if len(bytes.TrimSpace(in.GameData)) > 0 && !bytes.Equal(bytes.TrimSpace(in.GameData), []byte("null")) {
		var obj map[string]any
		if err := json.Unmarshal(in.GameData, &obj); err != nil {
			return &domain.ValidationError{Field: "gameData", Reason: "must be a JSON object"}
		}
	}
	return nil
}

// Record appends one result for the authenticated caller.
func (s *ResultService) Record(ctx context.Context, auth domain.AuthContext, input ResultInput) (*domain.PlayedGame, error) {
	if err := input.validate(); err != nil {
		return nil, err
	}

	world := strings.TrimSpace(input.World)
	if world == "" {
		world = domain.DefaultWorld
	}

	gameData := datatypes.JSON("{}")
	if trimmed := bytes.TrimSpace(input.GameData); len(trimmed) > 0 && !bytes.Equal(trimmed, []byte("null")) {
		gameData = datatypes.JSON(append([]byte(nil), trimmed...))
	}

	game := &domain.PlayedGame{
		ID:         uuid.New(),
		UserID:     auth.UserID,
		GameName:   strings.TrimSpace(input.GameName),
		World:      world,
		Score:      *input.Score,
		TimePlayed: *input.TimePlayed,
		GameData:   gameData,
		Timestamp:  s.clock.Now().UTC(),
	}

	if err := s.gameRepo.Create(ctx, game); err != nil {
		return nil, err
	}
	return game, nil
}

func (s *ResultService) List(ctx context.Context, auth domain.AuthContext, newestFirst bool) ([]*domain.PlayedGame, error) {
	return s.gameRepo.ListByUser(ctx, auth.UserID, newestFirst)
}

// Dataset returns the caller's results as chart points, oldest first.
func (s *ResultService) Dataset(ctx context.Context, auth domain.AuthContext) ([]report.DataPoint, error) {
	games, err := s.gameRepo.ListByUser(ctx, auth.UserID, false)
	if err != nil {
		return nil, err
	}
	return report.Dataset(games), nil
}
