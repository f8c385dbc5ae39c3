package service

import (
	"time"

	"github.com/dom/learnplay/internal/config"
	"github.com/dom/learnplay/internal/genai"
	"github.com/dom/learnplay/internal/repository"
	"github.com/dom/learnplay/internal/token"
	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"
)

type Services struct {
	Auth   *AuthService
	Result *ResultService
	Report *ReportService
	Story  *StoryService
}

func NewServices(repos *repository.Repositories, tokens *token.Service, gen genai.Generator, cfg *config.Config, clock clockwork.Clock, logger *zap.Logger) *Services {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	aiTimeout := cfg.AITimeout
	if aiTimeout <= 0 {
		aiTimeout = 20 * time.Second
	}

	return &Services{
		Auth:   NewAuthService(repos.User, repos.Session, tokens, cfg.SessionBudgetMinutes, clock, logger),
		Result: NewResultService(repos.PlayedGame, clock),
		Report: NewReportService(repos.PlayedGame, gen, aiTimeout, logger),
		Story:  NewStoryService(gen, aiTimeout),
	}
}
