package service

import (
	"context"
	"errors"
	"time"

	"github.com/dom/learnplay/internal/domain"
	"github.com/dom/learnplay/internal/genai"
	"github.com/dom/learnplay/internal/report"
	"github.com/dom/learnplay/internal/repository"
	"go.uber.org/zap"
)

type ReportService struct {
	gameRepo  repository.PlayedGameRepository
	generator genai.Generator
	timeout   time.Duration
	logger    *zap.Logger
}

func NewReportService(gameRepo repository.PlayedGameRepository, generator genai.Generator, timeout time.Duration, logger *zap.Logger) *ReportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReportService{
		gameRepo:  gameRepo,
		generator: generator,
		timeout:   timeout,
		logger:    logger,
	}
}

// Synthesize asks the generator for a report over the caller's full history.
// Nothing is persisted. Errors are *domain.ExternalServiceError or
// *domain.NormalizationError for generator trouble.
func (s *ReportService) Synthesize(ctx context.Context, auth domain.AuthContext) (*domain.GeneratedReport, error) {
	games, err := s.gameRepo.ListByUser(ctx, auth.UserID, false)
	if err != nil {
		return nil, err
	}

	parts, err := report.BuildPrompt(games)
	if err != nil {
		return nil, err
	}

	callCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	raw, err := s.generator.Generate(callCtx, parts...)
	if err != nil {
		var ext *domain.ExternalServiceError
		if !errors.As(err, &ext) {
			err = &domain.ExternalServiceError{Err: err}
		}
		s.logger.Warn("[service.Report] generation failed",
			zap.String("user_id", auth.UserID.String()),
			zap.Error(err))
		return nil, err
	}

	rep, err := report.NormalizeReport(raw)
	if err != nil {
		s.logger.Warn("[service.Report] generated report could not be normalized",
			zap.String("user_id", auth.UserID.String()),
			zap.Int("raw_length", len(raw)),
			zap.Error(err))
		return nil, err
	}
	return rep, nil
}

// Summary computes the report statistics locally.
func (s *ReportService) Summary(ctx context.Context, auth domain.AuthContext) (domain.ReportSummary, error) {
	games, err := s.gameRepo.ListByUser(ctx, auth.UserID, false)
	if err != nil {
		return domain.ReportSummary{}, err
	}
	return report.Summarize(games), nil
}
