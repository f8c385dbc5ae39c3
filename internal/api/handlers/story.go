package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/dom/learnplay/internal/api/response"
	"github.com/dom/learnplay/internal/domain"
	"github.com/dom/learnplay/internal/service"
	"go.uber.org/zap"
)

type StoryHandler struct {
	storyService *service.StoryService
	log          *zap.Logger
}

func NewStoryHandler(storyService *service.StoryService, log *zap.Logger) *StoryHandler {
	return &StoryHandler{storyService: storyService, log: log}
}

func (h *StoryHandler) Get(w http.ResponseWriter, r *http.Request) {
	story, err := h.storyService.Story(r.Context())
	if err != nil {
		if r.Context().Err() != nil {
			return
		}
		if errors.Is(err, domain.ErrExternalService) {
			h.log.Warn("[handlers.Story] generation failed", zap.Error(err))
			status := http.StatusBadGateway
			if errors.Is(err, context.DeadlineExceeded) {
				status = http.StatusGatewayTimeout
			}
			response.JSON(w, status, map[string]string{"error": "Failed to generate story"})
			return
		}
		writeError(w, h.log, "handlers.Story", err)
		return
	}

	response.JSON(w, http.StatusOK, map[string]string{"story": story})
}
