package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/dom/learnplay/internal/api/middleware"
	"github.com/dom/learnplay/internal/api/response"
	"github.com/dom/learnplay/internal/domain"
	"github.com/dom/learnplay/internal/service"
	"go.uber.org/zap"
)

type ResultHandler struct {
	resultService *service.ResultService
	log           *zap.Logger
}

func NewResultHandler(resultService *service.ResultService, log *zap.Logger) *ResultHandler {
	return &ResultHandler{resultService: resultService, log: log}
}

// ResultRequest is a submitted result. Any owner field a client sends is
// ignored; the owner is the authenticated caller.
type ResultRequest struct {
	GameName   string          `json:"gameName"`
	World      string          `json:"world"`
	Score      *float64        `json:"score"`
	TimePlayed *float64        `json:"timePlayed"`
	GameData   json.RawMessage `json:"gameData"`
}

func (h *ResultHandler) Create(w http.ResponseWriter, r *http.Request) {
	auth, ok := middleware.AuthFrom(r.Context())
	if !ok {
		authRequired(w)
		return
	}

	var req ResultRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) && typeErr.Field != "" {
			response.Error(w, http.StatusBadRequest, domain.ReasonValidation, typeErr.Field+": must be a "+typeErr.Type.String())
			return
		}
		response.Error(w, http.StatusBadRequest, domain.ReasonValidation, "Invalid request body")
		return
	}

	game, err := h.resultService.Record(r.Context(), auth, service.ResultInput{
		GameName:   req.GameName,
		World:      req.World,
		Score:      req.Score,
		TimePlayed: req.TimePlayed,
		GameData:   req.GameData,
	})
	if err != nil {
		writeError(w, h.log, "handlers.CreateResult", err)
		return
	}

	response.JSON(w, http.StatusCreated, map[string]interface{}{
		"message": "Game data saved successfully",
		"result":  game,
	})
}

// List returns the caller's results, newest first unless ?order=asc.
func (h *ResultHandler) List(w http.ResponseWriter, r *http.Request) {
	auth, ok := middleware.AuthFrom(r.Context())
	if !ok {
		authRequired(w)
		return
	}

	newestFirst := r.URL.Query().Get("order") != "asc"
	games, err := h.resultService.List(r.Context(), auth, newestFirst)
	if err != nil {
		writeError(w, h.log, "handlers.ListResults", err)
		return
	}

	response.JSON(w, http.StatusOK, map[string]interface{}{"results": games})
}

func (h *ResultHandler) Dataset(w http.ResponseWriter, r *http.Request) {
	auth, ok := middleware.AuthFrom(r.Context())
	if !ok {
		authRequired(w)
		return
	}

	points, err := h.resultService.Dataset(r.Context(), auth)
	if err != nil {
		writeError(w, h.log, "handlers.Dataset", err)
		return
	}

	response.JSON(w, http.StatusOK, map[string]interface{}{"dataset": points})
}
