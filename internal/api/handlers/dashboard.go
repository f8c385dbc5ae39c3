package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/dom/learnplay/internal/api/middleware"
	"github.com/dom/learnplay/internal/api/response"
	"github.com/dom/learnplay/internal/domain"
	"github.com/dom/learnplay/internal/service"
	"go.uber.org/zap"
)

type DashboardHandler struct {
	reportService *service.ReportService
	log           *zap.Logger
}

func NewDashboardHandler(reportService *service.ReportService, log *zap.Logger) *DashboardHandler {
	return &DashboardHandler{reportService: reportService, log: log}
}

// ReportFailure is returned when generated text could not be turned into a
// report. Summary holds the locally computed statistics.
type ReportFailure struct {
	Error   string                `json:"error"`
	Raw     string                `json:"raw,omitempty"`
	Summary *domain.ReportSummary `json:"summary,omitempty"`
}

func (h *DashboardHandler) Report(w http.ResponseWriter, r *http.Request) {
	auth, ok := middleware.AuthFrom(r.Context())
	if !ok {
		authRequired(w)
		return
	}

	rep, err := h.reportService.Synthesize(r.Context(), auth)
	if err == nil {
		response.JSON(w, http.StatusOK, rep)
		return
	}

	if r.Context().Err() != nil {
		// caller went away
		return
	}

	var nerr *domain.NormalizationError
	var ext *domain.ExternalServiceError
	switch {
	case errors.As(err, &nerr):
		failure := ReportFailure{Error: "Invalid JSON from AI", Raw: nerr.Raw}
		if summary, serr := h.reportService.Summary(r.Context(), auth); serr == nil {
			failure.Summary = &summary
		}
		response.JSON(w, http.StatusBadGateway, failure)
	case errors.As(err, &ext):
		if errors.Is(err, context.DeadlineExceeded) {
			response.JSON(w, http.StatusGatewayTimeout, ReportFailure{Error: "Report generation timed out"})
			return
		}
		response.JSON(w, http.StatusBadGateway, ReportFailure{Error: "Failed to generate report"})
	default:
		writeError(w, h.log, "handlers.Report", err)
	}
}

func (h *DashboardHandler) Summary(w http.ResponseWriter, r *http.Request) {
	auth, ok := middleware.AuthFrom(r.Context())
	if !ok {
		authRequired(w)
		return
	}

	summary, err := h.reportService.Summary(r.Context(), auth)
	if err != nil {
		writeError(w, h.log, "handlers.Summary", err)
		return
	}

	response.JSON(w, http.StatusOK, map[string]interface{}{"summary": summary})
}
