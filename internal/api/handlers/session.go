package handlers

import (
	"net/http"

	"github.com/dom/learnplay/internal/api/middleware"
	"github.com/dom/learnplay/internal/api/response"
)

// Ping is the keep-alive target. Admission through the guard is the whole
// effect; the body reports what is left of the budget.
func Ping(w http.ResponseWriter, r *http.Request) {
	s, ok := middleware.SessionFrom(r.Context())
	if !ok {
		authRequired(w)
		return
	}

	response.JSON(w, http.StatusOK, map[string]interface{}{
		"active":  true,
		"session": newSessionResponse(s),
	})
}
