package handlers

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/markjakearzadon/apostas-gobackend/internal/services"
)

// FixtureHandler serves the fixtures listing.
type FixtureHandler struct {
	service *services.FixtureService
	log     *zap.Logger
}

// NewFixtureHandler creates a FixtureHandler.
func NewFixtureHandler(service *services.FixtureService, log *zap.Logger) *FixtureHandler {
	return &FixtureHandler{service: service, log: log}
}

// List handles GET /jogos.
func (h *FixtureHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	fixtures, err := h.service.ListFixtures(r.Context(), services.FixtureQuery{
		League: q.Get("league"),
		Season: q.Get("season"),
		Date:   q.Get("date"),
	})
	if err != nil {
		status := statusFor(err)
		if status >= http.StatusInternalServerError {
			h.log.Error("failed to list fixtures", zap.Error(err))
		}
		writeError(w, status, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, fixtures)
}
