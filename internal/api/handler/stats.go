package handler

import (
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/curzel-it/battld/internal/api/response"
	"github.com/curzel-it/battld/internal/model"
	"github.com/curzel-it/battld/internal/services/stats"
)

// maxLeaderboardSize caps the limit query parameter
const maxLeaderboardSize = 100

// StatsHandler serves player records and the leaderboard
type StatsHandler struct {
	statsService *stats.Service
}

// NewStatsHandler creates a new stats handler
func NewStatsHandler(statsService *stats.Service) *StatsHandler {
	return &StatsHandler{statsService: statsService}
}

// PlayerStats handles GET /api/v1/players/{id}/stats
func (h *StatsHandler) PlayerStats(w http.ResponseWriter, r *http.Request) {
	playerID := model.PlayerID(mux.Vars(r)["id"])

	s, err := h.statsService.PlayerStats(r.Context(), playerID)
	if err != nil {
		WriteError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, response.StatsFromModel(s))
}

// Leaderboard handles GET /api/v1/leaderboard?limit=N
func (h *StatsHandler) Leaderboard(w http.ResponseWriter, r *http.Request) {
	limit := stats.DefaultLeaderboardSize
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			WriteError(w, NewInvalidRequestError("limit must be a positive integer"))
			return
		}
		limit = min(n, maxLeaderboardSize)
	}

	entries, err := h.statsService.Leaderboard(r.Context(), limit)
	if err != nil {
		WriteError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, response.LeaderboardFromModel(entries))
}
