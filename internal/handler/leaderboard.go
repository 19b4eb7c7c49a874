package handler

import (
	"net/http"

	"github.com/tansyhq/choreboard/internal/scoring"
)

type LeaderboardHandler struct {
	resolver *scoring.Resolver
}

func NewLeaderboardHandler(resolver *scoring.Resolver) *LeaderboardHandler {
	return &LeaderboardHandler{resolver: resolver}
}

// Weekly ranks users by live current-period score.
func (h *LeaderboardHandler) Weekly(w http.ResponseWriter, r *http.Request) {
	entries, err := h.resolver.WeeklyLeaderboard()
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to build leaderboard"})
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

// AllTime ranks users by live score plus every historical rollover credit.
func (h *LeaderboardHandler) AllTime(w http.ResponseWriter, r *http.Request) {
	entries, err := h.resolver.AllTimeLeaderboard()
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to build leaderboard"})
		return
	}
	writeJSON(w, http.StatusOK, entries)
}
