package api

import (
	"context"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/p2r3/epochtal/internal/domain/model"
)

// LeaderboardDependencies defines the interface for leaderboard reads.
type LeaderboardDependencies interface {
	Leaderboard(ctx context.Context) (model.Leaderboard, error)
	CategoryLeaderboard(ctx context.Context, category string) ([]model.Run, error)
}

// LeaderboardHandler handles leaderboard requests.
type LeaderboardHandler struct {
	deps LeaderboardDependencies
}

// NewLeaderboardHandler creates a new leaderboard handler.
func NewLeaderboardHandler(deps LeaderboardDependencies) *LeaderboardHandler {
	return &LeaderboardHandler{deps: deps}
}

// HandleGetLeaderboard handles GET /leaderboard requests.
func (h *LeaderboardHandler) HandleGetLeaderboard(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_leaderboard"
	board, err := h.deps.Leaderboard(r.Context())
	if err != nil {
		writeDomainError(w, Wrap(op, err))
		return
	}
	if board == nil {
		board = model.Leaderboard{}
	}
	writeJSON(w, http.StatusOK, board)
}

// HandleGetCategory handles GET /leaderboard/{category} requests.
func (h *LeaderboardHandler) HandleGetCategory(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_category"
	runs, err := h.deps.CategoryLeaderboard(r.Context(), mux.Vars(r)["category"])
	if err != nil {
		writeDomainError(w, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, runs)
}
