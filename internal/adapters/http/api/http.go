// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gorilla/mux"

	service "github.com/p2r3/epochtal/internal/app"
	"github.com/p2r3/epochtal/internal/domain/errs"
	"github.com/p2r3/epochtal/internal/domain/model"
	"github.com/p2r3/epochtal/internal/domain/profile"
)

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	Submit(ctx context.Context, sub service.Submission) (model.Record, error)
	Retract(ctx context.Context, steamID uint64, category string) error
	RemoveByTimestamp(ctx context.Context, ts uint64) error

	Leaderboard(ctx context.Context) (model.Leaderboard, error)
	CategoryLeaderboard(ctx context.Context, category string) ([]model.Run, error)

	Profile(ctx context.Context, steamID uint64) (profile.Profile, error)
	StoredProfile(ctx context.Context, steamID uint64) (profile.Profile, error)
}

// Server wires HTTP routes for the business API.
type Server struct {
	healthHandler      *HealthHandler
	statsHandler       *StatsHandler
	runsHandler        *RunsHandler
	leaderboardHandler *LeaderboardHandler
	profileHandler     *ProfileHandler
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, statsProvider StatsProvider) *Server {
	return &Server{
		healthHandler:      NewHealthHandler(),
		statsHandler:       NewStatsHandler(statsProvider),
		runsHandler:        NewRunsHandler(deps),
		leaderboardHandler: NewLeaderboardHandler(deps),
		profileHandler:     NewProfileHandler(deps),
	}
}

// Register attaches all HTTP routes to router.
func (s *Server) Register(_ context.Context, router *mux.Router) {
	if router == nil {
		panic("router is nil")
	}
	router.Use(RequestIDMiddleware)

	router.HandleFunc("/healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz")).Methods(http.MethodGet)
	router.Handle("/metrics", s.healthHandler.MetricsHandler()).Methods(http.MethodGet)
	router.HandleFunc("/stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats")).Methods(http.MethodGet)

	router.HandleFunc("/leaderboard", MetricsMiddleware(s.leaderboardHandler.HandleGetLeaderboard, "leaderboard")).Methods(http.MethodGet)
	router.HandleFunc("/leaderboard/{category}", MetricsMiddleware(s.leaderboardHandler.HandleGetCategory, "leaderboard_category")).Methods(http.MethodGet)

	router.HandleFunc("/runs", MetricsMiddleware(s.runsHandler.HandleSubmit, "runs")).Methods(http.MethodPost)
	router.HandleFunc("/runs/retract", MetricsMiddleware(s.runsHandler.HandleRetract, "runs_retract")).Methods(http.MethodPost)
	router.HandleFunc("/runs/{timestamp}", MetricsMiddleware(s.runsHandler.HandleRemove, "runs_remove")).Methods(http.MethodDelete)

	router.HandleFunc("/profiles/{steamid}", MetricsMiddleware(s.profileHandler.HandleGetProfile, "profiles")).Methods(http.MethodGet)
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}

// writeDomainError maps an error kind to its HTTP status. Errors without a
// kind are internal.
func writeDomainError(w http.ResponseWriter, err error) {
	code := errs.Code(err)
	switch {
	case errors.Is(err, errs.ErrArgs), errors.Is(err, errs.ErrCategory):
		writeError(w, http.StatusBadRequest, code, err)
	case errors.Is(err, errs.ErrTimestamp), errors.Is(err, errs.ErrSteamID):
		writeError(w, http.StatusNotFound, code, err)
	case errors.Is(err, errs.ErrCorrupt):
		writeError(w, http.StatusInternalServerError, code, err)
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", err)
	}
}
