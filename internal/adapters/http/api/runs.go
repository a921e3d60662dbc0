package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/mux"

	service "github.com/p2r3/epochtal/internal/app"
	"github.com/p2r3/epochtal/internal/domain/errs"
	"github.com/p2r3/epochtal/internal/domain/model"
	"github.com/p2r3/epochtal/internal/domain/weeklog"
)

// RunsDependencies defines the interface for ledger mutations.
type RunsDependencies interface {
	Submit(ctx context.Context, sub service.Submission) (model.Record, error)
	Retract(ctx context.Context, steamID uint64, category string) error
	RemoveByTimestamp(ctx context.Context, ts uint64) error
}

// RunsHandler handles submission, retraction and removal requests.
type RunsHandler struct {
	deps RunsDependencies
}

// NewRunsHandler creates a new runs handler.
func NewRunsHandler(deps RunsDependencies) *RunsHandler {
	return &RunsHandler{deps: deps}
}

// submitRequest is the body of POST /runs. steamid is a decimal string
// because it does not fit a JSON number.
type submitRequest struct {
	SteamID   string `json:"steamid"`
	Category  string `json:"category"`
	Time      uint64 `json:"time"`
	Portals   uint64 `json:"portals"`
	Note      string `json:"note"`
	Segmented bool   `json:"segmented"`
}

type retractRequest struct {
	SteamID  string `json:"steamid"`
	Category string `json:"category"`
}

type submitResponse struct {
	Status    string `json:"status"`
	Timestamp uint64 `json:"timestamp"`
}

type ackResponse struct {
	Status string `json:"status"`
}

func parseSteamID(op, raw string) (uint64, error) {
	if strings.TrimSpace(raw) == "" {
		return 0, errs.Wrap(op, errs.ErrArgs, errors.New("missing steamid"))
	}
	return weeklog.ParseSteamID(raw)
}

// HandleSubmit handles POST /runs requests.
func (h *RunsHandler) HandleSubmit(w http.ResponseWriter, r *http.Request) {
	const op = "api.submit_run"
	var req submitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeDomainError(w, errs.Wrap(op, errs.ErrArgs, err))
		return
	}
	id, err := parseSteamID(op, req.SteamID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	rec, err := h.deps.Submit(r.Context(), service.Submission{
		SteamID:   id,
		Category:  req.Category,
		Time:      req.Time,
		Portals:   req.Portals,
		Note:      req.Note,
		Segmented: req.Segmented,
	})
	if err != nil {
		writeDomainError(w, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusCreated, submitResponse{Status: "accepted", Timestamp: rec.Timestamp})
}

// HandleRetract handles POST /runs/retract requests.
func (h *RunsHandler) HandleRetract(w http.ResponseWriter, r *http.Request) {
	const op = "api.retract_run"
	var req retractRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeDomainError(w, errs.Wrap(op, errs.ErrArgs, err))
		return
	}
	id, err := parseSteamID(op, req.SteamID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if err := h.deps.Retract(r.Context(), id, req.Category); err != nil {
		writeDomainError(w, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, ackResponse{Status: "retracted"})
}

// HandleRemove handles DELETE /runs/{timestamp} requests.
func (h *RunsHandler) HandleRemove(w http.ResponseWriter, r *http.Request) {
	const op = "api.remove_run"
	ts, err := strconv.ParseUint(mux.Vars(r)["timestamp"], 10, 64)
	if err != nil {
		writeDomainError(w, errs.Wrap(op, errs.ErrArgs, err))
		return
	}
	if err := h.deps.RemoveByTimestamp(r.Context(), ts); err != nil {
		writeDomainError(w, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, ackResponse{Status: "removed"})
}
