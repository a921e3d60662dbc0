package api

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/p2r3/epochtal/internal/domain/errs"
	"github.com/p2r3/epochtal/internal/domain/model"
	"github.com/p2r3/epochtal/internal/domain/profile"
	"github.com/p2r3/epochtal/internal/domain/weeklog"
)

// ProfileDependencies defines the interface for profile reads.
type ProfileDependencies interface {
	Profile(ctx context.Context, steamID uint64) (profile.Profile, error)
	StoredProfile(ctx context.Context, steamID uint64) (profile.Profile, error)
}

// ProfileHandler handles profile requests.
type ProfileHandler struct {
	deps ProfileDependencies
}

// NewProfileHandler creates a new profile handler.
func NewProfileHandler(deps ProfileDependencies) *ProfileHandler {
	return &ProfileHandler{deps: deps}
}

type profileRecord struct {
	Category  string `json:"category"`
	Time      uint64 `json:"time"`
	Portals   uint64 `json:"portals"`
	Timestamp uint64 `json:"timestamp"`
}

// profileResponse carries the raw stream (base64) for binary decoders
// alongside a decoded view.
type profileResponse struct {
	SteamID    string          `json:"steamid"`
	Categories []string        `json:"categories"`
	Data       []byte          `json:"data"`
	Records    []profileRecord `json:"records"`
}

// HandleGetProfile handles GET /profiles/{steamid} requests. With
// ?cached=true the stored profile is returned instead of recompacting.
func (h *ProfileHandler) HandleGetProfile(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_profile"
	id, err := weeklog.ParseSteamID(mux.Vars(r)["steamid"])
	if err != nil {
		writeDomainError(w, err)
		return
	}
	cached := false
	if raw := r.URL.Query().Get("cached"); raw != "" {
		if cached, err = strconv.ParseBool(raw); err != nil {
			writeDomainError(w, errs.Wrap(op, errs.ErrArgs, err))
			return
		}
	}
	load := h.deps.Profile
	if cached {
		load = h.deps.StoredProfile
	}
	p, err := load(r.Context(), id)
	if err != nil {
		writeDomainError(w, Wrap(op, err))
		return
	}
	records, err := p.Records()
	if err != nil {
		writeDomainError(w, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, profileResponse{
		SteamID:    strconv.FormatUint(p.SteamID, 10),
		Categories: append([]string{}, p.Categories...),
		Data:       p.Data,
		Records:    toProfileRecords(records),
	})
}

func toProfileRecords(records []model.ProfileRecord) []profileRecord {
	out := make([]profileRecord, len(records))
	for i, r := range records {
		out[i] = profileRecord(r)
	}
	return out
}
