package discovery

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/Vasu1712/scenyx-live/internal/api"
	"github.com/Vasu1712/scenyx-live/internal/discovery"
	"github.com/Vasu1712/scenyx-live/internal/guard"
	"github.com/Vasu1712/scenyx-live/internal/showstate"
)

// Engine is the part of session.Engine the discovery routes use.
type Engine interface {
	Snapshot() showstate.State
	FindNearbyShows(ctx context.Context, radiusMeters float64) (discovery.Result, error)
	JoinWithLocation(ctx context.Context, showID string) error
}

type Handler struct {
	Engine Engine
}

// Nearby lists shows around the user. "radius" is in meters and optional.
func (h *Handler) Nearby(w http.ResponseWriter, r *http.Request) {
	var radius float64
	if v := r.URL.Query().Get("radius"); v != "" {
		parsed, err := strconv.ParseFloat(v, 64)
		if err != nil {
			api.WriteError(w, guard.Validation("radius", "must be a number"))
			return
		}
		radius = parsed
	}
	res, err := h.Engine.FindNearbyShows(r.Context(), radius)
	if err != nil {
		api.WriteError(w, err)
		return
	}
	api.WriteJSON(w, http.StatusOK, res)
}

// JoinWithLocation joins a show through the backend using the user's position
// and returns the resulting snapshot.
func (h *Handler) JoinWithLocation(w http.ResponseWriter, r *http.Request) {
	if err := h.Engine.JoinWithLocation(r.Context(), mux.Vars(r)["showID"]); err != nil {
		api.WriteError(w, err)
		return
	}
	api.WriteJSON(w, http.StatusOK, h.Engine.Snapshot())
}
