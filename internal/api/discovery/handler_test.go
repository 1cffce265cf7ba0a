package discovery

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Vasu1712/scenyx-live/internal/discovery"
	"github.com/Vasu1712/scenyx-live/internal/models"
	"github.com/Vasu1712/scenyx-live/internal/showstate"
)

type fakeEngine struct {
	radius float64
	err    error
	joined string
	state  showstate.State
}

func (f *fakeEngine) Snapshot() showstate.State { return f.state }

func (f *fakeEngine) FindNearbyShows(_ context.Context, radius float64) (discovery.Result, error) {
	f.radius = radius
	if f.err != nil {
		return discovery.Result{}, f.err
	}
	return discovery.Result{
		Fix:          discovery.Fix{Position: models.Position{Latitude: 52.37, Longitude: 4.89}, Approximate: true},
		RadiusMeters: radius,
		Shows:        []models.NearbyShow{{ID: "show-1", Name: "Friday Karaoke"}},
	}, nil
}

func (f *fakeEngine) JoinWithLocation(_ context.Context, showID string) error {
	if f.err != nil {
		return f.err
	}
	f.joined = showID
	f.state = showstate.State{Show: &models.Show{ID: showID}, Role: models.RoleSinger}
	return nil
}

func serve(e *fakeEngine, method, path string) *httptest.ResponseRecorder {
	r := mux.NewRouter()
	RegisterDiscoveryRoutes(r, &Handler{Engine: e})
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(method, path, nil))
	return rec
}

func TestHandler_Nearby(t *testing.T) {
	e := &fakeEngine{}
	rec := serve(e, http.MethodGet, "/api/v1/discovery/nearby?radius=1500")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1500.0, e.radius)

	var res discovery.Result
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&res))
	assert.True(t, res.Approximate)
	require.Len(t, res.Shows, 1)
	assert.Equal(t, "show-1", res.Shows[0].ID)

	rec = serve(e, http.MethodGet, "/api/v1/discovery/nearby?radius=far")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandler_NearbyErrors(t *testing.T) {
	tests := []struct {
		name string
		err  error
		code int
	}{
		{"permission denied", discovery.PermissionDenied(errors.New("denied")), http.StatusServiceUnavailable},
		{"backend down", &discovery.Error{Kind: discovery.KindNetwork, Retryable: true}, http.StatusBadGateway},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := serve(&fakeEngine{err: tt.err}, http.MethodGet, "/api/v1/discovery/nearby")
			assert.Equal(t, tt.code, rec.Code)
		})
	}
}

func TestHandler_JoinWithLocation(t *testing.T) {
	e := &fakeEngine{}
	rec := serve(e, http.MethodPost, "/api/v1/discovery/shows/show-9/join")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "show-9", e.joined)

	var st showstate.State
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&st))
	require.NotNil(t, st.Show)
	assert.Equal(t, "show-9", st.Show.ID)
}
