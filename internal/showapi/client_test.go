package showapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Vasu1712/scenyx-live/internal/models"
)

func TestClient_Nearby(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/shows/nearby", r.URL.Path)
		assert.Equal(t, "52.37", r.URL.Query().Get("lat"))
		assert.Equal(t, "4.89", r.URL.Query().Get("lng"))
		assert.Equal(t, "2500", r.URL.Query().Get("radius"))
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		json.NewEncoder(w).Encode([]models.NearbyShow{{ID: "show-1", Name: "Friday Karaoke", DistanceMeters: 420}})
	}))
	defer srv.Close()

	c := New(srv.URL+"/", "tok", time.Second)
	shows, err := c.Nearby(context.Background(), models.Position{Latitude: 52.37, Longitude: 4.89}, 2500)
	require.NoError(t, err)
	require.Len(t, shows, 1)
	assert.Equal(t, "Friday Karaoke", shows[0].Name)
}

func TestClient_Join(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/v1/shows/show-1/join", r.URL.Path)
		var body map[string]float64
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, 52.37, body["latitude"])
		w.Write([]byte(`{"show":{"id":"show-1","name":"Friday Karaoke","djId":"dj"},"userRole":"singer"}`))
	}))
	defer srv.Close()

	c := New(srv.URL, "tok", time.Second)
	joined, err := c.Join(context.Background(), "show-1", &models.Position{Latitude: 52.37, Longitude: 4.89})
	require.NoError(t, err)
	assert.Equal(t, "show-1", joined.Show.ID)
	assert.Equal(t, models.RoleSinger, joined.UserRole)
}

func TestClient_StatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "show is full", http.StatusConflict)
	}))
	defer srv.Close()

	_, err := New(srv.URL, "", time.Second).Join(context.Background(), "show-1", nil)
	var se *StatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, http.StatusConflict, se.Code)
	assert.Equal(t, "show is full", se.Body)
}
