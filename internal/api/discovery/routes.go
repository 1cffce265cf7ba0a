package discovery

import (
	"log"
	"net/http"

	"github.com/gorilla/mux"
)

// RegisterDiscoveryRoutes registers the location routes under /api/v1/discovery.
func RegisterDiscoveryRoutes(r *mux.Router, handler *Handler) {
	r.HandleFunc("/api/v1/discovery/nearby", func(w http.ResponseWriter, r *http.Request) {
		log.Printf("[Discovery] %s %s", r.Method, r.URL.String())
		handler.Nearby(w, r)
	}).Methods(http.MethodGet)

	r.HandleFunc("/api/v1/discovery/shows/{showID}/join", func(w http.ResponseWriter, r *http.Request) {
		log.Printf("[Discovery] %s %s", r.Method, r.URL.Path)
		handler.JoinWithLocation(w, r)
	}).Methods(http.MethodPost)
}
