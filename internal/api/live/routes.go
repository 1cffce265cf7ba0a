package live

import (
	"log"
	"net/http"

	"github.com/gorilla/mux"
)

// RegisterLiveRoutes registers the live-session routes under /api/v1/live and
// the UI state stream at /ws/live.
func RegisterLiveRoutes(r *mux.Router, handler *Handler) {
	s := r.PathPrefix("/api/v1/live").Subrouter()
	s.Use(logRequests)

	s.HandleFunc("/state", handler.State).Methods(http.MethodGet)
	s.HandleFunc("/connect", handler.Connect).Methods(http.MethodPost)
	s.HandleFunc("/disconnect", handler.Disconnect).Methods(http.MethodPost)
	s.HandleFunc("/resume", handler.Resume).Methods(http.MethodPost)

	s.HandleFunc("/shows/{showID}/join", handler.JoinShow).Methods(http.MethodPost)
	s.HandleFunc("/leave", handler.LeaveShow).Methods(http.MethodPost)

	s.HandleFunc("/queue", handler.Queue).Methods(http.MethodGet)
	s.HandleFunc("/queue", handler.JoinQueue).Methods(http.MethodPost)
	// Fixed paths are registered before /queue/{userID} so they win.
	s.HandleFunc("/queue/order", handler.ReorderQueue).Methods(http.MethodPut)
	s.HandleFunc("/queue/current", handler.SetCurrentSinger).Methods(http.MethodPut)
	s.HandleFunc("/queue/{userID}", handler.RemoveFromQueue).Methods(http.MethodDelete)
	s.HandleFunc("/queue/{userID}/start", handler.StartSong).Methods(http.MethodPost)
	s.HandleFunc("/queue/{userID}/duration", handler.SetSongDuration).Methods(http.MethodPut)

	s.HandleFunc("/song-requests", handler.SendSongRequest).Methods(http.MethodPost)

	s.HandleFunc("/announcements", handler.SendAnnouncement).Methods(http.MethodPost)
	s.HandleFunc("/announcements/current", handler.CurrentAnnouncement).Methods(http.MethodGet)
	s.HandleFunc("/announcements/current", handler.DismissAnnouncement).Methods(http.MethodDelete)

	r.HandleFunc("/ws/live", func(w http.ResponseWriter, r *http.Request) {
		log.Printf("[Live] WebSocket %s", r.URL.String())
		handler.ServeWS(w, r)
	})
}

func logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		log.Printf("[Live] %s %s", r.Method, r.URL.Path)
		next.ServeHTTP(w, r)
	})
}
