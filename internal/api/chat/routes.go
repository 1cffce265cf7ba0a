package chat

import (
	"log"
	"net/http"

	"github.com/gorilla/mux"
)

// RegisterChatRoutes registers the chat routes under /api/v1/chat.
func RegisterChatRoutes(r *mux.Router, handler *ChatHandler) {
	r.HandleFunc("/api/v1/chat/messages", func(w http.ResponseWriter, r *http.Request) {
		log.Printf("[Chat] %s %s", r.Method, r.URL.Path)
		handler.GetMessages(w, r)
	}).Methods(http.MethodGet)

	r.HandleFunc("/api/v1/chat/messages", func(w http.ResponseWriter, r *http.Request) {
		log.Printf("[Chat] %s %s", r.Method, r.URL.Path)
		handler.SendMessage(w, r)
	}).Methods(http.MethodPost)
}
