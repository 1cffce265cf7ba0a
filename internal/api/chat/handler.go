package chat

import (
	"context"
	"log"
	"net/http"

	"github.com/Vasu1712/scenyx-live/internal/api"
	"github.com/Vasu1712/scenyx-live/internal/chat"
	"github.com/Vasu1712/scenyx-live/internal/models"
	"github.com/Vasu1712/scenyx-live/internal/showstate"
)

// Engine is the part of session.Engine the chat routes use.
type Engine interface {
	Snapshot() showstate.State
	UserID() string
	SendChat(ctx context.Context, body string, typ models.MessageType, recipientID string) error
}

// ChatHandler serves the chat transcript and accepts outbound messages.
type ChatHandler struct {
	Engine Engine
}

// GetMessages returns the transcript the caller may see. The optional
// "filter" query parameter is one of all, singer_chat, dj_messages or
// announcements.
func (h *ChatHandler) GetMessages(w http.ResponseWriter, r *http.Request) {
	filter, err := chat.ParseFilter(r.URL.Query().Get("filter"))
	if err != nil {
		api.WriteError(w, err)
		return
	}

	st := h.Engine.Snapshot()
	messages := []models.ChatMessage{} // Encode an empty list, never null
	if st.Show != nil {
		messages = chat.Visible(st.Show.Chat, st.Role, h.Engine.UserID(), filter)
	}
	api.WriteJSON(w, http.StatusOK, messages)
}

// SendMessage expects {"message": "...", "type": "...", "recipientId": "..."}.
// The message shows up in the transcript once the server echoes it.
func (h *ChatHandler) SendMessage(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Message     string             `json:"message"`
		Type        models.MessageType `json:"type"`
		RecipientID string             `json:"recipientId"`
	}
	if err := api.Decode(r, &req); err != nil {
		api.WriteError(w, err)
		return
	}
	// Validation and recipient rules run in the engine before anything is sent
	if err := h.Engine.SendChat(r.Context(), req.Message, req.Type, req.RecipientID); err != nil {
		log.Printf("[Chat] send rejected: %v", err)
		api.WriteError(w, err)
		return
	}
	api.WriteJSON(w, http.StatusAccepted, map[string]string{"status": "sent"})
}
