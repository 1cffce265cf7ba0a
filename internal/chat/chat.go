// Package chat decides which transcript messages a participant may see and
// validates outbound chat before it is emitted.
package chat

import (
	"strings"

	"github.com/Vasu1712/scenyx-live/internal/guard"
	"github.com/Vasu1712/scenyx-live/internal/models"
	"github.com/Vasu1712/scenyx-live/internal/protocol"
)

// Filter selects a view of the transcript.
type Filter string

const (
	FilterAll           Filter = "all"
	FilterSingerChat    Filter = "singer_chat"
	FilterDJMessages    Filter = "dj_messages"
	FilterAnnouncements Filter = "announcements"
)

// ParseFilter maps a query value onto a Filter; empty selects FilterAll.
func ParseFilter(s string) (Filter, error) {
	switch f := Filter(strings.ToLower(strings.TrimSpace(s))); f {
	case "":
		return FilterAll, nil
	case FilterAll, FilterSingerChat, FilterDJMessages, FilterAnnouncements:
		return f, nil
	}
	return "", guard.Validation("filter", "must be one of all, singer_chat, dj_messages, announcements")
}

// Visible returns the subsequence of msgs that userID, acting as role, may
// see under filter. Order is preserved.
func Visible(msgs []models.ChatMessage, role models.Role, userID string, filter Filter) []models.ChatMessage {
	out := make([]models.ChatMessage, 0, len(msgs))
	for _, m := range msgs {
		if matches(m, filter) && canSee(m, role, userID) {
			out = append(out, m)
		}
	}
	return out
}

func matches(m models.ChatMessage, filter Filter) bool {
	switch filter {
	case FilterAll, "":
		return true
	case FilterSingerChat:
		return m.Type == models.MessageSingerChat || m.Type == models.MessageSystem
	case FilterDJMessages:
		return m.Type == models.MessageDJToSinger
	case FilterAnnouncements:
		return m.Type == models.MessageAnnouncement
	}
	return false
}

func canSee(m models.ChatMessage, role models.Role, userID string) bool {
	if role.IsDJ() {
		return true
	}
	if !m.IsVisible {
		// Hidden messages stay readable only by the DJ.
		return false
	}
	switch m.Type {
	case models.MessageSingerChat, models.MessageSystem, models.MessageAnnouncement:
		return true
	case models.MessageDJToSinger:
		return userID != "" && (m.SenderID == userID || m.RecipientID == userID)
	}
	return false
}

// Prepare validates an outbound chat message and resolves its recipient. It
// is the single outbound chat entry point: a nil error means exactly one
// send-chat-message should be emitted. Nothing is inserted into the
// transcript until the server echoes the message back.
func Prepare(show *models.Show, role models.Role, body string, typ models.MessageType, recipientID string) (protocol.SendChatMessage, error) {
	if show == nil {
		return protocol.SendChatMessage{}, guard.Validation("showId", "no show joined")
	}
	if typ == "" {
		typ = models.MessageSingerChat
	}
	if !typ.Valid() {
		return protocol.SendChatMessage{}, guard.Validation("type", "unknown message type")
	}
	text, err := guard.CheckMessageBody(body)
	if err != nil {
		return protocol.SendChatMessage{}, err
	}
	recipientID = strings.TrimSpace(recipientID)

	switch typ {
	case models.MessageSystem:
		return protocol.SendChatMessage{}, guard.Validation("type", "system messages are sent by the server")
	case models.MessageAnnouncement:
		if err := guard.RequireDJ(role, protocol.EventSendChatMessage+":announcement"); err != nil {
			return protocol.SendChatMessage{}, err
		}
	case models.MessageDJToSinger:
		if !role.IsDJ() {
			// Singers may only reach the DJ on this channel.
			if show.DJID == "" {
				return protocol.SendChatMessage{}, guard.Validation("recipientId", "this show has no DJ")
			}
			if recipientID != "" && recipientID != show.DJID {
				return protocol.SendChatMessage{}, guard.Permission(protocol.EventSendChatMessage+":dj_to_singer",
					"singers can only message the DJ")
			}
			recipientID = show.DJID
		}
	case models.MessageSingerChat:
		recipientID = ""
	}

	return protocol.SendChatMessage{
		ShowID:      show.ID,
		Message:     text,
		Type:        typ,
		RecipientID: recipientID,
	}, nil
}
