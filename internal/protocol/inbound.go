package protocol

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/Vasu1712/scenyx-live/internal/models"
)

// Inbound event names (server -> client).
const (
	EventAuthenticated       = "authenticated"
	EventShowJoined          = "show-joined"
	EventShowLeft            = "show-left"
	EventShowEvent           = "show-event"
	EventChatMessage         = "chat-message"
	EventAnnouncement        = "announcement"
	EventQueueUpdated        = "queue-updated"
	EventSongRequestReceived = "dj-song-request-received"
	EventError               = "error"
)

// Inbound is the closed set of events the server pushes to a client.
// The Event Router switches over every implementation.
type Inbound interface {
	EventName() string
	inbound()
}

// Authenticated acknowledges an authenticate request.
type Authenticated struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}

// ShowJoined carries the authoritative show snapshot after a join.
type ShowJoined struct {
	Show          models.Show `json:"show"`
	UserRole      models.Role `json:"userRole"`
	QueuePosition *int        `json:"queuePosition,omitempty"`
}

// ShowLeft confirms a leave request.
type ShowLeft struct {
	Success bool   `json:"success"`
	ShowID  string `json:"showId"`
}

// ShowEvent is a roster, current-singer or announcement notice.
type ShowEvent struct {
	Type      string          `json:"type"`
	ShowID    string          `json:"showId"`
	Data      json.RawMessage `json:"data,omitempty"`
	Timestamp time.Time       `json:"timestamp"`
}

// ChatMessage is a server echo of a chat message.
type ChatMessage struct {
	models.ChatMessage
}

// Announcement is a newly broadcast announcement.
type Announcement struct {
	models.Announcement
}

// QueueUpdated is an authoritative queue snapshot.
type QueueUpdated struct {
	ShowID        string              `json:"showId,omitempty"`
	Queue         []models.QueueEntry `json:"queue"`
	CurrentSinger *models.QueueEntry  `json:"currentSinger,omitempty"`
}

// SongRequestReceived notifies the DJ of a singer's song request.
type SongRequestReceived struct {
	models.SongRequest
}

// ServerError is a server-side failure notice.
type ServerError struct {
	Message string `json:"message"`
}

// Unknown wraps an event name this client does not understand.
type Unknown struct {
	Name string
	Data json.RawMessage
}

func (Authenticated) EventName() string       { return EventAuthenticated }
func (ShowJoined) EventName() string          { return EventShowJoined }
func (ShowLeft) EventName() string            { return EventShowLeft }
func (ShowEvent) EventName() string           { return EventShowEvent }
func (ChatMessage) EventName() string         { return EventChatMessage }
func (Announcement) EventName() string        { return EventAnnouncement }
func (QueueUpdated) EventName() string        { return EventQueueUpdated }
func (SongRequestReceived) EventName() string { return EventSongRequestReceived }
func (ServerError) EventName() string         { return EventError }
func (u Unknown) EventName() string           { return u.Name }

func (Authenticated) inbound()       {}
func (ShowJoined) inbound()          {}
func (ShowLeft) inbound()            {}
func (ShowEvent) inbound()           {}
func (ChatMessage) inbound()         {}
func (Announcement) inbound()        {}
func (QueueUpdated) inbound()        {}
func (SongRequestReceived) inbound() {}
func (ServerError) inbound()         {}
func (Unknown) inbound()             {}

// DecodeInbound turns a named wire payload into its typed event. Names this
// client does not know decode to Unknown without error; a known name with a
// malformed payload returns an error.
func DecodeInbound(name string, data json.RawMessage) (Inbound, error) {
	var ev Inbound
	var err error
	switch name {
	case EventAuthenticated:
		var v Authenticated
		err = unmarshal(data, &v)
		ev = v
	case EventShowJoined:
		var v ShowJoined
		err = unmarshal(data, &v)
		ev = v
	case EventShowLeft:
		var v ShowLeft
		err = unmarshal(data, &v)
		ev = v
	case EventShowEvent:
		var v ShowEvent
		err = unmarshal(data, &v)
		ev = v
	case EventChatMessage:
		var v ChatMessage
		err = unmarshal(data, &v)
		ev = v
	case EventAnnouncement:
		var v Announcement
		err = unmarshal(data, &v)
		ev = v
	case EventQueueUpdated:
		var v QueueUpdated
		err = unmarshal(data, &v)
		ev = v
	case EventSongRequestReceived:
		var v SongRequestReceived
		err = unmarshal(data, &v)
		ev = v
	case EventError:
		var v ServerError
		err = unmarshal(data, &v)
		ev = v
	default:
		return Unknown{Name: name, Data: data}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", name, err)
	}
	return ev, nil
}

func unmarshal(data json.RawMessage, v any) error {
	if len(data) == 0 {
		return nil
	}
	return json.Unmarshal(data, v)
}
