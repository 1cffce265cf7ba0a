package protocol

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/Vasu1712/scenyx-live/internal/models"
)

// Outbound event names (client -> server).
const (
	EventAuthenticate        = "authenticate"
	EventJoinShow            = "join-show"
	EventLeaveShow           = "leave-show"
	EventSendChatMessage     = "send-chat-message"
	EventSendAnnouncement    = "send-announcement"
	EventDismissAnnouncement = "dismiss-announcement"
	EventAddToQueue          = "add-to-queue"
	EventRemoveFromQueue     = "remove-from-queue"
	EventReorderQueue        = "reorder-queue"
	EventSetCurrentSinger    = "set-current-singer"
	EventStartSong           = "start-song"
	EventSetSongDuration     = "set-song-duration"
	EventDJSongRequest       = "dj-song-request"
)

// Outbound is any request the client emits.
type Outbound interface {
	EventName() string
}

type Authenticate struct {
	UserID   string `json:"userId"`
	UserName string `json:"userName"`
	Token    string `json:"token"`
}

type JoinShow struct {
	ShowID       string `json:"showId"`
	UserID       string `json:"userId"`
	AvatarID     string `json:"avatarId,omitempty"`
	MicrophoneID string `json:"microphoneId,omitempty"`
}

type LeaveShow struct {
	ShowID string `json:"showId"`
	UserID string `json:"userId"`
}

type SendChatMessage struct {
	ShowID      string             `json:"showId"`
	Message     string             `json:"message"`
	Type        models.MessageType `json:"type"`
	RecipientID string             `json:"recipientId,omitempty"`
}

type SendAnnouncement struct {
	ShowID          string `json:"showId"`
	Message         string `json:"message"`
	DisplayDuration int    `json:"displayDuration"`
}

// DismissAnnouncement tells other clients not to rely on their own countdown.
type DismissAnnouncement struct {
	ShowID         string `json:"showId"`
	AnnouncementID string `json:"announcementId"`
}

type AddToQueue struct {
	ShowID      string `json:"showId"`
	SongRequest string `json:"songRequest,omitempty"`
}

type RemoveFromQueue struct {
	ShowID string `json:"showId"`
	UserID string `json:"userId"`
}

type ReorderQueue struct {
	ShowID     string   `json:"showId"`
	QueueOrder []string `json:"queueOrder"`
}

type SetCurrentSinger struct {
	ShowID   string `json:"showId"`
	SingerID string `json:"singerId"`
}

type StartSong struct {
	ShowID    string    `json:"showId"`
	UserID    string    `json:"userId"`
	StartTime time.Time `json:"startTime"`
}

type SetSongDuration struct {
	ShowID   string `json:"showId"`
	UserID   string `json:"userId"`
	Duration int    `json:"duration"` // seconds
}

type DJSongRequest struct {
	ShowID       string `json:"showId"`
	SongRequest  string `json:"songRequest"`
	FromUserID   string `json:"fromUserId"`
	FromUserName string `json:"fromUserName"`
}

func (Authenticate) EventName() string        { return EventAuthenticate }
func (JoinShow) EventName() string            { return EventJoinShow }
func (LeaveShow) EventName() string           { return EventLeaveShow }
func (SendChatMessage) EventName() string     { return EventSendChatMessage }
func (SendAnnouncement) EventName() string    { return EventSendAnnouncement }
func (DismissAnnouncement) EventName() string { return EventDismissAnnouncement }
func (AddToQueue) EventName() string          { return EventAddToQueue }
func (RemoveFromQueue) EventName() string     { return EventRemoveFromQueue }
func (ReorderQueue) EventName() string        { return EventReorderQueue }
func (SetCurrentSinger) EventName() string    { return EventSetCurrentSinger }
func (StartSong) EventName() string           { return EventStartSong }
func (SetSongDuration) EventName() string     { return EventSetSongDuration }
func (DJSongRequest) EventName() string       { return EventDJSongRequest }

// Envelope is the JSON frame carried on the socket in both directions.
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// Encode wraps a payload in an Envelope.
func Encode(name string, payload any) ([]byte, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", name, err)
	}
	return json.Marshal(Envelope{Event: name, Data: data})
}
