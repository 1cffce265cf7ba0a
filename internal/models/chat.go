package models

import (
	"encoding/json"
	"time"
)

// MessageType is the closed set of chat message kinds.
type MessageType string

const (
	MessageSingerChat   MessageType = "singer_chat"
	MessageDJToSinger   MessageType = "dj_to_singer"
	MessageAnnouncement MessageType = "announcement"
	MessageSystem       MessageType = "system"
)

// Valid reports whether t is one of the known message types.
func (t MessageType) Valid() bool {
	switch t {
	case MessageSingerChat, MessageDJToSinger, MessageAnnouncement, MessageSystem:
		return true
	}
	return false
}

// ChatMessage is a single entry in a show's chat transcript.
type ChatMessage struct {
	ID          string      `json:"id"`
	ShowID      string      `json:"showId"`
	SenderID    string      `json:"senderId"`
	SenderName  string      `json:"senderName"`
	RecipientID string      `json:"recipientId,omitempty"` // Set for private messages
	Message     string      `json:"message"`
	Type        MessageType `json:"type"`
	Timestamp   time.Time   `json:"timestamp"`
	IsVisible   bool        `json:"isVisible"` // Defaults to true when the server omits it
}

// UnmarshalJSON treats a missing isVisible as visible; only an explicit
// false hides a message.
func (m *ChatMessage) UnmarshalJSON(data []byte) error {
	type wire ChatMessage
	w := wire{IsVisible: true}
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	*m = ChatMessage(w)
	return nil
}

// Announcement is a time-boxed broadcast a DJ pushes to every participant.
type Announcement struct {
	ID              string    `json:"id"`
	ShowID          string    `json:"showId"`
	Message         string    `json:"message"`
	DJID            string    `json:"djId"`
	DJName          string    `json:"djName"`
	CreatedAt       time.Time `json:"createdAt"`
	DisplayDuration int       `json:"displayDuration"` // seconds
	IsActive        bool      `json:"isActive"`
}

// ExpiresAt is the wall-clock instant the announcement stops displaying.
func (a Announcement) ExpiresAt() time.Time {
	return a.CreatedAt.Add(time.Duration(a.DisplayDuration) * time.Second)
}

// Remaining returns the display time left at now, never negative.
// It is recomputed from the creation timestamp so it stays correct across
// suspend and resume.
func (a Announcement) Remaining(now time.Time) time.Duration {
	left := a.ExpiresAt().Sub(now)
	if left < 0 {
		return 0
	}
	return left
}

// RemainingSeconds rounds Remaining up to whole seconds.
func (a Announcement) RemainingSeconds(now time.Time) int {
	left := a.Remaining(now)
	secs := int(left / time.Second)
	if left%time.Second != 0 {
		secs++
	}
	return secs
}
