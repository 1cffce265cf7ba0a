package protocol

import (
	"encoding/json"
	"fmt"

	"github.com/Vasu1712/scenyx-live/internal/models"
)

// show-event subtypes.
const (
	ShowEventUserJoined            = "user-joined"
	ShowEventUserLeft              = "user-left"
	ShowEventUserOnline            = "user-online"
	ShowEventUserOffline           = "user-offline"
	ShowEventCurrentSingerChanged  = "current-singer-changed"
	ShowEventAnnouncementExpired   = "announcement-expired"
	ShowEventAnnouncementDismissed = "announcement-dismissed"
	ShowEventShowEnded             = "show-ended"
)

// UserRef is the payload of roster and current-singer notices.
type UserRef struct {
	UserID string `json:"userId"`
}

// AnnouncementRef is the payload of announcement-expired and -dismissed notices.
type AnnouncementRef struct {
	AnnouncementID string `json:"announcementId"`
}

// Participant decodes a user-joined payload.
func (e ShowEvent) Participant() (models.Participant, error) {
	var p models.Participant
	if err := json.Unmarshal(e.Data, &p); err != nil {
		return p, fmt.Errorf("decode %s participant: %w", e.Type, err)
	}
	if p.UserID == "" {
		return p, fmt.Errorf("decode %s participant: missing userId", e.Type)
	}
	return p, nil
}

// User decodes a payload that references one user.
func (e ShowEvent) User() (string, error) {
	var ref UserRef
	if err := json.Unmarshal(e.Data, &ref); err != nil {
		return "", fmt.Errorf("decode %s user: %w", e.Type, err)
	}
	if ref.UserID == "" {
		return "", fmt.Errorf("decode %s user: missing userId", e.Type)
	}
	return ref.UserID, nil
}

// AnnouncementID decodes an announcement notice payload. An empty ID means
// "whatever announcement is active".
func (e ShowEvent) AnnouncementID() string {
	var ref AnnouncementRef
	if len(e.Data) == 0 {
		return ""
	}
	if err := json.Unmarshal(e.Data, &ref); err != nil {
		return ""
	}
	return ref.AnnouncementID
}
