package models

import "time"

// Role gates which actions a client may emit within a show.
type Role string

const (
	RoleDJ     Role = "dj"
	RoleSinger Role = "singer"
)

// IsDJ reports whether the role may perform DJ-only actions.
func (r Role) IsDJ() bool { return r == RoleDJ }

// Show is one live karaoke session with an optional DJ and any number of singers.
type Show struct {
	ID                  string        `json:"id"`                            // Unique identifier for the show
	Name                string        `json:"name"`                          // Display name
	Description         string        `json:"description,omitempty"`         // Optional description
	DJID                string        `json:"djId,omitempty"`                // Identity of the DJ, empty when the show has none
	StartTime           time.Time     `json:"startTime"`                     // Scheduled start
	EndTime             time.Time     `json:"endTime"`                       // Scheduled end
	IsActive            bool          `json:"isActive"`                      // Whether the show is currently running
	Participants        []Participant `json:"participants"`                  // Roster, in join order
	Queue               []QueueEntry  `json:"queue"`                         // Performer queue, ordered by Position
	Chat                []ChatMessage `json:"chat"`                          // Bounded transcript, oldest first
	CurrentAnnouncement *Announcement `json:"currentAnnouncement,omitempty"` // The single active announcement, if any
}

// Participant is a user present in a show. Participants are only ever created
// from server events.
type Participant struct {
	UserID        string    `json:"userId"`
	Name          string    `json:"name"`
	StageName     string    `json:"stageName,omitempty"`
	AvatarID      string    `json:"avatarId,omitempty"`
	MicrophoneID  string    `json:"microphoneId,omitempty"`
	JoinedAt      time.Time `json:"joinedAt"`
	IsOnline      bool      `json:"isOnline"`
	IsDJ          bool      `json:"isDj"`
	QueuePosition *int      `json:"queuePosition,omitempty"`
}

// DisplayName returns the stage name when set, the legal name otherwise.
func (p Participant) DisplayName() string {
	if p.StageName != "" {
		return p.StageName
	}
	return p.Name
}

// QueueEntry is one singer's slot in the performer queue.
type QueueEntry struct {
	UserID          string     `json:"userId"`
	Name            string     `json:"name"`
	StageName       string     `json:"stageName,omitempty"`
	AvatarID        string     `json:"avatarId,omitempty"`
	Position        int        `json:"position"` // 1-based, dense, unique within a show
	SongRequest     string     `json:"songRequest,omitempty"`
	IsCurrentSinger bool       `json:"isCurrentSinger"`
	SongStartTime   *time.Time `json:"songStartTime,omitempty"`
	SongDuration    int        `json:"songDuration,omitempty"` // seconds
}

// DisplayName returns the stage name when set, the legal name otherwise.
func (e QueueEntry) DisplayName() string {
	if e.StageName != "" {
		return e.StageName
	}
	return e.Name
}

// SongRequest is a side-channel request a singer sends to the DJ.
type SongRequest struct {
	FromUserID   string    `json:"fromUserId"`
	FromUserName string    `json:"fromUserName"`
	SongRequest  string    `json:"songRequest"`
	Timestamp    time.Time `json:"timestamp"`
}
