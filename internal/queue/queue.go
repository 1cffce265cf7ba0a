// Package queue derives performer-queue views from a show and validates DJ
// queue actions before they are emitted. It never mutates the show.
package queue

import (
	"time"

	"github.com/Vasu1712/scenyx-live/internal/guard"
	"github.com/Vasu1712/scenyx-live/internal/models"
	"github.com/Vasu1712/scenyx-live/internal/protocol"
)

// DefaultSongEstimate is the fixed per-song duration used for wait estimates.
const DefaultSongEstimate = 4 * time.Minute

// Stats summarizes the queue.
type Stats struct {
	TotalInQueue  int           `json:"totalInQueue"`
	Waiting       int           `json:"waiting"`       // entries not currently singing
	EstimatedWait time.Duration `json:"estimatedWait"` // for someone joining now
}

// Engine computes queue views for one show.
type Engine struct {
	songEstimate time.Duration
}

// NewEngine creates an Engine. A non-positive estimate selects DefaultSongEstimate.
func NewEngine(songEstimate time.Duration) *Engine {
	if songEstimate <= 0 {
		songEstimate = DefaultSongEstimate
	}
	return &Engine{songEstimate: songEstimate}
}

// Current returns the entry that is singing now.
func (e *Engine) Current(show *models.Show) (models.QueueEntry, bool) {
	if show == nil {
		return models.QueueEntry{}, false
	}
	for _, q := range show.Queue {
		if q.IsCurrentSinger {
			return q, true
		}
	}
	return models.QueueEntry{}, false
}

// Next returns up to n waiting singers in position order, skipping the
// current singer.
func (e *Engine) Next(show *models.Show, n int) []models.QueueEntry {
	if show == nil || n <= 0 {
		return nil
	}
	out := make([]models.QueueEntry, 0, n)
	for _, q := range show.Queue {
		if q.IsCurrentSinger {
			continue
		}
		out = append(out, q)
		if len(out) == n {
			break
		}
	}
	return out
}

// PositionOf returns userID's 1-based queue position.
func (e *Engine) PositionOf(show *models.Show, userID string) (int, bool) {
	if show == nil {
		return 0, false
	}
	for _, q := range show.Queue {
		if q.UserID == userID {
			return q.Position, true
		}
	}
	return 0, false
}

// Stats aggregates the queue.
func (e *Engine) Stats(show *models.Show) Stats {
	if show == nil {
		return Stats{}
	}
	s := Stats{TotalInQueue: len(show.Queue)}
	for _, q := range show.Queue {
		if !q.IsCurrentSinger {
			s.Waiting++
		}
	}
	s.EstimatedWait = time.Duration(s.Waiting) * e.songEstimate
	return s
}

// WaitFor estimates how long userID waits before singing: one song per
// waiting entry ahead of them. The current singer waits zero.
func (e *Engine) WaitFor(show *models.Show, userID string) (time.Duration, bool) {
	if show == nil {
		return 0, false
	}
	ahead := 0
	for _, q := range show.Queue {
		if q.UserID == userID {
			if q.IsCurrentSinger {
				return 0, true
			}
			return time.Duration(ahead) * e.songEstimate, true
		}
		if !q.IsCurrentSinger {
			ahead++
		}
	}
	return 0, false
}

// Members returns the user IDs in the queue in position order.
func Members(show *models.Show) []string {
	if show == nil {
		return nil
	}
	ids := make([]string, len(show.Queue))
	for i, q := range show.Queue {
		ids[i] = q.UserID
	}
	return ids
}

// PrepareReorder validates a DJ reorder: order must contain exactly the
// current members. Mismatches are rejected, never truncated or padded.
func (e *Engine) PrepareReorder(show *models.Show, role models.Role, order []string) (protocol.ReorderQueue, error) {
	if err := guard.RequireDJ(role, protocol.EventReorderQueue); err != nil {
		return protocol.ReorderQueue{}, err
	}
	if show == nil {
		return protocol.ReorderQueue{}, guard.Validation("showId", "no show joined")
	}
	if err := guard.CheckReorder(Members(show), order); err != nil {
		return protocol.ReorderQueue{}, err
	}
	return protocol.ReorderQueue{ShowID: show.ID, QueueOrder: append([]string(nil), order...)}, nil
}

// PrepareSetCurrentSinger validates a DJ single-target assignment.
func (e *Engine) PrepareSetCurrentSinger(show *models.Show, role models.Role, singerID string) (protocol.SetCurrentSinger, error) {
	if err := guard.RequireDJ(role, protocol.EventSetCurrentSinger); err != nil {
		return protocol.SetCurrentSinger{}, err
	}
	if show == nil {
		return protocol.SetCurrentSinger{}, guard.Validation("showId", "no show joined")
	}
	if err := guard.CheckSingerAssignment(Members(show), singerID); err != nil {
		return protocol.SetCurrentSinger{}, err
	}
	return protocol.SetCurrentSinger{ShowID: show.ID, SingerID: singerID}, nil
}

// PrepareRemove validates a remove-from-queue. Singers may only remove
// themselves; the DJ may remove anyone in the queue.
func (e *Engine) PrepareRemove(show *models.Show, role models.Role, selfID, userID string) (protocol.RemoveFromQueue, error) {
	if show == nil {
		return protocol.RemoveFromQueue{}, guard.Validation("showId", "no show joined")
	}
	if userID != selfID {
		if err := guard.RequireDJ(role, protocol.EventRemoveFromQueue); err != nil {
			return protocol.RemoveFromQueue{}, err
		}
	}
	if _, ok := e.PositionOf(show, userID); !ok {
		return protocol.RemoveFromQueue{}, guard.Validation("userId", "is not in the queue")
	}
	return protocol.RemoveFromQueue{ShowID: show.ID, UserID: userID}, nil
}

// PrepareAdd validates joining the queue. Joining twice is rejected.
func (e *Engine) PrepareAdd(show *models.Show, selfID, songRequest string) (protocol.AddToQueue, error) {
	if show == nil {
		return protocol.AddToQueue{}, guard.Validation("showId", "no show joined")
	}
	if _, ok := e.PositionOf(show, selfID); ok {
		return protocol.AddToQueue{}, guard.Validation("queue", "already in the queue")
	}
	req, err := guard.CheckSongRequest(songRequest)
	if err != nil {
		return protocol.AddToQueue{}, err
	}
	return protocol.AddToQueue{ShowID: show.ID, SongRequest: req}, nil
}

// PrepareStartSong validates a DJ start-song for a queued singer.
func (e *Engine) PrepareStartSong(show *models.Show, role models.Role, userID string, at time.Time) (protocol.StartSong, error) {
	if err := guard.RequireDJ(role, protocol.EventStartSong); err != nil {
		return protocol.StartSong{}, err
	}
	if show == nil {
		return protocol.StartSong{}, guard.Validation("showId", "no show joined")
	}
	if err := guard.CheckSingerAssignment(Members(show), userID); err != nil {
		return protocol.StartSong{}, err
	}
	return protocol.StartSong{ShowID: show.ID, UserID: userID, StartTime: at}, nil
}

// PrepareSongDuration validates a DJ set-song-duration in seconds.
func (e *Engine) PrepareSongDuration(show *models.Show, role models.Role, userID string, seconds int) (protocol.SetSongDuration, error) {
	if err := guard.RequireDJ(role, protocol.EventSetSongDuration); err != nil {
		return protocol.SetSongDuration{}, err
	}
	if show == nil {
		return protocol.SetSongDuration{}, guard.Validation("showId", "no show joined")
	}
	if seconds <= 0 {
		return protocol.SetSongDuration{}, guard.Validation("duration", "must be positive")
	}
	if err := guard.CheckSingerAssignment(Members(show), userID); err != nil {
		return protocol.SetSongDuration{}, err
	}
	return protocol.SetSongDuration{ShowID: show.ID, UserID: userID, Duration: seconds}, nil
}
