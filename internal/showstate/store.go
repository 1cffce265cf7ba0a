// Package showstate is the client's local mirror of the live show. The Store
// publishes immutable snapshots; the Router is its only writer.
package showstate

import (
	"sync"
	"sync/atomic"

	"github.com/Vasu1712/scenyx-live/internal/models"
)

const (
	DefaultChatLimit        = 100
	DefaultSongRequestLimit = 50
)

// State is one immutable snapshot of the session. Readers must treat every
// slice and pointer reachable from it as read-only.
type State struct {
	Version         uint64                 `json:"version"`
	Connection      models.ConnectionState `json:"connection"`
	Show            *models.Show           `json:"show,omitempty"`
	Role            models.Role            `json:"role,omitempty"`
	SongRequests    []models.SongRequest   `json:"songRequests,omitempty"` // DJ inbox, oldest first
	LastServerError string                 `json:"lastServerError,omitempty"`
}

// InShow reports whether a show is currently held.
func (s State) InShow() bool { return s.Show != nil }

// Options bounds the store's memory use.
type Options struct {
	ChatLimit        int
	SongRequestLimit int
}

// Store holds the current State and notifies subscribers on every commit.
type Store struct {
	state        atomic.Pointer[State]
	chatLimit    int
	requestLimit int

	mu     sync.Mutex
	nextID int
	subs   map[int]chan State
}

// NewStore creates an empty store in the disconnected state.
func NewStore(opts Options) *Store {
	if opts.ChatLimit <= 0 {
		opts.ChatLimit = DefaultChatLimit
	}
	if opts.SongRequestLimit <= 0 {
		opts.SongRequestLimit = DefaultSongRequestLimit
	}
	s := &Store{
		chatLimit:    opts.ChatLimit,
		requestLimit: opts.SongRequestLimit,
		subs:         make(map[int]chan State),
	}
	s.state.Store(&State{Connection: models.ConnectionState{Status: models.StatusDisconnected}})
	return s
}

// Snapshot returns the current state.
func (s *Store) Snapshot() State {
	return *s.state.Load()
}

// Subscribe returns a channel that receives every new state value and a func
// that cancels the subscription. A slow subscriber only ever sees the latest
// state; intermediate snapshots are dropped instead of blocking the writer.
func (s *Store) Subscribe() (<-chan State, func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.nextID
	s.nextID++
	ch := make(chan State, 1)
	s.subs[id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			if c, ok := s.subs[id]; ok {
				delete(s.subs, id)
				close(c)
			}
		})
	}
}

// commit publishes next as the new state. Only the Router calls it.
func (s *Store) commit(next State) {
	next.Version = s.state.Load().Version + 1
	s.state.Store(&next)

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, ch := range s.subs {
		select {
		case ch <- next:
		default:
			// Replace the stale pending value with the newest one.
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- next:
			default:
			}
		}
	}
}

// cloneShow copies a show deeply enough that mutating its slices or
// announcement does not affect published snapshots.
func cloneShow(show *models.Show) *models.Show {
	if show == nil {
		return nil
	}
	c := *show
	c.Participants = append([]models.Participant(nil), show.Participants...)
	c.Queue = append([]models.QueueEntry(nil), show.Queue...)
	c.Chat = append([]models.ChatMessage(nil), show.Chat...)
	if show.CurrentAnnouncement != nil {
		a := *show.CurrentAnnouncement
		c.CurrentAnnouncement = &a
	}
	return &c
}
