package showstate

import (
	"encoding/json"
	"fmt"
	"io"
	"log"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Vasu1712/scenyx-live/internal/models"
	"github.com/Vasu1712/scenyx-live/internal/protocol"
)

var testNow = time.Date(2026, 10, 17, 21, 0, 0, 0, time.UTC)

func newTestRouter(t *testing.T, opts Options) (*Store, *Router) {
	t.Helper()
	store := NewStore(opts)
	router := NewRouter(store, log.New(io.Discard, "", 0), func() time.Time { return testNow })
	return store, router
}

func entry(id string, pos int, current bool) models.QueueEntry {
	return models.QueueEntry{UserID: id, Name: id, Position: pos, IsCurrentSinger: current}
}

func joinShow(t *testing.T, r *Router, queue ...models.QueueEntry) {
	t.Helper()
	require.True(t, r.Dispatch(protocol.ShowJoined{
		Show: models.Show{
			ID:       "show-1",
			Name:     "Friday Night Karaoke",
			DJID:     "dj",
			IsActive: true,
			Participants: []models.Participant{
				{UserID: "dj", Name: "DJ Sam", IsDJ: true, IsOnline: true},
				{UserID: "A", Name: "Alice", IsOnline: true},
			},
			Queue: queue,
		},
		UserRole: models.RoleSinger,
	}))
}

func withoutVersion(s State) State {
	s.Version = 0
	return s
}

func TestRouter_ShowJoined(t *testing.T) {
	store, r := newTestRouter(t, Options{})
	joinShow(t, r, entry("B", 5, false), entry("A", 2, true))

	st := store.Snapshot()
	require.NotNil(t, st.Show)
	assert.Equal(t, "show-1", st.Show.ID)
	assert.Equal(t, models.RoleSinger, st.Role)
	assert.Equal(t, "show-1", st.Connection.LastShowID)

	require.Len(t, st.Show.Queue, 2)
	assert.Equal(t, "A", st.Show.Queue[0].UserID)
	assert.Equal(t, 1, st.Show.Queue[0].Position)
	assert.Equal(t, 2, st.Show.Queue[1].Position)
	assert.True(t, CheckQueueInvariant(st.Show.Queue))

	require.NotNil(t, st.Show.Participants[1].QueuePosition)
	assert.Equal(t, 1, *st.Show.Participants[1].QueuePosition)
}

func TestRouter_ShowJoinedReplayIsNoop(t *testing.T) {
	store, r := newTestRouter(t, Options{})
	ev := protocol.ShowJoined{
		Show: models.Show{
			ID:   "show-1",
			DJID: "dj",
			Participants: []models.Participant{
				{UserID: "A", Name: "Alice", IsOnline: true},
			},
			Queue: []models.QueueEntry{entry("B", 4, false), entry("A", 2, true)},
			Chat: []models.ChatMessage{
				{ID: "m1", ShowID: "show-1", SenderID: "A", Message: "hi", Type: models.MessageSingerChat, IsVisible: true},
			},
		},
		UserRole: models.RoleSinger,
	}
	require.True(t, r.Dispatch(ev))
	once := store.Snapshot()

	ch, cancel := store.Subscribe()
	defer cancel()
	select {
	case <-ch:
	default:
	}

	assert.False(t, r.Dispatch(ev), "identical show-joined must not commit")
	assert.Equal(t, once, store.Snapshot())
	select {
	case st := <-ch:
		t.Fatalf("subscriber notified of a replay (version %d)", st.Version)
	default:
	}

	ev.UserRole = models.RoleDJ
	assert.True(t, r.Dispatch(ev), "a role change is a real update")
	assert.Greater(t, store.Snapshot().Version, once.Version)
}

func TestRouter_QueueUpdatedIsIdempotent(t *testing.T) {
	store, r := newTestRouter(t, Options{})
	joinShow(t, r)

	ev := protocol.QueueUpdated{
		ShowID: "show-1",
		Queue:  []models.QueueEntry{entry("A", 1, false), entry("B", 2, true), entry("C", 3, false)},
	}
	assert.True(t, r.Dispatch(ev))
	once := store.Snapshot()

	assert.False(t, r.Dispatch(ev), "second application must be a no-op")
	twice := store.Snapshot()
	assert.Equal(t, once, twice)
}

func TestRouter_QueueUpdatedNormalizes(t *testing.T) {
	tests := []struct {
		name        string
		queue       []models.QueueEntry
		current     *models.QueueEntry
		wantOrder   []string
		wantCurrent string
	}{
		{
			name:        "gaps renumbered",
			queue:       []models.QueueEntry{entry("A", 3, false), entry("B", 7, false), entry("C", 10, false)},
			wantOrder:   []string{"A", "B", "C"},
			wantCurrent: "",
		},
		{
			name:        "two current flags keep the first",
			queue:       []models.QueueEntry{entry("A", 1, true), entry("B", 2, true)},
			wantOrder:   []string{"A", "B"},
			wantCurrent: "A",
		},
		{
			name:        "snapshot current wins over flags",
			queue:       []models.QueueEntry{entry("A", 1, true), entry("B", 2, false)},
			current:     &models.QueueEntry{UserID: "B"},
			wantOrder:   []string{"A", "B"},
			wantCurrent: "B",
		},
		{
			name:      "duplicate users collapse",
			queue:     []models.QueueEntry{entry("A", 1, false), entry("A", 2, false), entry("B", 3, false)},
			wantOrder: []string{"A", "B"},
		},
		{
			name:      "unpositioned entries go last",
			queue:     []models.QueueEntry{entry("Z", 0, false), entry("A", 2, false), entry("B", 1, false)},
			wantOrder: []string{"B", "A", "Z"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store, r := newTestRouter(t, Options{})
			joinShow(t, r)
			r.Dispatch(protocol.QueueUpdated{Queue: tt.queue, CurrentSinger: tt.current})

			q := store.Snapshot().Show.Queue
			require.True(t, CheckQueueInvariant(q))
			var order []string
			current := ""
			for _, e := range q {
				order = append(order, e.UserID)
				if e.IsCurrentSinger {
					current = e.UserID
				}
			}
			assert.Equal(t, tt.wantOrder, order)
			assert.Equal(t, tt.wantCurrent, current)
		})
	}
}

func TestRouter_QueueInvariantAcrossEvents(t *testing.T) {
	store, r := newTestRouter(t, Options{})
	joinShow(t, r, entry("A", 1, false), entry("B", 2, false), entry("C", 3, false))

	events := []protocol.Inbound{
		protocol.ShowEvent{Type: protocol.ShowEventCurrentSingerChanged, ShowID: "show-1", Data: userData("B")},
		protocol.QueueUpdated{Queue: []models.QueueEntry{entry("C", 1, false), entry("B", 2, true)}},
		protocol.ShowEvent{Type: protocol.ShowEventCurrentSingerChanged, ShowID: "show-1", Data: userData("C")},
		protocol.ShowEvent{Type: protocol.ShowEventCurrentSingerChanged, ShowID: "show-1", Data: userData("nobody")},
		protocol.QueueUpdated{Queue: []models.QueueEntry{entry("D", 9, true), entry("C", 4, true), entry("E", 4, false)}},
	}
	for i, ev := range events {
		r.Dispatch(ev)
		assert.True(t, CheckQueueInvariant(store.Snapshot().Show.Queue), "after event %d", i)
	}
}

func TestRouter_DropsStaleQueueUpdates(t *testing.T) {
	store, r := newTestRouter(t, Options{})

	assert.False(t, r.Dispatch(protocol.QueueUpdated{Queue: []models.QueueEntry{entry("A", 1, false)}}),
		"no show joined")

	joinShow(t, r, entry("A", 1, false))
	before := store.Snapshot()
	assert.False(t, r.Dispatch(protocol.QueueUpdated{ShowID: "other-show", Queue: nil}))
	assert.Equal(t, before, store.Snapshot())
}

func TestRouter_ShowJoinedReplacesShow(t *testing.T) {
	store, r := newTestRouter(t, Options{})
	joinShow(t, r, entry("A", 1, false))
	r.Dispatch(protocol.SongRequestReceived{SongRequest: models.SongRequest{FromUserID: "A", SongRequest: "Toxic"}})
	require.Len(t, store.Snapshot().SongRequests, 1)

	r.Dispatch(protocol.ShowJoined{Show: models.Show{ID: "show-2", Name: "Other"}, UserRole: models.RoleDJ})

	st := store.Snapshot()
	assert.Equal(t, "show-2", st.Show.ID)
	assert.Equal(t, models.RoleDJ, st.Role)
	assert.Empty(t, st.Show.Queue)
	assert.Empty(t, st.SongRequests)
}

func TestRouter_ShowLeft(t *testing.T) {
	store, r := newTestRouter(t, Options{})
	joinShow(t, r)

	assert.False(t, r.Dispatch(protocol.ShowLeft{Success: true, ShowID: "other"}))
	assert.False(t, r.Dispatch(protocol.ShowLeft{Success: false, ShowID: "show-1"}))
	assert.True(t, r.Dispatch(protocol.ShowLeft{Success: true, ShowID: "show-1"}))

	st := store.Snapshot()
	assert.Nil(t, st.Show)
	assert.Empty(t, st.Role)
	assert.False(t, r.Dispatch(protocol.ShowLeft{Success: true, ShowID: "show-1"}))
}

func TestRouter_Roster(t *testing.T) {
	store, r := newTestRouter(t, Options{})
	joinShow(t, r)

	join := protocol.ShowEvent{
		Type:   protocol.ShowEventUserJoined,
		ShowID: "show-1",
		Data:   mustJSON(t, models.Participant{UserID: "B", Name: "Bob", StageName: "Bobby Tables", IsOnline: true}),
	}
	assert.True(t, r.Dispatch(join))
	assert.False(t, r.Dispatch(join), "duplicate join")
	require.Len(t, store.Snapshot().Show.Participants, 3)
	assert.Equal(t, "Bobby Tables", store.Snapshot().Show.Participants[2].DisplayName())

	offline := protocol.ShowEvent{Type: protocol.ShowEventUserOffline, ShowID: "show-1", Data: userData("B")}
	assert.True(t, r.Dispatch(offline))
	assert.False(t, r.Dispatch(offline))
	assert.False(t, store.Snapshot().Show.Participants[2].IsOnline)

	left := protocol.ShowEvent{Type: protocol.ShowEventUserLeft, ShowID: "show-1", Data: userData("B")}
	assert.True(t, r.Dispatch(left))
	assert.False(t, r.Dispatch(left))
	assert.Len(t, store.Snapshot().Show.Participants, 2)

	assert.False(t, r.Dispatch(protocol.ShowEvent{Type: "confetti", ShowID: "show-1"}))
	assert.False(t, r.Dispatch(protocol.ShowEvent{Type: protocol.ShowEventUserLeft, ShowID: "show-1", Data: json.RawMessage(`{}`)}))
}

func TestRouter_ChatDedupAndBound(t *testing.T) {
	store, r := newTestRouter(t, Options{ChatLimit: 3})
	joinShow(t, r)

	for i := 0; i < 5; i++ {
		msg := protocol.ChatMessage{ChatMessage: models.ChatMessage{
			ID: fmt.Sprintf("m%d", i), ShowID: "show-1", Message: "hi", Type: models.MessageSingerChat,
		}}
		assert.True(t, r.Dispatch(msg))
		assert.False(t, r.Dispatch(msg), "duplicate delivery of m%d", i)
	}

	chat := store.Snapshot().Show.Chat
	require.Len(t, chat, 3)
	assert.Equal(t, "m2", chat[0].ID)
	assert.Equal(t, "m4", chat[2].ID)
}

func TestRouter_ChatForOtherShowDropped(t *testing.T) {
	store, r := newTestRouter(t, Options{})
	joinShow(t, r)
	assert.False(t, r.Dispatch(protocol.ChatMessage{ChatMessage: models.ChatMessage{ID: "x", ShowID: "elsewhere"}}))
	assert.Empty(t, store.Snapshot().Show.Chat)
}

func TestRouter_AnnouncementSupersedes(t *testing.T) {
	store, r := newTestRouter(t, Options{})
	joinShow(t, r)

	a1 := announcement("a1", testNow, 30)
	a2 := announcement("a2", testNow.Add(5*time.Second), 30)

	assert.True(t, r.Dispatch(protocol.Announcement{Announcement: a1}))
	assert.False(t, r.Dispatch(protocol.Announcement{Announcement: a1}), "duplicate")
	assert.True(t, r.Dispatch(protocol.Announcement{Announcement: a2}))

	cur := store.Snapshot().Show.CurrentAnnouncement
	require.NotNil(t, cur)
	assert.Equal(t, "a2", cur.ID)
	assert.True(t, cur.IsActive)

	assert.False(t, r.ExpireAnnouncement("a1"), "superseded id must not clear a2")
	assert.True(t, r.ExpireAnnouncement("a2"))
	assert.Nil(t, store.Snapshot().Show.CurrentAnnouncement)
	assert.False(t, r.Dispatch(protocol.ShowEvent{
		Type: protocol.ShowEventAnnouncementExpired, ShowID: "show-1", Data: mustJSON(t, protocol.AnnouncementRef{AnnouncementID: "a2"}),
	}), "server notice after local expiry is a no-op")
}

func TestRouter_ExpiredAnnouncementNotActivated(t *testing.T) {
	store, r := newTestRouter(t, Options{})
	joinShow(t, r)

	old := announcement("old", testNow.Add(-time.Minute), 30)
	assert.False(t, r.Dispatch(protocol.Announcement{Announcement: old}))
	assert.Nil(t, store.Snapshot().Show.CurrentAnnouncement)
}

func TestRouter_ServerAnnouncementNotices(t *testing.T) {
	store, r := newTestRouter(t, Options{})
	joinShow(t, r)
	r.Dispatch(protocol.Announcement{Announcement: announcement("a1", testNow, 30)})

	assert.False(t, r.Dispatch(protocol.ShowEvent{
		Type: protocol.ShowEventAnnouncementDismissed, ShowID: "show-1", Data: mustJSON(t, protocol.AnnouncementRef{AnnouncementID: "zzz"}),
	}))
	assert.True(t, r.Dispatch(protocol.ShowEvent{Type: protocol.ShowEventAnnouncementDismissed, ShowID: "show-1"}))
	assert.Nil(t, store.Snapshot().Show.CurrentAnnouncement)
}

func TestRouter_ShowEnded(t *testing.T) {
	store, r := newTestRouter(t, Options{})
	joinShow(t, r)
	r.Dispatch(protocol.Announcement{Announcement: announcement("a1", testNow, 30)})

	ended := protocol.ShowEvent{Type: protocol.ShowEventShowEnded, ShowID: "show-1"}
	assert.True(t, r.Dispatch(ended))
	assert.False(t, r.Dispatch(ended))
	assert.False(t, store.Snapshot().Show.IsActive)
	assert.Nil(t, store.Snapshot().Show.CurrentAnnouncement)
}

func TestRouter_SongRequestsBounded(t *testing.T) {
	store, r := newTestRouter(t, Options{SongRequestLimit: 2})
	joinShow(t, r)

	for i := 0; i < 3; i++ {
		req := protocol.SongRequestReceived{SongRequest: models.SongRequest{
			FromUserID: "A", SongRequest: fmt.Sprintf("song %d", i), Timestamp: testNow,
		}}
		assert.True(t, r.Dispatch(req))
		assert.False(t, r.Dispatch(req))
	}
	reqs := store.Snapshot().SongRequests
	require.Len(t, reqs, 2)
	assert.Equal(t, "song 1", reqs[0].SongRequest)
}

func TestRouter_UnknownAndServerError(t *testing.T) {
	store, r := newTestRouter(t, Options{})
	assert.False(t, r.Dispatch(protocol.Unknown{Name: "future-event"}))

	assert.True(t, r.Dispatch(protocol.ServerError{Message: "show is full"}))
	assert.False(t, r.Dispatch(protocol.ServerError{Message: "show is full"}))
	assert.Equal(t, "show is full", store.Snapshot().LastServerError)
}

func TestRouter_ConnectionAndReset(t *testing.T) {
	store, r := newTestRouter(t, Options{})
	joinShow(t, r)

	cs := models.ConnectionState{Status: models.StatusDisconnected, LastError: "eof", LastShowID: "show-1"}
	assert.True(t, r.ConnectionChanged(cs))
	assert.False(t, r.ConnectionChanged(cs))
	assert.NotNil(t, store.Snapshot().Show, "an unexpected drop keeps the stale show")

	assert.True(t, r.Reset())
	st := store.Snapshot()
	assert.Nil(t, st.Show)
	assert.Equal(t, cs, st.Connection)
	assert.False(t, r.Reset())
}

func TestRouter_PublishedSnapshotsAreImmutable(t *testing.T) {
	store, r := newTestRouter(t, Options{})
	joinShow(t, r, entry("A", 1, false))
	before := store.Snapshot()

	r.Dispatch(protocol.QueueUpdated{Queue: []models.QueueEntry{entry("B", 1, true), entry("A", 2, false)}})

	assert.Equal(t, "A", before.Show.Queue[0].UserID)
	assert.False(t, before.Show.Queue[0].IsCurrentSinger)
	assert.NotEqual(t, withoutVersion(before), withoutVersion(store.Snapshot()))
}

func announcement(id string, created time.Time, secs int) models.Announcement {
	return models.Announcement{
		ID: id, ShowID: "show-1", Message: "Last call!", DJID: "dj", DJName: "DJ Sam",
		CreatedAt: created, DisplayDuration: secs,
	}
}

func userData(id string) json.RawMessage {
	b, _ := json.Marshal(protocol.UserRef{UserID: id})
	return b
}

func mustJSON(t *testing.T, v any) json.RawMessage {
	t.Helper()
	b, err := json.Marshal(v)
	require.NoError(t, err)
	return b
}
