package showstate

import (
	"log"
	"reflect"
	"time"

	"github.com/Vasu1712/scenyx-live/internal/models"
	"github.com/Vasu1712/scenyx-live/internal/protocol"
)

// Router maps inbound events onto store mutations. It is the Store's single
// writer and must only be called from one goroutine. Every method is
// idempotent: replaying an event leaves the state unchanged.
type Router struct {
	store  *Store
	logger *log.Logger
	now    func() time.Time
}

// NewRouter creates the writer for store. A nil logger uses log.Default and a
// nil now uses time.Now.
func NewRouter(store *Store, logger *log.Logger, now func() time.Time) *Router {
	if logger == nil {
		logger = log.Default()
	}
	if now == nil {
		now = time.Now
	}
	return &Router{store: store, logger: logger, now: now}
}

// Dispatch applies one inbound event. It reports whether the state changed;
// stale, duplicate and unknown events are dropped.
func (r *Router) Dispatch(ev protocol.Inbound) bool {
	cur := r.store.Snapshot()

	var next State
	var ok bool
	switch e := ev.(type) {
	case protocol.Authenticated:
		// Handled by the connection manager; nothing to mirror.
		return false
	case protocol.ShowJoined:
		next, ok = r.showJoined(cur, e)
	case protocol.ShowLeft:
		next, ok = r.showLeft(cur, e)
	case protocol.ShowEvent:
		next, ok = r.showEvent(cur, e)
	case protocol.ChatMessage:
		next, ok = r.chatMessage(cur, e.ChatMessage)
	case protocol.Announcement:
		next, ok = r.announcement(cur, e.Announcement)
	case protocol.QueueUpdated:
		next, ok = r.queueUpdated(cur, e)
	case protocol.SongRequestReceived:
		next, ok = r.songRequest(cur, e.SongRequest)
	case protocol.ServerError:
		if cur.LastServerError == e.Message {
			return false
		}
		r.logger.Printf("[Router] server error: %s", e.Message)
		next, ok = cur, true
		next.LastServerError = e.Message
	case protocol.Unknown:
		r.logger.Printf("[Router] dropping unknown event %q", e.Name)
		return false
	default:
		r.logger.Printf("[Router] dropping unhandled event %T", ev)
		return false
	}

	if !ok {
		return false
	}
	r.store.commit(next)
	return true
}

// ConnectionChanged mirrors the connection manager's state.
func (r *Router) ConnectionChanged(cs models.ConnectionState) bool {
	cur := r.store.Snapshot()
	if cur.Connection == cs {
		return false
	}
	next := cur
	next.Connection = cs
	r.store.commit(next)
	return true
}

// Reset drops the held show, role and DJ inbox. Used on explicit disconnect.
func (r *Router) Reset() bool {
	cur := r.store.Snapshot()
	if cur.Show == nil && cur.Role == "" && len(cur.SongRequests) == 0 && cur.LastServerError == "" {
		return false
	}
	next := State{Connection: cur.Connection}
	r.store.commit(next)
	return true
}

// ExpireAnnouncement clears announcement id if it is still the active one.
// The local countdown calls this; it is a display prediction, so a later
// authoritative notice for the same id is a no-op.
func (r *Router) ExpireAnnouncement(id string) bool {
	return r.clearAnnouncement(r.store.Snapshot(), id)
}

// DismissAnnouncement clears announcement id after a local DJ dismiss.
func (r *Router) DismissAnnouncement(id string) bool {
	return r.clearAnnouncement(r.store.Snapshot(), id)
}

func (r *Router) clearAnnouncement(cur State, id string) bool {
	if cur.Show == nil || cur.Show.CurrentAnnouncement == nil {
		return false
	}
	if id != "" && cur.Show.CurrentAnnouncement.ID != id {
		return false
	}
	next := cur
	next.Show = cloneShow(cur.Show)
	next.Show.CurrentAnnouncement = nil
	r.store.commit(next)
	return true
}

func (r *Router) showJoined(cur State, e protocol.ShowJoined) (State, bool) {
	show := cloneShow(&e.Show)
	show.Queue = normalizeQueue(show.Queue, nil)
	show.Chat = boundChat(show.Chat, r.store.chatLimit)
	syncParticipantPositions(show)
	if a := show.CurrentAnnouncement; a != nil && (!a.IsActive || a.Remaining(r.now()) <= 0) {
		show.CurrentAnnouncement = nil
	}

	role := e.UserRole
	if role == "" {
		role = models.RoleSinger
	}
	// A replayed snapshot of the show we already hold is a no-op.
	if cur.Show != nil && cur.Role == role && cur.LastServerError == "" &&
		cur.Connection.LastShowID == show.ID && reflect.DeepEqual(cur.Show, show) {
		return cur, false
	}

	next := cur
	if cur.Show == nil || cur.Show.ID != show.ID {
		// A different show starts with an empty inbox.
		next.SongRequests = nil
	}
	next.Show = show
	next.Role = role
	next.Connection.LastShowID = show.ID
	next.LastServerError = ""
	r.logger.Printf("[Router] joined show %s as %s (%d in queue)", show.ID, next.Role, len(show.Queue))
	return next, true
}

func (r *Router) showLeft(cur State, e protocol.ShowLeft) (State, bool) {
	if !e.Success || cur.Show == nil {
		return cur, false
	}
	if e.ShowID != "" && e.ShowID != cur.Show.ID {
		return cur, false
	}
	next := cur
	next.Show = nil
	next.Role = ""
	next.SongRequests = nil
	next.Connection.LastShowID = ""
	return next, true
}

func (r *Router) showEvent(cur State, e protocol.ShowEvent) (State, bool) {
	if !r.sameShow(cur, e.ShowID, e.Type) {
		return cur, false
	}
	show := cloneShow(cur.Show)

	switch e.Type {
	case protocol.ShowEventUserJoined:
		p, err := e.Participant()
		if err != nil {
			r.logger.Printf("[Router] %v", err)
			return cur, false
		}
		if !upsertParticipant(show, p) {
			return cur, false
		}
		syncParticipantPositions(show)
	case protocol.ShowEventUserLeft:
		id, err := e.User()
		if err != nil {
			r.logger.Printf("[Router] %v", err)
			return cur, false
		}
		if !removeParticipant(show, id) {
			return cur, false
		}
	case protocol.ShowEventUserOnline, protocol.ShowEventUserOffline:
		id, err := e.User()
		if err != nil {
			r.logger.Printf("[Router] %v", err)
			return cur, false
		}
		if !setOnline(show, id, e.Type == protocol.ShowEventUserOnline) {
			return cur, false
		}
	case protocol.ShowEventCurrentSingerChanged:
		id, err := e.User()
		if err != nil {
			r.logger.Printf("[Router] %v", err)
			return cur, false
		}
		if !setCurrentSinger(show, id) {
			return cur, false
		}
	case protocol.ShowEventAnnouncementExpired, protocol.ShowEventAnnouncementDismissed:
		a := show.CurrentAnnouncement
		id := e.AnnouncementID()
		if a == nil || (id != "" && a.ID != id) {
			return cur, false
		}
		show.CurrentAnnouncement = nil
	case protocol.ShowEventShowEnded:
		if !show.IsActive && show.CurrentAnnouncement == nil {
			return cur, false
		}
		show.IsActive = false
		show.CurrentAnnouncement = nil
	default:
		r.logger.Printf("[Router] dropping unknown show-event %q", e.Type)
		return cur, false
	}

	next := cur
	next.Show = show
	return next, true
}

func (r *Router) chatMessage(cur State, msg models.ChatMessage) (State, bool) {
	if !r.sameShow(cur, msg.ShowID, protocol.EventChatMessage) {
		return cur, false
	}
	if msg.ID != "" {
		for _, m := range cur.Show.Chat {
			if m.ID == msg.ID {
				return cur, false
			}
		}
	}
	show := cloneShow(cur.Show)
	show.Chat = boundChat(append(show.Chat, msg), r.store.chatLimit)

	next := cur
	next.Show = show
	return next, true
}

func (r *Router) announcement(cur State, a models.Announcement) (State, bool) {
	if !r.sameShow(cur, a.ShowID, protocol.EventAnnouncement) {
		return cur, false
	}
	if old := cur.Show.CurrentAnnouncement; old != nil && old.ID == a.ID {
		return cur, false
	}
	if a.Remaining(r.now()) <= 0 {
		r.logger.Printf("[Router] announcement %s already expired on receipt", a.ID)
		return cur, false
	}
	a.IsActive = true
	show := cloneShow(cur.Show)
	show.CurrentAnnouncement = &a

	next := cur
	next.Show = show
	return next, true
}

func (r *Router) queueUpdated(cur State, e protocol.QueueUpdated) (State, bool) {
	if !r.sameShow(cur, e.ShowID, protocol.EventQueueUpdated) {
		return cur, false
	}
	queue := normalizeQueue(e.Queue, e.CurrentSinger)
	if queueEqual(cur.Show.Queue, queue) {
		return cur, false
	}
	show := cloneShow(cur.Show)
	show.Queue = queue
	syncParticipantPositions(show)

	next := cur
	next.Show = show
	return next, true
}

func (r *Router) songRequest(cur State, req models.SongRequest) (State, bool) {
	if cur.Show == nil {
		return cur, false
	}
	for _, existing := range cur.SongRequests {
		if existing.FromUserID == req.FromUserID && existing.SongRequest == req.SongRequest &&
			existing.Timestamp.Equal(req.Timestamp) {
			return cur, false
		}
	}
	reqs := append(append([]models.SongRequest(nil), cur.SongRequests...), req)
	if len(reqs) > r.store.requestLimit {
		reqs = reqs[len(reqs)-r.store.requestLimit:]
	}
	next := cur
	next.SongRequests = reqs
	return next, true
}

// sameShow drops events for a show this client no longer holds. An empty
// showID is accepted as referring to the held show.
func (r *Router) sameShow(cur State, showID, what string) bool {
	if cur.Show == nil {
		r.logger.Printf("[Router] dropping %s: no show joined", what)
		return false
	}
	if showID != "" && showID != cur.Show.ID {
		r.logger.Printf("[Router] dropping stale %s for show %s", what, showID)
		return false
	}
	return true
}

func upsertParticipant(show *models.Show, p models.Participant) bool {
	for i, existing := range show.Participants {
		if existing.UserID == p.UserID {
			p.QueuePosition = existing.QueuePosition
			if participantEqual(existing, p) {
				return false
			}
			show.Participants[i] = p
			return true
		}
	}
	show.Participants = append(show.Participants, p)
	return true
}

func removeParticipant(show *models.Show, userID string) bool {
	for i, p := range show.Participants {
		if p.UserID == userID {
			show.Participants = append(show.Participants[:i], show.Participants[i+1:]...)
			return true
		}
	}
	return false
}

func setOnline(show *models.Show, userID string, online bool) bool {
	for i, p := range show.Participants {
		if p.UserID == userID {
			if p.IsOnline == online {
				return false
			}
			show.Participants[i].IsOnline = online
			return true
		}
	}
	return false
}

func setCurrentSinger(show *models.Show, userID string) bool {
	found := false
	for _, e := range show.Queue {
		if e.UserID == userID {
			if e.IsCurrentSinger {
				return false
			}
			found = true
		}
	}
	if !found {
		return false
	}
	for i := range show.Queue {
		show.Queue[i].IsCurrentSinger = show.Queue[i].UserID == userID
	}
	return true
}

func participantEqual(a, b models.Participant) bool {
	return a.UserID == b.UserID && a.Name == b.Name && a.StageName == b.StageName &&
		a.AvatarID == b.AvatarID && a.MicrophoneID == b.MicrophoneID &&
		a.JoinedAt.Equal(b.JoinedAt) && a.IsOnline == b.IsOnline && a.IsDJ == b.IsDJ
}

func queueEqual(a, b []models.QueueEntry) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		x, y := a[i], b[i]
		if x.UserID != y.UserID || x.Name != y.Name || x.StageName != y.StageName ||
			x.AvatarID != y.AvatarID || x.Position != y.Position || x.SongRequest != y.SongRequest ||
			x.IsCurrentSinger != y.IsCurrentSinger || x.SongDuration != y.SongDuration {
			return false
		}
		if (x.SongStartTime == nil) != (y.SongStartTime == nil) {
			return false
		}
		if x.SongStartTime != nil && !x.SongStartTime.Equal(*y.SongStartTime) {
			return false
		}
	}
	return true
}
