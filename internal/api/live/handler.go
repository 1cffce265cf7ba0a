package live

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/Vasu1712/scenyx-live/internal/api"
	"github.com/Vasu1712/scenyx-live/internal/guard"
	"github.com/Vasu1712/scenyx-live/internal/models"
	"github.com/Vasu1712/scenyx-live/internal/queue"
	"github.com/Vasu1712/scenyx-live/internal/showstate"
	"github.com/Vasu1712/scenyx-live/internal/ws"
)

// Engine is the part of session.Engine the live routes drive.
type Engine interface {
	Snapshot() showstate.State
	Subscribe() (<-chan showstate.State, func())
	UserID() string
	Queue() *queue.Engine
	AnnouncementRemaining() (models.Announcement, int, bool)

	Connect(ctx context.Context) error
	Disconnect(ctx context.Context) error
	Resume(ctx context.Context) error
	JoinShow(ctx context.Context, showID, avatarID, microphoneID string) error
	LeaveShow(ctx context.Context) error

	JoinQueue(ctx context.Context, songRequest string) error
	RemoveFromQueue(ctx context.Context, userID string) error
	ReorderQueue(ctx context.Context, order []string) error
	SetCurrentSinger(ctx context.Context, singerID string) error
	StartSong(ctx context.Context, userID string) error
	SetSongDuration(ctx context.Context, userID string, seconds int) error
	SendSongRequest(ctx context.Context, song string) error

	SendAnnouncement(ctx context.Context, body string, displayDuration int) error
	DismissAnnouncement(ctx context.Context) error
}

// Handler holds the dependencies for the live-session routes.
type Handler struct {
	Engine Engine
	Hub    *ws.Hub
}

// accepted is the body of every intent that was sent upstream. The state
// change arrives later through the snapshot stream.
type accepted struct {
	Status string `json:"status"`
}

func (h *Handler) respond(w http.ResponseWriter, err error) {
	if err != nil {
		log.Printf("[Live] request failed: %v", err)
		api.WriteError(w, err)
		return
	}
	api.WriteJSON(w, http.StatusAccepted, accepted{Status: "sent"})
}

// State returns the current snapshot.
func (h *Handler) State(w http.ResponseWriter, r *http.Request) {
	api.WriteJSON(w, http.StatusOK, h.Engine.Snapshot())
}

func (h *Handler) Connect(w http.ResponseWriter, r *http.Request) {
	if err := h.Engine.Connect(r.Context()); err != nil {
		api.WriteError(w, err)
		return
	}
	api.WriteJSON(w, http.StatusOK, h.Engine.Snapshot().Connection)
}

func (h *Handler) Disconnect(w http.ResponseWriter, r *http.Request) {
	if err := h.Engine.Disconnect(r.Context()); err != nil {
		api.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) Resume(w http.ResponseWriter, r *http.Request) {
	if err := h.Engine.Resume(r.Context()); err != nil {
		api.WriteError(w, err)
		return
	}
	api.WriteJSON(w, http.StatusOK, h.Engine.Snapshot().Connection)
}

// JoinShow expects an optional JSON body with "avatarId" and "microphoneId".
func (h *Handler) JoinShow(w http.ResponseWriter, r *http.Request) {
	var req struct {
		AvatarID     string `json:"avatarId"`
		MicrophoneID string `json:"microphoneId"`
	}
	if err := api.Decode(r, &req); err != nil {
		api.WriteError(w, err)
		return
	}
	h.respond(w, h.Engine.JoinShow(r.Context(), mux.Vars(r)["showID"], req.AvatarID, req.MicrophoneID))
}

func (h *Handler) LeaveShow(w http.ResponseWriter, r *http.Request) {
	h.respond(w, h.Engine.LeaveShow(r.Context()))
}

type queueView struct {
	Current              *models.QueueEntry  `json:"current"`
	Next                 []models.QueueEntry `json:"next"`
	MyPosition           *int                `json:"myPosition"`
	MyWaitSeconds        *int                `json:"myWaitSeconds"`
	TotalInQueue         int                 `json:"totalInQueue"`
	Waiting              int                 `json:"waiting"`
	EstimatedWaitSeconds int                 `json:"estimatedWaitSeconds"`
}

// Queue returns the current singer, the next ?next=N (default 3) entries, the
// caller's position and the wait estimates.
func (h *Handler) Queue(w http.ResponseWriter, r *http.Request) {
	n := 3
	if v := r.URL.Query().Get("next"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil || parsed < 0 {
			api.WriteError(w, guard.Validation("next", "must be a non-negative integer"))
			return
		}
		n = parsed
	}

	st := h.Engine.Snapshot()
	q := h.Engine.Queue()
	view := queueView{Next: []models.QueueEntry{}}
	if st.Show != nil {
		if cur, ok := q.Current(st.Show); ok {
			view.Current = &cur
		}
		if next := q.Next(st.Show, n); next != nil {
			view.Next = next
		}
		if pos, ok := q.PositionOf(st.Show, h.Engine.UserID()); ok {
			view.MyPosition = &pos
		}
		if wait, ok := q.WaitFor(st.Show, h.Engine.UserID()); ok {
			secs := int(wait.Seconds())
			view.MyWaitSeconds = &secs
		}
	}
	stats := q.Stats(st.Show)
	view.TotalInQueue = stats.TotalInQueue
	view.Waiting = stats.Waiting
	view.EstimatedWaitSeconds = int(stats.EstimatedWait.Seconds())
	api.WriteJSON(w, http.StatusOK, view)
}

// JoinQueue expects an optional JSON body with "songRequest".
func (h *Handler) JoinQueue(w http.ResponseWriter, r *http.Request) {
	var req struct {
		SongRequest string `json:"songRequest"`
	}
	if err := api.Decode(r, &req); err != nil {
		api.WriteError(w, err)
		return
	}
	h.respond(w, h.Engine.JoinQueue(r.Context(), req.SongRequest))
}

func (h *Handler) RemoveFromQueue(w http.ResponseWriter, r *http.Request) {
	h.respond(w, h.Engine.RemoveFromQueue(r.Context(), mux.Vars(r)["userID"]))
}

// ReorderQueue expects {"queueOrder": [userID, ...]} naming every queued user.
func (h *Handler) ReorderQueue(w http.ResponseWriter, r *http.Request) {
	var req struct {
		QueueOrder []string `json:"queueOrder"`
	}
	if err := api.Decode(r, &req); err != nil {
		api.WriteError(w, err)
		return
	}
	h.respond(w, h.Engine.ReorderQueue(r.Context(), req.QueueOrder))
}

// SetCurrentSinger expects {"singerId": "..."}.
func (h *Handler) SetCurrentSinger(w http.ResponseWriter, r *http.Request) {
	var req struct {
		SingerID string `json:"singerId"`
	}
	if err := api.Decode(r, &req); err != nil {
		api.WriteError(w, err)
		return
	}
	h.respond(w, h.Engine.SetCurrentSinger(r.Context(), req.SingerID))
}

func (h *Handler) StartSong(w http.ResponseWriter, r *http.Request) {
	h.respond(w, h.Engine.StartSong(r.Context(), mux.Vars(r)["userID"]))
}

// SetSongDuration expects {"duration": seconds}.
func (h *Handler) SetSongDuration(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Duration int `json:"duration"`
	}
	if err := api.Decode(r, &req); err != nil {
		api.WriteError(w, err)
		return
	}
	h.respond(w, h.Engine.SetSongDuration(r.Context(), mux.Vars(r)["userID"], req.Duration))
}

// SendSongRequest expects {"songRequest": "..."}.
func (h *Handler) SendSongRequest(w http.ResponseWriter, r *http.Request) {
	var req struct {
		SongRequest string `json:"songRequest"`
	}
	if err := api.Decode(r, &req); err != nil {
		api.WriteError(w, err)
		return
	}
	h.respond(w, h.Engine.SendSongRequest(r.Context(), req.SongRequest))
}

// SendAnnouncement expects {"message": "...", "displayDuration": seconds}.
func (h *Handler) SendAnnouncement(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Message         string `json:"message"`
		DisplayDuration int    `json:"displayDuration"`
	}
	if err := api.Decode(r, &req); err != nil {
		api.WriteError(w, err)
		return
	}
	h.respond(w, h.Engine.SendAnnouncement(r.Context(), req.Message, req.DisplayDuration))
}

func (h *Handler) DismissAnnouncement(w http.ResponseWriter, r *http.Request) {
	if err := h.Engine.DismissAnnouncement(r.Context()); err != nil {
		api.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// CurrentAnnouncement returns the active announcement with its remaining
// seconds, or 204 when there is none.
func (h *Handler) CurrentAnnouncement(w http.ResponseWriter, r *http.Request) {
	a, secs, ok := h.Engine.AnnouncementRemaining()
	if !ok {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	api.WriteJSON(w, http.StatusOK, struct {
		models.Announcement
		RemainingSeconds int `json:"remainingSeconds"`
	}{a, secs})
}

// ServeWS streams state snapshots to a UI over a websocket.
func (h *Handler) ServeWS(w http.ResponseWriter, r *http.Request) {
	h.Hub.ServeWS(w, r)
}

// StreamState publishes every committed snapshot to the hub until ctx is done.
func (h *Handler) StreamState(ctx context.Context) error {
	states, cancel := h.Engine.Subscribe()
	defer cancel()

	publish := func(st showstate.State) {
		frame, err := json.Marshal(st)
		if err != nil {
			log.Printf("[Live] encoding snapshot: %v", err)
			return
		}
		h.Hub.Publish(ctx, frame)
	}
	publish(h.Engine.Snapshot())
	for {
		select {
		case <-ctx.Done():
			return nil
		case st, ok := <-states:
			if !ok {
				return nil
			}
			publish(st)
		}
	}
}
