package live

import (
	"context"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Vasu1712/scenyx-live/internal/conn"
	"github.com/Vasu1712/scenyx-live/internal/models"
	"github.com/Vasu1712/scenyx-live/internal/protocol"
	"github.com/Vasu1712/scenyx-live/internal/session"
	"github.com/Vasu1712/scenyx-live/internal/showstate"
	"github.com/Vasu1712/scenyx-live/internal/ws"
	"github.com/Vasu1712/scenyx-live/internal/ws/wstest"
)

type fixture struct {
	engine *session.Engine
	tr     *wstest.Transport
	hub    *ws.Hub
	router *mux.Router
	ctx    context.Context
}

func newFixture(t *testing.T, userID string) *fixture {
	t.Helper()
	quiet := log.New(io.Discard, "", 0)
	tr := wstest.New(t)
	tr.Reply = wstest.AcceptAuth(true)
	e := session.New(tr, nil, session.Options{
		Credentials: conn.Credentials{UserID: userID, UserName: userID, Token: "tok"},
		Logger:      quiet,
	})
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go e.Run(ctx)

	hub := ws.NewHub(quiet)
	go hub.Run(ctx)

	r := mux.NewRouter()
	RegisterLiveRoutes(r, &Handler{Engine: e, Hub: hub})
	return &fixture{engine: e, tr: tr, hub: hub, router: r, ctx: ctx}
}

func (f *fixture) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var rd io.Reader
	if body != "" {
		rd = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, rd)
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func (f *fixture) join(t *testing.T, role models.Role) {
	t.Helper()
	require.Equal(t, http.StatusOK, f.do(t, http.MethodPost, "/api/v1/live/connect", "").Code)
	require.Equal(t, http.StatusAccepted, f.do(t, http.MethodPost, "/api/v1/live/shows/show-1/join", `{"avatarId":"av-1"}`).Code)
	f.tr.Deliver(protocol.EventShowJoined, protocol.ShowJoined{
		UserRole: role,
		Show: models.Show{
			ID: "show-1", DJID: "dj",
			Queue: []models.QueueEntry{
				{UserID: "A", Position: 1, IsCurrentSinger: true},
				{UserID: "B", Position: 2},
				{UserID: "C", Position: 3},
			},
		},
	})
	require.Eventually(t, func() bool { return f.engine.Snapshot().InShow() }, time.Second, 5*time.Millisecond)
}

func TestHandler_ConnectAndJoin(t *testing.T) {
	f := newFixture(t, "B")

	rec := f.do(t, http.MethodPost, "/api/v1/live/shows/show-1/join", "")
	assert.Equal(t, http.StatusConflict, rec.Code, "not connected yet")

	f.join(t, models.RoleSinger)

	var join protocol.JoinShow
	sent := f.tr.Sent()
	require.NoError(t, sent[1].Decode(&join))
	assert.Equal(t, "av-1", join.AvatarID)

	rec = f.do(t, http.MethodGet, "/api/v1/live/state", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var st showstate.State
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&st))
	assert.Equal(t, "show-1", st.Show.ID)
	assert.Equal(t, models.StatusAuthenticated, st.Connection.Status)
}

func TestHandler_QueueView(t *testing.T) {
	f := newFixture(t, "C")
	f.join(t, models.RoleSinger)

	rec := f.do(t, http.MethodGet, "/api/v1/live/queue?next=1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var view struct {
		Current              models.QueueEntry   `json:"current"`
		Next                 []models.QueueEntry `json:"next"`
		MyPosition           int                 `json:"myPosition"`
		MyWaitSeconds        int                 `json:"myWaitSeconds"`
		TotalInQueue         int                 `json:"totalInQueue"`
		EstimatedWaitSeconds int                 `json:"estimatedWaitSeconds"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&view))
	assert.Equal(t, "A", view.Current.UserID)
	require.Len(t, view.Next, 1)
	assert.Equal(t, "B", view.Next[0].UserID)
	assert.Equal(t, 3, view.MyPosition)
	assert.Equal(t, 240, view.MyWaitSeconds)
	assert.Equal(t, 3, view.TotalInQueue)
	assert.Equal(t, 480, view.EstimatedWaitSeconds)

	assert.Equal(t, http.StatusBadRequest, f.do(t, http.MethodGet, "/api/v1/live/queue?next=x", "").Code)
}

func TestHandler_DJControls(t *testing.T) {
	f := newFixture(t, "dj")
	f.join(t, models.RoleDJ)

	assert.Equal(t, http.StatusAccepted, f.do(t, http.MethodPut, "/api/v1/live/queue/order", `{"queueOrder":["C","A","B"]}`).Code)
	assert.Equal(t, http.StatusBadRequest, f.do(t, http.MethodPut, "/api/v1/live/queue/order", `{"queueOrder":["A","B"]}`).Code)
	assert.Equal(t, http.StatusAccepted, f.do(t, http.MethodPut, "/api/v1/live/queue/current", `{"singerId":"B"}`).Code)
	assert.Equal(t, http.StatusAccepted, f.do(t, http.MethodPost, "/api/v1/live/queue/B/start", "").Code)
	assert.Equal(t, http.StatusAccepted, f.do(t, http.MethodPut, "/api/v1/live/queue/B/duration", `{"duration":210}`).Code)
	assert.Equal(t, http.StatusAccepted, f.do(t, http.MethodDelete, "/api/v1/live/queue/C", "").Code)
	assert.Equal(t, http.StatusAccepted, f.do(t, http.MethodPost, "/api/v1/live/announcements", `{"message":"Last call","displayDuration":20}`).Code)
	assert.Equal(t, http.StatusBadRequest, f.do(t, http.MethodPost, "/api/v1/live/announcements", `{"message":"`+strings.Repeat("x", 201)+`"}`).Code)
	assert.Equal(t, http.StatusBadRequest, f.do(t, http.MethodPost, "/api/v1/live/announcements", `{"message":`).Code)

	assert.Equal(t, []string{
		protocol.EventAuthenticate,
		protocol.EventJoinShow,
		protocol.EventReorderQueue,
		protocol.EventSetCurrentSinger,
		protocol.EventStartSong,
		protocol.EventSetSongDuration,
		protocol.EventRemoveFromQueue,
		protocol.EventSendAnnouncement,
	}, f.tr.SentEvents())
}

func TestHandler_SingerForbidden(t *testing.T) {
	f := newFixture(t, "B")
	f.join(t, models.RoleSinger)

	rec := f.do(t, http.MethodPut, "/api/v1/live/queue/order", `{"queueOrder":["C","A","B"]}`)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, http.StatusForbidden, f.do(t, http.MethodDelete, "/api/v1/live/announcements/current", "").Code)
	assert.Equal(t, http.StatusAccepted, f.do(t, http.MethodPost, "/api/v1/live/song-requests", `{"songRequest":"Africa"}`).Code)
	assert.Equal(t, http.StatusAccepted, f.do(t, http.MethodDelete, "/api/v1/live/queue/B", "").Code)
}

func TestHandler_CurrentAnnouncement(t *testing.T) {
	f := newFixture(t, "B")
	f.join(t, models.RoleSinger)

	assert.Equal(t, http.StatusNoContent, f.do(t, http.MethodGet, "/api/v1/live/announcements/current", "").Code)

	f.tr.Deliver(protocol.EventAnnouncement, models.Announcement{
		ID: "a1", ShowID: "show-1", Message: "Two songs left", CreatedAt: time.Now(), DisplayDuration: 30, IsActive: true,
	})
	var rec *httptest.ResponseRecorder
	require.Eventually(t, func() bool {
		rec = f.do(t, http.MethodGet, "/api/v1/live/announcements/current", "")
		return rec.Code == http.StatusOK
	}, time.Second, 5*time.Millisecond)

	var body struct {
		ID               string `json:"id"`
		RemainingSeconds int    `json:"remainingSeconds"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Equal(t, "a1", body.ID)
	assert.InDelta(t, 30, body.RemainingSeconds, 1)
}

func TestHandler_DisconnectAndLeave(t *testing.T) {
	f := newFixture(t, "B")
	f.join(t, models.RoleSinger)

	assert.Equal(t, http.StatusAccepted, f.do(t, http.MethodPost, "/api/v1/live/leave", "").Code)
	assert.Equal(t, http.StatusNoContent, f.do(t, http.MethodPost, "/api/v1/live/disconnect", "").Code)
	require.Eventually(t, func() bool { return !f.engine.Snapshot().InShow() }, time.Second, 5*time.Millisecond)
	assert.Equal(t, http.StatusConflict, f.do(t, http.MethodPost, "/api/v1/live/leave", "").Code)
	assert.Equal(t, http.StatusOK, f.do(t, http.MethodPost, "/api/v1/live/resume", "").Code)
}

func TestHandler_StreamState(t *testing.T) {
	f := newFixture(t, "B")
	h := &Handler{Engine: f.engine, Hub: f.hub}
	go h.StreamState(f.ctx)

	srv := httptest.NewServer(f.router)
	defer srv.Close()
	c, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http")+"/ws/live", nil)
	require.NoError(t, err)
	defer c.Close()

	f.join(t, models.RoleSinger)

	c.SetReadDeadline(time.Now().Add(2 * time.Second))
	for {
		_, frame, err := c.ReadMessage()
		require.NoError(t, err)
		var st showstate.State
		require.NoError(t, json.Unmarshal(frame, &st))
		if st.InShow() {
			assert.Equal(t, "show-1", st.Show.ID)
			return
		}
	}
}
