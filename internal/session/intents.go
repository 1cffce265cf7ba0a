package session

import (
	"context"
	"strings"

	"github.com/Vasu1712/scenyx-live/internal/announce"
	"github.com/Vasu1712/scenyx-live/internal/chat"
	"github.com/Vasu1712/scenyx-live/internal/discovery"
	"github.com/Vasu1712/scenyx-live/internal/guard"
	"github.com/Vasu1712/scenyx-live/internal/models"
	"github.com/Vasu1712/scenyx-live/internal/protocol"
	"github.com/Vasu1712/scenyx-live/internal/showstate"
)

// Connect opens and authenticates the live connection. It runs on the
// caller's goroutine; the loop only observes the resulting state changes.
func (e *Engine) Connect(ctx context.Context) error {
	return e.conn.Connect(ctx)
}

// Disconnect closes the connection and forgets the held show.
func (e *Engine) Disconnect(ctx context.Context) error {
	e.conn.Disconnect()
	return e.do(ctx, func() error {
		e.router.Reset()
		e.announcer.Cancel("")
		return nil
	})
}

// Resume reconnects and re-joins the show held before an unexpected drop.
func (e *Engine) Resume(ctx context.Context) error {
	showID := e.conn.State().LastShowID
	if err := e.conn.Connect(ctx); err != nil {
		return err
	}
	if showID == "" {
		return nil
	}
	return e.JoinShow(ctx, showID, "", "")
}

// JoinShow asks the server to admit the user to showID.
func (e *Engine) JoinShow(ctx context.Context, showID, avatarID, microphoneID string) error {
	showID = strings.TrimSpace(showID)
	if showID == "" {
		return guard.Validation("showId", "required")
	}
	return e.do(ctx, func() error {
		err := e.conn.Emit(protocol.JoinShow{
			ShowID:       showID,
			UserID:       e.creds.UserID,
			AvatarID:     avatarID,
			MicrophoneID: microphoneID,
		})
		if err != nil {
			return err
		}
		e.conn.RememberShow(showID)
		return nil
	})
}

// LeaveShow asks the server to remove the user from the held show. Local
// state clears when the server confirms.
func (e *Engine) LeaveShow(ctx context.Context) error {
	return e.inShow(ctx, func(st showstate.State) error {
		return e.conn.Emit(protocol.LeaveShow{ShowID: st.Show.ID, UserID: e.creds.UserID})
	})
}

// SendChat validates and emits one chat message.
func (e *Engine) SendChat(ctx context.Context, body string, typ models.MessageType, recipientID string) error {
	return e.inShow(ctx, func(st showstate.State) error {
		req, err := chat.Prepare(st.Show, st.Role, body, typ, recipientID)
		if err != nil {
			return err
		}
		return e.conn.Emit(req)
	})
}

// SendAnnouncement broadcasts a DJ announcement.
func (e *Engine) SendAnnouncement(ctx context.Context, body string, displayDuration int) error {
	return e.inShow(ctx, func(st showstate.State) error {
		req, err := announce.PrepareAnnouncement(st.Show, st.Role, body, displayDuration, e.clock.Now())
		if err != nil {
			return err
		}
		return e.conn.Emit(req)
	})
}

// DismissAnnouncement clears the active announcement for everyone.
func (e *Engine) DismissAnnouncement(ctx context.Context) error {
	return e.inShow(ctx, func(st showstate.State) error {
		req, err := announce.PrepareDismiss(st.Show, st.Role)
		if err != nil {
			return err
		}
		if err := e.conn.Emit(req); err != nil {
			return err
		}
		if e.router.DismissAnnouncement(req.AnnouncementID) {
			e.syncCountdown()
		}
		return nil
	})
}

// JoinQueue adds the user to the performer queue.
func (e *Engine) JoinQueue(ctx context.Context, songRequest string) error {
	return e.inShow(ctx, func(st showstate.State) error {
		req, err := e.queue.PrepareAdd(st.Show, e.creds.UserID, songRequest)
		if err != nil {
			return err
		}
		return e.conn.Emit(req)
	})
}

// RemoveFromQueue removes userID, or the user themself when userID is empty.
func (e *Engine) RemoveFromQueue(ctx context.Context, userID string) error {
	if userID == "" {
		userID = e.creds.UserID
	}
	return e.inShow(ctx, func(st showstate.State) error {
		req, err := e.queue.PrepareRemove(st.Show, st.Role, e.creds.UserID, userID)
		if err != nil {
			return err
		}
		return e.conn.Emit(req)
	})
}

// ReorderQueue submits a full new queue order. DJ only.
func (e *Engine) ReorderQueue(ctx context.Context, order []string) error {
	return e.inShow(ctx, func(st showstate.State) error {
		req, err := e.queue.PrepareReorder(st.Show, st.Role, order)
		if err != nil {
			return err
		}
		return e.conn.Emit(req)
	})
}

// SetCurrentSinger hands the stage to singerID. DJ only.
func (e *Engine) SetCurrentSinger(ctx context.Context, singerID string) error {
	return e.inShow(ctx, func(st showstate.State) error {
		req, err := e.queue.PrepareSetCurrentSinger(st.Show, st.Role, singerID)
		if err != nil {
			return err
		}
		return e.conn.Emit(req)
	})
}

// StartSong stamps the start of userID's song with the engine clock. DJ only.
func (e *Engine) StartSong(ctx context.Context, userID string) error {
	return e.inShow(ctx, func(st showstate.State) error {
		req, err := e.queue.PrepareStartSong(st.Show, st.Role, userID, e.clock.Now())
		if err != nil {
			return err
		}
		return e.conn.Emit(req)
	})
}

// SetSongDuration records the length of userID's song in seconds. DJ only.
func (e *Engine) SetSongDuration(ctx context.Context, userID string, seconds int) error {
	return e.inShow(ctx, func(st showstate.State) error {
		req, err := e.queue.PrepareSongDuration(st.Show, st.Role, userID, seconds)
		if err != nil {
			return err
		}
		return e.conn.Emit(req)
	})
}

// SendSongRequest passes a song suggestion to the DJ.
func (e *Engine) SendSongRequest(ctx context.Context, song string) error {
	return e.inShow(ctx, func(st showstate.State) error {
		if st.Role.IsDJ() {
			return guard.Permission(protocol.EventDJSongRequest, "the DJ cannot send song requests")
		}
		if st.Show.DJID == "" {
			return guard.Validation("showId", "this show has no DJ")
		}
		text, err := guard.CheckSongRequest(song)
		if err != nil {
			return err
		}
		if text == "" {
			return guard.Validation("songRequest", "must not be empty")
		}
		return e.conn.Emit(protocol.DJSongRequest{
			ShowID:       st.Show.ID,
			SongRequest:  text,
			FromUserID:   e.creds.UserID,
			FromUserName: e.creds.UserName,
		})
	})
}

// FindNearbyShows lists shows near the user. It does not touch the live
// connection.
func (e *Engine) FindNearbyShows(ctx context.Context, radiusMeters float64) (discovery.Result, error) {
	if e.discovery == nil {
		return discovery.Result{}, ErrDiscoveryDisabled
	}
	return e.discovery.FindNearbyShows(ctx, radiusMeters)
}

// JoinWithLocation joins showID through the show backend using the user's
// position, applies the returned snapshot, and subscribes to live events
// when connected.
func (e *Engine) JoinWithLocation(ctx context.Context, showID string) error {
	if e.discovery == nil {
		return ErrDiscoveryDisabled
	}
	joined, err := e.discovery.JoinWithLocation(ctx, showID)
	if err != nil {
		return err
	}
	return e.do(ctx, func() error {
		e.apply(joined)
		if !e.conn.State().Ready() {
			return nil
		}
		return e.conn.Emit(protocol.JoinShow{ShowID: joined.Show.ID, UserID: e.creds.UserID})
	})
}

func (e *Engine) inShow(ctx context.Context, f func(showstate.State) error) error {
	return e.do(ctx, func() error {
		st := e.store.Snapshot()
		if !st.InShow() {
			return ErrNoShow
		}
		return f(st)
	})
}
