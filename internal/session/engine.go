// Package session composes the live-session components behind one event
// loop. The loop goroutine is the only caller of the Router, so every state
// change is applied in order by a single writer.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/Vasu1712/scenyx-live/internal/announce"
	"github.com/Vasu1712/scenyx-live/internal/conn"
	"github.com/Vasu1712/scenyx-live/internal/discovery"
	"github.com/Vasu1712/scenyx-live/internal/models"
	"github.com/Vasu1712/scenyx-live/internal/protocol"
	"github.com/Vasu1712/scenyx-live/internal/queue"
	"github.com/Vasu1712/scenyx-live/internal/showstate"
)

var (
	// ErrNoShow is returned by intents that need a joined show.
	ErrNoShow = errors.New("no show joined")
	// ErrStopped is returned once the engine loop has exited.
	ErrStopped = errors.New("session engine stopped")
	// ErrDiscoveryDisabled is returned when no discovery coordinator is wired.
	ErrDiscoveryDisabled = errors.New("discovery is not configured")
)

type Options struct {
	Credentials      conn.Credentials
	ConnectTimeout   time.Duration
	AuthTimeout      time.Duration
	ChatLimit        int
	SongRequestLimit int
	SongEstimate     time.Duration
	Clock            announce.Clock
	Logger           *log.Logger
}

type Engine struct {
	creds     conn.Credentials
	clock     announce.Clock
	logger    *log.Logger
	store     *showstate.Store
	router    *showstate.Router
	conn      *conn.Manager
	queue     *queue.Engine
	announcer *announce.Manager
	discovery *discovery.Coordinator

	events   chan protocol.Inbound
	expiries chan string
	intents  chan func()
	done     chan struct{}
	stopOnce sync.Once

	// Connection state is handed to the loop latest-wins so that a publish
	// from inside the loop never blocks on the loop itself.
	stateMu     sync.Mutex
	pending     *models.ConnectionState
	stateSignal chan struct{}
}

// New builds an Engine on transport t. disc may be nil, which disables the
// location intents.
func New(t conn.Transport, disc *discovery.Coordinator, opts Options) *Engine {
	if opts.Clock == nil {
		opts.Clock = announce.RealClock()
	}
	if opts.Logger == nil {
		opts.Logger = log.Default()
	}
	e := &Engine{
		creds:       opts.Credentials,
		clock:       opts.Clock,
		logger:      opts.Logger,
		discovery:   disc,
		queue:       queue.NewEngine(opts.SongEstimate),
		events:      make(chan protocol.Inbound),
		expiries:    make(chan string),
		intents:     make(chan func()),
		done:        make(chan struct{}),
		stateSignal: make(chan struct{}, 1),
	}
	e.store = showstate.NewStore(showstate.Options{ChatLimit: opts.ChatLimit, SongRequestLimit: opts.SongRequestLimit})
	e.router = showstate.NewRouter(e.store, opts.Logger, opts.Clock.Now)
	e.announcer = announce.NewManager(opts.Clock, opts.Logger, e.onExpire)
	e.conn = conn.New(t, opts.Credentials, conn.Options{
		ConnectTimeout: opts.ConnectTimeout,
		AuthTimeout:    opts.AuthTimeout,
		Logger:         opts.Logger,
		Now:            opts.Clock.Now,
	}, e.onConnState, e.onEvent)
	return e
}

// Run services the engine until ctx is done.
func (e *Engine) Run(ctx context.Context) error {
	defer e.stop()
	for {
		select {
		case <-ctx.Done():
			e.announcer.Cancel("")
			return nil
		case ev := <-e.events:
			e.apply(ev)
		case <-e.stateSignal:
			e.stateMu.Lock()
			cs := e.pending
			e.pending = nil
			e.stateMu.Unlock()
			if cs != nil {
				e.router.ConnectionChanged(*cs)
			}
		case id := <-e.expiries:
			if e.router.ExpireAnnouncement(id) {
				e.logger.Printf("[Announce] %s expired locally", id)
			}
		case f := <-e.intents:
			f()
		}
	}
}

func (e *Engine) stop() { e.stopOnce.Do(func() { close(e.done) }) }

// apply routes one inbound event and keeps the countdown and the connection
// manager's last show in step with the result.
func (e *Engine) apply(ev protocol.Inbound) {
	changed := e.router.Dispatch(ev)
	switch ev := ev.(type) {
	case protocol.ShowJoined:
		e.conn.RememberShow(ev.Show.ID)
	case protocol.ShowLeft:
		if ev.Success && !e.store.Snapshot().InShow() {
			e.conn.RememberShow("")
		}
	}
	if changed {
		e.syncCountdown()
	}
}

func (e *Engine) syncCountdown() {
	st := e.store.Snapshot()
	if st.Show != nil && st.Show.CurrentAnnouncement != nil {
		e.announcer.Start(*st.Show.CurrentAnnouncement)
		return
	}
	e.announcer.Cancel("")
}

func (e *Engine) onEvent(name string, data json.RawMessage) {
	ev, err := protocol.DecodeInbound(name, data)
	if err != nil {
		e.logger.Printf("[Router] dropping malformed %s: %v", name, err)
		return
	}
	select {
	case e.events <- ev:
	case <-e.done:
	}
}

func (e *Engine) onConnState(cs models.ConnectionState) {
	e.stateMu.Lock()
	e.pending = &cs
	e.stateMu.Unlock()
	select {
	case e.stateSignal <- struct{}{}:
	default:
	}
}

func (e *Engine) onExpire(id string) {
	select {
	case e.expiries <- id:
	case <-e.done:
	}
}

// do runs f on the loop goroutine and waits for its result.
func (e *Engine) do(ctx context.Context, f func() error) error {
	errc := make(chan error, 1)
	select {
	case e.intents <- func() { errc <- f() }:
	case <-ctx.Done():
		return ctx.Err()
	case <-e.done:
		return ErrStopped
	}
	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Snapshot returns the current immutable state.
func (e *Engine) Snapshot() showstate.State { return e.store.Snapshot() }

// Subscribe streams state values; see showstate.Store.Subscribe.
func (e *Engine) Subscribe() (<-chan showstate.State, func()) { return e.store.Subscribe() }

// UserID is the identity this engine authenticates as.
func (e *Engine) UserID() string { return e.creds.UserID }

// Queue exposes the read-only queue derivations.
func (e *Engine) Queue() *queue.Engine { return e.queue }

// Now is the engine's clock.
func (e *Engine) Now() time.Time { return e.clock.Now() }

// AnnouncementRemaining reports the active countdown in whole seconds.
func (e *Engine) AnnouncementRemaining() (models.Announcement, int, bool) {
	a, ok := e.announcer.Active()
	if !ok {
		return models.Announcement{}, 0, false
	}
	secs, _ := e.announcer.RemainingSeconds()
	return a, secs, true
}
