// Package conn owns the live-session socket: its lifecycle, the
// authentication handshake, and the gate that keeps requests off the wire
// until the session is authenticated.
package conn

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Vasu1712/scenyx-live/internal/auth"
	"github.com/Vasu1712/scenyx-live/internal/models"
	"github.com/Vasu1712/scenyx-live/internal/protocol"
)

const (
	DefaultConnectTimeout = 10 * time.Second
	DefaultAuthTimeout    = 10 * time.Second
)

// Transport is the socket the manager drives.
type Transport interface {
	Connect(ctx context.Context) error
	Send(event string, payload any) error
	OnEvent(func(name string, data json.RawMessage))
	OnStateChange(func(connected bool, err error))
	Close() error
}

// Credentials identify the user to the live server.
type Credentials struct {
	UserID   string
	UserName string
	Token    string
}

type Options struct {
	ConnectTimeout time.Duration
	AuthTimeout    time.Duration
	Logger         *log.Logger
	Now            func() time.Time
}

type authResult struct {
	ok  bool
	err error
}

// Manager is safe for concurrent use. State changes are reported through
// onState in the order they happen; every inbound event is passed to onEvent
// untouched.
type Manager struct {
	transport Transport
	creds     Credentials
	opts      Options
	logger    *log.Logger
	onState   func(models.ConnectionState)
	onEvent   func(name string, data json.RawMessage)

	mu      sync.Mutex
	state   models.ConnectionState
	gen     uint64
	attempt string
	ack     chan authResult
	abort   chan struct{} // closed by Disconnect to release the in-flight attempt

	pubMu sync.Mutex
}

// New wires m to t. Handlers may be nil.
func New(t Transport, creds Credentials, opts Options, onState func(models.ConnectionState), onEvent func(string, json.RawMessage)) *Manager {
	if opts.ConnectTimeout <= 0 {
		opts.ConnectTimeout = DefaultConnectTimeout
	}
	if opts.AuthTimeout <= 0 {
		opts.AuthTimeout = DefaultAuthTimeout
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}
	if onState == nil {
		onState = func(models.ConnectionState) {}
	}
	if onEvent == nil {
		onEvent = func(string, json.RawMessage) {}
	}
	m := &Manager{
		transport: t,
		creds:     creds,
		opts:      opts,
		logger:    logger,
		onState:   onState,
		onEvent:   onEvent,
		state:     models.ConnectionState{Status: models.StatusDisconnected},
	}
	t.OnEvent(m.handleEvent)
	t.OnStateChange(m.handleTransportState)
	return m
}

// State returns the current connection state.
func (m *Manager) State() models.ConnectionState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Connect opens and authenticates the session. It returns nil immediately
// when a connection is already open or being opened.
func (m *Manager) Connect(ctx context.Context) error {
	m.mu.Lock()
	if m.state.Status != models.StatusDisconnected {
		m.mu.Unlock()
		return nil
	}
	if _, err := auth.Inspect(m.creds.Token, m.opts.Now()); err != nil {
		m.state.LastError = err.Error()
		m.mu.Unlock()
		m.publish()
		return &Error{Kind: KindAuth, Err: err}
	}
	m.gen++
	gen := m.gen
	m.attempt = uuid.NewString()
	attempt := m.attempt
	ack := make(chan authResult, 1)
	m.ack = ack
	abort := make(chan struct{})
	m.abort = abort
	m.state.Status = models.StatusConnecting
	m.state.Attempts++
	m.mu.Unlock()
	m.publish()

	m.logger.Printf("[Conn] attempt %s: dialing", attempt)
	dialCtx, cancel := context.WithTimeout(ctx, m.opts.ConnectTimeout)
	go func() {
		// A Disconnect during the dial cuts it short.
		select {
		case <-abort:
			cancel()
		case <-dialCtx.Done():
		}
	}()
	err := m.transport.Connect(dialCtx)
	cancel()
	if err != nil {
		kind := KindTransport
		if errors.Is(err, context.DeadlineExceeded) {
			kind = KindTimeout
		}
		return m.fail(gen, attempt, &Error{Kind: kind, Retryable: true, Err: err}, false)
	}

	m.mu.Lock()
	if gen != m.gen {
		m.mu.Unlock()
		m.transport.Close()
		m.logger.Printf("[Conn] attempt %s: abandoned after dial", attempt)
		return &Error{Kind: KindAbandoned, Err: ErrAbandoned}
	}
	m.state.Status = models.StatusConnectedUnauthenticated
	m.mu.Unlock()
	m.publish()

	err = m.transport.Send(protocol.EventAuthenticate, protocol.Authenticate{
		UserID:   m.creds.UserID,
		UserName: m.creds.UserName,
		Token:    m.creds.Token,
	})
	if err != nil {
		return m.fail(gen, attempt, &Error{Kind: KindTransport, Retryable: true, Err: err}, true)
	}

	timer := time.NewTimer(m.opts.AuthTimeout)
	defer timer.Stop()
	select {
	case res := <-ack:
		if res.err != nil {
			return m.fail(gen, attempt, &Error{Kind: KindTransport, Retryable: true, Err: res.err}, true)
		}
		if !res.ok {
			return m.fail(gen, attempt, &Error{Kind: KindAuth, Err: errors.New("authentication rejected")}, true)
		}
	case <-timer.C:
		return m.fail(gen, attempt, &Error{Kind: KindTimeout, Retryable: true,
			Err: fmt.Errorf("no authentication ack within %s", m.opts.AuthTimeout)}, true)
	case <-ctx.Done():
		return m.fail(gen, attempt, &Error{Kind: KindTimeout, Retryable: true, Err: ctx.Err()}, true)
	case <-abort:
		m.logger.Printf("[Conn] attempt %s: abandoned during authentication", attempt)
		return &Error{Kind: KindAbandoned, Err: ErrAbandoned}
	}

	m.mu.Lock()
	if gen != m.gen {
		m.mu.Unlock()
		return &Error{Kind: KindAbandoned, Err: ErrAbandoned}
	}
	m.state.Status = models.StatusAuthenticated
	m.state.LastError = ""
	m.state.Attempts = 0
	m.ack = nil
	m.abort = nil
	m.mu.Unlock()
	m.publish()
	m.logger.Printf("[Conn] attempt %s: authenticated as %s", attempt, m.creds.UserID)
	return nil
}

// fail records err for attempt gen. An attempt that Disconnect already
// invalidated changes nothing.
func (m *Manager) fail(gen uint64, attempt string, err *Error, closeTransport bool) error {
	m.mu.Lock()
	if gen != m.gen {
		m.mu.Unlock()
		return &Error{Kind: KindAbandoned, Err: ErrAbandoned}
	}
	m.gen++
	m.state.Status = models.StatusDisconnected
	m.state.LastError = err.Error()
	m.ack = nil
	m.abort = nil
	m.mu.Unlock()

	if closeTransport {
		m.transport.Close()
	}
	m.publish()
	m.logger.Printf("[Conn] attempt %s: %v", attempt, err)
	return err
}

// Disconnect closes the socket and invalidates any in-flight Connect.
func (m *Manager) Disconnect() {
	m.mu.Lock()
	m.gen++
	wasOpen := m.state.Status != models.StatusDisconnected
	m.state.Status = models.StatusDisconnected
	m.state.LastError = ""
	m.state.LastShowID = ""
	m.ack = nil
	if m.abort != nil {
		close(m.abort)
		m.abort = nil
	}
	m.mu.Unlock()

	m.transport.Close()
	m.publish()
	if wasOpen {
		m.logger.Printf("[Conn] disconnected")
	}
}

// RememberShow records the show the user last asked to be in so a caller can
// re-join after an unexpected drop.
func (m *Manager) RememberShow(showID string) {
	m.mu.Lock()
	if m.state.LastShowID == showID {
		m.mu.Unlock()
		return
	}
	m.state.LastShowID = showID
	m.mu.Unlock()
	m.publish()
}

// Emit sends ev. It fails without touching the network unless the session is
// authenticated.
func (m *Manager) Emit(ev protocol.Outbound) error {
	m.mu.Lock()
	ready := m.state.Ready()
	m.mu.Unlock()
	if !ready {
		return &Error{Kind: KindNotReady, Err: fmt.Errorf("emit %s: %w", ev.EventName(), ErrNotReady)}
	}
	if err := m.transport.Send(ev.EventName(), ev); err != nil {
		return &Error{Kind: KindTransport, Retryable: true, Err: err}
	}
	return nil
}

func (m *Manager) handleEvent(name string, data json.RawMessage) {
	if name == protocol.EventAuthenticated {
		var a protocol.Authenticated
		if err := json.Unmarshal(data, &a); err != nil {
			m.logger.Printf("[Conn] malformed authenticated ack: %v", err)
		}
		m.mu.Lock()
		ack := m.ack
		m.mu.Unlock()
		if ack != nil {
			select {
			case ack <- authResult{ok: a.Success}:
			default:
			}
		}
	}
	m.onEvent(name, data)
}

func (m *Manager) handleTransportState(connected bool, err error) {
	if connected {
		return
	}
	if err == nil {
		err = errors.New("connection closed")
	}
	m.mu.Lock()
	if m.state.Status == models.StatusDisconnected {
		m.mu.Unlock()
		return
	}
	if m.ack != nil {
		select {
		case m.ack <- authResult{err: err}:
		default:
		}
		m.mu.Unlock()
		return
	}
	m.gen++
	m.state.Status = models.StatusDisconnected
	m.state.LastError = err.Error()
	m.mu.Unlock()
	m.publish()
	m.logger.Printf("[Conn] connection lost: %v", err)
}

// publish reports the latest state. Holding pubMu while reading the state
// keeps reports in transition order without calling out under mu.
func (m *Manager) publish() {
	m.pubMu.Lock()
	defer m.pubMu.Unlock()
	m.mu.Lock()
	cs := m.state
	m.mu.Unlock()
	m.onState(cs)
}
