package ws

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/Vasu1712/scenyx-live/internal/protocol"
)

const writeWait = 10 * time.Second

// ErrNotConnected is returned by Send when no socket is open.
var ErrNotConnected = errors.New("ws: not connected")

// Transport is a websocket client speaking the {"event","data"} envelope.
// One Transport is reused across connects; each Connect dials a fresh socket.
type Transport struct {
	url    string
	header http.Header
	dialer *websocket.Dialer
	logger *log.Logger

	mu      sync.Mutex
	conn    *websocket.Conn
	onEvent func(name string, data json.RawMessage)
	onState func(connected bool, err error)

	writeMu sync.Mutex
}

// NewTransport creates a Transport for url. header is sent with the upgrade
// request and may be nil.
func NewTransport(url string, header http.Header, logger *log.Logger) *Transport {
	if logger == nil {
		logger = log.Default()
	}
	return &Transport{
		url:     url,
		header:  header,
		dialer:  &websocket.Dialer{Proxy: http.ProxyFromEnvironment, HandshakeTimeout: 10 * time.Second},
		logger:  logger,
		onEvent: func(string, json.RawMessage) {},
		onState: func(bool, error) {},
	}
}

// OnEvent registers the handler for decoded envelopes. It runs on the read
// goroutine, in arrival order.
func (t *Transport) OnEvent(f func(name string, data json.RawMessage)) {
	t.mu.Lock()
	t.onEvent = f
	t.mu.Unlock()
}

// OnStateChange registers the handler for socket up/down transitions. A
// deliberate Close is not reported.
func (t *Transport) OnStateChange(f func(connected bool, err error)) {
	t.mu.Lock()
	t.onState = f
	t.mu.Unlock()
}

// Connect dials the server. It is a no-op while a socket is open.
func (t *Transport) Connect(ctx context.Context) error {
	t.mu.Lock()
	if t.conn != nil {
		t.mu.Unlock()
		return nil
	}
	t.mu.Unlock()

	conn, _, err := t.dialer.DialContext(ctx, t.url, t.header)
	if err != nil {
		return fmt.Errorf("dial %s: %w", t.url, err)
	}

	t.mu.Lock()
	if t.conn != nil {
		// Lost a race with a concurrent Connect.
		t.mu.Unlock()
		conn.Close()
		return nil
	}
	t.conn = conn
	onState := t.onState
	t.mu.Unlock()

	t.logger.Printf("[WS] connected to %s", t.url)
	go t.readPump(conn)
	onState(true, nil)
	return nil
}

// Send encodes payload under event and writes one text frame.
func (t *Transport) Send(event string, payload any) error {
	frame, err := protocol.Encode(event, payload)
	if err != nil {
		return err
	}
	t.mu.Lock()
	conn := t.conn
	t.mu.Unlock()
	if conn == nil {
		return ErrNotConnected
	}

	t.writeMu.Lock()
	defer t.writeMu.Unlock()
	conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := conn.WriteMessage(websocket.TextMessage, frame); err != nil {
		return fmt.Errorf("send %s: %w", event, err)
	}
	return nil
}

// Close shuts the socket down without reporting a state change.
func (t *Transport) Close() error {
	t.mu.Lock()
	conn := t.conn
	t.conn = nil
	t.mu.Unlock()
	if conn == nil {
		return nil
	}

	t.writeMu.Lock()
	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
	conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
	t.writeMu.Unlock()
	return conn.Close()
}

func (t *Transport) readPump(conn *websocket.Conn) {
	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			t.dropped(conn, err)
			return
		}
		var env protocol.Envelope
		if err := json.Unmarshal(msg, &env); err != nil || env.Event == "" {
			t.logger.Printf("[WS] discarding malformed frame: %v", err)
			continue
		}
		t.mu.Lock()
		onEvent := t.onEvent
		t.mu.Unlock()
		onEvent(env.Event, env.Data)
	}
}

func (t *Transport) dropped(conn *websocket.Conn, err error) {
	t.mu.Lock()
	current := t.conn == conn
	if current {
		t.conn = nil
	}
	onState := t.onState
	t.mu.Unlock()
	if !current {
		return
	}
	conn.Close()
	t.logger.Printf("[WS] connection lost: %v", err)
	onState(false, err)
}
