// Package wstest provides an in-memory transport for driving the live
// connection from tests.
package wstest

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"github.com/Vasu1712/scenyx-live/internal/protocol"
)

// Frame is one envelope recorded by Send or queued by Deliver.
type Frame struct {
	Event string
	Data  json.RawMessage
}

// Decode unmarshals the frame payload into v.
func (f Frame) Decode(v any) error { return json.Unmarshal(f.Data, v) }

type item struct {
	frame Frame
	drop  error
}

// Transport is a scriptable stand-in for ws.Transport. Inbound frames and
// drops are delivered in order on a single goroutine, like a read pump.
type Transport struct {
	// ConnectErr fails every Connect.
	ConnectErr error
	// Gate, when set, holds Connect until it is closed or ctx ends.
	Gate chan struct{}
	// Reply scripts the server: frames it returns are delivered after Send.
	Reply func(event string, data json.RawMessage) []Frame

	mu        sync.Mutex
	onEvent   func(name string, data json.RawMessage)
	onState   func(connected bool, err error)
	connected bool
	connects  int
	closes    int
	sent      []Frame

	inbox chan item
	stop  chan struct{}
}

// New returns a Transport whose pump stops when the test ends.
func New(tb testing.TB) *Transport {
	t := &Transport{
		onEvent: func(string, json.RawMessage) {},
		onState: func(bool, error) {},
		inbox:   make(chan item, 64),
		stop:    make(chan struct{}),
	}
	go t.pump()
	tb.Cleanup(func() { close(t.stop) })
	return t
}

// AcceptAuth answers authenticate with authenticated{success}.
func AcceptAuth(success bool) func(string, json.RawMessage) []Frame {
	return func(event string, _ json.RawMessage) []Frame {
		if event != protocol.EventAuthenticate {
			return nil
		}
		data, _ := json.Marshal(protocol.Authenticated{Success: success})
		return []Frame{{Event: protocol.EventAuthenticated, Data: data}}
	}
}

func (t *Transport) OnEvent(f func(name string, data json.RawMessage)) {
	t.mu.Lock()
	t.onEvent = f
	t.mu.Unlock()
}

func (t *Transport) OnStateChange(f func(connected bool, err error)) {
	t.mu.Lock()
	t.onState = f
	t.mu.Unlock()
}

func (t *Transport) Connect(ctx context.Context) error {
	if t.Gate != nil {
		select {
		case <-t.Gate:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.connects++
	if t.ConnectErr != nil {
		return t.ConnectErr
	}
	t.connected = true
	return nil
}

func (t *Transport) Send(event string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	t.mu.Lock()
	if !t.connected {
		t.mu.Unlock()
		return errors.New("wstest: not connected")
	}
	t.sent = append(t.sent, Frame{Event: event, Data: data})
	reply := t.Reply
	t.mu.Unlock()

	if reply != nil {
		for _, f := range reply(event, data) {
			t.inbox <- item{frame: f}
		}
	}
	return nil
}

func (t *Transport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.connected = false
	t.closes++
	return nil
}

// Deliver queues an inbound event as if the server pushed it.
func (t *Transport) Deliver(event string, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		panic(err)
	}
	t.inbox <- item{frame: Frame{Event: event, Data: data}}
}

// Drop simulates the server going away.
func (t *Transport) Drop(err error) {
	t.inbox <- item{drop: err}
}

// Sent returns a copy of every frame sent so far.
func (t *Transport) Sent() []Frame {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]Frame(nil), t.sent...)
}

// SentEvents returns the event names of every frame sent so far.
func (t *Transport) SentEvents() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	names := make([]string, 0, len(t.sent))
	for _, f := range t.sent {
		names = append(names, f.Event)
	}
	return names
}

func (t *Transport) Connected() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.connected
}

func (t *Transport) Connects() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.connects
}

func (t *Transport) Closes() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.closes
}

func (t *Transport) pump() {
	for {
		select {
		case <-t.stop:
			return
		case it := <-t.inbox:
			t.mu.Lock()
			connected := t.connected
			if it.drop != nil {
				t.connected = false
			}
			onEvent, onState := t.onEvent, t.onState
			t.mu.Unlock()

			if !connected {
				continue
			}
			if it.drop != nil {
				onState(false, it.drop)
				continue
			}
			onEvent(it.frame.Event, it.frame.Data)
		}
	}
}
