// Package announce owns the single countdown for a show's active
// announcement. The countdown is a display prediction; server expiry and
// dismiss notices stay authoritative.
package announce

import (
	"log"
	"sync"
	"time"

	"github.com/Vasu1712/scenyx-live/internal/guard"
	"github.com/Vasu1712/scenyx-live/internal/models"
	"github.com/Vasu1712/scenyx-live/internal/protocol"
)

// Timer is a stoppable one-shot timer.
type Timer interface {
	Stop() bool
}

// Clock abstracts wall time so countdowns can be driven in tests.
type Clock interface {
	Now() time.Time
	AfterFunc(d time.Duration, f func()) Timer
}

type realClock struct{}

func (realClock) Now() time.Time                            { return time.Now() }
func (realClock) AfterFunc(d time.Duration, f func()) Timer { return time.AfterFunc(d, f) }

// RealClock returns the system clock.
func RealClock() Clock { return realClock{} }

// Manager runs at most one countdown at a time.
type Manager struct {
	clock    Clock
	logger   *log.Logger
	onExpire func(id string)

	mu     sync.Mutex
	active *models.Announcement
	timer  Timer
	gen    uint64
}

// NewManager creates a Manager. onExpire is called from the timer goroutine
// with the id of an announcement whose countdown reached zero.
func NewManager(clock Clock, logger *log.Logger, onExpire func(id string)) *Manager {
	if clock == nil {
		clock = RealClock()
	}
	if logger == nil {
		logger = log.Default()
	}
	if onExpire == nil {
		onExpire = func(string) {}
	}
	return &Manager{clock: clock, logger: logger, onExpire: onExpire}
}

// Start begins the countdown for a. Any running countdown is cancelled first;
// restarting the same announcement is a no-op.
func (m *Manager) Start(a models.Announcement) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.active != nil && m.active.ID == a.ID && m.timer != nil {
		return
	}
	m.stopLocked()

	left := a.Remaining(m.clock.Now())
	if left <= 0 {
		return
	}
	m.active = &a
	m.schedule(left)
	m.logger.Printf("[Announce] countdown started for %s (%s)", a.ID, left.Round(time.Second))
}

// Cancel stops the countdown for id, or for any announcement when id is empty.
func (m *Manager) Cancel(id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.active == nil || (id != "" && m.active.ID != id) {
		return false
	}
	m.stopLocked()
	return true
}

// Active returns the announcement being counted down.
func (m *Manager) Active() (models.Announcement, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.active == nil {
		return models.Announcement{}, false
	}
	return *m.active, true
}

// RemainingSeconds recomputes the active countdown from the wall clock.
func (m *Manager) RemainingSeconds() (int, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.active == nil {
		return 0, false
	}
	return m.active.RemainingSeconds(m.clock.Now()), true
}

// Running reports how many countdowns are in flight: zero or one.
func (m *Manager) Running() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.timer != nil {
		return 1
	}
	return 0
}

// schedule arms the timer for the current generation. A timer that fires
// early, for instance after the wall clock moved, re-arms itself for the
// time that is actually left.
func (m *Manager) schedule(d time.Duration) {
	m.gen++
	gen := m.gen
	m.timer = m.clock.AfterFunc(d, func() { m.fire(gen) })
}

func (m *Manager) fire(gen uint64) {
	m.mu.Lock()
	if gen != m.gen || m.active == nil {
		m.mu.Unlock()
		return
	}
	if left := m.active.Remaining(m.clock.Now()); left > 0 {
		m.schedule(left)
		m.mu.Unlock()
		return
	}
	id := m.active.ID
	m.active = nil
	m.timer = nil
	m.mu.Unlock()

	m.logger.Printf("[Announce] countdown expired for %s", id)
	m.onExpire(id)
}

func (m *Manager) stopLocked() {
	if m.timer != nil {
		m.timer.Stop()
		m.timer = nil
	}
	m.active = nil
	m.gen++
}

// PrepareAnnouncement validates a DJ announcement. Only one announcement may
// be active at a time, so a new one is rejected while show has a live one.
func PrepareAnnouncement(show *models.Show, role models.Role, body string, displayDuration int, now time.Time) (protocol.SendAnnouncement, error) {
	if err := guard.RequireDJ(role, protocol.EventSendAnnouncement); err != nil {
		return protocol.SendAnnouncement{}, err
	}
	if show == nil {
		return protocol.SendAnnouncement{}, guard.Validation("showId", "no show joined")
	}
	if a := show.CurrentAnnouncement; a != nil && a.Remaining(now) > 0 {
		return protocol.SendAnnouncement{}, guard.Validation("announcement", "another announcement is still active")
	}
	text, err := guard.CheckAnnouncementBody(body)
	if err != nil {
		return protocol.SendAnnouncement{}, err
	}
	secs, err := guard.CheckAnnouncementDuration(displayDuration)
	if err != nil {
		return protocol.SendAnnouncement{}, err
	}
	return protocol.SendAnnouncement{ShowID: show.ID, Message: text, DisplayDuration: secs}, nil
}

// PrepareDismiss validates a DJ dismiss of the active announcement.
func PrepareDismiss(show *models.Show, role models.Role) (protocol.DismissAnnouncement, error) {
	if err := guard.RequireDJ(role, protocol.EventDismissAnnouncement); err != nil {
		return protocol.DismissAnnouncement{}, err
	}
	if show == nil || show.CurrentAnnouncement == nil {
		return protocol.DismissAnnouncement{}, guard.Validation("announcement", "no active announcement")
	}
	return protocol.DismissAnnouncement{ShowID: show.ID, AnnouncementID: show.CurrentAnnouncement.ID}, nil
}
