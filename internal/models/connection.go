package models

// ConnectionStatus is the lifecycle phase of the live-session transport.
type ConnectionStatus string

const (
	StatusDisconnected             ConnectionStatus = "disconnected"
	StatusConnecting               ConnectionStatus = "connecting"
	StatusConnectedUnauthenticated ConnectionStatus = "connected-unauthenticated"
	StatusAuthenticated            ConnectionStatus = "authenticated"
)

// ConnectionState is owned by the connection manager and read by everything else.
type ConnectionState struct {
	Status     ConnectionStatus `json:"status"`
	LastError  string           `json:"lastError,omitempty"`
	Attempts   int              `json:"attempts"`             // connect attempts since the last successful authentication
	LastShowID string           `json:"lastShowId,omitempty"` // preserved across unexpected drops so callers can re-join
}

// Ready reports whether outbound actions may be emitted.
func (s ConnectionState) Ready() bool { return s.Status == StatusAuthenticated }
