// Package valkey caches last known positions in Valkey so they survive a
// restart of the bridge process.
package valkey

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/valkey-io/valkey-go"

	"github.com/Vasu1712/scenyx-live/internal/models"
)

const keyPrefix = "scenyx:location:"

// LocationStore implements discovery.LocationCache on a Valkey server.
type LocationStore struct {
	client valkey.Client // Shared client; safe for concurrent use
	ttl    time.Duration // How long a cached fix is kept
}

// NewLocationStore connects to addr. Entries expire after ttl.
func NewLocationStore(addr string, ttl time.Duration) (*LocationStore, error) {
	client, err := valkey.NewClient(valkey.ClientOption{InitAddress: []string{addr}})
	if err != nil {
		return nil, fmt.Errorf("connect valkey %s: %w", addr, err)
	}
	return &LocationStore{client: client, ttl: ttl}, nil
}

func key(userID string) string { return keyPrefix + userID }

// SavePosition stores pos as the user's last known fix.
func (s *LocationStore) SavePosition(ctx context.Context, userID string, pos models.Position) error {
	// Positions are stored as JSON strings
	data, err := json.Marshal(pos)
	if err != nil {
		return fmt.Errorf("marshal position: %w", err)
	}
	secs := int64(s.ttl / time.Second)
	if secs < 1 {
		secs = 1 // EX needs at least one second
	}
	cmd := s.client.B().Set().Key(key(userID)).Value(string(data)).ExSeconds(secs).Build()
	if err := s.client.Do(ctx, cmd).Error(); err != nil {
		return fmt.Errorf("save position for %s: %w", userID, err)
	}
	return nil
}

// LastPosition loads the user's cached fix. A missing or expired key is not
// an error.
func (s *LocationStore) LastPosition(ctx context.Context, userID string) (models.Position, bool, error) {
	raw, err := s.client.Do(ctx, s.client.B().Get().Key(key(userID)).Build()).ToString()
	if valkey.IsValkeyNil(err) {
		return models.Position{}, false, nil // Nothing cached for this user
	}
	if err != nil {
		return models.Position{}, false, fmt.Errorf("load position for %s: %w", userID, err)
	}
	var pos models.Position
	if err := json.Unmarshal([]byte(raw), &pos); err != nil {
		return models.Position{}, false, fmt.Errorf("decode position for %s: %w", userID, err)
	}
	return pos, true, nil
}

// Close releases the client's connections.
func (s *LocationStore) Close() {
	s.client.Close()
}
