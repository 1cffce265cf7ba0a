package memory

import (
	"context" // For the LocationCache method signatures
	"sync"    // For RWMutex to handle concurrent access

	"github.com/Vasu1712/scenyx-live/internal/models" // Import the models package to use the Position struct
)

// LocationStore keeps the last known position per user in memory.
type LocationStore struct {
	mu        sync.RWMutex               // Read-write mutex for concurrent access to the positions map
	positions map[string]models.Position // userID -> last good fix
}

// NewLocationStore creates and returns an empty LocationStore.
func NewLocationStore() *LocationStore {
	return &LocationStore{
		positions: make(map[string]models.Position), // Initialize the positions map
	}
}

// SavePosition replaces the user's cached fix unless pos is older than it.
func (s *LocationStore) SavePosition(_ context.Context, userID string, pos models.Position) error {
	s.mu.Lock()         // Acquire a write lock
	defer s.mu.Unlock() // Release the lock

	// Keep the newer fix when updates arrive out of order
	if cur, ok := s.positions[userID]; ok && cur.CapturedAt.After(pos.CapturedAt) {
		return nil
	}
	s.positions[userID] = pos
	return nil
}

// LastPosition returns the user's cached fix, if any.
func (s *LocationStore) LastPosition(_ context.Context, userID string) (models.Position, bool, error) {
	s.mu.RLock()         // Acquire a read lock
	defer s.mu.RUnlock() // Release the lock

	pos, ok := s.positions[userID]
	return pos, ok, nil
}
