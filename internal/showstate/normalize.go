package showstate

import (
	"sort"

	"github.com/Vasu1712/scenyx-live/internal/models"
)

// normalizeQueue turns a server snapshot into a queue that satisfies the local
// invariants: ordered by position, one entry per user, positions exactly 1..N,
// and at most one current singer. current, when present, names the singer the
// snapshot considers current and wins over any per-entry flags.
func normalizeQueue(entries []models.QueueEntry, current *models.QueueEntry) []models.QueueEntry {
	out := make([]models.QueueEntry, 0, len(entries))
	seen := make(map[string]struct{}, len(entries))
	for _, e := range entries {
		if e.UserID == "" {
			continue
		}
		if _, dup := seen[e.UserID]; dup {
			continue
		}
		seen[e.UserID] = struct{}{}
		out = append(out, e)
	}

	// Unpositioned entries sort last, keeping their arrival order.
	sort.SliceStable(out, func(i, j int) bool {
		pi, pj := out[i].Position, out[j].Position
		if pi <= 0 {
			return false
		}
		if pj <= 0 {
			return true
		}
		return pi < pj
	})

	currentID := ""
	if current != nil {
		if _, ok := seen[current.UserID]; ok {
			currentID = current.UserID
		}
	}
	if currentID == "" {
		for _, e := range out {
			if e.IsCurrentSinger {
				currentID = e.UserID
				break
			}
		}
	}

	for i := range out {
		out[i].Position = i + 1
		out[i].IsCurrentSinger = out[i].UserID == currentID
	}
	return out
}

// syncParticipantPositions mirrors queue positions onto the roster.
func syncParticipantPositions(show *models.Show) {
	pos := make(map[string]int, len(show.Queue))
	for _, e := range show.Queue {
		pos[e.UserID] = e.Position
	}
	for i := range show.Participants {
		if p, ok := pos[show.Participants[i].UserID]; ok {
			p := p
			show.Participants[i].QueuePosition = &p
		} else {
			show.Participants[i].QueuePosition = nil
		}
	}
}

// boundChat keeps the newest limit messages.
func boundChat(msgs []models.ChatMessage, limit int) []models.ChatMessage {
	if len(msgs) <= limit {
		return msgs
	}
	return append([]models.ChatMessage(nil), msgs[len(msgs)-limit:]...)
}

// CheckQueueInvariant reports whether q has positions exactly 1..N and at
// most one current singer.
func CheckQueueInvariant(q []models.QueueEntry) bool {
	seen := make(map[int]bool, len(q))
	current := 0
	for _, e := range q {
		if e.Position < 1 || e.Position > len(q) || seen[e.Position] {
			return false
		}
		seen[e.Position] = true
		if e.IsCurrentSinger {
			current++
		}
	}
	return current <= 1
}
