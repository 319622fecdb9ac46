package state

import (
	"sort"
	"time"

	"github.com/Desarso/chatsync/stores"
)

// OptimisticMatchWindow is how far apart a local optimistic timestamp and a
// confirmed row's created_at may be while still counting as the same send.
// Wide enough to absorb clock skew between client and store, narrow enough
// that a user deliberately repeating the same text keeps both bubbles.
const OptimisticMatchWindow = 30 * time.Second

// MergeMessages combines the current message sequence with an incoming
// snapshot for the same chat. The result is the union keyed by id, sorted by
// (created_at, id) ascending, with snapshot entries taking precedence.
//
// A pending (optimistic) entry is retired once the snapshot contains a
// confirmed row with the same role and content whose created_at falls within
// OptimisticMatchWindow of the optimistic timestamp. A pending entry with no
// such match is kept, as is any confirmed local entry the snapshot has not
// caught up to yet.
func MergeMessages(existing, snapshot []stores.Message) []stores.Message {
	merged := make([]stores.Message, 0, len(snapshot)+len(existing))
	seen := make(map[string]bool, len(snapshot))

	// consumed tracks snapshot rows already used to retire one optimistic
	// entry, so two identical rapid sends retire two placeholders, not one.
	consumed := make([]bool, len(snapshot))

	for _, msg := range snapshot {
		if seen[msg.ID] {
			continue
		}
		seen[msg.ID] = true
		merged = append(merged, msg)
	}

	for _, msg := range existing {
		if seen[msg.ID] {
			continue
		}
		if msg.Pending && retiredBy(msg, snapshot, consumed) {
			continue
		}
		seen[msg.ID] = true
		merged = append(merged, msg)
	}

	sort.Slice(merged, func(i, j int) bool {
		if !merged[i].CreatedAt.Equal(merged[j].CreatedAt) {
			return merged[i].CreatedAt.Before(merged[j].CreatedAt)
		}
		return merged[i].ID < merged[j].ID
	})

	return merged
}

// retiredBy reports whether a confirmed snapshot row accounts for the given
// optimistic entry, consuming that row on a match.
func retiredBy(pending stores.Message, snapshot []stores.Message, consumed []bool) bool {
	for i, confirmed := range snapshot {
		if consumed[i] {
			continue
		}
		if confirmed.ChatID != pending.ChatID ||
			confirmed.Role != pending.Role ||
			confirmed.Content != pending.Content {
			continue
		}
		delta := confirmed.CreatedAt.Sub(pending.CreatedAt)
		if delta < 0 {
			delta = -delta
		}
		if delta <= OptimisticMatchWindow {
			consumed[i] = true
			return true
		}
	}
	return false
}
