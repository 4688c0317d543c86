package chat

import (
	"time"

	"github.com/Rakhazzan/SINTESIS/internal/domain/entities"
)

// The helpers below never modify the slice they are given; they return a
// fresh slice so snapshots already handed out stay valid.

func indexByID(list []*entities.Message, id string) int {
	for i, m := range list {
		if m.ID == id {
			return i
		}
	}
	return -1
}

// insertByTime inserts m after every entry with a timestamp not after its own
func insertByTime(list []*entities.Message, m *entities.Message) []*entities.Message {
	pos := len(list)
	for i, existing := range list {
		if existing.Timestamp.After(m.Timestamp) {
			pos = i
			break
		}
	}
	out := make([]*entities.Message, 0, len(list)+1)
	out = append(out, list[:pos]...)
	out = append(out, m)
	return append(out, list[pos:]...)
}

func removeAt(list []*entities.Message, i int) []*entities.Message {
	out := make([]*entities.Message, 0, len(list)-1)
	out = append(out, list[:i]...)
	return append(out, list[i+1:]...)
}

func removeID(list []*entities.Message, id string) []*entities.Message {
	if i := indexByID(list, id); i >= 0 {
		return removeAt(list, i)
	}
	return list
}

// matchProvisional returns the index of the earliest pending entry that m
// acknowledges: same participants, same body, timestamps within window.
func matchProvisional(list []*entities.Message, m *entities.Message, window time.Duration) int {
	for i, p := range list {
		if !p.Pending || !p.IsTemporary() {
			continue
		}
		if p.SenderID != m.SenderID || p.ReceiverID != m.ReceiverID || p.Body != m.Body {
			continue
		}
		delta := m.Timestamp.Sub(p.Timestamp)
		if delta < 0 {
			delta = -delta
		}
		if delta <= window {
			return i
		}
	}
	return -1
}

// mergeStored folds an authoritative record into list. It replaces the entry
// with the same ID, or else the provisional entry it acknowledges, or else
// adds it. deduped reports whether a provisional entry was consumed.
func mergeStored(list []*entities.Message, m *entities.Message, window time.Duration) (out []*entities.Message, deduped bool) {
	if i := indexByID(list, m.ID); i >= 0 {
		return insertByTime(removeAt(list, i), m), false
	}
	if i := matchProvisional(list, m, window); i >= 0 {
		return insertByTime(removeAt(list, i), m), true
	}
	return insertByTime(list, m), false
}
