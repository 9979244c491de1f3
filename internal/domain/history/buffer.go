package history

import (
	"container/list"
	"sync"

	"github.com/okian/renshu/internal/domain/model"
)

// DefaultCapacity is the per-identity fallback buffer size.
const DefaultCapacity = 100

// DefaultTotalCapacity bounds the fallback buffer across all identities.
const DefaultTotalCapacity = 10_000

// Buffer is the bounded, process-local fallback store. Each identity keeps
// its newest records first. On overflow the identity's oldest record is
// evicted; past the total bound the oldest record of any identity goes.
type Buffer struct {
	mu       sync.Mutex
	capacity int
	total    int
	records  map[string][]*buffered
	// age holds every record oldest first.
	age *list.List
}

type buffered struct {
	rec  model.PracticeRecord
	elem *list.Element
}

// NewBuffer returns an empty buffer holding at most capacity records per
// identity and total records overall. Non-positive bounds use the defaults.
func NewBuffer(capacity, total int) *Buffer {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	if total <= 0 {
		total = DefaultTotalCapacity
	}
	return &Buffer{
		capacity: capacity,
		total:    total,
		records:  make(map[string][]*buffered),
		age:      list.New(),
	}
}

// Add stores rec at the front of its owner's list and reports whether an
// older record was evicted.
func (b *Buffer) Add(rec model.PracticeRecord) bool {
	rec.Buffered = true
	rec.Generation = 0
	rec.Inputs = rec.Inputs.Clone()
	rec.Scores = append([]model.Score(nil), rec.Scores...)

	b.mu.Lock()
	defer b.mu.Unlock()

	e := &buffered{rec: rec}
	e.elem = b.age.PushBack(e)

	entries := b.records[rec.UserID]
	entries = append(entries, nil)
	copy(entries[1:], entries[:len(entries)-1])
	entries[0] = e
	b.records[rec.UserID] = entries

	evicted := false
	if len(entries) > b.capacity {
		b.dropOldest(rec.UserID)
		evicted = true
	}
	for b.age.Len() > b.total {
		oldest := b.age.Front().Value.(*buffered)
		b.dropOldest(oldest.rec.UserID)
		evicted = true
	}
	return evicted
}

// dropOldest removes the last record of userID. The caller holds mu.
func (b *Buffer) dropOldest(userID string) {
	entries := b.records[userID]
	last := entries[len(entries)-1]
	b.age.Remove(last.elem)
	entries[len(entries)-1] = nil
	entries = entries[:len(entries)-1]
	if len(entries) == 0 {
		delete(b.records, userID)
		return
	}
	b.records[userID] = entries
}

// List returns a copy of userID's records, newest first.
func (b *Buffer) List(userID string) []model.PracticeRecord {
	b.mu.Lock()
	defer b.mu.Unlock()

	entries := b.records[userID]
	if len(entries) == 0 {
		return nil
	}
	out := make([]model.PracticeRecord, len(entries))
	for i, e := range entries {
		out[i] = e.rec
	}
	return out
}

// Remove drops userID's records with the given key, or all of them when key
// is empty, and returns how many went.
func (b *Buffer) Remove(userID, key string) int {
	b.mu.Lock()
	defer b.mu.Unlock()

	entries := b.records[userID]
	kept := make([]*buffered, 0, len(entries))
	for _, e := range entries {
		if key == "" || e.rec.PracticeTypeKey == key {
			b.age.Remove(e.elem)
			continue
		}
		kept = append(kept, e)
	}
	removed := len(entries) - len(kept)
	if len(kept) == 0 {
		delete(b.records, userID)
	} else {
		b.records[userID] = kept
	}
	return removed
}

// Len is the number of records across all identities.
func (b *Buffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.age.Len()
}

// Identities is the number of identities holding records.
func (b *Buffer) Identities() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.records)
}

// Capacity is the per-identity bound.
func (b *Buffer) Capacity() int { return b.capacity }

// TotalCapacity is the bound across all identities.
func (b *Buffer) TotalCapacity() int { return b.total }
