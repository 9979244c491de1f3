// Package dedupe rejects repeated submissions of the same practice attempt.
package dedupe

import (
	"container/list"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/okian/renshu/internal/domain/model"
)

// DefaultMaxSize bounds the number of remembered digests.
const DefaultMaxSize = 10000

// Deduper remembers submission digests.
type Deduper interface {
	// SeenAndRecord reports whether digest was already recorded and records
	// it if not. Check and record happen under one lock.
	SeenAndRecord(ctx context.Context, digest string) bool
	// Unrecord forgets digest so a failed write can be retried.
	Unrecord(ctx context.Context, digest string)
	Size() int64
}

// boundedDeduper evicts the oldest digest once maxSize is reached. A
// non-positive maxSize disables eviction.
type boundedDeduper struct {
	mu      sync.Mutex
	seen    map[string]*list.Element
	order   *list.List
	maxSize int
	size    atomic.Int64
}

// New returns an in-memory Deduper.
func New(opts ...Option) Deduper {
	d := &boundedDeduper{
		maxSize: DefaultMaxSize,
		seen:    make(map[string]*list.Element),
		order:   list.New(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

func (d *boundedDeduper) SeenAndRecord(_ context.Context, digest string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, ok := d.seen[digest]; ok {
		return true
	}
	if d.maxSize > 0 && d.order.Len() >= d.maxSize {
		if oldest := d.order.Front(); oldest != nil {
			delete(d.seen, oldest.Value.(string))
			d.order.Remove(oldest)
		}
	}
	d.seen[digest] = d.order.PushBack(digest)
	d.size.Store(int64(d.order.Len()))
	return false
}

func (d *boundedDeduper) Unrecord(_ context.Context, digest string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if el, ok := d.seen[digest]; ok {
		d.order.Remove(el)
		delete(d.seen, digest)
		d.size.Store(int64(d.order.Len()))
	}
}

func (d *boundedDeduper) Size() int64 {
	return d.size.Load()
}

// Digest fingerprints one attempt by owner, label, start time and content.
func Digest(userID, label string, startedAt time.Time, inputs model.Fields, scores []model.Score, feedback string) string {
	h := sha256.New()
	write := func(s string) {
		h.Write([]byte(strconv.Itoa(len(s))))
		h.Write([]byte{':'})
		h.Write([]byte(s))
	}
	write(userID)
	write(label)
	write(startedAt.UTC().Format(time.RFC3339Nano))
	in, _ := json.Marshal(inputs)
	write(string(in))
	sc, _ := json.Marshal(scores)
	write(string(sc))
	write(feedback)
	return hex.EncodeToString(h.Sum(nil))
}
