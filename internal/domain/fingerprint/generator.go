// Package fingerprint derives a best-effort pseudo-identity from weak
// environment signals and tracks how stable it is over time.
package fingerprint

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/patrickmn/go-cache"
)

// Length is the number of hex characters in a fingerprint.
const Length = 16

// Signals are the opaque, non-PII inputs to a fingerprint.
type Signals struct {
	Host string
	Port string
	Path string
	// SessionMarker anchors the fingerprint to one client. Without it no
	// fingerprint is produced.
	SessionMarker string
	Params        map[string]string
}

// unsafeParamFragments excludes parameters that could carry PII or credentials.
var unsafeParamFragments = []string{"email", "name", "token", "password", "mail"}

// SafeParam reports whether a request parameter may feed a fingerprint.
func SafeParam(name string) bool {
	n := strings.ToLower(name)
	for _, frag := range unsafeParamFragments {
		if strings.Contains(n, frag) {
			return false
		}
	}
	return true
}

// Generator produces fingerprints and keeps a bounded history per marker.
type Generator struct {
	mu          sync.Mutex
	appMarker   string
	now         func() time.Time
	historySize int
	window      int
	threshold   float64

	// issued caches one fingerprint per marker and day; rings holds the
	// recent fingerprint history per marker. Neither runs a janitor, and ring
	// idleness is judged by the generator clock.
	issued *cache.Cache
	rings  *cache.Cache
	day    string
}

// ring is one marker's history with the time it was last observed.
type ring struct {
	entries  []string
	lastSeen time.Time
}

// NewGenerator creates a Generator.
func NewGenerator(opts ...Option) *Generator {
	g := &Generator{
		appMarker:   "renshu_exam_practice",
		now:         time.Now,
		historySize: DefaultHistorySize,
		window:      DefaultWindow,
		threshold:   DefaultThreshold,
		issued:      cache.New(cache.NoExpiration, 0),
		rings:       cache.New(cache.NoExpiration, 0),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Generate returns the fingerprint for sig. Within one process and calendar
// day the same marker always gets the same value, even if other signals vary.
func (g *Generator) Generate(sig Signals) (string, error) {
	if strings.TrimSpace(sig.SessionMarker) == "" {
		return "", ErrNoSignals
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	day := g.now().Format(time.DateOnly)
	if day != g.day {
		// Yesterday's cached values must not leak into today.
		g.issued.Flush()
		g.sweepRings(g.now())
		g.day = day
	}

	if fp, ok := g.issued.Get(sig.SessionMarker); ok {
		return fp.(string), nil
	}
	fp := g.digest(sig, day)
	g.issued.Set(sig.SessionMarker, fp, cache.NoExpiration)
	return fp, nil
}

func (g *Generator) digest(sig Signals, day string) string {
	parts := []string{
		"port:" + sig.Port,
		"host:" + strings.ToLower(sig.Host),
		"path:" + sig.Path,
		"marker:" + sig.SessionMarker,
	}

	keys := make([]string, 0, len(sig.Params))
	for k := range sig.Params {
		if SafeParam(k) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	for _, k := range keys {
		parts = append(parts, "param:"+k+"="+sig.Params[k])
	}
	parts = append(parts, "app:"+g.appMarker, "day:"+day)

	sum := sha256.Sum256([]byte(strings.Join(parts, "|")))
	return hex.EncodeToString(sum[:])[:Length]
}

// Observe appends fp to the marker's history ring, evicting the oldest entry
// past the configured size, and returns a copy of the ring oldest-first.
func (g *Generator) Observe(marker, fp string) []string {
	g.mu.Lock()
	defer g.mu.Unlock()

	now := g.now()
	entries := g.liveRing(marker, now)
	entries = append(entries, fp)
	if over := len(entries) - g.historySize; over > 0 {
		entries = append([]string(nil), entries[over:]...)
	}
	g.rings.Set(marker, ring{entries: entries, lastSeen: now}, cache.NoExpiration)
	return append([]string(nil), entries...)
}

// History returns a copy of the marker's ring oldest-first.
func (g *Generator) History(marker string) []string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]string(nil), g.liveRing(marker, g.now())...)
}

// liveRing returns the marker's live entries, dropping a ring idle for
// ringIdleTTL. The caller holds mu.
func (g *Generator) liveRing(marker string, now time.Time) []string {
	raw, ok := g.rings.Get(marker)
	if !ok {
		return nil
	}
	r := raw.(ring)
	if now.Sub(r.lastSeen) >= ringIdleTTL {
		g.rings.Delete(marker)
		return nil
	}
	return r.entries
}

// sweepRings drops every idle ring. The caller holds mu.
func (g *Generator) sweepRings(now time.Time) {
	for marker, item := range g.rings.Items() {
		if now.Sub(item.Object.(ring).lastSeen) >= ringIdleTTL {
			g.rings.Delete(marker)
		}
	}
}

// Rings is the number of markers with a history ring.
func (g *Generator) Rings() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.rings.ItemCount()
}

// IsStable applies the generator's window and threshold to IsStable.
func (g *Generator) IsStable(fp string, history []string) bool {
	return IsStable(fp, history, g.window, g.threshold)
}

// IsStable reports whether fp makes up at least threshold of the last window
// entries of history. Fewer than two observations are never stable.
func IsStable(fp string, history []string, window int, threshold float64) bool {
	if len(history) < 2 || window <= 0 {
		return false
	}
	recent := history
	if len(recent) > window {
		recent = recent[len(recent)-window:]
	}
	hits := 0
	for _, h := range recent {
		if h == fp {
			hits++
		}
	}
	return float64(hits)/float64(len(recent)) >= threshold
}
