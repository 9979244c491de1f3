package history

import (
	"time"

	"github.com/okian/renshu/internal/domain/dedupe"
	"github.com/okian/renshu/internal/domain/model"
	"github.com/okian/renshu/pkg/logger"
)

const (
	// DefaultTimeout bounds each backend call.
	DefaultTimeout = 3 * time.Second
	// DefaultLimit caps reads that do not ask for a limit.
	DefaultLimit = 500
)

// Option configures an Adapter.
type Option func(*Adapter)

// WithGeneration selects the generation new records are written to.
func WithGeneration(g model.Generation) Option {
	return func(a *Adapter) {
		if g.Valid() {
			a.current = g
		}
	}
}

// WithTranslators replaces the translator set.
func WithTranslators(ts ...SchemaTranslator) Option {
	return func(a *Adapter) {
		a.translators = make(map[model.Generation]SchemaTranslator, len(ts))
		for _, t := range ts {
			a.translators[t.Generation()] = t
		}
	}
}

// WithCapacity sets the per-identity fallback buffer size.
func WithCapacity(n int) Option {
	return func(a *Adapter) {
		if n > 0 {
			a.capacity = n
		}
	}
}

// WithTotalCapacity bounds the fallback buffer across all identities.
func WithTotalCapacity(n int) Option {
	return func(a *Adapter) {
		if n > 0 {
			a.totalCap = n
		}
	}
}

// WithTimeout bounds every backend call.
func WithTimeout(d time.Duration) Option {
	return func(a *Adapter) {
		if d > 0 {
			a.timeout = d
		}
	}
}

// WithProbeRetry lets a failed probe be repeated once d has passed. Zero
// keeps the first probe result for the life of the process.
func WithProbeRetry(d time.Duration) Option {
	return func(a *Adapter) {
		if d >= 0 {
			a.probeRetry = d
		}
	}
}

// WithDefaultLimit sets the read limit used when a filter has none; it is
// also the upper bound for requested limits.
func WithDefaultLimit(n int) Option {
	return func(a *Adapter) {
		if n > 0 {
			a.maxLimit = n
		}
	}
}

// WithDeduper replaces the duplicate-submission guard.
func WithDeduper(d dedupe.Deduper) Option {
	return func(a *Adapter) {
		if d != nil {
			a.dedupe = d
		}
	}
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(a *Adapter) {
		if now != nil {
			a.now = now
		}
	}
}

// WithIDGenerator replaces the record id source.
func WithIDGenerator(next func() string) Option {
	return func(a *Adapter) {
		if next != nil {
			a.newID = next
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option {
	return func(a *Adapter) {
		if l != nil {
			a.logger = l
		}
	}
}
