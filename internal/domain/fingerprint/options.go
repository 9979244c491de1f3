package fingerprint

import "time"

const (
	DefaultHistorySize = 20
	DefaultWindow      = 5
	DefaultThreshold   = 0.8

	ringIdleTTL = 7 * 24 * time.Hour
)

// Option configures a Generator.
type Option func(*Generator)

// WithAppMarker sets the application constant mixed into every digest.
func WithAppMarker(marker string) Option {
	return func(g *Generator) {
		if marker != "" {
			g.appMarker = marker
		}
	}
}

// WithClock replaces time.Now; only the calendar day is used.
func WithClock(now func() time.Time) Option {
	return func(g *Generator) {
		if now != nil {
			g.now = now
		}
	}
}

// WithHistorySize bounds each marker's ring.
func WithHistorySize(n int) Option {
	return func(g *Generator) {
		if n > 0 {
			g.historySize = n
		}
	}
}

// WithStability sets the window and the share of matches that counts as stable.
func WithStability(window int, threshold float64) Option {
	return func(g *Generator) {
		if window > 0 {
			g.window = window
		}
		if threshold > 0 && threshold <= 1 {
			g.threshold = threshold
		}
	}
}
