package dedupe

// Option configures the Deduper returned by New.
type Option func(*boundedDeduper)

// WithMaxSize sets how many digests are kept. Zero or less keeps all.
func WithMaxSize(maxSize int) Option {
	return func(d *boundedDeduper) {
		d.maxSize = maxSize
	}
}
