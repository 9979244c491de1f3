package taxonomy

import "github.com/okian/renshu/pkg/logger"

// Option configures a Taxonomy.
type Option func(*Taxonomy)

// WithLogger sets the logger used for classification misses.
func WithLogger(l logger.Logger) Option {
	return func(t *Taxonomy) {
		if l != nil {
			t.logger = l
		}
	}
}
