package service

import (
	"time"

	"github.com/okian/renshu/internal/adapters/repository"
	"github.com/okian/renshu/internal/domain/account"
	"github.com/okian/renshu/internal/domain/fingerprint"
	"github.com/okian/renshu/internal/domain/history"
	"github.com/okian/renshu/internal/domain/token"
	"github.com/okian/renshu/pkg/logger"
)

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithStore sets the durable backend and the name it is reported under.
// A nil store runs without a durable backend.
func WithStore(kind string, store repository.Store) Option {
	return func(s *Service) {
		s.backend = kind
		s.store = store
	}
}

// WithTokenOptions configures the token store.
func WithTokenOptions(opts ...token.Option) Option {
	return func(s *Service) {
		s.tokenOpts = append(s.tokenOpts, opts...)
	}
}

// WithFingerprintOptions configures the fingerprint generator.
func WithFingerprintOptions(opts ...fingerprint.Option) Option {
	return func(s *Service) {
		s.fingerprintOpts = append(s.fingerprintOpts, opts...)
	}
}

// WithHistoryOptions configures the history adapter.
func WithHistoryOptions(opts ...history.Option) Option {
	return func(s *Service) {
		s.historyOpts = append(s.historyOpts, opts...)
	}
}

// WithAccountOptions configures the account manager.
func WithAccountOptions(opts ...account.Option) Option {
	return func(s *Service) {
		s.accountOpts = append(s.accountOpts, opts...)
	}
}

// WithClock replaces time.Now in every component.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// WithLocation sets the zone practice days are counted in.
func WithLocation(loc *time.Location) Option {
	return func(s *Service) {
		if loc != nil {
			s.location = loc
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}
