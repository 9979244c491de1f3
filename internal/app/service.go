// Package service composes identity resolution, practice history and
// accounts into the operations the HTTP API exposes.
package service

import (
	"context"
	"io"
	"sync"
	"time"

	"github.com/okian/renshu/internal/adapters/repository"
	"github.com/okian/renshu/internal/domain/account"
	"github.com/okian/renshu/internal/domain/fingerprint"
	"github.com/okian/renshu/internal/domain/history"
	"github.com/okian/renshu/internal/domain/identity"
	"github.com/okian/renshu/internal/domain/model"
	"github.com/okian/renshu/internal/domain/taxonomy"
	"github.com/okian/renshu/internal/domain/token"
	"github.com/okian/renshu/pkg/logger"
	"github.com/okian/renshu/pkg/metrics"
)

// BackendNone is the backend name reported when no store is configured.
const BackendNone = "none"

// Status is the diagnostic view of the service.
type Status struct {
	Started    bool           `json:"started"`
	Backend    string         `json:"backend"`
	LiveTokens int            `json:"live_tokens"`
	History    history.Status `json:"history"`
}

// Service implements the API dependencies for the practice history system.
type Service struct {
	mu      sync.RWMutex
	started bool

	backend         string
	store           repository.Store
	tokenOpts       []token.Option
	fingerprintOpts []fingerprint.Option
	historyOpts     []history.Option
	accountOpts     []account.Option
	now             func() time.Time
	location        *time.Location
	logger          logger.Logger

	tokens    token.Store
	generator *fingerprint.Generator
	resolver  *identity.Resolver
	taxonomy  *taxonomy.Taxonomy
	history   *history.Adapter
	accounts  *account.Manager
}

// New constructs a Service. Every component is built here so the service is
// usable before Start.
func New(opts ...Option) *Service {
	s := &Service{
		backend:  BackendNone,
		now:      time.Now,
		location: time.UTC,
		logger:   logger.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.store == nil {
		s.backend = BackendNone
	}

	s.tokens = token.NewStore(append([]token.Option{
		token.WithClock(s.now),
		token.WithLogger(s.logger.Named("token")),
	}, s.tokenOpts...)...)
	s.generator = fingerprint.NewGenerator(append([]fingerprint.Option{
		fingerprint.WithClock(s.now),
	}, s.fingerprintOpts...)...)
	s.resolver = identity.NewResolver(s.tokens, s.generator,
		identity.WithClock(s.now),
		identity.WithLogger(s.logger.Named("identity")))
	s.taxonomy = taxonomy.New(taxonomy.WithLogger(s.logger.Named("taxonomy")))
	s.history = history.NewAdapter(s.store, s.taxonomy, append([]history.Option{
		history.WithClock(s.now),
		history.WithLogger(s.logger.Named("history")),
	}, s.historyOpts...)...)
	s.accounts = account.NewManager(s.store, append([]account.Option{
		account.WithClock(s.now),
		account.WithLogger(s.logger.Named("account")),
	}, s.accountOpts...)...)
	return s
}

// Start probes the backend once and marks the service started. An
// unavailable backend is not an error: history falls back to the buffer.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}
	s.logger.Info(ctx, "starting practice history service...", logger.String("backend", s.backend))
	if s.store != nil {
		available := s.history.Probe(ctx)
		s.logger.Info(ctx, "backend probed", logger.Bool("available", available))
	}
	s.started = true
	st := s.history.Status()
	s.logger.Info(ctx, "practice history service started",
		logger.String("backend", s.backend),
		logger.Int("schema_generation", int(st.Generation)),
		logger.Bool("available", st.Available))
	return nil
}

// Stop releases the backend.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}
	s.logger.Info(context.Background(), "stopping practice history service...")
	if closer, ok := s.store.(io.Closer); ok {
		if err := closer.Close(); err != nil {
			s.logger.Warn(context.Background(), "closing backend failed", logger.Error(err))
		}
	}
	s.started = false
	s.logger.Info(context.Background(), "practice history service stopped")
}

// ResolveSession identifies the caller. It never fails.
func (s *Service) ResolveSession(ctx context.Context, req identity.Request) identity.UserSession {
	sess := s.resolver.Resolve(ctx, req)
	metrics.UpdateTokensLive(s.tokens.Len())
	return sess
}

// ConfirmEmail resolves the caller by a confirmed email address.
func (s *Service) ConfirmEmail(ctx context.Context, email string) (identity.UserSession, error) {
	sess, err := s.resolver.ConfirmEmail(ctx, email)
	if err != nil {
		return identity.UserSession{}, err
	}
	metrics.UpdateTokensLive(s.tokens.Len())
	return sess, nil
}

// Register creates an account.
func (s *Service) Register(ctx context.Context, email, password, displayName string) (account.Profile, error) {
	return s.accounts.Register(ctx, email, password, displayName)
}

// Login verifies a password and returns the authenticated session backed by
// a fresh Auth token.
func (s *Service) Login(ctx context.Context, email, password string) (identity.UserSession, error) {
	p, err := s.accounts.Authenticate(ctx, email, password)
	if err != nil {
		s.logger.Info(ctx, "login refused", logger.Error(err))
		return identity.UserSession{}, err
	}
	sess := s.resolver.Login(ctx, token.Profile{
		UserID:      p.UserID,
		Email:       p.Email,
		DisplayName: p.DisplayName,
	})
	metrics.UpdateTokensLive(s.tokens.Len())
	return sess, nil
}

// Logout revokes every Auth and Session token of userID.
func (s *Service) Logout(ctx context.Context, userID string) int {
	n := s.resolver.Logout(ctx, userID)
	metrics.UpdateTokensLive(s.tokens.Len())
	return n
}

// RecordPractice stores one attempt. It never fails; the Ack says where the
// record went.
func (s *Service) RecordPractice(ctx context.Context, userID string, sub model.Submission) history.Ack {
	return s.history.Write(ctx, userID, sub)
}

// GetHistory returns userID's history in the legacy shape, newest first.
func (s *Service) GetHistory(ctx context.Context, userID string, f history.Filter) []model.LegacyRecord {
	return s.history.Read(ctx, userID, f)
}

// DeleteHistory removes userID's records of key, or all of them.
func (s *Service) DeleteHistory(ctx context.Context, userID, key string) history.DeleteResult {
	return s.history.Delete(ctx, userID, key)
}

// Summary aggregates userID's history of key, or of every type.
func (s *Service) Summary(ctx context.Context, userID, key string) history.Summary {
	return history.Summarize(s.history.Records(ctx, userID, history.Filter{Key: key}), s.location)
}

// RecentThemes returns up to limit distinct themes, newest first.
func (s *Service) RecentThemes(ctx context.Context, userID, key string, limit int) []string {
	return history.RecentThemes(s.history.Records(ctx, userID, history.Filter{Key: key}), limit)
}

// IsThemeRecentlyUsed reports whether theme was practiced within the last
// withinDays days.
func (s *Service) IsThemeRecentlyUsed(ctx context.Context, userID, key, theme string, withinDays int) bool {
	since := s.now().AddDate(0, 0, -withinDays)
	return history.ThemeUsedSince(s.history.Records(ctx, userID, history.Filter{Key: key}), theme, since)
}

// Classify exposes the practice type classification of a label.
func (s *Service) Classify(ctx context.Context, label string) taxonomy.Classification {
	return s.taxonomy.Classify(ctx, label)
}

// Status reports backend and buffer state without probing.
func (s *Service) Status() Status {
	s.mu.RLock()
	defer s.mu.RUnlock()

	live := s.tokens.Len()
	metrics.UpdateTokensLive(live)
	return Status{
		Started:    s.started,
		Backend:    s.backend,
		LiveTokens: live,
		History:    s.history.Status(),
	}
}
