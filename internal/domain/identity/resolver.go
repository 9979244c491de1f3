package identity

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/okian/renshu/internal/domain/fingerprint"
	"github.com/okian/renshu/internal/domain/token"
	"github.com/okian/renshu/pkg/logger"
	"github.com/okian/renshu/pkg/metrics"
)

// Strategy is one link of the resolution chain. A nil session with an error
// means fall through to the next link.
type Strategy interface {
	Method() Method
	Resolve(ctx context.Context, req Request, now time.Time) (*UserSession, error)
}

// Resolver runs the strategies in fixed order and always returns a session.
type Resolver struct {
	tokens    token.Store
	generator *fingerprint.Generator
	now       func() time.Time
	logger    logger.Logger
	chain     []Strategy
}

// NewResolver builds the PasswordAuth, SessionToken, Email, Fingerprint chain.
func NewResolver(tokens token.Store, generator *fingerprint.Generator, opts ...Option) *Resolver {
	r := &Resolver{
		tokens:    tokens,
		generator: generator,
		now:       time.Now,
		logger:    logger.Nop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	r.chain = []Strategy{
		passwordAuthStrategy{tokens: tokens},
		sessionTokenStrategy{tokens: tokens},
		emailStrategy{tokens: tokens},
		fingerprintStrategy{generator: generator},
	}
	return r
}

// Resolve identifies the caller. Expired tokens are swept first; the first
// strategy producing a session wins; if none does an ephemeral session is
// synthesized.
func (r *Resolver) Resolve(ctx context.Context, req Request) UserSession {
	r.tokens.SweepExpired(ctx)
	now := r.now()

	var sess *UserSession
	for _, s := range r.chain {
		got, err := r.run(ctx, s, req, now)
		if err != nil {
			r.logger.Debug(ctx, "identity strategy fell through",
				logger.String("strategy", string(s.Method())),
				logger.String("reason", err.Error()))
			continue
		}
		if got != nil {
			sess = got
			break
		}
	}
	if sess == nil {
		sess = r.fallback(now)
		r.logger.Warn(ctx, "no identity strategy succeeded; using an ephemeral identity",
			logger.String("identity", sess.Identity))
	}

	sess.Touch(r.now())
	if sess.SessionToken != "" {
		r.tokens.Touch(ctx, sess.SessionToken)
	}
	if sess.AuthToken != "" {
		r.tokens.Touch(ctx, sess.AuthToken)
	}
	metrics.RecordResolution(string(sess.Method))
	return *sess
}

// run shields the chain from a panicking strategy.
func (r *Resolver) run(ctx context.Context, s Strategy, req Request, now time.Time) (sess *UserSession, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			sess = nil
			err = fmt.Errorf("%w: %v", ErrStrategyPanic, rec)
			r.logger.Error(ctx, "identity strategy panicked", logger.String("strategy", string(s.Method())), logger.Any("panic", rec))
		}
	}()
	return s.Resolve(ctx, req, now)
}

func (r *Resolver) fallback(now time.Time) *UserSession {
	sess := newSession(newEphemeralIdentity(), MethodEphemeral, now)
	sess.Metadata["fallback"] = "true"
	sess.Metadata["warning"] = "history is kept only for this process"
	return sess
}

// Login mints an Auth token for a verified profile and returns the
// authenticated session it resolves to.
func (r *Resolver) Login(ctx context.Context, profile token.Profile) UserSession {
	tk := r.tokens.Mint(ctx, profile.UserID, token.KindAuth, token.Payload{
		OwnerID:       profile.UserID,
		Authenticated: true,
		Email:         profile.Email,
		Profile:       &profile,
	})
	sess := authSession(tk, r.now())
	metrics.RecordResolution(string(sess.Method))
	return *sess
}

// ConfirmEmail resolves through the Email strategy alone. It fails only
// when the address is invalid.
func (r *Resolver) ConfirmEmail(ctx context.Context, email string) (UserSession, error) {
	r.tokens.SweepExpired(ctx)
	sess, err := emailStrategy{tokens: r.tokens}.Resolve(ctx, Request{Email: email}, r.now())
	if err != nil {
		return UserSession{}, err
	}
	metrics.RecordResolution(string(sess.Method))
	return *sess, nil
}

// Logout revokes every Auth and Session token owned by identity.
func (r *Resolver) Logout(ctx context.Context, identity string) int {
	return r.tokens.RevokeOwner(ctx, identity, token.KindAuth, token.KindSession)
}

type passwordAuthStrategy struct{ tokens token.Store }

func (passwordAuthStrategy) Method() Method { return MethodPasswordAuth }

func (s passwordAuthStrategy) Resolve(ctx context.Context, req Request, now time.Time) (*UserSession, error) {
	if req.AuthToken == "" {
		return nil, ErrNoCredential
	}
	tk, err := s.tokens.Resolve(ctx, req.AuthToken)
	if err != nil {
		return nil, err
	}
	if tk.Kind != token.KindAuth {
		return nil, ErrWrongTokenKind
	}
	if !tk.Payload.Authenticated {
		return nil, ErrNotAuthenticated
	}
	return authSession(tk, now), nil
}

func authSession(tk token.Token, now time.Time) *UserSession {
	sess := newSession(tk.OwnerID, MethodPasswordAuth, now)
	sess.Authenticated = true
	sess.Persistent = true
	sess.AuthToken = tk.Value
	sess.Profile = tk.Payload.Profile
	sess.Metadata["auth_expires_at"] = tk.ExpiresAt.UTC().Format(time.RFC3339)
	if tk.Payload.Email != "" {
		sess.Metadata["email"] = tk.Payload.Email
	}
	return sess
}

type sessionTokenStrategy struct{ tokens token.Store }

func (sessionTokenStrategy) Method() Method { return MethodSessionToken }

func (s sessionTokenStrategy) Resolve(ctx context.Context, req Request, now time.Time) (*UserSession, error) {
	if req.SessionToken == "" {
		return nil, ErrNoCredential
	}
	tk, err := s.tokens.Resolve(ctx, req.SessionToken)
	if err != nil {
		return nil, err
	}
	if tk.Kind != token.KindSession {
		return nil, ErrWrongTokenKind
	}
	sess := newSession(tk.OwnerID, MethodSessionToken, now)
	sess.Persistent = true
	sess.SessionToken = tk.Value
	sess.Metadata["session_expires_at"] = tk.ExpiresAt.UTC().Format(time.RFC3339)
	if tk.Payload.Email != "" {
		sess.Metadata["email"] = tk.Payload.Email
	}
	return sess, nil
}

type emailStrategy struct{ tokens token.Store }

func (emailStrategy) Method() Method { return MethodEmail }

// Resolve reuses the newest live Session token of the derived identity and
// only mints one on first capture.
func (s emailStrategy) Resolve(ctx context.Context, req Request, now time.Time) (*UserSession, error) {
	if req.Email == "" {
		return nil, ErrNoCredential
	}
	if !ValidEmail(req.Email) {
		return nil, ErrInvalidEmail
	}
	email := NormalizeEmail(req.Email)
	id := EmailIdentity(email)

	tk, ok := s.tokens.FindByOwner(ctx, id, token.KindSession)
	if !ok {
		tk = s.tokens.Mint(ctx, id, token.KindSession, token.Payload{OwnerID: id, Email: email})
	}

	sess := newSession(id, MethodEmail, now)
	sess.Persistent = true
	sess.SessionToken = tk.Value
	sess.Metadata["email"] = email
	return sess, nil
}

type fingerprintStrategy struct{ generator *fingerprint.Generator }

func (fingerprintStrategy) Method() Method { return MethodFingerprint }

func (s fingerprintStrategy) Resolve(_ context.Context, req Request, now time.Time) (*UserSession, error) {
	if s.generator == nil {
		return nil, errors.New("identity: no fingerprint generator")
	}
	fp, err := s.generator.Generate(req.Signals)
	if err != nil {
		return nil, err
	}
	history := s.generator.Observe(req.Signals.SessionMarker, fp)
	stable := s.generator.IsStable(fp, history)

	sess := newSession(EphemeralPrefix+fp, MethodFingerprint, now)
	sess.Persistent = stable
	sess.Metadata["fingerprint"] = fp
	sess.Metadata["stable"] = strconv.FormatBool(stable)
	sess.Metadata["observations"] = strconv.Itoa(len(history))
	return sess, nil
}
