// Package account keeps registered users and verifies their passwords.
package account

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/okian/renshu/internal/adapters/repository"
	"github.com/okian/renshu/internal/domain/identity"
	"github.com/okian/renshu/pkg/logger"
)

// Status is the lifecycle state of an account.
type Status string

const (
	StatusActive    Status = "active"
	StatusInactive  Status = "inactive"
	StatusSuspended Status = "suspended"
)

// Profile is the public view of an account.
type Profile struct {
	UserID      string    `json:"user_id"`
	Email       string    `json:"email"`
	DisplayName string    `json:"display_name"`
	Status      Status    `json:"account_status"`
	CreatedAt   time.Time `json:"created_at"`
	LastLogin   time.Time `json:"last_login,omitempty"`
}

// Manager registers and authenticates accounts stored in the users table.
type Manager struct {
	store       repository.Store
	iterations  int
	maxFailures int
	lockout     time.Duration
	now         func() time.Time
	logger      logger.Logger
}

// NewManager returns a Manager over store.
func NewManager(store repository.Store, opts ...Option) *Manager {
	m := &Manager{
		store:       store,
		iterations:  DefaultIterations,
		maxFailures: DefaultMaxFailures,
		lockout:     DefaultLockout,
		now:         time.Now,
		logger:      logger.Nop(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Register creates an active account.
func (m *Manager) Register(ctx context.Context, email, password, displayName string) (Profile, error) {
	if m.store == nil {
		return Profile{}, ErrNoStore
	}
	if !identity.ValidEmail(email) {
		return Profile{}, ErrInvalidEmail
	}
	if problems := CheckStrength(password); len(problems) > 0 {
		return Profile{}, fmt.Errorf("%w: needs %s", ErrWeakPassword, strings.Join(problems, ", "))
	}
	email = identity.NormalizeEmail(email)

	if _, err := m.byEmail(ctx, email); err == nil {
		return Profile{}, ErrEmailTaken
	} else if !errors.Is(err, ErrInvalidCredentials) {
		return Profile{}, err
	}

	hash, err := HashPassword(password, m.iterations)
	if err != nil {
		return Profile{}, err
	}
	displayName = strings.TrimSpace(displayName)
	if displayName == "" {
		displayName = email[:strings.IndexByte(email, '@')]
	}
	p := Profile{
		UserID:      uuid.NewString(),
		Email:       email,
		DisplayName: displayName,
		Status:      StatusActive,
		CreatedAt:   m.now().UTC(),
	}
	err = m.store.Insert(ctx, repository.TableUsers, repository.Row{
		"user_id":        p.UserID,
		"email":          p.Email,
		"display_name":   p.DisplayName,
		"password_hash":  hash,
		"account_status": string(p.Status),
		"failed_logins":  0,
		"created_at":     p.CreatedAt,
	})
	if err != nil {
		return Profile{}, fmt.Errorf("register %s: %w", email, err)
	}
	m.logger.Info(ctx, "account registered", logger.String("user_id", p.UserID))
	return p, nil
}

// Authenticate verifies a password. Consecutive failures lock the account
// for the lockout period; a success clears them.
func (m *Manager) Authenticate(ctx context.Context, email, password string) (Profile, error) {
	if m.store == nil {
		return Profile{}, ErrNoStore
	}
	row, err := m.byEmail(ctx, identity.NormalizeEmail(email))
	if err != nil {
		return Profile{}, err
	}
	p := profileOf(row)
	now := m.now().UTC()

	if p.Status == StatusSuspended {
		return Profile{}, ErrAccountSuspended
	}
	if until := row.Time("locked_until"); !until.IsZero() && until.After(now) {
		return Profile{}, fmt.Errorf("%w until %s", ErrAccountLocked, until.Format(time.RFC3339))
	}

	if !VerifyPassword(row.String("password_hash"), password, m.iterations) {
		m.recordFailure(ctx, p.UserID, row.Int("failed_logins")+1, now)
		return Profile{}, ErrInvalidCredentials
	}

	_, err = m.store.Update(ctx, repository.TableUsers,
		[]repository.Filter{repository.Eq("user_id", p.UserID)},
		repository.Row{"failed_logins": 0, "locked_until": nil, "last_login": now})
	if err != nil {
		m.logger.Warn(ctx, "could not record login", logger.String("user_id", p.UserID), logger.Error(err))
	}
	p.LastLogin = now
	return p, nil
}

func (m *Manager) recordFailure(ctx context.Context, userID string, failures int, now time.Time) {
	patch := repository.Row{"failed_logins": failures}
	if failures >= m.maxFailures {
		patch["failed_logins"] = 0
		patch["locked_until"] = now.Add(m.lockout)
		m.logger.Warn(ctx, "account locked after repeated failures",
			logger.String("user_id", userID), logger.Duration("lockout", m.lockout))
	}
	if _, err := m.store.Update(ctx, repository.TableUsers,
		[]repository.Filter{repository.Eq("user_id", userID)}, patch); err != nil {
		m.logger.Warn(ctx, "could not record failed login", logger.String("user_id", userID), logger.Error(err))
	}
}

// ChangePassword replaces the password after verifying the current one.
func (m *Manager) ChangePassword(ctx context.Context, userID, current, next string) error {
	row, err := m.byID(ctx, userID)
	if err != nil {
		return err
	}
	if !VerifyPassword(row.String("password_hash"), current, m.iterations) {
		return ErrInvalidCredentials
	}
	if problems := CheckStrength(next); len(problems) > 0 {
		return fmt.Errorf("%w: needs %s", ErrWeakPassword, strings.Join(problems, ", "))
	}
	hash, err := HashPassword(next, m.iterations)
	if err != nil {
		return err
	}
	_, err = m.store.Update(ctx, repository.TableUsers,
		[]repository.Filter{repository.Eq("user_id", userID)},
		repository.Row{"password_hash": hash})
	return err
}

// SetStatus changes the account status.
func (m *Manager) SetStatus(ctx context.Context, userID string, status Status) error {
	if m.store == nil {
		return ErrNoStore
	}
	n, err := m.store.Update(ctx, repository.TableUsers,
		[]repository.Filter{repository.Eq("user_id", userID)},
		repository.Row{"account_status": string(status)})
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// Get returns the profile of userID.
func (m *Manager) Get(ctx context.Context, userID string) (Profile, error) {
	row, err := m.byID(ctx, userID)
	if err != nil {
		return Profile{}, err
	}
	return profileOf(row), nil
}

func (m *Manager) byID(ctx context.Context, userID string) (repository.Row, error) {
	if m.store == nil {
		return nil, ErrNoStore
	}
	rows, err := m.store.Select(ctx, repository.TableUsers, repository.Query{
		Filters: []repository.Filter{repository.Eq("user_id", userID)},
		Limit:   1,
	})
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, ErrNotFound
	}
	return rows[0], nil
}

// byEmail returns ErrInvalidCredentials when no account has email.
func (m *Manager) byEmail(ctx context.Context, email string) (repository.Row, error) {
	rows, err := m.store.Select(ctx, repository.TableUsers, repository.Query{
		Filters: []repository.Filter{repository.Eq("email", email)},
		Limit:   1,
	})
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, ErrInvalidCredentials
	}
	return rows[0], nil
}

func profileOf(row repository.Row) Profile {
	status := Status(row.String("account_status"))
	if status == "" {
		status = StatusActive
	}
	return Profile{
		UserID:      row.String("user_id"),
		Email:       row.String("email"),
		DisplayName: row.String("display_name"),
		Status:      status,
		CreatedAt:   row.Time("created_at"),
		LastLogin:   row.Time("last_login"),
	}
}
