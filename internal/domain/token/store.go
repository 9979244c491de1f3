// Package token implements an in-process store of opaque, expiring identity tokens.
package token

import (
	"context"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/patrickmn/go-cache"

	"github.com/okian/renshu/pkg/logger"
	"github.com/okian/renshu/pkg/metrics"
)

// Kind distinguishes what a token proves.
type Kind string

const (
	// KindSession tokens keep a non-authenticated identity stable across visits.
	KindSession Kind = "session"
	// KindAuth tokens are minted after a password login.
	KindAuth Kind = "auth"
)

// Profile is the account data carried by an Auth token.
type Profile struct {
	UserID      string `json:"user_id"`
	Email       string `json:"email"`
	DisplayName string `json:"display_name"`
}

// Payload is what a token resolves to.
type Payload struct {
	OwnerID       string            `json:"owner_id"`
	Authenticated bool              `json:"authenticated"`
	Email         string            `json:"email,omitempty"`
	Profile       *Profile          `json:"profile,omitempty"`
	Attributes    map[string]string `json:"attributes,omitempty"`
}

// Token is a minted credential.
type Token struct {
	Value      string
	OwnerID    string
	Kind       Kind
	Payload    Payload
	CreatedAt  time.Time
	ExpiresAt  time.Time
	LastActive time.Time
}

// Store holds tokens keyed by their value.
type Store interface {
	Mint(ctx context.Context, ownerID string, kind Kind, payload Payload) Token
	Resolve(ctx context.Context, value string) (Token, error)
	Revoke(ctx context.Context, value string)
	RevokeOwner(ctx context.Context, ownerID string, kinds ...Kind) int
	FindByOwner(ctx context.Context, ownerID string, kind Kind) (Token, bool)
	Touch(ctx context.Context, value string)
	SweepExpired(ctx context.Context) int
	Len() int
}

// memoryStore keeps tokens in a go-cache instance without a janitor; expiry
// is decided against the injected clock so Expired and NotFound stay distinct.
type memoryStore struct {
	mu      sync.Mutex
	entries *cache.Cache
	secret  []byte
	ttl     time.Duration
	length  int
	now     func() time.Time
	seq     atomic.Uint64
	logger  logger.Logger
}

// NewStore creates an in-memory token store.
func NewStore(opts ...Option) Store {
	s := &memoryStore{
		entries: cache.New(cache.NoExpiration, 0),
		ttl:     DefaultTTL,
		length:  DefaultLength,
		now:     time.Now,
		logger:  logger.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if len(s.secret) == 0 {
		s.secret = make([]byte, 32)
		if _, err := rand.Read(s.secret); err != nil {
			// crypto/rand only fails when the OS source is broken.
			panic("token: cannot seed secret: " + err.Error())
		}
	}
	return s
}

// Mint derives a token value from a keyed digest over owner, payload, the
// current time and a process-wide sequence number, then stores it.
func (s *memoryStore) Mint(ctx context.Context, ownerID string, kind Kind, payload Payload) Token {
	now := s.now()
	body, _ := json.Marshal(payload) // plain struct of strings and bools

	mac := hmac.New(sha256.New, s.secret)
	mac.Write([]byte(ownerID))
	mac.Write([]byte{0})
	mac.Write([]byte(kind))
	mac.Write([]byte{0})
	mac.Write(body)
	mac.Write([]byte{0})
	mac.Write([]byte(strconv.FormatInt(now.UnixNano(), 10)))
	mac.Write([]byte{0})
	mac.Write([]byte(strconv.FormatUint(s.seq.Add(1), 10)))
	value := hex.EncodeToString(mac.Sum(nil))[:s.length]

	t := Token{
		Value:      value,
		OwnerID:    ownerID,
		Kind:       kind,
		Payload:    clonePayload(payload),
		CreatedAt:  now,
		ExpiresAt:  now.Add(s.ttl),
		LastActive: now,
	}

	s.mu.Lock()
	s.entries.Set(value, t, cache.NoExpiration)
	live := s.entries.ItemCount()
	s.mu.Unlock()

	metrics.RecordTokenMinted(string(kind))
	metrics.UpdateTokensLive(live)
	s.logger.Info(ctx, "token minted",
		logger.String("kind", string(kind)),
		logger.String("owner", ownerID),
		logger.Any("expires_at", t.ExpiresAt))
	return t
}

// Resolve returns the token for value. An expired entry is deleted before
// ErrTokenExpired is returned, so the next call reports ErrTokenNotFound.
func (s *memoryStore) Resolve(ctx context.Context, value string) (Token, error) {
	if value == "" {
		return Token{}, ErrTokenNotFound
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	raw, ok := s.entries.Get(value)
	if !ok {
		return Token{}, ErrTokenNotFound
	}
	t := raw.(Token)
	if !s.now().Before(t.ExpiresAt) {
		s.entries.Delete(value)
		metrics.RecordTokensExpired(1)
		metrics.UpdateTokensLive(s.entries.ItemCount())
		return Token{}, ErrTokenExpired
	}
	t.Payload = clonePayload(t.Payload)
	return t, nil
}

func (s *memoryStore) Revoke(ctx context.Context, value string) {
	s.mu.Lock()
	_, ok := s.entries.Get(value)
	s.entries.Delete(value)
	live := s.entries.ItemCount()
	s.mu.Unlock()

	if ok {
		metrics.RecordTokensRevoked(1)
		s.logger.Info(ctx, "token revoked")
	}
	metrics.UpdateTokensLive(live)
}

// RevokeOwner deletes every token of ownerID whose kind is in kinds (all
// kinds when none are given) and returns how many were removed.
func (s *memoryStore) RevokeOwner(ctx context.Context, ownerID string, kinds ...Kind) int {
	s.mu.Lock()
	removed := 0
	for value, item := range s.entries.Items() {
		t := item.Object.(Token)
		if t.OwnerID != ownerID || !kindIn(t.Kind, kinds) {
			continue
		}
		s.entries.Delete(value)
		removed++
	}
	live := s.entries.ItemCount()
	s.mu.Unlock()

	metrics.RecordTokensRevoked(removed)
	metrics.UpdateTokensLive(live)
	if removed > 0 {
		s.logger.Info(ctx, "owner tokens revoked", logger.String("owner", ownerID), logger.Int("count", removed))
	}
	return removed
}

// FindByOwner returns the newest live token of kind held by ownerID.
func (s *memoryStore) FindByOwner(_ context.Context, ownerID string, kind Kind) (Token, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	var best Token
	found := false
	for _, item := range s.entries.Items() {
		t := item.Object.(Token)
		if t.OwnerID != ownerID || t.Kind != kind || !now.Before(t.ExpiresAt) {
			continue
		}
		if !found || t.CreatedAt.After(best.CreatedAt) {
			best, found = t, true
		}
	}
	if found {
		best.Payload = clonePayload(best.Payload)
	}
	return best, found
}

// Touch records activity on a live token. Expiry is not extended.
func (s *memoryStore) Touch(_ context.Context, value string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	raw, ok := s.entries.Get(value)
	if !ok {
		return
	}
	t := raw.(Token)
	t.LastActive = s.now()
	s.entries.Set(value, t, cache.NoExpiration)
}

// SweepExpired deletes every entry whose expiry is at or before now.
func (s *memoryStore) SweepExpired(ctx context.Context) int {
	s.mu.Lock()
	now := s.now()
	removed := 0
	for value, item := range s.entries.Items() {
		if t := item.Object.(Token); !now.Before(t.ExpiresAt) {
			s.entries.Delete(value)
			removed++
		}
	}
	live := s.entries.ItemCount()
	s.mu.Unlock()

	if removed > 0 {
		metrics.RecordTokensExpired(removed)
		s.logger.Debug(ctx, "expired tokens swept", logger.Int("count", removed))
	}
	metrics.UpdateTokensLive(live)
	return removed
}

func (s *memoryStore) Len() int {
	return s.entries.ItemCount()
}

func kindIn(k Kind, kinds []Kind) bool {
	if len(kinds) == 0 {
		return true
	}
	for _, want := range kinds {
		if k == want {
			return true
		}
	}
	return false
}

func clonePayload(p Payload) Payload {
	if p.Profile != nil {
		profile := *p.Profile
		p.Profile = &profile
	}
	if p.Attributes != nil {
		attrs := make(map[string]string, len(p.Attributes))
		for k, v := range p.Attributes {
			attrs[k] = v
		}
		p.Attributes = attrs
	}
	return p
}
