package identity_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/okian/renshu/internal/domain/fingerprint"
	"github.com/okian/renshu/internal/domain/identity"
	"github.com/okian/renshu/internal/domain/token"
	. "github.com/smartystreets/goconvey/convey"
)

// panickyStore panics on Resolve to simulate an internal failure.
type panickyStore struct {
	token.Store
}

func (panickyStore) Resolve(context.Context, string) (token.Token, error) {
	panic("corrupted entry")
}

func newFixture(now *time.Time) (*identity.Resolver, token.Store) {
	clock := func() time.Time { return *now }
	tokens := token.NewStore(token.WithClock(clock))
	gen := fingerprint.NewGenerator(fingerprint.WithClock(clock))
	return identity.NewResolver(tokens, gen, identity.WithClock(clock)), tokens
}

func TestResolveWithoutSignals(t *testing.T) {
	Convey("Given a fresh process", t, func() {
		now := time.Date(2026, 6, 1, 10, 0, 0, 0, time.UTC)
		r, _ := newFixture(&now)

		Convey("When resolving with no prior signals", func() {
			sess := r.Resolve(context.Background(), identity.Request{})

			Convey("Then an ephemeral, unauthenticated session is returned", func() {
				So(sess.Method, ShouldEqual, identity.MethodEphemeral)
				So(sess.Authenticated, ShouldBeFalse)
				So(sess.Persistent, ShouldBeFalse)
				So(sess.IsEphemeral(), ShouldBeTrue)
				So(sess.Metadata["fallback"], ShouldEqual, "true")
				So(sess.LastActive, ShouldEqual, now)
			})
		})
	})
}

func TestResolvePrecedence(t *testing.T) {
	Convey("Given a caller holding both an auth token and a session token", t, func() {
		ctx := context.Background()
		now := time.Date(2026, 6, 1, 10, 0, 0, 0, time.UTC)
		r, tokens := newFixture(&now)

		userID := uuid.NewString()
		login := r.Login(ctx, token.Profile{UserID: userID, Email: "kana@example.com", DisplayName: "Kana"})
		sessionTok := tokens.Mint(ctx, "someone-else", token.KindSession, token.Payload{OwnerID: "someone-else"})

		req := identity.Request{
			AuthToken:    login.AuthToken,
			SessionToken: sessionTok.Value,
			Email:        "other@example.com",
			Signals:      fingerprint.Signals{SessionMarker: "m"},
		}

		Convey("When resolving", func() {
			sess := r.Resolve(ctx, req)

			Convey("Then the password-auth session wins", func() {
				So(sess.Method, ShouldEqual, identity.MethodPasswordAuth)
				So(sess.Identity, ShouldEqual, userID)
				So(sess.Authenticated, ShouldBeTrue)
				So(sess.Persistent, ShouldBeTrue)
				So(sess.Profile.DisplayName, ShouldEqual, "Kana")
			})
		})

		Convey("When the auth token has been revoked by logout", func() {
			So(r.Logout(ctx, userID), ShouldEqual, 1)
			sess := r.Resolve(ctx, req)

			Convey("Then the session token is used next", func() {
				So(sess.Method, ShouldEqual, identity.MethodSessionToken)
				So(sess.Identity, ShouldEqual, "someone-else")
				So(sess.Authenticated, ShouldBeFalse)
				So(sess.Persistent, ShouldBeTrue)
			})
		})

		Convey("When a session token is presented as the auth token", func() {
			req.AuthToken = sessionTok.Value
			sess := r.Resolve(ctx, req)

			Convey("Then it is not accepted as a login", func() {
				So(sess.Method, ShouldEqual, identity.MethodSessionToken)
			})
		})
	})
}

func TestResolveSessionTokenExpiry(t *testing.T) {
	Convey("Given a session token", t, func() {
		ctx := context.Background()
		now := time.Date(2026, 6, 1, 10, 0, 0, 0, time.UTC)
		r, tokens := newFixture(&now)
		tk := tokens.Mint(ctx, "u1", token.KindSession, token.Payload{OwnerID: "u1"})

		Convey("When resolving twice within the lifetime", func() {
			a := r.Resolve(ctx, identity.Request{SessionToken: tk.Value})
			now = now.Add(29 * 24 * time.Hour)
			b := r.Resolve(ctx, identity.Request{SessionToken: tk.Value})

			Convey("Then both resolutions yield the same identity", func() {
				So(a.Identity, ShouldEqual, "u1")
				So(b.Identity, ShouldEqual, a.Identity)
				So(b.SessionToken, ShouldEqual, tk.Value)
			})
		})

		Convey("When resolving after expiry", func() {
			now = now.Add(31 * 24 * time.Hour)
			sess := r.Resolve(ctx, identity.Request{SessionToken: tk.Value})

			Convey("Then the chain falls through and the token is swept", func() {
				So(sess.Method, ShouldEqual, identity.MethodEphemeral)
				So(tokens.Len(), ShouldEqual, 0)
			})
		})
	})
}

func TestResolveEmail(t *testing.T) {
	Convey("Given a caller who confirmed an email", t, func() {
		ctx := context.Background()
		now := time.Date(2026, 6, 1, 10, 0, 0, 0, time.UTC)
		r, tokens := newFixture(&now)

		Convey("When resolving twice", func() {
			a := r.Resolve(ctx, identity.Request{Email: " Kana@Example.com "})
			b := r.Resolve(ctx, identity.Request{Email: "kana@example.com"})

			Convey("Then the identity is a stable UUID and one token is minted", func() {
				So(a.Method, ShouldEqual, identity.MethodEmail)
				So(a.Persistent, ShouldBeTrue)
				So(a.Authenticated, ShouldBeFalse)
				So(a.Identity, ShouldEqual, b.Identity)
				So(a.Identity, ShouldEqual, identity.EmailIdentity("kana@example.com"))
				_, err := uuid.Parse(a.Identity)
				So(err, ShouldBeNil)
				So(a.SessionToken, ShouldEqual, b.SessionToken)
				So(tokens.Len(), ShouldEqual, 1)
			})

			Convey("Then the minted token resolves the same identity later", func() {
				c := r.Resolve(ctx, identity.Request{SessionToken: a.SessionToken})
				So(c.Method, ShouldEqual, identity.MethodSessionToken)
				So(c.Identity, ShouldEqual, a.Identity)
				So(c.Metadata["email"], ShouldEqual, "kana@example.com")
			})
		})

		Convey("When the email is malformed", func() {
			sess := r.Resolve(ctx, identity.Request{Email: "not-an-email", Signals: fingerprint.Signals{SessionMarker: "m"}})
			_, err := r.ConfirmEmail(ctx, "not-an-email")

			Convey("Then resolution falls through and confirmation fails", func() {
				So(sess.Method, ShouldEqual, identity.MethodFingerprint)
				So(err, ShouldEqual, identity.ErrInvalidEmail)
			})
		})
	})
}

func TestResolveFingerprint(t *testing.T) {
	Convey("Given a caller with only environment signals", t, func() {
		ctx := context.Background()
		now := time.Date(2026, 6, 1, 10, 0, 0, 0, time.UTC)
		r, _ := newFixture(&now)
		req := identity.Request{Signals: fingerprint.Signals{Host: "localhost", Port: "9080", SessionMarker: "browser-1"}}

		Convey("When resolving for the first time", func() {
			sess := r.Resolve(ctx, req)

			Convey("Then the identity is ephemeral and not yet stable", func() {
				So(sess.Method, ShouldEqual, identity.MethodFingerprint)
				So(strings.HasPrefix(sess.Identity, identity.EphemeralPrefix), ShouldBeTrue)
				So(len(sess.Identity), ShouldEqual, len(identity.EphemeralPrefix)+fingerprint.Length)
				So(sess.Persistent, ShouldBeFalse)
			})
		})

		Convey("When resolving again the same day", func() {
			first := r.Resolve(ctx, req)
			second := r.Resolve(ctx, req)

			Convey("Then the identity repeats and becomes stable", func() {
				So(second.Identity, ShouldEqual, first.Identity)
				So(second.Persistent, ShouldBeTrue)
				So(second.Authenticated, ShouldBeFalse)
			})
		})
	})
}

func TestResolveSurvivesStrategyPanic(t *testing.T) {
	Convey("Given a token store that panics", t, func() {
		now := time.Date(2026, 6, 1, 10, 0, 0, 0, time.UTC)
		store := panickyStore{Store: token.NewStore()}
		r := identity.NewResolver(store, fingerprint.NewGenerator(), identity.WithClock(func() time.Time { return now }))

		Convey("When resolving with tokens", func() {
			var sess identity.UserSession
			So(func() {
				sess = r.Resolve(context.Background(), identity.Request{AuthToken: "x", SessionToken: "y"})
			}, ShouldNotPanic)

			Convey("Then a well-formed ephemeral session comes back", func() {
				So(sess.Method, ShouldEqual, identity.MethodEphemeral)
				So(sess.Identity, ShouldNotBeBlank)
			})
		})
	})
}
