package account_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/okian/renshu/internal/adapters/repository"
	"github.com/okian/renshu/internal/domain/account"
	. "github.com/smartystreets/goconvey/convey"
)

const strong = "Str0ng!pass"

func TestRegister(t *testing.T) {
	Convey("Given an empty user table", t, func() {
		ctx := context.Background()
		store := repository.NewMemory()
		m := account.NewManager(store, account.WithIterations(1000))

		Convey("When a valid account is registered", func() {
			p, err := m.Register(ctx, " Taro@Example.com ", strong, "Taro")

			Convey("Then it is stored active with a hashed password", func() {
				So(err, ShouldBeNil)
				So(p.Email, ShouldEqual, "taro@example.com")
				So(p.Status, ShouldEqual, account.StatusActive)
				So(store.Len(repository.TableUsers), ShouldEqual, 1)

				rows, _ := store.Select(ctx, repository.TableUsers, repository.Query{})
				hash := rows[0].String("password_hash")
				So(hash, ShouldNotContainSubstring, strong)
				So(len(hash), ShouldEqual, 128)
			})

			Convey("Then the same email cannot register again", func() {
				_, err := m.Register(ctx, "taro@example.com", strong, "Other")
				So(errors.Is(err, account.ErrEmailTaken), ShouldBeTrue)
			})
		})

		Convey("When the input is not acceptable", func() {
			_, err := m.Register(ctx, "not-an-email", strong, "x")
			So(errors.Is(err, account.ErrInvalidEmail), ShouldBeTrue)

			_, err = m.Register(ctx, "a@example.com", "weakpass", "x")
			So(errors.Is(err, account.ErrWeakPassword), ShouldBeTrue)
			So(err.Error(), ShouldContainSubstring, "an uppercase letter")
			So(store.Len(repository.TableUsers), ShouldEqual, 0)
		})

		Convey("When no display name is given", func() {
			p, err := m.Register(ctx, "hanako@example.com", strong, " ")
			So(err, ShouldBeNil)
			So(p.DisplayName, ShouldEqual, "hanako")
		})
	})
}

func TestAuthenticate(t *testing.T) {
	Convey("Given a registered account", t, func() {
		ctx := context.Background()
		now := time.Date(2026, 6, 1, 9, 0, 0, 0, time.UTC)
		m := account.NewManager(repository.NewMemory(),
			account.WithIterations(1000),
			account.WithClock(func() time.Time { return now }))
		reg, err := m.Register(ctx, "taro@example.com", strong, "Taro")
		So(err, ShouldBeNil)

		Convey("When the password is right", func() {
			p, err := m.Authenticate(ctx, "TARO@example.com", strong)

			Convey("Then the profile is returned and the login stamped", func() {
				So(err, ShouldBeNil)
				So(p.UserID, ShouldEqual, reg.UserID)
				So(p.LastLogin.Equal(now), ShouldBeTrue)
				got, _ := m.Get(ctx, reg.UserID)
				So(got.LastLogin.Equal(now), ShouldBeTrue)
			})
		})

		Convey("When the email is unknown", func() {
			_, err := m.Authenticate(ctx, "nobody@example.com", strong)
			So(errors.Is(err, account.ErrInvalidCredentials), ShouldBeTrue)
		})

		Convey("When the password is wrong five times", func() {
			for i := 0; i < account.DefaultMaxFailures; i++ {
				_, err := m.Authenticate(ctx, "taro@example.com", "Wr0ng!pass")
				So(errors.Is(err, account.ErrInvalidCredentials), ShouldBeTrue)
			}

			Convey("Then even the right password is refused while locked", func() {
				_, err := m.Authenticate(ctx, "taro@example.com", strong)
				So(errors.Is(err, account.ErrAccountLocked), ShouldBeTrue)
			})

			Convey("Then the lock lifts after the lockout period", func() {
				now = now.Add(account.DefaultLockout + time.Second)
				_, err := m.Authenticate(ctx, "taro@example.com", strong)
				So(err, ShouldBeNil)
			})
		})

		Convey("When four failures are followed by a success", func() {
			for i := 0; i < account.DefaultMaxFailures-1; i++ {
				_, _ = m.Authenticate(ctx, "taro@example.com", "Wr0ng!pass")
			}
			_, err := m.Authenticate(ctx, "taro@example.com", strong)
			So(err, ShouldBeNil)

			Convey("Then the failure count starts over", func() {
				_, _ = m.Authenticate(ctx, "taro@example.com", "Wr0ng!pass")
				_, err := m.Authenticate(ctx, "taro@example.com", strong)
				So(err, ShouldBeNil)
			})
		})

		Convey("When the account is suspended", func() {
			So(m.SetStatus(ctx, reg.UserID, account.StatusSuspended), ShouldBeNil)
			_, err := m.Authenticate(ctx, "taro@example.com", strong)
			So(errors.Is(err, account.ErrAccountSuspended), ShouldBeTrue)
		})

		Convey("When the password is changed", func() {
			So(m.ChangePassword(ctx, reg.UserID, strong, "N3w!secret"), ShouldBeNil)

			_, err := m.Authenticate(ctx, "taro@example.com", strong)
			So(errors.Is(err, account.ErrInvalidCredentials), ShouldBeTrue)
			_, err = m.Authenticate(ctx, "taro@example.com", "N3w!secret")
			So(err, ShouldBeNil)

			err = m.ChangePassword(ctx, reg.UserID, "wrong", "An0ther!one")
			So(errors.Is(err, account.ErrInvalidCredentials), ShouldBeTrue)
		})
	})

	Convey("A manager without a store refuses every call", t, func() {
		m := account.NewManager(nil)
		_, err := m.Authenticate(context.Background(), "taro@example.com", strong)
		So(errors.Is(err, account.ErrNoStore), ShouldBeTrue)
		So(errors.Is(m.SetStatus(context.Background(), "x", account.StatusActive), account.ErrNoStore), ShouldBeTrue)
	})
}

func TestPasswordHashing(t *testing.T) {
	Convey("Hashes are salted and verify only the original password", t, func() {
		a, err := account.HashPassword(strong, 1000)
		So(err, ShouldBeNil)
		b, _ := account.HashPassword(strong, 1000)

		So(a, ShouldNotEqual, b)
		So(account.VerifyPassword(a, strong, 1000), ShouldBeTrue)
		So(account.VerifyPassword(a, strong+"x", 1000), ShouldBeFalse)
		So(account.VerifyPassword(a, strong, 2000), ShouldBeFalse)
		So(account.VerifyPassword(a[:64], strong, 1000), ShouldBeFalse)
		So(strings.Trim(a[:64], "0123456789abcdef"), ShouldBeEmpty)
	})

	Convey("Strength rules name every missing class", t, func() {
		So(account.CheckStrength(strong), ShouldBeEmpty)
		So(account.CheckStrength("abc"), ShouldHaveLength, 4)
		So(account.CheckStrength("ABCDEFGH1!"), ShouldResemble, []string{"a lowercase letter"})
	})
}
