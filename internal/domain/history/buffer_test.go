package history_test

import (
	"fmt"
	"testing"
	"time"

	"github.com/okian/renshu/internal/domain/history"
	"github.com/okian/renshu/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

func TestBuffer(t *testing.T) {
	Convey("Given a buffer of three records per identity", t, func() {
		b := history.NewBuffer(3, 0)
		add := func(user, key string, i int) bool {
			return b.Add(model.PracticeRecord{
				UserID:          user,
				PracticeTypeKey: key,
				SessionID:       fmt.Sprintf("%s-%d", key, i),
				StartedAt:       base.Add(time.Duration(i) * time.Minute),
				Generation:      model.GenerationExercise,
			})
		}

		Convey("When records are added past capacity", func() {
			evictions := 0
			for i := 0; i < 5; i++ {
				if add("u1", "essay_practice", i) {
					evictions++
				}
			}
			add("u2", "essay_practice", 0)

			Convey("Then the oldest go and identities are independent", func() {
				So(evictions, ShouldEqual, 2)
				list := b.List("u1")
				So(list, ShouldHaveLength, 3)
				So(list[0].StartedAt.Equal(base.Add(4*time.Minute)), ShouldBeTrue)
				So(list[2].StartedAt.Equal(base.Add(2*time.Minute)), ShouldBeTrue)
				So(b.List("u2"), ShouldHaveLength, 1)
				So(b.Len(), ShouldEqual, 4)
				So(b.Capacity(), ShouldEqual, 3)
			})

			Convey("Then buffered records are marked and untagged", func() {
				So(b.List("u1")[0].Buffered, ShouldBeTrue)
				So(b.List("u1")[0].Generation, ShouldEqual, model.Generation(0))
			})
		})

		Convey("When records are removed by key", func() {
			add("u1", "essay_practice", 0)
			add("u1", "free_writing", 1)
			add("u1", "essay_practice", 2)

			So(b.Remove("u1", "essay_practice"), ShouldEqual, 2)
			So(b.List("u1"), ShouldHaveLength, 1)
			So(b.Remove("u1", ""), ShouldEqual, 1)
			So(b.List("u1"), ShouldBeEmpty)
			So(b.Len(), ShouldEqual, 0)
		})

		Convey("When a listed record is modified", func() {
			add("u1", "essay_practice", 0)
			list := b.List("u1")
			list[0].Theme = "changed"

			So(b.List("u1")[0].Theme, ShouldBeBlank)
		})
	})

	Convey("A non-positive capacity uses the default", t, func() {
		b := history.NewBuffer(0, -1)
		So(b.Capacity(), ShouldEqual, history.DefaultCapacity)
		So(b.TotalCapacity(), ShouldEqual, history.DefaultTotalCapacity)
	})
}

func TestBufferTotalBound(t *testing.T) {
	Convey("Given a buffer of five records overall", t, func() {
		b := history.NewBuffer(3, 5)
		add := func(user string, i int) bool {
			return b.Add(model.PracticeRecord{
				UserID:          user,
				PracticeTypeKey: "essay_practice",
				SessionID:       fmt.Sprintf("%s-%d", user, i),
				StartedAt:       base.Add(time.Duration(i) * time.Minute),
			})
		}

		Convey("When many identities write one record each", func() {
			evictions := 0
			for i := 0; i < 50; i++ {
				if add(fmt.Sprintf("ephemeral:%02d", i), i) {
					evictions++
				}
			}

			Convey("Then only the five newest records remain", func() {
				So(evictions, ShouldEqual, 45)
				So(b.Len(), ShouldEqual, 5)
				So(b.Identities(), ShouldEqual, 5)
				So(b.List("ephemeral:00"), ShouldBeEmpty)
				So(b.List("ephemeral:49"), ShouldHaveLength, 1)
				So(b.List("ephemeral:45"), ShouldHaveLength, 1)
				So(b.List("ephemeral:44"), ShouldBeEmpty)
			})
		})

		Convey("When the oldest record overall belongs to a busy identity", func() {
			add("u1", 0)
			add("u1", 1)
			add("u2", 2)
			add("u2", 3)
			add("u1", 4)
			add("u3", 5)

			Convey("Then that identity loses its oldest record only", func() {
				So(b.Len(), ShouldEqual, 5)
				u1 := b.List("u1")
				So(u1, ShouldHaveLength, 2)
				So(u1[0].SessionID, ShouldEqual, "u1-4")
				So(u1[1].SessionID, ShouldEqual, "u1-1")
				So(b.List("u2"), ShouldHaveLength, 2)
			})
		})

		Convey("When records are removed", func() {
			for i := 0; i < 5; i++ {
				add("u1", i)
			}
			So(b.Remove("u1", ""), ShouldEqual, 3)
			add("u2", 9)

			Convey("Then the freed room is reused", func() {
				So(b.Len(), ShouldEqual, 1)
				So(b.List("u2"), ShouldHaveLength, 1)
			})
		})
	})
}
