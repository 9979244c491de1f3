package history_test

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/okian/renshu/internal/domain/history"
	"github.com/okian/renshu/internal/domain/model"
	"github.com/okian/renshu/internal/domain/taxonomy"
	. "github.com/smartystreets/goconvey/convey"
)

func TestNormalize(t *testing.T) {
	Convey("Given a bare submission", t, func() {
		tx := taxonomy.New()
		now := time.Date(2026, 6, 1, 9, 0, 0, 123456789, time.FixedZone("JST", 9*3600))
		sub := model.Submission{
			Type:   "面接対策",
			Inputs: model.Fields{{Name: "question", Content: "Why rural practice?"}, {Name: "notes", Content: "   "}},
			Scores: []model.Score{{Category: "attitude", Value: 72}},
		}
		cls, _ := tx.Strict(sub.Type)

		Convey("When it is normalized", func() {
			rec := history.Normalize(tx, "u1", sub, cls, now)

			Convey("Then missing values get their defaults", func() {
				So(rec.StartedAt.Location(), ShouldEqual, time.UTC)
				So(rec.StartedAt.Equal(now.Truncate(time.Microsecond)), ShouldBeTrue)
				So(rec.EndedAt.Equal(rec.StartedAt), ShouldBeTrue)
				So(rec.AIModel, ShouldEqual, history.DefaultAIModel)
				So(rec.Status, ShouldEqual, model.StatusCompleted)
				So(rec.Scores[0].Max, ShouldEqual, 100.0)
				So(rec.SessionID, ShouldBeBlank)
			})

			Convey("Then blank inputs are dropped and the theme comes from the question", func() {
				So(rec.Inputs, ShouldResemble, model.Fields{{Name: "question", Content: "Why rural practice?"}})
				So(rec.Theme, ShouldEqual, "Why rural practice?")
				So(rec.PracticeTypeKey, ShouldEqual, "interview_practice_general")
				So(rec.Category, ShouldEqual, "interview")
			})
		})

		Convey("When only the end time is known", func() {
			sub.StartedAt = base
			sub.EndedAt = base.Add(95 * time.Second)
			rec := history.Normalize(tx, "u1", sub, cls, now)

			So(rec.DurationSeconds, ShouldEqual, 95)
		})

		Convey("When only the duration is known", func() {
			sub.StartedAt = base
			sub.DurationSeconds = 61
			rec := history.Normalize(tx, "u1", sub, cls, now)

			So(rec.EndedAt.Equal(base.Add(61*time.Second)), ShouldBeTrue)
		})
	})
}

func TestDenormalize(t *testing.T) {
	Convey("Given a canonical record without a source label", t, func() {
		tx := taxonomy.New()
		rec := model.PracticeRecord{
			SessionID:       "s1",
			PracticeTypeKey: "medical_exam_letter_style",
			StartedAt:       base,
			DurationSeconds: 125,
			Inputs: model.Fields{
				{Name: "translation", Content: "Dear editor"},
				{Name: taxonomy.FieldVariant, Content: "letter"},
			},
			Scores: []model.Score{{Category: "translation", Value: 7, Max: 10}},
		}

		Convey("When it is converted to the legacy shape", func() {
			got := history.Denormalize(tx, rec)

			Convey("Then the label, duration text and inputs follow the legacy form", func() {
				So(got.Type, ShouldEqual, "過去問スタイル採用試験 - Letter形式（翻訳 + 意見）")
				So(got.DurationDisplay, ShouldEqual, "2分5秒")
				So(got.Inputs, ShouldResemble, model.Fields{{Name: "translation", Content: "Dear editor"}})
				So(got.Scores["translation"], ShouldResemble, model.LegacyScore{Score: 7, Max: 10})
			})
		})
	})
}

func TestDeriveTheme(t *testing.T) {
	Convey("Given several input shapes", t, func() {
		long := strings.Repeat("あ", 120)

		So(history.DeriveTheme(" explicit ", model.Fields{{Name: "theme", Content: "other"}}), ShouldEqual, "explicit")
		So(history.DeriveTheme("", model.Fields{{Name: "theme", Content: "sepsis"}}), ShouldEqual, "sepsis")
		So(history.DeriveTheme("", model.Fields{{Name: "question", Content: long}}), ShouldEqual, strings.Repeat("あ", 100)+"...")
		So(history.DeriveTheme("", model.Fields{
			{Name: "a", Content: "short"},
			{Name: "b", Content: "a longer answer text"},
		}), ShouldEqual, "a longer answer text")
		So(history.DeriveTheme("", model.Fields{{Name: "a", Content: "short"}}), ShouldEqual, history.NoTheme)
		So(history.DeriveTheme("", nil), ShouldEqual, history.NoTheme)
	})
}

func TestFormatDuration(t *testing.T) {
	Convey("Durations render as minutes and seconds", t, func() {
		So(history.FormatDuration(600), ShouldEqual, "10分0秒")
		So(history.FormatDuration(59), ShouldEqual, "0分59秒")
		So(history.FormatDuration(3725), ShouldEqual, "62分5秒")
		So(history.FormatDuration(0), ShouldEqual, history.NoDuration)
	})
}

func TestCheckIdentity(t *testing.T) {
	Convey("Only structured identities can key durable rows", t, func() {
		So(history.CheckIdentity("0b6f8d8e-3c1a-4d5e-9f7a-2b3c4d5e6f70"), ShouldBeNil)
		So(errors.Is(history.CheckIdentity("u1"), history.ErrInvalidIdentityShape), ShouldBeTrue)
		So(errors.Is(history.CheckIdentity(""), history.ErrInvalidIdentityShape), ShouldBeTrue)
	})
}
