package history_test

import (
	"testing"
	"time"

	"github.com/okian/renshu/internal/domain/history"
	"github.com/okian/renshu/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

func TestSummarize(t *testing.T) {
	Convey("Given two attempts on the same UTC day", t, func() {
		recs := []model.PracticeRecord{
			{
				PracticeTypeKey: "interview_practice_general",
				Theme:           "rural medicine",
				StartedAt:       base.Add(11 * time.Hour),
				DurationSeconds: 300,
				Scores:          []model.Score{{Category: "attitude", Value: 72, Max: 100}, {Category: "logic", Value: 5, Max: 10}},
			},
			{
				PracticeTypeKey: "essay_practice",
				Theme:           "rural medicine",
				StartedAt:       base,
				DurationSeconds: 600,
				Scores:          []model.Score{{Category: "logic", Value: 8, Max: 10}},
			},
		}

		Convey("When summarized in UTC", func() {
			s := history.Summarize(recs, nil)

			So(s.TotalSessions, ShouldEqual, 2)
			So(s.ByType, ShouldResemble, map[string]int{"interview_practice_general": 1, "essay_practice": 1})
			So(s.AverageScorePercent, ShouldEqual, 67.3)
			So(s.TotalDurationSeconds, ShouldEqual, 900)
			So(s.AverageDuration, ShouldEqual, 450.0)
			So(s.PracticeDays, ShouldEqual, 1)
			So(s.FirstPractice.Equal(base), ShouldBeTrue)
			So(s.LastPractice.Equal(base.Add(11*time.Hour)), ShouldBeTrue)
		})

		Convey("When summarized in a zone where the later attempt falls on the next day", func() {
			s := history.Summarize(recs, time.FixedZone("JST", 9*3600))
			So(s.PracticeDays, ShouldEqual, 2)
		})
	})

	Convey("An empty history summarizes to zeros", t, func() {
		s := history.Summarize(nil, nil)
		So(s.TotalSessions, ShouldEqual, 0)
		So(s.ByType, ShouldBeEmpty)
		So(s.FirstPractice.IsZero(), ShouldBeTrue)
	})
}

func TestRecentThemes(t *testing.T) {
	Convey("Given newest-first records with repeats", t, func() {
		recs := []model.PracticeRecord{
			{Theme: "sepsis", StartedAt: base.Add(3 * time.Hour)},
			{Theme: history.NoTheme, StartedAt: base.Add(2 * time.Hour)},
			{Theme: "sepsis", StartedAt: base.Add(time.Hour)},
			{Theme: "triage", StartedAt: base},
		}

		So(history.RecentThemes(recs, 0), ShouldResemble, []string{"sepsis", "triage"})
		So(history.RecentThemes(recs, 1), ShouldResemble, []string{"sepsis"})

		Convey("Theme reuse is bounded by the start time", func() {
			So(history.ThemeUsedSince(recs, "triage", base), ShouldBeTrue)
			So(history.ThemeUsedSince(recs, "triage", base.Add(time.Minute)), ShouldBeFalse)
			So(history.ThemeUsedSince(recs, " sepsis ", base.Add(2*time.Hour)), ShouldBeTrue)
			So(history.ThemeUsedSince(recs, "", base), ShouldBeFalse)
		})
	})
}
