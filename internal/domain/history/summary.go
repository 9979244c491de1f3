package history

import (
	"math"
	"strings"
	"time"

	"github.com/okian/renshu/internal/domain/model"
)

// Summary aggregates a list of records.
type Summary struct {
	TotalSessions        int            `json:"total_sessions"`
	ByType               map[string]int `json:"by_type"`
	AverageScorePercent  float64        `json:"average_score_percent"`
	TotalDurationSeconds int            `json:"total_duration_seconds"`
	AverageDuration      float64        `json:"average_duration_seconds"`
	PracticeDays         int            `json:"practice_days"`
	FirstPractice        time.Time      `json:"first_practice,omitempty"`
	LastPractice         time.Time      `json:"last_practice,omitempty"`
}

// Summarize computes totals over records. Scores are averaged as a percent
// of their maximum; days are counted in loc (UTC when nil).
func Summarize(records []model.PracticeRecord, loc *time.Location) Summary {
	if loc == nil {
		loc = time.UTC
	}
	s := Summary{ByType: make(map[string]int)}
	if len(records) == 0 {
		return s
	}

	days := make(map[string]struct{})
	var pctSum float64
	var pctN int
	for _, r := range records {
		s.TotalSessions++
		s.ByType[r.PracticeTypeKey]++
		s.TotalDurationSeconds += r.DurationSeconds
		days[r.StartedAt.In(loc).Format(time.DateOnly)] = struct{}{}

		if s.FirstPractice.IsZero() || r.StartedAt.Before(s.FirstPractice) {
			s.FirstPractice = r.StartedAt
		}
		if r.StartedAt.After(s.LastPractice) {
			s.LastPractice = r.StartedAt
		}
		for _, sc := range r.Scores {
			if sc.Max > 0 {
				pctSum += sc.Percent()
				pctN++
			}
		}
	}
	s.PracticeDays = len(days)
	s.AverageDuration = float64(s.TotalDurationSeconds) / float64(s.TotalSessions)
	if pctN > 0 {
		s.AverageScorePercent = math.Round(pctSum/float64(pctN)*10) / 10
	}
	return s
}

// RecentThemes returns distinct themes of newest-first records, up to limit.
func RecentThemes(records []model.PracticeRecord, limit int) []string {
	var out []string
	seen := make(map[string]struct{})
	for _, r := range records {
		t := strings.TrimSpace(r.Theme)
		if t == "" || t == NoTheme {
			continue
		}
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out
}

// ThemeUsedSince reports whether theme appears among records started at or
// after since.
func ThemeUsedSince(records []model.PracticeRecord, theme string, since time.Time) bool {
	theme = strings.TrimSpace(theme)
	if theme == "" {
		return false
	}
	for _, r := range records {
		if !r.StartedAt.Before(since) && strings.TrimSpace(r.Theme) == theme {
			return true
		}
	}
	return false
}
