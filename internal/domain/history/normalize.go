package history

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/okian/renshu/internal/domain/model"
	"github.com/okian/renshu/internal/domain/taxonomy"
)

const (
	// DefaultAIModel is recorded when a submission names no model.
	DefaultAIModel = "gemini-pro"
	// NoTheme is used when no theme can be derived.
	NoTheme = "テーマ未設定"
	// NoDuration is displayed for attempts without a duration.
	NoDuration = "未記録"

	themeRunes    = 100
	themeMinRunes = 10
)

// Normalize turns a submission into its canonical record. The caller
// assigns SessionID.
func Normalize(tx *taxonomy.Taxonomy, userID string, sub model.Submission, cls taxonomy.Classification, now time.Time) model.PracticeRecord {
	started := sub.StartedAt
	if started.IsZero() {
		started = now
	}
	started = started.UTC().Truncate(time.Microsecond)

	ended := sub.EndedAt
	if !ended.IsZero() {
		ended = ended.UTC().Truncate(time.Microsecond)
	}
	duration := sub.DurationSeconds
	if duration <= 0 && !ended.IsZero() && ended.After(started) {
		duration = int(ended.Sub(started) / time.Second)
	}
	if duration < 0 {
		duration = 0
	}
	if ended.IsZero() {
		ended = started.Add(time.Duration(duration) * time.Second)
	}

	aiModel := strings.TrimSpace(sub.AIModel)
	if aiModel == "" {
		aiModel = DefaultAIModel
	}

	scores := make([]model.Score, 0, len(sub.Scores))
	for _, s := range sub.Scores {
		if s.Max <= 0 {
			s.Max = model.InferMax(s.Value)
		}
		scores = append(scores, s)
	}

	return model.PracticeRecord{
		UserID:          userID,
		PracticeTypeKey: cls.Key,
		Category:        string(cls.Category),
		Subcategory:     cls.Subcategory,
		SourceLabel:     strings.TrimSpace(sub.Type),
		Theme:           DeriveTheme(sub.Theme, sub.Inputs),
		StartedAt:       started,
		EndedAt:         ended,
		DurationSeconds: duration,
		Inputs:          tx.Extract(cls, sub.Inputs).Flatten(),
		Scores:          scores,
		Feedback:        sub.Feedback,
		AIModel:         aiModel,
		Status:          model.StatusCompleted,
	}
}

// Denormalize converts a canonical record into the label-keyed legacy shape.
func Denormalize(tx *taxonomy.Taxonomy, rec model.PracticeRecord) model.LegacyRecord {
	label := rec.SourceLabel
	if label == "" {
		if e, ok := tx.Lookup(rec.PracticeTypeKey); ok {
			label = e.Label
		}
	}

	scores := make(map[string]model.LegacyScore, len(rec.Scores))
	for _, s := range rec.Scores {
		scores[s.Category] = model.LegacyScore{Score: s.Value, Max: s.Max}
	}

	return model.LegacyRecord{
		SessionID:       rec.SessionID,
		Type:            label,
		PracticeTypeKey: rec.PracticeTypeKey,
		Theme:           rec.Theme,
		Date:            rec.StartedAt,
		DurationSeconds: rec.DurationSeconds,
		DurationDisplay: FormatDuration(rec.DurationSeconds),
		Inputs:          tx.Parse(rec.PracticeTypeKey, rec.Inputs).Legacy(),
		Scores:          scores,
		Feedback:        rec.Feedback,
		AIModel:         rec.AIModel,
		Buffered:        rec.Buffered,
	}
}

// DeriveTheme picks the explicit theme, then the theme input, then a
// shortened question, then the first substantial input.
func DeriveTheme(explicit string, inputs model.Fields) string {
	if t := strings.TrimSpace(explicit); t != "" {
		return t
	}
	if t := strings.TrimSpace(inputs.Value(taxonomy.FieldTheme)); t != "" {
		return t
	}
	if q := strings.TrimSpace(inputs.Value("question")); q != "" {
		return shorten(q)
	}
	for _, f := range inputs {
		if c := strings.TrimSpace(f.Content); utf8.RuneCountInString(c) > themeMinRunes {
			return shorten(c)
		}
	}
	return NoTheme
}

func shorten(s string) string {
	if utf8.RuneCountInString(s) <= themeRunes {
		return s
	}
	return string([]rune(s)[:themeRunes]) + "..."
}

// FormatDuration renders seconds as X分Y秒.
func FormatDuration(seconds int) string {
	if seconds <= 0 {
		return NoDuration
	}
	return fmt.Sprintf("%d分%d秒", seconds/60, seconds%60)
}
