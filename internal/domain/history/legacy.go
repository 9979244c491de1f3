package history

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/okian/renshu/internal/adapters/repository"
	"github.com/okian/renshu/internal/domain/model"
	"github.com/okian/renshu/internal/domain/taxonomy"
)

// legacyTranslator handles the flat practice_history table, where one row
// holds an attempt with inputs and scores as JSON and the owner in
// session_id.
type legacyTranslator struct {
	tx *taxonomy.Taxonomy
}

// NewLegacyTranslator returns the generation 1 translator.
func NewLegacyTranslator(tx *taxonomy.Taxonomy) SchemaTranslator {
	return legacyTranslator{tx: tx}
}

func (legacyTranslator) Generation() model.Generation { return model.GenerationLegacy }

func (t legacyTranslator) Encode(rec model.PracticeRecord) ([]repository.Insert, error) {
	inputs, err := json.Marshal(rec.Inputs)
	if err != nil {
		return nil, fmt.Errorf("encode inputs: %w", err)
	}
	label := rec.SourceLabel
	if label == "" {
		if e, ok := t.tx.Lookup(rec.PracticeTypeKey); ok {
			label = e.Label
		}
	}
	return []repository.Insert{{
		Table: repository.TableHistory,
		Row: repository.Row{
			"id":                rec.SessionID,
			"session_id":        rec.UserID,
			"practice_type":     label,
			"theme":             rec.Theme,
			"inputs":            string(inputs),
			"scores":            encodeScores(rec.Scores),
			"feedback":          rec.Feedback,
			"ai_model":          rec.AIModel,
			"duration_seconds":  rec.DurationSeconds,
			"created_at":        rec.StartedAt,
			"schema_generation": int(model.GenerationLegacy),
		},
	}}, nil
}

func (t legacyTranslator) Fetch(ctx context.Context, store repository.Store, userID string, f Filter) ([]RawRecord, error) {
	q := repository.Query{
		Filters: []repository.Filter{repository.Eq("session_id", userID)},
		OrderBy: "created_at",
		Desc:    true,
	}
	if f.Key == "" {
		q.Limit = f.Limit
	}
	rows, err := store.Select(ctx, repository.TableHistory, q)
	if err != nil {
		return nil, err
	}
	out := make([]RawRecord, 0, len(rows))
	for _, r := range rows {
		out = append(out, RawRecord{Generation: model.GenerationLegacy, Head: r})
	}
	return out, nil
}

func (t legacyTranslator) MigrateRead(raw RawRecord) (model.PracticeRecord, error) {
	if err := checkGeneration(raw, model.GenerationLegacy); err != nil {
		return model.PracticeRecord{}, err
	}
	h := raw.Head

	var inputs model.Fields
	if s := strings.TrimSpace(h.String("inputs")); s != "" {
		if err := json.Unmarshal([]byte(s), &inputs); err != nil {
			return model.PracticeRecord{}, fmt.Errorf("%w: inputs of %s: %w", ErrMalformedRow, h.String("id"), err)
		}
	}
	scores, err := decodeScores(h.String("scores"))
	if err != nil {
		return model.PracticeRecord{}, fmt.Errorf("%w: scores of %s: %w", ErrMalformedRow, h.String("id"), err)
	}

	label := h.String("practice_type")
	cls, _ := t.tx.Strict(label)
	started := h.Time("created_at").UTC()
	duration := h.Int("duration_seconds")
	theme := h.String("theme")
	if theme == "" {
		theme = DeriveTheme("", inputs)
	}

	return model.PracticeRecord{
		SessionID:       h.String("id"),
		UserID:          h.String("session_id"),
		PracticeTypeKey: cls.Key,
		Category:        string(cls.Category),
		Subcategory:     cls.Subcategory,
		SourceLabel:     label,
		Theme:           theme,
		StartedAt:       started,
		EndedAt:         started.Add(time.Duration(duration) * time.Second),
		DurationSeconds: duration,
		Inputs:          inputs,
		Scores:          scores,
		Feedback:        h.String("feedback"),
		AIModel:         h.String("ai_model"),
		Status:          model.StatusCompleted,
		Generation:      model.GenerationLegacy,
	}, nil
}

func (t legacyTranslator) Delete(ctx context.Context, store repository.Store, userID, key string) (int64, error) {
	if key == "" {
		return store.Delete(ctx, repository.TableHistory, []repository.Filter{repository.Eq("session_id", userID)})
	}
	raws, err := t.Fetch(ctx, store, userID, Filter{Key: key})
	if err != nil {
		return 0, err
	}
	var ids []string
	for _, raw := range raws {
		rec, err := t.MigrateRead(raw)
		if err == nil && rec.PracticeTypeKey == key {
			ids = append(ids, rec.SessionID)
		}
	}
	if len(ids) == 0 {
		return 0, nil
	}
	return store.Delete(ctx, repository.TableHistory, []repository.Filter{repository.In("id", ids)})
}

// encodeScores writes {"category": {"score": v, "max": m}} keeping order.
func encodeScores(scores []model.Score) string {
	var b bytes.Buffer
	b.WriteByte('{')
	for i, s := range scores {
		if i > 0 {
			b.WriteByte(',')
		}
		k, _ := json.Marshal(s.Category)
		b.Write(k)
		b.WriteString(`:{"score":`)
		b.WriteString(strconv.FormatFloat(s.Value, 'f', -1, 64))
		b.WriteString(`,"max":`)
		b.WriteString(strconv.FormatFloat(s.Max, 'f', -1, 64))
		b.WriteByte('}')
	}
	b.WriteByte('}')
	return b.String()
}

// decodeScores accepts both {"cat": {"score": v, "max": m}} and the older
// {"cat": v}, inferring the maximum for bare values.
func decodeScores(s string) ([]model.Score, error) {
	s = strings.TrimSpace(s)
	if s == "" || s == "null" {
		return nil, nil
	}
	var ordered model.Fields
	if err := json.Unmarshal([]byte(s), &ordered); err != nil {
		return nil, err
	}
	out := make([]model.Score, 0, len(ordered))
	for _, f := range ordered {
		if v, err := strconv.ParseFloat(f.Content, 64); err == nil {
			out = append(out, model.Score{Category: f.Name, Value: v, Max: model.InferMax(v)})
			continue
		}
		var obj struct {
			Score *float64 `json:"score"`
			Max   *float64 `json:"max"`
		}
		if err := json.Unmarshal([]byte(f.Content), &obj); err != nil || obj.Score == nil {
			return nil, fmt.Errorf("score %q is neither a number nor an object", f.Name)
		}
		sc := model.Score{Category: f.Name, Value: *obj.Score}
		if obj.Max != nil && *obj.Max > 0 {
			sc.Max = *obj.Max
		} else {
			sc.Max = model.InferMax(sc.Value)
		}
		out = append(out, sc)
	}
	return out, nil
}
