package history

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/okian/renshu/internal/adapters/repository"
	"github.com/okian/renshu/internal/domain/model"
	"github.com/okian/renshu/internal/domain/taxonomy"
)

// feedbackSeparator joins multiple stored feedback rows.
const feedbackSeparator = "\n\n"

// sessionLayout names the tables of a session-normalized generation.
type sessionLayout struct {
	gen        model.Generation
	sessions   string
	inputs     string
	scores     string
	feedback   string
	typeColumn string
	// extended adds word_count to inputs and ai_model to scores.
	extended bool
}

// sessionTranslator handles the normalized generations: one head row per
// attempt keyed by session_id, with inputs, scores and feedback as child
// rows.
type sessionTranslator struct {
	tx     *taxonomy.Taxonomy
	layout sessionLayout
}

// NewPracticeTranslator returns the generation 2 translator.
func NewPracticeTranslator(tx *taxonomy.Taxonomy) SchemaTranslator {
	return sessionTranslator{tx: tx, layout: sessionLayout{
		gen:        model.GenerationPractice,
		sessions:   repository.TablePracticeSessions,
		inputs:     repository.TablePracticeInputs,
		scores:     repository.TablePracticeScores,
		feedback:   repository.TablePracticeFeedback,
		typeColumn: "practice_type_id",
	}}
}

// NewExerciseTranslator returns the generation 3 translator.
func NewExerciseTranslator(tx *taxonomy.Taxonomy) SchemaTranslator {
	return sessionTranslator{tx: tx, layout: sessionLayout{
		gen:        model.GenerationExercise,
		sessions:   repository.TableExerciseSessions,
		inputs:     repository.TableExerciseInputs,
		scores:     repository.TableExerciseScores,
		feedback:   repository.TableExerciseFeedback,
		typeColumn: "exercise_type_id",
		extended:   true,
	}}
}

func (t sessionTranslator) Generation() model.Generation { return t.layout.gen }

// typeID maps key to this generation's id. Keys without one are stored under
// Unknown; the source label keeps them recoverable.
func (t sessionTranslator) typeID(key string) (int, bool) {
	id, err := t.tx.ID(key, t.layout.gen)
	if err == nil {
		return id, true
	}
	unknown, _ := t.tx.ID(taxonomy.KeyUnknown, t.layout.gen)
	return unknown, false
}

// childID orders child rows: ids sort in insertion order.
func childID(sessionID, kind string, i int) string {
	return fmt.Sprintf("%s-%s-%04d", sessionID, kind, i)
}

func (t sessionTranslator) Encode(rec model.PracticeRecord) ([]repository.Insert, error) {
	if rec.SessionID == "" {
		return nil, fmt.Errorf("%w: record has no session id", ErrMalformedRow)
	}
	l := t.layout
	typeID, _ := t.typeID(rec.PracticeTypeKey)

	status := rec.Status
	if status == "" {
		status = model.StatusCompleted
	}
	out := make([]repository.Insert, 0, 2+len(rec.Inputs)+len(rec.Scores))
	out = append(out, repository.Insert{Table: l.sessions, Row: repository.Row{
		"session_id":        rec.SessionID,
		"user_id":           rec.UserID,
		l.typeColumn:        typeID,
		"theme":             rec.Theme,
		"start_time":        rec.StartedAt,
		"end_time":          rec.EndedAt,
		"duration_seconds":  rec.DurationSeconds,
		"status":            status,
		"ai_model":          rec.AIModel,
		"source_label":      rec.SourceLabel,
		"schema_generation": int(l.gen),
	}})

	for i, f := range rec.Inputs {
		row := repository.Row{
			"id":          childID(rec.SessionID, "in", i),
			"session_id":  rec.SessionID,
			"input_type":  f.Name,
			"content":     f.Content,
			"input_order": i + 1,
		}
		if l.extended {
			row["word_count"] = utf8.RuneCountInString(f.Content)
		}
		out = append(out, repository.Insert{Table: l.inputs, Row: row})
	}

	for i, s := range rec.Scores {
		row := repository.Row{
			"id":             childID(rec.SessionID, "sc", i),
			"session_id":     rec.SessionID,
			"score_category": s.Category,
			"score_value":    s.Value,
			"max_score":      s.Max,
		}
		if l.extended {
			row["ai_model"] = rec.AIModel
		}
		out = append(out, repository.Insert{Table: l.scores, Row: row})
	}

	if rec.Feedback != "" {
		out = append(out, repository.Insert{Table: l.feedback, Row: repository.Row{
			"id":               childID(rec.SessionID, "fb", 0),
			"session_id":       rec.SessionID,
			"feedback_content": rec.Feedback,
			"feedback_type":    "overall",
		}})
	}
	return out, nil
}

func (t sessionTranslator) Fetch(ctx context.Context, store repository.Store, userID string, f Filter) ([]RawRecord, error) {
	l := t.layout
	q := repository.Query{
		Filters: []repository.Filter{repository.Eq("user_id", userID)},
		OrderBy: "start_time",
		Desc:    true,
		Limit:   f.Limit,
	}
	if f.Key != "" {
		id, own := t.typeID(f.Key)
		q.Filters = append(q.Filters, repository.Eq(l.typeColumn, id))
		if !own {
			q.Limit = 0
		}
	}

	heads, err := store.Select(ctx, l.sessions, q)
	if err != nil {
		return nil, err
	}
	if len(heads) == 0 {
		return nil, nil
	}

	ids := make([]string, len(heads))
	for i, h := range heads {
		ids[i] = h.String("session_id")
	}
	children := func(table string) (map[string][]repository.Row, error) {
		rows, err := store.Select(ctx, table, repository.Query{
			Filters: []repository.Filter{repository.In("session_id", ids)},
			OrderBy: "id",
		})
		if err != nil {
			return nil, err
		}
		by := make(map[string][]repository.Row, len(ids))
		for _, r := range rows {
			sid := r.String("session_id")
			by[sid] = append(by[sid], r)
		}
		return by, nil
	}

	inputs, err := children(l.inputs)
	if err != nil {
		return nil, err
	}
	scores, err := children(l.scores)
	if err != nil {
		return nil, err
	}
	feedback, err := children(l.feedback)
	if err != nil {
		return nil, err
	}

	out := make([]RawRecord, 0, len(heads))
	for _, h := range heads {
		sid := h.String("session_id")
		out = append(out, RawRecord{
			Generation: l.gen,
			Head:       h,
			Inputs:     inputs[sid],
			Scores:     scores[sid],
			Feedback:   feedback[sid],
		})
	}
	return out, nil
}

func (t sessionTranslator) MigrateRead(raw RawRecord) (model.PracticeRecord, error) {
	l := t.layout
	if err := checkGeneration(raw, l.gen); err != nil {
		return model.PracticeRecord{}, err
	}
	h := raw.Head
	if h.String("session_id") == "" {
		return model.PracticeRecord{}, fmt.Errorf("%w: head row without session_id", ErrMalformedRow)
	}

	key := taxonomy.KeyUnknown
	if e, ok := t.tx.ByID(l.gen, h.Int(l.typeColumn)); ok {
		key = e.Key
	}
	label := h.String("source_label")
	cls := classificationFor(t.tx, key, label)

	inputs, err := orderedInputs(raw.Inputs)
	if err != nil {
		return model.PracticeRecord{}, err
	}

	scores := make([]model.Score, 0, len(raw.Scores))
	for _, r := range raw.Scores {
		s := model.Score{
			Category: r.String("score_category"),
			Value:    r.Float("score_value"),
			Max:      r.Float("max_score"),
		}
		if s.Max <= 0 {
			s.Max = model.InferMax(s.Value)
		}
		scores = append(scores, s)
	}

	parts := make([]string, 0, len(raw.Feedback))
	for _, r := range raw.Feedback {
		if c := r.String("feedback_content"); c != "" {
			parts = append(parts, c)
		}
	}

	status := h.String("status")
	if status == "" {
		status = model.StatusCompleted
	}

	return model.PracticeRecord{
		SessionID:       h.String("session_id"),
		UserID:          h.String("user_id"),
		PracticeTypeKey: cls.Key,
		Category:        string(cls.Category),
		Subcategory:     cls.Subcategory,
		SourceLabel:     label,
		Theme:           h.String("theme"),
		StartedAt:       h.Time("start_time").UTC(),
		EndedAt:         h.Time("end_time").UTC(),
		DurationSeconds: h.Int("duration_seconds"),
		Inputs:          inputs,
		Scores:          scores,
		Feedback:        strings.Join(parts, feedbackSeparator),
		AIModel:         h.String("ai_model"),
		Status:          status,
		Generation:      l.gen,
	}, nil
}

func (t sessionTranslator) Delete(ctx context.Context, store repository.Store, userID, key string) (int64, error) {
	l := t.layout
	raws, err := t.Fetch(ctx, store, userID, Filter{Key: key})
	if err != nil {
		return 0, err
	}
	var ids []string
	for _, raw := range raws {
		rec, err := t.MigrateRead(raw)
		if err != nil || !keep(rec, Filter{Key: key}) {
			continue
		}
		ids = append(ids, rec.SessionID)
	}
	if len(ids) == 0 {
		return 0, nil
	}

	filter := []repository.Filter{repository.In("session_id", ids)}
	var errs []error
	for _, child := range []string{l.inputs, l.scores, l.feedback} {
		if _, err := store.Delete(ctx, child, filter); err != nil {
			errs = append(errs, err)
		}
	}
	n, err := store.Delete(ctx, l.sessions, filter)
	if err != nil {
		errs = append(errs, err)
	}
	return n, errors.Join(errs...)
}

// orderedInputs sorts input rows by input_order. Rows may be numbered from
// 0 or from 1; only a repeated order is malformed.
func orderedInputs(rows []repository.Row) (model.Fields, error) {
	sorted := append([]repository.Row(nil), rows...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Int("input_order") < sorted[j].Int("input_order")
	})
	inputs := make(model.Fields, 0, len(sorted))
	for i, r := range sorted {
		if i > 0 && r.Int("input_order") == sorted[i-1].Int("input_order") {
			return nil, fmt.Errorf("%w: input order %d repeated", ErrMalformedRow, r.Int("input_order"))
		}
		inputs = append(inputs, model.Field{Name: r.String("input_type"), Content: r.String("content")})
	}
	return inputs, nil
}
