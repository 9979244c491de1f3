// Package taxonomy classifies free-form practice type labels into a stable
// hierarchy and maps each entry to the numeric ids every storage generation
// uses.
package taxonomy

import (
	"context"
	"fmt"
	"strings"

	"github.com/okian/renshu/internal/domain/model"
	"github.com/okian/renshu/pkg/logger"
	"github.com/okian/renshu/pkg/metrics"
)

// Rule names the classification step that matched.
type Rule string

const (
	RuleExact     Rule = "exact"
	RulePrefix    Rule = "prefix"
	RuleSubstring Rule = "substring"
	RuleUnknown   Rule = "unknown"
)

// Classification is the outcome of classifying one label.
type Classification struct {
	Category    Category
	Subcategory string
	Key         string
	// Family is the prefix family that matched, empty for exact and unknown.
	Family string
	// Tag is the purpose or variant the extraction shape carries.
	Tag  string
	Rule Rule
}

// Known reports whether the label matched something other than Unknown.
func (c Classification) Known() bool { return c.Rule != RuleUnknown }

// Taxonomy is the immutable, read-only lookup over the static table.
type Taxonomy struct {
	logger logger.Logger
	byKey  map[string]Entry
	exact  map[string]string
	byID   map[model.Generation]map[int]string
}

// New indexes the static table.
func New(opts ...Option) *Taxonomy {
	t := &Taxonomy{
		logger: logger.Nop(),
		byKey:  make(map[string]Entry, len(entries)),
		exact:  make(map[string]string, len(entries)*4),
		byID:   make(map[model.Generation]map[int]string),
	}
	for _, opt := range opts {
		opt(t)
	}
	for _, e := range entries {
		t.byKey[e.Key] = e
		t.exact[normalize(e.Key)] = e.Key
		t.exact[normalize(e.Label)] = e.Key
		for _, a := range e.Aliases {
			t.exact[normalize(a)] = e.Key
		}
		for g, id := range e.IDs {
			if t.byID[g] == nil {
				t.byID[g] = make(map[int]string)
			}
			t.byID[g][id] = e.Key
		}
	}
	return t
}

// Classify maps label to an entry. It never fails: a label that matches no
// rule is classified as Unknown, logged and counted.
func (t *Taxonomy) Classify(ctx context.Context, label string) Classification {
	c, err := t.Strict(label)
	if err != nil {
		t.logger.Warn(ctx, "practice type not recognized", logger.String("label", label))
		metrics.RecordTaxonomyMiss()
	}
	return c
}

// Strict is Classify without the logging; it returns ErrClassificationMiss
// alongside the Unknown classification.
func (t *Taxonomy) Strict(label string) (Classification, error) {
	n := normalize(label)
	if n == "" {
		return t.unknown(), fmt.Errorf("%w: empty label", ErrClassificationMiss)
	}
	if key, ok := t.exact[n]; ok {
		return t.classification(key, "", RuleExact), nil
	}
	for _, f := range families {
		for _, m := range f.markers {
			if strings.HasPrefix(n, normalize(m)) {
				return t.classification(f.pick(n), f.name, RulePrefix), nil
			}
		}
	}
	for _, f := range families {
		for _, m := range f.markers {
			if strings.Contains(n, normalize(m)) {
				return t.classification(f.pick(n), f.name, RuleSubstring), nil
			}
		}
	}
	return t.unknown(), fmt.Errorf("%w: %q", ErrClassificationMiss, label)
}

func (t *Taxonomy) classification(key, fam string, rule Rule) Classification {
	e := t.byKey[key]
	return Classification{
		Category:    e.Category,
		Subcategory: e.Subcategory,
		Key:         e.Key,
		Family:      fam,
		Tag:         e.Tag,
		Rule:        rule,
	}
}

func (t *Taxonomy) unknown() Classification {
	return t.classification(KeyUnknown, "", RuleUnknown)
}

// Lookup returns the entry for a canonical key.
func (t *Taxonomy) Lookup(key string) (Entry, bool) {
	e, ok := t.byKey[key]
	return e, ok
}

// ClassificationOf rebuilds the classification of a stored key. Unknown keys
// come back as the Unknown entry.
func (t *Taxonomy) ClassificationOf(key string) Classification {
	if _, ok := t.byKey[key]; !ok || key == KeyUnknown {
		return t.unknown()
	}
	return t.classification(key, "", RuleExact)
}

// ID returns the numeric id of key in generation g.
func (t *Taxonomy) ID(key string, g model.Generation) (int, error) {
	e, ok := t.byKey[key]
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrUnknownKey, key)
	}
	id, ok := e.ID(g)
	if !ok {
		return 0, fmt.Errorf("%w: %q has no id in generation %d", ErrNoGenerationID, key, g)
	}
	return id, nil
}

// ByID resolves a numeric id of generation g back to its entry.
func (t *Taxonomy) ByID(g model.Generation, id int) (Entry, bool) {
	key, ok := t.byID[g][id]
	if !ok {
		return Entry{}, false
	}
	return t.byKey[key], true
}

// Entries lists the entries that exist in generation g, in table order.
func (t *Taxonomy) Entries(g model.Generation) []Entry {
	out := make([]Entry, 0, len(entries))
	for _, e := range entries {
		if e.Since <= g {
			out = append(out, e)
		}
	}
	return out
}

var labelReplacer = strings.NewReplacer("（", "(", "）", ")", "　", " ", "＋", "+", "－", "-")

func normalize(s string) string {
	s = labelReplacer.Replace(strings.ToLower(strings.TrimSpace(s)))
	return strings.Join(strings.Fields(s), " ")
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
