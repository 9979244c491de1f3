package taxonomy

import (
	"encoding/json"
	"strings"

	"github.com/okian/renshu/internal/domain/model"
)

// ShapeKind names how a practice type's inputs are laid out.
type ShapeKind string

const (
	ShapeStandard          ShapeKind = "standard"
	ShapeKeywordGeneration ShapeKind = "keyword_generation"
	ShapePaperSearch       ShapeKind = "paper_search"
	ShapeExamStyle         ShapeKind = "exam_style"
)

// Input names used by the structured shapes.
const (
	FieldTheme          = "theme"
	FieldKeywords       = "keywords"
	FieldCategory       = "category"
	FieldPurpose        = "purpose"
	FieldSearchKeywords = "search_keywords"
	FieldPaperTitle     = "paper_title"
	FieldPaperAbstract  = "paper_abstract"
	FieldPaperAuthors   = "paper_authors"
	FieldPaperJournal   = "paper_journal"
	FieldCitations      = "citations"
	FieldVariant        = "variant"
)

// Extraction is the typed view of an attempt's inputs. Flatten gives the
// canonical stored inputs, Legacy the inputs shown to label-keyed callers.
type Extraction interface {
	Kind() ShapeKind
	Flatten() model.Fields
	Legacy() model.Fields
}

// Standard passes inputs through unchanged.
type Standard struct {
	Inputs model.Fields
}

func (Standard) Kind() ShapeKind { return ShapeStandard }
func (s Standard) Flatten() model.Fields { return s.Inputs.Clone() }
func (s Standard) Legacy() model.Fields { return s.Inputs.Clone() }

// KeywordGeneration carries three named inputs plus the derived purpose.
type KeywordGeneration struct {
	Theme    string
	Keywords string
	Category string
	Purpose  string
	Extra    model.Fields
}

func (KeywordGeneration) Kind() ShapeKind { return ShapeKeywordGeneration }

func (k KeywordGeneration) Flatten() model.Fields {
	out := k.named()
	if k.Purpose != "" {
		out = append(out, model.Field{Name: FieldPurpose, Content: k.Purpose})
	}
	return append(out, k.Extra...)
}

func (k KeywordGeneration) Legacy() model.Fields {
	return append(k.named(), k.Extra...)
}

func (k KeywordGeneration) named() model.Fields {
	return appendPresent(nil,
		FieldTheme, k.Theme,
		FieldKeywords, k.Keywords,
		FieldCategory, k.Category,
	)
}

// PaperSearch carries six named inputs. Citations is the parsed list;
// CitationsText keeps the submitted text, which is what gets stored.
type PaperSearch struct {
	SearchKeywords string
	PaperTitle     string
	PaperAbstract  string
	PaperAuthors   string
	PaperJournal   string
	Citations      []string
	CitationsText  string
	Extra          model.Fields
}

func (PaperSearch) Kind() ShapeKind { return ShapePaperSearch }

func (p PaperSearch) Flatten() model.Fields {
	out := appendPresent(nil,
		FieldSearchKeywords, p.SearchKeywords,
		FieldPaperTitle, p.PaperTitle,
		FieldPaperAbstract, p.PaperAbstract,
		FieldPaperAuthors, p.PaperAuthors,
		FieldPaperJournal, p.PaperJournal,
	)
	switch {
	case p.CitationsText != "":
		out = append(out, model.Field{Name: FieldCitations, Content: p.CitationsText})
	case len(p.Citations) > 0:
		raw, _ := json.Marshal(p.Citations)
		out = append(out, model.Field{Name: FieldCitations, Content: string(raw)})
	}
	return append(out, p.Extra...)
}

func (p PaperSearch) Legacy() model.Fields { return p.Flatten() }

// ExamStyle passes inputs through and carries the format variant.
type ExamStyle struct {
	Inputs  model.Fields
	Variant string
}

func (ExamStyle) Kind() ShapeKind { return ShapeExamStyle }

func (e ExamStyle) Flatten() model.Fields {
	out := e.Inputs.Clone()
	if e.Variant != "" {
		out = append(out, model.Field{Name: FieldVariant, Content: e.Variant})
	}
	return out
}

func (e ExamStyle) Legacy() model.Fields { return e.Inputs.Clone() }

// Extract builds the typed view of raw submission inputs for the entry c
// classified into. Inputs with empty content are dropped; a caller-supplied
// purpose or variant input is replaced by the derived one.
func (t *Taxonomy) Extract(c Classification, inputs model.Fields) Extraction {
	in := make(model.Fields, 0, len(inputs))
	for _, f := range inputs {
		if strings.TrimSpace(f.Content) != "" {
			in = append(in, f)
		}
	}
	return t.build(c.Key, c.Tag, in)
}

// Parse rebuilds the typed view from stored canonical inputs. A stored purpose
// or variant wins over the table default.
func (t *Taxonomy) Parse(key string, stored model.Fields) Extraction {
	tag := ""
	if e, ok := t.byKey[key]; ok {
		tag = e.Tag
	}
	switch t.shapeOf(key) {
	case ShapeKeywordGeneration:
		if v, ok := stored.Get(FieldPurpose); ok {
			tag = v
		}
	case ShapeExamStyle:
		if v, ok := stored.Get(FieldVariant); ok {
			tag = v
		}
	}
	return t.build(key, tag, stored)
}

func (t *Taxonomy) shapeOf(key string) ShapeKind {
	if e, ok := t.byKey[key]; ok {
		return e.Shape
	}
	return ShapeStandard
}

func (t *Taxonomy) build(key, tag string, in model.Fields) Extraction {
	switch t.shapeOf(key) {
	case ShapeKeywordGeneration:
		return KeywordGeneration{
			Theme:    in.Value(FieldTheme),
			Keywords: in.Value(FieldKeywords),
			Category: in.Value(FieldCategory),
			Purpose:  tag,
			Extra:    in.Without(FieldTheme, FieldKeywords, FieldCategory, FieldPurpose),
		}
	case ShapePaperSearch:
		return PaperSearch{
			SearchKeywords: in.Value(FieldSearchKeywords),
			PaperTitle:     in.Value(FieldPaperTitle),
			PaperAbstract:  in.Value(FieldPaperAbstract),
			PaperAuthors:   in.Value(FieldPaperAuthors),
			PaperJournal:   in.Value(FieldPaperJournal),
			Citations:      parseCitations(in.Value(FieldCitations)),
			CitationsText:  in.Value(FieldCitations),
			Extra: in.Without(FieldSearchKeywords, FieldPaperTitle, FieldPaperAbstract,
				FieldPaperAuthors, FieldPaperJournal, FieldCitations),
		}
	case ShapeExamStyle:
		return ExamStyle{Inputs: in.Without(FieldVariant), Variant: tag}
	default:
		return Standard{Inputs: in.Clone()}
	}
}

// parseCitations accepts a JSON array or one citation per line.
func parseCitations(s string) []string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	if strings.HasPrefix(s, "[") {
		var list []string
		if err := json.Unmarshal([]byte(s), &list); err == nil {
			return list
		}
	}
	var out []string
	for _, line := range strings.Split(s, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			out = append(out, line)
		}
	}
	return out
}

func appendPresent(out model.Fields, kv ...string) model.Fields {
	for i := 0; i+1 < len(kv); i += 2 {
		if kv[i+1] != "" {
			out = append(out, model.Field{Name: kv[i], Content: kv[i+1]})
		}
	}
	return out
}
