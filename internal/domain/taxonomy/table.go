package taxonomy

import "github.com/okian/renshu/internal/domain/model"

// Category groups practice types.
type Category string

const (
	CategoryExam      Category = "exam"
	CategoryReading   Category = "english_reading"
	CategoryWriting   Category = "writing"
	CategoryInterview Category = "interview"
	CategoryResearch  Category = "research"
	CategoryKnowledge Category = "knowledge"
	CategoryUnknown   Category = "unknown"
)

// KeyUnknown is the key every unrecognized label maps to.
const KeyUnknown = "unknown"

// Entry is one row of the practice type table.
type Entry struct {
	Key         string
	Category    Category
	Subcategory string
	// Label is the display label written to the legacy generation.
	Label string
	// Aliases are older labels that map to this entry exactly.
	Aliases []string
	Shape   ShapeKind
	// Tag is the derived purpose or variant carried by the extraction shape.
	Tag string
	// IDs holds the numeric id per generation that has one.
	IDs   map[model.Generation]int
	Since model.Generation
}

// ID returns the numeric id of e in generation g.
func (e Entry) ID(g model.Generation) (int, bool) {
	id, ok := e.IDs[g]
	return id, ok
}

func ids(gen2, gen3 int) map[model.Generation]int {
	m := map[model.Generation]int{model.GenerationExercise: gen3}
	if gen2 > 0 {
		m[model.GenerationPractice] = gen2
	}
	return m
}

// entries is the versioned table. Ids are append-only within a generation.
var entries = []Entry{
	{
		Key: "keyword_generation_paper", Category: CategoryResearch, Subcategory: "keyword_generation",
		Label:   "キーワード生成（論文検索用）",
		Aliases: []string{"keyword generation (for paper search)", "キーワード生成・論文検索"},
		Shape:   ShapeKeywordGeneration, Tag: "paper_search",
		IDs: ids(1, 14), Since: model.GenerationLegacy,
	},
	{
		Key: "keyword_generation_freeform", Category: CategoryResearch, Subcategory: "keyword_generation",
		Label:   "キーワード生成（自由記述用）",
		Aliases: []string{"keyword generation (for free writing)"},
		Shape:   ShapeKeywordGeneration, Tag: "free_writing",
		IDs: ids(2, 16), Since: model.GenerationLegacy,
	},
	{
		Key: "keyword_generation_general", Category: CategoryResearch, Subcategory: "keyword_generation",
		Label:   "キーワード生成",
		Aliases: []string{"keyword generation"},
		Shape:   ShapeKeywordGeneration, Tag: "general",
		IDs: ids(3, 17), Since: model.GenerationLegacy,
	},
	{
		Key: "paper_search", Category: CategoryResearch, Subcategory: "paper_search",
		Label:   "論文検索",
		Aliases: []string{"paper search"},
		Shape:   ShapePaperSearch,
		IDs:     ids(4, 15), Since: model.GenerationLegacy,
	},
	{
		Key: "medical_exam_comprehensive", Category: CategoryExam, Subcategory: "medical_exam",
		Label:   "過去問スタイル採用試験",
		Aliases: []string{"採用試験", "exam-style practice", "medical exam"},
		Shape:   ShapeExamStyle, Tag: "standard",
		IDs: ids(5, 1), Since: model.GenerationLegacy,
	},
	{
		Key: "medical_exam_letter_style", Category: CategoryExam, Subcategory: "medical_exam",
		Label:   "過去問スタイル採用試験 - Letter形式（翻訳 + 意見）",
		Aliases: []string{"exam-style practice - letter", "medical exam - letter style"},
		Shape:   ShapeExamStyle, Tag: "letter",
		IDs: ids(6, 2), Since: model.GenerationLegacy,
	},
	{
		Key: "medical_exam_comment_style", Category: CategoryExam, Subcategory: "medical_exam",
		Label:   "過去問スタイル採用試験 - 論文コメント形式（コメント翻訳 + 意見）",
		Aliases: []string{"exam-style practice - comment", "medical exam - comment style"},
		Shape:   ShapeExamStyle, Tag: "comment",
		IDs: ids(7, 3), Since: model.GenerationLegacy,
	},
	{
		Key: "essay_practice", Category: CategoryWriting, Subcategory: "essay",
		Label:   "小論文対策",
		Aliases: []string{"小論文練習", "essay practice"},
		Shape:   ShapeStandard,
		IDs:     ids(8, 4), Since: model.GenerationLegacy,
	},
	{
		Key: "interview_practice_general", Category: CategoryInterview, Subcategory: "interview",
		Label:   "面接対策",
		Aliases: []string{"面接準備", "interview practice"},
		Shape:   ShapeStandard,
		IDs:     ids(9, 5), Since: model.GenerationLegacy,
	},
	{
		Key: "interview_practice_single", Category: CategoryInterview, Subcategory: "interview",
		Label:   "面接対策(単発)",
		Aliases: []string{"interview practice (single)"},
		Shape:   ShapeStandard,
		IDs:     ids(10, 6), Since: model.GenerationLegacy,
	},
	{
		Key: "interview_practice_session", Category: CategoryInterview, Subcategory: "interview",
		Label:   "面接対策(セッション)",
		Aliases: []string{"interview practice (session)"},
		Shape:   ShapeStandard,
		IDs:     ids(11, 7), Since: model.GenerationLegacy,
	},
	{
		Key: "english_reading_standard", Category: CategoryReading, Subcategory: "english_reading",
		Label:   "過去問スタイル英語読解",
		Aliases: []string{"英語読解", "english reading"},
		Shape:   ShapeExamStyle, Tag: "standard",
		IDs: ids(12, 13), Since: model.GenerationLegacy,
	},
	{
		Key: "english_reading_letter_style", Category: CategoryReading, Subcategory: "english_reading",
		Label:   "過去問スタイル英語読解 - Letter形式",
		Aliases: []string{"english reading - letter style"},
		Shape:   ShapeExamStyle, Tag: "letter",
		IDs: ids(13, 8), Since: model.GenerationLegacy,
	},
	{
		Key: "english_reading_comment_style", Category: CategoryReading, Subcategory: "english_reading",
		Label:   "過去問スタイル英語読解 - 論文コメント形式",
		Aliases: []string{"english reading - comment style"},
		Shape:   ShapeExamStyle, Tag: "comment",
		IDs: ids(14, 9), Since: model.GenerationLegacy,
	},
	{
		Key: "free_writing", Category: CategoryWriting, Subcategory: "free_writing",
		Label:   "医学部採用試験 自由記述",
		Aliases: []string{"自由記述", "free writing", "free_writing"},
		Shape:   ShapeStandard,
		IDs:     ids(15, 10), Since: model.GenerationLegacy,
	},
	{
		Key: "medical_knowledge_check", Category: CategoryKnowledge, Subcategory: "medical_knowledge",
		Label:   "医学知識チェック",
		Aliases: []string{"medical knowledge check"},
		Shape:   ShapeStandard,
		IDs:     ids(0, 11), Since: model.GenerationExercise,
	},
	{
		Key: "prefecture_adoption", Category: CategoryExam, Subcategory: "prefecture_adoption",
		Label:   "県総採用試験",
		Aliases: []string{"prefecture adoption exam"},
		Shape:   ShapeStandard,
		IDs:     ids(0, 12), Since: model.GenerationExercise,
	},
	{
		Key: KeyUnknown, Category: CategoryUnknown, Subcategory: "unknown",
		Label: "不明",
		Shape: ShapeStandard,
		IDs:   ids(99, 99), Since: model.GenerationLegacy,
	},
}

// family is one prefix/substring rule. Markers are matched against the
// normalized label; pick chooses the entry within the family.
type family struct {
	name    string
	markers []string
	pick    func(label string) string
}

// families are tried in order, so more specific families come first.
var families = []family{
	{
		name:    "keyword_generation",
		markers: []string{"キーワード生成", "keyword generation", "keyword_generation"},
		pick: func(l string) string {
			switch {
			case containsAny(l, "論文検索", "paper search", "paper_search", "paper"):
				return "keyword_generation_paper"
			case containsAny(l, "自由記述", "free writing", "freeform", "free_writing"):
				return "keyword_generation_freeform"
			}
			return "keyword_generation_general"
		},
	},
	{
		name:    "paper_search",
		markers: []string{"論文検索", "paper search", "paper_search"},
		pick:    func(string) string { return "paper_search" },
	},
	{
		name:    "english_reading",
		markers: []string{"過去問スタイル英語読解", "英語読解", "english reading", "english_reading"},
		pick: func(l string) string {
			return variantKey(l, "english_reading_letter_style", "english_reading_comment_style", "english_reading_standard")
		},
	},
	{
		name:    "free_writing",
		markers: []string{"医学部採用試験 自由記述", "自由記述", "free writing", "free_writing"},
		pick:    func(string) string { return "free_writing" },
	},
	{
		name:    "medical_exam",
		markers: []string{"過去問スタイル採用試験", "採用試験", "exam-style", "exam style", "medical exam", "medical_exam"},
		pick: func(l string) string {
			if containsAny(l, "県総", "prefecture") {
				return "prefecture_adoption"
			}
			return variantKey(l, "medical_exam_letter_style", "medical_exam_comment_style", "medical_exam_comprehensive")
		},
	},
	{
		name:    "interview",
		markers: []string{"面接", "interview"},
		pick: func(l string) string {
			switch {
			case containsAny(l, "単発", "single"):
				return "interview_practice_single"
			case containsAny(l, "セッション", "session"):
				return "interview_practice_session"
			}
			return "interview_practice_general"
		},
	},
	{
		name:    "essay",
		markers: []string{"小論文", "essay"},
		pick:    func(string) string { return "essay_practice" },
	},
	{
		name:    "medical_knowledge",
		markers: []string{"医学知識", "medical knowledge", "medical_knowledge"},
		pick:    func(string) string { return "medical_knowledge_check" },
	},
	{
		name:    "prefecture_adoption",
		markers: []string{"県総", "prefecture"},
		pick:    func(string) string { return "prefecture_adoption" },
	},
}

func variantKey(l, letter, comment, standard string) string {
	switch {
	case containsAny(l, "letter"):
		return letter
	case containsAny(l, "コメント", "comment"):
		return comment
	}
	return standard
}
