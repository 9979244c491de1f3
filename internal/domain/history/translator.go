package history

import (
	"context"
	"fmt"

	"github.com/okian/renshu/internal/adapters/repository"
	"github.com/okian/renshu/internal/domain/model"
	"github.com/okian/renshu/internal/domain/taxonomy"
)

// Filter narrows a history read.
type Filter struct {
	// Key restricts results to one canonical practice type key.
	Key string
	// Limit caps the number of records; 0 means the adapter default.
	Limit int
}

// RawRecord is every stored row that makes up one attempt in one
// generation. Gen 1 uses Head only.
type RawRecord struct {
	Generation model.Generation
	Head       repository.Row
	Inputs     []repository.Row
	Scores     []repository.Row
	Feedback   []repository.Row
}

// SchemaTranslator reads and writes one storage generation.
type SchemaTranslator interface {
	Generation() model.Generation
	// Encode turns a record into the rows to insert atomically.
	Encode(rec model.PracticeRecord) ([]repository.Insert, error)
	// Fetch loads userID's raw records, newest first.
	Fetch(ctx context.Context, store repository.Store, userID string, f Filter) ([]RawRecord, error)
	// MigrateRead rebuilds the canonical record. It performs no I/O.
	MigrateRead(raw RawRecord) (model.PracticeRecord, error)
	// Delete removes userID's records of key, or all of them when key is empty.
	Delete(ctx context.Context, store repository.Store, userID, key string) (int64, error)
}

// DefaultTranslators returns one translator per generation.
func DefaultTranslators(tx *taxonomy.Taxonomy) []SchemaTranslator {
	return []SchemaTranslator{
		NewLegacyTranslator(tx),
		NewPracticeTranslator(tx),
		NewExerciseTranslator(tx),
	}
}

// rowGeneration reads the generation tag of a head row; untagged rows
// default to fallback.
func rowGeneration(head repository.Row, fallback model.Generation) model.Generation {
	if !head.Has("schema_generation") {
		return fallback
	}
	return model.Generation(head.Int("schema_generation"))
}

func checkGeneration(raw RawRecord, want model.Generation) error {
	got := rowGeneration(raw.Head, want)
	if got != want {
		return fmt.Errorf("%w: row is generation %d, translator is %d", ErrGenerationMismatch, got, want)
	}
	return nil
}

// classificationFor rebuilds the classification of a stored record. When
// the stored key is Unknown, the source label gets a second chance, which
// keeps types that had no id in an older generation readable.
func classificationFor(tx *taxonomy.Taxonomy, key, sourceLabel string) taxonomy.Classification {
	c := tx.ClassificationOf(key)
	if c.Known() || sourceLabel == "" {
		return c
	}
	if again, err := tx.Strict(sourceLabel); err == nil {
		return again
	}
	return c
}

func keep(rec model.PracticeRecord, f Filter) bool {
	return f.Key == "" || rec.PracticeTypeKey == f.Key
}
