package repository

import (
	"fmt"
	"sort"
)

// Table names.
const (
	TableUsers = "users"

	TableHistory = "practice_history"

	TablePracticeSessions = "practice_sessions"
	TablePracticeInputs   = "practice_inputs"
	TablePracticeScores   = "practice_scores"
	TablePracticeFeedback = "practice_feedback"

	TableExerciseSessions = "exercise_sessions"
	TableExerciseInputs   = "exercise_inputs"
	TableExerciseScores   = "exercise_scores"
	TableExerciseFeedback = "exercise_feedback"
)

// probeTable is read by Probe.
const probeTable = TableExerciseSessions

var sessionColumns = []string{
	"session_id", "user_id", "theme", "start_time", "end_time", "duration_seconds",
	"status", "ai_model", "source_label", "schema_generation", "created_at",
}

// columns lists the columns of every table.
var columns = map[string][]string{
	TableUsers: {
		"user_id", "email", "display_name", "password_hash", "account_status",
		"failed_logins", "locked_until", "created_at", "last_login",
	},
	TableHistory: {
		"id", "session_id", "practice_type", "theme", "inputs", "scores", "feedback",
		"ai_model", "duration_seconds", "created_at", "schema_generation",
	},
	TablePracticeSessions: append([]string{"practice_type_id"}, sessionColumns...),
	TablePracticeInputs:   {"id", "session_id", "input_type", "content", "input_order"},
	TablePracticeScores:   {"id", "session_id", "score_category", "score_value", "max_score"},
	TablePracticeFeedback: {"id", "session_id", "feedback_content", "feedback_type"},
	TableExerciseSessions: append([]string{"exercise_type_id"}, sessionColumns...),
	TableExerciseInputs:   {"id", "session_id", "input_type", "content", "input_order", "word_count"},
	TableExerciseScores:   {"id", "session_id", "score_category", "score_value", "max_score", "ai_model"},
	TableExerciseFeedback: {"id", "session_id", "feedback_content", "feedback_type"},
}

// Tables returns every table name in sorted order.
func Tables() []string {
	out := make([]string, 0, len(columns))
	for t := range columns {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}

func checkColumns(table string, names ...string) error {
	cols, ok := columns[table]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownTable, table)
	}
next:
	for _, n := range names {
		for _, c := range cols {
			if c == n {
				continue next
			}
		}
		return fmt.Errorf("%w: %s has no column %s", ErrInvalidRow, table, n)
	}
	return nil
}

func checkRow(table string, row Row) error {
	if len(row) == 0 {
		return fmt.Errorf("%w: empty row for %s", ErrInvalidRow, table)
	}
	return checkColumns(table, sortedKeys(row)...)
}

func checkFilters(table string, filters []Filter) error {
	names := make([]string, 0, len(filters))
	for _, f := range filters {
		if f.Op != OpEq && f.Op != OpIn {
			return fmt.Errorf("%w: unsupported operator %q", ErrInvalidRow, f.Op)
		}
		names = append(names, f.Column)
	}
	return checkColumns(table, names...)
}

func sortedKeys(row Row) []string {
	keys := make([]string, 0, len(row))
	for k := range row {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// ddl creates every table. Gen-1 rows written before schema_generation
// existed default to 1.
const ddl = `
CREATE TABLE IF NOT EXISTS users (
    user_id TEXT PRIMARY KEY,
    email TEXT NOT NULL UNIQUE,
    display_name TEXT,
    password_hash TEXT NOT NULL,
    account_status TEXT NOT NULL DEFAULT 'active',
    failed_logins INTEGER NOT NULL DEFAULT 0,
    locked_until TIMESTAMPTZ,
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    last_login TIMESTAMPTZ
);

CREATE TABLE IF NOT EXISTS practice_history (
    id TEXT PRIMARY KEY,
    session_id TEXT NOT NULL,
    practice_type TEXT NOT NULL,
    theme TEXT,
    inputs TEXT,
    scores TEXT,
    feedback TEXT,
    ai_model TEXT,
    duration_seconds INTEGER,
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    schema_generation INTEGER NOT NULL DEFAULT 1
);
CREATE INDEX IF NOT EXISTS practice_history_session_idx ON practice_history (session_id);

CREATE TABLE IF NOT EXISTS practice_sessions (
    session_id TEXT PRIMARY KEY,
    user_id TEXT NOT NULL,
    practice_type_id INTEGER NOT NULL,
    theme TEXT,
    start_time TIMESTAMPTZ NOT NULL,
    end_time TIMESTAMPTZ,
    duration_seconds INTEGER,
    status TEXT NOT NULL DEFAULT 'completed',
    ai_model TEXT,
    source_label TEXT,
    schema_generation INTEGER NOT NULL DEFAULT 2,
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS practice_sessions_user_idx ON practice_sessions (user_id);

CREATE TABLE IF NOT EXISTS practice_inputs (
    id TEXT PRIMARY KEY,
    session_id TEXT NOT NULL REFERENCES practice_sessions(session_id) ON DELETE CASCADE,
    input_type TEXT NOT NULL,
    content TEXT,
    input_order INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS practice_scores (
    id TEXT PRIMARY KEY,
    session_id TEXT NOT NULL REFERENCES practice_sessions(session_id) ON DELETE CASCADE,
    score_category TEXT NOT NULL,
    score_value DOUBLE PRECISION NOT NULL,
    max_score DOUBLE PRECISION NOT NULL
);

CREATE TABLE IF NOT EXISTS practice_feedback (
    id TEXT PRIMARY KEY,
    session_id TEXT NOT NULL REFERENCES practice_sessions(session_id) ON DELETE CASCADE,
    feedback_content TEXT NOT NULL,
    feedback_type TEXT
);

CREATE TABLE IF NOT EXISTS exercise_sessions (
    session_id TEXT PRIMARY KEY,
    user_id TEXT NOT NULL,
    exercise_type_id INTEGER NOT NULL,
    theme TEXT,
    start_time TIMESTAMPTZ NOT NULL,
    end_time TIMESTAMPTZ,
    duration_seconds INTEGER,
    status TEXT NOT NULL DEFAULT 'completed',
    ai_model TEXT,
    source_label TEXT,
    schema_generation INTEGER NOT NULL DEFAULT 3,
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS exercise_sessions_user_idx ON exercise_sessions (user_id);

CREATE TABLE IF NOT EXISTS exercise_inputs (
    id TEXT PRIMARY KEY,
    session_id TEXT NOT NULL REFERENCES exercise_sessions(session_id) ON DELETE CASCADE,
    input_type TEXT NOT NULL,
    content TEXT,
    input_order INTEGER NOT NULL,
    word_count INTEGER
);

CREATE TABLE IF NOT EXISTS exercise_scores (
    id TEXT PRIMARY KEY,
    session_id TEXT NOT NULL REFERENCES exercise_sessions(session_id) ON DELETE CASCADE,
    score_category TEXT NOT NULL,
    score_value DOUBLE PRECISION NOT NULL,
    max_score DOUBLE PRECISION NOT NULL,
    ai_model TEXT
);

CREATE TABLE IF NOT EXISTS exercise_feedback (
    id TEXT PRIMARY KEY,
    session_id TEXT NOT NULL REFERENCES exercise_sessions(session_id) ON DELETE CASCADE,
    feedback_content TEXT NOT NULL,
    feedback_type TEXT
);
`
