package repository

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
)

func setupMock(t *testing.T) (*Postgres, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to open sqlmock database: %v", err)
	}
	return NewPostgres(db), mock, func() { db.Close() }
}

func TestPostgres_Probe(t *testing.T) {
	store, mock, cleanup := setupMock(t)
	defer cleanup()

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT 1 FROM "exercise_sessions" LIMIT 1`)).
		WillReturnRows(sqlmock.NewRows([]string{"?column?"}))
	if err := store.Probe(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT 1 FROM "exercise_sessions" LIMIT 1`)).
		WillReturnError(errors.New("connection refused"))
	if err := store.Probe(context.Background()); !errors.Is(err, ErrBackendUnavailable) {
		t.Errorf("expected ErrBackendUnavailable, got %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestPostgres_InitSchema(t *testing.T) {
	store, mock, cleanup := setupMock(t)
	defer cleanup()

	mock.ExpectExec(regexp.QuoteMeta(`CREATE TABLE IF NOT EXISTS users`)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	if err := store.InitSchema(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestPostgres_Insert(t *testing.T) {
	store, mock, cleanup := setupMock(t)
	defer cleanup()

	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO "exercise_feedback" ("feedback_content", "id", "session_id") VALUES ($1, $2, $3)`)).
		WithArgs("well argued", "f1", "s1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := store.Insert(context.Background(), TableExerciseFeedback, Row{
		"session_id":       "s1",
		"id":               "f1",
		"feedback_content": "well argued",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestPostgres_InsertRejectsUnknownColumn(t *testing.T) {
	store, mock, cleanup := setupMock(t)
	defer cleanup()

	err := store.Insert(context.Background(), TableExerciseFeedback, Row{"oops": 1})
	if !errors.Is(err, ErrInvalidRow) {
		t.Errorf("expected ErrInvalidRow, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("no query should have run: %v", err)
	}
}

func TestPostgres_ApplyCommits(t *testing.T) {
	store, mock, cleanup := setupMock(t)
	defer cleanup()

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO "exercise_sessions" ("session_id", "user_id") VALUES ($1, $2)`)).
		WithArgs("s1", "u1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO "exercise_inputs" ("content", "input_order", "session_id") VALUES ($1, $2, $3)`)).
		WithArgs("answer", 0, "s1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := store.Apply(context.Background(),
		Insert{Table: TableExerciseSessions, Row: Row{"session_id": "s1", "user_id": "u1"}},
		Insert{Table: TableExerciseInputs, Row: Row{"session_id": "s1", "content": "answer", "input_order": 0}},
	)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestPostgres_ApplyRollsBack(t *testing.T) {
	store, mock, cleanup := setupMock(t)
	defer cleanup()

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO "exercise_sessions" ("session_id", "user_id") VALUES ($1, $2)`)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO "exercise_scores"`)).
		WillReturnError(errors.New("violates not-null constraint"))
	mock.ExpectRollback()

	err := store.Apply(context.Background(),
		Insert{Table: TableExerciseSessions, Row: Row{"session_id": "s1", "user_id": "u1"}},
		Insert{Table: TableExerciseScores, Row: Row{"session_id": "s1", "score_category": "logic"}},
	)
	if !errors.Is(err, ErrBackendUnavailable) {
		t.Errorf("expected ErrBackendUnavailable, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestPostgres_Select(t *testing.T) {
	store, mock, cleanup := setupMock(t)
	defer cleanup()

	start := time.Date(2026, 6, 1, 9, 0, 0, 0, time.UTC)
	rows := sqlmock.NewRows([]string{"session_id", "user_id", "theme", "start_time"}).
		AddRow("s2", "u1", []byte("sepsis"), start.Add(time.Hour)).
		AddRow("s1", "u1", nil, start)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "exercise_sessions" WHERE "user_id" = $1 AND "session_id" = ANY($2) ORDER BY "start_time" DESC LIMIT 5`)).
		WithArgs("u1", sqlmock.AnyArg()).
		WillReturnRows(rows)

	got, err := store.Select(context.Background(), TableExerciseSessions, Query{
		Filters: []Filter{Eq("user_id", "u1"), In("session_id", []string{"s1", "s2"})},
		OrderBy: "start_time",
		Desc:    true,
		Limit:   5,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(got))
	}
	if v, ok := got[0]["theme"].(string); !ok || v != "sepsis" {
		t.Errorf("expected bytes to be converted to string, got %#v", got[0]["theme"])
	}
	if got[1].Has("theme") {
		t.Errorf("expected NULL theme, got %#v", got[1]["theme"])
	}
	if !got[1].Time("start_time").Equal(start) {
		t.Errorf("unexpected start_time %v", got[1]["start_time"])
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestPostgres_SelectError(t *testing.T) {
	store, mock, cleanup := setupMock(t)
	defer cleanup()

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "practice_history" WHERE "session_id" = $1`)).
		WithArgs("u1").
		WillReturnError(errors.New("relation does not exist"))

	_, err := store.Select(context.Background(), TableHistory, Query{Filters: []Filter{Eq("session_id", "u1")}})
	if !errors.Is(err, ErrBackendUnavailable) {
		t.Errorf("expected ErrBackendUnavailable, got %v", err)
	}
}

func TestPostgres_UpdateAndDelete(t *testing.T) {
	store, mock, cleanup := setupMock(t)
	defer cleanup()

	locked := time.Date(2026, 6, 1, 9, 30, 0, 0, time.UTC)
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE "users" SET "failed_logins" = $1, "locked_until" = $2 WHERE "user_id" = $3`)).
		WithArgs(5, locked, "u1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM "exercise_sessions" WHERE "user_id" = $1 AND "exercise_type_id" = $2`)).
		WithArgs("u1", 14).
		WillReturnResult(sqlmock.NewResult(0, 3))

	n, err := store.Update(context.Background(), TableUsers, []Filter{Eq("user_id", "u1")},
		Row{"failed_logins": 5, "locked_until": locked})
	if err != nil || n != 1 {
		t.Fatalf("update: n=%d err=%v", n, err)
	}

	n, err = store.Delete(context.Background(), TableExerciseSessions,
		[]Filter{Eq("user_id", "u1"), Eq("exercise_type_id", 14)})
	if err != nil || n != 3 {
		t.Fatalf("delete: n=%d err=%v", n, err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}
