package progress

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

const settingWorkspacePath = "workspace_path"

// SQLiteStore keeps the snapshot in two tables. Save replaces the lesson rows inside a
// single transaction, so readers see either the old or the new snapshot.
type SQLiteStore struct {
	db *sql.DB
}

func NewSQLite(path string) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) EnsureSchema(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS lesson_progress (
			lesson_id TEXT PRIMARY KEY,
			course_id TEXT NOT NULL,
			position INTEGER NOT NULL DEFAULT 0,
			passed INTEGER NOT NULL DEFAULT 0,
			outcome_ts TEXT NOT NULL DEFAULT '',
			attempts INTEGER NOT NULL DEFAULT 0,
			passes INTEGER NOT NULL DEFAULT 0,
			last_outcome TEXT NOT NULL DEFAULT ''
		);`,
		`CREATE TABLE IF NOT EXISTS app_settings (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		);`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	return nil
}

func (s *SQLiteStore) Load(ctx context.Context) (State, error) {
	state := State{Version: StateVersion}
	row := s.db.QueryRowContext(ctx, `SELECT value FROM app_settings WHERE key = ?`, settingWorkspacePath)
	if err := row.Scan(&state.WorkspacePath); err != nil && err != sql.ErrNoRows {
		return State{}, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT course_id, lesson_id, passed, outcome_ts, attempts, passes, last_outcome
		FROM lesson_progress
		ORDER BY position, lesson_id
	`)
	if err != nil {
		return State{}, err
	}
	defer rows.Close()
	index := map[string]int{}
	for rows.Next() {
		var (
			courseID string
			rec      LessonRecord
			passed   int
			tsRaw    string
		)
		if err := rows.Scan(&courseID, &rec.LessonID, &passed, &tsRaw, &rec.Attempts, &rec.Passes, &rec.LastOutcome); err != nil {
			return State{}, err
		}
		rec.Passed = passed == 1
		if t, err := time.Parse(timeLayout, tsRaw); err == nil {
			rec.Timestamp = t
		}
		i, ok := index[courseID]
		if !ok {
			i = len(state.Courses)
			index[courseID] = i
			state.Courses = append(state.Courses, CourseRecord{CourseID: courseID})
		}
		state.Courses[i].Lessons = append(state.Courses[i].Lessons, rec)
	}
	if err := rows.Err(); err != nil {
		return State{}, err
	}
	return state, nil
}

func (s *SQLiteStore) Save(ctx context.Context, state State) (err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()
	if _, err = tx.ExecContext(ctx, `DELETE FROM lesson_progress`); err != nil {
		return err
	}
	position := 0
	for _, c := range state.Courses {
		for _, rec := range c.Lessons {
			ts := ""
			if !rec.Timestamp.IsZero() {
				ts = rec.Timestamp.UTC().Format(timeLayout)
			}
			if _, err = tx.ExecContext(ctx, `
				INSERT INTO lesson_progress(lesson_id, course_id, position, passed, outcome_ts, attempts, passes, last_outcome)
				VALUES(?, ?, ?, ?, ?, ?, ?, ?)
			`, rec.LessonID, c.CourseID, position, ifThen(rec.Passed, 1, 0), ts, rec.Attempts, rec.Passes, rec.LastOutcome); err != nil {
				return err
			}
			position++
		}
	}
	if _, err = tx.ExecContext(ctx, `
		INSERT INTO app_settings(key, value) VALUES(?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value
	`, settingWorkspacePath, state.WorkspacePath); err != nil {
		return err
	}
	return tx.Commit()
}

func (s *SQLiteStore) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

const timeLayout = "2006-01-02T15:04:05Z07:00"

func ifThen(cond bool, yes, no int) int {
	if cond {
		return yes
	}
	return no
}
