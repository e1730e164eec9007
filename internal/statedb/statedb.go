// Package statedb persists the view between CLI invocations: the current
// mode and folder, expanded tree folders with their cached listings, and a
// history of operations.
package statedb

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/pressly/goose/v3"
	// Pure-Go SQLite driver (no CGO).
	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

const (
	sqlLoadView = `SELECT mode, current_folder, selected_file, status, updated_at
		FROM view_state WHERE id = 1`

	sqlUpsertView = `INSERT INTO view_state
		(id, mode, current_folder, selected_file, status, updated_at)
		VALUES (1, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
		 mode = excluded.mode,
		 current_folder = excluded.current_folder,
		 selected_file = excluded.selected_file,
		 status = excluded.status,
		 updated_at = excluded.updated_at`

	sqlLoadExpanded   = `SELECT name, files FROM expanded_folders ORDER BY position`
	sqlClearExpanded  = `DELETE FROM expanded_folders`
	sqlInsertExpanded = `INSERT INTO expanded_folders (name, position, files) VALUES (?, ?, ?)`

	sqlInsertActivity = `INSERT INTO activity (op, folder, file, outcome, detail, at)
		VALUES (?, ?, ?, ?, ?, ?)`

	sqlRecentActivity = `SELECT id, op, folder, file, outcome, detail, at
		FROM activity ORDER BY at DESC, id DESC LIMIT ?`

	sqlPruneActivity = `DELETE FROM activity WHERE id NOT IN
		(SELECT id FROM activity ORDER BY at DESC, id DESC LIMIT ?)`
)

// maxActivity bounds the activity table.
const maxActivity = 1000

// View modes.
const (
	ModeRoot   = "root"
	ModeFolder = "folder"
)

// Activity outcomes.
const (
	OutcomeOK     = "ok"
	OutcomeFailed = "failed"
)

// ExpandedFolder is a tree node that was open, with the files fetched when
// it was expanded.
type ExpandedFolder struct {
	Name  string
	Files []string
}

// ViewState is the persisted part of the view.
type ViewState struct {
	Mode          string
	CurrentFolder string
	SelectedFile  string
	Status        string
	Expanded      []ExpandedFolder
	UpdatedAt     time.Time
}

// Activity is one completed operation.
type Activity struct {
	ID      int64
	Op      string
	Folder  string
	File    string
	Outcome string
	Detail  string
	At      time.Time
}

// Store is the sole writer to the state database.
type Store struct {
	db      *sql.DB
	logger  *slog.Logger
	nowFunc func() time.Time
}

// Open opens (creating if needed) the database at path and applies pending
// migrations.
func Open(ctx context.Context, path string, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("statedb: creating directory for %s: %w", path, err)
	}

	// DSN parameters ensure pragmas apply to every connection from the pool.
	dsn := fmt.Sprintf(
		"file:%s?_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)"+
			"&_pragma=foreign_keys(ON)&_pragma=busy_timeout(5000)",
		path,
	)

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("statedb: opening database %s: %w", path, err)
	}

	// Single writer: watch and shell may run alongside one-shot commands, and
	// busy_timeout serializes them across processes.
	db.SetMaxOpenConns(1)

	if err := migrate(ctx, db, logger); err != nil {
		db.Close()
		return nil, err
	}

	logger.Debug("state database opened", slog.String("db_path", path))

	return &Store{db: db, logger: logger, nowFunc: time.Now}, nil
}

func migrate(ctx context.Context, db *sql.DB, logger *slog.Logger) error {
	subFS, err := fs.Sub(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("statedb: creating migration sub-filesystem: %w", err)
	}

	provider, err := goose.NewProvider(goose.DialectSQLite3, db, subFS)
	if err != nil {
		return fmt.Errorf("statedb: creating migration provider: %w", err)
	}

	results, err := provider.Up(ctx)
	if err != nil {
		return fmt.Errorf("statedb: running migrations: %w", err)
	}

	for _, r := range results {
		logger.Info("applied migration",
			slog.String("source", r.Source.Path),
			slog.Int64("duration_ms", r.Duration.Milliseconds()),
		)
	}

	return nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// LoadView returns the saved view. ok is false when nothing was saved yet.
func (s *Store) LoadView(ctx context.Context) (ViewState, bool, error) {
	var (
		v         ViewState
		updatedAt int64
	)

	err := s.db.QueryRowContext(ctx, sqlLoadView).Scan(
		&v.Mode, &v.CurrentFolder, &v.SelectedFile, &v.Status, &updatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return ViewState{Mode: ModeRoot}, false, nil
	}

	if err != nil {
		return ViewState{}, false, fmt.Errorf("statedb: loading view: %w", err)
	}

	v.UpdatedAt = time.Unix(0, updatedAt)

	rows, err := s.db.QueryContext(ctx, sqlLoadExpanded)
	if err != nil {
		return ViewState{}, false, fmt.Errorf("statedb: loading expanded folders: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			ef    ExpandedFolder
			files string
		)

		if err := rows.Scan(&ef.Name, &files); err != nil {
			return ViewState{}, false, fmt.Errorf("statedb: scanning expanded folder: %w", err)
		}

		if err := json.Unmarshal([]byte(files), &ef.Files); err != nil {
			return ViewState{}, false, fmt.Errorf("statedb: decoding files of %s: %w", ef.Name, err)
		}

		v.Expanded = append(v.Expanded, ef)
	}

	if err := rows.Err(); err != nil {
		return ViewState{}, false, fmt.Errorf("statedb: iterating expanded folders: %w", err)
	}

	return v, true, nil
}

// SaveView replaces the saved view in a single transaction.
func (s *Store) SaveView(ctx context.Context, v ViewState) error {
	if v.Mode == "" {
		v.Mode = ModeRoot
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("statedb: beginning transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	if _, err := tx.ExecContext(ctx, sqlUpsertView,
		v.Mode, v.CurrentFolder, v.SelectedFile, v.Status, s.nowFunc().UnixNano(),
	); err != nil {
		return fmt.Errorf("statedb: saving view: %w", err)
	}

	if _, err := tx.ExecContext(ctx, sqlClearExpanded); err != nil {
		return fmt.Errorf("statedb: clearing expanded folders: %w", err)
	}

	for i, ef := range v.Expanded {
		files := ef.Files
		if files == nil {
			files = []string{}
		}

		encoded, err := json.Marshal(files)
		if err != nil {
			return fmt.Errorf("statedb: encoding files of %s: %w", ef.Name, err)
		}

		if _, err := tx.ExecContext(ctx, sqlInsertExpanded, ef.Name, i, string(encoded)); err != nil {
			return fmt.Errorf("statedb: saving expanded folder %s: %w", ef.Name, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("statedb: committing view: %w", err)
	}

	s.logger.Debug("view saved",
		slog.String("mode", v.Mode),
		slog.String("folder", v.CurrentFolder),
		slog.Int("expanded", len(v.Expanded)),
	)

	return nil
}

// Record appends an activity entry, stamping it with the current time when
// At is zero, and trims the table to its most recent entries.
func (s *Store) Record(ctx context.Context, a Activity) error {
	if a.At.IsZero() {
		a.At = s.nowFunc()
	}

	if _, err := s.db.ExecContext(ctx, sqlInsertActivity,
		a.Op, a.Folder, a.File, a.Outcome, a.Detail, a.At.UnixNano(),
	); err != nil {
		return fmt.Errorf("statedb: recording %s: %w", a.Op, err)
	}

	if _, err := s.db.ExecContext(ctx, sqlPruneActivity, maxActivity); err != nil {
		return fmt.Errorf("statedb: pruning activity: %w", err)
	}

	return nil
}

// Recent returns up to limit activity entries, newest first.
func (s *Store) Recent(ctx context.Context, limit int) ([]Activity, error) {
	if limit <= 0 {
		limit = maxActivity
	}

	rows, err := s.db.QueryContext(ctx, sqlRecentActivity, limit)
	if err != nil {
		return nil, fmt.Errorf("statedb: querying activity: %w", err)
	}
	defer rows.Close()

	var out []Activity

	for rows.Next() {
		var (
			a  Activity
			at int64
		)

		if err := rows.Scan(&a.ID, &a.Op, &a.Folder, &a.File, &a.Outcome, &a.Detail, &at); err != nil {
			return nil, fmt.Errorf("statedb: scanning activity: %w", err)
		}

		a.At = time.Unix(0, at)
		out = append(out, a)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("statedb: iterating activity: %w", err)
	}

	return out, nil
}
