package recent

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/sys/unix"
	_ "modernc.org/sqlite"

	"docshell/internal/config"
	"docshell/internal/doctype"
)

// MaxRecords bounds the list; the least recently opened entries are pruned.
const MaxRecords = 50

const recordColumns = "id, path, name, file_type, size, added_at, opened_at"

// timeLayout is fixed width so stored timestamps sort lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// Record is one remembered file.
type Record struct {
	ID       int64     `json:"id"`
	Path     string    `json:"path"`
	Name     string    `json:"name"`
	FileType string    `json:"fileType"`
	Size     int64     `json:"size"`
	AddedAt  time.Time `json:"addedAt"`
	OpenedAt time.Time `json:"openedAt"`
}

// Store persists recent files in SQLite.
type Store struct {
	db   *sql.DB
	path string
	now  func() time.Time
}

// Open initializes or connects to the recent-files database under the
// configured data directory.
func Open(cfg *config.Config) (*Store, error) {
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("ensure directories: %w", err)
	}
	return OpenPath(cfg.RecentDBPath())
}

// OpenPath opens the database at dbPath and applies migrations.
func OpenPath(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{db: db, path: dbPath, now: time.Now}
	if err := store.applyMigrations(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string { return s.path }

// Add records path as just opened. Adding a known path refreshes it.
func (s *Store) Add(ctx context.Context, path string) (*Record, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve path: %w", err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", abs, err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%s is a directory", abs)
	}

	fileType := doctype.FileExt(abs)
	if fileType == "" {
		fileType = doctype.Of(abs).DefaultExt()
	}
	timestamp := s.now().UTC().Format(timeLayout)
	_, err = s.db.ExecContext(
		ctx,
		`INSERT INTO recent_files (path, name, file_type, size, added_at, opened_at)
         VALUES (?, ?, ?, ?, ?, ?)
         ON CONFLICT(path) DO UPDATE SET
             name = excluded.name,
             file_type = excluded.file_type,
             size = excluded.size,
             opened_at = excluded.opened_at`,
		abs,
		filepath.Base(abs),
		fileType,
		info.Size(),
		timestamp,
		timestamp,
	)
	if err != nil {
		return nil, fmt.Errorf("upsert recent file: %w", err)
	}
	if err := s.prune(ctx); err != nil {
		return nil, err
	}
	return s.getByPath(ctx, abs)
}

// List returns records, most recently opened first.
func (s *Store) List(ctx context.Context) ([]*Record, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+recordColumns+` FROM recent_files ORDER BY opened_at DESC, id DESC`)
	if err != nil {
		return nil, fmt.Errorf("list recent files: %w", err)
	}
	defer rows.Close()

	var records []*Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate recent files: %w", err)
	}
	return records, nil
}

// Get returns the record with id, or nil when none exists.
func (s *Store) Get(ctx context.Context, id int64) (*Record, error) {
	rec, err := scanRecord(s.db.QueryRowContext(ctx, `SELECT `+recordColumns+` FROM recent_files WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get recent file: %w", err)
	}
	return rec, nil
}

// Remove forgets a record. Removing an unknown id is not an error.
func (s *Store) Remove(ctx context.Context, id int64) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM recent_files WHERE id = ?`, id); err != nil {
		return fmt.Errorf("remove recent file: %w", err)
	}
	return nil
}

// Open reads the file behind rec. It returns nil bytes and no error when the
// file is gone or no longer readable.
func (s *Store) Open(_ context.Context, rec *Record) ([]byte, error) {
	if rec == nil {
		return nil, nil
	}
	if err := unix.Access(rec.Path, unix.R_OK); err != nil {
		if unavailable(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("check access %s: %w", rec.Path, err)
	}
	data, err := os.ReadFile(rec.Path)
	if err != nil {
		if unavailable(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read %s: %w", rec.Path, err)
	}
	return data, nil
}

// Reopen reads the file behind id and marks it opened. A record whose file
// is unavailable is removed and ErrUnavailable returned.
func (s *Store) Reopen(ctx context.Context, id int64) ([]byte, *Record, error) {
	rec, err := s.Get(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	if rec == nil {
		return nil, nil, fmt.Errorf("%w: id %d", ErrNotFound, id)
	}
	data, err := s.Open(ctx, rec)
	if err != nil {
		return nil, nil, err
	}
	if data == nil {
		if err := s.Remove(ctx, id); err != nil {
			return nil, nil, err
		}
		return nil, rec, fmt.Errorf("%w: %s", ErrUnavailable, rec.Path)
	}

	rec.OpenedAt = s.now().UTC()
	if _, err := s.db.ExecContext(ctx, `UPDATE recent_files SET opened_at = ? WHERE id = ?`,
		rec.OpenedAt.Format(timeLayout), id); err != nil {
		return nil, nil, fmt.Errorf("touch recent file: %w", err)
	}
	return data, rec, nil
}

func (s *Store) getByPath(ctx context.Context, path string) (*Record, error) {
	rec, err := scanRecord(s.db.QueryRowContext(ctx, `SELECT `+recordColumns+` FROM recent_files WHERE path = ?`, path))
	if err != nil {
		return nil, fmt.Errorf("get recent file by path: %w", err)
	}
	return rec, nil
}

func (s *Store) prune(ctx context.Context) error {
	_, err := s.db.ExecContext(
		ctx,
		`DELETE FROM recent_files WHERE id NOT IN (
            SELECT id FROM recent_files ORDER BY opened_at DESC, id DESC LIMIT ?
        )`,
		MaxRecords,
	)
	if err != nil {
		return fmt.Errorf("prune recent files: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (*Record, error) {
	var (
		rec      Record
		addedAt  string
		openedAt string
	)
	if err := row.Scan(&rec.ID, &rec.Path, &rec.Name, &rec.FileType, &rec.Size, &addedAt, &openedAt); err != nil {
		return nil, err
	}
	var err error
	if rec.AddedAt, err = time.Parse(timeLayout, addedAt); err != nil {
		return nil, fmt.Errorf("parse added_at: %w", err)
	}
	if rec.OpenedAt, err = time.Parse(timeLayout, openedAt); err != nil {
		return nil, fmt.Errorf("parse opened_at: %w", err)
	}
	return &rec, nil
}

func unavailable(err error) bool {
	return errors.Is(err, unix.EACCES) ||
		errors.Is(err, unix.EPERM) ||
		errors.Is(err, unix.ENOENT) ||
		errors.Is(err, unix.ENOTDIR) ||
		errors.Is(err, fs.ErrNotExist) ||
		errors.Is(err, fs.ErrPermission)
}
