// Package store persists the last-known worktree state per repository.
//
// Each repository gets its own SQLite database in the user cache
// directory, keyed by a hash of the canonical repository root so caches
// never cross repositories. WAL mode keeps concurrent readers (other gw
// processes) from blocking behind a writer.
//
// Columns are partitioned into a local group (written by the local
// refresh phase and by direct mutations) and a remote group (written by
// the remote refresh phase). The two upsert statements never touch the
// other group's columns, so one phase cannot clobber fresher data from
// the other.
package store

import (
	"crypto/sha1"
	"database/sql"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

const createTableSQL = `
CREATE TABLE IF NOT EXISTS worktrees (
	path TEXT PRIMARY KEY,
	branch TEXT NOT NULL DEFAULT '',
	last_commit_ts INTEGER NOT NULL DEFAULT 0,
	ahead INTEGER NOT NULL DEFAULT 0,
	behind INTEGER NOT NULL DEFAULT 0,
	pull INTEGER NOT NULL DEFAULT 0,
	push INTEGER NOT NULL DEFAULT 0,
	dirty INTEGER NOT NULL DEFAULT 0,
	added INTEGER NOT NULL DEFAULT 0,
	removed INTEGER NOT NULL DEFAULT 0,
	pr_number INTEGER,
	pr_target_branch TEXT,
	pr_merged INTEGER NOT NULL DEFAULT 0,
	pr_upstream_deleted INTEGER NOT NULL DEFAULT 0,
	checks_passed INTEGER,
	checks_total INTEGER,
	checks_pending INTEGER NOT NULL DEFAULT 0,
	last_local_refresh_ts INTEGER NOT NULL DEFAULT 0,
	last_remote_refresh_ts INTEGER NOT NULL DEFAULT 0
);
CREATE TABLE IF NOT EXISTS session (
	id INTEGER PRIMARY KEY CHECK (id = 1),
	last_selected TEXT NOT NULL DEFAULT ''
);
`

// Row is the persisted state of one worktree.
type Row struct {
	Path         string
	Branch       string
	LastCommitTS int64

	// Local column group.
	Pull    int
	Push    int
	Dirty   bool
	Added   int
	Removed int

	// Remote column group.
	Ahead             int
	Behind            int
	PRNumber          *int
	PRTargetBranch    *string
	PRMerged          bool
	PRUpstreamDeleted bool
	ChecksPassed      *int
	ChecksTotal       *int
	ChecksPending     bool

	LastLocalRefresh  int64 // unix seconds, 0 = never
	LastRemoteRefresh int64
}

// LocalFields is everything the local refresh phase (or a direct user
// mutation) may write.
type LocalFields struct {
	Branch       string
	LastCommitTS int64
	Pull         int
	Push         int
	Dirty        bool
	Added        int
	Removed      int
}

// RemoteFields is everything the remote refresh phase may write.
type RemoteFields struct {
	Ahead             int
	Behind            int
	PRNumber          *int
	PRTargetBranch    *string
	PRMerged          bool
	PRUpstreamDeleted bool
	ChecksPassed      *int
	ChecksTotal       *int
	ChecksPending     bool
}

// Store is the per-repository worktree cache.
type Store struct {
	db *sql.DB

	// Reinitialized is set when the database existed but could not be
	// opened and was recreated empty. Reported once, never fatal.
	Reinitialized bool
}

// DefaultDir returns the cache directory for gw databases.
func DefaultDir() (string, error) {
	base, err := os.UserCacheDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(base, "gw"), nil
}

// repoID derives the stable cache key for a repository root.
func repoID(repoRoot string) string {
	sum := sha1.Sum([]byte(filepath.Clean(repoRoot)))
	return hex.EncodeToString(sum[:])
}

// Open opens (or creates) the cache for the repository rooted at
// repoRoot, storing the database under dir. A corrupt database is
// deleted and recreated empty; that is reported via Reinitialized, not
// as an error.
func Open(dir, repoRoot string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("creating cache dir: %w", err)
	}
	dbPath := filepath.Join(dir, repoID(repoRoot)+".sqlite")

	db, err := openDB(dbPath)
	if err == nil {
		return &Store{db: db}, nil
	}

	// Anything unreadable at this point is treated as corruption.
	_ = os.Remove(dbPath)
	_ = os.Remove(dbPath + "-wal")
	_ = os.Remove(dbPath + "-shm")
	db, retryErr := openDB(dbPath)
	if retryErr != nil {
		return nil, fmt.Errorf("reinitializing cache: %w", retryErr)
	}
	return &Store{db: db, Reinitialized: true}, nil
}

func openDB(dbPath string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(wal)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, err
	}
	if _, err := db.Exec(createTableSQL); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

// Close releases the database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// Load returns all cached rows, most recently committed first.
func (s *Store) Load() ([]Row, error) {
	rows, err := s.db.Query(`SELECT path, branch, last_commit_ts, ahead, behind, pull, push,
		dirty, added, removed, pr_number, pr_target_branch, pr_merged, pr_upstream_deleted,
		checks_passed, checks_total, checks_pending, last_local_refresh_ts, last_remote_refresh_ts
		FROM worktrees ORDER BY last_commit_ts DESC, path`)
	if err != nil {
		return nil, fmt.Errorf("loading cache: %w", err)
	}
	defer rows.Close()

	var result []Row
	for rows.Next() {
		var r Row
		var prNumber, checksPassed, checksTotal sql.NullInt64
		var prTarget sql.NullString
		if err := rows.Scan(&r.Path, &r.Branch, &r.LastCommitTS, &r.Ahead, &r.Behind,
			&r.Pull, &r.Push, &r.Dirty, &r.Added, &r.Removed,
			&prNumber, &prTarget, &r.PRMerged, &r.PRUpstreamDeleted,
			&checksPassed, &checksTotal, &r.ChecksPending,
			&r.LastLocalRefresh, &r.LastRemoteRefresh); err != nil {
			return nil, fmt.Errorf("scanning cache row: %w", err)
		}
		if prNumber.Valid {
			n := int(prNumber.Int64)
			r.PRNumber = &n
		}
		if prTarget.Valid {
			t := prTarget.String
			r.PRTargetBranch = &t
		}
		if checksPassed.Valid {
			n := int(checksPassed.Int64)
			r.ChecksPassed = &n
		}
		if checksTotal.Valid {
			n := int(checksTotal.Int64)
			r.ChecksTotal = &n
		}
		result = append(result, r)
	}
	return result, rows.Err()
}

// UpsertLocal writes the local column group for a path, creating the row
// if this is the first observation of that worktree.
func (s *Store) UpsertLocal(path string, f LocalFields) error {
	_, err := s.db.Exec(`INSERT INTO worktrees
		(path, branch, last_commit_ts, pull, push, dirty, added, removed, last_local_refresh_ts)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(path) DO UPDATE SET
			branch = excluded.branch,
			last_commit_ts = excluded.last_commit_ts,
			pull = excluded.pull,
			push = excluded.push,
			dirty = excluded.dirty,
			added = excluded.added,
			removed = excluded.removed,
			last_local_refresh_ts = excluded.last_local_refresh_ts`,
		path, f.Branch, f.LastCommitTS, f.Pull, f.Push, f.Dirty, f.Added, f.Removed,
		time.Now().Unix())
	if err != nil {
		return fmt.Errorf("upserting local fields for %s: %w", path, err)
	}
	return nil
}

// UpsertRemote writes the remote column group for a path. Rows are only
// ever created by local observation, so an unknown path is a no-op.
func (s *Store) UpsertRemote(path string, f RemoteFields) error {
	var prNumber, checksPassed, checksTotal any
	if f.PRNumber != nil {
		prNumber = *f.PRNumber
	}
	if f.ChecksPassed != nil {
		checksPassed = *f.ChecksPassed
	}
	if f.ChecksTotal != nil {
		checksTotal = *f.ChecksTotal
	}
	var prTarget any
	if f.PRTargetBranch != nil {
		prTarget = *f.PRTargetBranch
	}

	_, err := s.db.Exec(`UPDATE worktrees SET
			ahead = ?, behind = ?,
			pr_number = ?, pr_target_branch = ?, pr_merged = ?, pr_upstream_deleted = ?,
			checks_passed = ?, checks_total = ?, checks_pending = ?,
			last_remote_refresh_ts = ?
		WHERE path = ?`,
		f.Ahead, f.Behind, prNumber, prTarget, f.PRMerged, f.PRUpstreamDeleted,
		checksPassed, checksTotal, f.ChecksPending, time.Now().Unix(), path)
	if err != nil {
		return fmt.Errorf("upserting remote fields for %s: %w", path, err)
	}
	return nil
}

// Remove deletes rows for paths that are no longer observed.
func (s *Store) Remove(paths ...string) error {
	if len(paths) == 0 {
		return nil
	}
	placeholders := strings.Repeat("?,", len(paths))
	args := make([]any, len(paths))
	for i, p := range paths {
		args[i] = p
	}
	_, err := s.db.Exec(`DELETE FROM worktrees WHERE path IN (`+placeholders[:len(placeholders)-1]+`)`, args...)
	if err != nil {
		return fmt.Errorf("removing cache rows: %w", err)
	}
	return nil
}

// LastSelected returns the worktree path selected in the previous
// session, or "" when there is none.
func (s *Store) LastSelected() (string, error) {
	var path string
	err := s.db.QueryRow(`SELECT last_selected FROM session WHERE id = 1`).Scan(&path)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("reading last selection: %w", err)
	}
	return path, nil
}

// SetLastSelected records the worktree path the session ended on.
func (s *Store) SetLastSelected(path string) error {
	_, err := s.db.Exec(`
		INSERT INTO session (id, last_selected) VALUES (1, ?)
		ON CONFLICT(id) DO UPDATE SET last_selected = excluded.last_selected`, path)
	if err != nil {
		return fmt.Errorf("saving last selection: %w", err)
	}
	return nil
}
