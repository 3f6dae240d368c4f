package infra

import (
	"database/sql"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"time"

	sqlcipher "github.com/mutecomm/go-sqlcipher/v4"

	"github.com/eliteGoblin/focusd/droid_mon/internal/domain"
)

// Ensure sqlcipher driver is registered.
var _ = sqlcipher.ErrBusy

// DefaultHistoryLimit is how many attempts `history` shows by default.
const DefaultHistoryLimit = 20

// HistoryStore implements domain.KillHistory using a SQLCipher encrypted
// SQLite database.
type HistoryStore struct {
	db     *sql.DB
	dbPath string
}

// NewHistoryStore opens (or creates) the encrypted history database at dbPath.
// The key is used as the SQLCipher passphrase via PRAGMA key.
func NewHistoryStore(dbPath string, key []byte) (*HistoryStore, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0700); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	dsn := fmt.Sprintf("%s?_pragma_key=x'%s'&_pragma_cipher_page_size=4096", dbPath, hex.EncodeToString(key))
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open encrypted database: %w", err)
	}

	// A wrong key only shows up on first access.
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to encrypted database: %w", err)
	}

	s := &HistoryStore{db: db, dbPath: dbPath}
	if err := s.createTables(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}
	return s, nil
}

func (s *HistoryStore) createTables() error {
	_, err := s.db.Exec(`
	CREATE TABLE IF NOT EXISTS kill_history (
		id TEXT PRIMARY KEY,
		package TEXT NOT NULL,
		outcome TEXT NOT NULL,
		last_status INTEGER NOT NULL,
		started_at INTEGER NOT NULL,
		duration_ms INTEGER NOT NULL
	);

	CREATE INDEX IF NOT EXISTS kill_history_started ON kill_history (started_at);
	`)
	return err
}

// Record stores one attempt. Recording the same ID twice replaces it.
func (s *HistoryStore) Record(r domain.KillResult) error {
	_, err := s.db.Exec(`
		INSERT OR REPLACE INTO kill_history (id, package, outcome, last_status, started_at, duration_ms)
		VALUES (?, ?, ?, ?, ?, ?)`,
		r.ID, r.Package, string(r.Outcome), int(r.LastStatus), r.StartedAt.UnixMilli(), r.DurationMs,
	)
	if err != nil {
		return fmt.Errorf("record kill %s: %w", r.ID, err)
	}
	return nil
}

// Recent returns up to limit attempts, newest first.
func (s *HistoryStore) Recent(limit int) ([]domain.KillResult, error) {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	rows, err := s.db.Query(`
		SELECT id, package, outcome, last_status, started_at, duration_ms
		FROM kill_history ORDER BY started_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []domain.KillResult
	for rows.Next() {
		var (
			r         domain.KillResult
			outcome   string
			status    int
			startedAt int64
		)
		if err := rows.Scan(&r.ID, &r.Package, &outcome, &status, &startedAt, &r.DurationMs); err != nil {
			return nil, err
		}
		r.Outcome = domain.KillOutcome(outcome)
		r.LastStatus = domain.ForceStopStatus(status)
		r.StartedAt = time.UnixMilli(startedAt)
		results = append(results, r)
	}
	return results, rows.Err()
}

// Path returns the database file path.
func (s *HistoryStore) Path() string {
	return s.dbPath
}

// Close releases the database connection.
func (s *HistoryStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Ensure HistoryStore implements domain.KillHistory.
var _ domain.KillHistory = (*HistoryStore)(nil)
