package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/valpere/bardtran/internal"
	"github.com/valpere/bardtran/internal/quote"
)

// Store keeps session ledgers and translation history in sqlite. It
// implements ledger.Persister and orchestrator.History.
type Store struct {
	db *sql.DB
}

func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate: %w", err)
	}

	return s, nil
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS sessions (
		id TEXT PRIMARY KEY,
		created_at TIMESTAMP NOT NULL,
		updated_at TIMESTAMP NOT NULL
	);

	-- ledger_entries holds the used-span ledger: one row per (reference_key, context)
	CREATE TABLE IF NOT EXISTS ledger_entries (
		session_id TEXT NOT NULL,
		reference_key TEXT NOT NULL,
		context TEXT NOT NULL,
		PRIMARY KEY (session_id, reference_key, context),
		FOREIGN KEY (session_id) REFERENCES sessions(id)
	);

	CREATE TABLE IF NOT EXISTS translations (
		id TEXT PRIMARY KEY,
		session_id TEXT NOT NULL,
		modern_line TEXT NOT NULL,
		text TEXT NOT NULL,
		temp_ids TEXT NOT NULL,
		refs TEXT NOT NULL,
		degraded BOOLEAN DEFAULT FALSE,
		search_mode TEXT NOT NULL,
		created_at TIMESTAMP NOT NULL,
		FOREIGN KEY (session_id) REFERENCES sessions(id)
	);

	CREATE INDEX IF NOT EXISTS idx_ledger_session ON ledger_entries(session_id);
	CREATE INDEX IF NOT EXISTS idx_translations_session ON translations(session_id, created_at);
	`

	_, err := s.db.Exec(schema)
	return err
}

func touchSession(ctx context.Context, tx *sql.Tx, sessionID string, now time.Time) error {
	_, err := tx.ExecContext(ctx,
		`INSERT INTO sessions (id, created_at, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET updated_at = excluded.updated_at`,
		sessionID, now, now)
	return err
}

// LoadLedger returns the persisted ledger of a session. An unknown session
// loads as empty.
func (s *Store) LoadLedger(ctx context.Context, sessionID string) (map[string][]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT reference_key, context FROM ledger_entries WHERE session_id = ? ORDER BY reference_key, context`,
		sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	entries := make(map[string][]string)
	for rows.Next() {
		var key, label string
		if err := rows.Scan(&key, &label); err != nil {
			return nil, err
		}
		entries[key] = append(entries[key], label)
	}
	return entries, rows.Err()
}

// SaveLedger replaces the persisted ledger of a session in one transaction.
func (s *Store) SaveLedger(ctx context.Context, sessionID string, entries map[string][]string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := touchSession(ctx, tx, sessionID, time.Now().UTC()); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM ledger_entries WHERE session_id = ?`, sessionID); err != nil {
		return err
	}

	keys := make([]string, 0, len(entries))
	for k := range entries {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		for _, label := range entries[k] {
			if _, err := tx.ExecContext(ctx,
				`INSERT OR IGNORE INTO ledger_entries (session_id, reference_key, context) VALUES (?, ?, ?)`,
				sessionID, k, label); err != nil {
				return err
			}
		}
	}
	return tx.Commit()
}

// SaveTranslation appends a validated result to the session history.
func (s *Store) SaveTranslation(ctx context.Context, sessionID string, res quote.TranslationResult) error {
	tempIDs, err := json.Marshal(res.TempIDs)
	if err != nil {
		return fmt.Errorf("failed to marshal temp ids: %w", err)
	}
	refs, err := json.Marshal(res.References)
	if err != nil {
		return fmt.Errorf("failed to marshal references: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	now := time.Now().UTC()
	if err := touchSession(ctx, tx, sessionID, now); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO translations (id, session_id, modern_line, text, temp_ids, refs, degraded, search_mode, created_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		uuid.New().String(), sessionID, res.OriginalModernLine, res.Text, string(tempIDs), string(refs), res.Degraded, string(res.SearchMode), now); err != nil {
		return err
	}
	return tx.Commit()
}

// ListTranslations returns the history of a session in insertion order, or
// of every session when sessionID is empty.
func (s *Store) ListTranslations(ctx context.Context, sessionID string) ([]internal.TranslationRecord, error) {
	query := `SELECT id, session_id, modern_line, text, temp_ids, refs, degraded, search_mode, created_at FROM translations`
	var args []interface{}
	if sessionID != "" {
		query += ` WHERE session_id = ?`
		args = append(args, sessionID)
	}
	query += ` ORDER BY created_at, rowid`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []internal.TranslationRecord
	for rows.Next() {
		var (
			r             internal.TranslationRecord
			tempIDs, refs string
			mode          string
		)
		if err := rows.Scan(&r.ID, &r.SessionID, &r.Result.OriginalModernLine, &r.Result.Text,
			&tempIDs, &refs, &r.Result.Degraded, &mode, &r.CreatedAt); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(tempIDs), &r.Result.TempIDs); err != nil {
			return nil, fmt.Errorf("translation %s: bad temp ids: %w", r.ID, err)
		}
		if err := json.Unmarshal([]byte(refs), &r.Result.References); err != nil {
			return nil, fmt.Errorf("translation %s: bad references: %w", r.ID, err)
		}
		r.Result.SearchMode = quote.SearchMode(mode)
		records = append(records, r)
	}
	return records, rows.Err()
}

// ListSessions returns every known session, most recently updated first.
func (s *Store) ListSessions(ctx context.Context) ([]internal.SessionInfo, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT s.id,
			(SELECT COUNT(*) FROM ledger_entries l WHERE l.session_id = s.id),
			(SELECT COUNT(*) FROM translations t WHERE t.session_id = s.id),
			s.updated_at
		FROM sessions s
		ORDER BY s.updated_at DESC, s.id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sessions []internal.SessionInfo
	for rows.Next() {
		var si internal.SessionInfo
		if err := rows.Scan(&si.ID, &si.Spans, &si.Translations, &si.UpdatedAt); err != nil {
			return nil, err
		}
		sessions = append(sessions, si)
	}
	return sessions, rows.Err()
}

// DeleteSession removes a session with its ledger and history. It reports
// whether the session existed.
func (s *Store) DeleteSession(ctx context.Context, sessionID string) (bool, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, err
	}
	defer tx.Rollback()

	for _, q := range []string{
		`DELETE FROM ledger_entries WHERE session_id = ?`,
		`DELETE FROM translations WHERE session_id = ?`,
	} {
		if _, err := tx.ExecContext(ctx, q, sessionID); err != nil {
			return false, err
		}
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM sessions WHERE id = ?`, sessionID)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, tx.Commit()
}

// Stats summarises the stored sessions.
type Stats struct {
	Sessions     int
	Spans        int
	Translations int
	Degraded     int
}

func (s *Store) Stats(ctx context.Context) (*Stats, error) {
	stats := &Stats{}

	err := s.db.QueryRowContext(ctx, `
		SELECT
			(SELECT COUNT(*) FROM sessions),
			(SELECT COUNT(*) FROM ledger_entries),
			(SELECT COUNT(*) FROM translations),
			(SELECT COALESCE(SUM(CASE WHEN degraded THEN 1 ELSE 0 END), 0) FROM translations)`).Scan(
		&stats.Sessions,
		&stats.Spans,
		&stats.Translations,
		&stats.Degraded,
	)
	if err != nil {
		return nil, err
	}
	return stats, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}
