// Package history persists every capture the client has fetched so it can
// be browsed after the server has dropped it.
package history

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/sadopc/hookscope/internal/capture"
)

const defaultLimit = 50

// Store manages capture history persistence.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

// NewStore opens (or creates) the history database at dbPath.
func NewStore(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening history db: %w", err)
	}
	// One connection keeps ":memory:" databases coherent and serializes
	// writers.
	db.SetMaxOpenConns(1)

	if err := createTables(db); err != nil {
		db.Close()
		return nil, err
	}

	return &Store{db: db, now: time.Now}, nil
}

func createTables(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS captures (
			account          TEXT NOT NULL,
			id               TEXT NOT NULL,
			method           TEXT NOT NULL,
			path             TEXT NOT NULL,
			request_time     TEXT NOT NULL,
			response_time_ms INTEGER NOT NULL,
			headers          TEXT,
			query_params     TEXT,
			body             TEXT,
			response         TEXT,
			seen_at          TEXT NOT NULL,
			PRIMARY KEY (account, id)
		);
		CREATE INDEX IF NOT EXISTS idx_captures_time ON captures(account, request_time DESC);
		CREATE INDEX IF NOT EXISTS idx_captures_path ON captures(path);
	`)
	if err != nil {
		return fmt.Errorf("creating history table: %w", err)
	}
	return nil
}

// Save upserts records for account. A record seen again keeps its
// original SeenAt.
func (s *Store) Save(account string, records []capture.Record) error {
	if len(records) == 0 {
		return nil
	}
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("starting history transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`
		INSERT INTO captures (account, id, method, path, request_time, response_time_ms, headers, query_params, body, response, seen_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(account, id) DO UPDATE SET
			method = excluded.method,
			path = excluded.path,
			request_time = excluded.request_time,
			response_time_ms = excluded.response_time_ms,
			headers = excluded.headers,
			query_params = excluded.query_params,
			body = excluded.body,
			response = excluded.response`)
	if err != nil {
		return fmt.Errorf("preparing history insert: %w", err)
	}
	defer stmt.Close()

	seen := s.now().UTC().Format(time.RFC3339Nano)
	for _, r := range records {
		acct := account
		if acct == "" {
			acct = r.Account
		}
		headers, _ := json.Marshal(r.Headers)
		query, _ := json.Marshal(r.QueryParams)
		if _, err := stmt.Exec(
			acct, r.ID, string(r.Method), r.Path, formatTime(r.RequestTime), r.ResponseTimeMs,
			string(headers), string(query), string(r.Body), string(r.Response), seen,
		); err != nil {
			return fmt.Errorf("inserting capture %s: %w", r.ID, err)
		}
	}
	return tx.Commit()
}

// List returns the most recent captures of account.
func (s *Store) List(account string, limit, offset int) ([]Entry, error) {
	return s.ListFiltered(Filter{Account: account, Limit: limit, Offset: offset})
}

// ListFiltered returns captures matching f, newest first.
func (s *Store) ListFiltered(f Filter) ([]Entry, error) {
	var where []string
	var args []any
	if f.Account != "" {
		where = append(where, "account = ?")
		args = append(args, f.Account)
	}
	if f.Method != "" {
		where = append(where, "method = ?")
		args = append(args, string(f.Method))
	}
	if f.PathPattern != "" {
		where = append(where, "path LIKE ?")
		args = append(args, "%"+f.PathPattern+"%")
	}
	if !f.Since.IsZero() {
		where = append(where, "request_time >= ?")
		args = append(args, formatTime(f.Since))
	}
	if !f.Until.IsZero() {
		where = append(where, "request_time <= ?")
		args = append(args, formatTime(f.Until))
	}
	limit := f.Limit
	if limit <= 0 {
		limit = defaultLimit
	}

	query := selectColumns
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY request_time DESC, seen_at DESC LIMIT ? OFFSET ?"
	args = append(args, limit, f.Offset)

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing history: %w", err)
	}
	defer rows.Close()
	return scanEntries(rows)
}

// Search matches query against path and body of account's captures.
func (s *Store) Search(account, query string) ([]Entry, error) {
	like := "%" + query + "%"
	rows, err := s.db.Query(selectColumns+`
		WHERE account = ? AND (path LIKE ? OR body LIKE ?)
		ORDER BY request_time DESC, seen_at DESC
		LIMIT ?`, account, like, like, defaultLimit)
	if err != nil {
		return nil, fmt.Errorf("searching history: %w", err)
	}
	defer rows.Close()
	return scanEntries(rows)
}

// Get returns one capture.
func (s *Store) Get(account, id string) (Entry, bool, error) {
	rows, err := s.db.Query(selectColumns+" WHERE account = ? AND id = ?", account, id)
	if err != nil {
		return Entry{}, false, fmt.Errorf("reading history: %w", err)
	}
	defer rows.Close()
	entries, err := scanEntries(rows)
	if err != nil || len(entries) == 0 {
		return Entry{}, false, err
	}
	return entries[0], true, nil
}

// Count returns the number of stored captures of account, or of all
// accounts when account is empty.
func (s *Store) Count(account string) (int, error) {
	var n int
	var err error
	if account == "" {
		err = s.db.QueryRow("SELECT COUNT(*) FROM captures").Scan(&n)
	} else {
		err = s.db.QueryRow("SELECT COUNT(*) FROM captures WHERE account = ?", account).Scan(&n)
	}
	if err != nil {
		return 0, fmt.Errorf("counting history: %w", err)
	}
	return n, nil
}

// Delete removes one capture.
func (s *Store) Delete(account, id string) error {
	_, err := s.db.Exec("DELETE FROM captures WHERE account = ? AND id = ?", account, id)
	if err != nil {
		return fmt.Errorf("deleting history entry: %w", err)
	}
	return nil
}

// Clear removes the captures of account, or everything when account is
// empty.
func (s *Store) Clear(account string) error {
	var err error
	if account == "" {
		_, err = s.db.Exec("DELETE FROM captures")
	} else {
		_, err = s.db.Exec("DELETE FROM captures WHERE account = ?", account)
	}
	if err != nil {
		return fmt.Errorf("clearing history: %w", err)
	}
	return nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

const selectColumns = `
	SELECT account, id, method, path, request_time, response_time_ms, headers, query_params, body, response, seen_at
	FROM captures`

func scanEntries(rows *sql.Rows) ([]Entry, error) {
	var entries []Entry
	for rows.Next() {
		var e Entry
		var method, reqTime, headers, query, body, response, seen string
		err := rows.Scan(&e.Account, &e.ID, &method, &e.Path, &reqTime, &e.ResponseTimeMs,
			&headers, &query, &body, &response, &seen)
		if err != nil {
			return nil, fmt.Errorf("scanning history row: %w", err)
		}
		e.Method = capture.Method(method)
		e.RequestTime = capture.ParseTime(reqTime)
		_ = json.Unmarshal([]byte(headers), &e.Headers)
		_ = json.Unmarshal([]byte(query), &e.QueryParams)
		if body != "" {
			e.Body = capture.Payload(body)
		}
		if response != "" {
			e.Response = capture.Payload(response)
		}
		e.SeenAt, _ = time.Parse(time.RFC3339Nano, seen)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// formatTime stores times as sortable UTC text; the zero time sorts last.
func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format("2006-01-02T15:04:05.000000000Z")
}

// AccountRecorder saves fetched pages of one account.
type AccountRecorder struct {
	store   *Store
	account string
}

// ForAccount binds the store to account.
func (s *Store) ForAccount(account string) AccountRecorder {
	return AccountRecorder{store: s, account: account}
}

// Save upserts records.
func (r AccountRecorder) Save(records []capture.Record) error {
	return r.store.Save(r.account, records)
}
