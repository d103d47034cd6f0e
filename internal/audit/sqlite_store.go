// Package audit records every search sent to the portal, the raw page it
// returned and the orders extracted from it.
package audit

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/raysh454/courtfetch/internal/extract"
	"github.com/raysh454/courtfetch/internal/logging"
	_ "modernc.org/sqlite" // SQLite driver
)

var ErrNotFound = errors.New("audit record not found")

//go:embed schema.sql
var schemaFS embed.FS

// Store is the SQLite backed audit log. Raw pages live in a PageStore in a
// "pages" directory next to the database file.
type Store struct {
	db     *sql.DB
	pages  *PageStore
	logger logging.Logger
	now    func() time.Time
}

// Open creates or opens the database at path.
func Open(path string, logger logging.Logger) (*Store, error) {
	if logger == nil {
		return nil, errors.New("audit: nil logger provided")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create database directory: %w", err)
	}

	pages, err := NewPageStore(filepath.Join(filepath.Dir(path), "pages"))
	if err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := applySchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}

	componentLogger := logger.With(logging.Field{Key: "component", Value: "audit"})
	componentLogger.Info("audit store initialized", logging.Field{Key: "path", Value: path})
	return &Store{db: db, pages: pages, logger: componentLogger, now: time.Now}, nil
}

// applySchema sets pragmas and creates the tables.
func applySchema(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
		"PRAGMA busy_timeout=5000",
		"PRAGMA temp_store=MEMORY",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return fmt.Errorf("set pragma %q: %w", pragma, err)
		}
	}

	schemaSQL, err := schemaFS.ReadFile("schema.sql")
	if err != nil {
		return fmt.Errorf("read schema.sql: %w", err)
	}
	if _, err := db.Exec(string(schemaSQL)); err != nil {
		return fmt.Errorf("execute schema: %w", err)
	}
	return nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// BeginQuery logs a pending search and returns its id.
func (s *Store) BeginQuery(ctx context.Context, q NewQuery) (string, error) {
	id := uuid.NewString()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO query_log (id, session_id, court, case_type, case_number, filing_year, status, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		id, q.SessionID, q.Court, q.CaseType, q.CaseNumber, q.FilingYear, StatusPending, s.now().UnixMilli())
	if err != nil {
		return "", fmt.Errorf("insert query: %w", err)
	}
	return id, nil
}

// RecordSuccess stores the portal page and the extracted orders and marks the
// query done. The page is written to the page store first; the rows go in
// one transaction.
func (s *Store) RecordSuccess(ctx context.Context, queryID, finalURL, html string, rec *extract.CaseRecord) (err error) {
	if rec == nil {
		rec = &extract.CaseRecord{}
	}
	parsed, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encode record: %w", err)
	}

	pageHash, err := s.pages.Put([]byte(html))
	if err != nil {
		return fmt.Errorf("store page: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	now := s.now().UnixMilli()
	res, err := tx.ExecContext(ctx, `
		UPDATE query_log SET status = ?, found = ?, error = '', completed_at = ?
		WHERE id = ?`, StatusSuccess, rec.Found, now, queryID)
	if err != nil {
		return fmt.Errorf("update query: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("query %s: %w", queryID, ErrNotFound)
	}

	if _, err = tx.ExecContext(ctx, `
		INSERT INTO raw_response (query_id, final_url, page_hash, page_bytes, parsed_json, fetched_at)
		VALUES (?, ?, ?, ?, ?, ?)`, queryID, finalURL, pageHash, len(html), string(parsed), now); err != nil {
		return fmt.Errorf("insert raw response: %w", err)
	}

	for i, o := range rec.Orders {
		if _, err = tx.ExecContext(ctx, `
			INSERT INTO order_link (id, query_id, position, order_date, title, pdf_url)
			VALUES (?, ?, ?, ?, ?, ?)`, uuid.NewString(), queryID, i, o.Date, o.Title, o.PDFURL); err != nil {
			return fmt.Errorf("insert order %d: %w", i, err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	s.logger.Debug("recorded search",
		logging.Field{Key: "query_id", Value: queryID},
		logging.Field{Key: "orders", Value: len(rec.Orders)})
	return nil
}

// RecordFailure marks the query failed with message.
func (s *Store) RecordFailure(ctx context.Context, queryID, message string) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE query_log SET status = ?, error = ?, completed_at = ?
		WHERE id = ?`, StatusError, message, s.now().UnixMilli(), queryID)
	if err != nil {
		return fmt.Errorf("update query: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("query %s: %w", queryID, ErrNotFound)
	}
	return nil
}

const queryColumns = `id, session_id, court, case_type, case_number, filing_year, status, error, found, created_at, completed_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanQuery(row rowScanner) (*Query, error) {
	var (
		q         Query
		status    string
		created   int64
		completed sql.NullInt64
	)
	if err := row.Scan(&q.ID, &q.SessionID, &q.Court, &q.CaseType, &q.CaseNumber, &q.FilingYear,
		&status, &q.Error, &q.Found, &created, &completed); err != nil {
		return nil, err
	}
	q.Status = Status(status)
	q.CreatedAt = time.UnixMilli(created).UTC()
	if completed.Valid {
		t := time.UnixMilli(completed.Int64).UTC()
		q.CompletedAt = &t
	}
	return &q, nil
}

// ListQueries returns the most recent queries first. A non-positive limit
// means 50.
func (s *Store) ListQueries(ctx context.Context, limit int) ([]Query, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+queryColumns+` FROM query_log ORDER BY created_at DESC, rowid DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list queries: %w", err)
	}
	defer rows.Close()

	out := []Query{}
	for rows.Next() {
		q, err := scanQuery(rows)
		if err != nil {
			return nil, fmt.Errorf("scan query: %w", err)
		}
		out = append(out, *q)
	}
	return out, rows.Err()
}

func (s *Store) GetQuery(ctx context.Context, id string) (*Query, error) {
	q, err := scanQuery(s.db.QueryRowContext(ctx, `SELECT `+queryColumns+` FROM query_log WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("query %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get query: %w", err)
	}
	return q, nil
}

func (s *Store) GetRawResponse(ctx context.Context, queryID string) (*RawResponse, error) {
	var (
		r       RawResponse
		fetched int64
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT query_id, final_url, page_hash, page_bytes, parsed_json, fetched_at FROM raw_response WHERE query_id = ?`, queryID).
		Scan(&r.QueryID, &r.FinalURL, &r.PageHash, &r.PageBytes, &r.ParsedJSON, &fetched)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("raw response %s: %w", queryID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get raw response: %w", err)
	}
	r.FetchedAt = time.UnixMilli(fetched).UTC()

	page, err := s.pages.Get(r.PageHash)
	if err != nil {
		return nil, fmt.Errorf("load page: %w", err)
	}
	r.HTML = string(page)
	return &r, nil
}

// ListOrders returns the orders of a query in page order.
func (s *Store) ListOrders(ctx context.Context, queryID string) ([]extract.OrderLink, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT order_date, title, pdf_url FROM order_link WHERE query_id = ? ORDER BY position`, queryID)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	defer rows.Close()

	out := []extract.OrderLink{}
	for rows.Next() {
		var o extract.OrderLink
		if err := rows.Scan(&o.Date, &o.Title, &o.PDFURL); err != nil {
			return nil, fmt.Errorf("scan order: %w", err)
		}
		out = append(out, o)
	}
	return out, rows.Err()
}
