// Package storage provides SQLite persistence for saved chats, image
// analyses, and power reports.
//
// Information Hiding:
// - SQLite connection management hidden behind the Store type
// - Schema and migration details encapsulated
// - Thread-safe via sql.DB's built-in connection pooling

package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
)

// ErrNotFound means the named record does not exist.
var ErrNotFound = errors.New("not found")

// Store persists chats, analyses, and power reports in SQLite.
type Store struct {
	db *sql.DB
}

// Open opens or creates the database at path, creating parent
// directories if needed.
func Open(path string) (*Store, error) {
	dir := filepath.Dir(path)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite database: %w", err)
	}

	store := &Store{db: db}
	if err := store.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return store, nil
}

// OpenInMemory creates an in-memory database (useful for testing).
func OpenInMemory() (*Store, error) {
	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory SQLite: %w", err)
	}

	store := &Store{db: db}
	if err := store.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) createSchema() error {
	schema := `
		CREATE TABLE IF NOT EXISTS chats (
			name TEXT PRIMARY KEY,
			history TEXT NOT NULL,
			metrics TEXT,
			session TEXT,
			interview TEXT,
			updated_at TEXT NOT NULL DEFAULT (datetime('now'))
		);

		CREATE TABLE IF NOT EXISTS analyses (
			name TEXT PRIMARY KEY,
			history TEXT NOT NULL,
			image BLOB,
			updated_at TEXT NOT NULL DEFAULT (datetime('now'))
		);

		CREATE TABLE IF NOT EXISTS power_reports (
			id TEXT PRIMARY KEY,
			recorded_at TEXT NOT NULL,
			model TEXT NOT NULL,
			wh REAL NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_power_reports_recorded
		ON power_reports(recorded_at);
	`

	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

// ChatRecord is a saved chat with its optional study documents.
type ChatRecord struct {
	Name      string `json:"name"`
	History   string `json:"history"`
	Metrics   string `json:"metrics,omitempty"`
	Session   string `json:"session,omitempty"`
	Interview string `json:"interview,omitempty"`
}

// SaveChat upserts a chat record. History is required; the other
// documents are optional and kept as opaque JSON/text.
func (s *Store) SaveChat(ctx context.Context, rec ChatRecord) error {
	if rec.Name == "" {
		return fmt.Errorf("chat name cannot be empty")
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO chats (name, history, metrics, session, interview, updated_at)
		VALUES (?, ?, ?, ?, ?, datetime('now'))
		ON CONFLICT(name) DO UPDATE SET
			history = excluded.history,
			metrics = excluded.metrics,
			session = excluded.session,
			interview = excluded.interview,
			updated_at = datetime('now')
	`, rec.Name, rec.History, rec.Metrics, rec.Session, rec.Interview)
	if err != nil {
		return fmt.Errorf("failed to save chat %q: %w", rec.Name, err)
	}
	return nil
}

// LoadChat returns the saved chat by name.
func (s *Store) LoadChat(ctx context.Context, name string) (ChatRecord, error) {
	var rec ChatRecord
	var metrics, session, interview sql.NullString
	err := s.db.QueryRowContext(ctx, `
		SELECT name, history, metrics, session, interview FROM chats WHERE name = ?
	`, name).Scan(&rec.Name, &rec.History, &metrics, &session, &interview)
	if errors.Is(err, sql.ErrNoRows) {
		return ChatRecord{}, fmt.Errorf("chat %q: %w", name, ErrNotFound)
	}
	if err != nil {
		return ChatRecord{}, fmt.Errorf("failed to load chat %q: %w", name, err)
	}
	rec.Metrics = metrics.String
	rec.Session = session.String
	rec.Interview = interview.String
	return rec, nil
}

// ListChats returns the saved chat names, most recently updated first.
func (s *Store) ListChats(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT name FROM chats ORDER BY updated_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list chats: %w", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("failed to scan chat name: %w", err)
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

// AnalysisRecord is a saved image analysis: history plus the analyzed
// image bytes, if kept.
type AnalysisRecord struct {
	Name    string
	History string
	Image   []byte
}

// SaveAnalysis upserts an analysis record.
func (s *Store) SaveAnalysis(ctx context.Context, rec AnalysisRecord) error {
	if rec.Name == "" {
		return fmt.Errorf("analysis name cannot be empty")
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO analyses (name, history, image, updated_at)
		VALUES (?, ?, ?, datetime('now'))
		ON CONFLICT(name) DO UPDATE SET
			history = excluded.history,
			image = excluded.image,
			updated_at = datetime('now')
	`, rec.Name, rec.History, rec.Image)
	if err != nil {
		return fmt.Errorf("failed to save analysis %q: %w", rec.Name, err)
	}
	return nil
}

// LoadAnalysis returns the saved analysis by name.
func (s *Store) LoadAnalysis(ctx context.Context, name string) (AnalysisRecord, error) {
	var rec AnalysisRecord
	err := s.db.QueryRowContext(ctx, `
		SELECT name, history, image FROM analyses WHERE name = ?
	`, name).Scan(&rec.Name, &rec.History, &rec.Image)
	if errors.Is(err, sql.ErrNoRows) {
		return AnalysisRecord{}, fmt.Errorf("analysis %q: %w", name, ErrNotFound)
	}
	if err != nil {
		return AnalysisRecord{}, fmt.Errorf("failed to load analysis %q: %w", name, err)
	}
	return rec, nil
}

// ListAnalyses returns the saved analysis names, most recent first.
func (s *Store) ListAnalyses(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT name FROM analyses ORDER BY updated_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list analyses: %w", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("failed to scan analysis name: %w", err)
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

// PowerReport is one finalized per-prompt energy measurement.
type PowerReport struct {
	ID         string    `json:"id"`
	RecordedAt time.Time `json:"recorded_at"`
	Model      string    `json:"model"`
	Wh         float64   `json:"wh"`
}

// AppendPowerReport records a finalized energy measurement.
func (s *Store) AppendPowerReport(ctx context.Context, model string, wh float64) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO power_reports (id, recorded_at, model, wh) VALUES (?, ?, ?, ?)
	`, uuid.NewString(), time.Now().UTC().Format(time.RFC3339), model, wh)
	if err != nil {
		return fmt.Errorf("failed to append power report: %w", err)
	}
	return nil
}

// TodayTotalWh sums the energy recorded since local midnight.
func (s *Store) TodayTotalWh(ctx context.Context) (float64, error) {
	now := time.Now()
	localMidnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	midnight := localMidnight.UTC().Format(time.RFC3339)
	var total sql.NullFloat64
	err := s.db.QueryRowContext(ctx, `
		SELECT SUM(wh) FROM power_reports WHERE recorded_at >= ?
	`, midnight).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("failed to sum power reports: %w", err)
	}
	return total.Float64, nil
}

// PowerReports returns all recorded reports, oldest first.
func (s *Store) PowerReports(ctx context.Context) ([]PowerReport, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, recorded_at, model, wh FROM power_reports ORDER BY recorded_at
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query power reports: %w", err)
	}
	defer rows.Close()

	var reports []PowerReport
	for rows.Next() {
		var r PowerReport
		var ts string
		if err := rows.Scan(&r.ID, &ts, &r.Model, &r.Wh); err != nil {
			return nil, fmt.Errorf("failed to scan power report: %w", err)
		}
		if t, err := time.Parse(time.RFC3339, ts); err == nil {
			r.RecordedAt = t
		}
		reports = append(reports, r)
	}
	return reports, rows.Err()
}
