package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"OptionsSentinel/internal/model"
)

// SQLiteStore keeps one row per date holding the JSON document body.
type SQLiteStore struct {
	db  *sql.DB
	mu  sync.Mutex
	log *zap.SugaredLogger
}

// NewSQLiteStore opens (or creates) the SQLite database and runs migrations.
func NewSQLiteStore(dbPath string, log *zap.SugaredLogger) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// WAL lets an exported snapshot be read while the tracker writes.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	s := &SQLiteStore{db: db, log: log}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	log.Infow("sqlite store opened", "path", dbPath)
	return s, nil
}

func (s *SQLiteStore) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS ` + Collection + ` (
			date       TEXT PRIMARY KEY,
			body       TEXT NOT NULL,
			updated_at INTEGER NOT NULL
		)`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("exec %q: %w", stmt[:40], err)
		}
	}
	return nil
}

func (s *SQLiteStore) Get(ctx context.Context, date string) (*model.DailyRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	row := s.db.QueryRowContext(ctx, `SELECT body FROM `+Collection+` WHERE date = ?`, date)
	return scanRecord(row)
}

func (s *SQLiteStore) Latest(ctx context.Context) (*model.DailyRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	row := s.db.QueryRowContext(ctx, `SELECT body FROM `+Collection+` ORDER BY date DESC LIMIT 1`)
	return scanRecord(row)
}

func (s *SQLiteStore) Set(ctx context.Context, rec *model.DailyRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	body, err := json.Marshal(normalize(rec))
	if err != nil {
		return fmt.Errorf("encode %s: %w", rec.Date, err)
	}
	_, err = s.db.ExecContext(ctx, `INSERT INTO `+Collection+` (date, body, updated_at)
		VALUES (?,?,?)
		ON CONFLICT(date) DO UPDATE SET body = excluded.body, updated_at = excluded.updated_at`,
		rec.Date, string(body), time.Now().Unix(),
	)
	return err
}

func (s *SQLiteStore) Close() error {
	s.log.Info("closing sqlite store")
	return s.db.Close()
}

func scanRecord(row *sql.Row) (*model.DailyRecord, error) {
	var body string
	if err := row.Scan(&body); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	var rec model.DailyRecord
	if err := json.Unmarshal([]byte(body), &rec); err != nil {
		return nil, fmt.Errorf("decode record: %w", err)
	}
	return normalize(&rec), nil
}

// normalize guarantees a non-nil options slice so documents always carry "options": [].
func normalize(rec *model.DailyRecord) *model.DailyRecord {
	if rec.Options == nil {
		rec.Options = []model.OptionCandidate{}
	}
	return rec
}
