package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/mattn/go-sqlite3"
	apperrors "momentum-options/internal/errors"
	"momentum-options/internal/models"
	"momentum-options/pkg/utils"
)

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db    *sql.DB
	retry utils.RetryConfig
}

// NewSQLiteStore opens (or creates) the database at dbPath.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Batch evaluation reads series concurrently.
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(time.Hour)

	store := &SQLiteStore{
		db: db,
		// Writers that outlive busy_timeout get a few more attempts.
		retry: utils.RetryConfig{
			MaxAttempts:   3,
			InitialDelay:  50 * time.Millisecond,
			MaxDelay:      time.Second,
			BackoffFactor: 2,
			Retryable:     isBusy,
		},
	}

	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return store, nil
}

// initSchema creates all required tables and indexes.
func (s *SQLiteStore) initSchema() error {
	schema := `
	-- Adjusted closes per ticker
	CREATE TABLE IF NOT EXISTS prices (
		ticker TEXT NOT NULL,
		date DATETIME NOT NULL,
		adj_close REAL NOT NULL,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		PRIMARY KEY (ticker, date)
	);

	-- Ranked momentum batches
	CREATE TABLE IF NOT EXISTS snapshots (
		id TEXT PRIMARY KEY,
		strategy TEXT NOT NULL,
		calculation_date DATETIME NOT NULL,
		nb_top INTEGER NOT NULL,
		records TEXT NOT NULL,
		created_at DATETIME NOT NULL
	);

	-- Default ticker panel
	CREATE TABLE IF NOT EXISTS panel (
		ticker TEXT PRIMARY KEY,
		added_at DATETIME NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_prices_ticker_date ON prices(ticker, date);
	CREATE INDEX IF NOT EXISTS idx_snapshots_strategy ON snapshots(strategy, created_at);
	`

	_, err := s.db.Exec(schema)
	return err
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// ============================================================================
// Price Methods
// ============================================================================

// SavePrices upserts closes for ticker in one transaction.
func (s *SQLiteStore) SavePrices(ctx context.Context, ticker string, points []models.PricePoint) error {
	if len(points) == 0 {
		return nil
	}
	ticker = normalizeTicker(ticker)
	if ticker == "" {
		return apperrors.NewValidationError("ticker", ticker, "must not be empty")
	}
	for _, p := range points {
		if p.AdjClose <= 0 {
			return apperrors.NewValidationError("adj_close", p.AdjClose, "must be positive")
		}
	}

	return utils.Retry(ctx, s.retry, func() error {
		return s.savePrices(ctx, ticker, points)
	})
}

func (s *SQLiteStore) savePrices(ctx context.Context, ticker string, points []models.PricePoint) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT OR REPLACE INTO prices (ticker, date, adj_close)
		VALUES (?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	for _, p := range points {
		if _, err := stmt.ExecContext(ctx, ticker, dayUTC(p.Date), p.AdjClose); err != nil {
			return fmt.Errorf("failed to insert price: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// GetPrices retrieves closes for ticker between from and to inclusive.
func (s *SQLiteStore) GetPrices(ctx context.Context, ticker string, from, to time.Time) ([]models.PricePoint, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT date, adj_close
		FROM prices
		WHERE ticker = ? AND date >= ? AND date <= ?
		ORDER BY date ASC
	`, normalizeTicker(ticker), dayUTC(from), dayUTC(to))
	if err != nil {
		return nil, fmt.Errorf("failed to query prices: %w", err)
	}
	defer rows.Close()

	var points []models.PricePoint
	for rows.Next() {
		var p models.PricePoint
		if err := rows.Scan(&p.Date, &p.AdjClose); err != nil {
			return nil, fmt.Errorf("failed to scan price: %w", err)
		}
		points = append(points, p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating prices: %w", err)
	}

	return points, nil
}

// LatestPriceDate returns the date of the most recent close.
func (s *SQLiteStore) LatestPriceDate(ctx context.Context, ticker string) (time.Time, error) {
	var date time.Time
	err := s.db.QueryRowContext(ctx, `
		SELECT date FROM prices WHERE ticker = ? ORDER BY date DESC LIMIT 1
	`, normalizeTicker(ticker)).Scan(&date)
	if err == sql.ErrNoRows {
		return time.Time{}, nil
	}
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to get latest price date: %w", err)
	}
	return date, nil
}

// Tickers lists every ticker with stored prices.
func (s *SQLiteStore) Tickers(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT DISTINCT ticker FROM prices ORDER BY ticker`)
	if err != nil {
		return nil, fmt.Errorf("failed to query tickers: %w", err)
	}
	defer rows.Close()

	var tickers []string
	for rows.Next() {
		var t string
		if err := rows.Scan(&t); err != nil {
			return nil, fmt.Errorf("failed to scan ticker: %w", err)
		}
		tickers = append(tickers, t)
	}
	return tickers, rows.Err()
}

// ============================================================================
// Panel Methods
// ============================================================================

// AddToPanel adds tickers to the panel. Tickers already present keep their
// original position.
func (s *SQLiteStore) AddToPanel(ctx context.Context, tickers []string) error {
	normalized, err := normalizeTickers(tickers)
	if err != nil {
		return err
	}
	now := time.Now().UTC()
	return utils.Retry(ctx, s.retry, func() error {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("failed to begin transaction: %w", err)
		}
		defer tx.Rollback()

		stmt, err := tx.PrepareContext(ctx, `INSERT OR IGNORE INTO panel (ticker, added_at) VALUES (?, ?)`)
		if err != nil {
			return fmt.Errorf("failed to prepare statement: %w", err)
		}
		defer stmt.Close()

		for _, t := range normalized {
			if _, err := stmt.ExecContext(ctx, t, now); err != nil {
				return fmt.Errorf("failed to add %s to panel: %w", t, err)
			}
		}
		return tx.Commit()
	})
}

// RemoveFromPanel deletes tickers from the panel.
func (s *SQLiteStore) RemoveFromPanel(ctx context.Context, tickers []string) (int, error) {
	normalized, err := normalizeTickers(tickers)
	if err != nil {
		return 0, err
	}
	removed := 0
	for _, t := range normalized {
		res, err := s.db.ExecContext(ctx, `DELETE FROM panel WHERE ticker = ?`, t)
		if err != nil {
			return removed, fmt.Errorf("failed to remove %s from panel: %w", t, err)
		}
		n, _ := res.RowsAffected()
		removed += int(n)
	}
	return removed, nil
}

// PanelTickers lists the panel oldest first.
func (s *SQLiteStore) PanelTickers(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT ticker FROM panel ORDER BY added_at, rowid`)
	if err != nil {
		return nil, fmt.Errorf("failed to query panel: %w", err)
	}
	defer rows.Close()

	var tickers []string
	for rows.Next() {
		var t string
		if err := rows.Scan(&t); err != nil {
			return nil, fmt.Errorf("failed to scan ticker: %w", err)
		}
		tickers = append(tickers, t)
	}
	return tickers, rows.Err()
}

func normalizeTickers(tickers []string) ([]string, error) {
	out := make([]string, 0, len(tickers))
	for _, t := range tickers {
		n := normalizeTicker(t)
		if n == "" {
			return nil, apperrors.NewValidationError("ticker", t, "must not be empty")
		}
		out = append(out, n)
	}
	return out, nil
}

// ============================================================================
// Snapshot Methods
// ============================================================================

// AppendSnapshot stores a ranked batch under a fresh ID.
func (s *SQLiteStore) AppendSnapshot(ctx context.Context, snap *models.Snapshot) error {
	if !snap.Strategy.Valid() {
		return apperrors.NewValidationError("strategy", snap.Strategy, "must be long or short")
	}
	records, err := json.Marshal(snap.Records)
	if err != nil {
		return fmt.Errorf("failed to encode records: %w", err)
	}

	snap.ID = uuid.New().String()
	snap.CreatedAt = time.Now().UTC()

	err = utils.Retry(ctx, s.retry, func() error {
		_, err := s.db.ExecContext(ctx, `
			INSERT INTO snapshots (id, strategy, calculation_date, nb_top, records, created_at)
			VALUES (?, ?, ?, ?, ?, ?)
		`, snap.ID, snap.Strategy, snap.CalculationDate.UTC(), snap.NbTop, string(records), snap.CreatedAt)
		return err
	})
	if err != nil {
		return fmt.Errorf("failed to save snapshot: %v: %w", err, apperrors.ErrDatabaseError)
	}
	return nil
}

// ListSnapshots returns snapshots newest first.
func (s *SQLiteStore) ListSnapshots(ctx context.Context, filter SnapshotFilter) ([]models.Snapshot, error) {
	query := "SELECT id, strategy, calculation_date, nb_top, records, created_at FROM snapshots WHERE 1=1"
	args := []interface{}{}

	if filter.Strategy != "" {
		query += " AND strategy = ?"
		args = append(args, filter.Strategy)
	}

	query += " ORDER BY created_at DESC, rowid DESC"
	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query snapshots: %w", err)
	}
	defer rows.Close()

	var snaps []models.Snapshot
	for rows.Next() {
		snap, err := scanSnapshot(rows)
		if err != nil {
			return nil, err
		}
		snaps = append(snaps, *snap)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating snapshots: %w", err)
	}

	return snaps, nil
}

// GetSnapshot retrieves a single snapshot by ID.
func (s *SQLiteStore) GetSnapshot(ctx context.Context, id string) (*models.Snapshot, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, strategy, calculation_date, nb_top, records, created_at
		FROM snapshots WHERE id = ?
	`, id)
	snap, err := scanSnapshot(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("snapshot %s: %w", id, apperrors.ErrSnapshotNotFound)
	}
	return snap, err
}

// LatestSnapshot returns the most recent snapshot of a strategy.
func (s *SQLiteStore) LatestSnapshot(ctx context.Context, strategy models.Strategy) (*models.Snapshot, error) {
	snaps, err := s.ListSnapshots(ctx, SnapshotFilter{Strategy: strategy, Limit: 1})
	if err != nil {
		return nil, err
	}
	if len(snaps) == 0 {
		return nil, fmt.Errorf("no %s snapshot: %w", strategy, apperrors.ErrSnapshotNotFound)
	}
	return &snaps[0], nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanSnapshot(row rowScanner) (*models.Snapshot, error) {
	var snap models.Snapshot
	var recordsJSON string
	if err := row.Scan(&snap.ID, &snap.Strategy, &snap.CalculationDate, &snap.NbTop, &recordsJSON, &snap.CreatedAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan snapshot: %w", err)
	}
	if err := json.Unmarshal([]byte(recordsJSON), &snap.Records); err != nil {
		return nil, fmt.Errorf("failed to decode snapshot %s: %w", snap.ID, err)
	}
	return &snap, nil
}

// isBusy reports whether err is SQLite lock contention.
func isBusy(err error) bool {
	var se sqlite3.Error
	if errors.As(err, &se) {
		return se.Code == sqlite3.ErrBusy || se.Code == sqlite3.ErrLocked
	}
	return false
}

func normalizeTicker(t string) string {
	return strings.ToUpper(strings.TrimSpace(t))
}

// dayUTC truncates t to midnight UTC of its calendar day.
func dayUTC(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
