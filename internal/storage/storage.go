package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/egtbills/tbill-yields/internal/config"
	"github.com/egtbills/tbill-yields/internal/logger"
	"github.com/egtbills/tbill-yields/internal/timezone"
	"github.com/egtbills/tbill-yields/internal/yield"
)

// MemoryPath opens a private in-memory database, mostly for tests
const MemoryPath = ":memory:"

// ErrNoData is returned by LatestSnapshot when nothing has been saved yet
var ErrNoData = errors.New("no data")

const schema = `
CREATE TABLE IF NOT EXISTS yields (
	tenor        INTEGER NOT NULL,
	yield        REAL    NOT NULL,
	session_date TEXT    NOT NULL,
	scrape_date  INTEGER NOT NULL,
	PRIMARY KEY (tenor, session_date)
)`

// sessionOrder sorts DD/MM/YYYY text chronologically, newest first
const sessionOrder = `substr(session_date, 7, 4) DESC, substr(session_date, 4, 2) DESC, substr(session_date, 1, 2) DESC`

const upsertQuery = `
INSERT INTO yields (tenor, yield, session_date, scrape_date)
VALUES (?, ?, ?, ?)
ON CONFLICT (tenor, session_date) DO UPDATE SET
	yield = excluded.yield,
	scrape_date = excluded.scrape_date`

const snapshotQuery = `
SELECT tenor, yield, session_date, scrape_date FROM (
	SELECT tenor, yield, session_date, scrape_date,
		ROW_NUMBER() OVER (PARTITION BY tenor ORDER BY scrape_date DESC, ` + sessionOrder + `) AS rn
	FROM yields
)
WHERE rn = 1
ORDER BY tenor`

const historyQuery = `
SELECT tenor, yield, session_date, scrape_date FROM yields
ORDER BY scrape_date DESC, tenor ASC`

const latestSessionQuery = `SELECT session_date FROM yields ORDER BY ` + sessionOrder + ` LIMIT 1`

// Store handles persistence of yield records. It holds no open connection
// between operations, except for an in-memory database.
type Store struct {
	path string
	mem  *sql.DB
}

// Snapshot is the newest record per tenor
type Snapshot struct {
	Records []yield.Record
	// AsOf is the newest scrape time among Records, in Cairo time
	AsOf time.Time
}

// New opens the database at path, creating its directory and schema as needed.
// A leading "~/" is expanded.
func New(path string) (*Store, error) {
	path, err := config.ExpandHome(path)
	if err != nil {
		return nil, err
	}

	s := &Store{path: path}
	if path == MemoryPath {
		db, err := openDB(path)
		if err != nil {
			return nil, err
		}
		s.mem = db
	} else if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	err = s.with(context.Background(), func(db *sql.DB) error {
		_, err := db.Exec(schema)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return s, nil
}

// Path returns the database location
func (s *Store) Path() string {
	return s.path
}

// Close releases the in-memory database. File-backed stores hold nothing open.
func (s *Store) Close() error {
	if s.mem != nil {
		return s.mem.Close()
	}
	return nil
}

func openDB(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	db.SetMaxOpenConns(1)
	if path != MemoryPath {
		if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
			db.Close()
			return nil, fmt.Errorf("opening database: %w", err)
		}
	}
	return db, nil
}

// with runs fn on a connection scoped to one operation
func (s *Store) with(ctx context.Context, fn func(*sql.DB) error) error {
	if s.mem != nil {
		return fn(s.mem)
	}
	db, err := openDB(s.path)
	if err != nil {
		return err
	}
	defer db.Close()
	if err := db.PingContext(ctx); err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	return fn(db)
}

// Save upserts records in a single transaction. Nothing is written if any record
// is invalid. Session dates are stored zero-padded.
func (s *Store) Save(ctx context.Context, records []yield.Record) error {
	if len(records) == 0 {
		return nil
	}
	for _, r := range records {
		if err := r.Validate(); err != nil {
			logger.Error("refusing to save invalid record", logger.Fields{"tenor": r.Tenor, "session_date": r.SessionDate}, err)
			return fmt.Errorf("saving records: %w", err)
		}
	}

	err := s.with(ctx, func(db *sql.DB) error {
		tx, err := db.BeginTx(ctx, nil)
		if err != nil {
			return err
		}
		defer tx.Rollback()

		stmt, err := tx.PrepareContext(ctx, upsertQuery)
		if err != nil {
			return err
		}
		defer stmt.Close()

		for _, r := range records {
			// Validate already parsed it, this only pads day and month
			date, _ := yield.NormalizeSessionDate(r.SessionDate)
			if _, err := stmt.ExecContext(ctx, r.Tenor, r.Rate, date, r.ScrapedAt.UTC().UnixMilli()); err != nil {
				return fmt.Errorf("tenor %d on %s: %w", r.Tenor, r.SessionDate, err)
			}
		}
		return tx.Commit()
	})
	if err != nil {
		logger.Error("failed to save records", logger.Fields{"records": len(records), "path": s.path}, err)
		return fmt.Errorf("saving records: %w", err)
	}

	logger.Info("saved records", logger.Fields{"records": len(records)})
	return nil
}

// LatestSnapshot returns, per tenor, the record scraped most recently. Among
// records scraped at the same time the later session wins.
func (s *Store) LatestSnapshot(ctx context.Context) (*Snapshot, error) {
	records, err := s.query(ctx, snapshotQuery)
	if err != nil {
		return nil, fmt.Errorf("loading latest snapshot: %w", err)
	}
	if len(records) == 0 {
		return nil, ErrNoData
	}

	var asOf time.Time
	for _, r := range records {
		if r.ScrapedAt.After(asOf) {
			asOf = r.ScrapedAt
		}
	}
	return &Snapshot{Records: records, AsOf: timezone.In(asOf)}, nil
}

// AllHistory returns every stored record, newest scrape first, then by tenor
func (s *Store) AllHistory(ctx context.Context) ([]yield.Record, error) {
	records, err := s.query(ctx, historyQuery)
	if err != nil {
		return nil, fmt.Errorf("loading history: %w", err)
	}
	return records, nil
}

// LatestSessionDate returns the newest session date stored, or false when the
// store is empty
func (s *Store) LatestSessionDate(ctx context.Context) (string, bool, error) {
	var date string
	err := s.with(ctx, func(db *sql.DB) error {
		return db.QueryRowContext(ctx, latestSessionQuery).Scan(&date)
	})
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("loading latest session date: %w", err)
	}
	return date, true, nil
}

func (s *Store) query(ctx context.Context, query string) ([]yield.Record, error) {
	var records []yield.Record
	err := s.with(ctx, func(db *sql.DB) error {
		rows, err := db.QueryContext(ctx, query)
		if err != nil {
			return err
		}
		defer rows.Close()

		for rows.Next() {
			var r yield.Record
			var scraped int64
			if err := rows.Scan(&r.Tenor, &r.Rate, &r.SessionDate, &scraped); err != nil {
				return err
			}
			r.ScrapedAt = time.UnixMilli(scraped).UTC()
			records = append(records, r)
		}
		return rows.Err()
	})
	return records, err
}
