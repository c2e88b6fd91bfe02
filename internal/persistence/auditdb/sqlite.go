// Package auditdb indexes audit events into sqlite. It is a
// read-model only: the ledger never reads state back from it, so a
// missing or disabled index cannot affect the auction.
package auditdb

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"

	_ "modernc.org/sqlite"

	"auctionhouse/internal/auction"
)

type SQLiteIndex struct {
	db *sql.DB

	ch   chan auction.Event
	wg   sync.WaitGroup
	once sync.Once

	closed  atomic.Bool
	dropped atomic.Uint64
}

func OpenSQLite(path string) (*SQLiteIndex, error) {
	if path == "" {
		return nil, fmt.Errorf("empty db path")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := initPragmas(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}

	s := &SQLiteIndex{
		db: db,
		// Buffer absorbs bursty event writes without stalling the core.
		ch: make(chan auction.Event, 4096),
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.loop()
	}()
	return s, nil
}

func initPragmas(db *sql.DB) error {
	// WAL is much faster for append-style workloads.
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA busy_timeout=5000;",
		"PRAGMA temp_store=MEMORY;",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return err
		}
	}
	return nil
}

func initSchema(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS audit (
			seq INTEGER PRIMARY KEY,
			event_id TEXT NOT NULL,
			time TEXT NOT NULL,
			kind TEXT NOT NULL,
			round INTEGER NOT NULL,
			turn INTEGER NOT NULL,
			participant TEXT,
			amount INTEGER NOT NULL,
			detail TEXT
		);`,
		`CREATE INDEX IF NOT EXISTS idx_audit_round ON audit(round, seq);`,
		`CREATE INDEX IF NOT EXISTS idx_audit_participant ON audit(participant, seq);`,
	}
	for _, s := range stmts {
		if _, err := db.Exec(s); err != nil {
			return err
		}
	}
	return nil
}

// Enqueue hands an event to the writer goroutine. It never blocks;
// events are dropped (and counted) when the buffer is saturated.
func (s *SQLiteIndex) Enqueue(e auction.Event) {
	if s.closed.Load() {
		return
	}
	select {
	case s.ch <- e:
	default:
		s.dropped.Add(1)
	}
}

// Dropped reports how many events were discarded due to backpressure.
func (s *SQLiteIndex) Dropped() uint64 { return s.dropped.Load() }

func (s *SQLiteIndex) loop() {
	for e := range s.ch {
		_, err := s.db.Exec(
			`INSERT OR REPLACE INTO audit (seq, event_id, time, kind, round, turn, participant, amount, detail)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			e.Seq, e.ID, e.Time.Format("2006-01-02T15:04:05.000000Z07:00"),
			e.Kind, e.Round, e.Turn, e.Participant, e.Amount, e.Detail,
		)
		if err != nil {
			// Index is best-effort; keep draining.
			continue
		}
	}
}

// CountEvents returns the number of indexed audit rows.
func (s *SQLiteIndex) CountEvents() (int, error) {
	var n int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM audit`).Scan(&n)
	return n, err
}

func (s *SQLiteIndex) Close() error {
	var err error
	s.once.Do(func() {
		s.closed.Store(true)
		close(s.ch)
		s.wg.Wait()
		err = s.db.Close()
	})
	return err
}
