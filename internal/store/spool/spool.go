// Package spool is a local SQLite dead-letter store for alert batches
// the primary document store rejected while its circuit breaker is
// open. Adapted from the teacher's internal/store/sqlite writer:
// same single-connection, WAL-mode, batched-transaction idiom,
// retargeted from candle rows to alert rows and given a drain path
// instead of a read-only query surface.
package spool

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"log"

	_ "github.com/mattn/go-sqlite3"

	"github.com/Datta-sai-vvn/StormAlert/internal/model"
)

// Spool is a single-goroutine SQLite-backed dead-letter queue.
type Spool struct {
	db *sql.DB
}

// Open creates or opens the spool database at path.
func Open(path string) (*Spool, error) {
	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("spool: open: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := createSchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("spool: schema: %w", err)
	}

	log.Printf("[spool] opened database at %s", path)
	return &Spool{db: db}, nil
}

func createSchema(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS spooled_alerts (
			id         INTEGER PRIMARY KEY AUTOINCREMENT,
			data       TEXT    NOT NULL,
			spooled_at INTEGER NOT NULL DEFAULT (strftime('%s', 'now'))
		);
	`)
	return err
}

// Write persists a batch of alerts that could not be written to the
// primary store, in a single transaction.
func (s *Spool) Write(alerts []model.AlertRecord) error {
	if len(alerts) == 0 {
		return nil
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("spool: begin: %w", err)
	}

	stmt, err := tx.Prepare(`INSERT INTO spooled_alerts (data) VALUES (?)`)
	if err != nil {
		tx.Rollback()
		return fmt.Errorf("spool: prepare: %w", err)
	}
	defer stmt.Close()

	for _, a := range alerts {
		data, err := json.Marshal(a)
		if err != nil {
			tx.Rollback()
			return fmt.Errorf("spool: marshal alert %s: %w", a.AlertID, err)
		}
		if _, err := stmt.Exec(string(data)); err != nil {
			tx.Rollback()
			return fmt.Errorf("spool: insert: %w", err)
		}
	}

	return tx.Commit()
}

// Drain returns up to limit spooled alerts, oldest first, without
// removing them. The caller calls Delete once each has been
// successfully replayed to the primary store.
func (s *Spool) Drain(limit int) ([]SpooledAlert, error) {
	rows, err := s.db.Query(`SELECT id, data FROM spooled_alerts ORDER BY id ASC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("spool: query: %w", err)
	}
	defer rows.Close()

	var out []SpooledAlert
	for rows.Next() {
		var id int64
		var data string
		if err := rows.Scan(&id, &data); err != nil {
			return nil, fmt.Errorf("spool: scan: %w", err)
		}
		var alert model.AlertRecord
		if err := json.Unmarshal([]byte(data), &alert); err != nil {
			log.Printf("[spool] dropping unparseable spooled row %d: %v", id, err)
			continue
		}
		out = append(out, SpooledAlert{RowID: id, Alert: alert})
	}
	return out, rows.Err()
}

// Delete removes a replayed row by its spool-local ID.
func (s *Spool) Delete(rowID int64) error {
	_, err := s.db.Exec(`DELETE FROM spooled_alerts WHERE id = ?`, rowID)
	return err
}

// Depth reports how many alerts are currently spooled.
func (s *Spool) Depth() (int, error) {
	var n int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM spooled_alerts`).Scan(&n)
	return n, err
}

// Close closes the underlying database.
func (s *Spool) Close() error {
	return s.db.Close()
}

// SpooledAlert pairs a spool row ID with its decoded alert so the
// caller can acknowledge replay by ID.
type SpooledAlert struct {
	RowID int64
	Alert model.AlertRecord
}
