/*
Package sqlite persists the three stores in a single SQLite database.

DESIGN:
  The engine works on whole documents: it loads everything at startup
  and writes everything back after each mutation. Each Save therefore
  replaces the full table contents inside one transaction. Row order is
  preserved with an explicit position column so medications and history
  round-trip in the order the engine keeps them.

SCHEMA:
  medications  One row per medication, ordered by position
  checklist    One row per medication taken today, all tagged with the
               same date
  history      Notification log, newest first by position

  Dates and timestamps are stored as the same formatted strings the JSON
  store writes, so the two backends stay interchangeable.
*/
package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"

	"github.com/warp/dose-engine/medication"
)

// =============================================================================
// SQLITE STORE
// =============================================================================

type Store struct {
	db *sql.DB
}

// New opens (or creates) the database at dbPath and ensures the schema
// exists. WAL mode keeps the background sweeps from blocking API reads.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	// The ledger serializes all writes anyway, and a single connection
	// keeps ":memory:" databases from vanishing across pooled conns.
	db.SetMaxOpenConns(1)
	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrating schema: %w", err)
	}
	return s, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS medications (
		position           INTEGER PRIMARY KEY,
		id                 TEXT NOT NULL,
		name               TEXT NOT NULL,
		description        TEXT NOT NULL DEFAULT '',
		presentation       TEXT NOT NULL DEFAULT '',
		total_quantity     REAL NOT NULL DEFAULT 0,
		current_quantity   REAL NOT NULL DEFAULT 0,
		dose_amount        REAL NOT NULL DEFAULT 0,
		frequency_days     INTEGER NOT NULL DEFAULT 1,
		start_date         TEXT NOT NULL DEFAULT '',
		end_date           TEXT NOT NULL DEFAULT '',
		alert_active       INTEGER NOT NULL DEFAULT 0,
		last_dose_notified TEXT NOT NULL DEFAULT ''
	);

	CREATE TABLE IF NOT EXISTS checklist (
		medication_id TEXT PRIMARY KEY,
		date          TEXT NOT NULL,
		taken         INTEGER NOT NULL DEFAULT 0
	);

	CREATE TABLE IF NOT EXISTS history (
		position   INTEGER PRIMARY KEY,
		at         TEXT NOT NULL,
		kind       TEXT NOT NULL,
		medication TEXT NOT NULL,
		message    TEXT NOT NULL,
		read       INTEGER NOT NULL DEFAULT 0
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// MEDICATIONS
// =============================================================================

func (s *Store) LoadMedications(ctx context.Context) ([]medication.MedicationRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, description, presentation,
		       total_quantity, current_quantity, dose_amount, frequency_days,
		       start_date, end_date, alert_active, last_dose_notified
		FROM medications ORDER BY position`)
	if err != nil {
		return nil, fmt.Errorf("querying medications: %w", err)
	}
	defer rows.Close()

	var recs []medication.MedicationRecord
	for rows.Next() {
		var rec medication.MedicationRecord
		var alert int
		if err := rows.Scan(&rec.ID, &rec.Name, &rec.Description, &rec.Presentation,
			&rec.TotalQuantity, &rec.CurrentQuantity, &rec.DoseAmount, &rec.FrequencyDays,
			&rec.StartDate, &rec.EndDate, &alert, &rec.LastDoseNotif); err != nil {
			return nil, fmt.Errorf("scanning medication: %w", err)
		}
		rec.AlertActive = alert != 0
		recs = append(recs, rec)
	}
	return recs, rows.Err()
}

func (s *Store) SaveMedications(ctx context.Context, recs []medication.MedicationRecord) error {
	return s.replace(ctx, "medications", func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO medications
				(position, id, name, description, presentation,
				 total_quantity, current_quantity, dose_amount, frequency_days,
				 start_date, end_date, alert_active, last_dose_notified)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
		if err != nil {
			return err
		}
		defer stmt.Close()

		for i, rec := range recs {
			start := rec.StartDate
			if start == "" {
				start = rec.StartDateAlt
			}
			if _, err := stmt.ExecContext(ctx, i, rec.ID, rec.Name, rec.Description, rec.Presentation,
				rec.TotalQuantity, rec.CurrentQuantity, rec.DoseAmount, rec.FrequencyDays,
				start, rec.EndDate, boolInt(rec.AlertActive), rec.LastDoseNotif); err != nil {
				return err
			}
		}
		return nil
	})
}

// =============================================================================
// CHECKLIST
// =============================================================================

func (s *Store) LoadChecklist(ctx context.Context) (medication.ChecklistRecord, error) {
	rec := medication.ChecklistRecord{Medications: map[string]bool{}}
	rows, err := s.db.QueryContext(ctx, `SELECT medication_id, date, taken FROM checklist`)
	if err != nil {
		return rec, fmt.Errorf("querying checklist: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var id, date string
		var taken int
		if err := rows.Scan(&id, &date, &taken); err != nil {
			return rec, fmt.Errorf("scanning checklist: %w", err)
		}
		rec.Date = date
		rec.Medications[id] = taken != 0
	}
	return rec, rows.Err()
}

func (s *Store) SaveChecklist(ctx context.Context, rec medication.ChecklistRecord) error {
	return s.replace(ctx, "checklist", func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx,
			`INSERT INTO checklist (medication_id, date, taken) VALUES (?, ?, ?)`)
		if err != nil {
			return err
		}
		defer stmt.Close()

		for id, taken := range rec.Medications {
			if _, err := stmt.ExecContext(ctx, id, rec.Date, boolInt(taken)); err != nil {
				return err
			}
		}
		return nil
	})
}

// =============================================================================
// HISTORY
// =============================================================================

func (s *Store) LoadHistory(ctx context.Context) ([]medication.HistoryRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT at, kind, medication, message, read FROM history ORDER BY position`)
	if err != nil {
		return nil, fmt.Errorf("querying history: %w", err)
	}
	defer rows.Close()

	var recs []medication.HistoryRecord
	for rows.Next() {
		var rec medication.HistoryRecord
		var read int
		if err := rows.Scan(&rec.At, &rec.Kind, &rec.Medication, &rec.Message, &read); err != nil {
			return nil, fmt.Errorf("scanning history: %w", err)
		}
		rec.Read = read != 0
		recs = append(recs, rec)
	}
	return recs, rows.Err()
}

func (s *Store) SaveHistory(ctx context.Context, recs []medication.HistoryRecord) error {
	return s.replace(ctx, "history", func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx,
			`INSERT INTO history (position, at, kind, medication, message, read) VALUES (?, ?, ?, ?, ?, ?)`)
		if err != nil {
			return err
		}
		defer stmt.Close()

		for i, rec := range recs {
			if _, err := stmt.ExecContext(ctx, i, rec.At, rec.Kind, rec.Medication, rec.Message, boolInt(rec.Read)); err != nil {
				return err
			}
		}
		return nil
	})
}

// =============================================================================
// TRANSACTION PLUMBING
// =============================================================================

// replace clears the table and reinserts the full document in one
// transaction, so readers never observe a half-written store.
func (s *Store) replace(ctx context.Context, table string, insert func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
		return fmt.Errorf("clearing %s: %w", table, err)
	}
	if err := insert(tx); err != nil {
		return fmt.Errorf("writing %s: %w", table, err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing %s: %w", table, err)
	}
	return nil
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
