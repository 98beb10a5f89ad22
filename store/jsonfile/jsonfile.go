/*
Package jsonfile persists the three stores as JSON files in a data
directory, compatible with the original data files.

FILES:
  medicamentos.json              Ordered medication records
  checklist_diario.json          Date-tagged completion map
  historial_notificaciones.json  Notification log, newest first

FAILURE POLICY:
  - Missing file         -> empty store (first run)
  - Unreadable/corrupt   -> empty store, logged (the engine must keep
                            reminding even when a file is damaged)
  - Save                 -> write to a temp file in the same directory,
                            then rename over the target, so a failed
                            write never corrupts the previous contents
*/
package jsonfile

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/warp/dose-engine/medication"
)

const (
	medicationsFile = "medicamentos.json"
	checklistFile   = "checklist_diario.json"
	historyFile     = "historial_notificaciones.json"
)

// =============================================================================
// JSON FILE STORE
// =============================================================================

type Store struct {
	dir string
}

// New creates the data directory if needed and returns the store.
func New(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}
	return &Store{dir: dir}, nil
}

func (s *Store) LoadMedications(_ context.Context) ([]medication.MedicationRecord, error) {
	var recs []medication.MedicationRecord
	s.load(medicationsFile, &recs)
	return recs, nil
}

func (s *Store) SaveMedications(_ context.Context, recs []medication.MedicationRecord) error {
	if recs == nil {
		recs = []medication.MedicationRecord{}
	}
	return s.save(medicationsFile, recs)
}

func (s *Store) LoadChecklist(_ context.Context) (medication.ChecklistRecord, error) {
	var rec medication.ChecklistRecord
	s.load(checklistFile, &rec)
	return rec, nil
}

func (s *Store) SaveChecklist(_ context.Context, rec medication.ChecklistRecord) error {
	return s.save(checklistFile, rec)
}

func (s *Store) LoadHistory(_ context.Context) ([]medication.HistoryRecord, error) {
	var recs []medication.HistoryRecord
	s.load(historyFile, &recs)
	return recs, nil
}

func (s *Store) SaveHistory(_ context.Context, recs []medication.HistoryRecord) error {
	if recs == nil {
		recs = []medication.HistoryRecord{}
	}
	return s.save(historyFile, recs)
}

// =============================================================================
// FILE PLUMBING
// =============================================================================

// load fills out from the named file, degrading to the zero value on
// any failure. Load errors are survivable by design.
func (s *Store) load(name string, out any) {
	path := filepath.Join(s.dir, name)
	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			log.Printf("[Store] Reading %s failed, starting empty: %v", name, err)
		}
		return
	}
	if len(data) == 0 {
		return
	}
	if err := json.Unmarshal(data, out); err != nil {
		log.Printf("[Store] Parsing %s failed, starting empty: %v", name, err)
	}
}

// save writes atomically: temp file in the same directory, then rename.
func (s *Store) save(name string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding %s: %w", name, err)
	}

	tmp, err := os.CreateTemp(s.dir, name+".tmp-*")
	if err != nil {
		return fmt.Errorf("creating temp file for %s: %w", name, err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("writing %s: %w", name, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing %s: %w", name, err)
	}
	if err := os.Rename(tmp.Name(), filepath.Join(s.dir, name)); err != nil {
		return fmt.Errorf("replacing %s: %w", name, err)
	}
	return nil
}
