// Package memory provides an in-memory Store implementation for
// testing and development.
package memory

import (
	"context"
	"sync"

	"github.com/warp/dose-engine/medication"
)

// =============================================================================
// MEMORY STORE
// =============================================================================

type Store struct {
	mu        sync.RWMutex
	meds      []medication.MedicationRecord
	checklist medication.ChecklistRecord
	history   []medication.HistoryRecord
}

func New() *Store {
	return &Store{}
}

func (s *Store) LoadMedications(_ context.Context) ([]medication.MedicationRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]medication.MedicationRecord(nil), s.meds...), nil
}

func (s *Store) SaveMedications(_ context.Context, recs []medication.MedicationRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.meds = append([]medication.MedicationRecord(nil), recs...)
	return nil
}

func (s *Store) LoadChecklist(_ context.Context) (medication.ChecklistRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec := s.checklist
	rec.Medications = copyMap(s.checklist.Medications)
	return rec, nil
}

func (s *Store) SaveChecklist(_ context.Context, rec medication.ChecklistRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec.Medications = copyMap(rec.Medications)
	s.checklist = rec
	return nil
}

func (s *Store) LoadHistory(_ context.Context) ([]medication.HistoryRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]medication.HistoryRecord(nil), s.history...), nil
}

func (s *Store) SaveHistory(_ context.Context, recs []medication.HistoryRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.history = append([]medication.HistoryRecord(nil), recs...)
	return nil
}

// Seed installs initial state directly, bypassing the ledger. Test helper.
func (s *Store) Seed(meds []medication.MedicationRecord, checklist medication.ChecklistRecord, history []medication.HistoryRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.meds = append([]medication.MedicationRecord(nil), meds...)
	s.checklist = checklist
	s.history = append([]medication.HistoryRecord(nil), history...)
}

func copyMap(m map[string]bool) map[string]bool {
	if m == nil {
		return nil
	}
	out := make(map[string]bool, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
