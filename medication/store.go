/*
store.go - Persistence contract and on-disk record shapes

PURPOSE:
  Defines the interface between the engine and its persistence backend.
  The engine treats each of the three stores as an opaque whole-document
  blob: load everything, mutate in memory, save everything back.

STORES:
  - Medications: ordered sequence of medication records
  - Checklist:   one date-tagged completion map
  - History:     ordered notification records, newest first, capped

WIRE FORMAT:
  The JSON field names are the legacy Spanish ones so existing data
  files keep loading (nombre, dosis, frecuencia_dias, ...). Older files
  wrote the start date under either "inicio" or "fecha_inicio"; the
  loader accepts both. Schedule datetimes are minute precision
  ("2006-01-02 15:04"); notification timestamps carry seconds.

FAILURE POLICY:
  Load failures must degrade to an empty store, save failures must not
  corrupt the previous file contents. Implementations log and recover;
  they never bring the process down.

IMPLEMENTATIONS:
  - store/memory:   In-memory, for tests and dev
  - store/jsonfile: Three JSON files, write-to-temp-then-rename
  - store/sqlite:   SQLite tables with whole-document replace semantics
*/
package medication

import (
	"context"
	"log"
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// STORE - Whole-document persistence for the three stores
// =============================================================================

type Store interface {
	LoadMedications(ctx context.Context) ([]MedicationRecord, error)
	SaveMedications(ctx context.Context, recs []MedicationRecord) error

	LoadChecklist(ctx context.Context) (ChecklistRecord, error)
	SaveChecklist(ctx context.Context, rec ChecklistRecord) error

	LoadHistory(ctx context.Context) ([]HistoryRecord, error)
	SaveHistory(ctx context.Context, recs []HistoryRecord) error
}

// =============================================================================
// RECORDS - Serialized shapes (legacy field names)
// =============================================================================

type MedicationRecord struct {
	ID              string  `json:"id,omitempty"`
	Name            string  `json:"nombre"`
	Description     string  `json:"descripcion"`
	Presentation    string  `json:"presentacion"`
	TotalQuantity   float64 `json:"cantidad_total"`
	CurrentQuantity float64 `json:"cantidad_actual"`
	DoseAmount      float64 `json:"dosis"`
	FrequencyDays   int     `json:"frecuencia_dias"`
	StartDate       string  `json:"inicio,omitempty"`
	StartDateAlt    string  `json:"fecha_inicio,omitempty"`
	EndDate         string  `json:"fecha_fin,omitempty"`
	AlertActive     bool    `json:"notificaciones_activas"`
	LastDoseNotif   string  `json:"ultima_notif_dosis,omitempty"`
}

type ChecklistRecord struct {
	Date        string          `json:"fecha"`
	Medications map[string]bool `json:"medicamentos"`
}

type HistoryRecord struct {
	At         string `json:"fecha"`
	Kind       string `json:"tipo"`
	Medication string `json:"medicamento"`
	Message    string `json:"mensaje"`
	Read       bool   `json:"leida"`
}

// =============================================================================
// CONVERSIONS
// =============================================================================

// Legacy kind values as written by the original data files.
var kindToLegacy = map[NotificationKind]string{
	KindDoseDue:   "dosis",
	KindLowStock:  "stock_bajo",
	KindExhausted: "agotado",
}

var legacyToKind = map[string]NotificationKind{
	"dosis":      KindDoseDue,
	"stock_bajo": KindLowStock,
	"agotado":    KindExhausted,
}

func (m *Medication) Record() MedicationRecord {
	rec := MedicationRecord{
		ID:            string(m.ID),
		Name:          m.Name,
		Description:   m.Description,
		Presentation:  m.Presentation,
		FrequencyDays: m.FrequencyDays,
		AlertActive:   m.AlertActive,
	}
	rec.TotalQuantity, _ = m.TotalQuantity.Float64()
	rec.CurrentQuantity, _ = m.CurrentQuantity.Float64()
	rec.DoseAmount, _ = m.DoseAmount.Float64()
	if !m.StartDate.IsZero() {
		rec.StartDate = m.StartDate.Format(DateTimeLayout)
	}
	if !m.EndDate.IsZero() {
		rec.EndDate = m.EndDate.Format(DateTimeLayout)
	}
	if !m.LastDoseNotified.IsZero() {
		rec.LastDoseNotif = m.LastDoseNotified.Format(TimestampLayout)
	}
	return rec
}

// MedicationFromRecord rebuilds a Medication from its persisted form.
// Unparsable dates are dropped (logged), which fails open: no start
// date means always due, no end date means remaining unknown.
func MedicationFromRecord(rec MedicationRecord) *Medication {
	m := &Medication{
		ID:              MedicationID(rec.ID),
		Name:            rec.Name,
		Description:     rec.Description,
		Presentation:    rec.Presentation,
		TotalQuantity:   decimal.NewFromFloat(rec.TotalQuantity),
		CurrentQuantity: decimal.NewFromFloat(rec.CurrentQuantity),
		DoseAmount:      decimal.NewFromFloat(rec.DoseAmount),
		FrequencyDays:   rec.FrequencyDays,
		AlertActive:     rec.AlertActive,
	}
	if m.FrequencyDays < 1 {
		m.FrequencyDays = 1
	}
	start := rec.StartDate
	if start == "" {
		start = rec.StartDateAlt
	}
	m.StartDate = parseLocal(DateTimeLayout, start, rec.Name, "start date")
	m.EndDate = parseLocal(DateTimeLayout, rec.EndDate, rec.Name, "end date")
	m.LastDoseNotified = parseLocal(TimestampLayout, rec.LastDoseNotif, rec.Name, "last dose notification")
	return m
}

func parseLocal(layout, value, name, field string) time.Time {
	if value == "" {
		return time.Time{}
	}
	t, err := time.ParseInLocation(layout, value, time.Local)
	if err != nil {
		log.Printf("[Store] Dropping unparsable %s for %q: %v", field, name, err)
		return time.Time{}
	}
	return t
}

func (r NotificationRecord) Record() HistoryRecord {
	kind := kindToLegacy[r.Kind]
	if kind == "" {
		kind = string(r.Kind)
	}
	return HistoryRecord{
		At:         r.At.Format(TimestampLayout),
		Kind:       kind,
		Medication: r.Medication,
		Message:    r.Message,
		Read:       r.Read,
	}
}

func NotificationFromRecord(rec HistoryRecord) NotificationRecord {
	kind, ok := legacyToKind[rec.Kind]
	if !ok {
		kind = NotificationKind(rec.Kind)
	}
	return NotificationRecord{
		At:         parseLocal(TimestampLayout, rec.At, rec.Medication, "notification timestamp"),
		Kind:       kind,
		Medication: rec.Medication,
		Message:    rec.Message,
		Read:       rec.Read,
	}
}
