package medication

import "time"

// =============================================================================
// NOTIFICATION HISTORY - Append-only, capped, newest first
// =============================================================================

const (
	// HistoryCap is how many records the store keeps.
	HistoryCap = 50
	// HistoryDisplay is how many records the UI shows by default.
	HistoryDisplay = 20
)

// NotificationRecord is one emitted event as remembered by the history.
// Records are never mutated after creation, only evicted or cleared.
type NotificationRecord struct {
	At         time.Time
	Kind       NotificationKind
	Medication string
	Message    string
	Read       bool
}

// History is the capped newest-first log of emitted events. It has no
// lock of its own: the Ledger serializes all access.
type History struct {
	records []NotificationRecord
}

func NewHistory() *History { return &History{} }

// Append prepends a record and evicts the oldest past the cap.
func (h *History) Append(kind NotificationKind, medication, message string, at time.Time) NotificationRecord {
	rec := NotificationRecord{
		At:         at,
		Kind:       kind,
		Medication: medication,
		Message:    message,
	}
	h.records = append([]NotificationRecord{rec}, h.records...)
	if len(h.records) > HistoryCap {
		h.records = h.records[:HistoryCap]
	}
	return rec
}

// Recent returns up to n records, newest first.
func (h *History) Recent(n int) []NotificationRecord {
	if n < 0 || n > len(h.records) {
		n = len(h.records)
	}
	out := make([]NotificationRecord, n)
	copy(out, h.records[:n])
	return out
}

// All returns every retained record, newest first.
func (h *History) All() []NotificationRecord { return h.Recent(len(h.records)) }

func (h *History) Len() int { return len(h.records) }

func (h *History) Clear() { h.records = nil }

// replace swaps in records loaded from the store, re-applying the cap.
func (h *History) replace(records []NotificationRecord) {
	if len(records) > HistoryCap {
		records = records[:HistoryCap]
	}
	h.records = records
}
