/*
Package medication implements the dosage-depletion and reminder engine.

PURPOSE:
  This package contains the core types and logic for tracking personal
  medication inventories: whether today is a dosing day, when stock runs
  out, when to fire low-stock and dose-due notifications, and how taking
  a dose or restocking mutates remaining supply.

KEY CONCEPTS IN THIS FILE (types.go):
  - Medication: The inventory record for one medication
  - MedicationID: Stable identifier (uuid, not list position)
  - Remaining: Typed days-until-exhaustion variant (Unknown|Depleted|Days)
  - NotificationKind: Classification of emitted reminder events

DESIGN PRINCIPLES:
  1. Precision: Quantities use decimal.Decimal so repeated dose
     decrements never drift the way float arithmetic would
  2. Typed state: Remaining is carried as a variant end-to-end and is
     never re-derived from display text
  3. Fail-open schedules: A medication with no (or unparsable) start
     date is considered always due; the engine must never silently
     stop reminding because of malformed data

SEE ALSO:
  - schedule.go: Pure dosing-day and exhaustion-date calculations
  - ledger.go:   Stateful inventory ledger applying transactions
  - store.go:    Persistence contract and on-disk record shapes
*/
package medication

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// IDENTIFIERS
// =============================================================================

type MedicationID string

// =============================================================================
// MEDICATION - Inventory record
// =============================================================================

type Medication struct {
	ID           MedicationID
	Name         string
	Description  string
	Presentation string

	// Stock. CurrentQuantity is mutated only by the Ledger.
	TotalQuantity   decimal.Decimal
	CurrentQuantity decimal.Decimal

	// Dosing schedule. FrequencyDays is the interval between dosing days.
	DoseAmount    decimal.Decimal
	FrequencyDays int

	// StartDate anchors the schedule; zero means "always due".
	StartDate time.Time

	// EndDate is the projected exhaustion timestamp, kept consistent with
	// CurrentQuantity/DoseAmount/FrequencyDays by the Ledger. Zero = unknown.
	EndDate time.Time

	// AlertActive is set once a low-stock alert has fired for the current
	// depletion cycle; a restock resets it.
	AlertActive bool

	// LastDoseNotified guards against duplicate dose reminders within an hour.
	LastDoseNotified time.Time
}

// Clone returns an independent copy, safe to hand to callers.
func (m *Medication) Clone() *Medication {
	c := *m
	return &c
}

// MedicationInput carries the caller-supplied fields for Add and Update.
type MedicationInput struct {
	Name          string
	Description   string
	Presentation  string
	TotalQuantity decimal.Decimal
	DoseAmount    decimal.Decimal
	FrequencyDays int
	StartDate     time.Time

	// CurrentQuantity, when non-nil on Update, overrides the preserved
	// remaining stock. Ignored by Add (a new medication starts full).
	CurrentQuantity *decimal.Decimal
}

// =============================================================================
// REMAINING - Days until exhaustion as a typed variant
// =============================================================================

type RemainingState int

const (
	// RemainingUnknown means no exhaustion date is projected.
	RemainingUnknown RemainingState = iota
	// RemainingDepleted means the projected exhaustion date has passed.
	RemainingDepleted
	// RemainingDays means Days whole calendar days are left.
	RemainingDays
)

type Remaining struct {
	State RemainingState
	Days  int
}

func Unknown() Remaining       { return Remaining{State: RemainingUnknown} }
func Depleted() Remaining      { return Remaining{State: RemainingDepleted} }
func DaysLeft(n int) Remaining { return Remaining{State: RemainingDays, Days: n} }

func (r Remaining) Known() bool { return r.State == RemainingDays }

func (r Remaining) IsDepleted() bool { return r.State == RemainingDepleted }

// LowStock reports whether the remaining supply is at or past the
// low-stock threshold (3 days or fewer, or already depleted).
func (r Remaining) LowStock() bool {
	return r.State == RemainingDepleted || (r.State == RemainingDays && r.Days <= LowStockThresholdDays)
}

func (r Remaining) String() string {
	switch r.State {
	case RemainingDepleted:
		return "depleted"
	case RemainingDays:
		return fmt.Sprintf("%d days", r.Days)
	default:
		return "unknown"
	}
}

// =============================================================================
// NOTIFICATION KINDS
// =============================================================================

type NotificationKind string

const (
	KindDoseDue   NotificationKind = "dose_due"
	KindLowStock  NotificationKind = "low_stock"
	KindExhausted NotificationKind = "exhausted"

	// KindDayComplete is emitted to subscribers when every medication due
	// today has been taken. It is informational and not recorded in history.
	KindDayComplete NotificationKind = "day_complete"
)

// =============================================================================
// THRESHOLDS AND WINDOWS
// =============================================================================

const (
	// LowStockThresholdDays is the days-remaining level at or below which a
	// low-stock alert fires (once per depletion cycle).
	LowStockThresholdDays = 3

	// DoseDueWindow is how far past a scheduled dose time a reminder still
	// counts as "due now".
	DoseDueWindow = 30 * time.Minute

	// DoseRenotifyAfter is the minimum gap between dose reminders for the
	// same medication.
	DoseRenotifyAfter = time.Hour
)
