/*
schedule.go - Pure dosing-schedule calculations

PURPOSE:
  Stateless functions answering the three scheduling questions:
  - Is a given date a dosing day for this medication?
  - When will the current stock run out?
  - How many whole days of supply are left right now?

CALENDAR SEMANTICS:
  Dosing days are local wall-clock calendar days. "Days since start" is
  the difference between the two calendar dates, not elapsed hours, so a
  dose taken at 23:00 and one at 01:00 the next day are one day apart.

FAIL-OPEN POLICY:
  A medication without a start date is considered always due. The same
  applies when a persisted start date failed to parse on load (the store
  leaves it zero and logs). The engine must degrade toward reminding,
  never toward silence.

SEE ALSO:
  - types.go:  Medication and Remaining
  - ledger.go: Stateful operations that call into these functions
*/
package medication

import (
	"math"
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// DATE-TIME LAYOUTS - Shared with the persisted stores
// =============================================================================

const (
	// DayLayout tags checklist days.
	DayLayout = "2006-01-02"
	// DateTimeLayout is the minute-precision layout for schedule fields.
	DateTimeLayout = "2006-01-02 15:04"
	// TimestampLayout adds seconds, used for notification timestamps.
	TimestampLayout = "2006-01-02 15:04:05"
)

func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// DaysBetween returns the calendar-day difference to - from.
func DaysBetween(from, to time.Time) int {
	return int(startOfDay(to).Sub(startOfDay(from)).Hours() / 24)
}

// floorDays converts a signed duration to whole days, rounding toward
// negative infinity so that any shortfall counts as a full day short.
func floorDays(d time.Duration) int {
	return int(math.Floor(d.Hours() / 24))
}

// =============================================================================
// SCHEDULE CALCULATOR
// =============================================================================

// IsDosingDay reports whether the medication's frequency schedule calls
// for a dose on the given date. Day zero is always a dosing day.
func IsDosingDay(m *Medication, date time.Time) bool {
	if m.StartDate.IsZero() {
		return true
	}
	freq := m.FrequencyDays
	if freq < 1 {
		freq = 1
	}
	since := DaysBetween(m.StartDate, date)
	return since >= 0 && since%freq == 0
}

// ProjectEndDate computes the exhaustion timestamp for the given stock,
// dose and frequency, anchored at anchor (now when anchor is zero).
// Returns the zero time when any of quantity/dose/frequency is <= 0.
// Fractional days are kept, so the result has sub-day precision.
func ProjectEndDate(quantity, dose decimal.Decimal, frequencyDays int, anchor time.Time) time.Time {
	if !quantity.IsPositive() || !dose.IsPositive() || frequencyDays <= 0 {
		return time.Time{}
	}
	if anchor.IsZero() {
		anchor = time.Now()
	}
	days := quantity.Div(dose).Mul(decimal.NewFromInt(int64(frequencyDays)))
	hours, _ := days.Mul(decimal.NewFromInt(24)).Float64()
	return anchor.Add(time.Duration(hours * float64(time.Hour)))
}

// DaysRemainingAt computes the typed days-until-exhaustion variant for
// the medication as of now.
func DaysRemainingAt(m *Medication, now time.Time) Remaining {
	if m.EndDate.IsZero() {
		return Unknown()
	}
	n := floorDays(m.EndDate.Sub(now))
	if n < 0 {
		return Depleted()
	}
	return DaysLeft(n)
}

// DueOn filters meds down to those whose schedule calls for a dose on
// the given date. Used by the upcoming-doses view.
func DueOn(meds []*Medication, date time.Time) []*Medication {
	var due []*Medication
	for _, m := range meds {
		if IsDosingDay(m, date) {
			due = append(due, m)
		}
	}
	return due
}
