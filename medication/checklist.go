/*
checklist.go - Per-day dose completion tracker

PURPOSE:
  Tracks which medications have been taken today, separately from the
  cumulative inventory. The map is scoped to a single calendar date: any
  access on a later day discards it and starts empty (passive reset, no
  midnight timer needed).

POLICY:
  Unmarking a completed item does NOT refund consumed stock. The dose
  was physically taken; inventory records consumption, the checklist
  records intent. See the Ledger's ToggleChecklist.

SEE ALSO:
  - ledger.go: All access goes through the Ledger, which holds the lock
    and applies the stock side effects of completing an item
*/
package medication

import "time"

// Checklist is the date-tagged completion map. It has no lock of its
// own: the Ledger serializes all access.
type Checklist struct {
	date string // DayLayout date the map is valid for
	done map[MedicationID]bool
}

func NewChecklist() *Checklist {
	return &Checklist{done: make(map[MedicationID]bool)}
}

// ensure invalidates the map when the wall-clock date has rolled over.
// Returns true when a reset happened (the caller should persist).
func (c *Checklist) ensure(now time.Time) bool {
	today := now.Format(DayLayout)
	if c.date == today {
		return false
	}
	c.date = today
	c.done = make(map[MedicationID]bool)
	return true
}

func (c *Checklist) isDone(id MedicationID) bool { return c.done[id] }

func (c *Checklist) set(id MedicationID, v bool) { c.done[id] = v }

func (c *Checklist) forget(id MedicationID) { delete(c.done, id) }

// load replaces the map with persisted state. Entries tagged with a
// different date than now are stale and dropped wholesale.
func (c *Checklist) load(date string, done map[MedicationID]bool, now time.Time) {
	if date != now.Format(DayLayout) {
		c.ensure(now)
		return
	}
	c.date = date
	c.done = make(map[MedicationID]bool, len(done))
	for id, v := range done {
		c.done[id] = v
	}
}

func (c *Checklist) snapshot() (string, map[MedicationID]bool) {
	out := make(map[MedicationID]bool, len(c.done))
	for id, v := range c.done {
		out[id] = v
	}
	return c.date, out
}
