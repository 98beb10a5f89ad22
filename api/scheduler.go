/*
scheduler.go - Background reminder scheduler

PURPOSE:
  Periodically runs the ledger's reminder sweeps: dose-due checks every
  half hour and low-stock checks every four hours. The sweeps themselves
  live in the ledger; this is only the timing layer.

DESIGN:
  - One goroutine per sweep, each with its own ticker
  - Both run immediately on Start, then on their interval
  - A shared stop channel and WaitGroup give a clean shutdown
  - A panicking sweep is logged and the loop keeps running; the
    reminders must survive any single bad cycle

CONFIGURATION:
  - DoseInterval:  How often to check for due doses (default: 30 min)
  - StockInterval: How often to check stock levels (default: 4 hours)

USAGE:
  scheduler := NewReminderScheduler(ledger)
  scheduler.Start()
  // ... later
  scheduler.Stop()

SEE ALSO:
  - medication/ledger.go: CheckDoseDue and CheckLowStock
*/
package api

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/warp/dose-engine/medication"
)

// ReminderScheduler drives the periodic reminder sweeps.
type ReminderScheduler struct {
	Ledger        *medication.Ledger
	DoseInterval  time.Duration
	StockInterval time.Duration
	Enabled       bool

	stop chan struct{}
	wg   sync.WaitGroup
	mu   sync.Mutex
}

// NewReminderScheduler creates a scheduler with the default intervals.
func NewReminderScheduler(ledger *medication.Ledger) *ReminderScheduler {
	return &ReminderScheduler{
		Ledger:        ledger,
		DoseInterval:  30 * time.Minute,
		StockInterval: 4 * time.Hour,
		Enabled:       true,
		stop:          make(chan struct{}),
	}
}

// Start begins both sweep loops.
func (rs *ReminderScheduler) Start() {
	rs.mu.Lock()
	defer rs.mu.Unlock()

	if !rs.Enabled {
		log.Println("[Scheduler] Disabled, not starting")
		return
	}

	rs.wg.Add(2)
	go rs.loop("dose", rs.DoseInterval, rs.sweepDoses)
	go rs.loop("stock", rs.StockInterval, rs.sweepStock)

	log.Printf("[Scheduler] Started (dose sweep every %v, stock sweep every %v)", rs.DoseInterval, rs.StockInterval)
}

// Stop stops both loops and waits for them to exit.
func (rs *ReminderScheduler) Stop() {
	rs.mu.Lock()
	defer rs.mu.Unlock()

	select {
	case <-rs.stop:
		return // already stopped
	default:
	}
	close(rs.stop)
	rs.wg.Wait()
	log.Println("[Scheduler] Stopped")
}

// RunNow triggers both sweeps immediately (for testing/admin).
func (rs *ReminderScheduler) RunNow() {
	rs.sweepDoses()
	rs.sweepStock()
}

func (rs *ReminderScheduler) loop(name string, interval time.Duration, sweep func()) {
	defer rs.wg.Done()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	// Run immediately on start
	rs.guarded(name, sweep)

	for {
		select {
		case <-ticker.C:
			rs.guarded(name, sweep)
		case <-rs.stop:
			return
		}
	}
}

// guarded keeps a panicking sweep from killing the loop.
func (rs *ReminderScheduler) guarded(name string, sweep func()) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("[Scheduler] Recovered %s sweep panic: %v", name, r)
		}
	}()
	sweep()
}

func (rs *ReminderScheduler) sweepDoses() {
	due := rs.Ledger.CheckDoseDue(context.Background())
	if len(due) > 0 {
		log.Printf("[Scheduler] Dose sweep: %d reminder(s) fired", len(due))
	}
}

func (rs *ReminderScheduler) sweepStock() {
	alerts := rs.Ledger.CheckLowStock(context.Background())
	if len(alerts) > 0 {
		log.Printf("[Scheduler] Stock sweep: %d low-stock alert(s) fired", len(alerts))
	}
}
