/*
ledger.go - Stateful inventory ledger

PURPOSE:
  Owns the mutable stock state of every medication and applies the
  dose-taken / restock transactions, keeping each projected exhaustion
  date consistent with the remaining stock. Also owns the daily
  checklist and the notification history, so that one lock serializes
  every writer.

CONCURRENCY:
  Two kinds of writers touch the same state: user-initiated foreground
  actions (take dose, restock, edit) and the background reminder sweeps
  (stamping last-notified times, flipping low-stock flags). A single
  mutex covers them all; there is no lock-free path.

INVARIANT:
  EndDate is recomputed inside the same critical section as every
  quantity/dose/frequency/start mutation. A stale EndDate is a defect.

PERSISTENCE:
  Every mutation is written through the injected Store before the lock
  is released. Store failures are logged and swallowed: the in-memory
  state stays authoritative for the session and the engine keeps
  running (a failed save must never abort a dose registration, and a
  failed sweep cycle must never kill the sweep).

SEE ALSO:
  - schedule.go:  The pure calculations this ledger applies
  - checklist.go: Per-day completion state
  - history.go:   Capped notification log
*/
package medication

import (
	"context"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// =============================================================================
// LEDGER
// =============================================================================

type Ledger struct {
	mu    sync.Mutex
	store Store

	meds      []*Medication
	checklist *Checklist
	history   *History

	notifier Notifier
	subs     []func(Event)
	now      func() time.Time
}

type Option func(*Ledger)

// WithClock injects the time source. Tests use a fixed clock so sweeps
// and day rollovers are deterministic without real delays.
func WithClock(now func() time.Time) Option {
	return func(l *Ledger) { l.now = now }
}

// WithNotifier sets the external fire-and-forget notifier collaborator.
func WithNotifier(n Notifier) Option {
	return func(l *Ledger) { l.notifier = n }
}

// NewLedger loads all three stores and returns a ready ledger. Load
// failures degrade to an empty store after logging; they never abort.
func NewLedger(ctx context.Context, store Store, opts ...Option) *Ledger {
	l := &Ledger{
		store:     store,
		checklist: NewChecklist(),
		history:   NewHistory(),
		notifier:  NopNotifier{},
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}

	if recs, err := store.LoadMedications(ctx); err != nil {
		log.Printf("[Ledger] Loading medications failed, starting empty: %v", err)
	} else {
		for _, rec := range recs {
			l.meds = append(l.meds, MedicationFromRecord(rec))
		}
	}

	if rec, err := store.LoadChecklist(ctx); err != nil {
		log.Printf("[Ledger] Loading checklist failed, starting empty: %v", err)
	} else {
		done := make(map[MedicationID]bool, len(rec.Medications))
		for id, v := range rec.Medications {
			done[MedicationID(id)] = v
		}
		l.checklist.load(rec.Date, done, l.now())
	}

	if recs, err := store.LoadHistory(ctx); err != nil {
		log.Printf("[Ledger] Loading history failed, starting empty: %v", err)
	} else {
		records := make([]NotificationRecord, 0, len(recs))
		for _, rec := range recs {
			records = append(records, NotificationFromRecord(rec))
		}
		l.history.replace(records)
	}

	return l
}

// Subscribe registers a callback invoked for every emitted event. The
// callback runs under the ledger lock and must hand off to its own
// context (the UI adapter schedules onto its event loop).
func (l *Ledger) Subscribe(fn func(Event)) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.subs = append(l.subs, fn)
}

// =============================================================================
// CRUD
// =============================================================================

// Add registers a new medication and returns its id. A medication with
// the same name and presentation (case-insensitive) is rejected.
func (l *Ledger) Add(ctx context.Context, in MedicationInput) (MedicationID, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return "", ErrNameRequired
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	for _, m := range l.meds {
		if strings.EqualFold(strings.TrimSpace(m.Name), name) &&
			strings.EqualFold(strings.TrimSpace(m.Presentation), strings.TrimSpace(in.Presentation)) {
			return "", fmt.Errorf("%s (%s): %w", name, in.Presentation, ErrDuplicateMedication)
		}
	}

	freq := in.FrequencyDays
	if freq < 1 {
		freq = 1
	}

	m := &Medication{
		ID:              MedicationID(uuid.NewString()),
		Name:            name,
		Description:     strings.TrimSpace(in.Description),
		Presentation:    strings.TrimSpace(in.Presentation),
		TotalQuantity:   in.TotalQuantity,
		CurrentQuantity: in.TotalQuantity,
		DoseAmount:      in.DoseAmount,
		FrequencyDays:   freq,
		StartDate:       in.StartDate,
	}
	m.EndDate = ProjectEndDate(m.CurrentQuantity, m.DoseAmount, m.FrequencyDays, l.anchorFor(m))

	l.meds = append(l.meds, m)
	l.saveMedsLocked(ctx)
	return m.ID, nil
}

// Update replaces the descriptive and schedule fields. The remaining
// stock is preserved unless the input supplies a new one explicitly.
// The low-stock flag and dose-notify stamp reset with the new schedule.
func (l *Ledger) Update(ctx context.Context, id MedicationID, in MedicationInput) error {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return ErrNameRequired
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	m, err := l.findLocked(id)
	if err != nil {
		return err
	}

	freq := in.FrequencyDays
	if freq < 1 {
		freq = 1
	}

	current := m.CurrentQuantity
	if in.CurrentQuantity != nil {
		current = *in.CurrentQuantity
	}

	m.Name = name
	m.Description = strings.TrimSpace(in.Description)
	m.Presentation = strings.TrimSpace(in.Presentation)
	m.TotalQuantity = in.TotalQuantity
	m.CurrentQuantity = current
	m.DoseAmount = in.DoseAmount
	m.FrequencyDays = freq
	m.StartDate = in.StartDate
	m.AlertActive = false
	m.LastDoseNotified = time.Time{}
	m.EndDate = ProjectEndDate(m.CurrentQuantity, m.DoseAmount, m.FrequencyDays, l.anchorFor(m))

	l.saveMedsLocked(ctx)
	return nil
}

// Remove deletes a medication and its checklist entry.
func (l *Ledger) Remove(ctx context.Context, id MedicationID) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	for i, m := range l.meds {
		if m.ID == id {
			l.meds = append(l.meds[:i], l.meds[i+1:]...)
			l.checklist.forget(id)
			l.saveMedsLocked(ctx)
			l.saveChecklistLocked(ctx)
			return nil
		}
	}
	return fmt.Errorf("%s: %w", id, ErrNotFound)
}

// List returns all medications in insertion order.
func (l *Ledger) List() []*Medication {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := make([]*Medication, len(l.meds))
	for i, m := range l.meds {
		out[i] = m.Clone()
	}
	return out
}

// Get returns one medication by id.
func (l *Ledger) Get(id MedicationID) (*Medication, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	m, err := l.findLocked(id)
	if err != nil {
		return nil, err
	}
	return m.Clone(), nil
}

// =============================================================================
// DOSE AND STOCK TRANSACTIONS
// =============================================================================

// TakeDose records one dosing event: decrements stock by the dose
// amount (floored at zero), reprojects the exhaustion date from the new
// quantity, and marks today's checklist entry complete. Taking the last
// dose emits an exhausted notification. Rejected when today is not a
// dosing day.
func (l *Ledger) TakeDose(ctx context.Context, id MedicationID) (*Medication, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	m, err := l.findLocked(id)
	if err != nil {
		return nil, err
	}
	now := l.now()
	if !IsDosingDay(m, now) {
		return nil, fmt.Errorf("%s: %w", m.Name, ErrNotScheduledToday)
	}

	l.takeDoseLocked(ctx, m, now)
	l.saveMedsLocked(ctx)
	return m.Clone(), nil
}

// takeDoseLocked is the single source of truth for "a dose was taken":
// both TakeDose and checklist completion funnel through it.
func (l *Ledger) takeDoseLocked(ctx context.Context, m *Medication, now time.Time) {
	qty := m.CurrentQuantity.Sub(m.DoseAmount)
	if qty.IsNegative() {
		qty = decimal.Zero
	}
	m.CurrentQuantity = qty

	if qty.IsZero() {
		l.emitLocked(ctx, KindExhausted, m, fmt.Sprintf("%s has run out", m.Name), now)
	} else {
		m.EndDate = ProjectEndDate(qty, m.DoseAmount, m.FrequencyDays, l.anchorFor(m))
	}

	l.ensureChecklistLocked(ctx, now)
	l.checklist.set(m.ID, true)
	l.saveChecklistLocked(ctx)
	l.dayCompleteLocked(now)
}

// Restock adds purchased stock. The new exhaustion date is the days
// still remaining (clamped at zero) plus the whole days the purchase
// lasts, counted from now. A restock re-arms the low-stock alert.
func (l *Ledger) Restock(ctx context.Context, id MedicationID, quantity decimal.Decimal) (*Medication, error) {
	if !quantity.IsPositive() {
		return nil, fmt.Errorf("restock of %s: %w", quantity, ErrInvalidQuantity)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	m, err := l.findLocked(id)
	if err != nil {
		return nil, err
	}
	now := l.now()

	remaining := 0
	if !m.EndDate.IsZero() && m.EndDate.After(now) {
		remaining = floorDays(m.EndDate.Sub(now))
	}
	added := 0
	if m.DoseAmount.IsPositive() && m.FrequencyDays > 0 {
		added = int(quantity.Div(m.DoseAmount).Mul(decimal.NewFromInt(int64(m.FrequencyDays))).IntPart())
	}

	m.CurrentQuantity = m.CurrentQuantity.Add(quantity)
	m.EndDate = now.AddDate(0, 0, remaining+added)
	m.AlertActive = false

	l.saveMedsLocked(ctx)
	return m.Clone(), nil
}

// =============================================================================
// CHECKLIST OPERATIONS
// =============================================================================

// ToggleChecklist flips today's completion mark. Completing an item
// consumes a dose through takeDoseLocked; unmarking does NOT refund
// stock (the dose was physically taken; inventory records consumption,
// the checklist records intent). Rejected on non-dosing days.
func (l *Ledger) ToggleChecklist(ctx context.Context, id MedicationID) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	m, err := l.findLocked(id)
	if err != nil {
		return false, err
	}
	now := l.now()
	if !IsDosingDay(m, now) {
		return false, fmt.Errorf("%s: %w", m.Name, ErrNotScheduledToday)
	}

	l.ensureChecklistLocked(ctx, now)
	if l.checklist.isDone(m.ID) {
		l.checklist.set(m.ID, false)
		l.saveChecklistLocked(ctx)
		return false, nil
	}

	l.takeDoseLocked(ctx, m, now)
	l.saveMedsLocked(ctx)
	return true, nil
}

// CompleteAllDue marks every medication due today as taken, consuming a
// dose per newly completed item. Already-completed items are skipped,
// so the operation is idempotent. Returns how many were completed.
func (l *Ledger) CompleteAllDue(ctx context.Context) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	l.ensureChecklistLocked(ctx, now)

	completed := 0
	for _, m := range DueOn(l.meds, now) {
		if l.checklist.isDone(m.ID) {
			continue
		}
		l.takeDoseLocked(ctx, m, now)
		completed++
	}
	if completed > 0 {
		l.saveMedsLocked(ctx)
	}
	return completed, nil
}

// DueToday returns the medications whose schedule calls for a dose today.
func (l *Ledger) DueToday() []*Medication {
	l.mu.Lock()
	defer l.mu.Unlock()

	var out []*Medication
	for _, m := range DueOn(l.meds, l.now()) {
		out = append(out, m.Clone())
	}
	return out
}

// TakenToday reports whether the medication's checklist entry is
// complete for the current date.
func (l *Ledger) TakenToday(id MedicationID) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.ensureChecklistLocked(context.Background(), l.now())
	return l.checklist.isDone(id)
}

// Today returns the current checklist date.
func (l *Ledger) Today() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.now().Format(DayLayout)
}

// CompletionRatio returns (done, total) over the medications due today.
func (l *Ledger) CompletionRatio() (done, total int) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	l.ensureChecklistLocked(context.Background(), now)
	for _, m := range DueOn(l.meds, now) {
		total++
		if l.checklist.isDone(m.ID) {
			done++
		}
	}
	return done, total
}

// =============================================================================
// QUERIES
// =============================================================================

// DaysRemaining returns the typed days-until-exhaustion for one medication.
func (l *Ledger) DaysRemaining(id MedicationID) (Remaining, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	m, err := l.findLocked(id)
	if err != nil {
		return Unknown(), err
	}
	return DaysRemainingAt(m, l.now()), nil
}

// IsDueToday reports whether today is a dosing day for the medication.
func (l *Ledger) IsDueToday(id MedicationID) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	m, err := l.findLocked(id)
	if err != nil {
		return false, err
	}
	return IsDosingDay(m, l.now()), nil
}

// DaySchedule lists the medications due on one upcoming date.
type DaySchedule struct {
	Date time.Time
	Due  []*Medication
}

// Upcoming returns the dosing schedule for today plus the following
// days-1 dates.
func (l *Ledger) Upcoming(days int) []DaySchedule {
	l.mu.Lock()
	defer l.mu.Unlock()

	if days < 1 {
		days = 1
	}
	now := l.now()
	out := make([]DaySchedule, 0, days)
	for i := 0; i < days; i++ {
		date := startOfDay(now.AddDate(0, 0, i))
		day := DaySchedule{Date: date}
		for _, m := range DueOn(l.meds, date) {
			day.Due = append(day.Due, m.Clone())
		}
		out = append(out, day)
	}
	return out
}

// History returns up to limit records, newest first. A non-positive
// limit returns the display default.
func (l *Ledger) History(limit int) []NotificationRecord {
	l.mu.Lock()
	defer l.mu.Unlock()

	if limit <= 0 {
		limit = HistoryDisplay
	}
	return l.history.Recent(limit)
}

// ClearHistory empties the notification log.
func (l *Ledger) ClearHistory(ctx context.Context) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.history.Clear()
	l.saveHistoryLocked(ctx)
}

// =============================================================================
// REMINDER SWEEPS - Called periodically by the scheduler
// =============================================================================

// LowStockAlert pairs a medication with its remaining supply at the
// moment its alert fired.
type LowStockAlert struct {
	Medication *Medication
	Remaining  Remaining
}

// CheckLowStock fires at most one low-stock alert per depletion cycle:
// the first sweep that sees 3 days or fewer flips AlertActive and
// emits; later sweeps stay silent until a restock re-arms the flag.
func (l *Ledger) CheckLowStock(ctx context.Context) []LowStockAlert {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	var alerts []LowStockAlert
	for _, m := range l.meds {
		if m.EndDate.IsZero() || m.AlertActive {
			continue
		}
		rem := DaysRemainingAt(m, now)
		if !rem.LowStock() {
			continue
		}
		m.AlertActive = true

		msg := fmt.Sprintf("%s has run out", m.Name)
		if rem.Known() {
			msg = fmt.Sprintf("%s will run out in %d days", m.Name, rem.Days)
		}
		l.emitLocked(ctx, KindLowStock, m, msg, now)
		alerts = append(alerts, LowStockAlert{Medication: m.Clone(), Remaining: rem})
	}
	if len(alerts) > 0 {
		l.saveMedsLocked(ctx)
	}
	return alerts
}

// CheckDoseDue finds medications whose scheduled dose time falls within
// the last 30 minutes and that were not already reminded in the past
// hour. The last-notified stamp is written before returning so the same
// sweep interval cannot fire twice.
func (l *Ledger) CheckDoseDue(ctx context.Context) []*Medication {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	var due []*Medication
	for _, m := range l.meds {
		if m.StartDate.IsZero() || m.FrequencyDays < 1 {
			continue
		}
		elapsed := now.Sub(m.StartDate)
		if elapsed <= 0 {
			continue
		}
		freq := time.Duration(m.FrequencyDays) * 24 * time.Hour
		if elapsed%freq >= DoseDueWindow {
			continue
		}
		if !m.LastDoseNotified.IsZero() && now.Sub(m.LastDoseNotified) <= DoseRenotifyAfter {
			continue
		}
		m.LastDoseNotified = now

		l.emitLocked(ctx, KindDoseDue, m, fmt.Sprintf("Time to take %s (dose: %s)", m.Name, m.DoseAmount), now)
		due = append(due, m.Clone())
	}
	if len(due) > 0 {
		l.saveMedsLocked(ctx)
	}
	return due
}

// =============================================================================
// INTERNALS
// =============================================================================

func (l *Ledger) findLocked(id MedicationID) (*Medication, error) {
	for _, m := range l.meds {
		if m.ID == id {
			return m, nil
		}
	}
	return nil, fmt.Errorf("%s: %w", id, ErrNotFound)
}

// anchorFor picks the projection anchor: the schedule start when set,
// otherwise the current clock.
func (l *Ledger) anchorFor(m *Medication) time.Time {
	if !m.StartDate.IsZero() {
		return m.StartDate
	}
	return l.now()
}

func (l *Ledger) ensureChecklistLocked(ctx context.Context, now time.Time) {
	if l.checklist.ensure(now) {
		l.saveChecklistLocked(ctx)
	}
}

// emitLocked records the event in history and hands it to the notifier
// and subscribers.
func (l *Ledger) emitLocked(ctx context.Context, kind NotificationKind, m *Medication, message string, now time.Time) {
	l.history.Append(kind, m.Name, message, now)
	l.saveHistoryLocked(ctx)
	l.dispatchLocked(Event{
		Kind:         kind,
		MedicationID: m.ID,
		Medication:   m.Name,
		Message:      message,
		At:           now,
	})
}

// dayCompleteLocked emits an informational event when every medication
// due today is checked off. Not recorded in history.
func (l *Ledger) dayCompleteLocked(now time.Time) {
	due := DueOn(l.meds, now)
	if len(due) == 0 {
		return
	}
	for _, m := range due {
		if !l.checklist.isDone(m.ID) {
			return
		}
	}
	l.dispatchLocked(Event{
		Kind:    KindDayComplete,
		Message: "All medications for today are done",
		At:      now,
	})
}

func (l *Ledger) dispatchLocked(ev Event) {
	l.notifier.Notify(ev)
	for _, fn := range l.subs {
		fn(ev)
	}
}

func (l *Ledger) saveMedsLocked(ctx context.Context) {
	recs := make([]MedicationRecord, len(l.meds))
	for i, m := range l.meds {
		recs[i] = m.Record()
	}
	if err := l.store.SaveMedications(ctx, recs); err != nil {
		log.Printf("[Ledger] Saving medications failed: %v", err)
	}
}

func (l *Ledger) saveChecklistLocked(ctx context.Context) {
	date, done := l.checklist.snapshot()
	rec := ChecklistRecord{Date: date, Medications: make(map[string]bool, len(done))}
	for id, v := range done {
		rec.Medications[string(id)] = v
	}
	if err := l.store.SaveChecklist(ctx, rec); err != nil {
		log.Printf("[Ledger] Saving checklist failed: %v", err)
	}
}

func (l *Ledger) saveHistoryLocked(ctx context.Context) {
	all := l.history.All()
	recs := make([]HistoryRecord, len(all))
	for i, r := range all {
		recs[i] = r.Record()
	}
	if err := l.store.SaveHistory(ctx, recs); err != nil {
		log.Printf("[Ledger] Saving history failed: %v", err)
	}
}
