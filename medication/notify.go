package medication

import "time"

// =============================================================================
// EVENTS - Hand-off to the notifier and UI subscribers
// =============================================================================

// Event is a reminder occurrence emitted by the engine: a dose is due,
// stock is low, a medication ran out, or the day's checklist completed.
type Event struct {
	Kind         NotificationKind
	MedicationID MedicationID
	Medication   string
	Message      string
	At           time.Time
}

// Notifier is the external fire-and-forget collaborator (sound,
// vibration, system toast). Implementations must not block: they are
// invoked while the ledger lock is held.
type Notifier interface {
	Notify(Event)
}

// NotifierFunc adapts a function to the Notifier interface.
type NotifierFunc func(Event)

func (f NotifierFunc) Notify(e Event) { f(e) }

// NopNotifier discards all events.
type NopNotifier struct{}

func (NopNotifier) Notify(Event) {}
