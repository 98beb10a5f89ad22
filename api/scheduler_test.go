package api_test

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/dose-engine/api"
	"github.com/warp/dose-engine/medication"
	"github.com/warp/dose-engine/store/memory"
)

// =============================================================================
// SCHEDULER TESTS
// =============================================================================

func TestReminderScheduler_RunNow_FiresBothSweeps(t *testing.T) {
	// GIVEN: A medication that is both past its dose time and low on stock
	// WHEN: Triggering an immediate run
	// THEN: Both a dose-due and a low-stock event are emitted

	now := time.Date(2024, time.March, 10, 9, 0, 0, 0, time.Local)
	ledger := medication.NewLedger(context.Background(), memory.New(),
		medication.WithClock(func() time.Time { return now }))

	var kinds []medication.NotificationKind
	ledger.Subscribe(func(ev medication.Event) { kinds = append(kinds, ev.Kind) })

	_, err := ledger.Add(context.Background(), medication.MedicationInput{
		Name:          "Metformina",
		Presentation:  "Caja de 30 tabletas",
		TotalQuantity: decimal.NewFromInt(2),
		DoseAmount:    decimal.NewFromInt(1),
		FrequencyDays: 1,
		StartDate:     now.Add(-24*time.Hour - 5*time.Minute),
	})
	require.NoError(t, err)

	scheduler := api.NewReminderScheduler(ledger)
	scheduler.RunNow()

	assert.Contains(t, kinds, medication.KindDoseDue)
	assert.Contains(t, kinds, medication.KindLowStock)
}

func TestReminderScheduler_StartStop_Clean(t *testing.T) {
	// GIVEN: A started scheduler
	// WHEN: Stopping it (twice)
	// THEN: Both loops exit and the second stop is a no-op

	ledger := medication.NewLedger(context.Background(), memory.New())
	scheduler := api.NewReminderScheduler(ledger)
	scheduler.DoseInterval = 10 * time.Millisecond
	scheduler.StockInterval = 10 * time.Millisecond

	scheduler.Start()
	time.Sleep(30 * time.Millisecond)
	scheduler.Stop()
	scheduler.Stop()
}

func TestReminderScheduler_Disabled_DoesNotStart(t *testing.T) {
	// GIVEN: A disabled scheduler over a ledger with a due reminder
	// WHEN: Starting it
	// THEN: No sweep runs

	now := time.Date(2024, time.March, 10, 9, 0, 0, 0, time.Local)
	ledger := medication.NewLedger(context.Background(), memory.New(),
		medication.WithClock(func() time.Time { return now }))

	fired := 0
	ledger.Subscribe(func(medication.Event) { fired++ })

	_, err := ledger.Add(context.Background(), medication.MedicationInput{
		Name:          "Metformina",
		TotalQuantity: decimal.NewFromInt(2),
		DoseAmount:    decimal.NewFromInt(1),
		FrequencyDays: 1,
		StartDate:     now.Add(-24 * time.Hour),
	})
	require.NoError(t, err)

	scheduler := api.NewReminderScheduler(ledger)
	scheduler.Enabled = false
	scheduler.Start()
	time.Sleep(20 * time.Millisecond)

	assert.Zero(t, fired)
}
