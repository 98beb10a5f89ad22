package medication_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/dose-engine/medication"
)

// =============================================================================
// HISTORY LOG TESTS
// =============================================================================

func TestHistory_NewestFirst(t *testing.T) {
	// GIVEN: An empty history
	// WHEN: Appending three records
	// THEN: They come back newest first

	h := medication.NewHistory()
	base := time.Date(2024, time.March, 10, 9, 0, 0, 0, time.Local)

	h.Append(medication.KindDoseDue, "Metformina", "first", base)
	h.Append(medication.KindLowStock, "Metformina", "second", base.Add(time.Hour))
	h.Append(medication.KindExhausted, "Metformina", "third", base.Add(2*time.Hour))

	records := h.All()
	require.Len(t, records, 3)
	assert.Equal(t, "third", records[0].Message)
	assert.Equal(t, "first", records[2].Message)
}

func TestHistory_CapEvictsOldest(t *testing.T) {
	// GIVEN: 60 appended records
	// WHEN: Reading everything back
	// THEN: Only the newest 50 are retained

	h := medication.NewHistory()
	base := time.Date(2024, time.March, 10, 9, 0, 0, 0, time.Local)
	for i := 0; i < 60; i++ {
		h.Append(medication.KindDoseDue, "Metformina", fmt.Sprintf("msg-%d", i), base.Add(time.Duration(i)*time.Minute))
	}

	records := h.All()
	require.Len(t, records, medication.HistoryCap)
	assert.Equal(t, "msg-59", records[0].Message, "newest survives")
	assert.Equal(t, "msg-10", records[len(records)-1].Message, "oldest 10 evicted")
}

func TestHistory_RecentLimits(t *testing.T) {
	// GIVEN: 5 records
	// WHEN: Asking for fewer, more, and all
	// THEN: The slice never exceeds what exists

	h := medication.NewHistory()
	base := time.Date(2024, time.March, 10, 9, 0, 0, 0, time.Local)
	for i := 0; i < 5; i++ {
		h.Append(medication.KindDoseDue, "Metformina", fmt.Sprintf("msg-%d", i), base)
	}

	assert.Len(t, h.Recent(3), 3)
	assert.Len(t, h.Recent(100), 5)
	assert.Equal(t, 5, h.Len())
}

func TestHistory_Clear(t *testing.T) {
	// GIVEN: A populated history
	// WHEN: Clearing it
	// THEN: Empty, and new appends start fresh

	h := medication.NewHistory()
	h.Append(medication.KindDoseDue, "Metformina", "msg", time.Now())
	require.Equal(t, 1, h.Len())

	h.Clear()
	assert.Equal(t, 0, h.Len())
	assert.Empty(t, h.All())
}

func TestLedger_History_DefaultDisplayLimit(t *testing.T) {
	// GIVEN: A ledger with more history than the display default
	// WHEN: Asking with a non-positive limit
	// THEN: The display default (20) comes back, newest first

	ledger, _, clk := newTestLedger(t)
	ctx := context.Background()

	// 30 low-stock alerts: each add is immediately low on stock.
	for i := 0; i < 30; i++ {
		addMed(t, ledger, clk, fmt.Sprintf("Med-%d", i), 2, 1, 1)
	}
	require.Len(t, ledger.CheckLowStock(ctx), 30)

	records := ledger.History(0)
	assert.Len(t, records, medication.HistoryDisplay)

	all := ledger.History(medication.HistoryCap)
	assert.Len(t, all, 30)
}
