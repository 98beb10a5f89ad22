package jsonfile_test

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/dose-engine/medication"
	"github.com/warp/dose-engine/store/jsonfile"
)

// =============================================================================
// TEST SETUP
// =============================================================================

func newTestStore(t *testing.T) (*jsonfile.Store, string) {
	t.Helper()
	dir := t.TempDir()
	store, err := jsonfile.New(dir)
	require.NoError(t, err)
	return store, dir
}

// =============================================================================
// ROUND TRIP TESTS
// =============================================================================

func TestJSONFileStore_MedicationsRoundTrip(t *testing.T) {
	// GIVEN: Two medication records
	// WHEN: Saving and loading
	// THEN: Records and their order survive

	store, _ := newTestStore(t)
	ctx := context.Background()

	recs := []medication.MedicationRecord{
		{ID: "med-1", Name: "Metformina", TotalQuantity: 30, CurrentQuantity: 28, DoseAmount: 1, FrequencyDays: 1, StartDate: "2024-03-10 08:00"},
		{ID: "med-2", Name: "Atorvastatina", TotalQuantity: 14, CurrentQuantity: 14, DoseAmount: 0.5, FrequencyDays: 2},
	}
	require.NoError(t, store.SaveMedications(ctx, recs))

	loaded, err := store.LoadMedications(ctx)
	require.NoError(t, err)
	assert.Equal(t, recs, loaded)
}

func TestJSONFileStore_ChecklistRoundTrip(t *testing.T) {
	// GIVEN: A date-tagged checklist
	// WHEN: Saving and loading
	// THEN: The date and marks survive

	store, _ := newTestStore(t)
	ctx := context.Background()

	rec := medication.ChecklistRecord{
		Date:        "2024-03-10",
		Medications: map[string]bool{"med-1": true, "med-2": false},
	}
	require.NoError(t, store.SaveChecklist(ctx, rec))

	loaded, err := store.LoadChecklist(ctx)
	require.NoError(t, err)
	assert.Equal(t, rec, loaded)
}

func TestJSONFileStore_HistoryRoundTrip(t *testing.T) {
	// GIVEN: History records with legacy kinds
	// WHEN: Saving and loading
	// THEN: Order and fields survive

	store, _ := newTestStore(t)
	ctx := context.Background()

	recs := []medication.HistoryRecord{
		{At: "2024-03-10 09:00:05", Kind: "stock_bajo", Medication: "Metformina", Message: "Metformina will run out in 2 days"},
		{At: "2024-03-09 08:00:00", Kind: "dosis", Medication: "Metformina", Message: "Time to take Metformina (dose: 1)", Read: true},
	}
	require.NoError(t, store.SaveHistory(ctx, recs))

	loaded, err := store.LoadHistory(ctx)
	require.NoError(t, err)
	assert.Equal(t, recs, loaded)
}

// =============================================================================
// FAILURE POLICY TESTS
// =============================================================================

func TestJSONFileStore_MissingFiles_ReadEmpty(t *testing.T) {
	// GIVEN: A fresh data directory
	// WHEN: Loading each store
	// THEN: Empty results, no errors (first run)

	store, _ := newTestStore(t)
	ctx := context.Background()

	meds, err := store.LoadMedications(ctx)
	require.NoError(t, err)
	assert.Empty(t, meds)

	checklist, err := store.LoadChecklist(ctx)
	require.NoError(t, err)
	assert.Empty(t, checklist.Date)

	history, err := store.LoadHistory(ctx)
	require.NoError(t, err)
	assert.Empty(t, history)
}

func TestJSONFileStore_CorruptFile_ReadsEmpty(t *testing.T) {
	// GIVEN: A truncated/corrupt medications file
	// WHEN: Loading
	// THEN: An empty store, not an error; the engine must keep running

	store, dir := newTestStore(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "medicamentos.json"), []byte("[{\"nombre\": "), 0o644))

	meds, err := store.LoadMedications(context.Background())
	require.NoError(t, err)
	assert.Empty(t, meds)
}

func TestJSONFileStore_SaveOverwritesAtomically(t *testing.T) {
	// GIVEN: An existing medications file
	// WHEN: Saving a new document
	// THEN: The file holds exactly the new contents and no temp files
	//       are left behind

	store, dir := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.SaveMedications(ctx, []medication.MedicationRecord{{ID: "old", Name: "Old"}}))
	require.NoError(t, store.SaveMedications(ctx, []medication.MedicationRecord{{ID: "new", Name: "New"}}))

	data, err := os.ReadFile(filepath.Join(dir, "medicamentos.json"))
	require.NoError(t, err)

	var recs []medication.MedicationRecord
	require.NoError(t, json.Unmarshal(data, &recs))
	require.Len(t, recs, 1)
	assert.Equal(t, "new", recs[0].ID)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "no temp files left behind")
}

func TestJSONFileStore_LegacyFieldNames(t *testing.T) {
	// GIVEN: A data file written by an earlier version (Spanish fields,
	//        "fecha_inicio" alias)
	// WHEN: Loading
	// THEN: The record parses into the expected fields

	store, dir := newTestStore(t)
	legacy := `[{
		"nombre": "Metformina",
		"descripcion": "Con el desayuno",
		"presentacion": "Caja de 30 tabletas",
		"cantidad_total": 30,
		"cantidad_actual": 12,
		"dosis": 1,
		"frecuencia_dias": 1,
		"fecha_inicio": "2024-03-01 08:00",
		"fecha_fin": "2024-03-31 08:00",
		"notificaciones_activas": true
	}]`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "medicamentos.json"), []byte(legacy), 0o644))

	recs, err := store.LoadMedications(context.Background())
	require.NoError(t, err)
	require.Len(t, recs, 1)

	rec := recs[0]
	assert.Equal(t, "Metformina", rec.Name)
	assert.Equal(t, 12.0, rec.CurrentQuantity)
	assert.Equal(t, "2024-03-01 08:00", rec.StartDateAlt)
	assert.True(t, rec.AlertActive)

	m := medication.MedicationFromRecord(rec)
	assert.False(t, m.StartDate.IsZero(), "fecha_inicio alias honored")
}
