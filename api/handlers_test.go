package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/dose-engine/api"
	"github.com/warp/dose-engine/medication"
	"github.com/warp/dose-engine/store/memory"
)

// =============================================================================
// TEST SETUP
// =============================================================================

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	now := time.Date(2024, time.March, 10, 9, 0, 0, 0, time.Local)
	ledger := medication.NewLedger(context.Background(), memory.New(),
		medication.WithClock(func() time.Time { return now }))

	server := httptest.NewServer(api.NewRouter(api.NewHandler(ledger)))
	t.Cleanup(server.Close)
	return server
}

func doJSON(t *testing.T, method, url string, body any) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, url, &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	defer resp.Body.Close()
	var out T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

func createMedication(t *testing.T, server *httptest.Server, name string, total, dose float64, freqDays int) api.MedicationDTO {
	t.Helper()
	resp := doJSON(t, http.MethodPost, server.URL+"/api/medications", api.CreateMedicationRequest{
		Name:          name,
		Presentation:  "Caja de 30 tabletas",
		TotalQuantity: total,
		DoseAmount:    dose,
		FrequencyDays: freqDays,
		StartDate:     "2024-03-10 08:00",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	return decode[api.MedicationDTO](t, resp)
}

// =============================================================================
// MEDICATION ENDPOINT TESTS
// =============================================================================

func TestAPI_CreateAndList(t *testing.T) {
	// GIVEN: A running server
	// WHEN: Creating a medication and listing
	// THEN: The list contains it with its derived state

	server := newTestServer(t)
	created := createMedication(t, server, "Metformina", 30, 1, 1)
	assert.NotEmpty(t, created.ID)
	assert.True(t, created.DueToday)
	require.NotNil(t, created.DaysRemaining)
	assert.Equal(t, 29, *created.DaysRemaining) // end 08:00 + 30d, asked at 09:00

	resp, err := http.Get(server.URL + "/api/medications")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	list := decode[[]api.MedicationDTO](t, resp)
	require.Len(t, list, 1)
	assert.Equal(t, created.ID, list[0].ID)
}

func TestAPI_CreateDuplicate_Conflict(t *testing.T) {
	// GIVEN: An existing medication
	// WHEN: Creating the same name and presentation again
	// THEN: 409

	server := newTestServer(t)
	createMedication(t, server, "Metformina", 30, 1, 1)

	resp := doJSON(t, http.MethodPost, server.URL+"/api/medications", api.CreateMedicationRequest{
		Name:          "metformina",
		Presentation:  "Caja de 30 tabletas",
		TotalQuantity: 30,
		DoseAmount:    1,
		FrequencyDays: 1,
	})
	defer resp.Body.Close()
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
}

func TestAPI_CreateBlankName_BadRequest(t *testing.T) {
	server := newTestServer(t)

	resp := doJSON(t, http.MethodPost, server.URL+"/api/medications", api.CreateMedicationRequest{Name: "  "})
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestAPI_UnknownMedication_NotFound(t *testing.T) {
	server := newTestServer(t)

	resp := doJSON(t, http.MethodPost, server.URL+"/api/medications/no-such-id/doses", nil)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp2, err := http.Get(server.URL + "/api/medications/no-such-id/remaining")
	require.NoError(t, err)
	defer resp2.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp2.StatusCode)
}

func TestAPI_TakeDose_UpdatesQuantityAndChecklist(t *testing.T) {
	// GIVEN: A daily medication
	// WHEN: Recording a dose
	// THEN: The response shows the decrement and taken_today

	server := newTestServer(t)
	created := createMedication(t, server, "Metformina", 30, 1, 1)

	resp := doJSON(t, http.MethodPost, fmt.Sprintf("%s/api/medications/%s/doses", server.URL, created.ID), nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	dto := decode[api.MedicationDTO](t, resp)
	assert.Equal(t, 29.0, dto.CurrentQuantity)
	assert.True(t, dto.TakenToday)
}

func TestAPI_Restock_ReportsUnit(t *testing.T) {
	// GIVEN: A tablet medication
	// WHEN: Restocking 10 units
	// THEN: The response carries the added amount and inferred unit

	server := newTestServer(t)
	created := createMedication(t, server, "Metformina", 10, 2, 1)

	resp := doJSON(t, http.MethodPost, fmt.Sprintf("%s/api/medications/%s/restock", server.URL, created.ID), api.RestockRequest{Quantity: 10})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	out := decode[api.RestockResponse](t, resp)
	assert.Equal(t, 10.0, out.Added)
	assert.Equal(t, "tabletas", out.Unit)
	assert.Equal(t, 20.0, out.Medication.CurrentQuantity)
}

func TestAPI_Restock_InvalidQuantity_BadRequest(t *testing.T) {
	server := newTestServer(t)
	created := createMedication(t, server, "Metformina", 10, 1, 1)

	resp := doJSON(t, http.MethodPost, fmt.Sprintf("%s/api/medications/%s/restock", server.URL, created.ID), api.RestockRequest{Quantity: -1})
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestAPI_DeleteMedication(t *testing.T) {
	server := newTestServer(t)
	created := createMedication(t, server, "Metformina", 30, 1, 1)

	req, err := http.NewRequest(http.MethodDelete, fmt.Sprintf("%s/api/medications/%s", server.URL, created.ID), nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	listResp, err := http.Get(server.URL + "/api/medications")
	require.NoError(t, err)
	assert.Empty(t, decode[[]api.MedicationDTO](t, listResp))
}

// =============================================================================
// CHECKLIST ENDPOINT TESTS
// =============================================================================

func TestAPI_ChecklistFlow(t *testing.T) {
	// GIVEN: Two due medications
	// WHEN: Toggling one and then completing all
	// THEN: The checklist reflects each step

	server := newTestServer(t)
	a := createMedication(t, server, "Metformina", 30, 1, 1)
	createMedication(t, server, "Atorvastatina", 30, 1, 1)

	resp := doJSON(t, http.MethodPost, fmt.Sprintf("%s/api/checklist/%s/toggle", server.URL, a.ID), nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.True(t, decode[api.ToggleResponse](t, resp).Taken)

	listResp, err := http.Get(server.URL + "/api/checklist")
	require.NoError(t, err)
	checklist := decode[api.ChecklistDTO](t, listResp)
	assert.Equal(t, "2024-03-10", checklist.Date)
	assert.Equal(t, 1, checklist.Done)
	assert.Equal(t, 2, checklist.Total)
	assert.False(t, checklist.AllDone)

	resp = doJSON(t, http.MethodPost, server.URL+"/api/checklist/complete-all", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, 1, decode[api.CompleteAllResponse](t, resp).Completed)

	listResp, err = http.Get(server.URL + "/api/checklist")
	require.NoError(t, err)
	checklist = decode[api.ChecklistDTO](t, listResp)
	assert.True(t, checklist.AllDone)
}

// =============================================================================
// SCHEDULE AND HISTORY ENDPOINT TESTS
// =============================================================================

func TestAPI_Schedule_DefaultWeek(t *testing.T) {
	// GIVEN: A daily and an every-3-days medication
	// WHEN: Fetching the schedule
	// THEN: 7 days come back with the right names per day

	server := newTestServer(t)
	createMedication(t, server, "Metformina", 30, 1, 1)
	createMedication(t, server, "Alendronato", 10, 1, 3)

	resp, err := http.Get(server.URL + "/api/schedule")
	require.NoError(t, err)
	days := decode[[]api.DayScheduleDTO](t, resp)
	require.Len(t, days, 7)

	assert.Equal(t, "2024-03-10", days[0].Date)
	assert.Len(t, days[0].Medications, 2)
	assert.Equal(t, []string{"Metformina"}, days[1].Medications)
	assert.Len(t, days[3].Medications, 2)
}

func TestAPI_Schedule_BadDays_BadRequest(t *testing.T) {
	server := newTestServer(t)

	for _, q := range []string{"0", "-1", "abc", "365"} {
		resp, err := http.Get(server.URL + "/api/schedule?days=" + q)
		require.NoError(t, err)
		resp.Body.Close()
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode, "days=%s", q)
	}
}

func TestAPI_HistoryFlow(t *testing.T) {
	// GIVEN: A notification in history (exhaustion via last dose)
	// WHEN: Fetching and then clearing history
	// THEN: The record appears with its kind, then the log is empty

	server := newTestServer(t)
	created := createMedication(t, server, "Metformina", 1, 1, 1)

	resp := doJSON(t, http.MethodPost, fmt.Sprintf("%s/api/medications/%s/doses", server.URL, created.ID), nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	histResp, err := http.Get(server.URL + "/api/history")
	require.NoError(t, err)
	records := decode[[]api.NotificationDTO](t, histResp)
	require.NotEmpty(t, records)
	assert.Equal(t, "exhausted", records[0].Kind)
	assert.Equal(t, "Metformina", records[0].Medication)

	req, err := http.NewRequest(http.MethodDelete, server.URL+"/api/history", nil)
	require.NoError(t, err)
	delResp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	delResp.Body.Close()
	assert.Equal(t, http.StatusNoContent, delResp.StatusCode)

	histResp, err = http.Get(server.URL + "/api/history")
	require.NoError(t, err)
	assert.Empty(t, decode[[]api.NotificationDTO](t, histResp))
}
