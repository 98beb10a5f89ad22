/*
handlers.go - HTTP API handlers for the medication reminder engine

PURPOSE:
  Exposes the dose ledger via REST API. Handles HTTP request/response,
  JSON serialization, and delegates to domain logic.

ENDPOINTS:
  Medications:
    GET    /api/medications               List all with schedule state
    POST   /api/medications               Register a medication
    PUT    /api/medications/{id}          Edit a medication
    DELETE /api/medications/{id}          Delete a medication
    POST   /api/medications/{id}/doses    Record a dose taken
    POST   /api/medications/{id}/restock  Add purchased stock
    GET    /api/medications/{id}/remaining Days until exhaustion

  Checklist:
    GET    /api/checklist                 Today's completion state
    POST   /api/checklist/{id}/toggle     Flip one item
    POST   /api/checklist/complete-all    Mark everything due today

  Schedule and history:
    GET    /api/schedule?days=7           Upcoming dosing days
    GET    /api/history?limit=20          Notification log, newest first
    DELETE /api/history                   Clear the log

ERROR HANDLING:
  Errors are returned as JSON with appropriate HTTP status:
  - 400: Validation errors, invalid input
  - 404: Medication not found
  - 409: Duplicate medication
  - 500: Internal errors

SEE ALSO:
  - dto.go: Request/response data structures
  - server.go: Router setup and middleware
  - medication/ledger.go: The domain operations behind each endpoint
*/
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/warp/dose-engine/medication"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Ledger *medication.Ledger
}

// NewHandler creates a new handler over the given ledger.
func NewHandler(ledger *medication.Ledger) *Handler {
	return &Handler{Ledger: ledger}
}

// =============================================================================
// MEDICATION HANDLERS
// =============================================================================

// ListMedications returns all medications with their derived state.
func (h *Handler) ListMedications(w http.ResponseWriter, r *http.Request) {
	meds := h.Ledger.List()
	dtos := make([]MedicationDTO, len(meds))
	for i, m := range meds {
		dtos[i] = h.dtoFor(m)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// CreateMedication registers a new medication.
func (h *Handler) CreateMedication(w http.ResponseWriter, r *http.Request) {
	var req CreateMedicationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	id, err := h.Ledger.Add(r.Context(), req.toInput())
	if err != nil {
		h.writeLedgerError(w, "Failed to create medication", err)
		return
	}

	m, err := h.Ledger.Get(id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load created medication", err)
		return
	}
	writeJSON(w, http.StatusCreated, h.dtoFor(m))
}

// UpdateMedication edits an existing medication.
func (h *Handler) UpdateMedication(w http.ResponseWriter, r *http.Request) {
	id := medication.MedicationID(chi.URLParam(r, "id"))

	var req UpdateMedicationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	if err := h.Ledger.Update(r.Context(), id, req.toInput()); err != nil {
		h.writeLedgerError(w, "Failed to update medication", err)
		return
	}

	m, err := h.Ledger.Get(id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load updated medication", err)
		return
	}
	writeJSON(w, http.StatusOK, h.dtoFor(m))
}

// DeleteMedication removes a medication and its checklist entry.
func (h *Handler) DeleteMedication(w http.ResponseWriter, r *http.Request) {
	id := medication.MedicationID(chi.URLParam(r, "id"))

	if err := h.Ledger.Remove(r.Context(), id); err != nil {
		h.writeLedgerError(w, "Failed to delete medication", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// TakeDose records one dosing event.
func (h *Handler) TakeDose(w http.ResponseWriter, r *http.Request) {
	id := medication.MedicationID(chi.URLParam(r, "id"))

	m, err := h.Ledger.TakeDose(r.Context(), id)
	if err != nil {
		h.writeLedgerError(w, "Failed to record dose", err)
		return
	}
	writeJSON(w, http.StatusOK, h.dtoFor(m))
}

// Restock adds purchased stock to a medication.
func (h *Handler) Restock(w http.ResponseWriter, r *http.Request) {
	id := medication.MedicationID(chi.URLParam(r, "id"))

	var req RestockRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	m, err := h.Ledger.Restock(r.Context(), id, decimal.NewFromFloat(req.Quantity))
	if err != nil {
		h.writeLedgerError(w, "Failed to restock", err)
		return
	}

	writeJSON(w, http.StatusOK, RestockResponse{
		Medication: h.dtoFor(m),
		Added:      req.Quantity,
		Unit:       unitFor(m.Presentation),
	})
}

// GetRemaining returns the days-until-exhaustion projection.
func (h *Handler) GetRemaining(w http.ResponseWriter, r *http.Request) {
	id := medication.MedicationID(chi.URLParam(r, "id"))

	m, err := h.Ledger.Get(id)
	if err != nil {
		h.writeLedgerError(w, "Failed to load medication", err)
		return
	}
	rem, err := h.Ledger.DaysRemaining(id)
	if err != nil {
		h.writeLedgerError(w, "Failed to project remaining days", err)
		return
	}

	dto := RemainingDTO{
		ID:     string(m.ID),
		Name:   m.Name,
		Status: rem.String(),
	}
	if rem.Known() {
		days := rem.Days
		dto.DaysRemaining = &days
	}
	if !m.EndDate.IsZero() {
		dto.EndDate = m.EndDate.Format(medication.DateTimeLayout)
	}
	writeJSON(w, http.StatusOK, dto)
}

// =============================================================================
// CHECKLIST HANDLERS
// =============================================================================

// GetChecklist returns today's completion state.
func (h *Handler) GetChecklist(w http.ResponseWriter, r *http.Request) {
	due := h.Ledger.DueToday()
	done, total := h.Ledger.CompletionRatio()

	items := make([]ChecklistItemDTO, len(due))
	for i, m := range due {
		dose, _ := m.DoseAmount.Float64()
		items[i] = ChecklistItemDTO{
			ID:         string(m.ID),
			Name:       m.Name,
			DoseAmount: dose,
			Taken:      h.Ledger.TakenToday(m.ID),
		}
	}

	writeJSON(w, http.StatusOK, ChecklistDTO{
		Date:    h.Ledger.Today(),
		Items:   items,
		Done:    done,
		Total:   total,
		AllDone: total > 0 && done == total,
	})
}

// ToggleChecklist flips one checklist item.
func (h *Handler) ToggleChecklist(w http.ResponseWriter, r *http.Request) {
	id := medication.MedicationID(chi.URLParam(r, "id"))

	taken, err := h.Ledger.ToggleChecklist(r.Context(), id)
	if err != nil {
		h.writeLedgerError(w, "Failed to toggle checklist item", err)
		return
	}
	writeJSON(w, http.StatusOK, ToggleResponse{ID: string(id), Taken: taken})
}

// CompleteAll marks every medication due today as taken.
func (h *Handler) CompleteAll(w http.ResponseWriter, r *http.Request) {
	completed, err := h.Ledger.CompleteAllDue(r.Context())
	if err != nil {
		h.writeLedgerError(w, "Failed to complete checklist", err)
		return
	}
	writeJSON(w, http.StatusOK, CompleteAllResponse{Completed: completed})
}

// =============================================================================
// SCHEDULE AND HISTORY HANDLERS
// =============================================================================

// GetSchedule returns the upcoming dosing days (default: one week).
func (h *Handler) GetSchedule(w http.ResponseWriter, r *http.Request) {
	days := 7
	if v := r.URL.Query().Get("days"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > 90 {
			writeError(w, http.StatusBadRequest, "days must be between 1 and 90", err)
			return
		}
		days = n
	}

	schedule := h.Ledger.Upcoming(days)
	dtos := make([]DayScheduleDTO, len(schedule))
	for i, day := range schedule {
		dto := DayScheduleDTO{
			Date:        day.Date.Format(medication.DayLayout),
			Medications: []string{},
		}
		for _, m := range day.Due {
			dto.Medications = append(dto.Medications, m.Name)
		}
		dtos[i] = dto
	}
	writeJSON(w, http.StatusOK, dtos)
}

// GetHistory returns recent notifications, newest first.
func (h *Handler) GetHistory(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer", err)
			return
		}
		limit = n
	}

	records := h.Ledger.History(limit)
	dtos := make([]NotificationDTO, len(records))
	for i, rec := range records {
		dtos[i] = NotificationDTO{
			At:         rec.At.Format(medication.TimestampLayout),
			Kind:       string(rec.Kind),
			Medication: rec.Medication,
			Message:    rec.Message,
			Read:       rec.Read,
		}
	}
	writeJSON(w, http.StatusOK, dtos)
}

// ClearHistory empties the notification log.
func (h *Handler) ClearHistory(w http.ResponseWriter, r *http.Request) {
	h.Ledger.ClearHistory(r.Context())
	w.WriteHeader(http.StatusNoContent)
}

// =============================================================================
// HELPERS
// =============================================================================

// dtoFor attaches the derived schedule state to a medication snapshot.
func (h *Handler) dtoFor(m *medication.Medication) MedicationDTO {
	rem, _ := h.Ledger.DaysRemaining(m.ID)
	due, _ := h.Ledger.IsDueToday(m.ID)
	taken := h.Ledger.TakenToday(m.ID)
	return toMedicationDTO(m, rem, due, taken)
}

// writeLedgerError maps domain errors onto HTTP status codes.
func (h *Handler) writeLedgerError(w http.ResponseWriter, message string, err error) {
	switch {
	case medication.IsNotFound(err):
		writeError(w, http.StatusNotFound, "Medication not found", err)
	case errors.Is(err, medication.ErrDuplicateMedication):
		writeError(w, http.StatusConflict, "Medication already registered", err)
	case medication.IsClientError(err):
		writeError(w, http.StatusBadRequest, message, err)
	default:
		writeError(w, http.StatusInternalServerError, message, err)
	}
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}
