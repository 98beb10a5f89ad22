/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the internal domain model from the external API contract: the store
  keeps the legacy field names for data-file compatibility, while the
  API speaks plain English JSON.

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients

VALIDATION:
  Validation is done in the ledger, not in DTOs. DTOs are pure data
  carriers; handlers only check that the body parses.

SEE ALSO:
  - handlers.go: Uses these types
  - medication/ledger.go: Domain operations behind them
*/
package api

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/warp/dose-engine/medication"
)

// =============================================================================
// REQUEST/RESPONSE TYPES
// =============================================================================

// MedicationDTO represents a medication in API responses, with the
// derived schedule state attached.
type MedicationDTO struct {
	ID              string  `json:"id"`
	Name            string  `json:"name"`
	Description     string  `json:"description,omitempty"`
	Presentation    string  `json:"presentation,omitempty"`
	TotalQuantity   float64 `json:"total_quantity"`
	CurrentQuantity float64 `json:"current_quantity"`
	DoseAmount      float64 `json:"dose_amount"`
	FrequencyDays   int     `json:"frequency_days"`
	StartDate       string  `json:"start_date,omitempty"`
	EndDate         string  `json:"end_date,omitempty"`
	AlertActive     bool    `json:"alert_active"`

	DaysRemaining *int   `json:"days_remaining,omitempty"`
	Status        string `json:"status"`
	DueToday      bool   `json:"due_today"`
	TakenToday    bool   `json:"taken_today"`
}

// CreateMedicationRequest is the request to register a medication.
type CreateMedicationRequest struct {
	Name          string  `json:"name"`
	Description   string  `json:"description"`
	Presentation  string  `json:"presentation"`
	TotalQuantity float64 `json:"total_quantity"`
	DoseAmount    float64 `json:"dose_amount"`
	FrequencyDays int     `json:"frequency_days"`
	StartDate     string  `json:"start_date"`
}

// UpdateMedicationRequest is the request to edit a medication. A nil
// current_quantity leaves the remaining stock untouched.
type UpdateMedicationRequest struct {
	Name            string   `json:"name"`
	Description     string   `json:"description"`
	Presentation    string   `json:"presentation"`
	TotalQuantity   float64  `json:"total_quantity"`
	CurrentQuantity *float64 `json:"current_quantity,omitempty"`
	DoseAmount      float64  `json:"dose_amount"`
	FrequencyDays   int      `json:"frequency_days"`
	StartDate       string   `json:"start_date"`
}

// RestockRequest adds purchased stock to a medication.
type RestockRequest struct {
	Quantity float64 `json:"quantity"`
}

// RestockResponse reports the refill result.
type RestockResponse struct {
	Medication MedicationDTO `json:"medication"`
	Added      float64       `json:"added"`
	Unit       string        `json:"unit"`
}

// RemainingDTO is the depletion projection for one medication.
type RemainingDTO struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	DaysRemaining *int   `json:"days_remaining,omitempty"`
	Status        string `json:"status"`
	EndDate       string `json:"end_date,omitempty"`
}

// ChecklistDTO is today's completion state.
type ChecklistDTO struct {
	Date    string             `json:"date"`
	Items   []ChecklistItemDTO `json:"items"`
	Done    int                `json:"done"`
	Total   int                `json:"total"`
	AllDone bool               `json:"all_done"`
}

type ChecklistItemDTO struct {
	ID         string  `json:"id"`
	Name       string  `json:"name"`
	DoseAmount float64 `json:"dose_amount"`
	Taken      bool    `json:"taken"`
}

// ToggleResponse reports the new checklist state of one item.
type ToggleResponse struct {
	ID    string `json:"id"`
	Taken bool   `json:"taken"`
}

// CompleteAllResponse reports how many pending items were marked.
type CompleteAllResponse struct {
	Completed int `json:"completed"`
}

// DayScheduleDTO lists medications due on one upcoming date.
type DayScheduleDTO struct {
	Date        string   `json:"date"`
	Medications []string `json:"medications"`
}

// NotificationDTO is one history entry.
type NotificationDTO struct {
	At         string `json:"at"`
	Kind       string `json:"kind"`
	Medication string `json:"medication"`
	Message    string `json:"message"`
	Read       bool   `json:"read"`
}

// ErrorResponse is the standard error body.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// =============================================================================
// CONVERSIONS
// =============================================================================

func toMedicationDTO(m *medication.Medication, rem medication.Remaining, dueToday, takenToday bool) MedicationDTO {
	dto := MedicationDTO{
		ID:            string(m.ID),
		Name:          m.Name,
		Description:   m.Description,
		Presentation:  m.Presentation,
		FrequencyDays: m.FrequencyDays,
		AlertActive:   m.AlertActive,
		Status:        rem.String(),
		DueToday:      dueToday,
		TakenToday:    takenToday,
	}
	dto.TotalQuantity, _ = m.TotalQuantity.Float64()
	dto.CurrentQuantity, _ = m.CurrentQuantity.Float64()
	dto.DoseAmount, _ = m.DoseAmount.Float64()
	if !m.StartDate.IsZero() {
		dto.StartDate = m.StartDate.Format(medication.DateTimeLayout)
	}
	if !m.EndDate.IsZero() {
		dto.EndDate = m.EndDate.Format(medication.DateTimeLayout)
	}
	if rem.Known() {
		days := rem.Days
		dto.DaysRemaining = &days
	}
	return dto
}

func (r CreateMedicationRequest) toInput() medication.MedicationInput {
	return medication.MedicationInput{
		Name:          r.Name,
		Description:   r.Description,
		Presentation:  r.Presentation,
		TotalQuantity: decimal.NewFromFloat(r.TotalQuantity),
		DoseAmount:    decimal.NewFromFloat(r.DoseAmount),
		FrequencyDays: r.FrequencyDays,
		StartDate:     parseStartDate(r.StartDate),
	}
}

func (r UpdateMedicationRequest) toInput() medication.MedicationInput {
	in := medication.MedicationInput{
		Name:          r.Name,
		Description:   r.Description,
		Presentation:  r.Presentation,
		TotalQuantity: decimal.NewFromFloat(r.TotalQuantity),
		DoseAmount:    decimal.NewFromFloat(r.DoseAmount),
		FrequencyDays: r.FrequencyDays,
		StartDate:     parseStartDate(r.StartDate),
	}
	if r.CurrentQuantity != nil {
		q := decimal.NewFromFloat(*r.CurrentQuantity)
		in.CurrentQuantity = &q
	}
	return in
}

// parseStartDate accepts "2006-01-02 15:04" or a bare date (midnight).
// Anything else fails open to zero, which the engine treats as always
// due, matching how the stores handle malformed dates.
func parseStartDate(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	if t, err := time.ParseInLocation(medication.DateTimeLayout, s, time.Local); err == nil {
		return t
	}
	if t, err := time.ParseInLocation(medication.DayLayout, s, time.Local); err == nil {
		return t
	}
	return time.Time{}
}

// unitFor guesses the display unit from the presentation text, matching
// the wording users enter ("Caja de 30 tabletas", "Jarabe 120ml").
func unitFor(presentation string) string {
	p := strings.ToLower(presentation)
	switch {
	case strings.Contains(p, "tablet"), strings.Contains(p, "pastilla"), strings.Contains(p, "capsul"), strings.Contains(p, "cápsul"):
		return "tabletas"
	case strings.Contains(p, "ml"), strings.Contains(p, "jarabe"), strings.Contains(p, "gota"):
		return "ml"
	case strings.Contains(p, "mg"), strings.Contains(p, "g "), strings.Contains(p, "polvo"):
		return "gramos"
	default:
		return "unidades"
	}
}
