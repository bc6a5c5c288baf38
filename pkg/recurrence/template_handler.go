package recurrence

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/cashfolio/cashfolio/pkg/datemath"
	"github.com/cashfolio/cashfolio/pkg/ledger"
	"github.com/cashfolio/cashfolio/pkg/money"
	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"
)

type TemplateDTO struct {
	ID             string          `json:"id"`
	StartDate      string          `json:"startDate"`
	EndDate        string          `json:"endDate,omitempty"`
	MaxOccurrences int             `json:"maxOccurrences,omitempty"`
	Kind           string          `json:"kind"`
	Amount         int64           `json:"amount"`
	EntryType      string          `json:"entryType"`
	Description    string          `json:"description"`
	DayPattern     *DayPatternDTO  `json:"dayPattern,omitempty"`
	SemiMonthly    *SemiMonthlyDTO `json:"semiMonthlyDays,omitempty"`
	CustomInterval *IntervalDTO    `json:"customInterval,omitempty"`
	Adjustment     string          `json:"adjustment,omitempty"`
	VariablePct    *float64        `json:"variablePercent,omitempty"`
	DebtID         string          `json:"debtId,omitempty"`
}

type DayPatternDTO struct {
	Ordinal int `json:"ordinal"`
	Weekday int `json:"weekday"`
}

type SemiMonthlyDTO struct {
	First  int `json:"first"`
	Second int `json:"second"`
}

type IntervalDTO struct {
	Value int    `json:"value"`
	Unit  string `json:"unit"`
}

type TemplateHandler struct {
	service TemplateService
}

func NewTemplateHandler(service TemplateService) *TemplateHandler {
	return &TemplateHandler{service}
}

func (handler *TemplateHandler) Create(w http.ResponseWriter, r *http.Request) {
	log.Debug("Creating new recurring template")
	w.Header().Set("Content-Type", "application/json")

	var dto TemplateDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	template, err := DTOToTemplate(dto)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	created, err := handler.service.Create(r.Context(), template)
	if err != nil {
		if errors.Is(err, ErrInvalidTemplate) {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusCreated)
	if err := json.NewEncoder(w).Encode(TemplateToDTO(created)); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
}

func (handler *TemplateHandler) GetAll(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	templates, err := handler.service.GetAll(r.Context())
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	dtos := make([]TemplateDTO, 0, len(templates))
	for _, template := range templates {
		dtos = append(dtos, TemplateToDTO(template))
	}

	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(dtos); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
}

func (handler *TemplateHandler) Get(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	vars := mux.Vars(r)

	template, found, err := handler.service.Get(r.Context(), vars["id"])
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if !found {
		http.Error(w, "Template not found", http.StatusNotFound)
		return
	}

	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(TemplateToDTO(template)); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
}

func (handler *TemplateHandler) Update(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	vars := mux.Vars(r)

	var dto TemplateDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if dto.ID == "" || dto.ID != vars["id"] {
		http.Error(w, "Invalid template id in request body", http.StatusBadRequest)
		return
	}
	template, err := DTOToTemplate(dto)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	scope := ScopeAll
	if s := r.URL.Query().Get("scope"); s != "" {
		scope = EditScope(s)
	}
	var effectiveFrom time.Time
	if from := r.URL.Query().Get("from"); from != "" {
		effectiveFrom, err = datemath.Parse(from)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
	}

	updated, err := handler.service.Update(r.Context(), template, scope, effectiveFrom)
	if err != nil {
		if errors.Is(err, ErrInvalidTemplate) {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(TemplateToDTO(updated)); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
}

type OccurrenceDTO struct {
	Date         string `json:"date"`
	Amount       int64  `json:"amount"`
	Index        int    `json:"index"`
	OriginalDate string `json:"originalDate,omitempty"`
}

// Occurrences previews one month of a template's expansion without touching
// the ledger.
func (handler *TemplateHandler) Occurrences(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	vars := mux.Vars(r)

	year, err := strconv.Atoi(r.URL.Query().Get("year"))
	if err != nil {
		http.Error(w, "Invalid year", http.StatusBadRequest)
		return
	}
	monthNumber, err := strconv.Atoi(r.URL.Query().Get("month"))
	if err != nil || monthNumber < 1 || monthNumber > 12 {
		http.Error(w, "Invalid month", http.StatusBadRequest)
		return
	}

	template, found, err := handler.service.Get(r.Context(), vars["id"])
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if !found {
		http.Error(w, "Template not found", http.StatusNotFound)
		return
	}

	occurrences, err := Expand(template, year, time.Month(monthNumber))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	dtos := make([]OccurrenceDTO, 0, len(occurrences))
	for _, occ := range occurrences {
		dto := OccurrenceDTO{
			Date:   datemath.Format(occ.Date),
			Amount: int64(occ.Amount),
			Index:  occ.Index,
		}
		if occ.OriginalDate != nil {
			dto.OriginalDate = datemath.Format(*occ.OriginalDate)
		}
		dtos = append(dtos, dto)
	}

	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(dtos); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
}

func (handler *TemplateHandler) Delete(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	vars := mux.Vars(r)

	ok, err := handler.service.Delete(r.Context(), vars["id"])
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if !ok {
		http.Error(w, "Template not found", http.StatusNotFound)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func TemplateToDTO(t Template) TemplateDTO {
	dto := TemplateDTO{
		ID:             t.ID,
		StartDate:      datemath.Format(t.StartDate),
		MaxOccurrences: t.MaxOccurrences,
		Kind:           string(t.Kind),
		Amount:         int64(t.Amount),
		EntryType:      string(t.EntryType),
		Description:    t.Description,
		Adjustment:     string(t.Adjustment),
		DebtID:         t.DebtID,
	}
	if t.EndDate != nil {
		dto.EndDate = datemath.Format(*t.EndDate)
	}
	if t.DayPattern != nil {
		dto.DayPattern = &DayPatternDTO{Ordinal: t.DayPattern.Ordinal, Weekday: int(t.DayPattern.Weekday)}
	}
	if t.SemiMonthly != nil {
		dto.SemiMonthly = &SemiMonthlyDTO{First: t.SemiMonthly.First, Second: t.SemiMonthly.Second}
	}
	if t.CustomInterval != nil {
		dto.CustomInterval = &IntervalDTO{Value: t.CustomInterval.Value, Unit: string(t.CustomInterval.Unit)}
	}
	if t.Variable != nil {
		pct := t.Variable.PercentPerOccurrence
		dto.VariablePct = &pct
	}
	return dto
}

func DTOToTemplate(dto TemplateDTO) (Template, error) {
	startDate, err := datemath.Parse(dto.StartDate)
	if err != nil {
		return Template{}, err
	}
	t := Template{
		ID:             dto.ID,
		StartDate:      startDate,
		MaxOccurrences: dto.MaxOccurrences,
		Kind:           Kind(dto.Kind),
		Amount:         money.Cents(dto.Amount),
		EntryType:      ledger.EntryType(dto.EntryType),
		Description:    dto.Description,
		Adjustment:     datemath.AdjustMode(dto.Adjustment),
		DebtID:         dto.DebtID,
	}
	if t.Adjustment == "" {
		t.Adjustment = datemath.AdjustNone
	}
	if dto.EndDate != "" {
		endDate, err := datemath.Parse(dto.EndDate)
		if err != nil {
			return Template{}, err
		}
		t.EndDate = &endDate
	}
	if dto.DayPattern != nil {
		t.DayPattern = &DayPattern{Ordinal: dto.DayPattern.Ordinal, Weekday: time.Weekday(dto.DayPattern.Weekday)}
	}
	if dto.SemiMonthly != nil {
		t.SemiMonthly = &SemiMonthlyDays{First: dto.SemiMonthly.First, Second: dto.SemiMonthly.Second}
	}
	if dto.CustomInterval != nil {
		t.CustomInterval = &Interval{Value: dto.CustomInterval.Value, Unit: IntervalUnit(dto.CustomInterval.Unit)}
	}
	if dto.VariablePct != nil {
		t.Variable = &VariableAmount{PercentPerOccurrence: *dto.VariablePct}
	}
	return t, nil
}
