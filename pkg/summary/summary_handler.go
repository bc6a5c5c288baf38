package summary

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/cashfolio/cashfolio/pkg/datemath"
	"github.com/cashfolio/cashfolio/pkg/ledger"
	"github.com/gorilla/mux"
)

type DailyTotalsDTO struct {
	Date            string `json:"date"`
	Income          int64  `json:"income"`
	Expense         int64  `json:"expense"`
	Balance         *int64 `json:"balance,omitempty"`
	HasSkipped      bool   `json:"hasSkipped,omitempty"`
	HasTransactions bool   `json:"hasTransactions,omitempty"`
}

type MonthlySummaryDTO struct {
	Year     int              `json:"year"`
	Month    int              `json:"month"`
	Income   int64            `json:"income"`
	Expense  int64            `json:"expense"`
	Starting int64            `json:"startingBalance"`
	Ending   int64            `json:"endingBalance"`
	Days     []DailyTotalsDTO `json:"days"`
}

type SummaryHandler struct {
	service SummaryService
}

func NewSummaryHandler(service SummaryService) *SummaryHandler {
	return &SummaryHandler{service}
}

func (handler *SummaryHandler) GetMonth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	year, month, ok := monthVars(w, r)
	if !ok {
		return
	}

	s, err := handler.service.MonthSummary(r.Context(), year, month)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(SummaryToDTO(s)); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
}

func (handler *SummaryHandler) GetRunningBalances(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	year, month, ok := monthVars(w, r)
	if !ok {
		return
	}

	balances, err := handler.service.MonthRunningBalances(r.Context(), year, month)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	out := make([]int64, 0, len(balances))
	for _, balance := range balances {
		out = append(out, int64(balance))
	}
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(out); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
}

// RegisterEntryDTO is one transaction in the month register view, with its
// skip state resolved.
type RegisterEntryDTO struct {
	ledger.InstanceDTO
	Skipped bool `json:"skipped,omitempty"`
}

// GetRegister returns every transaction of the month, in date order, after
// reconciling the month against the current templates.
func (handler *SummaryHandler) GetRegister(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	year, month, ok := monthVars(w, r)
	if !ok {
		return
	}

	led, err := handler.service.MonthRegister(r.Context(), year, month)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	entries := make([]RegisterEntryDTO, 0)
	for day := 1; day <= datemath.DaysInMonth(year, month); day++ {
		date := datemath.Date(year, month, day)
		for _, instance := range led.On(date) {
			entries = append(entries, RegisterEntryDTO{
				InstanceDTO: ledger.InstanceToDTO(date, instance),
				Skipped:     instance.RecurringID != "" && led.IsSkipped(date, instance.RecurringID),
			})
		}
	}

	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(entries); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
}

func monthVars(w http.ResponseWriter, r *http.Request) (int, time.Month, bool) {
	vars := mux.Vars(r)
	year, err := strconv.Atoi(vars["year"])
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return 0, 0, false
	}
	monthNumber, err := strconv.Atoi(vars["month"])
	if err != nil || monthNumber < 1 || monthNumber > 12 {
		http.Error(w, "Invalid month", http.StatusBadRequest)
		return 0, 0, false
	}
	return year, time.Month(monthNumber), true
}

func SummaryToDTO(s MonthlySummary) MonthlySummaryDTO {
	dto := MonthlySummaryDTO{
		Year:     s.Year,
		Month:    int(s.Month),
		Income:   int64(s.Income),
		Expense:  int64(s.Expense),
		Starting: int64(s.Starting),
		Ending:   int64(s.Ending),
		Days:     make([]DailyTotalsDTO, 0, len(s.Days)),
	}
	for _, day := range s.Days {
		dayDTO := DailyTotalsDTO{
			Date:            datemath.Format(day.Date),
			Income:          int64(day.Income),
			Expense:         int64(day.Expense),
			HasSkipped:      day.HasSkipped,
			HasTransactions: day.HasTransactions,
		}
		if day.Balance != nil {
			balance := int64(*day.Balance)
			dayDTO.Balance = &balance
		}
		dto.Days = append(dto.Days, dayDTO)
	}
	return dto
}
