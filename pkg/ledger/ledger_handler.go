package ledger

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/cashfolio/cashfolio/pkg/datemath"
	"github.com/cashfolio/cashfolio/pkg/money"
	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"
)

type InstanceDTO struct {
	ID             int64  `json:"id"`
	Date           string `json:"date"`
	Amount         int64  `json:"amount"`
	EntryType      string `json:"entryType"`
	Description    string `json:"description"`
	RecurringID    string `json:"recurringId,omitempty"`
	Modified       bool   `json:"modified,omitempty"`
	OriginalDate   string `json:"originalDate,omitempty"`
	Hidden         bool   `json:"hidden,omitempty"`
	SnowballDebtID string `json:"snowballDebtId,omitempty"`
}

type LedgerHandler struct {
	service LedgerService
}

func NewLedgerHandler(service LedgerService) *LedgerHandler {
	return &LedgerHandler{service}
}

func (handler *LedgerHandler) Create(w http.ResponseWriter, r *http.Request) {
	log.Debug("Adding new transaction")
	w.Header().Set("Content-Type", "application/json")

	var dto InstanceDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	date, err := datemath.Parse(dto.Date)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	created, err := handler.service.AddEntry(r.Context(), date, DTOToInstance(dto))
	if err != nil {
		if errors.Is(err, ErrConstraintViolation) {
			http.Error(w, err.Error(), http.StatusConflict)
			return
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusCreated)
	if err := json.NewEncoder(w).Encode(InstanceToDTO(date, created)); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
}

func (handler *LedgerHandler) Update(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	vars := mux.Vars(r)
	id, err := strconv.ParseInt(vars["id"], 10, 64)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	var dto InstanceDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if dto.ID == 0 || dto.ID != id {
		http.Error(w, "Invalid transaction id in request body", http.StatusBadRequest)
		return
	}

	ok, err := handler.service.UpdateEntry(r.Context(), DTOToInstance(dto))
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if !ok {
		http.Error(w, "Transaction not found", http.StatusNotFound)
		return
	}

	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(dto); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
}

func (handler *LedgerHandler) Delete(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	vars := mux.Vars(r)
	id, err := strconv.ParseInt(vars["id"], 10, 64)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	date, err := datemath.Parse(r.URL.Query().Get("date"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	ok, err := handler.service.DeleteEntry(r.Context(), date, id)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if !ok {
		http.Error(w, "Transaction not found", http.StatusNotFound)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (handler *LedgerHandler) ToggleSkip(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	var dto struct {
		Date        string `json:"date"`
		RecurringID string `json:"recurringId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	date, err := datemath.Parse(dto.Date)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	skipped, err := handler.service.ToggleSkip(r.Context(), date, dto.RecurringID)
	if err != nil {
		if errors.Is(err, ErrConstraintViolation) {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(map[string]bool{"skipped": skipped}); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
}

func InstanceToDTO(date time.Time, instance Instance) InstanceDTO {
	dto := InstanceDTO{
		ID:             instance.ID,
		Date:           datemath.Format(date),
		Amount:         int64(instance.Amount),
		EntryType:      string(instance.EntryType),
		Description:    instance.Description,
		RecurringID:    instance.RecurringID,
		Modified:       instance.Modified,
		Hidden:         instance.Hidden,
		SnowballDebtID: instance.SnowballDebtID,
	}
	if instance.OriginalDate != nil {
		dto.OriginalDate = datemath.Format(*instance.OriginalDate)
	}
	return dto
}

func DTOToInstance(dto InstanceDTO) Instance {
	return Instance{
		ID:             dto.ID,
		Amount:         money.Cents(dto.Amount),
		EntryType:      EntryType(dto.EntryType),
		Description:    dto.Description,
		RecurringID:    dto.RecurringID,
		Modified:       dto.Modified,
		Hidden:         dto.Hidden,
		SnowballDebtID: dto.SnowballDebtID,
	}
}
