package debt

import (
	"encoding/json"
	"net/http"

	"github.com/cashfolio/cashfolio/pkg/datemath"
	"github.com/cashfolio/cashfolio/pkg/money"
	"github.com/cashfolio/cashfolio/pkg/recurrence"
	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"
)

type DebtDTO struct {
	ID           string                 `json:"id"`
	Name         string                 `json:"name"`
	Balance      int64                  `json:"balance"`
	MinPayment   int64                  `json:"minPayment"`
	InterestRate float64                `json:"interestRate"`
	Schedule     recurrence.TemplateDTO `json:"schedule"`
	TemplateID   string                 `json:"templateId,omitempty"`
}

type InfusionDTO struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Amount       int64  `json:"amount"`
	Date         string `json:"date"`
	TargetDebtID string `json:"targetDebtId,omitempty"`
}

type SettingsDTO struct {
	BaseExtraPayment int64 `json:"baseExtraPayment"`
	AutoGenerate     bool  `json:"autoGenerate"`
}

type PoolBreakdownDTO struct {
	BaseExtra       int64 `json:"baseExtra"`
	Infusions       int64 `json:"infusions"`
	InMonthRollover int64 `json:"inMonthRollover"`
	MaturedRollover int64 `json:"maturedRollover"`
}

type DebtMonthDTO struct {
	DebtID           string `json:"debtId"`
	Interest         int64  `json:"interest"`
	ScheduledMinimum int64  `json:"scheduledMinimum"`
	AppliedMinimum   int64  `json:"appliedMinimum"`
	Infusion         int64  `json:"infusion"`
	Extra            int64  `json:"extra"`
	EndingBalance    int64  `json:"endingBalance"`
}

type MonthProjectionDTO struct {
	Year         int              `json:"year"`
	Month        int              `json:"month"`
	TargetDebtID string           `json:"targetDebtId,omitempty"`
	Pool         int64            `json:"pool"`
	Breakdown    PoolBreakdownDTO `json:"breakdown"`
	Debts        []DebtMonthDTO   `json:"debts"`
}

type ProjectionDTO struct {
	Months []MonthProjectionDTO `json:"months"`
	// Payoffs maps each debt to its payoff month as "YYYY-MM", or null when
	// the debt is not paid off within the horizon.
	Payoffs map[string]*string `json:"payoffs"`
}

type DebtHandler struct {
	service DebtService
}

func NewDebtHandler(service DebtService) *DebtHandler {
	return &DebtHandler{service}
}

func (handler *DebtHandler) Create(w http.ResponseWriter, r *http.Request) {
	log.Debug("Registering new debt")
	w.Header().Set("Content-Type", "application/json")

	var dto DebtDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	d, err := DTOToDebt(dto)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	created, err := handler.service.CreateDebt(r.Context(), d)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusCreated)
	if err := json.NewEncoder(w).Encode(DebtToDTO(created)); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
}

func (handler *DebtHandler) GetAll(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	debts, err := handler.service.GetDebts(r.Context())
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	dtos := make([]DebtDTO, 0, len(debts))
	for _, d := range debts {
		dtos = append(dtos, DebtToDTO(d))
	}
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(dtos); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
}

func (handler *DebtHandler) Update(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	vars := mux.Vars(r)

	var dto DebtDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if dto.ID == "" || dto.ID != vars["id"] {
		http.Error(w, "Invalid debt id in request body", http.StatusBadRequest)
		return
	}
	d, err := DTOToDebt(dto)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	updated, err := handler.service.UpdateDebt(r.Context(), d)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(DebtToDTO(updated)); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
}

func (handler *DebtHandler) Delete(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	vars := mux.Vars(r)

	ok, err := handler.service.DeleteDebt(r.Context(), vars["id"])
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if !ok {
		http.Error(w, "Debt not found", http.StatusNotFound)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (handler *DebtHandler) CreateInfusion(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	var dto InfusionDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	date, err := datemath.Parse(dto.Date)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	infusion := CashInfusion{
		ID:           dto.ID,
		Name:         dto.Name,
		Amount:       money.Cents(dto.Amount),
		Date:         date,
		TargetDebtID: dto.TargetDebtID,
	}

	created, err := handler.service.AddInfusion(r.Context(), infusion)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	dto.ID = created.ID

	w.WriteHeader(http.StatusCreated)
	if err := json.NewEncoder(w).Encode(dto); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
}

func (handler *DebtHandler) GetInfusions(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	infusions, err := handler.service.GetInfusions(r.Context())
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	dtos := make([]InfusionDTO, 0, len(infusions))
	for _, infusion := range infusions {
		dtos = append(dtos, InfusionDTO{
			ID:           infusion.ID,
			Name:         infusion.Name,
			Amount:       int64(infusion.Amount),
			Date:         datemath.Format(infusion.Date),
			TargetDebtID: infusion.TargetDebtID,
		})
	}
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(dtos); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
}

func (handler *DebtHandler) DeleteInfusion(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	vars := mux.Vars(r)

	ok, err := handler.service.DeleteInfusion(r.Context(), vars["id"])
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if !ok {
		http.Error(w, "Infusion not found", http.StatusNotFound)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (handler *DebtHandler) GetSettings(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	settings, err := handler.service.GetSettings(r.Context())
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	dto := SettingsDTO{BaseExtraPayment: int64(settings.BaseExtraPayment), AutoGenerate: settings.AutoGenerate}
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(dto); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
}

func (handler *DebtHandler) UpdateSettings(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	var dto SettingsDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	settings := Settings{BaseExtraPayment: money.Cents(dto.BaseExtraPayment), AutoGenerate: dto.AutoGenerate}
	if err := handler.service.UpdateSettings(r.Context(), settings); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(dto); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
}

func (handler *DebtHandler) GetPlan(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	includeExtra := r.URL.Query().Get("includeExtra") != "false"

	projection, err := handler.service.ProjectPlan(r.Context(), includeExtra)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(ProjectionToDTO(projection)); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
}

func (handler *DebtHandler) RefreshPlan(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	if err := handler.service.RefreshPlan(r.Context()); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func DebtToDTO(d Debt) DebtDTO {
	return DebtDTO{
		ID:           d.ID,
		Name:         d.Name,
		Balance:      int64(d.Balance),
		MinPayment:   int64(d.MinPayment),
		InterestRate: d.InterestRate,
		Schedule:     recurrence.TemplateToDTO(d.Schedule),
		TemplateID:   d.TemplateID,
	}
}

func DTOToDebt(dto DebtDTO) (Debt, error) {
	schedule, err := recurrence.DTOToTemplate(dto.Schedule)
	if err != nil {
		return Debt{}, err
	}
	return Debt{
		ID:           dto.ID,
		Name:         dto.Name,
		Balance:      money.Cents(dto.Balance),
		MinPayment:   money.Cents(dto.MinPayment),
		InterestRate: dto.InterestRate,
		Schedule:     schedule,
		TemplateID:   dto.TemplateID,
	}, nil
}

func ProjectionToDTO(p Projection) ProjectionDTO {
	dto := ProjectionDTO{
		Months:  make([]MonthProjectionDTO, 0, len(p.Months)),
		Payoffs: map[string]*string{},
	}
	for _, mp := range p.Months {
		monthDTO := MonthProjectionDTO{
			Year:         mp.Year,
			Month:        int(mp.Month),
			TargetDebtID: mp.TargetDebtID,
			Pool:         int64(mp.Pool),
			Breakdown: PoolBreakdownDTO{
				BaseExtra:       int64(mp.Breakdown.BaseExtra),
				Infusions:       int64(mp.Breakdown.Infusions),
				InMonthRollover: int64(mp.Breakdown.InMonthRollover),
				MaturedRollover: int64(mp.Breakdown.MaturedRollover),
			},
			Debts: make([]DebtMonthDTO, 0, len(mp.Debts)),
		}
		for _, dm := range mp.Debts {
			monthDTO.Debts = append(monthDTO.Debts, DebtMonthDTO{
				DebtID:           dm.DebtID,
				Interest:         int64(dm.Interest),
				ScheduledMinimum: int64(dm.ScheduledMinimum),
				AppliedMinimum:   int64(dm.AppliedMinimum),
				Infusion:         int64(dm.Infusion),
				Extra:            int64(dm.Extra),
				EndingBalance:    int64(dm.EndingBalance),
			})
		}
		dto.Months = append(dto.Months, monthDTO)
	}
	for id, payoff := range p.Payoffs {
		if payoff == nil {
			dto.Payoffs[id] = nil
			continue
		}
		formatted := payoff.String()
		dto.Payoffs[id] = &formatted
	}
	return dto
}
