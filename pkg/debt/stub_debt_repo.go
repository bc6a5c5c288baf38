package debt

import (
	"context"
	"sort"
)

type StubDebtRepo struct {
	debts     map[string]Debt
	infusions map[string]CashInfusion
	settings  Settings
}

func NewStubDebtRepo() *StubDebtRepo {
	return &StubDebtRepo{
		debts:     map[string]Debt{},
		infusions: map[string]CashInfusion{},
	}
}

func (s *StubDebtRepo) StoreDebt(ctx context.Context, d Debt) error {
	s.debts[d.ID] = d
	return nil
}

func (s *StubDebtRepo) GetDebts(ctx context.Context) ([]Debt, error) {
	debts := make([]Debt, 0, len(s.debts))
	for _, d := range s.debts {
		debts = append(debts, d)
	}
	sort.Slice(debts, func(i, j int) bool { return debts[i].Name < debts[j].Name })
	return debts, nil
}

func (s *StubDebtRepo) GetDebt(ctx context.Context, id string) (Debt, bool, error) {
	d, ok := s.debts[id]
	return d, ok, nil
}

func (s *StubDebtRepo) UpdateDebt(ctx context.Context, d Debt) (bool, error) {
	if _, ok := s.debts[d.ID]; !ok {
		return false, nil
	}
	s.debts[d.ID] = d
	return true, nil
}

func (s *StubDebtRepo) DeleteDebt(ctx context.Context, id string) (bool, error) {
	if _, ok := s.debts[id]; !ok {
		return false, nil
	}
	delete(s.debts, id)
	return true, nil
}

func (s *StubDebtRepo) StoreInfusion(ctx context.Context, infusion CashInfusion) error {
	s.infusions[infusion.ID] = infusion
	return nil
}

func (s *StubDebtRepo) GetInfusions(ctx context.Context) ([]CashInfusion, error) {
	infusions := make([]CashInfusion, 0, len(s.infusions))
	for _, infusion := range s.infusions {
		infusions = append(infusions, infusion)
	}
	sort.Slice(infusions, func(i, j int) bool { return infusions[i].Date.Before(infusions[j].Date) })
	return infusions, nil
}

func (s *StubDebtRepo) DeleteInfusion(ctx context.Context, id string) (bool, error) {
	if _, ok := s.infusions[id]; !ok {
		return false, nil
	}
	delete(s.infusions, id)
	return true, nil
}

func (s *StubDebtRepo) GetSettings(ctx context.Context) (Settings, error) {
	return s.settings, nil
}

func (s *StubDebtRepo) UpdateSettings(ctx context.Context, settings Settings) error {
	s.settings = settings
	return nil
}

func (s *StubDebtRepo) Cleanup() {
	s.debts = map[string]Debt{}
	s.infusions = map[string]CashInfusion{}
	s.settings = Settings{}
}
