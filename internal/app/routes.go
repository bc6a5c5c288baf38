package app

import (
	"github.com/gorilla/mux"
)

// RegisterRoutes registers all API endpoints.
func RegisterRoutes(r *mux.Router, deps *Dependencies) {

	// Recurring templates
	r.HandleFunc("/api/template", deps.TemplateHandler.GetAll).Methods("GET")
	r.HandleFunc("/api/template", deps.TemplateHandler.Create).Methods("POST")
	r.HandleFunc("/api/template/{id}", deps.TemplateHandler.Get).Methods("GET")
	r.HandleFunc("/api/template/{id}", deps.TemplateHandler.Update).Methods("PUT")
	r.HandleFunc("/api/template/{id}", deps.TemplateHandler.Delete).Methods("DELETE")
	r.HandleFunc("/api/template/{id}/occurrences", deps.TemplateHandler.Occurrences).Methods("GET")

	// Transactions and skips
	r.HandleFunc("/api/transaction", deps.LedgerHandler.Create).Methods("POST")
	r.HandleFunc("/api/transaction/{id}", deps.LedgerHandler.Update).Methods("PUT")
	r.HandleFunc("/api/transaction/{id}", deps.LedgerHandler.Delete).Queries("date", "{date}").Methods("DELETE")
	r.HandleFunc("/api/transaction/skip", deps.LedgerHandler.ToggleSkip).Methods("POST")

	// Monthly summaries and the register view
	r.HandleFunc("/api/summary/{year}/{month}", deps.SummaryHandler.GetMonth).Methods("GET")
	r.HandleFunc("/api/summary/{year}/{month}/balances", deps.SummaryHandler.GetRunningBalances).Methods("GET")
	r.HandleFunc("/api/register/{year}/{month}", deps.SummaryHandler.GetRegister).Methods("GET")

	// Debts and the snowball plan
	r.HandleFunc("/api/debt", deps.DebtHandler.GetAll).Methods("GET")
	r.HandleFunc("/api/debt", deps.DebtHandler.Create).Methods("POST")
	r.HandleFunc("/api/debt/{id}", deps.DebtHandler.Update).Methods("PUT")
	r.HandleFunc("/api/debt/{id}", deps.DebtHandler.Delete).Methods("DELETE")
	r.HandleFunc("/api/debt-plan", deps.DebtHandler.GetPlan).Methods("GET")
	r.HandleFunc("/api/debt-plan/refresh", deps.DebtHandler.RefreshPlan).Methods("POST")
	r.HandleFunc("/api/infusion", deps.DebtHandler.GetInfusions).Methods("GET")
	r.HandleFunc("/api/infusion", deps.DebtHandler.CreateInfusion).Methods("POST")
	r.HandleFunc("/api/infusion/{id}", deps.DebtHandler.DeleteInfusion).Methods("DELETE")
	r.HandleFunc("/api/snowball-settings", deps.DebtHandler.GetSettings).Methods("GET")
	r.HandleFunc("/api/snowball-settings", deps.DebtHandler.UpdateSettings).Methods("PUT")

	// Backup and export
	r.HandleFunc("/api/backup/export", deps.BackupHandler.Export).Methods("GET")
	r.HandleFunc("/api/backup/import", deps.BackupHandler.Import).Methods("POST")
	r.HandleFunc("/api/backup/upload", deps.BackupHandler.Upload).Methods("POST")
	r.HandleFunc("/api/backup/restore", deps.BackupHandler.Restore).Methods("POST")
	r.HandleFunc("/api/backup/csv/{year}/{month}", deps.BackupHandler.ExportMonthCSV).Methods("GET")
}
