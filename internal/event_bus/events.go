package event_bus

import "time"

const (
	// LedgerChanged fires after any mutation of transaction instances or
	// skip flags. Subscribers drop derived caches.
	LedgerChanged EventType = "ledger.changed"
	// TemplatesChanged fires after recurring templates are created, edited,
	// or deleted.
	TemplatesChanged EventType = "templates.changed"
	// DebtPlanRefreshed fires after a snowball projection was synced into
	// the ledger.
	DebtPlanRefreshed EventType = "debt.plan_refreshed"
)

type LedgerChangedPayload struct {
	// Months lists the affected months as the first day of each; empty
	// means the whole register may have changed.
	Months []time.Time
}

type TemplatesChangedPayload struct {
	TemplateIDs []string
}

type DebtPlanRefreshedPayload struct {
	From         time.Time
	TargetDebtID string
}
