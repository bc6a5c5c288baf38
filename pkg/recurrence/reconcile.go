package recurrence

import (
	"errors"
	"time"

	"github.com/cashfolio/cashfolio/pkg/datemath"
	"github.com/cashfolio/cashfolio/pkg/ledger"
	log "github.com/sirupsen/logrus"
)

// ReconcileMonth makes one calendar month of the ledger a pure function of
// the given templates. It first strips every unmodified generated instance
// whose template is known, then re-expands each template and inserts the
// occurrences that are not already represented. User-modified instances are
// never touched, so re-running after template edits cannot accumulate
// duplicates or stale leftovers.
//
// Invalid templates are skipped and returned, not fatal: one broken template
// must not abort expansion of the rest.
func ReconcileMonth(led *ledger.Ledger, templates []Template, year int, month time.Month) []error {
	known := make(map[string]bool, len(templates))
	for _, t := range templates {
		if t.ID != "" {
			known[t.ID] = true
		}
	}

	led.Filter(func(date time.Time, instance ledger.Instance) bool {
		if !datemath.SameMonth(date, year, month) {
			return true
		}
		if instance.RecurringID == "" || instance.Modified || !known[instance.RecurringID] {
			return true
		}
		return false
	})

	var invalid []error
	for _, t := range templates {
		occurrences, err := Expand(t, year, month)
		if err != nil {
			log.Warnf("template %s cannot be expanded: %v", t.ID, err)
			invalid = append(invalid, err)
			continue
		}
		for _, occ := range occurrences {
			reconcileOccurrence(led, t, occ)
		}
	}
	return invalid
}

// reconcileOccurrence merges a single expanded occurrence into the ledger.
// A user-modified instance for the same (date, template) wins permanently;
// an unmodified one is left as is; otherwise the occurrence is inserted.
func reconcileOccurrence(led *ledger.Ledger, t Template, occ Occurrence) {
	if _, exists := led.FindRecurring(occ.Date, t.ID); exists {
		return
	}
	err := led.Add(occ.Date, ledger.Instance{
		Amount:       occ.Amount,
		EntryType:    t.EntryType,
		Description:  t.Description,
		RecurringID:  t.ID,
		OriginalDate: occ.OriginalDate,
	})
	if errors.Is(err, ledger.ErrConstraintViolation) {
		// Two occurrences of one template adjusted onto the same business
		// day; the register keeps the first.
		log.Debugf("occurrence of %s on %s collapsed: %v", t.ID, datemath.Format(occ.Date), err)
	}
}

// ReconcileRange reconciles every month between from and to inclusive.
func ReconcileRange(led *ledger.Ledger, templates []Template, fromYear int, fromMonth time.Month, months int) []error {
	var invalid []error
	for i := 0; i < months; i++ {
		y, m := datemath.AddMonths(fromYear, fromMonth, i)
		invalid = append(invalid, ReconcileMonth(led, templates, y, m)...)
	}
	return invalid
}
