package ledger

import (
	"fmt"
	"strings"
	"time"

	"github.com/cashfolio/cashfolio/pkg/datemath"
)

// SkipSet records (date, template) occurrences the user has toggled off.
// Skipping leaves the instance in the register so it stays visible and can
// be toggled back on; aggregation ignores it.
type SkipSet map[string]bool

func skipKey(date time.Time, recurringID string) string {
	return datemath.Format(date) + "|" + recurringID
}

// Toggle flips the skip flag for an occurrence and returns the new state.
func (s SkipSet) Toggle(date time.Time, recurringID string) bool {
	key := skipKey(date, recurringID)
	if s[key] {
		delete(s, key)
		return false
	}
	s[key] = true
	return true
}

func (s SkipSet) Contains(date time.Time, recurringID string) bool {
	return s[skipKey(date, recurringID)]
}

func (s SkipSet) Set(date time.Time, recurringID string) {
	s[skipKey(date, recurringID)] = true
}

func (s SkipSet) Delete(date time.Time, recurringID string) {
	delete(s, skipKey(date, recurringID))
}

// Entries lists the skipped occurrences as (date, recurringID) pairs.
func (s SkipSet) Entries() []SkipEntry {
	entries := make([]SkipEntry, 0, len(s))
	for key := range s {
		parts := strings.SplitN(key, "|", 2)
		if len(parts) != 2 {
			continue
		}
		date, err := datemath.Parse(parts[0])
		if err != nil {
			continue
		}
		entries = append(entries, SkipEntry{Date: date, RecurringID: parts[1]})
	}
	return entries
}

type SkipEntry struct {
	Date        time.Time
	RecurringID string
}

// Migrate re-points skip flags for a template to a successor template for
// every date on or after cutoff. Used by future-scoped edits, which split a
// template in two.
func (s SkipSet) Migrate(fromID, toID string, cutoff time.Time) {
	for _, entry := range s.Entries() {
		if entry.RecurringID == fromID && !entry.Date.Before(cutoff) {
			s.Delete(entry.Date, fromID)
			s.Set(entry.Date, toID)
		}
	}
}

// DropTemplate removes skip flags for a template on or after cutoff.
func (s SkipSet) DropTemplate(recurringID string, cutoff time.Time) {
	for _, entry := range s.Entries() {
		if entry.RecurringID == recurringID && !entry.Date.Before(cutoff) {
			s.Delete(entry.Date, recurringID)
		}
	}
}

func (e SkipEntry) String() string {
	return fmt.Sprintf("%s on %s", e.RecurringID, datemath.Format(e.Date))
}
