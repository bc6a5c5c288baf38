package backup

import (
	"bytes"
	"encoding/csv"
	"strconv"
	"time"

	"github.com/cashfolio/cashfolio/pkg/datemath"
	"github.com/cashfolio/cashfolio/pkg/ledger"
	"github.com/cashfolio/cashfolio/pkg/summary"
	log "github.com/sirupsen/logrus"
)

type CsvRendererImpl struct {
}

func NewCsvRenderer() *CsvRendererImpl {
	return &CsvRendererImpl{}
}

// RenderMonth writes one month of the register as a CSV document: one row
// per visible transaction with the end-of-day running balance, skipped
// occurrences flagged, hidden instances left out.
func (t *CsvRendererImpl) RenderMonth(led *ledger.Ledger, cache *summary.BalanceCache, year int, month time.Month) (string, error) {
	balances := summary.RunningBalances(led, cache, year, month)

	data := [][]string{
		{"Date", "Description", "Type", "Amount", "Skipped", "Balance"},
	}
	for day := 1; day <= datemath.DaysInMonth(year, month); day++ {
		date := datemath.Date(year, month, day)
		for _, instance := range led.On(date) {
			if instance.Hidden {
				continue
			}
			skipped := ""
			if instance.RecurringID != "" && led.IsSkipped(date, instance.RecurringID) {
				skipped = "yes"
			}
			data = append(data, []string{
				datemath.Format(date),
				instance.Description,
				string(instance.EntryType),
				instance.Amount.String(),
				skipped,
				balances[day-1].String(),
			})
		}
	}
	data = append(data, []string{
		"", "Month total", "", "", "",
		balances[datemath.DaysInMonth(year, month)-1].String(),
	})

	var b bytes.Buffer
	writer := csv.NewWriter(&b)
	for _, row := range data {
		if err := writer.Write(row); err != nil {
			log.Errorf("Error writing to csv: %v", err)
			return "", err
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		log.Errorf("Error writing to csv: %v", err)
		return "", err
	}

	return b.String(), nil
}

// FileName returns the conventional export name for a month.
func (t *CsvRendererImpl) FileName(year int, month time.Month) string {
	return "cashfolio-" + strconv.Itoa(year) + "-" + twoDigit(int(month)) + ".csv"
}

func twoDigit(n int) string {
	if n < 10 {
		return "0" + strconv.Itoa(n)
	}
	return strconv.Itoa(n)
}
