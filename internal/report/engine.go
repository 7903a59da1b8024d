// Package report computes monthly spend aggregates for the overview screen.
// Everything here is pure and recomputed on demand; callers that want
// caching do it at their own layer.
package report

import (
	"time"

	"kharcha/internal/core"
)

// CurrentMonthTotal sums the amounts of transactions whose date falls in the
// same calendar month and year as now. An empty slice totals 0.
func CurrentMonthTotal(txns []core.Transaction, now time.Time) float64 {
	return monthTotal(txns, now.Year(), now.Month())
}

// TrailingMonths returns one MonthlySpend per of the last n calendar months,
// oldest first, ending with the month of now. Months with no transactions
// appear with a zero total.
func TrailingMonths(txns []core.Transaction, now time.Time, n int) []core.MonthlySpend {
	out := make([]core.MonthlySpend, 0, n)
	for offset := n - 1; offset >= 0; offset-- {
		// Anchor on the first of the month so the offset arithmetic never
		// rolls over on short months.
		anchor := time.Date(now.Year(), now.Month()-time.Month(offset), 1, 0, 0, 0, 0, now.Location())
		out = append(out, core.MonthlySpend{
			Month: anchor.Format("Jan"),
			Total: monthTotal(txns, anchor.Year(), anchor.Month()),
		})
	}
	return out
}

func monthTotal(txns []core.Transaction, year int, month time.Month) float64 {
	var total float64
	for _, tx := range txns {
		if tx.TransactionDate.Year() == year && tx.TransactionDate.Month() == month {
			total += tx.Amount
		}
	}
	return total
}
