package report

import (
	"github.com/shopspring/decimal"

	"github.com/counterbook/pos-engine/ledger"
)

// =============================================================================
// AGGREGATES - Dashboard numbers
// =============================================================================

// Stats is the dashboard summary.
type Stats struct {
	TotalDebt    decimal.Decimal
	TotalRevenue decimal.Decimal
	PendingCount int
	Revenue7d    []RevenueBucket
}

// RevenueBucket is one calendar day of sale revenue.
type RevenueBucket struct {
	Day     ledger.TimePoint
	Revenue decimal.Decimal
}

// revenueDays is the width of the trailing revenue series.
const revenueDays = 7

// Summarize computes the aggregate view as of now: total outstanding debt
// across all customers, total revenue over non-cancelled sales, the count
// of pending orders, and a trailing 7-day revenue series bucketed by
// calendar day, oldest bucket first.
func Summarize(book *ledger.Book, now ledger.TimePoint) Stats {
	stats := Stats{
		TotalDebt:    decimal.Zero,
		TotalRevenue: decimal.Zero,
	}
	for _, c := range book.Customers() {
		stats.TotalDebt = stats.TotalDebt.Add(c.TotalDebt)
	}

	stats.Revenue7d = make([]RevenueBucket, revenueDays)
	first := now.StartOfDay().AddDays(-(revenueDays - 1))
	for i := range stats.Revenue7d {
		stats.Revenue7d[i] = RevenueBucket{Day: first.AddDays(i), Revenue: decimal.Zero}
	}

	for _, inv := range book.Invoices() {
		if inv.Type == ledger.DocOrder && inv.Status == ledger.StatusPending {
			stats.PendingCount++
		}
		if inv.Type != ledger.DocSale || inv.Status == ledger.StatusCancelled {
			continue
		}
		stats.TotalRevenue = stats.TotalRevenue.Add(inv.TotalAmount)

		day := inv.CreatedAt.StartOfDay()
		if day.Before(first) || day.After(now.StartOfDay()) {
			continue
		}
		for i := range stats.Revenue7d {
			if stats.Revenue7d[i].Day.SameDay(day) {
				stats.Revenue7d[i].Revenue = stats.Revenue7d[i].Revenue.Add(inv.TotalAmount)
				break
			}
		}
	}
	return stats
}
