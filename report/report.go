/*
Package report reconstructs every reporting view by replaying the invoice
log.

PURPOSE:
  Debt statements, product price histories, document search and revenue
  aggregates are all derived from the append-only log plus the current
  customer and product snapshots. The package holds no state of its own,
  so replaying the same log twice yields identical output.

DATE RANGES:
  Every query takes an optional inclusive range by calendar day: a document
  matches when its timestamp's date falls inside the closed interval. An
  absent bound leaves that side unbounded.

CANCELLED DOCUMENTS:
  Excluded from the debt ledger, the price history and the revenue
  aggregates. Cancelling does not reverse balances; it removes the document
  from those reconstructions instead. General search still surfaces
  cancelled documents so they can be inspected.

SEE ALSO:
  - ledger/book.go: the snapshot these queries read
*/
package report

import (
	"sort"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/counterbook/pos-engine/ledger"
)

// =============================================================================
// RANGE - Inclusive calendar-day interval
// =============================================================================

// Range is an optional date filter. Nil bounds are unbounded.
type Range struct {
	Start *ledger.TimePoint
	End   *ledger.TimePoint
}

// Contains reports whether the instant's calendar day falls inside the
// closed interval.
func (r Range) Contains(tp ledger.TimePoint) bool {
	day := tp.StartOfDay()
	if r.Start != nil && day.Before(r.Start.StartOfDay()) {
		return false
	}
	if r.End != nil && day.After(r.End.StartOfDay()) {
		return false
	}
	return true
}

// =============================================================================
// DEBT LEDGER - One customer's balance-affecting events
// =============================================================================

// DebtRow is one line of a customer's debt statement.
type DebtRow struct {
	At         ledger.TimePoint
	InvoiceID  ledger.InvoiceID
	Type       ledger.DocumentType
	Label      string
	Increase   decimal.Decimal
	Decrease   decimal.Decimal
}

// Debt row labels, keyed by the document types that affect debt.
const (
	labelPurchase = "purchase"
	labelPayment  = "payment"
	labelReturn   = "return"
)

// DebtLedger reconstructs the chronological debt statement for one
// customer. Rows are sorted descending by timestamp; equal timestamps keep
// their original log order.
func DebtLedger(book *ledger.Book, customerID ledger.CustomerID, r Range) []DebtRow {
	var rows []DebtRow
	for _, inv := range book.Invoices() {
		if inv.CustomerID != customerID || inv.Status == ledger.StatusCancelled || !r.Contains(inv.CreatedAt) {
			continue
		}
		row := DebtRow{
			At:        inv.CreatedAt,
			InvoiceID: inv.ID,
			Type:      inv.Type,
			Increase:  decimal.Zero,
			Decrease:  decimal.Zero,
		}
		switch inv.Type {
		case ledger.DocSale:
			row.Label = labelPurchase
			row.Increase = inv.DebtDelta()
		case ledger.DocPayment:
			row.Label = labelPayment
			row.Decrease = inv.PaidAmount
		case ledger.DocReturn:
			row.Label = labelReturn
			row.Decrease = inv.DebtDelta()
		default:
			// Quotes and orders never touch the balance.
			continue
		}
		rows = append(rows, row)
	}
	sort.SliceStable(rows, func(i, j int) bool { return rows[j].At.Before(rows[i].At) })
	return rows
}

// =============================================================================
// PRODUCT PRICE HISTORY
// =============================================================================

// PriceRow is one historical sighting of a product on a document.
type PriceRow struct {
	At           ledger.TimePoint
	CustomerName string
	Qty          int64
	UnitPrice    decimal.Decimal
	Type         ledger.DocumentType
	InvoiceID    ledger.InvoiceID
}

// ProductPriceHistory lists every line item for the product across
// non-cancelled documents in the range, newest first.
func ProductPriceHistory(book *ledger.Book, productID ledger.ProductID, r Range) []PriceRow {
	var rows []PriceRow
	for _, inv := range book.Invoices() {
		if inv.Status == ledger.StatusCancelled || !r.Contains(inv.CreatedAt) {
			continue
		}
		for _, li := range inv.Items {
			if li.ProductID != productID {
				continue
			}
			rows = append(rows, PriceRow{
				At:           inv.CreatedAt,
				CustomerName: inv.CustomerName,
				Qty:          li.Qty,
				UnitPrice:    li.UnitPrice,
				Type:         inv.Type,
				InvoiceID:    inv.ID,
			})
		}
	}
	sort.SliceStable(rows, func(i, j int) bool { return rows[j].At.Before(rows[i].At) })
	return rows
}

// =============================================================================
// DOCUMENT SEARCH
// =============================================================================

// searchCap bounds general search output.
const searchCap = 50

// SearchDocuments matches the query case-insensitively against document id
// or customer name, filters by range, and returns at most 50 documents in
// log order.
func SearchDocuments(book *ledger.Book, query string, r Range) []ledger.Invoice {
	q := strings.ToLower(query)
	var out []ledger.Invoice
	for _, inv := range book.Invoices() {
		if !r.Contains(inv.CreatedAt) {
			continue
		}
		if !strings.Contains(strings.ToLower(string(inv.ID)), q) &&
			!strings.Contains(strings.ToLower(inv.CustomerName), q) {
			continue
		}
		out = append(out, inv)
		if len(out) == searchCap {
			break
		}
	}
	return out
}
