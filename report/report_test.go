package report_test

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/counterbook/pos-engine/ledger"
	"github.com/counterbook/pos-engine/report"
)

// =============================================================================
// TEST SETUP
// =============================================================================

func newReportBook(t *testing.T) (*ledger.Book, ledger.Customer, ledger.Product) {
	t.Helper()
	book := ledger.NewBook(ledger.DefaultPostingPolicy())
	customer, err := book.AddCustomer("Aiyana", "", "")
	require.NoError(t, err)
	product, err := book.AddProduct("Rice 5kg", "bag", dec(40), 100)
	require.NoError(t, err)
	return book, customer, product
}

func dec(n int64) decimal.Decimal { return decimal.NewFromInt(n) }

func postAt(t *testing.T, book *ledger.Book, draft ledger.Draft, day ledger.TimePoint) ledger.Invoice {
	t.Helper()
	draft.At = day
	inv, err := book.Post(draft)
	require.NoError(t, err)
	return inv
}

func day(d int) ledger.TimePoint {
	return ledger.NewTimePoint(2026, time.March, d)
}

// =============================================================================
// DEBT LEDGER
// =============================================================================

func TestDebtLedger_BuildsChronologicalStatement(t *testing.T) {
	// GIVEN: A sale, a payment and a return for one customer on successive
	//        days, plus an inert quote
	// WHEN: The debt ledger is reconstructed
	// THEN: Three labeled rows come back, newest first; the quote is absent

	book, customer, product := newReportBook(t)

	sale := ledger.Draft{Type: ledger.DocSale, CustomerID: customer.ID,
		Items: []ledger.LineItem{{ProductID: product.ID, Name: "Rice 5kg", Qty: 5, UnitPrice: dec(20)}}}
	postAt(t, book, sale, day(1))

	payment := ledger.Draft{Type: ledger.DocPayment, CustomerID: customer.ID, PaidAmount: dec(30)}
	postAt(t, book, payment, day(2))

	ret := ledger.Draft{Type: ledger.DocReturn, CustomerID: customer.ID,
		Items: []ledger.LineItem{{ProductID: product.ID, Name: "Rice 5kg", Qty: 1, UnitPrice: dec(20)}}}
	postAt(t, book, ret, day(3))

	quote := ledger.Draft{Type: ledger.DocQuote, CustomerID: customer.ID,
		Items: []ledger.LineItem{{ProductID: product.ID, Name: "Rice 5kg", Qty: 1, UnitPrice: dec(20)}}}
	postAt(t, book, quote, day(4))

	rows := report.DebtLedger(book, customer.ID, report.Range{})
	require.Len(t, rows, 3, "quotes never appear on the statement")

	assert.Equal(t, "return", rows[0].Label)
	assert.True(t, rows[0].Decrease.Equal(dec(20)))
	assert.Equal(t, "payment", rows[1].Label)
	assert.True(t, rows[1].Decrease.Equal(dec(30)))
	assert.Equal(t, "purchase", rows[2].Label)
	assert.True(t, rows[2].Increase.Equal(dec(100)))
}

func TestDebtLedger_ExcludesCancelledAndOtherCustomers(t *testing.T) {
	book, customer, product := newReportBook(t)
	other, err := book.AddCustomer("Bao", "", "")
	require.NoError(t, err)

	sale := ledger.Draft{Type: ledger.DocSale, CustomerID: customer.ID,
		Items: []ledger.LineItem{{ProductID: product.ID, Name: "Rice 5kg", Qty: 1, UnitPrice: dec(20)}}}
	kept := postAt(t, book, sale, day(1))

	cancelled := postAt(t, book, sale, day(2))
	require.NoError(t, book.Cancel(cancelled.ID))

	otherSale := sale
	otherSale.CustomerID = other.ID
	postAt(t, book, otherSale, day(3))

	rows := report.DebtLedger(book, customer.ID, report.Range{})
	require.Len(t, rows, 1)
	assert.Equal(t, kept.ID, rows[0].InvoiceID)
}

func TestDebtLedger_RangeIsInclusiveByCalendarDay(t *testing.T) {
	// GIVEN: Sales on March 1, 2 and 3
	// WHEN: The ledger is filtered to [March 1, March 2]
	// THEN: Both boundary days are included, March 3 is not

	book, customer, product := newReportBook(t)
	sale := ledger.Draft{Type: ledger.DocSale, CustomerID: customer.ID,
		Items: []ledger.LineItem{{ProductID: product.ID, Name: "Rice 5kg", Qty: 1, UnitPrice: dec(20)}}}
	for d := 1; d <= 3; d++ {
		postAt(t, book, sale, day(d))
	}

	start, end := day(1), day(2)
	rows := report.DebtLedger(book, customer.ID, report.Range{Start: &start, End: &end})
	assert.Len(t, rows, 2)
}

// =============================================================================
// PRODUCT PRICE HISTORY
// =============================================================================

func TestProductPriceHistory_ListsSightingsNewestFirst(t *testing.T) {
	book, customer, product := newReportBook(t)

	for d, price := range map[int]int64{1: 38, 2: 42} {
		sale := ledger.Draft{Type: ledger.DocSale, CustomerID: customer.ID,
			Items: []ledger.LineItem{{ProductID: product.ID, Name: "Rice 5kg", Qty: 1, UnitPrice: dec(price)}}}
		postAt(t, book, sale, day(d))
	}

	rows := report.ProductPriceHistory(book, product.ID, report.Range{})
	require.Len(t, rows, 2)
	assert.True(t, rows[0].At.After(rows[1].At), "newest first")
	assert.True(t, rows[0].UnitPrice.Equal(dec(42)))
	assert.Equal(t, "Aiyana", rows[0].CustomerName)
}

func TestProductPriceHistory_SkipsCancelledAndOtherProducts(t *testing.T) {
	book, customer, product := newReportBook(t)
	other, err := book.AddProduct("Oil 1L", "bottle", dec(10), 50)
	require.NoError(t, err)

	sale := ledger.Draft{Type: ledger.DocSale, CustomerID: customer.ID,
		Items: []ledger.LineItem{{ProductID: product.ID, Name: "Rice 5kg", Qty: 1, UnitPrice: dec(38)}}}
	postAt(t, book, sale, day(1))

	cancelled := postAt(t, book, sale, day(2))
	require.NoError(t, book.Cancel(cancelled.ID))

	otherSale := ledger.Draft{Type: ledger.DocSale, CustomerID: customer.ID,
		Items: []ledger.LineItem{{ProductID: other.ID, Name: "Oil 1L", Qty: 1, UnitPrice: dec(10)}}}
	postAt(t, book, otherSale, day(3))

	rows := report.ProductPriceHistory(book, product.ID, report.Range{})
	assert.Len(t, rows, 1)
}

// =============================================================================
// DOCUMENT SEARCH
// =============================================================================

func TestSearchDocuments_MatchesIDAndCustomerName(t *testing.T) {
	book, customer, product := newReportBook(t)

	sale := ledger.Draft{Type: ledger.DocSale, CustomerID: customer.ID,
		Items: []ledger.LineItem{{ProductID: product.ID, Name: "Rice 5kg", Qty: 1, UnitPrice: dec(20)}}}
	inv := postAt(t, book, sale, day(1))

	byName := report.SearchDocuments(book, "aiya", report.Range{})
	require.Len(t, byName, 1, "customer name matches case-insensitively")

	byID := report.SearchDocuments(book, string(inv.ID)[:12], report.Range{})
	require.Len(t, byID, 1, "a partial document id matches")

	none := report.SearchDocuments(book, "zzz", report.Range{})
	assert.Empty(t, none)
}

func TestSearchDocuments_IncludesCancelledAndCapsAtFifty(t *testing.T) {
	// GIVEN: 60 matching documents, one of them cancelled
	// WHEN: A broad search runs
	// THEN: Exactly 50 come back in log order, cancelled included

	book, customer, product := newReportBook(t)
	sale := ledger.Draft{Type: ledger.DocSale, CustomerID: customer.ID,
		Items: []ledger.LineItem{{ProductID: product.ID, Name: "Rice 5kg", Qty: 1, UnitPrice: dec(1)}}}

	var first ledger.Invoice
	for i := 0; i < 60; i++ {
		inv := postAt(t, book, sale, day(1))
		if i == 0 {
			first = inv
		}
	}
	require.NoError(t, book.Cancel(first.ID))

	results := report.SearchDocuments(book, "aiyana", report.Range{})
	require.Len(t, results, 50)
	assert.Equal(t, first.ID, results[0].ID, "log order, cancelled still visible")
	assert.Equal(t, ledger.StatusCancelled, results[0].Status)
}

// =============================================================================
// IDEMPOTENCE - Reconstruction is a pure function of the log
// =============================================================================

func TestReports_AreIdempotent(t *testing.T) {
	// GIVEN: A book with mixed documents
	// WHEN: Each reconstruction runs twice
	// THEN: Both runs produce identical output

	book, customer, product := newReportBook(t)
	sale := ledger.Draft{Type: ledger.DocSale, CustomerID: customer.ID,
		Items: []ledger.LineItem{{ProductID: product.ID, Name: "Rice 5kg", Qty: 2, UnitPrice: dec(20)}}}
	postAt(t, book, sale, day(1))
	payment := ledger.Draft{Type: ledger.DocPayment, CustomerID: customer.ID, PaidAmount: dec(10)}
	postAt(t, book, payment, day(2))

	assert.Equal(t,
		report.DebtLedger(book, customer.ID, report.Range{}),
		report.DebtLedger(book, customer.ID, report.Range{}))
	assert.Equal(t,
		report.ProductPriceHistory(book, product.ID, report.Range{}),
		report.ProductPriceHistory(book, product.ID, report.Range{}))
	assert.Equal(t,
		report.Summarize(book, day(7)),
		report.Summarize(book, day(7)))
}
