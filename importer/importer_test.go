package importer_test

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/counterbook/pos-engine/importer"
	"github.com/counterbook/pos-engine/ledger"
)

func dec(n int64) decimal.Decimal { return decimal.NewFromInt(n) }

// =============================================================================
// CUSTOMER AND PRODUCT ROWS
// =============================================================================

func TestImportCustomers_SkipsBlankNames(t *testing.T) {
	book := ledger.NewBook(ledger.DefaultPostingPolicy())

	res := importer.Customers(book, []importer.CustomerRow{
		{Name: "Aiyana", Phone: "555-0101"},
		{Name: "   "},
		{Name: "Bao"},
	})

	assert.Equal(t, 2, res.Imported)
	assert.Equal(t, 1, res.Skipped)
	require.Len(t, book.Customers(), 2)
	for _, c := range book.Customers() {
		assert.True(t, c.TotalDebt.IsZero(), "imported customers start with zero debt")
	}
}

func TestImportProducts_SkipsBlankNames(t *testing.T) {
	book := ledger.NewBook(ledger.DefaultPostingPolicy())

	res := importer.Products(book, []importer.ProductRow{
		{Name: "Rice 5kg", Unit: "bag", DefaultPrice: dec(40), Stock: 100},
		{Name: ""},
	})

	assert.Equal(t, 1, res.Imported)
	assert.Equal(t, 1, res.Skipped)
	require.Len(t, book.Products(), 1)
	assert.Equal(t, int64(100), book.Products()[0].Stock)
}

// =============================================================================
// INVOICE ROWS - Grouped by document code
// =============================================================================

func TestImportInvoices_GroupsRowsByCode(t *testing.T) {
	// GIVEN: Four rows, two sharing code S-1, one S-2, one with a blank code
	// WHEN: They are imported
	// THEN: Three sale documents are posted; S-1 carries two line items

	book := ledger.NewBook(ledger.DefaultPostingPolicy())
	_, err := book.AddCustomer("Aiyana", "", "")
	require.NoError(t, err)

	march1 := time.Date(2026, time.March, 1, 0, 0, 0, 0, time.UTC)
	rows := []importer.InvoiceRow{
		{Code: "S-1", Date: march1, CustomerName: "Aiyana", ItemName: "Rice 5kg", Qty: 2, UnitPrice: dec(40), Paid: dec(50)},
		{Code: "S-2", Date: march1, CustomerName: "Aiyana", ItemName: "Oil 1L", Qty: 1, UnitPrice: dec(10)},
		{Code: "S-1", Date: march1, CustomerName: "Aiyana", ItemName: "Salt", Qty: 3, UnitPrice: dec(5)},
		{Code: "", Date: march1, CustomerName: "Aiyana", ItemName: "Sugar", Qty: 1, UnitPrice: dec(8)},
	}

	res := importer.Invoices(book, rows)
	assert.Equal(t, 3, res.Imported)
	assert.Equal(t, 0, res.Skipped)

	log := book.Invoices()
	require.Len(t, log, 3)

	first := log[0]
	assert.Equal(t, ledger.DocSale, first.Type)
	require.Len(t, first.Items, 2, "rows sharing a code merge into one document")
	assert.True(t, first.TotalAmount.Equal(dec(95)), "2*40 + 3*5")
	assert.True(t, first.PaidAmount.Equal(dec(50)), "paid comes from the code's first row")
	assert.True(t, first.CreatedAt.Equal(ledger.At(march1)), "the spreadsheet date pins the timestamp")

	for _, inv := range log {
		for _, li := range inv.Items {
			assert.Equal(t, importer.ImportedProductID, li.ProductID)
		}
	}
}

func TestImportInvoices_UpdatesCustomerDebt(t *testing.T) {
	// GIVEN: A known customer and a partially paid imported sale
	// WHEN: The rows are imported
	// THEN: The sale flows through the normal posting rules

	book := ledger.NewBook(ledger.DefaultPostingPolicy())
	customer, err := book.AddCustomer("Aiyana", "", "")
	require.NoError(t, err)

	rows := []importer.InvoiceRow{
		{Code: "S-1", Date: time.Now(), CustomerName: "Aiyana", ItemName: "Rice 5kg", Qty: 2, UnitPrice: dec(40), Paid: dec(30)},
	}
	res := importer.Invoices(book, rows)
	require.Equal(t, 1, res.Imported)

	c, _ := book.Customer(customer.ID)
	assert.True(t, c.TotalDebt.Equal(dec(50)))
}

func TestImportInvoices_UnmatchedCustomer_FallsBackToWalkIn(t *testing.T) {
	// GIVEN: Rows naming a customer the book does not know
	// WHEN: They are imported
	// THEN: The document posts against the shared walk-in placeholder and
	//       keeps the original name for display

	book := ledger.NewBook(ledger.DefaultPostingPolicy())

	rows := []importer.InvoiceRow{
		{Code: "S-1", Date: time.Now(), CustomerName: "Stranger", ItemName: "Rice 5kg", Qty: 1, UnitPrice: dec(40)},
	}
	res := importer.Invoices(book, rows)
	require.Equal(t, 1, res.Imported)

	log := book.Invoices()
	require.Len(t, log, 1)
	assert.Equal(t, ledger.WalkInCustomerID, log[0].CustomerID)
	assert.Equal(t, "Stranger", log[0].CustomerName)

	_, ok := book.Customer(ledger.WalkInCustomerID)
	assert.True(t, ok, "the placeholder is created on first use")
}

func TestImportInvoices_EachDocumentFailsIndependently(t *testing.T) {
	// GIVEN: One valid group and one group with a non-positive quantity
	// WHEN: They are imported
	// THEN: The valid group posts, the invalid one is counted as skipped

	book := ledger.NewBook(ledger.DefaultPostingPolicy())
	_, err := book.AddCustomer("Aiyana", "", "")
	require.NoError(t, err)

	rows := []importer.InvoiceRow{
		{Code: "GOOD", Date: time.Now(), CustomerName: "Aiyana", ItemName: "Rice 5kg", Qty: 1, UnitPrice: dec(40)},
		{Code: "BAD", Date: time.Now(), CustomerName: "Aiyana", ItemName: "Oil 1L", Qty: 0, UnitPrice: dec(10)},
	}
	res := importer.Invoices(book, rows)
	assert.Equal(t, 1, res.Imported)
	assert.Equal(t, 1, res.Skipped)
	assert.Len(t, book.Invoices(), 1)
}
