/*
Package importer accepts pre-shaped spreadsheet records and feeds them into
the book.

PURPOSE:
  Spreadsheet parsing happens outside the core; by the time rows arrive
  here the columns are already mapped. Customer and product rows become
  catalog records; invoice rows are grouped by their document code into one
  sale draft per code and posted through the same entry point interactive
  entry uses.

CUSTOMER RESOLUTION:
  Invoice rows carry only a customer name. An exact match uses that
  customer; anything else falls back to the shared walk-in placeholder, so
  historic sales never invent debtors.
*/
package importer

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/counterbook/pos-engine/ledger"
)

// ImportedProductID marks line items whose product was never matched to
// the catalog. Their stock effect is skipped under the lenient policy.
const ImportedProductID ledger.ProductID = "IMPORTED"

// =============================================================================
// ROW SHAPES - What the spreadsheet collaborator hands over
// =============================================================================

type CustomerRow struct {
	Name    string
	Phone   string
	Address string
}

type ProductRow struct {
	Name         string
	Unit         string
	DefaultPrice decimal.Decimal
	Stock        int64
}

// InvoiceRow is one spreadsheet line of a sale. Rows sharing a Code belong
// to the same document.
type InvoiceRow struct {
	Code         string
	Date         time.Time
	CustomerName string
	ItemName     string
	Qty          int64
	UnitPrice    decimal.Decimal
	Paid         decimal.Decimal
}

// Result reports how an import went.
type Result struct {
	Imported int
	Skipped  int
}

// =============================================================================
// CUSTOMERS / PRODUCTS
// =============================================================================

// Customers adds one customer per row with zero starting debt. Rows with a
// blank name are skipped.
func Customers(book *ledger.Book, rows []CustomerRow) Result {
	var res Result
	for _, row := range rows {
		if strings.TrimSpace(row.Name) == "" {
			res.Skipped++
			continue
		}
		if _, err := book.AddCustomer(row.Name, row.Phone, row.Address); err != nil {
			res.Skipped++
			continue
		}
		res.Imported++
	}
	return res
}

// Products adds one product per row. A blank unit defaults inside the book.
func Products(book *ledger.Book, rows []ProductRow) Result {
	var res Result
	for _, row := range rows {
		if strings.TrimSpace(row.Name) == "" {
			res.Skipped++
			continue
		}
		if _, err := book.AddProduct(row.Name, row.Unit, row.DefaultPrice, row.Stock); err != nil {
			res.Skipped++
			continue
		}
		res.Imported++
	}
	return res
}

// =============================================================================
// INVOICES - Grouped by document code
// =============================================================================

// Invoices groups rows by Code in first-appearance order, builds one sale
// draft per code and posts it. The paid amount and date come from the
// code's first row. Each draft succeeds or fails independently.
func Invoices(book *ledger.Book, rows []InvoiceRow) Result {
	type group struct {
		draft ledger.Draft
	}
	var order []string
	groups := make(map[string]*group)

	for _, row := range rows {
		code := row.Code
		if code == "" {
			code = "DRAFT"
		}
		g, ok := groups[code]
		if !ok {
			g = &group{draft: ledger.Draft{
				Type:         ledger.DocSale,
				CustomerID:   resolveCustomer(book, row.CustomerName),
				CustomerName: row.CustomerName,
				PaidAmount:   row.Paid,
				At:           ledger.At(row.Date),
			}}
			groups[code] = g
			order = append(order, code)
		}
		g.draft.Items = append(g.draft.Items, ledger.LineItem{
			ProductID: ImportedProductID,
			Name:      row.ItemName,
			Qty:       row.Qty,
			UnitPrice: row.UnitPrice,
		})
	}

	var res Result
	for _, code := range order {
		if _, err := book.Post(groups[code].draft); err != nil {
			res.Skipped++
			continue
		}
		res.Imported++
	}
	return res
}

// resolveCustomer matches by exact name, falling back to the walk-in
// placeholder, creating it on first use.
func resolveCustomer(book *ledger.Book, name string) ledger.CustomerID {
	if name != "" {
		if c, ok := book.FindCustomerByName(name); ok {
			return c.ID
		}
	}
	if _, ok := book.Customer(ledger.WalkInCustomerID); !ok {
		book.PutCustomer(ledger.Customer{
			ID:        ledger.WalkInCustomerID,
			Name:      "Walk-in",
			TotalDebt: decimal.Zero,
			CreatedAt: ledger.Now(),
		})
	}
	return ledger.WalkInCustomerID
}
