/*
Package ledger provides the core posting and debt-ledger engine.

PURPOSE:
  This package contains the domain types and algorithms for a single-user,
  offline-first point of sale: commercial documents (quotes, orders, sales,
  returns, payments), the per-type mutation rules that turn a posted
  document into customer-debt and product-stock changes, and the
  last-negotiated-price memory per customer/product pair.

KEY CONCEPTS IN THIS FILE (types.go):
  - Customer: a buyer with a denormalized running debt balance
  - Product: a catalog item with a default price and stock count
  - Invoice: an immutable commercial document with ordered line items
  - Draft: an unposted invoice as collected by the UI or importer

DESIGN PRINCIPLES:
  1. Append-only: posted invoices never change, except their status
  2. Precision: decimal.Decimal for all money, never float64
  3. Single writer: one posting completes fully before the next begins
  4. Derivability: every report replays the invoice log, no side state

SEE ALSO:
  - rules.go: per-document-type mutation rules
  - posting.go: validation and the atomic post operation
  - book.go: the owned snapshot (customers, products, invoices, prices)
*/
package ledger

import (
	"github.com/shopspring/decimal"
)

// =============================================================================
// IDENTIFIERS
// =============================================================================

type CustomerID string
type ProductID string
type InvoiceID string

// =============================================================================
// DOCUMENT TYPE - Tagged variant, one mutation rule per tag
// =============================================================================

type DocumentType string

const (
	DocQuote   DocumentType = "quote"   // Inert price proposal
	DocOrder   DocumentType = "order"   // Inert reservation
	DocSale    DocumentType = "sale"    // Moves debt up, stock down, prices remembered
	DocReturn  DocumentType = "return"  // Moves debt down (clamped), stock up
	DocPayment DocumentType = "payment" // Moves debt down (clamped), no lines
)

// Valid reports whether t is one of the five known document types.
func (t DocumentType) Valid() bool {
	switch t {
	case DocQuote, DocOrder, DocSale, DocReturn, DocPayment:
		return true
	}
	return false
}

// =============================================================================
// STATUS
// =============================================================================

type Status string

const (
	StatusActive    Status = "active"
	StatusCancelled Status = "cancelled"
	StatusPending   Status = "pending"
	StatusOpen      Status = "open"
)

// =============================================================================
// CUSTOMER
// =============================================================================

// Customer is a buyer. TotalDebt is a denormalized running balance kept in
// lockstep with the invoice log by the mutation rules; it is never
// recomputed on read.
type Customer struct {
	ID        CustomerID
	Name      string
	Phone     string
	Address   string
	TotalDebt decimal.Decimal
	CreatedAt TimePoint
}

// WalkInCustomerID is the placeholder used by bulk invoice import when a
// customer name cannot be resolved.
const WalkInCustomerID CustomerID = "WALK-IN"

// =============================================================================
// PRODUCT
// =============================================================================

// Product is a catalog item. Stock is an integer count and is allowed to go
// negative under the default posting policy.
type Product struct {
	ID           ProductID
	Name         string
	Unit         string
	DefaultPrice decimal.Decimal
	Stock        int64
	CreatedAt    TimePoint
}

// =============================================================================
// INVOICE - A posted commercial document
// =============================================================================

// LineItem is one line of an invoice. Name and UnitPrice are denormalized at
// posting time so the document stays readable if the catalog changes later.
type LineItem struct {
	ProductID ProductID
	Name      string
	Qty       int64
	UnitPrice decimal.Decimal
}

// Amount returns Qty multiplied by UnitPrice.
func (li LineItem) Amount() decimal.Decimal {
	return li.UnitPrice.Mul(decimal.NewFromInt(li.Qty))
}

// Invoice is a posted document. Monetary fields are immutable once posted;
// only Status may change afterwards (see Book.Cancel).
//
// Invariant: for sale and return documents TotalAmount equals the sum of
// Qty*UnitPrice over Items; payment documents carry no items and a zero
// TotalAmount.
type Invoice struct {
	ID           InvoiceID
	Type         DocumentType
	CustomerID   CustomerID
	CustomerName string
	Items        []LineItem
	TotalAmount  decimal.Decimal
	PaidAmount   decimal.Decimal
	Status       Status
	Note         string
	CreatedAt    TimePoint
}

// DebtDelta returns TotalAmount minus PaidAmount, the amount a sale adds to
// (or a return removes from) the customer's debt.
func (inv Invoice) DebtDelta() decimal.Decimal {
	return inv.TotalAmount.Sub(inv.PaidAmount)
}

// =============================================================================
// DRAFT - An unposted document collected by the UI or the importer
// =============================================================================

// Draft carries everything Post needs. TotalAmount is computed by Post, not
// trusted from the caller.
type Draft struct {
	Type         DocumentType
	CustomerID   CustomerID
	CustomerName string
	Items        []LineItem
	PaidAmount   decimal.Decimal
	Note         string

	// At pins the document timestamp. Zero means "now"; the bulk importer
	// sets it from the spreadsheet date column.
	At TimePoint
}

// Total sums Qty*UnitPrice over the draft's items.
func (d Draft) Total() decimal.Decimal {
	total := decimal.Zero
	for _, li := range d.Items {
		total = total.Add(li.Amount())
	}
	return total
}
