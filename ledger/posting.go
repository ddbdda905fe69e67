/*
posting.go - Draft validation and the atomic post operation

PURPOSE:
  Post is the single entry point that turns a draft into a posted document.
  It validates, computes the total, applies the mutation rule and appends
  to the log as one atomic unit: if anything is rejected, no document is
  appended and no balance moves.

DOCUMENT PROGRESSION:
  Each document type is terminal once posted. "Progression" from quote to
  order to sale is modeled as independent documents sharing content:
  Transfer builds a fresh draft from an existing document without mutating
  or linking back to the source.

POST FLOW:
  1. Validate the draft (type, customer, items, payment amount)
  2. Compute total = sum of qty * unit price
  3. Assign a fresh id, timestamp, status active
  4. Compute the mutation effect (pure, may reject under strict policy)
  5. Apply debt/stock/price effects and append, all under one lock
*/
package ledger

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// =============================================================================
// POST - The atomic posting operation
// =============================================================================

// Post validates the draft, applies its ledger effects and appends it to
// the log. On any error nothing is applied and nothing is appended.
func (b *Book) Post(draft Draft) (Invoice, error) {
	if err := validateDraft(draft); err != nil {
		return Invoice{}, err
	}

	b.mu.Lock()
	customer, ok := b.customers[draft.CustomerID]
	if !ok {
		b.mu.Unlock()
		return Invoice{}, ErrUnknownCustomer
	}

	total := draft.Total()
	effect, err := effectFor(ruleInput{
		customer: customer,
		products: b.products,
		draft:    draft,
		total:    total,
		policy:   b.policy,
	})
	if err != nil {
		b.mu.Unlock()
		return Invoice{}, err
	}

	at := draft.At
	if at.IsZero() {
		at = Now()
	}
	name := draft.CustomerName
	if name == "" {
		name = customer.Name
	}
	inv := &Invoice{
		ID:           InvoiceID("INV-" + uuid.NewString()),
		Type:         draft.Type,
		CustomerID:   draft.CustomerID,
		CustomerName: name,
		Items:        append([]LineItem(nil), draft.Items...),
		TotalAmount:  total,
		PaidAmount:   draft.PaidAmount,
		Status:       StatusActive,
		Note:         draft.Note,
		CreatedAt:    at,
	}

	// Apply. Nothing below can fail; the all-or-nothing boundary is above.
	customer.TotalDebt = clampedDebt(customer.TotalDebt, effect.DebtDelta, effect.ClampDebt)
	for _, sd := range effect.Stock {
		b.products[sd.ProductID].Stock += sd.Delta
	}
	b.prices.record(effect.Prices)
	b.invoices = append(b.invoices, inv)
	b.byID[inv.ID] = inv
	out := copyInvoice(inv)
	b.mu.Unlock()

	b.notify()
	return out, nil
}

func validateDraft(d Draft) error {
	if !d.Type.Valid() {
		return &ValidationError{Field: "type", Reason: "is not a known document type"}
	}
	if d.CustomerID == "" {
		return &ValidationError{Field: "customerId", Reason: "is required"}
	}
	if d.Type == DocPayment {
		if len(d.Items) != 0 {
			return &ValidationError{Field: "items", Reason: "must be empty for a payment"}
		}
		if !d.PaidAmount.IsPositive() {
			return &ValidationError{Field: "paidAmount", Reason: "must be positive"}
		}
		return nil
	}
	if len(d.Items) == 0 {
		return &ValidationError{Field: "items", Reason: "must not be empty"}
	}
	for _, li := range d.Items {
		if li.Qty <= 0 {
			return &ValidationError{Field: "items", Reason: "quantity must be positive"}
		}
		if li.UnitPrice.IsNegative() {
			return &ValidationError{Field: "items", Reason: "unit price must not be negative"}
		}
	}
	return nil
}

// =============================================================================
// TRANSFER - Draft construction from a template document
// =============================================================================

// transferTargets lists the allowed progressions. Everything else is
// rejected; returns, payments and quotes are never transfer targets.
var transferTargets = map[DocumentType]DocumentType{
	DocQuote: DocOrder,
	DocOrder: DocSale,
}

// Transfer builds a new unposted draft from an existing document: same
// customer, copied line items, paid amount reset. The source document is
// not mutated and the new draft carries no link back to it.
func (b *Book) Transfer(id InvoiceID, target DocumentType) (Draft, error) {
	b.mu.RLock()
	src, ok := b.byID[id]
	if !ok {
		b.mu.RUnlock()
		return Draft{}, ErrUnknownDocument
	}
	allowed, ok := transferTargets[src.Type]
	if !ok || allowed != target {
		b.mu.RUnlock()
		return Draft{}, ErrBadTransfer
	}
	draft := Draft{
		Type:         target,
		CustomerID:   src.CustomerID,
		CustomerName: src.CustomerName,
		Items:        append([]LineItem(nil), src.Items...),
		PaidAmount:   decimal.Zero,
	}
	b.mu.RUnlock()
	return draft, nil
}

// =============================================================================
// STATUS - The only mutable field of a posted document
// =============================================================================

// Cancel flips an active document to cancelled. Balances are not reversed;
// reports exclude cancelled documents instead.
func (b *Book) Cancel(id InvoiceID) error {
	return b.SetStatus(id, StatusCancelled)
}

// SetStatus changes a document's status. Monetary fields stay immutable. A
// cancelled document is final.
func (b *Book) SetStatus(id InvoiceID, status Status) error {
	switch status {
	case StatusActive, StatusCancelled, StatusPending, StatusOpen:
	default:
		return &ValidationError{Field: "status", Reason: "is not a known status"}
	}
	b.mu.Lock()
	inv, ok := b.byID[id]
	if !ok {
		b.mu.Unlock()
		return ErrUnknownDocument
	}
	if inv.Status == StatusCancelled {
		b.mu.Unlock()
		return ErrNotCancellable
	}
	inv.Status = status
	b.mu.Unlock()
	b.notify()
	return nil
}
