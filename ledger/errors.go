/*
errors.go - Centralized error types for the posting engine

PURPOSE:
  All error values in one place. Every failure in the core is a synchronous
  validation rejection surfaced before any mutation; nothing here is fatal
  to the process.

ERROR CATEGORIES:
  1. Validation errors - bad drafts, rejected before posting
  2. Reference errors - unknown customer/product/document ids
  3. Import errors - malformed snapshot or spreadsheet payloads

USAGE:
  if errors.Is(err, ledger.ErrValidation) { ... }

  var stockErr *ledger.InsufficientStockError
  if errors.As(err, &stockErr) { ... }
*/
package ledger

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrValidation is returned when a draft is rejected before posting:
	// missing customer, empty line items, or a non-positive payment amount.
	ErrValidation = errors.New("invalid draft")

	// ErrUnknownCustomer is returned when a draft references a customer id
	// not present in the book. The whole post is rejected.
	ErrUnknownCustomer = errors.New("customer not found")

	// ErrUnknownProduct is returned for an unmatched line-item product id,
	// but only when PostingPolicy.StrictProductRefs is set. Under the
	// default lenient policy the line's stock effect is skipped instead.
	ErrUnknownProduct = errors.New("product not found")

	// ErrUnknownDocument is returned when an invoice id does not exist.
	ErrUnknownDocument = errors.New("document not found")

	// ErrInsufficientStock is returned when a sale would drive stock below
	// zero and PostingPolicy.AllowNegativeStock is off.
	ErrInsufficientStock = errors.New("insufficient stock")

	// ErrBadTransfer is returned for a transfer outside quote->order and
	// order->sale.
	ErrBadTransfer = errors.New("transfer not allowed for this document type")

	// ErrNotCancellable is returned when cancelling a document that is not
	// in the active status.
	ErrNotCancellable = errors.New("document is not active")

	// ErrImport is returned for a malformed snapshot or spreadsheet
	// payload. Prior state is always left untouched.
	ErrImport = errors.New("import rejected")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// ValidationError describes why a draft was rejected.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid draft: %s %s", e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// UnknownReferenceError identifies the line item whose product id did not
// resolve, under the strict reference policy.
type UnknownReferenceError struct {
	ProductID ProductID
	Line      int
}

func (e *UnknownReferenceError) Error() string {
	return fmt.Sprintf("line %d references unknown product %q", e.Line, e.ProductID)
}

func (e *UnknownReferenceError) Unwrap() error { return ErrUnknownProduct }

// InsufficientStockError reports the first line that would overdraw stock.
type InsufficientStockError struct {
	ProductID ProductID
	Have      int64
	Want      int64
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("product %q has %d in stock, sale needs %d", e.ProductID, e.Have, e.Want)
}

func (e *InsufficientStockError) Unwrap() error { return ErrInsufficientStock }

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsClientError reports whether the error is due to invalid caller input
// rather than an internal failure.
func IsClientError(err error) bool {
	return errors.Is(err, ErrValidation) ||
		errors.Is(err, ErrUnknownCustomer) ||
		errors.Is(err, ErrUnknownProduct) ||
		errors.Is(err, ErrInsufficientStock) ||
		errors.Is(err, ErrBadTransfer) ||
		errors.Is(err, ErrNotCancellable) ||
		errors.Is(err, ErrImport)
}

// IsNotFound reports whether the error indicates a missing record.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrUnknownCustomer) ||
		errors.Is(err, ErrUnknownProduct) ||
		errors.Is(err, ErrUnknownDocument)
}
