/*
rules.go - Per-document-type ledger mutation rules

PURPOSE:
  Pure functions computing the effect of posting one document on customer
  debt, product stock, and the price memory. No state is touched here; the
  Book applies the returned effect atomically.

THE RULE TABLE:
  type    | customer debt          | stock (per line) | price memory
  --------+------------------------+------------------+--------------
  quote   | unchanged              | unchanged        | unchanged
  order   | unchanged              | unchanged        | unchanged
  sale    | += total - paid        | -= qty           | remember price
  return  | = max(0, debt-(T-P))   | += qty           | unchanged
  payment | = max(0, debt-paid)    | unchanged        | unchanged

  Debt is clamped at zero only on the decreasing paths. A sale may drive
  stock negative under the default policy; see PostingPolicy.

LENIENT REFERENCES:
  A line whose product id matches nothing in the catalog is skipped (no
  stock effect, no price memory) without aborting the post. Setting
  PostingPolicy.StrictProductRefs rejects the whole post instead.
*/
package ledger

import (
	"github.com/shopspring/decimal"
)

// =============================================================================
// POSTING POLICY - Configurable open design choices
// =============================================================================

// PostingPolicy controls the two behaviors the engine leaves open. The zero
// value is the strictest setting; DefaultPostingPolicy matches the observed
// behavior of the system this engine replaces.
type PostingPolicy struct {
	// AllowNegativeStock permits a sale to drive product stock below zero.
	AllowNegativeStock bool

	// StrictProductRefs rejects the whole posting when a line item
	// references an unknown product, instead of silently skipping the
	// line's stock effect.
	StrictProductRefs bool
}

// DefaultPostingPolicy is lenient: negative stock allowed, unknown product
// references tolerated.
func DefaultPostingPolicy() PostingPolicy {
	return PostingPolicy{AllowNegativeStock: true, StrictProductRefs: false}
}

// =============================================================================
// POSTING EFFECT - The delta one posting applies
// =============================================================================

// StockDelta is a signed stock change for one product.
type StockDelta struct {
	ProductID ProductID
	Delta     int64
}

// PriceUpdate records the negotiated unit price for a customer/product pair.
type PriceUpdate struct {
	CustomerID CustomerID
	ProductID  ProductID
	UnitPrice  decimal.Decimal
}

// PostingEffect is the full outcome of the mutation rule for one document.
// DebtDelta is signed; ClampDebt means the resulting balance floors at zero.
type PostingEffect struct {
	DebtDelta decimal.Decimal
	ClampDebt bool
	Stock     []StockDelta
	Prices    []PriceUpdate

	// SkippedLines holds the indexes of line items whose product id did
	// not resolve, under the lenient reference policy.
	SkippedLines []int
}

// =============================================================================
// RULE TABLE
// =============================================================================

// ruleInput is everything a mutation rule may consult. products is a
// read-only view of the catalog.
type ruleInput struct {
	customer *Customer
	products map[ProductID]*Product
	draft    Draft
	total    decimal.Decimal
	policy   PostingPolicy
}

type mutationRule func(in ruleInput) (PostingEffect, error)

var mutationRules = map[DocumentType]mutationRule{
	DocQuote:   applyInert,
	DocOrder:   applyInert,
	DocSale:    applySale,
	DocReturn:  applyReturn,
	DocPayment: applyPayment,
}

// effectFor computes the posting effect for the draft without touching any
// state. The caller applies it under its own lock.
func effectFor(in ruleInput) (PostingEffect, error) {
	rule, ok := mutationRules[in.draft.Type]
	if !ok {
		return PostingEffect{}, &ValidationError{Field: "type", Reason: "is not a known document type"}
	}
	return rule(in)
}

// =============================================================================
// RULES
// =============================================================================

func applyInert(ruleInput) (PostingEffect, error) {
	return PostingEffect{DebtDelta: decimal.Zero}, nil
}

func applySale(in ruleInput) (PostingEffect, error) {
	effect := PostingEffect{
		DebtDelta: in.total.Sub(in.draft.PaidAmount),
	}

	// Aggregate per product so a duplicate line cannot slip past the
	// stock-sufficiency check.
	need := make(map[ProductID]int64)
	for i, li := range in.draft.Items {
		product, ok := in.products[li.ProductID]
		if !ok {
			if in.policy.StrictProductRefs {
				return PostingEffect{}, &UnknownReferenceError{ProductID: li.ProductID, Line: i}
			}
			effect.SkippedLines = append(effect.SkippedLines, i)
			continue
		}
		need[li.ProductID] += li.Qty
		effect.Stock = append(effect.Stock, StockDelta{ProductID: li.ProductID, Delta: -li.Qty})
		effect.Prices = append(effect.Prices, PriceUpdate{
			CustomerID: in.draft.CustomerID,
			ProductID:  product.ID,
			UnitPrice:  li.UnitPrice,
		})
	}

	if !in.policy.AllowNegativeStock {
		for id, qty := range need {
			if have := in.products[id].Stock; have < qty {
				return PostingEffect{}, &InsufficientStockError{ProductID: id, Have: have, Want: qty}
			}
		}
	}
	return effect, nil
}

func applyReturn(in ruleInput) (PostingEffect, error) {
	effect := PostingEffect{
		DebtDelta: in.total.Sub(in.draft.PaidAmount).Neg(),
		ClampDebt: true,
	}
	for i, li := range in.draft.Items {
		if _, ok := in.products[li.ProductID]; !ok {
			if in.policy.StrictProductRefs {
				return PostingEffect{}, &UnknownReferenceError{ProductID: li.ProductID, Line: i}
			}
			effect.SkippedLines = append(effect.SkippedLines, i)
			continue
		}
		effect.Stock = append(effect.Stock, StockDelta{ProductID: li.ProductID, Delta: li.Qty})
	}
	return effect, nil
}

func applyPayment(in ruleInput) (PostingEffect, error) {
	return PostingEffect{
		DebtDelta: in.draft.PaidAmount.Neg(),
		ClampDebt: true,
	}, nil
}

// clampedDebt applies a signed delta to a balance, flooring at zero when
// clamp is set.
func clampedDebt(balance, delta decimal.Decimal, clamp bool) decimal.Decimal {
	next := balance.Add(delta)
	if clamp && next.IsNegative() {
		return decimal.Zero
	}
	return next
}
