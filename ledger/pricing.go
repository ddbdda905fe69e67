/*
pricing.go - Last-negotiated-price memory per customer/product pair

PURPOSE:
  Small retailers haggle. Once a price is agreed with a customer it becomes
  the starting point the next time the same product goes in their cart. The
  PriceBook holds exactly one remembered price per pair: last write wins,
  no history, no expiry.

CONTRACT:
  - Resolve never fails: absent pair falls back to the catalog price.
  - Writes happen only as a side effect of a successful sale post.

STORAGE BOUNDARY:
  Persisted snapshots key the map as "{customerID}_{productID}" strings;
  Encode/DecodePriceKey translate. Internally the key is a struct.
*/
package ledger

import (
	"strings"

	"github.com/shopspring/decimal"
)

type priceKey struct {
	Customer CustomerID
	Product  ProductID
}

// PriceBook is the pricing memory. Not safe for concurrent use on its own;
// the Book guards it.
type PriceBook struct {
	prices map[priceKey]decimal.Decimal
}

func NewPriceBook() *PriceBook {
	return &PriceBook{prices: make(map[priceKey]decimal.Decimal)}
}

// Resolve returns the remembered price for the pair, or fallback when the
// pair has never been sold.
func (pb *PriceBook) Resolve(customerID CustomerID, productID ProductID, fallback decimal.Decimal) decimal.Decimal {
	if p, ok := pb.prices[priceKey{Customer: customerID, Product: productID}]; ok {
		return p
	}
	return fallback
}

// Lookup returns the remembered price and whether one exists.
func (pb *PriceBook) Lookup(customerID CustomerID, productID ProductID) (decimal.Decimal, bool) {
	p, ok := pb.prices[priceKey{Customer: customerID, Product: productID}]
	return p, ok
}

// record overwrites the remembered price for each update, unconditionally.
func (pb *PriceBook) record(updates []PriceUpdate) {
	for _, u := range updates {
		pb.prices[priceKey{Customer: u.CustomerID, Product: u.ProductID}] = u.UnitPrice
	}
}

// Len returns the number of remembered pairs.
func (pb *PriceBook) Len() int { return len(pb.prices) }

// =============================================================================
// STORAGE BOUNDARY
// =============================================================================

// Encode flattens the memory to the persisted "{customer}_{product}" form.
func (pb *PriceBook) Encode() map[string]decimal.Decimal {
	out := make(map[string]decimal.Decimal, len(pb.prices))
	for k, v := range pb.prices {
		out[string(k.Customer)+"_"+string(k.Product)] = v
	}
	return out
}

// DecodePrices rebuilds a PriceBook from the persisted form. Keys that do
// not contain a separator are dropped rather than guessed at.
func DecodePrices(raw map[string]decimal.Decimal) *PriceBook {
	pb := NewPriceBook()
	for k, v := range raw {
		custID, prodID, ok := splitPriceKey(k)
		if !ok {
			continue
		}
		pb.prices[priceKey{Customer: custID, Product: prodID}] = v
	}
	return pb
}

// splitPriceKey splits on the last underscore: customer ids themselves may
// contain underscores, product ids generated here do not.
func splitPriceKey(k string) (CustomerID, ProductID, bool) {
	i := strings.LastIndex(k, "_")
	if i <= 0 || i == len(k)-1 {
		return "", "", false
	}
	return CustomerID(k[:i]), ProductID(k[i+1:]), true
}
