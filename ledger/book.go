/*
book.go - The owned application snapshot

PURPOSE:
  The Book holds the single shared state of the application: customers,
  products, the append-only invoice log, and the price memory. It is an
  explicit store object passed by reference into the posting engine and the
  report package; there are no package-level globals.

OWNERSHIP:
  Customer.TotalDebt and Product.Stock are caches that must always agree
  with what replaying the invoice log would produce for sale, return and
  payment documents. Only the mutation rules move them.

CONCURRENCY:
  The system is single-user and effectively single-writer, but the HTTP
  layer serves requests on multiple goroutines, so a RWMutex guards all
  access. One posting completes fully before the next begins.

PERSISTENCE:
  After each state change the Book fires an optional change hook, outside
  the lock. Persistence is fire-and-forget and is not part of the posting
  transaction's atomicity guarantee.
*/
package ledger

import (
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Book is the application snapshot. Create with NewBook, share by pointer.
type Book struct {
	mu     sync.RWMutex
	policy PostingPolicy

	customers map[CustomerID]*Customer
	products  map[ProductID]*Product
	invoices  []*Invoice
	byID      map[InvoiceID]*Invoice
	prices    *PriceBook

	onChange func()
}

func NewBook(policy PostingPolicy) *Book {
	return &Book{
		policy:    policy,
		customers: make(map[CustomerID]*Customer),
		products:  make(map[ProductID]*Product),
		byID:      make(map[InvoiceID]*Invoice),
		prices:    NewPriceBook(),
	}
}

// SetOnChange registers a hook fired after every state change, outside the
// lock. Used for fire-and-forget persistence.
func (b *Book) SetOnChange(fn func()) {
	b.mu.Lock()
	b.onChange = fn
	b.mu.Unlock()
}

func (b *Book) notify() {
	b.mu.RLock()
	fn := b.onChange
	b.mu.RUnlock()
	if fn != nil {
		fn()
	}
}

// Policy returns the posting policy the book was created with.
func (b *Book) Policy() PostingPolicy { return b.policy }

// =============================================================================
// CUSTOMERS
// =============================================================================

// AddCustomer creates a customer with a fresh id and zero debt.
func (b *Book) AddCustomer(name, phone, address string) (Customer, error) {
	if strings.TrimSpace(name) == "" {
		return Customer{}, &ValidationError{Field: "name", Reason: "is required"}
	}
	c := &Customer{
		ID:        CustomerID("CUST-" + uuid.NewString()),
		Name:      name,
		Phone:     phone,
		Address:   address,
		TotalDebt: decimal.Zero,
		CreatedAt: Now(),
	}
	b.mu.Lock()
	b.customers[c.ID] = c
	b.mu.Unlock()
	b.notify()
	return *c, nil
}

// PutCustomer inserts a fully formed customer, keeping its id and debt.
// Used by bulk import and snapshot hydration.
func (b *Book) PutCustomer(c Customer) {
	b.mu.Lock()
	cc := c
	b.customers[c.ID] = &cc
	b.mu.Unlock()
	b.notify()
}

// UpdateCustomer changes contact fields only. Debt belongs to the rules.
func (b *Book) UpdateCustomer(id CustomerID, name, phone, address string) (Customer, error) {
	b.mu.Lock()
	c, ok := b.customers[id]
	if !ok {
		b.mu.Unlock()
		return Customer{}, ErrUnknownCustomer
	}
	if strings.TrimSpace(name) != "" {
		c.Name = name
	}
	c.Phone = phone
	c.Address = address
	out := *c
	b.mu.Unlock()
	b.notify()
	return out, nil
}

// RemoveCustomer deletes the customer record. The invoice log keeps its
// documents; this mirrors the UI-level delete the core tolerates.
func (b *Book) RemoveCustomer(id CustomerID) error {
	b.mu.Lock()
	if _, ok := b.customers[id]; !ok {
		b.mu.Unlock()
		return ErrUnknownCustomer
	}
	delete(b.customers, id)
	b.mu.Unlock()
	b.notify()
	return nil
}

// Customer returns a copy of the customer record.
func (b *Book) Customer(id CustomerID) (Customer, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	c, ok := b.customers[id]
	if !ok {
		return Customer{}, false
	}
	return *c, true
}

// Customers returns all customers sorted by name.
func (b *Book) Customers() []Customer {
	b.mu.RLock()
	out := make([]Customer, 0, len(b.customers))
	for _, c := range b.customers {
		out = append(out, *c)
	}
	b.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// FindCustomerByName returns the first customer whose name matches exactly,
// for the bulk importer's customer resolution.
func (b *Book) FindCustomerByName(name string) (Customer, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, c := range b.customers {
		if c.Name == name {
			return *c, true
		}
	}
	return Customer{}, false
}

// =============================================================================
// PRODUCTS
// =============================================================================

// AddProduct creates a product with a fresh id.
func (b *Book) AddProduct(name, unit string, defaultPrice decimal.Decimal, stock int64) (Product, error) {
	if strings.TrimSpace(name) == "" {
		return Product{}, &ValidationError{Field: "name", Reason: "is required"}
	}
	if unit == "" {
		unit = "unit"
	}
	p := &Product{
		ID:           ProductID("PROD-" + uuid.NewString()),
		Name:         name,
		Unit:         unit,
		DefaultPrice: defaultPrice,
		Stock:        stock,
		CreatedAt:    Now(),
	}
	b.mu.Lock()
	b.products[p.ID] = p
	b.mu.Unlock()
	b.notify()
	return *p, nil
}

// PutProduct inserts a fully formed product, keeping its id and stock.
func (b *Book) PutProduct(p Product) {
	b.mu.Lock()
	pp := p
	b.products[p.ID] = &pp
	b.mu.Unlock()
	b.notify()
}

// UpdateProduct changes catalog fields. Stock stays with the rules except
// for explicit corrections, which the UI performs through this call.
func (b *Book) UpdateProduct(id ProductID, name, unit string, defaultPrice decimal.Decimal, stock int64) (Product, error) {
	b.mu.Lock()
	p, ok := b.products[id]
	if !ok {
		b.mu.Unlock()
		return Product{}, ErrUnknownProduct
	}
	if strings.TrimSpace(name) != "" {
		p.Name = name
	}
	if unit != "" {
		p.Unit = unit
	}
	p.DefaultPrice = defaultPrice
	p.Stock = stock
	out := *p
	b.mu.Unlock()
	b.notify()
	return out, nil
}

// RemoveProduct deletes the product record.
func (b *Book) RemoveProduct(id ProductID) error {
	b.mu.Lock()
	if _, ok := b.products[id]; !ok {
		b.mu.Unlock()
		return ErrUnknownProduct
	}
	delete(b.products, id)
	b.mu.Unlock()
	b.notify()
	return nil
}

// Product returns a copy of the product record.
func (b *Book) Product(id ProductID) (Product, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	p, ok := b.products[id]
	if !ok {
		return Product{}, false
	}
	return *p, true
}

// Products returns all products sorted by name.
func (b *Book) Products() []Product {
	b.mu.RLock()
	out := make([]Product, 0, len(b.products))
	for _, p := range b.products {
		out = append(out, *p)
	}
	b.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// =============================================================================
// INVOICE LOG - Read access
// =============================================================================

// Invoice returns a copy of one document.
func (b *Book) Invoice(id InvoiceID) (Invoice, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	inv, ok := b.byID[id]
	if !ok {
		return Invoice{}, false
	}
	return copyInvoice(inv), true
}

// Invoices returns the log in original posting order.
func (b *Book) Invoices() []Invoice {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]Invoice, len(b.invoices))
	for i, inv := range b.invoices {
		out[i] = copyInvoice(inv)
	}
	return out
}

func copyInvoice(inv *Invoice) Invoice {
	out := *inv
	out.Items = append([]LineItem(nil), inv.Items...)
	return out
}

// =============================================================================
// PRICE MEMORY - Read access
// =============================================================================

// ResolvePrice returns the remembered price for the pair, falling back to
// the product's catalog price, then to zero for unknown products. Lookup
// never fails.
func (b *Book) ResolvePrice(customerID CustomerID, productID ProductID) decimal.Decimal {
	b.mu.RLock()
	defer b.mu.RUnlock()
	fallback := decimal.Zero
	if p, ok := b.products[productID]; ok {
		fallback = p.DefaultPrice
	}
	return b.prices.Resolve(customerID, productID, fallback)
}

// PriceMemory returns the persisted form of the price memory.
func (b *Book) PriceMemory() map[string]decimal.Decimal {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.prices.Encode()
}

// =============================================================================
// SNAPSHOT HYDRATION - Wholesale replace for import and device load
// =============================================================================

// Restore replaces the entire book content. Used by the backup importer and
// the device store after a parse-validity check; prior content is discarded
// only once the caller has a fully decoded replacement.
func (b *Book) Restore(customers []Customer, products []Product, invoices []Invoice, prices map[string]decimal.Decimal) {
	b.mu.Lock()
	b.customers = make(map[CustomerID]*Customer, len(customers))
	for i := range customers {
		c := customers[i]
		b.customers[c.ID] = &c
	}
	b.products = make(map[ProductID]*Product, len(products))
	for i := range products {
		p := products[i]
		b.products[p.ID] = &p
	}
	b.invoices = make([]*Invoice, len(invoices))
	b.byID = make(map[InvoiceID]*Invoice, len(invoices))
	for i := range invoices {
		inv := copyInvoice(&invoices[i])
		b.invoices[i] = &inv
		b.byID[inv.ID] = &inv
	}
	b.prices = DecodePrices(prices)
	b.mu.Unlock()
	b.notify()
}
