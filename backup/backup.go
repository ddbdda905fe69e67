/*
Package backup moves the whole application snapshot through a single JSON
document.

PURPOSE:
  The device is the database. Export writes one timestamped file holding
  customers, products, the invoice log and the price memory; Import
  replaces the book wholesale after the payload decodes cleanly. A
  malformed payload is rejected and the prior state is left untouched.

FORMAT:
  The persisted shape keeps the legacy field names: timestamps are
  {seconds, nanoseconds} pairs and the price memory is keyed
  "{customerId}_{productId}". Export followed by Import reproduces an
  identical snapshot on all four top-level fields.
*/
package backup

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/shopspring/decimal"

	"github.com/counterbook/pos-engine/ledger"
)

// =============================================================================
// PERSISTED SHAPE
// =============================================================================

// Snapshot is the persisted form of the whole book.
type Snapshot struct {
	Customers    []CustomerRecord           `json:"customers"`
	Products     []ProductRecord            `json:"products"`
	Invoices     []InvoiceRecord            `json:"invoices"`
	CustomPrices map[string]decimal.Decimal `json:"customPrices"`
}

type CustomerRecord struct {
	ID        string           `json:"id"`
	Name      string           `json:"name"`
	Phone     string           `json:"phone"`
	Address   string           `json:"address"`
	TotalDebt decimal.Decimal  `json:"totalDebt"`
	CreatedAt ledger.TimePoint `json:"createdAt"`
}

type ProductRecord struct {
	ID           string           `json:"id"`
	Name         string           `json:"name"`
	Unit         string           `json:"unit"`
	DefaultPrice decimal.Decimal  `json:"defaultPrice"`
	Stock        int64            `json:"stock"`
	CreatedAt    ledger.TimePoint `json:"createdAt"`
}

type LineItemRecord struct {
	ProductID string          `json:"productId"`
	Name      string          `json:"name"`
	Qty       int64           `json:"qty"`
	Price     decimal.Decimal `json:"price"`
}

type InvoiceRecord struct {
	ID           string           `json:"id"`
	Type         string           `json:"type"`
	CustomerID   string           `json:"customerId"`
	CustomerName string           `json:"customerName"`
	Items        []LineItemRecord `json:"items"`
	TotalAmount  decimal.Decimal  `json:"totalAmount"`
	PaidAmount   decimal.Decimal  `json:"paidAmount"`
	Status       string           `json:"status"`
	Note         string           `json:"note,omitempty"`
	CreatedAt    ledger.TimePoint `json:"createdAt"`
}

// =============================================================================
// EXPORT
// =============================================================================

// Take captures the book as a Snapshot.
func Take(book *ledger.Book) Snapshot {
	snap := Snapshot{CustomPrices: book.PriceMemory()}
	for _, c := range book.Customers() {
		snap.Customers = append(snap.Customers, CustomerRecord{
			ID:        string(c.ID),
			Name:      c.Name,
			Phone:     c.Phone,
			Address:   c.Address,
			TotalDebt: c.TotalDebt,
			CreatedAt: c.CreatedAt,
		})
	}
	for _, p := range book.Products() {
		snap.Products = append(snap.Products, ProductRecord{
			ID:           string(p.ID),
			Name:         p.Name,
			Unit:         p.Unit,
			DefaultPrice: p.DefaultPrice,
			Stock:        p.Stock,
			CreatedAt:    p.CreatedAt,
		})
	}
	for _, inv := range book.Invoices() {
		rec := InvoiceRecord{
			ID:           string(inv.ID),
			Type:         string(inv.Type),
			CustomerID:   string(inv.CustomerID),
			CustomerName: inv.CustomerName,
			TotalAmount:  inv.TotalAmount,
			PaidAmount:   inv.PaidAmount,
			Status:       string(inv.Status),
			Note:         inv.Note,
			CreatedAt:    inv.CreatedAt,
		}
		for _, li := range inv.Items {
			rec.Items = append(rec.Items, LineItemRecord{
				ProductID: string(li.ProductID),
				Name:      li.Name,
				Qty:       li.Qty,
				Price:     li.UnitPrice,
			})
		}
		snap.Invoices = append(snap.Invoices, rec)
	}
	return snap
}

// Export writes the snapshot as JSON.
func Export(book *ledger.Book, w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(Take(book))
}

// ExportFile writes a timestamped backup file into dir and returns its
// path.
func ExportFile(book *ledger.Book, dir string) (string, error) {
	name := fmt.Sprintf("counterbook_backup_%s.json", time.Now().Format("2006-01-02_150405"))
	path := filepath.Join(dir, name)
	f, err := os.Create(path)
	if err != nil {
		return "", err
	}
	defer f.Close()
	if err := Export(book, f); err != nil {
		return "", err
	}
	return path, nil
}

// =============================================================================
// IMPORT
// =============================================================================

// Import decodes a snapshot and replaces the book wholesale. On a decode
// failure the book is untouched.
func Import(book *ledger.Book, r io.Reader) error {
	var snap Snapshot
	dec := json.NewDecoder(r)
	if err := dec.Decode(&snap); err != nil {
		return fmt.Errorf("%w: %v", ledger.ErrImport, err)
	}
	Apply(book, snap)
	return nil
}

// Apply replaces the book's content with the snapshot.
func Apply(book *ledger.Book, snap Snapshot) {
	customers := make([]ledger.Customer, 0, len(snap.Customers))
	for _, c := range snap.Customers {
		customers = append(customers, ledger.Customer{
			ID:        ledger.CustomerID(c.ID),
			Name:      c.Name,
			Phone:     c.Phone,
			Address:   c.Address,
			TotalDebt: c.TotalDebt,
			CreatedAt: c.CreatedAt,
		})
	}
	products := make([]ledger.Product, 0, len(snap.Products))
	for _, p := range snap.Products {
		products = append(products, ledger.Product{
			ID:           ledger.ProductID(p.ID),
			Name:         p.Name,
			Unit:         p.Unit,
			DefaultPrice: p.DefaultPrice,
			Stock:        p.Stock,
			CreatedAt:    p.CreatedAt,
		})
	}
	invoices := make([]ledger.Invoice, 0, len(snap.Invoices))
	for _, rec := range snap.Invoices {
		inv := ledger.Invoice{
			ID:           ledger.InvoiceID(rec.ID),
			Type:         ledger.DocumentType(rec.Type),
			CustomerID:   ledger.CustomerID(rec.CustomerID),
			CustomerName: rec.CustomerName,
			TotalAmount:  rec.TotalAmount,
			PaidAmount:   rec.PaidAmount,
			Status:       ledger.Status(rec.Status),
			Note:         rec.Note,
			CreatedAt:    rec.CreatedAt,
		}
		for _, li := range rec.Items {
			inv.Items = append(inv.Items, ledger.LineItem{
				ProductID: ledger.ProductID(li.ProductID),
				Name:      li.Name,
				Qty:       li.Qty,
				UnitPrice: li.Price,
			})
		}
		invoices = append(invoices, inv)
	}
	book.Restore(customers, products, invoices, snap.CustomPrices)
}
