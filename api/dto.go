/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication, decoupling the
  internal ledger model from the wire contract. Monetary values cross the
  wire as decimal strings; timestamps as RFC3339 strings.

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients

VALIDATION:
  Validation is done in the ledger, not in DTOs. DTOs are pure data
  carriers.

SEE ALSO:
  - handlers.go: Uses these types
*/
package api

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/counterbook/pos-engine/ledger"
	"github.com/counterbook/pos-engine/report"
)

// =============================================================================
// CUSTOMERS
// =============================================================================

// CustomerDTO represents a customer in API responses.
type CustomerDTO struct {
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	Phone     string          `json:"phone,omitempty"`
	Address   string          `json:"address,omitempty"`
	TotalDebt decimal.Decimal `json:"totalDebt"`
	CreatedAt string          `json:"createdAt"`
}

// CustomerRequest is the create/update payload for a customer.
type CustomerRequest struct {
	Name    string `json:"name"`
	Phone   string `json:"phone"`
	Address string `json:"address"`
}

func toCustomerDTO(c ledger.Customer) CustomerDTO {
	return CustomerDTO{
		ID:        string(c.ID),
		Name:      c.Name,
		Phone:     c.Phone,
		Address:   c.Address,
		TotalDebt: c.TotalDebt,
		CreatedAt: formatTime(c.CreatedAt),
	}
}

// =============================================================================
// PRODUCTS
// =============================================================================

// ProductDTO represents a catalog product in API responses.
type ProductDTO struct {
	ID           string          `json:"id"`
	Name         string          `json:"name"`
	Unit         string          `json:"unit"`
	DefaultPrice decimal.Decimal `json:"defaultPrice"`
	Stock        int64           `json:"stock"`
	CreatedAt    string          `json:"createdAt"`
}

// ProductRequest is the create/update payload for a product.
type ProductRequest struct {
	Name         string          `json:"name"`
	Unit         string          `json:"unit"`
	DefaultPrice decimal.Decimal `json:"defaultPrice"`
	Stock        int64           `json:"stock"`
}

func toProductDTO(p ledger.Product) ProductDTO {
	return ProductDTO{
		ID:           string(p.ID),
		Name:         p.Name,
		Unit:         p.Unit,
		DefaultPrice: p.DefaultPrice,
		Stock:        p.Stock,
		CreatedAt:    formatTime(p.CreatedAt),
	}
}

// ResolvedPriceDTO is the price the POS screen should prefill for a
// customer/product pair.
type ResolvedPriceDTO struct {
	CustomerID string          `json:"customerId"`
	ProductID  string          `json:"productId"`
	UnitPrice  decimal.Decimal `json:"unitPrice"`
}

// =============================================================================
// INVOICES
// =============================================================================

// LineItemDTO is one line of a document.
type LineItemDTO struct {
	ProductID string          `json:"productId"`
	Name      string          `json:"name"`
	Qty       int64           `json:"qty"`
	Price     decimal.Decimal `json:"price"`
}

// InvoiceDTO represents a posted document in API responses.
type InvoiceDTO struct {
	ID           string          `json:"id"`
	Type         string          `json:"type"`
	CustomerID   string          `json:"customerId"`
	CustomerName string          `json:"customerName"`
	Items        []LineItemDTO   `json:"items"`
	TotalAmount  decimal.Decimal `json:"totalAmount"`
	PaidAmount   decimal.Decimal `json:"paidAmount"`
	Status       string          `json:"status"`
	Note         string          `json:"note,omitempty"`
	CreatedAt    string          `json:"createdAt"`
}

// PostInvoiceRequest is the payload to post a new document.
type PostInvoiceRequest struct {
	Type       string          `json:"type"`
	CustomerID string          `json:"customerId"`
	Items      []LineItemDTO   `json:"items"`
	PaidAmount decimal.Decimal `json:"paidAmount"`
	Note       string          `json:"note"`
}

// TransferRequest names the document type a transfer should produce.
type TransferRequest struct {
	Target string `json:"target"`
}

// DraftDTO is an unposted document returned by transfer, ready for review
// and a later post.
type DraftDTO struct {
	Type         string          `json:"type"`
	CustomerID   string          `json:"customerId"`
	CustomerName string          `json:"customerName"`
	Items        []LineItemDTO   `json:"items"`
	PaidAmount   decimal.Decimal `json:"paidAmount"`
	Total        decimal.Decimal `json:"total"`
}

func toDraftDTO(d ledger.Draft) DraftDTO {
	dto := DraftDTO{
		Type:         string(d.Type),
		CustomerID:   string(d.CustomerID),
		CustomerName: d.CustomerName,
		Items:        []LineItemDTO{},
		PaidAmount:   d.PaidAmount,
		Total:        d.Total(),
	}
	for _, li := range d.Items {
		dto.Items = append(dto.Items, LineItemDTO{
			ProductID: string(li.ProductID),
			Name:      li.Name,
			Qty:       li.Qty,
			Price:     li.UnitPrice,
		})
	}
	return dto
}

// PaymentRequest records a payment against a customer's balance.
type PaymentRequest struct {
	Amount decimal.Decimal `json:"amount"`
	Note   string          `json:"note"`
}

func toInvoiceDTO(inv ledger.Invoice) InvoiceDTO {
	dto := InvoiceDTO{
		ID:           string(inv.ID),
		Type:         string(inv.Type),
		CustomerID:   string(inv.CustomerID),
		CustomerName: inv.CustomerName,
		Items:        []LineItemDTO{},
		TotalAmount:  inv.TotalAmount,
		PaidAmount:   inv.PaidAmount,
		Status:       string(inv.Status),
		Note:         inv.Note,
		CreatedAt:    formatTime(inv.CreatedAt),
	}
	for _, li := range inv.Items {
		dto.Items = append(dto.Items, LineItemDTO{
			ProductID: string(li.ProductID),
			Name:      li.Name,
			Qty:       li.Qty,
			Price:     li.UnitPrice,
		})
	}
	return dto
}

func (r PostInvoiceRequest) toDraft() ledger.Draft {
	draft := ledger.Draft{
		Type:       ledger.DocumentType(r.Type),
		CustomerID: ledger.CustomerID(r.CustomerID),
		PaidAmount: r.PaidAmount,
		Note:       r.Note,
	}
	for _, li := range r.Items {
		draft.Items = append(draft.Items, ledger.LineItem{
			ProductID: ledger.ProductID(li.ProductID),
			Name:      li.Name,
			Qty:       li.Qty,
			UnitPrice: li.Price,
		})
	}
	return draft
}

// =============================================================================
// REPORTS
// =============================================================================

// DebtRowDTO is one line of a customer's debt statement.
type DebtRowDTO struct {
	Date      string          `json:"date"`
	InvoiceID string          `json:"invoiceId"`
	Type      string          `json:"type"`
	Label     string          `json:"label"`
	Increase  decimal.Decimal `json:"increase"`
	Decrease  decimal.Decimal `json:"decrease"`
}

// PriceRowDTO is one historical sighting of a product on a document.
type PriceRowDTO struct {
	Date         string          `json:"date"`
	CustomerName string          `json:"customerName"`
	Qty          int64           `json:"qty"`
	UnitPrice    decimal.Decimal `json:"unitPrice"`
	Type         string          `json:"type"`
	InvoiceID    string          `json:"invoiceId"`
}

// StatsDTO is the dashboard summary.
type StatsDTO struct {
	TotalDebt    decimal.Decimal    `json:"totalDebt"`
	TotalRevenue decimal.Decimal    `json:"totalRevenue"`
	PendingCount int                `json:"pendingCount"`
	Revenue7d    []RevenueBucketDTO `json:"revenue7d"`
}

// RevenueBucketDTO is one calendar day of sale revenue.
type RevenueBucketDTO struct {
	Day     string          `json:"day"`
	Revenue decimal.Decimal `json:"revenue"`
}

func toDebtRowDTO(row report.DebtRow) DebtRowDTO {
	return DebtRowDTO{
		Date:      formatTime(row.At),
		InvoiceID: string(row.InvoiceID),
		Type:      string(row.Type),
		Label:     row.Label,
		Increase:  row.Increase,
		Decrease:  row.Decrease,
	}
}

func toPriceRowDTO(row report.PriceRow) PriceRowDTO {
	return PriceRowDTO{
		Date:         formatTime(row.At),
		CustomerName: row.CustomerName,
		Qty:          row.Qty,
		UnitPrice:    row.UnitPrice,
		Type:         string(row.Type),
		InvoiceID:    string(row.InvoiceID),
	}
}

// =============================================================================
// BULK IMPORT
// =============================================================================

// ImportCustomersRequest carries pre-mapped customer rows.
type ImportCustomersRequest struct {
	Rows []struct {
		Name    string `json:"name"`
		Phone   string `json:"phone"`
		Address string `json:"address"`
	} `json:"rows"`
}

// ImportProductsRequest carries pre-mapped product rows.
type ImportProductsRequest struct {
	Rows []struct {
		Name         string          `json:"name"`
		Unit         string          `json:"unit"`
		DefaultPrice decimal.Decimal `json:"defaultPrice"`
		Stock        int64           `json:"stock"`
	} `json:"rows"`
}

// ImportInvoicesRequest carries pre-mapped historical sale rows.
type ImportInvoicesRequest struct {
	Rows []struct {
		Code         string          `json:"code"`
		Date         string          `json:"date"`
		CustomerName string          `json:"customerName"`
		ItemName     string          `json:"itemName"`
		Qty          int64           `json:"qty"`
		UnitPrice    decimal.Decimal `json:"unitPrice"`
		Paid         decimal.Decimal `json:"paid"`
	} `json:"rows"`
}

// ImportResultDTO reports how an import went.
type ImportResultDTO struct {
	Imported int `json:"imported"`
	Skipped  int `json:"skipped"`
}

// =============================================================================
// HELPERS
// =============================================================================

func formatTime(tp ledger.TimePoint) string {
	return tp.Time().Format(time.RFC3339)
}
