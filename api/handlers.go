/*
handlers.go - HTTP API handlers for the counter book engine

PURPOSE:
  Exposes the ledger engine via REST API. Handles HTTP request/response,
  JSON serialization, and delegates everything else to the ledger, report,
  backup and importer packages.

ENDPOINTS:
  Customers:
    GET    /api/customers                 List customers
    POST   /api/customers                 Create customer
    GET    /api/customers/{id}            Get customer
    PUT    /api/customers/{id}            Update contact fields
    DELETE /api/customers/{id}            Remove customer
    GET    /api/customers/{id}/ledger     Debt statement (from/to filter)
    POST   /api/customers/{id}/payments   Record a payment

  Products:
    GET    /api/products                  List catalog
    POST   /api/products                  Create product
    PUT    /api/products/{id}             Update product
    DELETE /api/products/{id}             Remove product
    GET    /api/products/{id}/history     Price history (from/to filter)
    GET    /api/products/{id}/price       Resolve price for a customer

  Invoices:
    GET    /api/invoices                  Full log
    POST   /api/invoices                  Post a draft
    GET    /api/invoices/{id}             Get document
    DELETE /api/invoices/{id}             Cancel document
    POST   /api/invoices/{id}/transfer    Build a follow-up draft

  Reports:
    GET    /api/search                    Document search (q, from, to)
    GET    /api/stats                     Dashboard aggregates

  Backup:
    GET    /api/backup                    Download snapshot JSON
    POST   /api/backup                    Restore from snapshot JSON
    POST   /api/backup/file               Write a backup file on device

  Bulk import:
    POST   /api/imports/customers
    POST   /api/imports/products
    POST   /api/imports/invoices

ERROR HANDLING:
  Errors are returned as JSON with appropriate HTTP status:
  - 400: Validation errors, bad transfers, malformed imports
  - 404: Unknown customer/product/document
  - 409: Insufficient stock, cancelling a cancelled document
  - 500: Internal errors

SECURITY NOTE:
  Single-user deployment on a trusted device; no authentication.

SEE ALSO:
  - dto.go: Request/response data structures
  - server.go: Router setup and middleware
*/
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/counterbook/pos-engine/backup"
	"github.com/counterbook/pos-engine/importer"
	"github.com/counterbook/pos-engine/ledger"
	"github.com/counterbook/pos-engine/report"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Book      *ledger.Book
	BackupDir string
	Log       zerolog.Logger
}

// NewHandler creates a new handler over the given book.
func NewHandler(book *ledger.Book, backupDir string, log zerolog.Logger) *Handler {
	return &Handler{Book: book, BackupDir: backupDir, Log: log}
}

// =============================================================================
// CUSTOMER HANDLERS
// =============================================================================

// ListCustomers returns all customers sorted by name.
func (h *Handler) ListCustomers(w http.ResponseWriter, r *http.Request) {
	customers := h.Book.Customers()
	dtos := make([]CustomerDTO, len(customers))
	for i, c := range customers {
		dtos[i] = toCustomerDTO(c)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// CreateCustomer adds a customer with zero starting debt.
func (h *Handler) CreateCustomer(w http.ResponseWriter, r *http.Request) {
	var req CustomerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body", err)
		return
	}
	c, err := h.Book.AddCustomer(req.Name, req.Phone, req.Address)
	if err != nil {
		writeLedgerError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toCustomerDTO(c))
}

// GetCustomer returns one customer.
func (h *Handler) GetCustomer(w http.ResponseWriter, r *http.Request) {
	id := ledger.CustomerID(chi.URLParam(r, "id"))
	c, ok := h.Book.Customer(id)
	if !ok {
		writeError(w, http.StatusNotFound, "customer not found", nil)
		return
	}
	writeJSON(w, http.StatusOK, toCustomerDTO(c))
}

// UpdateCustomer changes contact fields. Debt is never writable here.
func (h *Handler) UpdateCustomer(w http.ResponseWriter, r *http.Request) {
	id := ledger.CustomerID(chi.URLParam(r, "id"))
	var req CustomerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body", err)
		return
	}
	c, err := h.Book.UpdateCustomer(id, req.Name, req.Phone, req.Address)
	if err != nil {
		writeLedgerError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toCustomerDTO(c))
}

// DeleteCustomer removes the customer record. Posted documents stay in
// the log.
func (h *Handler) DeleteCustomer(w http.ResponseWriter, r *http.Request) {
	id := ledger.CustomerID(chi.URLParam(r, "id"))
	if err := h.Book.RemoveCustomer(id); err != nil {
		writeLedgerError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GetDebtLedger reconstructs the customer's debt statement.
func (h *Handler) GetDebtLedger(w http.ResponseWriter, r *http.Request) {
	id := ledger.CustomerID(chi.URLParam(r, "id"))
	if _, ok := h.Book.Customer(id); !ok {
		writeError(w, http.StatusNotFound, "customer not found", nil)
		return
	}
	rng, err := parseRange(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid date filter", err)
		return
	}
	rows := report.DebtLedger(h.Book, id, rng)
	dtos := make([]DebtRowDTO, len(rows))
	for i, row := range rows {
		dtos[i] = toDebtRowDTO(row)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// RecordPayment posts a payment document against the customer's balance.
func (h *Handler) RecordPayment(w http.ResponseWriter, r *http.Request) {
	id := ledger.CustomerID(chi.URLParam(r, "id"))
	var req PaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body", err)
		return
	}
	inv, err := h.Book.Post(ledger.Draft{
		Type:       ledger.DocPayment,
		CustomerID: id,
		PaidAmount: req.Amount,
		Note:       req.Note,
	})
	if err != nil {
		writeLedgerError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toInvoiceDTO(inv))
}

// =============================================================================
// PRODUCT HANDLERS
// =============================================================================

// ListProducts returns the catalog sorted by name.
func (h *Handler) ListProducts(w http.ResponseWriter, r *http.Request) {
	products := h.Book.Products()
	dtos := make([]ProductDTO, len(products))
	for i, p := range products {
		dtos[i] = toProductDTO(p)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// CreateProduct adds a catalog product.
func (h *Handler) CreateProduct(w http.ResponseWriter, r *http.Request) {
	var req ProductRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body", err)
		return
	}
	p, err := h.Book.AddProduct(req.Name, req.Unit, req.DefaultPrice, req.Stock)
	if err != nil {
		writeLedgerError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toProductDTO(p))
}

// UpdateProduct changes catalog fields, including stock corrections.
func (h *Handler) UpdateProduct(w http.ResponseWriter, r *http.Request) {
	id := ledger.ProductID(chi.URLParam(r, "id"))
	var req ProductRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body", err)
		return
	}
	p, err := h.Book.UpdateProduct(id, req.Name, req.Unit, req.DefaultPrice, req.Stock)
	if err != nil {
		writeLedgerError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toProductDTO(p))
}

// DeleteProduct removes the product record.
func (h *Handler) DeleteProduct(w http.ResponseWriter, r *http.Request) {
	id := ledger.ProductID(chi.URLParam(r, "id"))
	if err := h.Book.RemoveProduct(id); err != nil {
		writeLedgerError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GetPriceHistory lists every appearance of the product on non-cancelled
// documents.
func (h *Handler) GetPriceHistory(w http.ResponseWriter, r *http.Request) {
	id := ledger.ProductID(chi.URLParam(r, "id"))
	if _, ok := h.Book.Product(id); !ok {
		writeError(w, http.StatusNotFound, "product not found", nil)
		return
	}
	rng, err := parseRange(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid date filter", err)
		return
	}
	rows := report.ProductPriceHistory(h.Book, id, rng)
	dtos := make([]PriceRowDTO, len(rows))
	for i, row := range rows {
		dtos[i] = toPriceRowDTO(row)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// ResolvePrice returns the price the POS screen should prefill for a
// customer/product pair. The lookup never fails.
func (h *Handler) ResolvePrice(w http.ResponseWriter, r *http.Request) {
	productID := ledger.ProductID(chi.URLParam(r, "id"))
	customerID := ledger.CustomerID(r.URL.Query().Get("customerId"))
	price := h.Book.ResolvePrice(customerID, productID)
	writeJSON(w, http.StatusOK, ResolvedPriceDTO{
		CustomerID: string(customerID),
		ProductID:  string(productID),
		UnitPrice:  price,
	})
}

// =============================================================================
// INVOICE HANDLERS
// =============================================================================

// ListInvoices returns the full document log in posting order.
func (h *Handler) ListInvoices(w http.ResponseWriter, r *http.Request) {
	invoices := h.Book.Invoices()
	dtos := make([]InvoiceDTO, len(invoices))
	for i, inv := range invoices {
		dtos[i] = toInvoiceDTO(inv)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// PostInvoice validates and posts a draft as one atomic operation.
func (h *Handler) PostInvoice(w http.ResponseWriter, r *http.Request) {
	var req PostInvoiceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body", err)
		return
	}
	inv, err := h.Book.Post(req.toDraft())
	if err != nil {
		writeLedgerError(w, err)
		return
	}
	h.Log.Info().
		Str("invoice", string(inv.ID)).
		Str("type", string(inv.Type)).
		Str("customer", string(inv.CustomerID)).
		Str("total", inv.TotalAmount.String()).
		Msg("document posted")
	writeJSON(w, http.StatusCreated, toInvoiceDTO(inv))
}

// GetInvoice returns one document.
func (h *Handler) GetInvoice(w http.ResponseWriter, r *http.Request) {
	id := ledger.InvoiceID(chi.URLParam(r, "id"))
	inv, ok := h.Book.Invoice(id)
	if !ok {
		writeError(w, http.StatusNotFound, "document not found", nil)
		return
	}
	writeJSON(w, http.StatusOK, toInvoiceDTO(inv))
}

// CancelInvoice flips the document to cancelled. Balances are not
// reversed; reports exclude the document instead.
func (h *Handler) CancelInvoice(w http.ResponseWriter, r *http.Request) {
	id := ledger.InvoiceID(chi.URLParam(r, "id"))
	if err := h.Book.Cancel(id); err != nil {
		writeLedgerError(w, err)
		return
	}
	inv, _ := h.Book.Invoice(id)
	writeJSON(w, http.StatusOK, toInvoiceDTO(inv))
}

// TransferInvoice builds a follow-up draft from an existing document. The
// draft is returned for review, not posted.
func (h *Handler) TransferInvoice(w http.ResponseWriter, r *http.Request) {
	id := ledger.InvoiceID(chi.URLParam(r, "id"))
	var req TransferRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body", err)
		return
	}
	draft, err := h.Book.Transfer(id, ledger.DocumentType(req.Target))
	if err != nil {
		writeLedgerError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toDraftDTO(draft))
}

// =============================================================================
// REPORT HANDLERS
// =============================================================================

// SearchDocuments matches the query against document ids and customer
// names, capped at 50 results.
func (h *Handler) SearchDocuments(w http.ResponseWriter, r *http.Request) {
	rng, err := parseRange(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid date filter", err)
		return
	}
	results := report.SearchDocuments(h.Book, r.URL.Query().Get("q"), rng)
	dtos := make([]InvoiceDTO, len(results))
	for i, inv := range results {
		dtos[i] = toInvoiceDTO(inv)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// GetStats returns the dashboard aggregates.
func (h *Handler) GetStats(w http.ResponseWriter, r *http.Request) {
	stats := report.Summarize(h.Book, ledger.Now())
	dto := StatsDTO{
		TotalDebt:    stats.TotalDebt,
		TotalRevenue: stats.TotalRevenue,
		PendingCount: stats.PendingCount,
		Revenue7d:    make([]RevenueBucketDTO, len(stats.Revenue7d)),
	}
	for i, b := range stats.Revenue7d {
		dto.Revenue7d[i] = RevenueBucketDTO{
			Day:     b.Day.Time().Format("2006-01-02"),
			Revenue: b.Revenue,
		}
	}
	writeJSON(w, http.StatusOK, dto)
}

// =============================================================================
// BACKUP HANDLERS
// =============================================================================

// ExportBackup streams the full snapshot as a downloadable JSON document.
func (h *Handler) ExportBackup(w http.ResponseWriter, r *http.Request) {
	name := fmt.Sprintf("counterbook_backup_%s.json", time.Now().Format("2006-01-02_150405"))
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	if err := backup.Export(h.Book, w); err != nil {
		h.Log.Error().Err(err).Msg("backup export failed")
	}
}

// ImportBackup replaces the book wholesale from an uploaded snapshot. A
// malformed payload leaves the prior state untouched.
func (h *Handler) ImportBackup(w http.ResponseWriter, r *http.Request) {
	if err := backup.Import(h.Book, r.Body); err != nil {
		writeLedgerError(w, err)
		return
	}
	h.Log.Info().Msg("snapshot imported")
	w.WriteHeader(http.StatusNoContent)
}

// ExportBackupFile writes a timestamped backup file into the configured
// directory and returns its path.
func (h *Handler) ExportBackupFile(w http.ResponseWriter, r *http.Request) {
	path, err := backup.ExportFile(h.Book, h.BackupDir)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "backup write failed", err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"path": path})
}

// =============================================================================
// BULK IMPORT HANDLERS
// =============================================================================

// ImportCustomers bulk-adds customers from pre-mapped rows.
func (h *Handler) ImportCustomers(w http.ResponseWriter, r *http.Request) {
	var req ImportCustomersRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body", err)
		return
	}
	rows := make([]importer.CustomerRow, len(req.Rows))
	for i, row := range req.Rows {
		rows[i] = importer.CustomerRow{Name: row.Name, Phone: row.Phone, Address: row.Address}
	}
	res := importer.Customers(h.Book, rows)
	writeJSON(w, http.StatusOK, ImportResultDTO{Imported: res.Imported, Skipped: res.Skipped})
}

// ImportProducts bulk-adds catalog products from pre-mapped rows.
func (h *Handler) ImportProducts(w http.ResponseWriter, r *http.Request) {
	var req ImportProductsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body", err)
		return
	}
	rows := make([]importer.ProductRow, len(req.Rows))
	for i, row := range req.Rows {
		rows[i] = importer.ProductRow{
			Name:         row.Name,
			Unit:         row.Unit,
			DefaultPrice: row.DefaultPrice,
			Stock:        row.Stock,
		}
	}
	res := importer.Products(h.Book, rows)
	writeJSON(w, http.StatusOK, ImportResultDTO{Imported: res.Imported, Skipped: res.Skipped})
}

// ImportInvoices bulk-posts historical sales grouped by document code.
func (h *Handler) ImportInvoices(w http.ResponseWriter, r *http.Request) {
	var req ImportInvoicesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body", err)
		return
	}
	rows := make([]importer.InvoiceRow, len(req.Rows))
	for i, row := range req.Rows {
		date, err := time.Parse("2006-01-02", row.Date)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid row date", err)
			return
		}
		rows[i] = importer.InvoiceRow{
			Code:         row.Code,
			Date:         date,
			CustomerName: row.CustomerName,
			ItemName:     row.ItemName,
			Qty:          row.Qty,
			UnitPrice:    row.UnitPrice,
			Paid:         row.Paid,
		}
	}
	res := importer.Invoices(h.Book, rows)
	writeJSON(w, http.StatusOK, ImportResultDTO{Imported: res.Imported, Skipped: res.Skipped})
}

// =============================================================================
// HELPERS
// =============================================================================

// parseRange reads the optional from/to query parameters as calendar days.
func parseRange(r *http.Request) (report.Range, error) {
	var rng report.Range
	if from := r.URL.Query().Get("from"); from != "" {
		t, err := time.Parse("2006-01-02", from)
		if err != nil {
			return report.Range{}, fmt.Errorf("from: %w", err)
		}
		tp := ledger.At(t)
		rng.Start = &tp
	}
	if to := r.URL.Query().Get("to"); to != "" {
		t, err := time.Parse("2006-01-02", to)
		if err != nil {
			return report.Range{}, fmt.Errorf("to: %w", err)
		}
		tp := ledger.At(t)
		rng.End = &tp
	}
	return rng, nil
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// ErrorResponse is the JSON shape of every error reply.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}

// writeLedgerError maps ledger errors onto HTTP statuses.
func writeLedgerError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ledger.ErrInsufficientStock),
		errors.Is(err, ledger.ErrNotCancellable):
		writeError(w, http.StatusConflict, err.Error(), nil)
	case errors.Is(err, ledger.ErrValidation),
		errors.Is(err, ledger.ErrBadTransfer),
		errors.Is(err, ledger.ErrImport):
		writeError(w, http.StatusBadRequest, err.Error(), nil)
	case ledger.IsNotFound(err):
		writeError(w, http.StatusNotFound, err.Error(), nil)
	default:
		writeError(w, http.StatusInternalServerError, "internal error", err)
	}
}
