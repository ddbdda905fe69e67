package api_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/counterbook/pos-engine/api"
	"github.com/counterbook/pos-engine/ledger"
)

// =============================================================================
// TEST SETUP
// =============================================================================

func newTestServer(t *testing.T) (*httptest.Server, *ledger.Book) {
	t.Helper()
	book := ledger.NewBook(ledger.DefaultPostingPolicy())
	handler := api.NewHandler(book, t.TempDir(), zerolog.Nop())
	srv := httptest.NewServer(api.NewRouter(handler))
	t.Cleanup(srv.Close)
	return srv, book
}

func doJSON(t *testing.T, method, url string, body interface{}, out interface{}) int {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, url, &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	if out != nil && resp.StatusCode < 300 {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp.StatusCode
}

func createCustomer(t *testing.T, srv *httptest.Server, name string) string {
	t.Helper()
	var dto struct {
		ID string `json:"id"`
	}
	status := doJSON(t, http.MethodPost, srv.URL+"/api/customers",
		map[string]string{"name": name}, &dto)
	require.Equal(t, http.StatusCreated, status)
	return dto.ID
}

func createProduct(t *testing.T, srv *httptest.Server, name string) string {
	t.Helper()
	var dto struct {
		ID string `json:"id"`
	}
	status := doJSON(t, http.MethodPost, srv.URL+"/api/products",
		map[string]interface{}{"name": name, "unit": "bag", "defaultPrice": "40", "stock": 100}, &dto)
	require.Equal(t, http.StatusCreated, status)
	return dto.ID
}

func saleBody(customerID, productID string, qty int64, price, paid string) map[string]interface{} {
	return map[string]interface{}{
		"type":       "sale",
		"customerId": customerID,
		"items": []map[string]interface{}{
			{"productId": productID, "name": "Rice 5kg", "qty": qty, "price": price},
		},
		"paidAmount": paid,
	}
}

// =============================================================================
// CUSTOMER ENDPOINTS
// =============================================================================

func TestAPI_CustomerLifecycle(t *testing.T) {
	srv, _ := newTestServer(t)

	id := createCustomer(t, srv, "Aiyana")

	var got struct {
		Name      string `json:"name"`
		TotalDebt string `json:"totalDebt"`
	}
	status := doJSON(t, http.MethodGet, srv.URL+"/api/customers/"+id, nil, &got)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "Aiyana", got.Name)
	assert.Equal(t, "0", got.TotalDebt)

	status = doJSON(t, http.MethodPut, srv.URL+"/api/customers/"+id,
		map[string]string{"name": "Aiyana R.", "phone": "555-0101"}, nil)
	assert.Equal(t, http.StatusOK, status)

	status = doJSON(t, http.MethodDelete, srv.URL+"/api/customers/"+id, nil, nil)
	assert.Equal(t, http.StatusNoContent, status)

	status = doJSON(t, http.MethodGet, srv.URL+"/api/customers/"+id, nil, nil)
	assert.Equal(t, http.StatusNotFound, status)
}

func TestAPI_CreateCustomer_BlankName_Rejected(t *testing.T) {
	srv, _ := newTestServer(t)
	status := doJSON(t, http.MethodPost, srv.URL+"/api/customers",
		map[string]string{"name": "  "}, nil)
	assert.Equal(t, http.StatusBadRequest, status)
}

// =============================================================================
// POSTING ENDPOINTS
// =============================================================================

func TestAPI_PostSale_MovesBalances(t *testing.T) {
	srv, book := newTestServer(t)
	customerID := createCustomer(t, srv, "Aiyana")
	productID := createProduct(t, srv, "Rice 5kg")

	var inv struct {
		ID          string `json:"id"`
		TotalAmount string `json:"totalAmount"`
		Status      string `json:"status"`
	}
	status := doJSON(t, http.MethodPost, srv.URL+"/api/invoices",
		saleBody(customerID, productID, 3, "45", "35"), &inv)
	require.Equal(t, http.StatusCreated, status)
	assert.Equal(t, "135", inv.TotalAmount)
	assert.Equal(t, "active", inv.Status)

	c, _ := book.Customer(ledger.CustomerID(customerID))
	assert.Equal(t, "100", c.TotalDebt.String())
	p, _ := book.Product(ledger.ProductID(productID))
	assert.Equal(t, int64(97), p.Stock)
}

func TestAPI_PostSale_UnknownCustomer_NotFound(t *testing.T) {
	srv, _ := newTestServer(t)
	productID := createProduct(t, srv, "Rice 5kg")

	status := doJSON(t, http.MethodPost, srv.URL+"/api/invoices",
		saleBody("CUST-ghost", productID, 1, "10", "0"), nil)
	assert.Equal(t, http.StatusNotFound, status)
}

func TestAPI_PostInvoice_InvalidDraft_BadRequest(t *testing.T) {
	srv, _ := newTestServer(t)
	customerID := createCustomer(t, srv, "Aiyana")

	status := doJSON(t, http.MethodPost, srv.URL+"/api/invoices",
		map[string]interface{}{"type": "sale", "customerId": customerID, "items": []interface{}{}}, nil)
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestAPI_RecordPayment_ReducesDebt(t *testing.T) {
	srv, book := newTestServer(t)
	customerID := createCustomer(t, srv, "Aiyana")
	productID := createProduct(t, srv, "Rice 5kg")

	status := doJSON(t, http.MethodPost, srv.URL+"/api/invoices",
		saleBody(customerID, productID, 5, "10", "0"), nil)
	require.Equal(t, http.StatusCreated, status)

	var inv struct {
		Type string `json:"type"`
	}
	status = doJSON(t, http.MethodPost, srv.URL+"/api/customers/"+customerID+"/payments",
		map[string]string{"amount": "30"}, &inv)
	require.Equal(t, http.StatusCreated, status)
	assert.Equal(t, "payment", inv.Type)

	c, _ := book.Customer(ledger.CustomerID(customerID))
	assert.Equal(t, "20", c.TotalDebt.String())
}

func TestAPI_CancelInvoice_ConflictWhenAlreadyCancelled(t *testing.T) {
	srv, _ := newTestServer(t)
	customerID := createCustomer(t, srv, "Aiyana")
	productID := createProduct(t, srv, "Rice 5kg")

	var inv struct {
		ID string `json:"id"`
	}
	status := doJSON(t, http.MethodPost, srv.URL+"/api/invoices",
		saleBody(customerID, productID, 1, "10", "0"), &inv)
	require.Equal(t, http.StatusCreated, status)

	status = doJSON(t, http.MethodDelete, srv.URL+"/api/invoices/"+inv.ID, nil, nil)
	assert.Equal(t, http.StatusOK, status)

	status = doJSON(t, http.MethodDelete, srv.URL+"/api/invoices/"+inv.ID, nil, nil)
	assert.Equal(t, http.StatusConflict, status)

	status = doJSON(t, http.MethodDelete, srv.URL+"/api/invoices/INV-ghost", nil, nil)
	assert.Equal(t, http.StatusNotFound, status)
}

func TestAPI_TransferInvoice(t *testing.T) {
	srv, _ := newTestServer(t)
	customerID := createCustomer(t, srv, "Aiyana")
	productID := createProduct(t, srv, "Rice 5kg")

	body := saleBody(customerID, productID, 2, "30", "0")
	body["type"] = "quote"
	var quote struct {
		ID string `json:"id"`
	}
	status := doJSON(t, http.MethodPost, srv.URL+"/api/invoices", body, &quote)
	require.Equal(t, http.StatusCreated, status)

	var draft struct {
		Type  string `json:"type"`
		Total string `json:"total"`
	}
	status = doJSON(t, http.MethodPost, srv.URL+"/api/invoices/"+quote.ID+"/transfer",
		map[string]string{"target": "order"}, &draft)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "order", draft.Type)
	assert.Equal(t, "60", draft.Total)

	status = doJSON(t, http.MethodPost, srv.URL+"/api/invoices/"+quote.ID+"/transfer",
		map[string]string{"target": "sale"}, nil)
	assert.Equal(t, http.StatusBadRequest, status, "quote cannot jump straight to sale")
}

// =============================================================================
// REPORT ENDPOINTS
// =============================================================================

func TestAPI_DebtLedgerAndStats(t *testing.T) {
	srv, _ := newTestServer(t)
	customerID := createCustomer(t, srv, "Aiyana")
	productID := createProduct(t, srv, "Rice 5kg")

	status := doJSON(t, http.MethodPost, srv.URL+"/api/invoices",
		saleBody(customerID, productID, 2, "20", "0"), nil)
	require.Equal(t, http.StatusCreated, status)

	var rows []struct {
		Label    string `json:"label"`
		Increase string `json:"increase"`
	}
	status = doJSON(t, http.MethodGet, srv.URL+"/api/customers/"+customerID+"/ledger", nil, &rows)
	require.Equal(t, http.StatusOK, status)
	require.Len(t, rows, 1)
	assert.Equal(t, "purchase", rows[0].Label)
	assert.Equal(t, "40", rows[0].Increase)

	var stats struct {
		TotalDebt    string `json:"totalDebt"`
		TotalRevenue string `json:"totalRevenue"`
		Revenue7d    []struct {
			Day string `json:"day"`
		} `json:"revenue7d"`
	}
	status = doJSON(t, http.MethodGet, srv.URL+"/api/stats", nil, &stats)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "40", stats.TotalDebt)
	assert.Equal(t, "40", stats.TotalRevenue)
	assert.Len(t, stats.Revenue7d, 7)
}

func TestAPI_DebtLedger_BadDateFilter(t *testing.T) {
	srv, _ := newTestServer(t)
	customerID := createCustomer(t, srv, "Aiyana")

	url := fmt.Sprintf("%s/api/customers/%s/ledger?from=March-1", srv.URL, customerID)
	status := doJSON(t, http.MethodGet, url, nil, nil)
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestAPI_Search(t *testing.T) {
	srv, _ := newTestServer(t)
	customerID := createCustomer(t, srv, "Aiyana")
	productID := createProduct(t, srv, "Rice 5kg")

	status := doJSON(t, http.MethodPost, srv.URL+"/api/invoices",
		saleBody(customerID, productID, 1, "10", "0"), nil)
	require.Equal(t, http.StatusCreated, status)

	var results []struct {
		CustomerName string `json:"customerName"`
	}
	status = doJSON(t, http.MethodGet, srv.URL+"/api/search?q=aiya", nil, &results)
	require.Equal(t, http.StatusOK, status)
	require.Len(t, results, 1)
	assert.Equal(t, "Aiyana", results[0].CustomerName)
}

// =============================================================================
// PRICE RESOLUTION
// =============================================================================

func TestAPI_ResolvePrice_PrefersRememberedPrice(t *testing.T) {
	srv, _ := newTestServer(t)
	customerID := createCustomer(t, srv, "Aiyana")
	productID := createProduct(t, srv, "Rice 5kg")

	var price struct {
		UnitPrice string `json:"unitPrice"`
	}
	url := fmt.Sprintf("%s/api/products/%s/price?customerId=%s", srv.URL, productID, customerID)
	status := doJSON(t, http.MethodGet, url, nil, &price)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "40", price.UnitPrice, "catalog fallback before any sale")

	status = doJSON(t, http.MethodPost, srv.URL+"/api/invoices",
		saleBody(customerID, productID, 1, "37", "0"), nil)
	require.Equal(t, http.StatusCreated, status)

	status = doJSON(t, http.MethodGet, url, nil, &price)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "37", price.UnitPrice, "the negotiated price wins afterwards")
}

// =============================================================================
// BACKUP ENDPOINTS
// =============================================================================

func TestAPI_BackupRoundTrip(t *testing.T) {
	srv, book := newTestServer(t)
	customerID := createCustomer(t, srv, "Aiyana")
	productID := createProduct(t, srv, "Rice 5kg")

	status := doJSON(t, http.MethodPost, srv.URL+"/api/invoices",
		saleBody(customerID, productID, 1, "10", "0"), nil)
	require.Equal(t, http.StatusCreated, status)

	resp, err := http.Get(srv.URL + "/api/backup")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Disposition"), "counterbook_backup_")

	var snapshot bytes.Buffer
	_, err = snapshot.ReadFrom(resp.Body)
	require.NoError(t, err)

	// Wipe, then restore from the download.
	book.Restore(nil, nil, nil, nil)
	require.Empty(t, book.Invoices())

	restore, err := http.Post(srv.URL+"/api/backup", "application/json", &snapshot)
	require.NoError(t, err)
	restore.Body.Close()
	require.Equal(t, http.StatusNoContent, restore.StatusCode)
	assert.Len(t, book.Invoices(), 1)
}

func TestAPI_ImportBackup_Malformed_BadRequest(t *testing.T) {
	srv, _ := newTestServer(t)
	resp, err := http.Post(srv.URL+"/api/backup", "application/json",
		bytes.NewBufferString(`{"customers": [`))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

// =============================================================================
// BULK IMPORT ENDPOINTS
// =============================================================================

func TestAPI_ImportInvoices(t *testing.T) {
	srv, book := newTestServer(t)
	createCustomer(t, srv, "Aiyana")

	var result struct {
		Imported int `json:"imported"`
		Skipped  int `json:"skipped"`
	}
	body := map[string]interface{}{
		"rows": []map[string]interface{}{
			{"code": "S-1", "date": "2026-03-01", "customerName": "Aiyana",
				"itemName": "Rice 5kg", "qty": 2, "unitPrice": "40", "paid": "50"},
			{"code": "S-1", "date": "2026-03-01", "customerName": "Aiyana",
				"itemName": "Salt", "qty": 3, "unitPrice": "5", "paid": "0"},
		},
	}
	status := doJSON(t, http.MethodPost, srv.URL+"/api/imports/invoices", body, &result)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, 1, result.Imported)
	assert.Len(t, book.Invoices(), 1)
}
