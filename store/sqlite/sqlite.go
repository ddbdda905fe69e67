/*
Package sqlite persists the application snapshot to the device.

PURPOSE:
  The engine runs entirely in memory; this store writes the whole book
  (customers, products, invoice log, price memory) to a SQLite file after
  each change and hydrates it back on startup. Saves are fire-and-forget:
  persistence is outside the posting operation's atomicity boundary, and a
  crash between a posting and its save is an accepted gap.

KEY TABLES:
  customers:      Current customer snapshot with cached debt totals
  products:       Current catalog snapshot with cached stock counts
  invoices:       The append-only document log, with its replay position
  invoice_items:  Line items, keyed by (invoice, line number)
  custom_prices:  Last agreed price per customer/product pair

WAL MODE:
  SQLite is opened with WAL (Write-Ahead Logging) for better crash
  recovery. A mutex serializes saves; the single-user model never produces
  concurrent writers, but overlapping change hooks can race without it.

USAGE:
  store, err := sqlite.New("./counterbook.db", log)
  if err != nil {
      log.Fatal().Err(err).Msg("open store")
  }
  defer store.Close()

  book := ledger.NewBook(policy)
  if err := store.Load(book); err != nil { ... }
  book.SetOnChange(func() { store.SaveAsync(book) })

SEE ALSO:
  - ledger/book.go: the in-memory state this store mirrors
  - backup/backup.go: the portable JSON form of the same snapshot
*/
package sqlite

import (
	"database/sql"
	"fmt"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/counterbook/pos-engine/ledger"
)

// Store persists book snapshots to a SQLite file.
type Store struct {
	db  *sql.DB
	mu  sync.Mutex
	log zerolog.Logger
}

// New opens (or creates) the database at dbPath. Use ":memory:" for tests.
func New(dbPath string, log zerolog.Logger) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	s := &Store{db: db, log: log}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate database: %w", err)
	}
	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error { return s.db.Close() }

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS customers (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		phone TEXT,
		address TEXT,
		total_debt TEXT NOT NULL,
		created_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS products (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		unit TEXT NOT NULL,
		default_price TEXT NOT NULL,
		stock INTEGER NOT NULL,
		created_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS invoices (
		id TEXT PRIMARY KEY,
		log_position INTEGER NOT NULL,
		doc_type TEXT NOT NULL,
		customer_id TEXT NOT NULL,
		customer_name TEXT,
		total_amount TEXT NOT NULL,
		paid_amount TEXT NOT NULL,
		status TEXT NOT NULL,
		note TEXT,
		created_at TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_invoices_log_position
		ON invoices(log_position);
	CREATE INDEX IF NOT EXISTS idx_invoices_customer
		ON invoices(customer_id);

	CREATE TABLE IF NOT EXISTS invoice_items (
		invoice_id TEXT NOT NULL REFERENCES invoices(id) ON DELETE CASCADE,
		line_no INTEGER NOT NULL,
		product_id TEXT NOT NULL,
		name TEXT NOT NULL,
		qty INTEGER NOT NULL,
		unit_price TEXT NOT NULL,
		PRIMARY KEY (invoice_id, line_no)
	);

	CREATE TABLE IF NOT EXISTS custom_prices (
		pair_key TEXT PRIMARY KEY,
		unit_price TEXT NOT NULL
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// SAVE - Full snapshot rewrite
// =============================================================================

// Save rewrites the whole snapshot in one database transaction. The data
// set is one retailer's book, so a full rewrite stays cheap.
func (s *Store) Save(book *ledger.Book) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, table := range []string{"invoice_items", "invoices", "customers", "products", "custom_prices"} {
		if _, err := tx.Exec("DELETE FROM " + table); err != nil {
			return err
		}
	}

	for _, c := range book.Customers() {
		_, err := tx.Exec(
			`INSERT INTO customers (id, name, phone, address, total_debt, created_at)
			 VALUES (?, ?, ?, ?, ?, ?)`,
			string(c.ID), c.Name, c.Phone, c.Address, c.TotalDebt.String(), encodeTime(c.CreatedAt),
		)
		if err != nil {
			return err
		}
	}
	for _, p := range book.Products() {
		_, err := tx.Exec(
			`INSERT INTO products (id, name, unit, default_price, stock, created_at)
			 VALUES (?, ?, ?, ?, ?, ?)`,
			string(p.ID), p.Name, p.Unit, p.DefaultPrice.String(), p.Stock, encodeTime(p.CreatedAt),
		)
		if err != nil {
			return err
		}
	}
	for pos, inv := range book.Invoices() {
		_, err := tx.Exec(
			`INSERT INTO invoices (id, log_position, doc_type, customer_id, customer_name,
			                       total_amount, paid_amount, status, note, created_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			string(inv.ID), pos, string(inv.Type), string(inv.CustomerID), inv.CustomerName,
			inv.TotalAmount.String(), inv.PaidAmount.String(), string(inv.Status), inv.Note,
			encodeTime(inv.CreatedAt),
		)
		if err != nil {
			return err
		}
		for lineNo, li := range inv.Items {
			_, err := tx.Exec(
				`INSERT INTO invoice_items (invoice_id, line_no, product_id, name, qty, unit_price)
				 VALUES (?, ?, ?, ?, ?, ?)`,
				string(inv.ID), lineNo, string(li.ProductID), li.Name, li.Qty, li.UnitPrice.String(),
			)
			if err != nil {
				return err
			}
		}
	}
	for key, price := range book.PriceMemory() {
		_, err := tx.Exec(
			`INSERT INTO custom_prices (pair_key, unit_price) VALUES (?, ?)`,
			key, price.String(),
		)
		if err != nil {
			return err
		}
	}

	return tx.Commit()
}

// SaveAsync persists in the background, logging failures instead of
// surfacing them.
func (s *Store) SaveAsync(book *ledger.Book) {
	go func() {
		if err := s.Save(book); err != nil {
			s.log.Error().Err(err).Msg("snapshot save failed")
		}
	}()
}

// =============================================================================
// LOAD - Hydrate a book from the device
// =============================================================================

// Load replaces the book's content with the stored snapshot. An empty
// database yields an empty book.
func (s *Store) Load(book *ledger.Book) error {
	customers, err := s.loadCustomers()
	if err != nil {
		return err
	}
	products, err := s.loadProducts()
	if err != nil {
		return err
	}
	invoices, err := s.loadInvoices()
	if err != nil {
		return err
	}
	prices, err := s.loadPrices()
	if err != nil {
		return err
	}
	book.Restore(customers, products, invoices, prices)
	return nil
}

func (s *Store) loadCustomers() ([]ledger.Customer, error) {
	rows, err := s.db.Query(`SELECT id, name, phone, address, total_debt, created_at FROM customers`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []ledger.Customer
	for rows.Next() {
		var id, name, phone, address, debt, createdAt string
		if err := rows.Scan(&id, &name, &phone, &address, &debt, &createdAt); err != nil {
			return nil, err
		}
		c := ledger.Customer{
			ID:        ledger.CustomerID(id),
			Name:      name,
			Phone:     phone,
			Address:   address,
			CreatedAt: decodeTime(createdAt),
		}
		if c.TotalDebt, err = decimal.NewFromString(debt); err != nil {
			return nil, fmt.Errorf("customer %s: bad debt %q: %w", id, debt, err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (s *Store) loadProducts() ([]ledger.Product, error) {
	rows, err := s.db.Query(`SELECT id, name, unit, default_price, stock, created_at FROM products`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []ledger.Product
	for rows.Next() {
		var id, name, unit, price, createdAt string
		var stock int64
		if err := rows.Scan(&id, &name, &unit, &price, &stock, &createdAt); err != nil {
			return nil, err
		}
		p := ledger.Product{
			ID:        ledger.ProductID(id),
			Name:      name,
			Unit:      unit,
			Stock:     stock,
			CreatedAt: decodeTime(createdAt),
		}
		if p.DefaultPrice, err = decimal.NewFromString(price); err != nil {
			return nil, fmt.Errorf("product %s: bad price %q: %w", id, price, err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (s *Store) loadInvoices() ([]ledger.Invoice, error) {
	rows, err := s.db.Query(
		`SELECT id, doc_type, customer_id, customer_name, total_amount, paid_amount, status, note, created_at
		 FROM invoices ORDER BY log_position`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []ledger.Invoice
	index := make(map[ledger.InvoiceID]int)
	for rows.Next() {
		var id, docType, customerID, customerName, total, paid, status, note, createdAt string
		if err := rows.Scan(&id, &docType, &customerID, &customerName, &total, &paid, &status, &note, &createdAt); err != nil {
			return nil, err
		}
		inv := ledger.Invoice{
			ID:           ledger.InvoiceID(id),
			Type:         ledger.DocumentType(docType),
			CustomerID:   ledger.CustomerID(customerID),
			CustomerName: customerName,
			Status:       ledger.Status(status),
			Note:         note,
			CreatedAt:    decodeTime(createdAt),
		}
		if inv.TotalAmount, err = decimal.NewFromString(total); err != nil {
			return nil, fmt.Errorf("invoice %s: bad total %q: %w", id, total, err)
		}
		if inv.PaidAmount, err = decimal.NewFromString(paid); err != nil {
			return nil, fmt.Errorf("invoice %s: bad paid %q: %w", id, paid, err)
		}
		index[inv.ID] = len(out)
		out = append(out, inv)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	itemRows, err := s.db.Query(
		`SELECT invoice_id, product_id, name, qty, unit_price
		 FROM invoice_items ORDER BY invoice_id, line_no`)
	if err != nil {
		return nil, err
	}
	defer itemRows.Close()

	for itemRows.Next() {
		var invoiceID, productID, name, price string
		var qty int64
		if err := itemRows.Scan(&invoiceID, &productID, &name, &qty, &price); err != nil {
			return nil, err
		}
		i, ok := index[ledger.InvoiceID(invoiceID)]
		if !ok {
			continue
		}
		li := ledger.LineItem{
			ProductID: ledger.ProductID(productID),
			Name:      name,
			Qty:       qty,
		}
		if li.UnitPrice, err = decimal.NewFromString(price); err != nil {
			return nil, fmt.Errorf("invoice %s: bad item price %q: %w", invoiceID, price, err)
		}
		out[i].Items = append(out[i].Items, li)
	}
	return out, itemRows.Err()
}

func (s *Store) loadPrices() (map[string]decimal.Decimal, error) {
	rows, err := s.db.Query(`SELECT pair_key, unit_price FROM custom_prices`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[string]decimal.Decimal)
	for rows.Next() {
		var key, price string
		if err := rows.Scan(&key, &price); err != nil {
			return nil, err
		}
		d, err := decimal.NewFromString(price)
		if err != nil {
			return nil, fmt.Errorf("price %s: bad value %q: %w", key, price, err)
		}
		out[key] = d
	}
	return out, rows.Err()
}

// =============================================================================
// TIME ENCODING
// =============================================================================

func encodeTime(tp ledger.TimePoint) string {
	return tp.Time().UTC().Format(time.RFC3339Nano)
}

func decodeTime(s string) ledger.TimePoint {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return ledger.TimePoint{}
	}
	return ledger.At(t)
}
