package invoice

import (
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS invoices (
	id TEXT PRIMARY KEY,
	invoice_number TEXT NOT NULL UNIQUE,
	invoice_date TEXT NOT NULL,
	buyer_name TEXT,
	buyer_tax_id TEXT,
	seller_name TEXT,
	seller_tax_id TEXT,
	amount TEXT NOT NULL,
	tax_amount TEXT,
	total_amount TEXT NOT NULL,
	invoice_type TEXT,
	status TEXT DEFAULT '正常',
	notes TEXT,
	filename TEXT,
	content_type TEXT,
	created_at TEXT NOT NULL,
	updated_at TEXT NOT NULL
)`

const invoiceColumns = `id, invoice_number, invoice_date, buyer_name, buyer_tax_id,
	seller_name, seller_tax_id, amount, tax_amount, total_amount,
	invoice_type, status, notes, filename, content_type, created_at, updated_at`

const orderBy = ` ORDER BY invoice_date DESC, invoice_number ASC`

// contains_fold gives SQLite the same Unicode case folding as BoltDB;
// LIKE only folds ASCII.
func init() {
	sqlite.MustRegisterDeterministicScalarFunction("contains_fold", 2,
		func(_ *sqlite.FunctionContext, args []driver.Value) (driver.Value, error) {
			if containsFold(textArg(args[0]), textArg(args[1])) {
				return int64(1), nil
			}
			return int64(0), nil
		})
}

// SQLiteDB implements the DB interface using SQLite. Amounts are stored
// as decimal text so sums stay exact.
type SQLiteDB struct {
	db *sql.DB
}

// NewSQLiteDB opens (or creates) the database and ensures the schema exists
func NewSQLiteDB(path string) (*SQLiteDB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return &SQLiteDB{db: db}, nil
}

// SaveInvoice inserts a new invoice
func (s *SQLiteDB) SaveInvoice(inv *Invoice) error {
	_, err := s.db.Exec(`INSERT INTO invoices (`+invoiceColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		inv.ID, inv.InvoiceNumber, inv.InvoiceDate, inv.BuyerName, inv.BuyerTaxID,
		inv.SellerName, inv.SellerTaxID, inv.Amount.String(), inv.TaxAmount.String(), inv.TotalAmount.String(),
		inv.InvoiceType, inv.Status, inv.Notes, inv.Filename, inv.ContentType,
		inv.CreatedAt.Format(time.RFC3339Nano), inv.UpdatedAt.Format(time.RFC3339Nano),
	)
	if isConstraintViolation(err) {
		return fmt.Errorf("%w: %s", ErrDuplicateInvoice, inv.InvoiceNumber)
	}
	if err != nil {
		return fmt.Errorf("inserting invoice: %w", err)
	}
	return nil
}

// GetInvoice retrieves an invoice by ID
func (s *SQLiteDB) GetInvoice(id string) (*Invoice, error) {
	row := s.db.QueryRow(`SELECT `+invoiceColumns+` FROM invoices WHERE id = ?`, id)
	inv, err := scanInvoice(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	return inv, nil
}

// ListInvoices returns all invoices
func (s *SQLiteDB) ListInvoices() ([]*Invoice, error) {
	return s.query(`SELECT ` + invoiceColumns + ` FROM invoices` + orderBy)
}

// SearchInvoices returns the invoices matching keyword
func (s *SQLiteDB) SearchInvoices(keyword string) ([]*Invoice, error) {
	return s.query(`SELECT `+invoiceColumns+` FROM invoices
		WHERE contains_fold(invoice_number, ?)
		OR contains_fold(buyer_name, ?)
		OR contains_fold(seller_name, ?)
		OR contains_fold(notes, ?)`+orderBy,
		keyword, keyword, keyword, keyword)
}

// DeleteInvoice removes an invoice from the database
func (s *SQLiteDB) DeleteInvoice(id string) error {
	res, err := s.db.Exec(`DELETE FROM invoices WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting invoice: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("deleting invoice: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return nil
}

// Statistics sums amounts over all invoices
func (s *SQLiteDB) Statistics() (*Statistics, error) {
	invoices, err := s.ListInvoices()
	if err != nil {
		return nil, err
	}
	return summarize(invoices), nil
}

// Close closes the database connection
func (s *SQLiteDB) Close() error {
	return s.db.Close()
}

func (s *SQLiteDB) query(q string, args ...any) ([]*Invoice, error) {
	rows, err := s.db.Query(q, args...)
	if err != nil {
		return nil, fmt.Errorf("querying invoices: %w", err)
	}
	defer rows.Close()

	invoices := make([]*Invoice, 0)
	for rows.Next() {
		inv, err := scanInvoice(rows)
		if err != nil {
			return nil, err
		}
		invoices = append(invoices, inv)
	}
	return invoices, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanInvoice(row rowScanner) (*Invoice, error) {
	var (
		inv                                        Invoice
		buyer, buyerTax, seller, sellerTax, notes  sql.NullString
		invoiceType, status, filename, contentType sql.NullString
		amount, tax, total, createdAt, updatedAt   string
	)
	err := row.Scan(&inv.ID, &inv.InvoiceNumber, &inv.InvoiceDate, &buyer, &buyerTax,
		&seller, &sellerTax, &amount, &tax, &total,
		&invoiceType, &status, &notes, &filename, &contentType, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}
	inv.BuyerName = buyer.String
	inv.BuyerTaxID = buyerTax.String
	inv.SellerName = seller.String
	inv.SellerTaxID = sellerTax.String
	inv.InvoiceType = invoiceType.String
	inv.Status = status.String
	inv.Notes = notes.String
	inv.Filename = filename.String
	inv.ContentType = contentType.String

	if inv.Amount, err = decimal.NewFromString(amount); err != nil {
		return nil, fmt.Errorf("parsing amount of %s: %w", inv.ID, err)
	}
	if inv.TaxAmount, err = decimal.NewFromString(tax); err != nil {
		return nil, fmt.Errorf("parsing tax amount of %s: %w", inv.ID, err)
	}
	if inv.TotalAmount, err = decimal.NewFromString(total); err != nil {
		return nil, fmt.Errorf("parsing total amount of %s: %w", inv.ID, err)
	}
	if inv.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt); err != nil {
		return nil, fmt.Errorf("parsing created_at of %s: %w", inv.ID, err)
	}
	if inv.UpdatedAt, err = time.Parse(time.RFC3339Nano, updatedAt); err != nil {
		return nil, fmt.Errorf("parsing updated_at of %s: %w", inv.ID, err)
	}
	return &inv, nil
}

func isConstraintViolation(err error) bool {
	var sqliteErr *sqlite.Error
	if !errors.As(err, &sqliteErr) {
		return false
	}
	switch sqliteErr.Code() {
	case sqlite3.SQLITE_CONSTRAINT_UNIQUE, sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY:
		return true
	}
	return false
}

// textArg reads a TEXT argument of a SQL function; NULL reads as "".
func textArg(v driver.Value) string {
	switch t := v.(type) {
	case string:
		return t
	case []byte:
		return string(t)
	default:
		return ""
	}
}
