package invoice

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.etcd.io/bbolt"
)

const (
	bucketName      = "invoices"
	numberIndexName = "invoice_numbers"
)

// DB defines the interface for database operations
type DB interface {
	// SaveInvoice inserts a new invoice. It returns ErrDuplicateInvoice
	// when the id or invoice number is already stored.
	SaveInvoice(invoice *Invoice) error

	// GetInvoice retrieves an invoice by ID
	GetInvoice(id string) (*Invoice, error)

	// ListInvoices returns all invoices, newest invoice date first
	ListInvoices() ([]*Invoice, error)

	// SearchInvoices returns invoices whose number, buyer, seller or notes
	// contain keyword, compared with Unicode case folding in every backend
	SearchInvoices(keyword string) ([]*Invoice, error)

	// DeleteInvoice removes an invoice from the database
	DeleteInvoice(id string) error

	// Statistics sums amounts over all invoices
	Statistics() (*Statistics, error)

	// Close closes the database connection
	Close() error
}

// BoltDB implements the DB interface using BoltDB
type BoltDB struct {
	db *bbolt.DB
}

// NewBoltDB creates a new BoltDB instance
func NewBoltDB(path string) (*BoltDB, error) {
	db, err := bbolt.Open(path, 0600, &bbolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("opening boltdb: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists([]byte(bucketName)); err != nil {
			return err
		}
		if _, err := tx.CreateBucketIfNotExists([]byte(numberIndexName)); err != nil {
			return err
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating buckets: %w", err)
	}

	return &BoltDB{db: db}, nil
}

// SaveInvoice stores the record and claims its number in one transaction
func (b *BoltDB) SaveInvoice(invoice *Invoice) error {
	return b.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(bucketName))
		index := tx.Bucket([]byte(numberIndexName))

		if bucket.Get([]byte(invoice.ID)) != nil {
			return fmt.Errorf("%w: id %s", ErrDuplicateInvoice, invoice.ID)
		}
		if index.Get([]byte(invoice.InvoiceNumber)) != nil {
			return fmt.Errorf("%w: %s", ErrDuplicateInvoice, invoice.InvoiceNumber)
		}

		data, err := json.Marshal(invoice)
		if err != nil {
			return fmt.Errorf("marshaling invoice: %w", err)
		}
		if err := bucket.Put([]byte(invoice.ID), data); err != nil {
			return err
		}
		return index.Put([]byte(invoice.InvoiceNumber), []byte(invoice.ID))
	})
}

// GetInvoice retrieves an invoice by ID
func (b *BoltDB) GetInvoice(id string) (*Invoice, error) {
	var invoice *Invoice
	err := b.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket([]byte(bucketName)).Get([]byte(id))
		if data == nil {
			return fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		return json.Unmarshal(data, &invoice)
	})
	if err != nil {
		return nil, err
	}
	return invoice, nil
}

// ListInvoices returns all invoices
func (b *BoltDB) ListInvoices() ([]*Invoice, error) {
	return b.filter(func(*Invoice) bool { return true })
}

// SearchInvoices returns the invoices matching keyword
func (b *BoltDB) SearchInvoices(keyword string) ([]*Invoice, error) {
	return b.filter(func(inv *Invoice) bool { return inv.matches(keyword) })
}

func (b *BoltDB) filter(keep func(*Invoice) bool) ([]*Invoice, error) {
	invoices := make([]*Invoice, 0)
	err := b.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket([]byte(bucketName)).ForEach(func(k, v []byte) error {
			var invoice Invoice
			if err := json.Unmarshal(v, &invoice); err != nil {
				return fmt.Errorf("unmarshaling invoice: %w", err)
			}
			if keep(&invoice) {
				invoices = append(invoices, &invoice)
			}
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	sortInvoices(invoices)
	return invoices, nil
}

// DeleteInvoice removes an invoice and releases its number
func (b *BoltDB) DeleteInvoice(id string) error {
	return b.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(bucketName))
		data := bucket.Get([]byte(id))
		if data == nil {
			return fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		var invoice Invoice
		if err := json.Unmarshal(data, &invoice); err != nil {
			return fmt.Errorf("unmarshaling invoice: %w", err)
		}
		if err := tx.Bucket([]byte(numberIndexName)).Delete([]byte(invoice.InvoiceNumber)); err != nil {
			return err
		}
		return bucket.Delete([]byte(id))
	})
}

// Statistics sums amounts over all invoices
func (b *BoltDB) Statistics() (*Statistics, error) {
	invoices, err := b.ListInvoices()
	if err != nil {
		return nil, err
	}
	return summarize(invoices), nil
}

// Close closes the database connection
func (b *BoltDB) Close() error {
	return b.db.Close()
}

// sortInvoices orders by invoice date descending, then number ascending
func sortInvoices(invoices []*Invoice) {
	sort.SliceStable(invoices, func(i, j int) bool {
		if invoices[i].InvoiceDate != invoices[j].InvoiceDate {
			return invoices[i].InvoiceDate > invoices[j].InvoiceDate
		}
		return invoices[i].InvoiceNumber < invoices[j].InvoiceNumber
	})
}

func summarize(invoices []*Invoice) *Statistics {
	stats := &Statistics{TotalAmount: decimal.Zero, TotalTax: decimal.Zero}
	for _, inv := range invoices {
		stats.TotalCount++
		stats.TotalAmount = stats.TotalAmount.Add(inv.TotalAmount)
		stats.TotalTax = stats.TotalTax.Add(inv.TaxAmount)
	}
	return stats
}

func containsFold(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}
