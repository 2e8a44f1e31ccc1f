package invoice

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"github.com/zombor/invoice-manager/internal/extraction"
)

// Invoice types
const (
	TypeVAT        = "增值税发票"
	TypeOrdinary   = "普通发票"
	TypeElectronic = "电子发票"
)

// Invoice statuses
const (
	StatusNormal   = "正常"
	StatusVoid     = "作废"
	StatusReversed = "红冲"
)

var (
	ErrNotFound               = errors.New("invoice not found")
	ErrDuplicateInvoice       = errors.New("invoice number already exists")
	ErrInvalidInvoice         = errors.New("invalid invoice")
	ErrRecognitionFailed      = errors.New("recognition failed, try a different image")
	ErrRecognitionUnavailable = errors.New("recognition is not enabled")
	ErrAttachmentInUse        = errors.New("file is attached to a saved invoice")
)

// Invoice is a confirmed invoice record
type Invoice struct {
	ID            string          `json:"id"`
	InvoiceNumber string          `json:"invoice_number"`
	InvoiceDate   string          `json:"invoice_date"` // YYYY-MM-DD
	BuyerName     string          `json:"buyer_name"`
	BuyerTaxID    string          `json:"buyer_tax_id"`
	SellerName    string          `json:"seller_name"`
	SellerTaxID   string          `json:"seller_tax_id"`
	Amount        decimal.Decimal `json:"amount"`
	TaxAmount     decimal.Decimal `json:"tax_amount"`
	TotalAmount   decimal.Decimal `json:"total_amount"`
	InvoiceType   string          `json:"invoice_type"`
	Status        string          `json:"status"`
	Notes         string          `json:"notes"`
	Filename      string          `json:"filename,omitempty"` // attachment in storage
	ContentType   string          `json:"content_type,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

// Candidate is the unconfirmed result of scanning an invoice image
type Candidate struct {
	ID          string            `json:"id"`
	Filename    string            `json:"filename"`
	ContentType string            `json:"content_type"`
	Text        string            `json:"text"`
	Fields      extraction.Fields `json:"fields"`
}

// Invoice prefills an invoice from the candidate's fields. Absent fields
// are left empty for the user to complete.
func (c *Candidate) Invoice() *Invoice {
	f := c.Fields
	inv := &Invoice{
		ID:          c.ID,
		Filename:    c.Filename,
		ContentType: c.ContentType,
	}
	inv.InvoiceNumber = deref(f.InvoiceNumber)
	inv.InvoiceDate = deref(f.InvoiceDate)
	inv.BuyerName = deref(f.BuyerName)
	inv.BuyerTaxID = deref(f.BuyerTaxID)
	inv.SellerName = deref(f.SellerName)
	inv.SellerTaxID = deref(f.SellerTaxID)
	if f.Amount != nil {
		inv.Amount = *f.Amount
	}
	if f.TaxAmount != nil {
		inv.TaxAmount = *f.TaxAmount
	}
	if f.TotalAmount != nil {
		inv.TotalAmount = *f.TotalAmount
	}
	return inv
}

// Statistics summarizes the stored invoices
type Statistics struct {
	TotalCount  int             `json:"total_count"`
	TotalAmount decimal.Decimal `json:"total_amount"`
	TotalTax    decimal.Decimal `json:"total_tax"`
}

// matches reports whether keyword is a case-insensitive substring of the
// invoice number, buyer, seller or notes.
func (inv *Invoice) matches(keyword string) bool {
	for _, s := range []string{inv.InvoiceNumber, inv.BuyerName, inv.SellerName, inv.Notes} {
		if containsFold(s, keyword) {
			return true
		}
	}
	return false
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
