package extraction

import "github.com/shopspring/decimal"

// Fields is a best-effort, possibly incomplete set of invoice fields read
// from recognized text. A nil slot means the field was not found.
type Fields struct {
	InvoiceNumber *string          `json:"invoiceNumber,omitempty"`
	InvoiceDate   *string          `json:"invoiceDate,omitempty"` // YYYY-MM-DD
	BuyerName     *string          `json:"buyerName,omitempty"`
	BuyerTaxID    *string          `json:"buyerTaxId,omitempty"`
	SellerName    *string          `json:"sellerName,omitempty"`
	SellerTaxID   *string          `json:"sellerTaxId,omitempty"`
	Amount        *decimal.Decimal `json:"amount,omitempty"` // before tax
	TaxAmount     *decimal.Decimal `json:"taxAmount,omitempty"`
	TotalAmount   *decimal.Decimal `json:"totalAmount,omitempty"`
}

// Keys returns the names of the present fields in canonical order.
func (f Fields) Keys() []string {
	keys := make([]string, 0, 9)
	add := func(present bool, key string) {
		if present {
			keys = append(keys, key)
		}
	}
	add(f.InvoiceNumber != nil, "invoiceNumber")
	add(f.InvoiceDate != nil, "invoiceDate")
	add(f.BuyerName != nil, "buyerName")
	add(f.BuyerTaxID != nil, "buyerTaxId")
	add(f.SellerName != nil, "sellerName")
	add(f.SellerTaxID != nil, "sellerTaxId")
	add(f.Amount != nil, "amount")
	add(f.TaxAmount != nil, "taxAmount")
	add(f.TotalAmount != nil, "totalAmount")
	return keys
}

// IsEmpty reports whether no field was found.
func (f Fields) IsEmpty() bool {
	return len(f.Keys()) == 0
}

// Equal compares two field sets slot by slot. Amounts compare by value, so
// 13 and 13.00 are equal.
func (f Fields) Equal(o Fields) bool {
	return eqString(f.InvoiceNumber, o.InvoiceNumber) &&
		eqString(f.InvoiceDate, o.InvoiceDate) &&
		eqString(f.BuyerName, o.BuyerName) &&
		eqString(f.BuyerTaxID, o.BuyerTaxID) &&
		eqString(f.SellerName, o.SellerName) &&
		eqString(f.SellerTaxID, o.SellerTaxID) &&
		eqDecimal(f.Amount, o.Amount) &&
		eqDecimal(f.TaxAmount, o.TaxAmount) &&
		eqDecimal(f.TotalAmount, o.TotalAmount)
}

func eqString(a, b *string) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func eqDecimal(a, b *decimal.Decimal) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Equal(*b)
}

func ptr[T any](v T) *T {
	return &v
}
