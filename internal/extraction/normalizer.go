package extraction

import "github.com/shopspring/decimal"

// Normalizer fills in tax and total amounts that extraction could not find.
type Normalizer struct {
	// TaxRate is assumed when only the pre-tax amount is known.
	TaxRate decimal.Decimal
}

// Normalize applies the first rule that fits:
//
//  1. a total is present: nothing changes
//  2. amount and tax are present: total = amount + tax
//  3. only amount is present: tax = round(amount * TaxRate, 2), total = amount + tax
//  4. otherwise nothing is invented
//
// The input is not modified. Normalize is idempotent.
func (n Normalizer) Normalize(f Fields) Fields {
	out := f
	switch {
	case f.TotalAmount != nil:
	case f.Amount != nil && f.TaxAmount != nil:
		out.TotalAmount = ptr(f.Amount.Add(*f.TaxAmount))
	case f.Amount != nil:
		tax := f.Amount.Mul(n.TaxRate).Round(2)
		out.TaxAmount = ptr(tax)
		out.TotalAmount = ptr(f.Amount.Add(tax))
	}
	return out
}

// Normalize uses the default 13% fallback rate.
func Normalize(f Fields) Fields {
	return defaultExtractor.normalizer.Normalize(f)
}
