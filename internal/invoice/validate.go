package invoice

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"time"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

//go:embed schema/invoice.json
var invoiceSchemaJSON []byte

var invoiceSchema = mustCompileSchema()

func mustCompileSchema() *jsonschema.Schema {
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("invoice.json", bytes.NewReader(invoiceSchemaJSON)); err != nil {
		panic(fmt.Sprintf("adding invoice schema: %v", err))
	}
	return compiler.MustCompile("invoice.json")
}

// Validate checks an invoice before it is stored. Errors wrap
// ErrInvalidInvoice.
func Validate(inv *Invoice) error {
	data, err := json.Marshal(inv)
	if err != nil {
		return fmt.Errorf("marshaling invoice: %w", err)
	}
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return fmt.Errorf("unmarshaling invoice: %w", err)
	}
	if err := invoiceSchema.Validate(v); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidInvoice, err)
	}

	if _, err := time.Parse("2006-01-02", inv.InvoiceDate); err != nil {
		return fmt.Errorf("%w: invoice date %q is not a calendar date", ErrInvalidInvoice, inv.InvoiceDate)
	}
	if !inv.Amount.IsPositive() {
		return fmt.Errorf("%w: amount must be greater than 0", ErrInvalidInvoice)
	}
	if inv.TaxAmount.IsNegative() {
		return fmt.Errorf("%w: tax amount must not be negative", ErrInvalidInvoice)
	}
	if inv.TotalAmount.IsNegative() {
		return fmt.Errorf("%w: total amount must not be negative", ErrInvalidInvoice)
	}
	return nil
}
