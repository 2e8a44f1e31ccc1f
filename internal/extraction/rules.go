package extraction

import (
	"errors"
	"fmt"
	"os"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

// Rules holds the heuristic thresholds used by extraction and normalization.
// The defaults match common VAT invoices; they are guesses, not law.
type Rules struct {
	// FallbackTaxRate is applied when only a pre-tax amount was found.
	FallbackTaxRate decimal.Decimal
	// MinNameLength is exclusive: a name must be longer than this, in runes.
	MinNameLength int
	TaxIDMinLength int
	TaxIDMaxLength int
}

// DefaultRules returns a 13% fallback rate, names longer than 2 characters
// and tax IDs of 15 to 20 characters.
func DefaultRules() Rules {
	return Rules{
		FallbackTaxRate: decimal.RequireFromString("0.13"),
		MinNameLength:   2,
		TaxIDMinLength:  15,
		TaxIDMaxLength:  20,
	}
}

// Validate checks that the rules can build a working extractor.
func (r Rules) Validate() error {
	if r.FallbackTaxRate.IsNegative() {
		return errors.New("fallback tax rate must not be negative")
	}
	if r.MinNameLength < 0 {
		return errors.New("minimum name length must not be negative")
	}
	if r.TaxIDMinLength < 1 || r.TaxIDMaxLength < r.TaxIDMinLength {
		return fmt.Errorf("invalid tax id length range %d-%d", r.TaxIDMinLength, r.TaxIDMaxLength)
	}
	// RE2 rejects repeat counts above 1000.
	if r.TaxIDMaxLength > 1000 {
		return fmt.Errorf("tax id max length %d too large", r.TaxIDMaxLength)
	}
	return nil
}

// rulesFile is the YAML layout of a rules override file. Omitted keys keep
// their defaults.
type rulesFile struct {
	FallbackTaxRate *string `yaml:"fallback_tax_rate"`
	MinNameLength   *int    `yaml:"min_name_length"`
	TaxIDLength     *struct {
		Min int `yaml:"min"`
		Max int `yaml:"max"`
	} `yaml:"tax_id_length"`
}

// ParseRules reads YAML overrides on top of DefaultRules.
func ParseRules(data []byte) (Rules, error) {
	rules := DefaultRules()

	var rf rulesFile
	if err := yaml.Unmarshal(data, &rf); err != nil {
		return Rules{}, fmt.Errorf("unmarshaling rules: %w", err)
	}

	if rf.FallbackTaxRate != nil {
		rate, err := decimal.NewFromString(*rf.FallbackTaxRate)
		if err != nil {
			return Rules{}, fmt.Errorf("parsing fallback_tax_rate: %w", err)
		}
		rules.FallbackTaxRate = rate
	}
	if rf.MinNameLength != nil {
		rules.MinNameLength = *rf.MinNameLength
	}
	if rf.TaxIDLength != nil {
		rules.TaxIDMinLength = rf.TaxIDLength.Min
		rules.TaxIDMaxLength = rf.TaxIDLength.Max
	}

	if err := rules.Validate(); err != nil {
		return Rules{}, err
	}
	return rules, nil
}

// LoadRules reads a YAML rules file. An empty path yields DefaultRules.
func LoadRules(path string) (Rules, error) {
	if path == "" {
		return DefaultRules(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Rules{}, fmt.Errorf("reading rules file: %w", err)
	}
	return ParseRules(data)
}
