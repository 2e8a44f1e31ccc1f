package extraction

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/shopspring/decimal"
)

// Labels that introduce a taxpayer identifier on Chinese VAT invoices.
const taxIDLabel = `(?:税号|纳税人识别号|统一社会信用代码)`

const (
	// ws also matches the ideographic space and NBSP that Chinese OCR emits.
	ws           = `[\s\p{Zs}]*`
	moneyPattern = `([0-9,]+\.?\d*)`
	datePattern  = `(\d{4})[年\-/](\d{1,2})[月\-/](\d{1,2})`
)

var trailingTaxIDLabel = regexp.MustCompile(taxIDLabel + `.*`)

// pattern is one step of a field's fallback chain. accept turns the
// submatches into a value and may reject the match, in which case the
// chain moves on to the next pattern.
type pattern struct {
	re     *regexp.Regexp
	accept func(m []string) (string, bool)
}

type chain []pattern

// first returns the value of the first pattern that matches and is
// accepted. A panic inside the chain is treated as no match.
func (c chain) first(text string) (value string, ok bool) {
	defer func() {
		if r := recover(); r != nil {
			value, ok = "", false
		}
	}()
	for _, p := range c {
		m := p.re.FindStringSubmatch(text)
		if m == nil {
			continue
		}
		if v, accepted := p.accept(m); accepted {
			return v, true
		}
	}
	return "", false
}

func group(m []string) (string, bool) {
	return m[1], true
}

// dateGroups zero-pads month and day.
func dateGroups(m []string) (string, bool) {
	month, err := strconv.Atoi(m[2])
	if err != nil {
		return "", false
	}
	day, err := strconv.Atoi(m[3])
	if err != nil {
		return "", false
	}
	return fmt.Sprintf("%s-%02d-%02d", m[1], month, day), true
}

func compile(patterns ...string) []*regexp.Regexp {
	out := make([]*regexp.Regexp, len(patterns))
	for i, p := range patterns {
		out[i] = regexp.MustCompile(p)
	}
	return out
}

func chainOf(accept func([]string) (string, bool), res ...*regexp.Regexp) chain {
	c := make(chain, len(res))
	for i, re := range res {
		c[i] = pattern{re: re, accept: accept}
	}
	return c
}

// Extractor turns recognized invoice text into Fields. It is immutable and
// safe for concurrent use.
type Extractor struct {
	rules      Rules
	normalizer Normalizer

	invoiceNumber chain
	invoiceDate   chain
	buyerName     chain
	buyerTaxID    chain
	sellerName    chain
	sellerTaxID   chain
	amount        chain
	taxAmount     chain
	totalAmount   chain
}

// NewExtractor compiles the pattern chains for the given rules.
func NewExtractor(rules Rules) (*Extractor, error) {
	if err := rules.Validate(); err != nil {
		return nil, fmt.Errorf("invalid rules: %w", err)
	}

	taxID := fmt.Sprintf(`([A-Z0-9]{%d,%d})`, rules.TaxIDMinLength, rules.TaxIDMaxLength)
	name := func(m []string) (string, bool) {
		n := strings.TrimSpace(m[1])
		n = strings.TrimSpace(trailingTaxIDLabel.ReplaceAllString(n, ""))
		return n, utf8.RuneCountInString(n) > rules.MinNameLength
	}

	return &Extractor{
		rules:      rules,
		normalizer: Normalizer{TaxRate: rules.FallbackTaxRate},

		invoiceNumber: chainOf(group, compile(
			`发票号码[：:]`+ws+`([0-9]{8,12})`,
			`号码[：:]`+ws+`([0-9]{8,12})`,
			`No[.:]`+ws+`([0-9]{8,12})`,
			`([0-9]{8,12})`,
		)...),
		invoiceDate: chainOf(dateGroups, compile(
			datePattern+`日?`,
			`(\d{4})-(\d{1,2})-(\d{1,2})`,
			`开票日期[：:]`+ws+datePattern,
		)...),
		buyerName: chainOf(name, compile(
			`购买方[：:]`+ws+`([^\n]+)`,
			`买方[：:]`+ws+`([^\n]+)`,
			`名称[：:]`+ws+`([^\n]+)`,
		)...),
		buyerTaxID: chainOf(group, compile(
			`购买方(?s:.*?)`+taxIDLabel+`[：:]`+ws+taxID,
			`税号[：:]`+ws+taxID,
			`纳税人识别号[：:]`+ws+taxID,
		)...),
		sellerName: chainOf(name, compile(
			`销售方[：:]`+ws+`([^\n]+)`,
			`卖方[：:]`+ws+`([^\n]+)`,
		)...),
		sellerTaxID: chainOf(group, compile(
			`销售方(?s:.*?)`+taxIDLabel+`[：:]`+ws+taxID,
		)...),
		amount: chainOf(group, compile(
			`金额[：:]`+ws+`[¥￥]?`+ws+moneyPattern,
			`不含税金额[：:]`+ws+`[¥￥]?`+ws+moneyPattern,
			`[¥￥]`+ws+moneyPattern+ws+`元`,
		)...),
		taxAmount: chainOf(group, compile(
			`税额[：:]`+ws+`[¥￥]?`+ws+moneyPattern,
			`[¥￥]`+ws+moneyPattern+ws+`元.*?税`,
		)...),
		totalAmount: chainOf(group, compile(
			`合计[：:]`+ws+`[¥￥]?`+ws+moneyPattern,
			`价税合计[：:]`+ws+`[¥￥]?`+ws+moneyPattern,
			`总计[：:]`+ws+`[¥￥]?`+ws+moneyPattern,
		)...),
	}, nil
}

// MustNewExtractor is like NewExtractor but panics on invalid rules.
func MustNewExtractor(rules Rules) *Extractor {
	e, err := NewExtractor(rules)
	if err != nil {
		panic(err)
	}
	return e
}

// Rules returns the rules the extractor was built with.
func (e *Extractor) Rules() Rules {
	return e.rules
}

// Extract reads every field it can find from text. It never fails: fields
// without a match, or whose amount does not parse, are left nil.
func (e *Extractor) Extract(text string) Fields {
	var f Fields
	if strings.TrimSpace(text) == "" {
		return f
	}

	f.InvoiceNumber = e.str(e.invoiceNumber, text)
	f.InvoiceDate = e.str(e.invoiceDate, text)
	f.BuyerName = e.str(e.buyerName, text)
	f.BuyerTaxID = e.str(e.buyerTaxID, text)
	f.SellerName = e.str(e.sellerName, text)
	f.SellerTaxID = e.str(e.sellerTaxID, text)
	f.Amount = e.money(e.amount, text)
	f.TaxAmount = e.money(e.taxAmount, text)
	f.TotalAmount = e.money(e.totalAmount, text)
	return f
}

// Parse extracts and then normalizes.
func (e *Extractor) Parse(text string) Fields {
	return e.normalizer.Normalize(e.Extract(text))
}

func (e *Extractor) str(c chain, text string) *string {
	v, ok := c.first(text)
	if !ok {
		return nil
	}
	return &v
}

// money stops at the first matching pattern even when its capture does not
// parse; later patterns are not consulted.
func (e *Extractor) money(c chain, text string) *decimal.Decimal {
	v, ok := c.first(text)
	if !ok {
		return nil
	}
	d, err := parseAmount(v)
	if err != nil {
		return nil
	}
	return &d
}

// parseAmount parses a number with optional thousands separators, such as
// "1,234.50" or "88.".
func parseAmount(s string) (decimal.Decimal, error) {
	s = strings.ReplaceAll(s, ",", "")
	s = strings.TrimSuffix(s, ".")
	if s == "" {
		return decimal.Zero, fmt.Errorf("empty amount")
	}
	return decimal.NewFromString(s)
}

var defaultExtractor = MustNewExtractor(DefaultRules())

// Extract runs the default extractor.
func Extract(text string) Fields {
	return defaultExtractor.Extract(text)
}

// Parse runs the default extractor followed by the default normalizer.
func Parse(text string) Fields {
	return defaultExtractor.Parse(text)
}
