package invoice

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/shopspring/decimal"
)

var _ = Describe("Validate", func() {
	var inv *Invoice

	BeforeEach(func() {
		inv = testInvoice("id-1", "12345678", "2024-03-05")
	})

	It("should accept a complete invoice", func() {
		Expect(Validate(inv)).To(Succeed())
	})

	It("should accept empty optional fields", func() {
		inv.BuyerName = ""
		inv.BuyerTaxID = ""
		inv.SellerTaxID = ""
		inv.TaxAmount = decimal.Zero
		Expect(Validate(inv)).To(Succeed())
	})

	DescribeTable("rejects",
		func(mutate func(*Invoice)) {
			mutate(inv)
			Expect(Validate(inv)).To(MatchError(ErrInvalidInvoice))
		},
		Entry("a missing invoice number", func(i *Invoice) { i.InvoiceNumber = "" }),
		Entry("a missing date", func(i *Invoice) { i.InvoiceDate = "" }),
		Entry("a malformed date", func(i *Invoice) { i.InvoiceDate = "2024/03/05" }),
		Entry("an impossible date", func(i *Invoice) { i.InvoiceDate = "2024-02-30" }),
		Entry("a zero amount", func(i *Invoice) { i.Amount = decimal.Zero }),
		Entry("a negative amount", func(i *Invoice) { i.Amount = decimal.RequireFromString("-1") }),
		Entry("a negative tax", func(i *Invoice) { i.TaxAmount = decimal.RequireFromString("-0.01") }),
		Entry("an unknown invoice type", func(i *Invoice) { i.InvoiceType = "收据" }),
		Entry("an unknown status", func(i *Invoice) { i.Status = "已报销" }),
		Entry("a tax id with punctuation", func(i *Invoice) { i.BuyerTaxID = "9111-0108" }),
	)
})
