package invoice

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/zombor/invoice-manager/internal/extraction"
)

var _ = Describe("Candidate", func() {
	Describe("Invoice", func() {
		It("should prefill the extracted fields", func() {
			c := &Candidate{
				ID:          "c-1",
				Filename:    "c-1_scan.png",
				ContentType: "image/png",
				Fields:      extraction.Parse("发票号码：12345678\n金额：100.00"),
			}
			inv := c.Invoice()
			Expect(inv.ID).To(Equal("c-1"))
			Expect(inv.Filename).To(Equal("c-1_scan.png"))
			Expect(inv.InvoiceNumber).To(Equal("12345678"))
			Expect(inv.InvoiceDate).To(BeEmpty())
			Expect(inv.Amount.StringFixed(2)).To(Equal("100.00"))
			Expect(inv.TaxAmount.StringFixed(2)).To(Equal("13.00"))
			Expect(inv.TotalAmount.StringFixed(2)).To(Equal("113.00"))
		})

		It("should leave absent amounts at zero", func() {
			inv := (&Candidate{}).Invoice()
			Expect(inv.Amount.IsZero()).To(BeTrue())
			Expect(inv.BuyerName).To(BeEmpty())
		})
	})
})

var _ = Describe("Invoice.matches", func() {
	It("should ignore case", func() {
		inv := &Invoice{Notes: "Taxi to Airport"}
		Expect(inv.matches("AIRPORT")).To(BeTrue())
		Expect(inv.matches("hotel")).To(BeFalse())
	})
})
