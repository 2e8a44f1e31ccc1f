package extraction

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/shopspring/decimal"
)

func dec(s string) *decimal.Decimal {
	return ptr(decimal.RequireFromString(s))
}

var _ = Describe("Normalize", func() {
	var (
		input  Fields
		output Fields
	)

	JustBeforeEach(func() {
		output = Normalize(input)
	})

	When("only the amount is present", func() {
		BeforeEach(func() {
			input = Fields{Amount: dec("100.00")}
		})

		It("should assume the fallback tax rate", func() {
			Expect(fixed(output.TaxAmount)).To(Equal("13.00"))
		})

		It("should derive the total", func() {
			Expect(fixed(output.TotalAmount)).To(Equal("113.00"))
		})

		It("should not modify the input", func() {
			Expect(input.TaxAmount).To(BeNil())
			Expect(input.TotalAmount).To(BeNil())
		})
	})

	When("amount and tax are present", func() {
		BeforeEach(func() {
			input = Fields{Amount: dec("200.00"), TaxAmount: dec("26.00")}
		})

		It("should add them", func() {
			Expect(fixed(output.TotalAmount)).To(Equal("226.00"))
		})

		It("should keep the matched tax", func() {
			Expect(fixed(output.TaxAmount)).To(Equal("26.00"))
		})
	})

	When("a total was matched directly", func() {
		BeforeEach(func() {
			input = Fields{Amount: dec("100.00"), TaxAmount: dec("5.00"), TotalAmount: dec("500.00")}
		})

		It("should leave every amount unchanged", func() {
			Expect(fixed(output.TotalAmount)).To(Equal("500.00"))
			Expect(fixed(output.TaxAmount)).To(Equal("5.00"))
			Expect(fixed(output.Amount)).To(Equal("100.00"))
		})
	})

	When("only the tax is present", func() {
		BeforeEach(func() {
			input = Fields{TaxAmount: dec("13.00")}
		})

		It("should not fabricate a total", func() {
			Expect(output.TotalAmount).To(BeNil())
			Expect(output.Amount).To(BeNil())
		})
	})

	When("no amounts are present", func() {
		BeforeEach(func() {
			input = Fields{InvoiceNumber: ptr("12345678")}
		})

		It("should return the fields unchanged", func() {
			Expect(output.Equal(input)).To(BeTrue())
		})
	})

	When("the amount has more than two decimals of tax", func() {
		BeforeEach(func() {
			input = Fields{Amount: dec("10.05")}
		})

		It("should round the tax to cents", func() {
			Expect(output.TaxAmount.String()).To(Equal("1.31"))
			Expect(fixed(output.TotalAmount)).To(Equal("11.36"))
		})
	})
})

var _ = Describe("Normalizer", func() {
	It("should use its configured rate", func() {
		n := Normalizer{TaxRate: decimal.RequireFromString("0.06")}
		out := n.Normalize(Fields{Amount: dec("100")})
		Expect(fixed(out.TaxAmount)).To(Equal("6.00"))
		Expect(fixed(out.TotalAmount)).To(Equal("106.00"))
	})

	DescribeTable("is idempotent",
		func(f Fields) {
			once := Normalize(f)
			Expect(Normalize(once).Equal(once)).To(BeTrue())
		},
		Entry("empty", Fields{}),
		Entry("amount only", Fields{Amount: dec("100.00")}),
		Entry("amount and tax", Fields{Amount: dec("200.00"), TaxAmount: dec("26.00")}),
		Entry("total only", Fields{TotalAmount: dec("500.00")}),
		Entry("tax only", Fields{TaxAmount: dec("3.00")}),
		Entry("odd cents", Fields{Amount: dec("0.07")}),
	)
})
