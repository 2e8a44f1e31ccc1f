package extraction

import (
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("ParseRules", func() {
	var (
		data  string
		rules Rules
		err   error
	)

	JustBeforeEach(func() {
		rules, err = ParseRules([]byte(data))
	})

	When("the file is empty", func() {
		BeforeEach(func() {
			data = ""
		})

		It("should not return an error", func() {
			Expect(err).NotTo(HaveOccurred())
		})

		It("should keep the defaults", func() {
			Expect(rules.FallbackTaxRate.String()).To(Equal("0.13"))
			Expect(rules.MinNameLength).To(Equal(2))
			Expect(rules.TaxIDMinLength).To(Equal(15))
			Expect(rules.TaxIDMaxLength).To(Equal(20))
		})
	})

	When("every key is overridden", func() {
		BeforeEach(func() {
			data = "fallback_tax_rate: \"0.06\"\nmin_name_length: 3\ntax_id_length:\n  min: 18\n  max: 18\n"
		})

		It("should not return an error", func() {
			Expect(err).NotTo(HaveOccurred())
		})

		It("should apply the overrides", func() {
			Expect(rules.FallbackTaxRate.String()).To(Equal("0.06"))
			Expect(rules.MinNameLength).To(Equal(3))
			Expect(rules.TaxIDMinLength).To(Equal(18))
			Expect(rules.TaxIDMaxLength).To(Equal(18))
		})
	})

	When("the rate is not a number", func() {
		BeforeEach(func() {
			data = "fallback_tax_rate: lots\n"
		})

		It("returns the error", func() {
			Expect(err).To(HaveOccurred())
		})
	})

	When("the rate is negative", func() {
		BeforeEach(func() {
			data = "fallback_tax_rate: \"-0.1\"\n"
		})

		It("returns the error", func() {
			Expect(err).To(MatchError("fallback tax rate must not be negative"))
		})
	})

	When("the tax id range is inverted", func() {
		BeforeEach(func() {
			data = "tax_id_length:\n  min: 20\n  max: 15\n"
		})

		It("returns the error", func() {
			Expect(err).To(MatchError("invalid tax id length range 20-15"))
		})
	})

	When("the yaml is malformed", func() {
		BeforeEach(func() {
			data = "min_name_length: [1"
		})

		It("returns the error", func() {
			Expect(err).To(HaveOccurred())
		})
	})
})

var _ = Describe("LoadRules", func() {
	When("no path is given", func() {
		It("should return the defaults", func() {
			rules, err := LoadRules("")
			Expect(err).NotTo(HaveOccurred())
			Expect(rules.MinNameLength).To(Equal(DefaultRules().MinNameLength))
		})
	})

	When("the file exists", func() {
		It("should read it", func() {
			path := filepath.Join(GinkgoT().TempDir(), "rules.yaml")
			Expect(os.WriteFile(path, []byte("min_name_length: 4\n"), 0644)).To(Succeed())
			rules, err := LoadRules(path)
			Expect(err).NotTo(HaveOccurred())
			Expect(rules.MinNameLength).To(Equal(4))
		})
	})

	When("the file does not exist", func() {
		It("returns the error", func() {
			_, err := LoadRules(filepath.Join(GinkgoT().TempDir(), "missing.yaml"))
			Expect(err).To(HaveOccurred())
		})
	})
})
