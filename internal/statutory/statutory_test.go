package statutory_test

import (
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/shopspring/decimal"

	"github.com/guardline/payroll-engine/internal/statutory"
)

func TestStatutory(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Statutory Suite")
}

var _ = Describe("ComputeDeductions", func() {
	var rates statutory.RateTable

	BeforeEach(func() {
		rates = statutory.DefaultRegistry().Lookup("IN-KA")
	})

	Context("provident fund", func() {
		It("should compute both shares from basic pay", func() {
			basic := decimal.NewFromInt(10800)
			gross := decimal.RequireFromString("16615.38")

			d, err := statutory.ComputeDeductions(basic, gross, rates)

			Expect(err).NotTo(HaveOccurred())
			Expect(d.EmployeePF.String()).To(Equal("1296"))
			Expect(d.EmployerPF.String()).To(Equal("1404"))
		})
	})

	Context("ESI eligibility ceiling", func() {
		It("should apply ESI at or below the ceiling", func() {
			gross := decimal.NewFromInt(21000)

			d, err := statutory.ComputeDeductions(decimal.NewFromInt(12600), gross, rates)

			Expect(err).NotTo(HaveOccurred())
			// 0.75% of 21000 = 157.5, rounded up to the next rupee
			Expect(d.EmployeeESI.String()).To(Equal("158"))
			Expect(d.EmployerESI.IsPositive()).To(BeTrue())
		})

		It("should zero both ESI shares above the ceiling", func() {
			gross := decimal.RequireFromString("21000.01")

			d, err := statutory.ComputeDeductions(decimal.NewFromInt(12600), gross, rates)

			Expect(err).NotTo(HaveOccurred())
			Expect(d.EmployeeESI.IsZero()).To(BeTrue())
			Expect(d.EmployerESI.IsZero()).To(BeTrue())
		})
	})

	Context("professional tax brackets", func() {
		It("should be zero in the lowest bracket", func() {
			d, err := statutory.ComputeDeductions(decimal.NewFromInt(9000), decimal.NewFromInt(15000), rates)
			Expect(err).NotTo(HaveOccurred())
			Expect(d.ProfessionalTax.IsZero()).To(BeTrue())
		})

		It("should step up monotonically with income", func() {
			mid, err := statutory.ComputeDeductions(decimal.NewFromInt(10000), decimal.NewFromInt(16615), rates)
			Expect(err).NotTo(HaveOccurred())
			top, err := statutory.ComputeDeductions(decimal.NewFromInt(15000), decimal.NewFromInt(25000), rates)
			Expect(err).NotTo(HaveOccurred())

			Expect(mid.ProfessionalTax.String()).To(Equal("150"))
			Expect(top.ProfessionalTax.String()).To(Equal("200"))
			Expect(mid.ProfessionalTax.LessThan(top.ProfessionalTax)).To(BeTrue())
		})
	})

	Context("TDS slabs", func() {
		It("should be zero below the first slab", func() {
			d, err := statutory.ComputeDeductions(decimal.NewFromInt(12000), decimal.NewFromInt(20000), rates)
			Expect(err).NotTo(HaveOccurred())
			Expect(d.TDS.IsZero()).To(BeTrue())
		})

		It("should tax only the slice above each slab ceiling", func() {
			d, err := statutory.ComputeDeductions(decimal.NewFromInt(48000), decimal.NewFromInt(80000), rates)
			Expect(err).NotTo(HaveOccurred())
			// 5% of (80000 - 60000)
			Expect(d.TDS.String()).To(Equal("1000"))
		})
	})

	Context("invalid inputs", func() {
		It("should reject negative basic pay", func() {
			_, err := statutory.ComputeDeductions(decimal.NewFromInt(-1), decimal.NewFromInt(100), rates)
			Expect(err).To(HaveOccurred())
		})

		It("should reject negative gross pay", func() {
			_, err := statutory.ComputeDeductions(decimal.NewFromInt(100), decimal.NewFromInt(-1), rates)
			Expect(err).To(HaveOccurred())
		})
	})

	Context("determinism", func() {
		It("should return identical results for identical inputs", func() {
			basic := decimal.NewFromInt(10800)
			gross := decimal.RequireFromString("16615.38")

			first, err := statutory.ComputeDeductions(basic, gross, rates)
			Expect(err).NotTo(HaveOccurred())
			second, err := statutory.ComputeDeductions(basic, gross, rates)
			Expect(err).NotTo(HaveOccurred())

			Expect(first).To(Equal(second))
		})
	})
})

var _ = Describe("Registry", func() {
	It("should fall back to the baseline for unknown jurisdictions", func() {
		reg := statutory.DefaultRegistry()

		table := reg.Lookup("IN-XX")

		Expect(table.Jurisdiction).To(Equal("IN-KA"))
	})

	It("should resolve a registered jurisdiction", func() {
		reg := statutory.DefaultRegistry()

		table := reg.Lookup("IN-MH")

		Expect(table.Jurisdiction).To(Equal("IN-MH"))
	})
})
