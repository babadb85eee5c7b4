package analysis

import (
	"errors"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/pathtrace/tracing"
)

func ms(n int) time.Duration {
	return time.Duration(n) * time.Millisecond
}

func stepsOf(durations ...time.Duration) []tracing.StepResult {
	steps := make([]tracing.StepResult, 0, len(durations))
	for i, d := range durations {
		steps = append(steps, tracing.StepResult{
			Name:     string(rune('a' + i)),
			Duration: d,
		})
	}

	return steps
}

var _ = Describe("Analyzer", func() {
	var a *Analyzer

	BeforeEach(func() {
		a = NewAnalyzer()
	})

	Context("when analyzing", func() {
		It("should flag a dominant step as critical", func() {
			steps := stepsOf(ms(41), ms(30), ms(29))

			b := a.Analyze(steps, tracing.SumDurations(steps))

			Expect(b).NotTo(BeEmpty())
			Expect(b[0].StepName).To(Equal("a"))
			Expect(b[0].Severity).To(Equal(tracing.SeverityCritical))
			Expect(b[0].Percentage).To(BeNumerically(">", 40))
			Expect(b[1].Severity).To(Equal(tracing.SeverityMajor))
		})

		It("should exclude steps at or below 10 percent", func() {
			steps := stepsOf(ms(10), ms(10), ms(10), ms(10), ms(10),
				ms(10), ms(10), ms(10), ms(10), ms(10))

			b := a.Analyze(steps, tracing.SumDurations(steps))

			Expect(b).To(BeEmpty())
		})

		It("should classify minor bottlenecks", func() {
			steps := stepsOf(ms(15), ms(85))

			b := a.Analyze(steps, tracing.SumDurations(steps))

			Expect(b).To(HaveLen(2))
			Expect(b[0].StepName).To(Equal("b"))
			Expect(b[1].Severity).To(Equal(tracing.SeverityMinor))
			Expect(b[1].Percentage).To(Equal(15.0))
		})

		It("should round percentages to one decimal", func() {
			Expect(Percentage(ms(1), ms(3))).To(Equal(33.3))
			Expect(Percentage(ms(2), ms(3))).To(Equal(66.7))
		})

		It("should return nothing for a zero total", func() {
			steps := stepsOf(0, 0)

			Expect(a.Analyze(steps, 0)).To(BeEmpty())
			Expect(a.Analyze(nil, ms(10))).To(BeEmpty())
		})

		It("should keep the step order for ties", func() {
			steps := stepsOf(ms(30), ms(40), ms(30))

			b := a.Analyze(steps, tracing.SumDurations(steps))

			Expect(b).To(HaveLen(3))
			Expect(b[0].StepName).To(Equal("b"))
			Expect(b[1].StepName).To(Equal("a"))
			Expect(b[2].StepName).To(Equal("c"))
		})

		It("should record failed steps", func() {
			steps := stepsOf(ms(80), ms(20))
			steps[0].Err = errors.New("bad")

			b := a.Analyze(steps, tracing.SumDurations(steps))

			Expect(b[0].HasError).To(BeTrue())
			Expect(b[1].HasError).To(BeFalse())
		})
	})
})
