package analysis

import (
	"errors"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/pathtrace/tracing"
)

func traceOf(steps []tracing.StepResult, a *Analyzer) tracing.Trace {
	total := tracing.SumDurations(steps)

	return tracing.Trace{
		Name:          "t",
		Steps:         steps,
		TotalDuration: total,
		Bottlenecks:   a.Analyze(steps, total),
	}
}

var _ = Describe("Recommend", func() {
	var a *Analyzer

	BeforeEach(func() {
		a = NewAnalyzer()
	})

	It("should return nothing for a healthy trace", func() {
		steps := stepsOf(ms(10), ms(10), ms(10), ms(10), ms(10),
			ms(10), ms(10), ms(10), ms(10), ms(10))

		Expect(a.Recommend(traceOf(steps, a))).To(BeEmpty())
	})

	It("should advise about critical and major bottlenecks in order", func() {
		steps := stepsOf(ms(50), ms(30), ms(20))

		recs := a.Recommend(traceOf(steps, a))

		Expect(recs).To(HaveLen(2))
		Expect(recs[0]).To(HavePrefix("Critical bottleneck in a (50.0%"))
		Expect(recs[1]).To(HavePrefix("Major bottlenecks in b"))
	})

	It("should only fire the stricter duration rule", func() {
		slow := stepsOf(6*time.Second, 6*time.Second)
		recs := a.Recommend(traceOf(slow, a))
		Expect(recs).To(ContainElement(ContainSubstring("exceeds 5s")))
		Expect(recs).NotTo(ContainElement(ContainSubstring("exceeds 1s")))

		long := stepsOf(ms(600), ms(600))
		recs = a.Recommend(traceOf(long, a))
		Expect(recs).To(ContainElement(ContainSubstring("exceeds 1s")))
		Expect(recs).NotTo(ContainElement(ContainSubstring("exceeds 5s")))
	})

	It("should advise about memory growth", func() {
		steps := stepsOf(ms(1), ms(1))
		steps[1].MemoryDelta = 60_000_000

		recs := a.Recommend(traceOf(steps, a))

		Expect(recs).To(ContainElement(
			"High memory growth in b (+60.0 MB): consider streaming data " +
				"or reducing allocations"))
	})

	It("should advise about failures last", func() {
		steps := stepsOf(ms(90), ms(10))
		steps[1].Err = errors.New("oops")

		recs := a.Recommend(traceOf(steps, a))

		Expect(recs[len(recs)-1]).To(Equal(
			"1 step(s) failed (b): add retry logic and error handling"))
	})

	It("should be a pure function of the trace", func() {
		steps := stepsOf(ms(70), ms(20), ms(10))
		steps[2].Err = errors.New("oops")
		steps[0].MemoryDelta = 80_000_000
		t := traceOf(steps, a)

		Expect(a.Recommend(t)).To(Equal(a.Recommend(t)))
	})
})
