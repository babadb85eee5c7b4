package smoothing

import (
	"context"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/pathtrace/services"
)

var _ = Describe("SimulatedOperation", func() {
	op := SimulatedOperation{
		Name:     "query",
		BaseCost: 100 * time.Millisecond,
		Decay:    0.25,
	}

	DescribeTable("cost",
		func(optimizations int, cost time.Duration) {
			Expect(op.Cost(optimizations)).To(Equal(cost))
		},
		Entry("no optimization", 0, 100*time.Millisecond),
		Entry("one optimization", 1, 75*time.Millisecond),
		Entry("three optimizations", 3, 25*time.Millisecond),
		Entry("fully optimized", 4, time.Duration(0)),
		Entry("never negative", 9, time.Duration(0)),
	)

	It("should wait for the cost", func() {
		short := SimulatedOperation{Name: "x", BaseCost: 5 * time.Millisecond}
		start := time.Now()

		v, err := short.Operation(0)(context.Background())

		Expect(err).NotTo(HaveOccurred())
		Expect(v).To(Equal(5 * time.Millisecond))
		Expect(time.Since(start)).To(BeNumerically(">=", 5*time.Millisecond))
	})

	It("should stop waiting when the context is done", func() {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		_, err := op.Operation(0)(ctx)

		Expect(err).To(MatchError(context.Canceled))
	})
})

var _ = Describe("DefaultBattery", func() {
	It("should build the three paths", func() {
		paths := DefaultBattery(nil)(0)

		Expect(paths).To(HaveLen(3))
		Expect(paths[0].Name).To(Equal("startup"))
		Expect(paths[1].Name).To(Equal("request-handling"))
		Expect(paths[2].Name).To(Equal("data-access"))

		for _, p := range paths {
			Expect(p.Steps).NotTo(BeEmpty())
		}
	})

	It("should read the session through the cache", func() {
		cache := services.NewTTLCache(time.Minute)
		paths := DefaultBattery(cache)(0)
		lookup := paths[1].Steps[0]

		Expect(lookup.StepName()).To(Equal("session-lookup"))
		_, ok := cache.Get("session")
		Expect(ok).To(BeFalse())

		paths = DefaultBattery(cache)(0)
		_, err := runStep(paths[1].Steps[0])
		Expect(err).NotTo(HaveOccurred())

		_, ok = cache.Get("session")
		Expect(ok).To(BeTrue())
	})
})

var _ = DescribeTable("OptimizationLabel",
	func(step, label string) {
		Expect(OptimizationLabel(step)).To(Equal(label))
	},
	Entry("load", "load-config", "lazy loading"),
	Entry("compile", "compile-templates", "parallel compilation"),
	Entry("query", "query-orders", "indexing"),
	Entry("api", "api-fanout", "response caching"),
	Entry("api in upper case", "CallAPI", "response caching"),
	Entry("render", "render-response", "template optimization"),
	Entry("first keyword wins", "load-and-render", "lazy loading"),
	Entry("anything else", "serialize", "general optimization"),
)
