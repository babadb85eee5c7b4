package reporting_test

import (
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/pathtrace/reporting"
	"github.com/sarchlab/pathtrace/tracing"
)

var _ = Describe("Renderer", func() {
	var r *reporting.Renderer

	BeforeEach(func() {
		r = reporting.NewRenderer(false)
	})

	It("should render the header", func() {
		out := r.Render(sampleTrace())

		Expect(out).To(ContainSubstring("=== Trace: User Login/Flow ==="))
		Expect(out).To(ContainSubstring(
			"Total duration: 100.000ms | Steps: 3 | Bottlenecks: 3"))
	})

	It("should render bottlenecks with icons", func() {
		out := r.Render(sampleTrace())

		Expect(out).To(ContainSubstring("🔴 [Critical] load: 60.000ms (60.0%)"))
		Expect(out).To(ContainSubstring(
			"🟠 [Major] fetch: 30.000ms (30.0%) failed"))
		Expect(out).To(ContainSubstring("🟡 [Minor] render: 10.000ms (10.0%)"))
	})

	It("should number recommendations", func() {
		out := r.Render(sampleTrace())

		Expect(out).To(ContainSubstring("  1. optimize load"))
		Expect(out).To(ContainSubstring("  2. retry fetch"))
	})

	It("should render steps", func() {
		out := r.Render(sampleTrace())

		Expect(out).To(ContainSubstring("✓ load"))
		Expect(out).To(ContainSubstring("✗ fetch [parallel x3]"))
		Expect(out).To(ContainSubstring("failed: 1 of 3 operations failed"))
		Expect(out).To(ContainSubstring("↳ member 1: boom"))
		Expect(out).To(ContainSubstring("mem +2.0 KiB"))
		Expect(out).To(ContainSubstring("mem -512 B"))
	})

	It("should say none when there is nothing to report", func() {
		out := r.Render(tracing.Trace{Name: "empty"})

		Expect(out).To(ContainSubstring("Bottlenecks\n  none"))
		Expect(out).To(ContainSubstring("Recommendations\n  none"))
	})

	It("should keep the plain text when colored", func() {
		out := reporting.NewRenderer(true).Render(sampleTrace())

		Expect(out).To(ContainSubstring("load"))
		Expect(out).To(ContainSubstring("optimize load"))
	})

	DescribeTable("formatting durations",
		func(d time.Duration, s string) {
			Expect(reporting.FormatDuration(d)).To(Equal(s))
		},
		Entry("zero", time.Duration(0), "0.000ms"),
		Entry("microseconds", 1500*time.Microsecond, "1.500ms"),
		Entry("sub microsecond precision is dropped", 1999*time.Nanosecond,
			"0.001ms"),
		Entry("seconds", 2*time.Second, "2000.000ms"),
	)

	DescribeTable("formatting bytes",
		func(n int64, s string) {
			Expect(reporting.FormatBytes(n)).To(Equal(s))
		},
		Entry("zero", int64(0), "+0 B"),
		Entry("bytes", int64(100), "+100 B"),
		Entry("negative", int64(-2048), "-2.0 KiB"),
		Entry("mebibytes", int64(3*1024*1024), "+3.0 MiB"),
	)
})
