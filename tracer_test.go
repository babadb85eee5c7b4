package pathtrace

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/pathtrace/reporting"
	"github.com/sarchlab/pathtrace/tracing"
)

func sleepOp(d time.Duration) tracing.Operation {
	return func(ctx context.Context) (any, error) {
		time.Sleep(d)
		return nil, nil
	}
}

func failOp(msg string) tracing.Operation {
	return func(ctx context.Context) (any, error) {
		return nil, errors.New(msg)
	}
}

type failingSink struct {
	mu    sync.Mutex
	calls int
}

func (s *failingSink) Persist(
	ctx context.Context,
	r reporting.Record,
) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.calls++

	return "", errors.New("read-only file system")
}

var _ = Describe("Tracer", func() {
	var (
		tracer *Tracer
		ctx    context.Context
	)

	BeforeEach(func() {
		ctx = context.Background()
		tracer = MakeTracerBuilder().Build()
	})

	It("should sum sequential steps", func() {
		p := NewPath("sequential",
			tracing.Seq("a", sleepOp(10*time.Millisecond)),
			tracing.Seq("b", sleepOp(5*time.Millisecond)),
		)

		trace, err := tracer.Trace(ctx, p)

		Expect(err).NotTo(HaveOccurred())
		Expect(trace.Name).To(Equal("sequential"))
		Expect(trace.ID).NotTo(BeEmpty())
		Expect(trace.TotalDurationMicros()).To(BeNumerically(">=", 15000))
		Expect(trace.Steps[0].Duration).
			To(BeNumerically(">=", 10*time.Millisecond))
		Expect(trace.Steps[1].Duration).
			To(BeNumerically(">=", 5*time.Millisecond))
	})

	It("should find a critical bottleneck", func() {
		p := NewPath("skewed",
			tracing.Seq("load", sleepOp(40*time.Millisecond)),
			tracing.Seq("render", sleepOp(2*time.Millisecond)),
		)

		trace, err := tracer.Trace(ctx, p)

		Expect(err).NotTo(HaveOccurred())
		Expect(trace.Bottlenecks).NotTo(BeEmpty())
		Expect(trace.Bottlenecks[0].StepName).To(Equal("load"))
		Expect(trace.Bottlenecks[0].Severity).To(Equal(tracing.SeverityCritical))
		Expect(trace.Bottlenecks[0].Percentage).To(BeNumerically(">", 40))
		Expect(trace.Recommendations[0]).To(ContainSubstring("load"))
	})

	It("should keep failures inside the trace", func() {
		p := NewPath("flaky",
			tracing.Seq("ok-1", sleepOp(time.Millisecond)),
			tracing.Seq("broken", failOp("connection reset")),
			tracing.Seq("ok-2", sleepOp(time.Millisecond)),
		)

		trace, err := tracer.Trace(ctx, p)

		Expect(err).NotTo(HaveOccurred())
		Expect(trace.Steps).To(HaveLen(3))
		Expect(trace.Steps[0].Err).NotTo(HaveOccurred())
		Expect(trace.Steps[1].Err).To(MatchError("connection reset"))
		Expect(trace.Steps[2].Err).NotTo(HaveOccurred())
		Expect(trace.Metadata).To(HaveKeyWithValue("failed_steps", 1))
	})

	It("should copy path metadata", func() {
		p := NewPath("tagged", tracing.Seq("a", sleepOp(0))).
			WithMetadata("env", "test")

		trace, err := tracer.Trace(ctx, p)

		Expect(err).NotTo(HaveOccurred())
		Expect(trace.Metadata).To(HaveKeyWithValue("env", "test"))
		Expect(trace.Metadata).To(HaveKeyWithValue("step_count", 1))
		Expect(p.Metadata).NotTo(HaveKey("step_count"))
	})

	It("should reject malformed paths", func() {
		ran := false
		p := NewPath("malformed",
			tracing.Seq("a", func(ctx context.Context) (any, error) {
				ran = true
				return nil, nil
			}),
			tracing.Par("empty"),
		)

		_, err := tracer.Trace(ctx, p)

		var specErr *tracing.SpecError
		Expect(errors.As(err, &specErr)).To(BeTrue())
		Expect(specErr.Index).To(Equal(1))
		Expect(ran).To(BeFalse())
	})

	It("should persist traces", func() {
		dir := GinkgoT().TempDir()
		tracer = MakeTracerBuilder().
			WithReporter(reporting.MakeReporterBuilder().
				WithSink(reporting.NewJSONSink(dir)).
				Build()).
			Build()

		_, err := tracer.Trace(ctx,
			NewPath("Saved Path", tracing.Seq("a", sleepOp(0))))

		Expect(err).NotTo(HaveOccurred())

		files, err := filepath.Glob(filepath.Join(dir, "saved_path_*.json"))
		Expect(err).NotTo(HaveOccurred())
		Expect(files).To(HaveLen(1))

		info, err := os.Stat(files[0])
		Expect(err).NotTo(HaveOccurred())
		Expect(info.Size()).To(BeNumerically(">", 0))
	})

	It("should not fail when persistence fails", func() {
		sink := &failingSink{}
		var reported *reporting.PersistError

		tracer = MakeTracerBuilder().
			WithReporter(reporting.MakeReporterBuilder().
				WithSink(sink).
				WithFailureHandler(
					func(t tracing.Trace, err *reporting.PersistError) {
						reported = err
					}).
				Build()).
			Build()

		trace, err := tracer.Trace(ctx,
			NewPath("unsaved", tracing.Seq("a", sleepOp(0))))

		Expect(err).NotTo(HaveOccurred())
		Expect(trace.Steps).To(HaveLen(1))
		Expect(sink.calls).To(Equal(1))
		Expect(reported).NotTo(BeNil())
		Expect(reported.Trace).To(Equal("unsaved"))
	})

	It("should render reports", func() {
		trace, err := tracer.Trace(ctx,
			NewPath("rendered", tracing.Seq("a", sleepOp(0))))
		Expect(err).NotTo(HaveOccurred())

		Expect(tracer.Report(trace)).To(ContainSubstring("=== Trace: rendered ==="))
	})
})
