package tracing

import (
	"context"
	"errors"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/mock/gomock"
)

func sleepOp(d time.Duration, value any) Operation {
	return func(_ context.Context) (any, error) {
		time.Sleep(d)
		return value, nil
	}
}

func failOp(msg string) Operation {
	return func(_ context.Context) (any, error) {
		return nil, errors.New(msg)
	}
}

var _ = Describe("Engine", func() {
	var (
		mockCtrl *gomock.Controller
		sampler  *MockMemorySampler
		engine   *Engine
	)

	BeforeEach(func() {
		mockCtrl = gomock.NewController(GinkgoT())
		sampler = NewMockMemorySampler(mockCtrl)
		sampler.EXPECT().SampleMemory().Return(int64(0), nil).AnyTimes()

		engine = MakeBuilder().
			WithMemorySampler(sampler).
			Build()
	})

	AfterEach(func() {
		mockCtrl.Finish()
	})

	It("should sum the durations of sequential steps", func() {
		results, err := engine.Execute(context.Background(), []Step{
			Seq("first", sleepOp(10*time.Millisecond, 1)),
			Seq("second", sleepOp(5*time.Millisecond, 2)),
		})

		Expect(err).NotTo(HaveOccurred())
		Expect(results).To(HaveLen(2))
		Expect(results[0].Name).To(Equal("first"))
		Expect(results[0].Duration).To(BeNumerically(">=", 10*time.Millisecond))
		Expect(results[1].Name).To(Equal("second"))
		Expect(results[1].Duration).To(BeNumerically(">=", 5*time.Millisecond))
		Expect(SumDurations(results).Microseconds()).
			To(BeNumerically(">=", 15000))
		Expect(results[0].Value).To(Equal(1))
	})

	It("should join parallel steps at the slowest member", func() {
		results, err := engine.Execute(context.Background(), []Step{
			Par("fan-out",
				sleepOp(20*time.Millisecond, "a"),
				sleepOp(15*time.Millisecond, "b"),
				sleepOp(10*time.Millisecond, "c"),
			),
		})

		Expect(err).NotTo(HaveOccurred())
		Expect(results).To(HaveLen(1))

		r := results[0]
		Expect(r.IsParallel).To(BeTrue())
		Expect(r.ParallelCount).To(Equal(3))
		Expect(r.Duration.Microseconds()).To(BeNumerically(">=", 20000))
		Expect(r.Duration.Microseconds()).To(BeNumerically("<", 50000))
		Expect(r.Value).To(Equal([]any{"a", "b", "c"}))
		Expect(r.SubErrors).To(BeEmpty())
		Expect(r.Err).NotTo(HaveOccurred())
	})

	It("should isolate failures", func() {
		results, err := engine.Execute(context.Background(), []Step{
			Seq("ok-1", sleepOp(0, nil)),
			Seq("raises", failOp("disk on fire")),
			Seq("ok-2", sleepOp(0, nil)),
		})

		Expect(err).NotTo(HaveOccurred())
		Expect(results).To(HaveLen(3))
		Expect(results[0].Err).To(BeNil())
		Expect(results[1].Err).To(MatchError("disk on fire"))
		Expect(results[2].Err).To(BeNil())
	})

	It("should capture panics as failures", func() {
		results, err := engine.Execute(context.Background(), []Step{
			Seq("panics", func(_ context.Context) (any, error) {
				panic("boom")
			}),
			Seq("after", sleepOp(0, "still here")),
		})

		Expect(err).NotTo(HaveOccurred())

		var panicErr *PanicError
		Expect(errors.As(results[0].Err, &panicErr)).To(BeTrue())
		Expect(panicErr.Error()).To(ContainSubstring("boom"))
		Expect(results[1].Value).To(Equal("still here"))
	})

	It("should keep member failures in member order", func() {
		results, err := engine.Execute(context.Background(), []Step{
			Par("group",
				sleepOp(5*time.Millisecond, nil),
				failOp("second failed"),
				sleepOp(0, nil),
				failOp("fourth failed"),
			),
		})

		Expect(err).NotTo(HaveOccurred())

		r := results[0]
		Expect(r.SubErrors).To(HaveLen(2))

		var first, second *MemberError
		Expect(errors.As(r.SubErrors[0], &first)).To(BeTrue())
		Expect(errors.As(r.SubErrors[1], &second)).To(BeTrue())
		Expect(first.Index).To(Equal(1))
		Expect(first.Err).To(MatchError("second failed"))
		Expect(second.Index).To(Equal(3))

		var groupErr *GroupError
		Expect(errors.As(r.Err, &groupErr)).To(BeTrue())
		Expect(groupErr.Total).To(Equal(4))
		Expect(r.Err.Error()).To(ContainSubstring("2 of 4"))
	})

	It("should fail a parallel step on timeout and keep going", func() {
		engine = MakeBuilder().
			WithMemorySampler(sampler).
			WithParallelTimeout(20 * time.Millisecond).
			Build()

		results, err := engine.Execute(context.Background(), []Step{
			Par("slow-group",
				sleepOp(0, "fast"),
				sleepOp(300*time.Millisecond, "slow"),
			),
			Seq("after", sleepOp(0, "ran")),
		})

		Expect(err).NotTo(HaveOccurred())
		Expect(results).To(HaveLen(2))

		r := results[0]
		Expect(r.Err).To(MatchError(ErrGroupTimeout))
		Expect(r.Duration).To(BeNumerically("<", 300*time.Millisecond))
		Expect(r.SubErrors).To(HaveLen(1))
		Expect(r.SubErrors[0]).To(MatchError(ErrGroupTimeout))

		var timeoutErr *TimeoutError
		Expect(errors.As(r.Err, &timeoutErr)).To(BeTrue())
		Expect(timeoutErr.Pending).To(Equal(1))

		Expect(results[1].Err).To(BeNil())
		Expect(results[1].Value).To(Equal("ran"))
	})

	It("should cap the concurrency of parallel steps", func() {
		engine = MakeBuilder().
			WithMemorySampler(sampler).
			WithMaxConcurrency(1).
			Build()

		results, err := engine.Execute(context.Background(), []Step{
			Par("capped",
				sleepOp(10*time.Millisecond, nil),
				sleepOp(10*time.Millisecond, nil),
				sleepOp(10*time.Millisecond, nil),
			),
		})

		Expect(err).NotTo(HaveOccurred())
		Expect(results[0].Duration).
			To(BeNumerically(">=", 30*time.Millisecond))
	})

	It("should measure memory deltas", func() {
		sampler = NewMockMemorySampler(mockCtrl)
		gomock.InOrder(
			sampler.EXPECT().SampleMemory().Return(int64(1000), nil),
			sampler.EXPECT().SampleMemory().Return(int64(1250), nil),
			sampler.EXPECT().SampleMemory().Return(int64(900), nil),
			sampler.EXPECT().SampleMemory().Return(int64(0), errors.New("gone")),
		)
		engine = MakeBuilder().WithMemorySampler(sampler).Build()

		results, err := engine.Execute(context.Background(), []Step{
			Seq("grows", sleepOp(0, nil)),
			Seq("unknown", sleepOp(0, nil)),
		})

		Expect(err).NotTo(HaveOccurred())
		Expect(results[0].MemoryDelta).To(Equal(int64(250)))
		Expect(results[1].MemoryDelta).To(Equal(int64(-900)))
	})

	It("should reject malformed steps before running anything", func() {
		ran := false
		_, err := engine.Execute(context.Background(), []Step{
			Seq("runs", func(_ context.Context) (any, error) {
				ran = true
				return nil, nil
			}),
			Par("empty"),
		})

		var specErr *SpecError
		Expect(errors.As(err, &specErr)).To(BeTrue())
		Expect(specErr.Index).To(Equal(1))
		Expect(ran).To(BeFalse())
	})

	It("should notify hooks about step progress", func() {
		hook := NewMockHook(mockCtrl)
		engine.AcceptHook(hook)

		var events []StepEvent
		hook.EXPECT().Func(gomock.Any()).Do(func(ctx HookCtx) {
			events = append(events, ctx.Item.(StepEvent))
		}).Times(4)

		_, err := engine.Execute(context.Background(), []Step{
			Seq("ok", sleepOp(0, nil)),
			Seq("bad", failOp("nope")),
		})

		Expect(err).NotTo(HaveOccurred())
		Expect(events).To(HaveLen(4))
		Expect(events[0].Status).To(Equal(StatusRunning))
		Expect(events[1].Status).To(Equal(StatusSucceeded))
		Expect(events[2].Name).To(Equal("bad"))
		Expect(events[3].Status).To(Equal(StatusFailed))
		Expect(events[3].Result.Err).To(MatchError("nope"))
	})
})
