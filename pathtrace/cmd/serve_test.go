package cmd

import (
	"bytes"
	"context"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/pathtrace/config"
	"github.com/sarchlab/pathtrace/logging"
	"github.com/sarchlab/pathtrace/monitoring"
	"github.com/sarchlab/pathtrace/services"
)

var _ = Describe("Serve", func() {
	It("should publish traced steps and iterations to the monitor", func() {
		cfg := config.Default()
		cfg.Smoothing.IterationLimit = 1
		cfg.Smoothing.PauseMs = 0

		var out bytes.Buffer
		a := &app{
			cfg:    cfg,
			logger: logging.Discard(),
			out:    &out,
			errOut: &out,
			cache:  services.NewTTLCache(services.DefaultTTL),
		}
		m := monitoring.NewMonitor().WithLogger(logging.Discard())

		smoother, steps, err := a.monitoredSmoother(m)
		Expect(err).NotTo(HaveOccurred())

		_, err = smoother.Run(context.Background())
		Expect(err).NotTo(HaveOccurred())

		s := steps.Snapshot()
		Expect(s.Total).To(Equal(a.stepsPerIteration()))
		Expect(s.Finished).To(Equal(a.stepsPerIteration()))
		Expect(s.InProgress).To(BeZero())
		Expect(m.Traces()).To(HaveLen(3))
	})
})
