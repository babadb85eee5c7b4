package smoothing

import (
	"log/slog"

	"github.com/sarchlab/pathtrace"
	"github.com/sarchlab/pathtrace/services"
	"github.com/sarchlab/pathtrace/tracing"
)

// Builder can build smoothers.
type Builder struct {
	config  Config
	tracer  *pathtrace.Tracer
	battery Battery
	cache   services.Cache
	logger  *slog.Logger
	hooks   []tracing.Hook
}

// MakeBuilder creates a Builder with the default policy and battery.
func MakeBuilder() Builder {
	return Builder{config: DefaultConfig()}
}

// WithConfig sets the policy.
func (b Builder) WithConfig(c Config) Builder {
	b.config = c
	return b
}

// WithTracer sets the tracer that traces the battery. Persistence of the
// tracer applies to every traced path.
func (b Builder) WithTracer(t *pathtrace.Tracer) Builder {
	b.tracer = t
	return b
}

// WithBattery sets the paths traced in every iteration.
func (b Builder) WithBattery(battery Battery) Builder {
	b.battery = battery
	return b
}

// WithCache sets the cache read by the battery. The smoother clears it at
// the start of every run.
func (b Builder) WithCache(c services.Cache) Builder {
	b.cache = c
	return b
}

// WithLogger sets the logger.
func (b Builder) WithLogger(l *slog.Logger) Builder {
	b.logger = l
	return b
}

// WithHook registers a hook.
func (b Builder) WithHook(h tracing.Hook) Builder {
	b.hooks = append(b.hooks, h)
	return b
}

// Build creates the smoother. It fails if the policy is invalid.
func (b Builder) Build() (*Smoother, error) {
	if err := b.config.Validate(); err != nil {
		return nil, err
	}

	s := &Smoother{
		HookableBase: tracing.NewHookableBase(),
		config:       b.config,
		tracer:       b.tracer,
		battery:      b.battery,
		cache:        b.cache,
		logger:       b.logger,
	}

	if s.logger == nil {
		s.logger = slog.Default()
	}

	if s.tracer == nil {
		s.tracer = pathtrace.MakeTracerBuilder().WithLogger(s.logger).Build()
	}

	if s.battery == nil {
		if s.cache == nil {
			s.cache = services.NewTTLCache(services.DefaultTTL)
		}

		s.battery = DefaultBattery(s.cache)
	}

	for _, h := range b.hooks {
		s.AcceptHook(h)
	}

	return s, nil
}
