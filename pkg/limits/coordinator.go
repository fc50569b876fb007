package limits

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "markethq/rategate/pkg/limits"

// Coordinator is the public admission entry point. Every outbound API call
// goes through Acquire before the transport sends anything.
type Coordinator struct {
	registry *Registry
	metrics  *Metrics
	tracer   trace.Tracer
	clock    Clock

	// maxWaitRetries bounds the wake-recheck loop under WaitBounded so
	// pathological churn cannot loop forever.
	maxWaitRetries int
}

// CoordinatorOption configures a Coordinator.
type CoordinatorOption func(*Coordinator)

// WithMetrics attaches Prometheus metrics to the acquire path.
func WithMetrics(m *Metrics) CoordinatorOption {
	return func(c *Coordinator) { c.metrics = m }
}

// WithCoordinatorClock injects a clock for tests.
func WithCoordinatorClock(clk Clock) CoordinatorOption {
	return func(c *Coordinator) { c.clock = clk }
}

// NewCoordinator creates a coordinator over a registry. Span export is the
// embedding client's concern; the coordinator only records through the
// global tracer provider.
func NewCoordinator(reg *Registry, opts ...CoordinatorOption) *Coordinator {
	c := &Coordinator{
		registry:       reg,
		tracer:         otel.Tracer(tracerName),
		clock:          systemClock{},
		maxWaitRetries: 16,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Acquire checks every window of the category and either reserves capacity,
// waits for it to free (bounded by the policy), or denies.
//
// Capacity is reserved only at the moment of a successful record, never
// speculatively: a caller that abandons the wait (context cancellation,
// policy ceiling) has consumed nothing.
//
// Denials are typed: LimitExceededError for recoverable over-budget,
// CostExceedsCapacityError when the request can never fit. The engine never
// retries on the caller's behalf.
func (c *Coordinator) Acquire(ctx context.Context, cat *Category, cost int64, isOrder bool, policy WaitPolicy) (*Permit, error) {
	ctx, span := c.tracer.Start(ctx, "limits.Acquire", trace.WithAttributes(
		attribute.String("ratelimit.venue", cat.Venue()),
		attribute.String("ratelimit.category", cat.Name()),
		attribute.Int64("ratelimit.cost", cost),
		attribute.Bool("ratelimit.order", isOrder),
	))
	defer span.End()

	start := c.clock.Now()
	var deadline time.Time
	if policy.wait {
		deadline = start.Add(policy.maxWait)
	}

	for attempt := 0; ; attempt++ {
		now, den, err := cat.tryAdmit(cost, isOrder)
		if err != nil {
			c.observe(cat, "unsatisfiable", start)
			span.SetStatus(codes.Error, err.Error())
			return nil, err
		}

		if den == nil {
			waited := now.Sub(start)
			c.observe(cat, "allowed", start)
			span.SetAttributes(attribute.Int64("ratelimit.waited_ms", waited.Milliseconds()))
			return &Permit{
				ID:         uuid.NewString(),
				Venue:      cat.Venue(),
				Category:   cat.Name(),
				Cost:       cost,
				IsOrder:    isOrder,
				AcquiredAt: now,
				Waited:     waited,
			}, nil
		}

		if !policy.wait || attempt >= c.maxWaitRetries {
			c.deny(cat, den.err)
			span.SetStatus(codes.Error, den.err.Error())
			return nil, den.err
		}

		// Sleep until the earliest blocking window is expected to free,
		// then re-check: the estimate is not a promise, other callers may
		// have consumed the freed capacity in the meantime.
		wait := den.earliest
		if wait <= 0 {
			wait = time.Millisecond
		}
		if remaining := deadline.Sub(c.clock.Now()); wait > remaining {
			c.deny(cat, den.err)
			span.SetStatus(codes.Error, den.err.Error())
			return nil, den.err
		}

		select {
		case <-ctx.Done():
			c.observe(cat, "cancelled", start)
			span.SetStatus(codes.Error, "cancelled")
			return nil, ctx.Err()
		case <-c.clock.After(wait):
		}
	}
}

// AcquirePath resolves the request path through the registry and acquires
// against the matching category.
func (c *Coordinator) AcquirePath(ctx context.Context, path string, cost int64, isOrder bool, policy WaitPolicy) (*Permit, error) {
	return c.Acquire(ctx, c.registry.Resolve(path), cost, isOrder, policy)
}

// Registry returns the coordinator's registry.
func (c *Coordinator) Registry() *Registry {
	return c.registry
}

func (c *Coordinator) observe(cat *Category, result string, start time.Time) {
	if c.metrics == nil {
		return
	}
	c.metrics.RecordAcquire(cat.Venue(), cat.Name(), result)
	c.metrics.ObserveAcquireDuration(cat.Venue(), cat.Name(), c.clock.Now().Sub(start))
}

func (c *Coordinator) deny(cat *Category, err *LimitExceededError) {
	if c.metrics == nil {
		return
	}
	c.metrics.RecordAcquire(cat.Venue(), cat.Name(), "denied")
	c.metrics.RecordDenial(cat.Venue(), cat.Name(), string(err.Dimension), err.Label)
}
