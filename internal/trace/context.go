package trace

import "context"

type tracerKey struct{}

// WithTracer attaches t to ctx; a nil t attaches Nop.
func WithTracer(ctx context.Context, t Tracer) context.Context {
	if t == nil {
		t = Nop
	}
	return context.WithValue(ctx, tracerKey{}, t)
}

// FromContext returns the tracer attached to ctx, or Nop.
func FromContext(ctx context.Context) Tracer {
	if ctx != nil {
		if t, ok := ctx.Value(tracerKey{}).(Tracer); ok {
			return t
		}
	}
	return Nop
}

// SpanContext identifies the span a context is running under.
type SpanContext struct {
	SpanID uint64
	GID    uint64
}

type spanKey struct{}

// WithSpanContext marks sc as the current span of ctx.
func WithSpanContext(ctx context.Context, sc SpanContext) context.Context {
	if ctx == nil {
		return nil
	}
	return context.WithValue(ctx, spanKey{}, sc)
}

// CurrentSpan returns the current span of ctx; the zero value means none.
func CurrentSpan(ctx context.Context) SpanContext {
	if ctx == nil {
		return SpanContext{}
	}
	sc, _ := ctx.Value(spanKey{}).(SpanContext)
	return sc
}
