package trace

import (
	"bytes"
	"context"
	"runtime"
	"strconv"
	"sync/atomic"
	"time"
)

var (
	seqCounter  atomic.Uint64
	spanCounter atomic.Uint64
)

// NextSeq returns the next global event sequence number.
func NextSeq() uint64 { return seqCounter.Add(1) }

// NextSpanID returns a fresh, non-zero span id.
func NextSpanID() uint64 { return spanCounter.Add(1) }

var goroutinePrefix = []byte("goroutine ")

// getGoroutineID parses the id out of the first line of runtime.Stack,
// which reads "goroutine N [state]:". It returns 0 when parsing fails.
func getGoroutineID() uint64 {
	var buf [64]byte
	line := buf[:runtime.Stack(buf[:], false)]
	rest, ok := bytes.CutPrefix(line, goroutinePrefix)
	if !ok {
		return 0
	}
	num, _, _ := bytes.Cut(rest, []byte{' '})
	gid, err := strconv.ParseUint(string(num), 10, 64)
	if err != nil {
		return 0
	}
	return gid
}

// Span is an open begin/end pair. A Span from a disabled tracer is inert.
type Span struct {
	tracer  Tracer
	id      uint64
	parent  uint64
	gid     uint64
	scope   Scope
	name    string
	started time.Time
	extra   map[string]string
}

var inert = &Span{tracer: Nop}

// Begin emits a span-begin event on t under parent (0 for a root span).
func Begin(t Tracer, scope Scope, name string, parent uint64) *Span {
	if t == nil || !t.Enabled() || !t.Level().ShouldEmit(scope) {
		return inert
	}
	s := &Span{
		tracer:  t,
		id:      NextSpanID(),
		parent:  parent,
		gid:     getGoroutineID(),
		scope:   scope,
		name:    name,
		started: time.Now(),
	}
	t.Emit(s.event(KindSpanBegin, s.started, ""))
	return s
}

func (s *Span) live() bool {
	return s != nil && s.tracer != nil && s.tracer.Enabled()
}

func (s *Span) event(kind Kind, at time.Time, detail string) *Event {
	ev := &Event{
		Time:     at,
		Seq:      NextSeq(),
		Kind:     kind,
		Scope:    s.scope,
		SpanID:   s.id,
		ParentID: s.parent,
		GID:      s.gid,
		Name:     s.name,
		Detail:   detail,
	}
	if kind == KindSpanEnd {
		ev.Extra = s.extra
	}
	return ev
}

// End emits the span-end event and returns the span's duration.
func (s *Span) End(detail string) time.Duration {
	if !s.live() {
		return 0
	}
	now := time.Now()
	s.tracer.Emit(s.event(KindSpanEnd, now, detail))
	return now.Sub(s.started)
}

// WithExtra attaches a key/value pair to the end event.
func (s *Span) WithExtra(key, value string) *Span {
	if !s.live() {
		return s
	}
	if s.extra == nil {
		s.extra = make(map[string]string, 1)
	}
	s.extra[key] = value
	return s
}

// ID returns the span id, 0 for an inert span.
func (s *Span) ID() uint64 {
	if s == nil {
		return 0
	}
	return s.id
}

// Start begins a span under the tracer and current span carried by ctx and
// returns a context whose current span is the new one.
func Start(ctx context.Context, scope Scope, name string) (context.Context, *Span) {
	span := Begin(FromContext(ctx), scope, name, CurrentSpan(ctx).SpanID)
	if span.ID() == 0 {
		return ctx, span
	}
	return WithSpanContext(ctx, SpanContext{SpanID: span.ID(), GID: span.gid}), span
}

// Point emits an instant event under the current span of ctx.
func Point(ctx context.Context, scope Scope, name, detail string) {
	t := FromContext(ctx)
	if !t.Enabled() || !t.Level().ShouldEmit(scope) {
		return
	}
	t.Emit(&Event{
		Time:     time.Now(),
		Seq:      NextSeq(),
		Kind:     KindPoint,
		Scope:    scope,
		ParentID: CurrentSpan(ctx).SpanID,
		GID:      getGoroutineID(),
		Name:     name,
		Detail:   detail,
	})
}
