package trace

import (
	"io"
	"sync"
)

const defaultRingSize = 4096

// RingTracer holds the most recent events of a run in memory so they can be
// dumped after a failure or a slow analysis.
type RingTracer struct {
	mu    sync.RWMutex
	buf   []Event
	next  int
	count int
	level Level
}

// NewRingTracer returns a tracer keeping at most size events. A non-positive
// size selects 4096.
func NewRingTracer(size int, level Level) *RingTracer {
	if size <= 0 {
		size = defaultRingSize
	}
	return &RingTracer{buf: make([]Event, size), level: level}
}

// Emit stores ev, overwriting the oldest event once the ring is full.
// Heartbeats bypass the level filter.
func (t *RingTracer) Emit(ev *Event) {
	if ev.Kind != KindHeartbeat && !t.level.ShouldEmit(ev.Scope) {
		return
	}
	t.mu.Lock()
	t.buf[t.next] = *ev
	t.buf[t.next].Seq = NextSeq()
	t.next = (t.next + 1) % len(t.buf)
	if t.count < len(t.buf) {
		t.count++
	}
	t.mu.Unlock()
}

// Snapshot copies the stored events, oldest first.
func (t *RingTracer) Snapshot() []Event {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]Event, 0, t.count)
	first := (t.next - t.count + len(t.buf)) % len(t.buf)
	for i := range t.count {
		out = append(out, t.buf[(first+i)%len(t.buf)])
	}
	return out
}

// Dump writes the snapshot to w, timing events relative to the oldest one.
func (t *RingTracer) Dump(w io.Writer, format Format) error {
	events := t.Snapshot()
	if len(events) == 0 {
		return nil
	}
	start := events[0].Time
	for i := range events {
		if _, err := w.Write(FormatEvent(&events[i], format, start)); err != nil {
			return err
		}
	}
	return nil
}

func (t *RingTracer) Flush() error { return nil }
func (t *RingTracer) Close() error { return nil }

func (t *RingTracer) Level() Level { return t.level }

func (t *RingTracer) Enabled() bool { return t.level > LevelOff }

var _ Tracer = (*RingTracer)(nil)
