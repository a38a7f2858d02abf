package trace

import (
	"io"
	"sync"
	"time"
)

// StreamTracer formats each event and writes it straight to w.
type StreamTracer struct {
	mu     sync.Mutex
	w      io.Writer
	level  Level
	format Format
	start  time.Time
}

// NewStreamTracer writes to w; FormatAuto means text.
func NewStreamTracer(w io.Writer, level Level, format Format) *StreamTracer {
	if format == FormatAuto {
		format = FormatText
	}
	return &StreamTracer{w: w, level: level, format: format, start: time.Now()}
}

func (t *StreamTracer) Emit(ev *Event) {
	if ev.Kind != KindHeartbeat && !t.level.ShouldEmit(ev.Scope) {
		return
	}
	ev.Seq = NextSeq()
	line := FormatEvent(ev, t.format, t.start)
	t.mu.Lock()
	defer t.mu.Unlock()
	// write errors are dropped; tracing never fails a run
	_, _ = t.w.Write(line)
}

// Flush forwards to the writer when it buffers.
func (t *StreamTracer) Flush() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if f, ok := t.w.(interface{ Flush() error }); ok {
		return f.Flush()
	}
	return nil
}

// Close flushes, then closes the writer unless it is stdout or stderr.
func (t *StreamTracer) Close() error {
	if err := t.Flush(); err != nil {
		return err
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	c, ok := t.w.(io.Closer)
	if !ok || isStdStream(t.w) {
		return nil
	}
	return c.Close()
}

func (t *StreamTracer) Level() Level  { return t.level }
func (t *StreamTracer) Enabled() bool { return t.level > LevelOff }
