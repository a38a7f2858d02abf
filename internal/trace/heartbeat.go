package trace

import (
	"context"
	"strconv"
	"sync"
	"sync/atomic"
	"time"
)

// Progress counts submitted and finished bodies of a run. The scheduler
// updates it and heartbeats report it. A nil *Progress ignores updates.
type Progress struct {
	submitted atomic.Int64
	finished  atomic.Int64
}

// Submit records n newly submitted bodies.
func (p *Progress) Submit(n int) {
	if p != nil {
		p.submitted.Add(int64(n))
	}
}

// Finish records n bodies that left the scheduler.
func (p *Progress) Finish(n int) {
	if p != nil {
		p.finished.Add(int64(n))
	}
}

// Counts returns finished and submitted totals.
func (p *Progress) Counts() (finished, submitted int64) {
	if p == nil {
		return 0, 0
	}
	return p.finished.Load(), p.submitted.Load()
}

type progressKey struct{}

// WithProgress attaches p to ctx.
func WithProgress(ctx context.Context, p *Progress) context.Context {
	return context.WithValue(ctx, progressKey{}, p)
}

// ProgressFrom returns the Progress attached to ctx, or nil.
func ProgressFrom(ctx context.Context) *Progress {
	if ctx == nil {
		return nil
	}
	p, _ := ctx.Value(progressKey{}).(*Progress)
	return p
}

// Heartbeat emits a run-scoped event every interval with the current
// progress. Heartbeats whose finished count stops moving point at a stuck
// body analysis.
type Heartbeat struct {
	tracer   Tracer
	interval time.Duration
	progress *Progress
	stop     chan struct{}
	wg       sync.WaitGroup
	once     sync.Once
}

// StartHeartbeat starts the heartbeat goroutine. It returns nil when tracing
// is off or interval is not positive; progress may be nil.
func StartHeartbeat(tracer Tracer, interval time.Duration, progress *Progress) *Heartbeat {
	if tracer == nil || !tracer.Enabled() || interval <= 0 {
		return nil
	}
	h := &Heartbeat{
		tracer:   tracer,
		interval: interval,
		progress: progress,
		stop:     make(chan struct{}),
	}
	h.wg.Add(1)
	go h.run()
	return h
}

func (h *Heartbeat) run() {
	defer h.wg.Done()
	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()

	var beat uint64
	for {
		select {
		case <-ticker.C:
			beat++
			h.tracer.Emit(h.event(beat))
		case <-h.stop:
			return
		}
	}
}

func (h *Heartbeat) event(beat uint64) *Event {
	finished, submitted := h.progress.Counts()
	return &Event{
		Time:   time.Now(),
		Seq:    NextSeq(),
		Kind:   KindHeartbeat,
		Scope:  ScopeRun,
		GID:    getGoroutineID(),
		Name:   "heartbeat",
		Detail: "#" + strconv.FormatUint(beat, 10),
		Extra: map[string]string{
			"bodies_finished":  strconv.FormatInt(finished, 10),
			"bodies_submitted": strconv.FormatInt(submitted, 10),
		},
	}
}

// Stop ends the heartbeat goroutine and waits for it. It is safe to call
// more than once and on a nil Heartbeat.
func (h *Heartbeat) Stop() {
	if h == nil {
		return
	}
	h.once.Do(func() {
		close(h.stop)
		h.wg.Wait()
	})
}
