package driver

import (
	"context"
	"fmt"
	"runtime"
	"strconv"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/MuntasirSZN/rustowl/internal/cache"
	"github.com/MuntasirSZN/rustowl/internal/extract"
	"github.com/MuntasirSZN/rustowl/internal/facts"
	"github.com/MuntasirSZN/rustowl/internal/mir"
	"github.com/MuntasirSZN/rustowl/internal/source"
	"github.com/MuntasirSZN/rustowl/internal/trace"
)

// State is the lifecycle position of one submitted body.
type State uint8

const (
	StateQueued State = iota + 1
	StateAnalyzing
	StateCompleted
	StateCacheHit
)

func (s State) String() string {
	switch s {
	case StateQueued:
		return "queued"
	case StateAnalyzing:
		return "analyzing"
	case StateCompleted:
		return "completed"
	case StateCacheHit:
		return "cache-hit"
	default:
		return "unknown"
	}
}

// Done reports whether the job has left the queue for good.
func (s State) Done() bool {
	return s == StateCompleted || s == StateCacheHit
}

// Job is one function body to analyze.
type Job struct {
	Crate string
	File  string
	Body  *facts.Body
	// Source is the body's file, used to convert byte spans; may be nil.
	Source *source.File
	// Key is the cache key; only consulted when HasKey is set.
	Key    cache.Key
	HasKey bool
	// Path is the on-disk source file checked for staleness; may be empty.
	Path string

	id uint64
}

// ID returns the id assigned by Submit.
func (j *Job) ID() uint64 {
	return j.id
}

// Result is a finished job.
type Result struct {
	Job   *Job
	Func  mir.Func
	State State
}

// AnalyzeFunc turns one job into an analyzed function.
type AnalyzeFunc func(job *Job, log *zap.Logger) mir.Func

func analyzeJob(job *Job, log *zap.Logger) mir.Func {
	return extract.Analyze(job.Body, job.Source, log)
}

// SchedulerOptions configure a Scheduler.
type SchedulerOptions struct {
	Workers int          // <= 0 selects DefaultWorkers
	Cache   *cache.Cache // nil disables caching
	Log     *zap.Logger
	Analyze AnalyzeFunc // nil selects extract.Analyze
}

// SchedulerStats count jobs by outcome.
type SchedulerStats struct {
	Submitted int
	CacheHits int
	Analyzed  int
	Failed    int
}

// Scheduler runs jobs on a fixed pool of workers.
//
// Submit and Poll never block on analysis work; Drain is the only call that
// waits for workers. Results are handed out exactly once, by either Poll or
// Drain, in completion order.
type Scheduler struct {
	mu      sync.Mutex
	work    *sync.Cond // signalled when the queue grows or the scheduler closes
	idle    *sync.Cond // signalled when pending drops to zero
	queue   []*Job
	done    []Result
	states  map[uint64]State
	pending int
	nextID  uint64
	closed  bool
	stats   SchedulerStats

	workers int
	cache   *cache.Cache
	log     *zap.Logger
	analyze AnalyzeFunc
	g       errgroup.Group

	progress *trace.Progress
}

// DefaultWorkers is half the CPU count, clamped to [2, 8].
func DefaultWorkers() int {
	n := runtime.NumCPU()
	if n <= 0 {
		return 4
	}
	return min(max(n/2, 2), 8)
}

// NewScheduler starts the worker pool. ctx carries the tracer for body spans;
// jobs are never cancelled through it.
func NewScheduler(ctx context.Context, opts SchedulerOptions) *Scheduler {
	s := &Scheduler{
		states:  make(map[uint64]State),
		workers: opts.Workers,
		cache:   opts.Cache,
		log:     opts.Log,
		analyze: opts.Analyze,

		progress: trace.ProgressFrom(ctx),
	}
	if s.workers <= 0 {
		s.workers = DefaultWorkers()
	}
	if s.log == nil {
		s.log = zap.NewNop()
	}
	if s.analyze == nil {
		s.analyze = analyzeJob
	}
	s.work = sync.NewCond(&s.mu)
	s.idle = sync.NewCond(&s.mu)

	s.g.SetLimit(s.workers)
	for i := range s.workers {
		s.g.Go(func() error {
			s.worker(ctx, i)
			return nil
		})
	}
	return s
}

// Workers returns the pool size.
func (s *Scheduler) Workers() int {
	return s.workers
}

// Submit registers job and returns its id. A cache hit completes the job
// immediately; otherwise the job is queued for a worker.
func (s *Scheduler) Submit(job *Job) (uint64, error) {
	var (
		fn  mir.Func
		hit bool
	)
	if job.HasKey {
		fn, hit = s.cache.Lookup(job.Key)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return 0, fmt.Errorf("submit fn %d: scheduler closed", job.Body.FnID)
	}
	s.nextID++
	job.id = s.nextID
	s.stats.Submitted++
	s.progress.Submit(1)
	if hit {
		s.progress.Finish(1)
		s.states[job.id] = StateCacheHit
		s.stats.CacheHits++
		s.done = append(s.done, Result{Job: job, Func: fn, State: StateCacheHit})
		return job.id, nil
	}
	s.states[job.id] = StateQueued
	s.queue = append(s.queue, job)
	s.pending++
	s.work.Signal()
	return job.id, nil
}

// State returns the state of a submitted job.
func (s *Scheduler) State(id uint64) (State, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.states[id]
	return st, ok
}

// Poll returns the results completed since the last Poll or Drain without
// waiting.
func (s *Scheduler) Poll() []Result {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := s.done
	s.done = nil
	return out
}

// Drain waits until every submitted job has finished and returns the results
// not yet handed out.
func (s *Scheduler) Drain() []Result {
	s.mu.Lock()
	defer s.mu.Unlock()
	for s.pending > 0 {
		s.idle.Wait()
	}
	out := s.done
	s.done = nil
	return out
}

// Stats returns a snapshot of the job counters.
func (s *Scheduler) Stats() SchedulerStats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stats
}

// Close stops accepting jobs, lets the workers finish the queue and waits for
// them to exit.
func (s *Scheduler) Close() error {
	s.mu.Lock()
	s.closed = true
	s.work.Broadcast()
	s.mu.Unlock()
	return s.g.Wait()
}

func (s *Scheduler) next() (*Job, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for len(s.queue) == 0 && !s.closed {
		s.work.Wait()
	}
	if len(s.queue) == 0 {
		return nil, false
	}
	job := s.queue[0]
	s.queue[0] = nil
	s.queue = s.queue[1:]
	s.states[job.id] = StateAnalyzing
	return job, true
}

func (s *Scheduler) worker(ctx context.Context, idx int) {
	log := s.log.With(zap.Int("worker", idx))
	for {
		job, ok := s.next()
		if !ok {
			return
		}
		fn, ok := s.runJob(ctx, job, log)
		if ok && job.HasKey {
			if err := s.cache.Insert(job.Key, fn, job.Path); err != nil {
				log.Warn("cache insert failed", zap.Uint32("fn_id", job.Body.FnID), zap.Error(err))
			}
		}

		s.mu.Lock()
		s.states[job.id] = StateCompleted
		if ok {
			s.stats.Analyzed++
			s.done = append(s.done, Result{Job: job, Func: fn, State: StateCompleted})
		} else {
			s.stats.Failed++
		}
		s.progress.Finish(1)
		s.pending--
		if s.pending == 0 {
			s.idle.Broadcast()
		}
		s.mu.Unlock()
	}
}

func (s *Scheduler) runJob(ctx context.Context, job *Job, log *zap.Logger) (fn mir.Func, ok bool) {
	_, span := trace.Start(ctx, trace.ScopeBody, "body:"+strconv.FormatUint(uint64(job.Body.FnID), 10))
	defer func() {
		if r := recover(); r != nil {
			log.Error("analysis panicked, function omitted",
				zap.Uint32("fn_id", job.Body.FnID),
				zap.String("file", job.File),
				zap.Any("panic", r))
			span.End("panic")
			fn, ok = mir.Func{}, false
		}
	}()
	fn = s.analyze(job, log)
	if err := mir.Validate(&fn); err != nil {
		log.Warn("analyzed function failed validation", zap.Uint32("fn_id", job.Body.FnID), zap.Error(err))
	}
	span.WithExtra("decls", strconv.Itoa(len(fn.Decls))).End("")
	return fn, true
}
