package driver

import (
	"context"
	"sync/atomic"
	"testing"

	"go.uber.org/goleak"
	"go.uber.org/zap"

	"github.com/MuntasirSZN/rustowl/internal/cache"
	"github.com/MuntasirSZN/rustowl/internal/facts"
	"github.com/MuntasirSZN/rustowl/internal/mir"
	"github.com/MuntasirSZN/rustowl/internal/project"
)

func stubAnalyze(calls *atomic.Int32) AnalyzeFunc {
	return func(job *Job, _ *zap.Logger) mir.Func {
		if calls != nil {
			calls.Add(1)
		}
		return mir.NewFunc(job.Body.FnID, 0, 0)
	}
}

func stubJob(id uint32) *Job {
	return &Job{Crate: "demo", File: "src/lib.rs", Body: &facts.Body{FnID: id, File: "src/lib.rs"}}
}

func TestSchedulerCompletesEveryJob(t *testing.T) {
	defer goleak.VerifyNone(t)

	const n = 64
	s := NewScheduler(context.Background(), SchedulerOptions{Workers: 4, Analyze: stubAnalyze(nil)})
	var results []Result
	ids := make([]uint64, 0, n)
	for i := range n {
		id, err := s.Submit(stubJob(uint32(i)))
		if err != nil {
			t.Fatalf("Submit: %v", err)
		}
		ids = append(ids, id)
		results = append(results, s.Poll()...)
	}
	results = append(results, s.Drain()...)
	if err := s.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	if len(results) != n {
		t.Fatalf("got %d results, want %d", len(results), n)
	}
	seen := make(map[uint32]bool, n)
	for _, r := range results {
		if seen[r.Func.FnID] {
			t.Fatalf("fn %d delivered twice", r.Func.FnID)
		}
		seen[r.Func.FnID] = true
		if r.State != StateCompleted {
			t.Fatalf("fn %d state = %s", r.Func.FnID, r.State)
		}
	}
	for _, id := range ids {
		if st, ok := s.State(id); !ok || st != StateCompleted {
			t.Fatalf("job %d state = %s, %v", id, st, ok)
		}
	}
	if got := s.Poll(); len(got) != 0 {
		t.Fatalf("results handed out twice: %d", len(got))
	}
	if st := s.Stats(); st.Submitted != n || st.Analyzed != n || st.CacheHits != 0 {
		t.Fatalf("stats = %+v", st)
	}
}

func TestSchedulerCacheHitSkipsWorkers(t *testing.T) {
	defer goleak.VerifyNone(t)

	c := cache.New(cache.DefaultConfig(), nil)
	job := stubJob(9)
	job.Key = cache.Key{File: project.Digest{1}, Body: project.Digest{2}}
	job.HasKey = true
	if err := c.Insert(job.Key, mir.NewFunc(9, 0, 0), ""); err != nil {
		t.Fatal(err)
	}

	var calls atomic.Int32
	s := NewScheduler(context.Background(), SchedulerOptions{Workers: 2, Cache: c, Analyze: stubAnalyze(&calls)})
	defer func() {
		if err := s.Close(); err != nil {
			t.Error(err)
		}
	}()

	id, err := s.Submit(job)
	if err != nil {
		t.Fatal(err)
	}
	// the hit is visible without waiting on any worker
	got := s.Poll()
	if len(got) != 1 || got[0].State != StateCacheHit || got[0].Func.FnID != 9 {
		t.Fatalf("Poll after hit = %+v", got)
	}
	if st, _ := s.State(id); st != StateCacheHit || !st.Done() {
		t.Fatalf("state = %s", st)
	}
	if calls.Load() != 0 {
		t.Fatal("analysis ran for a cached body")
	}
}

func TestSchedulerStoresFreshResults(t *testing.T) {
	defer goleak.VerifyNone(t)

	c := cache.New(cache.DefaultConfig(), nil)
	job := stubJob(4)
	job.Key = cache.Key{File: project.Digest{4}, Body: project.Digest{4}}
	job.HasKey = true

	s := NewScheduler(context.Background(), SchedulerOptions{Workers: 2, Cache: c, Analyze: stubAnalyze(nil)})
	if _, err := s.Submit(job); err != nil {
		t.Fatal(err)
	}
	s.Drain()
	if err := s.Close(); err != nil {
		t.Fatal(err)
	}
	if _, ok := c.Lookup(job.Key); !ok {
		t.Fatal("fresh result not cached")
	}
}

func TestSchedulerRecoversFromPanic(t *testing.T) {
	defer goleak.VerifyNone(t)

	analyze := func(job *Job, _ *zap.Logger) mir.Func {
		if job.Body.FnID == 2 {
			panic("broken body")
		}
		return mir.NewFunc(job.Body.FnID, 0, 0)
	}
	s := NewScheduler(context.Background(), SchedulerOptions{Workers: 2, Analyze: analyze})
	for i := range uint32(4) {
		if _, err := s.Submit(stubJob(i)); err != nil {
			t.Fatal(err)
		}
	}
	results := s.Drain()
	if err := s.Close(); err != nil {
		t.Fatal(err)
	}
	if len(results) != 3 {
		t.Fatalf("got %d results, want 3", len(results))
	}
	for _, r := range results {
		if r.Func.FnID == 2 {
			t.Fatal("panicking body produced a result")
		}
	}
	if st := s.Stats(); st.Failed != 1 || st.Analyzed != 3 {
		t.Fatalf("stats = %+v", st)
	}
}

func TestSchedulerPollDoesNotWait(t *testing.T) {
	defer goleak.VerifyNone(t)

	release := make(chan struct{})
	analyze := func(job *Job, _ *zap.Logger) mir.Func {
		<-release
		return mir.NewFunc(job.Body.FnID, 0, 0)
	}
	s := NewScheduler(context.Background(), SchedulerOptions{Workers: 1, Analyze: analyze})
	id, err := s.Submit(stubJob(1))
	if err != nil {
		t.Fatal(err)
	}
	if got := s.Poll(); len(got) != 0 {
		t.Fatalf("Poll returned %d results before completion", len(got))
	}
	if st, _ := s.State(id); st.Done() {
		t.Fatalf("job done before release: %s", st)
	}
	close(release)
	if got := s.Drain(); len(got) != 1 {
		t.Fatalf("Drain returned %d results", len(got))
	}
	if err := s.Close(); err != nil {
		t.Fatal(err)
	}
}

func TestSubmitAfterClose(t *testing.T) {
	defer goleak.VerifyNone(t)

	s := NewScheduler(context.Background(), SchedulerOptions{Workers: 2})
	if err := s.Close(); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Submit(stubJob(1)); err == nil {
		t.Fatal("Submit after Close succeeded")
	}
	if got := s.Drain(); len(got) != 0 {
		t.Fatalf("Drain on closed scheduler = %d results", len(got))
	}
}

func TestDefaultWorkersBounds(t *testing.T) {
	if n := DefaultWorkers(); n < 2 || n > 8 {
		t.Fatalf("DefaultWorkers = %d", n)
	}
	s := NewScheduler(context.Background(), SchedulerOptions{})
	defer func() { _ = s.Close() }()
	if s.Workers() != DefaultWorkers() {
		t.Fatalf("Workers = %d", s.Workers())
	}
}

func TestStateString(t *testing.T) {
	for st, want := range map[State]string{
		StateQueued:    "queued",
		StateAnalyzing: "analyzing",
		StateCompleted: "completed",
		StateCacheHit:  "cache-hit",
		State(0):       "unknown",
	} {
		if st.String() != want {
			t.Errorf("%d.String() = %q, want %q", st, st.String(), want)
		}
	}
}
