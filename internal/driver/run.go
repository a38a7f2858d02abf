// Package driver turns a facts document into an analyzed workspace. Bodies
// are scheduled on a worker pool, served from the result cache where
// possible, and merged into the workspace as they complete.
package driver

import (
	"context"
	"fmt"
	"path/filepath"
	"strconv"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/MuntasirSZN/rustowl/internal/cache"
	"github.com/MuntasirSZN/rustowl/internal/facts"
	"github.com/MuntasirSZN/rustowl/internal/observ"
	"github.com/MuntasirSZN/rustowl/internal/project"
	"github.com/MuntasirSZN/rustowl/internal/source"
	"github.com/MuntasirSZN/rustowl/internal/trace"
	"github.com/MuntasirSZN/rustowl/internal/workspace"
)

// Options configure Run.
type Options struct {
	Workers int
	// Cache serves and stores results; nil disables caching.
	Cache *cache.Cache
	Log   *zap.Logger
	// BaseDir resolves relative file paths of the document.
	BaseDir string
	// Observer, when set, is told about phase boundaries.
	Observer PhaseObserver
	// Analyze overrides the per-body analysis.
	Analyze AnalyzeFunc
}

// Report is the outcome of one run.
type Report struct {
	RunID      string
	Workspace  *workspace.Workspace
	Bodies     int
	Analyzed   int
	CacheHits  int
	Failed     int
	Duplicates int
	CacheStats cache.Stats
	Timings    observ.Report
	// Sources maps each document file path to its loaded source; files whose
	// source was unavailable are absent.
	Sources map[string]*source.File
}

// Run analyzes every body of doc. Nested bodies are visited after their
// parent; a fn id seen twice is scheduled once.
func Run(ctx context.Context, doc *facts.Document, opts Options) (*Report, error) {
	if doc == nil {
		return nil, fmt.Errorf("run: nil document")
	}
	log := opts.Log
	if log == nil {
		log = zap.NewNop()
	}
	rep := &Report{
		RunID:     uuid.NewString(),
		Workspace: workspace.New(),
	}
	log = log.With(zap.String("run_id", rep.RunID), zap.String("crate", doc.Crate))

	ctx, runSpan := trace.Start(ctx, trace.ScopeRun, "run:"+doc.Crate)
	defer runSpan.WithExtra("run_id", rep.RunID).End("")

	timer := observ.NewTimer()
	phase := func(name string, fn func() string) {
		opts.Observer.notify(PhaseEvent{Name: name, Status: PhaseStart})
		pctx, span := trace.Start(ctx, trace.ScopePass, name)
		start := time.Now()
		timer.Measure(name, func() string {
			note := fn()
			trace.Point(pctx, trace.ScopePass, name+".done", note)
			span.End(note)
			return note
		})
		opts.Observer.notify(PhaseEvent{Name: name, Status: PhaseEnd, Elapsed: time.Since(start)})
	}

	var files *fileTable
	phase("load", func() string {
		files = loadFiles(doc, opts.BaseDir, log)
		return strconv.Itoa(files.set.Len()) + " files"
	})
	rep.Sources = files.sources()

	var jobs []*Job
	phase("plan", func() string {
		jobs = planJobs(doc, files, log)
		return strconv.Itoa(len(jobs)) + " bodies"
	})
	rep.Bodies = len(jobs)

	sched := NewScheduler(ctx, SchedulerOptions{
		Workers: opts.Workers,
		Cache:   opts.Cache,
		Log:     log,
		Analyze: opts.Analyze,
	})
	merge := func(results []Result) {
		for _, r := range results {
			if !rep.Workspace.AddFunction(r.Job.Crate, r.Job.File, r.Func) {
				rep.Duplicates++
				log.Debug("duplicate function dropped",
					zap.Uint32("fn_id", r.Func.FnID), zap.String("file", r.Job.File))
			}
		}
	}

	var submitErr error
	phase("analyze", func() string {
		for _, job := range jobs {
			if _, err := sched.Submit(job); err != nil {
				submitErr = err
				break
			}
			merge(sched.Poll())
		}
		merge(sched.Drain())
		return strconv.Itoa(sched.Workers()) + " workers"
	})
	if err := sched.Close(); err != nil && submitErr == nil {
		submitErr = err
	}
	if submitErr != nil {
		return nil, fmt.Errorf("run %s: %w", doc.Crate, submitErr)
	}

	st := sched.Stats()
	rep.Analyzed, rep.CacheHits, rep.Failed = st.Analyzed, st.CacheHits, st.Failed

	if opts.Cache != nil {
		phase("cache", func() string {
			if err := opts.Cache.Flush(); err != nil {
				log.Warn("cache flush failed", zap.Error(err))
				return "flush failed"
			}
			return strconv.Itoa(opts.Cache.Len()) + " entries"
		})
		rep.CacheStats = opts.Cache.Stats()
		log.Info("cache stats",
			zap.Uint64("hits", rep.CacheStats.Hits),
			zap.Uint64("misses", rep.CacheStats.Misses),
			zap.Uint64("evictions", rep.CacheStats.Evictions),
			zap.Int("entries", rep.CacheStats.Entries),
			zap.Int64("bytes", rep.CacheStats.Bytes),
			zap.Float64("hit_rate", rep.CacheStats.HitRate()))
	}

	rep.Timings = timer.Report()
	log.Info("analysis finished",
		zap.Int("bodies", rep.Bodies),
		zap.Int("analyzed", rep.Analyzed),
		zap.Int("cache_hits", rep.CacheHits),
		zap.Int("failed", rep.Failed),
		zap.Int("functions", rep.Workspace.Functions()))
	return rep, nil
}

type fileEntry struct {
	file *source.File
	disk string // absolute path when loaded from disk
}

type fileTable struct {
	set   *source.FileSet
	paths map[string]fileEntry // document path -> file
}

func (t *fileTable) lookup(path string) fileEntry {
	return t.paths[path]
}

func (t *fileTable) sources() map[string]*source.File {
	out := make(map[string]*source.File, len(t.paths))
	for path, fe := range t.paths {
		if fe.file != nil {
			out[path] = fe.file
		}
	}
	return out
}

// loadFiles registers inline sources first, then reads every other file a
// body refers to. Unreadable files are logged and left without source.
func loadFiles(doc *facts.Document, base string, log *zap.Logger) *fileTable {
	t := &fileTable{set: source.NewFileSet(), paths: make(map[string]fileEntry)}
	for _, f := range doc.Files {
		if f.Source == nil {
			continue
		}
		id := t.set.AddVirtual(f.Path, []byte(*f.Source))
		t.paths[f.Path] = fileEntry{file: t.set.Get(id)}
	}
	for i := range doc.Bodies {
		path := doc.Bodies[i].File
		if _, ok := t.paths[path]; ok {
			continue
		}
		disk := path
		if !filepath.IsAbs(disk) && base != "" {
			disk = filepath.Join(base, disk)
		}
		if abs, err := filepath.Abs(disk); err == nil {
			disk = abs
		}
		id, err := t.set.Load(disk)
		if err != nil {
			log.Warn("source unavailable, caching disabled for file",
				zap.String("file", path), zap.Error(err))
			t.paths[path] = fileEntry{}
			continue
		}
		t.paths[path] = fileEntry{file: t.set.Get(id), disk: disk}
	}
	return t
}

// planJobs orders the bodies of doc for submission: top-level bodies in
// document order, each followed by its nested bodies. Bodies only reachable
// through a nesting cycle are appended in document order.
func planJobs(doc *facts.Document, files *fileTable, log *zap.Logger) []*Job {
	byID := make(map[uint32]int, len(doc.Bodies))
	nested := make(map[uint32]struct{})
	for i := range doc.Bodies {
		b := &doc.Bodies[i]
		if _, dup := byID[b.FnID]; dup {
			log.Debug("duplicate body ignored", zap.Uint32("fn_id", b.FnID))
			continue
		}
		byID[b.FnID] = i
		for _, n := range b.Nested {
			nested[n] = struct{}{}
		}
	}

	visited := make(map[uint32]struct{}, len(byID))
	jobs := make([]*Job, 0, len(byID))
	visit := func(root uint32) {
		stack := []uint32{root}
		for len(stack) > 0 {
			id := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			if _, seen := visited[id]; seen {
				continue
			}
			idx, ok := byID[id]
			if !ok {
				log.Debug("nested body missing from document", zap.Uint32("fn_id", id))
				continue
			}
			visited[id] = struct{}{}
			body := &doc.Bodies[idx]
			jobs = append(jobs, newJob(doc.Crate, body, files.lookup(body.File), log))
			for i := len(body.Nested) - 1; i >= 0; i-- {
				stack = append(stack, body.Nested[i])
			}
		}
	}
	for i := range doc.Bodies {
		if _, isNested := nested[doc.Bodies[i].FnID]; !isNested {
			visit(doc.Bodies[i].FnID)
		}
	}
	for i := range doc.Bodies {
		visit(doc.Bodies[i].FnID)
	}
	return jobs
}

func newJob(crate string, body *facts.Body, fe fileEntry, log *zap.Logger) *Job {
	job := &Job{
		Crate:  crate,
		File:   body.File,
		Body:   body,
		Source: fe.file,
		Path:   fe.disk,
	}
	if fe.file == nil {
		return job
	}
	bodyDigest, err := project.HashBody(body)
	if err != nil {
		log.Warn("cannot hash body, skipping cache", zap.Uint32("fn_id", body.FnID), zap.Error(err))
		return job
	}
	job.Key = cache.Key{File: project.Digest(fe.file.Hash), Body: bodyDigest}
	job.HasKey = true
	return job
}
