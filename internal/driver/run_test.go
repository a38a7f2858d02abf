package driver

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"go.uber.org/goleak"
	"go.uber.org/zap"

	"github.com/MuntasirSZN/rustowl/internal/cache"
	"github.com/MuntasirSZN/rustowl/internal/facts"
	"github.com/MuntasirSZN/rustowl/internal/mir"
	"github.com/MuntasirSZN/rustowl/internal/workspace"
)

const libSource = "fn outer() {\n    let x = String::new();\n    let c = || x.len();\n}\n"

func body(id uint32, file string, nested ...uint32) facts.Body {
	return facts.Body{
		FnID: id,
		File: file,
		Blocks: []facts.BodyBlock{{
			Statements: []facts.BodyStatement{
				{Kind: mir.StmtStorageLive, Target: 1, Span: facts.Span{Lo: 17, Hi: 22}},
			},
			Terminator: &facts.BodyTerminator{Kind: mir.TermDrop, Local: 1, Span: facts.Span{Lo: 64, Hi: 65}},
		}},
		Decls: []facts.BodyDecl{
			{Local: 1, User: true, Name: "x", Span: facts.Span{Lo: 21, Hi: 22}, Ty: "String", Drop: true},
		},
		Locations: facts.LocationTable{
			{Block: 0, Statement: 0, Point: facts.PointStart},
			{Block: 0, Statement: 0, Point: facts.PointMid},
			{Block: 0, Statement: 1, Point: facts.PointStart},
			{Block: 0, Statement: 1, Point: facts.PointMid},
		},
		Facts: facts.Facts{
			VarLiveOnEntry: []facts.LocalsAt{
				{Location: 0, Locals: []uint32{1}},
				{Location: 1, Locals: []uint32{1}},
			},
		},
		Nested: nested,
	}
}

func inlineDoc() *facts.Document {
	src := libSource
	return &facts.Document{
		Crate: "demo",
		Files: []facts.DocumentFile{{Path: "src/lib.rs", Source: &src}},
		Bodies: []facts.Body{
			body(1, "src/lib.rs", 2),
			body(2, "src/lib.rs"),
			body(3, "src/main.rs"),
		},
	}
}

func fnIDs(t *testing.T, w *workspace.Workspace, crate, file string) []uint32 {
	t.Helper()
	c, ok := w.Crate(crate)
	if !ok {
		t.Fatalf("crate %q missing", crate)
	}
	f, ok := c.File(file)
	if !ok {
		t.Fatalf("file %q missing", file)
	}
	var ids []uint32
	for _, it := range f.Items {
		ids = append(ids, it.FnID)
	}
	return ids
}

func TestRunBuildsWorkspace(t *testing.T) {
	defer goleak.VerifyNone(t)

	base := t.TempDir()
	if err := os.MkdirAll(filepath.Join(base, "src"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(base, "src", "main.rs"), []byte("fn main() {}\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	var (
		mu     sync.Mutex
		phases []string
	)
	rep, err := Run(context.Background(), inlineDoc(), Options{
		Workers: 2,
		BaseDir: base,
		Observer: func(ev PhaseEvent) {
			mu.Lock()
			defer mu.Unlock()
			phases = append(phases, ev.Name+":"+ev.Status.String())
		},
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if rep.RunID == "" {
		t.Fatal("missing run id")
	}
	if rep.Bodies != 3 || rep.Analyzed != 3 || rep.Failed != 0 {
		t.Fatalf("report = %+v", rep)
	}
	ids := fnIDs(t, rep.Workspace, "demo", "src/lib.rs")
	if len(ids) != 2 {
		t.Fatalf("lib.rs functions = %v", ids)
	}
	if got := fnIDs(t, rep.Workspace, "demo", "src/main.rs"); !cmp.Equal(got, []uint32{3}) {
		t.Fatalf("main.rs functions = %v", got)
	}
	want := []string{"load:start", "load:end", "plan:start", "plan:end", "analyze:start", "analyze:end"}
	if diff := cmp.Diff(want, phases); diff != "" {
		t.Fatalf("phases (-want +got):\n%s", diff)
	}
	if len(rep.Timings.Phases) != 3 {
		t.Fatalf("timings = %+v", rep.Timings)
	}
	if len(rep.Sources) != 2 || rep.Sources["src/lib.rs"] == nil || rep.Sources["src/main.rs"] == nil {
		t.Fatalf("sources = %v", rep.Sources)
	}
}

func TestRunServesSecondPassFromCache(t *testing.T) {
	defer goleak.VerifyNone(t)

	cfg := cache.DefaultConfig()
	cfg.Dir = t.TempDir()
	first, err := cache.Open(cfg, nil)
	if err != nil {
		t.Fatal(err)
	}
	doc := inlineDoc()
	doc.Bodies = doc.Bodies[:2]

	rep1, err := Run(context.Background(), doc, Options{Workers: 2, Cache: first})
	if err != nil {
		t.Fatal(err)
	}
	if rep1.CacheHits != 0 || rep1.Analyzed != 2 {
		t.Fatalf("cold run = %+v", rep1)
	}

	second, err := cache.Open(cfg, nil)
	if err != nil {
		t.Fatal(err)
	}
	rep2, err := Run(context.Background(), inlineDoc(), Options{Workers: 2, Cache: second})
	if err != nil {
		t.Fatal(err)
	}
	// main.rs has no source, so only the two lib.rs bodies can hit
	if rep2.CacheHits != 2 || rep2.Analyzed != 1 {
		t.Fatalf("warm run = %+v", rep2)
	}
	if rep2.CacheStats.Hits != 2 {
		t.Fatalf("cache stats = %+v", rep2.CacheStats)
	}

	for _, id := range []uint32{1, 2} {
		cold, warm := funcByID(t, rep1.Workspace, id), funcByID(t, rep2.Workspace, id)
		if diff := cmp.Diff(cold, warm, cmpopts.EquateEmpty()); diff != "" {
			t.Fatalf("fn %d cached result differs (-cold +warm):\n%s", id, diff)
		}
	}
}

func funcByID(t *testing.T, w *workspace.Workspace, id uint32) mir.Func {
	t.Helper()
	c, _ := w.Crate("demo")
	f, _ := c.File("src/lib.rs")
	for _, fn := range f.Items {
		if fn.FnID == id {
			return fn
		}
	}
	t.Fatalf("fn %d missing", id)
	return mir.Func{}
}

func TestRunOmitsPanickingBody(t *testing.T) {
	defer goleak.VerifyNone(t)

	analyze := func(job *Job, log *zap.Logger) mir.Func {
		if job.Body.FnID == 2 {
			panic("boom")
		}
		return analyzeJob(job, log)
	}
	rep, err := Run(context.Background(), inlineDoc(), Options{Workers: 2, Analyze: analyze})
	if err != nil {
		t.Fatal(err)
	}
	if rep.Failed != 1 {
		t.Fatalf("Failed = %d", rep.Failed)
	}
	if got := fnIDs(t, rep.Workspace, "demo", "src/lib.rs"); !cmp.Equal(got, []uint32{1}) {
		t.Fatalf("lib.rs functions = %v", got)
	}
}

func TestRunRejectsNilDocument(t *testing.T) {
	if _, err := Run(context.Background(), nil, Options{}); err == nil {
		t.Fatal("nil document accepted")
	}
}

func TestPlanJobsOrder(t *testing.T) {
	doc := &facts.Document{
		Crate: "demo",
		Bodies: []facts.Body{
			{FnID: 1, File: "a.rs", Nested: []uint32{3, 9}},
			{FnID: 2, File: "a.rs"},
			{FnID: 3, File: "a.rs", Nested: []uint32{4}},
			{FnID: 4, File: "a.rs"},
			{FnID: 2, File: "a.rs"},
			{FnID: 5, File: "b.rs", Nested: []uint32{6}},
			{FnID: 6, File: "b.rs", Nested: []uint32{5}},
		},
	}
	files := &fileTable{paths: map[string]fileEntry{}}
	jobs := planJobs(doc, files, zap.NewNop())
	var got []uint32
	for _, j := range jobs {
		got = append(got, j.Body.FnID)
		if j.HasKey {
			t.Fatalf("fn %d keyed without source", j.Body.FnID)
		}
	}
	if diff := cmp.Diff([]uint32{1, 3, 4, 2, 5, 6}, got); diff != "" {
		t.Fatalf("order (-want +got):\n%s", diff)
	}
}

func TestNewJobKeysBySourceAndBody(t *testing.T) {
	src := libSource
	doc := &facts.Document{
		Crate:  "demo",
		Files:  []facts.DocumentFile{{Path: "src/lib.rs", Source: &src}},
		Bodies: []facts.Body{body(1, "src/lib.rs"), body(2, "src/lib.rs")},
	}
	files := loadFiles(doc, "", zap.NewNop())
	a := newJob("demo", &doc.Bodies[0], files.lookup("src/lib.rs"), zap.NewNop())
	b := newJob("demo", &doc.Bodies[1], files.lookup("src/lib.rs"), zap.NewNop())
	if !a.HasKey || !b.HasKey {
		t.Fatal("inline source produced no cache key")
	}
	if a.Key.File != b.Key.File {
		t.Fatal("same file hashed differently")
	}
	if a.Key.Body == b.Key.Body {
		t.Fatal("different bodies share a digest")
	}
	if a.Path != "" {
		t.Fatalf("inline file has disk path %q", a.Path)
	}
}
