// Package workspace is the output model of an analysis run: crates by name,
// files by path, and the analyzed functions of each file.
//
// Maps keep insertion order so the emitted document is stable across runs
// with the same input. A file holds at most one function per fn id; the first
// one added wins.
package workspace

import (
	"github.com/MuntasirSZN/rustowl/internal/mir"
)

// File lists the functions analyzed in one source file.
type File struct {
	Items []mir.Func `json:"items" yaml:"items"`
	seen  map[uint32]struct{}
}

// NewFile returns an empty file.
func NewFile() *File {
	return &File{Items: []mir.Func{}, seen: make(map[uint32]struct{})}
}

func (f *File) index() {
	if f.seen != nil {
		return
	}
	f.seen = make(map[uint32]struct{}, len(f.Items))
	for _, it := range f.Items {
		f.seen[it.FnID] = struct{}{}
	}
}

// Add appends fn unless a function with the same id is already present.
// It reports whether fn was added.
func (f *File) Add(fn mir.Func) bool {
	f.index()
	if _, dup := f.seen[fn.FnID]; dup {
		return false
	}
	f.seen[fn.FnID] = struct{}{}
	f.Items = append(f.Items, fn)
	return true
}

// Merge appends the functions of other that f does not have yet.
func (f *File) Merge(other *File) {
	for _, fn := range other.Items {
		f.Add(fn)
	}
}

// Crate maps file paths to files.
type Crate struct {
	order []string
	files map[string]*File
}

// NewCrate returns an empty crate.
func NewCrate() *Crate {
	return &Crate{files: make(map[string]*File)}
}

// File returns the file at path, if present.
func (c *Crate) File(path string) (*File, bool) {
	f, ok := c.files[path]
	return f, ok
}

// Files returns the file paths in insertion order.
func (c *Crate) Files() []string {
	return append([]string(nil), c.order...)
}

func (c *Crate) fileOrNew(path string) *File {
	f, ok := c.files[path]
	if !ok {
		f = NewFile()
		c.files[path] = f
		c.order = append(c.order, path)
	}
	return f
}

// Merge folds other into c. Files new to c are appended in other's order.
func (c *Crate) Merge(other *Crate) {
	for _, path := range other.order {
		c.fileOrNew(path).Merge(other.files[path])
	}
}

// Workspace maps crate names to crates.
type Workspace struct {
	order  []string
	crates map[string]*Crate
}

// New returns an empty workspace.
func New() *Workspace {
	return &Workspace{crates: make(map[string]*Crate)}
}

// Crate returns the crate called name, if present.
func (w *Workspace) Crate(name string) (*Crate, bool) {
	c, ok := w.crates[name]
	return c, ok
}

// Crates returns the crate names in insertion order.
func (w *Workspace) Crates() []string {
	return append([]string(nil), w.order...)
}

func (w *Workspace) crateOrNew(name string) *Crate {
	c, ok := w.crates[name]
	if !ok {
		c = NewCrate()
		w.crates[name] = c
		w.order = append(w.order, name)
	}
	return c
}

// AddFunction records fn under crate and file. A function whose id is
// already present in that file is discarded and AddFunction returns false.
func (w *Workspace) AddFunction(crate, file string, fn mir.Func) bool {
	return w.crateOrNew(crate).fileOrNew(file).Add(fn)
}

// Merge folds other into w, keeping first-seen functions.
func (w *Workspace) Merge(other *Workspace) {
	if other == nil {
		return
	}
	for _, name := range other.order {
		w.crateOrNew(name).Merge(other.crates[name])
	}
}

// Functions returns the total number of functions held.
func (w *Workspace) Functions() int {
	n := 0
	for _, c := range w.crates {
		for _, f := range c.files {
			n += len(f.Items)
		}
	}
	return n
}
