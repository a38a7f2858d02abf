package source

import (
	"crypto/sha256"
	"os"
	"path/filepath"
	"testing"
)

func TestFileSetVersioning(t *testing.T) {
	fs := NewFileSet()

	id1 := fs.Add("src/lib.rs", []byte("fn a() {}"), 0)
	id2 := fs.Add("src/./lib.rs", []byte("fn b() {}"), 0)
	if id1 != 0 || id2 != 1 {
		t.Fatalf("ids = %d, %d", id1, id2)
	}
	if p := fs.Get(id2).Path; p != "src/lib.rs" {
		t.Fatalf("path not normalized: %q", p)
	}
	if string(fs.Get(id1).Content) != "fn a() {}" {
		t.Error("older version must stay reachable by id")
	}
	if fs.Get(42) != nil {
		t.Error("unknown id must return nil")
	}
	if fs.Len() != 2 {
		t.Errorf("Len = %d", fs.Len())
	}
}

func TestFileSetLoadKeepsRawContent(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "main.rs")
	content := []byte("fn main() {\r\n}\r\n")
	if err := os.WriteFile(path, content, 0o600); err != nil {
		t.Fatal(err)
	}
	fs := NewFileSet()
	id, err := fs.Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	f := fs.Get(id)
	if f.Hash != sha256.Sum256(content) {
		t.Error("hash must cover the raw bytes")
	}
	if f.Flags&FileHasCR == 0 {
		t.Error("FileHasCR not set")
	}
	if _, err := fs.Load(filepath.Join(dir, "missing.rs")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestFileByteRange(t *testing.T) {
	fs := NewFileSet()
	f := fs.Get(fs.AddVirtual("v.rs", []byte("let 🦀 = 1;")))
	// "let " is 4 bytes, the crab 4 more.
	r, ok := f.ByteRange(4, 8, 0)
	if !ok || r.From != 4 || r.Until != 5 {
		t.Fatalf("ByteRange = %v, %v", r, ok)
	}
	if _, ok := f.ByteRange(8, 8, 0); ok {
		t.Error("empty byte span must not produce a range")
	}
	start, end := f.Resolve(r)
	if start != (LineCol{0, 4}) || end != (LineCol{0, 5}) {
		t.Errorf("Resolve = %+v %+v", start, end)
	}
}

func TestFileLocMatchesNewLoc(t *testing.T) {
	texts := []string{
		"",
		"fn main() {}\n",
		"let 🦀 = \"é\";\r\nlet x = 1;\r\n",
		"bad \xff\xfe bytes\n",
	}
	fs := NewFileSet()
	for _, text := range texts {
		f := fs.Get(fs.AddVirtual("t.rs", []byte(text)))
		for pos := uint32(0); pos <= uint32(len(text))+3; pos++ {
			for _, offset := range []uint32{0, 2} {
				want := NewLoc(text, pos, offset)
				if got := f.Loc(pos, offset); got != want {
					t.Fatalf("%q: Loc(%d, %d) = %d, NewLoc = %d", text, pos, offset, got, want)
				}
			}
		}
	}
	bare := &File{Content: []byte("héllo")}
	if got := bare.Loc(3, 0); got != 2 {
		t.Fatalf("Loc on a file without index = %d", got)
	}
}
