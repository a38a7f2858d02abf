package source

import (
	"bytes"
	"crypto/sha256"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"fortio.org/safecast"
)

// FileSet holds the source files referenced by one analysis run.
type FileSet struct {
	files []File
}

// NewFileSet creates a new empty FileSet.
func NewFileSet() *FileSet {
	return &FileSet{files: make([]File, 0)}
}

// Add stores a file, hashes its content and returns a new FileID. Adding the
// same path twice yields two files.
func (fileSet *FileSet) Add(path string, content []byte, flags FileFlags) FileID {
	if bytes.IndexByte(content, '\r') >= 0 {
		flags |= FileHasCR
	}
	lenFiles, err := safecast.Conv[uint32](len(fileSet.files))
	if err != nil {
		panic(fmt.Errorf("len files overflow: %w", err))
	}
	id := FileID(lenFiles)
	fileSet.files = append(fileSet.files, File{
		ID:      id,
		Path:    filepath.ToSlash(filepath.Clean(path)),
		Content: content,
		Hash:    sha256.Sum256(content),
		Flags:   flags,
		chars:   sync.OnceValue(func() []uint32 { return charIndex(content) }),
	})
	return id
}

// Load reads a file from disk and calls Add.
func (fileSet *FileSet) Load(path string) (FileID, error) {
	// #nosec G304 -- path comes from the facts document
	content, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	return fileSet.Add(path, content, 0), nil
}

// AddVirtual adds in-memory content with the FileVirtual flag.
func (fileSet *FileSet) AddVirtual(name string, content []byte) FileID {
	return fileSet.Add(name, content, FileVirtual)
}

// Get returns the file for id, or nil when id is unknown.
func (fileSet *FileSet) Get(id FileID) *File {
	if int(id) >= len(fileSet.files) {
		return nil
	}
	return &fileSet.files[id]
}

// Len returns the number of files added so far.
func (fileSet *FileSet) Len() int {
	return len(fileSet.files)
}

// Loc converts a byte position inside f into a character Loc. Files from a
// FileSet answer from an index built on first use; positions past the end
// resolve to the end of the file.
func (f *File) Loc(bytePos, offset uint32) Loc {
	if f.chars == nil {
		return NewLoc(string(f.Content), bytePos, offset)
	}
	idx := f.chars()
	pos := bytePos - min(bytePos, offset)
	if uint64(pos) >= uint64(len(idx)) {
		return Loc(idx[len(idx)-1])
	}
	return Loc(idx[pos])
}

// ByteRange converts a byte span [lo, hi) into a character Range.
func (f *File) ByteRange(lo, hi, offset uint32) (Range, bool) {
	return NewRange(f.Loc(lo, offset), f.Loc(hi, offset))
}

// Resolve converts a range into line/column positions.
func (f *File) Resolve(r Range) (start, end LineCol) {
	text := string(f.Content)
	return IndexToLineCol(text, r.From), IndexToLineCol(text, r.Until)
}
