package source

type (
	// FileID uniquely identifies a source file within a FileSet.
	FileID uint32
	// FileFlags encodes metadata about a source file.
	FileFlags uint8
)

const (
	// FileVirtual indicates the file was added from memory (test, facts document, etc.).
	FileVirtual FileFlags = 1 << iota
	// FileHasCR marks files containing carriage returns; offsets skip them.
	FileHasCR
)

// File captures metadata and content for a single source file.
// Content is kept verbatim: carriage returns are skipped while counting
// characters, never stripped, so the hash matches the file on disk.
type File struct {
	ID      FileID
	Path    string
	Content []byte
	Hash    [32]byte
	Flags   FileFlags

	// chars is built on first use by Loc; nil for files not made by a FileSet.
	chars func() []uint32
}

// LineCol is a 0-based line and character position. Characters are counted
// as Unicode scalar values with '\r' excluded.
type LineCol struct {
	Line uint32
	Col  uint32
}
