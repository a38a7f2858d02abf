package facts

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/MuntasirSZN/rustowl/internal/mir"
	"github.com/MuntasirSZN/rustowl/internal/source"
)

// Span is a [Lo, Hi) span as emitted by the compiler. It is a byte span when
// Body.ByteSpans is set and a character span otherwise.
type Span struct {
	Lo uint32 `json:"lo"`
	Hi uint32 `json:"hi"`
}

// BodyRval is the input form of mir.Rval.
type BodyRval struct {
	Kind    mir.RvalKind `json:"type"`
	Target  uint32       `json:"target_local"`
	Span    Span         `json:"span"`
	Mutable bool         `json:"mutable,omitempty"`
}

// BodyStatement is the input form of mir.Statement.
type BodyStatement struct {
	Kind   mir.StatementKind `json:"type"`
	Target uint32            `json:"target_local,omitempty"`
	Span   Span              `json:"span"`
	Rval   *BodyRval         `json:"rval,omitempty"`
}

// BodyTerminator is the input form of mir.Terminator.
type BodyTerminator struct {
	Kind  mir.TerminatorKind `json:"type"`
	Local uint32             `json:"local,omitempty"`
	Span  Span               `json:"span"`
}

// BodyBlock is the input form of mir.Block.
type BodyBlock struct {
	Statements []BodyStatement `json:"statements"`
	Terminator *BodyTerminator `json:"terminator,omitempty"`
}

// BodyDecl carries the static metadata of one local.
type BodyDecl struct {
	Local uint32 `json:"local"`
	User  bool   `json:"user"`
	Name  string `json:"name,omitempty"`
	Span  Span   `json:"span"`
	Ty    string `json:"ty"`
	Drop  bool   `json:"drop"`
}

// Body is everything the engine emits for one function body.
type Body struct {
	FnID       uint32        `json:"fn_id"`
	File       string        `json:"file"`
	FileOffset uint32        `json:"file_offset,omitempty"`
	ByteSpans  bool          `json:"byte_spans,omitempty"`
	Blocks     []BodyBlock   `json:"blocks"`
	Decls      []BodyDecl    `json:"decls"`
	Locations  LocationTable `json:"location_table"`
	Facts      Facts         `json:"facts"`
	Borrows    []Borrow      `json:"borrows"`
	Nested     []uint32      `json:"nested,omitempty"`
}

// DocumentFile optionally inlines source text for a file.
type DocumentFile struct {
	Path   string  `json:"path"`
	Source *string `json:"source,omitempty"`
}

// Document is one crate's worth of facts.
type Document struct {
	Crate  string         `json:"crate"`
	Files  []DocumentFile `json:"files,omitempty"`
	Bodies []Body         `json:"bodies"`
}

// Decode reads a JSON facts document.
func Decode(r io.Reader) (*Document, error) {
	var doc Document
	dec := json.NewDecoder(r)
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("decode facts document: %w", err)
	}
	if doc.Crate == "" {
		return nil, fmt.Errorf("decode facts document: missing crate name")
	}
	return &doc, nil
}

// ReadFile decodes the facts document at path.
func ReadFile(path string) (*Document, error) {
	// #nosec G304 -- path is provided by the caller
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = f.Close()
	}()
	doc, err := Decode(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return doc, nil
}

// Lowered is a body converted into MIR with character ranges.
type Lowered struct {
	Blocks []mir.Block
	Decls  []mir.Decl
}

// Lower converts b into MIR. With ByteSpans set, spans are translated into
// character ranges through file; without a file they are taken as-is. Spans
// that do not form a valid range become the zero Range.
func (b *Body) Lower(file *source.File) Lowered {
	conv := func(s Span) source.Range {
		if b.ByteSpans && file != nil {
			r, _ := file.ByteRange(s.Lo, s.Hi, b.FileOffset)
			return r
		}
		r, _ := source.NewRange(source.Loc(s.Lo), source.Loc(s.Hi))
		return r
	}
	local := func(id uint32) mir.Local { return mir.NewLocal(id, b.FnID) }

	out := Lowered{
		Blocks: make([]mir.Block, 0, len(b.Blocks)),
		Decls:  make([]mir.Decl, 0, len(b.Decls)),
	}
	for _, bb := range b.Blocks {
		block := mir.Block{Statements: make([]mir.Statement, 0, len(bb.Statements))}
		for _, st := range bb.Statements {
			stmt := mir.Statement{Kind: st.Kind, Range: conv(st.Span)}
			switch st.Kind {
			case mir.StmtStorageLive, mir.StmtStorageDead:
				stmt.Target = local(st.Target)
			case mir.StmtAssign:
				stmt.Target = local(st.Target)
				if st.Rval != nil {
					stmt.Rval = &mir.Rval{
						Kind:    st.Rval.Kind,
						Target:  local(st.Rval.Target),
						Range:   conv(st.Rval.Span),
						Mutable: st.Rval.Mutable,
					}
				}
			default:
				stmt.Kind = mir.StmtOther
			}
			block.Statements = append(block.Statements, stmt)
		}
		if t := bb.Terminator; t != nil {
			term := &mir.Terminator{Kind: t.Kind, Range: conv(t.Span)}
			switch t.Kind {
			case mir.TermDrop, mir.TermCall:
				term.Local = local(t.Local)
			default:
				term.Kind = mir.TermOther
			}
			block.Terminator = term
		}
		out.Blocks = append(out.Blocks, block)
	}
	for _, d := range b.Decls {
		decl := mir.Decl{
			Kind:  mir.DeclOther,
			Local: local(d.Local),
			Ty:    d.Ty,
			Drop:  d.Drop,
		}
		if d.User {
			decl.Kind = mir.DeclUser
			decl.Name = d.Name
			decl.Span = conv(d.Span)
		}
		out.Decls = append(out.Decls, decl)
	}
	return out
}
