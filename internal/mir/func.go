package mir

import "github.com/MuntasirSZN/rustowl/internal/source"

// DeclKind separates user-named variables from compiler temporaries.
type DeclKind string

const (
	DeclUser  DeclKind = "user"
	DeclOther DeclKind = "other"
)

// Decl is the declaration record of one local together with its extracted
// range sets. Name and Span are only meaningful for DeclUser.
type Decl struct {
	Kind          DeclKind       `json:"type" yaml:"type" msgpack:"k"`
	Local         Local          `json:"local" yaml:"local" msgpack:"l"`
	Name          string         `json:"name,omitempty" yaml:"name,omitempty" msgpack:"n,omitempty"`
	Span          source.Range   `json:"span,omitzero" yaml:"span,omitempty" msgpack:"s"`
	Ty            string         `json:"ty" yaml:"ty" msgpack:"ty"`
	Lives         []source.Range `json:"lives" yaml:"lives" msgpack:"lv"`
	SharedBorrow  []source.Range `json:"shared_borrow" yaml:"shared_borrow" msgpack:"sb"`
	MutableBorrow []source.Range `json:"mutable_borrow" yaml:"mutable_borrow" msgpack:"mb"`
	Drop          bool           `json:"drop" yaml:"drop" msgpack:"d"`
	DropRange     []source.Range `json:"drop_range" yaml:"drop_range" msgpack:"dr"`
	MustLiveAt    []source.Range `json:"must_live_at" yaml:"must_live_at" msgpack:"ml"`
}

// Func is the analyzed form of one function body.
type Func struct {
	FnID   uint32  `json:"fn_id" yaml:"fn_id" msgpack:"id"`
	Blocks []Block `json:"basic_blocks" yaml:"basic_blocks" msgpack:"bb"`
	Decls  []Decl  `json:"decls" yaml:"decls" msgpack:"d"`
}

// NewFunc returns an empty function with room for the given counts.
func NewFunc(fnID uint32, blocks, decls int) Func {
	return Func{
		FnID:   fnID,
		Blocks: make([]Block, 0, blocks),
		Decls:  make([]Decl, 0, decls),
	}
}

// Decl returns the declaration of local id, if any.
func (f *Func) Decl(id uint32) (*Decl, bool) {
	for i := range f.Decls {
		if f.Decls[i].Local.ID == id {
			return &f.Decls[i], true
		}
	}
	return nil, false
}
