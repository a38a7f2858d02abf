package mir

import (
	"bytes"
	"strings"
	"testing"

	"github.com/MuntasirSZN/rustowl/internal/source"
)

func TestValidateAcceptsWellFormedFunc(t *testing.T) {
	fn := sampleFunc()
	fn.Decls[0].Lives = []source.Range{source.MustRange(0, 5), source.MustRange(8, 12)}
	if err := Validate(&fn); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if err := Validate(nil); err != nil {
		t.Fatalf("Validate(nil): %v", err)
	}
}

func TestValidateReportsEveryViolation(t *testing.T) {
	fn := sampleFunc()
	fn.Decls[0].Lives = []source.Range{source.MustRange(4, 9), source.MustRange(6, 12)}
	fn.Decls = append(fn.Decls,
		Decl{Kind: DeclOther, Local: NewLocal(1, 7), Ty: "i32"},
		Decl{Kind: DeclUser, Local: NewLocal(5, 8), Ty: "u8"},
	)
	fn.Blocks[0].Statements = append(fn.Blocks[0].Statements,
		Statement{Kind: "yield", Range: source.MustRange(20, 21)},
		Statement{Kind: StmtAssign, Target: NewLocal(4, 7), Range: source.MustRange(21, 22), Rval: &Rval{
			Kind: RvalMove, Target: NewLocal(1, 7), Outlive: &source.Range{From: 1, Until: 2},
		}},
	)

	err := Validate(&fn)
	if err == nil {
		t.Fatal("Validate accepted a broken function")
	}
	msg := err.Error()
	for _, want := range []string{
		"fn 7:",
		"lives: range 1 [6, 12) overlaps [4, 9)",
		"declared twice",
		"belongs to fn 8",
		"user variable without a name",
		`unknown statement kind "yield"`,
		"outlive range on a move",
	} {
		if !strings.Contains(msg, want) {
			t.Errorf("error missing %q:\n%s", want, msg)
		}
	}
}

func TestDumpFunc(t *testing.T) {
	fn := sampleFunc()
	fn.Decls[0].Lives = []source.Range{source.MustRange(0, 5)}
	out := source.MustRange(9, 12)
	fn.Blocks[0].Statements[1].Rval.Outlive = &out

	var buf bytes.Buffer
	if err := DumpFunc(&buf, &fn); err != nil {
		t.Fatal(err)
	}
	got := buf.String()
	for _, want := range []string{
		"fn #7:",
		"_1: i32 [other] name=_",
		"lives: [0, 5)",
		"StorageLive(_1) [0, 5)",
		"_2 = &_1 outlive=[9, 12) [5, 10)",
		"other [10, 12)",
		"drop(_3) [12, 15)",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("dump missing %q:\n%s", want, got)
		}
	}
	if err := DumpFunc(nil, &fn); err != nil {
		t.Fatal(err)
	}
}
