package project

import (
	"crypto/sha256"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/MuntasirSZN/rustowl/internal/facts"
)

func TestDigestHexRoundTrip(t *testing.T) {
	d := Digest(sha256.Sum256([]byte("fn main() {}")))
	s := d.String()
	if len(s) != 64 || strings.ToLower(s) != s {
		t.Fatalf("unexpected hex %q", s)
	}
	back, err := ParseDigest(s)
	if err != nil {
		t.Fatalf("ParseDigest: %v", err)
	}
	if back != d {
		t.Fatalf("round trip mismatch: %s vs %s", back, d)
	}
	if _, err := ParseDigest("abcd"); err == nil {
		t.Error("short digest accepted")
	}
	if _, err := ParseDigest(strings.Repeat("zz", 32)); err == nil {
		t.Error("non-hex digest accepted")
	}
	if !(Digest{}).IsZero() || d.IsZero() {
		t.Error("IsZero mismatch")
	}
}

func TestHashBody(t *testing.T) {
	body := &facts.Body{
		FnID: 1,
		File: "src/lib.rs",
		Blocks: []facts.BodyBlock{{Statements: []facts.BodyStatement{
			{Kind: "other", Span: facts.Span{Lo: 0, Hi: 4}},
		}}},
	}
	h1, err := HashBody(body)
	if err != nil {
		t.Fatalf("HashBody: %v", err)
	}
	h2, _ := HashBody(body)
	if h1 != h2 {
		t.Fatal("HashBody is not deterministic")
	}
	body.Blocks[0].Statements[0].Span.Hi = 5
	h3, _ := HashBody(body)
	if h3 == h1 {
		t.Fatal("HashBody ignored a span change")
	}
}

func TestFindConfigWalksUp(t *testing.T) {
	root := t.TempDir()
	nested := filepath.Join(root, "a", "b")
	if err := os.MkdirAll(nested, 0o755); err != nil {
		t.Fatal(err)
	}
	cfg := filepath.Join(root, ConfigFileName)
	if err := os.WriteFile(cfg, []byte("[cache]\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	got, ok, err := FindConfig(nested)
	if err != nil || !ok || got != cfg {
		t.Fatalf("FindConfig = %q, %v, %v; want %q", got, ok, err, cfg)
	}
	if _, ok, err := FindConfig(t.TempDir()); err != nil || ok {
		t.Fatalf("FindConfig in empty tree = %v, %v", ok, err)
	}
}
