// Package project locates per-project configuration and computes the content
// digests that key cached analysis results.
package project

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/MuntasirSZN/rustowl/internal/facts"
)

// Digest is a fixed 256-bit hash, compatible with source.File.Hash.
type Digest [32]byte

// String renders the digest as lowercase hex.
func (d Digest) String() string {
	return hex.EncodeToString(d[:])
}

// IsZero reports whether d is the zero digest.
func (d Digest) IsZero() bool {
	return d == Digest{}
}

// ParseDigest parses the hex form produced by String.
func ParseDigest(s string) (Digest, error) {
	var d Digest
	raw, err := hex.DecodeString(s)
	if err != nil {
		return d, fmt.Errorf("parse digest %q: %w", s, err)
	}
	if len(raw) != len(d) {
		return d, fmt.Errorf("parse digest %q: want %d bytes, got %d", s, len(d), len(raw))
	}
	copy(d[:], raw)
	return d, nil
}

// HashBody hashes everything that determines the analysis of one body: its
// blocks, declarations, location table, facts and borrows, together with how
// its spans are to be read.
func HashBody(b *facts.Body) (Digest, error) {
	raw, err := msgpack.Marshal(b)
	if err != nil {
		return Digest{}, fmt.Errorf("hash body %d: %w", b.FnID, err)
	}
	return Digest(sha256.Sum256(raw)), nil
}
