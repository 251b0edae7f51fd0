// Package canonical provides RFC 8785 (JSON Canonicalization Scheme) compliant
// serialization for deterministic hashing of kernel artifacts: constraint
// expressions, theorem certificates, and ledger records.
package canonical

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"

	"github.com/gowebpki/jcs"
	"golang.org/x/text/unicode/norm"
)

// Marshal returns the RFC 8785 canonical JSON encoding of v.
//
// Key features:
// 1. Map keys are sorted lexicographically by UTF-8 bytes.
// 2. HTML escaping is DISABLED (unlike standard json.Marshal).
// 3. No insignificant whitespace.
//
// The value is first marshaled with encoding/json so struct tags are
// respected, then transformed to canonical form.
func Marshal(v interface{}) ([]byte, error) {
	intermediate, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("canonical: pre-marshal failed: %w", err)
	}
	out, err := jcs.Transform(intermediate)
	if err != nil {
		return nil, fmt.Errorf("canonical: transform failed: %w", err)
	}
	return out, nil
}

// Transform rewrites raw JSON text into canonical form. Unlike Marshal it
// takes serialized JSON, so callers holding json.RawMessage payloads can
// canonicalize without an intermediate decode. Escaping variants of the
// same value ("\u003c" vs "<") collapse to identical bytes.
func Transform(raw []byte) ([]byte, error) {
	out, err := jcs.Transform(raw)
	if err != nil {
		return nil, fmt.Errorf("canonical: transform failed: %w", err)
	}
	return out, nil
}

// Hash returns the lowercase hex SHA-256 of the canonical encoding of v.
// Equal values produce equal hashes regardless of source key order.
func Hash(v interface{}) (string, error) {
	b, err := Marshal(v)
	if err != nil {
		return "", err
	}
	return HashBytes(b), nil
}

// HashBytes returns the lowercase hex SHA-256 of b as-is.
func HashBytes(b []byte) string {
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}

// NFC returns s in Unicode Normalization Form C. Identifier-like strings are
// normalized before hashing so visually identical spellings collapse to one
// canonical byte sequence.
func NFC(s string) string {
	return norm.NFC.String(s)
}
