package ledger

import (
	"crypto/ed25519"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/hkdf"
)

const (
	attestIssuer   = "kings-theorem/ledger"
	attestAudience = "kings-theorem/verify"
)

// AttestationClaims binds a ledger record's identity and hashes into a
// signed receipt. Subject and JTI carry the record id.
type AttestationClaims struct {
	jwt.RegisteredClaims
	Kind        Kind   `json:"kind"`
	ChainHash   string `json:"chain_hash"`
	PayloadHash string `json:"payload_hash"`
}

// Attestor issues and verifies EdDSA-signed receipts for ledger records.
// Its keypair is derived deterministically from a master secret with
// HKDF-SHA256, so every process holding the secret verifies every other's
// receipts without key distribution.
type Attestor struct {
	key   ed25519.PrivateKey
	clock func() time.Time
}

func NewAttestor(masterSecret []byte) (*Attestor, error) {
	if len(masterSecret) == 0 {
		return nil, errors.New("ledger: master secret must not be empty")
	}

	// HKDF-SHA256: derive the Ed25519 seed from the master secret.
	reader := hkdf.New(sha256.New, masterSecret, []byte("kings-theorem-kdf"), []byte("ledger-attestor"))
	seed := make([]byte, ed25519.SeedSize)
	if _, err := io.ReadFull(reader, seed); err != nil {
		return nil, fmt.Errorf("ledger: HKDF derivation failed: %w", err)
	}

	return &Attestor{
		key:   ed25519.NewKeyFromSeed(seed),
		clock: time.Now,
	}, nil
}

// WithClock overrides clock for testing.
func (a *Attestor) WithClock(clock func() time.Time) *Attestor {
	a.clock = clock
	return a
}

func (a *Attestor) PublicKey() ed25519.PublicKey {
	return a.key.Public().(ed25519.PublicKey)
}

// Attest signs a receipt for rec, valid for ttl.
func (a *Attestor) Attest(rec Record, ttl time.Duration) (string, error) {
	now := a.clock().UTC()
	claims := AttestationClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        rec.RecordID,
			Subject:   rec.RecordID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			Issuer:    attestIssuer,
			Audience:  jwt.ClaimStrings{attestAudience},
		},
		Kind:        rec.Kind,
		ChainHash:   rec.ChainHash,
		PayloadHash: rec.PayloadHash,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodEdDSA, claims)
	return token.SignedString(a.key)
}

// VerifyAttestation parses and validates a receipt issued under the same
// master secret.
func (a *Attestor) VerifyAttestation(tokenString string) (*AttestationClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &AttestationClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodEd25519); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return a.key.Public(), nil
	}, jwt.WithTimeFunc(a.clock), jwt.WithIssuer(attestIssuer), jwt.WithAudience(attestAudience))
	if err != nil {
		return nil, err
	}

	if claims, ok := token.Claims.(*AttestationClaims); ok && token.Valid {
		return claims, nil
	}
	return nil, jwt.ErrTokenSignatureInvalid
}
