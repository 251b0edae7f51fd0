// Package ledger persists gate outputs as hash-chained, append-only record
// sequences. Every record carries the chain hash of its predecessor, so any
// mutation, deletion or reorder of history is detectable offline by
// VerifyChain. Backends: a JSONL file for single-node durability and a
// database/sql implementation for Postgres and SQLite.
package ledger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/Kinrokin/kings-theorem-sub001/pkg/canonical"
)

// Kind discriminates what a record's payload holds.
type Kind string

const (
	// KindCertificate records a sealed theorem evaluation certificate.
	KindCertificate Kind = "certificate"
	// KindManifest records a composition manifest.
	KindManifest Kind = "manifest"
)

// genesisHash anchors the first record of every chain.
const genesisHash = "0000000000000000000000000000000000000000000000000000000000000000"

// ErrNotFound is returned when a ledger record is not found.
var ErrNotFound = errors.New("not found")

// ErrChainBroken is returned by VerifyChain when the record sequence fails
// integrity checks. The wrapped message names the first offending record.
var ErrChainBroken = errors.New("ledger chain broken")

// Record is one link of the chain. PayloadHash covers the canonical form of
// the payload alone; ChainHash covers the whole record (PrevHash included)
// with the ChainHash field cleared, the same sealing scheme certificates
// use.
type Record struct {
	Seq         uint64          `json:"seq"`
	RecordID    string          `json:"record_id"`
	Kind        Kind            `json:"kind"`
	RecordedAt  time.Time       `json:"recorded_at"`
	Payload     json.RawMessage `json:"payload"`
	PayloadHash string          `json:"payload_hash"`
	PrevHash    string          `json:"prev_hash"`
	ChainHash   string          `json:"chain_hash"`
}

// ComputeChainHash hashes the record's canonical form with the chain hash
// cleared.
func (r *Record) ComputeChainHash() (string, error) {
	unsealed := *r
	unsealed.ChainHash = ""
	return canonical.Hash(unsealed)
}

// Ledger is the durable interface for chain storage. Append is the only
// mutation: records are never updated or deleted.
type Ledger interface {
	// Append seals payload into a new record linked to the current head.
	Append(ctx context.Context, kind Kind, payload []byte) (Record, error)

	// Head returns the most recent record, or ErrNotFound on an empty chain.
	Head(ctx context.Context) (Record, error)

	// List returns all records in sequence order.
	List(ctx context.Context) ([]Record, error)
}

// nextRecord builds and seals the successor of prev. The payload is stored
// in canonical form so re-encoding by any backend cannot shift its hash.
func nextRecord(prev *Record, kind Kind, payload []byte, now time.Time) (Record, error) {
	if kind != KindCertificate && kind != KindManifest {
		return Record{}, fmt.Errorf("ledger: unknown record kind %q", kind)
	}
	canonPayload, err := canonical.Transform(payload)
	if err != nil {
		return Record{}, fmt.Errorf("ledger: payload must be valid JSON: %w", err)
	}

	rec := Record{
		Seq:         1,
		RecordID:    uuid.New().String(),
		Kind:        kind,
		RecordedAt:  now.UTC(),
		Payload:     canonPayload,
		PayloadHash: canonical.HashBytes(canonPayload),
		PrevHash:    genesisHash,
	}
	if prev != nil {
		rec.Seq = prev.Seq + 1
		rec.PrevHash = prev.ChainHash
	}

	chainHash, err := rec.ComputeChainHash()
	if err != nil {
		return Record{}, fmt.Errorf("ledger: chain hash: %w", err)
	}
	rec.ChainHash = chainHash
	return rec, nil
}

// VerifyChain checks a full record sequence: contiguous numbering from 1,
// predecessor linkage, payload hashes, and chain hash recomputation. An
// empty chain is valid.
func VerifyChain(records []Record) error {
	prevHash := genesisHash
	for i, rec := range records {
		if rec.Seq != uint64(i)+1 {
			return fmt.Errorf("%w: record %s has seq %d, want %d", ErrChainBroken, rec.RecordID, rec.Seq, i+1)
		}
		if rec.PrevHash != prevHash {
			return fmt.Errorf("%w: record %s prev_hash does not match predecessor", ErrChainBroken, rec.RecordID)
		}
		canonPayload, err := canonical.Transform(rec.Payload)
		if err != nil {
			return fmt.Errorf("%w: record %s payload is not valid JSON", ErrChainBroken, rec.RecordID)
		}
		if canonical.HashBytes(canonPayload) != rec.PayloadHash {
			return fmt.Errorf("%w: record %s payload hash mismatch", ErrChainBroken, rec.RecordID)
		}
		chainHash, err := rec.ComputeChainHash()
		if err != nil {
			return fmt.Errorf("%w: record %s chain hash recomputation failed", ErrChainBroken, rec.RecordID)
		}
		if chainHash != rec.ChainHash {
			return fmt.Errorf("%w: record %s chain hash mismatch", ErrChainBroken, rec.RecordID)
		}
		prevHash = rec.ChainHash
	}
	return nil
}
