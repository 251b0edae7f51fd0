package ledger

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// SQLLedger implements Ledger using database/sql.
// It supports both Postgres and SQLite via standard drivers: $N
// placeholders work on both, and recorded_at is stored as RFC 3339 text so
// chain hashes survive the round trip byte-identically on either backend.
type SQLLedger struct {
	db    *sql.DB
	clock func() time.Time
}

func NewSQLLedger(db *sql.DB) *SQLLedger {
	return &SQLLedger{db: db, clock: time.Now}
}

// WithClock overrides clock for testing.
func (s *SQLLedger) WithClock(clock func() time.Time) *SQLLedger {
	s.clock = clock
	return s
}

const schema = `
CREATE TABLE IF NOT EXISTS ledger_records (
	seq BIGINT PRIMARY KEY,
	record_id TEXT UNIQUE,
	kind TEXT,
	recorded_at TEXT,
	payload TEXT,
	payload_hash TEXT,
	prev_hash TEXT,
	chain_hash TEXT
);
`

func (s *SQLLedger) Init(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, schema)
	return err
}

func (s *SQLLedger) Append(ctx context.Context, kind Kind, payload []byte) (Record, error) {
	var prev *Record
	head, err := s.Head(ctx)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			return Record{}, err
		}
	} else {
		prev = &head
	}

	rec, err := nextRecord(prev, kind, payload, s.clock())
	if err != nil {
		return Record{}, err
	}

	query := `
		INSERT INTO ledger_records (seq, record_id, kind, recorded_at, payload, payload_hash, prev_hash, chain_hash)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err = s.db.ExecContext(ctx, query,
		rec.Seq, rec.RecordID, string(rec.Kind), rec.RecordedAt.Format(time.RFC3339Nano),
		string(rec.Payload), rec.PayloadHash, rec.PrevHash, rec.ChainHash,
	)
	if err != nil {
		return Record{}, fmt.Errorf("ledger: insert record: %w", err)
	}
	return rec, nil
}

const selectColumns = `seq, record_id, kind, recorded_at, payload, payload_hash, prev_hash, chain_hash`

func (s *SQLLedger) Head(ctx context.Context) (Record, error) {
	query := `SELECT ` + selectColumns + ` FROM ledger_records ORDER BY seq DESC LIMIT 1`
	rec, err := scanRecord(s.db.QueryRowContext(ctx, query))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Record{}, ErrNotFound
		}
		return Record{}, err
	}
	return rec, nil
}

func (s *SQLLedger) List(ctx context.Context) ([]Record, error) {
	query := `SELECT ` + selectColumns + ` FROM ledger_records ORDER BY seq ASC`
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	result := make([]Record, 0)
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// scanner covers both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...interface{}) error
}

func scanRecord(row scanner) (Record, error) {
	var rec Record
	var kind, recordedAt, payload string

	if err := row.Scan(&rec.Seq, &rec.RecordID, &kind, &recordedAt, &payload,
		&rec.PayloadHash, &rec.PrevHash, &rec.ChainHash); err != nil {
		return Record{}, err
	}

	ts, err := time.Parse(time.RFC3339Nano, recordedAt)
	if err != nil {
		return Record{}, fmt.Errorf("ledger: corrupt recorded_at %q: %w", recordedAt, err)
	}
	rec.Kind = Kind(kind)
	rec.RecordedAt = ts
	rec.Payload = json.RawMessage(payload)
	return rec, nil
}
