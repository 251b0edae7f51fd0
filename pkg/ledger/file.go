package ledger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
	"time"
)

// FileLedger implements Ledger over a local JSONL file, one record per
// line, opened in append mode for every write. The full chain is loaded and
// verified at open, so a tampered file is rejected before any new record
// links onto it.
type FileLedger struct {
	path    string
	mu      sync.RWMutex
	records []Record
	clock   func() time.Time
}

func NewFileLedger(path string) (*FileLedger, error) {
	fl := &FileLedger{
		path:  path,
		clock: time.Now,
	}
	if err := fl.load(); err != nil {
		return nil, err
	}
	return fl, nil
}

// WithClock overrides clock for testing.
func (f *FileLedger) WithClock(clock func() time.Time) *FileLedger {
	f.clock = clock
	return f
}

func (f *FileLedger) load() error {
	file, err := os.Open(f.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil // Start empty
		}
		return fmt.Errorf("ledger: open %s: %w", f.path, err)
	}
	defer func() { _ = file.Close() }()

	dec := json.NewDecoder(file)
	for {
		var rec Record
		if err := dec.Decode(&rec); err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return fmt.Errorf("ledger: corrupt record in %s: %w", f.path, err)
		}
		f.records = append(f.records, rec)
	}

	if err := VerifyChain(f.records); err != nil {
		return fmt.Errorf("ledger: %s failed verification on load: %w", f.path, err)
	}
	return nil
}

func (f *FileLedger) Append(ctx context.Context, kind Kind, payload []byte) (Record, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var prev *Record
	if n := len(f.records); n > 0 {
		prev = &f.records[n-1]
	}
	rec, err := nextRecord(prev, kind, payload, f.clock())
	if err != nil {
		return Record{}, err
	}

	line, err := json.Marshal(rec)
	if err != nil {
		return Record{}, fmt.Errorf("ledger: encode record: %w", err)
	}

	file, err := os.OpenFile(f.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0600)
	if err != nil {
		return Record{}, fmt.Errorf("ledger: open %s: %w", f.path, err)
	}
	defer func() { _ = file.Close() }()

	if _, err := file.Write(append(line, '\n')); err != nil {
		return Record{}, fmt.Errorf("ledger: write record: %w", err)
	}

	f.records = append(f.records, rec)
	return rec, nil
}

func (f *FileLedger) Head(ctx context.Context) (Record, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	if len(f.records) == 0 {
		return Record{}, ErrNotFound
	}
	return f.records[len(f.records)-1], nil
}

func (f *FileLedger) List(ctx context.Context) ([]Record, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	out := make([]Record, len(f.records))
	copy(out, f.records)
	return out, nil
}
