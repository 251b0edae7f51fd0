package evidence

import (
	"context"
	"errors"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// ErrNoEvidenceYet is returned when the rate limiter suppresses a fetch
// before any successful fetch has populated the cache.
var ErrNoEvidenceYet = errors.New("evidence: poll suppressed before first successful fetch")

// PollingSource rate-limits a delegate Source for repeated gate runs,
// serving the last good map between polls. A suppressed fetch never returns
// stale data silently different from what the limiter admitted: the cache
// is only ever replaced by a successful delegate fetch.
type PollingSource struct {
	delegate Source
	limiter  *rate.Limiter

	mu   sync.Mutex
	last Map
}

// NewPollingSource polls the delegate at most once per interval.
func NewPollingSource(delegate Source, interval time.Duration) *PollingSource {
	return &PollingSource{
		delegate: delegate,
		limiter:  rate.NewLimiter(rate.Every(interval), 1),
	}
}

// Fetch implements Source.
func (s *PollingSource) Fetch(ctx context.Context) (Map, error) {
	if !s.limiter.Allow() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if s.last == nil {
			return nil, ErrNoEvidenceYet
		}
		return s.last.Snapshot(), nil
	}

	fresh, err := s.delegate.Fetch(ctx)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	s.last = fresh.Snapshot()
	s.mu.Unlock()
	return fresh, nil
}
