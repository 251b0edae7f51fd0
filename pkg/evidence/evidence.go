// Package evidence acquires the numeric evidence maps the theorem evaluator
// consumes, keyed by metric name. Sources fail closed: malformed telemetry
// is rejected at the boundary rather than coerced, while a metric that is
// simply absent reads as 0.0 inside the evaluator.
package evidence

import "context"

// Map is runtime evidence keyed by metric name.
type Map map[string]float64

// Value returns the named metric, or 0.0 when absent. Missing evidence is
// not an error; rules fail closed on it.
func (m Map) Value(name string) float64 {
	return m[name]
}

// Snapshot returns a copy that later mutation of m cannot reach, for
// embedding in certificates.
func (m Map) Snapshot() Map {
	out := make(Map, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// Source supplies evidence from monitoring infrastructure.
type Source interface {
	Fetch(ctx context.Context) (Map, error)
}

// StaticSource serves a fixed map, for tests and embedded callers.
type StaticSource struct {
	values Map
}

// NewStaticSource copies values into a StaticSource.
func NewStaticSource(values Map) *StaticSource {
	return &StaticSource{values: values.Snapshot()}
}

// Fetch implements Source.
func (s *StaticSource) Fetch(ctx context.Context) (Map, error) {
	return s.values.Snapshot(), nil
}
