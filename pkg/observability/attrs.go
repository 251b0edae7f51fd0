// Kernel-specific instrumentation helpers.
package observability

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Kernel semantic convention attributes.
var (
	// Gate run attributes
	AttrRunID         = attribute.Key("kt.run.id")
	AttrProfile       = attribute.Key("kt.profile")
	AttrRulesHash     = attribute.Key("kt.rules.hash")
	AttrOverallStatus = attribute.Key("kt.overall_status")
	AttrViolationProb = attribute.Key("kt.violation_probability")

	// Composition attributes
	AttrCompositionID    = attribute.Key("kt.composition.id")
	AttrCompositionSteps = attribute.Key("kt.composition.steps")
	AttrComposable       = attribute.Key("kt.composition.composable")

	// Proof attributes
	AttrProofID     = attribute.Key("kt.proof.id")
	AttrProofStatus = attribute.Key("kt.proof.status")

	// Ledger attributes
	AttrLedgerSeq  = attribute.Key("kt.ledger.seq")
	AttrLedgerKind = attribute.Key("kt.ledger.kind")
)

// GateOperation creates attributes for a gate run.
func GateOperation(runID, profile, rulesHash string) []attribute.KeyValue {
	return []attribute.KeyValue{
		AttrRunID.String(runID),
		AttrProfile.String(profile),
		AttrRulesHash.String(rulesHash),
	}
}

// GateOutcome creates attributes for a gate verdict.
func GateOutcome(status string, violationProbability float64) []attribute.KeyValue {
	return []attribute.KeyValue{
		AttrOverallStatus.String(status),
		AttrViolationProb.Float64(violationProbability),
	}
}

// ComposeOperation creates attributes for a composition.
func ComposeOperation(compositionID string, steps int, composable bool) []attribute.KeyValue {
	return []attribute.KeyValue{
		AttrCompositionID.String(compositionID),
		AttrCompositionSteps.Int(steps),
		AttrComposable.Bool(composable),
	}
}

// ProofOperation creates attributes for a proof check.
func ProofOperation(proofID, status string) []attribute.KeyValue {
	return []attribute.KeyValue{
		AttrProofID.String(proofID),
		AttrProofStatus.String(status),
	}
}

// LedgerOperation creates attributes for a ledger append.
func LedgerOperation(seq uint64, kind string) []attribute.KeyValue {
	return []attribute.KeyValue{
		AttrLedgerSeq.Int64(int64(seq)),
		AttrLedgerKind.String(kind),
	}
}

// SpanFromContext extracts the span from context.
func SpanFromContext(ctx context.Context) trace.Span {
	return trace.SpanFromContext(ctx)
}

// AddSpanEvent adds an event to the current span.
func AddSpanEvent(ctx context.Context, name string, attrs ...attribute.KeyValue) {
	span := trace.SpanFromContext(ctx)
	span.AddEvent(name, trace.WithAttributes(attrs...))
}

// SetSpanStatus sets the span status based on error.
func SetSpanStatus(ctx context.Context, err error) {
	span := trace.SpanFromContext(ctx)
	if err != nil {
		span.RecordError(err)
	}
}
