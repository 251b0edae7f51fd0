// Package gate runs governed evaluations end to end: compile a ruleset,
// fetch evidence, evaluate, decide pass/fail under a profile, and optionally
// record the sealed certificate on a ledger with a signed attestation.
package gate

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/Kinrokin/kings-theorem-sub001/pkg/config"
	"github.com/Kinrokin/kings-theorem-sub001/pkg/evidence"
	"github.com/Kinrokin/kings-theorem-sub001/pkg/ledger"
	"github.com/Kinrokin/kings-theorem-sub001/pkg/observability"
	"github.com/Kinrokin/kings-theorem-sub001/pkg/theorem"
)

// DefaultAttestTTL is the attestation validity window when RunOptions does
// not set one.
const DefaultAttestTTL = 24 * time.Hour

// Runner executes gate runs.
type Runner struct {
	clock  func() time.Time
	logger *slog.Logger
	obs    *observability.Provider
}

// NewRunner creates a Runner with the wall clock and the default logger.
func NewRunner() *Runner {
	return &Runner{
		clock:  time.Now,
		logger: slog.Default().With("component", "gate"),
	}
}

// WithClock overrides the time source. Used for deterministic run IDs in
// tests.
func (r *Runner) WithClock(clock func() time.Time) *Runner {
	r.clock = clock
	return r
}

// WithLogger overrides the logger.
func (r *Runner) WithLogger(logger *slog.Logger) *Runner {
	r.logger = logger
	return r
}

// WithObservability attaches tracing and RED metrics to each run.
func (r *Runner) WithObservability(obs *observability.Provider) *Runner {
	r.obs = obs
	return r
}

// RunOptions configures a single gate run.
type RunOptions struct {
	RulesSource string              // rule DSL text
	Evidence    evidence.Source     // where observed metrics come from (REQUIRED)
	Profile     *config.GateProfile // nil selects the default profile
	Ledger      ledger.Ledger       // if set, the certificate is appended after evaluation
	Attestor    *ledger.Attestor    // if set, the ledger record is attested (requires Ledger)
	AttestTTL   time.Duration       // attestation validity, DefaultAttestTTL when zero
}

// Report is the outcome of one gate run. The certificate inside it is the
// durable artifact; the report adds run-scoped identity and the profile
// decision on top.
type Report struct {
	RunID                string                  `json:"run_id"`
	Profile              string                  `json:"profile"`
	Timestamp            time.Time               `json:"timestamp"`
	Pass                 bool                    `json:"pass"`
	RulesHash            string                  `json:"rules_hash"`
	ViolationProbability float64                 `json:"violation_probability"`
	FailedTheorems       []theorem.TheoremResult `json:"failed_theorems,omitempty"`
	FailedBounds         []theorem.BoundResult   `json:"failed_bounds,omitempty"`
	Certificate          *theorem.Certificate    `json:"certificate"`
	LedgerSeq            uint64                  `json:"ledger_seq,omitempty"`
	Attestation          string                  `json:"attestation,omitempty"`
	Duration             time.Duration           `json:"duration"`
}

// Run executes a full gate run. Authoring and wiring mistakes (bad rules,
// missing evidence source, invalid profile) fail before anything is
// evaluated. If the evaluation itself succeeds but the ledger write fails,
// the populated report is returned alongside the error so callers can still
// surface the verdict.
func (r *Runner) Run(ctx context.Context, opts RunOptions) (report *Report, err error) {
	start := r.clock()

	profile := opts.Profile
	if profile == nil {
		profile = config.DefaultGateProfile()
	}
	if err := profile.Validate(); err != nil {
		return nil, fmt.Errorf("gate: profile %q: %w", profile.Name, err)
	}
	if opts.Evidence == nil {
		return nil, fmt.Errorf("gate: evidence source is required")
	}
	if opts.Attestor != nil && opts.Ledger == nil {
		return nil, fmt.Errorf("gate: attestor requires a ledger")
	}

	program, err := theorem.Compile(opts.RulesSource)
	if err != nil {
		return nil, fmt.Errorf("gate: compile rules: %w", err)
	}

	runID := fmt.Sprintf("run-%s-%d", profile.Name, start.UnixNano())
	r.logger.Info("gate run starting",
		"run_id", runID,
		"profile", profile.Name,
		"rules_hash", program.RulesHash)

	if r.obs != nil {
		var finish func(error)
		ctx, finish = r.obs.TrackOperation(ctx, "gate.run",
			observability.GateOperation(runID, profile.Name, program.RulesHash)...)
		defer func() { finish(err) }()
	}

	ev, err := opts.Evidence.Fetch(ctx)
	if err != nil {
		return nil, fmt.Errorf("gate: fetch evidence: %w", err)
	}
	r.logger.Debug("evidence fetched", "run_id", runID, "metrics", len(ev))

	cert, certJSON, err := program.EvaluateToJSON(ev)
	if err != nil {
		return nil, fmt.Errorf("gate: evaluate: %w", err)
	}

	// Theorems always gate. Bounds gate individually unless the profile
	// marks them advisory; a configured budget additionally caps aggregate
	// bound drift.
	pass := cert.OverallStatus == theorem.StatusPass
	if profile.AdvisoryBounds {
		pass = cert.AllPass
	}
	if profile.MaxViolationProbability > 0 && cert.ViolationProbability > profile.MaxViolationProbability {
		pass = false
	}

	observability.AddSpanEvent(ctx, "gate.evaluated",
		observability.GateOutcome(cert.OverallStatus, cert.ViolationProbability)...)

	report = &Report{
		RunID:                runID,
		Profile:              profile.Name,
		Timestamp:            start,
		Pass:                 pass,
		RulesHash:            cert.RulesHash,
		ViolationProbability: cert.ViolationProbability,
		FailedTheorems:       failedTheorems(cert),
		FailedBounds:         failedBounds(cert),
		Certificate:          cert,
		Duration:             r.clock().Sub(start),
	}
	r.logger.Info("evaluation complete",
		"run_id", runID,
		"status", cert.OverallStatus,
		"violation_probability", cert.ViolationProbability,
		"pass", pass)

	if opts.Ledger != nil {
		rec, err := opts.Ledger.Append(ctx, ledger.KindCertificate, certJSON)
		if err != nil {
			return report, fmt.Errorf("gate: record certificate: %w", err)
		}
		report.LedgerSeq = rec.Seq
		observability.AddSpanEvent(ctx, "gate.recorded",
			observability.LedgerOperation(rec.Seq, string(rec.Kind))...)
		r.logger.Info("certificate recorded", "run_id", runID, "ledger_seq", rec.Seq)

		if opts.Attestor != nil {
			ttl := opts.AttestTTL
			if ttl == 0 {
				ttl = DefaultAttestTTL
			}
			token, err := opts.Attestor.Attest(rec, ttl)
			if err != nil {
				return report, fmt.Errorf("gate: attest record: %w", err)
			}
			report.Attestation = token
		}
	}

	return report, nil
}

func failedTheorems(cert *theorem.Certificate) []theorem.TheoremResult {
	var failed []theorem.TheoremResult
	for _, th := range cert.Theorems {
		if th.Status != theorem.StatusPass {
			failed = append(failed, th)
		}
	}
	return failed
}

func failedBounds(cert *theorem.Certificate) []theorem.BoundResult {
	var failed []theorem.BoundResult
	for _, b := range cert.Bounds {
		if !b.Passed {
			failed = append(failed, b)
		}
	}
	return failed
}
