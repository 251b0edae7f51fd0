package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/Kinrokin/kings-theorem-sub001/pkg/canonical"
	"github.com/Kinrokin/kings-theorem-sub001/pkg/config"
	"github.com/Kinrokin/kings-theorem-sub001/pkg/gate"
	"github.com/Kinrokin/kings-theorem-sub001/pkg/ledger"
	"github.com/Kinrokin/kings-theorem-sub001/pkg/observability"
	"github.com/Kinrokin/kings-theorem-sub001/pkg/theorem"
)

// runGateCmd implements `kt gate`.
//
// Exit codes:
//
//	0 = gate passed
//	1 = gate failed (every failing theorem/bound is listed)
//	2 = authoring or runtime error
func runGateCmd(cfg *config.Config, args []string, stdout, stderr io.Writer) int {
	cmd := flag.NewFlagSet("gate", flag.ContinueOnError)
	cmd.SetOutput(stderr)

	var (
		rulesPath    string
		evidencePath string
		redisKey     string
		profileName  string
		maxVP        float64
		outPath      string
		useLedger    bool
		jsonOutput   bool
	)

	cmd.StringVar(&rulesPath, "rules", "", "Path to the rule source (REQUIRED)")
	cmd.StringVar(&evidencePath, "evidence", "", "Path to an evidence JSON file")
	cmd.StringVar(&redisKey, "redis-key", "", "Redis hash key holding evidence (addr from REDIS_ADDR)")
	cmd.StringVar(&profileName, "profile", "", "Gate profile name (default: built-in default)")
	cmd.Float64Var(&maxVP, "max-vp", -1, "Override the profile's violation probability budget")
	cmd.StringVar(&outPath, "out", "", "Write the certificate JSON to this path")
	cmd.BoolVar(&useLedger, "ledger", false, "Append the certificate to the configured ledger")
	cmd.BoolVar(&jsonOutput, "json", false, "Output the report as JSON")

	if err := cmd.Parse(args); err != nil {
		return 2
	}
	if rulesPath == "" {
		_, _ = fmt.Fprintln(stderr, "Error: -rules is required")
		return 2
	}

	src, err := os.ReadFile(rulesPath)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "Error: read rules: %v\n", err)
		return 2
	}
	source, err := newEvidenceSource(cfg, evidencePath, redisKey)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "Error: %v\n", err)
		return 2
	}
	profile, err := loadProfile(cfg, profileName, maxVP)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "Error: %v\n", err)
		return 2
	}

	ctx := context.Background()
	runner := gate.NewRunner()

	if cfg.OTLPEnabled {
		obsCfg := observability.DefaultConfig()
		obsCfg.OTLPEndpoint = cfg.OTLPEndpoint
		provider, obsErr := observability.New(ctx, obsCfg)
		if obsErr != nil {
			_, _ = fmt.Fprintf(stderr, "Warning: telemetry disabled: %v\n", obsErr)
		} else {
			defer func() { _ = provider.Shutdown(ctx) }()
			runner.WithObservability(provider)
		}
	}

	opts := gate.RunOptions{
		RulesSource: string(src),
		Evidence:    source,
		Profile:     profile,
	}
	if useLedger {
		lgr, closeLedger, ledgerErr := openLedger(ctx, cfg)
		if ledgerErr != nil {
			_, _ = fmt.Fprintf(stderr, "Error: %v\n", ledgerErr)
			return 2
		}
		defer func() { _ = closeLedger() }()
		opts.Ledger = lgr

		if cfg.MasterSecret != "" {
			attestor, attErr := ledger.NewAttestor([]byte(cfg.MasterSecret))
			if attErr != nil {
				_, _ = fmt.Fprintf(stderr, "Error: %v\n", attErr)
				return 2
			}
			opts.Attestor = attestor
		}
	}

	report, err := runner.Run(ctx, opts)
	if report == nil {
		_, _ = fmt.Fprintf(stderr, "Error: %v\n", err)
		return 2
	}

	if outPath != "" {
		if werr := writeCertificate(outPath, report.Certificate); werr != nil {
			_, _ = fmt.Fprintf(stderr, "Error: %v\n", werr)
			return 2
		}
	}

	if jsonOutput {
		data, _ := json.MarshalIndent(report, "", "  ")
		_, _ = fmt.Fprintln(stdout, string(data))
	} else {
		printGateReport(stdout, report)
	}

	// The run evaluated but the certificate could not be persisted.
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "Error: %v\n", err)
		return 2
	}
	if !report.Pass {
		return 1
	}
	return 0
}

// runEvalCmd implements `kt eval`: evaluate and print the certificate
// without gating.
//
// Exit codes:
//
//	0 = evaluated (regardless of verdict)
//	2 = authoring or runtime error
func runEvalCmd(cfg *config.Config, args []string, stdout, stderr io.Writer) int {
	cmd := flag.NewFlagSet("eval", flag.ContinueOnError)
	cmd.SetOutput(stderr)

	var (
		rulesPath    string
		evidencePath string
		redisKey     string
		outPath      string
	)

	cmd.StringVar(&rulesPath, "rules", "", "Path to the rule source (REQUIRED)")
	cmd.StringVar(&evidencePath, "evidence", "", "Path to an evidence JSON file")
	cmd.StringVar(&redisKey, "redis-key", "", "Redis hash key holding evidence (addr from REDIS_ADDR)")
	cmd.StringVar(&outPath, "out", "", "Write the certificate JSON to this path instead of stdout")

	if err := cmd.Parse(args); err != nil {
		return 2
	}
	if rulesPath == "" {
		_, _ = fmt.Fprintln(stderr, "Error: -rules is required")
		return 2
	}

	src, err := os.ReadFile(rulesPath)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "Error: read rules: %v\n", err)
		return 2
	}
	source, err := newEvidenceSource(cfg, evidencePath, redisKey)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "Error: %v\n", err)
		return 2
	}

	program, err := theorem.Compile(string(src))
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "Error: %v\n", err)
		return 2
	}
	ev, err := source.Fetch(context.Background())
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "Error: fetch evidence: %v\n", err)
		return 2
	}
	_, certJSON, err := program.EvaluateToJSON(ev)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "Error: %v\n", err)
		return 2
	}

	if outPath != "" {
		if werr := os.WriteFile(outPath, certJSON, 0600); werr != nil {
			_, _ = fmt.Fprintf(stderr, "Error: write certificate: %v\n", werr)
			return 2
		}
		return 0
	}
	_, _ = fmt.Fprintln(stdout, string(certJSON))
	return 0
}

func writeCertificate(path string, cert *theorem.Certificate) error {
	data, err := canonical.Marshal(cert)
	if err != nil {
		return fmt.Errorf("encode certificate: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("write certificate: %w", err)
	}
	return nil
}

func printGateReport(w io.Writer, report *gate.Report) {
	_, _ = fmt.Fprintf(w, "Theorem Gate Report\n")
	_, _ = fmt.Fprintf(w, "───────────────────\n")
	_, _ = fmt.Fprintf(w, "Run ID:    %s\n", report.RunID)
	_, _ = fmt.Fprintf(w, "Profile:   %s\n", report.Profile)
	_, _ = fmt.Fprintf(w, "Timestamp: %s\n", report.Timestamp.Format("2006-01-02T15:04:05Z"))
	_, _ = fmt.Fprintf(w, "Rules:     %s\n", report.RulesHash)
	_, _ = fmt.Fprintf(w, "Duration:  %s\n\n", report.Duration)

	cert := report.Certificate
	for _, th := range cert.Theorems {
		status := "PASS"
		if th.Status != theorem.StatusPass {
			status = "FAIL"
		}
		_, _ = fmt.Fprintf(w, "  %s  theorem %s -> %s\n", status, th.ID, th.Consequent)
		for _, a := range th.Antecedents {
			if a.Passed {
				continue
			}
			_, _ = fmt.Fprintf(w, "          %s: observed %v, requires %s %v\n",
				a.ID, a.Observed, a.Comparator, a.Threshold)
		}
	}
	for _, b := range cert.Bounds {
		status := "PASS"
		if !b.Passed {
			status = "FAIL"
		}
		_, _ = fmt.Fprintf(w, "  %s  bound   %s: observed %v, requires %s %v\n",
			status, b.ID, b.Observed, b.Comparator, b.Threshold)
	}

	_, _ = fmt.Fprintln(w)
	_, _ = fmt.Fprintf(w, "Violation probability: %g\n", report.ViolationProbability)
	if report.LedgerSeq > 0 {
		attested := ""
		if report.Attestation != "" {
			attested = " (attested)"
		}
		_, _ = fmt.Fprintf(w, "Ledger:                seq %d%s\n", report.LedgerSeq, attested)
	}
	if report.Pass {
		_, _ = fmt.Fprintf(w, "Result: PASS (%d theorems, %d bounds)\n", len(cert.Theorems), len(cert.Bounds))
	} else {
		_, _ = fmt.Fprintf(w, "Result: FAIL (%d/%d theorems, %d/%d bounds failed)\n",
			len(report.FailedTheorems), len(cert.Theorems),
			len(report.FailedBounds), len(cert.Bounds))
	}
}
