package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/Kinrokin/kings-theorem-sub001/pkg/compose"
	"github.com/Kinrokin/kings-theorem-sub001/pkg/config"
	"github.com/Kinrokin/kings-theorem-sub001/pkg/ledger"
	"github.com/Kinrokin/kings-theorem-sub001/pkg/proof"
)

// runComposeCmd implements `kt compose`.
//
// Exit codes:
//
//	0 = steps compose
//	1 = steps do not compose (manifest explains why)
//	2 = authoring or runtime error
func runComposeCmd(cfg *config.Config, args []string, stdout, stderr io.Writer) int {
	cmd := flag.NewFlagSet("compose", flag.ContinueOnError)
	cmd.SetOutput(stderr)

	var (
		stepsPath   string
		profileName string
		useLedger   bool
	)

	cmd.StringVar(&stepsPath, "steps", "", "Path to the plan steps JSON (REQUIRED)")
	cmd.StringVar(&profileName, "profile", "", "Gate profile supplying the conflict policy and proof depth")
	cmd.BoolVar(&useLedger, "ledger", false, "Append the manifest to the configured ledger")

	if err := cmd.Parse(args); err != nil {
		return 2
	}
	if stepsPath == "" {
		_, _ = fmt.Fprintln(stderr, "Error: -steps is required")
		return 2
	}

	data, err := os.ReadFile(stepsPath)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "Error: read steps: %v\n", err)
		return 2
	}
	var steps []compose.PlanStep
	if err := json.Unmarshal(data, &steps); err != nil {
		_, _ = fmt.Fprintf(stderr, "Error: parse steps: %v\n", err)
		return 2
	}

	profile, err := loadProfile(cfg, profileName, -1)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "Error: %v\n", err)
		return 2
	}

	ctx := context.Background()
	engine := compose.NewEngine(profile.ConflictPolicy(), proof.NewChecker(profile.CheckerConfig()))

	manifest, err := engine.Compose(ctx, steps)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "Error: %v\n", err)
		return 2
	}

	if useLedger {
		lgr, closeLedger, ledgerErr := openLedger(ctx, cfg)
		if ledgerErr != nil {
			_, _ = fmt.Fprintf(stderr, "Error: %v\n", ledgerErr)
			return 2
		}
		defer func() { _ = closeLedger() }()

		payload, merr := json.Marshal(manifest)
		if merr != nil {
			_, _ = fmt.Fprintf(stderr, "Error: encode manifest: %v\n", merr)
			return 2
		}
		rec, aerr := lgr.Append(ctx, ledger.KindManifest, payload)
		if aerr != nil {
			_, _ = fmt.Fprintf(stderr, "Error: record manifest: %v\n", aerr)
			return 2
		}
		_, _ = fmt.Fprintf(stderr, "Recorded manifest at ledger seq %d\n", rec.Seq)
	}

	out, _ := json.MarshalIndent(manifest, "", "  ")
	_, _ = fmt.Fprintln(stdout, string(out))

	if !manifest.Composable {
		return 1
	}
	return 0
}
