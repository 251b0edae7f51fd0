package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/Kinrokin/kings-theorem-sub001/pkg/config"
)

// Dispatcher
func main() {
	os.Exit(Run(os.Args, os.Stdout, os.Stderr))
}

// Run is the entrypoint, split from main for testing.
func Run(args []string, stdout, stderr io.Writer) int {
	cfg := config.Load()
	setupLogging(cfg.LogLevel)

	if len(args) < 2 {
		printUsage(stderr)
		return 2
	}

	switch args[1] {
	case "gate":
		return runGateCmd(cfg, args[2:], stdout, stderr)
	case "eval":
		return runEvalCmd(cfg, args[2:], stdout, stderr)
	case "compose":
		return runComposeCmd(cfg, args[2:], stdout, stderr)
	case "verify-cert":
		return runVerifyCertCmd(args[2:], stdout, stderr)
	case "ledger":
		if len(args) < 3 || args[2] != "verify" {
			_, _ = fmt.Fprintln(stderr, "Usage: kt ledger verify")
			return 2
		}
		return runLedgerVerifyCmd(cfg, args[3:], stdout, stderr)
	case "help", "--help", "-h":
		printUsage(stdout)
		return 0
	default:
		_, _ = fmt.Fprintf(stderr, "Unknown command: %s\n", args[1])
		printUsage(stderr)
		return 2
	}
}

func setupLogging(levelName string) {
	level := slog.LevelInfo
	switch strings.ToLower(levelName) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)
}

func printUsage(w io.Writer) {
	_, _ = fmt.Fprintln(w, "")
	_, _ = fmt.Fprintln(w, "kt - theorem gate kernel")
	_, _ = fmt.Fprintln(w, "")
	_, _ = fmt.Fprintln(w, "USAGE:")
	_, _ = fmt.Fprintln(w, "  kt <command> [flags]")
	_, _ = fmt.Fprintln(w, "")
	printSection(w, "EVALUATION")
	printCommand(w, "gate", "Compile rules, evaluate evidence, gate on the result (-rules, -evidence)")
	printCommand(w, "eval", "Evaluate and print the certificate without gating")
	printSection(w, "COMPOSITION")
	printCommand(w, "compose", "Compose plan step constraints into a manifest (-steps)")
	printSection(w, "VERIFICATION")
	printCommand(w, "verify-cert", "Verify a certificate offline (seal, format, aggregates)")
	printCommand(w, "ledger", "Verify the configured ledger's hash chain (kt ledger verify)")
	printSection(w, "UTILITIES")
	printCommand(w, "help", "Show this help")
	_, _ = fmt.Fprintln(w, "")
}

func printSection(w io.Writer, title string) {
	_, _ = fmt.Fprintf(w, "%s:\n", title)
}

func printCommand(w io.Writer, name, desc string) {
	_, _ = fmt.Fprintf(w, "  %-12s %s\n", name, desc)
}
