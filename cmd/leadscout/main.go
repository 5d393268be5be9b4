// Command leadscout scrapes community platforms for people asking for help
// with our services, qualifies them with an LLM, and exports the results.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"leadscout/internal/errors"
)

const (
	exitOK    = 0
	exitFatal = 1
	exitUsage = 2
)

// errUsage marks bad flags and arguments.
var errUsage = errors.New("usage error")

func usageErr(err error) error { return errors.Mark(err, errUsage) }

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stderr)
	stop()
	os.Exit(code)
}

func run(ctx context.Context, args []string, stderr io.Writer) int {
	root := newRootCmd()
	root.SetArgs(args)
	root.SetErr(stderr)

	err := root.ExecuteContext(ctx)
	if err == nil {
		return exitOK
	}
	fmt.Fprintln(stderr, "Error:", err)
	for _, h := range errors.GetAllHints(err) {
		fmt.Fprintln(stderr, "Hint:", h)
	}
	return exitCode(err)
}

func exitCode(err error) int {
	switch {
	case err == nil:
		return exitOK
	case errors.Is(err, errUsage),
		strings.HasPrefix(err.Error(), "unknown command"),
		strings.HasPrefix(err.Error(), "unknown flag"):
		return exitUsage
	default:
		return exitFatal
	}
}

func newRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:   "leadscout",
		Short: "Find and qualify service inquiries on Reddit, Discord, Slack and LinkedIn",
		Long: `leadscout collects posts and messages that ask for outside help, filters them,
asks an LLM whether each one is a real service request, and exports the result.

Examples:
  leadscout scrape --sources reddit,discord --service rwa
  leadscout scrape --every=10m --events data/events.jsonl
  leadscout qualify --input data/leads.json --filter-service RWA
  leadscout export --format xlsx --min-confidence 0.7
  leadscout analyze
  leadscout secrets set openai_api_key`,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: a.setup,
		PersistentPostRun: func(*cobra.Command, []string) { a.close() },
	}
	root.SetFlagErrorFunc(func(_ *cobra.Command, err error) error { return usageErr(err) })

	pf := root.PersistentFlags()
	pf.StringVar(&a.opts.configPath, "config", "config.yml", "config file")
	pf.StringVar(&a.opts.logLevel, "log-level", "", "debug, info, warn or error (overrides app.log_level)")
	pf.BoolVar(&a.opts.logPretty, "log-pretty", false, "human-readable colored logs")

	root.AddCommand(
		newScrapeCmd(a),
		newQualifyCmd(a),
		newExportCmd(a),
		newAnalyzeCmd(a),
		newSecretsCmd(a),
		newConfigCmd(a),
	)
	return root
}

// exactArgs is cobra.ExactArgs with the failure marked as a usage error.
func exactArgs(n int) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if err := cobra.ExactArgs(n)(cmd, args); err != nil {
			return usageErr(err)
		}
		return nil
	}
}

func rangeArgs(lo, hi int) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if err := cobra.RangeArgs(lo, hi)(cmd, args); err != nil {
			return usageErr(err)
		}
		return nil
	}
}
