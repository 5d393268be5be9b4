package main

import (
	"context"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"leadscout/internal/domain"
	"leadscout/internal/store"
)

type qualifyFlags struct {
	input         string
	filterService string
	maxLeads      int
	all           bool
	export        string
}

func newQualifyCmd(a *app) *cobra.Command {
	f := &qualifyFlags{}
	cmd := &cobra.Command{
		Use:   "qualify",
		Short: "Run LLM qualification over leads already in the lead file",
		Long: `Qualify stored leads and write the verdicts back to the lead file.

Only leads without a verdict, or whose last attempt failed, are sent unless
--all is given.`,
		Args: exactArgs(0),
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runQualify(cmd.Context(), a, f, cmd.Flags().Changed("max-leads"))
		},
	}
	fl := cmd.Flags()
	fl.StringVar(&f.input, "input", "data/leads.json", "lead file")
	fl.StringVar(&f.filterService, "filter-service", "", "only accept leads for this service (RWA, Crypto, AI/ML, Blockchain, Web3)")
	fl.IntVar(&f.maxLeads, "max-leads", 0, "qualify at most this many leads (default llm.max_leads)")
	fl.BoolVar(&f.all, "all", false, "re-qualify leads that already have a verdict")
	fl.StringVar(&f.export, "export", "", "also export qualified leads: xlsx, csv or sqlite")
	return cmd
}

func runQualify(ctx context.Context, a *app, f *qualifyFlags, maxSet bool) error {
	target, err := canonicalService(f.filterService)
	if err != nil {
		return err
	}
	if err := checkFormat(f.export, true); err != nil {
		return err
	}

	leads, err := store.Load(f.input)
	if err != nil {
		return err
	}
	pending := pendingLeads(leads, f.all)
	if len(pending) == 0 {
		pterm.Info.Printf("Nothing to qualify in %s\n", f.input)
		return nil
	}

	llm := a.cfg.LLM
	if maxSet {
		llm.MaxLeads = f.maxLeads
	}
	q, err := buildQualifier(llm, target, a.logger())
	if err != nil {
		return err
	}
	qualifyLeads(ctx, q, pending, llm)

	// leads past max_leads get no verdict and keep their stored state
	var done []domain.Lead
	for _, l := range pending {
		if l.Qualification != nil {
			done = append(done, l)
		}
	}
	replaced, err := store.Update(f.input, done)
	if err != nil {
		return err
	}
	pterm.Success.Printf("Updated %d leads in %s\n", replaced, f.input)

	if f.export == "" {
		return nil
	}
	path, n, err := export(ctx, pending, store.Selection{QualifiedOnly: true, Service: target}, f.export, a.cfg.App.DataDir, "")
	if err != nil {
		return err
	}
	if path == "" {
		pterm.Warning.Println("No qualified leads to export")
		return nil
	}
	pterm.Success.Printf("Exported %d qualified leads to %s\n", n, path)
	return nil
}

// pendingLeads returns copies of the leads that still need a verdict.
func pendingLeads(leads []domain.Lead, all bool) []domain.Lead {
	var out []domain.Lead
	for _, l := range leads {
		if all || l.Qualification == nil || l.Qualification.Error != "" {
			out = append(out, l)
		}
	}
	return out
}
