package main

import (
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"leadscout/internal/errors"
	"leadscout/internal/store"
)

type exportFlags struct {
	input         string
	format        string
	qualifiedOnly bool
	minConfidence float64
	service       string
	out           string
}

func newExportCmd(a *app) *cobra.Command {
	f := &exportFlags{}
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write stored leads to xlsx, csv or sqlite",
		Args:  exactArgs(0),
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := checkFormat(f.format, false); err != nil {
				return err
			}
			if f.minConfidence < 0 || f.minConfidence > 1 {
				return usageErr(errors.Newf("--min-confidence %.2f is outside [0, 1]", f.minConfidence))
			}
			service, err := canonicalService(f.service)
			if err != nil {
				return err
			}

			leads, err := store.Load(f.input)
			if err != nil {
				return err
			}
			sel := store.Selection{QualifiedOnly: f.qualifiedOnly, MinConfidence: f.minConfidence, Service: service}
			path, n, err := export(cmd.Context(), leads, sel, f.format, a.cfg.App.DataDir, f.out)
			if err != nil {
				return err
			}
			if path == "" {
				pterm.Warning.Printf("No leads in %s match the selection\n", f.input)
				return nil
			}
			pterm.Success.Printf("Exported %d leads to %s\n", n, path)
			return nil
		},
	}
	fl := cmd.Flags()
	fl.StringVar(&f.input, "input", "data/leads.json", "lead file")
	fl.StringVar(&f.format, "format", formatXLSX, "xlsx, csv or sqlite")
	fl.BoolVar(&f.qualifiedOnly, "qualified-only", true, "export only qualified leads")
	fl.Float64Var(&f.minConfidence, "min-confidence", 0, "minimum confidence score (0-1)")
	fl.StringVar(&f.service, "service", "", "only leads matched to this service")
	fl.StringVar(&f.out, "out", "", "output file (default <data_dir>/qualified_leads_<timestamp>.<ext>)")
	return cmd
}
