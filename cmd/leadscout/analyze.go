package main

import (
	"fmt"
	"strconv"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"leadscout/internal/domain"
	"leadscout/internal/rank"
	"leadscout/internal/scrape/util"
	"leadscout/internal/store"
)

func newAnalyzeCmd(a *app) *cobra.Command {
	var input string
	cmd := &cobra.Command{
		Use:   "analyze",
		Short: "Report sources, service categories and job-posting noise in a lead file",
		Args:  exactArgs(0),
		RunE: func(cmd *cobra.Command, _ []string) error {
			leads, err := store.Load(input)
			if err != nil {
				return err
			}
			if len(leads) == 0 {
				pterm.Warning.Printf("No leads in %s\n", input)
				return nil
			}
			renderReport(input, rank.Analyze(leads, rank.NewTagger(a.cfg.Services)))
			return nil
		},
	}
	cmd.Flags().StringVar(&input, "input", "data/leads.json", "lead file")
	return cmd
}

func renderReport(input string, r rank.Report) {
	pterm.DefaultHeader.WithFullWidth().Println("Lead analysis: " + input)
	pterm.Println()

	pterm.DefaultSection.Println("Sources")
	renderCounts("Source", r.BySource, r.Total)

	if r.Qualified+r.LLMCalled+r.SkippedLLM > 0 {
		pterm.DefaultSection.Println("Qualification")
		printSummaryLine("Qualified", r.Qualified)
		printSummaryLine("LLM calls", r.LLMCalled)
		printSummaryLine("Pre-filter skips", r.SkippedLLM)
	}

	if r.LinkedIn == 0 {
		return
	}
	pterm.DefaultSection.Println("LinkedIn")
	printSummaryLine("Leads", r.LinkedIn)
	printSummaryLine("Job postings", fmt.Sprintf("%d (%.1f%%)", r.JobPostings, r.JobPostingShare()))
	printSummaryLine("Service inquiries", fmt.Sprintf("%d (%.1f%%)", r.Inquiries, r.InquiryShare()))
	pterm.Println()

	pterm.DefaultSection.WithLevel(2).Println("Service categories")
	renderCounts("Service", r.ByService, r.LinkedIn)

	renderSamples("Sample inquiries", r.InquirySamples)
	renderSamples("Sample job postings", r.JobSamples)
}

func renderCounts(label string, counts []rank.Count, of int) {
	data := pterm.TableData{{label, "Leads", "Share"}}
	for _, c := range counts {
		share := 0.0
		if of > 0 {
			share = float64(c.Count) / float64(of) * 100
		}
		data = append(data, []string{c.Name, strconv.Itoa(c.Count), fmt.Sprintf("%.1f%%", share)})
	}
	_ = pterm.DefaultTable.WithHasHeader().WithData(data).Render()
	pterm.Println()
}

func renderSamples(title string, leads []domain.Lead) {
	if len(leads) == 0 {
		return
	}
	pterm.DefaultSection.WithLevel(2).Println(title)
	items := make([]pterm.BulletListItem, 0, len(leads))
	for _, l := range leads {
		items = append(items, pterm.BulletListItem{Level: 0, Text: l.Author + ": " + util.Truncate(l.Content, 120)})
	}
	_ = pterm.DefaultBulletList.WithItems(items).Render()
}
