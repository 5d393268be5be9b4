package main

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"leadscout/internal/config"
	"leadscout/internal/domain"
	"leadscout/internal/errors"
	"leadscout/internal/events"
	"leadscout/internal/poll"
	"leadscout/internal/rank"
	"leadscout/internal/scrape/types"
	"leadscout/internal/store"
)

// everyFromConfig is the --every value used when the flag has no argument.
const everyFromConfig = "config"

type scrapeFlags struct {
	sources       []string
	service       string
	maxTotal      int
	output        string
	noFilter      bool
	qualify       bool
	noQualify     bool
	filterService string
	export        string
	every         string
	eventsPath    string
}

func newScrapeCmd(a *app) *cobra.Command {
	f := &scrapeFlags{}
	cmd := &cobra.Command{
		Use:   "scrape",
		Short: "Collect leads from the configured sources, then qualify and export them",
		Long: `Scrape every selected source concurrently, drop low-signal and duplicate
leads, and append the rest to the lead file before qualification starts.

Qualification runs when --qualify is given, or when an OpenAI key is
configured and --no-qualify is not. Qualified leads are exported to
<data_dir>/qualified_leads[_<service>]_<timestamp>.<ext>.

With --every the run repeats until interrupted. A bare --every uses
scraping.interval_seconds and follows config file edits; --every=10m fixes
the interval.`,
		Args: exactArgs(0),
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runScrape(cmd.Context(), a, f, cmd.Flags().Changed("sources"),
				cmd.Flags().Changed("max-total-leads"), cmd.Flags().Changed("output"))
		},
	}

	fl := cmd.Flags()
	fl.StringSliceVar(&f.sources, "sources", []string{config.SourceReddit, config.SourceDiscord, config.SourceSlack},
		"sources to scrape (reddit, discord, slack, linkedin_public, linkedin_apify)")
	fl.StringVar(&f.service, "service", "", "keyword preset to search with instead of scraping.keywords")
	fl.IntVar(&f.maxTotal, "max-total-leads", 200, "cap on new leads per run (0 = no cap)")
	fl.StringVar(&f.output, "output", "data/leads.json", "lead file")
	fl.BoolVar(&f.noFilter, "no-filter", false, "keep leads that fail the basic engagement and spam checks")
	fl.BoolVar(&f.qualify, "qualify", false, "always run LLM qualification")
	fl.BoolVar(&f.noQualify, "no-qualify", false, "never run LLM qualification")
	fl.StringVar(&f.filterService, "filter-service", "", "only qualify leads for this service (RWA, Crypto, AI/ML, Blockchain, Web3)")
	fl.StringVar(&f.export, "export", formatXLSX, "format for qualified leads: xlsx, csv or sqlite")
	fl.StringVar(&f.every, "every", "", "repeat the run on an interval (bare flag: scraping.interval_seconds)")
	fl.Lookup("every").NoOptDefVal = everyFromConfig
	fl.StringVar(&f.eventsPath, "events", "", "append run events as JSON lines to this file")
	return cmd
}

// runner carries one scrape invocation across watch-mode cycles.
type runner struct {
	a       *app
	f       *scrapeFlags
	log     *zap.Logger
	emit    *events.Emitter
	builder *sourceBuilder

	names    []string
	maxTotal int
	output   string
	target   string

	mu      sync.Mutex
	cfg     config.Config
	sources []types.Source
}

func runScrape(ctx context.Context, a *app, f *scrapeFlags, sourcesSet, maxSet, outputSet bool) error {
	if err := checkQualifyFlags(f.qualify, f.noQualify); err != nil {
		return err
	}
	if err := checkFormat(f.export, false); err != nil {
		return err
	}
	target, err := canonicalService(f.filterService)
	if err != nil {
		return err
	}
	fixed, err := parseEvery(f.every)
	if err != nil {
		return err
	}
	names, err := selectSources(f.sources, sourcesSet, a.cfg)
	if err != nil {
		return err
	}

	r := &runner{
		a:        a,
		f:        f,
		log:      a.logger(),
		builder:  &sourceBuilder{log: a.logger()},
		names:    names,
		maxTotal: a.cfg.Scraping.MaxTotalLeads,
		output:   a.cfg.App.Output,
		target:   target,
		cfg:      a.cfg,
	}
	if maxSet {
		r.maxTotal = f.maxTotal
	}
	if outputSet || r.output == "" {
		r.output = f.output
	}
	if err := r.rebuild(ctx, a.cfg); err != nil {
		return err
	}

	hub := events.NewHub()
	progress := watchProgress(hub)
	defer func() {
		hub.Close()
		<-progress
	}()

	var sink io.Writer
	if f.eventsPath != "" {
		file, err := openEventLog(f.eventsPath)
		if err != nil {
			return err
		}
		defer file.Close()
		sink = file
	}
	r.emit = events.NewEmitter(hub, sink)
	r.log = r.log.With(zap.String("run_id", r.emit.RunID()))

	if f.every == "" {
		_, err := r.cycle(ctx)
		return err
	}

	if fixed == 0 {
		go func() {
			if err := config.Watch(ctx, a.opts.configPath, r.log, func(c config.Config) { r.reload(ctx, c) }); err != nil {
				r.log.Warn("config watch stopped", zap.Error(err))
			}
		}()
	}
	interval := func() time.Duration {
		if fixed > 0 {
			return fixed
		}
		r.mu.Lock()
		defer r.mu.Unlock()
		return r.cfg.Scraping.Interval()
	}
	pterm.Info.Printf("Watch mode: running every %s until interrupted\n", interval())
	poll.NewPoller(r.cycle, interval, r.log).Run(ctx)
	pterm.Success.Println("Watch mode stopped")
	return nil
}

func parseEvery(s string) (time.Duration, error) {
	if s == "" || s == everyFromConfig {
		return 0, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return 0, usageErr(errors.Newf("invalid --every %q: want a positive duration such as 10m", s))
	}
	return d, nil
}

func openEventLog(path string) (*os.File, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, errors.Wrapf(err, "create %s", filepath.Dir(path))
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	return f, errors.Wrapf(err, "open event log %s", path)
}

// watchProgress prints one line per finished source as events arrive.
func watchProgress(hub *events.Hub) <-chan struct{} {
	ch := hub.Subscribe()
	done := make(chan struct{})
	go func() {
		defer close(done)
		for ev := range ch {
			switch ev.Type {
			case events.SourceDone:
				pterm.Printf("  %s %s\n", pterm.LightGreen("✓"), string(ev.Data))
			case events.SourceFailed:
				pterm.Printf("  %s %s\n", pterm.LightRed("✗"), string(ev.Data))
			}
		}
	}()
	return done
}

func (r *runner) rebuild(ctx context.Context, cfg config.Config) error {
	keywords, err := keywordsFor(cfg, r.f.service)
	if err != nil {
		return err
	}
	sources, err := r.builder.build(ctx, cfg, r.names, keywords, r.maxTotal)
	if err != nil {
		return err
	}
	r.mu.Lock()
	r.cfg, r.sources = cfg, sources
	r.mu.Unlock()
	return nil
}

// reload applies an edited config file between cycles. A file that does
// not validate, or leaves no usable source, keeps the running setup.
func (r *runner) reload(ctx context.Context, raw config.Config) {
	config.OverlayEnv(&raw, r.a.getenv)
	if _, err := secretsResolve(&raw); err != nil {
		r.log.Warn("keychain unavailable during reload", zap.Error(err))
	}
	cfg, res := config.NormalizeAndValidate(raw)
	if !res.OK() {
		r.log.Error("reloaded config is invalid; keeping previous", zap.Strings("errors", res.Errors))
		return
	}
	if err := r.rebuild(ctx, cfg); err != nil {
		r.log.Error("reloaded config has no usable source; keeping previous", zap.Error(err))
		return
	}
	r.emitEvent(events.ConfigReload, map[string]any{"interval_seconds": cfg.Scraping.IntervalSeconds})
}

func (r *runner) emitEvent(typ string, data any) {
	if err := r.emit.Emit(typ, data); err != nil {
		r.log.Warn("event not recorded", zap.String("type", typ), zap.Error(err))
	}
}

// cycle is one scrape, persist, qualify and export pass. It returns the
// number of new leads stored.
func (r *runner) cycle(ctx context.Context) (int, error) {
	r.mu.Lock()
	cfg, sources := r.cfg, r.sources
	r.mu.Unlock()

	started := time.Now()
	names := make([]string, len(sources))
	for i, s := range sources {
		names[i] = s.Name()
	}
	r.emitEvent(events.RunStarted, map[string]any{"sources": names})
	pterm.DefaultSection.Printf("Scraping %d sources", len(sources))

	existing, err := store.Load(r.output)
	if err != nil {
		return 0, err
	}
	res, err := poll.PollOnce(ctx, sources, poll.NewURLSet(existing), poll.Options{
		SourceTimeout: cfg.Scraping.SourceTimeout(),
		MinEngagement: cfg.Scraping.MinEngagementScore,
		NoFilter:      r.f.noFilter,
		MaxTotalLeads: r.maxTotal,
		Log:           r.log,
		OnSource: func(name string, sr types.ScrapeResult, err error) {
			if err != nil {
				r.emitEvent(events.SourceFailed, map[string]any{"source": name, "error": err.Error()})
				return
			}
			r.emitEvent(events.SourceDone, map[string]any{
				"source": name, "count": len(sr.Leads), "skipped": sr.Skipped.Total(),
			})
		},
	})
	if err != nil {
		return 0, err
	}
	r.emitEvent(events.ScrapeDone, map[string]any{
		"count":      len(res.Leads),
		"failures":   len(res.Failures),
		"filtered":   res.Filtered,
		"duplicates": res.Duplicates,
		"capped":     res.Capped,
	})

	if len(res.Leads) == 0 {
		if len(res.Failures) == len(sources) {
			return 0, errors.Mark(errors.Newf("all %d sources failed", len(sources)), errors.ErrSource)
		}
		pterm.Warning.Println("No new leads found")
		r.emitEvent(events.RunFinished, map[string]any{"added": 0, "duration_ms": time.Since(started).Milliseconds()})
		return 0, nil
	}

	leads := res.Leads
	rank.NewTagger(cfg.Services).Apply(leads)

	// persist before qualifying so an interrupted run keeps what it scraped
	added, err := store.Append(r.output, leads)
	if err != nil {
		return 0, err
	}
	r.emitEvent(events.Persisted, map[string]any{"path": r.output, "added": added})
	pterm.Success.Printf("Saved %d new leads to %s\n", added, r.output)
	printSummaryLine("Filtered", res.Filtered)
	printSummaryLine("Duplicates", res.Duplicates)
	printSummaryLine("Capped", res.Capped)
	printSummaryLine("Failed sources", len(res.Failures))

	if shouldQualify(r.f.qualify, r.f.noQualify, cfg.LLM.OpenAIKey) {
		if err := r.qualifyAndExport(ctx, cfg, leads); err != nil {
			return added, err
		}
	} else {
		pterm.Info.Println("Qualification skipped; run `leadscout qualify` later")
	}

	r.emitEvent(events.RunFinished, map[string]any{"added": added, "duration_ms": time.Since(started).Milliseconds()})
	return added, nil
}

func (r *runner) qualifyAndExport(ctx context.Context, cfg config.Config, leads []domain.Lead) error {
	q, err := buildQualifier(cfg.LLM, r.target, r.log)
	if err != nil {
		return err
	}
	s := qualifyLeads(ctx, q, leads, cfg.LLM)
	r.emitEvent(events.QualifyDone, s)

	if _, err := store.Update(r.output, leads); err != nil {
		return err
	}

	sel := store.Selection{QualifiedOnly: true, Service: r.target}
	path, n, err := export(ctx, leads, sel, r.f.export, cfg.App.DataDir, "")
	if err != nil {
		return err
	}
	if path == "" {
		pterm.Warning.Println("No qualified leads to export")
		return nil
	}
	r.emitEvent(events.Exported, map[string]any{"path": path, "count": n, "format": r.f.export})
	pterm.Success.Printf("Exported %d qualified leads to %s\n", n, path)
	return nil
}
