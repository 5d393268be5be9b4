package main

import (
	"context"
	"strings"
	"time"

	"github.com/pterm/pterm"
	"go.uber.org/zap"

	"leadscout/internal/config"
	"leadscout/internal/domain"
	"leadscout/internal/errors"
	"leadscout/internal/qualify"
	"leadscout/internal/store"
)

const (
	formatXLSX   = "xlsx"
	formatCSV    = "csv"
	formatSQLite = "sqlite"
)

var exportFormats = []string{formatXLSX, formatCSV, formatSQLite}

// shouldQualify replaces the interactive prompt: --qualify forces it,
// --no-qualify disables it, and otherwise an OpenAI key turns it on.
func shouldQualify(force, disable bool, openAIKey string) bool {
	switch {
	case force:
		return true
	case disable:
		return false
	default:
		return strings.TrimSpace(openAIKey) != ""
	}
}

func checkQualifyFlags(force, disable bool) error {
	if force && disable {
		return usageErr(errors.New("--qualify and --no-qualify are mutually exclusive"))
	}
	return nil
}

// canonicalService maps a --filter-service value onto one of
// qualify.TargetServices, ignoring case.
func canonicalService(s string) (string, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", nil
	}
	for _, t := range qualify.TargetServices {
		if strings.EqualFold(s, t) {
			return t, nil
		}
	}
	return "", usageErr(errors.WithHintf(errors.Newf("unknown service %q", s),
		"choose one of: %s", strings.Join(qualify.TargetServices, ", ")))
}

func checkFormat(f string, allowEmpty bool) error {
	if f == "" && allowEmpty {
		return nil
	}
	for _, ok := range exportFormats {
		if f == ok {
			return nil
		}
	}
	return usageErr(errors.Newf("unknown export format %q (want %s)", f, strings.Join(exportFormats, ", ")))
}

// buildQualifier prefers OpenAI with Gemini as fallback. Gemini alone is
// promoted to primary.
func buildQualifier(cfg config.LLMConfig, target string, log *zap.Logger) (*qualify.Qualifier, error) {
	var primary, fallback qualify.Classifier
	if cfg.OpenAIKey != "" {
		primary = qualify.NewOpenAI(cfg.OpenAIKey, cfg.OpenAIModel)
	}
	if cfg.GeminiKey != "" {
		g := qualify.NewGemini(cfg.GeminiKey, cfg.GeminiModel)
		if primary == nil {
			primary = g
		} else {
			fallback = g
		}
	}
	if primary == nil {
		return nil, errors.Mark(
			errors.WithHint(errors.New("qualification needs an LLM key"),
				"set OPENAI_API_KEY or run `leadscout secrets set openai_api_key`"),
			errors.ErrConfiguration)
	}
	return qualify.New(primary, fallback, target, log)
}

// qualifyLeads classifies leads in place and prints the run summary.
func qualifyLeads(ctx context.Context, q *qualify.Qualifier, leads []domain.Lead, cfg config.LLMConfig) qualify.Summary {
	spinner, _ := pterm.DefaultSpinner.Start("Qualifying leads...")
	results := q.QualifyAll(ctx, leads, cfg.MaxConcurrent, cfg.MaxLeads)
	qualify.Attach(leads, results)
	s := qualify.Stats(results)
	if spinner != nil {
		_ = spinner.Stop()
	}

	pterm.Success.Printf("Qualified %d of %d leads (%.1f%%)\n", s.Qualified, s.Total, s.Rate()*100)
	if s.Total > 0 {
		pterm.Info.Printf("Pre-filter skipped %d leads, %d LLM calls made (%.0f%% saved)\n",
			s.SkippedLLM, s.LLMCalled, float64(s.SkippedLLM)/float64(s.Total)*100)
	}
	return s
}

// export writes sel of leads in format under dir, or to out when given.
// It returns the written path, or "" when nothing matched.
func export(ctx context.Context, leads []domain.Lead, sel store.Selection, format, dir, out string) (string, int, error) {
	picked := sel.Apply(leads)
	if len(picked) == 0 {
		return "", 0, nil
	}
	path := out
	if path == "" {
		ext := format
		if format == formatSQLite {
			ext = "db"
		}
		path = store.ExportFileName(dir, sel.Service, ext, time.Now())
	}

	var err error
	switch format {
	case formatXLSX:
		err = store.ExportXLSX(path, picked)
	case formatCSV:
		err = store.ExportCSV(path, picked)
	case formatSQLite:
		_, err = store.ExportSQLite(ctx, path, picked)
	default:
		err = checkFormat(format, false)
	}
	if err != nil {
		return "", 0, err
	}
	return path, len(picked), nil
}
