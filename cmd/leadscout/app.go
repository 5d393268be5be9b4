package main

import (
	"os"
	"strings"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"leadscout/internal/config"
	"leadscout/internal/errors"
	"leadscout/internal/logger"
	"leadscout/internal/secrets"
)

// Commands annotated with skipChecks run before a usable config exists
// (config init, secrets) or report validation themselves (config validate).
const skipChecks = "leadscout/skip-checks"

// secretsResolve is swapped out in tests.
var secretsResolve = secrets.Resolve

type options struct {
	configPath string
	logLevel   string
	logPretty  bool
}

type app struct {
	opts options
	cfg  config.Config
	log  *zap.Logger
	// set when a skipChecks command runs over a file that failed to load
	loadErr error

	getenv func(string) string
}

func (a *app) setup(cmd *cobra.Command, _ []string) error {
	if a.opts.logLevel != "" {
		if _, ok := logger.ParseLevel(a.opts.logLevel); !ok {
			return usageErr(errors.Newf("invalid --log-level %q", a.opts.logLevel))
		}
	}
	if a.getenv == nil {
		a.getenv = os.Getenv
	}

	skip := cmd.Annotations[skipChecks] == "true"
	cfg, err := config.LoadOrDefault(a.opts.configPath)
	if err != nil {
		if !skip {
			return err
		}
		// config init must still work over a broken file
		a.loadErr = err
		cfg = config.Default()
	}
	config.OverlayEnv(&cfg, a.getenv)

	log, err := logger.New(a.level(cfg), a.opts.logPretty)
	if err != nil {
		return errors.Wrap(err, "build logger")
	}
	a.log = log
	a.cfg = cfg

	if skip {
		return nil
	}

	filled, err := secretsResolve(&a.cfg)
	if err != nil {
		a.log.Warn("keychain unavailable; using config and environment only", zap.Error(err))
	} else if len(filled) > 0 {
		a.log.Debug("credentials loaded from keychain", zap.Strings("names", filled))
	}

	cfg, res := config.NormalizeAndValidate(a.cfg)
	for _, w := range res.Warnings {
		a.log.Warn(w)
	}
	if !res.OK() {
		return errors.Mark(
			errors.WithHint(
				errors.Newf("invalid config %s:\n- %s", a.opts.configPath, strings.Join(res.Errors, "\n- ")),
				"run `leadscout config validate` after fixing the file"),
			errors.ErrConfiguration)
	}
	a.cfg = cfg
	return nil
}

// level picks --log-level, then DEBUG, then app.log_level.
func (a *app) level(cfg config.Config) string {
	switch {
	case a.opts.logLevel != "":
		return a.opts.logLevel
	case cfg.App.Debug:
		return "debug"
	default:
		return cfg.App.LogLevel
	}
}

func (a *app) close() {
	if a.log != nil {
		_ = a.log.Sync()
	}
}

// logger returns the configured logger, or a no-op one before setup.
func (a *app) logger() *zap.Logger { return logger.OrNop(a.log) }

func printSummaryLine(label string, value any) {
	pterm.Printf("  %-22s %v\n", label+":", value)
}
