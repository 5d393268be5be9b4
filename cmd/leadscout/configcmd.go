package main

import (
	"os"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"leadscout/internal/config"
	"leadscout/internal/errors"
)

func newConfigCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:         "config",
		Short:       "Create or check the config file",
		Annotations: map[string]string{skipChecks: "true"},
	}

	var force bool
	initCmd := &cobra.Command{
		Use:         "init",
		Short:       "Write the default config to --config",
		Args:        exactArgs(0),
		Annotations: map[string]string{skipChecks: "true"},
		RunE: func(*cobra.Command, []string) error {
			path := a.opts.configPath
			if force {
				if err := config.SaveAtomic(path, config.Default()); err != nil {
					return err
				}
				pterm.Success.Printf("Wrote default config to %s\n", path)
				return nil
			}
			created, err := config.EnsureUserConfig(path)
			if err != nil {
				return err
			}
			if !created {
				pterm.Warning.Printf("%s already exists; use --force to overwrite\n", path)
				return nil
			}
			pterm.Success.Printf("Wrote default config to %s\n", path)
			return nil
		},
	}
	initCmd.Flags().BoolVar(&force, "force", false, "overwrite an existing file (the old one is kept as .bak)")

	validate := &cobra.Command{
		Use:         "validate",
		Short:       "Check --config and report errors and warnings",
		Args:        exactArgs(0),
		Annotations: map[string]string{skipChecks: "true"},
		RunE: func(*cobra.Command, []string) error {
			if _, err := os.Stat(a.opts.configPath); err != nil {
				return errors.Mark(
					errors.WithHint(errors.Wrapf(err, "config %s", a.opts.configPath), "create one with `leadscout config init`"),
					errors.ErrConfiguration)
			}
			if a.loadErr != nil {
				return a.loadErr
			}
			raw := a.cfg
			if _, err := secretsResolve(&raw); err != nil {
				pterm.Warning.Printf("Keychain unavailable: %v\n", err)
			}
			cfg, res := config.NormalizeAndValidate(raw)
			for _, w := range res.Warnings {
				pterm.Warning.Println(w)
			}
			for _, e := range res.Errors {
				pterm.Error.Println(e)
			}
			if !res.OK() {
				return errors.Mark(errors.Newf("%s has %d errors", a.opts.configPath, len(res.Errors)), errors.ErrConfiguration)
			}
			pterm.Success.Printf("%s is valid\n", a.opts.configPath)
			for _, name := range cfg.Scraping.Sources {
				if ok, _ := cfg.Usable(name); ok {
					pterm.Printf("  %s %s\n", pterm.LightGreen("✓"), name)
				}
			}
			return nil
		},
	}

	cmd.AddCommand(initCmd, validate)
	return cmd
}
