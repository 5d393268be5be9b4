package main

import (
	"bufio"
	"io"
	"strings"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"leadscout/internal/errors"
	"leadscout/internal/secrets"
)

func newSecretsCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:         "secrets",
		Short:       "Store source and LLM credentials in the OS keychain",
		Annotations: map[string]string{skipChecks: "true"},
	}

	set := &cobra.Command{
		Use:   "set <name> [value]",
		Short: "Store a credential; the value is read from stdin when omitted",
		Long: `Store a credential in the OS keychain. Known names:

  ` + strings.Join(secrets.Names(), "\n  "),
		Args:        rangeArgs(1, 2),
		Annotations: map[string]string{skipChecks: "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			value := ""
			if len(args) == 2 {
				value = args[1]
			} else {
				v, err := readSecret(cmd.InOrStdin())
				if err != nil {
					return err
				}
				value = v
			}
			if err := secrets.Set(args[0], value); err != nil {
				return err
			}
			pterm.Success.Printf("Stored %s\n", args[0])
			return nil
		},
	}

	del := &cobra.Command{
		Use:         "delete <name>",
		Short:       "Remove a stored credential",
		Args:        exactArgs(1),
		Annotations: map[string]string{skipChecks: "true"},
		RunE: func(_ *cobra.Command, args []string) error {
			if err := secrets.Delete(args[0]); err != nil {
				return err
			}
			pterm.Success.Printf("Deleted %s\n", args[0])
			return nil
		},
	}

	list := &cobra.Command{
		Use:         "list",
		Short:       "List the credential names the keychain can hold",
		Args:        exactArgs(0),
		Annotations: map[string]string{skipChecks: "true"},
		RunE: func(cmd *cobra.Command, _ []string) error {
			for _, n := range secrets.Names() {
				pterm.Println("  " + n)
			}
			return nil
		},
	}

	cmd.AddCommand(set, del, list)
	return cmd
}

func readSecret(r io.Reader) (string, error) {
	line, err := bufio.NewReader(r).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", errors.Wrap(err, "read secret from stdin")
	}
	return strings.TrimSpace(line), nil
}
