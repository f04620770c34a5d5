package cmd

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/otherjamesbrown/breeze-cli/config"
	"github.com/otherjamesbrown/breeze-cli/credentials"
)

var (
	secretReveal       bool
	secretFromStdin    bool
	secretOutputFormat string
)

// SecretCommandDeps holds dependencies for secret commands.
type SecretCommandDeps struct {
	OpenStore  func() (*credentials.Store, error)
	ReadSecret func(prompt string) (string, error)
	Out        io.Writer
}

// DefaultSecretDeps returns default dependencies for production use.
func DefaultSecretDeps() *SecretCommandDeps {
	return &SecretCommandDeps{
		OpenStore: func() (*credentials.Store, error) {
			dir, err := config.ConfigDir()
			if err != nil {
				return nil, err
			}
			return openSecretStore(dir)
		},
		ReadSecret: promptForSecret,
		Out:        os.Stdout,
	}
}

// NewSecretCommand creates the secret command with its subcommands.
func NewSecretCommand(deps *SecretCommandDeps) *cobra.Command {
	if deps == nil {
		deps = DefaultSecretDeps()
	}

	cmd := &cobra.Command{
		Use:   "secret",
		Short: "Manage encrypted backend passwords",
		Long: `Store backend passwords encrypted on disk instead of in config.yaml.

Secrets are encrypted with AES-256-GCM. The key comes from, in order:
  1. BREEZE_ENCRYPTION_KEY (64 hex characters)
  2. BREEZE_SECRETS_PASSPHRASE (Argon2id-derived)
  3. the system keyring

Known secrets:
  redis-password      used when redis.password is not set
  postgres-password   used when postgres.password is not set

Examples:
  breeze secret set postgres-password
  echo -n "$PW" | breeze secret set redis-password --stdin
  breeze secret list`,
		Aliases: []string{"secrets"},
	}

	cmd.AddCommand(newSecretSetCommand(deps))
	cmd.AddCommand(newSecretGetCommand(deps))
	cmd.AddCommand(newSecretListCommand(deps))
	cmd.AddCommand(newSecretDeleteCommand(deps))

	return cmd
}

func (d *SecretCommandDeps) out() io.Writer {
	if d.Out == nil {
		return os.Stdout
	}
	return d.Out
}

func newSecretSetCommand(deps *SecretCommandDeps) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "set <name>",
		Short: "Store a secret",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := deps.OpenStore()
			if err != nil {
				return err
			}

			var value string
			if secretFromStdin {
				value, err = readAllTrimmed(cmd.InOrStdin())
			} else {
				value, err = deps.ReadSecret(fmt.Sprintf("Value for %s: ", args[0]))
			}
			if err != nil {
				return fmt.Errorf("reading secret: %w", err)
			}
			if value == "" {
				return fmt.Errorf("no value provided")
			}

			if err := store.Set(args[0], value); err != nil {
				return err
			}
			fmt.Fprintf(deps.out(), "Stored %s (%s)\n", args[0], store.KeyDescription())
			return nil
		},
	}
	cmd.Flags().BoolVar(&secretFromStdin, "stdin", false, "Read the value from stdin instead of prompting")
	return cmd
}

func newSecretGetCommand(deps *SecretCommandDeps) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "get <name>",
		Short: "Show a secret (masked unless --reveal)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := deps.OpenStore()
			if err != nil {
				return err
			}
			value, err := store.Get(args[0])
			if err != nil {
				return err
			}
			if !secretReveal {
				value = credentials.Mask(value)
			}
			fmt.Fprintln(deps.out(), value)
			return nil
		},
	}
	cmd.Flags().BoolVar(&secretReveal, "reveal", false, "Print the plaintext value")
	return cmd
}

func newSecretListCommand(deps *SecretCommandDeps) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "list",
		Short:   "List stored secret names",
		Aliases: []string{"ls"},
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := deps.OpenStore()
			if err != nil {
				return err
			}
			entries, err := store.List()
			if err != nil {
				return err
			}

			format := config.OutputFormatText
			if secretOutputFormat != "" {
				format = config.OutputFormat(secretOutputFormat)
				if !format.IsValid() {
					return fmt.Errorf("invalid output format: %s", secretOutputFormat)
				}
			}

			w := deps.out()
			if ok, err := writeStructured(w, format, entries); ok {
				return err
			}
			if len(entries) == 0 {
				fmt.Fprintln(w, "No secrets stored.")
				return nil
			}
			fmt.Fprintln(w, "  NAME                  UPDATED")
			for _, e := range entries {
				fmt.Fprintf(w, "  %-21s %s\n", e.Name, e.UpdatedAt.Local().Format("2006-01-02 15:04"))
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&secretOutputFormat, "output", "o", "", "Output format: text, json, yaml")
	return cmd
}

func newSecretDeleteCommand(deps *SecretCommandDeps) *cobra.Command {
	return &cobra.Command{
		Use:     "delete <name>",
		Short:   "Delete a secret",
		Aliases: []string{"rm"},
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := deps.OpenStore()
			if err != nil {
				return err
			}
			if err := store.Delete(args[0]); err != nil {
				return err
			}
			fmt.Fprintf(deps.out(), "Deleted %s\n", args[0])
			return nil
		},
	}
}

// promptForSecret reads a value with echo disabled, falling back to a plain
// line read when stdin is not a terminal.
func promptForSecret(prompt string) (string, error) {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		line, err := bufio.NewReader(os.Stdin).ReadString('\n')
		if err != nil && err != io.EOF {
			return "", err
		}
		return strings.TrimSpace(line), nil
	}

	fmt.Fprint(os.Stderr, prompt)
	b, err := term.ReadPassword(fd)
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(b)), nil
}

func readAllTrimmed(r io.Reader) (string, error) {
	b, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(b)), nil
}
