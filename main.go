// Package main provides the breeze CLI entry point.
// breeze creates interview meetings, tracks their lifecycle and shows their
// scored results.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/otherjamesbrown/breeze-cli/cmd"
	"github.com/otherjamesbrown/breeze-cli/config"
	"github.com/otherjamesbrown/breeze-cli/pkg/buildinfo"
	brerrors "github.com/otherjamesbrown/breeze-cli/pkg/errors"
	"github.com/otherjamesbrown/breeze-cli/pkg/logging"
)

// Global flags and state.
var (
	configDir   string
	envFile     string
	storageFlag string
	timeout     time.Duration
	debug       bool
	logJSON     bool

	// cfg holds the loaded configuration with flag overrides applied.
	cfg *config.CLIConfig
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "breeze",
	Short: "Breeze CLI - interview meetings and their results",
	Long: `breeze manages interview meetings: create one from a meeting link and the
candidate's PDF, start and stop it, and review the scored results.

Meetings are kept in a single storage slot. The slot can live in a local
file (default), in memory, in Redis or in PostgreSQL.

COMMON WORKFLOWS:
  Create and run:  breeze meeting create --link <url> --document cv.pdf  →  breeze meeting start <id>
  Review results:  breeze meeting list  →  breeze meeting show <id>
  Serve the API:   breeze serve --addr 0.0.0.0:8080
  Check backend:   breeze health

DISCOVERY:
  breeze <command> --help     Subcommands, flags, and examples for any command
  breeze config show          Effective configuration`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Skip initialization for commands that don't need it.
		if cmd.Name() == "version" || cmd.Name() == "help" || cmd.Name() == "completion" {
			return nil
		}

		if configDir != "" {
			if err := os.Setenv(config.EnvConfigDir, configDir); err != nil {
				return fmt.Errorf("setting config dir: %w", err)
			}
		}

		if err := config.LoadDotEnv(envFiles()...); err != nil {
			return err
		}

		var err error
		cfg, err = config.LoadConfig()
		if err != nil {
			return fmt.Errorf("loading configuration: %w", err)
		}
		applyFlagOverrides(cfg)

		if err := cfg.Validate(); err != nil {
			return fmt.Errorf("validating flags: %w", err)
		}

		lc := cfg.LoggingConfig()
		lc.Output = cmd.ErrOrStderr()
		logging.SetGlobal(logging.NewLogger(lc))

		return nil
	},
}

func envFiles() []string {
	if envFile != "" {
		return []string{envFile}
	}
	return nil
}

// applyFlagOverrides applies global flags that were set on the command line.
func applyFlagOverrides(c *config.CLIConfig) {
	if storageFlag != "" {
		c.Storage = storageFlag
	}
	if timeout != 0 {
		c.Timeout = timeout
	}
	if debug {
		c.Debug = true
	}
	if logJSON {
		c.LogJSON = true
	}
}

// loadedConfig returns the configuration loaded by the root command, falling
// back to a fresh load when a subcommand runs outside rootCmd.
func loadedConfig() (*config.CLIConfig, error) {
	if cfg != nil {
		return cfg, nil
	}
	return config.LoadConfig()
}

// Version command flags.
var versionOutput string

// versionCmd prints version information.
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Long: `Print the version, commit hash, and build time of the breeze CLI.

Examples:
  breeze version
  breeze version -o json`,
	RunE: func(cmd *cobra.Command, args []string) error {
		info := buildinfo.Get("breeze")
		w := cmd.OutOrStdout()

		switch config.OutputFormat(versionOutput) {
		case config.OutputFormatJSON:
			return outputJSON(w, info)
		case config.OutputFormatYAML:
			return outputYAML(w, info)
		case "", config.OutputFormatText:
			fmt.Fprintf(w, "breeze version %s\n", info.Version)
			fmt.Fprintf(w, "  commit: %s\n", info.Commit)
			fmt.Fprintf(w, "  built: %s\n", info.BuildTime)
			fmt.Fprintf(w, "  go: %s\n", info.GoVersion)
			fmt.Fprintf(w, "  platform: %s\n", info.Platform)
			return nil
		default:
			return fmt.Errorf("invalid output format: %s", versionOutput)
		}
	},
}

// configCmd manages CLI configuration.
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage CLI configuration",
	Long:  `View and modify the breeze CLI configuration settings.`,
}

// Config show flags.
var configShowOutput string

// configShowCmd displays current configuration.
var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	Long: `Display the effective configuration: defaults, the config file,
BREEZE_* environment variables and global flags, in that order of precedence.

Passwords are masked.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := loadedConfig()
		if err != nil {
			return fmt.Errorf("loading configuration: %w", err)
		}

		shown := *c
		shown.Redis.Password = maskSet(shown.Redis.Password)
		shown.Postgres.Password = maskSet(shown.Postgres.Password)

		w := cmd.OutOrStdout()
		switch config.OutputFormat(configShowOutput) {
		case config.OutputFormatJSON:
			return outputJSON(w, shown)
		case config.OutputFormatYAML:
			return outputYAML(w, shown)
		}

		configPath, _ := config.ConfigPath()
		dataDir, _ := shown.ResolvedDataDir()

		fmt.Fprintln(w, "Current configuration:")
		fmt.Fprintf(w, "  Config file:    %s\n", configPath)
		fmt.Fprintf(w, "  Storage:        %s\n", shown.Storage)
		if shown.Storage == "file" {
			fmt.Fprintf(w, "  Data dir:       %s\n", dataDir)
		}
		fmt.Fprintf(w, "  Timeout:        %s\n", shown.Timeout)
		fmt.Fprintf(w, "  Output format:  %s\n", shown.OutputFormat)
		fmt.Fprintf(w, "  Log level:      %s\n", shown.LogLevel)
		fmt.Fprintf(w, "  Debug:          %t\n", shown.Debug)
		fmt.Fprintf(w, "  Redis:          %s (db %d, prefix %q)\n", shown.Redis.Address, shown.Redis.DB, shown.Redis.KeyPrefix)
		fmt.Fprintf(w, "  Postgres:       %s\n", shown.PostgresDB().Redacted())
		fmt.Fprintf(w, "  Postgres table: %s\n", shown.Postgres.Table)
		fmt.Fprintf(w, "  Events:         %t\n", shown.Events.Enabled)
		fmt.Fprintf(w, "  Server address: %s\n", shown.Server.Address)

		return nil
	},
}

func maskSet(v string) string {
	if v == "" {
		return ""
	}
	return "********"
}

// configInitCmd initializes configuration.
var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize configuration file",
	Long:  `Create a new configuration file with default values if one doesn't exist.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		configPath, err := config.ConfigPath()
		if err != nil {
			return fmt.Errorf("getting config path: %w", err)
		}

		w := cmd.OutOrStdout()

		// Check if config already exists.
		if _, err := os.Stat(configPath); err == nil {
			fmt.Fprintf(w, "Configuration file already exists: %s\n", configPath)
			fmt.Fprintln(w, "Use 'breeze config show' to view current settings.")
			return nil
		}

		defaultCfg := config.DefaultConfig()
		if err := config.SaveConfig(defaultCfg); err != nil {
			return fmt.Errorf("saving configuration: %w", err)
		}

		fmt.Fprintf(w, "Created configuration file: %s\n", configPath)
		fmt.Fprintln(w, "\nDefault settings:")
		fmt.Fprintf(w, "  Storage:        %s\n", defaultCfg.Storage)
		fmt.Fprintf(w, "  Timeout:        %s\n", defaultCfg.Timeout)
		fmt.Fprintf(w, "  Output format:  %s\n", defaultCfg.OutputFormat)

		return nil
	},
}

// configSetCmd sets a configuration value.
var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a configuration value",
	Long: `Set a configuration value in the config file.

Keys use dots for sections, e.g. redis.address. Run 'breeze config keys' for
the full list.

Examples:
  breeze config set storage redis
  breeze config set redis.address localhost:6379
  breeze config set timeout 1m
  breeze config set events.enabled true
  breeze config set data_dir ~/breeze-data`,
	Args: cobra.ExactArgs(2),
	ValidArgsFunction: func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		if len(args) == 0 {
			return config.SettableKeys(), cobra.ShellCompDirectiveNoFileComp
		}
		return nil, cobra.ShellCompDirectiveNoFileComp
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		key, value := args[0], args[1]

		// Start from the file and environment, not from flag overrides.
		currentCfg, err := config.LoadConfig()
		if err != nil {
			// If config doesn't load, start with defaults.
			currentCfg = config.DefaultConfig()
		}

		if err := currentCfg.Set(key, value); err != nil {
			return err
		}
		if err := currentCfg.Validate(); err != nil {
			return fmt.Errorf("invalid configuration: %w", err)
		}

		if err := config.SaveConfig(currentCfg); err != nil {
			return fmt.Errorf("saving configuration: %w", err)
		}

		if key == "data_dir" {
			if expanded, err := config.ExpandPath(value); err == nil && expanded != value {
				fmt.Fprintf(cmd.OutOrStdout(), "  (expands to: %s)\n", expanded)
			}
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Set %s = %s\n", key, value)
		return nil
	},
}

// configKeysCmd lists settable keys.
var configKeysCmd = &cobra.Command{
	Use:   "keys",
	Short: "List configuration keys",
	Long:  `List the keys accepted by 'breeze config set'. Each key can also be set with BREEZE_<KEY>, dots replaced by underscores.`,
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		for _, k := range config.SettableKeys() {
			fmt.Fprintln(cmd.OutOrStdout(), k)
		}
		return nil
	},
}

// completionCmd generates shell completion scripts.
var completionCmd = &cobra.Command{
	Use:   "completion [bash|zsh|fish|powershell]",
	Short: "Generate shell completion scripts",
	Long: `Generate shell completion scripts for breeze.

To load completions:

Bash:
  $ source <(breeze completion bash)

Zsh:
  # If shell completion is not already enabled in your environment,
  # you will need to enable it. Execute the following once:
  $ echo "autoload -U compinit; compinit" >> ~/.zshrc

  $ breeze completion zsh > "${fpath[1]}/_breeze"

Fish:
  $ breeze completion fish | source

PowerShell:
  PS> breeze completion powershell | Out-String | Invoke-Expression
`,
	DisableFlagsInUseLine: true,
	ValidArgs:             []string{"bash", "zsh", "fish", "powershell"},
	Args:                  cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
	RunE: func(cmd *cobra.Command, args []string) error {
		w := cmd.OutOrStdout()
		switch args[0] {
		case "bash":
			return rootCmd.GenBashCompletion(w)
		case "zsh":
			return rootCmd.GenZshCompletion(w)
		case "fish":
			return rootCmd.GenFishCompletion(w, true)
		case "powershell":
			return rootCmd.GenPowerShellCompletionWithDesc(w)
		}
		return nil
	},
}

// outputJSON outputs data as indented JSON.
func outputJSON(w io.Writer, v interface{}) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}

// outputYAML outputs data as YAML.
func outputYAML(w io.Writer, v interface{}) error {
	encoder := yaml.NewEncoder(w)
	defer encoder.Close()
	return encoder.Encode(v)
}

// suggestionFor returns the registry's suggested action for domain errors.
// Backend failures with no sentinel get no suggestion.
func suggestionFor(err error) string {
	code := brerrors.CodeFor(err)
	if code == "" || code == brerrors.CodeStorageFailed {
		return ""
	}
	return brerrors.GetSuggestedAction(code)
}

func init() {
	// Global flags.
	rootCmd.PersistentFlags().StringVar(&configDir, "config-dir", "", "config directory (default is $BREEZE_CONFIG_DIR or ~/.breeze)")
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", "", "load environment variables from this file (default .env if present)")
	rootCmd.PersistentFlags().StringVar(&storageFlag, "storage", "", "storage backend: file, memory, redis, postgres")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 0, "storage timeout (e.g., 30s, 1m)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")
	rootCmd.PersistentFlags().BoolVar(&logJSON, "log-json", false, "log as JSON to stderr")

	// Add command groups for organized help output.
	rootCmd.AddGroup(
		&cobra.Group{ID: "meetings", Title: "Meetings:"},
		&cobra.Group{ID: "ops", Title: "Operations:"},
		&cobra.Group{ID: "setup", Title: "Setup:"},
	)

	// Meetings
	meetingDeps := cmd.DefaultMeetingDeps()
	meetingDeps.LoadConfig = loadedConfig
	meetingCmd := cmd.NewMeetingCommand(meetingDeps)
	meetingCmd.GroupID = "meetings"
	rootCmd.AddCommand(meetingCmd)

	// Operations
	serveDeps := cmd.DefaultServeDeps()
	serveDeps.LoadConfig = loadedConfig
	serveCmd := cmd.NewServeCommand(serveDeps)
	serveCmd.GroupID = "ops"
	rootCmd.AddCommand(serveCmd)

	healthDeps := cmd.DefaultHealthDeps()
	healthDeps.LoadConfig = loadedConfig
	healthCmd := cmd.NewHealthCommand(healthDeps)
	healthCmd.GroupID = "ops"
	rootCmd.AddCommand(healthCmd)

	// Setup
	configCmd.GroupID = "setup"
	rootCmd.AddCommand(configCmd)

	secretCmd := cmd.NewSecretCommand(nil)
	secretCmd.GroupID = "setup"
	rootCmd.AddCommand(secretCmd)

	completionCmd.GroupID = "setup"
	rootCmd.AddCommand(completionCmd)

	versionCmd.GroupID = "setup"
	versionCmd.Flags().StringVarP(&versionOutput, "output", "o", "", "Output format: text, json, yaml")
	rootCmd.AddCommand(versionCmd)

	// Config subcommands.
	configShowCmd.Flags().StringVarP(&configShowOutput, "output", "o", "", "Output format: text, json, yaml")
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configSetCmd)
	configCmd.AddCommand(configKeysCmd)
}

func main() {
	// Cancel the command context on SIGINT/SIGTERM so that `serve` shuts
	// down gracefully and storage calls are abandoned.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		if s := suggestionFor(err); s != "" {
			fmt.Fprintf(os.Stderr, "Hint: %s\n", s)
		}
		stop()
		os.Exit(1)
	}
}
