package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/Locolm/ai-mail-reader/internal/config"
	"github.com/Locolm/ai-mail-reader/internal/version"
	"github.com/spf13/cobra"
)

// Environment overrides for file locations
const (
	envConfig      = config.EnvPrefix + "_CONFIG"
	envCredentials = config.EnvPrefix + "_CREDENTIALS"
	envToken       = config.EnvPrefix + "_TOKEN"
)

// rootOptions are the flags shared by every command
type rootOptions struct {
	configPath  string
	credentials string
	token       string
	keyboard    bool
	verbose     bool
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:     "mail-reader",
		Short:   "Read unread Gmail conversations aloud and navigate them by voice or keyboard",
		Version: version.GetVersionString(),
		Long: `mail-reader narrates your unread Gmail conversations one by one.

For each conversation it announces the sender, subject and date, then lets you
open it (which marks it as read), move between its messages, skip to the next
conversation or stop. Commands are typed, or spoken when input_mode is "voice".

Environment variables:
  MAIL_READER_CONFIG       Override default config file path
  MAIL_READER_CREDENTIALS  Override default credentials file path
  MAIL_READER_TOKEN        Override default token file path`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSession(cmd, opts)
		},
	}

	flags := cmd.PersistentFlags()
	flags.StringVar(&opts.configPath, "config", "", "Path to YAML configuration file (default: ~/.config/ai-mail-reader/config.yaml)")
	flags.StringVar(&opts.credentials, "credentials", "", "Path to OAuth client credentials JSON (default: ~/.config/ai-mail-reader/credentials.json)")
	flags.StringVar(&opts.token, "token", "", "Path to the cached OAuth token (default: ~/.config/ai-mail-reader/token.json)")
	flags.BoolVarP(&opts.verbose, "verbose", "v", false, "Also write logs to stderr")
	cmd.Flags().BoolVarP(&opts.keyboard, "keyboard", "k", false, "Type commands instead of speaking them")

	cmd.AddCommand(
		newCountCmd(opts),
		newHistoryCmd(opts),
		newSetupCmd(opts),
		newVersionCmd(),
	)
	return cmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), version.GetDetailedVersionString())
		},
	}
}

// loadConfig resolves the config path and loads it with every path field
// resolved by priority.
func loadConfig(opts *rootOptions) (*config.Config, error) {
	cfg, err := config.LoadConfig(getConfigPath(opts.configPath))
	if err != nil {
		return nil, err
	}
	cfg.Credentials = getCredentialsPath(opts.credentials, cfg.Credentials)
	cfg.Token = getTokenPath(opts.token, cfg.Token)
	if opts.keyboard {
		cfg.InputMode = config.InputModeKeyboard
	}
	return cfg, nil
}

// getConfigPath returns the configuration file path using the following priority:
// 1. CLI flag
// 2. Environment variable MAIL_READER_CONFIG
// 3. Default path ~/.config/ai-mail-reader/config.yaml
func getConfigPath(flagValue string) string {
	if flagValue != "" {
		return flagValue
	}
	if envPath := os.Getenv(envConfig); envPath != "" {
		return config.ExpandPath(envPath)
	}
	return config.DefaultConfigPath()
}

// getCredentialsPath returns the credentials file path using the following priority:
// 1. CLI flag
// 2. Environment variable MAIL_READER_CREDENTIALS
// 3. Config file setting
// 4. Default path ~/.config/ai-mail-reader/credentials.json
func getCredentialsPath(flagValue, configValue string) string {
	credPath, _ := config.DefaultCredentialPaths()
	return resolvePath(flagValue, envCredentials, configValue, credPath)
}

// getTokenPath is getCredentialsPath for the cached token
func getTokenPath(flagValue, configValue string) string {
	_, tokenPath := config.DefaultCredentialPaths()
	return resolvePath(flagValue, envToken, configValue, tokenPath)
}

func resolvePath(flagValue, envName, configValue, fallback string) string {
	if flagValue != "" {
		return flagValue
	}
	if envPath := os.Getenv(envName); envPath != "" {
		return config.ExpandPath(envPath)
	}
	if configValue != "" {
		return config.ExpandPath(configValue)
	}
	return fallback
}

func logPath(cfg *config.Config) string {
	if cfg.LogFile != "" {
		return config.ExpandPath(cfg.LogFile)
	}
	return config.DefaultLogPath()
}

func historyPath(cfg *config.Config) string {
	if cfg.History.Path != "" {
		return config.ExpandPath(cfg.History.Path)
	}
	return config.DefaultHistoryPath()
}

func fileExists(path string) bool {
	_, err := os.Stat(filepath.Clean(path))
	return err == nil
}
