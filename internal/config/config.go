package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment override (MAIL_READER_GMAIL_QUERY, ...)
const EnvPrefix = "MAIL_READER"

// Input modes
const (
	InputModeVoice    = "voice"
	InputModeKeyboard = "keyboard"
)

// Narrator kinds
const (
	NarratorConsole = "console"
	NarratorCommand = "command"
)

// Config holds all configuration for the mail reader
type Config struct {
	Credentials string `mapstructure:"credentials" yaml:"credentials"`
	Token       string `mapstructure:"token" yaml:"token"`

	// Logging
	LogFile  string `mapstructure:"log_file" yaml:"log_file"`
	LogLevel string `mapstructure:"log_level" yaml:"log_level"`

	// voice or keyboard
	InputMode string `mapstructure:"input_mode" yaml:"input_mode"`

	Gmail     GmailConfig     `mapstructure:"gmail" yaml:"gmail"`
	Speech    SpeechConfig    `mapstructure:"speech" yaml:"speech"`
	Sanitizer SanitizerConfig `mapstructure:"sanitizer" yaml:"sanitizer"`
	Commands  CommandsConfig  `mapstructure:"commands" yaml:"commands"`
	Messages  MessagesConfig  `mapstructure:"messages" yaml:"messages"`
	History   HistoryConfig   `mapstructure:"history" yaml:"history"`
}

// GmailConfig controls which threads are read and how they are fetched
type GmailConfig struct {
	Query    string `mapstructure:"query" yaml:"query"`
	PageSize int64  `mapstructure:"page_size" yaml:"page_size"`
	// Prefetch is the number of conversations loaded ahead of the reader (0 = fetch on demand)
	Prefetch int `mapstructure:"prefetch" yaml:"prefetch"`
}

// SpeechConfig selects and tunes the narration and recognition collaborators
type SpeechConfig struct {
	Narrator string `mapstructure:"narrator" yaml:"narrator"`
	// NarratorCommand is the TTS argv; {{text}} and {{voice}} are substituted.
	// Without {{text}} the utterance is written to the command's stdin.
	NarratorCommand []string `mapstructure:"narrator_command" yaml:"narrator_command"`
	Voice           string   `mapstructure:"voice" yaml:"voice"`

	// RecognizerCommand prints one transcript on stdout per invocation
	RecognizerCommand []string `mapstructure:"recognizer_command" yaml:"recognizer_command"`
	RecognizerRetries int      `mapstructure:"recognizer_retries" yaml:"recognizer_retries"`

	WrapWidth int  `mapstructure:"wrap_width" yaml:"wrap_width"`
	Echo      bool `mapstructure:"echo" yaml:"echo"`
}

// SanitizerConfig holds the noise filter thresholds
type SanitizerConfig struct {
	ConsonantRun   int `mapstructure:"consonant_run" yaml:"consonant_run"`
	SymbolRun      int `mapstructure:"symbol_run" yaml:"symbol_run"`
	MaxTokenLength int `mapstructure:"max_token_length" yaml:"max_token_length"`
}

// CommandsConfig is the consolidated command table: context -> action -> synonyms,
// plus one help text per context.
type CommandsConfig struct {
	Contexts       map[string]map[string][]string `mapstructure:"contexts" yaml:"contexts"`
	Help           map[string]string              `mapstructure:"help" yaml:"help"`
	HelpWords      []string                       `mapstructure:"help_words" yaml:"help_words"`
	MaxHelpRetries int                            `mapstructure:"max_help_retries" yaml:"max_help_retries"`
}

// MessagesConfig holds every narrated notice. Placeholders use {{name}}.
type MessagesConfig struct {
	Greeting         string `mapstructure:"greeting" yaml:"greeting"`
	NothingUnread    string `mapstructure:"nothing_unread" yaml:"nothing_unread"`
	AllProcessed     string `mapstructure:"all_processed" yaml:"all_processed"`
	Quit             string `mapstructure:"quit" yaml:"quit"`
	Position         string `mapstructure:"position" yaml:"position"`
	PositionOfTotal  string `mapstructure:"position_of_total" yaml:"position_of_total"`
	Sender           string `mapstructure:"sender" yaml:"sender"`
	Subject          string `mapstructure:"subject" yaml:"subject"`
	MessageCount     string `mapstructure:"message_count" yaml:"message_count"`
	MarkedRead       string `mapstructure:"marked_read" yaml:"marked_read"`
	MessageHeader    string `mapstructure:"message_header" yaml:"message_header"`
	ContentNotFound  string `mapstructure:"content_not_found" yaml:"content_not_found"`
	Unrecognized     string `mapstructure:"unrecognized" yaml:"unrecognized"`
	VoicePrompt      string `mapstructure:"voice_prompt" yaml:"voice_prompt"`
	KeyboardPrompt   string `mapstructure:"keyboard_prompt" yaml:"keyboard_prompt"`
	ListeningPrompt  string `mapstructure:"listening_prompt" yaml:"listening_prompt"`
	ImageDescription string `mapstructure:"image_description" yaml:"image_description"`
}

// HistoryConfig controls the local ledger of mark-as-read side effects
type HistoryConfig struct {
	Enabled bool   `mapstructure:"enabled" yaml:"enabled"`
	Path    string `mapstructure:"path" yaml:"path"`
}

// DefaultConfig returns a configuration with default values
func DefaultConfig() *Config {
	return &Config{
		LogLevel:  "info",
		InputMode: InputModeKeyboard,
		Gmail:     DefaultGmailConfig(),
		Speech:    DefaultSpeechConfig(),
		Sanitizer: DefaultSanitizerConfig(),
		Commands:  DefaultCommandsConfig(),
		Messages:  DefaultMessagesConfig(),
		History:   DefaultHistoryConfig(),
	}
}

// DefaultGmailConfig reads unread inbox threads outside promotions and social
func DefaultGmailConfig() GmailConfig {
	return GmailConfig{
		Query:    "is:unread label:INBOX -category:promotions -category:social",
		PageSize: 50,
		Prefetch: 2,
	}
}

// DefaultSpeechConfig returns console narration with espeak-ng as the suggested command
func DefaultSpeechConfig() SpeechConfig {
	return SpeechConfig{
		Narrator:          NarratorConsole,
		NarratorCommand:   []string{"espeak-ng", "-v", "{{voice}}", "{{text}}"},
		Voice:             "fr",
		RecognizerCommand: []string{},
		RecognizerRetries: 3,
		WrapWidth:         80,
		Echo:              false,
	}
}

// DefaultSanitizerConfig returns the lenient noise thresholds
func DefaultSanitizerConfig() SanitizerConfig {
	return SanitizerConfig{ConsonantRun: 10, SymbolRun: 5, MaxTokenLength: 40}
}

// DefaultCommandsConfig returns the French/English command table
func DefaultCommandsConfig() CommandsConfig {
	next := []string{"n", "suivant", "next"}
	quit := []string{"q", "quitter", "quit", "stop"}
	return CommandsConfig{
		Contexts: map[string]map[string][]string{
			"single": {
				"next": next,
				"quit": quit,
			},
			"conversation": {
				"next": next,
				"read": {"c", "continuer", "message", "lire", "lecture", "read"},
				"quit": quit,
			},
			"message": {
				"next":              next,
				"previous":          {"p", "précédent", "precedent", "previous"},
				"next-conversation": {"c", "conversation suivante", "conversation", "continuer"},
				"repeat":            {"r", "relire", "répéter", "repeter", "repeat"},
				"quit":              quit,
			},
		},
		Help: map[string]string{
			"single":       "Commandes disponibles : suivant, quitter.",
			"conversation": "Commandes disponibles : suivant, message, quitter.",
			"message":      "Commandes disponibles : suivant, précédent, conversation suivante, relire, quitter.",
		},
		HelpWords:      []string{"commande", "commandes", "aide", "options", "help"},
		MaxHelpRetries: 2,
	}
}

// DefaultMessagesConfig returns the French narration strings
func DefaultMessagesConfig() MessagesConfig {
	return MessagesConfig{
		Greeting:         "Bonjour. Vous avez {{count}} conversations non lues.",
		NothingUnread:    "Aucune conversation non lue à lire.",
		AllProcessed:     "Fin de toutes les conversations non lues.",
		Quit:             "Arrêt de la lecture.",
		Position:         "Conversation {{index}}",
		PositionOfTotal:  "Conversation {{index}} sur {{total}}",
		Sender:           "Expéditeur: {{sender}}",
		Subject:          "Sujet: {{subject}}",
		MessageCount:     "Contient {{count}} messages.",
		MarkedRead:       "Conversation marquée comme lue.",
		MessageHeader:    "Message {{index}} sur {{count}}. De: {{sender}}",
		ContentNotFound:  "Contenu du message introuvable ou non pertinent.",
		Unrecognized:     "Commande non reconnue. Lecture du message suivant.",
		VoicePrompt:      "Vous pouvez dire : {{help}}",
		KeyboardPrompt:   "\n[Commande] {{help}} → ",
		ListeningPrompt:  "Votre commande...",
		ImageDescription: "description d'une image: ",
	}
}

// DefaultHistoryConfig enables the ledger at its default location
func DefaultHistoryConfig() HistoryConfig {
	return HistoryConfig{Enabled: true, Path: ""}
}

// LoadConfig reads a YAML file over the defaults and applies MAIL_READER_*
// environment overrides. A missing file is not an error.
func LoadConfig(configPath string) (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := registerDefaults(v, DefaultConfig()); err != nil {
		return nil, err
	}

	if configPath != "" {
		if _, err := os.Stat(configPath); err == nil {
			v.SetConfigFile(configPath)
			if err := v.ReadInConfig(); err != nil {
				return nil, fmt.Errorf("failed to read config %s: %w", configPath, err)
			}
		} else if !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to stat config %s: %w", configPath, err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// registerDefaults exposes every default key to viper so nested keys can be
// overridden from the environment even when absent from the file.
func registerDefaults(v *viper.Viper, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to encode defaults: %w", err)
	}
	var tree map[string]interface{}
	if err := yaml.Unmarshal(data, &tree); err != nil {
		return fmt.Errorf("failed to decode defaults: %w", err)
	}
	for key, value := range tree {
		v.SetDefault(key, value)
	}
	return nil
}

// Validate rejects values the reader cannot run with
func (c *Config) Validate() error {
	if c == nil {
		return fmt.Errorf("config cannot be nil")
	}
	switch c.InputMode {
	case InputModeVoice, InputModeKeyboard:
	default:
		return fmt.Errorf("invalid input_mode %q (want %s or %s)", c.InputMode, InputModeVoice, InputModeKeyboard)
	}
	switch c.Speech.Narrator {
	case NarratorConsole:
	case NarratorCommand:
		if len(c.Speech.NarratorCommand) == 0 {
			return fmt.Errorf("speech.narrator is %q but speech.narrator_command is empty", NarratorCommand)
		}
	default:
		return fmt.Errorf("invalid speech.narrator %q", c.Speech.Narrator)
	}
	if c.Gmail.PageSize <= 0 || c.Gmail.PageSize > 500 {
		return fmt.Errorf("gmail.page_size must be between 1 and 500, got %d", c.Gmail.PageSize)
	}
	if c.Gmail.Prefetch < 0 {
		return fmt.Errorf("gmail.prefetch cannot be negative")
	}
	if len(c.Commands.Contexts) == 0 {
		return fmt.Errorf("commands.contexts cannot be empty")
	}
	return nil
}

// DefaultConfigDir returns ~/.config/ai-mail-reader
func DefaultConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", "ai-mail-reader")
}

// DefaultConfigPath returns the default configuration file path
func DefaultConfigPath() string {
	return inConfigDir("config.yaml")
}

// DefaultCredentialPaths returns the default paths for credentials and token
func DefaultCredentialPaths() (string, string) {
	return inConfigDir("credentials.json"), inConfigDir("token.json")
}

// DefaultLogPath returns the default log file path
func DefaultLogPath() string {
	return inConfigDir("mail-reader.log")
}

// DefaultHistoryPath returns the default SQLite ledger path
func DefaultHistoryPath() string {
	return inConfigDir("history.db")
}

func inConfigDir(name string) string {
	dir := DefaultConfigDir()
	if dir == "" {
		return ""
	}
	return filepath.Join(dir, name)
}

// SaveConfig writes the configuration as YAML
func (c *Config) SaveConfig(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}

// ExpandPath expands a leading ~ to the home directory
func ExpandPath(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~"))
}

// Expand replaces {{name}} placeholders in template with values
func Expand(template string, values map[string]string) string {
	if len(values) == 0 || !strings.Contains(template, "{{") {
		return template
	}
	pairs := make([]string, 0, len(values)*2)
	for k, v := range values {
		pairs = append(pairs, "{{"+k+"}}", v)
	}
	return strings.NewReplacer(pairs...).Replace(template)
}
