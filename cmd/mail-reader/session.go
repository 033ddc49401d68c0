package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"

	"github.com/Locolm/ai-mail-reader/internal/commands"
	"github.com/Locolm/ai-mail-reader/internal/config"
	"github.com/Locolm/ai-mail-reader/internal/db"
	"github.com/Locolm/ai-mail-reader/internal/gmail"
	"github.com/Locolm/ai-mail-reader/internal/logging"
	"github.com/Locolm/ai-mail-reader/internal/navigator"
	"github.com/Locolm/ai-mail-reader/internal/render"
	"github.com/Locolm/ai-mail-reader/internal/services"
	"github.com/Locolm/ai-mail-reader/internal/speech"
	"github.com/Locolm/ai-mail-reader/pkg/auth"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

// setupLogger opens the configured log file, teeing to stderr with --verbose
func setupLogger(cmd *cobra.Command, cfg *config.Config, opts *rootOptions) (zerolog.Logger, func() error, error) {
	var stderr io.Writer
	if opts.verbose {
		stderr = cmd.ErrOrStderr()
	}
	return logging.New(logging.Options{Path: logPath(cfg), Level: cfg.LogLevel, Stderr: stderr})
}

func newGmailClient(ctx context.Context, cfg *config.Config) (*gmail.Client, error) {
	if !fileExists(cfg.Credentials) {
		return nil, fmt.Errorf("credentials file not found at %s; run `mail-reader setup` for instructions", cfg.Credentials)
	}
	service, err := auth.NewGmailService(ctx, cfg.Credentials, cfg.Token, auth.ReaderScopes()...)
	if err != nil {
		return nil, fmt.Errorf("could not initialize Gmail service: %w", err)
	}
	return gmail.NewClient(service, cfg.Gmail.Query, cfg.Gmail.PageSize), nil
}

// openLedger opens the read history; failures only disable it
func openLedger(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (services.ReadLedger, func() error) {
	noop := func() error { return nil }
	if !cfg.History.Enabled {
		return nil, noop
	}
	store, err := db.Open(ctx, historyPath(cfg))
	if err != nil {
		logger.Warn().Err(err).Msg("read history disabled")
		return nil, noop
	}
	return db.NewReadLogStore(store), store.Close
}

func runSession(cmd *cobra.Command, opts *rootOptions) error {
	cfg, err := loadConfig(opts)
	if err != nil {
		return err
	}
	logger, closeLog, err := setupLogger(cmd, cfg, opts)
	if err != nil {
		return err
	}
	defer func() { _ = closeLog() }()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	client, err := newGmailClient(ctx, cfg)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	narrator, err := speech.NewNarrator(cfg.Speech, out, logger)
	if err != nil {
		return fmt.Errorf("could not start narrator: %w", err)
	}
	defer func() {
		if err := narrator.Close(); err != nil {
			logger.Warn().Err(err).Msg("failed to release narrator")
		}
	}()

	input, err := speech.NewInput(cfg, cmd.InOrStdin(), out, logger)
	if err != nil {
		return fmt.Errorf("could not start input: %w", err)
	}
	table, err := commands.NewTable(cfg.Commands)
	if err != nil {
		return fmt.Errorf("invalid command table: %w", err)
	}
	interpreter := commands.NewInterpreter(table, narrator, input,
		commands.DefaultInterpreterOptions(cfg.InputMode == config.InputModeVoice, cfg.Messages, cfg.Commands.MaxHelpRetries),
		logger)

	pipeline := render.NewDefaultPipeline(render.SanitizerOptions{
		ConsonantRun:   cfg.Sanitizer.ConsonantRun,
		SymbolRun:      cfg.Sanitizer.SymbolRun,
		MaxTokenLength: cfg.Sanitizer.MaxTokenLength,
	}, cfg.Messages.ImageDescription, logger)

	ledger, closeLedger := openLedger(ctx, cfg, logger)
	defer func() { _ = closeLedger() }()

	total, err := client.CountUnreadThreads(ctx)
	if err != nil {
		logger.Warn().Err(err).Msg("could not count unread conversations")
		total = 0
	}
	if total > 0 {
		greeting := config.Expand(cfg.Messages.Greeting, map[string]string{"count": strconv.Itoa(total)})
		if _, err := narrator.Speak(ctx, pipeline.Clean(greeting)); err != nil {
			return fmt.Errorf("failed to narrate: %w", err)
		}
	}

	feed := services.NewConversationFeed(client, cfg.Gmail.Prefetch, logger)
	defer func() { _ = feed.Close() }()

	session, err := navigator.NewSession(navigator.Deps{
		Source:   feed,
		Narrator: narrator,
		Commands: interpreter,
		Marker:   services.NewReadService(client, ledger, logger),
		Renderer: pipeline,
		Messages: cfg.Messages,
		Total:    total,
		Logger:   logger,
	})
	if err != nil {
		return err
	}

	outcome, err := session.Run(ctx)
	logger.Info().Stringer("outcome", outcome).Err(err).Msg("reading session ended")
	if errors.Is(err, speech.ErrInputClosed) || errors.Is(err, context.Canceled) {
		return nil
	}
	if err != nil {
		return err
	}
	if outcome == navigator.OutcomeQuit {
		_, _ = narrator.Speak(ctx, pipeline.Clean(cfg.Messages.Quit))
	}
	return nil
}

func newCountCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "count",
		Short: "Print the number of unread conversations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(opts)
			if err != nil {
				return err
			}
			client, err := newGmailClient(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			n, err := client.CountUnreadThreads(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d conversations non lues (%s)\n", n, client.Query())
			return nil
		},
	}
}
