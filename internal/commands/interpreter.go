package commands

import (
	"context"
	"fmt"

	"github.com/Locolm/ai-mail-reader/internal/config"
	"github.com/rs/zerolog"
)

// Speaker narrates prompts and help texts
type Speaker interface {
	Speak(ctx context.Context, text string) (bool, error)
}

// Listener captures one utterance or typed line
type Listener interface {
	Capture(ctx context.Context, prompt string) (string, error)
}

// InterpreterOptions controls prompting
type InterpreterOptions struct {
	// Voice speaks the help before listening; otherwise the help is part of the typed prompt
	Voice bool

	VoicePrompt     string
	KeyboardPrompt  string
	ListeningPrompt string

	// MaxHelpRetries bounds how many help requests are answered before giving up
	MaxHelpRetries int
}

// DefaultInterpreterOptions builds options from the configured messages
func DefaultInterpreterOptions(voice bool, msgs config.MessagesConfig, maxHelpRetries int) InterpreterOptions {
	return InterpreterOptions{
		Voice:           voice,
		VoicePrompt:     msgs.VoicePrompt,
		KeyboardPrompt:  msgs.KeyboardPrompt,
		ListeningPrompt: msgs.ListeningPrompt,
		MaxHelpRetries:  maxHelpRetries,
	}
}

// Interpreter reads user input and translates it into actions
type Interpreter struct {
	table   *Table
	speaker Speaker
	input   Listener
	opts    InterpreterOptions
	logger  zerolog.Logger
}

// NewInterpreter creates an interpreter. speaker may be nil in keyboard mode.
func NewInterpreter(table *Table, speaker Speaker, input Listener, opts InterpreterOptions, logger zerolog.Logger) *Interpreter {
	if opts.MaxHelpRetries < 0 {
		opts.MaxHelpRetries = 0
	}
	return &Interpreter{table: table, speaker: speaker, input: input, opts: opts, logger: logger}
}

// Table returns the command table in use
func (i *Interpreter) Table() *Table { return i.table }

// Read prompts for one command legal in c. Help requests re-prompt with the
// context's help text until MaxHelpRetries is exhausted, after which the result
// is Unrecognized. Errors only come from the narrator, the input or ctx.
func (i *Interpreter) Read(ctx context.Context, c Context) (Action, error) {
	help := i.table.Help(c)
	prompt := i.prompt(help)

	if i.opts.Voice {
		if err := i.say(ctx, config.Expand(i.opts.VoicePrompt, map[string]string{"help": help})); err != nil {
			return Unrecognized, err
		}
	}

	for attempt := 0; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return Unrecognized, err
		}

		raw, err := i.input.Capture(ctx, prompt)
		if err != nil {
			return Unrecognized, fmt.Errorf("failed to capture command: %w", err)
		}

		if i.table.WantsHelp(raw) {
			if attempt >= i.opts.MaxHelpRetries {
				i.logger.Info().Str("context", c.String()).Int("attempts", attempt+1).Msg("help requested too many times")
				return Unrecognized, nil
			}
			if err := i.say(ctx, help); err != nil {
				return Unrecognized, err
			}
			continue
		}

		action := i.table.Interpret(raw, c)
		if action == Unrecognized {
			i.logger.Info().Str("context", c.String()).Str("input", raw).Msg("command not recognized")
		} else {
			i.logger.Debug().Str("context", c.String()).Str("action", string(action)).Msg("command recognized")
		}
		return action, nil
	}
}

func (i *Interpreter) prompt(help string) string {
	if i.opts.Voice {
		return i.opts.ListeningPrompt
	}
	return config.Expand(i.opts.KeyboardPrompt, map[string]string{"help": help})
}

func (i *Interpreter) say(ctx context.Context, text string) error {
	if i.speaker == nil || text == "" {
		return nil
	}
	if _, err := i.speaker.Speak(ctx, text); err != nil {
		return fmt.Errorf("failed to narrate prompt: %w", err)
	}
	return nil
}
