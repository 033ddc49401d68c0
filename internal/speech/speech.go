// Package speech provides the narration and input collaborators of a reading
// session: text-to-speech narrators and keyboard or speech-to-text input.
package speech

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/Locolm/ai-mail-reader/internal/config"
	"github.com/rs/zerolog"
)

var (
	// ErrNarratorClosed is returned when speaking after Close
	ErrNarratorClosed = errors.New("narrator closed")
	// ErrInputClosed is returned when the input stream is exhausted
	ErrInputClosed = errors.New("input closed")
	// ErrRecognitionFailed is returned when the recognizer keeps failing
	ErrRecognitionFailed = errors.New("speech recognition failed")
)

// Narrator speaks text and blocks until playback completes
type Narrator interface {
	// Speak returns true iff non-empty text was spoken
	Speak(ctx context.Context, text string) (bool, error)
	// SpeakBlocks speaks pre-segmented blocks in order; true iff at least one was spoken
	SpeakBlocks(ctx context.Context, blocks []string) (bool, error)
	Close() error
}

// Input captures one utterance or typed line
type Input interface {
	Capture(ctx context.Context, prompt string) (string, error)
}

// NewNarrator builds the narrator selected by cfg
func NewNarrator(cfg config.SpeechConfig, out io.Writer, logger zerolog.Logger) (Narrator, error) {
	switch cfg.Narrator {
	case config.NarratorConsole, "":
		return NewConsoleNarrator(out, cfg.WrapWidth, cfg.Echo, logger), nil
	case config.NarratorCommand:
		var echo io.Writer
		if cfg.Echo {
			echo = out
		}
		return NewCommandNarrator(cfg.NarratorCommand, cfg.Voice, echo, logger)
	default:
		return nil, fmt.Errorf("unknown narrator %q", cfg.Narrator)
	}
}

// NewInput builds the input selected by the configured mode
func NewInput(cfg *config.Config, in io.Reader, out io.Writer, logger zerolog.Logger) (Input, error) {
	switch cfg.InputMode {
	case config.InputModeKeyboard, "":
		return NewKeyboardInput(in, out), nil
	case config.InputModeVoice:
		return NewCommandRecognizer(cfg.Speech.RecognizerCommand, cfg.Speech.RecognizerRetries, out, logger)
	default:
		return nil, fmt.Errorf("unknown input mode %q", cfg.InputMode)
	}
}

type speakFunc func(ctx context.Context, text string) (bool, error)

func speakEach(ctx context.Context, speak speakFunc, blocks []string) (bool, error) {
	spoken := false
	for _, block := range blocks {
		if err := ctx.Err(); err != nil {
			return spoken, err
		}
		ok, err := speak(ctx, block)
		if err != nil {
			return spoken, err
		}
		spoken = spoken || ok
	}
	return spoken, nil
}
