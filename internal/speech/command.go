package speech

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"sync"

	"github.com/rs/zerolog"
)

// Placeholders substituted in external command arguments
const (
	TextPlaceholder  = "{{text}}"
	VoicePlaceholder = "{{voice}}"
)

// CommandNarrator runs an external TTS program once per utterance
// (espeak-ng, say, piper...). Speak blocks until the program exits.
type CommandNarrator struct {
	argv   []string
	voice  string
	echo   io.Writer
	logger zerolog.Logger

	mu      sync.Mutex
	current *exec.Cmd
	closed  bool
}

// NewCommandNarrator validates argv. When no argument contains {{text}} the
// utterance is written to the program's stdin.
func NewCommandNarrator(argv []string, voice string, echo io.Writer, logger zerolog.Logger) (*CommandNarrator, error) {
	if len(argv) == 0 || strings.TrimSpace(argv[0]) == "" {
		return nil, errors.New("narrator command cannot be empty")
	}
	return &CommandNarrator{
		argv:   append([]string(nil), argv...),
		voice:  voice,
		echo:   echo,
		logger: logger,
	}, nil
}

// Speak runs the TTS command for text
func (n *CommandNarrator) Speak(ctx context.Context, text string) (bool, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return false, nil
	}

	args, viaStdin := expandArgs(n.argv, text, n.voice)
	cmd := exec.CommandContext(ctx, args[0], args[1:]...)
	if viaStdin {
		cmd.Stdin = strings.NewReader(text)
	}
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	n.mu.Lock()
	if n.closed {
		n.mu.Unlock()
		return false, ErrNarratorClosed
	}
	if n.echo != nil {
		fmt.Fprintf(n.echo, "[TTS] Reading: %s\n", text)
	}
	if err := cmd.Start(); err != nil {
		n.mu.Unlock()
		return false, fmt.Errorf("failed to start narrator %s: %w", args[0], err)
	}
	n.current = cmd
	n.mu.Unlock()

	err := cmd.Wait()

	n.mu.Lock()
	n.current = nil
	closed := n.closed
	n.mu.Unlock()

	if closed {
		return false, ErrNarratorClosed
	}
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return false, ctxErr
		}
		return false, fmt.Errorf("narrator %s failed: %w: %s", args[0], err, strings.TrimSpace(stderr.String()))
	}
	n.logger.Debug().Int("chars", len(text)).Msg("utterance spoken")
	return true, nil
}

// SpeakBlocks speaks each block with its own process
func (n *CommandNarrator) SpeakBlocks(ctx context.Context, blocks []string) (bool, error) {
	return speakEach(ctx, n.Speak, blocks)
}

// Close stops any utterance in flight and rejects further speech
func (n *CommandNarrator) Close() error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.closed {
		return nil
	}
	n.closed = true
	if n.current != nil && n.current.Process != nil {
		if err := n.current.Process.Kill(); err != nil && !errors.Is(err, os.ErrProcessDone) {
			n.logger.Warn().Err(err).Msg("failed to stop narrator process")
		}
	}
	return nil
}

func expandArgs(argv []string, text, voice string) ([]string, bool) {
	out := make([]string, len(argv))
	viaStdin := true
	for i, a := range argv {
		if strings.Contains(a, TextPlaceholder) {
			viaStdin = false
		}
		a = strings.ReplaceAll(a, TextPlaceholder, text)
		out[i] = strings.ReplaceAll(a, VoicePlaceholder, voice)
	}
	return out, viaStdin
}
