package speech

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/mattn/go-runewidth"
	"github.com/rs/zerolog"
)

// ConsoleNarrator "speaks" by printing wrapped text
type ConsoleNarrator struct {
	mu     sync.Mutex
	out    io.Writer
	width  int
	echo   bool
	closed bool
	logger zerolog.Logger
}

// NewConsoleNarrator writes narration to out, wrapped at width display columns (0 = no wrap)
func NewConsoleNarrator(out io.Writer, width int, echo bool, logger zerolog.Logger) *ConsoleNarrator {
	return &ConsoleNarrator{out: out, width: width, echo: echo, logger: logger}
}

// Speak prints text and reports whether anything was printed
func (n *ConsoleNarrator) Speak(ctx context.Context, text string) (bool, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return false, nil
	}
	if err := ctx.Err(); err != nil {
		return false, err
	}

	n.mu.Lock()
	defer n.mu.Unlock()
	if n.closed {
		return false, ErrNarratorClosed
	}
	if n.echo {
		n.logger.Info().Str("text", text).Msg("[TTS] Reading")
	}
	if _, err := fmt.Fprintln(n.out, Wrap(text, n.width)); err != nil {
		return false, fmt.Errorf("failed to write narration: %w", err)
	}
	return true, nil
}

// SpeakBlocks prints each block as its own paragraph
func (n *ConsoleNarrator) SpeakBlocks(ctx context.Context, blocks []string) (bool, error) {
	return speakEach(ctx, n.Speak, blocks)
}

// Close rejects further narration
func (n *ConsoleNarrator) Close() error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.closed = true
	return nil
}

// Wrap breaks text into lines of at most width display columns. Words wider
// than the line are kept whole.
func Wrap(text string, width int) string {
	if width <= 0 {
		return text
	}
	var b strings.Builder
	lineWidth := 0
	for _, word := range strings.Fields(text) {
		w := runewidth.StringWidth(word)
		switch {
		case lineWidth == 0:
		case lineWidth+1+w > width:
			b.WriteByte('\n')
			lineWidth = 0
		default:
			b.WriteByte(' ')
			lineWidth++
		}
		b.WriteString(word)
		lineWidth += w
	}
	return b.String()
}
