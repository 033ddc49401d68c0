package speech

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strings"
	"sync"

	"github.com/rs/zerolog"
)

// KeyboardInput reads one typed line per command. A single goroutine reads
// ahead at most one line so Capture can return when ctx is cancelled.
type KeyboardInput struct {
	mu     sync.Mutex
	reader *bufio.Reader
	out    io.Writer

	start sync.Once
	lines chan inputLine
}

type inputLine struct {
	text string
	err  error
}

// NewKeyboardInput reads from in and prints prompts to out
func NewKeyboardInput(in io.Reader, out io.Writer) *KeyboardInput {
	return &KeyboardInput{reader: bufio.NewReader(in), out: out, lines: make(chan inputLine)}
}

// Capture prints prompt and returns the next line, trimmed and lowercased.
// End of input yields ErrInputClosed.
func (k *KeyboardInput) Capture(ctx context.Context, prompt string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	k.mu.Lock()
	defer k.mu.Unlock()

	if prompt != "" && k.out != nil {
		fmt.Fprint(k.out, prompt)
	}
	k.start.Do(func() { go k.readLines() })

	select {
	case l, ok := <-k.lines:
		if !ok {
			return "", ErrInputClosed
		}
		if l.err != nil {
			return "", l.err
		}
		return strings.ToLower(strings.TrimSpace(l.text)), nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

func (k *KeyboardInput) readLines() {
	defer close(k.lines)
	for {
		line, err := k.reader.ReadString('\n')
		if err != nil {
			if errors.Is(err, io.EOF) {
				if strings.TrimSpace(line) != "" {
					k.lines <- inputLine{text: line}
				}
				return
			}
			k.lines <- inputLine{err: fmt.Errorf("failed to read input: %w", err)}
			return
		}
		k.lines <- inputLine{text: line}
	}
}

// CommandRecognizer runs an external speech-to-text program that records one
// utterance and prints its transcript on stdout.
type CommandRecognizer struct {
	argv    []string
	retries int
	out     io.Writer
	logger  zerolog.Logger
}

// NewCommandRecognizer validates argv; retries is the number of extra attempts
func NewCommandRecognizer(argv []string, retries int, out io.Writer, logger zerolog.Logger) (*CommandRecognizer, error) {
	if len(argv) == 0 || strings.TrimSpace(argv[0]) == "" {
		return nil, errors.New("recognizer command cannot be empty (set speech.recognizer_command)")
	}
	if retries < 0 {
		retries = 0
	}
	return &CommandRecognizer{
		argv:    append([]string(nil), argv...),
		retries: retries,
		out:     out,
		logger:  logger,
	}, nil
}

// Capture listens until a non-empty transcript arrives or attempts run out.
// Empty transcripts after every attempt yield "", while a command that fails
// on every attempt yields ErrRecognitionFailed.
func (r *CommandRecognizer) Capture(ctx context.Context, prompt string) (string, error) {
	var lastErr error
	failures := 0
	attempts := r.retries + 1

	for attempt := 1; attempt <= attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		if prompt != "" && r.out != nil {
			fmt.Fprintln(r.out, prompt)
		}

		transcript, err := r.run(ctx)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return "", ctxErr
			}
			failures++
			lastErr = err
			r.logger.Warn().Err(err).Int("attempt", attempt).Msg("speech recognizer failed")
			continue
		}
		if transcript == "" {
			r.logger.Debug().Int("attempt", attempt).Msg("empty transcript")
			if r.out != nil {
				fmt.Fprintln(r.out, "Je n'ai pas compris ce que vous avez dit.")
			}
			continue
		}
		if r.out != nil {
			fmt.Fprintf(r.out, "Vous avez dit : %s\n", transcript)
		}
		return strings.ToLower(transcript), nil
	}

	if failures == attempts {
		return "", fmt.Errorf("%w after %d attempts: %v", ErrRecognitionFailed, attempts, lastErr)
	}
	return "", nil
}

func (r *CommandRecognizer) run(ctx context.Context) (string, error) {
	cmd := exec.CommandContext(ctx, r.argv[0], r.argv[1:]...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("%s: %w: %s", r.argv[0], err, strings.TrimSpace(stderr.String()))
	}
	return strings.Join(strings.Fields(stdout.String()), " "), nil
}
