// Package navigator drives a reading session over unread conversations: it
// narrates summaries and messages and applies the user's commands.
package navigator

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/Locolm/ai-mail-reader/internal/commands"
	"github.com/Locolm/ai-mail-reader/internal/config"
	"github.com/Locolm/ai-mail-reader/internal/model"
	"github.com/rs/zerolog"
)

// Outcome tells how a session ended
type Outcome int

const (
	// OutcomeNothingUnread means the feed was empty from the start
	OutcomeNothingUnread Outcome = iota
	// OutcomeAllProcessed means every conversation was visited
	OutcomeAllProcessed
	// OutcomeQuit means the user stopped the session
	OutcomeQuit
)

func (o Outcome) String() string {
	switch o {
	case OutcomeNothingUnread:
		return "nothing-unread"
	case OutcomeAllProcessed:
		return "all-processed"
	case OutcomeQuit:
		return "quit"
	}
	return "outcome(" + strconv.Itoa(int(o)) + ")"
}

// ConversationSource yields conversations in order and io.EOF at the end
type ConversationSource interface {
	Next(ctx context.Context) (*model.Conversation, error)
}

// Narrator speaks text
type Narrator interface {
	Speak(ctx context.Context, text string) (bool, error)
	SpeakBlocks(ctx context.Context, blocks []string) (bool, error)
}

// CommandReader captures one command for a context
type CommandReader interface {
	Read(ctx context.Context, c commands.Context) (commands.Action, error)
}

// ReadMarker marks a conversation as read
type ReadMarker interface {
	MarkConversationRead(ctx context.Context, conv *model.Conversation) error
}

// Renderer turns messages and notices into narration text
type Renderer interface {
	NarrationBlocks(msg *model.Message) []string
	Clean(text string) string
}

// Deps are the collaborators of a Session
type Deps struct {
	Source   ConversationSource
	Narrator Narrator
	Commands CommandReader
	Marker   ReadMarker
	Renderer Renderer
	Messages config.MessagesConfig
	// Total is the number of unread conversations announced in summaries; 0 when unknown
	Total  int
	Logger zerolog.Logger
}

// Cursor is the current position. Message resets to 0 whenever
// Conversation advances.
type Cursor struct {
	Conversation int
	Message      int
}

type state int

const (
	atSummary state = iota
	atMessage
	finished
)

// Session is a single pass over the unread conversations
type Session struct {
	deps   Deps
	logger zerolog.Logger

	cursor Cursor
	conv   *model.Conversation
	state  state
}

// NewSession validates deps and returns a session positioned before the
// first conversation.
func NewSession(deps Deps) (*Session, error) {
	switch {
	case deps.Source == nil:
		return nil, errors.New("navigator: conversation source is required")
	case deps.Narrator == nil:
		return nil, errors.New("navigator: narrator is required")
	case deps.Commands == nil:
		return nil, errors.New("navigator: command reader is required")
	case deps.Renderer == nil:
		return nil, errors.New("navigator: renderer is required")
	}
	return &Session{deps: deps, logger: deps.Logger}, nil
}

// Cursor returns the current position
func (s *Session) Cursor() Cursor { return s.cursor }

// Run narrates conversations until the user quits or the feed is drained.
// Only collaborator failures are returned as errors.
func (s *Session) Run(ctx context.Context) (Outcome, error) {
	s.logger.Info().Int("total", s.deps.Total).Msg("reading session started")

	conv, err := s.fetch(ctx)
	if err != nil {
		return OutcomeNothingUnread, err
	}
	if conv == nil {
		s.logger.Info().Msg("no unread conversation")
		return OutcomeNothingUnread, s.say(ctx, s.deps.Messages.NothingUnread)
	}
	s.conv = conv
	s.state = atSummary

	for {
		if err := ctx.Err(); err != nil {
			return OutcomeQuit, err
		}

		var quit bool
		switch s.state {
		case atSummary:
			quit, err = s.stepSummary(ctx)
		case atMessage:
			quit, err = s.stepMessage(ctx)
		case finished:
			s.logger.Info().Int("conversations", s.cursor.Conversation).Msg("all conversations processed")
			return OutcomeAllProcessed, s.say(ctx, s.deps.Messages.AllProcessed)
		}
		if err != nil {
			return OutcomeQuit, err
		}
		if quit {
			s.logger.Info().Int("conversation", s.cursor.Conversation).Int("message", s.cursor.Message).Msg("session stopped by user")
			return OutcomeQuit, nil
		}
	}
}

func (s *Session) stepSummary(ctx context.Context) (bool, error) {
	if err := s.say(ctx, s.summaryText()); err != nil {
		return false, err
	}

	if s.conv.MessageCount() == 0 {
		action, err := s.deps.Commands.Read(ctx, commands.ContextSingle)
		if err != nil {
			return false, err
		}
		if action == commands.ActionQuit {
			return true, nil
		}
		return false, s.nextConversation(ctx)
	}

	action, err := s.deps.Commands.Read(ctx, commands.ContextConversation)
	if err != nil {
		return false, err
	}
	switch action {
	case commands.ActionQuit:
		return true, nil
	case commands.ActionRead:
		if err := s.markRead(ctx); err != nil {
			return false, err
		}
		s.cursor.Message = 0
		s.state = atMessage
		return false, nil
	}
	return false, s.nextConversation(ctx)
}

func (s *Session) stepMessage(ctx context.Context) (bool, error) {
	if err := s.narrateMessage(ctx); err != nil {
		return false, err
	}

	action, err := s.deps.Commands.Read(ctx, commands.ContextMessage)
	if err != nil {
		return false, err
	}
	switch action {
	case commands.ActionQuit:
		return true, nil
	case commands.ActionPrevious:
		if s.cursor.Message > 0 {
			s.cursor.Message--
		}
		return false, nil
	case commands.ActionRepeat:
		return false, nil
	case commands.ActionNextConversation:
		return false, s.nextConversation(ctx)
	case commands.ActionNext:
	default:
		s.logger.Info().Str("action", string(action)).Msg("unrecognized command in message, moving on")
		if err := s.say(ctx, s.deps.Messages.Unrecognized); err != nil {
			return false, err
		}
	}

	if s.cursor.Message+1 < s.conv.MessageCount() {
		s.cursor.Message++
		return false, nil
	}
	return false, s.nextConversation(ctx)
}

func (s *Session) narrateMessage(ctx context.Context) error {
	msg := s.conv.Messages[s.cursor.Message]
	header := config.Expand(s.deps.Messages.MessageHeader, map[string]string{
		"index":  strconv.Itoa(s.cursor.Message + 1),
		"count":  strconv.Itoa(s.conv.MessageCount()),
		"sender": msg.SenderName(),
	})
	if err := s.say(ctx, header); err != nil {
		return err
	}

	blocks := s.deps.Renderer.NarrationBlocks(msg)
	if len(blocks) == 0 {
		s.logger.Debug().Str("message_id", msg.ID).Msg("no narratable content")
		return s.say(ctx, s.deps.Messages.ContentNotFound)
	}
	if _, err := s.deps.Narrator.SpeakBlocks(ctx, blocks); err != nil {
		return fmt.Errorf("failed to narrate message: %w", err)
	}
	return nil
}

// markRead is best effort: a failure is logged and navigation continues
func (s *Session) markRead(ctx context.Context) error {
	if s.deps.Marker == nil {
		return s.say(ctx, s.deps.Messages.MarkedRead)
	}
	if err := s.deps.Marker.MarkConversationRead(ctx, s.conv); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		s.logger.Warn().Err(err).Str("thread_id", s.conv.ID).Msg("could not mark conversation as read")
		return nil
	}
	return s.say(ctx, s.deps.Messages.MarkedRead)
}

func (s *Session) nextConversation(ctx context.Context) error {
	conv, err := s.fetch(ctx)
	if err != nil {
		return err
	}
	s.cursor.Conversation++
	s.cursor.Message = 0
	if conv == nil {
		s.state = finished
		return nil
	}
	s.conv = conv
	s.state = atSummary
	return nil
}

// fetch returns nil at the end of the feed
func (s *Session) fetch(ctx context.Context) (*model.Conversation, error) {
	conv, err := s.deps.Source.Next(ctx)
	if errors.Is(err, io.EOF) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch next conversation: %w", err)
	}
	return conv, nil
}

func (s *Session) summaryText() string {
	msgs := s.deps.Messages
	values := map[string]string{
		"index":   strconv.Itoa(s.cursor.Conversation + 1),
		"total":   strconv.Itoa(s.deps.Total),
		"sender":  s.conv.Sender(),
		"subject": s.conv.Subject(),
		"count":   strconv.Itoa(s.conv.MessageCount()),
	}

	position := msgs.Position
	if s.deps.Total > s.cursor.Conversation {
		position = msgs.PositionOfTotal
	}
	parts := []string{config.Expand(position, values)}
	if values["sender"] != "" {
		parts = append(parts, config.Expand(msgs.Sender, values))
	}
	if values["subject"] != "" {
		parts = append(parts, config.Expand(msgs.Subject, values))
	}
	if received := s.conv.ReceivedLabel(); received != "" {
		parts = append(parts, received)
	}
	parts = append(parts, config.Expand(msgs.MessageCount, values))
	return strings.Join(parts, ", ")
}

func (s *Session) say(ctx context.Context, text string) error {
	text = s.deps.Renderer.Clean(text)
	if text == "" {
		return nil
	}
	if _, err := s.deps.Narrator.Speak(ctx, text); err != nil {
		return fmt.Errorf("failed to narrate: %w", err)
	}
	return nil
}
