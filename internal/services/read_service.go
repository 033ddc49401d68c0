package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Locolm/ai-mail-reader/internal/db"
	"github.com/Locolm/ai-mail-reader/internal/model"
	"github.com/rs/zerolog"
)

// ReadService marks conversations as read and keeps a local record of it
type ReadService struct {
	modifier ThreadModifier
	ledger   ReadLedger
	logger   zerolog.Logger
	now      func() time.Time
}

// NewReadService creates a read service. ledger may be nil.
func NewReadService(modifier ThreadModifier, ledger ReadLedger, logger zerolog.Logger) *ReadService {
	return &ReadService{
		modifier: modifier,
		ledger:   ledger,
		logger:   logger,
		now:      time.Now,
	}
}

// MarkConversationRead removes the unread flag from every message of conv
func (s *ReadService) MarkConversationRead(ctx context.Context, conv *model.Conversation) error {
	if conv == nil || conv.ID == "" {
		return fmt.Errorf("%w: conversation has no id", ErrInvalidInput)
	}
	if s.modifier == nil {
		return errors.New("read service has no thread modifier")
	}

	err := s.modifier.MarkThreadAsRead(ctx, conv.ID)
	if err != nil {
		err = fmt.Errorf("failed to mark conversation %s as read: %w", conv.ID, ClassifyAPIError(err))
		s.logger.Error().Err(err).Str("thread_id", conv.ID).Msg("mark as read failed")
	} else {
		s.logger.Info().Str("thread_id", conv.ID).Msg("conversation marked as read")
	}

	s.record(ctx, conv, err)
	return err
}

func (s *ReadService) record(ctx context.Context, conv *model.Conversation, markErr error) {
	if s.ledger == nil {
		return
	}
	entry := db.ReadLogEntry{
		ThreadID: conv.ID,
		Subject:  conv.Subject(),
		Sender:   conv.Sender(),
		Success:  markErr == nil,
		MarkedAt: s.now(),
	}
	if markErr != nil {
		entry.Error = markErr.Error()
	}
	// The ledger is informational; failing to write it never fails the mark
	if err := s.ledger.Record(ctx, entry); err != nil {
		s.logger.Warn().Err(err).Str("thread_id", conv.ID).Msg("failed to record read history")
	}
}
