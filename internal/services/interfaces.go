package services

import (
	"context"

	"github.com/Locolm/ai-mail-reader/internal/db"
	"github.com/Locolm/ai-mail-reader/internal/model"
)

// ThreadSource pages through unread threads and loads them
type ThreadSource interface {
	// ListUnreadThreadsPage returns thread IDs and the next page token ("" when done)
	ListUnreadThreadsPage(ctx context.Context, pageToken string) ([]string, string, error)
	GetConversation(ctx context.Context, threadID string) (*model.Conversation, error)
}

// ThreadModifier applies the mark-as-read side effect
type ThreadModifier interface {
	MarkThreadAsRead(ctx context.Context, threadID string) error
}

// ReadLedger records mark-as-read attempts
type ReadLedger interface {
	Record(ctx context.Context, entry db.ReadLogEntry) error
}
