package gmail

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/Locolm/ai-mail-reader/internal/model"
	"google.golang.org/api/gmail/v1"
)

const (
	user        = "me"
	labelUnread = "UNREAD"
)

// DefaultUnreadQuery selects unread inbox threads outside promotions and social
const DefaultUnreadQuery = "is:unread label:INBOX -category:promotions -category:social"

// Client wraps the gmail.Service with the thread operations the reader needs
type Client struct {
	Service *gmail.Service

	query    string
	pageSize int64

	mu           sync.Mutex
	profileEmail string
}

// NewClient creates a Gmail client listing threads that match query
func NewClient(service *gmail.Service, query string, pageSize int64) *Client {
	if strings.TrimSpace(query) == "" {
		query = DefaultUnreadQuery
	}
	return &Client{Service: service, query: query, pageSize: pageSize}
}

// Query returns the thread search query in use
func (c *Client) Query() string { return c.query }

func (c *Client) ready() error {
	if c == nil || c.Service == nil {
		return fmt.Errorf("gmail client not initialized")
	}
	return nil
}

// ListUnreadThreadsPage returns the thread IDs of one result page and the
// token of the next page ("" on the last page).
func (c *Client) ListUnreadThreadsPage(ctx context.Context, pageToken string) ([]string, string, error) {
	if err := c.ready(); err != nil {
		return nil, "", err
	}
	call := c.Service.Users.Threads.List(user).Q(c.query).Fields("threads/id", "nextPageToken")
	if c.pageSize > 0 {
		call = call.MaxResults(c.pageSize)
	}
	if pageToken != "" {
		call = call.PageToken(pageToken)
	}

	res, err := call.Context(ctx).Do()
	if err != nil {
		return nil, "", fmt.Errorf("failed to list threads: %w", err)
	}
	ids := make([]string, 0, len(res.Threads))
	for _, th := range res.Threads {
		if th != nil && th.Id != "" {
			ids = append(ids, th.Id)
		}
	}
	return ids, res.NextPageToken, nil
}

// CountUnreadThreads walks every result page and counts matching threads.
// The estimate returned by the API is not used since it is often wrong.
func (c *Client) CountUnreadThreads(ctx context.Context) (int, error) {
	total := 0
	token := ""
	for {
		ids, next, err := c.ListUnreadThreadsPage(ctx, token)
		if err != nil {
			return total, err
		}
		total += len(ids)
		if next == "" || next == token {
			return total, nil
		}
		token = next
	}
}

// GetThread fetches a full thread with message payloads
func (c *Client) GetThread(ctx context.Context, threadID string) (*gmail.Thread, error) {
	if err := c.ready(); err != nil {
		return nil, err
	}
	th, err := c.Service.Users.Threads.Get(user, threadID).Format("full").Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("failed to get thread %s: %w", threadID, err)
	}
	return th, nil
}

// GetConversation fetches a thread and converts it into a conversation snapshot
func (c *Client) GetConversation(ctx context.Context, threadID string) (*model.Conversation, error) {
	th, err := c.GetThread(ctx, threadID)
	if err != nil {
		return nil, err
	}
	return ConvertThread(th), nil
}

// MarkThreadAsRead removes the UNREAD label from every message of the thread
func (c *Client) MarkThreadAsRead(ctx context.Context, threadID string) error {
	if err := c.ready(); err != nil {
		return err
	}
	req := &gmail.ModifyThreadRequest{RemoveLabelIds: []string{labelUnread}}
	if _, err := c.Service.Users.Threads.Modify(user, threadID, req).Context(ctx).Do(); err != nil {
		return fmt.Errorf("failed to mark thread %s as read: %w", threadID, err)
	}
	return nil
}

// ActiveAccountEmail returns the address of the authenticated account (cached)
func (c *Client) ActiveAccountEmail(ctx context.Context) (string, error) {
	if err := c.ready(); err != nil {
		return "", err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.profileEmail != "" {
		return c.profileEmail, nil
	}
	profile, err := c.Service.Users.GetProfile(user).Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("failed to get profile: %w", err)
	}
	c.profileEmail = profile.EmailAddress
	return c.profileEmail, nil
}
