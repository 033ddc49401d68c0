package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/Locolm/ai-mail-reader/internal/model"
	"github.com/rs/zerolog"
)

// fetchRetries is how many extra attempts a retryable thread fetch gets
const fetchRetries = 2

// ConversationFeed yields unread conversations in store order, paging lazily.
// With prefetch > 0 a background goroutine loads up to prefetch conversations
// ahead of the reader; order is preserved either way. Next returns io.EOF once
// every page has been drained.
type ConversationFeed struct {
	src      ThreadSource
	prefetch int
	logger   zerolog.Logger
	backoff  time.Duration

	// paging state, owned by whoever calls fetchNext
	pending   []string
	token     string
	exhausted bool
	seen      map[string]struct{}

	mu        sync.Mutex
	startOnce sync.Once
	closeOnce sync.Once
	ch        chan *model.Conversation
	err       error
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	closed    bool
}

// NewConversationFeed creates a feed over src. prefetch < 1 fetches on demand.
func NewConversationFeed(src ThreadSource, prefetch int, logger zerolog.Logger) *ConversationFeed {
	if prefetch < 0 {
		prefetch = 0
	}
	return &ConversationFeed{
		src:      src,
		prefetch: prefetch,
		logger:   logger,
		backoff:  250 * time.Millisecond,
		seen:     make(map[string]struct{}),
	}
}

// Next returns the next conversation, io.EOF at the end, or the listing error
// that stopped the feed.
func (f *ConversationFeed) Next(ctx context.Context) (*model.Conversation, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if f.prefetch == 0 {
		f.mu.Lock()
		defer f.mu.Unlock()
		if f.closed {
			return nil, io.EOF
		}
		return f.fetchNext(ctx)
	}

	f.startOnce.Do(func() { f.start(ctx) })
	select {
	case conv, ok := <-f.ch:
		if !ok {
			return nil, f.finalErr()
		}
		return conv, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Close stops background fetching and waits for it to finish
func (f *ConversationFeed) Close() error {
	f.closeOnce.Do(func() {
		f.mu.Lock()
		f.closed = true
		cancel := f.cancel
		f.mu.Unlock()
		if cancel != nil {
			cancel()
		}
		f.wg.Wait()
	})
	return nil
}

func (f *ConversationFeed) start(parent context.Context) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.ch = make(chan *model.Conversation, f.prefetch)
	if f.closed {
		close(f.ch)
		return
	}
	ctx, cancel := context.WithCancel(parent)
	f.cancel = cancel
	f.wg.Add(1)
	go f.produce(ctx)
}

func (f *ConversationFeed) produce(ctx context.Context) {
	defer f.wg.Done()
	defer close(f.ch)

	for {
		conv, err := f.fetchNext(ctx)
		if err != nil {
			if !errors.Is(err, io.EOF) && ctx.Err() == nil {
				f.setErr(err)
			}
			return
		}
		select {
		case f.ch <- conv:
		case <-ctx.Done():
			return
		}
	}
}

func (f *ConversationFeed) setErr(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.err = err
}

func (f *ConversationFeed) finalErr() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	return io.EOF
}

// fetchNext loads the next conversation, listing a new page when needed.
// Threads that cannot be loaded are skipped; a listing failure ends the feed.
func (f *ConversationFeed) fetchNext(ctx context.Context) (*model.Conversation, error) {
	for {
		if len(f.pending) > 0 {
			id := f.pending[0]
			f.pending = f.pending[1:]

			conv, err := f.load(ctx, id)
			if err != nil {
				if ctxErr := ctx.Err(); ctxErr != nil {
					return nil, ctxErr
				}
				f.logger.Warn().Err(err).Str("thread_id", id).Msg("skipping thread that could not be loaded")
				continue
			}
			if conv == nil {
				continue
			}
			return conv, nil
		}

		if f.exhausted {
			return nil, io.EOF
		}

		ids, next, err := f.src.ListUnreadThreadsPage(ctx, f.token)
		if err != nil {
			return nil, fmt.Errorf("failed to list unread threads: %w", ClassifyAPIError(err))
		}
		for _, id := range ids {
			if _, dup := f.seen[id]; dup {
				continue
			}
			f.seen[id] = struct{}{}
			f.pending = append(f.pending, id)
		}
		f.logger.Debug().Int("threads", len(ids)).Bool("more", next != "").Msg("listed unread page")

		// An empty page or a repeated token ends the listing
		if next == "" || next == f.token || len(ids) == 0 {
			f.exhausted = true
		}
		f.token = next
	}
}

func (f *ConversationFeed) load(ctx context.Context, id string) (*model.Conversation, error) {
	var err error
	for attempt := 0; attempt <= fetchRetries; attempt++ {
		var conv *model.Conversation
		conv, err = f.src.GetConversation(ctx, id)
		if err == nil {
			return conv, nil
		}
		err = ClassifyAPIError(err)
		if !IsRetryableError(err) || attempt == fetchRetries {
			break
		}
		select {
		case <-time.After(f.backoff * time.Duration(attempt+1)):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return nil, err
}
