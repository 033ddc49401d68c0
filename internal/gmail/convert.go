package gmail

import (
	"strings"

	"github.com/Locolm/ai-mail-reader/internal/model"
	"google.golang.org/api/gmail/v1"
)

// maxConvertDepth bounds payload nesting copied into the model
const maxConvertDepth = 64

// ConvertThread turns an API thread into a read-only conversation snapshot.
// Messages keep the order returned by the API (oldest first).
func ConvertThread(th *gmail.Thread) *model.Conversation {
	if th == nil {
		return nil
	}
	conv := &model.Conversation{ID: th.Id, Messages: make([]*model.Message, 0, len(th.Messages))}
	for _, msg := range th.Messages {
		if m := ConvertMessage(msg); m != nil {
			conv.Messages = append(conv.Messages, m)
		}
	}
	return conv
}

// ConvertMessage extracts headers, dates and the part tree of msg
func ConvertMessage(msg *gmail.Message) *model.Message {
	if msg == nil {
		return nil
	}
	return &model.Message{
		ID:           msg.Id,
		From:         extractHeader(msg, "From"),
		Subject:      extractHeader(msg, "Subject"),
		DateHeader:   extractHeader(msg, "Date"),
		InternalDate: msg.InternalDate,
		Payload:      convertPart(msg.Payload, 0),
	}
}

func convertPart(part *gmail.MessagePart, depth int) *model.MessagePart {
	if part == nil {
		return nil
	}
	out := &model.MessagePart{MimeType: part.MimeType}
	if part.Body != nil {
		out.Data = part.Body.Data
	}
	if depth >= maxConvertDepth {
		return out
	}
	for _, child := range part.Parts {
		if c := convertPart(child, depth+1); c != nil {
			out.Parts = append(out.Parts, c)
		}
	}
	return out
}

// extractHeader returns the first header named name (case-insensitive)
func extractHeader(msg *gmail.Message, name string) string {
	if msg.Payload == nil {
		return ""
	}
	for _, header := range msg.Payload.Headers {
		if header != nil && strings.EqualFold(header.Name, name) {
			return header.Value
		}
	}
	return ""
}
