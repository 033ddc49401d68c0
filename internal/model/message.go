package model

import (
	"fmt"
	"net/mail"
	"strings"
	"time"
)

// Common MIME types seen in message payloads
const (
	MimeTypeHTML  = "text/html"
	MimeTypePlain = "text/plain"
)

// MessagePart is one node of a message body tree. Leaves carry base64url
// encoded Data (or nothing); multipart containers carry Parts.
type MessagePart struct {
	MimeType string
	Data     string
	Parts    []*MessagePart
}

// HasData reports whether the part carries a body payload
func (p *MessagePart) HasData() bool {
	return p != nil && p.Data != ""
}

// Message represents a single email inside a conversation
type Message struct {
	ID      string
	From    string
	Subject string

	// DateHeader is the raw RFC 5322 Date header, InternalDate the store's
	// epoch timestamp in milliseconds. InternalDate wins when both are set.
	DateHeader   string
	InternalDate int64

	Payload *MessagePart
}

// ReceivedAt returns the best known receipt time and whether one was found
func (m *Message) ReceivedAt() (time.Time, bool) {
	if m == nil {
		return time.Time{}, false
	}
	if m.InternalDate > 0 {
		return time.UnixMilli(m.InternalDate).Local(), true
	}
	if strings.TrimSpace(m.DateHeader) != "" {
		if t, err := mail.ParseDate(m.DateHeader); err == nil {
			return t.Local(), true
		}
	}
	return time.Time{}, false
}

// ReceivedLabel returns the narration-ready receipt date, or "" when unknown
func (m *Message) ReceivedLabel() string {
	t, ok := m.ReceivedAt()
	if !ok {
		return ""
	}
	return FormatReceived(t)
}

// SenderName returns the display name of the sender, falling back to the address
func (m *Message) SenderName() string {
	if m == nil {
		return ""
	}
	return DisplayName(m.From)
}

// Conversation is an ordered, read-only snapshot of a thread
type Conversation struct {
	ID       string
	Messages []*Message
}

// MessageCount returns the number of messages in the conversation
func (c *Conversation) MessageCount() int {
	if c == nil {
		return 0
	}
	return len(c.Messages)
}

// First returns the first (oldest) message or nil for an empty conversation
func (c *Conversation) First() *Message {
	if c.MessageCount() == 0 {
		return nil
	}
	return c.Messages[0]
}

// Sender is the display sender of the first message
func (c *Conversation) Sender() string {
	return c.First().SenderName()
}

// Subject is the subject of the first message
func (c *Conversation) Subject() string {
	if first := c.First(); first != nil {
		return first.Subject
	}
	return ""
}

// ReceivedLabel is the receipt date of the first message
func (c *Conversation) ReceivedLabel() string {
	return c.First().ReceivedLabel()
}

// DisplayName extracts "Name" from `Name <email@domain.com>` style headers
func DisplayName(from string) string {
	from = strings.TrimSpace(from)
	if from == "" {
		return ""
	}
	if addr, err := mail.ParseAddress(from); err == nil {
		if addr.Name != "" {
			return addr.Name
		}
		return addr.Address
	}
	if i := strings.Index(from, "<"); i > 0 && strings.Contains(from[i:], ">") {
		return strings.Trim(strings.TrimSpace(from[:i]), `"`)
	}
	return from
}

var frenchMonths = [...]string{
	"janvier", "février", "mars", "avril", "mai", "juin",
	"juillet", "août", "septembre", "octobre", "novembre", "décembre",
}

// FormatReceived renders t as "Reçu le 02 janvier 2025 à 14h05"
func FormatReceived(t time.Time) string {
	return fmt.Sprintf("Reçu le %02d %s %d à %02dh%02d",
		t.Day(), frenchMonths[t.Month()-1], t.Year(), t.Hour(), t.Minute())
}
