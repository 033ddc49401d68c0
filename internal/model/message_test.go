package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestMessage_ReceivedAt_InternalDateWins(t *testing.T) {
	ts := time.Date(2025, time.March, 4, 9, 7, 0, 0, time.Local)
	msg := &Message{
		DateHeader:   "Mon, 30 Sep 2024 12:32:00 +0000",
		InternalDate: ts.UnixMilli(),
	}

	got, ok := msg.ReceivedAt()
	assert.True(t, ok)
	assert.True(t, ts.Equal(got))
	assert.Equal(t, "Reçu le 04 mars 2025 à 09h07", msg.ReceivedLabel())
}

func TestMessage_ReceivedAt_HeaderFallback(t *testing.T) {
	msg := &Message{DateHeader: "Sun, 15 Sep 2024 12:32:00 +0000"}

	got, ok := msg.ReceivedAt()
	assert.True(t, ok)
	assert.Equal(t, 2024, got.Year())
	assert.Equal(t, time.September, got.Month())
}

func TestMessage_ReceivedLabel_Unknown(t *testing.T) {
	assert.Empty(t, (&Message{}).ReceivedLabel())
	assert.Empty(t, (&Message{DateHeader: "not a date"}).ReceivedLabel())

	var nilMsg *Message
	assert.Empty(t, nilMsg.ReceivedLabel())
}

func TestDisplayName(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"name_and_address", "Alice Martin <alice@example.com>", "Alice Martin"},
		{"quoted_name", `"Support, Team" <support@example.com>`, "Support, Team"},
		{"bare_address", "bob@example.com", "bob@example.com"},
		{"empty", "  ", ""},
		{"unparsable_with_brackets", "Équipe Support <broken", "Équipe Support <broken"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DisplayName(tt.in))
		})
	}
}

func TestConversation_DerivedFields(t *testing.T) {
	conv := &Conversation{
		ID: "t1",
		Messages: []*Message{
			{From: "Alice <alice@example.com>", Subject: "Bonjour"},
			{From: "Bob <bob@example.com>", Subject: "Re: Bonjour"},
		},
	}

	assert.Equal(t, 2, conv.MessageCount())
	assert.Equal(t, "Alice", conv.Sender())
	assert.Equal(t, "Bonjour", conv.Subject())
}

func TestConversation_Empty(t *testing.T) {
	conv := &Conversation{ID: "t2"}

	assert.Equal(t, 0, conv.MessageCount())
	assert.Nil(t, conv.First())
	assert.Empty(t, conv.Sender())
	assert.Empty(t, conv.Subject())
	assert.Empty(t, conv.ReceivedLabel())
}
