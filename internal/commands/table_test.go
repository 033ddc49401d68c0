package commands

import (
	"testing"

	"github.com/Locolm/ai-mail-reader/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTable_Interpret(t *testing.T) {
	table := DefaultTable()

	tests := []struct {
		name  string
		input string
		ctx   Context
		want  Action
	}{
		{"short_next", "n", ContextSingle, ActionNext},
		{"short_quit", "q", ContextSingle, ActionQuit},
		{"case_insensitive", "SUIVANT", ContextMessage, ActionNext},
		{"surrounding_punctuation", "Suivant !", ContextMessage, ActionNext},
		{"sentence", "je veux le message suivant s'il te plaît", ContextMessage, ActionNext},
		{"read_in_conversation", "continuer", ContextConversation, ActionRead},
		{"read_not_legal_in_single", "continuer", ContextSingle, Unrecognized},
		{"previous", "précédent", ContextMessage, ActionPrevious},
		{"previous_not_legal_in_conversation", "p", ContextConversation, Unrecognized},
		{"phrase", "conversation suivante", ContextMessage, ActionNextConversation},
		{"repeat", "relire", ContextMessage, ActionRepeat},
		{"substring_does_not_match", "pasteur", ContextMessage, Unrecognized},
		{"embedded_synonym_does_not_match", "quitterie", ContextMessage, Unrecognized},
		{"quit_wins_over_next", "suivant quitter", ContextMessage, ActionQuit},
		{"empty", "   ", ContextMessage, Unrecognized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, table.Interpret(tt.input, tt.ctx))
		})
	}
}

func TestTable_Interpret_OrderInsensitive(t *testing.T) {
	table := DefaultTable()

	assert.Equal(t, table.Interpret("quitter maintenant", ContextSingle), table.Interpret("maintenant quitter", ContextSingle))
	assert.Equal(t, ActionQuit, table.Interpret("maintenant QUITTER", ContextSingle))
}

func TestTable_WantsHelp(t *testing.T) {
	table := DefaultTable()

	assert.True(t, table.WantsHelp("aide"))
	assert.True(t, table.WantsHelp("quelles sont les commandes ?"))
	assert.True(t, table.WantsHelp("Options"))
	assert.False(t, table.WantsHelp("suivant"))
	assert.False(t, table.WantsHelp("aidez"))
}

func TestTable_HelpAndActions(t *testing.T) {
	table := DefaultTable()

	assert.Equal(t, "Commandes disponibles : suivant, quitter.", table.Help(ContextSingle))
	assert.Equal(t, []Action{ActionQuit, ActionNext}, table.Actions(ContextSingle))
	assert.Equal(t, []Action{ActionQuit, ActionNext, ActionRead}, table.Actions(ContextConversation))
	assert.Equal(t, []Action{ActionQuit, ActionNextConversation, ActionPrevious, ActionNext, ActionRepeat}, table.Actions(ContextMessage))
	assert.Equal(t, []string{"n", "next", "suivant"}, table.Synonyms(ContextSingle, ActionNext))
}

func TestNewTable_Errors(t *testing.T) {
	_, err := NewTable(config.CommandsConfig{
		Contexts: map[string]map[string][]string{"lobby": {"next": {"n"}}},
	})
	assert.ErrorContains(t, err, "lobby")

	_, err = NewTable(config.CommandsConfig{
		Contexts: map[string]map[string][]string{"single": {"dance": {"d"}}},
	})
	assert.ErrorContains(t, err, "dance")

	_, err = NewTable(config.CommandsConfig{
		Contexts: map[string]map[string][]string{"single": {"next": {"n"}}},
		Help:     map[string]string{"nowhere": "?"},
	})
	assert.ErrorContains(t, err, "nowhere")
}

func TestNewTable_CustomSynonyms(t *testing.T) {
	table, err := NewTable(config.CommandsConfig{
		Contexts: map[string]map[string][]string{
			"message": {"next": {"Weiter", "nächste Nachricht"}, "quit": {"Ende"}},
		},
	})
	require.NoError(t, err)

	assert.Equal(t, ActionNext, table.Interpret("weiter", ContextMessage))
	assert.Equal(t, ActionNext, table.Interpret("bitte nächste nachricht", ContextMessage))
	assert.Equal(t, Unrecognized, table.Interpret("nachricht nächste", ContextMessage))
	assert.Equal(t, ActionQuit, table.Interpret("ende", ContextMessage))
	assert.Empty(t, table.Help(ContextMessage))
}

func TestContext_String(t *testing.T) {
	assert.Equal(t, "single", ContextSingle.String())
	assert.Equal(t, "message", ContextMessage.String())
	assert.Equal(t, "context(9)", Context(9).String())

	c, ok := ParseContext(" Conversation ")
	assert.True(t, ok)
	assert.Equal(t, ContextConversation, c)
}

func TestWords(t *testing.T) {
	assert.Equal(t, []string{"suivant", "s'il", "vous", "plaît"}, Words("  Suivant, s'il vous plaît. "))
	assert.Empty(t, Words("... !"))
}
