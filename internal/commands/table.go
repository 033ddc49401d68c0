package commands

import (
	"fmt"
	"sort"
	"strings"
	"unicode"

	"github.com/Locolm/ai-mail-reader/internal/config"
)

// Context selects which actions are legal and which help text is offered
type Context int

const (
	// ContextSingle is offered for a conversation without messages
	ContextSingle Context = iota
	// ContextConversation is offered after a conversation summary
	ContextConversation
	// ContextMessage is offered after a message has been narrated
	ContextMessage
)

var contextNames = map[Context]string{
	ContextSingle:       "single",
	ContextConversation: "conversation",
	ContextMessage:      "message",
}

func (c Context) String() string {
	if name, ok := contextNames[c]; ok {
		return name
	}
	return fmt.Sprintf("context(%d)", int(c))
}

// ParseContext maps a configuration key onto a Context
func ParseContext(name string) (Context, bool) {
	name = strings.ToLower(strings.TrimSpace(name))
	for c, n := range contextNames {
		if n == name {
			return c, true
		}
	}
	return 0, false
}

// Action is a canonical user intent
type Action string

const (
	Unrecognized           Action = ""
	ActionNext             Action = "next"
	ActionPrevious         Action = "previous"
	ActionNextConversation Action = "next-conversation"
	ActionRead             Action = "read"
	ActionRepeat           Action = "repeat"
	ActionQuit             Action = "quit"
)

// When one utterance matches several actions the earliest one here wins
var actionPriority = []Action{
	ActionQuit,
	ActionNextConversation,
	ActionPrevious,
	ActionNext,
	ActionRead,
	ActionRepeat,
}

func validAction(a Action) bool {
	for _, known := range actionPriority {
		if a == known {
			return true
		}
	}
	return false
}

// Table maps each context to its actions and their synonym phrases
type Table struct {
	phrases   map[Context]map[Action][][]string
	help      map[Context]string
	helpWords map[string]struct{}
}

// NewTable validates and tokenizes a configured command table
func NewTable(cfg config.CommandsConfig) (*Table, error) {
	t := &Table{
		phrases:   make(map[Context]map[Action][][]string, len(cfg.Contexts)),
		help:      make(map[Context]string, len(cfg.Help)),
		helpWords: make(map[string]struct{}, len(cfg.HelpWords)),
	}

	for name, actions := range cfg.Contexts {
		ctx, ok := ParseContext(name)
		if !ok {
			return nil, fmt.Errorf("unknown command context %q", name)
		}
		byAction := make(map[Action][][]string, len(actions))
		for actionName, synonyms := range actions {
			action := Action(strings.ToLower(strings.TrimSpace(actionName)))
			if !validAction(action) {
				return nil, fmt.Errorf("unknown action %q in context %q", actionName, name)
			}
			for _, synonym := range synonyms {
				if words := Words(synonym); len(words) > 0 {
					byAction[action] = append(byAction[action], words)
				}
			}
		}
		t.phrases[ctx] = byAction
	}

	for name, text := range cfg.Help {
		ctx, ok := ParseContext(name)
		if !ok {
			return nil, fmt.Errorf("unknown help context %q", name)
		}
		t.help[ctx] = text
	}

	for _, w := range cfg.HelpWords {
		for _, word := range Words(w) {
			t.helpWords[word] = struct{}{}
		}
	}
	return t, nil
}

// DefaultTable returns the built-in French/English table
func DefaultTable() *Table {
	t, err := NewTable(config.DefaultCommandsConfig())
	if err != nil {
		panic(err)
	}
	return t
}

// Help returns the help text of a context
func (t *Table) Help(ctx Context) string {
	return t.help[ctx]
}

// Actions lists the actions recognized in a context, in priority order
func (t *Table) Actions(ctx Context) []Action {
	out := make([]Action, 0, len(t.phrases[ctx]))
	for _, a := range actionPriority {
		if _, ok := t.phrases[ctx][a]; ok {
			out = append(out, a)
		}
	}
	return out
}

// WantsHelp reports whether the input contains a help meta-word
func (t *Table) WantsHelp(raw string) bool {
	for _, w := range Words(raw) {
		if _, ok := t.helpWords[w]; ok {
			return true
		}
	}
	return false
}

// Interpret maps raw input onto an action legal in ctx. Matching is on whole
// words, case-insensitive and independent of word order; multi-word synonyms
// must appear as consecutive words.
func (t *Table) Interpret(raw string, ctx Context) Action {
	words := Words(raw)
	if len(words) == 0 {
		return Unrecognized
	}
	set := make(map[string]struct{}, len(words))
	for _, w := range words {
		set[w] = struct{}{}
	}

	byAction := t.phrases[ctx]
	for _, action := range actionPriority {
		for _, phrase := range byAction[action] {
			if matchPhrase(words, set, phrase) {
				return action
			}
		}
	}
	return Unrecognized
}

func matchPhrase(words []string, set map[string]struct{}, phrase []string) bool {
	if len(phrase) == 1 {
		_, ok := set[phrase[0]]
		return ok
	}
	for i := 0; i+len(phrase) <= len(words); i++ {
		match := true
		for j, p := range phrase {
			if words[i+j] != p {
				match = false
				break
			}
		}
		if match {
			return true
		}
	}
	return false
}

// Words lowercases raw input, splits it on whitespace and trims surrounding
// punctuation from each word.
func Words(raw string) []string {
	fields := strings.Fields(strings.ToLower(raw))
	out := fields[:0]
	for _, f := range fields {
		f = strings.TrimFunc(f, func(r rune) bool {
			return unicode.IsPunct(r) || unicode.IsSymbol(r)
		})
		if f != "" {
			out = append(out, f)
		}
	}
	return out
}

// Synonyms returns a sorted copy of the phrases of an action, mostly for display
func (t *Table) Synonyms(ctx Context, action Action) []string {
	phrases := t.phrases[ctx][action]
	out := make([]string, 0, len(phrases))
	for _, p := range phrases {
		out = append(out, strings.Join(p, " "))
	}
	sort.Strings(out)
	return out
}
