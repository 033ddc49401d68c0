package render

import (
	"testing"

	"github.com/Locolm/ai-mail-reader/internal/model"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

func TestPipeline_NarrationBlocks(t *testing.T) {
	p := NewDefaultPipeline(DefaultSanitizerOptions(), "", zerolog.Nop())

	t.Run("html_body_is_segmented", func(t *testing.T) {
		msg := &model.Message{Payload: multipart(
			leaf(model.MimeTypePlain, "ignored plain"),
			leaf(model.MimeTypeHTML, `<h2>Réunion</h2><p>Demain à 10h</p>`),
		)}
		assert.Equal(t, []string{"Réunion", "Demain à 10h"}, p.NarrationBlocks(msg))
	})

	t.Run("plain_body_is_split_into_paragraphs", func(t *testing.T) {
		msg := &model.Message{Payload: leaf(model.MimeTypePlain, "Bonjour Paul,\n\nVoici le compte rendu.\n  \nVoici le compte rendu.\nCordialement")}
		assert.Equal(t, []string{
			"Bonjour Paul",
			"Voici le compte rendu",
			"Voici le compte rendu. Cordialement",
		}, p.NarrationBlocks(msg))
	})

	t.Run("no_content", func(t *testing.T) {
		assert.Empty(t, p.NarrationBlocks(&model.Message{}))
		assert.Empty(t, p.NarrationBlocks(nil))
	})
}

func TestPipeline_Clean(t *testing.T) {
	p := NewDefaultPipeline(DefaultSanitizerOptions(), "", zerolog.Nop())
	assert.Equal(t, "Sujet: Bonjour. Contient 2 messages", p.Clean("Sujet: Bonjour, Contient 2 messages."))
}
