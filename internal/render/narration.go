package render

import (
	"regexp"

	"github.com/Locolm/ai-mail-reader/internal/model"
	"github.com/rs/zerolog"
)

var blankLines = regexp.MustCompile(`\n\s*\n`)

// Pipeline turns a message into narration blocks: extract the best body,
// segment HTML (or split plain text into paragraphs) and sanitize each block.
type Pipeline struct {
	extractor *Extractor
	segmenter *Segmenter
	cleaner   *Sanitizer
	logger    zerolog.Logger
}

// NewPipeline wires the extractor, segmenter and sanitizer together
func NewPipeline(extractor *Extractor, segmenter *Segmenter, cleaner *Sanitizer, logger zerolog.Logger) *Pipeline {
	return &Pipeline{extractor: extractor, segmenter: segmenter, cleaner: cleaner, logger: logger}
}

// NewDefaultPipeline builds a pipeline from sanitizer options and an image prefix
func NewDefaultPipeline(opts SanitizerOptions, imagePrefix string, logger zerolog.Logger) *Pipeline {
	cleaner := NewSanitizer(opts, logger)
	return NewPipeline(NewExtractor(logger), NewSegmenter(cleaner, imagePrefix, logger), cleaner, logger)
}

// Clean exposes the pipeline's sanitizer for plain narration strings
func (p *Pipeline) Clean(text string) string {
	return p.cleaner.Clean(text)
}

// NarrationBlocks returns the cleaned blocks of msg; an empty slice means
// the message has nothing worth narrating.
func (p *Pipeline) NarrationBlocks(msg *model.Message) []string {
	if msg == nil {
		return []string{}
	}
	content := p.extractor.ExtractContent(msg.Payload)
	if content.IsHTML() {
		return p.segmenter.Segment(content.Body)
	}
	return p.paragraphs(content.Body)
}

func (p *Pipeline) paragraphs(text string) []string {
	blocks := []string{}
	seen := make(map[string]struct{})
	for _, para := range blankLines.Split(text, -1) {
		cleaned := p.cleaner.Clean(para)
		if cleaned == "" {
			continue
		}
		if _, dup := seen[cleaned]; dup {
			p.logger.Debug().Str("block", cleaned).Msg("dropping duplicate paragraph")
			continue
		}
		seen[cleaned] = struct{}{}
		blocks = append(blocks, cleaned)
	}
	return blocks
}
