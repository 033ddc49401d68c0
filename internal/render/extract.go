package render

import (
	"encoding/base64"
	"strings"

	"github.com/Locolm/ai-mail-reader/internal/model"
	"github.com/rs/zerolog"
)

// DefaultMaxPartDepth bounds how far Extract descends into nested multiparts
const DefaultMaxPartDepth = 32

// Content is the body chosen for narration along with its MIME type
type Content struct {
	MimeType string
	Body     string
}

// IsHTML reports whether the content came from a text/html part
func (c Content) IsHTML() bool {
	return strings.EqualFold(c.MimeType, model.MimeTypeHTML)
}

// Extractor walks a message part tree and picks the best textual body
type Extractor struct {
	logger   zerolog.Logger
	maxDepth int
}

// NewExtractor creates an extractor with the default depth bound
func NewExtractor(logger zerolog.Logger) *Extractor {
	return &Extractor{logger: logger, maxDepth: DefaultMaxPartDepth}
}

// WithMaxDepth overrides the nesting bound (values < 1 are ignored)
func (e *Extractor) WithMaxDepth(depth int) *Extractor {
	if depth > 0 {
		e.maxDepth = depth
	}
	return e
}

// Extract returns the decoded body of the best part, or "" when none exists
func (e *Extractor) Extract(root *model.MessagePart) string {
	return e.ExtractContent(root).Body
}

type partFrame struct {
	part  *model.MessagePart
	depth int
}

// ExtractContent walks the tree in pre-order. The first text/html part with
// data wins; otherwise the first text/plain part with data is used. Parts that
// fail to decode count as empty and the walk continues.
func (e *Extractor) ExtractContent(root *model.MessagePart) Content {
	if root == nil {
		return Content{}
	}

	var plain *Content
	seen := make(map[*model.MessagePart]struct{})
	stack := []partFrame{{part: root}}
	for len(stack) > 0 {
		frame := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		part := frame.part
		if part == nil {
			continue
		}
		if _, dup := seen[part]; dup {
			e.logger.Warn().Str("mime_type", part.MimeType).Msg("message part visited twice, skipping")
			continue
		}
		seen[part] = struct{}{}

		mimeType := strings.ToLower(strings.TrimSpace(part.MimeType))
		if part.HasData() && (mimeType == model.MimeTypeHTML || mimeType == model.MimeTypePlain) {
			body, ok := e.decode(part)
			if ok {
				if mimeType == model.MimeTypeHTML {
					return Content{MimeType: model.MimeTypeHTML, Body: body}
				}
				if plain == nil {
					plain = &Content{MimeType: model.MimeTypePlain, Body: body}
				}
			}
		}

		if len(part.Parts) == 0 {
			continue
		}
		if frame.depth+1 > e.maxDepth {
			e.logger.Warn().Int("depth", frame.depth+1).Msg("message part nesting too deep, ignoring children")
			continue
		}
		// Push in reverse so children pop in document order
		for i := len(part.Parts) - 1; i >= 0; i-- {
			stack = append(stack, partFrame{part: part.Parts[i], depth: frame.depth + 1})
		}
	}

	if plain != nil {
		return *plain
	}
	return Content{}
}

func (e *Extractor) decode(part *model.MessagePart) (string, bool) {
	data, err := DecodeBody(part.Data)
	if err != nil {
		e.logger.Debug().Err(err).Str("mime_type", part.MimeType).Msg("could not decode message part")
		return "", false
	}
	return strings.ToValidUTF8(string(data), ""), true
}

// DecodeBody decodes URL-safe base64, tolerating missing padding
func DecodeBody(data string) ([]byte, error) {
	data = strings.TrimSpace(data)
	if out, err := base64.URLEncoding.DecodeString(data); err == nil {
		return out, nil
	}
	return base64.RawURLEncoding.DecodeString(strings.TrimRight(data, "="))
}
