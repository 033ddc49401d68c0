package render

import (
	"strings"

	"github.com/rs/zerolog"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// DefaultImagePrefix introduces the alt text of a narrated image
const DefaultImagePrefix = "description d'une image: "

// Block-level elements narrated as independent blocks
var blockElements = map[atom.Atom]bool{
	atom.P:   true,
	atom.Div: true,
	atom.H1:  true,
	atom.H2:  true,
	atom.H3:  true,
	atom.Li:  true,
	atom.Td:  true,
	atom.Img: true,
}

// Elements whose text never reaches the narrator
var silentElements = map[atom.Atom]bool{
	atom.Script:   true,
	atom.Style:    true,
	atom.Head:     true,
	atom.Title:    true,
	atom.Noscript: true,
	atom.Template: true,
}

// Inline elements do not introduce a word break
var inlineElements = map[atom.Atom]bool{
	atom.A:      true,
	atom.Abbr:   true,
	atom.B:      true,
	atom.Code:   true,
	atom.Em:     true,
	atom.Font:   true,
	atom.I:      true,
	atom.Mark:   true,
	atom.Small:  true,
	atom.Span:   true,
	atom.Strong: true,
	atom.Sub:    true,
	atom.Sup:    true,
	atom.U:      true,
}

// Segmenter splits an HTML body into cleaned narration blocks
type Segmenter struct {
	cleaner     *Sanitizer
	imagePrefix string
	logger      zerolog.Logger
}

// NewSegmenter creates a segmenter; an empty prefix uses DefaultImagePrefix
func NewSegmenter(cleaner *Sanitizer, imagePrefix string, logger zerolog.Logger) *Segmenter {
	if imagePrefix == "" {
		imagePrefix = DefaultImagePrefix
	}
	return &Segmenter{cleaner: cleaner, imagePrefix: imagePrefix, logger: logger}
}

// Segment returns one cleaned block per narratable element, in document order.
// Each element contributes only its own text: text living inside a nested
// block element belongs to that element's block. Documents without any block
// element yield their whole text as a single block. The result is never nil.
func (s *Segmenter) Segment(body string) []string {
	blocks := []string{}
	if strings.TrimSpace(body) == "" {
		return blocks
	}

	doc, err := html.Parse(strings.NewReader(body))
	if err != nil {
		s.logger.Warn().Err(err).Msg("html parse failed, narrating raw text")
		return s.appendBlock(blocks, map[string]struct{}{}, body)
	}

	selected := collectBlocks(doc)
	seen := make(map[string]struct{}, len(selected))
	if len(selected) == 0 {
		return s.appendBlock(blocks, seen, documentText(doc))
	}

	for _, n := range selected {
		if n.DataAtom == atom.Img {
			if alt, ok := describableImage(n); ok {
				blocks = s.appendBlock(blocks, seen, s.imagePrefix+alt)
			}
			continue
		}
		blocks = s.appendBlock(blocks, seen, ownText(n))
	}
	return blocks
}

func (s *Segmenter) appendBlock(blocks []string, seen map[string]struct{}, text string) []string {
	cleaned := s.cleaner.Clean(text)
	if cleaned == "" {
		return blocks
	}
	if _, dup := seen[cleaned]; dup {
		s.logger.Debug().Str("block", cleaned).Msg("dropping duplicate block")
		return blocks
	}
	seen[cleaned] = struct{}{}
	return append(blocks, cleaned)
}

// collectBlocks returns selected elements in pre-order using an explicit stack
func collectBlocks(root *html.Node) []*html.Node {
	var out []*html.Node
	stack := []*html.Node{root}
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if n.Type == html.ElementNode {
			if silentElements[n.DataAtom] {
				continue
			}
			if blockElements[n.DataAtom] {
				out = append(out, n)
			}
		}
		for c := n.LastChild; c != nil; c = c.PrevSibling {
			stack = append(stack, c)
		}
	}
	return out
}

// ownText gathers the text of n, stopping at nested block elements
func ownText(n *html.Node) string {
	var b strings.Builder
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		writeText(&b, c, true)
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

// documentText gathers every visible text node of the document
func documentText(doc *html.Node) string {
	var b strings.Builder
	writeText(&b, doc, false)
	return strings.Join(strings.Fields(b.String()), " ")
}

func writeText(b *strings.Builder, n *html.Node, stopAtBlocks bool) {
	stack := []*html.Node{n}
	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if cur == nil {
			// closing boundary of a non-inline element
			b.WriteByte(' ')
			continue
		}

		switch cur.Type {
		case html.TextNode:
			b.WriteString(cur.Data)
			continue
		case html.ElementNode:
			if silentElements[cur.DataAtom] {
				continue
			}
			if stopAtBlocks && blockElements[cur.DataAtom] {
				b.WriteByte(' ')
				continue
			}
			if !inlineElements[cur.DataAtom] {
				b.WriteByte(' ')
				stack = append(stack, nil)
			}
		case html.CommentNode, html.DoctypeNode:
			continue
		}
		for c := cur.LastChild; c != nil; c = c.PrevSibling {
			stack = append(stack, c)
		}
	}
}

// describableImage returns the alt text of an image worth narrating.
// Images without alt text and 1x1 tracking pixels are skipped.
func describableImage(n *html.Node) (string, bool) {
	var alt, width, height string
	for _, a := range n.Attr {
		switch strings.ToLower(a.Key) {
		case "alt":
			alt = strings.TrimSpace(a.Val)
		case "width":
			width = dimension(a.Val)
		case "height":
			height = dimension(a.Val)
		}
	}
	if alt == "" {
		return "", false
	}
	if width == "1" && height == "1" {
		return "", false
	}
	return alt, true
}

func dimension(v string) string {
	v = strings.ToLower(strings.TrimSpace(v))
	return strings.TrimSpace(strings.TrimSuffix(v, "px"))
}
