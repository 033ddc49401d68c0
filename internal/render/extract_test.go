package render

import (
	"encoding/base64"
	"testing"

	"github.com/Locolm/ai-mail-reader/internal/model"
	"github.com/rs/zerolog"
)

func enc(s string) string { return base64.URLEncoding.EncodeToString([]byte(s)) }

func leaf(mime, body string) *model.MessagePart {
	return &model.MessagePart{MimeType: mime, Data: enc(body)}
}

func multipart(children ...*model.MessagePart) *model.MessagePart {
	return &model.MessagePart{MimeType: "multipart/mixed", Parts: children}
}

func TestExtract_PrefersHTMLOverEarlierPlain(t *testing.T) {
	root := multipart(
		leaf(model.MimeTypePlain, "plain body"),
		leaf(model.MimeTypeHTML, "<p>html body</p>"),
	)
	got := NewExtractor(zerolog.Nop()).ExtractContent(root)
	if got.Body != "<p>html body</p>" || !got.IsHTML() {
		t.Fatalf("expected html body, got %+v", got)
	}
}

func TestExtract_DeepHTMLWinsOverShallowPlain(t *testing.T) {
	root := multipart(
		leaf(model.MimeTypePlain, "shallow plain"),
		multipart(multipart(leaf(model.MimeTypeHTML, "<div>deep</div>"))),
	)
	if got := NewExtractor(zerolog.Nop()).Extract(root); got != "<div>deep</div>" {
		t.Fatalf("expected deep html, got %q", got)
	}
}

func TestExtract_FirstPlainInPreOrder(t *testing.T) {
	root := multipart(
		multipart(leaf(model.MimeTypePlain, "first")),
		leaf(model.MimeTypePlain, "second"),
	)
	got := NewExtractor(zerolog.Nop()).ExtractContent(root)
	if got.Body != "first" || got.MimeType != model.MimeTypePlain {
		t.Fatalf("expected first plain part, got %+v", got)
	}
}

func TestExtract_RootLeaf(t *testing.T) {
	if got := NewExtractor(zerolog.Nop()).Extract(leaf(model.MimeTypePlain, "hello")); got != "hello" {
		t.Fatalf("expected hello, got %q", got)
	}
}

func TestExtract_NothingFound(t *testing.T) {
	cases := map[string]*model.MessagePart{
		"nil":         nil,
		"empty_leaf":  {MimeType: model.MimeTypeHTML},
		"attachments": multipart(&model.MessagePart{MimeType: "image/png", Data: enc("png")}),
	}
	for name, root := range cases {
		if got := NewExtractor(zerolog.Nop()).Extract(root); got != "" {
			t.Fatalf("%s: expected empty, got %q", name, got)
		}
	}
}

func TestExtract_MalformedBase64IsSkipped(t *testing.T) {
	root := multipart(
		&model.MessagePart{MimeType: model.MimeTypeHTML, Data: "%%%not-base64%%%"},
		leaf(model.MimeTypePlain, "fallback"),
	)
	if got := NewExtractor(zerolog.Nop()).Extract(root); got != "fallback" {
		t.Fatalf("expected fallback plain text, got %q", got)
	}
}

func TestExtract_UnpaddedBase64(t *testing.T) {
	raw := base64.RawURLEncoding.EncodeToString([]byte("sans padding"))
	part := &model.MessagePart{MimeType: model.MimeTypePlain, Data: raw}
	if got := NewExtractor(zerolog.Nop()).Extract(part); got != "sans padding" {
		t.Fatalf("expected decoded text, got %q", got)
	}
}

func TestExtract_EmptyHTMLIsReturnedAsIs(t *testing.T) {
	root := multipart(
		leaf(model.MimeTypeHTML, "   "),
		leaf(model.MimeTypePlain, "plain"),
	)
	got := NewExtractor(zerolog.Nop()).ExtractContent(root)
	if !got.IsHTML() || got.Body != "   " {
		t.Fatalf("expected whitespace html to win, got %+v", got)
	}
}

func TestExtract_DepthBound(t *testing.T) {
	deep := leaf(model.MimeTypePlain, "too deep")
	for i := 0; i < 5; i++ {
		deep = multipart(deep)
	}
	ex := NewExtractor(zerolog.Nop()).WithMaxDepth(3)
	if got := ex.Extract(deep); got != "" {
		t.Fatalf("expected nesting bound to hide the part, got %q", got)
	}
	if got := NewExtractor(zerolog.Nop()).Extract(deep); got != "too deep" {
		t.Fatalf("default bound should reach the part, got %q", got)
	}
}

func TestExtract_CycleDoesNotLoop(t *testing.T) {
	root := &model.MessagePart{MimeType: "multipart/alternative"}
	root.Parts = []*model.MessagePart{root, leaf(model.MimeTypePlain, "ok")}
	if got := NewExtractor(zerolog.Nop()).Extract(root); got != "ok" {
		t.Fatalf("expected ok, got %q", got)
	}
}
