package render

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/rs/zerolog"
)

// SegmentSeparator joins cleaned segments into the final narration string
const SegmentSeparator = ". "

var segmentBoundary = regexp.MustCompile(`[.,;]\s*`)

// SanitizerOptions tunes the noise heuristics
type SanitizerOptions struct {
	// ConsonantRun drops tokens with at least this many consecutive consonants
	ConsonantRun int
	// SymbolRun drops tokens with at least this many consecutive non letter/digit runes
	SymbolRun int
	// MaxTokenLength drops tokens longer than this many runes
	MaxTokenLength int
}

// DefaultSanitizerOptions returns the lenient thresholds
func DefaultSanitizerOptions() SanitizerOptions {
	return SanitizerOptions{ConsonantRun: 10, SymbolRun: 5, MaxTokenLength: 40}
}

// StrictSanitizerOptions returns the stricter consonant threshold
func StrictSanitizerOptions() SanitizerOptions {
	opts := DefaultSanitizerOptions()
	opts.ConsonantRun = 5
	return opts
}

func (o SanitizerOptions) withDefaults() SanitizerOptions {
	def := DefaultSanitizerOptions()
	if o.ConsonantRun <= 0 {
		o.ConsonantRun = def.ConsonantRun
	}
	if o.SymbolRun <= 0 {
		o.SymbolRun = def.SymbolRun
	}
	if o.MaxTokenLength <= 0 {
		o.MaxTokenLength = def.MaxTokenLength
	}
	return o
}

// Sanitizer filters gibberish tokens and repeated segments out of narration text
type Sanitizer struct {
	opts       SanitizerOptions
	consonants *regexp.Regexp
	symbols    *regexp.Regexp
	logger     zerolog.Logger
}

// NewSanitizer builds a sanitizer; zero-valued options fall back to defaults
func NewSanitizer(opts SanitizerOptions, logger zerolog.Logger) *Sanitizer {
	opts = opts.withDefaults()
	return &Sanitizer{
		opts:       opts,
		consonants: regexp.MustCompile(fmt.Sprintf(`(?i)[bcdfghjklmnpqrstvwxyz]{%d,}`, opts.ConsonantRun)),
		symbols:    regexp.MustCompile(fmt.Sprintf(`[^\p{L}\p{N}_]{%d,}`, opts.SymbolRun)),
		logger:     logger,
	}
}

// Options returns the effective thresholds
func (s *Sanitizer) Options() SanitizerOptions { return s.opts }

// Clean splits text on sentence-like boundaries, drops noisy tokens, removes
// exact duplicate segments and joins what is left with ". ".
func (s *Sanitizer) Clean(text string) string {
	text = normalizeRunes(text)
	if strings.TrimSpace(text) == "" {
		return ""
	}

	seen := make(map[string]struct{})
	kept := make([]string, 0, 8)
	for _, raw := range segmentBoundary.Split(text, -1) {
		segment := s.cleanSegment(raw)
		if segment == "" {
			continue
		}
		if _, dup := seen[segment]; dup {
			s.logger.Debug().Str("segment", segment).Msg("dropping duplicate segment")
			continue
		}
		seen[segment] = struct{}{}
		kept = append(kept, segment)
	}
	return strings.Join(kept, SegmentSeparator)
}

func (s *Sanitizer) cleanSegment(raw string) string {
	tokens := strings.Fields(raw)
	out := tokens[:0]
	for _, tok := range tokens {
		if s.isNoise(tok) {
			continue
		}
		out = append(out, tok)
	}
	return strings.Join(out, " ")
}

func (s *Sanitizer) isNoise(token string) bool {
	if utf8.RuneCountInString(token) > s.opts.MaxTokenLength {
		return true
	}
	return s.consonants.MatchString(token) || s.symbols.MatchString(token)
}

// normalizeRunes drops invisible characters and folds typographic variants
// that speech engines read out literally.
func normalizeRunes(s string) string {
	if s == "" {
		return s
	}
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch r {
		case '\u00A0', '\u202F':
			b.WriteRune(' ')
		case '\u200B', '\u200C', '\u200D', '\uFEFF', '\u034F', '\u2060', '\u00AD':
			// invisible, drop
		case '\u2000', '\u2001', '\u2002', '\u2003', '\u2004', '\u2005', '\u2006', '\u2007', '\u2008', '\u2009', '\u200A':
			b.WriteRune(' ')
		case '\u2018', '\u2019':
			b.WriteRune('\'')
		case '\u201C', '\u201D':
			b.WriteRune('"')
		case '\u2026':
			b.WriteString("...")
		default:
			if unicode.IsControl(r) && r != '\n' && r != '\t' {
				continue
			}
			if unicode.Is(unicode.So, r) {
				continue
			}
			b.WriteRune(r)
		}
	}
	return b.String()
}
