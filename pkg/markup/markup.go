// Package markup renders the assistant's restricted text dialect into HTML
// that is safe to inject into the chat surface.
//
// Render is the only sanitization step between free text (learner input or
// model output) and the display. Escaping always runs first; every tag in the
// output is synthesized by Render itself.
package markup

import (
	"regexp"
	"strings"
)

var (
	escaper = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;")

	boldPattern       = regexp.MustCompile(`\*\*(.*?)\*\*`)
	codePattern       = regexp.MustCompile("`([^`]+)`")
	paragraphPattern  = regexp.MustCompile(`\n{2,}`)
	headingPatterns   = buildHeadingPatterns()
	paragraphBoundary = "</p><p>"
	lineBreak         = "<br/>"
)

type headingRule struct {
	pattern     *regexp.Regexp
	replacement string
}

// buildHeadingPatterns orders rules from six markers down to one so a shorter
// marker never consumes the prefix of a longer one.
func buildHeadingPatterns() []headingRule {
	rules := make([]headingRule, 0, 6)
	for level := 6; level >= 1; level-- {
		marker := strings.Repeat("#", level)
		tag := "h" + string(rune('0'+level))
		rules = append(rules, headingRule{
			pattern:     regexp.MustCompile(`(?m)^` + marker + ` (.*)$`),
			replacement: "<" + tag + ">$1</" + tag + ">",
		})
	}
	return rules
}

// Escape replaces the three HTML-significant characters with their entities.
func Escape(raw string) string {
	return escaper.Replace(raw)
}

// Render converts raw text into display markup. Unbalanced markers are left
// as literal text.
func Render(raw string) string {
	html := Escape(raw)

	html = boldPattern.ReplaceAllString(html, "<strong>$1</strong>")
	html = replaceEmphasis(html, '*', true)
	html = replaceEmphasis(html, '_', false)
	html = codePattern.ReplaceAllString(html, "<code>$1</code>")

	for _, rule := range headingPatterns {
		html = rule.pattern.ReplaceAllString(html, rule.replacement)
	}

	html = paragraphPattern.ReplaceAllString(html, paragraphBoundary)
	html = strings.ReplaceAll(html, "\n", lineBreak)

	return "<p>" + html + "</p>"
}

// replaceEmphasis wraps single-marker spans in <em>. A span opens at the start
// of the text or after a non-marker character, holds at least one non-marker
// character and ends at the next marker. When strict is set neither the
// opening nor the closing marker may be followed by another marker, so stray
// halves of a bold pair are never read as emphasis.
//
// Matching is left to right and non-overlapping; the character before the
// opening marker belongs to the match, so it cannot open the next span.
func replaceEmphasis(s string, marker byte, strict bool) string {
	if strings.IndexByte(s, marker) < 0 {
		return s
	}

	var b strings.Builder
	b.Grow(len(s) + 16)

	i := 0
	for i < len(s) {
		open, closing, ok := matchEmphasis(s, i, marker, strict)
		if !ok {
			b.WriteByte(s[i])
			i++
			continue
		}
		b.WriteString(s[i:open])
		b.WriteString("<em>")
		b.WriteString(s[open+1 : closing])
		b.WriteString("</em>")
		i = closing + 1
	}
	return b.String()
}

// matchEmphasis tries a match starting at position p and returns the indices
// of the opening and closing markers.
func matchEmphasis(s string, p int, marker byte, strict bool) (int, int, bool) {
	if p == 0 && s[0] == marker {
		if closing, ok := spanFrom(s, 0, marker, strict); ok {
			return 0, closing, true
		}
	}
	if s[p] != marker && p+1 < len(s) && s[p+1] == marker {
		if closing, ok := spanFrom(s, p+1, marker, strict); ok {
			return p + 1, closing, true
		}
	}
	return 0, 0, false
}

func spanFrom(s string, open int, marker byte, strict bool) (int, bool) {
	start := open + 1
	if start >= len(s) || s[start] == marker {
		return 0, false
	}
	closing := strings.IndexByte(s[start:], marker)
	if closing < 0 {
		return 0, false
	}
	closing += start
	if strict && closing+1 < len(s) && s[closing+1] == marker {
		return 0, false
	}
	return closing, true
}
