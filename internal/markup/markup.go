// ABOUTME: Agent response post-processing: think-block extraction and HTML handling
// ABOUTME: Sanitizes markup for display and strips it to plain text for speech

package markup

import (
	"bytes"
	"fmt"
	"html"
	"regexp"
	"strings"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	gmhtml "github.com/yuin/goldmark/renderer/html"
)

// thinkPattern matches the reserved marker pair that wraps agent reasoning.
var thinkPattern = regexp.MustCompile(`(?s)<think>(.*?)</think>`)

// ExtractThinking splits the first <think>...</think> region out of text.
// It returns the remaining display text and the trimmed reasoning. When no
// region is present the text is returned unchanged with empty reasoning.
func ExtractThinking(text string) (display, thinking string) {
	loc := thinkPattern.FindStringSubmatchIndex(text)
	if loc == nil {
		return text, ""
	}
	thinking = strings.TrimSpace(text[loc[2]:loc[3]])
	display = strings.TrimSpace(text[:loc[0]] + text[loc[1]:])
	return display, thinking
}

// HasThinking reports whether text still carries a think region.
func HasThinking(text string) bool {
	return thinkPattern.MatchString(text)
}

// Processor sanitizes agent markup for display and converts it to speech text.
// It is safe for concurrent use once constructed.
type Processor struct {
	display  *bluemonday.Policy
	strict   *bluemonday.Policy
	markdown goldmark.Markdown
	renderMD bool
}

// NewProcessor creates a Processor. When renderMarkdown is set, display text
// is converted from markdown to HTML before sanitization.
func NewProcessor(renderMarkdown bool) *Processor {
	display := bluemonday.UGCPolicy()
	display.AddTargetBlankToFullyQualifiedLinks(true)

	return &Processor{
		display:  display,
		strict:   bluemonday.StrictPolicy(),
		markdown: goldmark.New(goldmark.WithRendererOptions(gmhtml.WithUnsafe())),
		renderMD: renderMarkdown,
	}
}

// Sanitize returns HTML that is safe to render. Text without any markup
// characters is returned untouched so literal messages keep their exact form.
func (p *Processor) Sanitize(s string) string {
	if !strings.ContainsAny(s, "<>&") {
		return s
	}
	return p.display.Sanitize(s)
}

// PrepareDisplay converts a full agent reply (think region already removed)
// into the source text that progressive reveal walks through.
func (p *Processor) PrepareDisplay(s string) string {
	if !p.renderMD {
		return s
	}
	rendered, err := p.RenderMarkdown(s)
	if err != nil {
		return s
	}
	return strings.TrimSpace(rendered)
}

// RenderMarkdown converts markdown to HTML. Raw HTML in the source passes
// through and is expected to be sanitized afterwards.
func (p *Processor) RenderMarkdown(s string) (string, error) {
	var buf bytes.Buffer
	if err := p.markdown.Convert([]byte(s), &buf); err != nil {
		return "", fmt.Errorf("rendering markdown: %w", err)
	}
	return buf.String(), nil
}

// StripToText removes every think region and all markup, returning plain text
// suitable for speech synthesis. Script and style contents are dropped.
func (p *Processor) StripToText(s string) string {
	if s == "" {
		return ""
	}
	s = thinkPattern.ReplaceAllString(s, "")
	text := html.UnescapeString(p.strict.Sanitize(s))
	return strings.Join(strings.Fields(text), " ")
}
