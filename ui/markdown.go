package ui

import (
	"regexp"
	"strings"
	"time"

	markdown "github.com/MichaelMure/go-term-markdown"
	gomarkdown "github.com/gomarkdown/markdown"
	"github.com/gomarkdown/markdown/parser"

	"toolcall/config"
)

var (
	inlineCodeRegex = regexp.MustCompile(`(?s)\x1b\[44;3m(.*?)\x1b\[0m`)
	mdLinkRegex     = regexp.MustCompile(`\[([^\]]+)\]\((https?://[^\)]+)\)`)
	urlRegex        = regexp.MustCompile(`(https?://[^\s]+)`)
)

const codeBlockBar = "┃"

// RenderMarkdown renders content for a terminal of the given width.
func RenderMarkdown(content string, width int) string {
	start := time.Now()

	content = preprocessLinks(content)

	// Autolink stays off so plain URLs remain plain text for the terminal.
	ext := markdown.Extensions() &^ parser.Autolink
	p := parser.NewWithExtensions(ext)
	r := markdown.NewRenderer(width-4, 0)
	doc := p.Parse([]byte(content))
	rendered := string(gomarkdown.Render(doc, r))

	rendered = fixInlineCode(rendered)
	rendered = colorURLs(rendered)
	rendered = strings.TrimRight(rendered, "\n")

	if config.DebugLog != nil {
		config.DebugLog.Printf("[UI] Markdown rendered %d chars in %v", len(content), time.Since(start))
	}
	return rendered
}

// preprocessLinks turns [text](url) into the bare url.
func preprocessLinks(content string) string {
	return mdLinkRegex.ReplaceAllString(content, "$2")
}

// fixInlineCode swaps the renderer's blue-background inline code for red text.
func fixInlineCode(s string) string {
	return inlineCodeRegex.ReplaceAllString(s, "\x1b[31m$1\x1b[0m")
}

func colorURLs(s string) string {
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		if strings.Contains(line, codeBlockBar) {
			continue
		}
		lines[i] = urlRegex.ReplaceAllString(line, "\x1b[31m$1\x1b[0m")
	}
	return strings.Join(lines, "\n")
}
