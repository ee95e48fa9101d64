// Package ui prints questions, tool traffic, answers and saved transcripts to
// the terminal.
package ui

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/x/term"

	"toolcall/model"
)

const (
	defaultWidth   = 80
	toolResultSize = 120
)

// Console writes run output to out, normally stdout, and warnings to errOut.
type Console struct {
	out      io.Writer
	errOut   io.Writer
	width    int
	markdown bool
}

// NewConsole returns a console writing to out and errOut. Answers are
// rendered as terminal markdown when renderMarkdown is set.
func NewConsole(out, errOut io.Writer, renderMarkdown bool) *Console {
	return &Console{
		out:      out,
		errOut:   errOut,
		width:    terminalWidth(out),
		markdown: renderMarkdown,
	}
}

func terminalWidth(out io.Writer) int {
	f, ok := out.(*os.File)
	if !ok {
		return defaultWidth
	}
	w, _, err := term.GetSize(f.Fd())
	if err != nil || w <= 0 {
		return defaultWidth
	}
	return w
}

// Question prints the header for question n of total.
func (c *Console) Question(n, total int, question string) {
	label := UserStyle.Render(fmt.Sprintf("Q%d/%d", n, total))
	fmt.Fprintf(c.out, "%s %s\n", label, question)
}

// ToolActivity prints the tool calls and results found in msgs.
func (c *Console) ToolActivity(msgs []model.Message) {
	for _, msg := range msgs {
		switch msg.Role {
		case model.RoleAssistant:
			for _, call := range msg.ToolCalls {
				fmt.Fprintln(c.out, DimStyle.Render("  → "+FormatToolCall(call)))
			}
		case model.RoleTool:
			fmt.Fprintln(c.out, DimStyle.Render(fmt.Sprintf("  ← %s: %s", msg.ToolName, truncate(msg.Content, toolResultSize))))
		}
	}
}

// Answer prints the final assistant reply.
func (c *Console) Answer(content string) {
	fmt.Fprintln(c.out, AssistantStyle.Render("Assistant"))
	if c.markdown {
		fmt.Fprintln(c.out, RenderMarkdown(content, c.width))
	} else {
		fmt.Fprintln(c.out, content)
	}
	fmt.Fprintln(c.out)
}

func (c *Console) Warn(msg string) {
	fmt.Fprintln(c.errOut, WarningStyle.Render("warning: ")+msg)
}

// Models lists model names, marking current.
func (c *Console) Models(names []string, current string) {
	for _, name := range names {
		marker := "  "
		if name == current {
			marker = HighlightStyle.Render("* ")
		}
		fmt.Fprintf(c.out, "%s%s\n", marker, name)
	}
}

// FormatToolCall renders a call as name(key=value, ...) with sorted keys.
func FormatToolCall(call model.ToolCall) string {
	keys := make([]string, 0, len(call.Arguments))
	for k := range call.Arguments {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	args := make([]string, 0, len(keys))
	for _, k := range keys {
		args = append(args, fmt.Sprintf("%s=%v", k, call.Arguments[k]))
	}
	return call.Name + "(" + strings.Join(args, ", ") + ")"
}

// CopyToClipboard puts text on the system clipboard.
func CopyToClipboard(text string) error {
	if err := clipboard.WriteAll(text); err != nil {
		return fmt.Errorf("failed to copy to clipboard: %w", err)
	}
	return nil
}

func truncate(s string, n int) string {
	s = strings.Join(strings.Fields(s), " ")
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n]) + "..."
}
