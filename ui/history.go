package ui

import (
	"fmt"
	"sort"
	"strings"

	"github.com/mattn/go-runewidth"

	"toolcall/model"
	"toolcall/storage"
)

const (
	idWidth    = 8
	nameWidth  = 40
	modelWidth = 16
	countWidth = 5
	timeLayout = "2006-01-02 15:04"
)

func shortID(id string) string {
	if len(id) > idWidth {
		return id[:idWidth]
	}
	return id
}

// pad truncates s to width display cells and right-pads it to exactly width.
func pad(s string, width int) string {
	if runewidth.StringWidth(s) > width {
		s = runewidth.Truncate(s, width, "...")
	}
	return runewidth.FillRight(s, width)
}

// TranscriptTable prints saved transcripts, one per row.
func (c *Console) TranscriptTable(list []storage.TranscriptMetadata) {
	if len(list) == 0 {
		fmt.Fprintln(c.out, DimStyle.Render("No saved transcripts."))
		return
	}

	header := strings.Join([]string{
		pad("ID", idWidth),
		pad("NAME", nameWidth),
		pad("MODEL", modelWidth),
		pad("MSGS", countWidth),
		pad("TOOLS", countWidth),
		"UPDATED",
	}, "  ")
	fmt.Fprintln(c.out, TitleStyle.Render(header))

	for _, t := range list {
		row := strings.Join([]string{
			pad(shortID(t.ID), idWidth),
			pad(t.Name, nameWidth),
			pad(t.Model, modelWidth),
			pad(fmt.Sprint(t.MessageCount), countWidth),
			pad(fmt.Sprint(t.ToolCalls), countWidth),
			t.UpdatedAt.Local().Format(timeLayout),
		}, "  ")
		fmt.Fprintln(c.out, row)
	}

	fmt.Fprintln(c.out)
	fmt.Fprintln(c.out, DimStyle.Render(FormatFooter("--show <id>", "print transcript", "--search <text>", "search messages", "--delete <id>", "remove transcript")))
}

// SearchResults prints search matches, best first.
func (c *Console) SearchResults(query string, matches []storage.TranscriptMatch) {
	if len(matches) == 0 {
		fmt.Fprintf(c.out, "No messages match %q.\n", query)
		return
	}

	for _, m := range matches {
		role := UserStyle.Render(pad("You", 9))
		if m.Role == model.RoleAssistant {
			role = AssistantStyle.Render(pad("Assistant", 9))
		}
		fmt.Fprintf(c.out, "%s  %s  %s\n",
			DimStyle.Render(pad(shortID(m.TranscriptID), idWidth)),
			role,
			m.Preview,
		)
		fmt.Fprintf(c.out, "%s  %s\n", strings.Repeat(" ", idWidth), DimStyle.Render(pad(m.TranscriptName, nameWidth)))
	}
}

// CallStats prints how many logged tool calls ended in each status.
func (c *Console) CallStats(counts map[string]int) {
	if len(counts) == 0 {
		fmt.Fprintln(c.out, DimStyle.Render("No logged tool calls."))
		return
	}

	statuses := make([]string, 0, len(counts))
	total := 0
	for status, n := range counts {
		statuses = append(statuses, status)
		total += n
	}
	sort.Strings(statuses)

	fmt.Fprintln(c.out, TitleStyle.Render(pad("STATUS", 12)+"  CALLS"))
	for _, status := range statuses {
		fmt.Fprintf(c.out, "%s  %d\n", statusStyle(status).Render(pad(status, 12)), counts[status])
	}
	fmt.Fprintf(c.out, "%s  %d\n", pad("total", 12), total)
}

// Deleted confirms a removed transcript.
func (c *Console) Deleted(id string, calls int64) {
	fmt.Fprintf(c.out, "Deleted transcript %s and %d logged tool calls.\n", shortID(id), calls)
}

// Transcript prints a saved run in full, followed by its logged tool calls.
func (c *Console) Transcript(t *storage.Transcript, calls []storage.CallEntry) {
	fmt.Fprintln(c.out, TitleStyle.Render(t.Name))
	fmt.Fprintln(c.out, DimStyle.Render(fmt.Sprintf("%s  %s/%s  %s", t.ID, t.Provider, t.Model, t.UpdatedAt.Local().Format(timeLayout))))
	fmt.Fprintln(c.out)

	for _, msg := range t.ModelMessages() {
		switch msg.Role {
		case model.RoleSystem:
			fmt.Fprintln(c.out, DimStyle.Render("System: "+msg.Content))
		case model.RoleUser:
			fmt.Fprintf(c.out, "%s %s\n", UserStyle.Render("You"), msg.Content)
		case model.RoleAssistant:
			if msg.HasToolCalls() {
				c.ToolActivity([]model.Message{msg})
			}
			if msg.Content != "" {
				c.Answer(msg.Content)
			}
		case model.RoleTool:
			c.ToolActivity([]model.Message{msg})
		}
	}

	if len(calls) == 0 {
		return
	}

	fmt.Fprintln(c.out, TitleStyle.Render("Tool calls"))
	for _, call := range calls {
		fmt.Fprintf(c.out, "  %s  %s  %s  %s\n",
			pad(call.Name, 24),
			statusStyle(call.Status).Render(pad(call.Status, 12)),
			pad(call.Duration.String(), 10),
			truncate(call.Arguments, 60),
		)
	}
}
