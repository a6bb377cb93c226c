package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
)

func (m Model) View() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("💬 Exploration Chatboard"))
	b.WriteString("\n\n")

	if m.query != "" {
		b.WriteString(helpStyle.Render(fmt.Sprintf("search: %q  (%d rows)", m.query, len(m.rows))))
		b.WriteString("\n\n")
	}

	if len(m.rows) == 0 {
		b.WriteString(helpStyle.Render("No posts yet. Press n to share something."))
		b.WriteString("\n")
	}
	for i, r := range m.rows {
		b.WriteString(m.renderRow(r, i == m.cursor))
		b.WriteString("\n")
	}

	if m.mode != modeBrowse {
		b.WriteString("\n")
		b.WriteString(m.input.View())
		b.WriteString("\n")
	}
	if m.status != "" {
		b.WriteString("\n")
		b.WriteString(toastStyle.Render(m.status))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(helpStyle.Render(m.help()))
	return b.String()
}

func (m Model) renderRow(r row, selected bool) string {
	marker := "  "
	if selected {
		marker = selectedStyle.Render("▌ ")
	}

	if r.comment == nil {
		line := postStyle.Render(r.text) + " " + authorStyle.Render("Anonymous")
		if selected {
			line = selectedStyle.Render(r.text) + " " + authorStyle.Render("Anonymous")
		}
		return marker + line
	}

	indent := strings.Repeat("  ", r.depth())
	text := commentStyle.Render("└ " + r.text)
	if selected {
		text = selectedStyle.Render("└ " + r.text)
	}
	return marker + indent + text
}

func (m Model) help() string {
	bindings := []key.Binding{m.keys.Submit, m.keys.Cancel}
	if m.mode == modeBrowse {
		bindings = []key.Binding{m.keys.Up, m.keys.Down, m.keys.Post, m.keys.Reply, m.keys.Search, m.keys.Cancel, m.keys.Quit}
	}
	parts := make([]string, 0, len(bindings))
	for _, b := range bindings {
		h := b.Help()
		parts = append(parts, h.Key+": "+h.Desc)
	}
	return strings.Join(parts, " • ")
}
