package console

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/marcelolino/seucodigo-chat/internal/chat"
)

var (
	headerStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("205"))
	adminStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("39"))
	visitorStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("150"))
	noticeStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("241")).Italic(true)
	dimStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	unreadStyle  = lipgloss.NewStyle().Bold(true)
)

const visibleLines = 20

func (m *Model) View() string {
	var b strings.Builder

	b.WriteString(headerStyle.Render("seucodigo support chat"))
	if m.identity != nil {
		b.WriteString(dimStyle.Render(fmt.Sprintf("  operator #%d", m.identity.UserID)))
	}
	b.WriteString("\n")
	b.WriteString(dimStyle.Render(m.targetLine()))
	b.WriteString("\n\n")

	start := 0
	if len(m.messages) > visibleLines {
		start = len(m.messages) - visibleLines
	}
	for _, msg := range m.messages[start:] {
		b.WriteString(renderMessage(msg))
		b.WriteString("\n")
	}
	for _, note := range tail(m.notices, 3) {
		b.WriteString(noticeStyle.Render("· " + note))
		b.WriteString("\n")
	}
	b.WriteString("\n")

	if m.connected {
		b.WriteString(m.input.View())
	} else {
		// transient disconnects dim the send control; reconnection is
		// this client's job
		line := "reconnecting…"
		if m.lastErr != nil {
			line = fmt.Sprintf("disconnected (%v), retrying…", m.lastErr)
		}
		b.WriteString(dimStyle.Render(line))
	}
	b.WriteString("\n")
	b.WriteString(dimStyle.Render("/to <userId> · /to anon · /quit"))
	return b.String()
}

func (m *Model) targetLine() string {
	if m.target != nil {
		return fmt.Sprintf("replying to user %d", *m.target)
	}
	return "replying on the anonymous thread"
}

func renderMessage(msg chat.Message) string {
	label := "visitor"
	style := visitorStyle
	if msg.IsAdmin {
		label = "operator"
		style = adminStyle
	}
	if msg.SenderID != nil {
		label = fmt.Sprintf("%s #%d", label, *msg.SenderID)
	}
	line := fmt.Sprintf("%s %s  %s",
		dimStyle.Render(msg.CreatedAt.Local().Format("15:04")),
		style.Render(label),
		msg.Content)
	if !msg.IsAdmin && !msg.Read {
		return unreadStyle.Render(line)
	}
	return line
}

func tail(lines []string, n int) []string {
	if len(lines) <= n {
		return lines
	}
	return lines[len(lines)-n:]
}
