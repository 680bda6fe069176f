package console

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/marcelolino/seucodigo-chat/internal/chat"
	"github.com/marcelolino/seucodigo-chat/internal/chatclient"
)

type (
	connectedMsg struct {
		handle  *chatclient.Handle
		history []chat.Message
	}
	connectFailedMsg struct{ err error }
	incomingMsg      chat.Message
	noticeMsg        string
	disconnectedMsg  struct{}
	reconnectMsg     struct{}
)

const (
	dialTimeout    = 10 * time.Second
	reconnectDelay = 3 * time.Second
)

func (m *Model) Update(message tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := message.(type) {
	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC || msg.Type == tea.KeyEsc {
			if m.handle != nil {
				_ = m.handle.Close()
			}
			return m, tea.Quit
		}
		if msg.Type == tea.KeyEnter {
			return m.submit()
		}
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		return m, cmd

	case connectedMsg:
		m.handle = msg.handle
		m.identity = msg.handle.Identity()
		m.connected = true
		m.lastErr = nil
		if msg.history != nil {
			m.messages = msg.history
		}
		return m, m.readOnceCmd()

	case connectFailedMsg:
		m.connected = false
		m.lastErr = msg.err
		return m, m.scheduleReconnect()

	case incomingMsg:
		m.messages = append(m.messages, chat.Message(msg))
		if len(m.messages) > feedSize {
			m.messages = m.messages[len(m.messages)-feedSize:]
		}
		return m, m.readOnceCmd()

	case noticeMsg:
		m.notices = append(m.notices, string(msg))
		return m, m.readOnceCmd()

	case disconnectedMsg:
		// the server never replays; reconnect and re-fetch history
		m.connected = false
		m.handle = nil
		return m, m.scheduleReconnect()

	case reconnectMsg:
		if !m.connected {
			return m, m.connectCmd()
		}
		return m, nil
	}
	return m, nil
}

func (m *Model) submit() (tea.Model, tea.Cmd) {
	trimmed := strings.TrimSpace(m.input.Value())
	if trimmed == "" {
		return m, nil
	}
	if strings.HasPrefix(trimmed, "/") {
		m.input.SetValue("")
		return m.command(trimmed)
	}
	if !m.connected || m.handle == nil {
		return m, nil
	}

	var err error
	if m.target != nil {
		err = m.handle.SendTo(*m.target, trimmed)
	} else {
		err = m.handle.Send(trimmed)
	}
	if err != nil {
		m.notices = append(m.notices, fmt.Sprintf("send failed: %v", err))
		return m, nil
	}
	m.input.SetValue("")
	return m, nil
}

func (m *Model) command(input string) (tea.Model, tea.Cmd) {
	fields := strings.Fields(strings.ToLower(input))
	switch fields[0] {
	case "/quit", "/exit":
		if m.handle != nil {
			_ = m.handle.Close()
		}
		return m, tea.Quit
	case "/to":
		if len(fields) < 2 || fields[1] == "anon" {
			m.target = nil
			m.notices = append(m.notices, "replying on the anonymous thread")
			return m, nil
		}
		id, err := strconv.ParseInt(fields[1], 10, 64)
		if err != nil {
			m.notices = append(m.notices, "usage: /to <userId> or /to anon")
			return m, nil
		}
		m.target = &id
		m.notices = append(m.notices, fmt.Sprintf("replying to user %d", id))
		return m, nil
	default:
		m.notices = append(m.notices, "unknown command "+fields[0])
		return m, nil
	}
}

func (m *Model) connectCmd() tea.Cmd {
	serverURL, token := m.serverURL, m.token
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), dialTimeout)
		defer cancel()
		handle, err := chatclient.Dial(ctx, serverURL, token)
		if err != nil {
			return connectFailedMsg{err: err}
		}
		history, err := chatclient.History(ctx, serverURL)
		if err != nil {
			// the live feed still works; history just starts empty
			history = nil
		}
		return connectedMsg{handle: handle, history: history}
	}
}

func (m *Model) readOnceCmd() tea.Cmd {
	handle := m.handle
	if handle == nil {
		return nil
	}
	return func() tea.Msg {
		select {
		case msg, ok := <-handle.Messages():
			if !ok {
				return disconnectedMsg{}
			}
			return incomingMsg(msg)
		case note, ok := <-handle.Notices():
			if !ok {
				return disconnectedMsg{}
			}
			return noticeMsg(note)
		case <-handle.Done():
			return disconnectedMsg{}
		}
	}
}

func (m *Model) scheduleReconnect() tea.Cmd {
	return tea.Tick(reconnectDelay, func(time.Time) tea.Msg {
		return reconnectMsg{}
	})
}
