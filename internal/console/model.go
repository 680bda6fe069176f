// Package console implements the operator-side terminal client: live
// feed of the support inbox plus a reply prompt. Visitors use the site
// widget; this is what an admin keeps open next to the order dashboard.
package console

import (
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/marcelolino/seucodigo-chat/internal/chat"
	"github.com/marcelolino/seucodigo-chat/internal/chatclient"
)

const feedSize = 200

// Model holds the console state for bubbletea.
type Model struct {
	input     textinput.Model
	serverURL string
	token     string

	handle    *chatclient.Handle
	identity  *chat.Identity
	messages  []chat.Message
	notices   []string
	connected bool
	lastErr   error

	// target selects which conversation replies go to; nil is the shared
	// anonymous thread. Changed with /to <userId> and /to anon.
	target *int64
}

func NewModel(serverURL, token string) *Model {
	input := textinput.New()
	input.Placeholder = "Type a reply…"
	input.CharLimit = 0
	input.Prompt = "> "
	input.Focus()

	return &Model{
		input:     input,
		serverURL: serverURL,
		token:     token,
		messages:  make([]chat.Message, 0, feedSize),
	}
}

func (m *Model) Init() tea.Cmd {
	return m.connectCmd()
}
