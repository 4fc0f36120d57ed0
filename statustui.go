/* ptp-usb-bridge - WebSocket bridge to a USB-attached Sony PTP camera
 *
 * Interactive status viewer ("status -watch") -- a small Bubble Tea
 * program that polls the running daemon's control socket and renders
 * its status, refreshed once a second, in the teacher's header/body/
 * footer chrome (cf. guiperry-HASHER's internal/cli/ui.go)
 */

package main

import (
	"time"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

var (
	statusHeaderStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("#000000")).
				Background(lipgloss.Color("#FFFF00")).
				Bold(true).
				Padding(0, 1)

	statusFooterStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("#FFFFFF")).
				Background(lipgloss.Color("#4B5563")).
				Padding(0, 1)

	statusBoxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#9CA3AF"))

	statusErrStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#EF4444")).
			Bold(true)
)

// statusTickMsg drives the once-a-second poll.
type statusTickMsg time.Time

// statusTextMsg carries the result of one StatusRetrieve call.
type statusTextMsg struct {
	text []byte
	err  error
}

// statusModel is the Bubble Tea model for "status -watch".
type statusModel struct {
	view   viewport.Model
	width  int
	height int
	lastErr error
}

func newStatusModel() statusModel {
	return statusModel{view: viewport.New(78, 20)}
}

func tickStatus() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg {
		return statusTickMsg(t)
	})
}

func pollStatus() tea.Cmd {
	return func() tea.Msg {
		text, err := StatusRetrieve()
		return statusTextMsg{text: text, err: err}
	}
}

func (m statusModel) Init() tea.Cmd {
	return tea.Batch(pollStatus(), tickStatus())
}

func (m statusModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.view.Width = msg.Width - 4
		m.view.Height = msg.Height - 5
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return m, tea.Quit
		}
		var cmd tea.Cmd
		m.view, cmd = m.view.Update(msg)
		return m, cmd

	case statusTickMsg:
		return m, tea.Batch(pollStatus(), tickStatus())

	case statusTextMsg:
		m.lastErr = msg.err
		if msg.err == nil {
			m.view.SetContent(string(msg.text))
		}
		return m, nil
	}

	var cmd tea.Cmd
	m.view, cmd = m.view.Update(msg)
	return m, cmd
}

func (m statusModel) View() string {
	header := statusHeaderStyle.Width(m.width).Render("ptp-usb-bridge status")

	body := statusBoxStyle.Width(m.width - 2).Height(m.view.Height + 2).Render(m.view.View())
	if m.lastErr != nil {
		body = statusBoxStyle.Width(m.width - 2).Render(statusErrStyle.Render(m.lastErr.Error()))
	}

	footer := statusFooterStyle.Width(m.width).Render("q quit  |  refreshed every 1s")

	return lipgloss.JoinVertical(lipgloss.Left, header, body, footer)
}

// RunStatusWatch runs the interactive status viewer until the user
// quits it.
func RunStatusWatch() error {
	_, err := tea.NewProgram(newStatusModel(), tea.WithAltScreen()).Run()
	return err
}
