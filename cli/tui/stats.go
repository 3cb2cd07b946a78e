package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/justapithecus/flume/types"
)

// PollInterval is the delay between stats refreshes.
const PollInterval = 2 * time.Second

// StatsProvider fetches one stats snapshot from the relay.
type StatsProvider func(ctx context.Context) (*types.StatsFrame, error)

// statsMsg carries a refreshed snapshot into the model.
type statsMsg struct {
	stats *types.StatsFrame
	err   error
}

// tickMsg triggers the next poll.
type tickMsg time.Time

// StatsModel is a Bubble Tea model showing live relay stats.
type StatsModel struct {
	provider StatsProvider
	stats    *types.StatsFrame
	pollErr  error
	width    int
	height   int
	quitting bool
}

// NewStatsModel creates a live stats model polling the given provider.
func NewStatsModel(provider StatsProvider) StatsModel {
	return StatsModel{provider: provider}
}

// Init implements tea.Model.
func (m StatsModel) Init() tea.Cmd {
	return m.poll()
}

func (m StatsModel) poll() tea.Cmd {
	provider := m.provider
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), PollInterval)
		defer cancel()
		stats, err := provider(ctx)
		return statsMsg{stats: stats, err: err}
	}
}

func tick() tea.Cmd {
	return tea.Tick(PollInterval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// Update implements tea.Model.
func (m StatsModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case statsMsg:
		if msg.err != nil {
			m.pollErr = msg.err
		} else {
			m.pollErr = nil
			m.stats = msg.stats
		}
		return m, tick()

	case tickMsg:
		return m, m.poll()

	case tea.KeyMsg:
		if key.Matches(msg, keys.Quit) {
			m.quitting = true
			return m, tea.Quit
		}
	}

	return m, nil
}

// View implements tea.Model.
func (m StatsModel) View() string {
	if m.quitting {
		return ""
	}

	var b strings.Builder
	b.WriteString(TitleStyle.Render("Relay Statistics"))
	b.WriteString("\n\n")

	if m.stats == nil {
		if m.pollErr != nil {
			b.WriteString(ErrorStyle.Render(fmt.Sprintf("poll failed: %v", m.pollErr)))
		} else {
			b.WriteString("Waiting for first snapshot...")
		}
	} else {
		s := m.stats
		sessions := []string{
			m.renderStatBox("Active", s.ActiveSessions, highlightColor),
			m.renderStatBox("Started", s.SessionsStarted, highlightColor),
			m.renderStatBox("Completed", s.SessionsCompleted, successColor),
			m.renderStatBox("Evicted", s.SessionsEvicted, warningColor),
		}
		chunks := []string{
			m.renderStatBox("Chunks In", s.ChunksReceived, highlightColor),
			m.renderStatBox("Rejected", s.ChunksRejected, errorColor),
			m.renderStatBox("Direct", s.DirectSubmits, highlightColor),
			m.renderStatBox("Fetched", s.FetchSuccess, successColor),
			m.renderStatBox("Fetch Failed", s.FetchFailure, errorColor),
		}
		forwards := []string{
			m.renderStatBox("Forwarded", s.ForwardSuccess, successColor),
			m.renderStatBox("Fwd Failed", s.ForwardFailure, errorColor),
			m.renderStatBox("Archived", s.ArchiveWriteSuccess, successColor),
			m.renderStatBox("Arch Failed", s.ArchiveWriteFailure, errorColor),
		}
		b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, sessions...))
		b.WriteString("\n")
		b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, chunks...))
		b.WriteString("\n")
		b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, forwards...))

		if m.pollErr != nil {
			b.WriteString("\n")
			b.WriteString(ErrorStyle.Render(fmt.Sprintf("last poll failed: %v", m.pollErr)))
		}
	}

	help := HelpStyle.Render("Press q or Ctrl+C to quit")
	return b.String() + "\n" + help
}

func (m StatsModel) renderStatBox(label string, value int64, color lipgloss.Color) string {
	boxStyle := StatBoxStyle.BorderForeground(color)

	valueStr := StatValueStyle.Foreground(color).Render(fmt.Sprintf("%d", value))
	labelStr := StatLabelStyle.Render(label)

	content := lipgloss.JoinVertical(lipgloss.Center, valueStr, labelStr)
	return boxStyle.Render(content)
}

// keyMap defines key bindings.
type keyMap struct {
	Quit key.Binding
}

var keys = keyMap{
	Quit: key.NewBinding(
		key.WithKeys("q", "ctrl+c", "esc"),
		key.WithHelp("q", "quit"),
	),
}

// RunStatsTUI runs the live stats view until the user quits.
func RunStatsTUI(provider StatsProvider) error {
	model := NewStatsModel(provider)
	p := tea.NewProgram(model, tea.WithAltScreen())
	_, err := p.Run()
	return err
}
