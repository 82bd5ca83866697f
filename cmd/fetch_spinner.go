package cmd

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/bnema/offline-session-cli/internal/application"
	"github.com/bnema/offline-session-cli/internal/domain"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

var (
	fetchRemoteStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	fetchCacheStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
)

type listFetchedMsg struct {
	result  application.FetchResult
	err     error
	elapsed time.Duration
}

// listSpinnerModel shows which step of a list fetch is running and leaves a
// one-line summary of where the records came from.
type listSpinnerModel struct {
	spinner    spinner.Model
	collection domain.CollectionKey
	state      func() application.SessionState
	fetch      tea.Cmd

	done    bool
	result  application.FetchResult
	err     error
	elapsed time.Duration
}

func newListSpinnerModel(collection domain.CollectionKey, state func() application.SessionState, fetch tea.Cmd) listSpinnerModel {
	s := spinner.New(
		spinner.WithSpinner(spinner.Dot),
		spinner.WithStyle(lipgloss.NewStyle().Foreground(lipgloss.Color("69"))),
	)

	return listSpinnerModel{
		spinner:    s,
		collection: collection,
		state:      state,
		fetch:      fetch,
	}
}

func (m listSpinnerModel) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.fetch)
}

func (m listSpinnerModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	case listFetchedMsg:
		m.done = true
		m.result = msg.result
		m.err = msg.err
		m.elapsed = msg.elapsed
		return m, tea.Quit
	default:
		return m, nil
	}
}

func (m listSpinnerModel) View() string {
	if !m.done {
		return fmt.Sprintf("%s %s", m.spinner.View(), m.label())
	}
	if m.err != nil {
		return ""
	}

	return m.summary() + "\n"
}

func (m listSpinnerModel) label() string {
	if m.state != nil && m.state() == application.SessionRefreshing {
		return "Refreshing session..."
	}

	return fmt.Sprintf("Fetching %s...", m.collection)
}

func (m listSpinnerModel) summary() string {
	count := len(m.result.Records)
	elapsed := m.elapsed.Round(time.Millisecond)

	if m.result.Source != application.SourceCache {
		return fetchRemoteStyle.Render(fmt.Sprintf("✓ %d %s from remote in %s", count, plural(count, "record"), elapsed))
	}

	reason := "remote unavailable"
	if m.result.Failure != nil {
		reason = string(m.result.Failure.Reason)
	}

	return fetchCacheStyle.Render(fmt.Sprintf("! %d cached %s after %s (%s)", count, plural(count, "record"), elapsed, reason))
}

func plural(n int, word string) string {
	if n == 1 {
		return word
	}

	return word + "s"
}

// runListSpinner runs fetch while a spinner on output reports progress, then
// returns the fetch result.
func runListSpinner(ctx context.Context, output io.Writer, collection domain.CollectionKey, state func() application.SessionState, fetch func(context.Context) (application.FetchResult, error)) (application.FetchResult, error) {
	fetchCmd := func() tea.Msg {
		started := time.Now()
		result, err := fetch(ctx)
		return listFetchedMsg{result: result, err: err, elapsed: time.Since(started)}
	}

	p := tea.NewProgram(
		newListSpinnerModel(collection, state, fetchCmd),
		tea.WithInput(nil),
		tea.WithOutput(output),
		tea.WithContext(ctx),
	)

	finalModel, err := p.Run()
	if err != nil {
		return application.FetchResult{}, err
	}

	final, ok := finalModel.(listSpinnerModel)
	if !ok {
		return application.FetchResult{}, fmt.Errorf("unexpected final spinner model type %T", finalModel)
	}

	return final.result, final.err
}
