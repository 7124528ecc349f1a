package cmd

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/tabulario/tabletool/cmd/tabular"
	"github.com/tabulario/tabletool/cmd/tablediff"
)

type Phase int

const (
	PhaseLoadingLeft Phase = iota
	PhaseLoadingRight
	PhaseComparing
	PhaseComplete
)

var (
	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#626262")).
			Margin(0, 2)

	stageStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#04B575")).
			Margin(0, 2)

	bannerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF7CCB")).
			Bold(true)
)

type diffProgressModel struct {
	phase           Phase
	currentSpinner  spinner.Model
	overallProgress progress.Model
	messages        []string
	done            bool
	canceled        bool
	width           int
	startTime       time.Time
	ctx             context.Context
	differ          *Differ
	left            *tabular.Dataset
	right           *tabular.Dataset
	errChan         chan<- error
	resultChan      chan<- *tablediff.Result
}

type leftLoadedMsg struct {
	dataset *tabular.Dataset
}

type rightLoadedMsg struct {
	dataset *tabular.Dataset
}

type compareDoneMsg struct {
	result *tablediff.Result
}

type errorMsg struct {
	err error
}

func newDiffProgressModel(ctx context.Context, differ *Differ, errChan chan<- error, resultChan chan<- *tablediff.Result) diffProgressModel {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("205"))

	overallProg := progress.New(
		progress.WithScaledGradient("#FF7CCB", "#FDFF8C"),
		progress.WithWidth(60),
	)

	return diffProgressModel{
		phase:           PhaseLoadingLeft,
		currentSpinner:  s,
		overallProgress: overallProg,
		messages:        make([]string, 0),
		startTime:       time.Now(),
		ctx:             ctx,
		differ:          differ,
		errChan:         errChan,
		resultChan:      resultChan,
	}
}

func (m diffProgressModel) Init() tea.Cmd {
	return tea.Batch(
		m.currentSpinner.Tick,
		tea.EnterAltScreen,
		m.doLoadLeft(),
	)
}

func (m *diffProgressModel) doLoadLeft() tea.Cmd {
	return func() tea.Msg {
		dataset, err := m.differ.loadLeft(m.ctx)
		if err != nil {
			return errorMsg{err: fmt.Errorf("failed to load left dataset: %w", err)}
		}
		return leftLoadedMsg{dataset: dataset}
	}
}

func (m *diffProgressModel) doLoadRight() tea.Cmd {
	return func() tea.Msg {
		dataset, err := m.differ.loadRight(m.ctx)
		if err != nil {
			return errorMsg{err: fmt.Errorf("failed to load right dataset: %w", err)}
		}
		return rightLoadedMsg{dataset: dataset}
	}
}

func (m *diffProgressModel) doCompare() tea.Cmd {
	return func() tea.Msg {
		result, err := m.differ.compareLoaded(m.left, m.right)
		if err != nil {
			return errorMsg{err: err}
		}
		return compareDoneMsg{result: result}
	}
}

func (m *diffProgressModel) addMessage(message string) {
	m.messages = append(m.messages, message)
	if len(m.messages) > 10 {
		m.messages = m.messages[len(m.messages)-10:]
	}
}

func (m diffProgressModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.String() == "ctrl+c" || msg.String() == "q" {
			m.done = true
			m.canceled = true
			if m.errChan != nil {
				m.errChan <- context.Canceled
			}
			return m, tea.Sequence(tea.ExitAltScreen, tea.Quit)
		}
		return m, nil

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.overallProgress.Width = msg.Width - 10
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.currentSpinner, cmd = m.currentSpinner.Update(msg)
		return m, cmd

	case progress.FrameMsg:
		progressModel, cmd := m.overallProgress.Update(msg)
		if pm, ok := progressModel.(progress.Model); ok {
			m.overallProgress = pm
		}
		return m, cmd

	case leftLoadedMsg:
		m.left = msg.dataset
		m.addMessage(fmt.Sprintf("✅ Loaded left dataset: %d rows, %d columns", len(msg.dataset.Rows), len(msg.dataset.Columns)))
		m.phase = PhaseLoadingRight
		return m, m.doLoadRight()

	case rightLoadedMsg:
		m.right = msg.dataset
		m.addMessage(fmt.Sprintf("✅ Loaded right dataset: %d rows, %d columns", len(msg.dataset.Rows), len(msg.dataset.Columns)))
		m.phase = PhaseComparing
		return m, m.doCompare()

	case compareDoneMsg:
		m.addMessage("✅ Comparison complete")
		m.phase = PhaseComplete
		m.done = true
		if m.resultChan != nil {
			m.resultChan <- msg.result
		}
		return m, tea.Sequence(tea.ExitAltScreen, tea.Quit)

	case errorMsg:
		m.done = true
		if m.errChan != nil {
			m.errChan <- msg.err
		}
		return m, tea.Sequence(tea.ExitAltScreen, tea.Quit)
	}

	return m, nil
}

func (m diffProgressModel) phaseStage() string {
	switch m.phase {
	case PhaseLoadingLeft:
		return "Loading left dataset..."
	case PhaseLoadingRight:
		return "Loading right dataset..."
	case PhaseComparing:
		return "Comparing rows..."
	default:
		return "Finishing..."
	}
}

func (m diffProgressModel) View() string {
	if m.done && m.phase == PhaseComplete {
		return ""
	}

	var sections []string

	sections = append(sections, "")
	sections = append(sections, "   "+bannerStyle.Render("Table Tool")+" — dataset comparison")
	sections = append(sections, "")

	sections = append(sections, helpStyle.Render("   Log:"))
	if len(m.messages) == 0 {
		sections = append(sections, "     (waiting for operations...)")
	} else {
		for _, msg := range m.messages {
			sections = append(sections, "     "+msg)
		}
	}

	separatorWidth := 80
	if m.width > 0 && m.width < 200 {
		separatorWidth = m.width - 6
	}
	separator := "   " + strings.Repeat("─", separatorWidth)
	sections = append(sections, "", lipgloss.NewStyle().Foreground(lipgloss.Color("#444")).Render(separator), "")

	stageInfo := fmt.Sprintf("   %s %s", m.currentSpinner.View(), m.phaseStage())
	sections = append(sections, stageStyle.Render(stageInfo))

	sections = append(sections, "   "+m.overallProgress.ViewAs(float64(m.phase)/float64(PhaseComplete)))

	sections = append(sections, "")
	sections = append(sections, helpStyle.Render("   Press Ctrl+C or 'q' to quit"))

	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

// runWithProgress runs the comparison inside the interactive display and
// hands the result back once the program exits
func (d *Differ) runWithProgress(ctx context.Context) (*tablediff.Result, error) {
	errChan := make(chan error, 1)
	resultChan := make(chan *tablediff.Result, 1)

	model := newDiffProgressModel(ctx, d, errChan, resultChan)
	program := tea.NewProgram(model)

	if _, err := program.Run(); err != nil {
		return nil, fmt.Errorf("progress display failed: %w", err)
	}

	select {
	case result := <-resultChan:
		return result, nil
	case err := <-errChan:
		return nil, err
	default:
		return nil, context.Canceled
	}
}
