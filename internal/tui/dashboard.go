// Package tui renders the live vote dashboard for `parley watch`.
package tui

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/parleygit/parley/internal/event"
)

// Row is one motion's line on the dashboard.
type Row struct {
	MotionID string
	Title    string
	Status   string
	Outcome  string
	For      float64
	Against  float64
	Abstain  float64
	Votes    int
}

// Fetch loads the current dashboard rows.
type Fetch func(ctx context.Context) ([]Row, error)

// refreshInterval is the fallback poll cadence; watcher events refresh
// sooner.
const refreshInterval = 2 * time.Second

type tickMsg time.Time

type rowsMsg struct {
	rows []Row
	err  error
}

type voteObservedMsg struct {
	motionID string
}

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("63")).
			MarginBottom(1)
	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("230")).
			Background(lipgloss.Color("63"))
	selectedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("229")).
			Background(lipgloss.Color("57"))
	statusStyle = lipgloss.NewStyle().
			Faint(true).
			MarginTop(1)
	errStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196"))
)

// Model is the bubbletea model behind the dashboard.
type Model struct {
	fetch   Fetch
	spinner spinner.Model
	table   table.Model

	rows        []Row
	lastRefresh time.Time
	lastEvent   string
	err         error
}

// NewModel creates a dashboard model backed by a row fetcher.
func NewModel(fetch Fetch) Model {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("63"))

	columns := []table.Column{
		{Title: "Motion", Width: 14},
		{Title: "Title", Width: 32},
		{Title: "Status", Width: 10},
		{Title: "For", Width: 7},
		{Title: "Against", Width: 7},
		{Title: "Abstain", Width: 7},
		{Title: "Outcome", Width: 16},
	}
	tbl := table.New(
		table.WithColumns(columns),
		table.WithFocused(true),
		table.WithHeight(12),
	)
	ts := table.DefaultStyles()
	ts.Header = headerStyle
	ts.Selected = selectedStyle
	tbl.SetStyles(ts)

	return Model{fetch: fetch, spinner: sp, table: tbl}
}

// Init starts the spinner, the poll ticker, and the first load.
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.tick(), m.load())
}

func (m Model) tick() tea.Cmd {
	return tea.Tick(refreshInterval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m Model) load() tea.Cmd {
	fetch := m.fetch
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		rows, err := fetch(ctx)
		return rowsMsg{rows: rows, err: err}
	}
}

// Update handles key presses, refresh ticks, and watcher notifications.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return m, tea.Quit
		case "r":
			return m, m.load()
		}

	case tickMsg:
		return m, tea.Batch(m.tick(), m.load())

	case voteObservedMsg:
		m.lastEvent = "vote observed on " + msg.motionID
		return m, m.load()

	case rowsMsg:
		m.err = msg.err
		if msg.err == nil {
			m.rows = msg.rows
			m.lastRefresh = time.Now()
			m.table.SetRows(tableRows(msg.rows))
		}
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	var cmd tea.Cmd
	m.table, cmd = m.table.Update(msg)
	return m, cmd
}

func tableRows(rows []Row) []table.Row {
	out := make([]table.Row, len(rows))
	for i, r := range rows {
		out[i] = table.Row{
			r.MotionID,
			r.Title,
			r.Status,
			fmt.Sprintf("%.1f", r.For),
			fmt.Sprintf("%.1f", r.Against),
			fmt.Sprintf("%.1f", r.Abstain),
			r.Outcome,
		}
	}
	return out
}

// View renders the dashboard.
func (m Model) View() string {
	s := titleStyle.Render("parley "+m.spinner.View()+" live tallies") + "\n"
	s += m.table.View() + "\n"

	status := "q quit · r refresh"
	if !m.lastRefresh.IsZero() {
		status += " · refreshed " + m.lastRefresh.Format("15:04:05")
	}
	if m.lastEvent != "" {
		status += " · " + m.lastEvent
	}
	s += statusStyle.Render(status)
	if m.err != nil {
		s += "\n" + errStyle.Render("error: "+m.err.Error())
	}
	return s
}

// App wraps the bubbletea program and wires bus events into it.
type App struct {
	program *tea.Program
	bus     *event.Bus
}

// NewApp creates the dashboard application.
func NewApp(fetch Fetch, bus *event.Bus) *App {
	return &App{
		program: tea.NewProgram(NewModel(fetch), tea.WithAltScreen()),
		bus:     bus,
	}
}

// Run blocks until the user quits. Watcher events on the bus trigger an
// immediate refresh.
func (a *App) Run() error {
	id := a.bus.Subscribe("vote.observed", func(e event.Event) {
		if ev, ok := e.(event.VoteObservedEvent); ok {
			a.program.Send(voteObservedMsg{motionID: ev.MotionID})
		}
	})
	defer a.bus.Unsubscribe(id)

	_, err := a.program.Run()
	return err
}
