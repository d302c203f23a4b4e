package display

import (
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// Styles for the monitor
var (
	primaryColor = lipgloss.Color("#00FFFF") // Cyan
	accentColor  = lipgloss.Color("#00FF00") // Green
	dimColor     = lipgloss.Color("#666666") // Gray

	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FFFFFF"))

	stateStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(primaryColor)

	beatStyle = lipgloss.NewStyle().
			Foreground(accentColor)

	helpStyle = lipgloss.NewStyle().
			Foreground(dimColor)
)

// TickMsg is sent on each tick for time updates
type TickMsg time.Time

// Transport is the engine control surface the monitor drives.
type Transport interface {
	Play()
	Stop()
	Playing() bool
	CurrentBeat() float64
	CutAll()
	EnableLoop() error
	DisableLoop()
	Loop() (enabled bool, startBeat, endBeat float64)
}

// Model is the Bubbletea model for the transport monitor.
type Model struct {
	transport Transport
	portName  string
	quitting  bool
}

// NewModel creates a monitor over a transport and an output port name.
func NewModel(t Transport, portName string) Model {
	return Model{transport: t, portName: portName}
}

func tick() tea.Cmd {
	return tea.Tick(100*time.Millisecond, func(t time.Time) tea.Msg {
		return TickMsg(t)
	})
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return tick()
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case TickMsg:
		if m.quitting {
			return m, nil
		}
		return m, tick()

	case tea.KeyMsg:
		switch msg.String() {
		case " ":
			if m.transport.Playing() {
				m.transport.Stop()
			} else {
				m.transport.Play()
			}
		case "c":
			m.transport.CutAll()
		case "l":
			if enabled, _, _ := m.transport.Loop(); enabled {
				m.transport.DisableLoop()
			} else {
				m.transport.EnableLoop()
			}
		case "q", "ctrl+c":
			m.quitting = true
			if m.transport.Playing() {
				m.transport.Stop()
			}
			return m, tea.Quit
		}
	}
	return m, nil
}

// View implements tea.Model.
func (m Model) View() string {
	if m.quitting {
		return ""
	}

	state := "STOPPED"
	if m.transport.Playing() {
		state = "PLAYING"
	}

	loopLine := "loop off"
	if enabled, start, end := m.transport.Loop(); enabled {
		loopLine = fmt.Sprintf("loop [%.2f, %.2f)", start, end)
	}

	return fmt.Sprintf("%s\n%s  %s\n%s  %s\n%s\n",
		titleStyle.Render("epichord sound engine — "+m.portName),
		stateStyle.Render(state),
		beatStyle.Render(fmt.Sprintf("beat %.3f", m.transport.CurrentBeat())),
		helpStyle.Render(loopLine),
		"",
		helpStyle.Render("[space] play/stop  [c] cut-all  [l] loop  [q] quit"),
	)
}

// Run blocks on the monitor until the user quits it.
func Run(t Transport, portName string) error {
	p := tea.NewProgram(NewModel(t, portName))
	_, err := p.Run()
	return err
}
