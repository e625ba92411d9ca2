package ui

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
)

// ShareUI shows the live viewer table while sharing runs.
type ShareUI struct {
	program    *tea.Program
	model      *liveShareModel
	updateChan chan []ViewerTableItem
	done       chan struct{}
	wg         sync.WaitGroup
}

type liveShareModel struct {
	state      string
	stream     string
	viewers    []ViewerTableItem
	spinner    spinner.Model
	startTime  time.Time
	updateChan chan []ViewerTableItem
	mu         sync.RWMutex
	quitting   bool
}

type shareTickMsg time.Time

// NewShareUI creates the live sharing view. stream names what is being
// shared (screen, camera).
func NewShareUI(stream string) *ShareUI {
	updateChan := make(chan []ViewerTableItem, 16)

	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = SpinnerStyle

	model := &liveShareModel{
		state:      "Waiting for viewers...",
		stream:     stream,
		spinner:    s,
		updateChan: updateChan,
		startTime:  time.Now(),
	}

	return &ShareUI{
		model:      model,
		updateChan: updateChan,
		done:       make(chan struct{}),
	}
}

// Start runs the UI in a goroutine. Inline mode keeps the room info printed
// above it visible.
func (ui *ShareUI) Start() {
	ui.wg.Add(1)
	go func() {
		defer ui.wg.Done()
		defer close(ui.done)
		ui.program = tea.NewProgram(ui.model)
		if _, err := ui.program.Run(); err != nil {
			fmt.Printf("UI error: %v\n", err)
		}
	}()
}

// UpdateViewers replaces the viewer table contents.
func (ui *ShareUI) UpdateViewers(viewers []ViewerTableItem) {
	select {
	case ui.updateChan <- viewers:
	default:
	}
}

// SetState sets the status line.
func (ui *ShareUI) SetState(state string) {
	ui.model.mu.Lock()
	ui.model.state = state
	ui.model.mu.Unlock()
}

// Done is closed when the UI exits, including when the user presses q.
func (ui *ShareUI) Done() <-chan struct{} {
	return ui.done
}

// Stop quits the UI and waits for it to exit.
func (ui *ShareUI) Stop() {
	if ui.program != nil {
		ui.program.Quit()
	}
	ui.wg.Wait()
}

func (m *liveShareModel) Init() tea.Cmd {
	return tea.Batch(
		m.spinner.Tick,
		m.listenForUpdates(),
		tea.Tick(time.Second, func(t time.Time) tea.Msg {
			return shareTickMsg(t)
		}),
	)
}

func (m *liveShareModel) listenForUpdates() tea.Cmd {
	return func() tea.Msg {
		return <-m.updateChan
	}
}

func (m *liveShareModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			m.quitting = true
			return m, tea.Quit
		}

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		cmds = append(cmds, cmd)

	case shareTickMsg:
		if !m.quitting {
			cmds = append(cmds, tea.Tick(time.Second, func(t time.Time) tea.Msg {
				return shareTickMsg(t)
			}))
		}

	case []ViewerTableItem:
		m.mu.Lock()
		m.viewers = msg
		m.mu.Unlock()
		cmds = append(cmds, m.listenForUpdates())
	}

	return m, tea.Batch(cmds...)
}

func (m *liveShareModel) View() string {
	if m.quitting {
		return ""
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	var b strings.Builder

	b.WriteString(fmt.Sprintf("\n%s Sharing %s\n\n", IconScreen, m.stream))
	b.WriteString(fmt.Sprintf("%s %s\n\n", m.spinner.View(), m.state))
	b.WriteString(ViewerTableView(m.viewers))
	b.WriteString("\n\n" + MutedStyle.Render("Press q to stop sharing"))

	return b.String()
}
