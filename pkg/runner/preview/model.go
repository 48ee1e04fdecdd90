package preview

import (
	"context"
	"errors"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea/v2"
	"github.com/charmbracelet/lipgloss/v2"
	"github.com/muesli/reflow/truncate"

	"tableflip.dev/teamviz/pkg/command"
	"tableflip.dev/teamviz/pkg/memento"
	"tableflip.dev/teamviz/pkg/store"
)

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("212"))
	slotStyle  = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	koStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true)
	faintStyle = lipgloss.NewStyle().Faint(true)
	errStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
)

const minCell = 16

// Model renders the persisted slots of one widget.
type Model struct {
	ctx   context.Context
	store store.Store
	keys  command.Keys
	slots int

	save  bool
	mem   memento.Memento
	err   error
	width int

	watchCh     <-chan store.Event
	watchCancel context.CancelFunc
}

// New builds a model that shows n slots.
func New(ctx context.Context, st store.Store, keys command.Keys, n int) *Model {
	return &Model{ctx: ctx, store: st, keys: keys, slots: n, width: 80}
}

type loadedMsg struct {
	key string
	mem memento.Memento
	err error
}

type watchStartedMsg struct {
	ch     <-chan store.Event
	cancel context.CancelFunc
	err    error
}

type watchEventMsg struct {
	event store.Event
}

type watchStoppedMsg struct{}

func (m *Model) Init() tea.Cmd {
	return tea.Batch(m.load(), m.startWatch())
}

func (m *Model) key() string {
	if m.save {
		return m.keys.SaveState
	}
	return m.keys.StatusQuo
}

func (m *Model) load() tea.Cmd {
	st, key := m.store, m.key()
	ctx := m.ctx
	return func() tea.Msg {
		raw, err := st.Get(ctx, key)
		if err != nil {
			return loadedMsg{key: key, err: err}
		}
		mem, err := memento.Decode(raw)
		return loadedMsg{key: key, mem: mem, err: err}
	}
}

func (m *Model) startWatch() tea.Cmd {
	st, parent := m.store, m.ctx
	return func() tea.Msg {
		ctx, cancel := context.WithCancel(parent)
		ch, err := st.Watch(ctx)
		if err != nil {
			cancel()
			return watchStartedMsg{err: err}
		}
		return watchStartedMsg{ch: ch, cancel: cancel}
	}
}

func (m *Model) waitForWatch() tea.Cmd {
	if m.watchCh == nil {
		return nil
	}
	ch := m.watchCh
	return func() tea.Msg {
		if ev, ok := <-ch; ok {
			return watchEventMsg{event: ev}
		}
		return watchStoppedMsg{}
	}
}

func (m *Model) stopWatch() {
	if m.watchCancel != nil {
		m.watchCancel()
		m.watchCancel = nil
	}
	m.watchCh = nil
}

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
	case loadedMsg:
		// Ignore a load that raced a toggle.
		if msg.key != m.key() {
			return m, nil
		}
		m.mem, m.err = msg.mem, msg.err
	case watchStartedMsg:
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		m.watchCh, m.watchCancel = msg.ch, msg.cancel
		return m, m.waitForWatch()
	case watchEventMsg:
		if msg.event.Key == m.key() {
			return m, tea.Batch(m.load(), m.waitForWatch())
		}
		return m, m.waitForWatch()
	case watchStoppedMsg:
		m.watchCh = nil
	case tea.KeyPressMsg:
		switch msg.String() {
		case "q", "esc", "ctrl+c":
			m.stopWatch()
			return m, tea.Quit
		case "s", "tab":
			m.save = !m.save
			m.mem, m.err = nil, nil
			return m, m.load()
		case "r":
			return m, m.load()
		}
	}
	return m, nil
}

func (m *Model) View() string {
	var b strings.Builder
	title := "status quo"
	if m.save {
		title = "save state"
	}
	b.WriteString(titleStyle.Render(fmt.Sprintf("%s · %s", m.keys.Base, title)))
	b.WriteString("\n\n")

	switch {
	case errors.Is(m.err, store.ErrNotFound):
		b.WriteString(faintStyle.Render("nothing saved yet"))
	case m.err != nil:
		b.WriteString(errStyle.Render("ERR: " + m.err.Error()))
	default:
		b.WriteString(m.grid())
	}

	b.WriteString("\n\n")
	b.WriteString(faintStyle.Render("s: toggle save state · r: reload · q: quit"))
	return b.String()
}

func (m *Model) grid() string {
	n := m.slots
	if len(m.mem) > n {
		n = len(m.mem)
	}
	if n == 0 {
		return faintStyle.Render("no slots")
	}
	cell := m.width/n - 4
	if cell < minCell {
		cell = minCell
	}
	cells := make([]string, 0, n)
	for i := 0; i < n; i++ {
		cells = append(cells, slotStyle.Width(cell).Render(m.cell(i, cell)))
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, cells...)
}

func (m *Model) cell(i, width int) string {
	lines := []string{fmt.Sprintf("#%d", i+1)}
	if i >= len(m.mem) || m.mem[i].ForegroundURL == "" {
		return strings.Join(append(lines, faintStyle.Render("empty")), "\n")
	}
	d := m.mem[i]
	lines = append(lines, truncate.StringWithTail(d.ForegroundURL, uint(width), "…"))
	if d.Incapacitated {
		lines = append(lines, koStyle.Render("KO"))
	}
	if d.Mirrored.X {
		lines = append(lines, "mirrored x")
	}
	if d.Mirrored.Y {
		lines = append(lines, "mirrored y")
	}
	return strings.Join(lines, "\n")
}
