// Package preview shows the persisted overlay state in the terminal and
// follows changes on disk.
package preview

import (
	"context"
	"errors"
	"os"

	tea "github.com/charmbracelet/bubbletea/v2"
	"github.com/mattn/go-isatty"

	"tableflip.dev/teamviz/pkg/command"
	"tableflip.dev/teamviz/pkg/store"
)

// ErrNotTerminal is returned when stdout cannot host the TUI.
var ErrNotTerminal = errors.New("preview: stdout is not a terminal, use `teamviz state` instead")

// Preview runs the TUI.
type Preview struct {
	Store store.Store
	Keys  command.Keys
	Slots int
}

func (p *Preview) Do(ctx context.Context) error {
	fd := os.Stdout.Fd()
	if !isatty.IsTerminal(fd) && !isatty.IsCygwinTerminal(fd) {
		return ErrNotTerminal
	}
	m := New(ctx, p.Store, p.Keys, p.Slots)
	defer m.stopWatch()

	prog := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx))
	_, err := prog.Run()
	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return nil
	}
	return err
}
