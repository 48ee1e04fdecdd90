// Package state prints a persisted memento.
package state

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"github.com/fatih/color"
	"github.com/gosuri/uitable"
	"github.com/muesli/reflow/truncate"

	"tableflip.dev/teamviz/pkg/command"
	"tableflip.dev/teamviz/pkg/memento"
	"tableflip.dev/teamviz/pkg/slot"
	"tableflip.dev/teamviz/pkg/store"
)

// DefaultURLWidth bounds the image column of the table.
const DefaultURLWidth = 60

// State reads the status quo, or the manual save state, from Store.
type State struct {
	Store store.Store
	Keys  command.Keys
	Save  bool
	JSON  bool

	URLWidth uint
	Out      io.Writer
}

// Key is the store key that Do reads.
func (s *State) Key() string {
	if s.Save {
		return s.Keys.SaveState
	}
	return s.Keys.StatusQuo
}

// Do fetches and prints the memento.
func (s *State) Do(ctx context.Context) error {
	if s.Store == nil {
		return fmt.Errorf("state: no store")
	}
	raw, err := s.Store.Get(ctx, s.Key())
	if err != nil {
		return err
	}
	mem, err := memento.Decode(raw)
	if err != nil {
		return err
	}

	out := s.Out
	if out == nil {
		out = color.Output
	}
	if s.JSON {
		b, err := json.MarshalIndent(mem, "", "  ")
		if err != nil {
			return err
		}
		_, _ = fmt.Fprintln(out, string(b))
		return nil
	}
	s.Print(out, mem)
	return nil
}

// Print renders mem as a table, one row per slot.
func (s *State) Print(out io.Writer, mem memento.Memento) {
	width := s.URLWidth
	if width == 0 {
		width = DefaultURLWidth
	}
	bold := color.New(color.Bold)
	faint := color.New(color.Faint)
	red := color.New(color.FgRed)

	tbl := uitable.New()
	tbl.Separator = "  "
	tbl.AddRow(bold.Sprint("Slot"), bold.Sprint("Image"), bold.Sprint("KO"), bold.Sprint("Mirror"), bold.Sprint("Base"))
	for i, d := range mem {
		image := faint.Sprint("(empty)")
		if d.ForegroundURL != "" {
			image = truncate.StringWithTail(d.ForegroundURL, width, "…")
		}
		ko := ""
		if d.Incapacitated {
			ko = red.Sprint("KO")
		}
		tbl.AddRow(strconv.Itoa(i+1), image, ko, mirrored(d.Mirrored), base(d.MirrorBase))
	}
	tbl.RightAlign(0)

	_, _ = fmt.Fprintln(out, tbl)
}

func mirrored(f slot.Flags) string {
	switch {
	case f.X && f.Y:
		return "xy"
	case f.X:
		return "x"
	case f.Y:
		return "y"
	}
	return "-"
}

func base(v slot.Vector) string {
	return fmt.Sprintf("%g,%g", v.X, v.Y)
}
