// Package command interprets parsed chat arguments against the overlay slots.
package command

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"tableflip.dev/teamviz/pkg/barrier"
	"tableflip.dev/teamviz/pkg/memento"
	"tableflip.dev/teamviz/pkg/slot"
)

// Reserved keywords, lower case.
const (
	Wildcard  = "*"
	Clear     = "clear"
	KO        = "ko"
	OK        = "ok"
	Mirror    = "mirror"
	MirrorY   = "mirrory"
	Undo      = "undo"
	SaveState = "savestate"
	LoadState = "loadstate"
	Reload    = "reload"
)

// Resolver turns arguments into an image URL.
type Resolver interface {
	Query(ctx context.Context, args []string) (string, error)
}

// Keys are the store keys of one widget.
type Keys struct {
	Base      string `json:"base"`
	StatusQuo string `json:"statusQuo"`
	SaveState string `json:"saveState"`
}

// Outcome collects the per-slot results of one command.
type Outcome struct {
	Results []error

	// Slots holds the 1-based slot number of each result. Nil means the
	// results cover every slot in order.
	Slots []int
}

// Slot returns the 1-based slot number Results[i] belongs to.
func (o Outcome) Slot(i int) int {
	if o.Slots != nil {
		return o.Slots[i]
	}
	return i + 1
}

// Changed is true when at least one slot operation succeeded.
func (o Outcome) Changed() bool {
	for _, err := range o.Results {
		if err == nil {
			return true
		}
	}
	return false
}

// Interpreter dispatches commands. It must not run two commands at once.
type Interpreter struct {
	Mementos *memento.Manager
	History  *memento.History
	Resolver Resolver // nil disables name resolution
	Keys     Keys

	// OnSaveState is called after a save state was written.
	OnSaveState func()

	Logger *zap.Logger
}

func (in *Interpreter) log() *zap.Logger {
	if in.Logger == nil {
		return zap.NewNop()
	}
	return in.Logger
}

func (in *Interpreter) slots() []*slot.Slot { return in.Mementos.Slots }

// Interpret runs args. args[1] is checked for a per-slot keyword first, then
// args[0] for a global one; anything else is resolved to an image.
func (in *Interpreter) Interpret(ctx context.Context, args []string) (Outcome, error) {
	if len(args) == 0 {
		return Outcome{}, nil
	}
	if len(args) > 1 {
		if op := perSlot(args[1]); op != nil {
			return in.each(ctx, Targets(args[0], len(in.slots())), op), nil
		}
	}

	switch args[0] {
	case Undo:
		prev, ok := in.History.Pop()
		if !ok {
			return Outcome{}, nil
		}
		return Outcome{Results: in.Mementos.Restore(ctx, prev)}, nil

	case SaveState:
		if err := in.Mementos.Save(ctx, in.Keys.SaveState); err != nil {
			return Outcome{}, fmt.Errorf("save state: %w", err)
		}
		if in.OnSaveState != nil {
			in.OnSaveState()
		}
		return Outcome{}, nil

	case LoadState:
		results, err := in.Mementos.Load(ctx, in.Keys.SaveState)
		if err != nil {
			return Outcome{}, fmt.Errorf("load state: %w", err)
		}
		return Outcome{Results: results}, nil

	case Reload:
		// Never reported as a change.
		if _, err := in.Mementos.Load(ctx, in.Keys.StatusQuo); err != nil {
			return Outcome{}, fmt.Errorf("reload: %w", err)
		}
		return Outcome{}, nil
	}

	if in.Resolver == nil {
		return Outcome{}, nil
	}
	url, err := in.Resolver.Query(ctx, args[1:])
	if err != nil {
		// Every target still takes part so the cohort count holds.
		in.log().Info("name not resolved", zap.Strings("args", args[1:]), zap.Error(err))
		url = ""
	}
	targets := Targets(args[0], len(in.slots()))
	b := barrier.New(len(targets))
	return in.each(ctx, targets, func(ctx context.Context, s *slot.Slot) error {
		return s.SwapForeground(ctx, url, b)
	}), nil
}

func (in *Interpreter) each(ctx context.Context, targets []int, op func(context.Context, *slot.Slot) error) Outcome {
	all := in.slots()
	picked := make([]*slot.Slot, len(targets))
	numbers := make([]int, len(targets))
	for i, t := range targets {
		picked[i] = all[t]
		numbers[i] = t + 1
	}
	return Outcome{
		Results: slot.Each(ctx, picked, func(ctx context.Context, _ int, s *slot.Slot) error {
			return op(ctx, s)
		}),
		Slots: numbers,
	}
}

func perSlot(keyword string) func(context.Context, *slot.Slot) error {
	switch keyword {
	case Clear:
		return func(ctx context.Context, s *slot.Slot) error { return s.ClearForeground(ctx) }
	case KO:
		return func(ctx context.Context, s *slot.Slot) error { return s.ApplyKO(ctx) }
	case OK:
		return func(ctx context.Context, s *slot.Slot) error { return s.UndoKO(ctx) }
	case Mirror:
		return func(ctx context.Context, s *slot.Slot) error { return s.MirrorX(ctx) }
	case MirrorY:
		return func(ctx context.Context, s *slot.Slot) error { return s.MirrorY(ctx) }
	}
	return nil
}
