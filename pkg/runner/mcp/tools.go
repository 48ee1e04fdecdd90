package mcp

import (
	"context"
	"fmt"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"tableflip.dev/teamviz/pkg/memento"
	"tableflip.dev/teamviz/pkg/widget"
)

// Overlay is the part of a widget the tools drive.
type Overlay interface {
	Config() widget.Config
	Handle(ctx context.Context, msg widget.Message) (widget.Result, error)
	Snapshot() memento.Memento
}

// CommandInput is a command without the trigger phrase.
type CommandInput struct {
	Args string `json:"args" jsonschema:"command arguments such as '2 pikachu' or 'undo'"`
	User string `json:"user,omitempty" jsonschema:"name reported in logs"`
}

// CommandResult reports the outcome of one command.
type CommandResult struct {
	Status  string   `json:"status"`
	Changed bool     `json:"changed"`
	Args    []string `json:"args,omitempty"`
	Errors  []string `json:"errors,omitempty"`
}

// StateInput is empty.
type StateInput struct{}

// StateResult lists every slot.
type StateResult struct {
	Slots memento.Memento `json:"slots"`
}

func registerTools(srv *mcp.Server, o Overlay) {
	mcp.AddTool(srv, &mcp.Tool{
		Name:        "overlay_command",
		Description: "Run a chat command on the overlay as the broadcaster.",
	}, commandHandler(o))
	mcp.AddTool(srv, &mcp.Tool{
		Name:        "overlay_state",
		Description: "Read the current image, KO and mirror state of every slot.",
	}, stateHandler(o))
}

func commandHandler(o Overlay) mcp.ToolHandlerFor[CommandInput, CommandResult] {
	return func(ctx context.Context, _ *mcp.CallToolRequest, in CommandInput) (*mcp.CallToolResult, CommandResult, error) {
		args := strings.TrimSpace(in.Args)
		if args == "" {
			return nil, CommandResult{}, fmt.Errorf("args are required")
		}
		user := in.User
		if user == "" {
			user = "mcp"
		}
		// A command runs to completion even if the client goes away.
		res, err := o.Handle(context.WithoutCancel(ctx), widget.Message{
			User:        user,
			Text:        o.Config().Command + " " + args,
			Broadcaster: true,
		})
		if err != nil {
			return nil, CommandResult{}, err
		}
		out := CommandResult{Status: res.Status.String(), Changed: res.Changed, Args: res.Args}
		for i, e := range res.Outcome.Results {
			if e != nil {
				out.Errors = append(out.Errors, fmt.Sprintf("#%d: %v", res.Outcome.Slot(i), e))
			}
		}
		return nil, out, nil
	}
}

func stateHandler(o Overlay) mcp.ToolHandlerFor[StateInput, StateResult] {
	return func(context.Context, *mcp.CallToolRequest, StateInput) (*mcp.CallToolResult, StateResult, error) {
		return nil, StateResult{Slots: o.Snapshot()}, nil
	}
}
