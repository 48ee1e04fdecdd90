package commands

import (
	"github.com/spf13/cobra"

	"tableflip.dev/teamviz/pkg/commands/options"
	"tableflip.dev/teamviz/pkg/runner/state"
	"tableflip.dev/teamviz/pkg/store"
	"tableflip.dev/teamviz/pkg/widget"
)

func addState(topLevel *cobra.Command) {
	so := &options.StateOptions{}

	cmd := &cobra.Command{
		Use:   "state",
		Short: "Print the persisted team",
		Example: `
teamviz state
teamviz state --save --json
`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := widget.LoadConfig()
			if err != nil {
				return output.HandleError(err)
			}
			st, err := store.Load(nil)
			if err != nil {
				return output.HandleError(err)
			}
			s := &state.State{
				Store: st,
				Keys:  widget.StoreKeys(cfg),
				Save:  so.Save,
				JSON:  output.JSON,
			}
			return output.HandleError(s.Do(cmd.Context()))
		},
	}
	options.AddStateArgs(cmd, so)
	options.AddOutputArg(cmd, output)

	topLevel.AddCommand(cmd)
}
