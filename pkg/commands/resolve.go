package commands

import (
	"github.com/spf13/cobra"

	"tableflip.dev/teamviz/pkg/commands/options"
	"tableflip.dev/teamviz/pkg/resolver"
	"tableflip.dev/teamviz/pkg/runner/resolve"
	"tableflip.dev/teamviz/pkg/widget"
)

func addResolve(topLevel *cobra.Command) {
	cmd := &cobra.Command{
		Use:   "resolve <name> [key...]",
		Short: "Look a name up in the configured document",
		Example: `
teamviz resolve pikachu
teamviz resolve charizard shiny
`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := widget.LoadConfig()
			if err != nil {
				return output.HandleError(err)
			}
			r := &resolve.Resolve{Args: args, JSON: output.JSON}
			if cfg.DocumentURL != "" {
				var opts []resolver.Option
				if cfg.ResolverBase != "" {
					opts = append(opts, resolver.WithBase(cfg.ResolverBase))
				}
				if r.Resolver, err = resolver.New(cfg.DocumentURL, opts...); err != nil {
					return output.HandleError(err)
				}
			}
			return output.HandleError(r.Do(cmd.Context()))
		},
	}
	options.AddOutputArg(cmd, output)

	topLevel.AddCommand(cmd)
}
