package commands

import (
	"fmt"
	"net"

	"github.com/spf13/cobra"

	"tableflip.dev/teamviz/pkg/commands/options"
	"tableflip.dev/teamviz/pkg/runner/mcp"
	"tableflip.dev/teamviz/pkg/runner/serve"
)

func addServe(topLevel *cobra.Command) {
	so := &options.ServeOptions{}
	var withMCP bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the overlay for a browser source",
		Long: `Restore the last team, stream view frames to browser sources over /ws
and apply chat messages POSTed to /message. A pending save is written on exit.`,
		Example: `
teamviz serve
teamviz serve --addr 0.0.0.0:8087 --mcp
`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.SilenceUsage = true
			w, hub, err := newOverlay(logger)
			if err != nil {
				return err
			}
			s := &serve.Server{
				Widget: w,
				Hub:    hub,
				Addr:   so.Address(),
				Logger: logger.Named("serve"),
				OnListening: func(a net.Addr) {
					_, _ = fmt.Fprintf(cmd.OutOrStdout(), "overlay listening on http://%s\n", a)
				},
			}
			if withMCP {
				s.MCP = mcp.Runner{Overlay: w, Version: version}.Handler()
			}
			return s.Do(cmd.Context())
		},
	}
	options.AddServeArgs(cmd, so)
	cmd.Flags().BoolVar(&withMCP, "mcp", false, "Also serve MCP over streamable HTTP at /mcp.")

	topLevel.AddCommand(cmd)
}
