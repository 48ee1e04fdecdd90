package commands

import (
	"context"
	"fmt"
	"net"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"tableflip.dev/teamviz/pkg/commands/options"
	"tableflip.dev/teamviz/pkg/runner/mcp"
	"tableflip.dev/teamviz/pkg/runner/serve"
)

func addMCP(topLevel *cobra.Command) {
	so := &options.ServeOptions{}
	var transport string

	cmd := &cobra.Command{
		Use:   "mcp",
		Short: "start the Model Context Protocol server",
		Long: `Run the overlay and expose it to MCP clients. The http transport mounts the
MCP endpoint at /mcp on the overlay server; stdio talks MCP on stdin/stdout
while the overlay keeps serving browser sources.`,
		Example: `
teamviz mcp --transport stdio
teamviz mcp --addr 127.0.0.1:9000
`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.SilenceUsage = true
			w, hub, err := newOverlay(logger)
			if err != nil {
				return err
			}
			runner := mcp.Runner{Overlay: w, Name: "teamviz", Version: version}
			s := &serve.Server{
				Widget: w,
				Hub:    hub,
				Addr:   so.Address(),
				Logger: logger.Named("serve"),
			}

			switch mcp.Transport(strings.ToLower(strings.TrimSpace(transport))) {
			case "", mcp.TransportHTTP:
				s.MCP = runner.Handler()
				s.OnListening = func(a net.Addr) {
					_, _ = fmt.Fprintf(cmd.OutOrStdout(), "MCP HTTP server listening on http://%s/mcp\n", a)
				}
				return s.Do(cmd.Context())
			case mcp.TransportStdio:
				// Stdout belongs to the protocol.
				s.OnListening = func(a net.Addr) {
					logger.Info("overlay listening", zap.String("addr", a.String()))
				}
				ctx, cancel := context.WithCancel(cmd.Context())
				defer cancel()
				g, gctx := errgroup.WithContext(ctx)
				g.Go(func() error { return s.Do(gctx) })
				g.Go(func() error {
					defer cancel()
					return runner.Do(gctx)
				})
				return g.Wait()
			default:
				return fmt.Errorf("unsupported transport %q (expected http or stdio)", transport)
			}
		},
	}

	cmd.Flags().StringVar(&transport, "transport", string(mcp.TransportHTTP), "transport to use: http or stdio")
	options.AddServeArgs(cmd, so)

	topLevel.AddCommand(cmd)
}
