package commands

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	base "github.com/n3wscott/cli-base/pkg/commands/options"

	"tableflip.dev/teamviz/pkg/commands/options"
)

var (
	output  = &options.OutputOptions{}
	logging = &options.LoggingOptions{}
	logger  = zap.NewNop()
)

func New() *cobra.Command {

	cmd := &cobra.Command{
		Use:   "teamviz",
		Short: base.Wrap80("Chat driven monster team overlay for stream browser sources."),
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			l, err := logging.Logger()
			if err != nil {
				return err
			}
			logger = l
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			_ = logger.Sync()
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}
	options.AddLoggingArgs(cmd, logging)

	AddCommands(cmd)
	return cmd
}

func AddCommands(topLevel *cobra.Command) {
	addServe(topLevel)
	addSend(topLevel)
	addResolve(topLevel)
	addState(topLevel)
	addPreview(topLevel)
	addMCP(topLevel)
	addVersion(topLevel)
	addCompletions(topLevel)
	addUpgrade(topLevel)
}
