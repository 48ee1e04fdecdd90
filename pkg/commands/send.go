package commands

import (
	"strings"

	"github.com/spf13/cobra"

	"tableflip.dev/teamviz/pkg/commands/options"
	"tableflip.dev/teamviz/pkg/config"
	"tableflip.dev/teamviz/pkg/runner/send"
	"tableflip.dev/teamviz/pkg/widget"
)

func addSend(topLevel *cobra.Command) {
	so := &options.ServeOptions{}
	mo := &options.MessageOptions{}

	cmd := &cobra.Command{
		Use:   "send <text>",
		Short: "Send a chat message to a running overlay",
		Example: `
teamviz send -b '!team pikachu'
teamviz send -u misty '!team 2 ko'
`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := config.Read(); err != nil {
				return output.HandleError(err)
			}
			s := &send.Send{
				Addr: so.Address(),
				Message: widget.Message{
					User:        mo.User,
					Text:        strings.Join(args, " "),
					Moderator:   mo.Moderator,
					Broadcaster: mo.Broadcaster,
				},
				JSON: output.JSON,
			}
			return output.HandleError(s.Do(cmd.Context()))
		},
	}
	options.AddServeArgs(cmd, so)
	options.AddMessageArgs(cmd, mo)
	options.AddOutputArg(cmd, output)

	topLevel.AddCommand(cmd)
}
