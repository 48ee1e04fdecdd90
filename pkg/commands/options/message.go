package options

import (
	"github.com/spf13/cobra"
)

// MessageOptions describe the sender of a chat message.
type MessageOptions struct {
	User        string
	Moderator   bool
	Broadcaster bool
}

func AddMessageArgs(cmd *cobra.Command, o *MessageOptions) {
	cmd.Flags().StringVarP(&o.User, "user", "u", "",
		"Chat user sending the message.")
	cmd.Flags().BoolVar(&o.Moderator, "mod", false,
		"Send as a moderator.")
	cmd.Flags().BoolVarP(&o.Broadcaster, "broadcaster", "b", false,
		"Send as the broadcaster.")
}
