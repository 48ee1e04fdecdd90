package options

import (
	"github.com/spf13/cobra"
)

// StateOptions
type StateOptions struct {
	Save bool
}

func AddStateArgs(cmd *cobra.Command, o *StateOptions) {
	cmd.Flags().BoolVarP(&o.Save, "save", "s", false,
		"Use the manual save state instead of the status quo.")
}
