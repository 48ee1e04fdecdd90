package commands

import (
	"github.com/spf13/cobra"

	"tableflip.dev/teamviz/pkg/runner/preview"
	"tableflip.dev/teamviz/pkg/store"
	"tableflip.dev/teamviz/pkg/widget"
)

func addPreview(topLevel *cobra.Command) {
	cmd := &cobra.Command{
		Use:   "preview",
		Short: "Watch the persisted team in the terminal",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := widget.LoadConfig()
			if err != nil {
				return err
			}
			st, err := store.Load(nil)
			if err != nil {
				return err
			}
			p := &preview.Preview{
				Store: st,
				Keys:  widget.StoreKeys(cfg),
				Slots: cfg.SlotQuantity,
			}
			return p.Do(cmd.Context())
		},
	}

	topLevel.AddCommand(cmd)
}
