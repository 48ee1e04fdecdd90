package options

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// ServeOptions
type ServeOptions struct {
	Addr string
}

func AddServeArgs(cmd *cobra.Command, o *ServeOptions) {
	cmd.Flags().StringVar(&o.Addr, "addr", "",
		"Overlay address (default from serve.addr or TEAMVIZ_SERVE_ADDR).")
}

// Address prefers the flag over the configuration.
func (o *ServeOptions) Address() string {
	if o.Addr != "" {
		return o.Addr
	}
	return viper.GetString("serve.addr")
}
