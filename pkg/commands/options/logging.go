package options

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// LoggingOptions
type LoggingOptions struct {
	Debug bool
	Quiet bool
}

func AddLoggingArgs(cmd *cobra.Command, o *LoggingOptions) {
	cmd.PersistentFlags().BoolVar(&o.Debug, "debug", false,
		"Log at debug level.")
	cmd.PersistentFlags().BoolVarP(&o.Quiet, "quiet", "q", false,
		"Only log errors.")
}

// Logger builds the process logger. Logs go to stderr so stdout stays free
// for command output and the MCP stdio transport.
func (o *LoggingOptions) Logger() (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Encoding = "console"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	cfg.OutputPaths = []string{"stderr"}
	switch {
	case o.Debug:
		cfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
		cfg.Development = true
	case o.Quiet:
		cfg.Level = zap.NewAtomicLevelAt(zap.ErrorLevel)
	}
	return cfg.Build()
}
