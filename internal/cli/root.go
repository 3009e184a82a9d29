package cli

import (
	"github.com/spf13/cobra"

	"github.com/wesleyorama2/volley/internal/logging"
)

var version = "0.1.0"

// app carries state shared by every command of one invocation.
type app struct {
	logCfg logging.Config
	logger *logging.Logger
}

// NewRootCmd builds the command tree.
func NewRootCmd() *cobra.Command {
	a := &app{logCfg: logging.DefaultConfig()}

	rootCmd := &cobra.Command{
		Use:     "volley",
		Short:   "A fluent terminal HTTP client",
		Version: version,
		Long: `Volley sends HTTP requests built from a base URI, a body, headers and
transport options. Bodies go out as form parameters, JSON or a raw string.
Requests and suites can also be described in a YAML collection and run
repeatedly with latency statistics.`,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			a.logger = logging.New(a.logCfg, cmd.ErrOrStderr())
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			if a.logger == nil {
				return nil
			}
			return a.logger.Close()
		},
		Run: func(cmd *cobra.Command, args []string) {
			cmd.Help()
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&a.logCfg.Level, "log-level", a.logCfg.Level, "Log level (debug, info, warn, error)")
	flags.StringVar(&a.logCfg.Format, "log-format", a.logCfg.Format, "Log format (text, json)")
	flags.StringVar(&a.logCfg.File, "log-file", "", "Also write logs to this file, rotated by size")

	for _, verb := range []string{"get", "post", "put", "patch", "delete"} {
		rootCmd.AddCommand(newVerbCmd(a, verb))
	}
	rootCmd.AddCommand(newRequestCmd(a))
	rootCmd.AddCommand(newRunCmd(a))

	return rootCmd
}

// Execute runs the command tree against os.Args.
func Execute() error {
	return NewRootCmd().Execute()
}
