package cli

import (
	"context"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/codelab/internal/client"
	"github.com/GriffinCanCode/codelab/internal/infrastructure/logging"
)

// globals holds the persistent flags shared by every command
type globals struct {
	server  string
	timeout time.Duration
	verbose bool
	noColor bool
}

// NewRootCommand builds the labctl command tree
func NewRootCommand() *cobra.Command {
	g := &globals{}

	root := &cobra.Command{
		Use:   "labctl",
		Short: "labctl drives a codelab server from the terminal",
		Long: "labctl lists and edits workspace files, opens live previews, " +
			"reads preview consoles and runs commands in the simulated terminal.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if g.noColor {
				disableColor()
			}
		},
	}

	server := os.Getenv("CODELAB_SERVER")
	if server == "" {
		server = client.DefaultOptions().BaseURL
	}
	flags := root.PersistentFlags()
	flags.StringVarP(&g.server, "server", "s", server, "codelab server URL (env CODELAB_SERVER)")
	flags.DurationVar(&g.timeout, "timeout", 10*time.Second, "per-request timeout")
	flags.BoolVarP(&g.verbose, "verbose", "v", false, "log every API call")
	flags.BoolVar(&g.noColor, "no-color", false, "disable colored output")

	root.AddCommand(
		newHealthCommand(g),
		newViewportsCommand(g),
		newFilesCommand(g),
		newPreviewCommand(g),
		newTerminalCommand(g),
		newRunCommand(g),
	)
	return root
}

// Execute runs labctl and returns the process exit code
func Execute(ctx context.Context) int {
	root := NewRootCommand()
	if err := root.ExecuteContext(ctx); err != nil {
		printError(root.ErrOrStderr(), err)
		return 1
	}
	return 0
}

func (g *globals) client() *client.Client {
	opts := client.DefaultOptions()
	opts.BaseURL = g.server
	opts.Timeout = g.timeout
	if g.verbose {
		if logger, err := logging.New(logging.Config{
			Level:       "debug",
			Development: true,
			OutputPaths: []string{"stderr"},
		}); err == nil {
			opts.Logger = logger.Logger
		}
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	return client.New(opts)
}
