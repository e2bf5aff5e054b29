package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newHealthCommand(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Show server health",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			h, err := g.client().Health(cmd.Context())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s %s\n", bold.Sprint("status:"), good.Sprint(h.Status))
			fmt.Fprintf(out, "previews:  %d\n", h.PreviewSessions)
			fmt.Fprintf(out, "terminals: %d\n", h.TerminalSessions)
			fmt.Fprintf(out, "files:     %d\n", h.WorkspaceFiles)
			fmt.Fprintf(out, "uptime:    %.0fs\n", h.UptimeSeconds)
			return nil
		},
	}
}

func newViewportsCommand(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "viewports",
		Short: "List preview viewport sizes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			vps, err := g.client().Viewports(cmd.Context())
			if err != nil {
				return err
			}
			tw := newTable(cmd.OutOrStdout())
			for _, vp := range vps.Viewports {
				marker := ""
				if vp.Name == vps.Default {
					marker = accent.Sprint("default")
				}
				fmt.Fprintf(tw, "%s\t%dx%d\t%s\n", vp.Name, vp.Width, vp.Height, marker)
			}
			return tw.Flush()
		},
	}
}
