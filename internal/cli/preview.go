package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/GriffinCanCode/codelab/internal/client"
	"github.com/GriffinCanCode/codelab/internal/domain/preview"
)

func newPreviewCommand(g *globals) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "preview",
		Aliases: []string{"pv"},
		Short:   "Open and control live previews",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			previews, err := g.client().Previews(cmd.Context())
			if err != nil {
				return err
			}
			if len(previews) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), dim.Sprint("no open previews"))
				return nil
			}
			tw := newTable(cmd.OutOrStdout())
			fmt.Fprintln(tw, bold.Sprint("ID")+"\tVIEWPORT\tSTATE\tRUNNING\tINSTANCE")
			for _, p := range previews {
				instance := p.Settings.Instance
				if instance == "" {
					instance = "-"
				}
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", p.ID, p.Settings.Viewport.Name, p.Settings.State, yesNo(p.Settings.Running), instance)
			}
			return tw.Flush()
		},
	}

	cmd.AddCommand(
		newOpenCommand(g),
		newLifecycleCommand(g, "reload", "Render immediately", (*client.Client).Reload),
		newLifecycleCommand(g, "restart", "Tear the sandbox down and render a fresh one", (*client.Client).Restart),
		newLifecycleCommand(g, "stop", "Clear the sandbox", (*client.Client).Stop),
		&cobra.Command{
			Use:   "close <id>",
			Short: "Close a preview",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				if err := g.client().ClosePreview(cmd.Context(), args[0]); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "closed %s\n", args[0])
				return nil
			},
		},
		&cobra.Command{
			Use:   "viewport <id> <name>",
			Short: "Select the viewport of the next render",
			Args:  cobra.ExactArgs(2),
			RunE: func(cmd *cobra.Command, args []string) error {
				vp, err := g.client().SetViewport(cmd.Context(), args[0], args[1])
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "viewport %s (%dx%d)\n", vp.Name, vp.Width, vp.Height)
				return nil
			},
		},
		newConsoleCommand(g),
		&cobra.Command{
			Use:   "stats <id>",
			Short: "Show render latency statistics",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				st, err := g.client().PreviewStats(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "renders: %d  loads: %d\n", st.Renders, st.Loads)
				fmt.Fprintf(out, "latency: mean %.1fms  p50 %.1fms  p95 %.1fms\n", st.MeanMs, st.P50Ms, st.P95Ms)
				return nil
			},
		},
	)
	return cmd
}

func newOpenCommand(g *globals) *cobra.Command {
	var (
		viewportName string
		manual       bool
		debounceMs   int
	)

	cmd := &cobra.Command{
		Use:   "open",
		Short: "Open a preview of the workspace",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			req := client.CreatePreview{}
			req.Viewport = viewportName
			if manual {
				off := false
				req.AutoReload = &off
			}
			if cmd.Flags().Changed("debounce") {
				req.DebounceMs = &debounceMs
			}

			p, err := g.client().CreatePreview(cmd.Context(), req)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), p.ID)
			return nil
		},
	}
	cmd.Flags().StringVar(&viewportName, "viewport", "", "viewport name (default Desktop)")
	cmd.Flags().BoolVar(&manual, "manual", false, "disable auto reload on edit")
	cmd.Flags().IntVar(&debounceMs, "debounce", 0, "debounce window in milliseconds")
	return cmd
}

type lifecycleFunc func(c *client.Client, ctx context.Context, id string) (preview.Settings, error)

func newLifecycleCommand(g *globals, use, short string, op lifecycleFunc) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <id>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			settings, err := op(g.client(), cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: %s (generation %d)\n", args[0], settings.State, settings.Generation)
			return nil
		},
	}
}

func newConsoleCommand(g *globals) *cobra.Command {
	var clearAfter bool

	cmd := &cobra.Command{
		Use:   "console <id>",
		Short: "Print a preview's console",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c := g.client()
			console, err := c.Console(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(console.Entries) == 0 {
				fmt.Fprintln(out, dim.Sprint("console is empty"))
			}
			for _, e := range console.Entries {
				printEntry(out, e)
			}
			if clearAfter {
				return c.ClearConsole(cmd.Context(), args[0])
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&clearAfter, "clear", false, "clear the console after printing")
	return cmd
}
