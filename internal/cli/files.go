package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
)

func newFilesCommand(g *globals) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "files",
		Short: "List and edit workspace files",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			files, err := g.client().Files(cmd.Context())
			if err != nil {
				return err
			}
			tw := newTable(cmd.OutOrStdout())
			for _, f := range files.Files {
				name := f.Name
				if name == files.Active {
					name = bold.Sprint(name) + accent.Sprint(" *")
				}
				fmt.Fprintf(tw, "%s\t%s\t%d bytes\n", name, f.Language, len(f.Content))
			}
			return tw.Flush()
		},
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "cat <name>",
			Short: "Print a file",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				f, err := g.client().File(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				fmt.Fprint(cmd.OutOrStdout(), f.Content)
				return nil
			},
		},
		newPutCommand(g),
		&cobra.Command{
			Use:   "rm <name>",
			Short: "Remove a file",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				if err := g.client().DeleteFile(cmd.Context(), args[0]); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "removed %s\n", args[0])
				return nil
			},
		},
		&cobra.Command{
			Use:   "use <name>",
			Short: "Make a file the one `run` executes",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				if err := g.client().SetActiveFile(cmd.Context(), args[0]); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "active file is now %s\n", args[0])
				return nil
			},
		},
	)
	return cmd
}

func newPutCommand(g *globals) *cobra.Command {
	var source, content string

	cmd := &cobra.Command{
		Use:   "put <name>",
		Short: "Create or replace a file from a local file or --content",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if source != "" {
				data, err := os.ReadFile(source)
				if err != nil {
					return err
				}
				content = string(data)
			}
			if !cmd.Flags().Changed("content") && source == "" {
				return fmt.Errorf("one of --from or --content is required")
			}

			name := args[0]
			if name == "." && source != "" {
				name = filepath.Base(source)
			}
			res, err := g.client().PutFile(cmd.Context(), name, content)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "saved %s (%d bytes)", res.File.Name, len(res.File.Content))
			if res.PreviewsRendered > 0 {
				fmt.Fprintf(cmd.OutOrStdout(), ", %d preview(s) updating", res.PreviewsRendered)
			}
			fmt.Fprintln(cmd.OutOrStdout())
			return nil
		},
	}
	cmd.Flags().StringVarP(&source, "from", "f", "", "local file to upload; use . as the name to keep its base name")
	cmd.Flags().StringVar(&content, "content", "", "file content")
	return cmd
}
