package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/GriffinCanCode/codelab/internal/client"
	"github.com/GriffinCanCode/codelab/internal/domain/terminal"
)

const pollInterval = 50 * time.Millisecond

func newTerminalCommand(g *globals) *cobra.Command {
	var keep bool

	cmd := &cobra.Command{
		Use:     "terminal [id]",
		Aliases: []string{"term"},
		Short:   "Open an interactive terminal session",
		Long: "Opens a terminal session, or attaches to an existing one, and reads " +
			"commands from stdin. Type exit to leave.",
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			c := g.client()

			id, created, err := attach(ctx, c, args)
			if err != nil {
				return err
			}
			if created && !keep {
				defer func() { _ = c.CloseTerminal(context.Background(), id) }()
			}

			stream, err := c.StreamTerminal(ctx, id)
			if err != nil {
				return err
			}
			defer stream.Close()

			return repl(cmd.InOrStdin(), cmd.OutOrStdout(), stream)
		},
	}
	cmd.Flags().BoolVar(&keep, "keep", false, "leave a newly created session open on exit")
	return cmd
}

func attach(ctx context.Context, c *client.Client, args []string) (id string, created bool, err error) {
	if len(args) == 1 {
		return args[0], false, nil
	}
	snap, err := c.CreateTerminal(ctx)
	if err != nil {
		return "", false, err
	}
	return string(snap.ID), true, nil
}

// repl sends one line at a time and waits for the session to go idle
// before prompting again
func repl(in io.Reader, out io.Writer, stream *client.TerminalStream) error {
	snap := stream.Snapshot()
	fmt.Fprintln(out, dim.Sprintf("connected to %s, type help for commands", snap.ID))
	for _, line := range snap.Scrollback {
		fmt.Fprintln(out, line)
	}

	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(out, prompt.Sprint("$ "))
		if !scanner.Scan() {
			fmt.Fprintln(out)
			return scanner.Err()
		}

		line := strings.TrimSpace(scanner.Text())
		switch line {
		case "":
			continue
		case "exit", "quit":
			return nil
		}

		if err := stream.Send(line); err != nil {
			return err
		}
		if !drain(out, stream, "$ "+line) {
			fmt.Fprintln(out, dim.Sprint("session closed"))
			return nil
		}
	}
}

// drain prints updates until the session is idle. It returns false when
// the stream ended.
func drain(out io.Writer, stream *client.TerminalStream, echo string) bool {
	for u := range stream.Updates() {
		if u.Error != "" {
			fmt.Fprintln(out, bad.Sprint(u.Error))
			return true
		}
		if u.Event.Type == terminal.EventCleared {
			fmt.Fprint(out, "\033[H\033[2J")
			return true
		}
		for _, l := range u.Event.Lines {
			if l == echo {
				continue
			}
			fmt.Fprintln(out, l)
		}
		if u.Event.Busy {
			fmt.Fprintln(out, dim.Sprint("running..."))
			continue
		}
		return true
	}
	return false
}

func newRunCommand(g *globals) *cobra.Command {
	var timeout time.Duration

	cmd := &cobra.Command{
		Use:   "run <command...>",
		Short: "Run one terminal command and print its output",
		Example: "  labctl run run main.py\n" +
			"  labctl run echo hello",
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()
			c := g.client()

			term, err := c.CreateTerminal(ctx)
			if err != nil {
				return err
			}
			id := string(term.ID)
			defer func() { _ = c.CloseTerminal(context.Background(), id) }()

			line := strings.Join(args, " ")
			snap, err := c.Submit(ctx, id, line)
			if err != nil {
				return err
			}
			for snap.Busy {
				select {
				case <-ctx.Done():
					return ctx.Err()
				case <-time.After(pollInterval):
				}
				if snap, err = c.Terminal(ctx, id); err != nil {
					return err
				}
			}

			for _, l := range snap.Scrollback {
				if l != "$ "+line {
					fmt.Fprintln(cmd.OutOrStdout(), l)
				}
			}
			return nil
		},
	}
	cmd.Flags().DurationVar(&timeout, "wait", 30*time.Second, "how long to wait for the command to finish")
	return cmd
}
