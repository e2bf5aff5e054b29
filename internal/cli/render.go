package cli

import (
	"errors"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/fatih/color"

	"github.com/GriffinCanCode/codelab/internal/client"
	"github.com/GriffinCanCode/codelab/internal/domain/preview"
	"github.com/GriffinCanCode/codelab/internal/infrastructure/resilience"
	"github.com/GriffinCanCode/codelab/internal/preview/bridge"
)

var (
	dim    = color.New(color.Faint)
	bold   = color.New(color.Bold)
	good   = color.New(color.FgGreen)
	warn   = color.New(color.FgYellow)
	bad    = color.New(color.FgRed)
	accent = color.New(color.FgCyan)
	prompt = color.New(color.FgHiMagenta, color.Bold)
)

func disableColor() {
	color.NoColor = true
}

func levelColor(level bridge.Level) *color.Color {
	switch level {
	case bridge.LevelWarn:
		return warn
	case bridge.LevelError:
		return bad
	default:
		return accent
	}
}

func printEntry(w io.Writer, e preview.Entry) {
	fmt.Fprintf(w, "%s %s %s\n",
		dim.Sprint(e.Timestamp.Format("15:04:05")),
		levelColor(e.Level).Sprintf("%-5s", e.Level),
		e.Message,
	)
}

func newTable(w io.Writer) *tabwriter.Writer {
	return tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
}

func printError(w io.Writer, err error) {
	label := bad.Sprint("error:")
	var apiErr *client.APIError
	switch {
	case errors.Is(err, resilience.ErrCircuitOpen):
		fmt.Fprintln(w, label, "server unavailable, try again shortly")
	case client.IsRateLimited(err):
		fmt.Fprintln(w, label, "rate limited by the server, slow down")
	case errors.As(err, &apiErr):
		hint := dim.Sprintf("(%d)", apiErr.Status)
		if client.IsConflict(err) {
			hint = dim.Sprint("(409, try again when it finishes)")
		}
		fmt.Fprintln(w, label, apiErr.Message, hint)
	default:
		fmt.Fprintln(w, label, err)
	}
}

func yesNo(v bool) string {
	if v {
		return good.Sprint("yes")
	}
	return dim.Sprint("no")
}
