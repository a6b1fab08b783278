package presenter

import (
	"fmt"
	"io"
	"text/tabwriter"
)

// TerminalView prints results to a writer. It is not safe for concurrent
// use; drive it from a single render goroutine.
type TerminalView struct {
	out    io.Writer
	errOut io.Writer
	failed bool
}

func NewTerminalView(out, errOut io.Writer) *TerminalView {
	return &TerminalView{out: out, errOut: errOut}
}

func (v *TerminalView) ShowWeather(view WeatherView) {
	fmt.Fprintf(v.out, "\n%s\n", view.City)

	tw := tabwriter.NewWriter(v.out, 0, 0, 2, ' ', 0)
	if view.Description != "" {
		fmt.Fprintf(tw, "Condition:\t%s\n", view.Description)
	}
	fmt.Fprintf(tw, "Temperature:\t%d°C\n", view.Temp)
	fmt.Fprintf(tw, "Min:\t%d°C\n", view.MinTemp)
	fmt.Fprintf(tw, "Max:\t%d°C\n", view.MaxTemp)
	tw.Flush()
}

func (v *TerminalView) ShowError(message string) {
	v.failed = true
	fmt.Fprintf(v.errOut, "Error: %s\n", message)
}

// Failed reports whether ShowError has been called.
func (v *TerminalView) Failed() bool {
	return v.failed
}
