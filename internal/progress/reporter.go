package progress

import (
	"fmt"
	"io"
	"os"

	"github.com/schollz/progressbar/v3"

	"github.com/ziadkadry99/qnagen/internal/pipeline"
)

// Reporter provides progress feedback during a generation run.
type Reporter interface {
	Observe(ev pipeline.Event)
	Finish()
}

// NewReporter returns a TerminalReporter if running in an interactive terminal,
// or a CIReporter if the CI environment variable is set.
func NewReporter() Reporter {
	if os.Getenv("CI") != "" || os.Getenv("GITHUB_ACTIONS") != "" {
		return &CIReporter{out: os.Stderr}
	}
	return &TerminalReporter{out: os.Stderr}
}

// Func adapts a reporter to the orchestrator's progress callback.
func Func(r Reporter) pipeline.ProgressFunc {
	return r.Observe
}

// Describe renders an event as a short status line.
func Describe(ev pipeline.Event) string {
	switch ev.Stage {
	case pipeline.StateQuestion:
		return "Writing question"
	case pipeline.StateAnswer:
		return "Writing answer"
	case pipeline.StateConversation:
		if ev.Role == "" {
			return "Writing conversation"
		}
		return fmt.Sprintf("Writing conversation (%s)", ev.Role)
	default:
		return string(ev.Stage)
	}
}

// TerminalReporter displays one progress bar per stage in the terminal.
type TerminalReporter struct {
	out   io.Writer
	bar   *progressbar.ProgressBar
	stage pipeline.State
}

func (r *TerminalReporter) Observe(ev pipeline.Event) {
	if r.bar == nil || ev.Stage != r.stage {
		r.Finish()
		r.stage = ev.Stage
		r.bar = progressbar.NewOptions(ev.Total,
			progressbar.OptionSetWriter(r.out),
			progressbar.OptionSetDescription(Describe(ev)),
			progressbar.OptionSetWidth(40),
			progressbar.OptionShowCount(),
			progressbar.OptionClearOnFinish(),
		)
	}
	r.bar.Describe(Describe(ev))
	_ = r.bar.Set(ev.Done)
}

func (r *TerminalReporter) Finish() {
	if r.bar != nil {
		_ = r.bar.Finish()
		r.bar = nil
	}
}

// CIReporter prints line-by-line progress suitable for CI logs.
type CIReporter struct {
	out io.Writer
}

func (r *CIReporter) Observe(ev pipeline.Event) {
	if ev.Done == 0 {
		fmt.Fprintf(r.out, "%s\n", Describe(ev))
		return
	}
	fmt.Fprintf(r.out, "[%d/%d] %s\n", ev.Done, ev.Total, Describe(ev))
}

func (r *CIReporter) Finish() {
	fmt.Fprintln(r.out, "Generation complete")
}
