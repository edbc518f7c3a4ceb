package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/fatih/color"

	"github.com/albapepper/courtwatch/internal/rules"
)

var colors = struct {
	Success func(a ...any) string
	Error   func(a ...any) string
	Warning func(a ...any) string
	Muted   func(a ...any) string
	Heading func(a ...any) string
}{
	Success: color.New(color.FgGreen).SprintFunc(),
	Error:   color.New(color.FgRed).SprintFunc(),
	Warning: color.New(color.FgYellow).SprintFunc(),
	Muted:   color.New(color.FgHiBlack).SprintFunc(),
	Heading: color.New(color.FgWhite, color.Bold).SprintFunc(),
}

// statusColor colours a run or rule status.
func statusColor(status string) string {
	switch status {
	case string(rules.RunOK), string(rules.OutcomeSent):
		return colors.Success(status)
	case string(rules.RunFailed), string(rules.OutcomeError):
		return colors.Error(status)
	case string(rules.RunPartial):
		return colors.Warning(status)
	}
	return colors.Muted(status)
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func newTable(w io.Writer) *tabwriter.Writer {
	return tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
}

func printRun(w io.Writer, r *rules.RunResult) error {
	if jsonOutput {
		return printJSON(w, r)
	}
	fmt.Fprintf(w, "%s %s  %s  (%s, %s)\n",
		colors.Heading("Run"), r.ID, statusColor(string(r.Status)), r.Mode, r.Duration().Round(time.Millisecond))
	fmt.Fprintln(w, r.Summary)

	for _, f := range r.Feeds {
		if !f.OK {
			fmt.Fprintf(w, "  %s feed %s/%s: %s after %d attempts\n", colors.Error("✗"), f.Feed, f.Tour, f.Error, f.Attempts)
		}
	}

	tw := newTable(w)
	fmt.Fprintln(tw, "RULE\tEVENT\tSTATUS\tMATCHED\tSENT\tDEDUPED\tREASON")
	for _, row := range r.Rules {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%d\t%d\t%s\n",
			row.Name, row.EventType, statusColor(string(row.Status)), row.Matched, row.Sent, row.Deduped, row.Reason)
	}
	return tw.Flush()
}

func printRules(w io.Writer, list []rules.Rule) error {
	if jsonOutput {
		return printJSON(w, list)
	}
	if len(list) == 0 {
		fmt.Fprintln(w, colors.Muted("No rules"))
		return nil
	}
	tw := newTable(w)
	fmt.Fprintln(tw, "ID\tNAME\tEVENT\tTOUR\tENABLED\tCHANNELS\tLAST SENT")
	for _, r := range list {
		channels := make([]string, len(r.Channels))
		for i, c := range r.Channels {
			channels[i] = string(c)
		}
		last := "-"
		if !r.State.LastSentAt.IsZero() {
			last = r.State.LastSentAt.Local().Format("2006-01-02 15:04")
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%t\t%s\t%s\n",
			r.ID, r.Name, r.EventType, r.Tour, r.Enabled, strings.Join(channels, ","), last)
	}
	return tw.Flush()
}

func printHistory(w io.Writer, runs []rules.RunResult) error {
	if jsonOutput {
		return printJSON(w, runs)
	}
	if len(runs) == 0 {
		fmt.Fprintln(w, colors.Muted("No runs yet"))
		return nil
	}
	tw := newTable(w)
	fmt.Fprintln(tw, "STARTED\tMODE\tSTATUS\tMATCHED\tSENT\tSUMMARY")
	for _, r := range runs {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%d\t%s\n",
			r.StartedAt.Local().Format("2006-01-02 15:04:05"), r.Mode, statusColor(string(r.Status)), r.Matched, r.Sent, r.Summary)
	}
	return tw.Flush()
}

func printChannelResult(w io.Writer, res rules.ChannelResult) error {
	if jsonOutput {
		return printJSON(w, res)
	}
	line := fmt.Sprintf("%s: %s", res.Channel, statusColor(string(res.Status)))
	if res.Detail != "" {
		line += " (" + res.Detail + ")"
	}
	_, err := fmt.Fprintln(w, line)
	return err
}
