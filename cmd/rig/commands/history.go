package commands

import (
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"
	"go.trai.ch/rig/internal/app"
	"go.trai.ch/rig/internal/core/domain"
	"go.trai.ch/rig/internal/ui/style"
)

func (c *CLI) newHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history [run-id]",
		Short: "Show stored run reports",
		Long: "Without arguments, prints the most recent run. With a run id, prints that run.\n" +
			"With --limit, lists that many recent runs.",
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			limit, _ := cmd.Flags().GetInt("limit")

			opts := app.HistoryOptions{Dir: c.dir, Limit: limit}
			switch {
			case len(args) == 1:
				opts.RunID = args[0]
			case limit == 0:
				opts.RunID = "latest"
			}

			reports, err := c.app.History(cmd.Context(), opts)
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			if opts.RunID != "" {
				for _, r := range reports {
					printReport(w, r)
				}
				return nil
			}
			for _, r := range reports {
				printRunLine(w, r)
			}
			return nil
		},
	}
	cmd.Flags().IntP("limit", "n", 0, "List this many recent runs")
	return cmd
}

func verdict(r *domain.Report) string {
	if r.Success() {
		return style.Success.Render("succeeded")
	}
	return style.Failure.Render("failed")
}

func printRunLine(w io.Writer, r *domain.Report) {
	_, _ = fmt.Fprintf(w, "%s  %s  %-9s  %s  %v\n",
		r.RunID,
		r.Started.Local().Format(time.DateTime),
		verdict(r),
		style.Muted.Render(fmt.Sprint(r.Requested)),
		r.Duration().Round(time.Millisecond),
	)
}

func printReport(w io.Writer, r *domain.Report) {
	_, _ = fmt.Fprintf(w, "%s %s %s\n", style.Title.Render("Run"), r.RunID, verdict(r))
	_, _ = fmt.Fprintf(w, "  started:     %s\n", r.Started.Local().Format(time.DateTime))
	_, _ = fmt.Fprintf(w, "  duration:    %v\n", r.Duration().Round(time.Millisecond))
	_, _ = fmt.Fprintf(w, "  fingerprint: %s\n\n", r.Fingerprint)

	for _, o := range r.Targets {
		_, _ = fmt.Fprintf(w, "  %s %s%s\n", icon(o.Status), o.Name, style.Muted.Render(detail(o)))
		for _, entry := range o.Summary {
			_, _ = fmt.Fprintf(w, "      %s: %s\n", entry.Key, entry.Value)
		}
	}
}

func icon(s domain.Status) string {
	switch s {
	case domain.StatusSucceeded:
		return style.Success.Render(style.Check)
	case domain.StatusFailed:
		return style.Failure.Render(style.Cross)
	case domain.StatusSkipped:
		return style.Skipped.Render(style.Skip)
	default:
		return style.Muted.Render(style.Circle)
	}
}

func detail(o domain.Outcome) string {
	switch o.Status {
	case domain.StatusFailed:
		return "  " + o.Error
	case domain.StatusSkipped:
		if o.Cause != "" {
			return fmt.Sprintf("  %s (%s)", o.Reason, o.Cause)
		}
		return "  " + string(o.Reason)
	case domain.StatusSucceeded:
		return fmt.Sprintf("  %v", o.Duration.Round(time.Millisecond))
	default:
		return ""
	}
}
