package commands

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
	"go.trai.ch/rig/internal/app"
	"go.trai.ch/rig/internal/core/domain"
	"go.trai.ch/rig/internal/ui/style"
)

func (c *CLI) newPlanCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "plan [targets...]",
		Short: "Print the execution plan without running it",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			satisfied, _ := cmd.Flags().GetStringSlice("skip")

			res, err := c.app.Plan(cmd.Context(), args, app.PlanOptions{
				Dir:       c.dir,
				Satisfied: satisfied,
			})
			if err != nil {
				return err
			}
			printPlan(cmd.OutOrStdout(), res)
			return nil
		},
	}
	cmd.Flags().StringSlice("skip", nil, "Treat these targets as already succeeded")
	return cmd
}

func printPlan(w io.Writer, res *app.PlanResult) {
	plan := res.Plan
	_, _ = fmt.Fprintf(w, "%s %s\n", style.Title.Render("Plan"), style.Muted.Render(plan.Fingerprint()))

	for i, step := range plan.Steps {
		line := fmt.Sprintf("%3d. %s", i+1, step.Target.Name)
		if len(step.Deps) > 0 {
			line += style.Muted.Render(fmt.Sprintf("  %s %s", style.Arrow, strings.Join(domain.Strings(step.Deps), ", ")))
		}
		if len(step.After) > 0 {
			line += style.Muted.Render(fmt.Sprintf("  after %s", strings.Join(domain.Strings(step.After), ", ")))
		}
		_, _ = fmt.Fprintln(w, line)
	}

	if len(plan.Satisfied) > 0 {
		_, _ = fmt.Fprintf(w, "\n%s %s\n", style.Title.Render("Satisfied"),
			strings.Join(domain.Strings(plan.Satisfied), ", "))
	}

	if len(res.Artifacts) > 0 {
		_, _ = fmt.Fprintf(w, "\n%s\n", style.Title.Render("Expected artifacts"))
		for _, a := range res.Artifacts {
			_, _ = fmt.Fprintf(w, "  %s %s\n", a.Target, style.Muted.Render(a.Pattern))
		}
	}

	if len(res.Warnings) > 0 {
		_, _ = fmt.Fprintf(w, "\n%s\n", style.Title.Render("Warnings"))
		for _, warn := range res.Warnings {
			_, _ = fmt.Fprintf(w, "  %s %s\n", style.Skipped.Render(style.Warning), warn)
		}
	}
}
