package commands

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"go.trai.ch/rig/internal/core/domain"
	"go.trai.ch/rig/internal/ui/style"
)

func (c *CLI) newListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List the declared targets",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			targets, err := c.app.List(cmd.Context(), c.dir)
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			for _, t := range targets {
				_, _ = fmt.Fprintln(w, style.Title.Render(t.Name.String()))
				if t.Description != "" {
					_, _ = fmt.Fprintf(w, "    %s\n", t.Description)
				}
				for _, line := range relations(t) {
					_, _ = fmt.Fprintf(w, "    %s\n", style.Muted.Render(line))
				}
			}
			return nil
		},
	}
}

func relations(t *domain.Target) []string {
	var lines []string
	add := func(label string, values []string) {
		if len(values) > 0 {
			lines = append(lines, label+": "+strings.Join(values, ", "))
		}
	}

	deps := make([]string, len(t.DependsOn))
	for i, d := range t.DependsOn {
		deps[i] = d.Name.String()
	}
	add("depends on", deps)
	add("before", domain.Strings(t.Before))
	add("try after", domain.Strings(t.TryAfter))
	add("try triggered by", domain.Strings(t.TryTriggeredBy))
	add("produces", t.Produces)
	add("consumes", t.Consumes)
	if t.WhenSkipped == domain.PolicyExecute {
		lines = append(lines, "when skipped: execute")
	}
	return lines
}
