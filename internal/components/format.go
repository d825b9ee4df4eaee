package components

import (
	"context"

	"go.trai.ch/rig/internal/core/domain"
)

func formatTarget(s Settings) *domain.Target {
	return &domain.Target{
		Name:        domain.NewInternedString(Format),
		Description: "Apply code style to the solution",
		Action: func(ctx context.Context, bc *domain.BuildContext) error {
			return bc.Run(ctx, formatArgs(s, false)...)
		},
	}
}

func verifyFormatTarget(s Settings) *domain.Target {
	return &domain.Target{
		Name:        domain.NewInternedString(VerifyFormat),
		Description: "Verify that the solution follows the code style",
		Action: func(ctx context.Context, bc *domain.BuildContext) error {
			return bc.Run(ctx, formatArgs(s, true)...)
		},
	}
}

func formatArgs(s Settings, verify bool) []string {
	args := withProject([]string{"dotnet", "format"}, s.Solution)
	if verify {
		args = append(args, "--verify-no-changes")
	}
	if len(s.FormatExclude) > 0 {
		args = append(args, "--exclude")
		args = append(args, s.FormatExclude...)
	}
	return args
}
