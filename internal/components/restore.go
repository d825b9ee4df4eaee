package components

import (
	"context"
	"os"

	"go.trai.ch/rig/internal/core/domain"
	"go.trai.ch/zerr"
)

func restoreTarget(s Settings) *domain.Target {
	return &domain.Target{
		Name:        domain.NewInternedString(Restore),
		Description: "Restore dependencies of the solution",
		Action: func(ctx context.Context, bc *domain.BuildContext) error {
			args := withProject([]string{"dotnet", "restore"}, s.Solution)
			if s.IgnoreFailedSources {
				args = append(args, "--ignore-failed-sources")
			}
			return bc.Run(ctx, args...)
		},
	}
}

func cleanTarget(s Settings) *domain.Target {
	return &domain.Target{
		Name:        domain.NewInternedString(Clean),
		Description: "Clean the solution and build artifacts",
		Before:      []domain.InternedString{domain.NewInternedString(Restore)},
		Action: func(ctx context.Context, bc *domain.BuildContext) error {
			if err := bc.Run(ctx, withProject([]string{"dotnet", "clean"}, s.Solution)...); err != nil {
				return err
			}
			if !s.CleansArtifacts() {
				return nil
			}
			return cleanDirectory(abs(bc, s.Artifacts))
		},
	}
}

// cleanDirectory removes dir with its contents and recreates it empty.
func cleanDirectory(dir string) error {
	if err := os.RemoveAll(dir); err != nil {
		return zerr.With(zerr.Wrap(err, "failed to clean directory"), "path", dir)
	}
	if err := os.MkdirAll(dir, domain.DirPerm); err != nil {
		return zerr.With(zerr.Wrap(err, "failed to create directory"), "path", dir)
	}
	return nil
}

func withProject(args []string, project string) []string {
	if project == "" {
		return args
	}
	return append(args, project)
}
