package components

import (
	"context"
	"errors"
	"os"
	"path"
	"path/filepath"
	"strconv"

	"go.trai.ch/rig/internal/core/domain"
	"go.trai.ch/zerr"
)

var errNoPackages = zerr.New("no packages to push")

func packTarget(s Settings) *domain.Target {
	return &domain.Target{
		Name:        domain.NewInternedString(Pack),
		Description: "Create NuGet packages for the solution",
		DependsOn:   domain.DependsOn(Compile),
		TryAfter:    []domain.InternedString{domain.NewInternedString(Test)},
		Produces:    []string{path.Join(s.PackagesDir(), "*.nupkg")},
		Action: func(ctx context.Context, bc *domain.BuildContext) error {
			packagesDir := abs(bc, s.PackagesDir())

			args := withProject([]string{"dotnet", "pack"}, s.Solution)
			args = append(args, "--configuration", s.Configuration)
			if bc.Succeeded(Compile) {
				args = append(args, "--no-build")
			}
			args = append(args, "-p:PackageOutputPath="+packagesDir)
			args = append(args, buildProperties(bc)...)
			if err := bc.Run(ctx, args...); err != nil {
				return err
			}

			packages, err := filepath.Glob(filepath.Join(packagesDir, "*.nupkg"))
			if err != nil {
				return zerr.Wrap(err, "failed to list packages")
			}
			bc.AddSummary("Packages", strconv.Itoa(len(packages)))
			return nil
		},
	}
}

func pushTarget(s Settings) *domain.Target {
	return &domain.Target{
		Name:        domain.NewInternedString(Push),
		Description: "Push NuGet packages to the package source",
		DependsOn:   domain.DependsOn(Pack),
		WhenSkipped: domain.PolicyExecute,
		Consumes:    []string{domain.TargetArtifactPrefix + Pack},
		Requirements: []domain.Requirement{
			{
				Description: "the current commit is tagged",
				Check: func(_ context.Context, bc *domain.BuildContext) error {
					if tags, ok := bc.Parameter(domain.ParamGitTags); ok && tags != "" {
						return nil
					}
					return zerr.New("no git tag points at HEAD")
				},
			},
			{
				Description: s.PushAPIKeyEnv + " is set",
				Check: func(_ context.Context, bc *domain.BuildContext) error {
					if apiKey(bc, s.PushAPIKeyEnv) != "" {
						return nil
					}
					return zerr.With(zerr.New("package source API key is missing"), "variable", s.PushAPIKeyEnv)
				},
			},
		},
		Action: func(ctx context.Context, bc *domain.BuildContext) error {
			packages, err := filepath.Glob(filepath.Join(abs(bc, s.PackagesDir()), "*.nupkg"))
			if err != nil {
				return zerr.Wrap(err, "failed to list packages")
			}
			if len(packages) == 0 {
				return zerr.With(zerr.Wrap(errNoPackages, "nothing to push"), "path", s.PackagesDir())
			}

			key := apiKey(bc, s.PushAPIKeyEnv)
			var errs []error
			for _, pkg := range packages {
				err := bc.Run(ctx, "dotnet", "nuget", "push", pkg,
					"--source", s.PushSource,
					"--api-key", key,
					"--skip-duplicate",
				)
				if err != nil {
					errs = append(errs, err)
				}
			}
			bc.AddSummary("Pushed", strconv.Itoa(len(packages)-len(errs)))
			return errors.Join(errs...)
		},
	}
}

// apiKey reads name from the build parameters, falling back to the process
// environment.
func apiKey(bc *domain.BuildContext, name string) string {
	if v, ok := bc.Parameter(name); ok && v != "" {
		return v
	}
	return os.Getenv(name)
}
