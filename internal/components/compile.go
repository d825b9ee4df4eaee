package components

import (
	"context"
	"errors"
	"strings"
	"sync"

	"go.trai.ch/rig/internal/core/domain"
	"golang.org/x/sync/errgroup"
)

func compileTarget(s Settings) *domain.Target {
	deps := domain.DependsOn(Clean, Restore)
	if s.VerifyFormatBeforeCompile {
		deps = append(deps, domain.DependsOn(VerifyFormat)...)
	}

	return &domain.Target{
		Name:        domain.NewInternedString(Compile),
		Description: "Compile the solution",
		DependsOn:   deps,
		WhenSkipped: domain.PolicySkip,
		Action: func(ctx context.Context, bc *domain.BuildContext) error {
			if v, ok := bc.Parameter(ParamVersion); ok && v != "" {
				bc.AddSummary("Version", v)
			}

			args := withProject([]string{"dotnet", "build"}, s.Solution)
			args = append(args, "--configuration", s.Configuration)
			if bc.Succeeded(Restore) {
				args = append(args, "--no-restore")
			}
			args = append(args, buildProperties(bc)...)
			if err := bc.Run(ctx, args...); err != nil {
				return err
			}

			return publish(ctx, bc, s)
		},
	}
}

// publish runs dotnet publish for every configured project. Repository and
// version properties are only stamped when push is part of the run.
func publish(ctx context.Context, bc *domain.BuildContext, s Settings) error {
	if len(s.Publish) == 0 {
		return nil
	}

	var props []string
	if bc.Scheduled(Push) {
		props = buildProperties(bc)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.PublishDegreeOfParallelism)
	for _, p := range s.Publish {
		args := []string{"dotnet", "publish", p.Project, "--configuration", s.Configuration, "--no-build", "--nologo"}
		if p.Framework != "" {
			args = append(args, "--framework", p.Framework)
		}
		args = append(args, props...)
		g.Go(func() error {
			return bc.Run(gctx, args...)
		})
	}
	return g.Wait()
}

// buildProperties returns the MSBuild properties derived from build parameters.
func buildProperties(bc *domain.BuildContext) []string {
	var props []string
	if remote, ok := bc.Parameter(domain.ParamGitRemote); ok {
		if url := httpsURL(remote); url != "" {
			props = append(props, "-p:RepositoryUrl="+url)
		}
	}
	if v, ok := bc.Parameter(ParamVersion); ok && v != "" {
		props = append(props, "-p:Version="+v)
	}
	return props
}

// httpsURL converts a git remote such as git@github.com:org/repo.git into
// https://github.com/org/repo. Unknown forms are returned unchanged.
func httpsURL(remote string) string {
	remote = strings.TrimSuffix(strings.TrimSpace(remote), ".git")
	switch {
	case remote == "":
		return ""
	case strings.HasPrefix(remote, "https://"):
		return remote
	case strings.HasPrefix(remote, "http://"):
		return "https://" + strings.TrimPrefix(remote, "http://")
	case strings.HasPrefix(remote, "ssh://"):
		rest := strings.TrimPrefix(remote, "ssh://")
		if _, host, ok := strings.Cut(rest, "@"); ok {
			rest = host
		}
		return "https://" + rest
	}
	if user, rest, ok := strings.Cut(remote, "@"); ok && !strings.Contains(user, "/") {
		host, repoPath, ok := strings.Cut(rest, ":")
		if ok {
			return "https://" + host + "/" + repoPath
		}
	}
	return remote
}

// runAll runs fn for every item with at most limit concurrent calls. Every
// item runs even when some fail; the failures are joined.
func runAll[T any](ctx context.Context, items []T, limit int, fn func(context.Context, T) error) error {
	var (
		mu   sync.Mutex
		errs []error
		g    errgroup.Group
	)
	g.SetLimit(limit)
	for _, item := range items {
		g.Go(func() error {
			if err := fn(ctx, item); err != nil {
				mu.Lock()
				errs = append(errs, err)
				mu.Unlock()
			}
			return nil
		})
	}
	_ = g.Wait()
	return errors.Join(errs...)
}
