// Package shell provides a pty-backed executor for target commands.
package shell

import (
	"context"
	"errors"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"slices"
	"strings"

	"github.com/creack/pty"
	"go.trai.ch/rig/internal/core/domain"
	"go.trai.ch/rig/internal/core/ports"
	"go.trai.ch/zerr"
)

// allowListedEnvVars are the system environment variables a hermetic
// executor still inherits so that basic system tools keep working.
var allowListedEnvVars = []string{"HOME", "TERM", "USER", "PATH"}

// Executor implements ports.Executor using os/exec and a pseudo terminal.
type Executor struct {
	hermetic bool
	passEnv  []string
}

var _ ports.Executor = (*Executor)(nil)

// Option configures an Executor.
type Option func(*Executor)

// WithHermetic restricts the inherited system environment to a small allow-list
// plus the names in pass.
func WithHermetic(pass ...string) Option {
	return func(e *Executor) {
		e.hermetic = true
		e.passEnv = append(e.passEnv, pass...)
	}
}

// NewExecutor creates a new Executor. By default commands inherit the full
// system environment.
func NewExecutor(opts ...Option) *Executor {
	e := &Executor{}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Execute runs cmd and waits for it to complete. Output of the pseudo terminal
// is copied to stdout; when no terminal is available stdout and stderr are kept apart.
func (e *Executor) Execute(ctx context.Context, cmd domain.Command, stdout, stderr io.Writer) error {
	if len(cmd.Args) == 0 {
		return nil
	}

	c := e.command(ctx, cmd)

	wait, err := startPTY(c, stdout)
	if errors.Is(err, pty.ErrUnsupported) {
		c = e.command(ctx, cmd)
		wait, err = startPipes(c, stdout, stderr)
	}
	if err != nil {
		return zerr.With(zerr.Wrap(err, "failed to start command"), "command", cmd.Args[0])
	}

	if err := wait(); err != nil {
		exitCode := -1
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			exitCode = exitErr.ExitCode()
		}
		return zerr.With(zerr.Wrap(err, "command failed"), "exit_code", exitCode)
	}
	return nil
}

func (e *Executor) command(ctx context.Context, cmd domain.Command) *exec.Cmd {
	name := cmd.Args[0]
	env := e.resolveEnvironment(os.Environ(), cmd.Environment)

	// Resolve against the command's own PATH, not the parent's.
	executable := name
	if !filepath.IsAbs(name) {
		if lp, err := lookPath(name, env); err == nil {
			executable = lp
		}
	}

	c := exec.CommandContext(ctx, executable, cmd.Args[1:]...) //nolint:gosec // user provided command
	c.Args[0] = name
	c.Dir = cmd.WorkingDir
	c.Env = env
	return c
}

func startPTY(c *exec.Cmd, stdout io.Writer) (func() error, error) {
	ptmx, err := pty.Start(c)
	if err != nil {
		return nil, err
	}

	ioDone := make(chan struct{})
	go func() {
		defer close(ioDone)
		defer func() { _ = ptmx.Close() }()
		// The pty merges stdout and stderr.
		_, _ = io.Copy(stdout, ptmx)
	}()

	return func() error {
		err := c.Wait()
		<-ioDone
		return err
	}, nil
}

func startPipes(c *exec.Cmd, stdout, stderr io.Writer) (func() error, error) {
	c.Stdout = stdout
	c.Stderr = stderr
	if err := c.Start(); err != nil {
		return nil, err
	}
	return c.Wait, nil
}

// resolveEnvironment builds the command environment. Command variables win
// over inherited ones. The result is sorted for reproducible runs.
func (e *Executor) resolveEnvironment(sysEnv []string, cmdEnv map[string]string) []string {
	envMap := make(map[string]string, len(sysEnv)+len(cmdEnv))
	for _, entry := range sysEnv {
		k, v, ok := strings.Cut(entry, "=")
		if !ok {
			continue
		}
		if e.hermetic && !slices.Contains(allowListedEnvVars, k) && !slices.Contains(e.passEnv, k) {
			continue
		}
		envMap[k] = v
	}

	for k, v := range cmdEnv {
		envMap[k] = v
	}

	result := make([]string, 0, len(envMap))
	for k, v := range envMap {
		result = append(result, k+"="+v)
	}
	slices.Sort(result)
	return result
}

// lookPath searches for an executable in the directories named by the PATH entry of env.
func lookPath(file string, env []string) (string, error) {
	var path string
	for _, e := range env {
		if after, ok := strings.CutPrefix(e, "PATH="); ok {
			path = after
			break
		}
	}

	if path == "" {
		return "", exec.ErrNotFound
	}

	for _, dir := range filepath.SplitList(path) {
		if dir == "" {
			// Unix shell semantics: path element "" means "."
			dir = "."
		}
		candidate := filepath.Join(dir, file)
		if err := findExecutable(candidate); err == nil {
			return candidate, nil
		}
	}
	return "", exec.ErrNotFound
}

func findExecutable(file string) error {
	d, err := os.Stat(file)
	if err != nil {
		return err
	}
	if m := d.Mode(); !m.IsDir() && m&0o111 != 0 {
		return nil
	}
	return os.ErrPermission
}
