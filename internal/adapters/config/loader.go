// Package config provides the build definition loader for rig.
package config

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"maps"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"go.trai.ch/rig/internal/components"
	"go.trai.ch/rig/internal/core/domain"
	"go.trai.ch/rig/internal/core/ports"
	"go.trai.ch/zerr"
	"gopkg.in/yaml.v3"
)

const supportedVersion = "1"

// Loader implements ports.ConfigLoader using a rig.yaml file.
type Loader struct {
	Logger     ports.Logger
	Repository ports.Repository
}

// NewLoader creates a new Loader. repo may be nil, in which case no git
// parameters are populated.
func NewLoader(logger ports.Logger, repo ports.Repository) *Loader {
	return &Loader{Logger: logger, Repository: repo}
}

// DiscoverRoot walks up from cwd to the directory containing rig.yaml.
func (l *Loader) DiscoverRoot(cwd string) (string, error) {
	configPath, err := findConfiguration(cwd)
	if err != nil {
		return "", err
	}
	return filepath.Dir(configPath), nil
}

// Load reads the build definition found from cwd and returns the validated graph.
// Component targets are declared first, followed by the targets of the file
// in document order.
func (l *Loader) Load(cwd string) (*domain.Graph, error) {
	configPath, err := findConfiguration(cwd)
	if err != nil {
		return nil, err
	}

	var rigfile Rigfile
	if err := readAndUnmarshalYAML(configPath, &rigfile); err != nil {
		return nil, zerr.With(err, "path", configPath)
	}
	if rigfile.Version != "" && rigfile.Version != supportedVersion {
		err := zerr.Wrap(domain.ErrConfigParseFailed, "unsupported version "+rigfile.Version)
		return nil, zerr.With(err, "path", configPath)
	}

	g := domain.NewGraph()
	g.SetRoot(resolveRoot(configPath, rigfile.Root))

	dotenv, err := readDotEnv(filepath.Dir(configPath))
	if err != nil {
		return nil, err
	}
	for k, v := range l.parameters(g.Root(), rigfile.Parameters, dotenv) {
		g.SetParameter(k, v)
	}

	stock, err := components.Targets(rigfile.Components, rigfile.Settings)
	if err != nil {
		return nil, err
	}
	for _, t := range stock {
		if err := g.AddTarget(t); err != nil {
			return nil, err
		}
	}

	if err := l.addTargets(g, &rigfile.Targets, dotenv); err != nil {
		return nil, zerr.With(err, "path", configPath)
	}

	if err := g.Validate(); err != nil {
		return nil, err
	}
	return g, nil
}

func findConfiguration(cwd string) (string, error) {
	currentDir, err := filepath.Abs(cwd)
	if err != nil {
		return "", zerr.With(zerr.Wrap(err, "failed to resolve working directory"), "cwd", cwd)
	}
	for {
		candidate := filepath.Join(currentDir, domain.RigFileName)
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			return candidate, nil
		}

		parentDir := filepath.Dir(currentDir)
		if parentDir == currentDir {
			// Reached root
			break
		}
		currentDir = parentDir
	}
	return "", zerr.With(zerr.Wrap(domain.ErrConfigNotFound, "failed to locate build definition"), "cwd", cwd)
}

// parameters merges the build parameters. Later sources win: git facts, the
// parameters block, the .env file, then the process environment for any key
// already known.
func (l *Loader) parameters(root string, declared, dotenv map[string]string) map[string]string {
	params := make(map[string]string)
	maps.Copy(params, l.gitParameters(root))
	maps.Copy(params, declared)
	maps.Copy(params, dotenv)
	for k := range params {
		if v, ok := os.LookupEnv(k); ok {
			params[k] = v
		}
	}
	return params
}

func (l *Loader) gitParameters(root string) map[string]string {
	if l.Repository == nil {
		return nil
	}
	info, err := l.Repository.Describe(root)
	if errors.Is(err, domain.ErrRepositoryOpenFailed) {
		return nil
	}
	if err != nil {
		l.Logger.Warn(fmt.Sprintf("git metadata unavailable: %v", err))
		return nil
	}
	return info.Parameters()
}

func readDotEnv(dir string) (map[string]string, error) {
	path := filepath.Join(dir, domain.EnvFileName)
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}

	values, err := godotenv.Read(path)
	if err != nil {
		err = zerr.Wrap(errors.Join(domain.ErrEnvFileParseFailed, err), "failed to parse "+domain.EnvFileName)
		return nil, zerr.With(err, "path", path)
	}
	return values, nil
}

func (l *Loader) addTargets(g *domain.Graph, node *yaml.Node, dotenv map[string]string) error {
	// An absent or empty "targets:" key declares nothing.
	if node.Kind == 0 || (node.Kind == yaml.ScalarNode && node.ShortTag() == "!!null") {
		return nil
	}
	if node.Kind != yaml.MappingNode {
		return zerr.Wrap(domain.ErrConfigParseFailed, "targets must be a mapping")
	}

	for i := 0; i+1 < len(node.Content); i += 2 {
		name := node.Content[i].Value

		var dto TargetDTO
		if err := node.Content[i+1].Decode(&dto); err != nil {
			err = zerr.Wrap(errors.Join(domain.ErrConfigParseFailed, err), "failed to parse target "+name)
			return zerr.With(err, "target", name)
		}

		t, err := buildTarget(name, &dto, g.Root(), dotenv)
		if err != nil {
			return zerr.With(err, "target", name)
		}
		if err := g.AddTarget(t); err != nil {
			return err
		}
	}
	return nil
}

// buildTarget creates a domain.Target from a TargetDTO.
func buildTarget(name string, dto *TargetDTO, root string, dotenv map[string]string) (*domain.Target, error) {
	policy, err := domain.ParsePolicy(dto.WhenSkipped)
	if err != nil {
		return nil, err
	}

	deps := make([]domain.Dependency, 0, len(dto.DependsOn))
	for _, d := range dto.DependsOn {
		dep := domain.Dependency{Name: domain.NewInternedString(d.Name)}
		if d.WhenSkipped != "" {
			p, err := domain.ParsePolicy(d.WhenSkipped)
			if err != nil {
				return nil, zerr.With(err, "dependency", d.Name)
			}
			dep.WhenSkipped = &p
		}
		deps = append(deps, dep)
	}

	t := &domain.Target{
		Name:           domain.NewInternedString(name),
		Description:    dto.Description,
		Command:        dto.Cmd,
		WorkingDir:     resolveWorkingDir(root, dto.WorkingDir),
		Environment:    mergeEnvironment(dotenv, dto.Environment),
		DependsOn:      deps,
		Before:         domain.NewInternedStrings(dto.Before),
		TryAfter:       domain.NewInternedStrings(dto.TryAfter),
		TryTriggeredBy: domain.NewInternedStrings(dto.TryTriggeredBy),
		Produces:       dto.Produces,
		Consumes:       dto.Consumes,
		WhenSkipped:    policy,
	}
	if dto.OnlyWhen != nil {
		t.Conditions = append(t.Conditions, condition(dto.OnlyWhen))
	}
	if dto.Requires != nil {
		t.Requirements = requirements(dto.Requires)
	}
	return t, nil
}

func condition(c *ConditionDTO) domain.Condition {
	var parts []string
	switch {
	case c.Env != "" && c.Equals != "":
		parts = append(parts, fmt.Sprintf("%s is %q", c.Env, c.Equals))
	case c.Env != "":
		parts = append(parts, c.Env+" is set")
	}
	if c.Scheduled != "" {
		parts = append(parts, c.Scheduled+" is scheduled")
	}

	return domain.Condition{
		Description: strings.Join(parts, " and "),
		Check: func(bc *domain.BuildContext) bool {
			if c.Env != "" {
				v := lookup(bc, c.Env)
				if v == "" || (c.Equals != "" && v != c.Equals) {
					return false
				}
			}
			return c.Scheduled == "" || bc.Scheduled(c.Scheduled)
		},
	}
}

func requirements(r *RequirementDTO) []domain.Requirement {
	reqs := make([]domain.Requirement, 0, len(r.Env)+len(r.Files))
	for _, name := range r.Env {
		reqs = append(reqs, domain.Requirement{
			Description: name + " is set",
			Check: func(_ context.Context, bc *domain.BuildContext) error {
				if lookup(bc, name) == "" {
					return zerr.With(zerr.Wrap(errVariableNotSet, "requirement not met"), "variable", name)
				}
				return nil
			},
		})
	}
	for _, file := range r.Files {
		reqs = append(reqs, domain.Requirement{
			Description: file + " exists",
			Check: func(_ context.Context, bc *domain.BuildContext) error {
				path := file
				if !filepath.IsAbs(path) {
					path = filepath.Join(bc.Root(), path)
				}
				if _, err := os.Stat(path); err != nil {
					return zerr.With(zerr.Wrap(err, "required file is missing"), "path", path)
				}
				return nil
			},
		})
	}
	return reqs
}

var errVariableNotSet = zerr.New("variable is not set")

// lookup reads a build parameter, falling back to the process environment.
func lookup(bc *domain.BuildContext, name string) string {
	if v, ok := bc.Parameter(name); ok {
		return v
	}
	return os.Getenv(name)
}

func mergeEnvironment(base, overrides map[string]string) map[string]string {
	if len(base) == 0 && len(overrides) == 0 {
		return nil
	}
	result := make(map[string]string, len(base)+len(overrides))
	maps.Copy(result, base)
	maps.Copy(result, overrides)
	return result
}

func resolveRoot(configPath, configuredRoot string) string {
	configDir := filepath.Dir(configPath)
	if configuredRoot == "" {
		return filepath.Clean(configDir)
	}
	if filepath.IsAbs(configuredRoot) {
		return filepath.Clean(configuredRoot)
	}
	return filepath.Clean(filepath.Join(configDir, configuredRoot))
}

// resolveWorkingDir resolves the working directory of a command target
// against the build root.
func resolveWorkingDir(root, configured string) string {
	if configured == "" {
		return root
	}
	if filepath.IsAbs(configured) {
		return filepath.Clean(configured)
	}
	return filepath.Clean(filepath.Join(root, configured))
}

// readAndUnmarshalYAML reads a YAML file and unmarshals it into the target struct.
func readAndUnmarshalYAML[T any](configPath string, target *T) error {
	// #nosec G304 -- configPath is located by findConfiguration
	configFile, err := os.ReadFile(configPath)
	if err != nil {
		return zerr.Wrap(errors.Join(domain.ErrConfigReadFailed, err), "failed to read config file")
	}

	if err := yaml.Unmarshal(configFile, target); err != nil {
		return zerr.Wrap(errors.Join(domain.ErrConfigParseFailed, err), "failed to parse config file")
	}
	return nil
}
