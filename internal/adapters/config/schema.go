package config

import (
	"go.trai.ch/rig/internal/components"
	"gopkg.in/yaml.v3"
)

// Rigfile represents the structure of the rig.yaml build definition.
type Rigfile struct {
	Version    string              `yaml:"version"`
	Root       string              `yaml:"root"`
	Components []string            `yaml:"components"`
	Settings   components.Settings `yaml:"settings"`
	Parameters map[string]string   `yaml:"parameters"`
	// Targets is decoded manually so that declaration order is kept.
	Targets yaml.Node `yaml:"targets"`
}

// TargetDTO represents a target definition in the build definition.
type TargetDTO struct {
	Description    string            `yaml:"description"`
	Cmd            []string          `yaml:"cmd"`
	WorkingDir     string            `yaml:"workingDir"`
	Environment    map[string]string `yaml:"environment"`
	DependsOn      []DependencyDTO   `yaml:"dependsOn"`
	Before         []string          `yaml:"before"`
	TryAfter       []string          `yaml:"tryAfter"`
	TryTriggeredBy []string          `yaml:"tryTriggeredBy"`
	Produces       []string          `yaml:"produces"`
	Consumes       []string          `yaml:"consumes"`
	WhenSkipped    string            `yaml:"whenSkipped"`
	OnlyWhen       *ConditionDTO     `yaml:"onlyWhen"`
	Requires       *RequirementDTO   `yaml:"requires"`
}

// DependencyDTO is either a bare target name or a mapping with a per-edge policy.
type DependencyDTO struct {
	Name        string `yaml:"name"`
	WhenSkipped string `yaml:"whenSkipped"`
}

// UnmarshalYAML accepts "compile" as well as {name: compile, whenSkipped: execute}.
func (d *DependencyDTO) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind == yaml.ScalarNode {
		d.Name = value.Value
		return nil
	}
	type plain DependencyDTO
	return value.Decode((*plain)(d))
}

// ConditionDTO gates a target at run time. All set fields must hold.
type ConditionDTO struct {
	// Env names a parameter or environment variable that must be non-empty.
	Env string `yaml:"env"`
	// Equals, when set, is the value Env must have.
	Equals string `yaml:"equals"`
	// Scheduled names a target that must be part of the run.
	Scheduled string `yaml:"scheduled"`
}

// RequirementDTO lists what must hold before any target of the run starts.
type RequirementDTO struct {
	Env   []string `yaml:"env"`
	Files []string `yaml:"files"`
}
