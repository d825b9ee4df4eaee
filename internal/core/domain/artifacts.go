package domain

import (
	"fmt"
	"path"
	"path/filepath"
	"strings"
)

// TargetArtifactPrefix marks a consumed entry that refers to every artifact of a target.
const TargetArtifactPrefix = "target:"

// ExpectedArtifact is an artifact pattern a planned target declares to produce.
type ExpectedArtifact struct {
	Target  string
	Pattern string
}

// ContractWarning reports a consumed artifact that no hard ancestor produces.
type ContractWarning struct {
	Target  string
	Pattern string
	Message string
}

// String formats the warning for logs.
func (w ContractWarning) String() string {
	return fmt.Sprintf("%s: %s", w.Target, w.Message)
}

// ArtifactTracker exposes the produced and consumed declarations of a graph.
// It never looks at the filesystem.
type ArtifactTracker struct {
	graph *Graph
}

// NewArtifactTracker creates a tracker over g.
func NewArtifactTracker(g *Graph) *ArtifactTracker {
	return &ArtifactTracker{graph: g}
}

// Produced returns the produced patterns of name.
func (a *ArtifactTracker) Produced(name string) []string {
	if t, ok := a.graph.Target(NewInternedString(name)); ok {
		return t.Produces
	}
	return nil
}

// Consumed returns the consumed patterns of name.
func (a *ArtifactTracker) Consumed(name string) []string {
	if t, ok := a.graph.Target(NewInternedString(name)); ok {
		return t.Consumes
	}
	return nil
}

// Expected lists what a run of p is expected to emit, in plan order.
func (a *ArtifactTracker) Expected(p *Plan) []ExpectedArtifact {
	var out []ExpectedArtifact
	for _, s := range p.Steps {
		for _, pattern := range s.Target.Produces {
			out = append(out, ExpectedArtifact{Target: s.Target.Name.String(), Pattern: pattern})
		}
	}
	return out
}

// Check verifies every target of the graph in declaration order.
func (a *ArtifactTracker) Check() []ContractWarning {
	var warnings []ContractWarning
	for t := range a.graph.Targets() {
		warnings = append(warnings, a.checkTarget(t)...)
	}
	return warnings
}

// CheckPlan verifies only the targets of p, in plan order.
func (a *ArtifactTracker) CheckPlan(p *Plan) []ContractWarning {
	var warnings []ContractWarning
	for _, s := range p.Steps {
		warnings = append(warnings, a.checkTarget(s.Target)...)
	}
	return warnings
}

func (a *ArtifactTracker) checkTarget(t *Target) []ContractWarning {
	if len(t.Consumes) == 0 {
		return nil
	}

	ancestors := a.graph.Ancestors(t.Name)
	var warnings []ContractWarning

	for _, consumed := range t.Consumes {
		if ref, ok := strings.CutPrefix(consumed, TargetArtifactPrefix); ok {
			if msg := a.checkTargetReference(ancestors, NewInternedString(ref)); msg != "" {
				warnings = append(warnings, ContractWarning{Target: t.Name.String(), Pattern: consumed, Message: msg})
			}
			continue
		}

		if !a.producedByAny(ancestors, consumed) {
			warnings = append(warnings, ContractWarning{
				Target:  t.Name.String(),
				Pattern: consumed,
				Message: fmt.Sprintf("consumes %q but no dependency produces it", consumed),
			})
		}
	}
	return warnings
}

func (a *ArtifactTracker) checkTargetReference(ancestors map[InternedString]struct{}, ref InternedString) string {
	producer, ok := a.graph.Target(ref)
	if !ok {
		return fmt.Sprintf("consumes artifacts of unknown target %q", ref.String())
	}
	if _, ok := ancestors[ref]; !ok {
		return fmt.Sprintf("consumes artifacts of %q which is not a dependency", ref.String())
	}
	if len(producer.Produces) == 0 {
		return fmt.Sprintf("consumes artifacts of %q which declares none", ref.String())
	}
	return ""
}

func (a *ArtifactTracker) producedByAny(ancestors map[InternedString]struct{}, consumed string) bool {
	for name := range ancestors {
		producer, ok := a.graph.Target(name)
		if !ok {
			continue
		}
		for _, produced := range producer.Produces {
			if PatternsOverlap(produced, consumed) {
				return true
			}
		}
	}
	return false
}

// PatternsOverlap reports whether two glob patterns can describe the same file:
// they are equal, or one matches the other literally.
func PatternsOverlap(a, b string) bool {
	a = normalizePattern(a)
	b = normalizePattern(b)
	if a == b {
		return true
	}
	if ok, err := path.Match(a, b); err == nil && ok {
		return true
	}
	if ok, err := path.Match(b, a); err == nil && ok {
		return true
	}
	return false
}

func normalizePattern(p string) string {
	return path.Clean(filepath.ToSlash(p))
}

// ArtifactFile is a file found for a produced pattern after a target ran.
type ArtifactFile struct {
	// Path is slash-separated and relative to the build root when possible.
	Path   string `json:"path"`
	Digest string `json:"digest"`
	Size   int64  `json:"size"`
}

// ArtifactSet is what a target's produced patterns resolved to on disk.
type ArtifactSet struct {
	Files []ArtifactFile
	// Missing lists the patterns that matched no file.
	Missing []string
}
