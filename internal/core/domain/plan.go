package domain

import (
	"strconv"

	"github.com/cespare/xxhash/v2"
)

// Step is one target of an execution plan.
type Step struct {
	Target *Target
	// Deps are the hard dependencies of Target that are part of the plan.
	Deps []InternedString
	// After are the advisory predecessors that the plan order honors.
	After []InternedString
}

// Plan is the ordered set of targets a run executes.
type Plan struct {
	Requested []InternedString
	Satisfied []InternedString
	Steps     []Step
}

// Names returns the planned target names in order.
func (p *Plan) Names() []string {
	names := make([]string, len(p.Steps))
	for i, s := range p.Steps {
		names[i] = s.Target.Name.String()
	}
	return names
}

// Contains reports whether name is planned.
func (p *Plan) Contains(name InternedString) bool {
	for _, s := range p.Steps {
		if s.Target.Name == name {
			return true
		}
	}
	return false
}

// Dependencies returns the in-plan hard dependencies of every step by name.
func (p *Plan) Dependencies() map[string][]string {
	deps := make(map[string][]string, len(p.Steps))
	for _, s := range p.Steps {
		deps[s.Target.Name.String()] = Strings(s.Deps)
	}
	return deps
}

// Fingerprint returns a stable digest of the plan order and its edges.
func (p *Plan) Fingerprint() string {
	h := xxhash.New()
	for _, s := range p.Steps {
		_, _ = h.WriteString(s.Target.Name.String())
		_, _ = h.WriteString("<")
		for _, d := range s.Deps {
			_, _ = h.WriteString(d.String())
			_, _ = h.WriteString(",")
		}
		_, _ = h.WriteString("~")
		for _, a := range s.After {
			_, _ = h.WriteString(a.String())
			_, _ = h.WriteString(",")
		}
		_, _ = h.WriteString(";")
	}
	return strconv.FormatUint(h.Sum64(), 16)
}
