package components

import (
	"maps"
	"slices"

	"go.trai.ch/rig/internal/core/domain"
	"go.trai.ch/zerr"
)

// Component builds one target from the settings.
type Component func(s Settings) *domain.Target

var library = map[string]Component{
	Restore:        restoreTarget,
	Clean:          cleanTarget,
	Compile:        compileTarget,
	Test:           testTarget,
	ReportCoverage: reportCoverageTarget,
	Pack:           packTarget,
	Push:           pushTarget,
	Format:         formatTarget,
	VerifyFormat:   verifyFormatTarget,
}

// Names returns the names of every available component, sorted.
func Names() []string {
	return slices.Sorted(maps.Keys(library))
}

// Targets builds the targets of the named components in the given order.
// Repeated names are built once. Settings defaults are applied first.
func Targets(names []string, s Settings) ([]*domain.Target, error) {
	s = s.WithDefaults()

	seen := make(map[string]bool, len(names))
	targets := make([]*domain.Target, 0, len(names))
	for _, name := range names {
		if seen[name] {
			continue
		}
		seen[name] = true

		build, ok := library[name]
		if !ok {
			err := zerr.Wrap(domain.ErrUnknownComponent, "unknown component "+name)
			return nil, zerr.With(err, "component", name)
		}
		targets = append(targets, build(s))
	}
	return targets, nil
}
