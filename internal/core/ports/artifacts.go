package ports

import "go.trai.ch/rig/internal/core/domain"

// ArtifactInspector resolves produced artifact patterns against the filesystem.
//
//go:generate mockgen -source=artifacts.go -destination=mocks/mock_artifacts.go -package=mocks
type ArtifactInspector interface {
	// Inspect resolves patterns relative to root. Patterns that match no file
	// are reported in the set, not as an error.
	Inspect(root string, patterns []string) (domain.ArtifactSet, error)
}
