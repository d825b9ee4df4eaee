package ports

import "go.trai.ch/rig/internal/core/domain"

// ConfigLoader defines the interface for loading the build definition.
//
//go:generate mockgen -source=config_loader.go -destination=mocks/mock_config_loader.go -package=mocks
type ConfigLoader interface {
	// Load reads the build definition found from the given working directory
	// and returns the validated target graph.
	Load(cwd string) (*domain.Graph, error)

	// DiscoverRoot walks up from cwd to find the directory containing rig.yaml.
	DiscoverRoot(cwd string) (string, error)
}
