package ports

import "go.trai.ch/rig/internal/core/domain"

// Repository inspects the version-control state of the build root.
//
//go:generate mockgen -source=repository.go -destination=mocks/mock_repository.go -package=mocks
type Repository interface {
	// Describe returns commit, branch and tag information for root.
	// It returns domain.ErrRepositoryOpenFailed if root is not inside a repository.
	Describe(root string) (domain.RepositoryInfo, error)
}
