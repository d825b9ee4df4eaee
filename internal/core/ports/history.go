package ports

import "go.trai.ch/rig/internal/core/domain"

// RunHistory stores the reports of past runs under the build root.
//
//go:generate mockgen -source=history.go -destination=mocks/mock_history.go -package=mocks
type RunHistory interface {
	// Put stores the report and marks it as the latest run.
	Put(root string, report *domain.Report) error

	// Get returns the report with the given run ID.
	Get(root, runID string) (*domain.Report, error)

	// Latest returns the most recent report.
	// It returns domain.ErrNoHistory if no run has been stored yet.
	Latest(root string) (*domain.Report, error)

	// List returns up to limit reports, newest first. A limit <= 0 returns all.
	List(root string, limit int) ([]*domain.Report, error)
}
