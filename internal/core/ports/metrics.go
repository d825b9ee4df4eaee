package ports

import (
	"time"

	"go.trai.ch/rig/internal/core/domain"
)

// MetricsRecorder records run and target metrics.
//
//go:generate mockgen -source=metrics.go -destination=mocks/mock_metrics.go -package=mocks
type MetricsRecorder interface {
	// ObserveTarget records the terminal status of a target and how long it ran.
	ObserveTarget(name string, status domain.Status, duration time.Duration)

	// ObserveRun records the outcome of a whole run.
	ObserveRun(success bool, duration time.Duration)

	// Export writes the collected metrics to path in the text exposition format.
	Export(path string) error
}
