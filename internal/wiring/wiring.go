// Package wiring registers all Graft nodes for the application.
package wiring

import (
	// Register adapter nodes.
	_ "go.trai.ch/rig/internal/adapters/config"
	_ "go.trai.ch/rig/internal/adapters/fs"
	_ "go.trai.ch/rig/internal/adapters/git"
	_ "go.trai.ch/rig/internal/adapters/history"
	_ "go.trai.ch/rig/internal/adapters/logger"
	_ "go.trai.ch/rig/internal/adapters/metrics"
	_ "go.trai.ch/rig/internal/adapters/shell"
	// Register app nodes.
	_ "go.trai.ch/rig/internal/app"
)
