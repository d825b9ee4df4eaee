package app

import (
	"context"

	"github.com/grindlemire/graft"
	"go.trai.ch/rig/internal/adapters/config"  //nolint:depguard // Wired in app layer
	"go.trai.ch/rig/internal/adapters/fs"      //nolint:depguard // Wired in app layer
	"go.trai.ch/rig/internal/adapters/history" //nolint:depguard // Wired in app layer
	"go.trai.ch/rig/internal/adapters/logger"  //nolint:depguard // Wired in app layer
	"go.trai.ch/rig/internal/adapters/metrics" //nolint:depguard // Wired in app layer
	"go.trai.ch/rig/internal/adapters/shell"   //nolint:depguard // Wired in app layer
	"go.trai.ch/rig/internal/core/ports"
)

const (
	// AppNodeID is the unique identifier for the main App Graft node.
	AppNodeID graft.ID = "app.main"
	// ComponentsNodeID is the unique identifier for the App components Graft node.
	ComponentsNodeID graft.ID = "app.components"
)

func init() {
	// App Node
	graft.Register(graft.Node[*App]{
		ID:        AppNodeID,
		Cacheable: true,
		DependsOn: []graft.ID{
			config.NodeID,
			shell.NodeID,
			logger.NodeID,
			history.NodeID,
			metrics.NodeID,
			fs.InspectorNodeID,
		},
		Run: runAppNode,
	})

	// Components Node
	graft.Register(graft.Node[*Components]{
		ID:        ComponentsNodeID,
		Cacheable: true,
		DependsOn: []graft.ID{
			AppNodeID,
			logger.NodeID,
		},
		Run: func(ctx context.Context) (*Components, error) {
			app, err := graft.Dep[*App](ctx)
			if err != nil {
				return nil, err
			}

			log, err := graft.Dep[ports.Logger](ctx)
			if err != nil {
				return nil, err
			}

			return NewComponents(app, log), nil
		},
	})
}

func runAppNode(ctx context.Context) (*App, error) {
	loader, err := graft.Dep[ports.ConfigLoader](ctx)
	if err != nil {
		return nil, err
	}

	executor, err := graft.Dep[ports.Executor](ctx)
	if err != nil {
		return nil, err
	}

	log, err := graft.Dep[ports.Logger](ctx)
	if err != nil {
		return nil, err
	}

	runs, err := graft.Dep[ports.RunHistory](ctx)
	if err != nil {
		return nil, err
	}

	recorder, err := graft.Dep[ports.MetricsRecorder](ctx)
	if err != nil {
		return nil, err
	}

	inspector, err := graft.Dep[ports.ArtifactInspector](ctx)
	if err != nil {
		return nil, err
	}

	return New(loader, executor, log, runs, recorder, inspector), nil
}
