package history

import (
	"context"

	"github.com/grindlemire/graft"
	"go.trai.ch/rig/internal/core/ports"
)

// NodeID is the unique identifier for the run history Graft node.
const NodeID graft.ID = "adapter.run_history"

func init() {
	graft.Register(graft.Node[ports.RunHistory]{
		ID:        NodeID,
		Cacheable: true,
		Run: func(_ context.Context) (ports.RunHistory, error) {
			return NewStore(), nil
		},
	})
}
