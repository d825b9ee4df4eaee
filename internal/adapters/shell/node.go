package shell

import (
	"context"
	"os"
	"strconv"

	"github.com/grindlemire/graft"
	"go.trai.ch/rig/internal/core/ports"
)

// NodeID is the unique identifier for the executor Graft node.
const NodeID graft.ID = "adapter.executor"

// HermeticEnv enables hermetic command environments when set to a true value.
const HermeticEnv = "RIG_HERMETIC"

func init() {
	graft.Register(graft.Node[ports.Executor]{
		ID:        NodeID,
		Cacheable: true,
		DependsOn: []graft.ID{},
		Run: func(_ context.Context) (ports.Executor, error) {
			if hermetic, _ := strconv.ParseBool(os.Getenv(HermeticEnv)); hermetic {
				return NewExecutor(WithHermetic()), nil
			}
			return NewExecutor(), nil
		},
	})
}
