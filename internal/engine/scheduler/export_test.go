package scheduler

import (
	"maps"

	"go.trai.ch/rig/internal/core/domain"
)

// StatusMap returns a copy of the internal target status table.
// This is exported for testing purposes only.
func (s *Scheduler) StatusMap() map[domain.InternedString]domain.Status {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return maps.Clone(s.targetStatus)
}
