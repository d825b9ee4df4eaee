package tui

import (
	"time"

	"go.trai.ch/rig/internal/core/domain"
)

// MsgInitTargets announces the plan.
type MsgInitTargets struct {
	Targets      []string
	Dependencies map[string][]string
	Requested    []string
}

// MsgTargetStart is sent when a target begins executing.
type MsgTargetStart struct {
	SpanID    string
	ParentID  string
	Name      string
	StartTime time.Time
}

// MsgTargetLog carries a chunk of target output.
type MsgTargetLog struct {
	SpanID string
	Data   []byte
}

// MsgTargetComplete is sent when a target body returns.
type MsgTargetComplete struct {
	SpanID  string
	EndTime time.Time
	Err     error
}

// MsgRunComplete carries the final report.
type MsgRunComplete struct {
	Report *domain.Report
}
