package session

import (
	"time"

	pkgerrors "sessiongraph/pkg/errors"
)

// AgentState is the closed set of worker states.
type AgentState string

const (
	AgentIdle    AgentState = "idle"
	AgentRunning AgentState = "running"
	AgentDone    AgentState = "done"
	AgentError   AgentState = "error"
)

// ParseAgentState validates a wire status string.
func ParseAgentState(s string) (AgentState, error) {
	switch AgentState(s) {
	case AgentIdle, AgentRunning, AgentDone, AgentError:
		return AgentState(s), nil
	}
	return "", pkgerrors.NewValidation("unknown agent state: " + s)
}

// KnownAgents is the fixed set of backend workers, in the order the
// status panel lays them out. Statuses for names outside this set are
// rejected so the panel's layout stays deterministic.
var KnownAgents = []string{
	"listener",
	"parts_engine",
	"insight_detector",
	"probe_analyzer",
	"reflector",
	"guardian",
	"learner",
	"orchestrator",
}

// IsKnownAgent reports whether name belongs to the fixed worker set.
func IsKnownAgent(name string) bool {
	for _, a := range KnownAgents {
		if a == name {
			return true
		}
	}
	return false
}

// AgentStatus is the latest reported state of one worker.
type AgentStatus struct {
	Name     string
	State    AgentState
	Summary  string
	Duration time.Duration
}
