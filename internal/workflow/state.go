package workflow

import (
	"errors"
	"fmt"
)

// ErrInvalidTransition is returned when a status change is not in the
// transition table.
var ErrInvalidTransition = errors.New("invalid state transition")

type projectTransition struct {
	From ProjectStatus
	To   ProjectStatus
}

var projectTransitions = []projectTransition{
	{ProjectGenerating, ProjectPreview},
	{ProjectGenerating, ProjectError},
	{ProjectPreview, ProjectDeployed},
}

type agentTransition struct {
	From AgentStatus
	To   AgentStatus
}

var agentTransitions = []agentTransition{
	{AgentPending, AgentWorking},
	// retry
	{AgentWorking, AgentWorking},
	{AgentWorking, AgentComplete},
	{AgentWorking, AgentError},
}

// CanTransitionProject reports whether from → to is allowed.
func CanTransitionProject(from, to ProjectStatus) bool {
	for _, t := range projectTransitions {
		if t.From == from && t.To == to {
			return true
		}
	}
	return false
}

// CanTransitionAgent reports whether from → to is allowed.
func CanTransitionAgent(from, to AgentStatus) bool {
	for _, t := range agentTransitions {
		if t.From == from && t.To == to {
			return true
		}
	}
	return false
}

// SetStatus moves the project to status.
func (p *Project) SetStatus(status ProjectStatus) error {
	if !CanTransitionProject(p.Status, status) {
		return fmt.Errorf("%w: project %s → %s", ErrInvalidTransition, p.Status, status)
	}
	p.Status = status
	return nil
}

// SetStatus moves the agent to status.
func (a *Agent) SetStatus(status AgentStatus) error {
	if !CanTransitionAgent(a.Status, status) {
		return fmt.Errorf("%w: agent %s %s → %s", ErrInvalidTransition, a.ID, a.Status, status)
	}
	a.Status = status
	return nil
}
