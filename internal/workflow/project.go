// Package workflow turns a user prompt into a Project by planning it, then
// running the six agent roles in order and assembling a codebase from what
// they produced.
package workflow

import (
	"encoding/json"
	"time"

	"ai-app-builder/internal/agents"
)

// ProjectStatus is the lifecycle state of a project.
type ProjectStatus string

const (
	ProjectGenerating ProjectStatus = "generating"
	ProjectPreview    ProjectStatus = "preview"
	ProjectDeployed   ProjectStatus = "deployed"
	ProjectError      ProjectStatus = "error"
)

// AgentStatus is the lifecycle state of one agent within a project.
type AgentStatus string

const (
	AgentPending  AgentStatus = "pending"
	AgentWorking  AgentStatus = "working"
	AgentComplete AgentStatus = "complete"
	AgentError    AgentStatus = "error"
)

// Agent tracks one role's progress within a project.
type Agent struct {
	ID          agents.Role   `json:"id"`
	Name        string        `json:"name"`
	Description string        `json:"description"`
	Status      AgentStatus   `json:"status"`
	Progress    int           `json:"progress"`
	Output      agents.Output `json:"output,omitempty"`
	StartTime   *time.Time    `json:"startTime,omitempty"`
	EndTime     *time.Time    `json:"endTime,omitempty"`
	Attempts    int           `json:"attempts"`
	Error       string        `json:"error,omitempty"`
}

type agentJSON struct {
	ID          agents.Role     `json:"id"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Status      AgentStatus     `json:"status"`
	Progress    int             `json:"progress"`
	Output      json.RawMessage `json:"output,omitempty"`
	StartTime   *time.Time      `json:"startTime,omitempty"`
	EndTime     *time.Time      `json:"endTime,omitempty"`
	Attempts    int             `json:"attempts"`
	Error       string          `json:"error,omitempty"`
}

// UnmarshalJSON restores the typed output variant from its object form.
func (a *Agent) UnmarshalJSON(data []byte) error {
	var raw agentJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*a = Agent{
		ID:          raw.ID,
		Name:        raw.Name,
		Description: raw.Description,
		Status:      raw.Status,
		Progress:    raw.Progress,
		StartTime:   raw.StartTime,
		EndTime:     raw.EndTime,
		Attempts:    raw.Attempts,
		Error:       raw.Error,
	}
	if len(raw.Output) > 0 && string(raw.Output) != "null" {
		var m map[string]any
		if err := json.Unmarshal(raw.Output, &m); err != nil {
			return err
		}
		a.Output = agents.NewOutput(raw.ID, m, nil)
	}
	return nil
}

// Codebase is the assembled source, one document per section.
type Codebase struct {
	Frontend   string `json:"frontend"`
	Backend    string `json:"backend"`
	Database   string `json:"database"`
	Config     string `json:"config"`
	Tests      string `json:"tests"`
	Deployment string `json:"deployment"`
}

// Sections returns the sections in display order.
func (c *Codebase) Sections() []Section {
	return []Section{
		{Name: "frontend", Content: c.Frontend},
		{Name: "backend", Content: c.Backend},
		{Name: "database", Content: c.Database},
		{Name: "config", Content: c.Config},
		{Name: "tests", Content: c.Tests},
		{Name: "deployment", Content: c.Deployment},
	}
}

// Section is a named codebase document.
type Section struct {
	Name    string `json:"name"`
	Content string `json:"content"`
}

// PreviewStatus is the build state of a preview.
type PreviewStatus string

const (
	PreviewBuilding PreviewStatus = "building"
	PreviewReady    PreviewStatus = "ready"
	PreviewFailed   PreviewStatus = "error"
)

// Preview points at the rendered preview document.
type Preview struct {
	URL    string        `json:"url"`
	Status PreviewStatus `json:"status"`
}

// Deployment holds placeholder deployment targets.
type Deployment struct {
	Frontend string `json:"frontend"`
	Backend  string `json:"backend"`
	Database string `json:"database"`
}

// Metadata is what the planner decided about the project.
type Metadata struct {
	Stack        map[string]string `json:"stack,omitempty"`
	Features     []string          `json:"features,omitempty"`
	Architecture string            `json:"architecture,omitempty"`
}

// Project is a generation run and everything it produced.
type Project struct {
	ID          string        `json:"id"`
	Name        string        `json:"name"`
	Description string        `json:"description"`
	Status      ProjectStatus `json:"status"`
	CreatedAt   time.Time     `json:"createdAt"`
	Agents      []Agent       `json:"agents"`
	Codebase    *Codebase     `json:"codebase,omitempty"`
	Preview     *Preview      `json:"preview,omitempty"`
	Deployment  *Deployment   `json:"deployment,omitempty"`
	Metadata    Metadata      `json:"metadata"`
	Error       string        `json:"error,omitempty"`
}

// NewProject returns a generating project with one pending agent per role.
func NewProject(id string, plan Plan, now time.Time) *Project {
	p := &Project{
		ID:          id,
		Name:        plan.Name,
		Description: plan.Description,
		Status:      ProjectGenerating,
		CreatedAt:   now,
		Metadata: Metadata{
			Stack:        plan.Stack,
			Features:     plan.Features,
			Architecture: plan.Architecture,
		},
	}
	for _, role := range agents.Roles {
		info := role.Info()
		p.Agents = append(p.Agents, Agent{
			ID:          role,
			Name:        info.Name,
			Description: info.Description,
			Status:      AgentPending,
		})
	}
	return p
}

// Agent returns the agent for role, or nil.
func (p *Project) Agent(role agents.Role) *Agent {
	for i := range p.Agents {
		if p.Agents[i].ID == role {
			return &p.Agents[i]
		}
	}
	return nil
}

// Outputs returns the recorded outputs keyed by role.
func (p *Project) Outputs() map[agents.Role]agents.Output {
	out := make(map[agents.Role]agents.Output)
	for _, a := range p.Agents {
		if a.Output != nil {
			out[a.ID] = a.Output
		}
	}
	return out
}

// Clone returns a deep copy. Agent outputs are never mutated after they
// are recorded, so they are shared.
func (p *Project) Clone() Project {
	c := *p
	c.Agents = make([]Agent, len(p.Agents))
	for i, a := range p.Agents {
		c.Agents[i] = a
		c.Agents[i].StartTime = cloneTime(a.StartTime)
		c.Agents[i].EndTime = cloneTime(a.EndTime)
	}
	if p.Codebase != nil {
		cb := *p.Codebase
		c.Codebase = &cb
	}
	if p.Preview != nil {
		pv := *p.Preview
		c.Preview = &pv
	}
	if p.Deployment != nil {
		d := *p.Deployment
		c.Deployment = &d
	}
	if p.Metadata.Stack != nil {
		c.Metadata.Stack = make(map[string]string, len(p.Metadata.Stack))
		for k, v := range p.Metadata.Stack {
			c.Metadata.Stack[k] = v
		}
	}
	if p.Metadata.Features != nil {
		c.Metadata.Features = append([]string(nil), p.Metadata.Features...)
	}
	return c
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}
