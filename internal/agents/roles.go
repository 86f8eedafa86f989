// Package agents runs the six specialist roles that turn a user prompt into
// a structured application design. Each role sends one completion request,
// parses the reply into a typed Output and repairs anything missing from it.
package agents

import "fmt"

// Role defines the specialized role of an AI agent
type Role string

const (
	RoleArchitect  Role = "architect"
	RoleUIUX       Role = "ui-ux"
	RoleBackend    Role = "backend"
	RoleDatabase   Role = "database"
	RoleTester     Role = "tester"
	RoleDeployment Role = "deployment"
)

// Roles lists every role in canonical execution order.
var Roles = []Role{RoleArchitect, RoleUIUX, RoleBackend, RoleDatabase, RoleTester, RoleDeployment}

// RoleInfo is the display metadata of a role.
type RoleInfo struct {
	Name        string
	Description string
	// Critical roles abort the whole workflow when they fail.
	Critical bool
}

var roleInfo = map[Role]RoleInfo{
	RoleArchitect:  {Name: "System Architect", Description: "Designing system architecture", Critical: true},
	RoleUIUX:       {Name: "UI/UX Designer", Description: "Creating user interface", Critical: true},
	RoleBackend:    {Name: "Backend Developer", Description: "Building API endpoints"},
	RoleDatabase:   {Name: "Database Engineer", Description: "Setting up data models"},
	RoleTester:     {Name: "QA Tester", Description: "Running tests and validation"},
	RoleDeployment: {Name: "DevOps Engineer", Description: "Preparing deployment"},
}

// Info returns the metadata for r. Unknown roles return the zero value.
func (r Role) Info() RoleInfo { return roleInfo[r] }

// IsCritical reports whether a failure of r fails the project.
func (r Role) IsCritical() bool { return roleInfo[r].Critical }

// Valid reports whether r is one of the canonical roles.
func (r Role) Valid() bool {
	_, ok := roleInfo[r]
	return ok
}

// ParseRole converts s into a Role.
func ParseRole(s string) (Role, error) {
	r := Role(s)
	if !r.Valid() {
		return "", fmt.Errorf("unknown agent role %q", s)
	}
	return r, nil
}
