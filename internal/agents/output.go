package agents

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// Output is the parsed result of one role. Every role has its own variant;
// Unparsed covers replies that carried no JSON object at all.
type Output interface {
	// Role is the role that produced the output.
	Role() Role
	// Data returns the JSON object the output serializes to.
	Data() map[string]any
	// EnhancedKeys lists the required keys filled in from defaults.
	EnhancedKeys() []string
	json.Marshaler
}

type base struct {
	role     Role
	raw      map[string]any
	Enhanced []string `json:"-"`
}

func (b *base) Role() Role             { return b.role }
func (b *base) Data() map[string]any   { return b.raw }
func (b *base) EnhancedKeys() []string { return b.Enhanced }
func (b *base) MarshalJSON() ([]byte, error) {
	if b.raw == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(b.raw)
}

// ArchitectOutput is the architect's system design.
type ArchitectOutput struct {
	base
	Pattern     string
	Description string
	Stack       map[string]string
	Folders     []string
}

// Component is one UI component proposed by the designer.
type Component struct {
	Name    string
	Purpose string
	Code    string
}

// UIUXOutput is the designer's theme and component list.
type UIUXOutput struct {
	base
	Theme      string
	Colors     string
	Components []Component
}

// Endpoint is one API route proposed by the backend engineer.
type Endpoint struct {
	Path    string
	Method  string
	Purpose string
	Code    string
}

// BackendOutput is the API design.
type BackendOutput struct {
	base
	Architecture   string
	Authentication string
	Endpoints      []Endpoint
}

// Field is a column of a proposed table.
type Field struct {
	Name        string
	Type        string
	Constraints string
}

// Table is a proposed database table.
type Table struct {
	Name    string
	Purpose string
	Fields  []Field
}

// DatabaseOutput is the schema design.
type DatabaseOutput struct {
	base
	Type   string
	Tables []Table
}

// TestCase is one proposed test file.
type TestCase struct {
	Type string
	File string
	Code string
}

// TesterOutput is the testing strategy.
type TesterOutput struct {
	base
	Approach string
	Coverage string
	Tests    []TestCase
}

// DeploymentOutput is the deployment plan.
type DeploymentOutput struct {
	base
	Platform   string
	Approach   string
	Dockerfile string
	Compose    string
	Pipeline   string
}

// Unparsed holds a reply with no JSON object. Fields has the "key: value"
// lines found in Raw, if any. It serializes as the role's minimal envelope.
type Unparsed struct {
	role   Role
	Raw    string
	Fields map[string]string
}

func (u *Unparsed) Role() Role             { return u.role }
func (u *Unparsed) EnhancedKeys() []string { return nil }
func (u *Unparsed) Data() map[string]any   { return minimalEnvelope(u.role, u.Raw) }
func (u *Unparsed) MarshalJSON() ([]byte, error) {
	return json.Marshal(u.Data())
}

// NewOutput builds the typed variant for role from a decoded JSON object.
func NewOutput(role Role, m map[string]any, enhanced []string) Output {
	b := base{role: role, raw: m, Enhanced: enhanced}
	switch role {
	case RoleArchitect:
		return &ArchitectOutput{
			base:        b,
			Pattern:     str(m, "architecture", "pattern"),
			Description: str(m, "architecture", "description"),
			Stack:       stringMap(obj(m, "stack")),
			Folders:     stringList(lookup(m, "structure", "folders"), lookup(m, "structure")),
		}
	case RoleUIUX:
		out := &UIUXOutput{
			base:   b,
			Theme:  str(m, "design", "theme"),
			Colors: str(m, "design", "colors"),
		}
		for _, c := range objects(lookup(m, "components")) {
			out.Components = append(out.Components, Component{
				Name:    str(c, "name"),
				Purpose: str(c, "purpose"),
				Code:    str(c, "code"),
			})
		}
		return out
	case RoleBackend:
		out := &BackendOutput{
			base:           b,
			Architecture:   str(m, "api", "architecture"),
			Authentication: str(m, "api", "authentication"),
		}
		for _, e := range objects(lookup(m, "endpoints")) {
			out.Endpoints = append(out.Endpoints, Endpoint{
				Path:    str(e, "path"),
				Method:  strings.ToUpper(str(e, "method")),
				Purpose: str(e, "purpose"),
				Code:    str(e, "code"),
			})
		}
		return out
	case RoleDatabase:
		out := &DatabaseOutput{base: b, Type: str(m, "design", "type")}
		for _, t := range objects(lookup(m, "schema", "tables")) {
			table := Table{Name: str(t, "name"), Purpose: str(t, "purpose")}
			for _, f := range objects(lookup(t, "fields")) {
				table.Fields = append(table.Fields, Field{
					Name:        str(f, "name"),
					Type:        str(f, "type"),
					Constraints: str(f, "constraints"),
				})
			}
			out.Tables = append(out.Tables, table)
		}
		return out
	case RoleTester:
		out := &TesterOutput{
			base:     b,
			Approach: str(m, "strategy", "approach"),
			Coverage: str(m, "strategy", "coverage"),
		}
		for _, tc := range objects(lookup(m, "tests")) {
			out.Tests = append(out.Tests, TestCase{
				Type: str(tc, "type"),
				File: str(tc, "file"),
				Code: str(tc, "code"),
			})
		}
		return out
	case RoleDeployment:
		return &DeploymentOutput{
			base:       b,
			Platform:   str(m, "strategy", "platform"),
			Approach:   str(m, "strategy", "approach"),
			Dockerfile: str(m, "containers", "dockerfile"),
			Compose:    str(m, "containers", "compose"),
			Pipeline:   str(m, "cicd", "pipeline"),
		}
	default:
		return &b
	}
}

// lookup walks nested objects by key. It returns nil when any step is
// missing or not an object.
func lookup(m map[string]any, path ...string) any {
	var cur any = m
	for _, key := range path {
		obj, ok := cur.(map[string]any)
		if !ok {
			return nil
		}
		cur = obj[key]
	}
	return cur
}

func obj(m map[string]any, path ...string) map[string]any {
	o, _ := lookup(m, path...).(map[string]any)
	return o
}

// str returns the value at path as text. Scalars are formatted, anything
// else is empty.
func str(m map[string]any, path ...string) string {
	switch v := lookup(m, path...).(type) {
	case string:
		return v
	case float64, bool, json.Number:
		return fmt.Sprint(v)
	default:
		return ""
	}
}

func objects(v any) []map[string]any {
	items, _ := v.([]any)
	out := make([]map[string]any, 0, len(items))
	for _, item := range items {
		if o, ok := item.(map[string]any); ok {
			out = append(out, o)
		}
	}
	return out
}

// stringList returns the first candidate that is a list of strings.
func stringList(candidates ...any) []string {
	for _, c := range candidates {
		items, ok := c.([]any)
		if !ok {
			continue
		}
		out := make([]string, 0, len(items))
		for _, item := range items {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		if len(out) > 0 {
			return out
		}
	}
	return nil
}

func stringMap(m map[string]any) map[string]string {
	if len(m) == 0 {
		return nil
	}
	out := make(map[string]string, len(m))
	for k := range m {
		if s := str(m, k); s != "" {
			out[k] = s
		}
	}
	return out
}

// SortedStack returns the stack entries ordered by key.
func (a *ArchitectOutput) SortedStack() [][2]string {
	keys := make([]string, 0, len(a.Stack))
	for k := range a.Stack {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([][2]string, 0, len(keys))
	for _, k := range keys {
		out = append(out, [2]string{k, a.Stack[k]})
	}
	return out
}
