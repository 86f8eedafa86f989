package workflow

import (
	"context"
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"go.uber.org/zap"

	"ai-app-builder/internal/agents"
	"ai-app-builder/internal/ai"
)

const defaultAppName = "AI Generated App"

const plannerSystemPrompt = `You are an Elite Project Orchestrator AI. Analyze user requirements and create a comprehensive project plan.

RESPOND WITH VALID JSON ONLY:
{
  "name": "concise app name",
  "description": "detailed project description",
  "stack": {
    "frontend": "recommended frontend tech",
    "backend": "recommended backend tech",
    "database": "recommended database"
  },
  "features": ["key feature 1", "key feature 2"],
  "architecture": "architecture pattern"
}`

func plannerUserPrompt(prompt string) string {
	return fmt.Sprintf(`User Request: %q

Analyze this request and create a comprehensive project plan. Focus on:
- Modern, scalable technology choices
- Key features that deliver value
- Production-ready architecture

Respond with valid JSON only.`, prompt)
}

// Plan is the project outline produced before any agent runs.
type Plan struct {
	Name         string
	Description  string
	Stack        map[string]string
	Features     []string
	Architecture string
	// Heuristic is set when the plan came from keyword rules.
	Heuristic bool
}

var appTypeWords = map[string]bool{
	"app": true, "application": true, "platform": true, "system": true,
	"tool": true, "manager": true, "tracker": true,
}

// ExtractAppName derives a title from the words leading up to the first
// app-type noun, e.g. "build a task manager" → "A Task Manager".
func ExtractAppName(prompt string) string {
	words := strings.Split(strings.ToLower(prompt), " ")
	for i, w := range words {
		if i == 0 || !appTypeWords[w] {
			continue
		}
		start := i - 2
		if start < 0 {
			start = 0
		}
		picked := make([]string, 0, i-start+1)
		for _, word := range words[start : i+1] {
			picked = append(picked, capitalize(word))
		}
		return strings.Join(picked, " ")
	}
	return defaultAppName
}

var commonFeatures = []string{
	"User Authentication", "Dashboard", "Data Management",
	"Responsive Design", "Real-time Updates", "Search Functionality",
}

// ExtractFeatures maps keywords in prompt to feature names. Prompts that
// match nothing get the first four common features.
func ExtractFeatures(prompt string) []string {
	lower := strings.ToLower(prompt)
	var features []string
	if strings.Contains(lower, "login") || strings.Contains(lower, "auth") {
		features = append(features, "Authentication")
	}
	if strings.Contains(lower, "dashboard") {
		features = append(features, "Dashboard")
	}
	if strings.Contains(lower, "dark mode") {
		features = append(features, "Dark Mode")
	}
	if strings.Contains(lower, "search") {
		features = append(features, "Search")
	}
	if strings.Contains(lower, "real-time") || strings.Contains(lower, "live") {
		features = append(features, "Real-time Updates")
	}
	if len(features) == 0 {
		return append([]string(nil), commonFeatures[:4]...)
	}
	return features
}

// CommonFeatures returns the generic feature list used to pad suggestions.
func CommonFeatures() []string {
	return append([]string(nil), commonFeatures...)
}

func heuristicPlan(prompt string) Plan {
	return Plan{
		Name:         ExtractAppName(prompt),
		Description:  prompt,
		Stack:        map[string]string{"frontend": "Next.js", "backend": "Node.js", "database": "PostgreSQL"},
		Features:     ExtractFeatures(prompt),
		Architecture: "Full-stack web application",
		Heuristic:    true,
	}
}

// parsePlan reads a planner reply. Blank fields fall back to heuristics.
func parsePlan(prompt, reply string) (Plan, bool) {
	m, ok := agents.ParseObject(reply)
	if !ok {
		return Plan{}, false
	}

	plan := heuristicPlan(prompt)
	plan.Heuristic = false
	if name := stringField(m["name"]); name != "" {
		plan.Name = name
	}
	if desc := stringField(m["description"]); desc != "" {
		plan.Description = desc
	}
	if stack, ok := m["stack"].(map[string]any); ok && len(stack) > 0 {
		plan.Stack = make(map[string]string, len(stack))
		for k, v := range stack {
			if s := stringField(v); s != "" {
				plan.Stack[k] = s
			}
		}
	}
	if items, ok := m["features"].([]any); ok && len(items) > 0 {
		plan.Features = plan.Features[:0:0]
		for _, item := range items {
			if s := stringField(item); s != "" {
				plan.Features = append(plan.Features, s)
			}
		}
	}
	if arch := stringField(m["architecture"]); arch != "" {
		plan.Architecture = arch
	}
	return plan, true
}

// planProject asks the model for a plan. It never fails: completion or
// parse errors fall back to the keyword heuristics.
func planProject(ctx context.Context, client ai.Completer, prompt string, log *zap.Logger) Plan {
	reply, err := client.Complete(ctx, plannerUserPrompt(prompt), plannerSystemPrompt)
	if err != nil {
		log.Warn("planner completion failed, using heuristics", zap.Error(err))
		return heuristicPlan(prompt)
	}
	plan, ok := parsePlan(prompt, reply)
	if !ok {
		log.Warn("planner reply was not JSON, using heuristics", zap.Int("length", len(reply)))
		return heuristicPlan(prompt)
	}
	return plan
}

func stringField(v any) string {
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t)
	case float64, bool:
		return fmt.Sprint(t)
	default:
		return ""
	}
}

func capitalize(w string) string {
	if w == "" {
		return w
	}
	r, size := utf8.DecodeRuneInString(w)
	return string(unicode.ToUpper(r)) + w[size:]
}
