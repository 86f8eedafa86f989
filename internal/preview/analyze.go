package preview

import (
	"strings"

	"ai-app-builder/internal/agents"
	"ai-app-builder/internal/workflow"
)

// AppType selects the archetype the preview renders.
type AppType string

const (
	AppCalculator AppType = "calculator"
	AppEcommerce  AppType = "ecommerce"
	AppSocial     AppType = "social"
	AppBlog       AppType = "blog"
	AppPortfolio  AppType = "portfolio"
	AppDashboard  AppType = "dashboard"
	AppDefault    AppType = "default"
)

// Complexity is a coarse size estimate of the generated app.
type Complexity string

const (
	ComplexitySimple     Complexity = "simple"
	ComplexityModerate   Complexity = "moderate"
	ComplexityAdvanced   Complexity = "advanced"
	ComplexityEnterprise Complexity = "enterprise"
)

// Config drives Render.
type Config struct {
	AppType      AppType    `json:"appType"`
	Features     []string   `json:"features"`
	HasAuth      bool       `json:"hasAuth"`
	HasDashboard bool       `json:"hasDashboard"`
	HasRealtime  bool       `json:"hasRealtime"`
	HasPayments  bool       `json:"hasPayments"`
	HasChat      bool       `json:"hasChat"`
	HasCalendar  bool       `json:"hasCalendar"`
	HasAnalytics bool       `json:"hasAnalytics"`
	ColorScheme  string     `json:"colorScheme"`
	Complexity   Complexity `json:"complexity"`
}

// appTypeKeywords is matched in order; the first archetype with a hit wins.
var appTypeKeywords = []struct {
	typ      AppType
	keywords []string
}{
	{AppCalculator, []string{"calculator", "calc", "math", "arithmetic"}},
	{AppEcommerce, []string{"shop", "store", "ecommerce", "e-commerce", "product", "cart"}},
	{AppSocial, []string{"social", "media", "post", "feed", "follow", "like"}},
	{AppBlog, []string{"blog", "article", "content", "cms", "publish"}},
	{AppPortfolio, []string{"portfolio", "showcase", "gallery", "work"}},
	{AppDashboard, []string{"dashboard", "admin", "analytics", "metrics"}},
}

var colorSchemes = []string{"blue", "green", "purple", "red"}

// DetectAppType picks the archetype for a description.
func DetectAppType(description string) AppType {
	d := strings.ToLower(description)
	for _, entry := range appTypeKeywords {
		if containsAny(d, entry.keywords...) {
			return entry.typ
		}
	}
	return AppDefault
}

// Analyze derives the preview configuration from the project description
// and the recorded agent outputs.
func Analyze(p *workflow.Project) Config {
	d := strings.ToLower(p.Description)
	outputs := p.Outputs()

	return Config{
		AppType:      DetectAppType(d),
		Features:     detectFeatures(d, outputs),
		HasAuth:      containsAny(d, "login", "auth", "sign", "user", "account"),
		HasDashboard: containsAny(d, "dashboard", "admin", "panel", "overview"),
		HasRealtime:  containsAny(d, "real-time", "live", "chat", "notification"),
		HasPayments:  containsAny(d, "payment", "billing", "subscription", "checkout"),
		HasChat:      containsAny(d, "chat", "message", "communication"),
		HasCalendar:  containsAny(d, "calendar", "schedule", "appointment", "booking"),
		HasAnalytics: containsAny(d, "analytics", "metrics", "stats", "report"),
		ColorScheme:  detectColorScheme(d),
		Complexity:   detectComplexity(d, outputs),
	}
}

func detectFeatures(d string, outputs map[agents.Role]agents.Output) []string {
	features := []string{}
	if containsAny(d, "auth", "login") {
		features = append(features, "Authentication")
	}
	if containsAny(d, "dark", "theme") {
		features = append(features, "Dark Mode")
	}
	if containsAny(d, "responsive") {
		features = append(features, "Responsive Design")
	}
	if containsAny(d, "real-time", "live") {
		features = append(features, "Real-time Updates")
	}

	if hasKey(outputs[agents.RoleUIUX], "components") {
		features = append(features, "Modern UI Components")
	}
	if hasKey(outputs[agents.RoleBackend], "endpoints") {
		features = append(features, "REST API")
	}
	if hasKey(outputs[agents.RoleDatabase], "schema") {
		features = append(features, "Database Integration")
	}
	return features
}

func detectColorScheme(d string) string {
	for _, c := range colorSchemes {
		if strings.Contains(d, c) {
			return c
		}
	}
	return "blue"
}

func detectComplexity(d string, outputs map[agents.Role]agents.Output) Complexity {
	score := 0
	if containsAny(d, "auth", "login") {
		score++
	}
	if containsAny(d, "real-time", "live") {
		score += 2
	}
	if containsAny(d, "payment", "billing") {
		score += 2
	}
	if containsAny(d, "admin", "dashboard") {
		score++
	}
	if be, ok := outputs[agents.RoleBackend].(*agents.BackendOutput); ok && len(be.Endpoints) > 5 {
		score++
	}
	if db, ok := outputs[agents.RoleDatabase].(*agents.DatabaseOutput); ok && len(db.Tables) > 3 {
		score++
	}

	switch {
	case score >= 6:
		return ComplexityEnterprise
	case score >= 4:
		return ComplexityAdvanced
	case score >= 2:
		return ComplexityModerate
	default:
		return ComplexitySimple
	}
}

func hasKey(out agents.Output, key string) bool {
	if out == nil {
		return false
	}
	_, ok := out.Data()[key]
	return ok
}

func containsAny(s string, keywords ...string) bool {
	for _, k := range keywords {
		if strings.Contains(s, k) {
			return true
		}
	}
	return false
}
