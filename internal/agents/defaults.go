package agents

import "encoding/json"

type requirement struct {
	key   string
	array bool
}

var requiredKeys = map[Role][]requirement{
	RoleArchitect:  {{key: "architecture"}, {key: "stack"}, {key: "structure"}},
	RoleUIUX:       {{key: "design"}, {key: "components", array: true}},
	RoleBackend:    {{key: "api"}, {key: "endpoints", array: true}},
	RoleDatabase:   {{key: "design"}, {key: "schema"}, {key: "optimization"}},
	RoleTester:     {{key: "strategy"}, {key: "tests", array: true}},
	RoleDeployment: {{key: "strategy"}, {key: "containers"}, {key: "cicd"}},
}

// Validate reports whether m has every key role requires.
func Validate(role Role, m map[string]any) bool {
	for _, req := range requiredKeys[role] {
		if !satisfied(m, req) {
			return false
		}
	}
	return true
}

func satisfied(m map[string]any, req requirement) bool {
	v, ok := m[req.key]
	if !ok || v == nil {
		return false
	}
	if req.array {
		_, isArray := v.([]any)
		return isArray
	}
	return true
}

// enhance fills unmet requirements in m from the role defaults and returns
// the keys it replaced. Keys that are already valid are left alone.
func enhance(role Role, m map[string]any) []string {
	var replaced []string
	defaults := defaultValues(role)
	for _, req := range requiredKeys[role] {
		if satisfied(m, req) {
			continue
		}
		m[req.key] = defaults[req.key]
		replaced = append(replaced, req.key)
	}
	return replaced
}

func defaultValues(role Role) map[string]any {
	switch role {
	case RoleArchitect:
		return map[string]any{
			"architecture": map[string]any{"pattern": "microservices", "description": "Scalable architecture"},
			"stack":        map[string]any{"frontend": "Next.js", "backend": "Node.js", "database": "PostgreSQL"},
			"structure":    []any{"src/", "components/", "pages/", "api/"},
		}
	case RoleUIUX:
		return map[string]any{
			"design":     map[string]any{"theme": "modern", "colors": "accessible palette"},
			"components": []any{map[string]any{"name": "App", "code": "// Component code", "purpose": "main app"}},
			"layout":     map[string]any{"structure": "responsive"},
		}
	case RoleBackend:
		return map[string]any{
			"api":        map[string]any{"architecture": "REST", "authentication": "JWT"},
			"endpoints":  []any{map[string]any{"path": "/api/health", "method": "GET", "code": "// Health check"}},
			"middleware": map[string]any{"security": "helmet, cors"},
		}
	case RoleDatabase:
		return map[string]any{
			"design":       map[string]any{"type": "PostgreSQL", "reasoning": "ACID compliance"},
			"schema":       map[string]any{"tables": []any{}},
			"optimization": map[string]any{"indexes": "performance indexes"},
		}
	case RoleTester:
		return map[string]any{
			"strategy": map[string]any{"approach": "TDD", "coverage": "80%"},
			"tests":    []any{map[string]any{"type": "unit", "file": "test.js", "code": "// Test code"}},
			"quality":  map[string]any{"linting": "ESLint"},
		}
	case RoleDeployment:
		return map[string]any{
			"strategy":   map[string]any{"platform": "Vercel", "approach": "serverless"},
			"containers": map[string]any{"dockerfile": "FROM node:18"},
			"cicd":       map[string]any{"pipeline": "GitHub Actions"},
		}
	}
	return map[string]any{}
}

// minimalEnvelope wraps raw model text in the role's response shape.
func minimalEnvelope(role Role, raw string) map[string]any {
	switch role {
	case RoleArchitect:
		return map[string]any{
			"architecture": map[string]any{"pattern": "microservices", "description": raw},
			"stack":        map[string]any{"frontend": "Next.js", "backend": "Node.js", "database": "PostgreSQL"},
			"structure":    []any{"src/", "components/", "pages/", "api/"},
		}
	case RoleUIUX:
		return map[string]any{
			"design":     map[string]any{"theme": "modern", "colors": "blue-based palette"},
			"components": []any{map[string]any{"name": "App", "code": raw, "purpose": "main application"}},
			"layout":     map[string]any{"structure": "responsive grid"},
		}
	case RoleBackend:
		return map[string]any{
			"api":        map[string]any{"architecture": "REST", "authentication": "JWT"},
			"endpoints":  []any{map[string]any{"path": "/api/data", "method": "GET", "code": raw}},
			"middleware": map[string]any{"security": "helmet, cors"},
		}
	case RoleDatabase:
		return map[string]any{
			"design":       map[string]any{"type": "PostgreSQL", "reasoning": "relational data needs"},
			"schema":       map[string]any{"tables": []any{map[string]any{"name": "users", "fields": []any{}}}},
			"optimization": map[string]any{"indexes": "primary keys"},
		}
	case RoleTester:
		return map[string]any{
			"strategy": map[string]any{"approach": "TDD", "coverage": "80%"},
			"tests":    []any{map[string]any{"type": "unit", "file": "app.test.js", "code": raw}},
			"quality":  map[string]any{"linting": "ESLint"},
		}
	case RoleDeployment:
		return map[string]any{
			"strategy":   map[string]any{"platform": "Vercel", "approach": "serverless"},
			"containers": map[string]any{"dockerfile": raw},
			"cicd":       map[string]any{"pipeline": "GitHub Actions"},
		}
	}
	return map[string]any{"raw": raw}
}

// fallbackResponse is the JSON reply substituted when the model cannot be
// reached. The user prompt is interpolated where the reply describes it.
func fallbackResponse(role Role, prompt string) string {
	var v map[string]any
	switch role {
	case RoleArchitect:
		v = map[string]any{
			"architecture": map[string]any{
				"pattern":     "microservices",
				"description": "Scalable microservices architecture for " + prompt,
				"scalability": "horizontal scaling with load balancers",
				"security":    "JWT authentication, HTTPS, input validation",
			},
			"stack": map[string]any{
				"frontend":   "Next.js with TypeScript",
				"backend":    "Node.js with Express",
				"database":   "PostgreSQL with Redis caching",
				"deployment": "Docker containers on Vercel/AWS",
			},
			"structure": map[string]any{
				"folders":      []any{"src/", "components/", "pages/", "api/", "lib/", "types/"},
				"patterns":     []any{"MVC", "Repository Pattern", "Dependency Injection"},
				"integrations": []any{"Authentication", "Database", "Caching", "Monitoring"},
			},
		}
	case RoleUIUX:
		v = map[string]any{
			"design": map[string]any{
				"theme":      "modern minimalist",
				"colors":     "blue and white with dark mode support",
				"typography": "Inter font family with clear hierarchy",
				"spacing":    "8px grid system",
			},
			"components": []any{
				map[string]any{"name": "Header", "purpose": "navigation and branding", "code": "// Modern header component with responsive navigation"},
				map[string]any{"name": "Dashboard", "purpose": "main application interface", "code": "// Dashboard with cards and data visualization"},
			},
			"layout": map[string]any{
				"structure":  "responsive grid layout",
				"navigation": "sidebar with mobile hamburger menu",
				"responsive": "mobile-first approach",
			},
		}
	case RoleBackend:
		v = map[string]any{
			"api": map[string]any{
				"architecture":   "RESTful API",
				"authentication": "JWT with refresh tokens",
				"rateLimit":      "100 requests per minute",
				"validation":     "Joi schema validation",
			},
			"endpoints": []any{
				map[string]any{"path": "/api/auth/login", "method": "POST", "purpose": "user authentication", "code": "// Login endpoint with JWT generation"},
				map[string]any{"path": "/api/users", "method": "GET", "purpose": "fetch user data", "code": "// Protected user data endpoint"},
			},
			"middleware": map[string]any{
				"security":   "helmet, cors, rate limiting",
				"logging":    "winston structured logging",
				"monitoring": "health checks and metrics",
			},
		}
	case RoleDatabase:
		v = map[string]any{
			"design": map[string]any{
				"type":        "PostgreSQL",
				"reasoning":   "ACID compliance and complex queries",
				"scalability": "read replicas and connection pooling",
			},
			"schema": map[string]any{
				"tables": []any{
					map[string]any{
						"name":    "users",
						"purpose": "user account management",
						"fields": []any{
							map[string]any{"name": "id", "type": "UUID", "constraints": "PRIMARY KEY"},
							map[string]any{"name": "email", "type": "VARCHAR(255)", "constraints": "UNIQUE NOT NULL"},
							map[string]any{"name": "password_hash", "type": "VARCHAR(255)", "constraints": "NOT NULL"},
						},
						"indexes":       []any{"email", "created_at"},
						"relationships": "one-to-many with projects",
					},
				},
			},
			"optimization": map[string]any{
				"indexes": "B-tree indexes on frequently queried columns",
				"queries": "optimized joins and pagination",
				"caching": "Redis for session and query caching",
			},
		}
	case RoleTester:
		v = map[string]any{
			"strategy": map[string]any{
				"approach":   "Test-Driven Development",
				"coverage":   "85% minimum coverage",
				"automation": "CI/CD pipeline integration",
			},
			"tests": []any{
				map[string]any{"type": "unit", "file": "components.test.tsx", "code": "// React component unit tests", "coverage": "component rendering and interactions"},
				map[string]any{"type": "integration", "file": "api.test.ts", "code": "// API endpoint integration tests", "coverage": "request/response validation"},
			},
			"quality": map[string]any{
				"linting":      "ESLint with TypeScript rules",
				"typeChecking": "strict TypeScript configuration",
				"security":     "npm audit and dependency scanning",
			},
		}
	case RoleDeployment:
		v = map[string]any{
			"strategy": map[string]any{
				"platform": "Vercel for frontend, Railway for backend",
				"approach": "containerized deployment",
				"scaling":  "auto-scaling based on traffic",
			},
			"containers": map[string]any{
				"dockerfile": "FROM node:18-alpine\nWORKDIR /app\nCOPY package*.json ./\nRUN npm ci\nCOPY . .\nRUN npm run build\nEXPOSE 3000\nCMD [\"npm\", \"start\"]",
				"compose":    "version: '3.8'\nservices:\n  app:\n    build: .\n    ports:\n      - \"3000:3000\"",
				"kubernetes": "deployment and service manifests",
			},
			"cicd": map[string]any{
				"pipeline":     "GitHub Actions workflow",
				"stages":       "test, build, deploy",
				"environments": "staging and production",
			},
		}
	default:
		v = map[string]any{"message": "Agent processing completed"}
	}

	encoded, err := json.Marshal(v)
	if err != nil {
		return "{}"
	}
	return string(encoded)
}
