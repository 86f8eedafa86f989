// Package templates - App Templates and Example Prompts
// Provides starting prompts for common kinds of apps
package templates

import (
	"fmt"
	"strings"
)

// TemplateCategory organizes templates by type
type TemplateCategory string

const (
	CategoryCommerce     TemplateCategory = "commerce"
	CategorySocial       TemplateCategory = "social"
	CategoryProductivity TemplateCategory = "productivity"
	CategoryContent      TemplateCategory = "content"
	CategoryEducation    TemplateCategory = "education"
	CategoryScheduling   TemplateCategory = "scheduling"
)

// Template is a starting point for a generation. Prompt is what gets sent
// to the builder when the template is picked.
type Template struct {
	ID          string           `json:"id"`
	Name        string           `json:"name"`
	Description string           `json:"description"`
	Category    TemplateCategory `json:"category"`
	Icon        string           `json:"icon"`
	Tags        []string         `json:"tags"`
	Features    []string         `json:"features"`
	Difficulty  string           `json:"difficulty"` // beginner, intermediate, advanced
	Popular     bool             `json:"popular"`
	Prompt      string           `json:"prompt"`
}

// ExampleApp is a one-line prompt shown as a suggestion.
type ExampleApp struct {
	ID     string `json:"id"`
	Prompt string `json:"prompt"`
}

// GetAllTemplates returns all available app templates
func GetAllTemplates() []Template {
	all := []Template{
		{
			ID:          "ecommerce-store",
			Name:        "E-commerce Store",
			Description: "Full-featured online store with payment processing",
			Category:    CategoryCommerce,
			Icon:        "shopping-bag",
			Tags:        []string{"shop", "cart", "payments", "inventory"},
			Features:    []string{"Product catalog", "Shopping cart", "Checkout and payments", "Order history"},
			Difficulty:  "intermediate",
			Popular:     true,
		},
		{
			ID:          "social-media-app",
			Name:        "Social Media App",
			Description: "Social networking platform with real-time features",
			Category:    CategorySocial,
			Icon:        "smartphone",
			Tags:        []string{"feed", "posts", "followers", "realtime"},
			Features:    []string{"User profiles", "News feed", "Likes and comments", "Real-time notifications"},
			Difficulty:  "advanced",
			Popular:     true,
		},
		{
			ID:          "project-management",
			Name:        "Project Management",
			Description: "Team collaboration and task management tool",
			Category:    CategoryProductivity,
			Icon:        "bar-chart",
			Tags:        []string{"tasks", "kanban", "teams"},
			Features:    []string{"Task boards", "Team members", "Due dates", "Progress dashboard"},
			Difficulty:  "intermediate",
			Popular:     true,
		},
		{
			ID:          "blog-platform",
			Name:        "Blog Platform",
			Description: "Content management system with rich editor",
			Category:    CategoryContent,
			Icon:        "pen-square",
			Tags:        []string{"blog", "cms", "editor", "markdown"},
			Features:    []string{"Rich text editor", "Categories and tags", "Comments", "Author profiles"},
			Difficulty:  "beginner",
		},
		{
			ID:          "learning-management",
			Name:        "Learning Management",
			Description: "Online course platform with progress tracking",
			Category:    CategoryEducation,
			Icon:        "graduation-cap",
			Tags:        []string{"courses", "lessons", "quizzes", "education"},
			Features:    []string{"Course catalog", "Lesson player", "Quizzes", "Progress tracking"},
			Difficulty:  "advanced",
		},
		{
			ID:          "booking-system",
			Name:        "Booking System",
			Description: "Appointment and reservation management",
			Category:    CategoryScheduling,
			Icon:        "calendar-days",
			Tags:        []string{"booking", "calendar", "appointments"},
			Features:    []string{"Availability calendar", "Reservations", "Email reminders", "Admin schedule"},
			Difficulty:  "beginner",
		},
	}
	for i := range all {
		all[i].Prompt = promptFor(all[i])
	}
	return all
}

func promptFor(t Template) string {
	return fmt.Sprintf("Create a %s - %s", strings.ToLower(t.Name), t.Description)
}

// GetExampleApps returns the suggested one-line prompts
func GetExampleApps() []ExampleApp {
	return []ExampleApp{
		{ID: "social-dashboard", Prompt: "Social media dashboard with real-time analytics"},
		{ID: "ecommerce-inventory", Prompt: "E-commerce platform with inventory management"},
		{ID: "team-projects", Prompt: "Project management tool with team collaboration"},
		{ID: "support-tickets", Prompt: "Customer support ticket system"},
		{ID: "event-booking", Prompt: "Event booking and management platform"},
	}
}

// GetTemplateByID returns a specific template by ID
func GetTemplateByID(id string) (*Template, error) {
	for _, t := range GetAllTemplates() {
		if t.ID == id {
			return &t, nil
		}
	}
	return nil, fmt.Errorf("template not found: %s", id)
}

// GetTemplatesByCategory returns templates in a specific category
func GetTemplatesByCategory(category TemplateCategory) []Template {
	var result []Template
	for _, t := range GetAllTemplates() {
		if t.Category == category {
			result = append(result, t)
		}
	}
	return result
}

// GetPopularTemplates returns the most popular templates
func GetPopularTemplates() []Template {
	var result []Template
	for _, t := range GetAllTemplates() {
		if t.Popular {
			result = append(result, t)
		}
	}
	return result
}

// Categories returns the categories in display order.
func Categories() []TemplateCategory {
	return []TemplateCategory{
		CategoryCommerce,
		CategorySocial,
		CategoryProductivity,
		CategoryContent,
		CategoryEducation,
		CategoryScheduling,
	}
}
