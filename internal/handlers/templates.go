package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"ai-app-builder/internal/templates"
)

// ListTemplates returns the catalog grouped by category plus the example
// prompts. ?popular=true or ?category= narrow the list.
func (h *Handler) ListTemplates(c *gin.Context) {
	list := selectTemplates(c.Query("category"), c.Query("popular") == "true")

	byCategory := make(map[templates.TemplateCategory][]templates.Template)
	for _, t := range list {
		byCategory[t.Category] = append(byCategory[t.Category], t)
	}

	respondOK(c, http.StatusOK, gin.H{
		"templates":  list,
		"categories": byCategory,
		"examples":   templates.GetExampleApps(),
		"count":      len(list),
	})
}

func selectTemplates(category string, popular bool) []templates.Template {
	switch {
	case popular:
		return templates.GetPopularTemplates()
	case category != "":
		return templates.GetTemplatesByCategory(templates.TemplateCategory(category))
	default:
		return templates.GetAllTemplates()
	}
}

// GetTemplate returns one template, 404 TEMPLATE_NOT_FOUND when the id is
// unknown.
func (h *Handler) GetTemplate(c *gin.Context) {
	t, err := templates.GetTemplateByID(c.Param("id"))
	if err != nil {
		respondError(c, http.StatusNotFound, "TEMPLATE_NOT_FOUND", "Template not found")
		return
	}
	respondOK(c, http.StatusOK, t)
}
