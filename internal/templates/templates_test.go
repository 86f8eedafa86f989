package templates

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetAllTemplates(t *testing.T) {
	all := GetAllTemplates()
	require.Len(t, all, 6)

	ids := map[string]bool{}
	for _, tpl := range all {
		assert.False(t, ids[tpl.ID], "duplicate id %s", tpl.ID)
		ids[tpl.ID] = true
		assert.NotEmpty(t, tpl.Tags)
		assert.Contains(t, Categories(), tpl.Category)
	}
}

func TestTemplatePrompt(t *testing.T) {
	tpl, err := GetTemplateByID("blog-platform")
	require.NoError(t, err)
	assert.Equal(t, "Create a blog platform - Content management system with rich editor", tpl.Prompt)

	_, err = GetTemplateByID("missing")
	assert.Error(t, err)
}

func TestGetTemplatesByCategory(t *testing.T) {
	tests := []struct {
		category TemplateCategory
		want     []string
	}{
		{CategoryCommerce, []string{"ecommerce-store"}},
		{CategoryScheduling, []string{"booking-system"}},
		{"unknown", nil},
	}
	for _, tt := range tests {
		t.Run(string(tt.category), func(t *testing.T) {
			var got []string
			for _, tpl := range GetTemplatesByCategory(tt.category) {
				got = append(got, tpl.ID)
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestGetPopularTemplates(t *testing.T) {
	assert.Len(t, GetPopularTemplates(), 3)
}

func TestGetExampleApps(t *testing.T) {
	apps := GetExampleApps()
	require.Len(t, apps, 5)
	assert.Equal(t, "Customer support ticket system", apps[3].Prompt)
}
