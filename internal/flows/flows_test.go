package flows

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"ai-app-builder/internal/ai"
)

type stubCompleter struct {
	reply  string
	err    error
	prompt string
}

func (s *stubCompleter) Complete(_ context.Context, prompt, _ string) (string, error) {
	s.prompt = prompt
	return s.reply, s.err
}

func (s *stubCompleter) CompleteStream(ctx context.Context, prompt, sys string, onChunk func(string)) (string, error) {
	out, err := s.Complete(ctx, prompt, sys)
	if err == nil {
		onChunk(out)
	}
	return out, err
}

func (s *stubCompleter) Verify(context.Context) ai.VerifyResult {
	return ai.VerifyResult{Success: true}
}

func (s *stubCompleter) Provider() ai.Provider { return ai.ProviderCerebras }

func newService(reply string) (*Service, *stubCompleter) {
	c := &stubCompleter{reply: reply}
	return NewService(c, zap.NewNop(), WithRandom(func(int) int { return 0 })), c
}

func TestSuggestAppName(t *testing.T) {
	tests := []struct {
		name  string
		reply string
		want  string
	}{
		{"plain", "TaskFlow", "TaskFlow"},
		{"quoted", `"ShopEase"`, "ShopEase"},
		{"markdown", "**EventHub**", "EventHub"},
		{"prefixed", "Name: Budget Buddy", "Budget Buddy"},
		{"first line", "\n\nRecipeBox\nA great name because...", "RecipeBox"},
		{"empty falls back", "  \n ", "Todo List App"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, c := newService(tt.reply)
			got, err := s.SuggestAppName(context.Background(), "a todo list app for families")
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Contains(t, c.prompt, "Description: a todo list app for families")
		})
	}
}

func TestSuggestAppName_Errors(t *testing.T) {
	s, c := newService("")
	_, err := s.SuggestAppName(context.Background(), "   ")
	assert.ErrorIs(t, err, ErrEmptyDescription)

	c.err = ai.ErrCompletionFailed
	_, err = s.SuggestAppName(context.Background(), "a blog")
	assert.ErrorIs(t, err, ai.ErrCompletionFailed)
}

func TestGenerateFeatures(t *testing.T) {
	tests := []struct {
		name  string
		reply string
		want  []string
	}{
		{
			name:  "json array",
			reply: `["Task lists", "Reminders", "Sharing"]`,
			want:  []string{"Task lists", "Reminders", "Sharing"},
		},
		{
			name:  "fenced json",
			reply: "```json\n[\"A\", \"B\", \"C\", \"D\"]\n```",
			want:  []string{"A", "B", "C", "D"},
		},
		{
			name:  "bullets capped at six",
			reply: "- One\n* Two\n- Three\n- Four\n- Five\n- Six\n- Seven",
			want:  []string{"One", "Two", "Three", "Four", "Five", "Six"},
		},
		{
			name:  "padded from heuristics",
			reply: `["Search"]`,
			want:  []string{"Search", "Dashboard", "User Authentication"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, _ := newService(tt.reply)
			got, err := s.GenerateFeatures(context.Background(), "a dashboard with search")
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestEstimateCodeMetrics_Parsed(t *testing.T) {
	tests := []struct {
		name  string
		reply string
		want  Metrics
	}{
		{
			name:  "in range",
			reply: `{"components":20,"pages":6,"apiEndpoints":10,"linesOfCode":4000,"testCoverage":90,"performanceScore":95}`,
			want:  Metrics{20, 6, 10, 4000, 90, 95},
		},
		{
			name:  "clamped",
			reply: `{"components":500,"pages":1,"apiEndpoints":99,"linesOfCode":10,"testCoverage":10,"performanceScore":101}`,
			want:  Metrics{50, 3, 30, 500, 70, 100},
		},
		{
			name:  "defaults for missing",
			reply: "```json\n{\"components\": 0}\n```",
			want:  Metrics{15, 8, 12, 2500, 85, 92},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, _ := newService(tt.reply)
			got, err := s.EstimateCodeMetrics(context.Background(), "a shop", []string{"Cart"})
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestEstimateCodeMetrics_Fallback(t *testing.T) {
	s, _ := newService("I think about 12 components")
	got, err := s.EstimateCodeMetrics(context.Background(), "a shop", []string{"a", "b", "c", "d", "e"})
	require.NoError(t, err)
	assert.Equal(t, Metrics{Components: 10, Pages: 5, APIEndpoints: 10, LinesOfCode: 2000, TestCoverage: 80, PerformanceScore: 85}, got)

	s, _ = newService("nope")
	got, err = s.EstimateCodeMetrics(context.Background(), "a shop", nil)
	require.NoError(t, err)
	assert.Equal(t, Metrics{Components: 8, Pages: 4, APIEndpoints: 5, LinesOfCode: 1000, TestCoverage: 80, PerformanceScore: 85}, got)
}

func TestEstimateCodeMetrics_CompletionError(t *testing.T) {
	s, c := newService("")
	c.err = errors.New("boom")
	_, err := s.EstimateCodeMetrics(context.Background(), "a shop", nil)
	assert.Error(t, err)
}
