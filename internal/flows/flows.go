// Package flows holds the small single-prompt helpers the builder UI uses
// before a full generation: naming an app, listing its features and
// estimating its size.
package flows

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"strings"
	"time"

	"go.uber.org/zap"

	"ai-app-builder/internal/ai"
	"ai-app-builder/internal/logging"
	"ai-app-builder/internal/workflow"
)

const (
	minFeatures = 3
	maxFeatures = 6
)

// ErrEmptyDescription is returned when no description is given.
var ErrEmptyDescription = errors.New("description is required")

// Metrics is the estimated size of a generated app.
type Metrics struct {
	Components       int `json:"components"`
	Pages            int `json:"pages"`
	APIEndpoints     int `json:"apiEndpoints"`
	LinesOfCode      int `json:"linesOfCode"`
	TestCoverage     int `json:"testCoverage"`
	PerformanceScore int `json:"performanceScore"`
}

// Service runs the flows against a completion client.
type Service struct {
	client ai.Completer
	intn   func(n int) int
	logger *zap.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithRandom replaces the source used by the fallback estimate.
func WithRandom(intn func(n int) int) Option {
	return func(s *Service) { s.intn = intn }
}

// NewService creates a flows service.
func NewService(client ai.Completer, logger *zap.Logger, opts ...Option) *Service {
	r := rand.New(rand.NewSource(time.Now().UnixNano()))
	s := &Service{
		client: client,
		intn:   r.Intn,
		logger: logging.OrDefault(logger).Named("flows"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SuggestAppName asks for a short name for the app described.
func (s *Service) SuggestAppName(ctx context.Context, description string) (string, error) {
	description = strings.TrimSpace(description)
	if description == "" {
		return "", ErrEmptyDescription
	}

	prompt := fmt.Sprintf(`You are an expert in naming applications. Based on the description provided, suggest a creative and relevant name for the app.

Description: %s

Respond with only the app name, nothing else.

Name: `, description)

	reply, err := s.client.Complete(ctx, prompt, "")
	if err != nil {
		return "", fmt.Errorf("failed to suggest app name: %w", err)
	}
	if name := cleanName(reply); name != "" {
		return name, nil
	}
	s.logger.Debug("empty name suggestion, using heuristic")
	return workflow.ExtractAppName(description), nil
}

// cleanName takes the first non-empty line and strips quotes, markdown
// and a leading "Name:".
func cleanName(reply string) string {
	for _, line := range strings.Split(reply, "\n") {
		line = strings.TrimSpace(line)
		line = strings.Trim(line, "*_#`>")
		line = strings.TrimSpace(line)
		if len(line) >= 5 && strings.EqualFold(line[:5], "name:") {
			line = strings.TrimSpace(line[5:])
		}
		line = strings.Trim(line, `"'*_`+"`")
		line = strings.TrimSpace(line)
		if line != "" {
			return line
		}
	}
	return ""
}

// GenerateFeatures asks for three to six short features.
func (s *Service) GenerateFeatures(ctx context.Context, description string) ([]string, error) {
	description = strings.TrimSpace(description)
	if description == "" {
		return nil, ErrEmptyDescription
	}

	prompt := fmt.Sprintf(`You are an AI assistant that generates key features for an application based on its description.

Description: %s

Generate a list of key features that would be relevant for this application.
Each item in the list should be less than 5 words.
There should be at least 3 and no more than 6 items in the list.

Respond with a JSON array of strings, for example: ["User authentication", "Real-time notifications", "Data analytics"]`, description)

	reply, err := s.client.Complete(ctx, prompt, "")
	if err != nil {
		return nil, fmt.Errorf("failed to generate features: %w", err)
	}
	return padFeatures(parseFeatures(reply), description), nil
}

func parseFeatures(reply string) []string {
	var parsed []string
	if err := json.Unmarshal([]byte(stripFence(reply)), &parsed); err == nil {
		return cleanList(parsed)
	}

	var lines []string
	for _, line := range strings.Split(reply, "\n") {
		line = strings.TrimSpace(line)
		line = strings.TrimSpace(strings.TrimLeft(line, "-*"))
		if line != "" && !strings.HasPrefix(line, "```") {
			lines = append(lines, line)
		}
	}
	return cleanList(lines)
}

func cleanList(in []string) []string {
	out := make([]string, 0, len(in))
	for _, f := range in {
		if f = strings.TrimSpace(f); f != "" {
			out = append(out, f)
		}
		if len(out) == maxFeatures {
			break
		}
	}
	return out
}

// padFeatures fills a short list from the keyword heuristics, then the
// common features.
func padFeatures(features []string, description string) []string {
	if len(features) >= minFeatures {
		return features
	}
	seen := make(map[string]bool, len(features))
	for _, f := range features {
		seen[strings.ToLower(f)] = true
	}
	candidates := append(workflow.ExtractFeatures(description), workflow.CommonFeatures()...)
	for _, c := range candidates {
		if len(features) >= minFeatures {
			break
		}
		if !seen[strings.ToLower(c)] {
			seen[strings.ToLower(c)] = true
			features = append(features, c)
		}
	}
	return features
}

// EstimateCodeMetrics asks for a size estimate and clamps it to sane
// ranges. An unparseable reply gives an estimate from the feature count.
func (s *Service) EstimateCodeMetrics(ctx context.Context, description string, features []string) (Metrics, error) {
	description = strings.TrimSpace(description)
	if description == "" {
		return Metrics{}, ErrEmptyDescription
	}

	prompt := fmt.Sprintf(`Based on this app description and features, estimate the code structure:

App: %s
Features: %s

Provide realistic estimates for a Next.js application with these features. Consider:
- Number of React components needed
- Number of pages/routes
- Number of API endpoints
- Estimated lines of code
- Expected test coverage
- Performance score (0-100)

Respond with a JSON object with these exact keys: components, pages, apiEndpoints, linesOfCode, testCoverage, performanceScore`,
		description, strings.Join(features, ", "))

	reply, err := s.client.Complete(ctx, prompt, "")
	if err != nil {
		return Metrics{}, fmt.Errorf("failed to estimate code metrics: %w", err)
	}

	var raw map[string]any
	if err := json.Unmarshal([]byte(stripFence(reply)), &raw); err != nil {
		s.logger.Debug("unparseable metrics estimate, using feature count", zap.Error(err))
		return s.estimateFromFeatures(len(features)), nil
	}
	return Metrics{
		Components:       clamp(number(raw, "components", 15), 5, 50),
		Pages:            clamp(number(raw, "pages", 8), 3, 20),
		APIEndpoints:     clamp(number(raw, "apiEndpoints", 12), 3, 30),
		LinesOfCode:      clamp(number(raw, "linesOfCode", 2500), 500, 10000),
		TestCoverage:     clamp(number(raw, "testCoverage", 85), 70, 100),
		PerformanceScore: clamp(number(raw, "performanceScore", 92), 80, 100),
	}, nil
}

func (s *Service) estimateFromFeatures(n int) Metrics {
	return Metrics{
		Components:       max(8, 2*n+s.intn(5)),
		Pages:            max(4, n+s.intn(3)),
		APIEndpoints:     max(5, 2*n+s.intn(4)),
		LinesOfCode:      max(1000, 400*n+s.intn(1000)),
		TestCoverage:     80 + s.intn(15),
		PerformanceScore: 85 + s.intn(10),
	}
}

// number reads a numeric field. Missing, zero or non-numeric values give
// def.
func number(raw map[string]any, key string, def int) int {
	v, ok := raw[key].(float64)
	if !ok || v == 0 || math.IsNaN(v) {
		return def
	}
	return int(math.Round(v))
}

func clamp(v, lo, hi int) int {
	return min(max(v, lo), hi)
}

// stripFence removes a surrounding markdown code fence.
func stripFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[i+1:]
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
