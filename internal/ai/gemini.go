package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"go.uber.org/zap"
)

const (
	geminiBaseURL      = "https://generativelanguage.googleapis.com/v1beta"
	geminiDefaultModel = "gemini-1.5-flash"
)

// GeminiClient implements the Google Gemini API client
type GeminiClient struct {
	apiKey     string
	baseURL    string
	model      string
	httpClient *http.Client
	usage      *usageTracker
	logger     *zap.Logger
}

// Gemini API request/response structures
type geminiRequest struct {
	SystemInstruction *geminiContent   `json:"systemInstruction,omitempty"`
	Contents          []geminiContent  `json:"contents"`
	GenerationConfig  *geminiGenConfig `json:"generationConfig,omitempty"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type geminiPart struct {
	Text string `json:"text"`
}

type geminiGenConfig struct {
	Temperature     float64 `json:"temperature"`
	MaxOutputTokens int     `json:"maxOutputTokens,omitempty"`
	TopP            float64 `json:"topP,omitempty"`
}

type geminiResponse struct {
	Candidates []struct {
		Content struct {
			Parts []struct {
				Text string `json:"text"`
			} `json:"parts"`
		} `json:"content"`
		FinishReason string `json:"finishReason"`
	} `json:"candidates"`
	UsageMetadata struct {
		PromptTokenCount     int `json:"promptTokenCount"`
		CandidatesTokenCount int `json:"candidatesTokenCount"`
	} `json:"usageMetadata"`
	Error *apiErrorBody `json:"error,omitempty"`
}

// text concatenates the parts of the first candidate.
func (r *geminiResponse) text() string {
	if len(r.Candidates) == 0 {
		return ""
	}
	var sb strings.Builder
	for _, p := range r.Candidates[0].Content.Parts {
		sb.WriteString(p.Text)
	}
	return sb.String()
}

type geminiModelList struct {
	Models []struct {
		Name string `json:"name"`
	} `json:"models"`
}

// NewGeminiClient creates a new Gemini API client. The key resolves from
// opts.APIKey, GEMINI_API_KEY, GOOGLE_AI_API_KEY, then GOOGLE_GEMINI_API_KEY.
func NewGeminiClient(opts Options) (*GeminiClient, error) {
	key := ResolveAPIKey(ProviderGemini, opts.APIKey)
	if key == "" {
		return nil, fmt.Errorf("gemini: %w", ErrMissingAPIKey)
	}

	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = geminiBaseURL
	}
	model := opts.Model
	if model == "" {
		model = geminiDefaultModel
	}

	return &GeminiClient{
		apiKey:     key,
		baseURL:    baseURL,
		model:      model,
		httpClient: opts.httpClient(),
		usage:      newUsageTracker(ProviderGemini),
		logger:     clientLogger(opts.Logger, ProviderGemini),
	}, nil
}

// Provider returns the provider identifier
func (g *GeminiClient) Provider() Provider { return ProviderGemini }

// Usage returns current usage statistics
func (g *GeminiClient) Usage() ProviderUsage { return g.usage.snapshot() }

// Complete calls generateContent.
func (g *GeminiClient) Complete(ctx context.Context, prompt, systemMessage string) (string, error) {
	req := g.newRequest(prompt, systemMessage)
	url := fmt.Sprintf("%s/models/%s:generateContent", g.baseURL, g.model)

	var content string
	err := call(ctx, ProviderGemini, "complete", g.usage, func() (int, int, error) {
		resp, err := g.makeRequest(ctx, http.MethodPost, url, req)
		if err != nil {
			return 0, 0, err
		}
		defer resp.Body.Close()

		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return 0, 0, transportError(ProviderGemini, err)
		}
		var out geminiResponse
		if err := json.Unmarshal(body, &out); err != nil {
			return 0, 0, &CompletionError{Provider: ProviderGemini, StatusCode: resp.StatusCode, Message: "failed to unmarshal response", Err: err}
		}
		if out.Error != nil {
			return 0, 0, &CompletionError{Provider: ProviderGemini, StatusCode: resp.StatusCode, Message: out.Error.Message}
		}
		content = out.text()
		return out.UsageMetadata.PromptTokenCount, out.UsageMetadata.CandidatesTokenCount, nil
	})
	if err != nil {
		g.logger.Warn("completion failed", zap.Error(err))
		return "", err
	}
	return content, nil
}

// CompleteStream calls streamGenerateContent with alt=sse.
func (g *GeminiClient) CompleteStream(ctx context.Context, prompt, systemMessage string, onChunk func(string)) (string, error) {
	req := g.newRequest(prompt, systemMessage)
	url := fmt.Sprintf("%s/models/%s:streamGenerateContent?alt=sse", g.baseURL, g.model)

	var full strings.Builder
	err := call(ctx, ProviderGemini, "stream", g.usage, func() (int, int, error) {
		resp, err := g.makeRequest(ctx, http.MethodPost, url, req)
		if err != nil {
			return 0, 0, err
		}
		defer resp.Body.Close()

		var promptTokens, completionTokens int
		err = readSSE(resp.Body, func(payload string) (bool, error) {
			var chunk geminiResponse
			if err := json.Unmarshal([]byte(payload), &chunk); err != nil {
				return false, &CompletionError{Provider: ProviderGemini, Message: "failed to decode stream chunk", Err: err}
			}
			if chunk.Error != nil {
				return false, &CompletionError{Provider: ProviderGemini, Message: chunk.Error.Message}
			}
			if chunk.UsageMetadata.PromptTokenCount > 0 {
				promptTokens = chunk.UsageMetadata.PromptTokenCount
				completionTokens = chunk.UsageMetadata.CandidatesTokenCount
			}
			if delta := chunk.text(); delta != "" {
				full.WriteString(delta)
				metricsChunk(ProviderGemini)
				if onChunk != nil {
					onChunk(delta)
				}
			}
			return false, nil
		})
		if err != nil {
			var ce *CompletionError
			if errors.As(err, &ce) {
				return promptTokens, completionTokens, ce
			}
			return promptTokens, completionTokens, transportError(ProviderGemini, err)
		}
		return promptTokens, completionTokens, nil
	})
	if err != nil {
		g.logger.Warn("streaming completion failed", zap.Error(err))
		return "", err
	}
	return full.String(), nil
}

// Verify lists models and succeeds iff at least one is returned.
func (g *GeminiClient) Verify(ctx context.Context) VerifyResult {
	resp, err := g.makeRequest(ctx, http.MethodGet, g.baseURL+"/models", nil)
	if err != nil {
		return VerifyResult{Success: false, Message: geminiVerifyMessage(err)}
	}
	defer resp.Body.Close()

	var list geminiModelList
	if err := json.NewDecoder(resp.Body).Decode(&list); err != nil {
		return VerifyResult{Success: false, Message: "Invalid response from API"}
	}
	if len(list.Models) == 0 {
		return VerifyResult{Success: false, Message: "No models found. The key may have limited permissions."}
	}
	return VerifyResult{Success: true, Message: "API key verified successfully"}
}

func geminiVerifyMessage(err error) string {
	msg := verifyMessage(err)
	lower := strings.ToLower(msg)
	switch {
	case strings.Contains(msg, "API key not valid"):
		return "The provided API key is not valid. Please check the key and try again."
	case strings.Contains(lower, "permission"):
		return "The provided API key does not have the necessary permissions."
	default:
		return msg
	}
}

func (g *GeminiClient) newRequest(prompt, systemMessage string) *geminiRequest {
	req := &geminiRequest{
		Contents: []geminiContent{{Role: "user", Parts: []geminiPart{{Text: prompt}}}},
		GenerationConfig: &geminiGenConfig{
			Temperature:     DefaultTemperature,
			MaxOutputTokens: DefaultMaxTokens,
			TopP:            DefaultTopP,
		},
	}
	if systemMessage != "" {
		req.SystemInstruction = &geminiContent{Parts: []geminiPart{{Text: systemMessage}}}
	}
	return req
}

// makeRequest sends an HTTP request to the Gemini API and returns the
// response when the status is 2xx. Non-2xx statuses are classified.
func (g *GeminiClient) makeRequest(ctx context.Context, method, url string, payload *geminiRequest) (*http.Response, error) {
	var body io.Reader
	if payload != nil {
		jsonData, err := json.Marshal(payload)
		if err != nil {
			return nil, &CompletionError{Provider: ProviderGemini, Message: "failed to marshal request", Err: err}
		}
		body = bytes.NewReader(jsonData)
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return nil, &CompletionError{Provider: ProviderGemini, Message: "failed to create request", Err: err}
	}
	if payload != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	httpReq.Header.Set("x-goog-api-key", g.apiKey)

	resp, err := g.httpClient.Do(httpReq)
	if err != nil {
		return nil, transportError(ProviderGemini, err)
	}
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return resp, nil
	}

	defer resp.Body.Close()
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
	return nil, &CompletionError{
		Provider:   ProviderGemini,
		StatusCode: resp.StatusCode,
		Message:    classifyGeminiStatus(resp.StatusCode, raw),
	}
}

// classifyGeminiStatus turns an error status into a message the retry
// classifier and the key verifier can interpret.
func classifyGeminiStatus(status int, body []byte) string {
	detail := errorMessage(body)
	switch {
	case status == http.StatusTooManyRequests:
		return "rate limit exceeded: " + detail
	case status == http.StatusForbidden:
		if bytes.Contains(bytes.ToLower(body), []byte("quota")) {
			return "quota exhausted: " + detail
		}
		return "permission denied: " + detail
	case status == http.StatusUnauthorized:
		return "unauthorized: " + detail
	case status >= 500:
		return fmt.Sprintf("service temporarily unavailable (status %d): %s", status, detail)
	default:
		return detail
	}
}
