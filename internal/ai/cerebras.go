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
	cerebrasBaseURL      = "https://api.cerebras.ai/v1/chat/completions"
	cerebrasDefaultModel = "llama3.1-8b"
)

// CerebrasClient talks to the Cerebras chat completions API.
type CerebrasClient struct {
	apiKey     string
	baseURL    string
	model      string
	httpClient *http.Client
	usage      *usageTracker
	logger     *zap.Logger
}

type chatRequest struct {
	Model               string        `json:"model"`
	Messages            []chatMessage `json:"messages"`
	MaxCompletionTokens int           `json:"max_completion_tokens,omitempty"`
	Temperature         float64       `json:"temperature"`
	TopP                float64       `json:"top_p,omitempty"`
	Stream              bool          `json:"stream"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
		Delta struct {
			Content string `json:"content"`
		} `json:"delta"`
	} `json:"choices"`
	Usage *struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
	} `json:"usage,omitempty"`
	Error *apiErrorBody `json:"error,omitempty"`
}

type apiErrorBody struct {
	Message string `json:"message"`
	Type    string `json:"type"`
	Code    any    `json:"code"`
}

// NewCerebrasClient creates a client. The key resolves from opts.APIKey,
// CEREBRAS_API_KEY, then NEXT_PUBLIC_CEREBRAS_API_KEY.
func NewCerebrasClient(opts Options) (*CerebrasClient, error) {
	key := ResolveAPIKey(ProviderCerebras, opts.APIKey)
	if key == "" {
		return nil, fmt.Errorf("cerebras: %w", ErrMissingAPIKey)
	}

	baseURL := opts.BaseURL
	if baseURL == "" {
		baseURL = cerebrasBaseURL
	}
	model := opts.Model
	if model == "" {
		model = cerebrasDefaultModel
	}

	return &CerebrasClient{
		apiKey:     key,
		baseURL:    baseURL,
		model:      model,
		httpClient: opts.httpClient(),
		usage:      newUsageTracker(ProviderCerebras),
		logger:     clientLogger(opts.Logger, ProviderCerebras),
	}, nil
}

// Provider returns the provider identifier
func (c *CerebrasClient) Provider() Provider { return ProviderCerebras }

// Usage returns current usage statistics
func (c *CerebrasClient) Usage() ProviderUsage { return c.usage.snapshot() }

// Complete sends a non-streaming chat completion.
func (c *CerebrasClient) Complete(ctx context.Context, prompt, systemMessage string) (string, error) {
	req := c.newRequest(prompt, systemMessage, DefaultMaxTokens, DefaultTemperature, DefaultTopP)

	var content string
	err := call(ctx, ProviderCerebras, "complete", c.usage, func() (int, int, error) {
		resp, err := c.makeRequest(ctx, req)
		if err != nil {
			return 0, 0, err
		}
		if len(resp.Choices) > 0 {
			content = resp.Choices[0].Message.Content
		}
		if resp.Usage != nil {
			return resp.Usage.PromptTokens, resp.Usage.CompletionTokens, nil
		}
		return 0, 0, nil
	})
	if err != nil {
		c.logger.Warn("completion failed", zap.Error(err))
		return "", err
	}
	return content, nil
}

// CompleteStream sends a streaming chat completion and forwards each
// content delta to onChunk.
func (c *CerebrasClient) CompleteStream(ctx context.Context, prompt, systemMessage string, onChunk func(string)) (string, error) {
	req := c.newRequest(prompt, systemMessage, DefaultMaxTokens, DefaultTemperature, DefaultTopP)
	req.Stream = true

	var full strings.Builder
	err := call(ctx, ProviderCerebras, "stream", c.usage, func() (int, int, error) {
		resp, err := c.do(ctx, req)
		if err != nil {
			return 0, 0, err
		}
		defer resp.Body.Close()

		var promptTokens, completionTokens int
		err = readSSE(resp.Body, func(payload string) (bool, error) {
			if payload == "[DONE]" {
				return true, nil
			}
			var chunk chatResponse
			if err := json.Unmarshal([]byte(payload), &chunk); err != nil {
				return false, &CompletionError{Provider: ProviderCerebras, Message: "failed to decode stream chunk", Err: err}
			}
			if chunk.Error != nil {
				return false, &CompletionError{Provider: ProviderCerebras, Message: chunk.Error.Message}
			}
			if chunk.Usage != nil {
				promptTokens, completionTokens = chunk.Usage.PromptTokens, chunk.Usage.CompletionTokens
			}
			if len(chunk.Choices) == 0 {
				return false, nil
			}
			if delta := chunk.Choices[0].Delta.Content; delta != "" {
				full.WriteString(delta)
				metricsChunk(ProviderCerebras)
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
			return promptTokens, completionTokens, transportError(ProviderCerebras, err)
		}
		return promptTokens, completionTokens, nil
	})
	if err != nil {
		c.logger.Warn("streaming completion failed", zap.Error(err))
		return "", err
	}
	return full.String(), nil
}

// Verify sends a tiny prompt and succeeds iff content comes back.
func (c *CerebrasClient) Verify(ctx context.Context) VerifyResult {
	req := c.newRequest("Hello", "", 10, 0.1, 0)
	resp, err := c.makeRequest(ctx, req)
	if err != nil {
		return VerifyResult{Success: false, Message: verifyMessage(err)}
	}
	if len(resp.Choices) > 0 && resp.Choices[0].Message.Content != "" {
		return VerifyResult{Success: true, Message: "API key verified successfully"}
	}
	return VerifyResult{Success: false, Message: "Invalid response from API"}
}

func (c *CerebrasClient) newRequest(prompt, systemMessage string, maxTokens int, temperature, topP float64) *chatRequest {
	messages := make([]chatMessage, 0, 2)
	if systemMessage != "" {
		messages = append(messages, chatMessage{Role: "system", Content: systemMessage})
	}
	messages = append(messages, chatMessage{Role: "user", Content: prompt})

	return &chatRequest{
		Model:               c.model,
		Messages:            messages,
		MaxCompletionTokens: maxTokens,
		Temperature:         temperature,
		TopP:                topP,
	}
}

// do sends req and returns the response when the status is 2xx.
func (c *CerebrasClient) do(ctx context.Context, req *chatRequest) (*http.Response, error) {
	jsonData, err := json.Marshal(req)
	if err != nil {
		return nil, &CompletionError{Provider: ProviderCerebras, Message: "failed to marshal request", Err: err}
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, bytes.NewReader(jsonData))
	if err != nil {
		return nil, &CompletionError{Provider: ProviderCerebras, Message: "failed to create request", Err: err}
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	if req.Stream {
		httpReq.Header.Set("Accept", "text/event-stream")
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, transportError(ProviderCerebras, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		defer resp.Body.Close()
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
		return nil, &CompletionError{
			Provider:   ProviderCerebras,
			StatusCode: resp.StatusCode,
			Message:    errorMessage(body),
		}
	}
	return resp, nil
}

// makeRequest sends a non-streaming request and decodes the body.
func (c *CerebrasClient) makeRequest(ctx context.Context, req *chatRequest) (*chatResponse, error) {
	resp, err := c.do(ctx, req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, transportError(ProviderCerebras, err)
	}

	var out chatResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, &CompletionError{Provider: ProviderCerebras, StatusCode: resp.StatusCode, Message: "failed to unmarshal response", Err: err}
	}
	if out.Error != nil {
		return nil, &CompletionError{Provider: ProviderCerebras, StatusCode: resp.StatusCode, Message: out.Error.Message}
	}
	return &out, nil
}

// errorMessage extracts error.message from a provider error body, falling
// back to the raw (truncated) text.
func errorMessage(body []byte) string {
	var parsed struct {
		Error   *apiErrorBody `json:"error"`
		Message string        `json:"message"`
	}
	if err := json.Unmarshal(body, &parsed); err == nil {
		if parsed.Error != nil && parsed.Error.Message != "" {
			return parsed.Error.Message
		}
		if parsed.Message != "" {
			return parsed.Message
		}
	}
	text := strings.TrimSpace(string(body))
	if text == "" {
		return "empty error response"
	}
	return truncate(text, 500)
}
