package ai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newCerebrasTestClient(t *testing.T, handler http.HandlerFunc) *CerebrasClient {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c, err := NewCerebrasClient(Options{APIKey: "csk-test", BaseURL: srv.URL, Timeout: 5 * time.Second})
	require.NoError(t, err)
	return c
}

func newGeminiTestClient(t *testing.T, handler http.HandlerFunc) *GeminiClient {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	g, err := NewGeminiClient(Options{APIKey: "AIza-test", BaseURL: srv.URL, Timeout: 5 * time.Second})
	require.NoError(t, err)
	return g
}

func TestNewClient_MissingKey(t *testing.T) {
	for _, name := range []string{"CEREBRAS_API_KEY", "NEXT_PUBLIC_CEREBRAS_API_KEY", "GEMINI_API_KEY", "GOOGLE_AI_API_KEY", "GOOGLE_GEMINI_API_KEY"} {
		t.Setenv(name, "")
	}

	_, err := NewClient(ProviderCerebras, Options{})
	assert.ErrorIs(t, err, ErrMissingAPIKey)

	_, err = NewClient(ProviderGemini, Options{})
	assert.ErrorIs(t, err, ErrMissingAPIKey)

	_, err = NewClient("openai", Options{APIKey: "x"})
	assert.Error(t, err)
}

func TestCerebras_Complete(t *testing.T) {
	var got chatRequest
	c := newCerebrasTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer csk-test", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		fmt.Fprint(w, `{"choices":[{"message":{"content":"hello there"}}],"usage":{"prompt_tokens":7,"completion_tokens":3}}`)
	})

	out, err := c.Complete(context.Background(), "Say hi", "You are terse")
	require.NoError(t, err)
	assert.Equal(t, "hello there", out)

	assert.Equal(t, "llama3.1-8b", got.Model)
	assert.Equal(t, 4096, got.MaxCompletionTokens)
	assert.InDelta(t, 0.7, got.Temperature, 1e-9)
	assert.InDelta(t, 0.9, got.TopP, 1e-9)
	assert.False(t, got.Stream)
	require.Len(t, got.Messages, 2)
	assert.Equal(t, "system", got.Messages[0].Role)
	assert.Equal(t, "You are terse", got.Messages[0].Content)
	assert.Equal(t, "user", got.Messages[1].Role)

	usage := c.Usage()
	assert.Equal(t, int64(1), usage.RequestCount)
	assert.Equal(t, int64(10), usage.TotalTokens)
}

func TestCerebras_CompleteWithoutSystemMessage(t *testing.T) {
	c := newCerebrasTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		var req chatRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Len(t, req.Messages, 1)
		fmt.Fprint(w, `{"choices":[]}`)
	})

	out, err := c.Complete(context.Background(), "hi", "")
	require.NoError(t, err)
	assert.Empty(t, out, "empty content is not an error")
}

func TestCerebras_CompleteErrors(t *testing.T) {
	tests := []struct {
		name       string
		status     int
		body       string
		wantStatus int
		wantMsg    string
	}{
		{name: "unauthorized", status: 401, body: `{"error":{"message":"Wrong API Key"}}`, wantStatus: 401, wantMsg: "Wrong API Key"},
		{name: "server error with plain body", status: 503, body: "upstream down", wantStatus: 503, wantMsg: "upstream down"},
		{name: "error body on 200", status: 200, body: `{"error":{"message":"model overloaded"}}`, wantStatus: 200, wantMsg: "model overloaded"},
		{name: "undecodable body", status: 200, body: `not json`, wantStatus: 200, wantMsg: "failed to unmarshal response"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newCerebrasTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				fmt.Fprint(w, tt.body)
			})

			_, err := c.Complete(context.Background(), "x", "")
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrCompletionFailed)

			var ce *CompletionError
			require.True(t, errors.As(err, &ce))
			assert.Equal(t, ProviderCerebras, ce.Provider)
			assert.Equal(t, tt.wantStatus, ce.StatusCode)
			assert.Contains(t, ce.Message, tt.wantMsg)
			assert.Equal(t, int64(1), c.Usage().ErrorCount)
		})
	}
}

func TestCerebras_CompleteHonoursContext(t *testing.T) {
	release := make(chan struct{})
	c := newCerebrasTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.Copy(io.Discard, r.Body)
		select {
		case <-r.Context().Done():
		case <-release:
		}
	})
	// runs before the server's Close
	t.Cleanup(func() { close(release) })

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := c.Complete(ctx, "x", "")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrCompletionFailed)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestCerebras_CompleteStream(t *testing.T) {
	c := newCerebrasTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		var req chatRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.True(t, req.Stream)

		w.Header().Set("Content-Type", "text/event-stream")
		for _, part := range []string{"Hel", "", "lo", " world"} {
			fmt.Fprintf(w, "data: {\"choices\":[{\"delta\":{\"content\":%q}}]}\n\n", part)
		}
		fmt.Fprint(w, ": keepalive\n\n")
		fmt.Fprint(w, "data: [DONE]\n\n")
		fmt.Fprint(w, "data: {\"choices\":[{\"delta\":{\"content\":\"ignored\"}}]}\n\n")
	})

	var chunks []string
	full, err := c.CompleteStream(context.Background(), "x", "", func(s string) { chunks = append(chunks, s) })
	require.NoError(t, err)
	assert.Equal(t, "Hello world", full)
	assert.Equal(t, []string{"Hel", "lo", " world"}, chunks)
}

func TestCerebras_Verify(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		success bool
		message string
	}{
		{name: "content returned", status: 200, body: `{"choices":[{"message":{"content":"Hi"}}]}`, success: true, message: "API key verified successfully"},
		{name: "empty content", status: 200, body: `{"choices":[{"message":{"content":""}}]}`, message: "Invalid response from API"},
		{name: "rejected key", status: 401, body: `{"error":{"message":"Wrong API Key"}}`, message: "Wrong API Key"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newCerebrasTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				var req chatRequest
				require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
				assert.Equal(t, 10, req.MaxCompletionTokens)
				assert.InDelta(t, 0.1, req.Temperature, 1e-9)
				assert.Equal(t, "Hello", req.Messages[0].Content)
				w.WriteHeader(tt.status)
				fmt.Fprint(w, tt.body)
			})

			res := c.Verify(context.Background())
			assert.Equal(t, tt.success, res.Success)
			assert.Equal(t, tt.message, res.Message)
		})
	}
}

func TestGemini_Complete(t *testing.T) {
	g := newGeminiTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/models/gemini-1.5-flash:generateContent", r.URL.Path)
		assert.Equal(t, "AIza-test", r.Header.Get("x-goog-api-key"))

		var req geminiRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.NotNil(t, req.SystemInstruction)
		assert.Equal(t, "system rules", req.SystemInstruction.Parts[0].Text)
		assert.Equal(t, 4096, req.GenerationConfig.MaxOutputTokens)

		fmt.Fprint(w, `{"candidates":[{"content":{"parts":[{"text":"foo"},{"text":"bar"}]}}],"usageMetadata":{"promptTokenCount":4,"candidatesTokenCount":2}}`)
	})

	out, err := g.Complete(context.Background(), "prompt", "system rules")
	require.NoError(t, err)
	assert.Equal(t, "foobar", out)
	assert.Equal(t, int64(6), g.Usage().TotalTokens)
}

func TestGemini_StatusClassification(t *testing.T) {
	tests := []struct {
		status int
		body   string
		want   string
	}{
		{429, `{"error":{"message":"slow down"}}`, "rate limit exceeded"},
		{403, `{"error":{"message":"Quota exceeded for project"}}`, "quota exhausted"},
		{403, `{"error":{"message":"caller lacks access"}}`, "permission denied"},
		{401, `{}`, "unauthorized"},
		{502, ``, "service temporarily unavailable"},
		{400, `{"error":{"message":"API key not valid. Please pass a valid API key."}}`, "API key not valid"},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprint(tt.status), func(t *testing.T) {
			g := newGeminiTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				fmt.Fprint(w, tt.body)
			})
			_, err := g.Complete(context.Background(), "x", "")
			require.ErrorIs(t, err, ErrCompletionFailed)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestGemini_CompleteStream(t *testing.T) {
	g := newGeminiTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "sse", r.URL.Query().Get("alt"))
		assert.True(t, strings.HasSuffix(r.URL.Path, ":streamGenerateContent"))
		for _, part := range []string{"one ", "two"} {
			fmt.Fprintf(w, "data: {\"candidates\":[{\"content\":{\"parts\":[{\"text\":%q}]}}]}\r\n\r\n", part)
		}
	})

	var chunks []string
	full, err := g.CompleteStream(context.Background(), "x", "", func(s string) { chunks = append(chunks, s) })
	require.NoError(t, err)
	assert.Equal(t, "one two", full)
	assert.Equal(t, []string{"one ", "two"}, chunks)
}

func TestGemini_Verify(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		success bool
		message string
	}{
		{name: "models listed", status: 200, body: `{"models":[{"name":"models/gemini-1.5-flash"}]}`, success: true, message: "API key verified successfully"},
		{name: "no models", status: 200, body: `{"models":[]}`, message: "No models found. The key may have limited permissions."},
		{name: "invalid key", status: 400, body: `{"error":{"message":"API key not valid. Please pass a valid API key."}}`, message: "The provided API key is not valid. Please check the key and try again."},
		{name: "missing permission", status: 403, body: `{"error":{"message":"denied"}}`, message: "The provided API key does not have the necessary permissions."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := newGeminiTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, http.MethodGet, r.Method)
				assert.Equal(t, "/models", r.URL.Path)
				w.WriteHeader(tt.status)
				fmt.Fprint(w, tt.body)
			})

			res := g.Verify(context.Background())
			assert.Equal(t, tt.success, res.Success)
			assert.Equal(t, tt.message, res.Message)
		})
	}
}

func TestSetMaxConcurrency_CapsInFlight(t *testing.T) {
	SetMaxConcurrency(2)
	t.Cleanup(func() { SetMaxConcurrency(8) })

	var inFlight, peak int32
	release := make(chan struct{})
	c := newCerebrasTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		n := atomic.AddInt32(&inFlight, 1)
		for {
			p := atomic.LoadInt32(&peak)
			if n <= p || atomic.CompareAndSwapInt32(&peak, p, n) {
				break
			}
		}
		<-release
		atomic.AddInt32(&inFlight, -1)
		fmt.Fprint(w, `{"choices":[{"message":{"content":"ok"}}]}`)
	})

	done := make(chan struct{})
	for i := 0; i < 5; i++ {
		go func() {
			_, _ = c.Complete(context.Background(), "x", "")
			done <- struct{}{}
		}()
	}

	time.Sleep(100 * time.Millisecond)
	close(release)
	for i := 0; i < 5; i++ {
		<-done
	}
	assert.LessOrEqual(t, atomic.LoadInt32(&peak), int32(2))
}

func TestUnconfigured(t *testing.T) {
	var c Completer = Unconfigured{Backend: ProviderGemini}
	_, err := c.Complete(context.Background(), "hi", "")
	assert.ErrorIs(t, err, ErrMissingAPIKey)
	assert.ErrorIs(t, err, ErrCompletionFailed)

	_, err = c.CompleteStream(context.Background(), "hi", "", func(string) { t.Fatal("unexpected chunk") })
	assert.ErrorIs(t, err, ErrMissingAPIKey)
	assert.False(t, c.Verify(context.Background()).Success)
	assert.Equal(t, ProviderGemini, c.Provider())
	assert.Equal(t, ProviderCerebras, Unconfigured{}.Provider())
}
