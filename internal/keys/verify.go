// Package keys verifies integration keys against their services and keeps
// them, encrypted, in the settings store.
package keys

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"ai-app-builder/internal/ai"
	"ai-app-builder/internal/logging"
	"ai-app-builder/internal/metrics"
)

// Service names an integration.
type Service string

const (
	ServiceCerebras Service = "cerebras"
	ServiceGemini   Service = "gemini"
	ServiceVercel   Service = "vercel"
	ServiceGitHub   Service = "github"
	ServiceSupabase Service = "supabase"
)

// Services lists every supported integration in display order.
var Services = []Service{ServiceCerebras, ServiceGemini, ServiceVercel, ServiceGitHub, ServiceSupabase}

var (
	// ErrUnknownService is returned for a service outside Services.
	ErrUnknownService = errors.New("unknown service")
	ErrKeyRequired    = errors.New(msgKeyRequired)
)

// ParseService validates a service name.
func ParseService(name string) (Service, error) {
	s := Service(strings.ToLower(strings.TrimSpace(name)))
	if !s.valid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownService, name)
	}
	return s, nil
}

func (s Service) valid() bool {
	for _, known := range Services {
		if s == known {
			return true
		}
	}
	return false
}

// Result is the outcome of a verification. Message is user facing.
type Result = ai.VerifyResult

const (
	vercelUserURL = "https://api.vercel.com/v2/user"
	githubUserURL = "https://api.github.com/user"

	msgKeyRequired     = "API key is required"
	msgVerified        = "API key verified successfully"
	msgVercelInvalid   = "Invalid Vercel API key or insufficient permissions"
	msgGitHubInvalid   = "Invalid GitHub API key or insufficient permissions"
	msgSupabaseInvalid = "Invalid Supabase key format"
	msgSupabaseValid   = "Supabase key format is valid"
)

// VerifierOptions overrides endpoints and transport. Zero values select
// the real services.
type VerifierOptions struct {
	HTTPClient      *http.Client
	VercelURL       string
	GitHubURL       string
	CerebrasBaseURL string
	GeminiBaseURL   string
	Timeout         time.Duration
	Logger          *zap.Logger
}

// Verifier checks keys against the services they belong to.
type Verifier struct {
	httpClient *http.Client
	opts       VerifierOptions
	logger     *zap.Logger
}

// NewVerifier creates a verifier.
func NewVerifier(opts VerifierOptions) *Verifier {
	if opts.Timeout <= 0 {
		opts.Timeout = 15 * time.Second
	}
	if opts.VercelURL == "" {
		opts.VercelURL = vercelUserURL
	}
	if opts.GitHubURL == "" {
		opts.GitHubURL = githubUserURL
	}
	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: opts.Timeout}
	}
	return &Verifier{
		httpClient: client,
		opts:       opts,
		logger:     logging.OrDefault(opts.Logger).Named("keys"),
	}
}

// Verify checks key for service. Only an unknown service is an error;
// rejected keys and transport failures are reported in the Result.
func (v *Verifier) Verify(ctx context.Context, service Service, key string) (Result, error) {
	var res Result
	key = strings.TrimSpace(key)
	switch {
	case !service.valid():
		return Result{}, fmt.Errorf("%w: %q", ErrUnknownService, service)
	case key == "":
		res = Result{Success: false, Message: msgKeyRequired}
	case service == ServiceVercel:
		res = v.checkHTTP(ctx, v.opts.VercelURL, "Bearer "+key, msgVercelInvalid)
	case service == ServiceGitHub:
		res = v.checkHTTP(ctx, v.opts.GitHubURL, "token "+key, msgGitHubInvalid)
	case service == ServiceSupabase:
		res = verifySupabase(key)
	default:
		res = v.verifyProvider(ctx, ai.Provider(service), key)
	}

	metrics.Get().RecordKeyVerification(string(service), res.Success)
	v.logger.Debug("key verified",
		zap.String("service", string(service)),
		zap.Bool("success", res.Success),
	)
	return res, nil
}

func (v *Verifier) verifyProvider(ctx context.Context, provider ai.Provider, key string) Result {
	baseURL := v.opts.CerebrasBaseURL
	if provider == ai.ProviderGemini {
		baseURL = v.opts.GeminiBaseURL
	}
	client, err := ai.NewClient(provider, ai.Options{
		APIKey:     key,
		BaseURL:    baseURL,
		Timeout:    v.opts.Timeout,
		HTTPClient: v.opts.HTTPClient,
		Logger:     v.logger,
	})
	if err != nil {
		return Result{Success: false, Message: err.Error()}
	}
	return client.Verify(ctx)
}

func (v *Verifier) checkHTTP(ctx context.Context, url, authorization, invalid string) Result {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return Result{Success: false, Message: err.Error()}
	}
	req.Header.Set("Authorization", authorization)
	req.Header.Set("User-Agent", "AI-App-Builder")
	req.Header.Set("Accept", "application/json")

	resp, err := v.httpClient.Do(req)
	if err != nil {
		return Result{Success: false, Message: fmt.Sprintf("failed to reach service: %v", err)}
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return Result{Success: false, Message: invalid}
	}
	return Result{Success: true, Message: msgVerified}
}

// Supabase keys are JWTs; only the format is checked.
func verifySupabase(key string) Result {
	if !strings.HasPrefix(key, "eyJ") {
		return Result{Success: false, Message: msgSupabaseInvalid}
	}
	return Result{Success: true, Message: msgSupabaseValid}
}

// Mask shows the first and last four characters of key. Keys of eight
// characters or fewer are fully masked.
func Mask(key string) string {
	if key == "" {
		return ""
	}
	if len(key) <= 8 {
		return strings.Repeat("*", len(key))
	}
	return key[:4] + strings.Repeat("*", len(key)-8) + key[len(key)-4:]
}
