package config

import (
	"encoding/base64"
	"errors"
	"testing"
	"time"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"ENVIRONMENT", "NODE_ENV", "GO_ENV", "AI_PROVIDER",
		"CEREBRAS_API_KEY", "NEXT_PUBLIC_CEREBRAS_API_KEY",
		"GEMINI_API_KEY", "GOOGLE_AI_API_KEY", "GOOGLE_GEMINI_API_KEY",
		"SECRETS_MASTER_KEY", "DATABASE_URL", "WORKFLOW_RETRY_BACKOFF",
		"WORKFLOW_MAX_ATTEMPTS", "CORS_ALLOWED_ORIGINS",
	} {
		t.Setenv(key, "")
	}
}

func TestGetEnvironment(t *testing.T) {
	tests := []struct {
		name     string
		envVars  map[string]string
		expected string
	}{
		{
			name:     "defaults to development",
			envVars:  map[string]string{},
			expected: "development",
		},
		{
			name:     "ENVIRONMENT takes precedence",
			envVars:  map[string]string{"ENVIRONMENT": "Production", "NODE_ENV": "test"},
			expected: "production",
		},
		{
			name:     "NODE_ENV used when ENVIRONMENT not set",
			envVars:  map[string]string{"NODE_ENV": "test"},
			expected: "test",
		},
		{
			name:     "GO_ENV used as fallback",
			envVars:  map[string]string{"GO_ENV": "staging"},
			expected: "staging",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			for k, v := range tt.envVars {
				t.Setenv(k, v)
			}

			if result := GetEnvironment(); result != tt.expected {
				t.Errorf("GetEnvironment() = %v, want %v", result, tt.expected)
			}
		})
	}
}

func TestLoad_CerebrasKeyFallsBackToPublicVariable(t *testing.T) {
	clearEnv(t)
	t.Setenv("NEXT_PUBLIC_CEREBRAS_API_KEY", "csk-public")

	cfg := Load()
	if cfg.CerebrasAPIKey != "csk-public" {
		t.Errorf("CerebrasAPIKey = %q, want csk-public", cfg.CerebrasAPIKey)
	}
	if cfg.ActiveAPIKey() != "csk-public" {
		t.Errorf("ActiveAPIKey() = %q, want csk-public", cfg.ActiveAPIKey())
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)

	cfg := Load()
	if cfg.AIProvider != ProviderCerebras {
		t.Errorf("AIProvider = %q, want cerebras", cfg.AIProvider)
	}
	if cfg.WorkflowMaxAttempts != 3 {
		t.Errorf("WorkflowMaxAttempts = %d, want 3", cfg.WorkflowMaxAttempts)
	}
	if cfg.WorkflowRetryBackoff != 1500*time.Millisecond {
		t.Errorf("WorkflowRetryBackoff = %v, want 1.5s", cfg.WorkflowRetryBackoff)
	}
	if cfg.WorkflowProgressInterval != 800*time.Millisecond {
		t.Errorf("WorkflowProgressInterval = %v, want 800ms", cfg.WorkflowProgressInterval)
	}
	if len(cfg.CORSAllowedOrigins) != 3 {
		t.Errorf("CORSAllowedOrigins = %v, want 3 defaults", cfg.CORSAllowedOrigins)
	}
}

func TestLoad_ParsesDurationsAndInts(t *testing.T) {
	clearEnv(t)
	t.Setenv("WORKFLOW_RETRY_BACKOFF", "250ms")
	t.Setenv("WORKFLOW_MAX_ATTEMPTS", "not-a-number")

	cfg := Load()
	if cfg.WorkflowRetryBackoff != 250*time.Millisecond {
		t.Errorf("WorkflowRetryBackoff = %v, want 250ms", cfg.WorkflowRetryBackoff)
	}
	if cfg.WorkflowMaxAttempts != 3 {
		t.Errorf("invalid int should keep default, got %d", cfg.WorkflowMaxAttempts)
	}
}

func TestValidateMasterKey(t *testing.T) {
	validKey := make([]byte, 32)
	for i := range validKey {
		validKey[i] = byte(i)
	}
	validKeyBase64 := base64.StdEncoding.EncodeToString(validKey)
	shortKeyBase64 := base64.StdEncoding.EncodeToString(make([]byte, 16))
	zeroKeyBase64 := base64.StdEncoding.EncodeToString(make([]byte, 32))

	tests := []struct {
		name      string
		key       string
		shouldErr bool
	}{
		{"valid 32-byte key", validKeyBase64, false},
		{"too short (16 bytes)", shortKeyBase64, true},
		{"all zeros", zeroKeyBase64, true},
		{"invalid base64", "not-valid-base64!!!", true},
		{"empty", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateMasterKey(tt.key)
			if (err != nil) != tt.shouldErr {
				t.Errorf("validateMasterKey() error = %v, shouldErr %v", err, tt.shouldErr)
			}
		})
	}
}

func TestGenerateMasterKey(t *testing.T) {
	key, err := GenerateMasterKey()
	if err != nil {
		t.Fatalf("GenerateMasterKey() error = %v", err)
	}

	decoded, err := base64.StdEncoding.DecodeString(key)
	if err != nil {
		t.Fatalf("GenerateMasterKey() generated invalid base64: %v", err)
	}
	if len(decoded) != 32 {
		t.Errorf("GenerateMasterKey() generated %d bytes, want 32", len(decoded))
	}
	if err := validateMasterKey(key); err != nil {
		t.Errorf("generated key failed validation: %v", err)
	}
}

func TestValidate_Development(t *testing.T) {
	clearEnv(t)
	t.Setenv("ENVIRONMENT", "development")

	if err := Load().Validate(); err != nil {
		t.Fatalf("Validate() in development should not fail: %v", err)
	}
}

func TestValidate_Production(t *testing.T) {
	clearEnv(t)
	t.Setenv("ENVIRONMENT", "production")

	err := Load().Validate()
	if err == nil {
		t.Fatal("Validate() in production should fail without keys")
	}

	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("Validate() error should be *ValidationError, got %T", err)
	}
	if len(verr.Missing) != 2 {
		t.Errorf("Missing = %v, want CEREBRAS_API_KEY and SECRETS_MASTER_KEY", verr.Missing)
	}
}

func TestValidate_RejectsUnknownProviderAndBadDatabaseURL(t *testing.T) {
	clearEnv(t)
	t.Setenv("AI_PROVIDER", "openai")
	t.Setenv("DATABASE_URL", "mysql://localhost/db")

	err := Load().Validate()
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected *ValidationError, got %v", err)
	}
	if len(verr.Invalid) != 2 {
		t.Errorf("Invalid = %v, want 2 entries", verr.Invalid)
	}
}

func TestValidationError(t *testing.T) {
	err := &ValidationError{
		Missing:  []string{"SECRETS_MASTER_KEY"},
		Invalid:  []string{"AI_PROVIDER"},
		Warnings: []string{"some warning"},
	}
	if !err.HasErrors() {
		t.Error("HasErrors() should return true when there are missing or invalid entries")
	}
	if err.Error() == "" {
		t.Error("Error() should return a non-empty string")
	}

	noErr := &ValidationError{Warnings: []string{"just a warning"}}
	if noErr.HasErrors() {
		t.Error("HasErrors() should return false when there are only warnings")
	}
}

func TestWarnings_MissingKeyOutsideProduction(t *testing.T) {
	clearEnv(t)

	cfg := Load()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate() = %v, want nil in development", err)
	}
	warnings := cfg.Warnings()
	if len(warnings) != 1 {
		t.Fatalf("Warnings() = %v, want one entry", warnings)
	}
}
