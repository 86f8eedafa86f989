package ai

import (
	"os"
	"strings"
)

// keyEnv lists, per provider, the variables consulted when no key is given.
var keyEnv = map[Provider][]string{
	ProviderCerebras: {"CEREBRAS_API_KEY", "NEXT_PUBLIC_CEREBRAS_API_KEY"},
	ProviderGemini:   {"GEMINI_API_KEY", "GOOGLE_AI_API_KEY", "GOOGLE_GEMINI_API_KEY"},
}

// ResolveAPIKey returns the cleaned explicit key, or the first non-empty
// environment key of provider.
func ResolveAPIKey(provider Provider, explicit string) string {
	candidates := append([]string{explicit}, lookupEnv(keyEnv[provider])...)
	for _, raw := range candidates {
		if key := NormalizeAPIKey(raw); key != "" {
			return key
		}
	}
	return ""
}

func lookupEnv(names []string) []string {
	values := make([]string, 0, len(names))
	for _, n := range names {
		values = append(values, os.Getenv(n))
	}
	return values
}

var escapedControls = strings.NewReplacer(`\r`, "", `\n`, "", `\t`, "")

// NormalizeAPIKey undoes the usual copy-paste damage: quotes, a "Bearer "
// prefix, escaped newlines and any byte outside printable ASCII.
func NormalizeAPIKey(raw string) string {
	key := strings.Trim(strings.TrimSpace(raw), `"'`)
	key = strings.TrimSpace(key)
	if len(key) > 7 && strings.EqualFold(key[:7], "bearer ") {
		key = key[7:]
	}
	key = escapedControls.Replace(key)
	return strings.Map(func(r rune) rune {
		if r > ' ' && r <= '~' {
			return r
		}
		return -1
	}, key)
}
