package config

import (
	"fmt"
	"strings"
	"unicode"
)

const minKeyLength = 20

// ValidatePocketKey checks the shape of a Pocket API key.
func ValidatePocketKey(key string) error {
	return validateKey("Pocket", key, "pk_")
}

// ValidateNotionKey checks the shape of a Notion integration token.
func ValidateNotionKey(key string) error {
	return validateKey("Notion", key, "ntn_", "secret_")
}

func validateKey(service, key string, prefixes ...string) error {
	if key == "" {
		return fmt.Errorf("%s API key is empty", service)
	}
	if strings.IndexFunc(key, unicode.IsSpace) >= 0 {
		return fmt.Errorf("%s API key must not contain whitespace", service)
	}
	if len(key) < minKeyLength {
		return fmt.Errorf("%s API key is too short", service)
	}
	for _, p := range prefixes {
		if strings.HasPrefix(key, p) {
			return nil
		}
	}
	return fmt.Errorf("%s API key should start with %s", service, strings.Join(prefixes, " or "))
}

// MaskKey hides all but the edges of a secret.
func MaskKey(key string) string {
	switch {
	case key == "":
		return ""
	case len(key) <= 8:
		return strings.Repeat("*", len(key))
	default:
		return key[:4] + strings.Repeat("*", 8) + key[len(key)-4:]
	}
}
