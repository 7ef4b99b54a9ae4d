package tools

import "strings"

const redactedValue = "[REDACTED]"

// sensitiveKeyFragments flags argument keys that must never reach logs or
// trace exports regardless of per-tool configuration.
var sensitiveKeyFragments = []string{"password", "token", "key", "secret"}

// Redact returns a copy of args with sensitive values replaced. extraKeys are
// exact-match additions from the tool descriptor.
func Redact(args map[string]any, extraKeys []string) map[string]any {
	if args == nil {
		return nil
	}

	extra := make(map[string]bool, len(extraKeys))
	for _, k := range extraKeys {
		extra[strings.ToLower(k)] = true
	}

	out := make(map[string]any, len(args))
	for k, v := range args {
		if sensitiveKey(k) || extra[strings.ToLower(k)] {
			out[k] = redactedValue
			continue
		}
		out[k] = v
	}
	return out
}

func sensitiveKey(key string) bool {
	lowered := strings.ToLower(key)
	for _, fragment := range sensitiveKeyFragments {
		if strings.Contains(lowered, fragment) {
			return true
		}
	}
	return false
}
