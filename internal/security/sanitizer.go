package security

import (
	"fmt"
	"regexp"
	"strings"
)

// Redacted replaces any value matched by the sanitizer.
const Redacted = "[REDACTED]"

// maxDepth bounds recursion into nested structures. Cycles are not
// expected in error payloads, but depth is capped anyway.
const maxDepth = 32

// defaultSensitiveFields are matched case-insensitively as substrings
// of field names.
var defaultSensitiveFields = []string{
	"password",
	"token",
	"secret",
	"api_key",
	"private_key",
	"auth",
	"credential",
}

// inlineSecretPattern matches key=value style secrets embedded in
// free-form text. Replacement keeps the name and redacts the value,
// which makes sanitization idempotent.
var inlineSecretPattern = regexp.MustCompile(`(?i)\b([\w-]*(?:key|token|password))=(\[REDACTED\]|\S+)`)

// Sanitizer redacts sensitive data from strings and nested structures
// before they cross the external boundary (logs, caller-visible errors).
type Sanitizer struct {
	fields []string
}

// NewSanitizer creates a sanitizer with the default sensitive field
// names plus any configured extras.
func NewSanitizer(extraFields ...string) *Sanitizer {
	fields := make([]string, 0, len(defaultSensitiveFields)+len(extraFields))
	fields = append(fields, defaultSensitiveFields...)
	for _, f := range extraFields {
		if f = strings.ToLower(strings.TrimSpace(f)); f != "" {
			fields = append(fields, f)
		}
	}
	return &Sanitizer{fields: fields}
}

// SensitiveField reports whether a field name matches the configured
// sensitive-name list. Matching is case-insensitive substring against
// that list only, never fuzzy: a field named "public_data" stays intact.
func (s *Sanitizer) SensitiveField(name string) bool {
	lower := strings.ToLower(name)
	for _, f := range s.fields {
		if strings.Contains(lower, f) {
			return true
		}
	}
	return false
}

// String redacts inline key=value secrets in free-form text.
func (s *Sanitizer) String(text string) string {
	return inlineSecretPattern.ReplaceAllString(text, "$1="+Redacted)
}

// Value sanitizes an arbitrary value depth-first. Maps have sensitive
// fields replaced wholesale; strings are pattern-scrubbed; sequences
// are sanitized element-wise. Other values pass through unchanged.
func (s *Sanitizer) Value(v any) any {
	return s.value(v, 0)
}

func (s *Sanitizer) value(v any, depth int) any {
	if depth > maxDepth {
		return Redacted
	}
	switch val := v.(type) {
	case string:
		return s.String(val)
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, inner := range val {
			if s.SensitiveField(k) {
				out[k] = Redacted
				continue
			}
			out[k] = s.value(inner, depth+1)
		}
		return out
	case []any:
		out := make([]any, len(val))
		for i, inner := range val {
			out[i] = s.value(inner, depth+1)
		}
		return out
	case error:
		return s.String(val.Error())
	default:
		return val
	}
}

// Map sanitizes a string-keyed map, the common shape for error context.
func (s *Sanitizer) Map(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	out, _ := s.value(m, 0).(map[string]any)
	return out
}

// MaskKey returns a masked rendering of an API key for display. The raw
// key never appears in logs or diagnostics.
func MaskKey(key string) string {
	if len(key) <= 8 {
		return "****"
	}
	return fmt.Sprintf("%s...%s", key[:3], key[len(key)-4:])
}
