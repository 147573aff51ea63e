package classify

import (
	"fmt"
	"strings"
	"time"

	"llmbridge/internal/eventbus"
	"llmbridge/internal/security"
)

// Category is a member of the closed error taxonomy.
type Category string

const (
	CategoryHTTP           Category = "http_error"
	CategoryParameter      Category = "parameter_error"
	CategoryExecution      Category = "execution_error"
	CategorySerialization  Category = "serialization_error"
	CategoryConfiguration  Category = "configuration_error"
	CategoryAvailability   Category = "availability_error"
	CategoryNetwork        Category = "network_error"
	CategoryGeneric        Category = "generic_error"
	CategoryUnknown        Category = "unknown_error"
	CategoryToolConversion Category = "tool_conversion_error"
)

// keywordGroups are tested in order against a lowered reason/message
// string; the first group with a hit wins. The order is load-bearing:
// "network timeout" lands in execution_error because timeout is checked
// before network.
var keywordGroups = []struct {
	keywords []string
	category Category
}{
	{[]string{"validation", "parameter", "conversion"}, CategoryParameter},
	{[]string{"timeout", "execution", "action"}, CategoryExecution},
	{[]string{"serialization", "json", "encoding"}, CategorySerialization},
	{[]string{"schema", "configuration", "incompatible"}, CategoryConfiguration},
	{[]string{"circuit", "availability", "service"}, CategoryAvailability},
	{[]string{"network", "connection", "transport"}, CategoryNetwork},
}

// asCategory reports whether a reason string is itself a member of the
// closed taxonomy.
func asCategory(reason string) (Category, bool) {
	switch c := Category(reason); c {
	case CategoryHTTP, CategoryParameter, CategoryExecution, CategorySerialization,
		CategoryConfiguration, CategoryAvailability, CategoryNetwork,
		CategoryGeneric, CategoryUnknown, CategoryToolConversion:
		return c, true
	}
	return "", false
}

// categorize maps a reason/message string onto the taxonomy, falling
// back to the given category when no keyword group matches.
func categorize(message string, fallback Category) Category {
	lower := strings.ToLower(message)
	for _, group := range keywordGroups {
		for _, kw := range group.keywords {
			if strings.Contains(lower, kw) {
				return group.category
			}
		}
	}
	return fallback
}

// NormalizedError is the single failure shape surfaced outside the
// core. Created once per failure and never mutated; Sanitized is true
// before it crosses the external boundary.
type NormalizedError struct {
	Category  Category `json:"category"`
	Reason    string   `json:"reason"`
	Details   string   `json:"details"`
	Original  any      `json:"original,omitempty"`
	Sanitized bool     `json:"sanitized"`
}

func (e *NormalizedError) Error() string {
	return string(e.Category) + ": " + e.Reason
}

// Retryable reports whether a failure in this category may succeed
// against another provider or on a later attempt. Parameter, schema and
// serialization failures are permanent; the rest are worth retrying.
func (e *NormalizedError) Retryable() bool {
	switch e.Category {
	case CategoryParameter, CategoryConfiguration, CategorySerialization, CategoryToolConversion:
		return false
	default:
		return true
	}
}

// HTTPError is the recognized HTTP-shaped upstream failure.
type HTTPError struct {
	Status int
	Body   string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("http %d: %s", e.Status, e.Body)
}

// Reasoner is implemented by structured errors that carry their own
// reason tag (auth and conversion failures in this module).
type Reasoner interface {
	ErrorReason() string
}

// Classifier maps arbitrary upstream failure values onto the closed
// taxonomy, sanitizing every detail that leaves the core.
type Classifier struct {
	san *security.Sanitizer
	bus *eventbus.Bus
}

// NewClassifier creates a classifier. The bus may be nil.
func NewClassifier(san *security.Sanitizer, bus *eventbus.Bus) *Classifier {
	return &Classifier{san: san, bus: bus}
}

// Classify produces a NormalizedError from any upstream failure value.
//
// Dispatch order, first match wins:
//  1. HTTP-shaped {status, body}
//  2. structured error exposing a reason tag
//  3. plain string
//  4. anything else, including plain errors
func (c *Classifier) Classify(raw any) *NormalizedError {
	norm := c.dispatch(raw)
	norm.Details = c.san.String(norm.Details)
	norm.Original = c.san.Value(norm.Original)
	norm.Sanitized = true
	if c.bus != nil {
		c.bus.Publish(eventbus.TopicErrorClassified, string(norm.Category))
	}
	return norm
}

func (c *Classifier) dispatch(raw any) *NormalizedError {
	switch v := raw.(type) {
	case *NormalizedError:
		// Copy so re-classification never mutates the caller's value.
		cp := *v
		return &cp
	case *HTTPError:
		return &NormalizedError{
			Category: CategoryHTTP,
			Reason:   fmt.Sprintf("http_%d", v.Status),
			Details:  v.Body,
			Original: v.Body,
		}
	case HTTPError:
		return c.dispatch(&v)
	case Reasoner:
		reason := v.ErrorReason()
		if reason == "" {
			reason = string(CategoryGeneric)
		}
		details := reason
		if err, ok := v.(error); ok {
			details = err.Error()
		}
		// A reason that already names a taxonomy member (typed
		// conversion failures) is authoritative; otherwise the keyword
		// precedence decides.
		category, ok := asCategory(reason)
		if !ok {
			category = categorize(reason+" "+details, CategoryGeneric)
		}
		return &NormalizedError{
			Category: category,
			Reason:   reason,
			Details:  details,
			Original: raw,
		}
	case string:
		return &NormalizedError{
			Category: categorize(v, CategoryGeneric),
			Reason:   string(CategoryGeneric),
			Details:  v,
			Original: v,
		}
	case error:
		msg := v.Error()
		return &NormalizedError{
			Category: categorize(msg, CategoryUnknown),
			Reason:   string(CategoryUnknown),
			Details:  msg,
			Original: msg,
		}
	default:
		return &NormalizedError{
			Category: CategoryUnknown,
			Reason:   string(CategoryUnknown),
			Details:  fmt.Sprintf("%v", raw),
			Original: raw,
		}
	}
}

// ToolErrorResponse is the standardized shape handed back to tool
// executors when a call fails.
type ToolErrorResponse struct {
	Error     bool           `json:"error"`
	Type      string         `json:"type"`
	Message   string         `json:"message"`
	Category  Category       `json:"category"`
	Timestamp string         `json:"timestamp"`
	Context   map[string]any `json:"context,omitempty"`
}

// ToolError builds a standardized tool-error response with a sanitized
// execution context and an ISO-8601 UTC timestamp.
func (c *Classifier) ToolError(raw any, context map[string]any) ToolErrorResponse {
	norm := c.Classify(raw)
	return ToolErrorResponse{
		Error:     true,
		Type:      norm.Reason,
		Message:   norm.Details,
		Category:  norm.Category,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Context:   c.san.Map(context),
	}
}
