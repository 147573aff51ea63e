package convert

import (
	"encoding/json"
	"fmt"
	"log"

	"github.com/santhosh-tekuri/jsonschema/v6"

	"llmbridge/internal/eventbus"
)

// ConversionError reports a tool schema that a target provider format
// cannot represent. These are surfaced loudly, never degraded into a
// silent fallback.
type ConversionError struct {
	Tool   string
	Target string
	Detail string
	Err    error
}

func (e *ConversionError) Error() string {
	msg := fmt.Sprintf("convert tool %q for %s: %s", e.Tool, e.Target, e.Detail)
	if e.Err != nil {
		return msg + ": " + e.Err.Error()
	}
	return msg
}

func (e *ConversionError) Unwrap() error { return e.Err }

// ErrorReason exposes the taxonomy reason to the error classifier.
func (e *ConversionError) ErrorReason() string { return "tool_conversion_error" }

// knownToolChoices are the choice values every supported provider
// understands. Anything else degrades to "auto".
var knownToolChoices = map[string]bool{
	"auto":     true,
	"none":     true,
	"required": true,
	"any":      true,
}

// Converter translates internal tool definitions and message lists into
// provider wire schemas.
type Converter struct {
	bus *eventbus.Bus
}

// New creates a converter. The bus may be nil.
func New(bus *eventbus.Bus) *Converter {
	return &Converter{bus: bus}
}

// validateSchema checks that a tool's parameter document is a
// compilable JSON Schema before any provider-specific translation.
func (c *Converter) validateSchema(toolName, target string, params json.RawMessage) (map[string]any, error) {
	if len(params) == 0 {
		return nil, nil
	}

	var doc any
	if err := json.Unmarshal(params, &doc); err != nil {
		return nil, &ConversionError{Tool: toolName, Target: target, Detail: "parameters are not valid JSON", Err: err}
	}

	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("schema.json", doc); err != nil {
		return nil, &ConversionError{Tool: toolName, Target: target, Detail: "invalid JSON schema", Err: err}
	}
	if _, err := compiler.Compile("schema.json"); err != nil {
		return nil, &ConversionError{Tool: toolName, Target: target, Detail: "schema does not compile", Err: err}
	}

	obj, ok := doc.(map[string]any)
	if !ok {
		return nil, &ConversionError{Tool: toolName, Target: target, Detail: "schema must be a JSON object"}
	}
	return obj, nil
}

// ToolChoice maps a requested tool-choice value onto the provider
// vocabulary. Unrecognized values degrade to "auto" deliberately; the
// degradation is logged and counted so it stays observable, distinct
// from genuine conversion errors.
func (c *Converter) ToolChoice(choice string) string {
	if choice == "" {
		return "auto"
	}
	if knownToolChoices[choice] {
		return choice
	}
	log.Printf("[convert] unrecognized tool choice %q, falling back to auto", choice)
	if c.bus != nil {
		c.bus.Publish(eventbus.TopicToolChoiceFallback, choice)
	}
	return "auto"
}
