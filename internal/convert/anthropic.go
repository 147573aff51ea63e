package convert

import (
	"encoding/json"
	"fmt"

	"github.com/anthropics/anthropic-sdk-go"

	"llmbridge/internal/eventbus"
	"llmbridge/internal/llm"
)

const targetAnthropic = "anthropic"

// compositionKeywords are schema constructs the Anthropic typed
// input-schema format cannot carry at the top level. Their presence is
// a known incompatibility class, reported as a typed error rather than
// papered over with an automatic rewrite.
var compositionKeywords = []string{"oneOf", "anyOf", "allOf", "not"}

// AnthropicTools converts internal tool definitions into the Anthropic
// tool schema. The target format is a typed field list, so generic
// map-based schemas that are not plain object schemas fail loudly.
func (c *Converter) AnthropicTools(defs []llm.ToolDefinition) ([]anthropic.ToolUnionParam, error) {
	if len(defs) == 0 {
		return nil, nil
	}
	result := make([]anthropic.ToolUnionParam, len(defs))
	for i, t := range defs {
		params, err := c.validateSchema(t.Name, targetAnthropic, t.Parameters)
		if err != nil {
			return nil, err
		}

		schema, err := anthropicInputSchema(t.Name, params)
		if err != nil {
			return nil, err
		}
		result[i] = anthropic.ToolUnionParam{
			OfTool: &anthropic.ToolParam{
				Name:        t.Name,
				Description: anthropic.String(t.Description),
				InputSchema: schema,
			},
		}
	}
	if c.bus != nil {
		c.bus.Publish(eventbus.TopicToolConverted, targetAnthropic)
	}
	return result, nil
}

// anthropicInputSchema maps a validated schema document onto the typed
// Anthropic input schema.
func anthropicInputSchema(toolName string, params map[string]any) (anthropic.ToolInputSchemaParam, error) {
	var schema anthropic.ToolInputSchemaParam
	if params == nil {
		return schema, nil
	}

	for _, kw := range compositionKeywords {
		if _, present := params[kw]; present {
			return schema, &ConversionError{
				Tool:   toolName,
				Target: targetAnthropic,
				Detail: fmt.Sprintf("top-level %q is not representable in the typed input schema", kw),
			}
		}
	}
	if typ, ok := params["type"].(string); ok && typ != "object" {
		return schema, &ConversionError{
			Tool:   toolName,
			Target: targetAnthropic,
			Detail: fmt.Sprintf("input schema must have type object, got %q", typ),
		}
	}

	raw, err := json.Marshal(params)
	if err != nil {
		return schema, &ConversionError{Tool: toolName, Target: targetAnthropic, Detail: "re-encode schema", Err: err}
	}
	if err := json.Unmarshal(raw, &schema); err != nil {
		return schema, &ConversionError{Tool: toolName, Target: targetAnthropic, Detail: "schema does not fit the typed format", Err: err}
	}
	return schema, nil
}

// AnthropicMessages converts the internal message list into Anthropic
// message params. System messages are returned separately because the
// Anthropic API carries them outside the message list.
func (c *Converter) AnthropicMessages(msgs []llm.Message) ([]anthropic.MessageParam, []anthropic.TextBlockParam) {
	var (
		out    []anthropic.MessageParam
		system []anthropic.TextBlockParam
	)

	for _, m := range msgs {
		text := messageText(m)
		switch m.Role {
		case llm.RoleSystem:
			system = append(system, anthropic.TextBlockParam{Text: text})
		case llm.RoleUser:
			out = append(out, anthropic.NewUserMessage(
				anthropic.NewTextBlock(text),
			))
		case llm.RoleAssistant:
			if len(m.ToolCalls) > 0 {
				var blocks []anthropic.ContentBlockParamUnion
				if text != "" {
					blocks = append(blocks, anthropic.NewTextBlock(text))
				}
				for _, tc := range m.ToolCalls {
					var input map[string]any
					_ = json.Unmarshal(tc.Arguments, &input)
					blocks = append(blocks, anthropic.NewToolUseBlock(tc.ID, input, tc.Name))
				}
				out = append(out, anthropic.NewAssistantMessage(blocks...))
			} else {
				out = append(out, anthropic.NewAssistantMessage(
					anthropic.NewTextBlock(text),
				))
			}
		case llm.RoleTool:
			out = append(out, anthropic.NewUserMessage(
				anthropic.NewToolResultBlock(m.ToolCallID, text, false),
			))
		}
	}
	return out, system
}
