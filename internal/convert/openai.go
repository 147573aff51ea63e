package convert

import (
	"strings"

	"github.com/openai/openai-go"

	"llmbridge/internal/eventbus"
	"llmbridge/internal/llm"
)

const targetOpenAI = "openai"

// OpenAITools converts internal tool definitions into the OpenAI
// function-call schema. The schema document passes validation first so
// incompatibilities fail loudly instead of corrupting the request.
func (c *Converter) OpenAITools(defs []llm.ToolDefinition) ([]openai.ChatCompletionToolParam, error) {
	if len(defs) == 0 {
		return nil, nil
	}
	result := make([]openai.ChatCompletionToolParam, len(defs))
	for i, t := range defs {
		params, err := c.validateSchema(t.Name, targetOpenAI, t.Parameters)
		if err != nil {
			return nil, err
		}
		result[i] = openai.ChatCompletionToolParam{
			Function: openai.FunctionDefinitionParam{
				Name:        t.Name,
				Description: openai.String(t.Description),
				Parameters:  openai.FunctionParameters(params),
			},
		}
	}
	if c.bus != nil {
		c.bus.Publish(eventbus.TopicToolConverted, targetOpenAI)
	}
	return result, nil
}

// OpenAIMessages converts the internal message list into OpenAI chat
// params. Roles map one-to-one; multi-part bodies contribute their text
// parts only.
func (c *Converter) OpenAIMessages(msgs []llm.Message) []openai.ChatCompletionMessageParamUnion {
	var out []openai.ChatCompletionMessageParamUnion

	for _, m := range msgs {
		text := messageText(m)
		switch m.Role {
		case llm.RoleSystem:
			out = append(out, openai.SystemMessage(text))
		case llm.RoleUser:
			out = append(out, openai.UserMessage(text))
		case llm.RoleAssistant:
			if len(m.ToolCalls) > 0 {
				toolCalls := make([]openai.ChatCompletionMessageToolCallParam, len(m.ToolCalls))
				for i, tc := range m.ToolCalls {
					toolCalls[i] = openai.ChatCompletionMessageToolCallParam{
						ID: tc.ID,
						Function: openai.ChatCompletionMessageToolCallFunctionParam{
							Name:      tc.Name,
							Arguments: string(tc.Arguments),
						},
					}
				}
				asst := openai.ChatCompletionAssistantMessageParam{
					ToolCalls: toolCalls,
				}
				if text != "" {
					asst.Content.OfString = openai.String(text)
				}
				out = append(out, openai.ChatCompletionMessageParamUnion{OfAssistant: &asst})
			} else {
				out = append(out, openai.AssistantMessage(text))
			}
		case llm.RoleTool:
			out = append(out, openai.ToolMessage(text, m.ToolCallID))
		}
	}
	return out
}

// messageText extracts the textual body of a message. A part list takes
// precedence; non-text parts are dropped without error.
func messageText(m llm.Message) string {
	if m.Parts == nil {
		return m.Content
	}
	var b strings.Builder
	for _, p := range m.Parts {
		if p.Type == llm.PartText {
			b.WriteString(p.Text)
		}
	}
	return b.String()
}
