package anthropic

import (
	"bytes"
	"encoding/json"
	"strings"

	anthropic "github.com/anthropics/anthropic-sdk-go"
	"github.com/aschepis/backscratcher/legion/llm"
	"github.com/samber/lo"
)

// ToMessageParams splits llm.Messages into the system blocks and the
// conversation Anthropic expects. System messages are lifted out in order;
// tool results become tool_result blocks in a user turn.
func ToMessageParams(msgs []llm.Message) ([]anthropic.TextBlockParam, []anthropic.MessageParam) {
	var system []anthropic.TextBlockParam
	conversation := make([]anthropic.MessageParam, 0, len(msgs))
	for _, msg := range msgs {
		if msg.Role == llm.RoleSystem {
			if msg.Content != "" {
				system = append(system, anthropic.TextBlockParam{Text: msg.Content})
			}
			continue
		}
		conversation = append(conversation, ToMessageParam(msg))
	}
	return system, conversation
}

// ToMessageParam converts a single non-system llm.Message to Anthropic format.
func ToMessageParam(msg llm.Message) anthropic.MessageParam {
	switch msg.Role {
	case llm.RoleAssistant:
		return anthropic.NewAssistantMessage(anthropic.NewTextBlock(msg.Content))
	case llm.RoleTool:
		toolUseID := msg.ToolCallID
		if toolUseID == "" {
			toolUseID = msg.Name
		}
		return anthropic.NewUserMessage(anthropic.NewToolResultBlock(toolUseID, msg.Content, false))
	default:
		return anthropic.NewUserMessage(anthropic.NewTextBlock(msg.Content))
	}
}

// ToToolUnionParam converts a tool to an Anthropic ToolUnionParam.
func ToToolUnionParam(tool llm.Tool) anthropic.ToolUnionParam {
	params := llm.GetSchema(tool).Function.Parameters

	extra := make(map[string]any)
	for k, v := range params {
		switch k {
		case "type", "properties", "required":
		default:
			extra[k] = v
		}
	}
	required, _ := params["required"].([]any)

	toolParam := anthropic.ToolParam{
		Name:        tool.Name(),
		Description: anthropic.String(tool.Description()),
		InputSchema: anthropic.ToolInputSchemaParam{
			Properties: params["properties"],
			Required: lo.FilterMap(required, func(v any, _ int) (string, bool) {
				s, ok := v.(string)
				return s, ok
			}),
			ExtraFields: extra,
		},
	}
	return anthropic.ToolUnionParam{OfTool: &toolParam}
}

// ToToolUnionParams converts a slice of tools to Anthropic ToolUnionParams.
func ToToolUnionParams(tools []llm.Tool) []anthropic.ToolUnionParam {
	return lo.Map(tools, func(t llm.Tool, _ int) anthropic.ToolUnionParam {
		return ToToolUnionParam(t)
	})
}

// toModelResponse builds the normalized envelope from an Anthropic message.
// Text blocks are joined; tool_use blocks become tool calls.
func toModelResponse(message *anthropic.Message) *llm.ModelResponse {
	out := &llm.ModelResponse{RawResponse: message}
	if message == nil {
		return out
	}

	var text []string
	for _, blockUnion := range message.Content {
		switch block := blockUnion.AsAny().(type) {
		case anthropic.TextBlock:
			text = append(text, block.Text)
		case anthropic.ToolUseBlock:
			out.ToolCalls = append(out.ToolCalls, llm.ToolCall{
				ID:   block.ID,
				Type: llm.ToolCallTypeFunction,
				Function: llm.ToolCallFunction{
					Name:      block.Name,
					Arguments: normalizeArguments(block.Input),
				},
			})
		}
	}
	llm.AssignToolCallIDs(out.ToolCalls)
	out.Content = strings.TrimSpace(strings.Join(text, ""))
	out.Usage = llm.Usage{
		PromptTokens:     int(message.Usage.InputTokens),
		CompletionTokens: int(message.Usage.OutputTokens),
		TotalTokens:      int(message.Usage.InputTokens + message.Usage.OutputTokens),
	}
	return out
}

// normalizeArguments renders tool input as compact JSON text. Missing or
// null input becomes an empty object.
func normalizeArguments(input any) string {
	raw, err := json.Marshal(input)
	if err != nil || len(raw) == 0 || string(raw) == "null" {
		return "{}"
	}
	var buf bytes.Buffer
	if err := json.Compact(&buf, raw); err != nil {
		return "{}"
	}
	return buf.String()
}
