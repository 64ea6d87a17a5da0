package openai

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/aschepis/backscratcher/legion/llm"
	openai "github.com/sashabaranov/go-openai"
	"github.com/samber/lo"
)

// ToOpenAIMessages converts llm.Messages to OpenAI chat message format.
func ToOpenAIMessages(msgs []llm.Message) []openai.ChatCompletionMessage {
	return lo.Map(msgs, func(msg llm.Message, _ int) openai.ChatCompletionMessage {
		return ToOpenAIMessage(msg)
	})
}

// ToOpenAIMessage converts a single llm.Message to OpenAI format.
// Tool results must reference a call id; the tool name stands in when the
// message carries none.
func ToOpenAIMessage(msg llm.Message) openai.ChatCompletionMessage {
	switch msg.Role {
	case llm.RoleSystem:
		return openai.ChatCompletionMessage{Role: openai.ChatMessageRoleSystem, Content: msg.Content}
	case llm.RoleAssistant:
		return openai.ChatCompletionMessage{Role: openai.ChatMessageRoleAssistant, Content: msg.Content}
	case llm.RoleTool:
		callID := msg.ToolCallID
		if callID == "" {
			callID = msg.Name
		}
		return openai.ChatCompletionMessage{
			Role:       openai.ChatMessageRoleTool,
			Content:    msg.Content,
			Name:       msg.Name,
			ToolCallID: callID,
		}
	default:
		return openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, Content: msg.Content}
	}
}

// ToOpenAITools converts tools to OpenAI function format.
func ToOpenAITools(tools []llm.Tool) []openai.Tool {
	return lo.Map(tools, func(t llm.Tool, _ int) openai.Tool {
		return ToOpenAITool(t)
	})
}

// ToOpenAITool converts a single tool to OpenAI Tool format.
func ToOpenAITool(tool llm.Tool) openai.Tool {
	schema := llm.GetSchema(tool)
	return openai.Tool{
		Type: openai.ToolTypeFunction,
		Function: &openai.FunctionDefinition{
			Name:        schema.Function.Name,
			Description: schema.Function.Description,
			Parameters:  schema.Function.Parameters,
		},
	}
}

// FromOpenAIToolCalls converts the tool calls of a response. It returns nil
// when there are none. Calls without an id get a positional one.
func FromOpenAIToolCalls(calls []openai.ToolCall) []llm.ToolCall {
	if len(calls) == 0 {
		return nil
	}
	result := make([]llm.ToolCall, 0, len(calls))
	for _, tc := range calls {
		result = append(result, llm.ToolCall{
			ID:   tc.ID,
			Type: llm.ToolCallTypeFunction,
			Function: llm.ToolCallFunction{
				Name:      tc.Function.Name,
				Arguments: normalizeArguments(tc.Function.Arguments),
			},
		})
	}
	llm.AssignToolCallIDs(result)
	return result
}

// fromUsage converts OpenAI token counters.
func fromUsage(u openai.Usage) llm.Usage {
	total := u.TotalTokens
	if total == 0 {
		total = u.PromptTokens + u.CompletionTokens
	}
	return llm.Usage{
		PromptTokens:     u.PromptTokens,
		CompletionTokens: u.CompletionTokens,
		TotalTokens:      total,
	}
}

// firstMessage returns the message of the first choice, or an empty message
// when the response has no choices.
func firstMessage(resp *openai.ChatCompletionResponse) openai.ChatCompletionMessage {
	if resp == nil || len(resp.Choices) == 0 {
		return openai.ChatCompletionMessage{}
	}
	return resp.Choices[0].Message
}

// toModelResponse builds the normalized envelope from a completion.
func toModelResponse(resp *openai.ChatCompletionResponse) *llm.ModelResponse {
	msg := firstMessage(resp)
	out := &llm.ModelResponse{
		Content:     strings.TrimSpace(msg.Content),
		RawResponse: resp,
		ToolCalls:   FromOpenAIToolCalls(msg.ToolCalls),
	}
	if resp != nil {
		out.Usage = fromUsage(resp.Usage)
	}
	return out
}

// normalizeArguments renders tool arguments as compact JSON text. Empty or
// malformed arguments become an empty object.
func normalizeArguments(args string) string {
	args = strings.TrimSpace(args)
	if args == "" || args == "null" {
		return "{}"
	}
	var buf bytes.Buffer
	if err := json.Compact(&buf, []byte(args)); err != nil {
		return "{}"
	}
	return buf.String()
}

// describeToolCall renders a call for diagnostic output.
func describeToolCall(call llm.ToolCall) string {
	pretty, err := json.MarshalIndent(call, "", "  ")
	if err != nil {
		return fmt.Sprintf("%s(%s)", call.Function.Name, call.Function.Arguments)
	}
	return string(pretty)
}
