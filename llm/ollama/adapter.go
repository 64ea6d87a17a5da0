package ollama

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/aschepis/backscratcher/legion/llm"
	"github.com/ollama/ollama/api"
)

// ToOllamaMessages converts llm.Messages to Ollama chat message format.
// Order is preserved.
func ToOllamaMessages(msgs []llm.Message) []api.Message {
	result := make([]api.Message, 0, len(msgs))
	for _, msg := range msgs {
		result = append(result, ToOllamaMessage(msg))
	}
	return result
}

// ToOllamaMessage converts a single llm.Message to Ollama format.
// System messages keep the system role; tool results carry the tool name.
func ToOllamaMessage(msg llm.Message) api.Message {
	switch msg.Role {
	case llm.RoleSystem:
		return api.Message{Role: "system", Content: msg.Content}
	case llm.RoleTool:
		return api.Message{Role: "tool", Content: msg.Content, ToolName: msg.Name}
	case llm.RoleUser:
		return api.Message{Role: "user", Content: msg.Content}
	default:
		return api.Message{Role: "assistant", Content: msg.Content}
	}
}

// FromOllamaMessages converts Ollama messages back to llm.Messages.
func FromOllamaMessages(msgs []api.Message) []llm.Message {
	result := make([]llm.Message, 0, len(msgs))
	for i := range msgs {
		result = append(result, FromOllamaMessage(&msgs[i]))
	}
	return result
}

// FromOllamaMessage converts an Ollama message to llm.Message.
func FromOllamaMessage(msg *api.Message) llm.Message {
	switch msg.Role {
	case "system":
		return llm.SystemMessage(msg.Content)
	case "tool":
		return llm.ToolMessage(msg.ToolName, msg.Content)
	case "assistant":
		return llm.AssistantMessage(msg.Content)
	default:
		return llm.UserMessage(msg.Content)
	}
}

// ToOllamaTools converts tools to Ollama function format.
// The neutral function schema is decoded into api.Tool so every JSON Schema
// keyword Ollama understands is carried over.
func ToOllamaTools(tools []llm.Tool) ([]api.Tool, error) {
	result := make([]api.Tool, 0, len(tools))
	for _, tool := range tools {
		converted, err := ToOllamaTool(tool)
		if err != nil {
			return nil, fmt.Errorf("failed to convert tool %s: %w", tool.Name(), err)
		}
		result = append(result, converted)
	}
	return result, nil
}

// ToOllamaTool converts a single tool to Ollama Tool format.
func ToOllamaTool(tool llm.Tool) (api.Tool, error) {
	data, err := json.Marshal(llm.GetSchema(tool))
	if err != nil {
		return api.Tool{}, fmt.Errorf("failed to marshal tool schema: %w", err)
	}
	var out api.Tool
	if err := json.Unmarshal(data, &out); err != nil {
		return api.Tool{}, fmt.Errorf("failed to decode tool schema: %w", err)
	}
	return out, nil
}

// chatPayload is the lenient view of an Ollama chat response. Every field the
// extractors read is optional, so responses from other server versions
// decode without error and absent values fall back to defaults.
type chatPayload struct {
	Model           string          `json:"model"`
	Message         *payloadMessage `json:"message,omitempty"`
	PromptEvalCount *int            `json:"prompt_eval_count,omitempty"`
	EvalCount       *int            `json:"eval_count,omitempty"`
}

type payloadMessage struct {
	Role      string            `json:"role"`
	Content   *string           `json:"content,omitempty"`
	ToolCalls []payloadToolCall `json:"tool_calls,omitempty"`
}

type payloadToolCall struct {
	ID       string `json:"id,omitempty"`
	Function *struct {
		Name      string          `json:"name"`
		Arguments json.RawMessage `json:"arguments,omitempty"`
	} `json:"function,omitempty"`
}

// decodePayload builds the lenient view of a response. It never fails; an
// undecodable response yields an empty payload.
func decodePayload(data []byte) chatPayload {
	var p chatPayload
	if err := json.Unmarshal(data, &p); err != nil {
		return chatPayload{}
	}
	return p
}

// payloadFromResponse converts an api.ChatResponse to its lenient view.
func payloadFromResponse(resp *api.ChatResponse) chatPayload {
	if resp == nil {
		return chatPayload{}
	}
	data, err := json.Marshal(resp)
	if err != nil {
		return chatPayload{}
	}
	return decodePayload(data)
}

// usage extracts token counters. Ollama reports prompt_eval_count and
// eval_count; missing counters are zero.
func (p chatPayload) usage() llm.Usage {
	var u llm.Usage
	if p.PromptEvalCount != nil {
		u.PromptTokens = *p.PromptEvalCount
	}
	if p.EvalCount != nil {
		u.CompletionTokens = *p.EvalCount
	}
	u.TotalTokens = u.PromptTokens + u.CompletionTokens
	return u
}

// content extracts the trimmed message text, or "" when absent.
func (p chatPayload) content() string {
	if p.Message == nil || p.Message.Content == nil {
		return ""
	}
	return strings.TrimSpace(*p.Message.Content)
}

// toolCalls extracts tool calls in the canonical shape. It returns nil when
// the response carries none.
func (p chatPayload) toolCalls() []llm.ToolCall {
	if p.Message == nil || len(p.Message.ToolCalls) == 0 {
		return nil
	}

	calls := make([]llm.ToolCall, 0, len(p.Message.ToolCalls))
	for _, tc := range p.Message.ToolCalls {
		// An entry without a function is kept so the count matches the backend's.
		fn := llm.ToolCallFunction{Arguments: "{}"}
		if tc.Function != nil {
			fn.Name = tc.Function.Name
			fn.Arguments = normalizeArguments(tc.Function.Arguments)
		}
		calls = append(calls, llm.ToolCall{
			ID:       tc.ID,
			Type:     llm.ToolCallTypeFunction,
			Function: fn,
		})
	}
	llm.AssignToolCallIDs(calls)
	return calls
}

// normalizeArguments renders tool arguments as compact JSON text. Missing or
// null arguments become an empty object.
func normalizeArguments(raw json.RawMessage) string {
	if len(raw) == 0 || string(raw) == "null" {
		return "{}"
	}
	var buf bytes.Buffer
	if err := json.Compact(&buf, raw); err != nil {
		return "{}"
	}
	return buf.String()
}

