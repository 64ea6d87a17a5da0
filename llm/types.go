package llm

import (
	"encoding/json"
	"fmt"
)

// Role represents the role of a message in a conversation.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleSystem, RoleUser, RoleAssistant, RoleTool:
		return true
	default:
		return false
	}
}

// Message is a single, backend-independent conversation turn.
// Messages are values; adapters never modify the caller's slice.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
	// Name identifies the tool that produced a tool-role message.
	Name string `json:"name,omitempty"`
	// ToolCallID links a tool-role message to the call it answers, for
	// backends that track calls by id.
	ToolCallID string `json:"tool_call_id,omitempty"`
}

// SystemMessage creates a system message.
func SystemMessage(content string) Message {
	return Message{Role: RoleSystem, Content: content}
}

// UserMessage creates a user message.
func UserMessage(content string) Message {
	return Message{Role: RoleUser, Content: content}
}

// AssistantMessage creates an assistant message.
func AssistantMessage(content string) Message {
	return Message{Role: RoleAssistant, Content: content}
}

// ToolMessage creates a tool result message for the named tool.
func ToolMessage(name, content string) Message {
	return Message{Role: RoleTool, Content: content, Name: name}
}

// Validate checks the role and the tool-name requirement.
func (m Message) Validate() error {
	if !m.Role.Valid() {
		return fmt.Errorf("unknown message role %q", m.Role)
	}
	if m.Role == RoleTool && m.Name == "" {
		return fmt.Errorf("tool message requires a name")
	}
	return nil
}

// ValidateMessages validates every message in order.
func ValidateMessages(msgs []Message) error {
	if len(msgs) == 0 {
		return fmt.Errorf("at least one message is required")
	}
	for i, msg := range msgs {
		if err := msg.Validate(); err != nil {
			return fmt.Errorf("message %d: %w", i, err)
		}
	}
	return nil
}

// Usage holds token counters. Counters are zero when the backend does not
// report them.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// Add returns the sum of two usage records.
func (u Usage) Add(other Usage) Usage {
	return Usage{
		PromptTokens:     u.PromptTokens + other.PromptTokens,
		CompletionTokens: u.CompletionTokens + other.CompletionTokens,
		TotalTokens:      u.TotalTokens + other.TotalTokens,
	}
}

// ToolCallTypeFunction is the only tool call type produced by adapters.
const ToolCallTypeFunction = "function"

// ToolCallFunction names the callee and carries its arguments as JSON text.
type ToolCallFunction struct {
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

// ToolCall is a tool invocation requested by the model.
type ToolCall struct {
	ID       string           `json:"id"`
	Type     string           `json:"type"`
	Function ToolCallFunction `json:"function"`
}

// SyntheticToolCallID returns the positional id used when a backend does not
// supply one. It is only unique within a single response.
func SyntheticToolCallID(index int) string {
	return fmt.Sprintf("call_%d", index)
}

// AssignToolCallIDs gives every call in calls an id unique within the slice.
// Backend-supplied ids are kept on their first occurrence. Missing or
// repeated ids get the positional id, suffixed when the backend already used it.
func AssignToolCallIDs(calls []ToolCall) {
	reserved := make(map[string]bool, len(calls))
	for _, call := range calls {
		if call.ID != "" {
			reserved[call.ID] = true
		}
	}
	seen := make(map[string]bool, len(calls))
	for i := range calls {
		if id := calls[i].ID; id != "" && !seen[id] {
			seen[id] = true
			continue
		}
		base := SyntheticToolCallID(i)
		id := base
		for n := 1; seen[id] || reserved[id]; n++ {
			id = fmt.Sprintf("%s_%d", base, n)
		}
		calls[i].ID = id
		seen[id] = true
	}
}

// ModelResponse is the normalized result of every completion mode.
type ModelResponse struct {
	// Content is the textual reply, empty when the backend returned none.
	Content string `json:"content"`
	// RawResponse is the backend-native payload, kept for debugging.
	RawResponse any `json:"raw_response,omitempty"`
	Usage       Usage `json:"usage"`
	// ToolCalls is nil when no tool was called, otherwise non-empty.
	ToolCalls []ToolCall `json:"tool_calls,omitempty"`
}

// HasToolCalls reports whether the model requested any tool call.
func (r *ModelResponse) HasToolCalls() bool {
	return r != nil && len(r.ToolCalls) > 0
}

// DecodeJSON unmarshals the response content into T.
func DecodeJSON[T any](resp *ModelResponse) (T, error) {
	var out T
	if resp == nil {
		return out, fmt.Errorf("response is nil")
	}
	if err := json.Unmarshal([]byte(resp.Content), &out); err != nil {
		return out, fmt.Errorf("failed to decode response content: %w", err)
	}
	return out, nil
}

// ChatRequest is the input of a plain chat completion.
type ChatRequest struct {
	Messages    []Message
	Model       string
	Temperature float64
	MaxTokens   int
	Stream      bool
}

// ToolChatRequest is the input of a tool-augmented completion.
type ToolChatRequest struct {
	Messages        []Message
	Model           string
	Tools           []Tool
	Temperature     float64
	JSONTemperature float64
	MaxTokens       int
}

// JSONChatRequest is the input of a schema-constrained JSON completion.
type JSONChatRequest struct {
	Messages    []Message
	Model       string
	Schema      *Schema
	Temperature float64
	MaxTokens   int
}

// CompletionRequest is the input of the dispatcher. The presence of Tools
// and ResponseSchema selects the completion mode.
type CompletionRequest struct {
	Messages    []Message
	Model       string
	Temperature float64
	// JSONTemperature is used by the formatting pass when both Tools and
	// ResponseSchema are set.
	JSONTemperature float64
	Tools           []Tool
	ResponseSchema  *Schema
	MaxTokens       int
	Stream          bool
}
