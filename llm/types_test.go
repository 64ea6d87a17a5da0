package llm

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestMessageConstructors(t *testing.T) {
	tests := []struct {
		msg  Message
		role Role
	}{
		{SystemMessage("be brief"), RoleSystem},
		{UserMessage("hi"), RoleUser},
		{AssistantMessage("hello"), RoleAssistant},
		{ToolMessage("simple_tool", "done"), RoleTool},
	}
	for _, tt := range tests {
		if tt.msg.Role != tt.role {
			t.Errorf("Expected role %v, got %v", tt.role, tt.msg.Role)
		}
		if err := tt.msg.Validate(); err != nil {
			t.Errorf("Expected %v message to be valid: %v", tt.role, err)
		}
	}

	tool := ToolMessage("simple_tool", "done")
	if tool.Name != "simple_tool" {
		t.Errorf("Expected name 'simple_tool', got %q", tool.Name)
	}
}

func TestMessageValidate(t *testing.T) {
	if err := (Message{Role: "robot", Content: "beep"}).Validate(); err == nil {
		t.Error("Expected error for unknown role")
	}
	if err := (Message{Role: RoleTool, Content: "orphan"}).Validate(); err == nil {
		t.Error("Expected error for tool message without a name")
	}
}

func TestValidateMessages(t *testing.T) {
	if err := ValidateMessages(nil); err == nil {
		t.Error("Expected error for empty message list")
	}

	err := ValidateMessages([]Message{UserMessage("ok"), {Role: "bogus"}})
	if err == nil {
		t.Fatal("Expected error for invalid message")
	}
	if !strings.Contains(err.Error(), "message 1") {
		t.Errorf("Expected error to name the message index, got %q", err.Error())
	}
}

func TestMessageJSON(t *testing.T) {
	data, err := json.Marshal(UserMessage("Test message"))
	if err != nil {
		t.Fatalf("Failed to marshal message to JSON: %v", err)
	}
	if strings.Contains(string(data), "name") {
		t.Errorf("Expected empty name to be omitted, got %s", data)
	}

	var decoded Message
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Failed to unmarshal JSON: %v", err)
	}
	if decoded != UserMessage("Test message") {
		t.Errorf("Expected round trip to preserve message, got %+v", decoded)
	}
}

func TestUsageAdd(t *testing.T) {
	a := Usage{PromptTokens: 3, CompletionTokens: 2, TotalTokens: 5}
	b := Usage{PromptTokens: 10, CompletionTokens: 1, TotalTokens: 11}
	sum := a.Add(b)
	if sum != (Usage{PromptTokens: 13, CompletionTokens: 3, TotalTokens: 16}) {
		t.Errorf("Unexpected sum %+v", sum)
	}
}

func TestSyntheticToolCallID(t *testing.T) {
	if id := SyntheticToolCallID(0); id != "call_0" {
		t.Errorf("Expected 'call_0', got %q", id)
	}
	if id := SyntheticToolCallID(7); id != "call_7" {
		t.Errorf("Expected 'call_7', got %q", id)
	}
}

func TestAssignToolCallIDs(t *testing.T) {
	tests := []struct {
		name string
		in   []string
		want []string
	}{
		{"all missing", []string{"", "", ""}, []string{"call_0", "call_1", "call_2"}},
		{"backend ids kept", []string{"a", "b"}, []string{"a", "b"}},
		{"later backend id reserved", []string{"", "call_0"}, []string{"call_0_1", "call_0"}},
		{"earlier backend id reserved", []string{"call_1", ""}, []string{"call_1", "call_1_1"}},
		{"repeated backend id", []string{"x", "x"}, []string{"x", "call_1"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			calls := make([]ToolCall, len(tt.in))
			for i, id := range tt.in {
				calls[i].ID = id
			}
			AssignToolCallIDs(calls)
			for i, want := range tt.want {
				if calls[i].ID != want {
					t.Errorf("call %d: expected id %q, got %q", i, want, calls[i].ID)
				}
			}
		})
	}
	AssignToolCallIDs(nil)
}

func TestModelResponse_HasToolCalls(t *testing.T) {
	var nilResp *ModelResponse
	if nilResp.HasToolCalls() {
		t.Error("Expected nil response to have no tool calls")
	}
	if (&ModelResponse{Content: "hi"}).HasToolCalls() {
		t.Error("Expected no tool calls")
	}
	resp := &ModelResponse{ToolCalls: []ToolCall{{ID: "call_0", Type: ToolCallTypeFunction}}}
	if !resp.HasToolCalls() {
		t.Error("Expected tool calls")
	}
}

func TestModelResponseJSON_OmitsNilToolCalls(t *testing.T) {
	data, err := json.Marshal(&ModelResponse{Content: "hi"})
	if err != nil {
		t.Fatalf("Failed to marshal response: %v", err)
	}
	if strings.Contains(string(data), "tool_calls") {
		t.Errorf("Expected tool_calls to be omitted, got %s", data)
	}
}

func TestDecodeJSON(t *testing.T) {
	type person struct {
		Name string `json:"name"`
		Age  int    `json:"age"`
	}

	got, err := DecodeJSON[person](&ModelResponse{Content: `{"name":"John","age":25}`})
	if err != nil {
		t.Fatalf("DecodeJSON failed: %v", err)
	}
	if got.Name != "John" || got.Age != 25 {
		t.Errorf("Unexpected value %+v", got)
	}

	if _, err := DecodeJSON[person](&ModelResponse{Content: "not json"}); err == nil {
		t.Error("Expected error for invalid content")
	}
	if _, err := DecodeJSON[person](nil); err == nil {
		t.Error("Expected error for nil response")
	}
}
