package ollama

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/aschepis/backscratcher/legion/llm"
	"github.com/ollama/ollama/api"
)

func TestToOllamaMessages_Roles(t *testing.T) {
	msgs := []llm.Message{
		llm.SystemMessage("be brief"),
		llm.UserMessage("hi"),
		llm.AssistantMessage("hello"),
		llm.ToolMessage("simple_tool", "Tool response: hello"),
	}

	out := ToOllamaMessages(msgs)
	if len(out) != len(msgs) {
		t.Fatalf("Expected %d messages, got %d", len(msgs), len(out))
	}

	wantRoles := []string{"system", "user", "assistant", "tool"}
	for i, want := range wantRoles {
		if out[i].Role != want {
			t.Errorf("Message %d: expected role %q, got %q", i, want, out[i].Role)
		}
		if out[i].Content != msgs[i].Content {
			t.Errorf("Message %d: expected content %q, got %q", i, msgs[i].Content, out[i].Content)
		}
	}
	if out[3].ToolName != "simple_tool" {
		t.Errorf("Expected tool name 'simple_tool', got %q", out[3].ToolName)
	}
}

func TestOllamaMessages_RoundTrip(t *testing.T) {
	msgs := []llm.Message{
		llm.UserMessage("what is the weather?"),
		llm.ToolMessage("weather", `{"temp": 21}`),
		llm.ToolMessage("clock", "12:00"),
		llm.SystemMessage("late system"),
	}

	back := FromOllamaMessages(ToOllamaMessages(msgs))
	if len(back) != len(msgs) {
		t.Fatalf("Expected %d messages, got %d", len(msgs), len(back))
	}
	for i := range msgs {
		if back[i] != msgs[i] {
			t.Errorf("Message %d: expected %+v, got %+v", i, msgs[i], back[i])
		}
	}
}

type simpleToolParams struct {
	Message string `json:"message" jsonschema:"description=Text to echo"`
}

func newSimpleTool() llm.Tool {
	return llm.NewFuncTool("simple_tool", "A simple test tool", func(_ context.Context, p simpleToolParams) (string, error) {
		return "Tool response: " + p.Message, nil
	})
}

func TestToOllamaTool(t *testing.T) {
	tool, err := ToOllamaTool(newSimpleTool())
	if err != nil {
		t.Fatalf("Failed to convert tool: %v", err)
	}
	if tool.Type != "function" {
		t.Errorf("Expected type 'function', got %q", tool.Type)
	}
	if tool.Function.Name != "simple_tool" {
		t.Errorf("Expected name 'simple_tool', got %q", tool.Function.Name)
	}
	if tool.Function.Description != "A simple test tool" {
		t.Errorf("Unexpected description %q", tool.Function.Description)
	}

	data, err := json.Marshal(tool.Function.Parameters)
	if err != nil {
		t.Fatalf("Failed to marshal parameters: %v", err)
	}
	var params struct {
		Type       string                    `json:"type"`
		Required   []string                  `json:"required"`
		Properties map[string]map[string]any `json:"properties"`
	}
	if err := json.Unmarshal(data, &params); err != nil {
		t.Fatalf("Failed to decode parameters: %v", err)
	}
	if params.Type != "object" {
		t.Errorf("Expected object parameters, got %q", params.Type)
	}
	if len(params.Required) != 1 || params.Required[0] != "message" {
		t.Errorf("Expected required [message], got %v", params.Required)
	}
	if _, ok := params.Properties["message"]; !ok {
		t.Error("Expected 'message' property")
	}
}

func TestPayload_UsageZeroWhenAbsent(t *testing.T) {
	p := decodePayload([]byte(`{"model":"llama3.2","message":{"role":"assistant","content":"hi"},"done":true}`))
	u := p.usage()
	if u != (llm.Usage{}) {
		t.Errorf("Expected zero usage, got %+v", u)
	}
}

func TestPayload_Usage(t *testing.T) {
	p := decodePayload([]byte(`{"message":{"role":"assistant","content":"hi"},"prompt_eval_count":12,"eval_count":5}`))
	u := p.usage()
	if u.PromptTokens != 12 || u.CompletionTokens != 5 || u.TotalTokens != 17 {
		t.Errorf("Unexpected usage %+v", u)
	}
}

func TestPayload_ContentLenient(t *testing.T) {
	tests := []struct {
		name string
		data string
		want string
	}{
		{"trimmed", `{"message":{"role":"assistant","content":"  hello \n"}}`, "hello"},
		{"no message", `{"model":"x"}`, ""},
		{"no content", `{"message":{"role":"assistant"}}`, ""},
		{"not json", `not json`, ""},
		{"wrong shape", `{"message":"oops"}`, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := decodePayload([]byte(tt.data)).content(); got != tt.want {
				t.Errorf("Expected %q, got %q", tt.want, got)
			}
		})
	}
}

func TestPayload_ToolCallsNilWhenAbsent(t *testing.T) {
	for _, data := range []string{
		`{"message":{"role":"assistant","content":"no tools"}}`,
		`{"message":{"role":"assistant","content":"","tool_calls":[]}}`,
		`{}`,
	} {
		if calls := decodePayload([]byte(data)).toolCalls(); calls != nil {
			t.Errorf("Expected nil tool calls for %s, got %v", data, calls)
		}
	}
}

func TestPayload_ToolCallsSynthesizedIDs(t *testing.T) {
	data := `{"message":{"role":"assistant","content":"","tool_calls":[
		{"function":{"name":"simple_tool","arguments":{"message":"hello"}}},
		{"id":"call_0","function":{"name":"other","arguments":{}}},
		{"function":{"name":"third"}}
	]}}`

	calls := decodePayload([]byte(data)).toolCalls()
	if len(calls) != 3 {
		t.Fatalf("Expected 3 tool calls, got %d", len(calls))
	}

	ids := make(map[string]bool)
	for _, c := range calls {
		if c.ID == "" {
			t.Error("Expected every call to have an id")
		}
		if ids[c.ID] {
			t.Errorf("Duplicate id %q", c.ID)
		}
		ids[c.ID] = true
		if c.Type != llm.ToolCallTypeFunction {
			t.Errorf("Expected type function, got %q", c.Type)
		}
		if !json.Valid([]byte(c.Function.Arguments)) {
			t.Errorf("Arguments are not valid JSON: %q", c.Function.Arguments)
		}
	}

	if calls[1].ID != "call_0" {
		t.Errorf("Expected backend id 'call_0' to be kept, got %q", calls[1].ID)
	}
	if calls[0].ID != "call_0_1" || calls[2].ID != "call_2" {
		t.Errorf("Expected synthesized ids to avoid the backend id, got %q and %q", calls[0].ID, calls[2].ID)
	}
	if calls[0].Function.Arguments != `{"message":"hello"}` {
		t.Errorf("Unexpected arguments %q", calls[0].Function.Arguments)
	}
	if calls[2].Function.Arguments != "{}" {
		t.Errorf("Expected '{}' for missing arguments, got %q", calls[2].Function.Arguments)
	}
}

func TestPayload_ToolCallsKeepEntriesWithoutFunction(t *testing.T) {
	data := `{"message":{"role":"assistant","content":"","tool_calls":[
		{"id":"call_x"},
		{"function":{"name":"simple_tool","arguments":{"message":"hi"}}}
	]}}`

	calls := decodePayload([]byte(data)).toolCalls()
	if len(calls) != 2 {
		t.Fatalf("Expected 2 tool calls, got %d", len(calls))
	}
	if calls[0].ID != "call_x" || calls[0].Function.Name != "" || calls[0].Function.Arguments != "{}" {
		t.Errorf("Unexpected call without function %+v", calls[0])
	}
	if calls[1].ID != "call_1" || calls[1].Function.Name != "simple_tool" {
		t.Errorf("Unexpected second call %+v", calls[1])
	}
}

func TestPayloadFromResponse(t *testing.T) {
	resp := &api.ChatResponse{
		Model:   "llama3.2",
		Message: api.Message{Role: "assistant", Content: " done "},
		Done:    true,
	}
	resp.PromptEvalCount = 3
	resp.EvalCount = 4

	p := payloadFromResponse(resp)
	if p.content() != "done" {
		t.Errorf("Expected content 'done', got %q", p.content())
	}
	if p.usage().TotalTokens != 7 {
		t.Errorf("Expected 7 total tokens, got %d", p.usage().TotalTokens)
	}
	if payloadFromResponse(nil).content() != "" {
		t.Error("Expected empty content for nil response")
	}
}
